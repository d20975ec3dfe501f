package comm

import (
	"bufio"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"unsafe"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/aaronwong1989/smppc/comm/logging"
)

// TrimStr 截取到第一个 0 字节之前的内容
func TrimStr(bts []byte) string {
	var i = 0
	for ; i < len(bts); i++ {
		if bts[i] == 0 {
			break
		}
	}
	ns := bts[:i]
	return *(*string)(unsafe.Pointer(&ns))
}

// IsASCII 内容是否全部为 7bit 字符
func IsASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// Ucs2Encode Encode to UCS2.
func Ucs2Encode(s string) []byte {
	e := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	ucs, _, err := transform.Bytes(e.NewEncoder(), []byte(s))
	if err != nil {
		return nil
	}
	return ucs
}

// Ucs2Decode Decode from UCS2.
func Ucs2Decode(ucs2 []byte) string {
	e := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	bts, _, err := transform.Bytes(e.NewDecoder(), ucs2)
	if err != nil {
		return ""
	}
	return TrimStr(bts)
}

// Latin1Encode Encode to ISO-8859-1, ok is false when s contains characters outside Latin-1.
func Latin1Encode(s string) (bts []byte, ok bool) {
	bts, _, err := transform.Bytes(charmap.ISO8859_1.NewEncoder(), []byte(s))
	if err != nil {
		return nil, false
	}
	return bts, true
}

// Latin1Decode Decode from ISO-8859-1.
func Latin1Decode(bts []byte) string {
	s, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), bts)
	if err != nil {
		return ""
	}
	return string(s)
}

// LogHex 以16进制打印报文，log 为 nil 时使用默认日志器。
// 由日志器自身的级别决定是否输出
func LogHex(log logging.Logger, level logging.Level, model string, bts []byte) {
	if log == nil {
		log = logging.GetDefaultLogger()
	}
	const format = "[%-9s] Hex %s: %x"
	switch level {
	case logging.DebugLevel:
		log.Debugf(format, "OnTraffic", model, bts)
	case logging.ErrorLevel:
		log.Errorf(format, "OnTraffic", model, bts)
	case logging.WarnLevel:
		log.Warnf(format, "OnTraffic", model, bts)
	default:
		log.Infof(format, "OnTraffic", model, bts)
	}
}

func RandNum(min, max int32) int {
	if max <= min {
		return int(min)
	}
	return rand.Intn(int(max-min)) + int(min)
}

// DiceCheck 投概率骰子，得到结果比给定数字大则返回true，否则返回false
func DiceCheck(prob float64) bool {
	return float64(rand.Intn(10000))/10000.0 > prob
}

// SavePid 在程序执行的当前目录生成pid文件
func SavePid(f string) string {
	pid := fmt.Sprintf("%d", os.Getpid())
	file, err := os.OpenFile(f, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		logging.Errorf("%v", err)
		return pid
	}

	writer := bufio.NewWriter(file)
	_, _ = writer.WriteString(pid)
	defer func(file *os.File, writer *bufio.Writer) {
		_ = writer.Flush()
		_ = file.Close()
	}(file, writer)

	return pid
}

// StartMonitor 开启pprof，监听请求
func StartMonitor(port int) {
	go func() {
		addr := strconv.Itoa(port + 1)
		logging.Infof("[Pprof    ] http://localhost:%s/debug/pprof/", addr)
		if err := http.ListenAndServe(":"+addr, nil); err != nil {
			logging.Infof("start pprof failed on %s", addr)
		}
	}()
}
