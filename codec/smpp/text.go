package smpp

import (
	"github.com/aaronwong1989/smppc/comm"
)

// data_coding
const (
	CODING_DEFAULT = uint8(0x00) // SMSC 默认字母表
	CODING_IA5     = uint8(0x01) // IA5 (CCITT T.50)/ASCII
	CODING_BINARY  = uint8(0x02) // 8bit 二进制
	CODING_LATIN1  = uint8(0x03) // ISO-8859-1
	CODING_OCTET   = uint8(0x04) // 8bit 二进制
	CODING_UCS2    = uint8(0x08) // UCS2 (ISO/IEC-10646)
)

// EncodeText 按内容选择编码格式。
// 纯 ASCII 采用 0：SMSC 默认字母表
// 可以用 Latin-1 表示的采用 3：ISO-8859-1
// 其余采用 8：UCS2编码
func EncodeText(text string) (dataCoding uint8, bts []byte) {
	if comm.IsASCII(text) {
		return CODING_DEFAULT, []byte(text)
	}
	if bts, ok := comm.Latin1Encode(text); ok {
		return CODING_LATIN1, bts
	}
	return CODING_UCS2, comm.Ucs2Encode(text)
}

// DecodeText 按 data_coding 解码消息内容，二进制内容原样返回
func DecodeText(dataCoding uint8, bts []byte) string {
	switch dataCoding {
	case CODING_LATIN1:
		return comm.Latin1Decode(bts)
	case CODING_UCS2:
		return comm.Ucs2Decode(bts)
	default:
		return string(bts)
	}
}
