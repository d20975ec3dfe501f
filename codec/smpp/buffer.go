package smpp

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// frameWriter 按顺序向预分配的报文写入字段
type frameWriter struct {
	frame []byte
	index int
}

func newFrameWriter(header *MessageHeader) *frameWriter {
	return &frameWriter{frame: header.Encode(), index: HeaderLength}
}

func (w *frameWriter) u8(b uint8) {
	w.frame[w.index] = b
	w.index++
}

// cstr 写入以0结尾的字符串，超长部分截断
func (w *frameWriter) cstr(s string, max int) {
	s = fit(s, max)
	copy(w.frame[w.index:], s)
	w.index += len(s)
	w.frame[w.index] = 0
	w.index++
}

func (w *frameWriter) raw(b []byte) {
	copy(w.frame[w.index:], b)
	w.index += len(b)
}

func (w *frameWriter) tlvs(tlvs []TLV) {
	for _, t := range tlvs {
		binary.BigEndian.PutUint16(w.frame[w.index:], t.Tag)
		binary.BigEndian.PutUint16(w.frame[w.index+2:], uint16(len(t.Value)))
		w.index += 4
		w.raw(t.Value)
	}
}

// frameReader 按顺序读取消息体字段，出现第一个错误后不再读取
type frameReader struct {
	body  []byte
	index int
	err   error
}

func newFrameReader(body []byte) *frameReader {
	return &frameReader{body: body}
}

func (r *frameReader) remaining() int {
	return len(r.body) - r.index
}

func (r *frameReader) fail(format string, args ...interface{}) {
	if r.err == nil {
		r.err = errors.Wrapf(ErrMalformedPdu, format, args...)
	}
}

func (r *frameReader) u8() uint8 {
	if r.err != nil {
		return 0
	}
	if r.remaining() < 1 {
		r.fail("unexpected end of body at offset %d", r.index)
		return 0
	}
	b := r.body[r.index]
	r.index++
	return b
}

// cstr 读取以0结尾的字符串，max 包含结尾的0
func (r *frameReader) cstr(field string, max int) string {
	if r.err != nil {
		return ""
	}
	for i := r.index; i < len(r.body) && i-r.index < max; i++ {
		if r.body[i] == 0 {
			s := string(r.body[r.index:i])
			r.index = i + 1
			return s
		}
	}
	r.fail("%s is not a c-octet string of at most %d bytes", field, max)
	return ""
}

func (r *frameReader) raw(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.remaining() < n {
		r.fail("need %d bytes at offset %d, got %d", n, r.index, r.remaining())
		return nil
	}
	b := make([]byte, n)
	copy(b, r.body[r.index:r.index+n])
	r.index += n
	return b
}

// tlvs 读取剩余的可选参数
func (r *frameReader) tlvs() []TLV {
	var tlvs []TLV
	for r.err == nil && r.remaining() > 0 {
		if r.remaining() < 4 {
			r.fail("truncated optional parameter at offset %d", r.index)
			return nil
		}
		tag := binary.BigEndian.Uint16(r.body[r.index:])
		l := int(binary.BigEndian.Uint16(r.body[r.index+2:]))
		r.index += 4
		v := r.raw(l)
		if r.err != nil {
			return nil
		}
		tlvs = append(tlvs, TLV{Tag: tag, Value: v})
	}
	return tlvs
}

func fit(s string, max int) string {
	if len(s) > max-1 {
		return s[:max-1]
	}
	return s
}

func cstrLen(s string, max int) int {
	return len(fit(s, max)) + 1
}
