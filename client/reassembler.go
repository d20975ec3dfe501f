package client

import (
	"github.com/pkg/errors"

	"github.com/aaronwong1989/smppc/codec/smpp"
)

// Reassembler 把任意切分的字节流还原为完整报文
type Reassembler struct {
	buf []byte
	off int // 已取出报文的字节数，Write 时整理
	max uint32
	err error
}

// NewReassembler max 为允许的最大报文长度，不大于报文头长度时使用 DefaultMaxFrameLength
func NewReassembler(max int) *Reassembler {
	if max <= smpp.HeaderLength {
		max = DefaultMaxFrameLength
	}
	return &Reassembler{max: uint32(max)}
}

// Write 追加收到的数据，出错后不再接收
func (r *Reassembler) Write(chunk []byte) {
	if r.err != nil || len(chunk) == 0 {
		return
	}
	if r.off > 0 {
		n := copy(r.buf, r.buf[r.off:])
		r.buf = r.buf[:n]
		r.off = 0
	}
	r.buf = append(r.buf, chunk...)
}

// Next 取出下一个完整报文，数据不足时返回 nil, nil。
// 长度字段不合法时返回 ErrMalformedFrame，之后的调用返回同一错误
func (r *Reassembler) Next() ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	buf := r.buf[r.off:]
	if len(buf) < smpp.HeaderLength {
		return nil, nil
	}
	l := smpp.PeekLength(buf)
	if l < smpp.HeaderLength {
		r.fail(errors.Wrapf(ErrMalformedFrame, "command_length %d is shorter than header", l))
		return nil, r.err
	}
	if l > r.max {
		r.fail(errors.Wrapf(ErrMalformedFrame, "command_length %d exceeds %d", l, r.max))
		return nil, r.err
	}
	if uint32(len(buf)) < l {
		return nil, nil
	}
	frame := make([]byte, l)
	copy(frame, buf[:l])
	r.off += int(l)
	return frame, nil
}

// Buffered 尚未组成完整报文的字节数
func (r *Reassembler) Buffered() int {
	return len(r.buf) - r.off
}

func (r *Reassembler) fail(err error) {
	r.err = err
	r.buf = nil
	r.off = 0
}
