package client

import (
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rawFrame 只有报文头有意义的报文
func rawFrame(length int, seq uint32) []byte {
	frame := make([]byte, length)
	binary.BigEndian.PutUint32(frame[0:4], uint32(length))
	binary.BigEndian.PutUint32(frame[4:8], 0x00000015)
	binary.BigEndian.PutUint32(frame[12:16], seq)
	for i := 16; i < length; i++ {
		frame[i] = byte(i)
	}
	return frame
}

func drain(t *testing.T, r *Reassembler) [][]byte {
	var frames [][]byte
	for {
		frame, err := r.Next()
		require.NoError(t, err)
		if frame == nil {
			return frames
		}
		frames = append(frames, frame)
	}
}

func TestReassembler_TwoFramesOneChunk(t *testing.T) {
	r := NewReassembler(0)
	chunk := append(rawFrame(20, 1), rawFrame(24, 2)...)
	r.Write(chunk)

	frames := drain(t, r)
	require.Len(t, frames, 2)
	assert.Len(t, frames[0], 20)
	assert.Len(t, frames[1], 24)
	assert.Equal(t, uint32(1), binary.BigEndian.Uint32(frames[0][12:16]))
	assert.Equal(t, uint32(2), binary.BigEndian.Uint32(frames[1][12:16]))
	assert.Equal(t, 0, r.Buffered())
}

func TestReassembler_SplitHeader(t *testing.T) {
	r := NewReassembler(0)
	frame := rawFrame(30, 7)

	r.Write(frame[:10])
	assert.Empty(t, drain(t, r))
	assert.Equal(t, 10, r.Buffered())

	r.Write(frame[10:])
	frames := drain(t, r)
	require.Len(t, frames, 1)
	assert.Equal(t, frame, frames[0])
}

func TestReassembler_PartialBody(t *testing.T) {
	r := NewReassembler(0)
	frame := rawFrame(40, 3)
	r.Write(frame[:20])
	// 报文头完整但消息体不足时不消费任何数据
	for i := 0; i < 3; i++ {
		got, err := r.Next()
		assert.NoError(t, err)
		assert.Nil(t, got)
	}
	assert.Equal(t, 20, r.Buffered())
	r.Write(nil)
	r.Write([]byte{})
	r.Write(frame[20:])
	assert.Len(t, drain(t, r), 1)
}

func TestReassembler_RandomChunks(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for round := 0; round < 50; round++ {
		var stream []byte
		n := 1 + rnd.Intn(20)
		for i := 0; i < n; i++ {
			stream = append(stream, rawFrame(16+rnd.Intn(64), uint32(i+1))...)
		}

		r := NewReassembler(0)
		var frames [][]byte
		for len(stream) > 0 {
			size := rnd.Intn(len(stream) + 1)
			r.Write(stream[:size])
			stream = stream[size:]
			frames = append(frames, drain(t, r)...)
		}
		require.Len(t, frames, n)
		for i, frame := range frames {
			assert.Equal(t, uint32(i+1), binary.BigEndian.Uint32(frame[12:16]))
		}
	}
}

func TestReassembler_Malformed(t *testing.T) {
	r := NewReassembler(0)
	bad := rawFrame(16, 1)
	binary.BigEndian.PutUint32(bad[0:4], 15)
	r.Write(bad)

	_, err := r.Next()
	assert.ErrorIs(t, err, ErrMalformedFrame)
	// 出错后保持失败状态
	r.Write(rawFrame(16, 2))
	_, err = r.Next()
	assert.ErrorIs(t, err, ErrMalformedFrame)
	assert.Equal(t, 0, r.Buffered())
}

func TestReassembler_TooLong(t *testing.T) {
	r := NewReassembler(64)
	r.Write(rawFrame(16, 1)[:16])
	head := make([]byte, 16)
	binary.BigEndian.PutUint32(head[0:4], 65)
	r.Write(head)

	frame, err := r.Next()
	require.NoError(t, err)
	assert.Len(t, frame, 16)
	_, err = r.Next()
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestReassembler_ManyFramesOneChunk(t *testing.T) {
	var chunk []byte
	for i := 0; i < 1000; i++ {
		chunk = append(chunk, rawFrame(16, uint32(i+1))...)
	}
	tail := rawFrame(20, 1001)
	chunk = append(chunk, tail[:8]...)

	r := NewReassembler(0)
	r.Write(chunk)
	frames := drain(t, r)
	require.Len(t, frames, 1000)
	assert.Equal(t, uint32(1000), binary.BigEndian.Uint32(frames[999][12:16]))
	assert.Equal(t, 8, r.Buffered())

	// 已取出的报文在下一次 Write 时整理掉
	r.Write(tail[8:])
	assert.Len(t, r.buf, 20)
	frames = drain(t, r)
	require.Len(t, frames, 1)
	assert.Equal(t, tail, frames[0])
	assert.Equal(t, 0, r.Buffered())
}
