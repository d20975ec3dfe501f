package comm

import (
	"sync"
)

// MaxSequence SMPP 序号取值范围为 0x00000001 - 0x7FFFFFFF
const MaxSequence = int32(0x7fffffff)

// CycleSequence 循环序号生成器，从 start 开始每次加1，超过 MaxSequence 后回到 1
type CycleSequence struct {
	sync.Mutex
	next int32
}

func NewCycleSequence(start int32) *CycleSequence {
	if start < 1 {
		start = 1
	}
	return &CycleSequence{next: start}
}

func (s *CycleSequence) NextVal() int32 {
	s.Lock()
	defer s.Unlock()
	v := s.next
	if s.next == MaxSequence {
		s.next = 1
	} else {
		s.next++
	}
	return v
}
