package client

import (
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/aaronwong1989/smppc/codec/smpp"
)

// PendingRequest 等待应答的请求
type PendingRequest struct {
	Sequence uint32
	Request  smpp.Pdu
	Future   *Future
	Deadline time.Time // 零值表示不超时
}

// Table 按序号索引的待应答请求，只在事件循环中访问
type Table struct {
	entries map[uint32]*PendingRequest
}

func NewTable() *Table {
	return &Table{entries: make(map[uint32]*PendingRequest)}
}

// Insert 序号已存在时返回 ErrDuplicateSequence
func (t *Table) Insert(p *PendingRequest) error {
	if _, ok := t.entries[p.Sequence]; ok {
		return errors.Wrapf(ErrDuplicateSequence, "seq=%d", p.Sequence)
	}
	t.entries[p.Sequence] = p
	return nil
}

func (t *Table) Remove(seq uint32) (*PendingRequest, bool) {
	p, ok := t.entries[seq]
	if ok {
		delete(t.entries, seq)
	}
	return p, ok
}

func (t *Table) Contains(seq uint32) bool {
	_, ok := t.entries[seq]
	return ok
}

func (t *Table) Len() int {
	return len(t.entries)
}

// Expired 移除并返回在 now 之前到期的请求，按序号排序
func (t *Table) Expired(now time.Time) []*PendingRequest {
	var expired []*PendingRequest
	for seq, p := range t.entries {
		if !p.Deadline.IsZero() && !now.Before(p.Deadline) {
			expired = append(expired, p)
			delete(t.entries, seq)
		}
	}
	sortBySequence(expired)
	return expired
}

// Drain 移除并返回全部请求，按序号排序
func (t *Table) Drain() []*PendingRequest {
	all := make([]*PendingRequest, 0, len(t.entries))
	for _, p := range t.entries {
		all = append(all, p)
	}
	t.entries = make(map[uint32]*PendingRequest)
	sortBySequence(all)
	return all
}

func sortBySequence(ps []*PendingRequest) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].Sequence < ps[j].Sequence })
}
