package client

import (
	"context"
	"sync"

	"github.com/aaronwong1989/smppc/codec/smpp"
)

// Future 异步操作的结果，只会完成一次，先到的结果生效
type Future struct {
	done chan struct{}
	once sync.Once
	pdu  smpp.Pdu
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// complete 返回 false 表示已经完成过
func (f *Future) complete(pdu smpp.Pdu, err error) bool {
	ok := false
	f.once.Do(func() {
		f.pdu, f.err = pdu, err
		close(f.done)
		ok = true
	})
	return ok
}

// Done 完成时关闭
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait 等待结果。ctx 结束时返回 ctx.Err()，不影响操作本身
func (f *Future) Wait(ctx context.Context) (smpp.Pdu, error) {
	select {
	case <-f.done:
		return f.pdu, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result 不阻塞，尚未完成时返回 ErrPending。
// 应答状态非0时同时返回应答报文和 *CommandStatusError
func (f *Future) Result() (smpp.Pdu, error) {
	select {
	case <-f.done:
		return f.pdu, f.err
	default:
		return nil, ErrPending
	}
}
