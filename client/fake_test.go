package client

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/aaronwong1989/smppc/codec/smpp"
	"github.com/aaronwong1989/smppc/comm/logging"
	"github.com/aaronwong1989/smppc/transport"
)

const waitTimeout = 2 * time.Second

// fakeDialer 内存传输，block 为 true 时连接一直挂起直到 ctx 结束
type fakeDialer struct {
	block   bool
	dialErr error
	streams chan *fakeStream
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{streams: make(chan *fakeStream, 1)}
}

func (d *fakeDialer) Dial(ctx context.Context, _ string, h transport.Handler) (transport.Stream, error) {
	if d.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	s := &fakeStream{h: h, writes: make(chan smpp.Pdu, 64)}
	d.streams <- s
	return s, nil
}

func (d *fakeDialer) wait(t *testing.T) *fakeStream {
	t.Helper()
	select {
	case s := <-d.streams:
		return s
	case <-time.After(waitTimeout):
		t.Fatal("dial not called")
		return nil
	}
}

// fakeStream 写出的报文解码后放入 writes，peer 侧通过 h 注入事件
type fakeStream struct {
	h      transport.Handler
	writes chan smpp.Pdu
	mu     sync.Mutex
	closed bool
}

func (s *fakeStream) Write(frame []byte) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return errors.New("write on closed stream")
	}
	pdu, err := smpp.Decode(frame)
	if err != nil {
		return err
	}
	s.writes <- pdu
	return nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	already := s.closed
	s.closed = true
	s.mu.Unlock()
	if !already {
		s.h.OnClose()
	}
	return nil
}

func (s *fakeStream) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: DefaultPort}
}

// send 对端发送报文，多个报文合并为一次写入
func (s *fakeStream) send(pdus ...smpp.Pdu) {
	var buf []byte
	for _, p := range pdus {
		buf = append(buf, p.Encode()...)
	}
	s.h.OnData(buf)
}

// peerClose 对端正常关闭
func (s *fakeStream) peerClose() {
	s.h.OnEnd()
	_ = s.Close()
}

func (s *fakeStream) next(t *testing.T) smpp.Pdu {
	t.Helper()
	select {
	case p := <-s.writes:
		return p
	case <-time.After(waitTimeout):
		t.Fatal("nothing written")
		return nil
	}
}

func (s *fakeStream) assertSilent(t *testing.T) {
	t.Helper()
	select {
	case p := <-s.writes:
		t.Fatalf("unexpected write %s", p)
	case <-time.After(50 * time.Millisecond):
	}
}

// recorder 记录事件，hook 在请求类回调中调用
type recorder struct {
	BuiltinEventHandler
	errs     chan error
	ends     chan struct{}
	closes   chan struct{}
	enquires chan *smpp.EnquireLink
	delivers chan *smpp.DeliverSm
	unbinds  chan *smpp.Unbind
	hook     func(pdu smpp.Pdu)
}

func newRecorder() *recorder {
	return &recorder{
		errs:     make(chan error, 16),
		ends:     make(chan struct{}, 16),
		closes:   make(chan struct{}, 16),
		enquires: make(chan *smpp.EnquireLink, 16),
		delivers: make(chan *smpp.DeliverSm, 16),
		unbinds:  make(chan *smpp.Unbind, 16),
	}
}

func (r *recorder) OnEnd(_ *Client) {
	r.ends <- struct{}{}
}

func (r *recorder) OnClose(_ *Client) {
	r.closes <- struct{}{}
}

func (r *recorder) OnError(_ *Client, err error) {
	r.errs <- err
}

func (r *recorder) OnEnquireLink(_ *Client, pdu *smpp.EnquireLink) {
	if r.hook != nil {
		r.hook(pdu)
	}
	r.enquires <- pdu
}

func (r *recorder) OnDeliverSm(_ *Client, pdu *smpp.DeliverSm) {
	if r.hook != nil {
		r.hook(pdu)
	}
	r.delivers <- pdu
}

func (r *recorder) OnUnbind(_ *Client, pdu *smpp.Unbind) {
	if r.hook != nil {
		r.hook(pdu)
	}
	r.unbinds <- pdu
}

func (r *recorder) nextErr(t *testing.T) error {
	t.Helper()
	select {
	case err := <-r.errs:
		return err
	case <-time.After(waitTimeout):
		t.Fatal("no error reported")
		return nil
	}
}

func (r *recorder) assertNoErr(t *testing.T) {
	t.Helper()
	select {
	case err := <-r.errs:
		t.Fatalf("unexpected error %v", err)
	case <-time.After(50 * time.Millisecond):
	}
}

func waitSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(waitTimeout):
		t.Fatalf("%s not signalled", what)
	}
}

func waitCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	t.Cleanup(cancel)
	return ctx
}

func newTestClient(t *testing.T, d transport.Dialer, h EventHandler, opts ...Option) *Client {
	c := NewClient(d, h, append([]Option{WithLogger(logging.Nop())}, opts...)...)
	t.Cleanup(func() {
		_ = c.Close()
		select {
		case <-c.Done():
		case <-time.After(waitTimeout):
			t.Error("client did not stop")
		}
	})
	return c
}

// bound 建立已绑定的连接
func bound(t *testing.T, mode BindMode, h EventHandler, opts ...Option) (*Client, *fakeStream) {
	t.Helper()
	d := newFakeDialer()
	c := newTestClient(t, d, h, opts...)
	f := c.ConnectAsync(NewSession(mode, "SYS", WithPassword("secret")), "127.0.0.1", DefaultPort, 5*time.Second)
	s := d.wait(t)
	bind, ok := s.next(t).(*smpp.Bind)
	require.True(t, ok)
	s.send(bind.ToResponse(smpp.ESME_ROK))
	_, err := f.Wait(waitCtx(t))
	require.NoError(t, err)
	require.Equal(t, Bound, c.State())
	return c, s
}
