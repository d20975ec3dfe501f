// Package client 实现 SMPP v3.4 ESME 客户端。
//
// 每个 Client 拥有一个事件循环 goroutine，组帧缓冲、待应答表、序号和定时器只在其中访问。
// 传输层回调与公开方法都以任务的形式投递到事件循环，结果通过 Future 返回。
package client

import (
	"context"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/aaronwong1989/smppc/codec"
	"github.com/aaronwong1989/smppc/codec/smpp"
	"github.com/aaronwong1989/smppc/comm"
	"github.com/aaronwong1989/smppc/comm/logging"
	"github.com/aaronwong1989/smppc/transport"
)

// Client 单个 SMPP 连接，不支持重连，关闭后需要重新创建
type Client struct {
	dialer  transport.Dialer
	handler EventHandler
	opts    *Options
	log     logging.Logger
	state   int32

	mu      sync.Mutex
	queue   []func()
	stopped bool
	wakeup  chan struct{}
	closed  chan struct{}

	// 以下字段只在事件循环中访问
	session      *Session
	conn         *connHandler
	stream       transport.Stream
	streamClosed bool
	remote       string
	timeout      time.Duration
	cancelDial   context.CancelFunc
	frames       *Reassembler
	pending      *Table
	seq          codec.Sequence32
	connecting   *Future
	deadline     *time.Timer
	sweeper      *time.Ticker
	keepAlive    *time.Ticker
	alive        *Future
}

// SubmitOption 发送前修改 submit_sm
type SubmitOption func(sub *smpp.SubmitSm)

// WithRegisteredDelivery 要求 SMSC 返回状态报告
func WithRegisteredDelivery(v uint8) SubmitOption {
	return func(sub *smpp.SubmitSm) {
		sub.RegisteredDelivery = v
	}
}

func WithServiceType(serviceType string) SubmitOption {
	return func(sub *smpp.SubmitSm) {
		sub.ServiceType = serviceType
	}
}

// NewClient 创建客户端并启动事件循环，handler 为 nil 时忽略全部事件
func NewClient(dialer transport.Dialer, handler EventHandler, opts ...Option) *Client {
	if handler == nil {
		handler = &BuiltinEventHandler{}
	}
	options := loadOptions(opts...)
	c := &Client{
		dialer:  dialer,
		handler: handler,
		opts:    options,
		log:     options.Logger,
		wakeup:  make(chan struct{}, 1),
		closed:  make(chan struct{}),
		pending: NewTable(),
		frames:  NewReassembler(options.MaxFrameLength),
	}
	go c.run()
	return c
}

// Connect 连接并绑定，timeout 覆盖 TCP 连接与绑定应答，0 表示不限时。
// ctx 结束时关闭客户端并返回 ctx.Err()
func (c *Client) Connect(ctx context.Context, session *Session, host string, port int, timeout time.Duration) (*smpp.BindResp, error) {
	f := c.ConnectAsync(session, host, port, timeout)
	if _, err := f.Wait(ctx); err != nil && ctx.Err() != nil {
		if _, rerr := f.Result(); rerr == ErrPending {
			_ = c.Close()
			return nil, ctx.Err()
		}
	}
	pdu, err := f.Result()
	resp, _ := pdu.(*smpp.BindResp)
	return resp, err
}

// ConnectAsync Future 的结果为 *smpp.BindResp
func (c *Client) ConnectAsync(session *Session, host string, port int, timeout time.Duration) *Future {
	f := newFuture()
	address := net.JoinHostPort(host, strconv.Itoa(port))
	c.submit(f, func() { c.connect(session, address, timeout, f) })
	return f
}

// SendMessage 以会话源地址提交一条短信，应答状态非0时同时返回应答和 *CommandStatusError
func (c *Client) SendMessage(ctx context.Context, dest smpp.Address, text string, opts ...SubmitOption) (*smpp.SubmitSmResp, error) {
	pdu, err := c.SendMessageAsync(dest, text, opts...).Wait(ctx)
	resp, _ := pdu.(*smpp.SubmitSmResp)
	return resp, err
}

// SendMessageAsync Future 的结果为 *smpp.SubmitSmResp，被拒绝时可能为 *smpp.GenericNack
func (c *Client) SendMessageAsync(dest smpp.Address, text string, opts ...SubmitOption) *Future {
	f := newFuture()
	c.submit(f, func() {
		if err := c.checkSubmit(); err != nil {
			f.complete(nil, err)
			return
		}
		sub := smpp.NewSubmitSm(0, c.session.address, dest, "")
		if err := sub.SetText(text); err != nil {
			f.complete(nil, err)
			return
		}
		for _, opt := range opts {
			opt(sub)
		}
		sub.SequenceNumber = c.nextSequence()
		c.send(sub, f)
	})
	return f
}

// EnquireLink 主动链路检测
func (c *Client) EnquireLink(ctx context.Context) (*smpp.EnquireLinkResp, error) {
	f := newFuture()
	c.submit(f, func() { c.enquireLink(f) })
	pdu, err := f.Wait(ctx)
	resp, _ := pdu.(*smpp.EnquireLinkResp)
	return resp, err
}

// Unbind 解除绑定，收到应答后关闭连接
func (c *Client) Unbind(ctx context.Context) error {
	f := newFuture()
	c.submit(f, func() {
		if err := c.checkBound(); err != nil {
			f.complete(nil, err)
			return
		}
		c.log.Infof("[%-9s] >>> unbind from %s", "Unbind", c.remote)
		c.send(smpp.NewUnbind(c.nextSequence()), f)
	})
	_, err := f.Wait(ctx)
	return err
}

// Close 立即关闭连接，未完成的请求以 ErrConnectionClosed 失败。
// 不等待连接释放，需要时等待 Done()
func (c *Client) Close() error {
	_ = c.post(func() { c.shutdown(ErrConnectionClosed) })
	return nil
}

func (c *Client) State() State {
	return State(atomic.LoadInt32(&c.state))
}

// Done 事件循环退出后关闭
func (c *Client) Done() <-chan struct{} {
	return c.closed
}

func (c *Client) setState(s State) {
	old := State(atomic.SwapInt32(&c.state, int32(s)))
	if old != s {
		c.log.Debugf("[%-9s] %s: %s -> %s", "State", c.remote, old, s)
	}
}

// post 投递任务到事件循环，循环已退出时返回 ErrConnectionClosed
func (c *Client) post(task func()) error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrConnectionClosed
	}
	c.queue = append(c.queue, task)
	c.mu.Unlock()
	select {
	case c.wakeup <- struct{}{}:
	default:
	}
	return nil
}

// submit 投递失败时直接完成 Future
func (c *Client) submit(f *Future, task func()) {
	if err := c.post(task); err != nil {
		f.complete(nil, err)
	}
}

func (c *Client) takeTasks() []func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	tasks := c.queue
	c.queue = nil
	return tasks
}

func (c *Client) run() {
	defer close(c.closed)
	for c.State() != Closed {
		select {
		case <-c.wakeup:
			for _, task := range c.takeTasks() {
				task()
			}
		case <-timerC(c.deadline):
			c.deadline = nil
			c.onDeadline()
		case now := <-tickerC(c.sweeper):
			c.sweep(now)
		case <-tickerC(c.keepAlive):
			c.keepAliveTick()
		}
	}
	c.stopTimers()

	// 退出后投递的任务不再执行，已入队的任务在关闭状态下完成
	c.mu.Lock()
	c.stopped = true
	rest := c.queue
	c.queue = nil
	c.mu.Unlock()
	for _, task := range rest {
		task()
	}
	c.log.Infof("[%-9s] connection %s closed", "Closed", c.remote)
}

func (c *Client) connect(session *Session, address string, timeout time.Duration, f *Future) {
	switch c.State() {
	case Disconnected:
	case Closing, Closed:
		f.complete(nil, ErrConnectionClosed)
		return
	default:
		f.complete(nil, ErrAlreadyConnected)
		return
	}
	if err := checkSession(session); err != nil {
		f.complete(nil, err)
		return
	}

	c.session = session
	c.connecting = f
	c.remote = address
	c.timeout = timeout
	c.seq = comm.NewCycleSequence(c.opts.InitialSequence)
	c.setState(Connecting)
	if timeout > 0 {
		c.deadline = time.NewTimer(timeout)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelDial = cancel
	h := &connHandler{c: c}
	c.conn = h
	c.log.Infof("[%-9s] >>> %s as %s", "Connect", address, session)
	go func() {
		stream, err := c.dialer.Dial(ctx, address, h)
		if perr := c.post(func() { c.onDialed(h, stream, err) }); perr != nil && stream != nil {
			_ = stream.Close()
		}
	}()
}

func (c *Client) onDialed(h *connHandler, stream transport.Stream, err error) {
	if h != c.conn || c.State() != Connecting {
		if stream != nil {
			_ = stream.Close()
		}
		return
	}
	c.cancelDial()
	c.cancelDial = nil
	if err != nil {
		terr := &TransportError{Err: err}
		c.log.Errorf("[%-9s] >>> %s: %v", "Connect", c.remote, err)
		c.shutdown(terr)
		return
	}
	c.stream = stream
	c.log.Infof("[%-9s] >>> connected to %s", "Connect", stream.RemoteAddr())
	c.bind()
}

func (c *Client) onDeadline() {
	if s := c.State(); s != Connecting && s != BindPending {
		return
	}
	err := errors.Wrapf(ErrConnectTimeout, "%s not bound within %s", c.remote, c.timeout)
	c.log.Errorf("[%-9s] %v", "Connect", err)
	c.shutdown(err)
}

func (c *Client) enquireLink(f *Future) {
	if err := c.checkBound(); err != nil {
		f.complete(nil, err)
		return
	}
	c.send(smpp.NewEnquireLink(c.nextSequence()), f)
}

// keepAliveTick 上一次链路检测在一个周期内未得到应答时判定链路失效
func (c *Client) keepAliveTick() {
	if c.alive != nil {
		_, err := c.alive.Result()
		if err == ErrPending || errors.Is(err, ErrRequestTimeout) {
			err = errors.Wrapf(ErrRequestTimeout, "enquire_link unanswered within %s", c.opts.EnquireLinkInterval)
			c.log.Errorf("[%-9s] %s: %v", "KeepAlive", c.remote, err)
			c.handler.OnError(c, err)
			c.shutdown(err)
			return
		}
	}
	c.alive = newFuture()
	c.enquireLink(c.alive)
}

// send 登记后发送请求
func (c *Client) send(req smpp.Pdu, f *Future) {
	header := req.Header()
	p := &PendingRequest{Sequence: header.SequenceNumber, Request: req, Future: f}
	if c.opts.RequestTimeout > 0 && !smpp.IsBind(header.CommandId) {
		p.Deadline = time.Now().Add(c.opts.RequestTimeout)
	}
	if err := c.pending.Insert(p); err != nil {
		f.complete(nil, err)
		return
	}
	c.write(req)
}

func (c *Client) write(pdu smpp.Pdu) {
	if c.stream == nil || c.streamClosed {
		return
	}
	frame := pdu.Encode()
	c.log.Debugf("[%-9s] >>> %s", "Send", pdu)
	comm.LogHex(c.log, logging.DebugLevel, "Send", frame)
	if err := c.stream.Write(frame); err != nil {
		terr := &TransportError{Err: err}
		c.log.Errorf("[%-9s] >>> %s: %v", "Send", c.remote, err)
		c.handler.OnError(c, terr)
		c.shutdown(terr)
	}
}

// nextSequence 跳过仍在等待应答的序号
func (c *Client) nextSequence() uint32 {
	for {
		seq := uint32(c.seq.NextVal())
		if !c.pending.Contains(seq) {
			return seq
		}
	}
}

func (c *Client) checkBound() error {
	switch c.State() {
	case Bound:
		return nil
	case Closing, Closed:
		return ErrConnectionClosed
	default:
		return ErrNotBound
	}
}

func (c *Client) checkSubmit() error {
	if err := c.checkBound(); err != nil {
		return err
	}
	if !c.session.mode.CanSubmit() {
		return errors.Wrapf(ErrInvalidBindMode, "%s cannot submit_sm", c.session.mode)
	}
	return nil
}

// shutdown 进入 Closing，失败全部待应答请求并关闭传输层，传输层 OnClose 后进入 Closed
func (c *Client) shutdown(cause error) {
	if c.State() >= Closing {
		return
	}
	c.setState(Closing)
	c.stopTimers()
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
	if cause == nil {
		cause = ErrConnectionClosed
	}
	for _, p := range c.pending.Drain() {
		p.Future.complete(nil, cause)
	}
	if c.connecting != nil {
		c.connecting.complete(nil, cause)
	}
	if c.stream == nil || c.streamClosed {
		c.setState(Closed)
		return
	}
	if err := c.stream.Close(); err != nil {
		c.log.Warnf("[%-9s] %s: %v", "Close", c.remote, err)
	}
}

func (c *Client) startTimers() {
	if c.opts.RequestTimeout > 0 {
		c.sweeper = time.NewTicker(sweepInterval(c.opts.RequestTimeout))
	}
	if c.opts.EnquireLinkInterval > 0 {
		c.keepAlive = time.NewTicker(c.opts.EnquireLinkInterval)
	}
}

// stopDeadline 停止后不再读取定时器通道
func (c *Client) stopDeadline() {
	if c.deadline != nil {
		c.deadline.Stop()
		c.deadline = nil
	}
}

func (c *Client) stopTimers() {
	c.stopDeadline()
	if c.sweeper != nil {
		c.sweeper.Stop()
		c.sweeper = nil
	}
	if c.keepAlive != nil {
		c.keepAlive.Stop()
		c.keepAlive = nil
	}
	c.alive = nil
}

func sweepInterval(timeout time.Duration) time.Duration {
	d := timeout / 4
	if d < 10*time.Millisecond {
		d = 10 * time.Millisecond
	}
	if d > time.Second {
		d = time.Second
	}
	return d
}

func timerC(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

func tickerC(t *time.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

// connHandler 把传输层回调投递到事件循环，只处理当前连接的回调
type connHandler struct {
	c *Client
}

func (h *connHandler) OnData(data []byte) {
	_ = h.c.post(func() {
		if h == h.c.conn {
			h.c.onData(data)
		}
	})
}

func (h *connHandler) OnEnd() {
	_ = h.c.post(func() {
		if h != h.c.conn || h.c.State() >= Closing {
			return
		}
		h.c.log.Warnf("[%-9s] <<< %s closed by peer", "OnEnd", h.c.remote)
		h.c.handler.OnEnd(h.c)
		h.c.shutdown(ErrConnectionClosed)
	})
}

func (h *connHandler) OnError(err error) {
	_ = h.c.post(func() {
		if h != h.c.conn || h.c.State() >= Closing {
			return
		}
		terr := &TransportError{Err: err}
		h.c.log.Errorf("[%-9s] <<< %s: %v", "OnError", h.c.remote, err)
		h.c.handler.OnError(h.c, terr)
		h.c.shutdown(terr)
	})
}

func (h *connHandler) OnClose() {
	_ = h.c.post(func() {
		if h != h.c.conn || h.c.streamClosed {
			return
		}
		h.c.streamClosed = true
		h.c.handler.OnClose(h.c)
		h.c.shutdown(ErrConnectionClosed)
		h.c.setState(Closed)
	})
}
