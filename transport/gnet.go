package transport

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/panjf2000/gnet/v2"
	"github.com/pkg/errors"

	"github.com/aaronwong1989/smppc/comm/logging"
)

// GnetDialer 基于 gnet 客户端的 Dialer，每个连接使用独立的 gnet.Client
type GnetDialer struct {
	logger    logging.Logger
	keepAlive time.Duration
}

type GnetOption func(d *GnetDialer)

// WithGnetLogger 设置 gnet 内部日志
func WithGnetLogger(logger logging.Logger) GnetOption {
	return func(d *GnetDialer) {
		d.logger = logger
	}
}

// WithKeepAlive 设置 TCP keepalive 周期，0 表示不启用
func WithKeepAlive(keepAlive time.Duration) GnetOption {
	return func(d *GnetDialer) {
		d.keepAlive = keepAlive
	}
}

func NewGnetDialer(opts ...GnetOption) *GnetDialer {
	d := &GnetDialer{logger: logging.GetDefaultLogger()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *GnetDialer) Dial(ctx context.Context, address string, h Handler) (Stream, error) {
	s := &gnetStream{handler: h}
	options := []gnet.Option{gnet.WithLogger(d.logger)}
	if d.keepAlive > 0 {
		options = append(options, gnet.WithTCPKeepAlive(d.keepAlive))
	}
	cli, err := gnet.NewClient(s, options...)
	if err != nil {
		return nil, errors.Wrap(err, "create gnet client")
	}
	if err = cli.Start(); err != nil {
		return nil, errors.Wrap(err, "start gnet client")
	}
	s.cli = cli

	type dialed struct {
		conn gnet.Conn
		err  error
	}
	ch := make(chan dialed, 1)
	go func() {
		conn, err := cli.Dial("tcp", address)
		ch <- dialed{conn, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			_ = cli.Stop()
			return nil, r.err
		}
		s.conn = r.conn
		return s, nil
	case <-ctx.Done():
		// 放弃的连接不再向上层回调
		atomic.StoreInt32(&s.abandoned, 1)
		go func() {
			if r := <-ch; r.err == nil {
				_ = r.conn.Close()
				return
			}
			_ = cli.Stop()
		}()
		return nil, ctx.Err()
	}
}

// gnetStream 同时作为 gnet 的事件处理器
type gnetStream struct {
	gnet.BuiltinEventEngine
	handler   Handler
	cli       *gnet.Client
	conn      gnet.Conn
	once      sync.Once
	local     int32
	abandoned int32
}

func (s *gnetStream) OnTraffic(c gnet.Conn) gnet.Action {
	n := c.InboundBuffered()
	if n == 0 {
		return gnet.None
	}
	bts, err := c.Next(n)
	if err != nil {
		return gnet.Close
	}
	if atomic.LoadInt32(&s.abandoned) == 0 {
		data := make([]byte, len(bts))
		copy(data, bts)
		s.handler.OnData(data)
	}
	return gnet.None
}

func (s *gnetStream) OnClose(_ gnet.Conn, err error) gnet.Action {
	s.finish(err)
	return gnet.None
}

func (s *gnetStream) finish(err error) {
	s.once.Do(func() {
		if atomic.LoadInt32(&s.abandoned) == 0 {
			switch {
			case atomic.LoadInt32(&s.local) == 1:
			case err == nil || peerClosed(err):
				s.handler.OnEnd()
			default:
				s.handler.OnError(err)
			}
			s.handler.OnClose()
		}
		// OnClose 运行在 gnet 事件循环中，不能同步等待其退出
		go func() { _ = s.cli.Stop() }()
	})
}

// peerClosed gnet 把读到 EOF 报告为 ECONNRESET
func peerClosed(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, syscall.ECONNRESET)
}

func (s *gnetStream) Write(frame []byte) error {
	return s.conn.AsyncWrite(frame, nil)
}

func (s *gnetStream) Close() error {
	atomic.StoreInt32(&s.local, 1)
	if err := s.conn.Close(); err != nil {
		s.finish(nil)
		return err
	}
	return nil
}

func (s *gnetStream) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}
