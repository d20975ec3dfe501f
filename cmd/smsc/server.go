package main

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/panjf2000/gnet/v2"
	"github.com/panjf2000/gnet/v2/pkg/pool/goroutine"
	"github.com/pkg/errors"

	"github.com/aaronwong1989/smppc/client"
	"github.com/aaronwong1989/smppc/codec/smpp"
	"github.com/aaronwong1989/smppc/comm"
	"github.com/aaronwong1989/smppc/comm/logging"
	"github.com/aaronwong1989/smppc/config"
	"github.com/aaronwong1989/smppc/snowflake32"
)

// Server SMSC 模拟网关
type Server struct {
	gnet.BuiltinEventEngine
	engine    gnet.Engine
	protocol  string
	address   string
	multicore bool
	conf      *config.Simulator
	pool      *goroutine.Pool
	conMap    sync.Map
	window    chan struct{}
	ids       *snowflake32.Snowflake
	seq       *comm.CycleSequence
}

// session 单个连接的状态，组帧只在 gnet 事件循环中进行
type session struct {
	frames *client.Reassembler
	mode   int32 // 0 表示未绑定
}

func (ss *session) boundMode() client.BindMode {
	return client.BindMode(atomic.LoadInt32(&ss.mode))
}

func NewServer(conf *config.Simulator, ids *snowflake32.Snowflake) (*Server, error) {
	// 定义异步工作Go程池
	options := ants.Options{
		ExpiryDuration:   time.Minute,      // 1 分钟内不被使用的worker会被清除
		Nonblocking:      false,            // 如果为true,worker池满了后提交任务会直接返回nil
		MaxBlockingTasks: conf.MaxPoolSize, // blocking模式有效，否则worker池满了后提交任务会直接返回nil
		PreAlloc:         false,
		PanicHandler: func(e interface{}) {
			log.Errorf("%v", e)
		},
	}
	pool, err := ants.NewPool(conf.MaxPoolSize, ants.WithOptions(options))
	if err != nil {
		return nil, errors.Wrap(err, "create worker pool")
	}
	window := conf.ReceiveWindowSize
	if window <= 0 {
		window = 1
	}
	return &Server{
		protocol:  "tcp",
		address:   fmt.Sprintf(":%d", conf.Port),
		multicore: conf.Multicore,
		conf:      conf,
		pool:      pool,
		window:    make(chan struct{}, window), // 用通道控制消息接收窗口
		ids:       ids,
		seq:       comm.NewCycleSequence(1),
	}, nil
}

func (s *Server) Run() error {
	return gnet.Run(s, s.protoAddr(),
		gnet.WithMulticore(s.multicore),
		gnet.WithTicker(true),
		gnet.WithLogger(log))
}

func (s *Server) protoAddr() string {
	return s.protocol + "://" + s.address
}

func (s *Server) OnBoot(eng gnet.Engine) (action gnet.Action) {
	log.Infof("[%-9s] running server on %s with multi-core=%t", "OnBoot", s.protoAddr(), s.multicore)
	s.engine = eng
	return
}

func (s *Server) OnShutdown(eng gnet.Engine) {
	log.Warnf("[%-9s] shutdown server %s, active connections is %d", "OnShutdown", s.protoAddr(), eng.CountConnections())
}

func (s *Server) OnOpen(c gnet.Conn) (out []byte, action gnet.Action) {
	if s.conf.MaxCons > 0 && s.countConn() >= s.conf.MaxCons {
		log.Warnf("[%-9s] [%v<->%v] FLOW CONTROL：connections threshold reached, closing new connection...", "OnOpen", c.RemoteAddr(), c.LocalAddr())
		return nil, gnet.Close
	} else if len(s.window) == cap(s.window) {
		log.Warnf("[%-9s] [%v<->%v] FLOW CONTROL：receive window threshold reached, closing new connection...", "OnOpen", c.RemoteAddr(), c.LocalAddr())
		// 已达到窗口时，拒绝新的连接
		return nil, gnet.Close
	}
	c.SetContext(&session{frames: client.NewReassembler(client.DefaultMaxFrameLength)})
	log.Infof("[%-9s] [%v<->%v] activeCons=%d.", "OnOpen", c.RemoteAddr(), c.LocalAddr(), s.activeCons())
	return
}

func (s *Server) OnClose(c gnet.Conn, e error) (action gnet.Action) {
	log.Warnf("[%-9s] [%v<->%v] activeCons=%d, reason=%v.", "OnClose", c.RemoteAddr(), c.LocalAddr(), s.activeCons(), e)
	s.conMap.Delete(c.RemoteAddr().String())
	return
}

func (s *Server) OnTraffic(c gnet.Conn) (action gnet.Action) {
	ss, ok := c.Context().(*session)
	if !ok {
		return gnet.Close
	}
	bts, err := c.Next(c.InboundBuffered())
	if err != nil {
		return gnet.Close
	}
	ss.frames.Write(bts)
	for {
		frame, err := ss.frames.Next()
		if err != nil {
			// 长度不合法，无法继续组帧，关闭连接
			log.Warnf("[%-9s] [%v<->%v] %v, close session...", "OnTraffic", c.RemoteAddr(), c.LocalAddr(), err)
			return gnet.Close
		}
		if frame == nil {
			return gnet.None
		}
		comm.LogHex(log, logging.DebugLevel, "Frame", frame)
		if action = s.handle(c, ss, frame); action != gnet.None {
			return action
		}
	}
}

func (s *Server) handle(c gnet.Conn, ss *session, frame []byte) gnet.Action {
	pdu, err := smpp.Decode(frame)
	if errors.Is(err, smpp.ErrUnknownPdu) {
		header := &smpp.MessageHeader{}
		_ = header.Decode(frame)
		log.Warnf("[%-9s] <<< unknown %s", "OnTraffic", header)
		s.reply(c, smpp.NewGenericNack(header.SequenceNumber, smpp.ESME_RINVCMDID))
		return gnet.None
	}
	if err != nil {
		log.Errorf("[%-9s] decode error: %v", "OnTraffic", err)
		return gnet.Close
	}

	switch p := pdu.(type) {
	case *smpp.Bind:
		return s.handleBind(c, ss, p)
	case *smpp.SubmitSm:
		return s.handleSubmit(c, ss, p)
	case *smpp.EnquireLink:
		log.Infof("[%-9s] <<< %s", "OnTraffic", p)
		s.reply(c, p.ToResponse(smpp.ESME_ROK))
	case *smpp.Unbind:
		return s.handleUnbind(c, p)
	case *smpp.UnbindResp:
		log.Infof("[%-9s] <<< %s", "OnTraffic", p)
		s.conMap.Delete(c.RemoteAddr().String())
		return gnet.Close
	case *smpp.DeliverSmResp, *smpp.EnquireLinkResp, *smpp.GenericNack:
		log.Debugf("[%-9s] <<< %s", "OnTraffic", pdu)
	default:
		// ESME 不应发送的命令
		log.Warnf("[%-9s] <<< unexpected %s", "OnTraffic", pdu)
		s.reply(c, smpp.NewGenericNack(pdu.Header().SequenceNumber, smpp.ESME_RINVCMDID))
	}
	return gnet.None
}

func (s *Server) OnTick() (delay time.Duration, action gnet.Action) {
	log.Infof("[%-9s] %d active connections.", "OnTick", s.activeCons())
	s.conMap.Range(func(key, value interface{}) bool {
		addr := key.(string)
		con, ok := value.(gnet.Conn)
		if ok {
			_ = s.pool.Submit(func() {
				at := smpp.NewEnquireLink(s.nextSequence())
				err := con.AsyncWrite(at.Encode(), nil)
				if err == nil {
					log.Infof("[%-9s] >>> %s to %s", "OnTick", at, addr)
				} else {
					log.Errorf("[%-9s] >>> ENQUIRE_LINK to %s, error: %v", "OnTick", addr, err)
				}
			})
		}
		return true
	})
	delay = s.conf.ActiveTestDuration
	if delay <= 0 {
		delay = time.Minute
	}
	return delay, gnet.None
}

func (s *Server) countConn() int {
	counter := 0
	s.conMap.Range(func(key, value interface{}) bool {
		counter++
		return true
	})
	return counter
}

func (s *Server) activeCons() int {
	return s.engine.CountConnections()
}

func (s *Server) nextSequence() uint32 {
	return uint32(s.seq.NextVal())
}

// reply 异步发送应答
func (s *Server) reply(c gnet.Conn, resp smpp.Pdu) {
	err := c.AsyncWrite(resp.Encode(), func(c gnet.Conn) error {
		log.Debugf("[%-9s] >>> %s", "OnTraffic", resp)
		return nil
	})
	if err != nil {
		log.Errorf("[%-9s] %s ERROR: %v", "OnTraffic", smpp.CommandName(resp.Header().CommandId), err)
	}
}

func (s *Server) authStatus(bind *smpp.Bind) uint32 {
	if !s.conf.AuthCheck {
		return smpp.ESME_ROK
	}
	if bind.SystemId != s.conf.SystemId {
		return smpp.ESME_RINVSYSID
	}
	if bind.Password != s.conf.Password {
		return smpp.ESME_RINVPASWD
	}
	return smpp.ESME_ROK
}

func bindMode(commandId uint32) client.BindMode {
	switch commandId {
	case smpp.BIND_TRANSMITTER:
		return client.Transmitter
	case smpp.BIND_RECEIVER:
		return client.Receiver
	default:
		return client.Transceiver
	}
}

func (s *Server) handleBind(c gnet.Conn, ss *session, bind *smpp.Bind) gnet.Action {
	log.Infof("[%-9s] <<< %s", "OnTraffic", bind)
	status := s.authStatus(bind)
	if ss.boundMode() != 0 {
		status = smpp.ESME_RALYBND
	}
	resp := bind.ToResponse(status).(*smpp.BindResp)
	if status == smpp.ESME_ROK {
		resp.SystemId = s.conf.SystemId
		resp.Tlvs = []smpp.TLV{{Tag: smpp.TAG_SC_INTERFACE_VERSION, Value: []byte{smpp.SMPP_V34}}}
		atomic.StoreInt32(&ss.mode, int32(bindMode(bind.CommandId)))
	} else {
		log.Errorf("[%-9s] BIND ERROR: status=(%d,%s)", "OnTraffic", status, smpp.StatusText(status))
	}

	// send bind_resp async
	_ = s.pool.Submit(func() {
		err := c.AsyncWrite(resp.Encode(), func(c gnet.Conn) error {
			log.Infof("[%-9s] >>> %s", "OnTraffic", resp)
			if status == smpp.ESME_ROK {
				s.conMap.Store(c.RemoteAddr().String(), c)
			} else if ss.boundMode() == 0 {
				// 客户端登录失败，关闭连接
				_ = c.Close()
			}
			return nil
		})
		if err != nil {
			log.Errorf("[%-9s] BIND_RESP ERROR: %v", "OnTraffic", err)
		}
	})
	return gnet.None
}

func (s *Server) handleUnbind(c gnet.Conn, ub *smpp.Unbind) gnet.Action {
	log.Infof("[%-9s] <<< %s", "OnTraffic", ub)
	resp := ub.ToResponse(smpp.ESME_ROK)
	_ = s.pool.Submit(func() {
		err := c.AsyncWrite(resp.Encode(), func(c gnet.Conn) error {
			log.Infof("[%-9s] >>> %s", "OnTraffic", resp)
			s.conMap.Delete(c.RemoteAddr().String())
			_ = c.Close()
			return nil
		})
		if err != nil {
			log.Errorf("[%-9s] UNBIND_RESP ERROR: %v", "OnTraffic", err)
		}
	})
	return gnet.None
}

func (s *Server) handleSubmit(c gnet.Conn, ss *session, sub *smpp.SubmitSm) gnet.Action {
	log.Debugf("[%-9s] <<< %s", "OnTraffic", sub)
	if mode := ss.boundMode(); !mode.CanSubmit() {
		log.Warnf("[%-9s] submit_sm on %s session: %s", "OnTraffic", mode, c.RemoteAddr())
		s.reply(c, sub.ToResponse(smpp.ESME_RINVBNDSTS))
		return gnet.None
	}
	if len(s.window) == cap(s.window) {
		log.Warnf("[%-9s] FLOW CONTROL：receive window threshold reached.", "OnTraffic")
		s.reply(c, sub.ToResponse(smpp.ESME_RTHROTTLED))
		return gnet.None
	}
	// handle message async
	_ = s.pool.Submit(s.mtAsyncHandler(c, ss, sub))
	return gnet.None
}

func (s *Server) mtAsyncHandler(c gnet.Conn, ss *session, sub *smpp.SubmitSm) func() {
	return func() {
		// 采用通道控制消息收发速度,向通道发送信号
		s.window <- struct{}{}
		defer func() {
			<-s.window
		}()

		// 模拟消息处理耗时，可配置
		if s.conf.MaxSubmitRespMs > 0 {
			processTime := time.Duration(comm.RandNum(s.conf.MinSubmitRespMs, s.conf.MaxSubmitRespMs))
			time.Sleep(processTime * time.Millisecond)
		}

		status := smpp.ESME_ROK
		if comm.DiceCheck(float64(s.conf.SuccessRate) / 100) {
			// 失败消息的返回码
			status = smpp.ESME_RSUBMITFAIL
		}
		resp := sub.ToResponse(status).(*smpp.SubmitSmResp)
		if status == smpp.ESME_ROK {
			resp.MessageId = s.ids.MessageId()
		}
		s.reply(c, resp)

		// 发送状态报告
		if status == smpp.ESME_ROK && sub.RegisteredDelivery&0x01 == 0x01 {
			_ = s.pool.Submit(s.reportAsyncSender(c, ss, sub, resp.MessageId))
		}
	}
}

func (s *Server) reportAsyncSender(c gnet.Conn, ss *session, sub *smpp.SubmitSm, msgId string) func() {
	return func() {
		if ss.boundMode() == client.Transmitter {
			log.Debugf("[%-9s] skip report %s on transmitter session", "Report", msgId)
			return
		}
		if s.conf.FixReportRespMs > 0 {
			time.Sleep(time.Duration(s.conf.FixReportRespMs) * time.Millisecond)
		}
		rpt := smpp.NewDeliveryReceipt(s.nextSequence(), sub, msgId, smpp.STATE_DELIVERED, "DELIVRD")
		err := c.AsyncWrite(rpt.Encode(), func(c gnet.Conn) error {
			log.Debugf("[%-9s] >>> %s", "Report", rpt)
			return nil
		})
		if err != nil {
			log.Errorf("[%-9s] DELIVER_SM ERROR: %v", "Report", err)
		}
	}
}
