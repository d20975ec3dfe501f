package client

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronwong1989/smppc/codec/smpp"
	"github.com/aaronwong1989/smppc/comm"
)

var dest = smpp.NewAddress(smpp.TON_INTERNATIONAL, smpp.NPI_ISDN, "8613800001111")

func TestClient_Connect(t *testing.T) {
	d := newFakeDialer()
	c := newTestClient(t, d, nil)
	assert.Equal(t, Disconnected, c.State())

	type result struct {
		resp *smpp.BindResp
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := c.Connect(context.Background(), NewSession(Transceiver, "SYS"), "127.0.0.1", DefaultPort, 5*time.Second)
		done <- result{resp, err}
	}()

	s := d.wait(t)
	bind := s.next(t).(*smpp.Bind)
	assert.Equal(t, smpp.BIND_TRANSCEIVER, bind.CommandId)
	assert.Equal(t, uint32(1), bind.SequenceNumber)
	assert.Equal(t, "SYS", bind.SystemId)
	assert.Equal(t, smpp.SMPP_V34, bind.InterfaceVersion)
	assert.Equal(t, BindPending, c.State())

	resp := bind.ToResponse(smpp.ESME_ROK).(*smpp.BindResp)
	resp.SystemId = "SMSC"
	s.send(resp)

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, "SMSC", r.resp.SystemId)
		assert.Equal(t, uint32(1), r.resp.SequenceNumber)
	case <-time.After(waitTimeout):
		t.Fatal("connect did not complete")
	}
	assert.Equal(t, Bound, c.State())
}

func TestClient_BindModes(t *testing.T) {
	cases := map[BindMode]uint32{
		Transmitter: smpp.BIND_TRANSMITTER,
		Receiver:    smpp.BIND_RECEIVER,
		Transceiver: smpp.BIND_TRANSCEIVER,
	}
	for mode, id := range cases {
		d := newFakeDialer()
		c := newTestClient(t, d, nil)
		addr := smpp.NewAddress(smpp.TON_ALPHANUMERIC, smpp.NPI_UNKNOWN, "10086")
		c.ConnectAsync(NewSession(mode, "SYS", WithPassword("pw"), WithSystemType("VMA"), WithAddress(addr)), "localhost", DefaultPort, 0)
		bind := d.wait(t).next(t).(*smpp.Bind)
		assert.Equal(t, id, bind.CommandId, mode.String())
		assert.Equal(t, "pw", bind.Password)
		assert.Equal(t, "VMA", bind.SystemType)
		assert.Equal(t, smpp.TON_ALPHANUMERIC, bind.AddrTon)
		assert.Equal(t, "10086", bind.AddressRange)
	}
}

func TestClient_SendMessage(t *testing.T) {
	c, s := bound(t, Transceiver, nil)

	f := c.SendMessageAsync(dest, "hello", WithRegisteredDelivery(1))
	sub := s.next(t).(*smpp.SubmitSm)
	assert.Equal(t, uint32(2), sub.SequenceNumber)
	assert.Equal(t, dest, sub.Dest)
	assert.Equal(t, "hello", sub.Text())
	assert.Equal(t, uint8(1), sub.RegisteredDelivery)

	resp := sub.ToResponse(smpp.ESME_ROK).(*smpp.SubmitSmResp)
	resp.MessageId = "msg-2"
	s.send(resp)

	pdu, err := f.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, "msg-2", pdu.(*smpp.SubmitSmResp).MessageId)

	// 同步接口
	go func() {
		sub := s.next(t).(*smpp.SubmitSm)
		resp := sub.ToResponse(smpp.ESME_ROK).(*smpp.SubmitSmResp)
		resp.MessageId = "msg-3"
		s.send(resp)
	}()
	got, err := c.SendMessage(waitCtx(t), dest, "world")
	require.NoError(t, err)
	assert.Equal(t, "msg-3", got.MessageId)
	assert.Equal(t, uint32(3), got.SequenceNumber)
}

func TestClient_CorrelationOutOfOrder(t *testing.T) {
	c, s := bound(t, Transmitter, nil)

	futures := make(map[uint32]*Future)
	var subs []*smpp.SubmitSm
	for i := 0; i < 10; i++ {
		f := c.SendMessageAsync(dest, fmt.Sprintf("msg %d", i))
		sub := s.next(t).(*smpp.SubmitSm)
		_, dup := futures[sub.SequenceNumber]
		require.False(t, dup, "sequence %d reused", sub.SequenceNumber)
		futures[sub.SequenceNumber] = f
		subs = append(subs, sub)
	}

	for i := len(subs) - 1; i >= 0; i-- {
		resp := subs[i].ToResponse(smpp.ESME_ROK).(*smpp.SubmitSmResp)
		resp.MessageId = fmt.Sprintf("id-%d", subs[i].SequenceNumber)
		s.send(resp)
	}
	for seq, f := range futures {
		pdu, err := f.Wait(waitCtx(t))
		require.NoError(t, err)
		assert.Equal(t, seq, pdu.Header().SequenceNumber)
		assert.Equal(t, fmt.Sprintf("id-%d", seq), pdu.(*smpp.SubmitSmResp).MessageId)
	}
}

func TestClient_GenericNack(t *testing.T) {
	c, s := bound(t, Transceiver, nil)
	f := c.SendMessageAsync(dest, "hello")
	sub := s.next(t)
	s.send(smpp.NewGenericNack(sub.Header().SequenceNumber, smpp.ESME_RTHROTTLED))

	pdu, err := f.Wait(waitCtx(t))
	assert.IsType(t, &smpp.GenericNack{}, pdu)
	var statusErr *CommandStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, smpp.ESME_RTHROTTLED, statusErr.Status)
	assert.Equal(t, smpp.SUBMIT_SM, statusErr.Request)
	assert.False(t, errors.Is(err, ErrBindRejected))

	// 失败的 submit_sm_resp
	go func() {
		sub := s.next(t).(*smpp.SubmitSm)
		s.send(sub.ToResponse(smpp.ESME_RSUBMITFAIL))
	}()
	resp, err := c.SendMessage(waitCtx(t), dest, "again")
	require.Error(t, err)
	assert.NotNil(t, resp)
	assert.Equal(t, smpp.ESME_RSUBMITFAIL, resp.CommandStatus)
	assert.Equal(t, Bound, c.State())
}

func TestClient_EnquireLinkFromPeer(t *testing.T) {
	rec := newRecorder()
	_, s := bound(t, Transceiver, rec)
	// 回调时应答尚未发送
	queued := make(chan int, 1)
	rec.hook = func(_ smpp.Pdu) { queued <- len(s.writes) }

	s.send(smpp.NewEnquireLink(5))

	select {
	case pdu := <-rec.enquires:
		assert.Equal(t, uint32(5), pdu.SequenceNumber)
	case <-time.After(waitTimeout):
		t.Fatal("enquire_link event not fired")
	}
	assert.Equal(t, 0, <-queued)

	resp := s.next(t)
	assert.IsType(t, &smpp.EnquireLinkResp{}, resp)
	assert.Equal(t, uint32(5), resp.Header().SequenceNumber)
	s.assertSilent(t)
}

func TestClient_DeliverSm(t *testing.T) {
	rec := newRecorder()
	_, s := bound(t, Receiver, rec)

	src := smpp.NewAddress(smpp.TON_INTERNATIONAL, smpp.NPI_ISDN, "8613900002222")
	dly := smpp.NewDeliverSm(77, src, dest, "你好")
	s.send(dly)

	select {
	case got := <-rec.delivers:
		assert.Equal(t, "你好", got.Text())
		assert.Equal(t, uint32(77), got.SequenceNumber)
	case <-time.After(waitTimeout):
		t.Fatal("deliver_sm event not fired")
	}
	resp := s.next(t).(*smpp.DeliverSmResp)
	assert.Equal(t, uint32(77), resp.SequenceNumber)
	assert.Equal(t, "", resp.MessageId)
	s.assertSilent(t)
}

func TestClient_UnbindFromPeer(t *testing.T) {
	rec := newRecorder()
	c, s := bound(t, Transceiver, rec)
	pending := c.SendMessageAsync(dest, "never answered")
	s.next(t)

	s.send(smpp.NewUnbind(9))
	select {
	case pdu := <-rec.unbinds:
		assert.Equal(t, uint32(9), pdu.SequenceNumber)
	case <-time.After(waitTimeout):
		t.Fatal("unbind event not fired")
	}
	resp := s.next(t)
	assert.IsType(t, &smpp.UnbindResp{}, resp)
	assert.Equal(t, uint32(9), resp.Header().SequenceNumber)

	waitSignal(t, rec.closes, "close")
	waitSignal(t, c.Done(), "done")
	assert.Equal(t, Closed, c.State())
	_, err := pending.Wait(waitCtx(t))
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestClient_Unbind(t *testing.T) {
	rec := newRecorder()
	c, s := bound(t, Transceiver, rec)

	go func() {
		ub := s.next(t).(*smpp.Unbind)
		s.send(ub.ToResponse(smpp.ESME_ROK))
	}()
	require.NoError(t, c.Unbind(waitCtx(t)))
	waitSignal(t, c.Done(), "done")
	waitSignal(t, rec.closes, "close")
	assert.Equal(t, Closed, c.State())

	_, err := c.SendMessage(waitCtx(t), dest, "late")
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestClient_EnquireLink(t *testing.T) {
	c, s := bound(t, Transmitter, nil)
	go func() {
		at := s.next(t).(*smpp.EnquireLink)
		s.send(at.ToResponse(smpp.ESME_ROK))
	}()
	resp, err := c.EnquireLink(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, uint32(2), resp.SequenceNumber)
}

func TestClient_UnsolicitedResponse(t *testing.T) {
	rec := newRecorder()
	c, s := bound(t, Transceiver, rec)

	resp := &smpp.SubmitSmResp{MessageHeader: &smpp.MessageHeader{CommandId: smpp.SUBMIT_SM_RESP, SequenceNumber: 99}}
	s.send(resp)
	assert.ErrorIs(t, rec.nextErr(t), ErrUnsolicitedResponse)
	assert.Equal(t, Bound, c.State())

	// 连接继续可用
	f := c.SendMessageAsync(dest, "still alive")
	sub := s.next(t)
	s.send(sub.(*smpp.SubmitSm).ToResponse(smpp.ESME_ROK))
	_, err := f.Wait(waitCtx(t))
	assert.NoError(t, err)
}

func TestClient_UnknownRequest(t *testing.T) {
	rec := newRecorder()
	c, s := bound(t, Transceiver, rec)

	// SMSC 不应发送 submit_sm，不自动应答
	s.send(smpp.NewSubmitSm(40, dest, dest, "odd"))
	assert.ErrorIs(t, rec.nextErr(t), ErrUnknownPdu)
	s.assertSilent(t)
	assert.Equal(t, Bound, c.State())
}

func TestClient_RequestClassification(t *testing.T) {
	rec := newRecorder()
	c, s := bound(t, Transceiver, rec)

	autoResponse := map[uint32]smpp.Pdu{
		smpp.ENQUIRE_LINK: smpp.NewEnquireLink(100),
		smpp.DELIVER_SM:   smpp.NewDeliverSm(101, dest, dest, "mo"),
	}
	rejected := map[uint32]smpp.Pdu{
		smpp.BIND_TRANSMITTER: smpp.NewBind(smpp.BIND_TRANSMITTER, 102),
		smpp.BIND_RECEIVER:    smpp.NewBind(smpp.BIND_RECEIVER, 103),
		smpp.BIND_TRANSCEIVER: smpp.NewBind(smpp.BIND_TRANSCEIVER, 104),
		smpp.SUBMIT_SM:        smpp.NewSubmitSm(105, dest, dest, "mt"),
	}
	// unbind 会关闭连接，单独测试
	for _, id := range smpp.CommandIds() {
		if id&smpp.RESPONSE_MASK != 0 || id == smpp.UNBIND {
			continue
		}
		_, auto := autoResponse[id]
		_, rej := rejected[id]
		require.True(t, auto || rej, "request %s is not classified", smpp.CommandName(id))
	}

	for id, req := range autoResponse {
		s.send(req)
		resp := s.next(t)
		assert.Equal(t, id|smpp.RESPONSE_MASK, resp.Header().CommandId)
		assert.Equal(t, req.Header().SequenceNumber, resp.Header().SequenceNumber)
	}
	for _, req := range rejected {
		s.send(req)
		assert.ErrorIs(t, rec.nextErr(t), ErrUnknownPdu)
	}
	s.assertSilent(t)
	assert.Equal(t, Bound, c.State())
}

func TestClient_MalformedFrame(t *testing.T) {
	rec := newRecorder()
	c, s := bound(t, Transceiver, rec)
	pending := c.SendMessageAsync(dest, "hello")
	s.next(t)

	frame := make([]byte, 16)
	frame[3] = 8 // command_length 小于报文头
	s.h.OnData(frame)

	assert.ErrorIs(t, rec.nextErr(t), ErrMalformedFrame)
	_, err := pending.Wait(waitCtx(t))
	assert.ErrorIs(t, err, ErrMalformedFrame)
	waitSignal(t, c.Done(), "done")
	assert.Equal(t, Closed, c.State())
}

func TestClient_UnknownCommandId(t *testing.T) {
	rec := newRecorder()
	c, s := bound(t, Transceiver, rec)

	header := &smpp.MessageHeader{CommandLength: smpp.HeaderLength, CommandId: 0x00000103, SequenceNumber: 3}
	s.h.OnData(header.Encode())
	assert.ErrorIs(t, rec.nextErr(t), ErrUnknownPdu)
	waitSignal(t, c.Done(), "done")
}

func TestClient_FramesAcrossChunks(t *testing.T) {
	rec := newRecorder()
	_, s := bound(t, Transceiver, rec)

	var buf []byte
	for i := uint32(10); i < 13; i++ {
		buf = append(buf, smpp.NewEnquireLink(i).Encode()...)
	}
	// 任意切分
	s.h.OnData(buf[:5])
	s.h.OnData(buf[5:20])
	s.h.OnData(nil)
	s.h.OnData(buf[20:])

	for i := uint32(10); i < 13; i++ {
		resp := s.next(t)
		assert.Equal(t, i, resp.Header().SequenceNumber)
	}
}

func TestClient_PeerClose(t *testing.T) {
	rec := newRecorder()
	c, s := bound(t, Transceiver, rec)
	f1 := c.SendMessageAsync(dest, "a")
	f2 := c.SendMessageAsync(dest, "b")
	s.next(t)
	s.next(t)

	s.peerClose()
	waitSignal(t, rec.ends, "end")
	waitSignal(t, rec.closes, "close")
	waitSignal(t, c.Done(), "done")

	for _, f := range []*Future{f1, f2} {
		_, err := f.Wait(waitCtx(t))
		assert.ErrorIs(t, err, ErrConnectionClosed)
	}
	assert.Equal(t, Closed, c.State())
}

func TestClient_TransportError(t *testing.T) {
	rec := newRecorder()
	c, s := bound(t, Transceiver, rec)
	f := c.SendMessageAsync(dest, "a")
	s.next(t)

	s.h.OnError(errors.New("connection reset by peer"))
	err := rec.nextErr(t)
	assert.ErrorIs(t, err, ErrTransport)
	var terr *TransportError
	assert.True(t, errors.As(err, &terr))

	_, err = f.Wait(waitCtx(t))
	assert.ErrorIs(t, err, ErrTransport)
	waitSignal(t, rec.closes, "close")
	waitSignal(t, c.Done(), "done")
}

func TestClient_Close(t *testing.T) {
	rec := newRecorder()
	c, s := bound(t, Transceiver, rec)
	f := c.SendMessageAsync(dest, "a")
	s.next(t)

	require.NoError(t, c.Close())
	_, err := f.Wait(waitCtx(t))
	assert.ErrorIs(t, err, ErrConnectionClosed)
	waitSignal(t, rec.closes, "close")
	waitSignal(t, c.Done(), "done")
	assert.Equal(t, Closed, c.State())

	// 关闭后的调用立即失败
	require.NoError(t, c.Close())
	_, err = c.SendMessageAsync(dest, "b").Result()
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestClient_ConnectTimeout(t *testing.T) {
	d := newFakeDialer()
	d.block = true
	c := newTestClient(t, d, nil)

	start := time.Now()
	_, err := c.Connect(waitCtx(t), NewSession(Transceiver, "SYS"), "127.0.0.1", DefaultPort, 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrConnectTimeout)
	assert.True(t, time.Since(start) >= 50*time.Millisecond)
	waitSignal(t, c.Done(), "done")
	assert.Equal(t, Closed, c.State())
}

func TestClient_BindResponseTimeout(t *testing.T) {
	rec := newRecorder()
	d := newFakeDialer()
	c := newTestClient(t, d, rec)

	f := c.ConnectAsync(NewSession(Transceiver, "SYS"), "127.0.0.1", DefaultPort, 50*time.Millisecond)
	s := d.wait(t)
	s.next(t)
	// 传输层已连接，绑定应答不到也要超时
	_, err := f.Wait(waitCtx(t))
	assert.ErrorIs(t, err, ErrConnectTimeout)
	waitSignal(t, rec.closes, "close")
	waitSignal(t, c.Done(), "done")
}

func TestClient_DeadlineAfterBind(t *testing.T) {
	rec := newRecorder()
	d := newFakeDialer()
	c := newTestClient(t, d, rec)

	f := c.ConnectAsync(NewSession(Transceiver, "SYS"), "127.0.0.1", DefaultPort, 30*time.Millisecond)
	s := d.wait(t)
	bind := s.next(t).(*smpp.Bind)
	s.send(bind.ToResponse(smpp.ESME_ROK))
	_, err := f.Wait(waitCtx(t))
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, Bound, c.State())
	rec.assertNoErr(t)
}

func TestClient_BindRejected(t *testing.T) {
	d := newFakeDialer()
	c := newTestClient(t, d, nil)

	f := c.ConnectAsync(NewSession(Transmitter, "SYS", WithPassword("wrong")), "127.0.0.1", DefaultPort, time.Second)
	s := d.wait(t)
	bind := s.next(t).(*smpp.Bind)
	s.send(bind.ToResponse(smpp.ESME_RINVPASWD))

	pdu, err := f.Wait(waitCtx(t))
	assert.ErrorIs(t, err, ErrBindRejected)
	assert.Equal(t, smpp.ESME_RINVPASWD, pdu.Header().CommandStatus)
	waitSignal(t, c.Done(), "done")
}

func TestClient_DialError(t *testing.T) {
	d := newFakeDialer()
	d.dialErr = errors.New("connection refused")
	c := newTestClient(t, d, nil)

	_, err := c.Connect(waitCtx(t), NewSession(Transceiver, "SYS"), "127.0.0.1", DefaultPort, time.Second)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Contains(t, err.Error(), "connection refused")
	waitSignal(t, c.Done(), "done")
}

func TestClient_NotBound(t *testing.T) {
	c := newTestClient(t, newFakeDialer(), nil)
	_, err := c.SendMessage(waitCtx(t), dest, "hello")
	assert.ErrorIs(t, err, ErrNotBound)
	assert.ErrorIs(t, c.Unbind(waitCtx(t)), ErrNotBound)

	_, err = c.Connect(waitCtx(t), NewSession(BindMode(9), "SYS"), "127.0.0.1", DefaultPort, time.Second)
	assert.ErrorIs(t, err, ErrInvalidBindMode)
	assert.Equal(t, Disconnected, c.State())

	// 超长的绑定参数不会被截断发送
	_, err = c.Connect(waitCtx(t), NewSession(Transmitter, "SYS", WithPassword("too-long-pwd")), "127.0.0.1", DefaultPort, time.Second)
	assert.ErrorIs(t, err, ErrInvalidSession)
	assert.Equal(t, Disconnected, c.State())
}

func TestClient_AlreadyConnected(t *testing.T) {
	c, _ := bound(t, Transceiver, nil)
	_, err := c.ConnectAsync(NewSession(Transceiver, "SYS"), "127.0.0.1", DefaultPort, time.Second).Wait(waitCtx(t))
	assert.ErrorIs(t, err, ErrAlreadyConnected)
	assert.Equal(t, Bound, c.State())
}

func TestClient_ReceiverCannotSubmit(t *testing.T) {
	c, s := bound(t, Receiver, nil)
	_, err := c.SendMessage(waitCtx(t), dest, "hello")
	assert.ErrorIs(t, err, ErrInvalidBindMode)
	s.assertSilent(t)
}

func TestClient_RequestTimeout(t *testing.T) {
	c, s := bound(t, Transceiver, nil, WithRequestTimeout(40*time.Millisecond))
	f := c.SendMessageAsync(dest, "slow")
	sub := s.next(t)

	_, err := f.Wait(waitCtx(t))
	assert.ErrorIs(t, err, ErrRequestTimeout)

	// 超时后到达的应答视为未匹配
	s.send(sub.(*smpp.SubmitSm).ToResponse(smpp.ESME_ROK))
	assert.Equal(t, Bound, c.State())
}

func TestClient_EnquireLinkInterval(t *testing.T) {
	_, s := bound(t, Transceiver, nil, WithEnquireLinkInterval(20*time.Millisecond))
	at, ok := s.next(t).(*smpp.EnquireLink)
	require.True(t, ok)
	s.send(at.ToResponse(smpp.ESME_ROK))
	_, ok = s.next(t).(*smpp.EnquireLink)
	assert.True(t, ok)
}

func TestClient_EnquireLinkUnanswered(t *testing.T) {
	h := newRecorder()
	c, s := bound(t, Transceiver, h, WithEnquireLinkInterval(20*time.Millisecond))
	_, ok := s.next(t).(*smpp.EnquireLink)
	require.True(t, ok)

	// 对端不应答，下一个周期判定链路失效
	err := h.nextErr(t)
	assert.ErrorIs(t, err, ErrRequestTimeout)
	select {
	case <-c.Done():
	case <-time.After(waitTimeout):
		t.Fatal("client not closed")
	}
	assert.Equal(t, Closed, c.State())
	assert.Equal(t, 0, c.pending.Len())
}

func TestClient_SendMessageTooLong(t *testing.T) {
	c, s := bound(t, Transceiver, nil)
	_, err := c.SendMessage(waitCtx(t), dest, strings.Repeat("a", smpp.MaxPayloadLength+1))
	assert.ErrorIs(t, err, ErrMalformedFrame)
	s.assertSilent(t)
	assert.Equal(t, Bound, c.State())
}

func TestClient_SequenceWrap(t *testing.T) {
	c, s := bound(t, Transceiver, nil, WithInitialSequence(comm.MaxSequence))
	f := c.SendMessageAsync(dest, "wrap")
	sub := s.next(t)
	assert.Equal(t, uint32(1), sub.Header().SequenceNumber)
	s.send(sub.(*smpp.SubmitSm).ToResponse(smpp.ESME_ROK))
	_, err := f.Wait(waitCtx(t))
	assert.NoError(t, err)
}

func TestClient_NextSequenceSkipsPending(t *testing.T) {
	// 不启动事件循环，直接检查序号分配
	c := &Client{pending: NewTable(), seq: comm.NewCycleSequence(5)}
	require.NoError(t, c.pending.Insert(&PendingRequest{Sequence: 5, Future: newFuture()}))
	require.NoError(t, c.pending.Insert(&PendingRequest{Sequence: 6, Future: newFuture()}))
	assert.Equal(t, uint32(7), c.nextSequence())
	assert.Equal(t, uint32(8), c.nextSequence())
}

func TestClient_ConnectContextCancel(t *testing.T) {
	d := newFakeDialer()
	d.block = true
	c := newTestClient(t, d, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := c.Connect(ctx, NewSession(Transceiver, "SYS"), "127.0.0.1", DefaultPort, 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	waitSignal(t, c.Done(), "done")
}
