package client

import (
	"github.com/pkg/errors"

	"github.com/aaronwong1989/smppc/codec/smpp"
)

func checkSession(session *Session) error {
	if session == nil {
		return errors.Wrap(ErrInvalidBindMode, "nil session")
	}
	if _, ok := session.mode.bindCommand(); !ok {
		return errors.Wrapf(ErrInvalidBindMode, "%s", session.mode)
	}
	// 长度限制包含结尾的0
	for _, f := range []struct {
		name  string
		value string
		max   int
	}{
		{"system_id", session.systemId, smpp.MaxSystemIdLength},
		{"password", session.password, smpp.MaxPasswordLength},
		{"system_type", session.systemType, smpp.MaxSystemTypeLength},
		{"address_range", session.address.Addr, smpp.MaxAddressRangeLength},
	} {
		if len(f.value) >= f.max {
			return errors.Wrapf(ErrInvalidSession, "%s longer than %d", f.name, f.max-1)
		}
	}
	return nil
}

// newBindRequest 按绑定方式生成绑定请求
func newBindRequest(session *Session, seq uint32) (*smpp.Bind, error) {
	if err := checkSession(session); err != nil {
		return nil, err
	}
	commandId, _ := session.mode.bindCommand()
	bind := smpp.NewBind(commandId, seq)
	bind.SystemId = session.systemId
	bind.Password = session.password
	bind.SystemType = session.systemType
	bind.InterfaceVersion = session.interfaceVersion
	bind.AddrTon = session.address.Ton
	bind.AddrNpi = session.address.Npi
	bind.AddressRange = session.address.Addr
	return bind, nil
}

// bind 发送绑定请求，收到应答时由 onBindResp 完成 Connect
func (c *Client) bind() {
	seq := c.nextSequence()
	req, err := newBindRequest(c.session, seq)
	if err != nil {
		c.shutdown(err)
		return
	}
	c.setState(BindPending)
	c.send(req, c.connecting)
}

// onBindResp 在完成 Connect 之前更新状态并停止连接超时定时器
func (c *Client) onBindResp(resp smpp.Pdu, err error) {
	c.stopDeadline()
	if err != nil {
		c.log.Errorf("[%-9s] <<< bind rejected: %v", "Bind", err)
		c.connecting.complete(resp, err)
		c.shutdown(err)
		return
	}
	c.setState(Bound)
	c.startTimers()
	c.log.Infof("[%-9s] <<< bound as %s to %s", "Bind", c.session.mode, c.remote)
	c.connecting.complete(resp, nil)
}
