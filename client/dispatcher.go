package client

import (
	"time"

	"github.com/pkg/errors"

	"github.com/aaronwong1989/smppc/codec/smpp"
	"github.com/aaronwong1989/smppc/comm"
	"github.com/aaronwong1989/smppc/comm/logging"
)

// onData 组帧、解码并分发，遇到不合法报文后不再处理后续数据
func (c *Client) onData(data []byte) {
	if c.State() >= Closing {
		return
	}
	c.frames.Write(data)
	for c.State() < Closing {
		frame, err := c.frames.Next()
		if err != nil {
			c.fatal(err)
			return
		}
		if frame == nil {
			return
		}
		comm.LogHex(c.log, logging.DebugLevel, "Recv", frame)
		pdu, err := smpp.Decode(frame)
		if err != nil {
			c.fatal(err)
			return
		}
		c.log.Debugf("[%-9s] <<< %s", "Recv", pdu)
		c.dispatch(pdu)
	}
}

// dispatch 应答交给等待中的请求，请求生成应答后先回调再发送
func (c *Client) dispatch(pdu smpp.Pdu) {
	header := pdu.Header()
	if header.IsResponse() {
		p, ok := c.pending.Remove(header.SequenceNumber)
		if !ok {
			err := errors.Wrapf(ErrUnsolicitedResponse, "%s seq=%d", smpp.CommandName(header.CommandId), header.SequenceNumber)
			c.log.Warnf("[%-9s] <<< %v", "Dispatch", err)
			c.handler.OnError(c, err)
			return
		}
		c.resolve(p, pdu)
		return
	}

	switch req := pdu.(type) {
	case *smpp.EnquireLink:
		resp := req.ToResponse(smpp.ESME_ROK)
		c.handler.OnEnquireLink(c, req)
		c.write(resp)
	case *smpp.DeliverSm:
		resp := req.ToResponse(smpp.ESME_ROK)
		c.handler.OnDeliverSm(c, req)
		c.write(resp)
	case *smpp.Unbind:
		resp := req.ToResponse(smpp.ESME_ROK)
		c.handler.OnUnbind(c, req)
		c.write(resp)
		c.log.Infof("[%-9s] <<< unbind from %s, closing", "Dispatch", c.remote)
		c.shutdown(ErrConnectionClosed)
	default:
		err := errors.Wrapf(ErrUnknownPdu, "unexpected request %s seq=%d", smpp.CommandName(header.CommandId), header.SequenceNumber)
		c.log.Warnf("[%-9s] <<< %v", "Dispatch", err)
		c.handler.OnError(c, err)
	}
}

// resolve 完成请求，应答命令字必须与请求对应
func (c *Client) resolve(p *PendingRequest, resp smpp.Pdu) {
	reqId := p.Request.Header().CommandId
	respId := resp.Header().CommandId
	err := statusError(p.Request, resp)
	if err == nil && respId != reqId|smpp.RESPONSE_MASK {
		err = errors.Wrapf(ErrUnsolicitedResponse, "%s does not answer %s", smpp.CommandName(respId), smpp.CommandName(reqId))
	}

	switch p.Request.(type) {
	case *smpp.Bind:
		c.onBindResp(resp, err)
	case *smpp.Unbind:
		p.Future.complete(resp, err)
		c.shutdown(ErrConnectionClosed)
	default:
		if err != nil {
			c.log.Warnf("[%-9s] <<< %v", "Resolve", err)
		}
		p.Future.complete(resp, err)
	}
}

// sweep 请求超时
func (c *Client) sweep(now time.Time) {
	for _, p := range c.pending.Expired(now) {
		err := errors.Wrapf(ErrRequestTimeout, "%s seq=%d", smpp.CommandName(p.Request.Header().CommandId), p.Sequence)
		c.log.Warnf("[%-9s] %v", "Sweep", err)
		p.Future.complete(nil, err)
	}
}

func (c *Client) fatal(err error) {
	c.log.Errorf("[%-9s] <<< %v, closing %s", "Recv", err, c.remote)
	c.handler.OnError(c, err)
	c.shutdown(err)
}
