package main

import (
	"github.com/aaronwong1989/smppc/client"
	"github.com/aaronwong1989/smppc/codec/smpp"
)

// handler 记录网关推送的报文
type handler struct {
	client.BuiltinEventHandler
}

func (h *handler) OnDeliverSm(_ *client.Client, pdu *smpp.DeliverSm) {
	if pdu.IsReceipt() {
		state, _ := pdu.MessageState()
		log.Infof("[%-9s] <<< receipt of %s, state=%d", "Report", pdu.ReceiptedMessageId(), state)
		return
	}
	log.Infof("[%-9s] <<< %s: %s", "Deliver", pdu.Source, pdu.Text())
}

func (h *handler) OnUnbind(_ *client.Client, pdu *smpp.Unbind) {
	log.Warnf("[%-9s] <<< %s", "Unbind", pdu)
}

func (h *handler) OnEnd(c *client.Client) {
	log.Warnf("[%-9s] connection closed by peer, state=%s", "OnEnd", c.State())
}

func (h *handler) OnError(_ *client.Client, err error) {
	log.Errorf("[%-9s] %v", "OnError", err)
}
