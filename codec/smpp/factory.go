package smpp

import (
	"sort"

	"github.com/pkg/errors"
)

var factories = map[uint32]func() Pdu{
	GENERIC_NACK:          func() Pdu { return &GenericNack{} },
	BIND_RECEIVER:         func() Pdu { return &Bind{} },
	BIND_RECEIVER_RESP:    func() Pdu { return &BindResp{} },
	BIND_TRANSMITTER:      func() Pdu { return &Bind{} },
	BIND_TRANSMITTER_RESP: func() Pdu { return &BindResp{} },
	BIND_TRANSCEIVER:      func() Pdu { return &Bind{} },
	BIND_TRANSCEIVER_RESP: func() Pdu { return &BindResp{} },
	SUBMIT_SM:             func() Pdu { return &SubmitSm{} },
	SUBMIT_SM_RESP:        func() Pdu { return &SubmitSmResp{} },
	DELIVER_SM:            func() Pdu { return &DeliverSm{} },
	DELIVER_SM_RESP:       func() Pdu { return &DeliverSmResp{} },
	UNBIND:                func() Pdu { return &Unbind{} },
	UNBIND_RESP:           func() Pdu { return &UnbindResp{} },
	ENQUIRE_LINK:          func() Pdu { return &EnquireLink{} },
	ENQUIRE_LINK_RESP:     func() Pdu { return &EnquireLinkResp{} },
}

// Decode 解码一个完整报文
//
// 长度字段与报文长度不符或消息体不合法时返回 ErrMalformedPdu，
// 命令字不受支持时返回 ErrUnknownPdu，此时返回的 Pdu 为 nil
func Decode(frame []byte) (Pdu, error) {
	header := &MessageHeader{}
	if err := header.Decode(frame); err != nil {
		return nil, err
	}
	if int(header.CommandLength) != len(frame) {
		return nil, errors.Wrapf(ErrMalformedPdu, "command_length %d, frame length %d", header.CommandLength, len(frame))
	}
	factory, ok := factories[header.CommandId]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownPdu, "command_id 0x%08x, sequence_number %d", header.CommandId, header.SequenceNumber)
	}
	pdu := factory()
	if err := pdu.Decode(header, frame[HeaderLength:]); err != nil {
		return nil, err
	}
	return pdu, nil
}

// Known 是否为支持的命令字
func Known(commandId uint32) bool {
	_, ok := factories[commandId]
	return ok
}

// CommandIds 支持的全部命令字
func CommandIds() []uint32 {
	ids := make([]uint32, 0, len(factories))
	for id := range factories {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
