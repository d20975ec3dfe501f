package smpp

import (
	"fmt"

	"github.com/aaronwong1989/smppc/codec"
)

// 仅有报文头的会话类报文

type EnquireLink struct{ *MessageHeader }
type EnquireLinkResp struct{ *MessageHeader }
type Unbind struct{ *MessageHeader }
type UnbindResp struct{ *MessageHeader }

// GenericNack 无法处理请求时的通用否定应答
type GenericNack struct{ *MessageHeader }

func NewEnquireLink(seq uint32) *EnquireLink {
	return &EnquireLink{&MessageHeader{CommandLength: HeaderLength, CommandId: ENQUIRE_LINK, SequenceNumber: seq}}
}

func NewUnbind(seq uint32) *Unbind {
	return &Unbind{&MessageHeader{CommandLength: HeaderLength, CommandId: UNBIND, SequenceNumber: seq}}
}

func NewGenericNack(seq uint32, status uint32) *GenericNack {
	return &GenericNack{&MessageHeader{CommandLength: HeaderLength, CommandId: GENERIC_NACK, CommandStatus: status, SequenceNumber: seq}}
}

func (at *EnquireLink) Encode() []byte {
	at.CommandLength = HeaderLength
	return at.MessageHeader.Encode()
}

func (at *EnquireLink) Decode(header codec.IHead, _ []byte) (err error) {
	at.MessageHeader, err = checkHeader(header, ENQUIRE_LINK)
	return
}

func (at *EnquireLink) ToResponse(status uint32) Pdu {
	return &EnquireLinkResp{&MessageHeader{CommandLength: HeaderLength, CommandId: ENQUIRE_LINK_RESP, CommandStatus: status, SequenceNumber: at.SequenceNumber}}
}

func (at *EnquireLink) String() string {
	return at.MessageHeader.String()
}

func (resp *EnquireLinkResp) Encode() []byte {
	resp.CommandLength = HeaderLength
	return resp.MessageHeader.Encode()
}

func (resp *EnquireLinkResp) Decode(header codec.IHead, _ []byte) (err error) {
	resp.MessageHeader, err = checkHeader(header, ENQUIRE_LINK_RESP)
	return
}

func (resp *EnquireLinkResp) String() string {
	return resp.MessageHeader.String()
}

func (ub *Unbind) Encode() []byte {
	ub.CommandLength = HeaderLength
	return ub.MessageHeader.Encode()
}

func (ub *Unbind) Decode(header codec.IHead, _ []byte) (err error) {
	ub.MessageHeader, err = checkHeader(header, UNBIND)
	return
}

func (ub *Unbind) ToResponse(status uint32) Pdu {
	return &UnbindResp{&MessageHeader{CommandLength: HeaderLength, CommandId: UNBIND_RESP, CommandStatus: status, SequenceNumber: ub.SequenceNumber}}
}

func (ub *Unbind) String() string {
	return ub.MessageHeader.String()
}

func (resp *UnbindResp) Encode() []byte {
	resp.CommandLength = HeaderLength
	return resp.MessageHeader.Encode()
}

func (resp *UnbindResp) Decode(header codec.IHead, _ []byte) (err error) {
	resp.MessageHeader, err = checkHeader(header, UNBIND_RESP)
	return
}

func (resp *UnbindResp) String() string {
	return resp.MessageHeader.String()
}

func (nack *GenericNack) Encode() []byte {
	nack.CommandLength = HeaderLength
	return nack.MessageHeader.Encode()
}

func (nack *GenericNack) Decode(header codec.IHead, _ []byte) (err error) {
	nack.MessageHeader, err = checkHeader(header, GENERIC_NACK)
	return
}

func (nack *GenericNack) String() string {
	return fmt.Sprintf("{ Header: %s }", nack.MessageHeader)
}
