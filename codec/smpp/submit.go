package smpp

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/aaronwong1989/smppc/codec"
)

// 短信字段最大长度，包含结尾的0
const (
	MaxServiceTypeLength = 6
	MaxTimeLength        = 17
	MaxShortMessage      = 254 // short_message 最大长度，超长内容放入 message_payload
	MaxMessageIdLength   = 65
	MaxPayloadLength     = 0xFFFF // message_payload 长度字段为2字节
)

// ShortMessage submit_sm 与 deliver_sm 共用的消息体
type ShortMessage struct {
	ServiceType          string  // 【6字节】业务类型
	Source               Address // 【2+21字节】源地址
	Dest                 Address // 【2+21字节】目的地址
	EsmClass             uint8   // 【1字节】消息模式及类型
	ProtocolId           uint8   // 【1字节】GSM TP-PID
	PriorityFlag         uint8   // 【1字节】优先级
	ScheduleDeliveryTime string  // 【17字节】定时发送时间
	ValidityPeriod       string  // 【17字节】有效期
	RegisteredDelivery   uint8   // 【1字节】是否要求状态报告
	ReplaceIfPresentFlag uint8   // 【1字节】
	DataCoding           uint8   // 【1字节】编码格式
	SmDefaultMsgId       uint8   // 【1字节】
	Message              []byte  // 【sm_length字节】消息内容
	Tlvs                 []TLV   // 可选参数
}

// SetText 编码消息内容，超过 254 字节时放入 message_payload
func (sm *ShortMessage) SetText(text string) error {
	coding, bts := EncodeText(text)
	if err := sm.SetPayload(bts); err != nil {
		return err
	}
	sm.DataCoding = coding
	return nil
}

// SetPayload 设置已编码的消息内容，超过 MaxPayloadLength 时不做修改
func (sm *ShortMessage) SetPayload(bts []byte) error {
	if len(bts) > MaxPayloadLength {
		return errors.Wrapf(ErrMalformedPdu, "message length %d exceeds %d", len(bts), MaxPayloadLength)
	}
	tlvs := sm.Tlvs[:0:0]
	for _, t := range sm.Tlvs {
		if t.Tag != TAG_MESSAGE_PAYLOAD {
			tlvs = append(tlvs, t)
		}
	}
	sm.Tlvs = tlvs
	if len(bts) > MaxShortMessage {
		sm.Message = nil
		sm.Tlvs = append(sm.Tlvs, TLV{Tag: TAG_MESSAGE_PAYLOAD, Value: bts})
	} else {
		sm.Message = bts
	}
	return nil
}

// Payload 消息内容，优先取 message_payload
func (sm *ShortMessage) Payload() []byte {
	if v, ok := findTLV(sm.Tlvs, TAG_MESSAGE_PAYLOAD); ok {
		return v
	}
	return sm.Message
}

// Text 按 data_coding 解码后的消息内容
func (sm *ShortMessage) Text() string {
	return DecodeText(sm.DataCoding, sm.Payload())
}

func (sm *ShortMessage) encodedLen() int {
	return cstrLen(sm.ServiceType, MaxServiceTypeLength) +
		sm.Source.encodedLen() + sm.Dest.encodedLen() + 3 +
		cstrLen(sm.ScheduleDeliveryTime, MaxTimeLength) +
		cstrLen(sm.ValidityPeriod, MaxTimeLength) +
		5 + len(sm.Message) + tlvsLen(sm.Tlvs)
}

func (sm *ShortMessage) put(w *frameWriter) {
	w.cstr(sm.ServiceType, MaxServiceTypeLength)
	sm.Source.put(w)
	sm.Dest.put(w)
	w.u8(sm.EsmClass)
	w.u8(sm.ProtocolId)
	w.u8(sm.PriorityFlag)
	w.cstr(sm.ScheduleDeliveryTime, MaxTimeLength)
	w.cstr(sm.ValidityPeriod, MaxTimeLength)
	w.u8(sm.RegisteredDelivery)
	w.u8(sm.ReplaceIfPresentFlag)
	w.u8(sm.DataCoding)
	w.u8(sm.SmDefaultMsgId)
	w.u8(uint8(len(sm.Message)))
	w.raw(sm.Message)
	w.tlvs(sm.Tlvs)
}

func (sm *ShortMessage) read(r *frameReader) {
	sm.ServiceType = r.cstr("service_type", MaxServiceTypeLength)
	sm.Source = readAddress(r, "source_addr")
	sm.Dest = readAddress(r, "destination_addr")
	sm.EsmClass = r.u8()
	sm.ProtocolId = r.u8()
	sm.PriorityFlag = r.u8()
	sm.ScheduleDeliveryTime = r.cstr("schedule_delivery_time", MaxTimeLength)
	sm.ValidityPeriod = r.cstr("validity_period", MaxTimeLength)
	sm.RegisteredDelivery = r.u8()
	sm.ReplaceIfPresentFlag = r.u8()
	sm.DataCoding = r.u8()
	sm.SmDefaultMsgId = r.u8()
	smLength := int(r.u8())
	sm.Message = r.raw(smLength)
	sm.Tlvs = r.tlvs()
}

func (sm *ShortMessage) String() string {
	l := len(sm.Payload())
	if l > 6 {
		l = 6
	}
	return fmt.Sprintf("ServiceType: %s, Source: %s, Dest: %s, EsmClass: %x, RegisteredDelivery: %d, DataCoding: %x, "+
		"Length: %d, Message: %0x..., Tlvs: %d", sm.ServiceType, sm.Source, sm.Dest, sm.EsmClass, sm.RegisteredDelivery,
		sm.DataCoding, len(sm.Payload()), sm.Payload()[0:l], len(sm.Tlvs))
}

// SubmitSm 提交短信
type SubmitSm struct {
	*MessageHeader
	ShortMessage
}

// SubmitSmResp 提交短信应答
type SubmitSmResp struct {
	*MessageHeader
	MessageId string // 【65字节】SMSC 分配的消息标识
}

// NewSubmitSm 生成 submit_sm，消息内容按 EncodeText 选择编码。
// 内容超长时消息体为空，调用方需要先用 SetText 检查
func NewSubmitSm(seq uint32, source, dest Address, text string) *SubmitSm {
	header := &MessageHeader{CommandId: SUBMIT_SM, SequenceNumber: seq}
	sub := &SubmitSm{MessageHeader: header}
	sub.Source = source
	sub.Dest = dest
	_ = sub.SetText(text)
	return sub
}

func (sub *SubmitSm) Encode() []byte {
	sub.CommandLength = uint32(HeaderLength + sub.encodedLen())
	w := newFrameWriter(sub.MessageHeader)
	sub.put(w)
	return w.frame
}

func (sub *SubmitSm) Decode(header codec.IHead, frame []byte) error {
	h, err := checkHeader(header, SUBMIT_SM)
	if err != nil {
		return err
	}
	sub.MessageHeader = h
	r := newFrameReader(frame)
	sub.read(r)
	return r.err
}

func (sub *SubmitSm) ToResponse(status uint32) Pdu {
	header := &MessageHeader{CommandId: SUBMIT_SM_RESP, CommandStatus: status, SequenceNumber: sub.SequenceNumber}
	return &SubmitSmResp{MessageHeader: header}
}

func (sub *SubmitSm) String() string {
	return fmt.Sprintf("{ Header: %s, %s }", sub.MessageHeader, sub.ShortMessage.String())
}

func (resp *SubmitSmResp) Encode() []byte {
	resp.CommandLength = uint32(HeaderLength + cstrLen(resp.MessageId, MaxMessageIdLength))
	w := newFrameWriter(resp.MessageHeader)
	w.cstr(resp.MessageId, MaxMessageIdLength)
	return w.frame
}

func (resp *SubmitSmResp) Decode(header codec.IHead, frame []byte) error {
	h, err := checkHeader(header, SUBMIT_SM_RESP)
	if err != nil {
		return err
	}
	resp.MessageHeader = h
	// 提交失败时消息体可以为空
	if len(frame) == 0 {
		return nil
	}
	r := newFrameReader(frame)
	resp.MessageId = r.cstr("message_id", MaxMessageIdLength)
	return r.err
}

func (resp *SubmitSmResp) String() string {
	return fmt.Sprintf("{ Header: %s, MessageId: %s }", resp.MessageHeader, resp.MessageId)
}
