package smpp

import (
	"fmt"
	"regexp"
	"time"

	"github.com/aaronwong1989/smppc/codec"
)

// message_state
const (
	STATE_ENROUTE       = uint8(1)
	STATE_DELIVERED     = uint8(2)
	STATE_EXPIRED       = uint8(3)
	STATE_DELETED       = uint8(4)
	STATE_UNDELIVERABLE = uint8(5)
	STATE_ACCEPTED      = uint8(6)
	STATE_UNKNOWN       = uint8(7)
	STATE_REJECTED      = uint8(8)
)

// esm_class 中的消息类型位
const (
	ESM_CLASS_TYPE_MASK = uint8(0x3C)
	ESM_CLASS_RECEIPT   = uint8(0x04) // SMSC 状态报告
)

// DeliverSm 短信下发，上行短信或状态报告
type DeliverSm struct {
	*MessageHeader
	ShortMessage
}

// DeliverSmResp 短信下发应答，message_id 固定为空
type DeliverSmResp struct {
	*MessageHeader
	MessageId string
}

func NewDeliverSm(seq uint32, source, dest Address, text string) *DeliverSm {
	header := &MessageHeader{CommandId: DELIVER_SM, SequenceNumber: seq}
	dly := &DeliverSm{MessageHeader: header}
	dly.Source = source
	dly.Dest = dest
	_ = dly.SetText(text)
	return dly
}

// NewDeliveryReceipt 按 SMPP v3.4 附录B 的格式生成状态报告
func NewDeliveryReceipt(seq uint32, sub *SubmitSm, msgId string, state uint8, stat string) *DeliverSm {
	dlvrd := 0
	if state == STATE_DELIVERED {
		dlvrd = 1
	}
	now := time.Now().Format("0601021504")
	text := fmt.Sprintf("id:%s sub:001 dlvrd:%03d submit date:%s done date:%s stat:%s err:000 text:",
		msgId, dlvrd, now, now, stat)
	dly := NewDeliverSm(seq, sub.Dest, sub.Source, text)
	dly.EsmClass = ESM_CLASS_RECEIPT
	dly.Tlvs = append(dly.Tlvs,
		TLV{Tag: TAG_RECEIPTED_MESSAGE_ID, Value: append([]byte(msgId), 0)},
		TLV{Tag: TAG_MESSAGE_STATE, Value: []byte{state}},
	)
	return dly
}

func (dly *DeliverSm) Encode() []byte {
	dly.CommandLength = uint32(HeaderLength + dly.encodedLen())
	w := newFrameWriter(dly.MessageHeader)
	dly.put(w)
	return w.frame
}

func (dly *DeliverSm) Decode(header codec.IHead, frame []byte) error {
	h, err := checkHeader(header, DELIVER_SM)
	if err != nil {
		return err
	}
	dly.MessageHeader = h
	r := newFrameReader(frame)
	dly.read(r)
	return r.err
}

// ToResponse deliver_sm_resp 的 message_id 未使用，置为空
func (dly *DeliverSm) ToResponse(status uint32) Pdu {
	header := &MessageHeader{CommandId: DELIVER_SM_RESP, CommandStatus: status, SequenceNumber: dly.SequenceNumber}
	return &DeliverSmResp{MessageHeader: header, MessageId: ""}
}

// IsReceipt 是否为状态报告
func (dly *DeliverSm) IsReceipt() bool {
	return dly.EsmClass&ESM_CLASS_TYPE_MASK == ESM_CLASS_RECEIPT
}

var receiptIdPattern = regexp.MustCompile(`id:(\S+)`)

// ReceiptedMessageId 状态报告对应的 message_id，优先取可选参数，其次解析消息内容
func (dly *DeliverSm) ReceiptedMessageId() string {
	if v, ok := findTLV(dly.Tlvs, TAG_RECEIPTED_MESSAGE_ID); ok {
		return string(trimNul(v))
	}
	if m := receiptIdPattern.FindStringSubmatch(dly.Text()); len(m) == 2 {
		return m[1]
	}
	return ""
}

// MessageState 状态报告中的 message_state，未携带时返回 false
func (dly *DeliverSm) MessageState() (uint8, bool) {
	v, ok := findTLV(dly.Tlvs, TAG_MESSAGE_STATE)
	if !ok || len(v) != 1 {
		return 0, false
	}
	return v[0], true
}

func (dly *DeliverSm) String() string {
	return fmt.Sprintf("{ Header: %s, %s }", dly.MessageHeader, dly.ShortMessage.String())
}

func (resp *DeliverSmResp) Encode() []byte {
	resp.CommandLength = uint32(HeaderLength + cstrLen(resp.MessageId, MaxMessageIdLength))
	w := newFrameWriter(resp.MessageHeader)
	w.cstr(resp.MessageId, MaxMessageIdLength)
	return w.frame
}

func (resp *DeliverSmResp) Decode(header codec.IHead, frame []byte) error {
	h, err := checkHeader(header, DELIVER_SM_RESP)
	if err != nil {
		return err
	}
	resp.MessageHeader = h
	if len(frame) == 0 {
		return nil
	}
	r := newFrameReader(frame)
	resp.MessageId = r.cstr("message_id", MaxMessageIdLength)
	return r.err
}

func (resp *DeliverSmResp) String() string {
	return fmt.Sprintf("{ Header: %s, MessageId: %s }", resp.MessageHeader, resp.MessageId)
}

func trimNul(v []byte) []byte {
	for i, b := range v {
		if b == 0 {
			return v[:i]
		}
	}
	return v
}
