package smpp

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"

	"github.com/aaronwong1989/smppc/codec"
)

// MessageHeader SMPP 报文头，固定16字节
type MessageHeader struct {
	CommandLength  uint32 // 报文总长度，包含报文头
	CommandId      uint32 // 命令字，最高位为1表示应答
	CommandStatus  uint32 // 命令状态，请求中为0
	SequenceNumber uint32 // 序号，请求方分配，应答原样返回
}

// Pdu SMPP 协议数据单元
type Pdu interface {
	codec.Codec
	Header() *MessageHeader
}

func (header *MessageHeader) Encode() []byte {
	if header.CommandLength < HeaderLength {
		header.CommandLength = HeaderLength
	}
	frame := make([]byte, header.CommandLength)
	binary.BigEndian.PutUint32(frame[0:4], header.CommandLength)
	binary.BigEndian.PutUint32(frame[4:8], header.CommandId)
	binary.BigEndian.PutUint32(frame[8:12], header.CommandStatus)
	binary.BigEndian.PutUint32(frame[12:16], header.SequenceNumber)
	return frame
}

func (header *MessageHeader) Decode(frame []byte) error {
	if len(frame) < HeaderLength {
		return errors.Wrapf(ErrMalformedPdu, "header needs %d bytes, got %d", HeaderLength, len(frame))
	}
	header.CommandLength = binary.BigEndian.Uint32(frame[0:4])
	header.CommandId = binary.BigEndian.Uint32(frame[4:8])
	header.CommandStatus = binary.BigEndian.Uint32(frame[8:12])
	header.SequenceNumber = binary.BigEndian.Uint32(frame[12:16])
	return nil
}

func (header *MessageHeader) String() string {
	return fmt.Sprintf("{ CommandLength: %d, CommandId: %s, CommandStatus: %s, SequenceNumber: %d }",
		header.CommandLength, CommandName(header.CommandId), StatusText(header.CommandStatus), header.SequenceNumber)
}

func (header *MessageHeader) Header() *MessageHeader {
	return header
}

// IsResponse 应答或 generic_nack
func (header *MessageHeader) IsResponse() bool {
	return header.CommandId&RESPONSE_MASK != 0
}

func (header *MessageHeader) IsOk() bool {
	return header.CommandStatus == ESME_ROK
}

// PeekLength 读取报文长度字段，不要求报文完整
func PeekLength(frame []byte) uint32 {
	return binary.BigEndian.Uint32(frame[0:4])
}

// checkHeader 解码时校验报文头类型
func checkHeader(header codec.IHead, ids ...uint32) (*MessageHeader, error) {
	h, ok := header.(*MessageHeader)
	if !ok || h == nil {
		return nil, errors.Wrap(ErrMalformedPdu, "missing header")
	}
	for _, id := range ids {
		if h.CommandId == id {
			return h, nil
		}
	}
	return nil, errors.Wrapf(ErrMalformedPdu, "unexpected command_id %s", CommandName(h.CommandId))
}

const (
	HeaderLength  = 16         // 报文头长度
	RESPONSE_MASK = 0x80000000 // 命令字最高位

	GENERIC_NACK          = uint32(0x80000000) // 通用否定应答
	BIND_RECEIVER         = uint32(0x00000001) // 以接收方式绑定
	BIND_RECEIVER_RESP    = uint32(0x80000001) // 以接收方式绑定应答
	BIND_TRANSMITTER      = uint32(0x00000002) // 以发送方式绑定
	BIND_TRANSMITTER_RESP = uint32(0x80000002) // 以发送方式绑定应答
	SUBMIT_SM             = uint32(0x00000004) // 提交短信
	SUBMIT_SM_RESP        = uint32(0x80000004) // 提交短信应答
	DELIVER_SM            = uint32(0x00000005) // 短信下发
	DELIVER_SM_RESP       = uint32(0x80000005) // 短信下发应答
	UNBIND                = uint32(0x00000006) // 解除绑定
	UNBIND_RESP           = uint32(0x80000006) // 解除绑定应答
	BIND_TRANSCEIVER      = uint32(0x00000009) // 以收发方式绑定
	BIND_TRANSCEIVER_RESP = uint32(0x80000009) // 以收发方式绑定应答
	ENQUIRE_LINK          = uint32(0x00000015) // 链路检测
	ENQUIRE_LINK_RESP     = uint32(0x80000015) // 链路检测应答
	// QUERY_SM              = uint32(0x00000003)
	// QUERY_SM_RESP         = uint32(0x80000003)
	// REPLACE_SM            = uint32(0x00000007)
	// REPLACE_SM_RESP       = uint32(0x80000007)
	// CANCEL_SM             = uint32(0x00000008)
	// CANCEL_SM_RESP        = uint32(0x80000008)
	// OUTBIND               = uint32(0x0000000B)
	// SUBMIT_MULTI          = uint32(0x00000021)
	// SUBMIT_MULTI_RESP     = uint32(0x80000021)
	// ALERT_NOTIFICATION    = uint32(0x00000102)
	// DATA_SM               = uint32(0x00000103)
	// DATA_SM_RESP          = uint32(0x80000103)
)

var CommandMap = make(map[uint32]string)

func init() {
	CommandMap[GENERIC_NACK] = "GENERIC_NACK"
	CommandMap[BIND_RECEIVER] = "BIND_RECEIVER"
	CommandMap[BIND_RECEIVER_RESP] = "BIND_RECEIVER_RESP"
	CommandMap[BIND_TRANSMITTER] = "BIND_TRANSMITTER"
	CommandMap[BIND_TRANSMITTER_RESP] = "BIND_TRANSMITTER_RESP"
	CommandMap[SUBMIT_SM] = "SUBMIT_SM"
	CommandMap[SUBMIT_SM_RESP] = "SUBMIT_SM_RESP"
	CommandMap[DELIVER_SM] = "DELIVER_SM"
	CommandMap[DELIVER_SM_RESP] = "DELIVER_SM_RESP"
	CommandMap[UNBIND] = "UNBIND"
	CommandMap[UNBIND_RESP] = "UNBIND_RESP"
	CommandMap[BIND_TRANSCEIVER] = "BIND_TRANSCEIVER"
	CommandMap[BIND_TRANSCEIVER_RESP] = "BIND_TRANSCEIVER_RESP"
	CommandMap[ENQUIRE_LINK] = "ENQUIRE_LINK"
	CommandMap[ENQUIRE_LINK_RESP] = "ENQUIRE_LINK_RESP"
}

// CommandName 命令字名称，未知命令字以16进制显示
func CommandName(id uint32) string {
	if name, ok := CommandMap[id]; ok {
		return name
	}
	return fmt.Sprintf("0x%08x", id)
}
