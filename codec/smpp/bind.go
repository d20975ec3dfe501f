package smpp

import (
	"fmt"

	"github.com/aaronwong1989/smppc/codec"
)

// 绑定字段最大长度，包含结尾的0
const (
	MaxSystemIdLength   = 16
	MaxPasswordLength   = 9
	MaxSystemTypeLength = 13

	SMPP_V33 = uint8(0x33)
	SMPP_V34 = uint8(0x34)
)

// Bind bind_transmitter、bind_receiver、bind_transceiver 共用同一消息体
type Bind struct {
	*MessageHeader          // 【16字节】消息头
	SystemId         string // 【16字节】ESME 账号
	Password         string // 【9字节】密码
	SystemType       string // 【13字节】ESME 类型
	InterfaceVersion uint8  // 【1字节】协议版本，3.4 版本为 0x34
	AddrTon          uint8  // 【1字节】
	AddrNpi          uint8  // 【1字节】
	AddressRange     string // 【41字节】ESME 服务的地址范围
}

// BindResp 三种绑定应答共用同一消息体
type BindResp struct {
	*MessageHeader
	SystemId string // 【16字节】SMSC 标识
	Tlvs     []TLV  // sc_interface_version
}

// NewBind commandId 为 BIND_TRANSMITTER、BIND_RECEIVER 或 BIND_TRANSCEIVER
func NewBind(commandId uint32, seq uint32) *Bind {
	header := &MessageHeader{CommandId: commandId, SequenceNumber: seq}
	return &Bind{MessageHeader: header, InterfaceVersion: SMPP_V34}
}

func (b *Bind) Encode() []byte {
	b.CommandLength = uint32(HeaderLength +
		cstrLen(b.SystemId, MaxSystemIdLength) +
		cstrLen(b.Password, MaxPasswordLength) +
		cstrLen(b.SystemType, MaxSystemTypeLength) +
		3 + cstrLen(b.AddressRange, MaxAddressRangeLength))
	w := newFrameWriter(b.MessageHeader)
	w.cstr(b.SystemId, MaxSystemIdLength)
	w.cstr(b.Password, MaxPasswordLength)
	w.cstr(b.SystemType, MaxSystemTypeLength)
	w.u8(b.InterfaceVersion)
	w.u8(b.AddrTon)
	w.u8(b.AddrNpi)
	w.cstr(b.AddressRange, MaxAddressRangeLength)
	return w.frame
}

func (b *Bind) Decode(header codec.IHead, frame []byte) error {
	h, err := checkHeader(header, BIND_TRANSMITTER, BIND_RECEIVER, BIND_TRANSCEIVER)
	if err != nil {
		return err
	}
	r := newFrameReader(frame)
	b.MessageHeader = h
	b.SystemId = r.cstr("system_id", MaxSystemIdLength)
	b.Password = r.cstr("password", MaxPasswordLength)
	b.SystemType = r.cstr("system_type", MaxSystemTypeLength)
	b.InterfaceVersion = r.u8()
	b.AddrTon = r.u8()
	b.AddrNpi = r.u8()
	b.AddressRange = r.cstr("address_range", MaxAddressRangeLength)
	return r.err
}

func (b *Bind) ToResponse(status uint32) Pdu {
	header := &MessageHeader{CommandId: b.CommandId | RESPONSE_MASK, CommandStatus: status, SequenceNumber: b.SequenceNumber}
	return &BindResp{MessageHeader: header}
}

func (b *Bind) String() string {
	return fmt.Sprintf("{ Header: %s, SystemId: %s, SystemType: %s, InterfaceVersion: %x, AddrTon: %d, AddrNpi: %d, AddressRange: %s }",
		b.MessageHeader, b.SystemId, b.SystemType, b.InterfaceVersion, b.AddrTon, b.AddrNpi, b.AddressRange)
}

func (resp *BindResp) Encode() []byte {
	resp.CommandLength = uint32(HeaderLength + cstrLen(resp.SystemId, MaxSystemIdLength) + tlvsLen(resp.Tlvs))
	w := newFrameWriter(resp.MessageHeader)
	w.cstr(resp.SystemId, MaxSystemIdLength)
	w.tlvs(resp.Tlvs)
	return w.frame
}

func (resp *BindResp) Decode(header codec.IHead, frame []byte) error {
	h, err := checkHeader(header, BIND_TRANSMITTER_RESP, BIND_RECEIVER_RESP, BIND_TRANSCEIVER_RESP)
	if err != nil {
		return err
	}
	resp.MessageHeader = h
	// 绑定失败时 SMSC 可能不返回消息体
	if len(frame) == 0 {
		return nil
	}
	r := newFrameReader(frame)
	resp.SystemId = r.cstr("system_id", MaxSystemIdLength)
	resp.Tlvs = r.tlvs()
	return r.err
}

// ScInterfaceVersion SMSC 支持的协议版本，未携带时返回 false
func (resp *BindResp) ScInterfaceVersion() (uint8, bool) {
	v, ok := findTLV(resp.Tlvs, TAG_SC_INTERFACE_VERSION)
	if !ok || len(v) != 1 {
		return 0, false
	}
	return v[0], true
}

func (resp *BindResp) String() string {
	return fmt.Sprintf("{ Header: %s, SystemId: %s, Tlvs: %v }", resp.MessageHeader, resp.SystemId, resp.Tlvs)
}

// IsBind 是否绑定请求
func IsBind(commandId uint32) bool {
	return commandId == BIND_TRANSMITTER || commandId == BIND_RECEIVER || commandId == BIND_TRANSCEIVER
}
