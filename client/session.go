package client

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/aaronwong1989/smppc/codec/smpp"
)

// BindMode ESME 绑定方式
type BindMode uint8

const (
	Transmitter BindMode = iota + 1 // 只发送
	Receiver                        // 只接收
	Transceiver                     // 收发
)

func (m BindMode) String() string {
	switch m {
	case Transmitter:
		return "transmitter"
	case Receiver:
		return "receiver"
	case Transceiver:
		return "transceiver"
	default:
		return fmt.Sprintf("BindMode(%d)", uint8(m))
	}
}

// ParseBindMode 解析配置中的绑定方式，不区分大小写
func ParseBindMode(s string) (BindMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "transmitter", "tx":
		return Transmitter, nil
	case "receiver", "rx":
		return Receiver, nil
	case "transceiver", "trx", "":
		return Transceiver, nil
	default:
		return 0, errors.Errorf("unknown bind mode %q", s)
	}
}

// bindCommand 绑定方式对应的命令字
func (m BindMode) bindCommand() (uint32, bool) {
	switch m {
	case Transmitter:
		return smpp.BIND_TRANSMITTER, true
	case Receiver:
		return smpp.BIND_RECEIVER, true
	case Transceiver:
		return smpp.BIND_TRANSCEIVER, true
	default:
		return 0, false
	}
}

// CanSubmit receiver 方式不能提交短信
func (m BindMode) CanSubmit() bool {
	return m == Transmitter || m == Transceiver
}

// Session 绑定参数，创建后不可修改
type Session struct {
	mode             BindMode
	systemId         string
	password         string
	systemType       string
	address          smpp.Address
	interfaceVersion uint8
}

type SessionOption func(s *Session)

func WithPassword(password string) SessionOption {
	return func(s *Session) {
		s.password = password
	}
}

func WithSystemType(systemType string) SessionOption {
	return func(s *Session) {
		s.systemType = systemType
	}
}

// WithAddress 源地址，同时作为绑定请求的 addr_ton、addr_npi、address_range
func WithAddress(address smpp.Address) SessionOption {
	return func(s *Session) {
		s.address = address
	}
}

func WithInterfaceVersion(version uint8) SessionOption {
	return func(s *Session) {
		s.interfaceVersion = version
	}
}

func NewSession(mode BindMode, systemId string, opts ...SessionOption) *Session {
	s := &Session{
		mode:             mode,
		systemId:         systemId,
		address:          smpp.NewAddress(smpp.TON_UNKNOWN, smpp.NPI_UNKNOWN, ""),
		interfaceVersion: smpp.SMPP_V34,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Mode() BindMode {
	return s.mode
}

func (s *Session) SystemId() string {
	return s.systemId
}

func (s *Session) Password() string {
	return s.password
}

func (s *Session) SystemType() string {
	return s.systemType
}

func (s *Session) Address() smpp.Address {
	return s.address
}

func (s *Session) InterfaceVersion() uint8 {
	return s.interfaceVersion
}

func (s *Session) String() string {
	return fmt.Sprintf("{ Mode: %s, SystemId: %s, SystemType: %s, Address: %s, InterfaceVersion: %x }",
		s.mode, s.systemId, s.systemType, s.address, s.interfaceVersion)
}
