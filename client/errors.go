package client

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/aaronwong1989/smppc/codec/smpp"
)

var (
	// ErrMalformedFrame 报文长度不合法或消息体无法解码，连接随后关闭
	ErrMalformedFrame = smpp.ErrMalformedPdu
	// ErrUnknownPdu 不支持的命令字
	ErrUnknownPdu = smpp.ErrUnknownPdu

	ErrUnsolicitedResponse = errors.New("smpp: unsolicited response")
	ErrConnectTimeout      = errors.New("smpp: connect timeout")
	ErrTransport           = errors.New("smpp: transport error")
	ErrConnectionClosed    = errors.New("smpp: connection closed")
	ErrNotBound            = errors.New("smpp: not bound")
	ErrAlreadyConnected    = errors.New("smpp: already connected")
	ErrDuplicateSequence   = errors.New("smpp: duplicate sequence number")
	ErrRequestTimeout      = errors.New("smpp: request timeout")
	ErrBindRejected        = errors.New("smpp: bind rejected")
	ErrInvalidBindMode     = errors.New("smpp: operation not allowed in bind mode")
	ErrPending             = errors.New("smpp: result pending")
	ErrInvalidSession      = errors.New("smpp: invalid session")
)

// TransportError 传输层报告的错误
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "smpp: transport error: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// CommandStatusError 应答的 command_status 非0，或请求被 generic_nack 拒绝
type CommandStatusError struct {
	Request        uint32 // 请求命令字
	Response       uint32 // 应答命令字
	Status         uint32
	SequenceNumber uint32
}

func (e *CommandStatusError) Error() string {
	return fmt.Sprintf("smpp: %s answered by %s with status %s, seq=%d",
		smpp.CommandName(e.Request), smpp.CommandName(e.Response), smpp.StatusText(e.Status), e.SequenceNumber)
}

// Is 绑定请求的失败应答匹配 ErrBindRejected
func (e *CommandStatusError) Is(target error) bool {
	return target == ErrBindRejected && smpp.IsBind(e.Request)
}

// statusError 应答成功时返回 nil
func statusError(req smpp.Pdu, resp smpp.Pdu) error {
	h := resp.Header()
	if h.CommandId != smpp.GENERIC_NACK && h.IsOk() {
		return nil
	}
	return &CommandStatusError{
		Request:        req.Header().CommandId,
		Response:       h.CommandId,
		Status:         h.CommandStatus,
		SequenceNumber: h.SequenceNumber,
	}
}
