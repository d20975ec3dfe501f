package smpp

import (
	"github.com/pkg/errors"
)

var (
	// ErrMalformedPdu 报文长度或字段不合法
	ErrMalformedPdu = errors.New("smpp: malformed pdu")
	// ErrUnknownPdu 不支持的命令字
	ErrUnknownPdu = errors.New("smpp: unknown pdu")
)
