package smpp

import (
	"fmt"
)

// 可选参数标签
const (
	TAG_RECEIPTED_MESSAGE_ID = uint16(0x001E)
	TAG_SC_INTERFACE_VERSION = uint16(0x0210)
	TAG_MESSAGE_PAYLOAD      = uint16(0x0424)
	TAG_MESSAGE_STATE        = uint16(0x0427)
)

// TLV 可选参数
type TLV struct {
	Tag   uint16
	Value []byte
}

func (t TLV) String() string {
	return fmt.Sprintf("{0x%04x: %x}", t.Tag, t.Value)
}

func findTLV(tlvs []TLV, tag uint16) ([]byte, bool) {
	for _, t := range tlvs {
		if t.Tag == tag {
			return t.Value, true
		}
	}
	return nil, false
}

func tlvsLen(tlvs []TLV) int {
	l := 0
	for _, t := range tlvs {
		l += 4 + len(t.Value)
	}
	return l
}
