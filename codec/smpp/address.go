package smpp

import (
	"fmt"
)

// Type of Number
const (
	TON_UNKNOWN       = uint8(0x00)
	TON_INTERNATIONAL = uint8(0x01)
	TON_NATIONAL      = uint8(0x02)
	TON_NETWORK       = uint8(0x03)
	TON_SUBSCRIBER    = uint8(0x04)
	TON_ALPHANUMERIC  = uint8(0x05)
	TON_ABBREVIATED   = uint8(0x06)
)

// Numbering Plan Indicator
const (
	NPI_UNKNOWN  = uint8(0x00)
	NPI_ISDN     = uint8(0x01) // E163/E164
	NPI_DATA     = uint8(0x03) // X.121
	NPI_TELEX    = uint8(0x04) // F.69
	NPI_NATIONAL = uint8(0x08)
	NPI_PRIVATE  = uint8(0x09)
	NPI_ERMES    = uint8(0x0A)
	NPI_INTERNET = uint8(0x0E) // IP
)

// 地址字段最大长度，包含结尾的0
const (
	MaxAddrLength         = 21
	MaxAddressRangeLength = 41
)

// Address 号码，由号码类型、编号方案和号码组成
type Address struct {
	Ton  uint8
	Npi  uint8
	Addr string
}

func NewAddress(ton, npi uint8, addr string) Address {
	return Address{Ton: ton, Npi: npi, Addr: addr}
}

func (a Address) String() string {
	return fmt.Sprintf("%d:%d:%s", a.Ton, a.Npi, a.Addr)
}

func (a Address) encodedLen() int {
	return 2 + cstrLen(a.Addr, MaxAddrLength)
}

func (a Address) put(w *frameWriter) {
	w.u8(a.Ton)
	w.u8(a.Npi)
	w.cstr(a.Addr, MaxAddrLength)
}

func readAddress(r *frameReader, field string) Address {
	a := Address{}
	a.Ton = r.u8()
	a.Npi = r.u8()
	a.Addr = r.cstr(field, MaxAddrLength)
	return a
}
