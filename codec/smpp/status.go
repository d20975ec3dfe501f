package smpp

import (
	"fmt"
)

// 命令状态，见 SMPP v3.4 5.1.3
const (
	ESME_ROK              = uint32(0x00000000) // No Error
	ESME_RINVMSGLEN       = uint32(0x00000001) // Message Length is invalid
	ESME_RINVCMDLEN       = uint32(0x00000002) // Command Length is invalid
	ESME_RINVCMDID        = uint32(0x00000003) // Invalid Command ID
	ESME_RINVBNDSTS       = uint32(0x00000004) // Incorrect BIND Status for given command
	ESME_RALYBND          = uint32(0x00000005) // ESME Already in Bound State
	ESME_RSYSERR          = uint32(0x00000008) // System Error
	ESME_RINVSRCADR       = uint32(0x0000000A) // Invalid Source Address
	ESME_RINVDSTADR       = uint32(0x0000000B) // Invalid Dest Addr
	ESME_RBINDFAIL        = uint32(0x0000000D) // Bind Failed
	ESME_RINVPASWD        = uint32(0x0000000E) // Invalid Password
	ESME_RINVSYSID        = uint32(0x0000000F) // Invalid System ID
	ESME_RSUBMITFAIL      = uint32(0x00000045) // submit_sm or submit_multi failed
	ESME_RTHROTTLED       = uint32(0x00000058) // Throttling error (ESME has exceeded allowed message limits)
	ESME_RINVSCHED        = uint32(0x00000061) // Invalid Scheduled Delivery Time
	ESME_RINVEXPIRY       = uint32(0x00000062) // Invalid message validity period
	ESME_RX_T_APPN        = uint32(0x00000064) // ESME Receiver Temporary App Error Code
	ESME_RX_P_APPN        = uint32(0x00000065) // ESME Receiver Permanent App Error Code
	ESME_RX_R_APPN        = uint32(0x00000066) // ESME Receiver Reject Message Error Code
	ESME_RQUERYFAIL       = uint32(0x00000067) // query_sm request failed
	ESME_RINVOPTPARSTREAM = uint32(0x000000C0) // Error in the optional part of the PDU Body
	ESME_RUNKNOWNERR      = uint32(0x000000FF) // Unknown Error
)

var StatusMap = map[uint32]string{
	ESME_ROK:              "ESME_ROK",
	ESME_RINVMSGLEN:       "ESME_RINVMSGLEN",
	ESME_RINVCMDLEN:       "ESME_RINVCMDLEN",
	ESME_RINVCMDID:        "ESME_RINVCMDID",
	ESME_RINVBNDSTS:       "ESME_RINVBNDSTS",
	ESME_RALYBND:          "ESME_RALYBND",
	ESME_RSYSERR:          "ESME_RSYSERR",
	ESME_RINVSRCADR:       "ESME_RINVSRCADR",
	ESME_RINVDSTADR:       "ESME_RINVDSTADR",
	ESME_RBINDFAIL:        "ESME_RBINDFAIL",
	ESME_RINVPASWD:        "ESME_RINVPASWD",
	ESME_RINVSYSID:        "ESME_RINVSYSID",
	ESME_RSUBMITFAIL:      "ESME_RSUBMITFAIL",
	ESME_RTHROTTLED:       "ESME_RTHROTTLED",
	ESME_RINVSCHED:        "ESME_RINVSCHED",
	ESME_RINVEXPIRY:       "ESME_RINVEXPIRY",
	ESME_RX_T_APPN:        "ESME_RX_T_APPN",
	ESME_RX_P_APPN:        "ESME_RX_P_APPN",
	ESME_RX_R_APPN:        "ESME_RX_R_APPN",
	ESME_RQUERYFAIL:       "ESME_RQUERYFAIL",
	ESME_RINVOPTPARSTREAM: "ESME_RINVOPTPARSTREAM",
	ESME_RUNKNOWNERR:      "ESME_RUNKNOWNERR",
}

// StatusText 命令状态名称
func StatusText(status uint32) string {
	if s, ok := StatusMap[status]; ok {
		return s
	}
	return fmt.Sprintf("0x%08x", status)
}
