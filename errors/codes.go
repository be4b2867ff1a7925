package errors

import "strconv"

// ERR is the numeric error code carried by every *Error.
type ERR int32

const (
	ERR_UNKNOWN            ERR = 0
	ERR_INVALID_ARGUMENT   ERR = 1
	ERR_THRESHOLD_EXCEEDED ERR = 2
	ERR_NOT_FOUND          ERR = 3
	ERR_PROCESSING         ERR = 4
	ERR_CONFIGURATION      ERR = 5
	ERR_CONTEXT            ERR = 6
	ERR_CONTEXT_CANCELED   ERR = 7
	ERR_ERROR              ERR = 9
	ERR_SERVICE_ERROR      ERR = 10

	// network and transport
	ERR_NETWORK_ERROR             ERR = 50
	ERR_NETWORK_TIMEOUT           ERR = 51
	ERR_NETWORK_CONNECTION_CLOSED ERR = 52

	// wire framing and parsing
	ERR_FRAME_INVALID     ERR = 60
	ERR_CHECKSUM_MISMATCH ERR = 61
	ERR_MESSAGE_INVALID   ERR = 62
	ERR_UNKNOWN_COMMAND   ERR = 63

	// peer protocol
	ERR_PROTOCOL_VIOLATION  ERR = 70
	ERR_HANDSHAKE_TIMEOUT   ERR = 71
	ERR_CHECKPOINT_MISMATCH ERR = 72
	ERR_SELF_CONNECTION     ERR = 73
	ERR_PEER_SHUTDOWN       ERR = 74
)

var ERR_name = map[int32]string{
	0:  "UNKNOWN",
	1:  "INVALID_ARGUMENT",
	2:  "THRESHOLD_EXCEEDED",
	3:  "NOT_FOUND",
	4:  "PROCESSING",
	5:  "CONFIGURATION",
	6:  "CONTEXT",
	7:  "CONTEXT_CANCELED",
	9:  "ERROR",
	10: "SERVICE_ERROR",
	50: "NETWORK_ERROR",
	51: "NETWORK_TIMEOUT",
	52: "NETWORK_CONNECTION_CLOSED",
	60: "FRAME_INVALID",
	61: "CHECKSUM_MISMATCH",
	62: "MESSAGE_INVALID",
	63: "UNKNOWN_COMMAND",
	70: "PROTOCOL_VIOLATION",
	71: "HANDSHAKE_TIMEOUT",
	72: "CHECKPOINT_MISMATCH",
	73: "SELF_CONNECTION",
	74: "PEER_SHUTDOWN",
}

func (x ERR) String() string {
	if name, ok := ERR_name[int32(x)]; ok {
		return name
	}

	return "ERR(" + strconv.Itoa(int(x)) + ")"
}

func (x ERR) valid() bool {
	_, ok := ERR_name[int32(x)]
	return ok
}
