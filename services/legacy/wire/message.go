package wire

import (
	"io"

	"github.com/bsv-blockchain/legacy-p2p/errors"
)

// Message is implemented by every message type. Payload is pure: it serialises
// the typed fields and has no side effects.
type Message interface {
	Command() Command
	Payload() []byte
}

// validator is implemented by messages whose fields carry limits that must hold
// before they may be sent.
type validator interface {
	validate() error
}

// Encode builds the full frame for msg: a header carrying length and checksum
// followed by the payload.
func Encode(net BitcoinNet, msg Message) ([]byte, error) {
	if v, ok := msg.(validator); ok {
		if err := v.validate(); err != nil {
			return nil, err
		}
	}

	payload := msg.Payload()
	if len(payload) > MaxMessagePayload {
		return nil, errors.NewMessageInvalidError("[%s] payload of %d bytes exceeds max %d", msg.Command(), len(payload), MaxMessagePayload)
	}

	hdr := NewMessageHeader(net, msg.Command())
	hdr.SetChecksum(uint32(len(payload)), Checksum(payload))

	frame := make([]byte, 0, MessageHeaderSize+len(payload))
	frame = append(frame, hdr.Bytes()...)

	return append(frame, payload...), nil
}

// ParseMessage verifies the payload against the header and decodes it into the
// typed message named by the header's command.
func ParseMessage(hdr *MessageHeader, payload []byte) (Message, error) {
	if err := hdr.VerifyPayload(payload); err != nil {
		return nil, err
	}

	var (
		msg Message
		err error
	)

	switch LookupCommand(hdr.Command()) {
	case CmdVersion:
		msg, err = parseMsgVersion(payload)
	case CmdVerAck:
		msg, err = parseMsgVerAck(payload)
	case CmdPing:
		msg, err = parseMsgPing(payload)
	case CmdPong:
		msg, err = parseMsgPong(payload)
	case CmdInv:
		msg, err = parseMsgInv(payload)
	case CmdGetData:
		msg, err = parseMsgGetData(payload)
	case CmdNotFound:
		msg, err = parseMsgNotFound(payload)
	case CmdGetHeaders:
		msg, err = parseMsgGetHeaders(payload)
	case CmdGetBlocks:
		msg, err = parseMsgGetBlocks(payload)
	case CmdHeaders:
		msg, err = parseMsgHeaders(payload)
	case CmdGetCFHeaders:
		msg, err = parseMsgGetCFHeaders(payload)
	case CmdCFHeaders:
		msg, err = parseMsgCFHeaders(payload)
	case CmdGetCFilters:
		msg, err = parseMsgGetCFilters(payload)
	case CmdCFilter:
		msg, err = parseMsgCFilter(payload)
	case CmdGetCFCheckpt:
		msg, err = parseMsgGetCFCheckpt(payload)
	case CmdCFCheckpt:
		msg, err = parseMsgCFCheckpt(payload)
	case CmdReject:
		msg, err = parseMsgReject(payload)
	case CmdTx:
		msg, err = parseMsgTx(payload)
	case CmdBlock:
		msg, err = parseMsgBlock(payload)
	case CmdMerkleBlock:
		msg, err = parseMsgMerkleBlock(payload)
	case CmdCmpctBlock:
		msg, err = parseMsgCmpctBlock(payload)
	case CmdSendCmpct:
		msg, err = parseMsgSendCmpct(payload)
	case CmdGetBlockTxn:
		msg, err = parseMsgGetBlockTxn(payload)
	case CmdBlockTxn:
		msg, err = parseMsgBlockTxn(payload)
	case CmdAddr:
		msg, err = parseMsgAddr(payload)
	case CmdGetAddr:
		msg, err = parseMsgGetAddr(payload)
	case CmdFilterLoad:
		msg, err = parseMsgFilterLoad(payload)
	case CmdFilterAdd:
		msg, err = parseMsgFilterAdd(payload)
	case CmdFilterClear:
		msg, err = parseMsgFilterClear(payload)
	case CmdMemPool:
		msg, err = parseMsgMemPool(payload)
	case CmdSendHeaders:
		msg, err = parseMsgSendHeaders(payload)
	case CmdFeeFilter:
		msg, err = parseMsgFeeFilter(payload)
	default:
		return nil, errors.NewUnknownCommandError("unknown command %q", hdr.Command())
	}

	if err != nil {
		return nil, err
	}

	return msg, nil
}

// ReadMessage reads one frame from r. The whole payload is always consumed, so
// an unknown command error leaves the stream positioned at the next frame.
// It returns the number of bytes read alongside the message.
func ReadMessage(r io.Reader, net BitcoinNet) (int, Message, error) {
	var hdrBytes [MessageHeaderSize]byte

	n, err := io.ReadFull(r, hdrBytes[:])
	if err != nil {
		return n, nil, readError(err)
	}

	hdr, err := ParseMessageHeader(hdrBytes[:])
	if err != nil {
		return n, nil, err
	}

	if hdr.Network() != net {
		return n, nil, errors.NewFrameInvalidError("message from network %s, expected %s", hdr.Network(), net)
	}

	if hdr.Length() > MaxMessagePayload {
		return n, nil, errors.NewFrameInvalidError("[%s] payload length %d exceeds max %d", hdr.Command(), hdr.Length(), MaxMessagePayload)
	}

	payload := make([]byte, hdr.Length())

	read, err := io.ReadFull(r, payload)
	n += read

	if err != nil {
		return n, nil, readError(err)
	}

	msg, err := ParseMessage(hdr, payload)

	return n, msg, err
}

// WriteMessage encodes msg and writes the frame to w, returning the bytes written.
func WriteMessage(w io.Writer, net BitcoinNet, msg Message) (int, error) {
	frame, err := Encode(net, msg)
	if err != nil {
		return 0, err
	}

	n, err := w.Write(frame)
	if err != nil {
		return n, errors.NewNetworkError("[%s] write failed", msg.Command(), err)
	}

	return n, nil
}

func readError(err error) error {
	if err == io.EOF {
		return errors.NewNetworkConnectionClosedError("connection closed by remote", err)
	}

	return errors.NewNetworkError("read failed", err)
}
