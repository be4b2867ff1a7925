package wire

import (
	"github.com/bsv-blockchain/legacy-p2p/errors"
)

// MaxBlockHeadersPerMsg is the maximum number of headers in a headers message.
const MaxBlockHeadersPerMsg = 2000

// MsgHeaders answers getheaders. On the wire every header is followed by a
// transaction count that is always zero.
type MsgHeaders struct {
	Headers []BlockHeader
}

func NewMsgHeaders(headers ...BlockHeader) MsgHeaders {
	return MsgHeaders{Headers: headers}
}

func (msg MsgHeaders) Command() Command { return CmdHeaders }

func (msg MsgHeaders) validate() error {
	if len(msg.Headers) > MaxBlockHeadersPerMsg {
		return errors.NewMessageInvalidError("[headers] %d headers, max %d", len(msg.Headers), MaxBlockHeadersPerMsg)
	}

	return nil
}

func (msg MsgHeaders) Payload() []byte {
	b := make([]byte, 0, CompactSizeLen(uint64(len(msg.Headers)))+len(msg.Headers)*(BlockHeaderSize+1))
	b = AppendCompactSize(b, uint64(len(msg.Headers)))

	for i := range msg.Headers {
		b = msg.Headers[i].appendTo(b)
		b = append(b, 0)
	}

	return b
}

func parseMsgHeaders(payload []byte) (MsgHeaders, error) {
	var msg MsgHeaders

	r := newPayloadReader(CmdHeaders, payload)

	count, err := r.readCount("header count", MaxBlockHeadersPerMsg, BlockHeaderSize+1)
	if err != nil {
		return msg, err
	}

	if count > 0 {
		msg.Headers = make([]BlockHeader, count)
	}

	for i := range msg.Headers {
		if msg.Headers[i], err = r.readBlockHeader("header"); err != nil {
			return msg, err
		}

		var txCount uint64
		if txCount, err = r.readCompactSize("transaction count"); err != nil {
			return msg, err
		}

		if txCount != 0 {
			return msg, r.fail("header %d has transaction count %d", i, txCount)
		}
	}

	return msg, r.done()
}
