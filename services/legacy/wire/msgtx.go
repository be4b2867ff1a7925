package wire

import (
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/legacy-p2p/errors"
)

// MsgTx carries a raw transaction. The bytes are forwarded, never interpreted.
type MsgTx struct {
	Raw []byte
}

func NewMsgTx(raw []byte) MsgTx { return MsgTx{Raw: raw} }

func (msg MsgTx) Command() Command { return CmdTx }
func (msg MsgTx) Payload() []byte  { return msg.Raw }

// TxHash is the double SHA-256 of the raw bytes.
func (msg MsgTx) TxHash() chainhash.Hash {
	return chainhash.DoubleHashH(msg.Raw)
}

func parseMsgTx(payload []byte) (MsgTx, error) {
	if len(payload) == 0 {
		return MsgTx{}, errors.NewMessageInvalidError("[tx] empty payload")
	}

	return MsgTx{Raw: payload}, nil
}

// MsgBlock carries a raw block. Only the 80 byte header is decoded.
type MsgBlock struct {
	Header BlockHeader
	Raw    []byte
}

// NewMsgBlock decodes the header of raw for logging and hashing.
func NewMsgBlock(raw []byte) (MsgBlock, error) {
	return parseMsgBlock(raw)
}

func (msg MsgBlock) Command() Command { return CmdBlock }
func (msg MsgBlock) Payload() []byte  { return msg.Raw }

func (msg MsgBlock) BlockHash() chainhash.Hash {
	return msg.Header.BlockHash()
}

func parseMsgBlock(payload []byte) (MsgBlock, error) {
	r := newPayloadReader(CmdBlock, payload)

	header, err := r.readBlockHeader("block header")
	if err != nil {
		return MsgBlock{}, err
	}

	return MsgBlock{Header: header, Raw: payload}, nil
}
