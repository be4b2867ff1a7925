package wire

import (
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/legacy-p2p/errors"
)

// ShortIDSize is the wire size of a compact block short transaction id.
const ShortIDSize = 6

// ShortID is a BIP152 short transaction id.
type ShortID [ShortIDSize]byte

const maxShortIDs = MaxMessagePayload / ShortIDSize

// MsgCmpctBlock is a BIP152 compact block. The prefilled transactions section
// is kept as raw bytes.
type MsgCmpctBlock struct {
	Header    BlockHeader
	Nonce     uint64
	ShortIDs  []ShortID
	Prefilled []byte
}

func (msg MsgCmpctBlock) Command() Command { return CmdCmpctBlock }

func (msg MsgCmpctBlock) Payload() []byte {
	b := make([]byte, 0, BlockHeaderSize+8+9+len(msg.ShortIDs)*ShortIDSize+len(msg.Prefilled))
	b = msg.Header.appendTo(b)
	b = appendUint64(b, msg.Nonce)
	b = AppendCompactSize(b, uint64(len(msg.ShortIDs)))

	for i := range msg.ShortIDs {
		b = append(b, msg.ShortIDs[i][:]...)
	}

	return append(b, msg.Prefilled...)
}

func parseMsgCmpctBlock(payload []byte) (MsgCmpctBlock, error) {
	var (
		msg MsgCmpctBlock
		err error
	)

	r := newPayloadReader(CmdCmpctBlock, payload)

	if msg.Header, err = r.readBlockHeader("block header"); err != nil {
		return msg, err
	}

	if msg.Nonce, err = r.readUint64("nonce"); err != nil {
		return msg, err
	}

	count, err := r.readCount("short id count", maxShortIDs, ShortIDSize)
	if err != nil {
		return msg, err
	}

	if count > 0 {
		msg.ShortIDs = make([]ShortID, count)
	}

	for i := range msg.ShortIDs {
		b, _ := r.next(ShortIDSize, "short id")
		copy(msg.ShortIDs[i][:], b)
	}

	msg.Prefilled = r.rest()

	return msg, nil
}

// MsgSendCmpct announces compact block support.
type MsgSendCmpct struct {
	Announce bool
	Version  uint64
}

func (msg MsgSendCmpct) Command() Command { return CmdSendCmpct }

func (msg MsgSendCmpct) Payload() []byte {
	b := make([]byte, 0, 9)
	if msg.Announce {
		b = append(b, 1)
	} else {
		b = append(b, 0)
	}

	return appendUint64(b, msg.Version)
}

func parseMsgSendCmpct(payload []byte) (MsgSendCmpct, error) {
	var msg MsgSendCmpct

	r := newPayloadReader(CmdSendCmpct, payload)
	if err := r.need(9, "sendcmpct"); err != nil {
		return msg, err
	}

	announce, _ := r.readUint8("announce")
	msg.Announce = announce != 0
	msg.Version, _ = r.readUint64("version")

	return msg, r.done()
}

// MsgGetBlockTxn asks for transactions of a compact block by absolute index.
// On the wire the indexes are differentially encoded.
type MsgGetBlockTxn struct {
	BlockHash chainhash.Hash
	Indexes   []uint64
}

func (msg MsgGetBlockTxn) Command() Command { return CmdGetBlockTxn }

func (msg MsgGetBlockTxn) validate() error {
	for i := 1; i < len(msg.Indexes); i++ {
		if msg.Indexes[i] <= msg.Indexes[i-1] {
			return errors.NewMessageInvalidError("[getblocktxn] indexes must be strictly increasing, %d follows %d", msg.Indexes[i], msg.Indexes[i-1])
		}
	}

	return nil
}

func (msg MsgGetBlockTxn) Payload() []byte {
	b := make([]byte, 0, HashSize+9+len(msg.Indexes)*3)
	b = append(b, msg.BlockHash[:]...)
	b = AppendCompactSize(b, uint64(len(msg.Indexes)))

	for i, idx := range msg.Indexes {
		if i > 0 {
			idx -= msg.Indexes[i-1] + 1
		}

		b = AppendCompactSize(b, idx)
	}

	return b
}

func parseMsgGetBlockTxn(payload []byte) (MsgGetBlockTxn, error) {
	var (
		msg MsgGetBlockTxn
		err error
	)

	r := newPayloadReader(CmdGetBlockTxn, payload)

	if msg.BlockHash, err = r.readHash("block hash"); err != nil {
		return msg, err
	}

	count, err := r.readCount("index count", MaxMessagePayload, 1)
	if err != nil {
		return msg, err
	}

	if count > 0 {
		msg.Indexes = make([]uint64, count)
	}

	var next uint64

	for i := range msg.Indexes {
		diff, err := r.readCompactSize("index")
		if err != nil {
			return msg, err
		}

		idx := next + diff
		if idx < next || idx == ^uint64(0) {
			return msg, r.fail("index %d overflows", i)
		}

		msg.Indexes[i] = idx
		next = idx + 1
	}

	return msg, r.done()
}

// MsgBlockTxn answers getblocktxn. The transactions section is kept as raw bytes.
type MsgBlockTxn struct {
	BlockHash    chainhash.Hash
	Transactions []byte
}

func (msg MsgBlockTxn) Command() Command { return CmdBlockTxn }

func (msg MsgBlockTxn) Payload() []byte {
	b := make([]byte, 0, HashSize+len(msg.Transactions))
	b = append(b, msg.BlockHash[:]...)

	return append(b, msg.Transactions...)
}

func parseMsgBlockTxn(payload []byte) (MsgBlockTxn, error) {
	var (
		msg MsgBlockTxn
		err error
	)

	r := newPayloadReader(CmdBlockTxn, payload)

	if msg.BlockHash, err = r.readHash("block hash"); err != nil {
		return msg, err
	}

	msg.Transactions = r.rest()

	return msg, nil
}
