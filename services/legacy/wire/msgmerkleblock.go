package wire

import (
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// maxFlagsPerMerkleBlock bounds the flag bytes of a merkleblock.
const maxFlagsPerMerkleBlock = MaxMessagePayload / 8

// maxHashesPerMerkleBlock bounds the hashes of a merkleblock.
const maxHashesPerMerkleBlock = MaxMessagePayload / HashSize

// MsgMerkleBlock is a filtered block: header, partial merkle tree hashes and flags.
type MsgMerkleBlock struct {
	Header       BlockHeader
	Transactions uint32
	Hashes       []chainhash.Hash
	Flags        []byte
}

func (msg MsgMerkleBlock) Command() Command { return CmdMerkleBlock }

func (msg MsgMerkleBlock) Payload() []byte {
	b := make([]byte, 0, BlockHeaderSize+4+9+len(msg.Hashes)*HashSize+9+len(msg.Flags))
	b = msg.Header.appendTo(b)
	b = appendUint32(b, msg.Transactions)
	b = appendHashes(b, msg.Hashes)

	return appendVarBytes(b, msg.Flags)
}

func parseMsgMerkleBlock(payload []byte) (MsgMerkleBlock, error) {
	var (
		msg MsgMerkleBlock
		err error
	)

	r := newPayloadReader(CmdMerkleBlock, payload)

	if msg.Header, err = r.readBlockHeader("block header"); err != nil {
		return msg, err
	}

	if msg.Transactions, err = r.readUint32("transaction count"); err != nil {
		return msg, err
	}

	if msg.Hashes, err = r.readHashes("hash count", maxHashesPerMerkleBlock); err != nil {
		return msg, err
	}

	if msg.Flags, err = r.readVarBytes("flag count", maxFlagsPerMerkleBlock); err != nil {
		return msg, err
	}

	return msg, r.done()
}
