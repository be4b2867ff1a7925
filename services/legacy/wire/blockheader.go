package wire

import (
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// BlockHeaderSize is the size of a serialized block header.
const BlockHeaderSize = 80

// BlockHeader is the 80 byte header of a block.
type BlockHeader struct {
	Version    int32
	PrevBlock  chainhash.Hash
	MerkleRoot chainhash.Hash
	Timestamp  uint32
	Bits       uint32
	Nonce      uint32
}

// BlockHash is the double SHA-256 of the serialized header.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	return chainhash.DoubleHashH(h.Bytes())
}

func (h *BlockHeader) Bytes() []byte {
	return h.appendTo(make([]byte, 0, BlockHeaderSize))
}

func (h *BlockHeader) appendTo(b []byte) []byte {
	b = appendUint32(b, uint32(h.Version))
	b = append(b, h.PrevBlock[:]...)
	b = append(b, h.MerkleRoot[:]...)
	b = appendUint32(b, h.Timestamp)
	b = appendUint32(b, h.Bits)

	return appendUint32(b, h.Nonce)
}

func (r *payloadReader) readBlockHeader(field string) (BlockHeader, error) {
	var (
		h   BlockHeader
		err error
	)

	if err = r.need(BlockHeaderSize, field); err != nil {
		return h, err
	}

	h.Version, _ = r.readInt32(field)
	h.PrevBlock, _ = r.readHash(field)
	h.MerkleRoot, _ = r.readHash(field)
	h.Timestamp, _ = r.readUint32(field)
	h.Bits, _ = r.readUint32(field)
	h.Nonce, _ = r.readUint32(field)

	return h, nil
}

// ParseBlockHeader decodes exactly 80 bytes.
func ParseBlockHeader(b []byte) (BlockHeader, error) {
	r := newPayloadReader(CmdBlock, b)

	h, err := r.readBlockHeader("block header")
	if err != nil {
		return h, err
	}

	return h, r.done()
}
