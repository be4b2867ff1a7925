package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/legacy-p2p/errors"
)

const (
	// MaxInvPerMsg is the maximum number of inventory vectors in one inv,
	// getdata or notfound message.
	MaxInvPerMsg = 50000

	// InvVectSize is the wire size of an inventory vector.
	InvVectSize = 4 + HashSize

	// InvWitnessFlag is set on the wire code of witness inventory types.
	InvWitnessFlag uint32 = 1 << 30
)

// InvType is the kind of object an inventory vector references.
type InvType uint8

const (
	InvTypeNone InvType = iota
	InvTypeTx
	InvTypeBlock
	InvTypeFilteredBlock
	InvTypeCompactBlock
	InvTypeWitnessTx
	InvTypeWitnessBlock
	InvTypeFilteredWitnessBlock
)

// invTypes is the one table mapping types to wire codes and display names.
// A new inventory type needs an entry here and nothing else.
var invTypes = [...]struct {
	typ  InvType
	code uint32
	name string
}{
	{InvTypeNone, 0, "none"},
	{InvTypeTx, 1, "transaction"},
	{InvTypeBlock, 2, "block"},
	{InvTypeFilteredBlock, 3, "filtered block"},
	{InvTypeCompactBlock, 4, "compact block"},
	{InvTypeWitnessTx, InvWitnessFlag | 1, "segwit transaction"},
	{InvTypeWitnessBlock, InvWitnessFlag | 2, "segwit block"},
	{InvTypeFilteredWitnessBlock, InvWitnessFlag | 3, "filtered segwit block"},
}

// Code returns the wire code of t and whether t is a known type.
func (t InvType) Code() (uint32, bool) {
	for _, e := range invTypes {
		if e.typ == t {
			return e.code, true
		}
	}

	return 0, false
}

func invTypeFromCode(code uint32) (InvType, bool) {
	for _, e := range invTypes {
		if e.code == code {
			return e.typ, true
		}
	}

	return 0, false
}

// DisplayType returns a human readable name for t. It never fails: unknown
// types display as "unknown".
func DisplayType(t InvType) string {
	for _, e := range invTypes {
		if e.typ == t {
			return e.name
		}
	}

	return "unknown"
}

func (t InvType) String() string {
	return DisplayType(t)
}

// InvVect names an object by type and hash.
type InvVect struct {
	Type InvType
	Hash chainhash.Hash
}

func NewInvVect(typ InvType, hash *chainhash.Hash) InvVect {
	return InvVect{Type: typ, Hash: *hash}
}

// Encode returns the 36 byte wire form. Types outside the table encode as none;
// message encoding rejects them before this is reached.
func (iv InvVect) Encode() [InvVectSize]byte {
	var b [InvVectSize]byte

	code, _ := iv.Type.Code()
	binary.LittleEndian.PutUint32(b[:4], code)
	copy(b[4:], iv.Hash[:])

	return b
}

// DecodeInvVect parses exactly 36 bytes into an InvVect.
func DecodeInvVect(b []byte) (InvVect, error) {
	if len(b) != InvVectSize {
		return InvVect{}, errors.NewMessageInvalidError("inventory vector must be %d bytes, got %d", InvVectSize, len(b))
	}

	code := binary.LittleEndian.Uint32(b[:4])

	typ, ok := invTypeFromCode(code)
	if !ok {
		return InvVect{}, errors.NewMessageInvalidError("unknown inventory type code 0x%08x", code)
	}

	iv := InvVect{Type: typ}
	copy(iv.Hash[:], b[4:])

	return iv, nil
}

func (iv InvVect) String() string {
	return fmt.Sprintf("%s %s", DisplayType(iv.Type), iv.Hash)
}

// IsBlock reports whether the vector announces a block that headers sync cares about.
func (iv InvVect) IsBlock() bool {
	return iv.Type == InvTypeBlock || iv.Type == InvTypeWitnessBlock
}
