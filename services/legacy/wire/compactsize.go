package wire

import (
	"encoding/binary"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/legacy-p2p/errors"
)

// CompactSizeLen returns the number of bytes v occupies on the wire: 1, 3, 5 or 9.
func CompactSizeLen(v uint64) int {
	return bt.VarInt(v).Length()
}

// CompactSizeBytes returns the wire encoding of v.
func CompactSizeBytes(v uint64) []byte {
	return bt.VarInt(v).Bytes()
}

// AppendCompactSize appends the wire encoding of v to dst.
func AppendCompactSize(dst []byte, v uint64) []byte {
	return append(dst, bt.VarInt(v).Bytes()...)
}

// DecodeCompactSize reads a CompactSize starting at buf[offset]. remaining bounds
// how many bytes from offset may be consumed and is clamped to the buffer.
// It returns the value and the number of bytes consumed.
//
// Non-canonical encodings, where a wider form carries a value that fits a
// narrower one, are rejected.
func DecodeCompactSize(buf []byte, offset, remaining int) (uint64, int, error) {
	if offset < 0 || offset > len(buf) {
		return 0, 0, errors.NewMessageInvalidError("compact size offset %d out of range for %d bytes", offset, len(buf))
	}

	if remaining > len(buf)-offset {
		remaining = len(buf) - offset
	}

	if remaining < 1 {
		return 0, 0, errors.NewMessageInvalidError("compact size needs 1 byte, %d remaining", remaining)
	}

	b := buf[offset:]

	var (
		width int
		min   uint64
	)

	switch b[0] {
	case 0xfd:
		width, min = 3, 0xfd
	case 0xfe:
		width, min = 5, 0x10000
	case 0xff:
		width, min = 9, 0x100000000
	default:
		return uint64(b[0]), 1, nil
	}

	if remaining < width {
		return 0, 0, errors.NewMessageInvalidError("compact size prefix 0x%02x needs %d bytes, %d remaining", b[0], width, remaining)
	}

	var v uint64

	switch width {
	case 3:
		v = uint64(binary.LittleEndian.Uint16(b[1:3]))
	case 5:
		v = uint64(binary.LittleEndian.Uint32(b[1:5]))
	default:
		v = binary.LittleEndian.Uint64(b[1:9])
	}

	if v < min {
		return 0, 0, errors.NewMessageInvalidError("non-canonical compact size: value %d encoded in %d bytes", v, width)
	}

	return v, width, nil
}
