package wire

import (
	"testing"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestCompactSizeWidths(t *testing.T) {
	tests := []struct {
		name   string
		value  uint64
		width  int
		prefix byte
	}{
		{"zero", 0, 1, 0x00},
		{"max single byte", 0xfc, 1, 0xfc},
		{"min uint16", 0xfd, 3, 0xfd},
		{"max uint16", 0xffff, 3, 0xfd},
		{"min uint32", 0x10000, 5, 0xfe},
		{"max uint32", 0xffffffff, 5, 0xfe},
		{"min uint64", 0x100000000, 9, 0xff},
		{"max uint64", ^uint64(0), 9, 0xff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := CompactSizeBytes(tt.value)
			require.Len(t, b, tt.width)
			assert.Equal(t, tt.width, CompactSizeLen(tt.value))
			assert.Equal(t, tt.prefix, b[0])

			v, n, err := DecodeCompactSize(b, 0, len(b))
			require.NoError(t, err)
			assert.Equal(t, tt.value, v)
			assert.Equal(t, tt.width, n)

			// one byte short of the width the prefix demands
			_, _, err = DecodeCompactSize(b[:len(b)-1], 0, len(b)-1)
			assert.Error(t, err)
		})
	}
}

func TestCompactSizeDecodeOffset(t *testing.T) {
	buf := append([]byte{0xaa, 0xbb}, CompactSizeBytes(70000)...)

	v, n, err := DecodeCompactSize(buf, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(70000), v)
	assert.Equal(t, 5, n)

	// remaining shorter than the buffer still limits the read
	_, _, err = DecodeCompactSize(buf, 2, 4)
	assert.Error(t, err)

	_, _, err = DecodeCompactSize(buf, len(buf), 1)
	assert.Error(t, err)
}

func TestCompactSizeNonCanonical(t *testing.T) {
	for _, b := range [][]byte{
		{0xfd, 0xfc, 0x00},
		{0xfe, 0xff, 0xff, 0x00, 0x00},
		{0xff, 0xff, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x00},
	} {
		_, _, err := DecodeCompactSize(b, 0, len(b))
		assert.Error(t, err, "%x", b)
	}
}

func TestCompactSizeProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := rapid.Uint64().Draw(t, "v")

		b := CompactSizeBytes(v)
		if len(b) != CompactSizeLen(v) {
			t.Fatalf("width %d, CompactSizeLen %d", len(b), CompactSizeLen(v))
		}

		got, n, err := DecodeCompactSize(b, 0, len(b))
		if err != nil || got != v || n != len(b) {
			t.Fatalf("decode %x: got %d n %d err %v", b, got, n, err)
		}

		ref, refLen := bt.NewVarIntFromBytes(b)
		if uint64(ref) != v || refLen != len(b) {
			t.Fatalf("reference decoder disagrees for %d", v)
		}
	})
}
