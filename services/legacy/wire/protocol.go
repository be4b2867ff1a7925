package wire

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// ProtocolVersion is the latest protocol version this package speaks.
	ProtocolVersion uint32 = 70016

	// MinAcceptableProtocolVersion is the lowest version a remote may
	// advertise in its version message.
	MinAcceptableProtocolVersion uint32 = 70001

	// SendHeadersVersion is the version that added the sendheaders message.
	SendHeadersVersion uint32 = 70012

	// FeeFilterVersion is the version that added the feefilter message.
	FeeFilterVersion uint32 = 70013

	// CompactBlocksVersion is the version that added cmpctblock, sendcmpct,
	// getblocktxn and blocktxn.
	CompactBlocksVersion uint32 = 70014

	// CommandSize is the fixed width of the command field in a message header.
	CommandSize = 12

	// MessageHeaderSize is the number of bytes in a message header:
	// magic 4 + command 12 + payload length 4 + checksum 4.
	MessageHeaderSize = 24

	// MaxMessagePayload is the largest payload ReadMessage accepts.
	MaxMessagePayload = 32 * 1024 * 1024

	// HashSize is the size of the hashes carried in messages.
	HashSize = 32
)

// BitcoinNet represents which network a message belongs to.
type BitcoinNet uint32

const (
	MainNet  BitcoinNet = 0xd9b4bef9
	TestNet  BitcoinNet = 0xdab5bffa // regression test network
	TestNet3 BitcoinNet = 0x0709110b
	SigNet   BitcoinNet = 0x40cf030a
)

var bnStrings = map[BitcoinNet]string{
	MainNet:  "MainNet",
	TestNet:  "TestNet",
	TestNet3: "TestNet3",
	SigNet:   "SigNet",
}

func (n BitcoinNet) String() string {
	if s, ok := bnStrings[n]; ok {
		return s
	}

	return fmt.Sprintf("Unknown BitcoinNet (%d)", uint32(n))
}

// ServiceFlag identifies services supported by a peer.
type ServiceFlag uint64

const (
	SFNodeNetwork ServiceFlag = 1 << iota
	SFNodeGetUTXO
	SFNodeBloom
	SFNodeWitness
	SFNodeXthin
	SFNodeBit5
	SFNodeCF
	SFNode2X
)

// SFNodeNetworkLimited is BIP159: the peer serves the last 288 blocks.
const SFNodeNetworkLimited ServiceFlag = 1 << 10

// orderedSFStrings keeps String output stable.
var orderedSFStrings = []struct {
	flag ServiceFlag
	name string
}{
	{SFNodeNetwork, "SFNodeNetwork"},
	{SFNodeGetUTXO, "SFNodeGetUTXO"},
	{SFNodeBloom, "SFNodeBloom"},
	{SFNodeWitness, "SFNodeWitness"},
	{SFNodeXthin, "SFNodeXthin"},
	{SFNodeBit5, "SFNodeBit5"},
	{SFNodeCF, "SFNodeCF"},
	{SFNode2X, "SFNode2X"},
	{SFNodeNetworkLimited, "SFNodeNetworkLimited"},
}

// HasFlag reports whether all bits of s are set.
func (f ServiceFlag) HasFlag(s ServiceFlag) bool {
	return f&s == s
}

// String returns the flags in human-readable form, e.g. "SFNodeNetwork|SFNodeCF".
func (f ServiceFlag) String() string {
	if f == 0 {
		return "0x0"
	}

	var names []string

	for _, e := range orderedSFStrings {
		if f&e.flag == e.flag {
			names = append(names, e.name)
			f -= e.flag
		}
	}

	if f != 0 {
		names = append(names, "0x"+strconv.FormatUint(uint64(f), 16))
	}

	return strings.Join(names, "|")
}

// FilterType is the type of a committed block filter (BIP157).
type FilterType uint8

// GCSFilterRegular is the regular filter type.
const GCSFilterRegular FilterType = 0

func (t FilterType) String() string {
	if t == GCSFilterRegular {
		return "regular"
	}

	return fmt.Sprintf("FilterType(%d)", uint8(t))
}
