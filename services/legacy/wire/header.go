package wire

import (
	"bytes"
	"encoding/binary"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/legacy-p2p/errors"
)

// MessageHeader is the 24 byte frame prefix of every message.
type MessageHeader struct {
	net      BitcoinNet
	command  [CommandSize]byte
	length   uint32
	checksum [4]byte
}

// NewMessageHeader starts a header for an outbound message. Length and
// checksum are filled in by SetChecksum once the payload is known.
func NewMessageHeader(net BitcoinNet, cmd Command) *MessageHeader {
	h := &MessageHeader{net: net}
	copy(h.command[:], cmd.String())

	return h
}

// ParseMessageHeader decodes a received header. The command must be printable
// ASCII followed only by NUL padding.
func ParseMessageHeader(b []byte) (*MessageHeader, error) {
	if len(b) != MessageHeaderSize {
		return nil, errors.NewFrameInvalidError("message header must be %d bytes, got %d", MessageHeaderSize, len(b))
	}

	h := &MessageHeader{
		net:    BitcoinNet(binary.LittleEndian.Uint32(b[0:4])),
		length: binary.LittleEndian.Uint32(b[16:20]),
	}
	copy(h.command[:], b[4:16])
	copy(h.checksum[:], b[20:24])

	if err := validateCommand(h.command[:]); err != nil {
		return nil, err
	}

	return h, nil
}

func validateCommand(c []byte) error {
	end := bytes.IndexByte(c, 0)
	if end == -1 {
		end = len(c)
	}

	if end == 0 {
		return errors.NewFrameInvalidError("empty command")
	}

	for _, ch := range c[:end] {
		if ch < 0x20 || ch > 0x7e {
			return errors.NewFrameInvalidError("command contains non printable byte 0x%02x", ch)
		}
	}

	for _, ch := range c[end:] {
		if ch != 0 {
			return errors.NewFrameInvalidError("command %q is not NUL padded", c)
		}
	}

	return nil
}

// Checksum returns the first four bytes of the double SHA-256 of payload.
func Checksum(payload []byte) [4]byte {
	var c [4]byte
	copy(c[:], chainhash.DoubleHashB(payload)[:4])

	return c
}

// SetChecksum records the payload size and checksum of an outbound message.
func (h *MessageHeader) SetChecksum(payloadSize uint32, checksum [4]byte) {
	h.length = payloadSize
	h.checksum = checksum
}

func (h *MessageHeader) Checksum() [4]byte {
	return h.checksum
}

// Command returns the command string with the NUL padding removed.
func (h *MessageHeader) Command() string {
	return string(bytes.TrimRight(h.command[:], "\x00"))
}

func (h *MessageHeader) Length() uint32 {
	return h.length
}

func (h *MessageHeader) Network() BitcoinNet {
	return h.net
}

func (h *MessageHeader) Bytes() []byte {
	b := make([]byte, 0, MessageHeaderSize)
	b = appendUint32(b, uint32(h.net))
	b = append(b, h.command[:]...)
	b = appendUint32(b, h.length)

	return append(b, h.checksum[:]...)
}

// VerifyPayload checks payload against the length and checksum in the header.
func (h *MessageHeader) VerifyPayload(payload []byte) error {
	if uint32(len(payload)) != h.length {
		return errors.NewFrameInvalidError("[%s] payload is %d bytes, header says %d", h.Command(), len(payload), h.length)
	}

	if computed := Checksum(payload); computed != h.checksum {
		return errors.NewChecksumMismatchError("[%s] computed checksum %x, header claims %x", h.Command(), computed, h.checksum)
	}

	return nil
}
