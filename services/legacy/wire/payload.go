package wire

import (
	"encoding/binary"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/legacy-p2p/errors"
)

// payloadReader walks a message payload. Every read checks the bytes left so a
// declared length can never run past the end of the payload.
type payloadReader struct {
	cmd Command
	buf []byte
	off int
}

func newPayloadReader(cmd Command, payload []byte) *payloadReader {
	return &payloadReader{cmd: cmd, buf: payload}
}

func (r *payloadReader) remaining() int {
	return len(r.buf) - r.off
}

func (r *payloadReader) fail(format string, args ...interface{}) error {
	return errors.NewMessageInvalidError("[%s] "+format, append([]interface{}{r.cmd}, args...)...)
}

func (r *payloadReader) need(n int, field string) error {
	if n < 0 || r.remaining() < n {
		return r.fail("%s needs %d bytes, %d remaining", field, n, r.remaining())
	}

	return nil
}

func (r *payloadReader) next(n int, field string) ([]byte, error) {
	if err := r.need(n, field); err != nil {
		return nil, err
	}

	b := r.buf[r.off : r.off+n]
	r.off += n

	return b, nil
}

// readBytes returns a copy so parsed messages never alias the read buffer.
func (r *payloadReader) readBytes(n int, field string) ([]byte, error) {
	b, err := r.next(n, field)
	if err != nil || n == 0 {
		return nil, err
	}

	out := make([]byte, n)
	copy(out, b)

	return out, nil
}

func (r *payloadReader) readUint8(field string) (uint8, error) {
	b, err := r.next(1, field)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

func (r *payloadReader) readUint16BE(field string) (uint16, error) {
	b, err := r.next(2, field)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint16(b), nil
}

func (r *payloadReader) readUint32(field string) (uint32, error) {
	b, err := r.next(4, field)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(b), nil
}

func (r *payloadReader) readInt32(field string) (int32, error) {
	v, err := r.readUint32(field)
	return int32(v), err
}

func (r *payloadReader) readUint64(field string) (uint64, error) {
	b, err := r.next(8, field)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint64(b), nil
}

func (r *payloadReader) readInt64(field string) (int64, error) {
	v, err := r.readUint64(field)
	return int64(v), err
}

func (r *payloadReader) readHash(field string) (chainhash.Hash, error) {
	var h chainhash.Hash

	b, err := r.next(HashSize, field)
	if err != nil {
		return h, err
	}

	copy(h[:], b)

	return h, nil
}

func (r *payloadReader) readCompactSize(field string) (uint64, error) {
	v, n, err := DecodeCompactSize(r.buf, r.off, r.remaining())
	if err != nil {
		return 0, errors.NewMessageInvalidError("[%s] %s", r.cmd, field, err)
	}

	r.off += n

	return v, nil
}

// readCount reads a CompactSize element count and rejects it when it exceeds max
// or when count*elemSize is more than what is left of the payload.
func (r *payloadReader) readCount(field string, max uint64, elemSize int) (int, error) {
	count, err := r.readCompactSize(field)
	if err != nil {
		return 0, err
	}

	if count > max {
		return 0, r.fail("%s %d exceeds max %d", field, count, max)
	}

	if elemSize > 0 && count > uint64(r.remaining()/elemSize) {
		return 0, r.fail("%s %d needs %d bytes, %d remaining", field, count, count*uint64(elemSize), r.remaining())
	}

	return int(count), nil
}

func (r *payloadReader) readHashes(field string, max uint64) ([]chainhash.Hash, error) {
	count, err := r.readCount(field, max, HashSize)
	if err != nil || count == 0 {
		return nil, err
	}

	hashes := make([]chainhash.Hash, count)
	for i := range hashes {
		if hashes[i], err = r.readHash(field); err != nil {
			return nil, err
		}
	}

	return hashes, nil
}

func (r *payloadReader) readVarBytes(field string, max uint64) ([]byte, error) {
	n, err := r.readCount(field, max, 1)
	if err != nil {
		return nil, err
	}

	return r.readBytes(n, field)
}

func (r *payloadReader) readVarString(field string, max uint64) (string, error) {
	b, err := r.readVarBytes(field, max)
	return string(b), err
}

// rest consumes everything that is left.
func (r *payloadReader) rest() []byte {
	b, _ := r.readBytes(r.remaining(), "rest")
	return b
}

// done fails when unread bytes are left over.
func (r *payloadReader) done() error {
	if r.remaining() != 0 {
		return r.fail("%d trailing bytes", r.remaining())
	}

	return nil
}

func appendUint16BE(b []byte, v uint16) []byte {
	return binary.BigEndian.AppendUint16(b, v)
}

func appendUint32(b []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(b, v)
}

func appendUint64(b []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(b, v)
}

func appendHashes(b []byte, hashes []chainhash.Hash) []byte {
	b = AppendCompactSize(b, uint64(len(hashes)))
	for i := range hashes {
		b = append(b, hashes[i][:]...)
	}

	return b
}

func appendVarBytes(b []byte, data []byte) []byte {
	b = AppendCompactSize(b, uint64(len(data)))
	return append(b, data...)
}
