package wire

import (
	"github.com/bsv-blockchain/legacy-p2p/errors"
)

const (
	// MaxFilterLoadFilterSize is the maximum size of a bloom filter in filterload.
	MaxFilterLoadFilterSize = 36000

	// MaxFilterLoadHashFuncs is the maximum number of hash functions in filterload.
	MaxFilterLoadHashFuncs = 50

	// MaxFilterAddDataSize is the maximum size of an element in filteradd.
	MaxFilterAddDataSize = 520
)

// BloomUpdateType tells the remote how to update a loaded filter on matches.
type BloomUpdateType uint8

const (
	BloomUpdateNone         BloomUpdateType = 0
	BloomUpdateAll          BloomUpdateType = 1
	BloomUpdateP2PubkeyOnly BloomUpdateType = 2
)

// MsgFilterLoad loads a BIP37 bloom filter.
type MsgFilterLoad struct {
	Filter    []byte
	HashFuncs uint32
	Tweak     uint32
	Flags     BloomUpdateType
}

// MsgFilterAdd adds one element to a loaded bloom filter.
type MsgFilterAdd struct {
	Data []byte
}

// MsgFeeFilter asks the remote not to announce transactions below MinFee sat/kB.
type MsgFeeFilter struct {
	MinFee int64
}

func (msg MsgFilterLoad) Command() Command { return CmdFilterLoad }
func (msg MsgFilterAdd) Command() Command  { return CmdFilterAdd }
func (msg MsgFeeFilter) Command() Command  { return CmdFeeFilter }

func (msg MsgFilterLoad) validate() error {
	if len(msg.Filter) > MaxFilterLoadFilterSize {
		return errors.NewMessageInvalidError("[filterload] filter is %d bytes, max %d", len(msg.Filter), MaxFilterLoadFilterSize)
	}

	if msg.HashFuncs > MaxFilterLoadHashFuncs {
		return errors.NewMessageInvalidError("[filterload] %d hash functions, max %d", msg.HashFuncs, MaxFilterLoadHashFuncs)
	}

	return nil
}

func (msg MsgFilterLoad) Payload() []byte {
	b := make([]byte, 0, CompactSizeLen(uint64(len(msg.Filter)))+len(msg.Filter)+9)
	b = appendVarBytes(b, msg.Filter)
	b = appendUint32(b, msg.HashFuncs)
	b = appendUint32(b, msg.Tweak)

	return append(b, byte(msg.Flags))
}

func (msg MsgFilterAdd) validate() error {
	if len(msg.Data) > MaxFilterAddDataSize {
		return errors.NewMessageInvalidError("[filteradd] data is %d bytes, max %d", len(msg.Data), MaxFilterAddDataSize)
	}

	return nil
}

func (msg MsgFilterAdd) Payload() []byte {
	return appendVarBytes(nil, msg.Data)
}

func (msg MsgFeeFilter) Payload() []byte {
	return appendUint64(nil, uint64(msg.MinFee))
}

func parseMsgFilterLoad(payload []byte) (MsgFilterLoad, error) {
	var (
		msg MsgFilterLoad
		err error
	)

	r := newPayloadReader(CmdFilterLoad, payload)

	if msg.Filter, err = r.readVarBytes("filter", MaxFilterLoadFilterSize); err != nil {
		return msg, err
	}

	if err = r.need(9, "filterload"); err != nil {
		return msg, err
	}

	msg.HashFuncs, _ = r.readUint32("hash funcs")
	msg.Tweak, _ = r.readUint32("tweak")
	flags, _ := r.readUint8("flags")
	msg.Flags = BloomUpdateType(flags)

	if msg.HashFuncs > MaxFilterLoadHashFuncs {
		return msg, r.fail("%d hash functions, max %d", msg.HashFuncs, MaxFilterLoadHashFuncs)
	}

	return msg, r.done()
}

func parseMsgFilterAdd(payload []byte) (MsgFilterAdd, error) {
	var (
		msg MsgFilterAdd
		err error
	)

	r := newPayloadReader(CmdFilterAdd, payload)

	if msg.Data, err = r.readVarBytes("data", MaxFilterAddDataSize); err != nil {
		return msg, err
	}

	return msg, r.done()
}

func parseMsgFeeFilter(payload []byte) (MsgFeeFilter, error) {
	r := newPayloadReader(CmdFeeFilter, payload)

	fee, err := r.readInt64("fee rate")
	if err != nil {
		return MsgFeeFilter{}, err
	}

	return MsgFeeFilter{MinFee: fee}, r.done()
}
