package wire

import (
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/legacy-p2p/errors"
)

const (
	// MaxCFHeadersPerMsg is the maximum number of filter hashes in a cfheaders message.
	MaxCFHeadersPerMsg = 2000

	// MaxCFilterDataSize is the maximum size of a filter in a cfilter message.
	MaxCFilterDataSize = 256 * 1024

	// maxCFCheckptHeaders bounds cfcheckpt to what fits a maximum payload.
	maxCFCheckptHeaders = MaxMessagePayload / HashSize
)

// MsgGetCFHeaders requests filter headers from StartHeight up to StopHash.
type MsgGetCFHeaders struct {
	FilterType  FilterType
	StartHeight uint32
	StopHash    chainhash.Hash
}

// MsgGetCFilters requests the filters from StartHeight up to StopHash.
type MsgGetCFilters struct {
	FilterType  FilterType
	StartHeight uint32
	StopHash    chainhash.Hash
}

// MsgGetCFCheckpt requests filter headers at every 1000th block up to StopHash.
type MsgGetCFCheckpt struct {
	FilterType FilterType
	StopHash   chainhash.Hash
}

// MsgCFHeaders carries filter hashes. Each filter header chains on the one
// before it, starting from PrevFilterHeader.
type MsgCFHeaders struct {
	FilterType       FilterType
	StopHash         chainhash.Hash
	PrevFilterHeader chainhash.Hash
	FilterHashes     []chainhash.Hash
}

// MsgCFilter carries one committed filter.
type MsgCFilter struct {
	FilterType FilterType
	BlockHash  chainhash.Hash
	Data       []byte
}

// MsgCFCheckpt carries checkpointed filter headers.
type MsgCFCheckpt struct {
	FilterType    FilterType
	StopHash      chainhash.Hash
	FilterHeaders []chainhash.Hash
}

// NewMsgGetCFHeaders builds a getcfheaders request. A nil stopHash leaves the
// stop at the zero hash.
func NewMsgGetCFHeaders(filterType FilterType, startHeight uint32, stopHash *chainhash.Hash) MsgGetCFHeaders {
	msg := MsgGetCFHeaders{FilterType: filterType, StartHeight: startHeight}
	if stopHash != nil {
		msg.StopHash = *stopHash
	}

	return msg
}

func NewMsgGetCFilters(filterType FilterType, startHeight uint32, stopHash *chainhash.Hash) MsgGetCFilters {
	msg := MsgGetCFilters{FilterType: filterType, StartHeight: startHeight}
	if stopHash != nil {
		msg.StopHash = *stopHash
	}

	return msg
}

func NewMsgGetCFCheckpt(filterType FilterType, stopHash *chainhash.Hash) MsgGetCFCheckpt {
	msg := MsgGetCFCheckpt{FilterType: filterType}
	if stopHash != nil {
		msg.StopHash = *stopHash
	}

	return msg
}

func (msg MsgGetCFHeaders) Command() Command { return CmdGetCFHeaders }
func (msg MsgGetCFilters) Command() Command  { return CmdGetCFilters }
func (msg MsgGetCFCheckpt) Command() Command { return CmdGetCFCheckpt }
func (msg MsgCFHeaders) Command() Command    { return CmdCFHeaders }
func (msg MsgCFilter) Command() Command      { return CmdCFilter }
func (msg MsgCFCheckpt) Command() Command    { return CmdCFCheckpt }

func rangePayload(filterType FilterType, startHeight uint32, stop chainhash.Hash) []byte {
	b := make([]byte, 0, 1+4+HashSize)
	b = append(b, byte(filterType))
	b = appendUint32(b, startHeight)

	return append(b, stop[:]...)
}

func (msg MsgGetCFHeaders) Payload() []byte {
	return rangePayload(msg.FilterType, msg.StartHeight, msg.StopHash)
}

func (msg MsgGetCFilters) Payload() []byte {
	return rangePayload(msg.FilterType, msg.StartHeight, msg.StopHash)
}

func (msg MsgGetCFCheckpt) Payload() []byte {
	b := make([]byte, 0, 1+HashSize)
	b = append(b, byte(msg.FilterType))

	return append(b, msg.StopHash[:]...)
}

// FilterHeaders derives the filter header of every hash in the message:
// header = dsha256(filterHash || previous header).
func (msg MsgCFHeaders) FilterHeaders() []chainhash.Hash {
	headers := make([]chainhash.Hash, len(msg.FilterHashes))
	prev := msg.PrevFilterHeader

	for i := range msg.FilterHashes {
		headers[i] = FilterHeader(&msg.FilterHashes[i], &prev)
		prev = headers[i]
	}

	return headers
}

// FilterHeader chains a filter hash onto the previous filter header.
func FilterHeader(filterHash, prevHeader *chainhash.Hash) chainhash.Hash {
	var b [2 * HashSize]byte

	copy(b[:HashSize], filterHash[:])
	copy(b[HashSize:], prevHeader[:])

	return chainhash.DoubleHashH(b[:])
}

func (msg MsgCFHeaders) validate() error {
	if len(msg.FilterHashes) > MaxCFHeadersPerMsg {
		return errors.NewMessageInvalidError("[cfheaders] %d filter hashes, max %d", len(msg.FilterHashes), MaxCFHeadersPerMsg)
	}

	return nil
}

func (msg MsgCFHeaders) Payload() []byte {
	b := make([]byte, 0, 1+2*HashSize+CompactSizeLen(uint64(len(msg.FilterHashes)))+len(msg.FilterHashes)*HashSize)
	b = append(b, byte(msg.FilterType))
	b = append(b, msg.StopHash[:]...)
	b = append(b, msg.PrevFilterHeader[:]...)

	return appendHashes(b, msg.FilterHashes)
}

func (msg MsgCFilter) validate() error {
	if len(msg.Data) > MaxCFilterDataSize {
		return errors.NewMessageInvalidError("[cfilter] filter is %d bytes, max %d", len(msg.Data), MaxCFilterDataSize)
	}

	return nil
}

func (msg MsgCFilter) Payload() []byte {
	b := make([]byte, 0, 1+HashSize+CompactSizeLen(uint64(len(msg.Data)))+len(msg.Data))
	b = append(b, byte(msg.FilterType))
	b = append(b, msg.BlockHash[:]...)

	return appendVarBytes(b, msg.Data)
}

func (msg MsgCFCheckpt) Payload() []byte {
	b := make([]byte, 0, 1+HashSize+CompactSizeLen(uint64(len(msg.FilterHeaders)))+len(msg.FilterHeaders)*HashSize)
	b = append(b, byte(msg.FilterType))
	b = append(b, msg.StopHash[:]...)

	return appendHashes(b, msg.FilterHeaders)
}

func parseRange(cmd Command, payload []byte) (filterType FilterType, startHeight uint32, stop chainhash.Hash, err error) {
	r := newPayloadReader(cmd, payload)
	if err = r.need(1+4+HashSize, "range"); err != nil {
		return
	}

	ft, _ := r.readUint8("filter type")
	filterType = FilterType(ft)
	startHeight, _ = r.readUint32("start height")
	stop, _ = r.readHash("stop hash")
	err = r.done()

	return
}

func parseMsgGetCFHeaders(payload []byte) (MsgGetCFHeaders, error) {
	ft, start, stop, err := parseRange(CmdGetCFHeaders, payload)
	return MsgGetCFHeaders{FilterType: ft, StartHeight: start, StopHash: stop}, err
}

func parseMsgGetCFilters(payload []byte) (MsgGetCFilters, error) {
	ft, start, stop, err := parseRange(CmdGetCFilters, payload)
	return MsgGetCFilters{FilterType: ft, StartHeight: start, StopHash: stop}, err
}

func parseMsgGetCFCheckpt(payload []byte) (MsgGetCFCheckpt, error) {
	var msg MsgGetCFCheckpt

	r := newPayloadReader(CmdGetCFCheckpt, payload)
	if err := r.need(1+HashSize, "getcfcheckpt"); err != nil {
		return msg, err
	}

	ft, _ := r.readUint8("filter type")
	msg.FilterType = FilterType(ft)
	msg.StopHash, _ = r.readHash("stop hash")

	return msg, r.done()
}

func parseMsgCFHeaders(payload []byte) (MsgCFHeaders, error) {
	var (
		msg MsgCFHeaders
		err error
	)

	r := newPayloadReader(CmdCFHeaders, payload)
	if err = r.need(1+2*HashSize, "cfheaders"); err != nil {
		return msg, err
	}

	ft, _ := r.readUint8("filter type")
	msg.FilterType = FilterType(ft)
	msg.StopHash, _ = r.readHash("stop hash")
	msg.PrevFilterHeader, _ = r.readHash("previous filter header")

	if msg.FilterHashes, err = r.readHashes("filter hash count", MaxCFHeadersPerMsg); err != nil {
		return msg, err
	}

	return msg, r.done()
}

func parseMsgCFilter(payload []byte) (MsgCFilter, error) {
	var (
		msg MsgCFilter
		err error
	)

	r := newPayloadReader(CmdCFilter, payload)
	if err = r.need(1+HashSize, "cfilter"); err != nil {
		return msg, err
	}

	ft, _ := r.readUint8("filter type")
	msg.FilterType = FilterType(ft)
	msg.BlockHash, _ = r.readHash("block hash")

	if msg.Data, err = r.readVarBytes("filter", MaxCFilterDataSize); err != nil {
		return msg, err
	}

	return msg, r.done()
}

func parseMsgCFCheckpt(payload []byte) (MsgCFCheckpt, error) {
	var (
		msg MsgCFCheckpt
		err error
	)

	r := newPayloadReader(CmdCFCheckpt, payload)
	if err = r.need(1+HashSize, "cfcheckpt"); err != nil {
		return msg, err
	}

	ft, _ := r.readUint8("filter type")
	msg.FilterType = FilterType(ft)
	msg.StopHash, _ = r.readHash("stop hash")

	if msg.FilterHeaders, err = r.readHashes("filter header count", maxCFCheckptHeaders); err != nil {
		return msg, err
	}

	return msg, r.done()
}
