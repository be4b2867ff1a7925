package peer

import (
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/legacy-p2p/chaincfg"
	"github.com/bsv-blockchain/legacy-p2p/services/legacy/wire"
	"go.uber.org/atomic"
)

// Downstream receives everything a peer learns that is useful outside the
// connection. Calls are fire and forget: implementations must not block the
// peer for long.
type Downstream interface {
	SubmitBlock(raw []byte)
	SubmitTransaction(raw []byte)

	// SubmitBlockHeaders hands over a batch of headers. The implementation
	// sends true on done once the batch is stored and more are wanted, false
	// otherwise. done is buffered so the send never blocks.
	SubmitBlockHeaders(headers []wire.BlockHeader, done chan<- bool)

	// SubmitFilter carries a BIP158 filter with its decoded Golomb parameters:
	// bits is P, fpRate is M and elementCount is N.
	SubmitFilter(filterType wire.FilterType, blockHash chainhash.Hash, bits uint8, fpRate uint64, elementCount uint32, raw []byte)

	SubmitFilterHeaders(filterType wire.FilterType, stopHash, prevHeader chainhash.Hash, headers []chainhash.Hash)
}

// AddressBook stores addresses learned from peers. Import upserts and resets
// the last seen time of every address.
type AddressBook interface {
	Import(addrs []wire.NetAddress)
}

// HeaderOracle gives read access to the header chain owned elsewhere.
type HeaderOracle interface {
	// RecentHashes returns a block locator, newest first.
	RecentHashes() []chainhash.Hash
	Checkpoint() chaincfg.Checkpoint
}

type FilterOracle interface {
	DefaultFilterType() wire.FilterType
}

// HeightTracker holds the best chain height any peer has advertised.
type HeightTracker interface {
	BestHeight() int32
	UpdateBestHeight(height int32)
}

// the fallbacks below stand in for collaborators a Config leaves nil

type discardDownstream struct{}

func (discardDownstream) SubmitBlock([]byte)       {}
func (discardDownstream) SubmitTransaction([]byte) {}
func (discardDownstream) SubmitBlockHeaders(_ []wire.BlockHeader, done chan<- bool) {
	done <- false
}
func (discardDownstream) SubmitFilter(wire.FilterType, chainhash.Hash, uint8, uint64, uint32, []byte) {
}
func (discardDownstream) SubmitFilterHeaders(wire.FilterType, chainhash.Hash, chainhash.Hash, []chainhash.Hash) {
}

type discardAddressBook struct{}

func (discardAddressBook) Import([]wire.NetAddress) {}

// paramsOracle answers from the chain params alone.
type paramsOracle struct {
	params *chaincfg.Params
}

func (o paramsOracle) RecentHashes() []chainhash.Hash {
	return []chainhash.Hash{*o.params.GenesisHash}
}

func (o paramsOracle) Checkpoint() chaincfg.Checkpoint {
	return o.params.VerifyCheckpoint
}

func (o paramsOracle) DefaultFilterType() wire.FilterType {
	return o.params.DefaultFilterType
}

// NewHeightTracker returns a HeightTracker that only ever moves up.
func NewHeightTracker(start int32) HeightTracker {
	return &heightTracker{height: atomic.NewInt32(start)}
}

type heightTracker struct {
	height *atomic.Int32
}

func (h *heightTracker) BestHeight() int32 {
	return h.height.Load()
}

func (h *heightTracker) UpdateBestHeight(height int32) {
	for {
		cur := h.height.Load()
		if height <= cur || h.height.CompareAndSwap(cur, height) {
			return
		}
	}
}
