package legacy

import (
	"sync"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/legacy-p2p/chaincfg"
	"github.com/bsv-blockchain/legacy-p2p/errors"
	"github.com/bsv-blockchain/legacy-p2p/services/legacy/wire"
	"github.com/dolthub/swiss"
)

// HeaderChain is the in-memory best header chain built from the headers peers
// send. It backs the block locators peers use to ask for more headers.
type HeaderChain struct {
	mu         sync.RWMutex
	heights    *swiss.Map[chainhash.Hash, int32]
	hashes     []chainhash.Hash // indexed by height
	checkpoint chaincfg.Checkpoint
}

func NewHeaderChain(params *chaincfg.Params) *HeaderChain {
	c := &HeaderChain{
		heights:    swiss.NewMap[chainhash.Hash, int32](1024),
		hashes:     []chainhash.Hash{*params.GenesisHash},
		checkpoint: params.VerifyCheckpoint,
	}

	c.heights.Put(*params.GenesisHash, 0)

	return c
}

// Add connects headers to the chain. A header whose parent is below the tip
// replaces everything above its parent, unless that would drop the checkpoint
// block. Known headers are skipped. It returns
// the number of headers that were new.
func (c *HeaderChain) Add(headers []wire.BlockHeader) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	added := 0

	for i := range headers {
		hash := headers[i].BlockHash()

		if c.heights.Has(hash) {
			continue
		}

		parentHeight, ok := c.heights.Get(headers[i].PrevBlock)
		if !ok {
			return added, errors.NewProcessingError("header %s does not connect to %s", hash, headers[i].PrevBlock)
		}

		height := parentHeight + 1

		if c.checkpoint.Hash != nil && height == c.checkpoint.Height && !hash.IsEqual(c.checkpoint.Hash) {
			return added, errors.NewCheckpointMismatchError("header %s at height %d is not checkpoint %s", hash, height, c.checkpoint.Hash)
		}

		if int(height) < len(c.hashes) {
			if c.holdsCheckpoint() && height <= c.checkpoint.Height {
				return added, errors.NewCheckpointMismatchError("header %s forks at height %d, below checkpoint %s", hash, parentHeight, c.checkpoint.Hash)
			}

			for _, stale := range c.hashes[height:] {
				c.heights.Delete(stale)
			}

			c.hashes = c.hashes[:height]
		}

		c.hashes = append(c.hashes, hash)
		c.heights.Put(hash, height)
		added++
	}

	return added, nil
}

// holdsCheckpoint reports whether the checkpoint block is part of the chain.
func (c *HeaderChain) holdsCheckpoint() bool {
	return c.checkpoint.Hash != nil && int(c.checkpoint.Height) < len(c.hashes) && c.hashes[c.checkpoint.Height] == *c.checkpoint.Hash
}

// Tip returns the hash and height of the last header.
func (c *HeaderChain) Tip() (chainhash.Hash, int32) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	height := len(c.hashes) - 1

	return c.hashes[height], int32(height) //nolint:gosec // chain height fits in int32
}

func (c *HeaderChain) Height(hash chainhash.Hash) (int32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.heights.Get(hash)
}

// RecentHashes returns a block locator: the ten newest hashes, then
// exponentially sparser ones, always ending with genesis.
func (c *HeaderChain) RecentHashes() []chainhash.Hash {
	c.mu.RLock()
	defer c.mu.RUnlock()

	locator := make([]chainhash.Hash, 0, 32)
	step := 1

	for height := len(c.hashes) - 1; height > 0; height -= step {
		locator = append(locator, c.hashes[height])

		if len(locator) >= 10 {
			step *= 2
		}
	}

	return append(locator, c.hashes[0])
}

func (c *HeaderChain) Checkpoint() chaincfg.Checkpoint {
	return c.checkpoint
}
