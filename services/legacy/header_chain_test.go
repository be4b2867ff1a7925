package legacy

import (
	"testing"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/legacy-p2p/chaincfg"
	"github.com/bsv-blockchain/legacy-p2p/errors"
	"github.com/bsv-blockchain/legacy-p2p/services/legacy/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chainedHeaders builds n headers on top of prev. salt makes forks differ.
func chainedHeaders(prev chainhash.Hash, n int, salt uint32) []wire.BlockHeader {
	headers := make([]wire.BlockHeader, 0, n)

	for i := 0; i < n; i++ {
		h := wire.BlockHeader{
			Version:   1,
			PrevBlock: prev,
			Timestamp: uint32(1_700_000_000 + i), //nolint:gosec // test data
			Bits:      0x207fffff,
			Nonce:     salt,
		}
		headers = append(headers, h)
		prev = h.BlockHash()
	}

	return headers
}

func genesis() chainhash.Hash {
	return *chaincfg.RegressionNetParams.GenesisHash
}

func TestHeaderChainAdd(t *testing.T) {
	chain := NewHeaderChain(&chaincfg.RegressionNetParams)

	tip, height := chain.Tip()
	assert.Equal(t, genesis(), tip)
	assert.Equal(t, int32(0), height)

	headers := chainedHeaders(genesis(), 5, 0)

	added, err := chain.Add(headers)
	require.NoError(t, err)
	assert.Equal(t, 5, added)

	tip, height = chain.Tip()
	assert.Equal(t, headers[4].BlockHash(), tip)
	assert.Equal(t, int32(5), height)

	h, ok := chain.Height(headers[2].BlockHash())
	require.True(t, ok)
	assert.Equal(t, int32(3), h)

	t.Run("known headers are skipped", func(t *testing.T) {
		added, err := chain.Add(headers)
		require.NoError(t, err)
		assert.Zero(t, added)
	})

	t.Run("unconnected header", func(t *testing.T) {
		orphan := chainedHeaders(chainhash.HashH([]byte("nowhere")), 1, 0)

		added, err := chain.Add(orphan)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrProcessing))
		assert.Zero(t, added)
	})
}

func TestHeaderChainFork(t *testing.T) {
	chain := NewHeaderChain(&chaincfg.RegressionNetParams)

	best := chainedHeaders(genesis(), 5, 0)
	_, err := chain.Add(best)
	require.NoError(t, err)

	// a branch off height 2 replaces heights 3 to 5
	fork := chainedHeaders(best[1].BlockHash(), 4, 1)

	added, err := chain.Add(fork)
	require.NoError(t, err)
	assert.Equal(t, 4, added)

	tip, height := chain.Tip()
	assert.Equal(t, fork[3].BlockHash(), tip)
	assert.Equal(t, int32(6), height)

	_, ok := chain.Height(best[2].BlockHash())
	assert.False(t, ok)

	h, ok := chain.Height(best[1].BlockHash())
	require.True(t, ok)
	assert.Equal(t, int32(2), h)
}

func TestHeaderChainRecentHashes(t *testing.T) {
	chain := NewHeaderChain(&chaincfg.RegressionNetParams)
	assert.Equal(t, []chainhash.Hash{genesis()}, chain.RecentHashes())

	headers := chainedHeaders(genesis(), 30, 0)
	_, err := chain.Add(headers)
	require.NoError(t, err)

	locator := chain.RecentHashes()

	// heights 30..21, then 19, 15, 7 and genesis
	require.Len(t, locator, 14)
	assert.Equal(t, headers[29].BlockHash(), locator[0])
	assert.Equal(t, headers[20].BlockHash(), locator[9])
	assert.Equal(t, headers[18].BlockHash(), locator[10])
	assert.Equal(t, headers[14].BlockHash(), locator[11])
	assert.Equal(t, headers[6].BlockHash(), locator[12])
	assert.Equal(t, genesis(), locator[13])
}

func TestHeaderChainCheckpoint(t *testing.T) {
	wanted := chainhash.HashH([]byte("checkpoint"))

	params := chaincfg.RegressionNetParams
	params.VerifyCheckpoint = chaincfg.Checkpoint{Height: 2, Hash: &wanted}

	chain := NewHeaderChain(&params)
	assert.Equal(t, int32(2), chain.Checkpoint().Height)

	added, err := chain.Add(chainedHeaders(genesis(), 3, 0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCheckpointMismatch))
	assert.Equal(t, 1, added)

	_, height := chain.Tip()
	assert.Equal(t, int32(1), height)
}

func TestHeaderChainKeepsCheckpointBlock(t *testing.T) {
	best := chainedHeaders(genesis(), 5, 0)
	checkpoint := best[2].BlockHash()

	params := chaincfg.RegressionNetParams
	params.VerifyCheckpoint = chaincfg.Checkpoint{Height: 3, Hash: &checkpoint}

	chain := NewHeaderChain(&params)

	_, err := chain.Add(best)
	require.NoError(t, err)

	// one header off height 1 would drop the checkpoint at height 3
	_, err = chain.Add(chainedHeaders(best[0].BlockHash(), 1, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCheckpointMismatch))

	tip, height := chain.Tip()
	assert.Equal(t, best[4].BlockHash(), tip)
	assert.Equal(t, int32(5), height)

	// a fork above the checkpoint is still taken
	fork := chainedHeaders(checkpoint, 3, 1)

	added, err := chain.Add(fork)
	require.NoError(t, err)
	assert.Equal(t, 3, added)

	tip, height = chain.Tip()
	assert.Equal(t, fork[2].BlockHash(), tip)
	assert.Equal(t, int32(6), height)
}
