package main

import (
	"bytes"
	"net"
	"testing"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/legacy-p2p/chaincfg"
	"github.com/bsv-blockchain/legacy-p2p/errors"
	"github.com/bsv-blockchain/legacy-p2p/services/legacy/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const someHash = "000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f"

func TestBuildMessage(t *testing.T) {
	params := &chaincfg.RegressionNetParams

	msg, err := buildMessage(params, "ping", "42")
	require.NoError(t, err)
	assert.Equal(t, wire.NewMsgPing(42), msg)

	msg, err = buildMessage(params, "getaddr")
	require.NoError(t, err)
	assert.Equal(t, wire.CmdGetAddr, msg.Command())

	msg, err = buildMessage(params, "getheaders")
	require.NoError(t, err)
	assert.Equal(t, []chainhash.Hash{*params.GenesisHash}, msg.(wire.MsgGetHeaders).BlockLocatorHashes)

	msg, err = buildMessage(params, "getdata", "block", someHash)
	require.NoError(t, err)

	getData := msg.(wire.MsgGetData)
	require.Len(t, getData.InvList, 1)
	assert.Equal(t, wire.InvTypeBlock, getData.InvList[0].Type)
	assert.Equal(t, someHash, getData.InvList[0].Hash.String())

	msg, err = buildMessage(params, "inv", "tx", someHash, someHash)
	require.NoError(t, err)
	assert.Len(t, msg.(wire.MsgInv).InvList, 2)
}

func TestBuildMessageErrors(t *testing.T) {
	params := &chaincfg.RegressionNetParams

	tests := []struct {
		name string
		args []string
	}{
		{"unknown type", []string{"frobnicate"}},
		{"bad nonce", []string{"ping", "x"}},
		{"bad locator", []string{"getheaders", "zz"}},
		{"missing hashes", []string{"getdata", "tx"}},
		{"bad inv type", []string{"inv", "cake", someHash}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildMessage(params, tt.args[0], tt.args[1:]...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
		})
	}
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer

	pr := &printer{out: &buf}

	pr.Import([]wire.NetAddress{wire.NewNetAddress(net.ParseIP("10.0.0.1"), 8333, wire.SFNodeNetwork)})
	assert.Contains(t, buf.String(), "Received 1 addresses")
	assert.Contains(t, buf.String(), "10.0.0.1:8333")

	done := make(chan bool, 1)
	pr.SubmitBlockHeaders(nil, done)
	assert.False(t, <-done)

	pr.SubmitTransaction([]byte{1, 2, 3})
	assert.Contains(t, buf.String(), wire.NewMsgTx([]byte{1, 2, 3}).TxHash().String())
}
