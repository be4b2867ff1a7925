package legacy

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/bsv-blockchain/legacy-p2p/chaincfg"
	"github.com/bsv-blockchain/legacy-p2p/errors"
	"github.com/bsv-blockchain/legacy-p2p/services/legacy/peer"
	"github.com/bsv-blockchain/legacy-p2p/settings"
	"github.com/bsv-blockchain/legacy-p2p/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	return addr
}

func TestServerInitConfigErrors(t *testing.T) {
	t.Run("no chain params", func(t *testing.T) {
		s := New(ulogger.TestLogger{}, &settings.Settings{})

		err := s.Init(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrConfiguration))
	})

	t.Run("incomplete checkpoint", func(t *testing.T) {
		tSettings := testSettings()
		tSettings.ChainCfgParams = &chaincfg.RegressionNetParams
		tSettings.Legacy.VerifyCheckpoint = true

		s := New(ulogger.TestLogger{}, tSettings)

		err := s.Init(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrConfiguration))
	})
}

func TestServerLifecycle(t *testing.T) {
	node := newFakeNode(t)

	tSettings := testSettings(node.addr())
	tSettings.Legacy.ListenAddress = "127.0.0.1:0"
	tSettings.Legacy.HTTPListenAddress = freeAddr(t)

	s := New(ulogger.TestLogger{}, tSettings)
	require.NoError(t, s.Init(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	readyCh := make(chan struct{})
	startErr := make(chan error, 1)

	go func() {
		startErr <- s.Start(ctx, readyCh)
	}()

	select {
	case <-readyCh:
	case <-time.After(waitFor):
		t.Fatal("server never became ready")
	}

	status, _, _ := s.Health(ctx, true)
	assert.Equal(t, http.StatusOK, status)

	status, _, _ = s.Health(ctx, false)
	assert.Equal(t, http.StatusServiceUnavailable, status, "no peers yet")

	outbound := node.accept()
	outbound.handshake(50)

	conn, err := net.Dial("tcp", s.listener.Addr().String())
	require.NoError(t, err)

	t.Cleanup(func() { _ = conn.Close() })

	inbound := newNodeConn(t, conn)
	inbound.handshake(51)

	require.Eventually(t, func() bool { return s.peerManager.Count() == 2 }, waitFor, tick)

	require.Eventually(t, func() bool {
		status, _, _ := s.Health(ctx, false)
		return status == http.StatusOK
	}, waitFor, tick)

	resp, err := http.Get(httpAddress(tSettings.Legacy.HTTPListenAddress) + "/peers")
	require.NoError(t, err)

	var peers []peer.StateSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&peers))
	_ = resp.Body.Close()

	assert.Len(t, peers, 2)

	resp, err = http.Get(httpAddress(tSettings.Legacy.HTTPListenAddress) + "/metrics")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	require.NoError(t, <-startErr)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), waitFor)
	defer stopCancel()

	require.NoError(t, s.Stop(stopCtx))
	assert.Zero(t, s.peerManager.Count())
}
