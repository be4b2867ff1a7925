package peer

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/legacy-p2p/chaincfg"
	"github.com/bsv-blockchain/legacy-p2p/errors"
	"github.com/bsv-blockchain/legacy-p2p/services/legacy/wire"
	"github.com/bsv-blockchain/legacy-p2p/ulogger"
	"github.com/btcsuite/btcd/btcutil/gcs"
	"github.com/btcsuite/btcd/btcutil/gcs/builder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	localNonce  = uint64(0x1122334455667788)
	remoteNonce = uint64(0x0102030405060708)
	waitFor     = 2 * time.Second
	tick        = 5 * time.Millisecond
)

// remote plays the other end of a net.Pipe.
type remote struct {
	t    *testing.T
	conn net.Conn
	net  wire.BitcoinNet
	msgs chan wire.Message
}

func newRemote(t *testing.T, conn net.Conn, bn wire.BitcoinNet) *remote {
	r := &remote{t: t, conn: conn, net: bn, msgs: make(chan wire.Message, 100)}

	go func() {
		defer close(r.msgs)

		for {
			_, msg, err := wire.ReadMessage(conn, bn)
			if err != nil {
				if errors.IsFatalPeerError(err) {
					return
				}

				continue
			}

			r.msgs <- msg
		}
	}()

	return r
}

func (r *remote) send(msg wire.Message) {
	r.t.Helper()

	_, err := wire.WriteMessage(r.conn, r.net, msg)
	require.NoError(r.t, err)
}

// trySend is for writes that race with the peer closing the socket.
func (r *remote) trySend(msg wire.Message) {
	_, _ = wire.WriteMessage(r.conn, r.net, msg)
}

// expect returns the next message with the given command, skipping others.
func (r *remote) expect(cmd wire.Command) wire.Message {
	r.t.Helper()

	timeout := time.After(waitFor)

	for {
		select {
		case msg, ok := <-r.msgs:
			require.True(r.t, ok, "connection closed waiting for %s", cmd)

			if msg.Command() == cmd {
				return msg
			}
		case <-timeout:
			r.t.Fatalf("timed out waiting for %s", cmd)
		}
	}
}

func (r *remote) version(nonce uint64, pver int32, height int32) wire.MsgVersion {
	zero := wire.NewNetAddress(net.IPv4zero, 0, 0)

	msg := wire.NewMsgVersion(zero, zero, nonce, height, time.Now().Unix())
	msg.ProtocolVersion = pver
	msg.UserAgent = "/remote:1.0/"

	return msg
}

// handshake completes the handshake from the remote side, version first.
func (r *remote) handshake() {
	r.t.Helper()

	r.expect(wire.CmdVersion)
	r.send(r.version(remoteNonce, int32(wire.ProtocolVersion), 100))
	r.expect(wire.CmdVerAck)
	r.send(wire.MsgVerAck{})
}

type recordingDownstream struct {
	mu            sync.Mutex
	blocks        [][]byte
	txs           [][]byte
	headers       [][]wire.BlockHeader
	filters       []submittedFilter
	filterHeaders [][]chainhash.Hash
	moreHeaders   bool
}

type submittedFilter struct {
	filterType   wire.FilterType
	blockHash    chainhash.Hash
	bits         uint8
	fpRate       uint64
	elementCount uint32
}

func (d *recordingDownstream) SubmitBlock(raw []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.blocks = append(d.blocks, raw)
}

func (d *recordingDownstream) SubmitTransaction(raw []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.txs = append(d.txs, raw)
}

func (d *recordingDownstream) SubmitBlockHeaders(headers []wire.BlockHeader, done chan<- bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.headers = append(d.headers, headers)
	done <- d.moreHeaders
}

func (d *recordingDownstream) SubmitFilter(filterType wire.FilterType, blockHash chainhash.Hash, bits uint8, fpRate uint64, elementCount uint32, _ []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.filters = append(d.filters, submittedFilter{filterType, blockHash, bits, fpRate, elementCount})
}

func (d *recordingDownstream) SubmitFilterHeaders(_ wire.FilterType, _, _ chainhash.Hash, headers []chainhash.Hash) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.filterHeaders = append(d.filterHeaders, headers)
}

func (d *recordingDownstream) counts() (blocks, txs, headers, filters, filterHeaders int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.blocks), len(d.txs), len(d.headers), len(d.filters), len(d.filterHeaders)
}

type recordingAddressBook struct {
	mu    sync.Mutex
	addrs []wire.NetAddress
}

func (a *recordingAddressBook) Import(addrs []wire.NetAddress) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.addrs = append(a.addrs, addrs...)
}

func (a *recordingAddressBook) len() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.addrs)
}

type fixedOracle struct {
	checkpoint chaincfg.Checkpoint
	recent     []chainhash.Hash
}

func (o fixedOracle) RecentHashes() []chainhash.Hash     { return o.recent }
func (o fixedOracle) Checkpoint() chaincfg.Checkpoint    { return o.checkpoint }
func (o fixedOracle) DefaultFilterType() wire.FilterType { return wire.GCSFilterRegular }

// checkpointFixture is a made up checkpoint together with the answers an
// honest peer gives for it.
type checkpointFixture struct {
	header     wire.BlockHeader
	filterHash chainhash.Hash
	prevFilter chainhash.Hash
	checkpoint chaincfg.Checkpoint
}

func newCheckpointFixture() checkpointFixture {
	parent := chainhash.DoubleHashH([]byte("parent"))

	f := checkpointFixture{
		header: wire.BlockHeader{
			Version:    1,
			PrevBlock:  parent,
			MerkleRoot: chainhash.DoubleHashH([]byte("merkle")),
			Timestamp:  1231469665,
			Bits:       0x1d00ffff,
			Nonce:      2573394689,
		},
		filterHash: chainhash.DoubleHashH([]byte("filter")),
		prevFilter: chainhash.DoubleHashH([]byte("previous filter header")),
	}

	hash := f.header.BlockHash()
	filterHeader := wire.FilterHeader(&f.filterHash, &f.prevFilter)

	f.checkpoint = chaincfg.Checkpoint{
		Height:       1,
		Hash:         &hash,
		ParentHash:   &parent,
		FilterHeader: &filterHeader,
	}

	return f
}

func (f checkpointFixture) cfheaders() wire.MsgCFHeaders {
	return wire.MsgCFHeaders{
		FilterType:       wire.GCSFilterRegular,
		StopHash:         *f.checkpoint.Hash,
		PrevFilterHeader: f.prevFilter,
		FilterHashes:     []chainhash.Hash{f.filterHash},
	}
}

func testConfig() *Config {
	return &Config{
		ChainParams:      &chaincfg.RegressionNetParams,
		Nonce:            localNonce,
		HandshakeTimeout: waitFor,
		VerifyTimeout:    waitFor,
		PingInterval:     time.Hour,
		Downstream:       &recordingDownstream{},
		AddressBook:      &recordingAddressBook{},
	}
}

// startPeer connects an outbound peer to a remote over a pipe.
func startPeer(t *testing.T, cfg *Config) (*Peer, *remote) {
	t.Helper()

	p, err := NewOutboundPeer(ulogger.TestLogger{}, cfg, "10.0.0.1:18444")
	require.NoError(t, err)

	local, other := net.Pipe()
	r := newRemote(t, other, cfg.ChainParams.Net)

	t.Cleanup(func() {
		p.Disconnect("test done")
		_ = other.Close()
		p.WaitForDisconnect()
	})

	p.AssociateConnection(local)

	return p, r
}

func requireState(t *testing.T, p *Peer, state State) {
	t.Helper()

	require.Eventually(t, func() bool { return p.State() == state }, waitFor, tick, "peer stuck in %s", p.State())
}

func requireDisconnectCode(t *testing.T, p *Peer, code errors.ERR) {
	t.Helper()

	select {
	case <-p.Done():
	case <-time.After(waitFor):
		t.Fatalf("peer still connected in state %s", p.State())
	}

	assert.Equal(t, StateDisconnected, p.State())
	assert.Equal(t, code, errors.CodeOf(p.DisconnectReason()), "%v", p.DisconnectReason())
}

func TestHandshake(t *testing.T) {
	t.Run("version then verack", func(t *testing.T) {
		var (
			mu          sync.Mutex
			transitions []State
		)

		cfg := testConfig()
		cfg.OnStateChange = func(_ *Peer, _, to State) {
			mu.Lock()
			defer mu.Unlock()
			transitions = append(transitions, to)
		}

		p, r := startPeer(t, cfg)

		version := r.expect(wire.CmdVersion).(wire.MsgVersion)
		assert.Equal(t, localNonce, version.Nonce)
		assert.Equal(t, int32(wire.ProtocolVersion), version.ProtocolVersion)
		assert.True(t, version.Relay)
		assert.Equal(t, "/legacy-p2p:0.1.0/", version.UserAgent)

		r.send(r.version(remoteNonce, int32(wire.ProtocolVersion), 100))
		r.expect(wire.CmdVerAck)

		assert.Equal(t, StateHandshaking, p.State())
		assert.False(t, p.HandshakeDone())

		r.send(wire.MsgVerAck{})
		requireState(t, p, StateSteady)

		snap := p.Snapshot()
		assert.True(t, snap.HandshakeDone)
		assert.True(t, snap.VersionReceived)
		assert.Equal(t, "/remote:1.0/", snap.UserAgent)
		assert.Equal(t, int32(100), snap.StartingHeight)

		mu.Lock()
		assert.Equal(t, []State{StateHandshaking, StateSteady}, transitions)
		mu.Unlock()
	})

	t.Run("verack before version", func(t *testing.T) {
		p, r := startPeer(t, testConfig())

		r.expect(wire.CmdVersion)
		r.send(wire.MsgVerAck{})

		require.Eventually(t, func() bool { return p.Snapshot().VerAckReceived }, waitFor, tick)
		assert.Equal(t, StateHandshaking, p.State())

		r.send(r.version(remoteNonce, int32(wire.ProtocolVersion), 100))
		r.expect(wire.CmdVerAck)

		requireState(t, p, StateSteady)
		assert.True(t, p.HandshakeDone())
	})
}

func TestHandshakeBetweenTwoPeers(t *testing.T) {
	a, err := NewOutboundPeer(ulogger.TestLogger{}, testConfig(), "10.0.0.2:18444")
	require.NoError(t, err)

	bCfg := testConfig()
	bCfg.Nonce = remoteNonce

	b, err := NewInboundPeer(ulogger.TestLogger{}, bCfg)
	require.NoError(t, err)

	left, right := net.Pipe()

	a.AssociateConnection(left)
	b.AssociateConnection(right)

	requireState(t, a, StateSteady)
	requireState(t, b, StateSteady)

	assert.Equal(t, "pipe (inbound)", b.String())

	a.Disconnect("done")
	a.WaitForDisconnect()
	b.WaitForDisconnect()

	assert.True(t, errors.Is(a.DisconnectReason(), errors.ErrPeerShutdown))
	assert.True(t, errors.IsNetworkError(b.DisconnectReason()), "%v", b.DisconnectReason())
}

func TestProtocolVersionNegotiation(t *testing.T) {
	tracker := NewHeightTracker(50)

	cfg := testConfig()
	cfg.HeightTracker = tracker

	p, r := startPeer(t, cfg)

	r.expect(wire.CmdVersion)
	r.send(r.version(remoteNonce, 70012, 800))
	r.expect(wire.CmdVerAck)
	r.send(wire.MsgVerAck{})

	requireState(t, p, StateSteady)
	assert.Equal(t, uint32(70012), p.ProtocolVersion())
	assert.Equal(t, int32(800), tracker.BestHeight())

	tracker.UpdateBestHeight(10)
	assert.Equal(t, int32(800), tracker.BestHeight())
}

func TestHandshakeFailures(t *testing.T) {
	t.Run("self connection via version", func(t *testing.T) {
		p, r := startPeer(t, testConfig())

		r.expect(wire.CmdVersion)
		r.send(r.version(localNonce, int32(wire.ProtocolVersion), 0))

		requireDisconnectCode(t, p, errors.ERR_SELF_CONNECTION)
	})

	t.Run("self connection via ping", func(t *testing.T) {
		p, r := startPeer(t, testConfig())

		r.handshake()
		requireState(t, p, StateSteady)

		r.send(wire.NewMsgPing(localNonce))

		requireDisconnectCode(t, p, errors.ERR_SELF_CONNECTION)
	})

	t.Run("duplicate version", func(t *testing.T) {
		p, r := startPeer(t, testConfig())

		r.handshake()
		requireState(t, p, StateSteady)

		r.send(r.version(remoteNonce, int32(wire.ProtocolVersion), 0))

		requireDisconnectCode(t, p, errors.ERR_PROTOCOL_VIOLATION)
	})

	t.Run("duplicate verack", func(t *testing.T) {
		p, r := startPeer(t, testConfig())

		r.handshake()
		requireState(t, p, StateSteady)

		r.send(wire.MsgVerAck{})

		requireDisconnectCode(t, p, errors.ERR_PROTOCOL_VIOLATION)
	})

	t.Run("message before version", func(t *testing.T) {
		p, r := startPeer(t, testConfig())

		r.expect(wire.CmdVersion)
		r.send(wire.NewMsgPing(remoteNonce))

		requireDisconnectCode(t, p, errors.ERR_PROTOCOL_VIOLATION)
	})

	t.Run("protocol version too old", func(t *testing.T) {
		p, r := startPeer(t, testConfig())

		r.expect(wire.CmdVersion)
		r.send(r.version(remoteNonce, 60000, 0))

		requireDisconnectCode(t, p, errors.ERR_PROTOCOL_VIOLATION)
	})

	t.Run("timeout", func(t *testing.T) {
		cfg := testConfig()
		cfg.HandshakeTimeout = 50 * time.Millisecond

		p, r := startPeer(t, cfg)

		r.expect(wire.CmdVersion)

		requireDisconnectCode(t, p, errors.ERR_HANDSHAKE_TIMEOUT)
		assert.False(t, p.HandshakeDone())
	})

	t.Run("remote closes", func(t *testing.T) {
		p, r := startPeer(t, testConfig())

		r.expect(wire.CmdVersion)
		require.NoError(t, r.conn.Close())

		requireDisconnectCode(t, p, errors.ERR_NETWORK_CONNECTION_CLOSED)
	})
}

func verifyingPeer(t *testing.T, f checkpointFixture) (*Peer, *remote, *recordingDownstream) {
	t.Helper()

	downstream := &recordingDownstream{}

	cfg := testConfig()
	cfg.VerifyCheckpoint = true
	cfg.HeaderOracle = fixedOracle{checkpoint: f.checkpoint}
	cfg.FilterOracle = fixedOracle{}
	cfg.Downstream = downstream

	p, r := startPeer(t, cfg)

	r.handshake()
	requireState(t, p, StateVerifying)

	getHeaders := r.expect(wire.CmdGetHeaders).(wire.MsgGetHeaders)
	assert.Equal(t, []chainhash.Hash{*f.checkpoint.ParentHash}, getHeaders.BlockLocatorHashes)
	assert.Equal(t, *f.checkpoint.Hash, getHeaders.HashStop)

	getCFHeaders := r.expect(wire.CmdGetCFHeaders).(wire.MsgGetCFHeaders)
	assert.Equal(t, wire.GCSFilterRegular, getCFHeaders.FilterType)
	assert.Equal(t, uint32(f.checkpoint.Height), getCFHeaders.StartHeight)
	assert.Equal(t, *f.checkpoint.Hash, getCFHeaders.StopHash)

	return p, r, downstream
}

func TestCheckpointVerification(t *testing.T) {
	f := newCheckpointFixture()

	t.Run("success", func(t *testing.T) {
		p, r, downstream := verifyingPeer(t, f)

		// payloads are not accepted until the peer is verified
		r.send(wire.NewMsgTx([]byte{1, 2, 3}))

		r.send(wire.NewMsgHeaders(f.header))
		require.Eventually(t, func() bool { return p.Snapshot().BlockVerified }, waitFor, tick)
		assert.Equal(t, StateVerifying, p.State())

		r.send(f.cfheaders())
		requireState(t, p, StateSteady)

		snap := p.Snapshot()
		assert.True(t, snap.BlockVerified)
		assert.True(t, snap.FilterVerified)

		_, txs, headers, _, _ := downstream.counts()
		assert.Equal(t, 0, txs)
		assert.Equal(t, 0, headers)
	})

	other := f.header
	other.Nonce++

	failures := []struct {
		name    string
		headers wire.MsgHeaders
	}{
		{"different hash", wire.NewMsgHeaders(other)},
		{"two headers", wire.NewMsgHeaders(f.header, other)},
		{"no headers", wire.NewMsgHeaders()},
	}

	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			p, r, _ := verifyingPeer(t, f)

			r.send(tt.headers)

			requireDisconnectCode(t, p, errors.ERR_CHECKPOINT_MISMATCH)
			assert.False(t, p.Snapshot().BlockVerified)
		})
	}

	t.Run("wrong filter header", func(t *testing.T) {
		p, r, _ := verifyingPeer(t, f)

		bad := f.cfheaders()
		bad.PrevFilterHeader = chainhash.Hash{}

		r.send(bad)

		requireDisconnectCode(t, p, errors.ERR_CHECKPOINT_MISMATCH)
		assert.False(t, p.Snapshot().FilterVerified)
	})

	t.Run("timeout", func(t *testing.T) {
		cfg := testConfig()
		cfg.VerifyCheckpoint = true
		cfg.VerifyTimeout = 50 * time.Millisecond
		cfg.HeaderOracle = fixedOracle{checkpoint: f.checkpoint}

		p, r := startPeer(t, cfg)
		r.handshake()

		requireDisconnectCode(t, p, errors.ERR_CHECKPOINT_MISMATCH)
	})
}

func TestVerifyCheckpointNeedsCompleteCheckpoint(t *testing.T) {
	cfg := testConfig()
	cfg.VerifyCheckpoint = true

	_, err := NewOutboundPeer(ulogger.TestLogger{}, cfg, "10.0.0.1:18444")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))

	_, err = NewOutboundPeer(ulogger.TestLogger{}, &Config{}, "10.0.0.1:18444")
	require.Error(t, err)
}

func steadyPeer(t *testing.T, cfg *Config) (*Peer, *remote) {
	t.Helper()

	p, r := startPeer(t, cfg)
	r.handshake()
	requireState(t, p, StateSteady)

	return p, r
}

func TestSteadyStateDispatch(t *testing.T) {
	downstream := &recordingDownstream{}
	book := &recordingAddressBook{}

	cfg := testConfig()
	cfg.Downstream = downstream
	cfg.AddressBook = book

	_, r := steadyPeer(t, cfg)

	header := newCheckpointFixture().header
	block, err := wire.NewMsgBlock(append(header.Bytes(), 0))
	require.NoError(t, err)

	r.send(block)
	r.send(wire.NewMsgTx([]byte{1, 0, 0, 0, 0, 0, 0, 0, 0, 0}))

	addr, ok := wire.NewNetAddressFromString("192.168.1.1:8333", wire.SFNodeNetwork)
	require.True(t, ok)
	r.send(wire.NewMsgAddr(addr))
	r.send(wire.NewMsgAddr())

	r.send(newCheckpointFixture().cfheaders())

	key := [gcs.KeySize]byte{1}
	filter, err := gcs.BuildGCSFilter(builder.DefaultP, builder.DefaultM, key, [][]byte{{1}, {2}, {3}})
	require.NoError(t, err)
	data, err := filter.NBytes()
	require.NoError(t, err)

	blockHash := block.BlockHash()
	r.send(wire.MsgCFilter{FilterType: wire.GCSFilterRegular, BlockHash: blockHash, Data: data})

	// not a valid filter, dropped
	r.send(wire.MsgCFilter{FilterType: wire.GCSFilterRegular, BlockHash: blockHash, Data: []byte{0xfd}})

	r.send(wire.MsgSendHeaders{})

	// the pong only comes back after everything above was handled
	r.send(wire.NewMsgPing(99))
	pong := r.expect(wire.CmdPong).(wire.MsgPong)
	assert.Equal(t, uint64(99), pong.Nonce)

	blocks, txs, _, filters, filterHeaders := downstream.counts()
	assert.Equal(t, 1, blocks)
	assert.Equal(t, 1, txs)
	assert.Equal(t, 1, filterHeaders)
	require.Equal(t, 1, filters)
	assert.Equal(t, 1, book.len())

	downstream.mu.Lock()
	assert.Equal(t, submittedFilter{wire.GCSFilterRegular, blockHash, builder.DefaultP, builder.DefaultM, 3}, downstream.filters[0])
	downstream.mu.Unlock()
}

func TestUnknownCommandIsIgnored(t *testing.T) {
	_, r := steadyPeer(t, testConfig())

	frame := make([]byte, 0, wire.MessageHeaderSize)
	frame = append(frame, 0xfa, 0xbf, 0xb5, 0xda)
	frame = append(frame, []byte("sendaddrv2\x00\x00")...)
	frame = append(frame, 0, 0, 0, 0)
	frame = append(frame, chainhash.DoubleHashB(nil)[:4]...)

	_, err := r.conn.Write(frame)
	require.NoError(t, err)

	r.send(wire.NewMsgPing(7))
	assert.Equal(t, uint64(7), r.expect(wire.CmdPong).(wire.MsgPong).Nonce)
}

func TestGetHeadersSingleFlight(t *testing.T) {
	downstream := &recordingDownstream{}

	cfg := testConfig()
	cfg.Downstream = downstream

	p, r := steadyPeer(t, cfg)

	assert.True(t, p.PushGetHeadersMsg([]chainhash.Hash{*chaincfg.RegressionNetParams.GenesisHash}, nil))
	assert.False(t, p.PushGetHeadersMsg([]chainhash.Hash{*chaincfg.RegressionNetParams.GenesisHash}, nil))

	r.expect(wire.CmdGetHeaders)
	r.send(wire.NewMsgHeaders(chainedHeaders(1)...))

	require.Eventually(t, func() bool {
		_, _, headers, _, _ := downstream.counts()
		return headers == 1
	}, waitFor, tick)

	assert.True(t, p.PushGetHeadersMsg([]chainhash.Hash{*chaincfg.RegressionNetParams.GenesisHash}, nil))
}

func TestAnnouncedHeadersKeepRequestOutstanding(t *testing.T) {
	downstream := &recordingDownstream{}

	cfg := testConfig()
	cfg.Downstream = downstream

	p, r := steadyPeer(t, cfg)

	genesis := []chainhash.Hash{*chaincfg.RegressionNetParams.GenesisHash}

	require.True(t, p.PushGetHeadersMsg(genesis, nil))
	r.expect(wire.CmdGetHeaders)

	// pushed after sendheaders, it builds on a block we never asked about
	r.send(wire.NewMsgHeaders(newCheckpointFixture().header))

	require.Eventually(t, func() bool {
		_, _, headers, _, _ := downstream.counts()
		return headers == 1
	}, waitFor, tick)

	assert.False(t, p.PushGetHeadersMsg(genesis, nil))

	r.send(wire.NewMsgHeaders(chainedHeaders(1)...))

	require.Eventually(t, func() bool {
		_, _, headers, _, _ := downstream.counts()
		return headers == 2
	}, waitFor, tick)

	assert.True(t, p.PushGetHeadersMsg(genesis, nil))
}

func TestPushFilterRequestsWithoutStop(t *testing.T) {
	p, r := steadyPeer(t, testConfig())

	p.PushGetCFHeadersMsg(wire.GCSFilterRegular, 0, nil)
	p.PushGetCFiltersMsg(wire.GCSFilterRegular, 10, nil)

	cfheaders := r.expect(wire.CmdGetCFHeaders).(wire.MsgGetCFHeaders)
	assert.Equal(t, chainhash.Hash{}, cfheaders.StopHash)

	cfilters := r.expect(wire.CmdGetCFilters).(wire.MsgGetCFilters)
	assert.Equal(t, uint32(10), cfilters.StartHeight)
	assert.Equal(t, chainhash.Hash{}, cfilters.StopHash)
}

func TestStalledPeerDropped(t *testing.T) {
	t.Run("unanswered ping", func(t *testing.T) {
		cfg := testConfig()
		cfg.PingInterval = 20 * time.Millisecond
		cfg.PingTimeout = 100 * time.Millisecond

		p, r := steadyPeer(t, cfg)

		requireDisconnectCode(t, p, errors.ERR_NETWORK_TIMEOUT)

		// no new ping goes out while one is unanswered
		pings := 0

		for drained := false; !drained; {
			select {
			case msg, ok := <-r.msgs:
				if !ok {
					drained = true
				} else if msg.Command() == wire.CmdPing {
					pings++
				}
			case <-time.After(100 * time.Millisecond):
				drained = true
			}
		}

		assert.Equal(t, 1, pings)
	})

	t.Run("unanswered getheaders", func(t *testing.T) {
		cfg := testConfig()
		cfg.GetHeadersTimeout = 100 * time.Millisecond

		p, r := steadyPeer(t, cfg)

		require.True(t, p.PushGetHeadersMsg([]chainhash.Hash{*chaincfg.RegressionNetParams.GenesisHash}, nil))
		r.expect(wire.CmdGetHeaders)

		requireDisconnectCode(t, p, errors.ERR_NETWORK_TIMEOUT)
	})

	t.Run("answered pings keep the peer", func(t *testing.T) {
		cfg := testConfig()
		cfg.PingInterval = 20 * time.Millisecond
		cfg.PingTimeout = 100 * time.Millisecond

		p, r := steadyPeer(t, cfg)

		deadline := time.After(400 * time.Millisecond)

	loop:
		for {
			select {
			case msg := <-r.msgs:
				if ping, ok := msg.(wire.MsgPing); ok {
					r.send(wire.NewMsgPong(ping.Nonce))
				}
			case <-deadline:
				break loop
			}
		}

		assert.Equal(t, StateSteady, p.State())
	})
}

func chainedHeaders(n int) []wire.BlockHeader {
	headers := make([]wire.BlockHeader, n)
	prev := *chaincfg.RegressionNetParams.GenesisHash

	for i := range headers {
		headers[i] = wire.BlockHeader{Version: 1, PrevBlock: prev, Timestamp: uint32(1296688602 + i), Bits: 0x207fffff}
		prev = headers[i].BlockHash()
	}

	return headers
}

func TestFullHeadersBatchRequestsMore(t *testing.T) {
	downstream := &recordingDownstream{moreHeaders: true}

	cfg := testConfig()
	cfg.Downstream = downstream

	_, r := steadyPeer(t, cfg)

	headers := chainedHeaders(wire.MaxBlockHeadersPerMsg)
	r.send(wire.NewMsgHeaders(headers...))

	getHeaders := r.expect(wire.CmdGetHeaders).(wire.MsgGetHeaders)
	require.Len(t, getHeaders.BlockLocatorHashes, 1)
	assert.Equal(t, headers[len(headers)-1].BlockHash(), getHeaders.BlockLocatorHashes[0])
	assert.Equal(t, chainhash.Hash{}, getHeaders.HashStop)

	// a short batch means the remote has nothing more
	r.send(wire.NewMsgHeaders(chainedHeaders(3)...))
	r.send(wire.NewMsgPing(5))
	r.expect(wire.CmdPong)

	select {
	case msg := <-r.msgs:
		assert.NotEqual(t, wire.CmdGetHeaders, msg.Command())
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBlockInvTriggersGetHeaders(t *testing.T) {
	recent := []chainhash.Hash{chainhash.DoubleHashH([]byte("tip")), *chaincfg.RegressionNetParams.GenesisHash}

	cfg := testConfig()
	cfg.HeaderOracle = fixedOracle{recent: recent}

	p, r := steadyPeer(t, cfg)

	announced := chainhash.DoubleHashH([]byte("new block"))

	r.send(wire.NewMsgInv(wire.NewInvVect(wire.InvTypeTx, &announced)))
	r.send(wire.NewMsgInv(wire.NewInvVect(wire.InvTypeBlock, &announced)))

	getHeaders := r.expect(wire.CmdGetHeaders).(wire.MsgGetHeaders)
	assert.Equal(t, recent, getHeaders.BlockLocatorHashes)

	// the first request has not been answered yet
	r.send(wire.NewMsgInv(wire.NewInvVect(wire.InvTypeBlock, &announced)))
	r.send(wire.NewMsgPing(5))
	r.expect(wire.CmdPong)
	assert.False(t, p.PushGetHeadersMsg(recent, nil))
}

func TestPingPong(t *testing.T) {
	cfg := testConfig()
	cfg.PingInterval = 200 * time.Millisecond

	p, r := steadyPeer(t, cfg)

	ping := r.expect(wire.CmdPing).(wire.MsgPing)
	assert.Equal(t, localNonce, ping.Nonce)

	time.Sleep(2 * time.Millisecond)
	r.send(wire.NewMsgPong(ping.Nonce))

	require.Eventually(t, func() bool { return p.LastPingMicros() > 0 }, waitFor, tick)
}

func TestPushGetDataSkipsRecentlyRequested(t *testing.T) {
	p, r := steadyPeer(t, testConfig())

	a := chainhash.DoubleHashH([]byte("a"))
	b := chainhash.DoubleHashH([]byte("b"))

	assert.Equal(t, 1, p.PushGetDataMsg([]wire.InvVect{wire.NewInvVect(wire.InvTypeBlock, &a)}))
	assert.Equal(t, 1, p.PushGetDataMsg([]wire.InvVect{
		wire.NewInvVect(wire.InvTypeBlock, &a),
		wire.NewInvVect(wire.InvTypeTx, &b),
	}))
	assert.Equal(t, 0, p.PushGetDataMsg([]wire.InvVect{wire.NewInvVect(wire.InvTypeTx, &b)}))

	first := r.expect(wire.CmdGetData).(wire.MsgGetData)
	assert.Equal(t, a, first.InvList[0].Hash)

	second := r.expect(wire.CmdGetData).(wire.MsgGetData)
	require.Len(t, second.InvList, 1)
	assert.Equal(t, b, second.InvList[0].Hash)
}

func TestDisconnect(t *testing.T) {
	p, r := steadyPeer(t, testConfig())

	p.Disconnect("shutting down")
	p.WaitForDisconnect()

	assert.Equal(t, StateDisconnected, p.State())
	assert.True(t, errors.Is(p.DisconnectReason(), errors.ErrPeerShutdown))

	// a second disconnect keeps the first reason
	p.disconnect(errors.NewProtocolViolationError("late"))
	assert.True(t, errors.Is(p.DisconnectReason(), errors.ErrPeerShutdown))

	// queueing on a dead peer does not block
	done := make(chan struct{})
	p.QueueMessage(wire.NewMsgPing(1), done)
	<-done

	r.trySend(wire.NewMsgPing(1))
}

func TestDisconnectBeforeConnection(t *testing.T) {
	p, err := NewOutboundPeer(ulogger.TestLogger{}, testConfig(), "10.0.0.1:18444")
	require.NoError(t, err)

	p.Disconnect("never mind")
	p.WaitForDisconnect()

	assert.Equal(t, StateConnecting, p.State())
}
