package legacy

import (
	"context"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/bsv-blockchain/legacy-p2p/chaincfg"
	"github.com/bsv-blockchain/legacy-p2p/errors"
	"github.com/bsv-blockchain/legacy-p2p/services/legacy/peer"
	"github.com/bsv-blockchain/legacy-p2p/services/legacy/wire"
	"github.com/bsv-blockchain/legacy-p2p/settings"
	"github.com/bsv-blockchain/legacy-p2p/ulogger"
	"github.com/bsv-blockchain/legacy-p2p/util/retry"
	"github.com/btcsuite/go-socks/socks"
)

const discoverInterval = 30 * time.Second

// PeerManager owns the outbound (and optional inbound) peers. It keeps the
// configured peers connected, fills free slots from the address book and
// picks the sync peer that headers are requested from.
type PeerManager struct {
	logger        ulogger.Logger
	settings      *settings.Settings
	params        *chaincfg.Params
	chain         *HeaderChain
	addressBook   *AddressBook
	downstream    peer.Downstream
	heightTracker peer.HeightTracker
	dial          func(ctx context.Context, addr string) (net.Conn, error)

	mu       sync.RWMutex
	peers    map[string]*peer.Peer
	outbound map[string]struct{} // addresses owned by a maintainPeer goroutine, dialling or connected
	syncPeer *peer.Peer
	wg       sync.WaitGroup
}

var _ peer.FilterOracle = (*PeerManager)(nil)

func NewPeerManager(logger ulogger.Logger, tSettings *settings.Settings, chain *HeaderChain, addressBook *AddressBook, downstream peer.Downstream) *PeerManager {
	initPrometheusMetrics()

	pm := &PeerManager{
		logger:        logger,
		settings:      tSettings,
		params:        tSettings.ChainCfgParams,
		chain:         chain,
		addressBook:   addressBook,
		downstream:    downstream,
		heightTracker: peer.NewHeightTracker(0),
		peers:         make(map[string]*peer.Peer),
		outbound:      make(map[string]struct{}),
	}

	pm.dial = pm.dialDirect
	if tSettings.Legacy.Proxy != "" {
		pm.dial = pm.dialProxy
	}

	return pm
}

func (pm *PeerManager) dialDirect(ctx context.Context, addr string) (net.Conn, error) {
	d := net.Dialer{Timeout: pm.settings.Legacy.DialTimeout}

	return d.DialContext(ctx, "tcp", addr)
}

// dialProxy connects through a SOCKS5 proxy. Every connection gets its own
// Tor circuit.
func (pm *PeerManager) dialProxy(_ context.Context, addr string) (net.Conn, error) {
	proxy := &socks.Proxy{
		Addr:         pm.settings.Legacy.Proxy,
		Username:     pm.settings.Legacy.ProxyUser,
		Password:     pm.settings.Legacy.ProxyPass,
		TorIsolation: true,
	}

	return proxy.Dial("tcp", addr)
}

// Start connects to the configured peers and, when none are configured,
// keeps the free slots filled from the address book. It does not block.
func (pm *PeerManager) Start(ctx context.Context) {
	for _, addr := range pm.settings.Legacy.ConnectPeers {
		if !pm.claim(addr) {
			continue
		}

		pm.wg.Add(1)

		go pm.maintainPeer(ctx, addr, true)
	}

	if len(pm.settings.Legacy.ConnectPeers) == 0 {
		pm.wg.Add(1)

		go pm.discoverLoop(ctx)
	}
}

// Stop disconnects every peer and waits for the connection goroutines.
func (pm *PeerManager) Stop(ctx context.Context) error {
	for _, p := range pm.snapshot() {
		p.Disconnect("peer manager stopping")
	}

	done := make(chan struct{})

	go func() {
		pm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.NewServiceError("peer manager did not stop in time", ctx.Err())
	}
}

func (pm *PeerManager) peerConfig() *peer.Config {
	ls := pm.settings.Legacy

	return &peer.Config{
		ChainParams:       pm.params,
		ProtocolVersion:   ls.ProtocolVersion,
		Services:          wire.ServiceFlag(ls.Services),
		UserAgentName:     ls.UserAgentName,
		UserAgentVersion:  ls.UserAgentVersion,
		UserAgentComments: ls.UserAgentComments,
		DisableRelayTx:    ls.DisableRelayTx,
		VerifyCheckpoint:  ls.VerifyCheckpoint,
		HandshakeTimeout:  ls.HandshakeTimeout,
		VerifyTimeout:     ls.VerifyTimeout,
		PingInterval:      ls.PingInterval,
		PingTimeout:       ls.PingTimeout,
		GetHeadersTimeout: ls.GetHeadersTimeout,
		GetHeadersRate:    ls.GetHeadersRate,
		GetHeadersBurst:   ls.GetHeadersBurst,
		GetDataExpiry:     ls.GetDataExpiry,
		TraceMessages:     ls.TraceMessages,
		Downstream:        pm.downstream,
		AddressBook:       pm.addressBook,
		HeaderOracle:      pm.chain,
		FilterOracle:      pm,
		HeightTracker:     pm.heightTracker,
		OnStateChange:     pm.onStateChange,
	}
}

func (pm *PeerManager) connect(ctx context.Context, addr string) (net.Conn, error) {
	ls := pm.settings.Legacy

	return retry.Retry(ctx, pm.logger, func() (net.Conn, error) {
		start := time.Now()

		conn, err := pm.dial(ctx, addr)
		if err != nil {
			prometheusLegacyDials.WithLabelValues("failed").Inc()
			return nil, errors.NewNetworkError("failed to connect to %s", addr, err)
		}

		prometheusLegacyDials.WithLabelValues("connected").Inc()
		prometheusLegacyDialDuration.Observe(time.Since(start).Seconds())

		return conn, nil
	},
		retry.WithRetryCount(max(ls.ReconnectRetries, 1)),
		retry.WithExponentialBackoff(),
		retry.WithBackoffDurationType(ls.ReconnectBackoff),
		retry.WithBackoffFactor(2),
		retry.WithMaxBackoff(time.Minute),
		retry.WithMessage("[PeerManager] connecting to "+addr),
	)
}

// maintainPeer runs one connection to addr at a time. Persistent peers are
// reconnected after they drop, others are given up on.
func (pm *PeerManager) maintainPeer(ctx context.Context, addr string, persistent bool) {
	defer pm.wg.Done()
	defer pm.release(addr)

	for {
		conn, err := pm.connect(ctx, addr)
		if err != nil {
			if ctx.Err() == nil {
				pm.logger.Warnf("[PeerManager] giving up on %s: %v", addr, err)
			}

			return
		}

		p, err := peer.NewOutboundPeer(pm.logger, pm.peerConfig(), addr)
		if err != nil {
			_ = conn.Close()
			pm.logger.Errorf("[PeerManager] cannot create peer %s: %v", addr, err)

			return
		}

		pm.runPeer(ctx, p, conn)

		reason := p.DisconnectReason()

		if !persistent || ctx.Err() != nil || errors.Is(reason, errors.ErrSelfConnection) {
			return
		}

		pm.logger.Infof("[PeerManager] %s disconnected (%s), reconnecting", addr, errors.GetErrorCategory(reason))

		if err = retry.BackoffAndSleep(ctx, 0, 1, pm.settings.Legacy.ReconnectBackoff); err != nil {
			return
		}
	}
}

// HandleInbound takes over an accepted connection.
func (pm *PeerManager) HandleInbound(ctx context.Context, conn net.Conn) {
	if used := pm.slotsInUse(); used >= pm.settings.Legacy.MaxPeers {
		pm.logger.Infof("[PeerManager] rejecting %s, %d peer slots in use", conn.RemoteAddr(), used)
		_ = conn.Close()

		return
	}

	p, err := peer.NewInboundPeer(pm.logger, pm.peerConfig())
	if err != nil {
		_ = conn.Close()
		pm.logger.Errorf("[PeerManager] cannot create inbound peer: %v", err)

		return
	}

	pm.wg.Add(1)

	go func() {
		defer pm.wg.Done()
		pm.runPeer(ctx, p, conn)
	}()
}

func (pm *PeerManager) runPeer(ctx context.Context, p *peer.Peer, conn net.Conn) {
	p.AssociateConnection(conn)
	pm.addPeer(p)

	stop := context.AfterFunc(ctx, func() {
		p.Disconnect("shutting down")
	})
	defer stop()

	p.WaitForDisconnect()
	pm.removePeer(p)
}

func (pm *PeerManager) addPeer(p *peer.Peer) {
	pm.mu.Lock()
	pm.peers[p.Addr()] = p
	n := len(pm.peers)
	pm.mu.Unlock()

	prometheusLegacyPeers.Set(float64(n))
}

func (pm *PeerManager) removePeer(p *peer.Peer) {
	pm.mu.Lock()
	if pm.peers[p.Addr()] == p {
		delete(pm.peers, p.Addr())
	}
	n := len(pm.peers)
	pm.mu.Unlock()

	prometheusLegacyPeers.Set(float64(n))
}

// claim reserves addr for a new maintainPeer goroutine. It fails when addr is
// already connected or being dialled.
func (pm *PeerManager) claim(addr string) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if _, ok := pm.outbound[addr]; ok {
		return false
	}

	if _, ok := pm.peers[addr]; ok {
		return false
	}

	pm.outbound[addr] = struct{}{}

	return true
}

func (pm *PeerManager) release(addr string) {
	pm.mu.Lock()
	delete(pm.outbound, addr)
	pm.mu.Unlock()
}

func (pm *PeerManager) connected(addr string) bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	if _, ok := pm.outbound[addr]; ok {
		return true
	}

	_, ok := pm.peers[addr]

	return ok
}

// slotsInUse counts connected peers plus outbound addresses still dialling or
// waiting to reconnect.
func (pm *PeerManager) slotsInUse() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	n := len(pm.peers)

	for addr := range pm.outbound {
		if _, ok := pm.peers[addr]; !ok {
			n++
		}
	}

	return n
}

func (pm *PeerManager) snapshot() []*peer.Peer {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	peers := make([]*peer.Peer, 0, len(pm.peers))
	for _, p := range pm.peers {
		peers = append(peers, p)
	}

	sort.Slice(peers, func(i, j int) bool { return peers[i].ID() < peers[j].ID() })

	return peers
}

// Count returns the number of connected peers. Dials in progress are not
// included.
func (pm *PeerManager) Count() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	return len(pm.peers)
}

// Peers returns a snapshot of every connected peer, oldest first.
func (pm *PeerManager) Peers() []peer.StateSnapshot {
	peers := pm.snapshot()
	out := make([]peer.StateSnapshot, 0, len(peers))

	for _, p := range peers {
		out = append(out, p.Snapshot())
	}

	return out
}

func (pm *PeerManager) SyncPeer() *peer.Peer {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	return pm.syncPeer
}

func (pm *PeerManager) BestHeight() int32 {
	return pm.heightTracker.BestHeight()
}

func (pm *PeerManager) DefaultFilterType() wire.FilterType {
	return pm.params.DefaultFilterType
}

// onStateChange makes the first peer to reach steady state the sync peer and
// hands the role on when it disconnects.
func (pm *PeerManager) onStateChange(p *peer.Peer, from, to peer.State) {
	pm.logger.Debugf("[PeerManager] %s %s -> %s", p, from, to)

	switch to {
	case peer.StateSteady:
		pm.mu.Lock()
		chosen := pm.syncPeer == nil
		if chosen {
			pm.syncPeer = p
		}
		pm.mu.Unlock()

		if chosen {
			pm.startSync(p)
		}

	case peer.StateDisconnected:
		pm.mu.Lock()
		if pm.syncPeer != p {
			pm.mu.Unlock()
			return
		}

		pm.syncPeer = nil

		for _, candidate := range pm.peers {
			if candidate != p && candidate.State() == peer.StateSteady {
				pm.syncPeer = candidate
				break
			}
		}

		next := pm.syncPeer
		pm.mu.Unlock()

		if next != nil {
			pm.startSync(next)
		}
	}
}

func (pm *PeerManager) startSync(p *peer.Peer) {
	_, height := pm.chain.Tip()
	pm.logger.Infof("[PeerManager] syncing headers from %s (our height %d, peer height %d)", p, height, p.StartingHeight())

	p.PushGetHeadersMsg(pm.chain.RecentHashes(), nil)
}

func (pm *PeerManager) discoverLoop(ctx context.Context) {
	defer pm.wg.Done()

	ticker := time.NewTicker(discoverInterval)
	defer ticker.Stop()

	for {
		pm.fillSlots(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (pm *PeerManager) fillSlots(ctx context.Context) {
	free := pm.settings.Legacy.MaxPeers - pm.slotsInUse()
	if free <= 0 {
		return
	}

	if pm.addressBook.Len() == 0 {
		pm.seedFromDNS(ctx)
	}

	prometheusLegacyAddressesSeen.Set(float64(pm.addressBook.Len()))

	for _, na := range pm.addressBook.Candidates(free, pm.connected) {
		if !pm.claim(na.Addr()) {
			continue
		}

		pm.wg.Add(1)

		go pm.maintainPeer(ctx, na.Addr(), false)
	}
}

func (pm *PeerManager) seedFromDNS(ctx context.Context) {
	var addrs []wire.NetAddress

	for _, seed := range pm.params.DNSSeeds {
		ips, err := net.DefaultResolver.LookupHost(ctx, seed.Host)
		if err != nil {
			pm.logger.Warnf("[PeerManager] DNS seed %s: %v", seed, err)
			continue
		}

		for _, ip := range ips {
			if na, ok := wire.NewNetAddressFromString(net.JoinHostPort(ip, pm.params.DefaultPort), wire.SFNodeNetwork); ok {
				addrs = append(addrs, na)
			}
		}
	}

	pm.logger.Infof("[PeerManager] %d addresses from DNS seeds", len(addrs))
	pm.addressBook.Import(addrs)
}
