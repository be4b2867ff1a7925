// Package peer runs one Bitcoin P2P connection: the version handshake, optional
// checkpoint verification, and the steady state in which received blocks,
// transactions, headers and filters are handed downstream.
//
// A peer owns three goroutines. The read loop decodes frames off the socket,
// the write loop serialises queued messages onto it and the processing loop is
// the only one that changes peer state. Every failure goes through a single
// disconnect point that records the first reason and closes the socket.
package peer

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/legacy-p2p/errors"
	"github.com/bsv-blockchain/legacy-p2p/services/legacy/wire"
	"github.com/bsv-blockchain/legacy-p2p/ulogger"
	"github.com/davecgh/go-spew/spew"
	"github.com/looplab/fsm"
	"github.com/ordishs/go-utils/expiringmap"
	"github.com/ordishs/gocore"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var peerCount = atomic.NewInt32(0)

type outMsg struct {
	msg  wire.Message
	done chan<- struct{}
}

// flags is the handshake and verification bookkeeping. Only the processing
// goroutine writes it.
type flags struct {
	versionReceived bool
	verAckReceived  bool
	verAckSent      bool
	blockVerified   bool
	filterVerified  bool
	services        wire.ServiceFlag
	userAgent       string
	startingHeight  int32
	relay           bool
	sendHeaders     bool
	feeFilter       int64
}

// StateSnapshot is a point in time copy of everything observable about a peer.
type StateSnapshot struct {
	ID               int32
	Addr             string
	Inbound          bool
	State            State
	ProtocolVersion  uint32
	Services         wire.ServiceFlag
	UserAgent        string
	StartingHeight   int32
	Relay            bool
	VersionReceived  bool
	VerAckReceived   bool
	VerAckSent       bool
	HandshakeDone    bool
	BlockVerified    bool
	FilterVerified   bool
	SendHeaders      bool
	FeeFilter        int64
	BytesSent        uint64
	BytesReceived    uint64
	LastPingMicros   int64
	TimeConnected    time.Time
	DisconnectReason error
}

// Peer is a single connection to a remote node.
type Peer struct {
	logger  ulogger.Logger
	cfg     Config
	id      int32
	inbound bool
	nonce   uint64
	addr    *atomic.String

	connMu        sync.Mutex
	conn          net.Conn
	connected     *atomic.Bool
	timeConnected *atomic.Time

	ctx    context.Context
	cancel context.CancelFunc
	fsm    *fsm.FSM

	flagsMu sync.RWMutex
	flags   flags

	protocolVersion *atomic.Uint32
	versionSent     *atomic.Bool
	bytesReceived   *atomic.Uint64
	bytesSent       *atomic.Uint64
	lastPingNonce   *atomic.Uint64
	lastPingTime    *atomic.Time
	lastPingMicros  *atomic.Int64

	// locator hashes of the outstanding getheaders, nil when none is pending
	getHeadersMu      sync.Mutex
	getHeadersPending map[chainhash.Hash]struct{}
	getHeadersSentAt  time.Time
	getHeadersLimiter *rate.Limiter
	requested         *expiringmap.ExpiringMap[chainhash.Hash, time.Time]

	inQueue  chan wire.Message
	outQueue chan outMsg

	// owned by the processing goroutine
	verAckWritten chan struct{}
	verifyTimer   *time.Timer
	verifyTimeout <-chan time.Time
	headersDone   chan bool
	headersFull   bool
	lastHeader    *chainhash.Hash

	disconnectOnce sync.Once
	disconnectMu   sync.RWMutex
	disconnectErr  error
	quit           chan struct{}
}

// NewOutboundPeer returns a peer for a connection we initiate to addr. The
// connection itself is handed over with AssociateConnection.
func NewOutboundPeer(logger ulogger.Logger, cfg *Config, addr string) (*Peer, error) {
	return newPeer(logger, cfg, addr, false)
}

// NewInboundPeer returns a peer for a connection accepted from a remote node.
func NewInboundPeer(logger ulogger.Logger, cfg *Config) (*Peer, error) {
	return newPeer(logger, cfg, "", true)
}

func newPeer(logger ulogger.Logger, cfg *Config, addr string, inbound bool) (*Peer, error) {
	initPrometheusMetrics()

	c, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	nonce := c.Nonce
	if nonce == 0 {
		if nonce, err = randomNonce(); err != nil {
			return nil, errors.NewProcessingError("could not create nonce", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &Peer{
		logger:            logger,
		cfg:               c,
		id:                peerCount.Inc(),
		inbound:           inbound,
		nonce:             nonce,
		addr:              atomic.NewString(addr),
		connected:         atomic.NewBool(false),
		timeConnected:     atomic.NewTime(time.Time{}),
		ctx:               ctx,
		cancel:            cancel,
		fsm:               newPeerFSM(),
		protocolVersion:   atomic.NewUint32(c.ProtocolVersion),
		versionSent:       atomic.NewBool(false),
		bytesReceived:     atomic.NewUint64(0),
		bytesSent:         atomic.NewUint64(0),
		lastPingNonce:     atomic.NewUint64(0),
		lastPingTime:      atomic.NewTime(time.Time{}),
		lastPingMicros:    atomic.NewInt64(0),
		getHeadersLimiter: rate.NewLimiter(rate.Limit(c.GetHeadersRate), c.GetHeadersBurst),
		requested:         expiringmap.New[chainhash.Hash, time.Time](c.GetDataExpiry),
		inQueue:           make(chan wire.Message),
		outQueue:          make(chan outMsg, outputBufferSize),
		quit:              make(chan struct{}),
	}

	prometheusPeerStates.WithLabelValues(StateConnecting.String()).Inc()

	return p, nil
}

func randomNonce() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint64(b[:]), nil
}

// AssociateConnection hands the socket to the peer and starts the handshake.
// Only the first call has any effect.
func (p *Peer) AssociateConnection(conn net.Conn) {
	if !p.connected.CompareAndSwap(false, true) {
		p.logger.Warnf("[AssociateConnection][%s] already has a connection", p)
		return
	}

	if p.inbound {
		p.addr.Store(conn.RemoteAddr().String())
	}

	p.timeConnected.Store(time.Now())

	p.connMu.Lock()
	p.conn = conn
	if p.ctx.Err() != nil {
		// disconnected before we got the socket
		_ = conn.Close()
	}
	p.connMu.Unlock()

	go p.run()
}

func (p *Peer) run() {
	defer close(p.quit)

	if err := p.transition(eventHandshake); err != nil {
		p.disconnect(err)
	}

	p.PushVersionMsg()

	g, ctx := errgroup.WithContext(p.ctx)

	g.Go(func() error { return p.readLoop(ctx) })
	g.Go(func() error { return p.writeLoop(ctx) })
	g.Go(func() error { return p.processLoop(ctx) })

	// the loops report through disconnect, so the group error adds nothing
	_ = g.Wait()

	p.disconnect(nil)

	if err := p.transition(eventDisconnect); err != nil {
		p.logger.Errorf("[run][%s] %v", p, err)
	}

	reason := p.DisconnectReason()
	prometheusPeerDisconnects.WithLabelValues(errors.GetErrorCategory(reason)).Inc()

	if errors.IsContextError(reason) || errors.IsNetworkError(reason) {
		p.logger.Infof("[run][%s] disconnected: %v", p, reason)
	} else {
		p.logger.Warnf("[run][%s] disconnected: %v", p, reason)
	}
}

// disconnect is the single point through which a peer goes down. The first
// reason wins.
func (p *Peer) disconnect(reason error) {
	p.disconnectOnce.Do(func() {
		if reason == nil {
			reason = errors.NewPeerShutdownError("[%s] connection closed", p)
		}

		p.disconnectMu.Lock()
		p.disconnectErr = reason
		p.disconnectMu.Unlock()

		p.cancel()

		p.connMu.Lock()
		if p.conn != nil {
			_ = p.conn.Close()
		}
		p.connMu.Unlock()
	})
}

// Disconnect closes the connection. It does not wait for the peer goroutines
// to finish, use WaitForDisconnect for that.
func (p *Peer) Disconnect(reason string) {
	p.disconnect(errors.NewPeerShutdownError("[%s] %s", p, reason))
}

// WaitForDisconnect blocks until the peer goroutines are done. It returns
// straight away for a peer that never got a connection and was disconnected.
func (p *Peer) WaitForDisconnect() {
	if !p.connected.Load() {
		<-p.ctx.Done()
		return
	}

	<-p.quit
}

// Done is closed once the peer is fully shut down.
func (p *Peer) Done() <-chan struct{} {
	return p.quit
}

func (p *Peer) readLoop(ctx context.Context) error {
	for {
		n, msg, err := wire.ReadMessage(p.conn, p.cfg.ChainParams.Net)
		p.bytesReceived.Add(uint64(n))
		prometheusPeerBytesReceived.Add(float64(n))

		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			if !errors.IsFatalPeerError(err) {
				p.logger.Debugf("[readLoop][%s] ignoring message: %v", p, err)
				continue
			}

			p.disconnect(err)

			return err
		}

		cmd := msg.Command().String()
		prometheusPeerMessagesReceived.WithLabelValues(cmd).Inc()
		prometheusPeerMessageSize.WithLabelValues(cmd).Observe(float64(n))

		p.trace("received", msg)

		select {
		case p.inQueue <- msg:
		case <-ctx.Done():
			return nil
		}
	}
}

func (p *Peer) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case out := <-p.outQueue:
			p.trace("sending", out.msg)

			n, err := wire.WriteMessage(p.conn, p.cfg.ChainParams.Net, out.msg)
			p.bytesSent.Add(uint64(n))
			prometheusPeerBytesSent.Add(float64(n))

			if err != nil {
				if out.done != nil {
					close(out.done)
				}

				if ctx.Err() != nil {
					return nil
				}

				p.disconnect(errors.NewNetworkError("[writeLoop][%s] failed to write %s", p, out.msg.Command(), err))

				return err
			}

			prometheusPeerMessagesSent.WithLabelValues(out.msg.Command().String()).Inc()

			if out.done != nil {
				close(out.done)
			}
		}
	}
}

func (p *Peer) processLoop(ctx context.Context) error {
	handshakeTimer := time.NewTimer(p.cfg.HandshakeTimeout)
	defer handshakeTimer.Stop()

	pingTicker := time.NewTicker(p.cfg.PingInterval)
	defer pingTicker.Stop()

	stallTicker := time.NewTicker(p.stallTickInterval())
	defer stallTicker.Stop()

	defer func() {
		if p.verifyTimer != nil {
			p.verifyTimer.Stop()
		}
	}()

	for {
		var err error

		select {
		case <-ctx.Done():
			return nil

		case msg := <-p.inQueue:
			start := time.Now()
			err = p.handleMessage(msg)

			prometheusPeerHandleDuration.WithLabelValues(msg.Command().String()).Observe(time.Since(start).Seconds())

		case <-p.verAckWritten:
			p.verAckWritten = nil
			p.setFlags(func(f *flags) { f.verAckSent = true })

			err = p.advance()

		case <-handshakeTimer.C:
			if p.State() == StateHandshaking {
				err = errors.NewHandshakeTimeoutError("[%s] handshake not completed within %s", p, p.cfg.HandshakeTimeout)
			}

		case <-p.verifyTimeout:
			p.verifyTimeout = nil
			err = errors.NewCheckpointMismatchError("[%s] checkpoint not verified within %s", p, p.cfg.VerifyTimeout)

		case <-pingTicker.C:
			if p.State() == StateSteady {
				p.sendPing()
			}

		case <-stallTicker.C:
			err = p.checkStalled(time.Now())

		case ok := <-p.headersDone:
			p.headersDone = nil
			p.onHeadersProcessed(ok)
		}

		if err != nil {
			p.disconnect(err)
			return err
		}
	}
}

// transition fires a state machine event and reports the change.
func (p *Peer) transition(event string) error {
	from := p.State()

	if err := p.fsm.Event(context.Background(), event); err != nil {
		return errors.NewProcessingError("[%s] %s event in state %s failed", p, event, from, err)
	}

	to := p.State()

	prometheusPeerStates.WithLabelValues(from.String()).Dec()
	prometheusPeerStates.WithLabelValues(to.String()).Inc()

	if from == StateHandshaking {
		prometheusPeerHandshakeDuration.Observe(time.Since(p.timeConnected.Load()).Seconds())
	}

	p.logger.Debugf("[transition][%s] %s -> %s", p, from, to)

	if p.cfg.OnStateChange != nil {
		p.cfg.OnStateChange(p, from, to)
	}

	return nil
}

func (p *Peer) trace(direction string, msg wire.Message) {
	if !p.cfg.TraceMessages || p.logger.LogLevel() > int(gocore.DEBUG) {
		return
	}

	p.logger.Debugf("[%s] %s %s: %s", p, direction, msg.Command(), spew.Sdump(msg))
}

// QueueMessage queues msg for sending. done, when not nil, is closed once the
// message is written or the peer goes away.
func (p *Peer) QueueMessage(msg wire.Message, done chan<- struct{}) {
	if p.ctx.Err() != nil {
		if done != nil {
			close(done)
		}

		return
	}

	select {
	case p.outQueue <- outMsg{msg: msg, done: done}:
	case <-p.ctx.Done():
		if done != nil {
			close(done)
		}
	}
}

func (p *Peer) setFlags(fn func(f *flags)) {
	p.flagsMu.Lock()
	fn(&p.flags)
	p.flagsMu.Unlock()
}

func (p *Peer) getFlags() flags {
	p.flagsMu.RLock()
	defer p.flagsMu.RUnlock()

	return p.flags
}

func (p *Peer) String() string {
	direction := "outbound"
	if p.inbound {
		direction = "inbound"
	}

	return fmt.Sprintf("%s (%s)", p.addr.Load(), direction)
}

func (p *Peer) ID() int32 {
	return p.id
}

func (p *Peer) Addr() string {
	return p.addr.Load()
}

func (p *Peer) Inbound() bool {
	return p.inbound
}

func (p *Peer) State() State {
	return State(p.fsm.Current())
}

// Nonce is the local nonce sent in version and ping messages.
func (p *Peer) Nonce() uint64 {
	return p.nonce
}

// ProtocolVersion is the negotiated protocol version. It starts at the local
// maximum and only ever goes down.
func (p *Peer) ProtocolVersion() uint32 {
	return p.protocolVersion.Load()
}

func (p *Peer) Services() wire.ServiceFlag {
	return p.getFlags().services
}

func (p *Peer) UserAgent() string {
	return p.getFlags().userAgent
}

func (p *Peer) StartingHeight() int32 {
	return p.getFlags().startingHeight
}

func (p *Peer) LastPingMicros() int64 {
	return p.lastPingMicros.Load()
}

func (p *Peer) HandshakeDone() bool {
	f := p.getFlags()
	return f.verAckReceived && f.verAckSent
}

func (p *Peer) DisconnectReason() error {
	p.disconnectMu.RLock()
	defer p.disconnectMu.RUnlock()

	return p.disconnectErr
}

func (p *Peer) Snapshot() StateSnapshot {
	f := p.getFlags()

	return StateSnapshot{
		ID:               p.id,
		Addr:             p.Addr(),
		Inbound:          p.inbound,
		State:            p.State(),
		ProtocolVersion:  p.ProtocolVersion(),
		Services:         f.services,
		UserAgent:        f.userAgent,
		StartingHeight:   f.startingHeight,
		Relay:            f.relay,
		VersionReceived:  f.versionReceived,
		VerAckReceived:   f.verAckReceived,
		VerAckSent:       f.verAckSent,
		HandshakeDone:    f.verAckReceived && f.verAckSent,
		BlockVerified:    f.blockVerified,
		FilterVerified:   f.filterVerified,
		SendHeaders:      f.sendHeaders,
		FeeFilter:        f.feeFilter,
		BytesSent:        p.bytesSent.Load(),
		BytesReceived:    p.bytesReceived.Load(),
		LastPingMicros:   p.lastPingMicros.Load(),
		TimeConnected:    p.timeConnected.Load(),
		DisconnectReason: p.DisconnectReason(),
	}
}
