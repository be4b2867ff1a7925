package peer

import (
	"net"
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/legacy-p2p/errors"
	"github.com/bsv-blockchain/legacy-p2p/services/legacy/wire"
	"github.com/btcsuite/btcd/btcutil/gcs"
	"github.com/btcsuite/btcd/btcutil/gcs/builder"
)

// handshakeCommands may be handled before the peer reaches steady state.
// Everything else received before then is dropped.
var handshakeCommands = map[wire.Command]bool{
	wire.CmdPing:        true,
	wire.CmdPong:        true,
	wire.CmdSendHeaders: true,
	wire.CmdSendCmpct:   true,
	wire.CmdFeeFilter:   true,
	wire.CmdGetAddr:     true,
	wire.CmdAddr:        true,
	wire.CmdReject:      true,
}

func (p *Peer) handleMessage(msg wire.Message) error {
	switch m := msg.(type) {
	case wire.MsgVersion:
		return p.handleVersionMsg(m)
	case wire.MsgVerAck:
		return p.handleVerAckMsg()
	}

	if !p.getFlags().versionReceived {
		return errors.NewProtocolViolationError("[%s] %s received before version", p, msg.Command())
	}

	state := p.State()

	if state == StateVerifying {
		switch m := msg.(type) {
		case wire.MsgHeaders:
			return p.verifyHeaders(m)
		case wire.MsgCFHeaders:
			return p.verifyCFHeaders(m)
		}
	}

	if state != StateSteady && !handshakeCommands[msg.Command()] {
		p.logger.Debugf("[handleMessage][%s] dropping %s received while %s", p, msg.Command(), state)
		return nil
	}

	switch m := msg.(type) {
	case wire.MsgPing:
		return p.handlePingMsg(m)
	case wire.MsgPong:
		p.handlePongMsg(m)
	case wire.MsgBlock:
		p.handleBlockMsg(m)
	case wire.MsgTx:
		p.handleTxMsg(m)
	case wire.MsgHeaders:
		p.handleHeadersMsg(m)
	case wire.MsgCFilter:
		p.handleCFilterMsg(m)
	case wire.MsgCFHeaders:
		p.handleCFHeadersMsg(m)
	case wire.MsgAddr:
		p.handleAddrMsg(m)
	case wire.MsgInv:
		p.handleInvMsg(m)
	case wire.MsgSendHeaders:
		p.setFlags(func(f *flags) { f.sendHeaders = true })
	case wire.MsgFeeFilter:
		p.setFlags(func(f *flags) { f.feeFilter = m.MinFee })
	case wire.MsgReject:
		p.logger.Warnf("[handleMessage][%s] reject received, cmd: %s, code: %s, reason: %s", p, m.Cmd, m.Code, m.Reason)
	case wire.MsgNotFound:
		p.logger.Debugf("[handleMessage][%s] notfound received for %d items", p, len(m.InvList))
	default:
		p.logger.Debugf("[handleMessage][%s] %s received, not handled", p, msg.Command())
	}

	return nil
}

func (p *Peer) handleVersionMsg(msg wire.MsgVersion) error {
	if p.getFlags().versionReceived {
		return errors.NewProtocolViolationError("[%s] duplicate version message", p)
	}

	if msg.Nonce == p.nonce {
		return errors.NewSelfConnectionError("[%s] version carries our own nonce %d", p, msg.Nonce)
	}

	if msg.ProtocolVersion < int32(wire.MinAcceptableProtocolVersion) {
		return errors.NewProtocolViolationError("[%s] protocol version %d is older than %d", p, msg.ProtocolVersion, wire.MinAcceptableProtocolVersion)
	}

	if negotiated := uint32(msg.ProtocolVersion); negotiated < p.protocolVersion.Load() {
		p.protocolVersion.Store(negotiated)
	}

	p.setFlags(func(f *flags) {
		f.versionReceived = true
		f.services = msg.Services
		f.userAgent = msg.UserAgent
		f.startingHeight = msg.StartHeight
		f.relay = msg.Relay
	})

	if msg.StartHeight > p.cfg.HeightTracker.BestHeight() {
		p.cfg.HeightTracker.UpdateBestHeight(msg.StartHeight)
	}

	p.logger.Infof("[handleVersionMsg][%s] version %d, user agent %s, services %s, height %d",
		p, msg.ProtocolVersion, msg.UserAgent, msg.Services, msg.StartHeight)

	written := make(chan struct{})
	p.verAckWritten = written
	p.QueueMessage(wire.MsgVerAck{}, written)

	return nil
}

func (p *Peer) handleVerAckMsg() error {
	if p.getFlags().verAckReceived {
		return errors.NewProtocolViolationError("[%s] duplicate verack message", p)
	}

	p.setFlags(func(f *flags) { f.verAckReceived = true })

	return p.advance()
}

// advance moves the state machine forward once the flags of the current
// state are all set.
func (p *Peer) advance() error {
	f := p.getFlags()

	switch p.State() {
	case StateHandshaking:
		if !f.verAckReceived || !f.verAckSent {
			return nil
		}

		p.logger.Infof("[advance][%s] handshake complete, protocol version %d", p, p.ProtocolVersion())

		if !p.cfg.VerifyCheckpoint {
			return p.transition(eventSteady)
		}

		if err := p.transition(eventVerify); err != nil {
			return err
		}

		return p.startVerification()

	case StateVerifying:
		if !f.blockVerified || !f.filterVerified {
			return nil
		}

		if p.verifyTimer != nil {
			p.verifyTimer.Stop()
			p.verifyTimeout = nil
		}

		p.logger.Infof("[advance][%s] checkpoint verified", p)

		return p.transition(eventSteady)
	}

	return nil
}

func (p *Peer) handlePingMsg(msg wire.MsgPing) error {
	if msg.Nonce == p.nonce {
		return errors.NewSelfConnectionError("[%s] ping carries our own nonce %d", p, msg.Nonce)
	}

	p.QueueMessage(wire.NewMsgPong(msg.Nonce), nil)

	return nil
}

// sendPing pings the remote unless the previous ping is still unanswered.
func (p *Peer) sendPing() {
	if p.lastPingNonce.Load() != 0 {
		p.logger.Debugf("[sendPing][%s] previous ping still unanswered", p)
		return
	}

	p.lastPingNonce.Store(p.nonce)
	p.lastPingTime.Store(time.Now())
	p.QueueMessage(wire.NewMsgPing(p.nonce), nil)
}

func (p *Peer) handlePongMsg(msg wire.MsgPong) {
	if p.lastPingNonce.Load() == 0 || msg.Nonce != p.lastPingNonce.Load() {
		p.logger.Debugf("[handlePongMsg][%s] unsolicited pong %d", p, msg.Nonce)
		return
	}

	latency := time.Since(p.lastPingTime.Load())

	p.lastPingMicros.Store(latency.Microseconds())
	p.lastPingNonce.Store(0)

	prometheusPeerPingLatency.Observe(latency.Seconds())
}

func (p *Peer) handleBlockMsg(msg wire.MsgBlock) {
	p.logger.Debugf("[handleBlockMsg][%s] block %s, %d bytes", p, msg.BlockHash(), len(msg.Raw))
	p.cfg.Downstream.SubmitBlock(msg.Raw)
}

func (p *Peer) handleTxMsg(msg wire.MsgTx) {
	p.cfg.Downstream.SubmitTransaction(msg.Raw)
}

func (p *Peer) handleHeadersMsg(msg wire.MsgHeaders) {
	if !p.answersGetHeaders(msg) {
		p.logger.Debugf("[handleHeadersMsg][%s] headers do not answer an outstanding getheaders", p)
	}

	if len(msg.Headers) == 0 {
		p.logger.Debugf("[handleHeadersMsg][%s] no new headers", p)
		return
	}

	last := msg.Headers[len(msg.Headers)-1].BlockHash()
	p.lastHeader = &last
	p.headersFull = len(msg.Headers) == wire.MaxBlockHeadersPerMsg

	done := make(chan bool, 1)
	p.headersDone = done

	p.logger.Debugf("[handleHeadersMsg][%s] %d headers up to %s", p, len(msg.Headers), last)

	p.cfg.Downstream.SubmitBlockHeaders(msg.Headers, done)
}

// onHeadersProcessed asks for the next batch when the consumer took a full one.
func (p *Peer) onHeadersProcessed(ok bool) {
	if !ok || !p.headersFull || p.lastHeader == nil {
		return
	}

	if !p.PushGetHeadersMsg([]chainhash.Hash{*p.lastHeader}, nil) {
		prometheusPeerGetHeadersSkipped.Inc()
	}
}

func (p *Peer) handleCFilterMsg(msg wire.MsgCFilter) {
	filter, err := gcs.FromNBytes(builder.DefaultP, builder.DefaultM, msg.Data)
	if err != nil {
		p.logger.Warnf("[handleCFilterMsg][%s] dropping undecodable filter for block %s: %v", p, msg.BlockHash, err)
		return
	}

	p.cfg.Downstream.SubmitFilter(msg.FilterType, msg.BlockHash, filter.P(), builder.DefaultM, filter.N(), msg.Data)
}

func (p *Peer) handleCFHeadersMsg(msg wire.MsgCFHeaders) {
	p.cfg.Downstream.SubmitFilterHeaders(msg.FilterType, msg.StopHash, msg.PrevFilterHeader, msg.FilterHeaders())
}

func (p *Peer) handleAddrMsg(msg wire.MsgAddr) {
	if len(msg.AddrList) == 0 {
		return
	}

	p.cfg.AddressBook.Import(msg.AddrList)
}

func (p *Peer) handleInvMsg(msg wire.MsgInv) {
	announced := false

	for _, iv := range msg.InvList {
		switch iv.Type {
		case wire.InvTypeBlock, wire.InvTypeWitnessBlock:
			announced = true
		}
	}

	if !announced {
		return
	}

	if !p.getHeadersLimiter.Allow() {
		p.logger.Debugf("[handleInvMsg][%s] getheaders rate limited", p)
		prometheusPeerGetHeadersSkipped.Inc()

		return
	}

	if !p.PushGetHeadersMsg(p.cfg.HeaderOracle.RecentHashes(), nil) {
		prometheusPeerGetHeadersSkipped.Inc()
	}
}

// PushVersionMsg queues our version message. It is sent once per connection.
func (p *Peer) PushVersionMsg() {
	if !p.versionSent.CompareAndSwap(false, true) {
		return
	}

	you, ok := wire.NewNetAddressFromString(p.Addr(), 0)
	if !ok {
		you = wire.NewNetAddress(net.IPv4zero, 0, 0)
	}

	me := wire.NewNetAddress(net.IPv4zero, 0, p.cfg.Services)

	msg := wire.NewMsgVersion(me, you, p.nonce, p.cfg.HeightTracker.BestHeight(), time.Now().Unix())
	msg.ProtocolVersion = int32(p.cfg.ProtocolVersion)
	msg.Services = p.cfg.Services
	msg.UserAgent = wire.UserAgentString(p.cfg.UserAgentName, p.cfg.UserAgentVersion, p.cfg.UserAgentComments...)
	msg.Relay = !p.cfg.DisableRelayTx

	p.QueueMessage(msg, nil)
}

// PushGetHeadersMsg sends getheaders unless one is already waiting for its
// answer. It reports whether the request was sent. A nil stop asks for as
// many headers as the remote will give.
func (p *Peer) PushGetHeadersMsg(locator []chainhash.Hash, stop *chainhash.Hash) bool {
	p.getHeadersMu.Lock()

	if p.getHeadersPending != nil {
		p.getHeadersMu.Unlock()
		p.logger.Debugf("[PushGetHeadersMsg][%s] getheaders already in flight", p)

		return false
	}

	// a remote that knows none of the locator answers from genesis
	pending := make(map[chainhash.Hash]struct{}, len(locator)+1)
	pending[*p.cfg.ChainParams.GenesisHash] = struct{}{}

	for _, hash := range locator {
		pending[hash] = struct{}{}
	}

	p.getHeadersPending = pending
	p.getHeadersSentAt = time.Now()
	p.getHeadersMu.Unlock()

	p.QueueMessage(wire.NewMsgGetHeaders(locator, stop), nil)

	return true
}

// answersGetHeaders clears the outstanding getheaders when msg is its reply:
// empty, or starting right after one of the locator hashes. Announcements
// pushed by the remote leave the request outstanding.
func (p *Peer) answersGetHeaders(msg wire.MsgHeaders) bool {
	p.getHeadersMu.Lock()
	defer p.getHeadersMu.Unlock()

	if p.getHeadersPending == nil {
		return false
	}

	if len(msg.Headers) > 0 {
		if _, ok := p.getHeadersPending[msg.Headers[0].PrevBlock]; !ok {
			return false
		}
	}

	p.getHeadersPending = nil

	return true
}

func (p *Peer) finishGetHeaders() {
	p.getHeadersMu.Lock()
	p.getHeadersPending = nil
	p.getHeadersMu.Unlock()
}

func (p *Peer) stallTickInterval() time.Duration {
	return max(min(p.cfg.PingTimeout, p.cfg.GetHeadersTimeout)/2, time.Millisecond)
}

// checkStalled fails a peer that keeps the connection open but stopped
// answering pings or getheaders.
func (p *Peer) checkStalled(now time.Time) error {
	if p.lastPingNonce.Load() != 0 {
		if waited := now.Sub(p.lastPingTime.Load()); waited > p.cfg.PingTimeout {
			return errors.NewNetworkTimeoutError("[%s] no pong within %s", p, p.cfg.PingTimeout)
		}
	}

	p.getHeadersMu.Lock()
	pending, sentAt := p.getHeadersPending != nil, p.getHeadersSentAt
	p.getHeadersMu.Unlock()

	if pending && now.Sub(sentAt) > p.cfg.GetHeadersTimeout {
		return errors.NewNetworkTimeoutError("[%s] no headers within %s", p, p.cfg.GetHeadersTimeout)
	}

	return nil
}

// PushGetDataMsg requests the given inventory, skipping anything requested
// within GetDataExpiry. It returns the number of items requested.
func (p *Peer) PushGetDataMsg(invs []wire.InvVect) int {
	wanted := make([]wire.InvVect, 0, len(invs))

	for _, iv := range invs {
		if _, ok := p.requested.Get(iv.Hash); ok {
			continue
		}

		p.requested.Set(iv.Hash, time.Now())

		wanted = append(wanted, iv)
	}

	if len(wanted) == 0 {
		return 0
	}

	p.QueueMessage(wire.NewMsgGetData(wanted...), nil)

	return len(wanted)
}

func (p *Peer) PushGetCFHeadersMsg(filterType wire.FilterType, startHeight uint32, stop *chainhash.Hash) {
	p.QueueMessage(wire.NewMsgGetCFHeaders(filterType, startHeight, stop), nil)
}

func (p *Peer) PushGetCFiltersMsg(filterType wire.FilterType, startHeight uint32, stop *chainhash.Hash) {
	p.QueueMessage(wire.NewMsgGetCFilters(filterType, startHeight, stop), nil)
}
