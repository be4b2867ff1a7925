package peer

import (
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/legacy-p2p/errors"
	"github.com/bsv-blockchain/legacy-p2p/services/legacy/wire"
)

// startVerification asks the peer for exactly the checkpoint header and its
// filter header. Both answers have to match before the peer is trusted.
func (p *Peer) startVerification() error {
	cp := p.cfg.HeaderOracle.Checkpoint()
	if !cp.Complete() {
		return errors.NewConfigurationError("[%s] checkpoint at height %d is incomplete", p, cp.Height)
	}

	p.verifyTimer = time.NewTimer(p.cfg.VerifyTimeout)
	p.verifyTimeout = p.verifyTimer.C

	p.logger.Infof("[startVerification][%s] verifying checkpoint %s at height %d", p, cp.Hash, cp.Height)

	p.PushGetHeadersMsg([]chainhash.Hash{*cp.ParentHash}, cp.Hash)
	p.PushGetCFHeadersMsg(p.cfg.FilterOracle.DefaultFilterType(), uint32(cp.Height), cp.Hash)

	return nil
}

func (p *Peer) verifyHeaders(msg wire.MsgHeaders) error {
	p.finishGetHeaders()

	cp := p.cfg.HeaderOracle.Checkpoint()

	if len(msg.Headers) != 1 {
		return errors.NewCheckpointMismatchError("[%s] expected the checkpoint header only, got %d headers", p, len(msg.Headers))
	}

	header := msg.Headers[0]

	if hash := header.BlockHash(); hash != *cp.Hash {
		return errors.NewCheckpointMismatchError("[%s] header %s does not match checkpoint %s", p, hash, cp.Hash)
	}

	if header.PrevBlock != *cp.ParentHash {
		return errors.NewCheckpointMismatchError("[%s] checkpoint parent %s does not match %s", p, header.PrevBlock, cp.ParentHash)
	}

	p.setFlags(func(f *flags) { f.blockVerified = true })

	return p.advance()
}

func (p *Peer) verifyCFHeaders(msg wire.MsgCFHeaders) error {
	cp := p.cfg.HeaderOracle.Checkpoint()
	filterType := p.cfg.FilterOracle.DefaultFilterType()

	if msg.FilterType != filterType {
		return errors.NewCheckpointMismatchError("[%s] filter type %s, expected %s", p, msg.FilterType, filterType)
	}

	if msg.StopHash != *cp.Hash {
		return errors.NewCheckpointMismatchError("[%s] filter headers stop at %s, expected %s", p, msg.StopHash, cp.Hash)
	}

	if len(msg.FilterHashes) != 1 {
		return errors.NewCheckpointMismatchError("[%s] expected one filter hash, got %d", p, len(msg.FilterHashes))
	}

	if header := wire.FilterHeader(&msg.FilterHashes[0], &msg.PrevFilterHeader); header != *cp.FilterHeader {
		return errors.NewCheckpointMismatchError("[%s] filter header %s does not match checkpoint %s", p, header, cp.FilterHeader)
	}

	p.setFlags(func(f *flags) { f.filterVerified = true })

	return p.advance()
}
