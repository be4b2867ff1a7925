package peer

import (
	"time"

	"github.com/bsv-blockchain/legacy-p2p/chaincfg"
	"github.com/bsv-blockchain/legacy-p2p/errors"
	"github.com/bsv-blockchain/legacy-p2p/services/legacy/wire"
)

const (
	DefaultHandshakeTimeout  = 5 * time.Second
	DefaultVerifyTimeout     = 30 * time.Second
	DefaultPingInterval      = 2 * time.Minute
	DefaultPingTimeout       = time.Minute
	DefaultGetHeadersTimeout = 2 * time.Minute
	DefaultGetDataExpiry     = 2 * time.Minute

	// outputBufferSize is the number of queued outbound messages before
	// QueueMessage starts to block.
	outputBufferSize = 50
)

// Config is the configuration of a single peer.
type Config struct {
	// ChainParams selects the network magic and the verification checkpoint.
	ChainParams *chaincfg.Params

	// ProtocolVersion is the highest version advertised. The negotiated
	// version never exceeds it.
	ProtocolVersion uint32

	Services          wire.ServiceFlag
	UserAgentName     string
	UserAgentVersion  string
	UserAgentComments []string

	// DisableRelayTx clears the relay flag in the version message.
	DisableRelayTx bool

	// VerifyCheckpoint makes the peer prove it follows the checkpoint block
	// and its filter header before reaching steady state.
	VerifyCheckpoint bool

	HandshakeTimeout time.Duration
	VerifyTimeout    time.Duration
	PingInterval     time.Duration

	// PingTimeout and GetHeadersTimeout bound how long a ping or a getheaders
	// may stay unanswered before the peer is dropped as stalled.
	PingTimeout       time.Duration
	GetHeadersTimeout time.Duration

	// GetHeadersRate limits getheaders triggered by block announcements, per second.
	GetHeadersRate  float64
	GetHeadersBurst int

	// GetDataExpiry is how long an inventory hash requested with getdata is
	// not requested again.
	GetDataExpiry time.Duration

	// TraceMessages dumps every message at debug level.
	TraceMessages bool

	Downstream    Downstream
	AddressBook   AddressBook
	HeaderOracle  HeaderOracle
	FilterOracle  FilterOracle
	HeightTracker HeightTracker

	// OnStateChange is called after every state transition, outside any lock.
	OnStateChange func(p *Peer, from, to State)

	// Nonce is the local nonce. Zero picks a random one.
	Nonce uint64
}

// withDefaults returns a copy of cfg with every unset field filled in.
func (cfg *Config) withDefaults() (Config, error) {
	c := *cfg

	if c.ChainParams == nil {
		return c, errors.NewConfigurationError("peer config has no chain params")
	}

	if c.ProtocolVersion == 0 {
		c.ProtocolVersion = wire.ProtocolVersion
	}

	if c.UserAgentName == "" {
		c.UserAgentName = "legacy-p2p"
	}

	if c.UserAgentVersion == "" {
		c.UserAgentVersion = "0.1.0"
	}

	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}

	if c.VerifyTimeout <= 0 {
		c.VerifyTimeout = DefaultVerifyTimeout
	}

	if c.PingInterval <= 0 {
		c.PingInterval = DefaultPingInterval
	}

	if c.PingTimeout <= 0 {
		c.PingTimeout = DefaultPingTimeout
	}

	if c.GetHeadersTimeout <= 0 {
		c.GetHeadersTimeout = DefaultGetHeadersTimeout
	}

	if c.GetHeadersRate <= 0 {
		c.GetHeadersRate = 2
	}

	if c.GetHeadersBurst <= 0 {
		c.GetHeadersBurst = 4
	}

	if c.GetDataExpiry <= 0 {
		c.GetDataExpiry = DefaultGetDataExpiry
	}

	if c.Downstream == nil {
		c.Downstream = discardDownstream{}
	}

	if c.AddressBook == nil {
		c.AddressBook = discardAddressBook{}
	}

	if c.HeaderOracle == nil {
		c.HeaderOracle = paramsOracle{params: c.ChainParams}
	}

	if c.FilterOracle == nil {
		c.FilterOracle = paramsOracle{params: c.ChainParams}
	}

	if c.HeightTracker == nil {
		c.HeightTracker = NewHeightTracker(0)
	}

	if c.VerifyCheckpoint {
		cp := c.HeaderOracle.Checkpoint()
		if !cp.Complete() {
			return c, errors.NewConfigurationError("checkpoint verification needs hash, parent hash and filter header of block %d", cp.Height)
		}
	}

	return c, nil
}
