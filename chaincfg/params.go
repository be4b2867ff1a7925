// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"strings"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/legacy-p2p/errors"
	"github.com/bsv-blockchain/legacy-p2p/services/legacy/wire"
)

// Checkpoint identifies a known good block that every peer must agree on
// before it is trusted. Verification needs the block's hash, its parent's hash
// and its BIP157 filter header.
type Checkpoint struct {
	Height       int32
	Hash         *chainhash.Hash
	ParentHash   *chainhash.Hash
	FilterHeader *chainhash.Hash
}

// Complete reports whether every field needed for peer verification is set.
func (c *Checkpoint) Complete() bool {
	return c.Hash != nil && c.ParentHash != nil && c.FilterHeader != nil
}

// DNSSeed identifies a DNS seed.
type DNSSeed struct {
	// Host defines the hostname of the seed.
	Host string

	// HasFiltering defines whether the seed supports filtering
	// by service flags (wire.ServiceFlag).
	HasFiltering bool
}

// String returns the hostname of the DNS seed in human-readable form.
func (d DNSSeed) String() string {
	return d.Host
}

// Params defines a Bitcoin network by its parameters. Only what the peer layer
// needs is carried: the magic, the port, where to find peers and which block
// peers are verified against.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// Net defines the magic bytes used to identify the network.
	Net wire.BitcoinNet

	// DefaultPort defines the default peer-to-peer port for the network.
	DefaultPort string

	// DNSSeeds defines a list of DNS seeds for the network that are used
	// as one method to discover peers.
	DNSSeeds []DNSSeed

	// GenesisHash is the hash of the first block in the chain.
	GenesisHash *chainhash.Hash

	// VerifyCheckpoint is the block every peer is checked against after the
	// handshake. The filter header is not shipped and has to come from settings.
	VerifyCheckpoint Checkpoint

	// DefaultFilterType is the committed filter type requested from peers.
	DefaultFilterType wire.FilterType
}

// MainNetParams defines the network parameters for the main Bitcoin network.
var MainNetParams = Params{
	Name:        "mainnet",
	Net:         wire.MainNet,
	DefaultPort: "8333",
	DNSSeeds: []DNSSeed{
		{"seed.bitcoin.sipa.be", true},
		{"dnsseed.bluematt.me", true},
		{"dnsseed.bitcoin.dashjr.org", false},
		{"seed.bitcoinstats.com", true},
		{"seed.bitcoin.jonasschnelli.ch", true},
		{"seed.btc.petertodd.org", true},
	},
	GenesisHash: newHashFromStr("000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f"),
	VerifyCheckpoint: Checkpoint{
		Height:     1,
		Hash:       newHashFromStr("00000000839a8e6886ab5951d76f411475428afc90947ee320161bbf18eb6048"),
		ParentHash: newHashFromStr("000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f"),
	},
	DefaultFilterType: wire.GCSFilterRegular,
}

// TestNet3Params defines the network parameters for the test Bitcoin network
// (version 3).
var TestNet3Params = Params{
	Name:        "testnet3",
	Net:         wire.TestNet3,
	DefaultPort: "18333",
	DNSSeeds: []DNSSeed{
		{"testnet-seed.bitcoin.jonasschnelli.ch", true},
		{"seed.tbtc.petertodd.org", true},
		{"seed.testnet.bitcoin.sprovoost.nl", true},
		{"testnet-seed.bluematt.me", false},
	},
	GenesisHash: newHashFromStr("000000000933ea01ad0ee984209779baaec3ced90fa3f408719526f8d77f4943"),
	VerifyCheckpoint: Checkpoint{
		Height:     1,
		Hash:       newHashFromStr("00000000b873e79784647a6c82962c70d228557d24a747ea4d1b8bbe878e1206"),
		ParentHash: newHashFromStr("000000000933ea01ad0ee984209779baaec3ced90fa3f408719526f8d77f4943"),
	},
	DefaultFilterType: wire.GCSFilterRegular,
}

// RegressionNetParams defines the network parameters for the regression test
// network. Blocks differ per instance so there is no checkpoint.
var RegressionNetParams = Params{
	Name:              "regtest",
	Net:               wire.TestNet,
	DefaultPort:       "18444",
	DNSSeeds:          []DNSSeed{},
	GenesisHash:       newHashFromStr("0f9188f13cb7b2c71f2a335e3a4fc328bf5beb436012afca590b1a11466e2206"),
	DefaultFilterType: wire.GCSFilterRegular,
}

// SigNetParams defines the network parameters for the default signet.
var SigNetParams = Params{
	Name:        "signet",
	Net:         wire.SigNet,
	DefaultPort: "38333",
	DNSSeeds: []DNSSeed{
		{"seed.signet.bitcoin.sprovoost.nl", false},
	},
	GenesisHash:       newHashFromStr("00000008819873e925422c1ff0f99f7cc9bbb232af63a077a480a3633bee1ef6"),
	DefaultFilterType: wire.GCSFilterRegular,
}

var (
	// ErrDuplicateNet describes an error where the parameters for a Bitcoin
	// network could not be set due to the network already being a standard
	// network or previously-registered into this package.
	ErrDuplicateNet = errors.NewInvalidArgumentError("duplicate Bitcoin network")

	// ErrUnknownNet is returned by GetChainParams for a name nothing registered.
	ErrUnknownNet = errors.NewNotFoundError("unknown Bitcoin network")
)

var (
	registeredNets = make(map[wire.BitcoinNet]struct{})
	netsByName     = make(map[string]*Params)
)

// Register registers the network parameters for a Bitcoin network.  This may
// error with ErrDuplicateNet if the network is already registered (either
// due to a previous Register call, or the network being one of the default
// networks).
//
// Network parameters should be registered into this package by a main package
// as early as possible.
func Register(params *Params) error {
	if _, ok := registeredNets[params.Net]; ok {
		return ErrDuplicateNet
	}

	registeredNets[params.Net] = struct{}{}
	netsByName[params.Name] = params

	return nil
}

// mustRegister performs the same function as Register except it panics if there
// is an error.  This should only be called from package init functions.
func mustRegister(params *Params) {
	if err := Register(params); err != nil {
		panic("failed to register network: " + err.Error())
	}
}

// newHashFromStr converts the passed big-endian hex string into a
// chainhash.Hash. It panics on an error since it is only called with
// hard-coded hashes.
func newHashFromStr(hexStr string) *chainhash.Hash {
	hash, err := chainhash.NewHashFromStr(hexStr)
	if err != nil {
		panic(err)
	}

	return hash
}

// GetChainParams looks a network up by name. "testnet" is accepted for testnet3.
// The returned params are a copy, so callers may override the checkpoint.
func GetChainParams(network string) (*Params, error) {
	name := strings.ToLower(strings.TrimSpace(network))
	if name == "testnet" {
		name = TestNet3Params.Name
	}

	params, ok := netsByName[name]
	if !ok {
		return nil, errors.NewNotFoundError("unknown network %q", network, ErrUnknownNet)
	}

	p := *params
	p.DNSSeeds = append([]DNSSeed(nil), params.DNSSeeds...)

	return &p, nil
}

func init() {
	// Register all default networks when the package is initialized.
	mustRegister(&MainNetParams)
	mustRegister(&TestNet3Params)
	mustRegister(&RegressionNetParams)
	mustRegister(&SigNetParams)
}
