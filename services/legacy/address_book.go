package legacy

import (
	"math/rand/v2"
	"time"

	"github.com/bsv-blockchain/legacy-p2p/services/legacy/wire"
	"github.com/bsv-blockchain/legacy-p2p/ulogger"
	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/atomic"
)

const maxAddresses = 20_000

// AddressBook remembers addresses peers have told us about. An address that is
// not announced again within the TTL is forgotten.
type AddressBook struct {
	logger  ulogger.Logger
	cache   *ttlcache.Cache[string, wire.NetAddress]
	running *atomic.Bool
}

func NewAddressBook(logger ulogger.Logger, ttl time.Duration) *AddressBook {
	return &AddressBook{
		logger:  logger,
		running: atomic.NewBool(false),
		cache: ttlcache.New[string, wire.NetAddress](
			ttlcache.WithTTL[string, wire.NetAddress](ttl),
			ttlcache.WithCapacity[string, wire.NetAddress](maxAddresses),
		),
	}
}

// Start runs the expiry loop until Stop is called.
func (b *AddressBook) Start() {
	if b.running.CompareAndSwap(false, true) {
		go b.cache.Start()
	}
}

func (b *AddressBook) Stop() {
	if b.running.CompareAndSwap(true, false) {
		b.cache.Stop()
	}
}

// Import upserts addrs, resetting their last seen time.
func (b *AddressBook) Import(addrs []wire.NetAddress) {
	for _, na := range addrs {
		if na.IP == nil || na.IP.IsUnspecified() || na.Port == 0 {
			continue
		}

		b.cache.Set(na.Addr(), na, ttlcache.DefaultTTL)
	}

	b.logger.Debugf("[AddressBook] imported %d addresses, %d known", len(addrs), b.cache.Len())
}

func (b *AddressBook) Len() int {
	return b.cache.Len()
}

func (b *AddressBook) Has(addr string) bool {
	return b.cache.Has(addr)
}

// Candidates returns up to n random addresses for which skip is false.
func (b *AddressBook) Candidates(n int, skip func(addr string) bool) []wire.NetAddress {
	keys := b.cache.Keys()
	rand.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })

	out := make([]wire.NetAddress, 0, n)

	for _, key := range keys {
		if len(out) >= n {
			break
		}

		if skip != nil && skip(key) {
			continue
		}

		if item := b.cache.Get(key, ttlcache.WithDisableTouchOnHit[string, wire.NetAddress]()); item != nil {
			out = append(out, item.Value())
		}
	}

	return out
}
