package identity

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/blockberries/tokenberry/logging"
	"github.com/blockberries/tokenberry/types"
)

// ClaimTopicsSource supplies the required claim topics for verification.
type ClaimTopicsSource interface {
	Topics() []types.ClaimTopic
	Version() uint64
}

// TrustedIssuersSource supplies the trusted issuer set for verification.
type TrustedIssuersSource interface {
	Issuers() []types.Address
	HasClaimTopic(issuer types.Address, topic types.ClaimTopic) bool
	Version() uint64
}

// DefaultVerifierCacheSize bounds the verdict cache when the caller does
// not pick a size.
const DefaultVerifierCacheSize = 4096

type verifyKey struct {
	addr       types.Address
	storeVer   uint64
	topicsVer  uint64
	issuersVer uint64
}

// Verifier decides whether an address passes the trust chain: a linked,
// unexpired identity plus at least one trusted issuer authorized for every
// required claim topic. Verdicts are cached keyed by the version counters
// of all three inputs, so any registry mutation invalidates implicitly.
type Verifier struct {
	store   *Store
	topics  ClaimTopicsSource
	issuers TrustedIssuersSource
	cache   *lru.Cache[verifyKey, bool]
	now     func() int64
	logger  *logging.Logger
}

// NewVerifier builds a verifier over the three registries. cacheSize <= 0
// selects DefaultVerifierCacheSize.
func NewVerifier(store *Store, topics ClaimTopicsSource, issuers TrustedIssuersSource, cacheSize int, logger *logging.Logger) *Verifier {
	if cacheSize <= 0 {
		cacheSize = DefaultVerifierCacheSize
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	cache, err := lru.New[verifyKey, bool](cacheSize)
	if err != nil {
		// lru.New only fails on a non-positive size.
		panic(err)
	}
	return &Verifier{
		store:   store,
		topics:  topics,
		issuers: issuers,
		cache:   cache,
		now:     func() int64 { return time.Now().Unix() },
		logger:  logger.WithComponent("verifier"),
	}
}

// SetClock overrides the time source. Test hook.
func (v *Verifier) SetClock(now func() int64) {
	v.now = now
}

// IsVerified reports whether addr passes the full trust chain.
//
// The decision:
//   - no linked identity, or an expired record: not verified
//   - no required claim topics: verified (identity existence suffices)
//   - otherwise: verified iff some single trusted issuer is authorized
//     for every required topic; coverage pieced together across issuers
//     does not count
func (v *Verifier) IsVerified(addr types.Address) bool {
	rec, ok := v.store.Get(addr)
	if !ok {
		return false
	}
	if rec.ExpiresAt != 0 && rec.ExpiresAt <= v.now() {
		return false
	}

	key := verifyKey{
		addr:       addr,
		storeVer:   v.store.Version(),
		topicsVer:  v.topics.Version(),
		issuersVer: v.issuers.Version(),
	}
	// Expiry is rechecked on every call above, so a cached verdict never
	// outlives the record it was computed from.
	if verdict, ok := v.cache.Get(key); ok {
		return verdict
	}

	verdict := v.evaluate(addr)
	v.cache.Add(key, verdict)
	return verdict
}

// IsIdentityVerified reports whether an identity handle passes the trust
// chain: it must have at least one linked address and the issuer coverage
// predicate must hold. Per-address expiry does not apply at this level.
func (v *Verifier) IsIdentityVerified(id types.IdentityID) bool {
	if !v.store.IdentityExists(id) {
		return false
	}
	return v.evaluate(types.Address{})
}

func (v *Verifier) evaluate(addr types.Address) bool {
	required := v.topics.Topics()
	if len(required) == 0 {
		return true
	}

	for _, issuer := range v.issuers.Issuers() {
		covered := true
		for _, topic := range required {
			if !v.issuers.HasClaimTopic(issuer, topic) {
				covered = false
				break
			}
		}
		if covered {
			return true
		}
	}
	v.logger.Debug("verification failed", logging.Addr("address", addr))
	return false
}

// CacheLen returns the number of cached verdicts. Test hook.
func (v *Verifier) CacheLen() int {
	return v.cache.Len()
}
