package registry

import (
	"fmt"
	"sync"

	"github.com/blockberries/tokenberry/collection"
	"github.com/blockberries/tokenberry/logging"
	"github.com/blockberries/tokenberry/types"
)

// TrustedIssuers tracks the issuers trusted to attest identities, each
// annotated with the claim topics it may attest. Safe for concurrent use.
type TrustedIssuers struct {
	mu      sync.RWMutex
	set     *collection.IndexedSet[types.Address]
	topics  map[types.Address]*collection.IndexedSet[types.ClaimTopic]
	version uint64
	logger  *logging.Logger
}

// NewTrustedIssuers creates an empty trusted issuers registry.
func NewTrustedIssuers(logger *logging.Logger) *TrustedIssuers {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &TrustedIssuers{
		set:    collection.NewIndexedSet[types.Address](),
		topics: make(map[types.Address]*collection.IndexedSet[types.ClaimTopic]),
		logger: logger.WithComponent("trustedissuers"),
	}
}

// Add registers an issuer with the claim topics it may attest. Adding an
// issuer that is already present replaces its topic set (upsert).
func (r *TrustedIssuers) Add(issuer types.Address, claimTopics []types.ClaimTopic) error {
	if issuer.IsZero() {
		return fmt.Errorf("%w: issuer is the null address", types.ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.set.Add(issuer)
	r.topics[issuer] = topicSet(claimTopics)
	r.version++
	r.logger.Debug("trusted issuer added", logging.Addr("issuer", issuer), "topics", len(claimTopics))
	return nil
}

// Remove deletes an issuer and its topic set. Removing an absent issuer is
// a success and leaves the registry unchanged.
func (r *TrustedIssuers) Remove(issuer types.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.set.Remove(issuer) {
		return
	}
	delete(r.topics, issuer)
	r.version++
	r.logger.Debug("trusted issuer removed", logging.Addr("issuer", issuer))
}

// UpdateTopics replaces the topic set of an existing issuer.
// Returns ErrNotFound if the issuer is not registered.
func (r *TrustedIssuers) UpdateTopics(issuer types.Address, claimTopics []types.ClaimTopic) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.set.Contains(issuer) {
		return fmt.Errorf("%w: issuer %s", types.ErrNotFound, issuer.Short())
	}
	r.topics[issuer] = topicSet(claimTopics)
	r.version++
	return nil
}

// IsTrusted reports whether the issuer is registered.
func (r *TrustedIssuers) IsTrusted(issuer types.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.set.Contains(issuer)
}

// HasClaimTopic reports whether the issuer is trusted to attest the given
// topic. O(1); does not materialize the issuer's topic set.
func (r *TrustedIssuers) HasClaimTopic(issuer types.Address, topic types.ClaimTopic) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.topics[issuer]
	if !ok {
		return false
	}
	return set.Contains(topic)
}

// TopicsOf returns the topic set of an issuer and whether it is registered.
func (r *TrustedIssuers) TopicsOf(issuer types.Address) ([]types.ClaimTopic, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.topics[issuer]
	if !ok {
		return nil, false
	}
	return set.Values(), true
}

// Issuers returns the registered issuers. Order follows the dense array
// and is not stable across removals.
func (r *TrustedIssuers) Issuers() []types.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.set.Values()
}

// Len returns the number of registered issuers.
func (r *TrustedIssuers) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.set.Len()
}

// Version returns a counter incremented on every mutation. Used to key
// verification caches.
func (r *TrustedIssuers) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// TrustedIssuersSnapshot is the persisted form of the registry.
type TrustedIssuersSnapshot struct {
	Set     collection.IndexedSet[types.Address]
	Topics  map[types.Address]collection.IndexedSet[types.ClaimTopic]
	Version uint64
}

// Snapshot captures the registry state for persistence.
func (r *TrustedIssuers) Snapshot() TrustedIssuersSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	topics := make(map[types.Address]collection.IndexedSet[types.ClaimTopic], len(r.topics))
	for issuer, set := range r.topics {
		topics[issuer] = *set.Clone()
	}
	return TrustedIssuersSnapshot{
		Set:     *r.set.Clone(),
		Topics:  topics,
		Version: r.version,
	}
}

// Restore replaces the registry state from a snapshot.
func (r *TrustedIssuers) Restore(snap TrustedIssuersSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := snap.Set.Clone()
	if set.Index == nil {
		set.Reindex()
	}
	r.set = set

	r.topics = make(map[types.Address]*collection.IndexedSet[types.ClaimTopic], len(snap.Topics))
	for issuer, topicsSet := range snap.Topics {
		restored := topicsSet.Clone()
		if restored.Index == nil {
			restored.Reindex()
		}
		r.topics[issuer] = restored
	}
	r.version = snap.Version
}

func topicSet(claimTopics []types.ClaimTopic) *collection.IndexedSet[types.ClaimTopic] {
	set := collection.NewIndexedSet[types.ClaimTopic]()
	for _, t := range claimTopics {
		set.Add(t)
	}
	return set
}
