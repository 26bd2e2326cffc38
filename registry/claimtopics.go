// Package registry holds the claim-topic and trusted-issuer registries that
// drive identity verification. Both are counted sets under owner control;
// authorization is enforced by the token surface, the registries themselves
// carry only mechanism.
package registry

import (
	"sync"

	"github.com/blockberries/tokenberry/collection"
	"github.com/blockberries/tokenberry/logging"
	"github.com/blockberries/tokenberry/types"
)

// ClaimTopics is the set of claim-topic ids an identity must be attested
// for to be considered verified. Safe for concurrent use.
type ClaimTopics struct {
	mu      sync.RWMutex
	set     *collection.IndexedSet[types.ClaimTopic]
	version uint64
	logger  *logging.Logger
}

// NewClaimTopics creates an empty claim topics registry.
func NewClaimTopics(logger *logging.Logger) *ClaimTopics {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ClaimTopics{
		set:    collection.NewIndexedSet[types.ClaimTopic](),
		logger: logger.WithComponent("claimtopics"),
	}
}

// Add inserts a required claim topic. Adding a topic that is already
// present is an idempotent success, mirroring the removal policy.
// Returns true if the set changed.
func (r *ClaimTopics) Add(topic types.ClaimTopic) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.set.Add(topic) {
		return false
	}
	r.version++
	r.logger.Debug("claim topic added", logging.Topic(topic))
	return true
}

// Remove deletes a required claim topic. Removing an absent topic is a
// success and leaves the registry unchanged. Returns true if the set
// changed.
func (r *ClaimTopics) Remove(topic types.ClaimTopic) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.set.Remove(topic) {
		return false
	}
	r.version++
	r.logger.Debug("claim topic removed", logging.Topic(topic))
	return true
}

// Contains reports whether the topic is required.
func (r *ClaimTopics) Contains(topic types.ClaimTopic) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.set.Contains(topic)
}

// Topics returns the required topics. Order follows the dense array and is
// not stable across removals.
func (r *ClaimTopics) Topics() []types.ClaimTopic {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.set.Values()
}

// Len returns the number of required topics.
func (r *ClaimTopics) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.set.Len()
}

// Version returns a counter incremented on every mutation. Used to key
// verification caches.
func (r *ClaimTopics) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// ClaimTopicsSnapshot is the persisted form of the registry: the counted
// set in its (count, dense array, reverse index) layout plus the version.
type ClaimTopicsSnapshot struct {
	Set     collection.IndexedSet[types.ClaimTopic]
	Version uint64
}

// Snapshot captures the registry state for persistence.
func (r *ClaimTopics) Snapshot() ClaimTopicsSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return ClaimTopicsSnapshot{
		Set:     *r.set.Clone(),
		Version: r.version,
	}
}

// Restore replaces the registry state from a snapshot.
func (r *ClaimTopics) Restore(snap ClaimTopicsSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := snap.Set.Clone()
	if set.Index == nil {
		set.Reindex()
	}
	r.set = set
	r.version = snap.Version
}
