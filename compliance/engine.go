// Package compliance implements the pluggable transfer-rule engine and the
// built-in rule evaluators.
package compliance

import (
	"fmt"
	"sync"

	"github.com/blockberries/tokenberry/collection"
	"github.com/blockberries/tokenberry/logging"
	"github.com/blockberries/tokenberry/types"
)

// Rule is an opaque boolean predicate over a proposed transfer. A rule is
// identified by its address; the engine tracks the address set durably and
// rebinds evaluators after a restart.
type Rule interface {
	// Address identifies the rule. Stable across restarts.
	Address() types.Address

	// CheckTransfer reports whether the rule accepts the transfer. Rules
	// must not call back into the token; the engine evaluates them while
	// the token holds no locks, but the transfer is still in flight.
	CheckTransfer(from, to types.Address, amount uint64) bool
}

// Engine holds an ordered set of transfer rules. A transfer is compliant
// iff every bound rule accepts it; an empty rule set passes vacuously.
// Safe for concurrent use.
type Engine struct {
	mu      sync.RWMutex
	handles *collection.IndexedSet[types.Address]
	rules   map[types.Address]Rule

	// checkTopics is tracked and persisted but never consulted during
	// CheckCompliance. See DESIGN.md for the resolution of its intent.
	checkTopics *collection.IndexedSet[types.ClaimTopic]

	version uint64
	logger  *logging.Logger
}

// NewEngine creates an empty compliance engine.
func NewEngine(logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Engine{
		handles:     collection.NewIndexedSet[types.Address](),
		rules:       make(map[types.Address]Rule),
		checkTopics: collection.NewIndexedSet[types.ClaimTopic](),
		logger:      logger.WithComponent("compliance"),
	}
}

// AddRule registers a rule. Re-adding a present address replaces its
// evaluator without growing the set.
func (e *Engine) AddRule(rule Rule) error {
	if rule == nil {
		return fmt.Errorf("%w: nil rule", types.ErrInvalidArgument)
	}
	addr := rule.Address()
	if addr.IsZero() {
		return fmt.Errorf("%w: rule has the null address", types.ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.handles.Add(addr)
	e.rules[addr] = rule
	e.version++
	e.logger.Debug("compliance rule added", logging.Addr("rule", addr))
	return nil
}

// RemoveRule drops a rule by address. Removing an absent rule is a no-op
// success and reports false.
func (e *Engine) RemoveRule(addr types.Address) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.handles.Remove(addr) {
		return false
	}
	delete(e.rules, addr)
	e.version++
	e.logger.Debug("compliance rule removed", logging.Addr("rule", addr))
	return true
}

// Rules returns the current rule address set (engine order).
func (e *Engine) Rules() []types.Address {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.handles.Values()
}

// Len returns the number of registered rules.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.handles.Len()
}

// Version returns a counter incremented on every mutation.
func (e *Engine) Version() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.version
}

// CheckCompliance evaluates every rule in engine order. The first rule to
// reject short-circuits; skipped rules are not invoked. A handle with no
// bound evaluator fails closed. The rule list is snapshotted under the
// read lock and evaluated outside it, so rules may read engine state
// without deadlocking.
func (e *Engine) CheckCompliance(from, to types.Address, amount uint64) bool {
	e.mu.RLock()
	ordered := make([]Rule, 0, e.handles.Len())
	unbound := false
	for i := 0; i < e.handles.Len(); i++ {
		rule, ok := e.rules[e.handles.At(i)]
		if !ok {
			unbound = true
			break
		}
		ordered = append(ordered, rule)
	}
	e.mu.RUnlock()

	if unbound {
		e.logger.Warn("compliance check with unbound rule handle")
		return false
	}
	for _, rule := range ordered {
		if !rule.CheckTransfer(from, to, amount) {
			e.logger.Debug("transfer rejected by rule",
				logging.Addr("rule", rule.Address()),
				logging.Sender(from), logging.Recipient(to), logging.Amount(amount))
			return false
		}
	}
	return true
}

// AddCheckTopic adds a topic to the engine's own topic set. Reports
// whether the set changed.
func (e *Engine) AddCheckTopic(topic types.ClaimTopic) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.checkTopics.Add(topic) {
		return false
	}
	e.version++
	return true
}

// RemoveCheckTopic removes a topic from the engine's topic set. Removing
// an absent topic is a no-op success.
func (e *Engine) RemoveCheckTopic(topic types.ClaimTopic) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.checkTopics.Remove(topic) {
		return false
	}
	e.version++
	return true
}

// CheckTopics returns the engine's own topic set.
func (e *Engine) CheckTopics() []types.ClaimTopic {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.checkTopics.Values()
}

// Snapshot is the persisted form of the engine: rule handles and the topic
// set. Evaluators are not serializable; Bind re-attaches them on restore.
type Snapshot struct {
	Handles     collection.IndexedSet[types.Address]
	CheckTopics collection.IndexedSet[types.ClaimTopic]
	Version     uint64
}

// Snapshot captures the engine state for persistence.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Snapshot{
		Handles:     *e.handles.Clone(),
		CheckTopics: *e.checkTopics.Clone(),
		Version:     e.version,
	}
}

// Restore replaces the engine state from a snapshot. All evaluator
// bindings are cleared; until Bind re-attaches them, CheckCompliance
// fails closed for any transfer.
func (e *Engine) Restore(snap Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.handles = snap.Handles.Clone()
	if e.handles.Index == nil {
		e.handles.Reindex()
	}
	e.checkTopics = snap.CheckTopics.Clone()
	if e.checkTopics.Index == nil {
		e.checkTopics.Reindex()
	}
	e.rules = make(map[types.Address]Rule, e.handles.Len())
	e.version = snap.Version
}

// Bind attaches an evaluator to a restored rule handle. Fails with
// ErrNotFound if the handle is not in the set.
func (e *Engine) Bind(rule Rule) error {
	if rule == nil {
		return fmt.Errorf("%w: nil rule", types.ErrInvalidArgument)
	}
	addr := rule.Address()

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.handles.Contains(addr) {
		return fmt.Errorf("%w: rule %s is not registered", types.ErrNotFound, addr.Short())
	}
	e.rules[addr] = rule
	return nil
}
