package token

import (
	"fmt"
	"sync"

	"github.com/blockberries/tokenberry/collection"
	"github.com/blockberries/tokenberry/types"
)

// Authority is the role table: one transferable owner and a set of agents.
// The owner is implicitly an agent. Safe for concurrent use.
type Authority struct {
	mu     sync.RWMutex
	owner  types.Address
	agents *collection.IndexedSet[types.Address]
}

// NewAuthority creates a role table with the given owner.
func NewAuthority(owner types.Address) (*Authority, error) {
	if owner.IsZero() {
		return nil, fmt.Errorf("%w: owner is the null address", types.ErrInvalidArgument)
	}
	return &Authority{
		owner:  owner,
		agents: collection.NewIndexedSet[types.Address](),
	}, nil
}

// Owner returns the current owner address.
func (a *Authority) Owner() types.Address {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.owner
}

// IsOwner reports whether addr is the owner.
func (a *Authority) IsOwner(addr types.Address) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return addr == a.owner
}

// IsAgent reports whether addr holds the agent role. The owner always
// does.
func (a *Authority) IsAgent(addr types.Address) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return addr == a.owner || a.agents.Contains(addr)
}

// RequireOwner fails with ErrUnauthorized unless caller is the owner.
func (a *Authority) RequireOwner(caller types.Address) error {
	if !a.IsOwner(caller) {
		return fmt.Errorf("%w: %s is not the owner", types.ErrUnauthorized, caller.Short())
	}
	return nil
}

// RequireAgent fails with ErrUnauthorized unless caller is an agent or
// the owner.
func (a *Authority) RequireAgent(caller types.Address) error {
	if !a.IsAgent(caller) {
		return fmt.Errorf("%w: %s is not an agent", types.ErrUnauthorized, caller.Short())
	}
	return nil
}

// AddAgent grants the agent role. Owner-gated. Re-granting is a no-op
// reported as false.
func (a *Authority) AddAgent(caller, agent types.Address) (bool, error) {
	if err := a.RequireOwner(caller); err != nil {
		return false, err
	}
	if agent.IsZero() {
		return false, fmt.Errorf("%w: agent is the null address", types.ErrInvalidArgument)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.agents.Add(agent), nil
}

// RemoveAgent revokes the agent role. Owner-gated; revoking an absent
// agent is a no-op reported as false.
func (a *Authority) RemoveAgent(caller, agent types.Address) (bool, error) {
	if err := a.RequireOwner(caller); err != nil {
		return false, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.agents.Remove(agent), nil
}

// Agents returns the explicit agent set. The owner is not listed.
func (a *Authority) Agents() []types.Address {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.agents.Values()
}

// TransferOwnership moves the owner role. Owner-gated; the new owner may
// not be the null address.
func (a *Authority) TransferOwnership(caller, newOwner types.Address) error {
	if err := a.RequireOwner(caller); err != nil {
		return err
	}
	if newOwner.IsZero() {
		return fmt.Errorf("%w: new owner is the null address", types.ErrInvalidArgument)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.owner = newOwner
	return nil
}

// AuthoritySnapshot is the persisted role table.
type AuthoritySnapshot struct {
	Owner  types.Address
	Agents collection.IndexedSet[types.Address]
}

// Snapshot captures the role table for persistence.
func (a *Authority) Snapshot() AuthoritySnapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return AuthoritySnapshot{Owner: a.owner, Agents: *a.agents.Clone()}
}

// Restore replaces the role table from a snapshot.
func (a *Authority) Restore(snap AuthoritySnapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.owner = snap.Owner
	a.agents = snap.Agents.Clone()
	if a.agents.Index == nil {
		a.agents.Reindex()
	}
}
