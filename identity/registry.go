package identity

import (
	"github.com/blockberries/tokenberry/logging"
	"github.com/blockberries/tokenberry/types"
)

// Registry is the mutation surface over the identity store. It holds the
// store's capability so that all writes funnel through one component; the
// application layer decides who may call it.
type Registry struct {
	store *Store
	cap   Capability
}

// NewRegistry creates the store and its registry together. The registry is
// the sole capability holder.
func NewRegistry(logger *logging.Logger) *Registry {
	store, cap := NewStore(logger)
	return &Registry{store: store, cap: cap}
}

// Store exposes the read-only side for verifiers and queries.
func (r *Registry) Store() *Store {
	return r.store
}

// RegisterIdentity links an address to an identity.
func (r *Registry) RegisterIdentity(addr types.Address, id types.IdentityID, country types.CountryCode) error {
	return r.store.Register(r.cap, addr, id, country)
}

// UpdateIdentity moves an address to a new identity.
func (r *Registry) UpdateIdentity(addr types.Address, newID types.IdentityID) error {
	return r.store.Update(r.cap, addr, newID)
}

// UpdateCountry changes a registered address's country code.
func (r *Registry) UpdateCountry(addr types.Address, country types.CountryCode) error {
	return r.store.UpdateCountry(r.cap, addr, country)
}

// SetExpiry sets or clears a registered address's expiry.
func (r *Registry) SetExpiry(addr types.Address, expiresAt int64) error {
	return r.store.SetExpiry(r.cap, addr, expiresAt)
}

// DeleteIdentity removes an address's registration.
func (r *Registry) DeleteIdentity(addr types.Address) error {
	return r.store.Delete(r.cap, addr)
}
