// Package identity implements on-chain identity tracking: the
// capability-gated address-to-identity store, the registry that owns it,
// and the trust-chain verifier.
package identity

import (
	"fmt"
	"sync"

	"github.com/blockberries/tokenberry/collection"
	"github.com/blockberries/tokenberry/logging"
	"github.com/blockberries/tokenberry/types"
)

// AddressRecord is the durable record for a registered address.
type AddressRecord struct {
	// Identity is the linked identity handle; never zero for a stored record.
	Identity types.IdentityID

	// Country is the holder's country code.
	Country types.CountryCode

	// ExpiresAt is the optional expiry as unix seconds; zero means never.
	// An expired record resolves to "no identity" during verification.
	ExpiresAt int64
}

// Capability authorizes mutation of a Store. NewStore mints exactly one;
// the identity Registry holds it. A zero Capability never matches.
type Capability struct {
	token *capToken
}

type capToken struct{ _ byte }

// Store owns the address → identity mapping and the reverse identity →
// address set. Only the holder of the store's Capability may mutate it;
// reads are open. Safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	cap        Capability
	records    map[types.Address]AddressRecord
	byIdentity map[types.IdentityID]*collection.IndexedSet[types.Address]
	version    uint64
	logger     *logging.Logger
}

// NewStore creates an empty identity store and mints its mutation
// capability. The caller is responsible for handing the capability to the
// one component allowed to mutate the store.
func NewStore(logger *logging.Logger) (*Store, Capability) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	cap := Capability{token: &capToken{}}
	s := &Store{
		cap:        cap,
		records:    make(map[types.Address]AddressRecord),
		byIdentity: make(map[types.IdentityID]*collection.IndexedSet[types.Address]),
		logger:     logger.WithComponent("identitystore"),
	}
	return s, cap
}

func (s *Store) authorize(cap Capability) error {
	if cap.token == nil || cap.token != s.cap.token {
		return fmt.Errorf("%w: caller does not hold the store capability", types.ErrUnauthorized)
	}
	return nil
}

// Register links an address to an identity with a country code.
// Fails with ErrAlreadyExists if the address already has an identity;
// the record must be deleted before re-registration.
func (s *Store) Register(cap Capability, addr types.Address, id types.IdentityID, country types.CountryCode) error {
	if err := s.authorize(cap); err != nil {
		return err
	}
	if addr.IsZero() {
		return fmt.Errorf("%w: address is the null address", types.ErrInvalidArgument)
	}
	if id.IsZero() {
		return fmt.Errorf("%w: identity is the zero handle", types.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[addr]; ok && !existing.Identity.IsZero() {
		return fmt.Errorf("%w: address %s already registered", types.ErrAlreadyExists, addr.Short())
	}

	s.records[addr] = AddressRecord{Identity: id, Country: country}
	s.linkLocked(id, addr)
	s.version++
	s.logger.Debug("identity registered", logging.Addr("address", addr), logging.Identity(id))
	return nil
}

// Update moves an address to a new identity. Fails with ErrNotFound if the
// address has no identity and ErrInvalidArgument if the new identity equals
// the current one.
func (s *Store) Update(cap Capability, addr types.Address, newID types.IdentityID) error {
	if err := s.authorize(cap); err != nil {
		return err
	}
	if newID.IsZero() {
		return fmt.Errorf("%w: identity is the zero handle", types.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[addr]
	if !ok || rec.Identity.IsZero() {
		return fmt.Errorf("%w: address %s has no identity", types.ErrNotFound, addr.Short())
	}
	if rec.Identity == newID {
		return fmt.Errorf("%w: identity unchanged", types.ErrInvalidArgument)
	}

	s.unlinkLocked(rec.Identity, addr)
	rec.Identity = newID
	s.records[addr] = rec
	s.linkLocked(newID, addr)
	s.version++
	s.logger.Debug("identity updated", logging.Addr("address", addr), logging.Identity(newID))
	return nil
}

// UpdateCountry changes the country code of a registered address.
func (s *Store) UpdateCountry(cap Capability, addr types.Address, country types.CountryCode) error {
	if err := s.authorize(cap); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[addr]
	if !ok || rec.Identity.IsZero() {
		return fmt.Errorf("%w: address %s has no identity", types.ErrNotFound, addr.Short())
	}
	rec.Country = country
	s.records[addr] = rec
	s.version++
	return nil
}

// SetExpiry sets the expiration timestamp of a registered address.
// Zero clears the expiry.
func (s *Store) SetExpiry(cap Capability, addr types.Address, expiresAt int64) error {
	if err := s.authorize(cap); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[addr]
	if !ok || rec.Identity.IsZero() {
		return fmt.Errorf("%w: address %s has no identity", types.ErrNotFound, addr.Short())
	}
	rec.ExpiresAt = expiresAt
	s.records[addr] = rec
	s.version++
	return nil
}

// Delete removes an address from its identity's address set and zeroes the
// record. Fails with ErrNotFound if the address has no identity.
func (s *Store) Delete(cap Capability, addr types.Address) error {
	if err := s.authorize(cap); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[addr]
	if !ok || rec.Identity.IsZero() {
		return fmt.Errorf("%w: address %s has no identity", types.ErrNotFound, addr.Short())
	}

	s.unlinkLocked(rec.Identity, addr)
	delete(s.records, addr)
	s.version++
	s.logger.Debug("identity removed", logging.Addr("address", addr))
	return nil
}

// Get returns the record for an address. The boolean is false if the
// address was never registered or has been deleted.
func (s *Store) Get(addr types.Address) (AddressRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[addr]
	if !ok || rec.Identity.IsZero() {
		return AddressRecord{}, false
	}
	return rec, true
}

// AddressesOf returns the current address set of an identity (unordered).
func (s *Store) AddressesOf(id types.IdentityID) []types.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.byIdentity[id]
	if !ok {
		return nil
	}
	return set.Values()
}

// IdentityExists reports whether the identity has at least one linked
// address. Distinguishes "never registered" from "registered but all
// addresses removed".
func (s *Store) IdentityExists(id types.IdentityID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.byIdentity[id]
	return ok && set.Len() > 0
}

// Version returns a counter incremented on every mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *Store) linkLocked(id types.IdentityID, addr types.Address) {
	set, ok := s.byIdentity[id]
	if !ok {
		set = collection.NewIndexedSet[types.Address]()
		s.byIdentity[id] = set
	}
	set.Add(addr)
}

func (s *Store) unlinkLocked(id types.IdentityID, addr types.Address) {
	set, ok := s.byIdentity[id]
	if !ok {
		return
	}
	set.Remove(addr)
	if set.Len() == 0 {
		delete(s.byIdentity, id)
	}
}

// StoreSnapshot is the persisted form of the store. Address sets keep the
// counted-set layout (count, dense array, reverse index).
type StoreSnapshot struct {
	Records    map[types.Address]AddressRecord
	ByIdentity map[types.IdentityID]collection.IndexedSet[types.Address]
	Version    uint64
}

// Snapshot captures the store state for persistence.
func (s *Store) Snapshot() StoreSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make(map[types.Address]AddressRecord, len(s.records))
	for addr, rec := range s.records {
		records[addr] = rec
	}
	byIdentity := make(map[types.IdentityID]collection.IndexedSet[types.Address], len(s.byIdentity))
	for id, set := range s.byIdentity {
		byIdentity[id] = *set.Clone()
	}
	return StoreSnapshot{
		Records:    records,
		ByIdentity: byIdentity,
		Version:    s.version,
	}
}

// Restore replaces the store state from a snapshot. Restoring does not
// require the capability: it happens during application startup, before
// the store is reachable.
func (s *Store) Restore(snap StoreSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[types.Address]AddressRecord, len(snap.Records))
	for addr, rec := range snap.Records {
		s.records[addr] = rec
	}
	s.byIdentity = make(map[types.IdentityID]*collection.IndexedSet[types.Address], len(snap.ByIdentity))
	for id, set := range snap.ByIdentity {
		restored := set.Clone()
		if restored.Index == nil {
			restored.Reindex()
		}
		s.byIdentity[id] = restored
	}
	s.version = snap.Version
}
