package statestore

import (
	"fmt"
	"sync"

	"github.com/cosmos/iavl"
	idb "github.com/cosmos/iavl/db"
)

// IAVLStore implements StateStore over a cosmos/iavl merkle tree.
type IAVLStore struct {
	mu   sync.RWMutex
	tree *iavl.MutableTree
	db   idb.DB
}

var _ StateStore = (*IAVLStore)(nil)

// NewIAVLStore opens a leveldb-backed store under path. cacheSize is the
// number of tree nodes kept in memory.
func NewIAVLStore(path string, cacheSize int) (*IAVLStore, error) {
	db, err := idb.NewGoLevelDB("state", path)
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}

	tree := iavl.NewMutableTree(db, cacheSize, false, iavl.NewNopLogger())
	if _, err := tree.Load(); err != nil {
		db.Close()
		return nil, fmt.Errorf("loading state tree: %w", err)
	}

	return &IAVLStore{tree: tree, db: db}, nil
}

// NewMemoryIAVLStore creates an in-memory store for tests.
func NewMemoryIAVLStore(cacheSize int) (*IAVLStore, error) {
	db := idb.NewMemDB()
	tree := iavl.NewMutableTree(db, cacheSize, false, iavl.NewNopLogger())
	return &IAVLStore{tree: tree, db: db}, nil
}

// Get retrieves the value for a key.
func (s *IAVLStore) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, err := s.tree.Get(key)
	if err != nil {
		return nil, fmt.Errorf("getting key: %w", err)
	}
	return value, nil
}

// Has checks if a key exists.
func (s *IAVLStore) Has(key []byte) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	has, err := s.tree.Has(key)
	if err != nil {
		return false, fmt.Errorf("checking key: %w", err)
	}
	return has, nil
}

// Set stages a key-value pair in the working tree.
func (s *IAVLStore) Set(key []byte, value []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("empty key")
	}
	if value == nil {
		return fmt.Errorf("nil value")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.tree.Set(key, value); err != nil {
		return fmt.Errorf("setting key: %w", err)
	}
	return nil
}

// Delete stages removal of a key.
func (s *IAVLStore) Delete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("empty key")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, _, err := s.tree.Remove(key); err != nil {
		return fmt.Errorf("removing key: %w", err)
	}
	return nil
}

// Commit saves the working tree as a new version.
func (s *IAVLStore) Commit() ([]byte, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash, version, err := s.tree.SaveVersion()
	if err != nil {
		return nil, 0, fmt.Errorf("saving version: %w", err)
	}
	return hash, version, nil
}

// RootHash returns the working tree root hash.
func (s *IAVLStore) RootHash() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.WorkingHash()
}

// Version returns the latest committed version.
func (s *IAVLStore) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Version()
}

// LoadVersion rewinds to a committed version, dropping staged changes.
func (s *IAVLStore) LoadVersion(version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.tree.LoadVersion(version); err != nil {
		return fmt.Errorf("loading version %d: %w", version, err)
	}
	return nil
}

// VersionExists checks whether a committed version is available.
func (s *IAVLStore) VersionExists(version int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.VersionExists(version)
}

// GetVersioned reads a key as of a committed version.
func (s *IAVLStore) GetVersioned(key []byte, version int64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, err := s.tree.GetVersioned(key, version)
	if err != nil {
		return nil, fmt.Errorf("getting versioned key: %w", err)
	}
	return value, nil
}

// Close releases the underlying database.
func (s *IAVLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
