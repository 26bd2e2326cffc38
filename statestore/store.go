// Package statestore provides versioned merkleized key-value storage for
// the token application state. Every commit produces a new tree version,
// so a crashed or aborted transaction never leaves a partially written
// state behind: the application simply reloads the last committed version.
package statestore

// StateStore is the versioned key-value store the application commits its
// snapshots into. Implementations must be safe for concurrent use.
type StateStore interface {
	// Get retrieves the value for a key. Returns nil, nil if absent.
	Get(key []byte) ([]byte, error)

	// Has checks if a key exists.
	Has(key []byte) (bool, error)

	// Set stages a key-value pair in the working tree. Not durable until
	// Commit.
	Set(key []byte, value []byte) error

	// Delete stages removal of a key from the working tree.
	Delete(key []byte) error

	// Commit saves the working tree as a new version and returns the new
	// root hash and version number.
	Commit() (hash []byte, version int64, err error)

	// RootHash returns the root hash of the working tree, reflecting
	// uncommitted changes.
	RootHash() []byte

	// Version returns the latest committed version, zero before the
	// first commit.
	Version() int64

	// LoadVersion rewinds the store to a committed version, discarding
	// any staged changes.
	LoadVersion(version int64) error

	// GetVersioned reads a key as of a committed version.
	GetVersioned(key []byte, version int64) ([]byte, error)

	// Close releases the underlying database.
	Close() error
}
