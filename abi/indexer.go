package abi

import "errors"

// Common errors used by ABI interfaces.
var (
	// ErrTxNotFound indicates a requested transaction was not indexed.
	ErrTxNotFound = errors.New("transaction not found")

	// ErrIndexerClosed indicates the indexer has been closed.
	ErrIndexerClosed = errors.New("indexer is closed")
)

// TxIndexer stores executed transactions and their emitted events for
// later lookup. Implementations must be safe for concurrent use.
type TxIndexer interface {
	// Index stores a transaction result. Indexed event attributes become
	// searchable via SearchByAttribute.
	Index(result *TxIndexResult) error

	// Get retrieves a transaction result by hash.
	// Returns ErrTxNotFound if the hash was never indexed.
	Get(hash []byte) (*TxIndexResult, error)

	// SearchByEventType returns transactions that emitted an event of the
	// given type, in execution order.
	SearchByEventType(eventType string) ([]*TxIndexResult, error)

	// SearchByAttribute returns transactions that emitted an event of the
	// given type carrying an indexed attribute with the given key/value.
	SearchByAttribute(eventType, key, value string) ([]*TxIndexResult, error)

	// Close releases resources.
	Close() error
}
