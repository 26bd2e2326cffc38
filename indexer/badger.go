package indexer

import (
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/blockberries/tokenberry/abi"
)

// BadgerIndexer implements abi.TxIndexer over BadgerDB.
type BadgerIndexer struct {
	mu     sync.RWMutex
	db     *badger.DB
	closed bool
}

var _ abi.TxIndexer = (*BadgerIndexer)(nil)

// NewBadgerIndexer opens a badger-backed indexer under path.
func NewBadgerIndexer(path string) (*BadgerIndexer, error) {
	opts := badger.DefaultOptions(path).
		WithSyncWrites(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger indexer: %w", err)
	}
	return &BadgerIndexer{db: db}, nil
}

// Index stores a transaction result with its secondary keys in one
// transaction.
func (x *BadgerIndexer) Index(result *abi.TxIndexResult) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return abi.ErrIndexerClosed
	}

	data, err := encodeRecord(result)
	if err != nil {
		return err
	}

	err = x.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(txKey(result.Hash), data); err != nil {
			return err
		}
		if err := txn.Set(seqKey(result.Sequence), result.Hash); err != nil {
			return err
		}
		for _, key := range secondaryKeys(result) {
			if err := txn.Set(key, result.Hash); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing tx index: %w", err)
	}
	return nil
}

// Get retrieves a transaction result by hash.
func (x *BadgerIndexer) Get(hash []byte) (*abi.TxIndexResult, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return nil, abi.ErrIndexerClosed
	}

	var result *abi.TxIndexResult
	err := x.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(txKey(hash))
		if err == badger.ErrKeyNotFound {
			return abi.ErrTxNotFound
		}
		if err != nil {
			return fmt.Errorf("reading tx record: %w", err)
		}
		return item.Value(func(data []byte) error {
			result, err = decodeRecord(data)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SearchByEventType returns transactions that emitted the event type, in
// execution order.
func (x *BadgerIndexer) SearchByEventType(eventType string) ([]*abi.TxIndexResult, error) {
	return x.searchPrefix(evtPrefix(eventType))
}

// SearchByAttribute returns transactions whose event of the given type
// carried the indexed attribute.
func (x *BadgerIndexer) SearchByAttribute(eventType, key, value string) ([]*abi.TxIndexResult, error) {
	return x.searchPrefix(attrPrefix(eventType, key, value))
}

func (x *BadgerIndexer) searchPrefix(prefix []byte) ([]*abi.TxIndexResult, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return nil, abi.ErrIndexerClosed
	}

	var results []*abi.TxIndexResult
	err := x.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var hash []byte
			if err := it.Item().Value(func(v []byte) error {
				hash = append([]byte{}, v...)
				return nil
			}); err != nil {
				return err
			}

			item, err := txn.Get(txKey(hash))
			if err != nil {
				return fmt.Errorf("reading tx record for search: %w", err)
			}
			if err := item.Value(func(data []byte) error {
				result, err := decodeRecord(data)
				if err != nil {
					return err
				}
				results = append(results, result)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Close releases the underlying database. Further calls fail with
// ErrIndexerClosed.
func (x *BadgerIndexer) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return nil
	}
	x.closed = true
	return x.db.Close()
}
