package indexer

import (
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/blockberries/tokenberry/abi"
)

// LevelDBIndexer implements abi.TxIndexer over LevelDB.
type LevelDBIndexer struct {
	mu     sync.RWMutex
	db     *leveldb.DB
	closed bool
}

var _ abi.TxIndexer = (*LevelDBIndexer)(nil)

// NewLevelDBIndexer opens a leveldb-backed indexer under path.
func NewLevelDBIndexer(path string) (*LevelDBIndexer, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{NoSync: false})
	if err != nil {
		return nil, fmt.Errorf("opening leveldb indexer: %w", err)
	}
	return &LevelDBIndexer{db: db}, nil
}

// Index stores a transaction result with its secondary keys in one
// atomic batch.
func (x *LevelDBIndexer) Index(result *abi.TxIndexResult) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return abi.ErrIndexerClosed
	}

	data, err := encodeRecord(result)
	if err != nil {
		return err
	}

	batch := new(leveldb.Batch)
	batch.Put(txKey(result.Hash), data)
	batch.Put(seqKey(result.Sequence), result.Hash)
	for _, key := range secondaryKeys(result) {
		batch.Put(key, result.Hash)
	}

	if err := x.db.Write(batch, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("writing tx index batch: %w", err)
	}
	return nil
}

// Get retrieves a transaction result by hash.
func (x *LevelDBIndexer) Get(hash []byte) (*abi.TxIndexResult, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return nil, abi.ErrIndexerClosed
	}

	data, err := x.db.Get(txKey(hash), nil)
	if err == leveldb.ErrNotFound {
		return nil, abi.ErrTxNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading tx record: %w", err)
	}
	return decodeRecord(data)
}

// SearchByEventType returns transactions that emitted the event type, in
// execution order.
func (x *LevelDBIndexer) SearchByEventType(eventType string) ([]*abi.TxIndexResult, error) {
	return x.searchPrefix(evtPrefix(eventType))
}

// SearchByAttribute returns transactions whose event of the given type
// carried the indexed attribute.
func (x *LevelDBIndexer) SearchByAttribute(eventType, key, value string) ([]*abi.TxIndexResult, error) {
	return x.searchPrefix(attrPrefix(eventType, key, value))
}

func (x *LevelDBIndexer) searchPrefix(prefix []byte) ([]*abi.TxIndexResult, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return nil, abi.ErrIndexerClosed
	}

	// Sequence numbers are big-endian suffixes, so leveldb's key order is
	// execution order.
	var results []*abi.TxIndexResult
	iter := x.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		hash := append([]byte{}, iter.Value()...)
		data, err := x.db.Get(txKey(hash), nil)
		if err != nil {
			return nil, fmt.Errorf("reading tx record for search: %w", err)
		}
		result, err := decodeRecord(data)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterating tx index: %w", err)
	}
	return results, nil
}

// Close releases the underlying database. Further calls fail with
// ErrIndexerClosed.
func (x *LevelDBIndexer) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return nil
	}
	x.closed = true
	return x.db.Close()
}
