// Package indexer persists executed transactions and their events for
// hash and event-based lookup. Two backends are provided, leveldb and
// badger, selected by configuration.
package indexer

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"

	"github.com/blockberries/tokenberry/abi"
	"github.com/blockberries/tokenberry/types"
)

// Key prefixes shared by both backends.
var (
	prefixTx   = []byte("T:") // T:<hash> -> record
	prefixSeq  = []byte("S:") // S:<seq> -> hash
	prefixEvt  = []byte("E:") // E:<type>:<seq> -> hash
	prefixAttr = []byte("A:") // A:<type>:<key>:<value>:<seq> -> hash
)

// txRecord is the stored form of a TxIndexResult. The execution error is
// flattened to its message; the error chain does not survive indexing.
type txRecord struct {
	Hash     []byte
	Sequence uint64
	Signer   types.Address
	Code     uint32
	ErrorMsg string
	Data     []byte
	Events   []abi.Event
}

func encodeRecord(result *abi.TxIndexResult) ([]byte, error) {
	if result == nil || result.Result == nil {
		return nil, errors.New("nil index result")
	}
	if len(result.Hash) == 0 {
		return nil, errors.New("index result has no hash")
	}
	rec := txRecord{
		Hash:     result.Hash,
		Sequence: result.Sequence,
		Signer:   result.Signer,
		Code:     uint32(result.Result.Code),
		Data:     result.Result.Data,
		Events:   result.Result.Events,
	}
	if result.Result.Error != nil {
		rec.ErrorMsg = result.Result.Error.Error()
	}
	data, err := cramberry.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshaling tx record: %w", err)
	}
	return data, nil
}

func decodeRecord(data []byte) (*abi.TxIndexResult, error) {
	var rec txRecord
	if err := cramberry.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshaling tx record: %w", err)
	}
	result := &abi.TxExecResult{
		Code:   abi.ResultCode(rec.Code),
		Data:   rec.Data,
		Events: rec.Events,
	}
	if rec.ErrorMsg != "" {
		result.Error = errors.New(rec.ErrorMsg)
	}
	return &abi.TxIndexResult{
		Hash:     rec.Hash,
		Sequence: rec.Sequence,
		Signer:   rec.Signer,
		Result:   result,
	}, nil
}

func seqBytes(seq uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], seq)
	return b[:]
}

func txKey(hash []byte) []byte {
	return append(append([]byte{}, prefixTx...), hash...)
}

func seqKey(seq uint64) []byte {
	return append(append([]byte{}, prefixSeq...), seqBytes(seq)...)
}

func evtKey(eventType string, seq uint64) []byte {
	k := append(append([]byte{}, prefixEvt...), eventType...)
	k = append(k, ':')
	return append(k, seqBytes(seq)...)
}

func evtPrefix(eventType string) []byte {
	k := append(append([]byte{}, prefixEvt...), eventType...)
	return append(k, ':')
}

func attrKey(eventType, key, value string, seq uint64) []byte {
	return append(attrPrefix(eventType, key, value), seqBytes(seq)...)
}

func attrPrefix(eventType, key, value string) []byte {
	k := append(append([]byte{}, prefixAttr...), eventType...)
	k = append(k, ':')
	k = append(k, key...)
	k = append(k, ':')
	k = append(k, value...)
	return append(k, ':')
}

// secondaryKeys derives the event and attribute keys for a record. Only
// attributes marked for indexing get an attribute key.
func secondaryKeys(result *abi.TxIndexResult) [][]byte {
	var keys [][]byte
	seen := make(map[string]bool)
	for _, event := range result.Result.Events {
		ek := evtKey(event.Type, result.Sequence)
		if !seen[string(ek)] {
			seen[string(ek)] = true
			keys = append(keys, ek)
		}
		for _, attr := range event.Attributes {
			if !attr.Index {
				continue
			}
			ak := attrKey(event.Type, attr.Key, attr.StringValue(), result.Sequence)
			if !seen[string(ak)] {
				seen[string(ak)] = true
				keys = append(keys, ak)
			}
		}
	}
	return keys
}

// Open builds an indexer for the configured backend. Backend "none"
// returns nil with no error: indexing is disabled.
func Open(backend, path string) (abi.TxIndexer, error) {
	switch backend {
	case "leveldb":
		return NewLevelDBIndexer(path)
	case "badger":
		return NewBadgerIndexer(path)
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown indexer backend %q", backend)
	}
}
