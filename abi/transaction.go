package abi

import (
	"crypto/sha256"
	"errors"

	"github.com/blockberries/tokenberry/types"
)

// Transaction is a single unit of work submitted to the executor.
// The Data field is opaque to the executor; only the application decodes it.
// Signer is the authenticated sender: signature verification happens in the
// substrate before the transaction reaches the application, so the
// application treats Signer as trusted.
type Transaction struct {
	// Hash is the SHA-256 hash of Data. Computed automatically if empty.
	Hash []byte

	// Data is the encoded operation payload (opaque to the executor).
	Data []byte

	// Signer is the authenticated address that submitted the transaction.
	Signer types.Address

	// Nonce is an optional sequence number for ordering.
	Nonce uint64
}

// ComputeHash computes and sets the transaction hash if not already set.
func (tx *Transaction) ComputeHash() []byte {
	if len(tx.Hash) == 0 && len(tx.Data) > 0 {
		h := sha256.Sum256(tx.Data)
		tx.Hash = h[:]
	}
	return tx.Hash
}

// ValidateBasic performs basic structural validation.
func (tx *Transaction) ValidateBasic() error {
	if len(tx.Data) == 0 {
		return errors.New("transaction data is empty")
	}
	if tx.Signer.IsZero() {
		return errors.New("transaction signer is the null address")
	}
	return nil
}

// Size returns the size of the transaction payload in bytes.
func (tx *Transaction) Size() int {
	return len(tx.Data)
}

// TxCheckResult is returned from Application.CheckTx.
type TxCheckResult struct {
	// Code indicates success (0) or failure (non-zero).
	Code ResultCode

	// Error provides detail if Code != 0.
	Error error
}

// IsOK returns true if the check succeeded.
func (r *TxCheckResult) IsOK() bool {
	return r != nil && r.Code.IsOK()
}

// TxExecResult is returned from Application.ExecuteTx.
type TxExecResult struct {
	// Code indicates success (0) or failure (non-zero).
	Code ResultCode

	// Error provides detail if Code != 0.
	Error error

	// Events are the typed events emitted during execution.
	Events []Event

	// Data is optional return data from execution.
	Data []byte
}

// IsOK returns true if the execution succeeded.
func (r *TxExecResult) IsOK() bool {
	return r != nil && r.Code.IsOK()
}

// TxIndexResult pairs an executed transaction with its result for indexing.
type TxIndexResult struct {
	// Hash is the transaction hash.
	Hash []byte

	// Sequence is the executor-assigned global sequence number.
	Sequence uint64

	// Signer is the authenticated sender.
	Signer types.Address

	// Result is the execution result including emitted events.
	Result *TxExecResult
}
