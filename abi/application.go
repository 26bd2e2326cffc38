// Package abi defines the contract between the atomic transaction executor
// and the token application. The executor dispatches globally serialized
// transactions; the application validates, executes, and commits them.
package abi

import (
	"context"
	"time"
)

// Application is the interface the token application implements.
//
// Methods are invoked by the executor in a fixed order per transaction:
//
//  1. CheckTx - lightweight validation before execution
//  2. ExecuteTx - state transition; all checks pass or nothing changes
//  3. Commit - persist a new state version after a successful execution
//
// Query and Info can be called at any time and must not modify state.
// The executor serializes ExecuteTx/Commit; CheckTx and Query may be
// called concurrently and must be thread-safe.
type Application interface {
	// Info returns metadata about the application, including the last
	// committed state version and its hash.
	Info() ApplicationInfo

	// InitChain is called once at genesis to initialize application state.
	InitChain(genesis *Genesis) error

	// CheckTx validates a transaction without executing it.
	CheckTx(ctx context.Context, tx *Transaction) *TxCheckResult

	// ExecuteTx executes a transaction. A non-OK result means the
	// transaction had no effect: every check runs before the first state
	// write, so a failed transaction leaves state untouched.
	ExecuteTx(ctx context.Context, tx *Transaction) *TxExecResult

	// Commit persists the current state as a new version and returns its
	// hash. Called after each successful ExecuteTx.
	Commit(ctx context.Context) (*CommitResult, error)

	// Query reads application state at the given path.
	Query(ctx context.Context, req *QueryRequest) *QueryResponse
}

// ApplicationInfo provides metadata about the application.
type ApplicationInfo struct {
	// Name is the application name.
	Name string

	// Version is the application version string.
	Version string

	// AppHash is the current committed state hash.
	AppHash []byte

	// StateVersion is the last committed state version.
	StateVersion int64

	// LastCommitTime is the timestamp of the last commit.
	LastCommitTime time.Time
}

// CommitResult is returned from Application.Commit.
type CommitResult struct {
	// AppHash is the new state root hash.
	AppHash []byte

	// Version is the new committed state version.
	Version int64
}
