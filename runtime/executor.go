// Package runtime provides the atomic transaction executor. It is the
// single entry point for mutations: submissions are globally serialized,
// each one runs the full check/execute/commit sequence against the
// application, and the observable side effects (events, index records)
// are published only after the state version is durable.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/blockberries/tokenberry/abi"
	"github.com/blockberries/tokenberry/logging"
	"github.com/blockberries/tokenberry/metrics"
	"github.com/blockberries/tokenberry/tracing"
)

// ErrExecutorStopped indicates a submission arrived while the executor
// was not running.
var ErrExecutorStopped = errors.New("executor is not running")

// Executor serializes transaction processing against an Application.
//
// Submit runs CheckTx, ExecuteTx, and Commit as one unit under a single
// lock, so exactly one state version is produced per successful
// transaction. Committed transactions are published to the event bus and
// recorded in the indexer with their commit version as the sequence
// number; rejected transactions produce no version, no events, and no
// index record.
type Executor struct {
	app     abi.Application
	bus     abi.EventBus
	indexer abi.TxIndexer
	metrics metrics.Metrics
	logger  *logging.Logger
	tracer  tracing.Tracer

	mu      sync.Mutex
	running atomic.Bool
}

// Option is a functional option for configuring an Executor.
type Option func(*Executor)

// WithTracer sets the tracer used to span each submission.
func WithTracer(tracer tracing.Tracer) Option {
	return func(e *Executor) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

var (
	_ abi.Component = (*Executor)(nil)
	_ abi.Named     = (*Executor)(nil)
)

// NewExecutor creates an executor over the given application. The bus and
// indexer are optional; nil disables publishing or indexing.
func NewExecutor(app abi.Application, bus abi.EventBus, indexer abi.TxIndexer, m metrics.Metrics, logger *logging.Logger, opts ...Option) *Executor {
	if m == nil {
		m = metrics.NewNopMetrics()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	e := &Executor{
		app:     app,
		bus:     bus,
		indexer: indexer,
		metrics: m,
		logger:  logger.WithComponent("executor"),
		tracer:  tracing.NewNopTracer(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the component name.
func (e *Executor) Name() string {
	return "executor"
}

// Start marks the executor as accepting submissions. Idempotent.
func (e *Executor) Start() error {
	if e.running.Swap(true) {
		return nil
	}
	info := e.app.Info()
	e.logger.Info("executor started",
		"app", info.Name,
		"state_version", info.StateVersion)
	return nil
}

// Stop drains the in-flight submission and rejects new ones. Idempotent.
func (e *Executor) Stop() error {
	if !e.running.Swap(false) {
		return nil
	}
	// Taking the lock waits out a submission that is mid-commit.
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logger.Info("executor stopped")
	return nil
}

// IsRunning reports whether the executor accepts submissions.
func (e *Executor) IsRunning() bool {
	return e.running.Load()
}

// Submit processes one transaction end to end. The returned result
// carries the application's verdict; a non-nil error means the
// substrate itself failed (commit error, indexer error) and the process
// should not continue submitting.
func (e *Executor) Submit(ctx context.Context, tx *abi.Transaction) (*abi.TxExecResult, error) {
	if !e.running.Load() {
		return nil, ErrExecutorStopped
	}
	tx.ComputeHash()

	ctx, span := e.tracer.StartSpan(ctx, "executor.Submit")
	defer span.End()
	span.SetAttribute("tx.hash", tx.Hash)
	span.SetAttribute("tx.signer", tx.Signer.Short())

	e.mu.Lock()
	defer e.mu.Unlock()

	if check := e.app.CheckTx(ctx, tx); !check.IsOK() {
		e.metrics.IncTxRejected("check")
		span.SetStatus(tracing.StatusError, "check failed")
		return &abi.TxExecResult{Code: check.Code, Error: check.Error}, nil
	}

	result := e.app.ExecuteTx(ctx, tx)
	if !result.IsOK() {
		span.SetStatus(tracing.StatusError, fmt.Sprintf("code %d", result.Code))
		if result.Error != nil {
			span.RecordError(result.Error)
		}
		return result, nil
	}

	commit, err := e.app.Commit(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("committing state: %w", err)
	}
	span.SetAttribute("commit.version", commit.Version)
	span.SetStatus(tracing.StatusOK, "")

	e.publish(ctx, result.Events)

	if e.indexer != nil {
		record := &abi.TxIndexResult{
			Hash:     tx.Hash,
			Sequence: uint64(commit.Version),
			Signer:   tx.Signer,
			Result:   result,
		}
		if err := e.indexer.Index(record); err != nil {
			return nil, fmt.Errorf("indexing transaction: %w", err)
		}
		e.metrics.IncEventsIndexed(len(result.Events))
	}

	e.logger.Debug("transaction committed",
		"hash", fmt.Sprintf("%x", tx.Hash[:8]),
		"version", commit.Version,
		"events", len(result.Events))
	return result, nil
}

// publish fans events out to the bus. Publish failures are logged, not
// returned: the transaction is already committed at this point.
func (e *Executor) publish(ctx context.Context, evts []abi.Event) {
	if e.bus == nil {
		return
	}
	for _, evt := range evts {
		if err := e.bus.Publish(ctx, evt); err != nil {
			e.logger.Warn("event publish failed", "type", evt.Type, "error", err)
			return
		}
	}
}
