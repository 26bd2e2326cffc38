// Package node wires the token application and its supporting components
// (state store, indexer, event bus, executor, metrics) into a single
// runnable unit with one lifecycle.
package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/blockberries/tokenberry/abi"
	"github.com/blockberries/tokenberry/app"
	"github.com/blockberries/tokenberry/config"
	"github.com/blockberries/tokenberry/events"
	"github.com/blockberries/tokenberry/indexer"
	"github.com/blockberries/tokenberry/logging"
	"github.com/blockberries/tokenberry/metrics"
	"github.com/blockberries/tokenberry/runtime"
	"github.com/blockberries/tokenberry/statestore"
	"github.com/blockberries/tokenberry/tracing"
	"github.com/blockberries/tokenberry/tracing/otel"
)

// Node is the main coordinator for a tokenberry instance.
// It aggregates all components and manages their lifecycle.
type Node struct {
	cfg     *config.Config
	logger  *logging.Logger
	metrics metrics.Metrics

	store    statestore.StateStore
	indexer  abi.TxIndexer
	bus      *events.Bus
	app      *app.App
	executor *runtime.Executor

	metricsSrv     *http.Server
	tracerShutdown func(context.Context) error

	mu      sync.Mutex
	started bool
}

// Option is a functional option for configuring a Node.
type Option func(*Node)

// WithStateStore sets a custom state store. Useful for tests that want
// in-memory state regardless of configuration.
func WithStateStore(store statestore.StateStore) Option {
	return func(n *Node) {
		n.store = store
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) Option {
	return func(n *Node) {
		n.logger = logger
	}
}

// NewNode creates a tokenberry node from configuration. The node is not
// started until Start is called.
func NewNode(cfg *config.Config, opts ...Option) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	n := &Node{cfg: cfg}
	for _, opt := range opts {
		opt(n)
	}

	if n.logger == nil {
		n.logger = NewLogger(cfg.Logging)
	}

	if cfg.Metrics.Enabled {
		n.metrics = metrics.NewPrometheusMetrics(cfg.Metrics.Namespace)
	} else {
		n.metrics = metrics.NewNopMetrics()
	}

	if n.store == nil {
		if err := cfg.EnsureDataDirs(); err != nil {
			return nil, err
		}
		store, err := openStateStore(cfg.StateStore)
		if err != nil {
			return nil, fmt.Errorf("opening state store: %w", err)
		}
		n.store = store
	}

	idx, err := indexer.Open(cfg.Indexer.Backend, cfg.Indexer.Path)
	if err != nil {
		n.store.Close()
		return nil, fmt.Errorf("opening indexer: %w", err)
	}
	n.indexer = idx

	n.bus = events.NewBus()

	application, err := app.NewApp(cfg, n.store, n.metrics, n.logger)
	if err != nil {
		n.closeStorage()
		return nil, fmt.Errorf("creating application: %w", err)
	}
	n.app = application

	var tracer tracing.Tracer = tracing.NewNopTracer()
	if cfg.Tracing.Enabled {
		t, shutdown, err := otel.SetupGlobalTracer(otel.ProviderConfig{
			ServiceName:    "tokenberry",
			ServiceVersion: app.AppVersion,
			Exporter:       cfg.Tracing.Exporter,
			Endpoint:       cfg.Tracing.Endpoint,
			SampleRate:     cfg.Tracing.SampleRate,
		})
		if err != nil {
			n.closeStorage()
			return nil, fmt.Errorf("setting up tracing: %w", err)
		}
		tracer = t
		n.tracerShutdown = shutdown
	}

	n.executor = runtime.NewExecutor(application, n.bus, n.indexer, n.metrics, n.logger,
		runtime.WithTracer(tracer))

	return n, nil
}

func openStateStore(cfg config.StateStoreConfig) (statestore.StateStore, error) {
	if cfg.Path == "" {
		return statestore.NewMemoryIAVLStore(cfg.CacheSize)
	}
	return statestore.NewIAVLStore(cfg.Path, cfg.CacheSize)
}

// Start brings the node up: the event bus, then application state
// (genesis on a fresh store, reload otherwise), then the executor and
// the metrics endpoint. Idempotent.
func (n *Node) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.started {
		return nil
	}

	if err := n.bus.Start(); err != nil {
		return fmt.Errorf("starting event bus: %w", err)
	}

	if n.store.Version() == 0 {
		genesis, err := app.GenesisFromConfig(n.cfg)
		if err != nil {
			return fmt.Errorf("building genesis from config: %w", err)
		}
		appState, err := genesis.Encode()
		if err != nil {
			return fmt.Errorf("encoding genesis: %w", err)
		}
		err = n.app.InitChain(&abi.Genesis{
			ChainID:     n.cfg.Chain.ChainID,
			GenesisTime: time.Now().UTC(),
			AppState:    appState,
		})
		if err != nil {
			return fmt.Errorf("initializing chain: %w", err)
		}
		n.logger.Info("initialized fresh chain", "chain_id", n.cfg.Chain.ChainID)
	} else {
		if err := n.app.LoadState(); err != nil {
			return fmt.Errorf("loading state: %w", err)
		}
		n.logger.Info("resumed from existing state",
			"chain_id", n.cfg.Chain.ChainID,
			"state_version", n.store.Version())
	}

	if err := n.executor.Start(); err != nil {
		return fmt.Errorf("starting executor: %w", err)
	}

	if n.cfg.Metrics.Enabled {
		n.startMetricsServer()
	}

	n.started = true
	return nil
}

// Stop shuts the node down in reverse start order. Idempotent.
func (n *Node) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.started {
		return nil
	}

	var errs []error
	if err := n.executor.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stopping executor: %w", err))
	}
	if err := n.bus.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stopping event bus: %w", err))
	}
	if n.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := n.metricsSrv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stopping metrics server: %w", err))
		}
		cancel()
		n.metricsSrv = nil
	}
	if n.tracerShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := n.tracerShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stopping tracer: %w", err))
		}
		cancel()
		n.tracerShutdown = nil
	}
	n.closeStorage()

	n.started = false
	n.logger.Info("node stopped")
	return errors.Join(errs...)
}

// IsRunning reports whether the node has been started and not stopped.
func (n *Node) IsRunning() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.started
}

func (n *Node) closeStorage() {
	if n.indexer != nil {
		n.indexer.Close()
	}
	if n.store != nil {
		n.store.Close()
	}
}

func (n *Node) startMetricsServer() {
	handler, ok := n.metrics.Handler().(http.Handler)
	if !ok || handler == nil {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	n.metricsSrv = &http.Server{
		Addr:              n.cfg.Metrics.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	srv := n.metricsSrv
	go func() {
		n.logger.Info("metrics endpoint listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			n.logger.Error("metrics server failed", "error", err)
		}
	}()
}

// App returns the token application for direct queries.
func (n *Node) App() *app.App {
	return n.app
}

// Executor returns the transaction executor.
func (n *Node) Executor() *runtime.Executor {
	return n.executor
}

// EventBus returns the event bus for subscriptions.
func (n *Node) EventBus() *events.Bus {
	return n.bus
}

// NewLogger builds a logger from logging configuration.
func NewLogger(cfg config.LoggingConfig) *logging.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if cfg.Format == "json" {
		return logging.NewJSONLogger(os.Stdout, level)
	}
	return logging.NewTextLogger(os.Stderr, level)
}
