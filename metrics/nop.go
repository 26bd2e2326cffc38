package metrics

import "time"

// NopMetrics is a no-op implementation of the Metrics interface.
// Use this when metrics collection is disabled.
type NopMetrics struct{}

// NewNopMetrics creates a new NopMetrics instance.
func NewNopMetrics() *NopMetrics {
	return &NopMetrics{}
}

// Transaction metrics (no-op)

func (m *NopMetrics) IncTxExecuted(op string, result string)               {}
func (m *NopMetrics) ObserveTxLatency(op string, latency time.Duration)   {}
func (m *NopMetrics) IncTxRejected(reason string)                         {}

// Ledger metrics (no-op)

func (m *NopMetrics) SetTotalSupply(supply uint64) {}
func (m *NopMetrics) SetHolders(count int)         {}

// Registry metrics (no-op)

func (m *NopMetrics) SetRegistrySize(registry string, size int) {}
func (m *NopMetrics) IncVerifications(outcome string)           {}

// State store metrics (no-op)

func (m *NopMetrics) SetStateVersion(version int64)                    {}
func (m *NopMetrics) ObserveCommitLatency(latency time.Duration)       {}

// Indexer metrics (no-op)

func (m *NopMetrics) IncEventsIndexed(count int) {}

// Handler returns nil since there's nothing to serve.
func (m *NopMetrics) Handler() any {
	return nil
}
