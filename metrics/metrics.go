// Package metrics defines the metrics collection interface for tokenberry.
package metrics

import "time"

// Metrics is the interface for collecting operational metrics.
// Use NewPrometheusMetrics for production and NewNopMetrics to disable
// collection.
type Metrics interface {
	// Transaction metrics

	// IncTxExecuted records an executed transaction by operation and result
	// code string.
	IncTxExecuted(op string, result string)

	// ObserveTxLatency records end-to-end execution latency for an operation.
	ObserveTxLatency(op string, latency time.Duration)

	// IncTxRejected records a rejected transaction by rejection reason.
	IncTxRejected(reason string)

	// Ledger metrics

	// SetTotalSupply records the current total supply.
	SetTotalSupply(supply uint64)

	// SetHolders records the number of addresses with a non-zero balance.
	SetHolders(count int)

	// Registry metrics

	// SetRegistrySize records the size of a counted-set registry
	// (claim_topics, trusted_issuers, compliance_rules, agents).
	SetRegistrySize(registry string, size int)

	// IncVerifications records an identity verification by outcome
	// ("verified", "unverified", "cached").
	IncVerifications(outcome string)

	// State store metrics

	// SetStateVersion records the last committed state version.
	SetStateVersion(version int64)

	// ObserveCommitLatency records state commit latency.
	ObserveCommitLatency(latency time.Duration)

	// Indexer metrics

	// IncEventsIndexed records indexed events.
	IncEventsIndexed(count int)

	// Handler returns an HTTP handler for serving metrics, or nil if the
	// implementation has nothing to serve.
	Handler() any
}
