package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNopMetricsImplementsInterface(t *testing.T) {
	var m Metrics = NewNopMetrics()

	// None of these should panic.
	m.IncTxExecuted("transfer", "OK")
	m.ObserveTxLatency("transfer", time.Millisecond)
	m.IncTxRejected("Paused")
	m.SetTotalSupply(1000)
	m.SetHolders(3)
	m.SetRegistrySize("claim_topics", 2)
	m.IncVerifications("verified")
	m.SetStateVersion(7)
	m.ObserveCommitLatency(time.Millisecond)
	m.IncEventsIndexed(5)

	assert.Nil(t, m.Handler())
}

func TestPrometheusMetrics(t *testing.T) {
	var m Metrics = NewPrometheusMetrics("test")

	m.IncTxExecuted("transfer", "OK")
	m.IncTxExecuted("transfer", "Paused")
	m.ObserveTxLatency("transfer", 5*time.Millisecond)
	m.IncTxRejected("AddressFrozen")
	m.SetTotalSupply(123)
	m.SetHolders(2)
	m.SetRegistrySize("trusted_issuers", 4)
	m.IncVerifications("cached")
	m.SetStateVersion(9)
	m.ObserveCommitLatency(time.Millisecond)
	m.IncEventsIndexed(3)

	handler, ok := m.Handler().(http.Handler)
	require.True(t, ok)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "test_tx_executed_total")
	assert.Contains(t, body, "test_total_supply 123")
	assert.Contains(t, body, `test_registry_size{registry="trusted_issuers"} 4`)
	assert.Contains(t, body, "test_state_version 9")
	assert.Contains(t, body, "test_events_indexed_total 3")
}
