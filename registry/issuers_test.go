package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/tokenberry/types"
)

var (
	issuerA = types.DeriveAddress([]byte("issuer-a"))
	issuerB = types.DeriveAddress([]byte("issuer-b"))
	issuerC = types.DeriveAddress([]byte("issuer-c"))
)

func TestTrustedIssuersAddAndLookup(t *testing.T) {
	r := NewTrustedIssuers(nil)

	require.NoError(t, r.Add(issuerA, []types.ClaimTopic{1, 2}))

	assert.True(t, r.IsTrusted(issuerA))
	assert.False(t, r.IsTrusted(issuerB))
	assert.True(t, r.HasClaimTopic(issuerA, 1))
	assert.True(t, r.HasClaimTopic(issuerA, 2))
	assert.False(t, r.HasClaimTopic(issuerA, 3))
	assert.False(t, r.HasClaimTopic(issuerB, 1))
}

func TestTrustedIssuersRejectsNullAddress(t *testing.T) {
	r := NewTrustedIssuers(nil)
	err := r.Add(types.ZeroAddress, []types.ClaimTopic{1})
	require.Error(t, err)
	require.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestTrustedIssuersUpsert(t *testing.T) {
	r := NewTrustedIssuers(nil)

	require.NoError(t, r.Add(issuerA, []types.ClaimTopic{1}))
	require.NoError(t, r.Add(issuerA, []types.ClaimTopic{2, 3}))

	assert.Equal(t, 1, r.Len(), "re-adding replaces, not duplicates")
	assert.False(t, r.HasClaimTopic(issuerA, 1), "old topic set replaced")
	assert.True(t, r.HasClaimTopic(issuerA, 2))
	assert.True(t, r.HasClaimTopic(issuerA, 3))
}

func TestTrustedIssuersIdempotentRemove(t *testing.T) {
	r := NewTrustedIssuers(nil)
	require.NoError(t, r.Add(issuerA, []types.ClaimTopic{1}))
	before := r.Version()

	r.Remove(issuerB) // absent: success, no change

	assert.Equal(t, 1, r.Len())
	assert.Equal(t, before, r.Version())
	assert.True(t, r.IsTrusted(issuerA))
}

func TestTrustedIssuersRemove(t *testing.T) {
	r := NewTrustedIssuers(nil)
	require.NoError(t, r.Add(issuerA, []types.ClaimTopic{1}))
	require.NoError(t, r.Add(issuerB, []types.ClaimTopic{2}))
	require.NoError(t, r.Add(issuerC, []types.ClaimTopic{3}))

	r.Remove(issuerB)

	assert.ElementsMatch(t, []types.Address{issuerA, issuerC}, r.Issuers())
	assert.False(t, r.HasClaimTopic(issuerB, 2), "topic set removed with the issuer")

	// Remaining issuers stay addressable and removable.
	r.Remove(issuerA)
	r.Remove(issuerC)
	assert.Equal(t, 0, r.Len())
}

func TestTrustedIssuersUpdateTopics(t *testing.T) {
	r := NewTrustedIssuers(nil)

	err := r.UpdateTopics(issuerA, []types.ClaimTopic{1})
	require.Error(t, err)
	require.ErrorIs(t, err, types.ErrNotFound)

	require.NoError(t, r.Add(issuerA, []types.ClaimTopic{1}))
	require.NoError(t, r.UpdateTopics(issuerA, []types.ClaimTopic{5}))

	topics, ok := r.TopicsOf(issuerA)
	require.True(t, ok)
	assert.Equal(t, []types.ClaimTopic{5}, topics)
}

func TestTrustedIssuersTopicsOfAbsent(t *testing.T) {
	r := NewTrustedIssuers(nil)
	topics, ok := r.TopicsOf(issuerA)
	assert.False(t, ok)
	assert.Nil(t, topics)
}

func TestTrustedIssuersSnapshotRestore(t *testing.T) {
	r := NewTrustedIssuers(nil)
	require.NoError(t, r.Add(issuerA, []types.ClaimTopic{1, 2}))
	require.NoError(t, r.Add(issuerB, []types.ClaimTopic{3}))

	snap := r.Snapshot()

	restored := NewTrustedIssuers(nil)
	restored.Restore(snap)

	assert.ElementsMatch(t, []types.Address{issuerA, issuerB}, restored.Issuers())
	assert.True(t, restored.HasClaimTopic(issuerA, 2))
	assert.True(t, restored.HasClaimTopic(issuerB, 3))
	assert.Equal(t, r.Version(), restored.Version())

	// Deep copy: mutating the restored registry leaves the source intact.
	restored.Remove(issuerA)
	assert.True(t, r.IsTrusted(issuerA))
}
