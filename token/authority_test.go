package token

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockberries/tokenberry/types"
)

func addr(b byte) types.Address {
	var a types.Address
	a[0] = b
	return a
}

func TestAuthorityRejectsNullOwner(t *testing.T) {
	_, err := NewAuthority(types.Address{})
	require.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestAuthorityOwnerIsImplicitAgent(t *testing.T) {
	a, err := NewAuthority(addr(1))
	require.NoError(t, err)

	require.True(t, a.IsOwner(addr(1)))
	require.True(t, a.IsAgent(addr(1)))
	require.False(t, a.IsAgent(addr(2)))
	require.Empty(t, a.Agents())
}

func TestAuthorityAgentLifecycle(t *testing.T) {
	a, err := NewAuthority(addr(1))
	require.NoError(t, err)

	added, err := a.AddAgent(addr(1), addr(2))
	require.NoError(t, err)
	require.True(t, added)
	require.True(t, a.IsAgent(addr(2)))

	// Re-granting reports no change.
	added, err = a.AddAgent(addr(1), addr(2))
	require.NoError(t, err)
	require.False(t, added)

	removed, err := a.RemoveAgent(addr(1), addr(2))
	require.NoError(t, err)
	require.True(t, removed)
	require.False(t, a.IsAgent(addr(2)))

	removed, err = a.RemoveAgent(addr(1), addr(2))
	require.NoError(t, err)
	require.False(t, removed)
}

func TestAuthorityGating(t *testing.T) {
	a, err := NewAuthority(addr(1))
	require.NoError(t, err)

	_, err = a.AddAgent(addr(2), addr(3))
	require.ErrorIs(t, err, types.ErrUnauthorized)

	_, err = a.RemoveAgent(addr(2), addr(3))
	require.ErrorIs(t, err, types.ErrUnauthorized)

	require.ErrorIs(t, a.TransferOwnership(addr(2), addr(3)), types.ErrUnauthorized)

	_, err = a.AddAgent(addr(1), types.Address{})
	require.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestAuthorityTransferOwnership(t *testing.T) {
	a, err := NewAuthority(addr(1))
	require.NoError(t, err)

	require.ErrorIs(t, a.TransferOwnership(addr(1), types.Address{}), types.ErrInvalidArgument)

	require.NoError(t, a.TransferOwnership(addr(1), addr(2)))
	require.Equal(t, addr(2), a.Owner())
	require.True(t, a.IsAgent(addr(2)))

	// The previous owner keeps nothing.
	require.False(t, a.IsOwner(addr(1)))
	require.False(t, a.IsAgent(addr(1)))
	require.ErrorIs(t, a.TransferOwnership(addr(1), addr(3)), types.ErrUnauthorized)
}

func TestAuthoritySnapshotRestore(t *testing.T) {
	a, err := NewAuthority(addr(1))
	require.NoError(t, err)
	_, err = a.AddAgent(addr(1), addr(2))
	require.NoError(t, err)
	_, err = a.AddAgent(addr(1), addr(3))
	require.NoError(t, err)

	snap := a.Snapshot()

	restored, err := NewAuthority(addr(9))
	require.NoError(t, err)
	restored.Restore(snap)

	require.Equal(t, addr(1), restored.Owner())
	require.ElementsMatch(t, []types.Address{addr(2), addr(3)}, restored.Agents())
}
