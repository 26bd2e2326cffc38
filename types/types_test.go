package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressRoundTrip(t *testing.T) {
	a := DeriveAddress([]byte("alice"))
	require.False(t, a.IsZero())

	parsed, err := AddressFromString(a.String())
	require.NoError(t, err)
	require.Equal(t, a, parsed)

	prefixed, err := AddressFromString("0x" + a.String())
	require.NoError(t, err)
	require.Equal(t, a, prefixed)
}

func TestAddressFromBytes(t *testing.T) {
	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := AddressFromBytes([]byte("short"))
		require.Error(t, err)
		require.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("accepts exact length", func(t *testing.T) {
		b := make([]byte, AddressSize)
		b[0] = 0x42
		a, err := AddressFromBytes(b)
		require.NoError(t, err)
		require.Equal(t, b, a.Bytes())
	})
}

func TestZeroAddress(t *testing.T) {
	require.True(t, ZeroAddress.IsZero())
	require.False(t, DeriveAddress([]byte("x")).IsZero())
}

func TestIdentityID(t *testing.T) {
	id := DeriveIdentityID([]byte("investor-1"))
	require.False(t, id.IsZero())
	require.True(t, ZeroIdentity.IsZero())

	parsed, err := IdentityIDFromBytes(id.Bytes())
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	_, err = IdentityIDFromBytes([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSafeAdd(t *testing.T) {
	sum, err := SafeAdd(2, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), sum)

	_, err = SafeAdd(^uint64(0), 1)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSafeSub(t *testing.T) {
	diff, err := SafeSub(5, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), diff)

	_, err = SafeSub(3, 5)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInsufficientBalance))
}

func TestShort(t *testing.T) {
	a := DeriveAddress([]byte("alice"))
	short := a.Short()
	assert.Len(t, short, 14)
	assert.Contains(t, a.String(), short[:6])
}
