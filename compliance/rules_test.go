package compliance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockberries/tokenberry/types"
)

type stubBalances map[types.Address]uint64

func (s stubBalances) BalanceOf(a types.Address) uint64 { return s[a] }

type stubCountries map[types.Address]types.CountryCode

func (s stubCountries) CountryOf(a types.Address) (types.CountryCode, bool) {
	c, ok := s[a]
	return c, ok
}

func TestTransferLimitRule(t *testing.T) {
	r := NewTransferLimitRule(100)

	require.True(t, r.CheckTransfer(addr(1), addr(2), 100))
	require.False(t, r.CheckTransfer(addr(1), addr(2), 101))
	require.False(t, r.Address().IsZero())

	// Same parameters derive the same handle; different parameters don't.
	require.Equal(t, r.Address(), NewTransferLimitRule(100).Address())
	require.NotEqual(t, r.Address(), NewTransferLimitRule(200).Address())
}

func TestMaxBalanceRule(t *testing.T) {
	balances := stubBalances{addr(2): 90}
	r := NewMaxBalanceRule(100, balances)

	require.True(t, r.CheckTransfer(addr(1), addr(2), 10))
	require.False(t, r.CheckTransfer(addr(1), addr(2), 11))

	// Overflow on the projected balance rejects instead of wrapping.
	balances[addr(2)] = math.MaxUint64
	require.False(t, r.CheckTransfer(addr(1), addr(2), 1))
}

func TestCountryRestrictionRule(t *testing.T) {
	countries := stubCountries{addr(2): 408, addr(3): 840}
	r := NewCountryRestrictionRule([]types.CountryCode{408}, countries)

	require.False(t, r.CheckTransfer(addr(1), addr(2), 1))
	require.True(t, r.CheckTransfer(addr(1), addr(3), 1))

	// Unregistered recipients are the identity check's problem, not ours.
	require.True(t, r.CheckTransfer(addr(1), addr(9), 1))

	// Address derivation is order-insensitive over the blocked set.
	a := NewCountryRestrictionRule([]types.CountryCode{408, 840}, countries)
	b := NewCountryRestrictionRule([]types.CountryCode{840, 408}, countries)
	require.Equal(t, a.Address(), b.Address())
}
