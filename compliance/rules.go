package compliance

import (
	"fmt"
	"slices"

	"github.com/blockberries/tokenberry/types"
)

// BalanceSource reads holder balances for rules that depend on them.
type BalanceSource interface {
	BalanceOf(addr types.Address) uint64
}

// CountrySource resolves a holder's registered country for country-scoped
// rules. ok is false when the address has no identity.
type CountrySource interface {
	CountryOf(addr types.Address) (types.CountryCode, bool)
}

// TransferLimitRule rejects any single transfer above a fixed amount.
type TransferLimitRule struct {
	addr  types.Address
	limit uint64
}

// NewTransferLimitRule builds a per-transfer limit rule. The rule address
// is derived from its name and parameter so it is stable across restarts.
func NewTransferLimitRule(limit uint64) *TransferLimitRule {
	return &TransferLimitRule{
		addr:  types.DeriveAddress(fmt.Appendf(nil, "rule/transfer-limit/%d", limit)),
		limit: limit,
	}
}

func (r *TransferLimitRule) Address() types.Address { return r.addr }

func (r *TransferLimitRule) CheckTransfer(_, _ types.Address, amount uint64) bool {
	return amount <= r.limit
}

// MaxBalanceRule rejects transfers that would push the recipient's balance
// above a cap.
type MaxBalanceRule struct {
	addr     types.Address
	max      uint64
	balances BalanceSource
}

func NewMaxBalanceRule(max uint64, balances BalanceSource) *MaxBalanceRule {
	return &MaxBalanceRule{
		addr:     types.DeriveAddress(fmt.Appendf(nil, "rule/max-balance/%d", max)),
		max:      max,
		balances: balances,
	}
}

func (r *MaxBalanceRule) Address() types.Address { return r.addr }

func (r *MaxBalanceRule) CheckTransfer(_, to types.Address, amount uint64) bool {
	current := r.balances.BalanceOf(to)
	next, err := types.SafeAdd(current, amount)
	if err != nil {
		return false
	}
	return next <= r.max
}

// CountryRestrictionRule rejects transfers to holders registered in any of
// the listed countries. Recipients without a registered country are left
// to the identity check.
type CountryRestrictionRule struct {
	addr      types.Address
	blocked   map[types.CountryCode]struct{}
	countries CountrySource
}

func NewCountryRestrictionRule(blocked []types.CountryCode, countries CountrySource) *CountryRestrictionRule {
	set := make(map[types.CountryCode]struct{}, len(blocked))
	sorted := slices.Clone(blocked)
	slices.Sort(sorted)
	seed := []byte("rule/country-restriction")
	for _, c := range sorted {
		set[c] = struct{}{}
		seed = fmt.Appendf(seed, "/%d", c)
	}
	return &CountryRestrictionRule{
		addr:      types.DeriveAddress(seed),
		blocked:   set,
		countries: countries,
	}
}

func (r *CountryRestrictionRule) Address() types.Address { return r.addr }

func (r *CountryRestrictionRule) CheckTransfer(_, to types.Address, _ uint64) bool {
	country, ok := r.countries.CountryOf(to)
	if !ok {
		return true
	}
	_, restricted := r.blocked[country]
	return !restricted
}
