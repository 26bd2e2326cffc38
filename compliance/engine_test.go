package compliance

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

// stubRule records calls so tests can assert short-circuit order.
type stubRule struct {
	addr    types.Address
	verdict bool
	calls   int
}

func (r *stubRule) Address() types.Address { return r.addr }

func (r *stubRule) CheckTransfer(_, _ types.Address, _ uint64) bool {
	r.calls++
	return r.verdict
}

func TestEngineEmptyRuleSetPasses(t *testing.T) {
	e := NewEngine(nil)
	require.True(t, e.CheckCompliance(addr(1), addr(2), 100))
}

func TestEngineAllRulesMustAccept(t *testing.T) {
	e := NewEngine(nil)
	r1 := &stubRule{addr: addr(10), verdict: true}
	r2 := &stubRule{addr: addr(11), verdict: true}
	require.NoError(t, e.AddRule(r1))
	require.NoError(t, e.AddRule(r2))

	require.True(t, e.CheckCompliance(addr(1), addr(2), 5))
	require.Equal(t, 1, r1.calls)
	require.Equal(t, 1, r2.calls)

	r2.verdict = false
	require.False(t, e.CheckCompliance(addr(1), addr(2), 5))
}

func TestEngineFirstRejectionShortCircuits(t *testing.T) {
	e := NewEngine(nil)
	r1 := &stubRule{addr: addr(10), verdict: false}
	r2 := &stubRule{addr: addr(11), verdict: true}
	require.NoError(t, e.AddRule(r1))
	require.NoError(t, e.AddRule(r2))

	require.False(t, e.CheckCompliance(addr(1), addr(2), 5))
	require.Equal(t, 1, r1.calls)
	require.Zero(t, r2.calls, "rules after the first rejection must not run")
}

func TestEngineAddRuleValidation(t *testing.T) {
	e := NewEngine(nil)
	require.ErrorIs(t, e.AddRule(nil), types.ErrInvalidArgument)
	require.ErrorIs(t, e.AddRule(&stubRule{}), types.ErrInvalidArgument)
}

func TestEngineReAddReplacesEvaluator(t *testing.T) {
	e := NewEngine(nil)
	require.NoError(t, e.AddRule(&stubRule{addr: addr(10), verdict: false}))
	require.False(t, e.CheckCompliance(addr(1), addr(2), 1))

	require.NoError(t, e.AddRule(&stubRule{addr: addr(10), verdict: true}))
	require.Equal(t, 1, e.Len())
	require.True(t, e.CheckCompliance(addr(1), addr(2), 1))
}

func TestEngineRemoveRule(t *testing.T) {
	e := NewEngine(nil)
	require.NoError(t, e.AddRule(&stubRule{addr: addr(10), verdict: false}))

	require.True(t, e.RemoveRule(addr(10)))
	require.False(t, e.RemoveRule(addr(10)), "removing an absent rule is a no-op")
	require.Zero(t, e.Len())
	require.True(t, e.CheckCompliance(addr(1), addr(2), 1))
}

func TestEngineCheckTopicsIndependentOfCompliance(t *testing.T) {
	e := NewEngine(nil)
	require.True(t, e.AddCheckTopic(7))
	require.False(t, e.AddCheckTopic(7))
	require.ElementsMatch(t, []types.ClaimTopic{7}, e.CheckTopics())

	// The topic set does not participate in transfer checks.
	require.True(t, e.CheckCompliance(addr(1), addr(2), 1))

	require.True(t, e.RemoveCheckTopic(7))
	require.False(t, e.RemoveCheckTopic(7))
	require.Empty(t, e.CheckTopics())
}

func TestEngineSnapshotRestoreAndBind(t *testing.T) {
	e := NewEngine(nil)
	r1 := &stubRule{addr: addr(10), verdict: true}
	require.NoError(t, e.AddRule(r1))
	e.AddCheckTopic(3)

	snap := e.Snapshot()

	restored := NewEngine(nil)
	restored.Restore(snap)
	require.Equal(t, e.Version(), restored.Version())
	require.ElementsMatch(t, []types.Address{addr(10)}, restored.Rules())
	require.ElementsMatch(t, []types.ClaimTopic{3}, restored.CheckTopics())

	// An unbound handle fails closed until its evaluator is re-attached.
	require.False(t, restored.CheckCompliance(addr(1), addr(2), 1))
	require.NoError(t, restored.Bind(&stubRule{addr: addr(10), verdict: true}))
	require.True(t, restored.CheckCompliance(addr(1), addr(2), 1))

	require.ErrorIs(t, restored.Bind(&stubRule{addr: addr(99), verdict: true}), types.ErrNotFound)
}
