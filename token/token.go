// Package token implements the permissioned token: the role table, the
// gated ledger, and the transfer pipeline that sequences pause, freeze,
// identity, and compliance checks before any mutation.
package token

import (
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/blockberries/tokenberry/abi"
	"github.com/blockberries/tokenberry/logging"
	"github.com/blockberries/tokenberry/types"
)

// IdentityChecker answers whether an address passes the trust chain.
type IdentityChecker interface {
	IsVerified(addr types.Address) bool
}

// ComplianceChecker answers whether a transfer passes the rule set.
type ComplianceChecker interface {
	CheckCompliance(from, to types.Address, amount uint64) bool
}

// EventSink receives the typed events emitted by every mutation.
type EventSink interface {
	Emit(event abi.Event)
}

// Token is the compliance-gated ledger. Every transfer-family operation
// runs the same pipeline: pause, frozen, identity, compliance, and only
// then the ledger mutation. A failed check aborts with no state change.
//
// Mutating entry points are protected by a reentrancy guard: a compliance
// rule or identity hook that calls back into a mutator fails with
// ErrReentrantCall instead of observing half-applied state. Reads stay
// open so rules may consult balances mid-check.
type Token struct {
	name     string
	symbol   string
	decimals uint8

	executing atomic.Bool

	stateMu     sync.RWMutex
	balances    map[types.Address]uint64
	allowances  map[types.Address]map[types.Address]uint64
	totalSupply uint64
	frozen      map[types.Address]bool
	paused      bool

	authority  *Authority
	verifier   IdentityChecker
	compliance ComplianceChecker
	events     EventSink
	logger     *logging.Logger
}

// NewToken wires the ledger to its collaborators. verifier and compliance
// are injected, never looked up; a nil events sink discards events.
func NewToken(name, symbol string, decimals uint8, authority *Authority, verifier IdentityChecker, compliance ComplianceChecker, events EventSink, logger *logging.Logger) (*Token, error) {
	if authority == nil {
		return nil, fmt.Errorf("%w: nil authority", types.ErrInvalidArgument)
	}
	if verifier == nil || compliance == nil {
		return nil, fmt.Errorf("%w: nil verifier or compliance", types.ErrInvalidArgument)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Token{
		name:       name,
		symbol:     symbol,
		decimals:   decimals,
		balances:   make(map[types.Address]uint64),
		allowances: make(map[types.Address]map[types.Address]uint64),
		frozen:     make(map[types.Address]bool),
		authority:  authority,
		verifier:   verifier,
		compliance: compliance,
		events:     events,
		logger:     logger.WithComponent("token"),
	}, nil
}

// Name returns the token name.
func (t *Token) Name() string { return t.name }

// Symbol returns the token symbol.
func (t *Token) Symbol() string { return t.symbol }

// Decimals returns the display precision.
func (t *Token) Decimals() uint8 { return t.decimals }

// Authority returns the role table.
func (t *Token) Authority() *Authority { return t.authority }

// BalanceOf returns the balance of an address.
func (t *Token) BalanceOf(addr types.Address) uint64 {
	t.stateMu.RLock()
	defer t.stateMu.RUnlock()
	return t.balances[addr]
}

// Allowance returns what spender may move out of owner's balance.
func (t *Token) Allowance(owner, spender types.Address) uint64 {
	t.stateMu.RLock()
	defer t.stateMu.RUnlock()
	return t.allowances[owner][spender]
}

// TotalSupply returns the current total supply.
func (t *Token) TotalSupply() uint64 {
	t.stateMu.RLock()
	defer t.stateMu.RUnlock()
	return t.totalSupply
}

// IsFrozen reports whether an address is frozen.
func (t *Token) IsFrozen(addr types.Address) bool {
	t.stateMu.RLock()
	defer t.stateMu.RUnlock()
	return t.frozen[addr]
}

// IsPaused reports whether all transfers are paused.
func (t *Token) IsPaused() bool {
	t.stateMu.RLock()
	defer t.stateMu.RUnlock()
	return t.paused
}

func (t *Token) enter() error {
	if !t.executing.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: mutator invoked from an in-flight operation", types.ErrReentrantCall)
	}
	return nil
}

func (t *Token) leave() {
	t.executing.Store(false)
}

func (t *Token) emit(event abi.Event) {
	if t.events != nil {
		t.events.Emit(event)
	}
}

// gateState is the local state a transfer needs, read and cached before
// any external verifier or rule call.
type gateState struct {
	paused     bool
	frozenFrom bool
	frozenTo   bool
	balance    uint64
}

func (t *Token) readGateState(from, to types.Address) gateState {
	t.stateMu.RLock()
	defer t.stateMu.RUnlock()
	return gateState{
		paused:     t.paused,
		frozenFrom: t.frozen[from],
		frozenTo:   t.frozen[to],
		balance:    t.balances[from],
	}
}

// checkGate runs the transfer pipeline up to the ledger mutation: pause,
// frozen on both parties, identity on both parties, compliance. verifyFrom
// is false for mint, where no sender exists.
func (t *Token) checkGate(gs gateState, from, to types.Address, amount uint64, verifyFrom bool) error {
	if gs.paused {
		return types.ErrPaused
	}
	if gs.frozenFrom {
		return fmt.Errorf("%w: sender %s", types.ErrAddressFrozen, from.Short())
	}
	if gs.frozenTo {
		return fmt.Errorf("%w: recipient %s", types.ErrAddressFrozen, to.Short())
	}
	if verifyFrom && !t.verifier.IsVerified(from) {
		return fmt.Errorf("%w: sender %s is not verified", types.ErrNotCompliant, from.Short())
	}
	if !t.verifier.IsVerified(to) {
		return fmt.Errorf("%w: recipient %s is not verified", types.ErrNotCompliant, to.Short())
	}
	if !t.compliance.CheckCompliance(from, to, amount) {
		return fmt.Errorf("%w: transfer rejected by compliance", types.ErrNotCompliant)
	}
	return nil
}

// Transfer moves amount from the caller to the recipient through the full
// pipeline.
func (t *Token) Transfer(from, to types.Address, amount uint64) error {
	if err := t.enter(); err != nil {
		return err
	}
	defer t.leave()

	if from.IsZero() || to.IsZero() {
		return fmt.Errorf("%w: null address party", types.ErrInvalidArgument)
	}

	gs := t.readGateState(from, to)
	if err := t.checkGate(gs, from, to, amount, true); err != nil {
		return err
	}
	if gs.balance < amount {
		return fmt.Errorf("%w: have %d, need %d", types.ErrInsufficientBalance, gs.balance, amount)
	}

	t.stateMu.Lock()
	t.balances[from] -= amount
	t.balances[to] += amount
	t.stateMu.Unlock()

	t.emitTransfer(from, to, amount)
	return nil
}

// TransferFrom moves amount from a holder to the recipient on behalf of a
// spender, consuming allowance. The pipeline is identical to Transfer.
func (t *Token) TransferFrom(spender, from, to types.Address, amount uint64) error {
	if err := t.enter(); err != nil {
		return err
	}
	defer t.leave()

	if spender.IsZero() || from.IsZero() || to.IsZero() {
		return fmt.Errorf("%w: null address party", types.ErrInvalidArgument)
	}

	t.stateMu.RLock()
	allowance := t.allowances[from][spender]
	t.stateMu.RUnlock()
	if allowance < amount {
		return fmt.Errorf("%w: allowed %d, need %d", types.ErrInsufficientAllowance, allowance, amount)
	}

	gs := t.readGateState(from, to)
	if err := t.checkGate(gs, from, to, amount, true); err != nil {
		return err
	}
	if gs.balance < amount {
		return fmt.Errorf("%w: have %d, need %d", types.ErrInsufficientBalance, gs.balance, amount)
	}

	t.stateMu.Lock()
	if t.allowances[from] == nil {
		t.allowances[from] = make(map[types.Address]uint64)
	}
	t.allowances[from][spender] = allowance - amount
	t.balances[from] -= amount
	t.balances[to] += amount
	t.stateMu.Unlock()

	t.emitTransfer(from, to, amount)
	return nil
}

// Approve sets spender's allowance over the caller's balance. Not routed
// through the gate; approval alone moves nothing.
func (t *Token) Approve(owner, spender types.Address, amount uint64) error {
	if err := t.enter(); err != nil {
		return err
	}
	defer t.leave()

	if owner.IsZero() || spender.IsZero() {
		return fmt.Errorf("%w: null address party", types.ErrInvalidArgument)
	}

	t.stateMu.Lock()
	if t.allowances[owner] == nil {
		t.allowances[owner] = make(map[types.Address]uint64)
	}
	t.allowances[owner][spender] = amount
	t.stateMu.Unlock()

	t.emit(abi.NewEvent(abi.EventApproval).
		AddIndexedAttribute(abi.AttributeKeySender, []byte(owner.String())).
		AddIndexedAttribute(abi.AttributeKeySpender, []byte(spender.String())).
		AddStringAttribute(abi.AttributeKeyAmount, strconv.FormatUint(amount, 10)))
	return nil
}

// Mint creates amount for the recipient. Agent-gated; the recipient must
// not be frozen and must be verified. There is no sender side to check.
func (t *Token) Mint(caller, to types.Address, amount uint64) error {
	if err := t.enter(); err != nil {
		return err
	}
	defer t.leave()

	if err := t.authority.RequireAgent(caller); err != nil {
		return err
	}
	if to.IsZero() {
		return fmt.Errorf("%w: mint to the null address", types.ErrInvalidArgument)
	}

	t.stateMu.RLock()
	paused := t.paused
	frozenTo := t.frozen[to]
	supply := t.totalSupply
	t.stateMu.RUnlock()

	if paused {
		return types.ErrPaused
	}
	if frozenTo {
		return fmt.Errorf("%w: recipient %s", types.ErrAddressFrozen, to.Short())
	}
	if !t.verifier.IsVerified(to) {
		return fmt.Errorf("%w: recipient %s is not verified", types.ErrNotCompliant, to.Short())
	}
	newSupply, err := types.SafeAdd(supply, amount)
	if err != nil {
		return err
	}

	t.stateMu.Lock()
	t.totalSupply = newSupply
	t.balances[to] += amount
	t.stateMu.Unlock()

	t.emit(abi.NewEvent(abi.EventMinted).
		AddIndexedAttribute(abi.AttributeKeyRecipient, []byte(to.String())).
		AddStringAttribute(abi.AttributeKeyAmount, strconv.FormatUint(amount, 10)))
	return nil
}

// Burn destroys amount from the caller's own balance. Self-service: any
// holder may burn, subject to pause and freeze. No identity re-check: the
// holder was verified to receive, and burning only shrinks exposure.
func (t *Token) Burn(caller types.Address, amount uint64) error {
	if err := t.enter(); err != nil {
		return err
	}
	defer t.leave()

	t.stateMu.RLock()
	paused := t.paused
	frozenCaller := t.frozen[caller]
	balance := t.balances[caller]
	t.stateMu.RUnlock()

	if paused {
		return types.ErrPaused
	}
	if frozenCaller {
		return fmt.Errorf("%w: holder %s", types.ErrAddressFrozen, caller.Short())
	}
	if balance < amount {
		return fmt.Errorf("%w: have %d, need %d", types.ErrInsufficientBalance, balance, amount)
	}

	t.stateMu.Lock()
	t.balances[caller] = balance - amount
	t.totalSupply -= amount
	t.stateMu.Unlock()

	t.emit(abi.NewEvent(abi.EventBurned).
		AddIndexedAttribute(abi.AttributeKeySender, []byte(caller.String())).
		AddStringAttribute(abi.AttributeKeyAmount, strconv.FormatUint(amount, 10)))
	return nil
}

// ForcedTransfer moves amount between two holders without allowance.
// Agent-gated; the rest of the pipeline still applies, pause included.
func (t *Token) ForcedTransfer(caller, from, to types.Address, amount uint64) error {
	if err := t.enter(); err != nil {
		return err
	}
	defer t.leave()

	if err := t.authority.RequireAgent(caller); err != nil {
		return err
	}
	if from.IsZero() || to.IsZero() {
		return fmt.Errorf("%w: null address party", types.ErrInvalidArgument)
	}

	gs := t.readGateState(from, to)
	if err := t.checkGate(gs, from, to, amount, true); err != nil {
		return err
	}
	if gs.balance < amount {
		return fmt.Errorf("%w: have %d, need %d", types.ErrInsufficientBalance, gs.balance, amount)
	}

	t.stateMu.Lock()
	t.balances[from] -= amount
	t.balances[to] += amount
	t.stateMu.Unlock()

	t.logger.Info("forced transfer",
		logging.Caller(caller), logging.Sender(from), logging.Recipient(to), logging.Amount(amount))
	t.emitTransfer(from, to, amount)
	return nil
}

// Recover moves amount out of a lost address to a replacement holder.
// Owner-gated; runs the full pipeline with the lost address as sender, so
// the replacement must be verified and unfrozen.
func (t *Token) Recover(caller, lost, to types.Address, amount uint64) error {
	if err := t.enter(); err != nil {
		return err
	}
	defer t.leave()

	if err := t.authority.RequireOwner(caller); err != nil {
		return err
	}
	if lost.IsZero() || to.IsZero() {
		return fmt.Errorf("%w: null address party", types.ErrInvalidArgument)
	}

	gs := t.readGateState(lost, to)
	if err := t.checkGate(gs, lost, to, amount, true); err != nil {
		return err
	}
	if gs.balance < amount {
		return fmt.Errorf("%w: have %d, need %d", types.ErrInsufficientBalance, gs.balance, amount)
	}

	t.stateMu.Lock()
	t.balances[lost] -= amount
	t.balances[to] += amount
	t.stateMu.Unlock()

	t.logger.Info("balance recovered",
		logging.Caller(caller), logging.Sender(lost), logging.Recipient(to), logging.Amount(amount))
	t.emit(abi.NewEvent(abi.EventRecovered).
		AddIndexedAttribute(abi.AttributeKeySender, []byte(lost.String())).
		AddIndexedAttribute(abi.AttributeKeyRecipient, []byte(to.String())).
		AddStringAttribute(abi.AttributeKeyAmount, strconv.FormatUint(amount, 10)))
	return nil
}

// SetAddressFrozen sets the frozen flag on an address. Agent-gated;
// setting the current value is a no-op that emits nothing.
func (t *Token) SetAddressFrozen(caller, addr types.Address, frozen bool) error {
	if err := t.enter(); err != nil {
		return err
	}
	defer t.leave()

	if err := t.authority.RequireAgent(caller); err != nil {
		return err
	}
	if addr.IsZero() {
		return fmt.Errorf("%w: null address", types.ErrInvalidArgument)
	}

	t.stateMu.Lock()
	changed := t.frozen[addr] != frozen
	if frozen {
		t.frozen[addr] = true
	} else {
		delete(t.frozen, addr)
	}
	t.stateMu.Unlock()

	if !changed {
		return nil
	}
	eventType := abi.EventAddressFrozen
	if !frozen {
		eventType = abi.EventAddressUnfrozen
	}
	t.emit(abi.NewEvent(eventType).
		AddIndexedAttribute(abi.AttributeKeyAddress, []byte(addr.String())).
		AddIndexedAttribute(abi.AttributeKeyCaller, []byte(caller.String())))
	return nil
}

// FreezeAddress freezes an address. Agent-gated.
func (t *Token) FreezeAddress(caller, addr types.Address) error {
	return t.SetAddressFrozen(caller, addr, true)
}

// UnfreezeAddress unfreezes an address. Agent-gated.
func (t *Token) UnfreezeAddress(caller, addr types.Address) error {
	return t.SetAddressFrozen(caller, addr, false)
}

// Pause blocks the whole transfer family. Owner-gated; pausing while
// paused fails with ErrPaused.
func (t *Token) Pause(caller types.Address) error {
	if err := t.enter(); err != nil {
		return err
	}
	defer t.leave()

	if err := t.authority.RequireOwner(caller); err != nil {
		return err
	}

	t.stateMu.Lock()
	if t.paused {
		t.stateMu.Unlock()
		return types.ErrPaused
	}
	t.paused = true
	t.stateMu.Unlock()

	t.logger.Info("transfers paused", logging.Caller(caller))
	t.emit(abi.NewEvent(abi.EventPaused).
		AddIndexedAttribute(abi.AttributeKeyCaller, []byte(caller.String())))
	return nil
}

// Unpause re-enables transfers. Owner-gated; unpausing while not paused
// fails with ErrInvalidArgument.
func (t *Token) Unpause(caller types.Address) error {
	if err := t.enter(); err != nil {
		return err
	}
	defer t.leave()

	if err := t.authority.RequireOwner(caller); err != nil {
		return err
	}

	t.stateMu.Lock()
	if !t.paused {
		t.stateMu.Unlock()
		return fmt.Errorf("%w: not paused", types.ErrInvalidArgument)
	}
	t.paused = false
	t.stateMu.Unlock()

	t.logger.Info("transfers unpaused", logging.Caller(caller))
	t.emit(abi.NewEvent(abi.EventUnpaused).
		AddIndexedAttribute(abi.AttributeKeyCaller, []byte(caller.String())))
	return nil
}

// AddAgent grants the agent role. Owner-gated.
func (t *Token) AddAgent(caller, agent types.Address) error {
	if err := t.enter(); err != nil {
		return err
	}
	defer t.leave()

	added, err := t.authority.AddAgent(caller, agent)
	if err != nil {
		return err
	}
	if added {
		t.emit(abi.NewEvent(abi.EventAgentAdded).
			AddIndexedAttribute(abi.AttributeKeyAgent, []byte(agent.String())))
	}
	return nil
}

// RemoveAgent revokes the agent role. Owner-gated.
func (t *Token) RemoveAgent(caller, agent types.Address) error {
	if err := t.enter(); err != nil {
		return err
	}
	defer t.leave()

	removed, err := t.authority.RemoveAgent(caller, agent)
	if err != nil {
		return err
	}
	if removed {
		t.emit(abi.NewEvent(abi.EventAgentRemoved).
			AddIndexedAttribute(abi.AttributeKeyAgent, []byte(agent.String())))
	}
	return nil
}

// TransferOwnership moves the owner role. Owner-gated.
func (t *Token) TransferOwnership(caller, newOwner types.Address) error {
	if err := t.enter(); err != nil {
		return err
	}
	defer t.leave()

	if err := t.authority.TransferOwnership(caller, newOwner); err != nil {
		return err
	}
	t.logger.Info("ownership transferred",
		logging.Caller(caller), logging.Addr("new_owner", newOwner))
	t.emit(abi.NewEvent(abi.EventOwnershipTransferred).
		AddIndexedAttribute(abi.AttributeKeyOwner, []byte(newOwner.String())).
		AddIndexedAttribute(abi.AttributeKeyCaller, []byte(caller.String())))
	return nil
}

// SetCompliance swaps the compliance engine. Owner-gated.
func (t *Token) SetCompliance(caller types.Address, compliance ComplianceChecker) error {
	if err := t.enter(); err != nil {
		return err
	}
	defer t.leave()

	if err := t.authority.RequireOwner(caller); err != nil {
		return err
	}
	if compliance == nil {
		return fmt.Errorf("%w: nil compliance", types.ErrInvalidArgument)
	}

	t.stateMu.Lock()
	t.compliance = compliance
	t.stateMu.Unlock()

	t.emit(abi.NewEvent(abi.EventComplianceSet).
		AddIndexedAttribute(abi.AttributeKeyCaller, []byte(caller.String())))
	return nil
}

// SetIdentityRegistry swaps the identity verifier. Owner-gated.
func (t *Token) SetIdentityRegistry(caller types.Address, verifier IdentityChecker) error {
	if err := t.enter(); err != nil {
		return err
	}
	defer t.leave()

	if err := t.authority.RequireOwner(caller); err != nil {
		return err
	}
	if verifier == nil {
		return fmt.Errorf("%w: nil verifier", types.ErrInvalidArgument)
	}

	t.stateMu.Lock()
	t.verifier = verifier
	t.stateMu.Unlock()

	t.emit(abi.NewEvent(abi.EventIdentityRegistrySet).
		AddIndexedAttribute(abi.AttributeKeyCaller, []byte(caller.String())))
	return nil
}

func (t *Token) emitTransfer(from, to types.Address, amount uint64) {
	t.emit(abi.NewEvent(abi.EventTransfer).
		AddIndexedAttribute(abi.AttributeKeySender, []byte(from.String())).
		AddIndexedAttribute(abi.AttributeKeyRecipient, []byte(to.String())).
		AddStringAttribute(abi.AttributeKeyAmount, strconv.FormatUint(amount, 10)))
}

// LedgerSnapshot is the persisted ledger state.
type LedgerSnapshot struct {
	Balances    map[types.Address]uint64
	Allowances  map[types.Address]map[types.Address]uint64
	TotalSupply uint64
	Frozen      []types.Address
	Paused      bool
}

// Snapshot captures the ledger for persistence. The role table snapshots
// separately via Authority.
func (t *Token) Snapshot() LedgerSnapshot {
	t.stateMu.RLock()
	defer t.stateMu.RUnlock()

	balances := make(map[types.Address]uint64, len(t.balances))
	for addr, bal := range t.balances {
		balances[addr] = bal
	}
	allowances := make(map[types.Address]map[types.Address]uint64, len(t.allowances))
	for owner, spenders := range t.allowances {
		inner := make(map[types.Address]uint64, len(spenders))
		for spender, amount := range spenders {
			inner[spender] = amount
		}
		allowances[owner] = inner
	}
	frozen := make([]types.Address, 0, len(t.frozen))
	for addr := range t.frozen {
		frozen = append(frozen, addr)
	}
	return LedgerSnapshot{
		Balances:    balances,
		Allowances:  allowances,
		TotalSupply: t.totalSupply,
		Frozen:      frozen,
		Paused:      t.paused,
	}
}

// Restore replaces the ledger state from a snapshot.
func (t *Token) Restore(snap LedgerSnapshot) {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()

	t.balances = make(map[types.Address]uint64, len(snap.Balances))
	for addr, bal := range snap.Balances {
		t.balances[addr] = bal
	}
	t.allowances = make(map[types.Address]map[types.Address]uint64, len(snap.Allowances))
	for owner, spenders := range snap.Allowances {
		inner := make(map[types.Address]uint64, len(spenders))
		for spender, amount := range spenders {
			inner[spender] = amount
		}
		t.allowances[owner] = inner
	}
	t.frozen = make(map[types.Address]bool, len(snap.Frozen))
	for _, addr := range snap.Frozen {
		t.frozen[addr] = true
	}
	t.totalSupply = snap.TotalSupply
	t.paused = snap.Paused
}
