// Package app wires the identity, registry, compliance, and token
// components into the application the transaction executor drives. It
// decodes operation envelopes, enforces role gating for registry
// operations, and persists component snapshots into the versioned state
// store on every commit.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blockberries/cramberry/pkg/cramberry"

	"github.com/blockberries/tokenberry/abi"
	"github.com/blockberries/tokenberry/compliance"
	"github.com/blockberries/tokenberry/config"
	"github.com/blockberries/tokenberry/identity"
	"github.com/blockberries/tokenberry/logging"
	"github.com/blockberries/tokenberry/metrics"
	"github.com/blockberries/tokenberry/registry"
	"github.com/blockberries/tokenberry/statestore"
	"github.com/blockberries/tokenberry/token"
	"github.com/blockberries/tokenberry/types"
)

// AppVersion is the application version reported in Info.
const AppVersion = "0.1.0"

// State store keys. Each component snapshot lives under its own key in
// the merkle tree.
var (
	keyIdentity   = []byte("app/identity")
	keyTopics     = []byte("app/topics")
	keyIssuers    = []byte("app/issuers")
	keyCompliance = []byte("app/compliance")
	keyAuthority  = []byte("app/authority")
	keyLedger     = []byte("app/ledger")
	keyRuleSpecs  = []byte("app/rulespecs")
)

// App implements abi.Application over the token engine.
type App struct {
	chainID  string
	tokenCfg config.TokenConfig

	// mu serializes ExecuteTx and Commit. The executor already does this,
	// but the application does not rely on it.
	mu sync.Mutex

	store      statestore.StateStore
	identities *identity.Registry
	verifier   *identity.Verifier
	topics     *registry.ClaimTopics
	issuers    *registry.TrustedIssuers
	engine     *compliance.Engine
	tok        *token.Token
	collector  *token.Collector

	// ruleSpecs remembers how each built-in rule was constructed so the
	// evaluators can be rebuilt and rebound after a restart.
	ruleSpecs map[types.Address]AddRulePayload

	metrics    metrics.Metrics
	logger     *logging.Logger
	lastCommit time.Time
}

var _ abi.Application = (*App)(nil)

// NewApp builds the application shell. The token itself is created by
// InitChain at genesis or by LoadState on restart.
func NewApp(cfg *config.Config, store statestore.StateStore, m metrics.Metrics, logger *logging.Logger) (*App, error) {
	if store == nil {
		return nil, errors.New("nil state store")
	}
	if m == nil {
		m = metrics.NewNopMetrics()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	identities := identity.NewRegistry(logger)
	topics := registry.NewClaimTopics(logger)
	issuers := registry.NewTrustedIssuers(logger)
	verifier := identity.NewVerifier(identities.Store(), topics, issuers, 0, logger)

	return &App{
		chainID:    cfg.Chain.ChainID,
		tokenCfg:   cfg.Token,
		store:      store,
		identities: identities,
		verifier:   verifier,
		topics:     topics,
		issuers:    issuers,
		engine:     compliance.NewEngine(logger),
		collector:  token.NewCollector(),
		ruleSpecs:  make(map[types.Address]AddRulePayload),
		metrics:    m,
		logger:     logger.WithComponent("app"),
	}, nil
}

// Token exposes the ledger for queries and tests.
func (a *App) Token() *token.Token { return a.tok }

// BalanceOf implements compliance.BalanceSource for built-in rules.
func (a *App) BalanceOf(addr types.Address) uint64 {
	if a.tok == nil {
		return 0
	}
	return a.tok.BalanceOf(addr)
}

// CountryOf implements compliance.CountrySource for built-in rules.
func (a *App) CountryOf(addr types.Address) (types.CountryCode, bool) {
	rec, ok := a.identities.Store().Get(addr)
	if !ok {
		return 0, false
	}
	return rec.Country, true
}

// Info returns application metadata.
func (a *App) Info() abi.ApplicationInfo {
	return abi.ApplicationInfo{
		Name:           a.tokenCfg.Name,
		Version:        AppVersion,
		AppHash:        a.store.RootHash(),
		StateVersion:   a.store.Version(),
		LastCommitTime: a.lastCommit,
	}
}

// InitChain initializes state from genesis. It must only run on a fresh
// store; a populated store is resumed with LoadState instead.
func (a *App) InitChain(genesis *abi.Genesis) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.tok != nil {
		return errors.New("application already initialized")
	}
	if a.store.Version() > 0 {
		return fmt.Errorf("state store has %d committed versions; load state instead", a.store.Version())
	}

	state, err := DecodeGenesisState(genesis.AppState)
	if err != nil {
		return err
	}
	if err := state.Validate(); err != nil {
		return err
	}

	authority, err := token.NewAuthority(state.Owner)
	if err != nil {
		return err
	}
	for _, agent := range state.Agents {
		if _, err := authority.AddAgent(state.Owner, agent); err != nil {
			return err
		}
	}

	tok, err := token.NewToken(a.tokenCfg.Name, a.tokenCfg.Symbol, a.tokenCfg.Decimals,
		authority, a.verifier, a.engine, a.collector, a.logger)
	if err != nil {
		return err
	}
	a.tok = tok

	if err := a.persistState(); err != nil {
		return err
	}
	if _, _, err := a.store.Commit(); err != nil {
		return fmt.Errorf("committing genesis state: %w", err)
	}

	a.lastCommit = time.Now()
	a.logger.Info("chain initialized",
		logging.Addr("owner", state.Owner),
		"agents", len(state.Agents),
		"chain_id", genesis.ChainID)
	return nil
}

// LoadState restores all components from the last committed version.
func (a *App) LoadState() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.tok != nil {
		return errors.New("application already initialized")
	}
	if a.store.Version() == 0 {
		return errors.New("state store is empty; init chain instead")
	}

	var identitySnap identity.StoreSnapshot
	if err := a.loadKey(keyIdentity, &identitySnap); err != nil {
		return err
	}
	var topicsSnap registry.ClaimTopicsSnapshot
	if err := a.loadKey(keyTopics, &topicsSnap); err != nil {
		return err
	}
	var issuersSnap registry.TrustedIssuersSnapshot
	if err := a.loadKey(keyIssuers, &issuersSnap); err != nil {
		return err
	}
	var complianceSnap compliance.Snapshot
	if err := a.loadKey(keyCompliance, &complianceSnap); err != nil {
		return err
	}
	var authoritySnap token.AuthoritySnapshot
	if err := a.loadKey(keyAuthority, &authoritySnap); err != nil {
		return err
	}
	var ledgerSnap token.LedgerSnapshot
	if err := a.loadKey(keyLedger, &ledgerSnap); err != nil {
		return err
	}
	var ruleSpecs []AddRulePayload
	if err := a.loadKey(keyRuleSpecs, &ruleSpecs); err != nil {
		return err
	}

	a.identities.Store().Restore(identitySnap)
	a.topics.Restore(topicsSnap)
	a.issuers.Restore(issuersSnap)
	a.engine.Restore(complianceSnap)

	authority, err := token.NewAuthority(authoritySnap.Owner)
	if err != nil {
		return err
	}
	authority.Restore(authoritySnap)

	tok, err := token.NewToken(a.tokenCfg.Name, a.tokenCfg.Symbol, a.tokenCfg.Decimals,
		authority, a.verifier, a.engine, a.collector, a.logger)
	if err != nil {
		return err
	}
	tok.Restore(ledgerSnap)
	a.tok = tok

	// Rebind rule evaluators. Until a handle is bound, compliance fails
	// closed, so every persisted spec must rebuild cleanly.
	a.ruleSpecs = make(map[types.Address]AddRulePayload, len(ruleSpecs))
	for _, spec := range ruleSpecs {
		rule, err := a.buildRule(spec)
		if err != nil {
			return fmt.Errorf("rebuilding rule %q: %w", spec.Kind, err)
		}
		if err := a.engine.Bind(rule); err != nil {
			return fmt.Errorf("rebinding rule %q: %w", spec.Kind, err)
		}
		a.ruleSpecs[rule.Address()] = spec
	}

	a.logger.Info("state loaded",
		logging.Version(a.store.Version()),
		"rules", len(a.ruleSpecs))
	return nil
}

func (a *App) loadKey(key []byte, out any) error {
	data, err := a.store.Get(key)
	if err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	if data == nil {
		return fmt.Errorf("state key %s missing", key)
	}
	if err := cramberry.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshaling %s: %w", key, err)
	}
	return nil
}

func (a *App) persistState() error {
	specs := make([]AddRulePayload, 0, len(a.ruleSpecs))
	for _, handle := range a.engine.Rules() {
		if spec, ok := a.ruleSpecs[handle]; ok {
			specs = append(specs, spec)
		}
	}

	entries := []struct {
		key   []byte
		value any
	}{
		{keyIdentity, a.identities.Store().Snapshot()},
		{keyTopics, a.topics.Snapshot()},
		{keyIssuers, a.issuers.Snapshot()},
		{keyCompliance, a.engine.Snapshot()},
		{keyAuthority, a.tok.Authority().Snapshot()},
		{keyLedger, a.tok.Snapshot()},
		{keyRuleSpecs, specs},
	}
	for _, entry := range entries {
		data, err := cramberry.Marshal(entry.value)
		if err != nil {
			return fmt.Errorf("marshaling %s: %w", entry.key, err)
		}
		if err := a.store.Set(entry.key, data); err != nil {
			return fmt.Errorf("writing %s: %w", entry.key, err)
		}
	}
	return nil
}

// CheckTx validates structure and decodability without touching state.
func (a *App) CheckTx(ctx context.Context, tx *abi.Transaction) *abi.TxCheckResult {
	if err := tx.ValidateBasic(); err != nil {
		return &abi.TxCheckResult{Code: abi.CodeInvalidTx, Error: err}
	}
	env, err := DecodeEnvelope(tx.Data)
	if err != nil {
		return &abi.TxCheckResult{Code: abi.CodeInvalidTx, Error: err}
	}
	if !knownOp(env.Op) {
		return &abi.TxCheckResult{Code: abi.CodeInvalidTx, Error: fmt.Errorf("unknown operation %q", env.Op)}
	}
	return &abi.TxCheckResult{Code: abi.CodeOK}
}

// ExecuteTx decodes and executes a transaction. Every handler validates
// before its first write, so a non-OK result means state is untouched.
func (a *App) ExecuteTx(ctx context.Context, tx *abi.Transaction) *abi.TxExecResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()

	if a.tok == nil {
		return &abi.TxExecResult{Code: abi.CodeUnknownError, Error: errors.New("application not initialized")}
	}
	if err := tx.ValidateBasic(); err != nil {
		return &abi.TxExecResult{Code: abi.CodeInvalidTx, Error: err}
	}
	env, err := DecodeEnvelope(tx.Data)
	if err != nil {
		return &abi.TxExecResult{Code: abi.CodeInvalidTx, Error: err}
	}

	execErr := a.execute(env, tx.Signer)
	events := a.collector.Drain()

	code := abi.CodeOK
	if execErr != nil {
		code = errToCode(execErr)
		events = nil
		a.metrics.IncTxRejected(code.String())
		a.logger.Debug("transaction rejected",
			logging.Operation(env.Op),
			logging.Caller(tx.Signer), logging.Err(execErr))
	}
	a.metrics.IncTxExecuted(env.Op, code.String())
	a.metrics.ObserveTxLatency(env.Op, time.Since(start))

	return &abi.TxExecResult{Code: code, Error: execErr, Events: events}
}

func (a *App) execute(env *Envelope, signer types.Address) error {
	switch env.Op {
	case OpRegisterIdentity:
		return a.execRegisterIdentity(env, signer)
	case OpUpdateIdentity:
		return a.execUpdateIdentity(env, signer)
	case OpUpdateCountry:
		return a.execUpdateCountry(env, signer)
	case OpSetExpiry:
		return a.execSetExpiry(env, signer)
	case OpDeleteIdentity:
		return a.execDeleteIdentity(env, signer)

	case OpAddClaimTopic:
		return a.execAddClaimTopic(env, signer)
	case OpRemoveClaimTopic:
		return a.execRemoveClaimTopic(env, signer)

	case OpAddTrustedIssuer:
		return a.execAddTrustedIssuer(env, signer)
	case OpRemoveTrustedIssuer:
		return a.execRemoveTrustedIssuer(env, signer)
	case OpUpdateIssuerClaims:
		return a.execUpdateIssuerClaims(env, signer)

	case OpAddRule:
		return a.execAddRule(env, signer)
	case OpRemoveRule:
		return a.execRemoveRule(env, signer)
	case OpAddComplianceCheck:
		return a.execComplianceCheck(env, signer, true)
	case OpRemoveComplianceCheck:
		return a.execComplianceCheck(env, signer, false)

	case OpTransfer:
		p, err := decodePayload[TransferPayload](env)
		if err != nil {
			return err
		}
		return a.tok.Transfer(signer, p.To, p.Amount)
	case OpTransferFrom:
		p, err := decodePayload[TransferFromPayload](env)
		if err != nil {
			return err
		}
		return a.tok.TransferFrom(signer, p.From, p.To, p.Amount)
	case OpApprove:
		p, err := decodePayload[ApprovePayload](env)
		if err != nil {
			return err
		}
		return a.tok.Approve(signer, p.Spender, p.Amount)
	case OpMint:
		p, err := decodePayload[MintPayload](env)
		if err != nil {
			return err
		}
		return a.tok.Mint(signer, p.To, p.Amount)
	case OpBurn:
		p, err := decodePayload[BurnPayload](env)
		if err != nil {
			return err
		}
		return a.tok.Burn(signer, p.Amount)
	case OpForcedTransfer:
		p, err := decodePayload[ForcedTransferPayload](env)
		if err != nil {
			return err
		}
		return a.tok.ForcedTransfer(signer, p.From, p.To, p.Amount)
	case OpRecover:
		p, err := decodePayload[RecoverPayload](env)
		if err != nil {
			return err
		}
		return a.tok.Recover(signer, p.Lost, p.To, p.Amount)

	case OpSetAddressFrozen:
		p, err := decodePayload[SetFrozenPayload](env)
		if err != nil {
			return err
		}
		return a.tok.SetAddressFrozen(signer, p.Address, p.Frozen)
	case OpPause:
		return a.tok.Pause(signer)
	case OpUnpause:
		return a.tok.Unpause(signer)

	case OpAddAgent:
		p, err := decodePayload[AddressPayload](env)
		if err != nil {
			return err
		}
		return a.tok.AddAgent(signer, p.Address)
	case OpRemoveAgent:
		p, err := decodePayload[AddressPayload](env)
		if err != nil {
			return err
		}
		return a.tok.RemoveAgent(signer, p.Address)
	case OpTransferOwnership:
		p, err := decodePayload[AddressPayload](env)
		if err != nil {
			return err
		}
		return a.tok.TransferOwnership(signer, p.Address)
	}
	return fmt.Errorf("unknown operation %q", env.Op)
}

// Commit persists every component snapshot as a new state version.
func (a *App) Commit(ctx context.Context) (*abi.CommitResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.tok == nil {
		return nil, errors.New("application not initialized")
	}

	start := time.Now()
	if err := a.persistState(); err != nil {
		return nil, err
	}
	hash, version, err := a.store.Commit()
	if err != nil {
		return nil, fmt.Errorf("committing state: %w", err)
	}
	a.lastCommit = time.Now()

	a.metrics.ObserveCommitLatency(time.Since(start))
	a.metrics.SetStateVersion(version)
	a.metrics.SetTotalSupply(a.tok.TotalSupply())
	ledger := a.tok.Snapshot()
	holders := 0
	for _, bal := range ledger.Balances {
		if bal > 0 {
			holders++
		}
	}
	a.metrics.SetHolders(holders)
	a.metrics.SetRegistrySize("claim_topics", a.topics.Len())
	a.metrics.SetRegistrySize("trusted_issuers", a.issuers.Len())
	a.metrics.SetRegistrySize("compliance_rules", a.engine.Len())
	a.metrics.SetRegistrySize("agents", len(a.tok.Authority().Agents()))

	return &abi.CommitResult{AppHash: hash, Version: version}, nil
}

func errToCode(err error) abi.ResultCode {
	switch {
	case errors.Is(err, types.ErrUnauthorized):
		return abi.CodeUnauthorized
	case errors.Is(err, types.ErrNotFound):
		return abi.CodeNotFound
	case errors.Is(err, types.ErrAlreadyExists):
		return abi.CodeAlreadyExists
	case errors.Is(err, types.ErrAddressFrozen):
		return abi.CodeAddressFrozen
	case errors.Is(err, types.ErrPaused):
		return abi.CodePaused
	case errors.Is(err, types.ErrNotCompliant):
		return abi.CodeNotCompliant
	case errors.Is(err, types.ErrInsufficientBalance):
		return abi.CodeInsufficientBalance
	case errors.Is(err, types.ErrInsufficientAllowance):
		return abi.CodeInsufficientAllowance
	case errors.Is(err, types.ErrInvalidArgument):
		return abi.CodeInvalidArgument
	default:
		return abi.CodeUnknownError
	}
}

func knownOp(op string) bool {
	switch op {
	case OpRegisterIdentity, OpUpdateIdentity, OpUpdateCountry, OpSetExpiry, OpDeleteIdentity,
		OpAddClaimTopic, OpRemoveClaimTopic,
		OpAddTrustedIssuer, OpRemoveTrustedIssuer, OpUpdateIssuerClaims,
		OpAddRule, OpRemoveRule, OpAddComplianceCheck, OpRemoveComplianceCheck,
		OpTransfer, OpTransferFrom, OpApprove, OpMint, OpBurn, OpForcedTransfer, OpRecover,
		OpSetAddressFrozen, OpPause, OpUnpause,
		OpAddAgent, OpRemoveAgent, OpTransferOwnership:
		return true
	}
	return false
}
