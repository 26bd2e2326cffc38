package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blockberries/cramberry/pkg/cramberry"

	"github.com/blockberries/tokenberry/abi"
	"github.com/blockberries/tokenberry/config"
	"github.com/blockberries/tokenberry/statestore"
	"github.com/blockberries/tokenberry/types"
)

func addr(b byte) types.Address {
	var a types.Address
	a[0] = b
	return a
}

func ident(b byte) types.IdentityID {
	var id types.IdentityID
	id[0] = b
	return id
}

type appFixture struct {
	app   *App
	store *statestore.IAVLStore
	cfg   *config.Config
	owner types.Address
	agent types.Address
}

func newAppFixture(t *testing.T) *appFixture {
	t.Helper()
	store, err := statestore.NewMemoryIAVLStore(100)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := config.DefaultConfig()
	a, err := NewApp(cfg, store, nil, nil)
	require.NoError(t, err)

	owner, agent := addr(1), addr(2)
	genesis := &GenesisState{Owner: owner, Agents: []types.Address{agent}}
	appState, err := genesis.Encode()
	require.NoError(t, err)
	require.NoError(t, a.InitChain(&abi.Genesis{
		ChainID:     cfg.Chain.ChainID,
		GenesisTime: time.Now(),
		AppState:    appState,
	}))

	return &appFixture{app: a, store: store, cfg: cfg, owner: owner, agent: agent}
}

func (f *appFixture) exec(t *testing.T, signer types.Address, op string, payload any) *abi.TxExecResult {
	t.Helper()
	data, err := EncodeTx(op, payload)
	require.NoError(t, err)
	tx := &abi.Transaction{Data: data, Signer: signer}
	tx.ComputeHash()
	return f.app.ExecuteTx(context.Background(), tx)
}

func (f *appFixture) mustExec(t *testing.T, signer types.Address, op string, payload any) *abi.TxExecResult {
	t.Helper()
	result := f.exec(t, signer, op, payload)
	require.True(t, result.IsOK(), "op %s failed: %v", op, result.Error)
	return result
}

func (f *appFixture) query(t *testing.T, path string, arg, out any) *abi.QueryResponse {
	t.Helper()
	req := &abi.QueryRequest{Path: path}
	if arg != nil {
		data, err := cramberry.Marshal(arg)
		require.NoError(t, err)
		req.Data = data
	}
	resp := f.app.Query(context.Background(), req)
	if resp.IsOK() && out != nil {
		require.NoError(t, cramberry.Unmarshal(resp.Value, out))
	}
	return resp
}

func (f *appFixture) balance(t *testing.T, a types.Address) uint64 {
	t.Helper()
	var out uint64
	resp := f.query(t, QueryBalance, AddressPayload{Address: a}, &out)
	require.True(t, resp.IsOK())
	return out
}

// onboard registers an identity, a claim topic, and a covering issuer so
// the address passes verification.
func (f *appFixture) onboard(t *testing.T, a types.Address, id types.IdentityID) {
	t.Helper()
	f.mustExec(t, f.agent, OpRegisterIdentity, RegisterIdentityPayload{Address: a, Identity: id, Country: 840})
	f.mustExec(t, f.owner, OpAddClaimTopic, ClaimTopicPayload{Topic: 1})
	f.mustExec(t, f.owner, OpAddTrustedIssuer, TrustedIssuerPayload{Issuer: addr(7), Topics: []types.ClaimTopic{1}})
}

func TestInitChain(t *testing.T) {
	f := newAppFixture(t)

	info := f.app.Info()
	require.Equal(t, f.cfg.Token.Name, info.Name)
	require.EqualValues(t, 1, info.StateVersion, "genesis commits version 1")

	var owner types.Address
	require.True(t, f.query(t, QueryOwner, nil, &owner).IsOK())
	require.Equal(t, f.owner, owner)

	var agents []types.Address
	require.True(t, f.query(t, QueryAgents, nil, &agents).IsOK())
	require.Equal(t, []types.Address{f.agent}, agents)

	// Double init is rejected.
	require.Error(t, f.app.InitChain(&abi.Genesis{}))
}

func TestCheckTx(t *testing.T) {
	f := newAppFixture(t)

	data, err := EncodeTx(OpTransfer, TransferPayload{To: addr(10), Amount: 5})
	require.NoError(t, err)

	res := f.app.CheckTx(context.Background(), &abi.Transaction{Data: data, Signer: addr(9)})
	require.True(t, res.IsOK())

	res = f.app.CheckTx(context.Background(), &abi.Transaction{Data: data})
	require.Equal(t, abi.CodeInvalidTx, res.Code, "missing signer")

	bad, err := EncodeTx("token/selfdestruct", nil)
	require.NoError(t, err)
	res = f.app.CheckTx(context.Background(), &abi.Transaction{Data: bad, Signer: addr(9)})
	require.Equal(t, abi.CodeInvalidTx, res.Code)

	res = f.app.CheckTx(context.Background(), &abi.Transaction{Data: []byte("garbage"), Signer: addr(9)})
	require.Equal(t, abi.CodeInvalidTx, res.Code)
}

func TestIdentityOpsGating(t *testing.T) {
	f := newAppFixture(t)

	result := f.exec(t, addr(9), OpRegisterIdentity, RegisterIdentityPayload{Address: addr(10), Identity: ident(1)})
	require.Equal(t, abi.CodeUnauthorized, result.Code)

	result = f.exec(t, f.agent, OpAddClaimTopic, ClaimTopicPayload{Topic: 1})
	require.Equal(t, abi.CodeUnauthorized, result.Code, "topics are owner-gated, agent is not enough")
}

func TestEndToEndTransferScenario(t *testing.T) {
	f := newAppFixture(t)
	a, b := addr(10), addr(11)

	f.onboard(t, a, ident(1))
	f.mustExec(t, f.agent, OpRegisterIdentity, RegisterIdentityPayload{Address: b, Identity: ident(2), Country: 840})

	var verified bool
	require.True(t, f.query(t, QueryVerified, AddressPayload{Address: a}, &verified).IsOK())
	require.True(t, verified)

	result := f.mustExec(t, f.agent, OpMint, MintPayload{To: a, Amount: 100})
	require.Len(t, result.Events, 1)
	require.Equal(t, abi.EventMinted, result.Events[0].Type)

	f.mustExec(t, f.agent, OpSetAddressFrozen, SetFrozenPayload{Address: a, Frozen: true})
	result = f.exec(t, a, OpTransfer, TransferPayload{To: b, Amount: 10})
	require.Equal(t, abi.CodeAddressFrozen, result.Code)
	require.Empty(t, result.Events, "rejected transactions emit nothing")

	f.mustExec(t, f.agent, OpSetAddressFrozen, SetFrozenPayload{Address: a, Frozen: false})
	result = f.mustExec(t, a, OpTransfer, TransferPayload{To: b, Amount: 10})
	require.Len(t, result.Events, 1)
	require.Equal(t, abi.EventTransfer, result.Events[0].Type)

	require.EqualValues(t, 90, f.balance(t, a))
	require.EqualValues(t, 10, f.balance(t, b))
}

func TestFailedExecutionLeavesStateUntouched(t *testing.T) {
	f := newAppFixture(t)
	a, b := addr(10), addr(11)
	f.onboard(t, a, ident(1))
	f.mustExec(t, f.agent, OpMint, MintPayload{To: a, Amount: 50})

	// b has no identity; the transfer is rejected after the sender
	// checks already passed.
	result := f.exec(t, a, OpTransfer, TransferPayload{To: b, Amount: 10})
	require.Equal(t, abi.CodeNotCompliant, result.Code)

	require.EqualValues(t, 50, f.balance(t, a))
	require.Zero(t, f.balance(t, b))
	var supply uint64
	require.True(t, f.query(t, QueryTotalSupply, nil, &supply).IsOK())
	require.EqualValues(t, 50, supply)
}

func TestComplianceRuleViaTx(t *testing.T) {
	f := newAppFixture(t)
	a, b := addr(10), addr(11)
	f.onboard(t, a, ident(1))
	f.mustExec(t, f.agent, OpRegisterIdentity, RegisterIdentityPayload{Address: b, Identity: ident(2), Country: 840})
	f.mustExec(t, f.agent, OpMint, MintPayload{To: a, Amount: 1000})

	f.mustExec(t, f.owner, OpAddRule, AddRulePayload{Kind: RuleKindTransferLimit, Limit: 100})

	var rules []types.Address
	require.True(t, f.query(t, QueryRules, nil, &rules).IsOK())
	require.Len(t, rules, 1)

	result := f.exec(t, a, OpTransfer, TransferPayload{To: b, Amount: 101})
	require.Equal(t, abi.CodeNotCompliant, result.Code)
	f.mustExec(t, a, OpTransfer, TransferPayload{To: b, Amount: 100})

	// Removing the rule lifts the limit.
	f.mustExec(t, f.owner, OpRemoveRule, AddressPayload{Address: rules[0]})
	f.mustExec(t, a, OpTransfer, TransferPayload{To: b, Amount: 101})

	result = f.exec(t, f.owner, OpAddRule, AddRulePayload{Kind: "no-such-kind"})
	require.Equal(t, abi.CodeInvalidArgument, result.Code)
}

func TestCommitAndReload(t *testing.T) {
	store, err := statestore.NewMemoryIAVLStore(100)
	require.NoError(t, err)
	defer store.Close()

	cfg := config.DefaultConfig()
	a1, err := NewApp(cfg, store, nil, nil)
	require.NoError(t, err)

	owner, agent := addr(1), addr(2)
	genesis := &GenesisState{Owner: owner, Agents: []types.Address{agent}}
	appState, err := genesis.Encode()
	require.NoError(t, err)
	require.NoError(t, a1.InitChain(&abi.Genesis{ChainID: "test", AppState: appState}))

	f := &appFixture{app: a1, store: store, cfg: cfg, owner: owner, agent: agent}
	holder := addr(10)
	f.onboard(t, holder, ident(1))
	f.mustExec(t, agent, OpMint, MintPayload{To: holder, Amount: 500})
	f.mustExec(t, owner, OpAddRule, AddRulePayload{Kind: RuleKindTransferLimit, Limit: 100})

	commit, err := a1.Commit(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, commit.AppHash)

	// A fresh application over the same store resumes where a1 left off.
	a2, err := NewApp(cfg, store, nil, nil)
	require.NoError(t, err)
	require.Error(t, a2.InitChain(&abi.Genesis{ChainID: "test", AppState: appState}),
		"populated store must not re-initialize")
	require.NoError(t, a2.LoadState())

	g := &appFixture{app: a2, store: store, cfg: cfg, owner: owner, agent: agent}
	require.EqualValues(t, 500, g.balance(t, holder))

	var verified bool
	require.True(t, g.query(t, QueryVerified, AddressPayload{Address: holder}, &verified).IsOK())
	require.True(t, verified)

	// The rebound rule still rejects over-limit transfers.
	other := addr(11)
	g.mustExec(t, agent, OpRegisterIdentity, RegisterIdentityPayload{Address: other, Identity: ident(2), Country: 840})
	result := g.exec(t, holder, OpTransfer, TransferPayload{To: other, Amount: 101})
	require.Equal(t, abi.CodeNotCompliant, result.Code)
	g.mustExec(t, holder, OpTransfer, TransferPayload{To: other, Amount: 100})
}

func TestIdempotentRegistryOps(t *testing.T) {
	f := newAppFixture(t)

	r1 := f.mustExec(t, f.owner, OpAddClaimTopic, ClaimTopicPayload{Topic: 5})
	require.Len(t, r1.Events, 1)
	r2 := f.mustExec(t, f.owner, OpAddClaimTopic, ClaimTopicPayload{Topic: 5})
	require.Empty(t, r2.Events, "duplicate add changes nothing")

	var topics []types.ClaimTopic
	require.True(t, f.query(t, QueryClaimTopics, nil, &topics).IsOK())
	require.Equal(t, []types.ClaimTopic{5}, topics)

	// Removing an absent issuer succeeds silently.
	r3 := f.mustExec(t, f.owner, OpRemoveTrustedIssuer, AddressPayload{Address: addr(99)})
	require.Empty(t, r3.Events)
}

func TestComplianceCheckTopics(t *testing.T) {
	f := newAppFixture(t)

	f.mustExec(t, f.owner, OpAddComplianceCheck, ClaimTopicPayload{Topic: 9})
	var checks []types.ClaimTopic
	require.True(t, f.query(t, QueryComplianceChecks, nil, &checks).IsOK())
	require.Equal(t, []types.ClaimTopic{9}, checks)

	f.mustExec(t, f.owner, OpRemoveComplianceCheck, ClaimTopicPayload{Topic: 9})
	checks = nil
	require.True(t, f.query(t, QueryComplianceChecks, nil, &checks).IsOK())
	require.Empty(t, checks)
}

func TestQueryErrors(t *testing.T) {
	f := newAppFixture(t)

	resp := f.app.Query(context.Background(), &abi.QueryRequest{Path: "token/everything"})
	require.Equal(t, abi.CodeInvalidTx, resp.Code)

	resp = f.query(t, QueryIdentity, AddressPayload{Address: addr(42)}, nil)
	require.Equal(t, abi.CodeNotFound, resp.Code)

	resp = f.query(t, QueryIssuerTopics, AddressPayload{Address: addr(42)}, nil)
	require.Equal(t, abi.CodeNotFound, resp.Code)
}

func TestIdentityExistsQuery(t *testing.T) {
	f := newAppFixture(t)

	var exists bool
	require.True(t, f.query(t, QueryIdExists, IdentityQuery{Identity: ident(1)}, &exists).IsOK())
	require.False(t, exists)

	f.mustExec(t, f.agent, OpRegisterIdentity, RegisterIdentityPayload{Address: addr(10), Identity: ident(1), Country: 840})
	require.True(t, f.query(t, QueryIdExists, IdentityQuery{Identity: ident(1)}, &exists).IsOK())
	require.True(t, exists)

	f.mustExec(t, f.agent, OpDeleteIdentity, AddressPayload{Address: addr(10)})
	require.True(t, f.query(t, QueryIdExists, IdentityQuery{Identity: ident(1)}, &exists).IsOK())
	require.False(t, exists)
}

func TestGenesisFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Genesis.Owner = "0100000000000000000000000000000000000000000000000000000000000000"
	cfg.Genesis.Agents = []string{"0200000000000000000000000000000000000000000000000000000000000000"}

	g, err := GenesisFromConfig(cfg)
	require.NoError(t, err)
	require.Equal(t, addr(1), g.Owner)
	require.Equal(t, []types.Address{addr(2)}, g.Agents)

	cfg.Genesis.Owner = "zz"
	_, err = GenesisFromConfig(cfg)
	require.ErrorIs(t, err, types.ErrInvalidArgument)
}
