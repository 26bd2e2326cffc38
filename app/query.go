package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"

	"github.com/blockberries/tokenberry/abi"
	"github.com/blockberries/tokenberry/types"
)

// Query paths.
const (
	QueryBalance      = "token/balance"        // AddressPayload -> uint64
	QueryAllowance    = "token/allowance"      // AllowanceQuery -> uint64
	QueryTotalSupply  = "token/supply"         // -> uint64
	QueryPaused       = "token/paused"         // -> bool
	QueryFrozen       = "token/frozen"         // AddressPayload -> bool
	QueryOwner        = "token/owner"          // -> types.Address
	QueryAgents       = "token/agents"         // -> []types.Address
	QueryIdentity     = "identity/record"      // AddressPayload -> identity.AddressRecord
	QueryVerified     = "identity/verified"    // AddressPayload -> bool
	QueryIdVerified   = "identity/id_verified" // IdentityQuery -> bool
	QueryIdExists     = "identity/exists"      // IdentityQuery -> bool
	QueryAddresses    = "identity/addresses"   // IdentityQuery -> []types.Address
	QueryClaimTopics  = "topics/list"          // -> []types.ClaimTopic
	QueryIssuers      = "issuers/list"         // -> []types.Address
	QueryIssuerTopics = "issuers/topics"       // AddressPayload -> []types.ClaimTopic
	QueryRules        = "compliance/rules"     // -> []types.Address

	QueryComplianceChecks = "compliance/checks" // -> []types.ClaimTopic
)

// AllowanceQuery asks what a spender may move out of an owner's balance.
type AllowanceQuery struct {
	Owner   types.Address
	Spender types.Address
}

// IdentityQuery carries an identity handle argument.
type IdentityQuery struct {
	Identity types.IdentityID
}

// Query reads application state. Read-only; never touches the working
// tree.
func (a *App) Query(ctx context.Context, req *abi.QueryRequest) *abi.QueryResponse {
	if a.tok == nil {
		return queryError(abi.CodeUnknownError, errors.New("application not initialized"))
	}

	switch req.Path {
	case QueryBalance:
		p, err := queryArg[AddressPayload](req)
		if err != nil {
			return queryError(abi.CodeInvalidTx, err)
		}
		return queryValue(a.tok.BalanceOf(p.Address))
	case QueryAllowance:
		p, err := queryArg[AllowanceQuery](req)
		if err != nil {
			return queryError(abi.CodeInvalidTx, err)
		}
		return queryValue(a.tok.Allowance(p.Owner, p.Spender))
	case QueryTotalSupply:
		return queryValue(a.tok.TotalSupply())
	case QueryPaused:
		return queryValue(a.tok.IsPaused())
	case QueryFrozen:
		p, err := queryArg[AddressPayload](req)
		if err != nil {
			return queryError(abi.CodeInvalidTx, err)
		}
		return queryValue(a.tok.IsFrozen(p.Address))
	case QueryOwner:
		return queryValue(a.tok.Authority().Owner())
	case QueryAgents:
		return queryValue(a.tok.Authority().Agents())

	case QueryIdentity:
		p, err := queryArg[AddressPayload](req)
		if err != nil {
			return queryError(abi.CodeInvalidTx, err)
		}
		rec, ok := a.identities.Store().Get(p.Address)
		if !ok {
			return queryError(abi.CodeNotFound, fmt.Errorf("address %s has no identity", p.Address.Short()))
		}
		return queryValue(rec)
	case QueryVerified:
		p, err := queryArg[AddressPayload](req)
		if err != nil {
			return queryError(abi.CodeInvalidTx, err)
		}
		return queryValue(a.verifier.IsVerified(p.Address))
	case QueryIdVerified:
		p, err := queryArg[IdentityQuery](req)
		if err != nil {
			return queryError(abi.CodeInvalidTx, err)
		}
		return queryValue(a.verifier.IsIdentityVerified(p.Identity))
	case QueryIdExists:
		p, err := queryArg[IdentityQuery](req)
		if err != nil {
			return queryError(abi.CodeInvalidTx, err)
		}
		return queryValue(a.identities.Store().IdentityExists(p.Identity))
	case QueryAddresses:
		p, err := queryArg[IdentityQuery](req)
		if err != nil {
			return queryError(abi.CodeInvalidTx, err)
		}
		return queryValue(a.identities.Store().AddressesOf(p.Identity))

	case QueryClaimTopics:
		return queryValue(a.topics.Topics())
	case QueryIssuers:
		return queryValue(a.issuers.Issuers())
	case QueryIssuerTopics:
		p, err := queryArg[AddressPayload](req)
		if err != nil {
			return queryError(abi.CodeInvalidTx, err)
		}
		topics, ok := a.issuers.TopicsOf(p.Address)
		if !ok {
			return queryError(abi.CodeNotFound, fmt.Errorf("issuer %s is not trusted", p.Address.Short()))
		}
		return queryValue(topics)
	case QueryRules:
		return queryValue(a.engine.Rules())
	case QueryComplianceChecks:
		return queryValue(a.engine.CheckTopics())
	}

	return queryError(abi.CodeInvalidTx, fmt.Errorf("unknown query path %q", req.Path))
}

func queryArg[T any](req *abi.QueryRequest) (*T, error) {
	var arg T
	if err := cramberry.Unmarshal(req.Data, &arg); err != nil {
		return nil, fmt.Errorf("unmarshaling %s argument: %w", req.Path, err)
	}
	return &arg, nil
}

func queryValue(v any) *abi.QueryResponse {
	data, err := cramberry.Marshal(v)
	if err != nil {
		return queryError(abi.CodeUnknownError, fmt.Errorf("marshaling query result: %w", err))
	}
	return &abi.QueryResponse{Code: abi.CodeOK, Value: data}
}

func queryError(code abi.ResultCode, err error) *abi.QueryResponse {
	return &abi.QueryResponse{Code: code, Error: err}
}
