package app

import (
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"

	"github.com/blockberries/tokenberry/types"
)

// Operation names carried in transaction envelopes.
const (
	// Identity operations (agent-gated)
	OpRegisterIdentity = "identity/register"
	OpUpdateIdentity   = "identity/update"
	OpUpdateCountry    = "identity/update_country"
	OpSetExpiry        = "identity/set_expiry"
	OpDeleteIdentity   = "identity/delete"

	// Claim topic operations (owner-gated)
	OpAddClaimTopic    = "topics/add"
	OpRemoveClaimTopic = "topics/remove"

	// Trusted issuer operations (owner-gated)
	OpAddTrustedIssuer    = "issuers/add"
	OpRemoveTrustedIssuer = "issuers/remove"
	OpUpdateIssuerClaims  = "issuers/update_claims"

	// Compliance operations (owner-gated)
	OpAddRule               = "compliance/add_rule"
	OpRemoveRule            = "compliance/remove_rule"
	OpAddComplianceCheck    = "compliance/add_check"
	OpRemoveComplianceCheck = "compliance/remove_check"

	// Ledger operations
	OpTransfer       = "token/transfer"
	OpTransferFrom   = "token/transfer_from"
	OpApprove        = "token/approve"
	OpMint           = "token/mint"
	OpBurn           = "token/burn"
	OpForcedTransfer = "token/forced_transfer"
	OpRecover        = "token/recover"

	// Freeze and pause operations
	OpSetAddressFrozen = "token/set_frozen"
	OpPause            = "token/pause"
	OpUnpause          = "token/unpause"

	// Governance operations (owner-gated)
	OpAddAgent          = "token/add_agent"
	OpRemoveAgent       = "token/remove_agent"
	OpTransferOwnership = "token/transfer_ownership"
)

// Envelope wraps every transaction payload with its operation name. The
// transaction signer is carried on the outer Transaction, not here.
type Envelope struct {
	Op      string
	Payload []byte
}

// EncodeTx builds the wire form of an operation with its payload.
func EncodeTx(op string, payload any) ([]byte, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = cramberry.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshaling %s payload: %w", op, err)
		}
	}
	data, err := cramberry.Marshal(Envelope{Op: op, Payload: body})
	if err != nil {
		return nil, fmt.Errorf("marshaling envelope: %w", err)
	}
	return data, nil
}

// DecodeEnvelope parses the outer envelope.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := cramberry.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshaling envelope: %w", err)
	}
	if env.Op == "" {
		return nil, fmt.Errorf("envelope has no operation")
	}
	return &env, nil
}

func decodePayload[T any](env *Envelope) (*T, error) {
	var payload T
	if err := cramberry.Unmarshal(env.Payload, &payload); err != nil {
		return nil, fmt.Errorf("unmarshaling %s payload: %w", env.Op, err)
	}
	return &payload, nil
}

// RegisterIdentityPayload registers an address under an identity.
type RegisterIdentityPayload struct {
	Address  types.Address
	Identity types.IdentityID
	Country  types.CountryCode
}

// UpdateIdentityPayload moves an address to a new identity.
type UpdateIdentityPayload struct {
	Address  types.Address
	Identity types.IdentityID
}

// UpdateCountryPayload changes a registered address's country.
type UpdateCountryPayload struct {
	Address types.Address
	Country types.CountryCode
}

// SetExpiryPayload sets or clears a registration expiry.
type SetExpiryPayload struct {
	Address   types.Address
	ExpiresAt int64
}

// AddressPayload carries a single address argument.
type AddressPayload struct {
	Address types.Address
}

// ClaimTopicPayload carries a single claim topic argument.
type ClaimTopicPayload struct {
	Topic types.ClaimTopic
}

// TrustedIssuerPayload adds or updates an issuer with its topic set.
type TrustedIssuerPayload struct {
	Issuer types.Address
	Topics []types.ClaimTopic
}

// Built-in rule kinds accepted by OpAddRule.
const (
	RuleKindTransferLimit      = "transfer-limit"
	RuleKindMaxBalance         = "max-balance"
	RuleKindCountryRestriction = "country-restriction"
)

// AddRulePayload registers a built-in compliance rule. Exactly the fields
// of the selected kind are read; the rest are ignored.
type AddRulePayload struct {
	Kind      string
	Limit     uint64
	Max       uint64
	Countries []types.CountryCode
}

// TransferPayload moves tokens from the signer.
type TransferPayload struct {
	To     types.Address
	Amount uint64
}

// TransferFromPayload moves tokens on the signer's allowance.
type TransferFromPayload struct {
	From   types.Address
	To     types.Address
	Amount uint64
}

// ApprovePayload sets a spender allowance over the signer's balance.
type ApprovePayload struct {
	Spender types.Address
	Amount  uint64
}

// MintPayload creates tokens for a recipient.
type MintPayload struct {
	To     types.Address
	Amount uint64
}

// BurnPayload destroys tokens from the signer's balance.
type BurnPayload struct {
	Amount uint64
}

// ForcedTransferPayload moves tokens between two holders without
// allowance.
type ForcedTransferPayload struct {
	From   types.Address
	To     types.Address
	Amount uint64
}

// RecoverPayload moves tokens out of a lost address.
type RecoverPayload struct {
	Lost   types.Address
	To     types.Address
	Amount uint64
}

// SetFrozenPayload sets the frozen flag on an address.
type SetFrozenPayload struct {
	Address types.Address
	Frozen  bool
}
