package app

import (
	"fmt"
	"strconv"

	"github.com/blockberries/tokenberry/abi"
	"github.com/blockberries/tokenberry/compliance"
	"github.com/blockberries/tokenberry/types"
)

// Identity operations are agent-gated; registry and compliance
// configuration is owner-gated, matching the role split of the token
// operations.

func (a *App) execRegisterIdentity(env *Envelope, signer types.Address) error {
	if err := a.tok.Authority().RequireAgent(signer); err != nil {
		return err
	}
	p, err := decodePayload[RegisterIdentityPayload](env)
	if err != nil {
		return err
	}
	if err := a.identities.RegisterIdentity(p.Address, p.Identity, p.Country); err != nil {
		return err
	}
	a.collector.Emit(abi.NewEvent(abi.EventIdentityRegistered).
		AddIndexedAttribute(abi.AttributeKeyAddress, []byte(p.Address.String())).
		AddIndexedAttribute(abi.AttributeKeyIdentity, []byte(p.Identity.String())).
		AddStringAttribute(abi.AttributeKeyCountry, strconv.FormatUint(uint64(p.Country), 10)))
	return nil
}

func (a *App) execUpdateIdentity(env *Envelope, signer types.Address) error {
	if err := a.tok.Authority().RequireAgent(signer); err != nil {
		return err
	}
	p, err := decodePayload[UpdateIdentityPayload](env)
	if err != nil {
		return err
	}
	if err := a.identities.UpdateIdentity(p.Address, p.Identity); err != nil {
		return err
	}
	a.collector.Emit(abi.NewEvent(abi.EventIdentityUpdated).
		AddIndexedAttribute(abi.AttributeKeyAddress, []byte(p.Address.String())).
		AddIndexedAttribute(abi.AttributeKeyIdentity, []byte(p.Identity.String())))
	return nil
}

func (a *App) execUpdateCountry(env *Envelope, signer types.Address) error {
	if err := a.tok.Authority().RequireAgent(signer); err != nil {
		return err
	}
	p, err := decodePayload[UpdateCountryPayload](env)
	if err != nil {
		return err
	}
	if err := a.identities.UpdateCountry(p.Address, p.Country); err != nil {
		return err
	}
	a.collector.Emit(abi.NewEvent(abi.EventCountryUpdated).
		AddIndexedAttribute(abi.AttributeKeyAddress, []byte(p.Address.String())).
		AddStringAttribute(abi.AttributeKeyCountry, strconv.FormatUint(uint64(p.Country), 10)))
	return nil
}

func (a *App) execSetExpiry(env *Envelope, signer types.Address) error {
	if err := a.tok.Authority().RequireAgent(signer); err != nil {
		return err
	}
	p, err := decodePayload[SetExpiryPayload](env)
	if err != nil {
		return err
	}
	if err := a.identities.SetExpiry(p.Address, p.ExpiresAt); err != nil {
		return err
	}
	a.collector.Emit(abi.NewEvent(abi.EventIdentityUpdated).
		AddIndexedAttribute(abi.AttributeKeyAddress, []byte(p.Address.String())).
		AddStringAttribute("expires_at", strconv.FormatInt(p.ExpiresAt, 10)))
	return nil
}

func (a *App) execDeleteIdentity(env *Envelope, signer types.Address) error {
	if err := a.tok.Authority().RequireAgent(signer); err != nil {
		return err
	}
	p, err := decodePayload[AddressPayload](env)
	if err != nil {
		return err
	}
	if err := a.identities.DeleteIdentity(p.Address); err != nil {
		return err
	}
	a.collector.Emit(abi.NewEvent(abi.EventIdentityRemoved).
		AddIndexedAttribute(abi.AttributeKeyAddress, []byte(p.Address.String())))
	return nil
}

func (a *App) execAddClaimTopic(env *Envelope, signer types.Address) error {
	if err := a.tok.Authority().RequireOwner(signer); err != nil {
		return err
	}
	p, err := decodePayload[ClaimTopicPayload](env)
	if err != nil {
		return err
	}
	// Adding a present topic succeeds without growing the set.
	if a.topics.Add(p.Topic) {
		a.collector.Emit(abi.NewEvent(abi.EventClaimTopicAdded).
			AddIndexedAttribute(abi.AttributeKeyTopic, topicBytes(p.Topic)))
	}
	return nil
}

func (a *App) execRemoveClaimTopic(env *Envelope, signer types.Address) error {
	if err := a.tok.Authority().RequireOwner(signer); err != nil {
		return err
	}
	p, err := decodePayload[ClaimTopicPayload](env)
	if err != nil {
		return err
	}
	// Removing an absent topic is a no-op success.
	if a.topics.Remove(p.Topic) {
		a.collector.Emit(abi.NewEvent(abi.EventClaimTopicRemoved).
			AddIndexedAttribute(abi.AttributeKeyTopic, topicBytes(p.Topic)))
	}
	return nil
}

func (a *App) execAddTrustedIssuer(env *Envelope, signer types.Address) error {
	if err := a.tok.Authority().RequireOwner(signer); err != nil {
		return err
	}
	p, err := decodePayload[TrustedIssuerPayload](env)
	if err != nil {
		return err
	}
	// Upsert: re-adding replaces the issuer's topic set.
	if err := a.issuers.Add(p.Issuer, p.Topics); err != nil {
		return err
	}
	a.collector.Emit(abi.NewEvent(abi.EventTrustedIssuerAdded).
		AddIndexedAttribute(abi.AttributeKeyIssuer, []byte(p.Issuer.String())))
	return nil
}

func (a *App) execRemoveTrustedIssuer(env *Envelope, signer types.Address) error {
	if err := a.tok.Authority().RequireOwner(signer); err != nil {
		return err
	}
	p, err := decodePayload[AddressPayload](env)
	if err != nil {
		return err
	}
	present := a.issuers.IsTrusted(p.Address)
	a.issuers.Remove(p.Address)
	if present {
		a.collector.Emit(abi.NewEvent(abi.EventTrustedIssuerRemoved).
			AddIndexedAttribute(abi.AttributeKeyIssuer, []byte(p.Address.String())))
	}
	return nil
}

func (a *App) execUpdateIssuerClaims(env *Envelope, signer types.Address) error {
	if err := a.tok.Authority().RequireOwner(signer); err != nil {
		return err
	}
	p, err := decodePayload[TrustedIssuerPayload](env)
	if err != nil {
		return err
	}
	if err := a.issuers.UpdateTopics(p.Issuer, p.Topics); err != nil {
		return err
	}
	a.collector.Emit(abi.NewEvent(abi.EventIssuerClaimsUpdated).
		AddIndexedAttribute(abi.AttributeKeyIssuer, []byte(p.Issuer.String())))
	return nil
}

func (a *App) execAddRule(env *Envelope, signer types.Address) error {
	if err := a.tok.Authority().RequireOwner(signer); err != nil {
		return err
	}
	p, err := decodePayload[AddRulePayload](env)
	if err != nil {
		return err
	}
	rule, err := a.buildRule(*p)
	if err != nil {
		return err
	}
	if err := a.engine.AddRule(rule); err != nil {
		return err
	}
	a.ruleSpecs[rule.Address()] = *p
	a.collector.Emit(abi.NewEvent(abi.EventRuleAdded).
		AddIndexedAttribute(abi.AttributeKeyRule, []byte(rule.Address().String())).
		AddStringAttribute("kind", p.Kind))
	return nil
}

func (a *App) execRemoveRule(env *Envelope, signer types.Address) error {
	if err := a.tok.Authority().RequireOwner(signer); err != nil {
		return err
	}
	p, err := decodePayload[AddressPayload](env)
	if err != nil {
		return err
	}
	// Removing an absent rule is a no-op success.
	if a.engine.RemoveRule(p.Address) {
		delete(a.ruleSpecs, p.Address)
		a.collector.Emit(abi.NewEvent(abi.EventRuleRemoved).
			AddIndexedAttribute(abi.AttributeKeyRule, []byte(p.Address.String())))
	}
	return nil
}

func (a *App) execComplianceCheck(env *Envelope, signer types.Address, add bool) error {
	if err := a.tok.Authority().RequireOwner(signer); err != nil {
		return err
	}
	p, err := decodePayload[ClaimTopicPayload](env)
	if err != nil {
		return err
	}
	if add {
		a.engine.AddCheckTopic(p.Topic)
	} else {
		a.engine.RemoveCheckTopic(p.Topic)
	}
	return nil
}

// buildRule constructs a built-in rule evaluator from its persisted spec.
func (a *App) buildRule(spec AddRulePayload) (compliance.Rule, error) {
	switch spec.Kind {
	case RuleKindTransferLimit:
		if spec.Limit == 0 {
			return nil, fmt.Errorf("%w: transfer-limit rule needs a non-zero limit", types.ErrInvalidArgument)
		}
		return compliance.NewTransferLimitRule(spec.Limit), nil
	case RuleKindMaxBalance:
		if spec.Max == 0 {
			return nil, fmt.Errorf("%w: max-balance rule needs a non-zero max", types.ErrInvalidArgument)
		}
		return compliance.NewMaxBalanceRule(spec.Max, a), nil
	case RuleKindCountryRestriction:
		if len(spec.Countries) == 0 {
			return nil, fmt.Errorf("%w: country-restriction rule needs at least one country", types.ErrInvalidArgument)
		}
		return compliance.NewCountryRestrictionRule(spec.Countries, a), nil
	default:
		return nil, fmt.Errorf("%w: unknown rule kind %q", types.ErrInvalidArgument, spec.Kind)
	}
}

func topicBytes(t types.ClaimTopic) []byte {
	return []byte(strconv.FormatUint(uint64(t), 10))
}
