package abi

// Event represents a typed application event emitted during transaction
// execution. Events are the observable side effects of every mutation and
// feed the event bus and the transaction indexer.
type Event struct {
	// Type is the event type identifier (e.g., "Transfer").
	Type string

	// Attributes are the key-value pairs associated with this event.
	Attributes []Attribute
}

// NewEvent creates a new event with the given type.
func NewEvent(eventType string) Event {
	return Event{Type: eventType}
}

// AddAttribute adds an attribute to the event and returns the event for chaining.
func (e Event) AddAttribute(key string, value []byte) Event {
	e.Attributes = append(e.Attributes, Attribute{Key: key, Value: value})
	return e
}

// AddStringAttribute adds a string attribute to the event.
func (e Event) AddStringAttribute(key, value string) Event {
	return e.AddAttribute(key, []byte(value))
}

// AddIndexedAttribute adds an attribute marked for indexing.
func (e Event) AddIndexedAttribute(key string, value []byte) Event {
	e.Attributes = append(e.Attributes, Attribute{Key: key, Value: value, Index: true})
	return e
}

// GetAttribute returns the value of the named attribute, or nil if absent.
func (e Event) GetAttribute(key string) []byte {
	for _, attr := range e.Attributes {
		if attr.Key == key {
			return attr.Value
		}
	}
	return nil
}

// Attribute represents a key-value pair within an event.
type Attribute struct {
	// Key is the attribute name.
	Key string

	// Value is the attribute value.
	Value []byte

	// Index indicates whether this attribute should be indexed for queries.
	Index bool
}

// StringValue returns the attribute value as a string.
func (a Attribute) StringValue() string {
	return string(a.Value)
}

// Event types emitted by the token application.
const (
	// Ledger events
	EventTransfer  = "Transfer"
	EventApproval  = "Approval"
	EventMinted    = "Minted"
	EventBurned    = "Burned"
	EventRecovered = "Recovered"

	// Identity events
	EventIdentityRegistered = "IdentityRegistered"
	EventIdentityUpdated    = "IdentityUpdated"
	EventCountryUpdated     = "CountryUpdated"
	EventIdentityRemoved    = "IdentityRemoved"

	// Freeze and pause events
	EventAddressFrozen   = "AddressFrozen"
	EventAddressUnfrozen = "AddressUnfrozen"
	EventPaused          = "Paused"
	EventUnpaused        = "Unpaused"

	// Registry events
	EventClaimTopicAdded      = "ClaimTopicAdded"
	EventClaimTopicRemoved    = "ClaimTopicRemoved"
	EventTrustedIssuerAdded   = "TrustedIssuerAdded"
	EventTrustedIssuerRemoved = "TrustedIssuerRemoved"
	EventIssuerClaimsUpdated  = "IssuerClaimsUpdated"

	// Compliance events
	EventRuleAdded     = "RuleAdded"
	EventRuleRemoved   = "RuleRemoved"
	EventComplianceSet = "ComplianceSet"

	// Governance events
	EventAgentAdded           = "AgentAdded"
	EventAgentRemoved         = "AgentRemoved"
	EventOwnershipTransferred = "OwnershipTransferred"
	EventIdentityRegistrySet  = "IdentityRegistrySet"
)

// Common attribute keys used in events.
const (
	AttributeKeySender    = "sender"
	AttributeKeyRecipient = "recipient"
	AttributeKeySpender   = "spender"
	AttributeKeyAmount    = "amount"
	AttributeKeyAddress   = "address"
	AttributeKeyIdentity  = "identity"
	AttributeKeyCountry   = "country"
	AttributeKeyTopic     = "topic"
	AttributeKeyIssuer    = "issuer"
	AttributeKeyRule      = "rule"
	AttributeKeyAgent     = "agent"
	AttributeKeyOwner     = "owner"
	AttributeKeyCaller    = "caller"
)
