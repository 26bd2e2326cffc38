package abi

import "context"

// EventBus provides pub/sub for application events.
// Subscribers receive events matching their query through a channel.
// Implementations must be safe for concurrent publishers and subscribers.
type EventBus interface {
	Component

	// Subscribe creates a subscription for events matching the query.
	// The subscriber string identifies this subscription for unsubscribe.
	// The channel is closed when the subscription is cancelled or the bus
	// stops.
	Subscribe(ctx context.Context, subscriber string, query Query) (<-chan Event, error)

	// Unsubscribe removes a specific subscription.
	Unsubscribe(ctx context.Context, subscriber string, query Query) error

	// Publish sends an event to all matching subscribers. Non-blocking; if
	// a subscriber's channel is full the event is dropped for that
	// subscriber.
	Publish(ctx context.Context, event Event) error

	// NumSubscribers returns the total number of active subscriptions.
	NumSubscribers() int
}

// Query filters events for subscription matching.
type Query interface {
	// Matches returns true if the event should be delivered.
	Matches(event Event) bool

	// String returns a representation of the query for debugging.
	String() string
}

// QueryAll matches all events.
type QueryAll struct{}

// Matches always returns true.
func (q QueryAll) Matches(event Event) bool {
	return true
}

// String returns the query representation.
func (q QueryAll) String() string {
	return "all"
}

// QueryEventType matches events by their type.
type QueryEventType struct {
	EventType string
}

// Matches returns true if the event type matches.
func (q QueryEventType) Matches(event Event) bool {
	return event.Type == q.EventType
}

// String returns the query representation.
func (q QueryEventType) String() string {
	return "type=" + q.EventType
}

// QueryEventTypes matches events by multiple types.
type QueryEventTypes struct {
	EventTypes []string
}

// Matches returns true if the event type is in the list.
func (q QueryEventTypes) Matches(event Event) bool {
	for _, t := range q.EventTypes {
		if event.Type == t {
			return true
		}
	}
	return false
}

// String returns the query representation.
func (q QueryEventTypes) String() string {
	result := "types=["
	for i, t := range q.EventTypes {
		if i > 0 {
			result += ","
		}
		result += t
	}
	return result + "]"
}

// QueryAttribute matches events carrying a specific attribute key-value pair.
type QueryAttribute struct {
	Key   string
	Value string
}

// Matches returns true if the event has the matching attribute.
func (q QueryAttribute) Matches(event Event) bool {
	for _, attr := range event.Attributes {
		if attr.Key == q.Key && attr.StringValue() == q.Value {
			return true
		}
	}
	return false
}

// String returns the query representation.
func (q QueryAttribute) String() string {
	return q.Key + "=" + q.Value
}

// QueryFunc allows using a function as a query.
type QueryFunc struct {
	Fn          func(Event) bool
	Description string
}

// Matches calls the function.
func (q QueryFunc) Matches(event Event) bool {
	if q.Fn == nil {
		return false
	}
	return q.Fn(event)
}

// String returns the description.
func (q QueryFunc) String() string {
	if q.Description == "" {
		return "func"
	}
	return q.Description
}
