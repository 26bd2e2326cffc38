// Package events provides the in-memory event bus that fans out the typed
// events emitted by committed transactions.
package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/blockberries/tokenberry/abi"
)

// Errors returned by the Bus.
var (
	ErrBusNotRunning      = errors.New("event bus is not running")
	ErrSubscriberExists   = errors.New("subscriber already exists for this query")
	ErrSubscriberNotFound = errors.New("subscriber not found")
	ErrTooManySubscribers = errors.New("maximum number of subscribers reached")
)

// DefaultBufferSize is the per-subscription channel capacity.
const DefaultBufferSize = 128

// BusConfig tunes the in-memory bus.
type BusConfig struct {
	// BufferSize is the per-subscription channel capacity.
	BufferSize int

	// MaxSubscribers caps total subscriptions; zero means unlimited.
	MaxSubscribers int
}

// Bus is the in-memory abi.EventBus. Publishing never blocks: a
// subscriber that falls behind loses events rather than stalling the
// commit path.
type Bus struct {
	config BusConfig

	mu            sync.RWMutex
	subscriptions map[string]*subscription

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

type subscription struct {
	subscriber string
	query      abi.Query
	ch         chan abi.Event
	cancelled  atomic.Bool
}

var _ abi.EventBus = (*Bus)(nil)

// NewBus creates a bus with default configuration.
func NewBus() *Bus {
	return NewBusWithConfig(BusConfig{})
}

// NewBusWithConfig creates a bus with explicit limits.
func NewBusWithConfig(config BusConfig) *Bus {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultBufferSize
	}
	return &Bus{
		config:        config,
		subscriptions: make(map[string]*subscription),
		stopCh:        make(chan struct{}),
	}
}

func subscriptionKey(subscriber string, query abi.Query) string {
	return subscriber + ":" + query.String()
}

// Start starts the bus. Idempotent.
func (b *Bus) Start() error {
	if b.running.Swap(true) {
		return nil
	}
	b.stopCh = make(chan struct{})
	return nil
}

// Stop stops the bus and closes every subscription channel. Idempotent.
func (b *Bus) Stop() error {
	if !b.running.Swap(false) {
		return nil
	}
	close(b.stopCh)

	b.mu.Lock()
	for _, sub := range b.subscriptions {
		sub.cancelled.Store(true)
		close(sub.ch)
	}
	b.subscriptions = make(map[string]*subscription)
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}

// IsRunning reports whether the bus accepts publishes.
func (b *Bus) IsRunning() bool {
	return b.running.Load()
}

// Subscribe creates a subscription for events matching the query. The
// channel closes on unsubscribe, context cancellation, or bus stop.
func (b *Bus) Subscribe(ctx context.Context, subscriber string, query abi.Query) (<-chan abi.Event, error) {
	if !b.running.Load() {
		return nil, ErrBusNotRunning
	}

	key := subscriptionKey(subscriber, query)

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscriptions[key]; exists {
		return nil, ErrSubscriberExists
	}
	if b.config.MaxSubscribers > 0 && len(b.subscriptions) >= b.config.MaxSubscribers {
		return nil, ErrTooManySubscribers
	}

	sub := &subscription{
		subscriber: subscriber,
		query:      query,
		ch:         make(chan abi.Event, b.config.BufferSize),
	}
	b.subscriptions[key] = sub

	if ctx != nil && ctx.Done() != nil {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			select {
			case <-ctx.Done():
				_ = b.Unsubscribe(context.Background(), subscriber, query)
			case <-b.stopCh:
			}
		}()
	}

	return sub.ch, nil
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Bus) Unsubscribe(ctx context.Context, subscriber string, query abi.Query) error {
	key := subscriptionKey(subscriber, query)

	b.mu.Lock()
	defer b.mu.Unlock()

	sub, exists := b.subscriptions[key]
	if !exists {
		return ErrSubscriberNotFound
	}
	if !sub.cancelled.Swap(true) {
		close(sub.ch)
	}
	delete(b.subscriptions, key)
	return nil
}

// UnsubscribeAll removes every subscription of a subscriber.
func (b *Bus) UnsubscribeAll(ctx context.Context, subscriber string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, sub := range b.subscriptions {
		if sub.subscriber != subscriber {
			continue
		}
		if !sub.cancelled.Swap(true) {
			close(sub.ch)
		}
		delete(b.subscriptions, key)
	}
	return nil
}

// Publish sends an event to all matching subscribers. Non-blocking; a
// full subscriber channel drops the event for that subscriber only.
func (b *Bus) Publish(ctx context.Context, event abi.Event) error {
	if !b.running.Load() {
		return ErrBusNotRunning
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscriptions {
		if sub.cancelled.Load() || !sub.query.Matches(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
	return nil
}

// NumSubscribers returns the number of active subscriptions.
func (b *Bus) NumSubscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscriptions)
}
