package token

import (
	"sync"

	"github.com/blockberries/tokenberry/abi"
)

// Collector is an EventSink that accumulates events until drained. The
// application collects per-transaction events with it and forwards them to
// the event bus and indexer after a successful commit.
type Collector struct {
	mu     sync.Mutex
	events []abi.Event
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Emit appends an event.
func (c *Collector) Emit(event abi.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

// Drain returns all accumulated events and resets the collector.
func (c *Collector) Drain() []abi.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.events
	c.events = nil
	return out
}

// Len returns the number of pending events.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}
