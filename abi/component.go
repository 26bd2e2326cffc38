package abi

// Component is the base interface for all manageable components.
// Pluggable components (the executor, event bus, indexers) implement this
// interface for consistent lifecycle management.
type Component interface {
	// Start initializes and starts the component.
	// Must be idempotent (safe to call multiple times).
	Start() error

	// Stop gracefully shuts down the component.
	// Must be idempotent and safe to call even if not started.
	Stop() error

	// IsRunning returns true if the component is currently running.
	IsRunning() bool
}

// Named components can report their name for logging and debugging.
type Named interface {
	// Name returns the component name for identification.
	Name() string
}
