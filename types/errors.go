package types

import "errors"

// Authorization errors.
var (
	// ErrUnauthorized is returned when the caller lacks the required role or
	// capability for an operation.
	ErrUnauthorized = errors.New("caller not authorized")

	// ErrReentrantCall is returned when a mutating entry point is invoked
	// from inside an in-flight operation (for example, from a compliance
	// rule evaluated during a transfer).
	ErrReentrantCall = errors.New("reentrant call into mutating entry point")
)

// Registry errors.
var (
	// ErrNotFound is returned when an identity, issuer, topic, or rule does
	// not exist where existence is required.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is returned on duplicate registration, such as
	// registering an identity for an address that already has one.
	ErrAlreadyExists = errors.New("record already exists")
)

// Transfer gate errors.
var (
	// ErrAddressFrozen is returned when a transfer touches a frozen address.
	ErrAddressFrozen = errors.New("address is frozen")

	// ErrPaused is returned when the token is globally paused.
	ErrPaused = errors.New("token is paused")

	// ErrNotCompliant is returned when identity verification fails or a
	// compliance rule rejects the transfer.
	ErrNotCompliant = errors.New("transfer not compliant")
)

// Ledger errors.
var (
	// ErrInsufficientBalance is returned when the sender's balance cannot
	// cover the amount.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientAllowance is returned when the spender's allowance
	// cannot cover the amount.
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

// Validation errors.
var (
	// ErrInvalidArgument is returned for malformed inputs, such as the null
	// address where a real address is required.
	ErrInvalidArgument = errors.New("invalid argument")
)
