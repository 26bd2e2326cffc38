package abi

import "fmt"

// ResultCode represents the result of transaction processing.
// Code 0 indicates success; all other codes indicate errors.
// Codes 1-99 are reserved for executor use.
// Codes 100+ are token application errors.
type ResultCode uint32

const (
	// CodeOK indicates the operation succeeded.
	CodeOK ResultCode = 0

	// Executor error codes (1-99)

	// CodeUnknownError indicates an unspecified error.
	CodeUnknownError ResultCode = 1

	// CodeInvalidTx indicates the transaction is malformed or undecodable.
	CodeInvalidTx ResultCode = 2

	// Application error codes (100+), mirroring the domain error taxonomy.

	// CodeUnauthorized indicates the caller lacks the owner, agent, or
	// capability role required for the operation.
	CodeUnauthorized ResultCode = 100

	// CodeNotFound indicates the identity, topic, issuer, or rule does not
	// exist where existence is required.
	CodeNotFound ResultCode = 101

	// CodeAlreadyExists indicates a duplicate registration.
	CodeAlreadyExists ResultCode = 102

	// CodeAddressFrozen indicates a transfer touched a frozen address.
	CodeAddressFrozen ResultCode = 103

	// CodePaused indicates the token is globally paused.
	CodePaused ResultCode = 104

	// CodeNotCompliant indicates identity verification failed or a
	// compliance rule rejected the transfer.
	CodeNotCompliant ResultCode = 105

	// CodeInsufficientBalance indicates the sender balance cannot cover
	// the amount.
	CodeInsufficientBalance ResultCode = 106

	// CodeInsufficientAllowance indicates the spender allowance cannot
	// cover the amount.
	CodeInsufficientAllowance ResultCode = 107

	// CodeInvalidArgument indicates a malformed input such as the null
	// address where forbidden.
	CodeInvalidArgument ResultCode = 108
)

// IsOK returns true if the code indicates success.
func (c ResultCode) IsOK() bool {
	return c == CodeOK
}

// IsError returns true if the code indicates an error.
func (c ResultCode) IsError() bool {
	return c != CodeOK
}

// String returns a human-readable description of the code.
func (c ResultCode) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeUnknownError:
		return "UnknownError"
	case CodeInvalidTx:
		return "InvalidTx"
	case CodeUnauthorized:
		return "Unauthorized"
	case CodeNotFound:
		return "NotFound"
	case CodeAlreadyExists:
		return "AlreadyExists"
	case CodeAddressFrozen:
		return "AddressFrozen"
	case CodePaused:
		return "Paused"
	case CodeNotCompliant:
		return "NotCompliant"
	case CodeInsufficientBalance:
		return "InsufficientBalance"
	case CodeInsufficientAllowance:
		return "InsufficientAllowance"
	case CodeInvalidArgument:
		return "InvalidArgument"
	default:
		return fmt.Sprintf("Unknown(%d)", uint32(c))
	}
}
