package abi

import "time"

// Genesis contains initialization data passed to InitChain.
type Genesis struct {
	// ChainID is the unique identifier for this deployment.
	ChainID string

	// GenesisTime is the official genesis timestamp.
	GenesisTime time.Time

	// AppState contains application-specific genesis state (opaque to the
	// executor; the token application decodes it).
	AppState []byte
}

// QueryRequest reads application state.
type QueryRequest struct {
	// Path selects what to read (e.g., "token/balance").
	Path string

	// Data is the encoded query argument, if the path takes one.
	Data []byte
}

// QueryResponse is the result of a query.
type QueryResponse struct {
	// Code indicates success (0) or failure (non-zero).
	Code ResultCode

	// Error provides detail if Code != 0.
	Error error

	// Value is the encoded query result.
	Value []byte
}

// IsOK returns true if the query succeeded.
func (r *QueryResponse) IsOK() bool {
	return r != nil && r.Code.IsOK()
}
