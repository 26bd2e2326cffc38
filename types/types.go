// Package types defines the core domain types shared across tokenberry:
// addresses, identity handles, claim topics, and the error taxonomy.
package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// AddressSize is the size of an account address in bytes.
	AddressSize = 32

	// IdentityIDSize is the size of an identity handle in bytes.
	IdentityIDSize = 32
)

// Address is a 32-byte account identifier. The zero value is the null
// address and is rejected wherever an address is required.
type Address [AddressSize]byte

// ZeroAddress is the null address.
var ZeroAddress Address

// IsZero returns true if the address is the null address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Bytes returns the address as a byte slice.
func (a Address) Bytes() []byte {
	return a[:]
}

// String returns the hex-encoded address.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// Short returns a truncated hex form for logging.
func (a Address) Short() string {
	s := a.String()
	if len(s) <= 12 {
		return s
	}
	return s[:6] + ".." + s[len(s)-6:]
}

// AddressFromBytes converts a byte slice to an Address.
// The slice must be exactly AddressSize bytes.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressSize {
		return a, fmt.Errorf("%w: address must be %d bytes, got %d", ErrInvalidArgument, AddressSize, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// AddressFromString parses a hex-encoded address, with or without a 0x prefix.
func AddressFromString(s string) (Address, error) {
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return ZeroAddress, fmt.Errorf("%w: decoding address: %v", ErrInvalidArgument, err)
	}
	return AddressFromBytes(b)
}

// IdentityID is a 32-byte identity handle. The zero value means "no
// identity" and is never a valid registered identity.
type IdentityID [IdentityIDSize]byte

// ZeroIdentity is the absent identity.
var ZeroIdentity IdentityID

// IsZero returns true if the handle is the absent identity.
func (id IdentityID) IsZero() bool {
	return id == ZeroIdentity
}

// Bytes returns the identity handle as a byte slice.
func (id IdentityID) Bytes() []byte {
	return id[:]
}

// String returns the hex-encoded identity handle.
func (id IdentityID) String() string {
	return hex.EncodeToString(id[:])
}

// IdentityIDFromBytes converts a byte slice to an IdentityID.
func IdentityIDFromBytes(b []byte) (IdentityID, error) {
	var id IdentityID
	if len(b) != IdentityIDSize {
		return id, fmt.Errorf("%w: identity id must be %d bytes, got %d", ErrInvalidArgument, IdentityIDSize, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// ClaimTopic identifies a category of attestation required for identity
// verification (KYC, accreditation, and so on). Topics are opaque ids.
type ClaimTopic uint64

// CountryCode is an ISO 3166-1 numeric country code.
type CountryCode uint16

// SafeAdd returns a+b or an error on uint64 overflow.
func SafeAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, fmt.Errorf("%w: amount overflow", ErrInvalidArgument)
	}
	return sum, nil
}

// SafeSub returns a-b or an error if b exceeds a.
func SafeSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, a, b)
	}
	return a - b, nil
}
