package types

import "crypto/sha256"

// HashBytes computes the SHA-256 hash of arbitrary bytes.
func HashBytes(data []byte) []byte {
	if data == nil {
		return nil
	}
	h := sha256.Sum256(data)
	return h[:]
}

// DeriveAddress derives a deterministic address from a seed.
// Used for well-known handles such as built-in compliance rules.
func DeriveAddress(seed []byte) Address {
	var a Address
	copy(a[:], HashBytes(seed))
	return a
}

// DeriveIdentityID derives a deterministic identity handle from a seed.
func DeriveIdentityID(seed []byte) IdentityID {
	var id IdentityID
	copy(id[:], HashBytes(seed))
	return id
}
