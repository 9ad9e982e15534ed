// Package types defines the wire-level value types shared across the node:
// hex-encoded hashes and public-key hashes.
package types

import "strings"

// HashSize is the length in hex characters of a 256-bit digest.
const HashSize = 64

// PubKeyHashSize is the length in hex characters of a RIPEMD160 digest.
const PubKeyHashSize = 40

// Hash is a 64-character lowercase hex string denoting a 256-bit digest.
// Unlike a fixed-size byte array, Hash keeps the textual representation
// that double_sha256 and invert_bytes operate on directly — this protocol
// hashes hex text, not raw bytes (see pkg/crypto).
type Hash string

// NullHash is the all-zero sentinel used for the coinbase input's
// previous-transaction id and for the genesis block's previous-hash.
const NullHash Hash = "0000000000000000000000000000000000000000000000000000000000000000"

// IsZero reports whether h is the all-zero sentinel hash.
func (h Hash) IsZero() bool {
	return h == NullHash
}

// String returns the hash as a plain string.
func (h Hash) String() string {
	return string(h)
}

// Valid reports whether h has the expected length and is composed only of
// lowercase hex digits.
func (h Hash) Valid() bool {
	if len(h) != HashSize {
		return false
	}
	return isLowerHex(string(h))
}

// PubKeyHash is a 40-character lowercase hex string: RIPEMD160(SHA256(pubkey)).
// It doubles as a node's address.
type PubKeyHash string

// String returns the public-key hash as a plain string.
func (p PubKeyHash) String() string {
	return string(p)
}

// Valid reports whether p has the expected length and is composed only of
// lowercase hex digits.
func (p PubKeyHash) Valid() bool {
	if len(p) != PubKeyHashSize {
		return false
	}
	return isLowerHex(string(p))
}

func isLowerHex(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return !(r >= '0' && r <= '9') && !(r >= 'a' && r <= 'f')
	}) == -1
}
