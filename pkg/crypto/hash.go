// Package crypto implements the node's hashing, serialization and signature
// primitives: the textual double-SHA256 used for transaction and block
// ids, byte-order inversion, Merkle roots, RIPEMD160/SHA256 public-key
// hashing, and Schnorr-over-secp256k1 signing.
package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/Klingon-tech/klingnet-pow/pkg/types"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // required by the protocol, not a security choice.
)

// DoubleSHA256 hashes the ASCII bytes of s, takes the lowercase hex of that
// digest, then SHA256-hashes the ASCII bytes of *that hex string* a second
// time. This operates on textual hex, not raw bytes, at both stages — a
// deliberate compatibility quirk of the simulation
// that must be preserved bit-exactly: any implementation that hashes raw
// bytes on the second pass produces different transaction and block ids.
func DoubleSHA256(s string) types.Hash {
	first := sha256.Sum256([]byte(s))
	firstHex := hex.EncodeToString(first[:])
	second := sha256.Sum256([]byte(firstHex))
	return types.Hash(hex.EncodeToString(second[:]))
}

// InvertBytes reverses the order of hex byte pairs in hexStr and returns the
// result in uppercase. An odd-length input is left-padded with a leading
// '0' before reversal.
func InvertBytes(hexStr string) string {
	if len(hexStr)%2 != 0 {
		hexStr = "0" + hexStr
	}
	// Pairs are reversed as text rather than decoded, so an id that is not
	// valid hex (as a peer's transaction may carry) is inverted like any
	// other string instead of crashing the caller; validation rejects it.
	var b strings.Builder
	b.Grow(len(hexStr))
	for i := len(hexStr); i > 0; i -= 2 {
		b.WriteString(hexStr[i-2 : i])
	}
	return strings.ToUpper(b.String())
}

// PubKeyHash computes RIPEMD160(SHA256(utf8(pubKeyHex))) — the node's
// public-key-hash / address derivation. The hash operates on the
// UTF-8 bytes of the hex-encoded public key string, not on the raw public
// key bytes, matching the script engine's hashing of unlocking_script
// fields.
func PubKeyHash(pubKeyHex string) types.PubKeyHash {
	sha := sha256.Sum256([]byte(pubKeyHex))
	ripe := ripemd160.New()
	ripe.Write(sha[:])
	return types.PubKeyHash(hex.EncodeToString(ripe.Sum(nil)))
}
