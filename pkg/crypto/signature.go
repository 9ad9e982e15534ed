package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
)

// PrivateKey wraps a secp256k1 private key for Schnorr signing — the
// "black-box elliptic-curve signer/verifier over a fixed curve"
// assumes as an external collaborator.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GenerateKey creates a new random secp256k1 private key.
func GenerateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes creates a PrivateKey from a 32-byte secret.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(b))
	}
	return &PrivateKey{key: secp256k1.PrivKeyFromBytes(b)}, nil
}

// PublicKeyHex returns the compressed public key as lowercase hex — the
// public_key component the script engine embeds in an unlocking_script.
func (pk *PrivateKey) PublicKeyHex() string {
	return hex.EncodeToString(pk.key.PubKey().SerializeCompressed())
}

// Serialize returns the 32-byte private key scalar.
func (pk *PrivateKey) Serialize() []byte {
	return pk.key.Serialize()
}

// Zero securely zeroes the private key memory.
func (pk *PrivateKey) Zero() {
	pk.key.Zero()
}

// CreateDigitalSignature signs the UTF-8 bytes of messageText and returns
// lowercase hex of the raw signature bytes. Schnorr-over-
// secp256k1 signs a fixed 32-byte digest, so the message is first reduced
// to one with crypto/sha256 — the signer/verifier pair is an assumed
// external primitive; this is how that primitive is concretely
// realised here, not part of the protocol's own hashing scheme.
func CreateDigitalSignature(messageText string, pk *PrivateKey) (string, error) {
	digest := sha256.Sum256([]byte(messageText))
	sig, err := schnorr.Sign(pk.key, digest[:])
	if err != nil {
		return "", fmt.Errorf("schnorr sign: %w", err)
	}
	return hex.EncodeToString(sig.Serialize()), nil
}

// VerifyDigitalSignature checks a hex-encoded Schnorr signature over the
// UTF-8 bytes of messageText against a hex-encoded compressed public key.
// Any malformed input or cryptographic failure is a rejection (false),
// never an error — matching its "any cryptographic failure is a
// rejection, not a crash."
func VerifyDigitalSignature(messageText, signatureHex, publicKeyHex string) bool {
	sigBytes, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false
	}
	pubBytes, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return false
	}
	pubKey, err := secp256k1.ParsePubKey(pubBytes)
	if err != nil {
		return false
	}
	sig, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return false
	}
	digest := sha256.Sum256([]byte(messageText))
	return sig.Verify(digest[:], pubKey)
}
