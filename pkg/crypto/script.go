package crypto

import "github.com/Klingon-tech/klingnet-pow/pkg/types"

// SignatureHexLen is the hex length of the fixed-size Schnorr signature
// embedded at the front of every P2PKH unlocking_script (64 raw bytes).
const SignatureHexLen = 128

// ExecuteP2PKH verifies a pay-to-public-key-hash unlocking script against a
// locking script and the signed message text. It never panics:
// a malformed unlocking script, a public-key-hash mismatch, or a signature
// failure are all plain rejections.
func ExecuteP2PKH(unlockingScript string, lockingScript types.PubKeyHash, messageText string) bool {
	if len(unlockingScript) < SignatureHexLen {
		return false
	}
	signature := unlockingScript[:SignatureHexLen]
	publicKey := unlockingScript[SignatureHexLen:]

	if PubKeyHash(publicKey) != lockingScript {
		return false
	}
	return VerifyDigitalSignature(messageText, signature, publicKey)
}

// BuildUnlockingScript concatenates a signature and public key into the
// unlocking_script layout ExecuteP2PKH expects: signature ‖ public key.
func BuildUnlockingScript(signatureHex, publicKeyHex string) string {
	return signatureHex + publicKeyHex
}
