package crypto

import "testing"

func TestExecuteP2PKHAcceptsValidSignature(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	message := "some-previous-txid"
	sig, err := CreateDigitalSignature(message, key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	unlocking := BuildUnlockingScript(sig, key.PublicKeyHex())
	locking := PubKeyHash(key.PublicKeyHex())

	if !ExecuteP2PKH(unlocking, locking, message) {
		t.Error("expected valid P2PKH script to execute successfully")
	}
}

func TestExecuteP2PKHRejectsWrongLockingScript(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	message := "some-previous-txid"
	sig, err := CreateDigitalSignature(message, key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	unlocking := BuildUnlockingScript(sig, key.PublicKeyHex())

	if ExecuteP2PKH(unlocking, PubKeyHash("0000000000000000000000000000000000000a"), message) {
		t.Error("expected mismatched locking script to reject")
	}
}

func TestExecuteP2PKHRejectsWrongMessage(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	sig, err := CreateDigitalSignature("original-message", key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	unlocking := BuildUnlockingScript(sig, key.PublicKeyHex())
	locking := PubKeyHash(key.PublicKeyHex())

	if ExecuteP2PKH(unlocking, locking, "tampered-message") {
		t.Error("expected signature over a different message to reject")
	}
}

func TestExecuteP2PKHRejectsShortScript(t *testing.T) {
	if ExecuteP2PKH("aa", PubKeyHash("0000000000000000000000000000000000000a"), "msg") {
		t.Error("expected too-short unlocking script to reject, not panic")
	}
}
