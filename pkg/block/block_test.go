package block

import (
	"testing"

	"github.com/Klingon-tech/klingnet-pow/pkg/crypto"
	"github.com/Klingon-tech/klingnet-pow/pkg/tx"
	"github.com/Klingon-tech/klingnet-pow/pkg/types"
)

func mustKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func TestNewComputesMerkleRoot(t *testing.T) {
	key := mustKey(t)
	cb, err := tx.CreateCoinbaseTransaction(key, crypto.PubKeyHash(key.PublicKeyHex()), 50)
	if err != nil {
		t.Fatalf("create coinbase: %v", err)
	}
	b := New([]*tx.Transaction{cb}, types.NullHash, 3, 2)
	if b.MerkleRoot == "" {
		t.Fatal("expected non-empty merkle root")
	}
	if b.MerkleRoot != b.ComputeMerkleRoot() {
		t.Error("merkle root not consistent with recomputation")
	}
}

func TestHeaderBytesOddLengthPadding(t *testing.T) {
	key := mustKey(t)
	cb, err := tx.CreateCoinbaseTransaction(key, crypto.PubKeyHash(key.PublicKeyHex()), 50)
	if err != nil {
		t.Fatalf("create coinbase: %v", err)
	}
	b := New([]*tx.Transaction{cb}, types.NullHash, 3, 2) // bits=3 -> hex "3" -> padded "03"
	header := b.HeaderBytes(10)                           // nonce=10 -> hex "a" -> padded "0a"
	wantBitsPart := crypto.InvertBytes("03")
	wantNoncePart := crypto.InvertBytes("0a")
	if !hasSuffix(header, wantNoncePart) {
		t.Errorf("header %q does not end with inverted nonce %q", header, wantNoncePart)
	}
	if !contains(header, wantBitsPart) {
		t.Errorf("header %q does not contain inverted bits %q", header, wantBitsPart)
	}
}

func TestHashDeterministic(t *testing.T) {
	key := mustKey(t)
	cb, err := tx.CreateCoinbaseTransaction(key, crypto.PubKeyHash(key.PublicKeyHex()), 50)
	if err != nil {
		t.Fatalf("create coinbase: %v", err)
	}
	b := New([]*tx.Transaction{cb}, types.NullHash, 3, 2)
	b.Nonce = 42
	h1 := b.Hash()
	h2 := b.Hash()
	if h1 != h2 {
		t.Error("Hash() must be deterministic for a fixed nonce")
	}
	b.Nonce = 43
	if b.Hash() == h1 {
		t.Error("Hash() must change when the nonce changes")
	}
}

func TestCloneIndependence(t *testing.T) {
	key := mustKey(t)
	cb, err := tx.CreateCoinbaseTransaction(key, crypto.PubKeyHash(key.PublicKeyHex()), 50)
	if err != nil {
		t.Fatalf("create coinbase: %v", err)
	}
	b := New([]*tx.Transaction{cb}, types.NullHash, 3, 2)
	clone := b.Clone()
	clone.Transactions[0].Outputs[0].Amount = 999
	if b.Transactions[0].Outputs[0].Amount == 999 {
		t.Error("mutating clone's transactions mutated the original block")
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

func hasSuffix(s, suf string) bool {
	return len(s) >= len(suf) && s[len(s)-len(suf):] == suf
}
