package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/Klingon-tech/klingnet-pow/pkg/types"
)

func TestDoubleSHA256HashesHexTextTwice(t *testing.T) {
	s := "hello"
	first := sha256.Sum256([]byte(s))
	firstHex := hex.EncodeToString(first[:])
	second := sha256.Sum256([]byte(firstHex))
	want := hex.EncodeToString(second[:])

	got := DoubleSHA256(s)
	if string(got) != want {
		t.Errorf("DoubleSHA256(%q) = %s, want %s", s, got, want)
	}
}

func TestInvertBytesRoundTrip(t *testing.T) {
	// Reversing twice restores the original byte order (case differs).
	// orig is even-length, so no padding is introduced by either pass.
	orig := "00112233445566778899aabbccddeeff"
	once := InvertBytes(orig)
	twice := InvertBytes(once)
	if len(twice) != len(orig) {
		t.Fatalf("unexpected length after double inversion: %q", twice)
	}
	if !strings.EqualFold(twice, orig) {
		t.Errorf("InvertBytes(InvertBytes(%q)) = %s, want %s (case-insensitive)", orig, twice, orig)
	}
}

func TestInvertBytesOddLengthPads(t *testing.T) {
	got := InvertBytes("abc")
	// "abc" pads to "0abc" -> bytes [0x0a, 0xbc] -> reversed [0xbc, 0x0a] -> "BC0A"
	want := "BC0A"
	if got != want {
		t.Errorf("InvertBytes(\"abc\") = %s, want %s", got, want)
	}
}

func TestPubKeyHashLength(t *testing.T) {
	h := PubKeyHash("02aabbccddeeff00112233445566778899aabbccddeeff0011223344556677")
	if len(h) != types.PubKeyHashSize {
		t.Errorf("PubKeyHash length = %d, want %d", len(h), types.PubKeyHashSize)
	}
	if !h.Valid() {
		t.Errorf("PubKeyHash %q should be valid hex of the expected length", h)
	}
}

func TestPubKeyHashDeterministic(t *testing.T) {
	a := PubKeyHash("aabbcc")
	b := PubKeyHash("aabbcc")
	if a != b {
		t.Error("PubKeyHash must be deterministic for identical input")
	}
	c := PubKeyHash("aabbcd")
	if a == c {
		t.Error("PubKeyHash of different inputs collided unexpectedly")
	}
}
