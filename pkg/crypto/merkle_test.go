package crypto

import (
	"testing"

	"github.com/Klingon-tech/klingnet-pow/pkg/types"
)

func TestMerkleRootEmpty(t *testing.T) {
	if got := MerkleRoot(nil, 2); got != "" {
		t.Errorf("MerkleRoot(nil) = %q, want empty", got)
	}
}

func TestMerkleRootSingleton(t *testing.T) {
	h := DoubleSHA256("leaf")
	want := DoubleSHA256(string(h) + string(h))
	if got := MerkleRoot([]types.Hash{h}, 2); got != want {
		t.Errorf("singleton merkle root = %s, want %s", got, want)
	}
}

func TestMerkleRootTwoLeavesExtraFold(t *testing.T) {
	h0 := DoubleSHA256("a")
	h1 := DoubleSHA256("b")

	folded := DoubleSHA256(string(h0) + string(h1))
	// The final fold to a single hash recurses into the singleton case once
	// more: the root is double_sha256(folded ‖ folded), not folded itself.
	want := DoubleSHA256(string(folded) + string(folded))

	if got := MerkleRoot([]types.Hash{h0, h1}, 2); got != want {
		t.Errorf("two-leaf merkle root = %s, want %s", got, want)
	}
}

func TestMerkleRootOddLeafCountDuplicatesLast(t *testing.T) {
	h0 := DoubleSHA256("a")
	h1 := DoubleSHA256("b")
	h2 := DoubleSHA256("c")

	// Arity 2, 3 leaves -> pad with one more copy of h2 -> [h0,h1,h2,h2].
	first := DoubleSHA256(string(h0) + string(h1))
	second := DoubleSHA256(string(h2) + string(h2))
	folded := DoubleSHA256(string(first) + string(second))
	want := DoubleSHA256(string(folded) + string(folded))

	if got := MerkleRoot([]types.Hash{h0, h1, h2}, 2); got != want {
		t.Errorf("odd-leaf merkle root = %s, want %s", got, want)
	}
}

func TestMerkleRootArityThree(t *testing.T) {
	h0 := DoubleSHA256("a")
	h1 := DoubleSHA256("b")
	h2 := DoubleSHA256("c")

	root := DoubleSHA256(string(h0) + string(h1) + string(h2))
	want := DoubleSHA256(string(root) + string(root))

	if got := MerkleRoot([]types.Hash{h0, h1, h2}, 3); got != want {
		t.Errorf("arity-3 merkle root = %s, want %s", got, want)
	}
}

func TestMerkleRootArityTooSmallPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for arity < 2")
		}
	}()
	MerkleRoot([]types.Hash{DoubleSHA256("a")}, 1)
}
