package crypto

import "github.com/Klingon-tech/klingnet-pow/pkg/types"

// MerkleRoot computes the Merkle root of hashes under the given arity k
// (k >= 2). Folding recurses until exactly one hash remains, and that
// final single hash is *itself* folded against a copy of itself with one
// more double_sha256 — the recursive step that reduces a list to a
// singleton always re-enters the singleton case, so a lone leaf (no
// folding at all) and a fully-folded root (after any number of folding
// rounds) are hashed the same way: double_sha256(h‖h). This must be
// preserved exactly; returning the folded hash directly once one remains
// is one hashing round short of the original algorithm. An empty list
// returns the zero-value Hash ("").
func MerkleRoot(hashes []types.Hash, k int) types.Hash {
	if k < 2 {
		panic("crypto: merkle tree arity must be >= 2")
	}
	if len(hashes) == 0 {
		return ""
	}

	level := make([]types.Hash, len(hashes))
	copy(level, hashes)

	for {
		if len(level) == 1 {
			return DoubleSHA256(string(level[0]) + string(level[0]))
		}
		for len(level)%k != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]types.Hash, 0, len(level)/k)
		for i := 0; i < len(level); i += k {
			var concat string
			for _, h := range level[i : i+k] {
				concat += string(h)
			}
			next = append(next, DoubleSHA256(concat))
		}
		level = next
	}
}
