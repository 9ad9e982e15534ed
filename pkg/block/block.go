// Package block implements the mined-block record: header serialization,
// Merkle root recomputation, and block hashing.
package block

import (
	"github.com/Klingon-tech/klingnet-pow/pkg/crypto"
	"github.com/Klingon-tech/klingnet-pow/pkg/tx"
	"github.com/Klingon-tech/klingnet-pow/pkg/types"
)

// Block is a mined block: a previous-block reference, an ordered
// transaction list (the first entry is always the coinbase), and the
// proof-of-work fields. BlockHash is populated once mining succeeds; a
// block under construction (a "template") has an empty BlockHash.
type Block struct {
	PreviousHash    types.Hash        `json:"previous_hash"`
	Transactions    []*tx.Transaction `json:"transactions"`
	Nonce           uint64            `json:"nonce"`
	DifficultyBits  int               `json:"difficulty_bits"`
	MerkleRoot      types.Hash        `json:"merkle_root"`
	BlockHash       types.Hash        `json:"block_hash"`
	MerkleTreeArity int               `json:"merkle_tree_arity"`
}

// New assembles a block template: transactions ordered with the coinbase
// first, previousHash pointing at the current tip, and the Merkle root
// computed immediately. Nonce and BlockHash are left zero until mining
// succeeds.
func New(transactions []*tx.Transaction, previousHash types.Hash, bits, merkleArity int) *Block {
	b := &Block{
		PreviousHash:    previousHash,
		Transactions:    transactions,
		DifficultyBits:  bits,
		MerkleTreeArity: merkleArity,
	}
	b.MerkleRoot = b.ComputeMerkleRoot()
	return b
}

// ComputeMerkleRoot recomputes the Merkle root over the block's current
// transaction list at its configured arity.
func (b *Block) ComputeMerkleRoot() types.Hash {
	hashes := make([]types.Hash, len(b.Transactions))
	for i, t := range b.Transactions {
		hashes[i] = t.ID()
	}
	return crypto.MerkleRoot(hashes, b.MerkleTreeArity)
}

// HeaderBytes renders the block header for a candidate nonce:
//
//	invert_bytes(previous_hash) ‖ invert_bytes(merkle_root) ‖ invert_bytes(bits_hex) ‖ invert_bytes(nonce_hex)
//
// bits_hex and nonce_hex are each hex(x) with a leading '0' added if
// odd-length, before inversion.
func (b *Block) HeaderBytes(nonce uint64) string {
	bitsHex := padOddHex(formatHex(uint64(b.DifficultyBits)))
	nonceHex := padOddHex(formatHex(nonce))

	return crypto.InvertBytes(string(b.PreviousHash)) +
		crypto.InvertBytes(string(b.MerkleRoot)) +
		crypto.InvertBytes(bitsHex) +
		crypto.InvertBytes(nonceHex)
}

// Hash computes double_sha256(HeaderBytes(b.Nonce)) — the block's identity
// once mined.
func (b *Block) Hash() types.Hash {
	return crypto.DoubleSHA256(b.HeaderBytes(b.Nonce))
}

// HashAt computes the block's would-be hash for a candidate nonce without
// mutating the block, for use during proof-of-work search.
func (b *Block) HashAt(nonce uint64) types.Hash {
	return crypto.DoubleSHA256(b.HeaderBytes(nonce))
}

// Clone deep-copies the block, including its transaction list, for
// message-queue enqueue boundaries.
func (b *Block) Clone() *Block {
	txs := make([]*tx.Transaction, len(b.Transactions))
	for i, t := range b.Transactions {
		txs[i] = t.Clone()
	}
	return &Block{
		PreviousHash:    b.PreviousHash,
		Transactions:    txs,
		Nonce:           b.Nonce,
		DifficultyBits:  b.DifficultyBits,
		MerkleRoot:      b.MerkleRoot,
		BlockHash:       b.BlockHash,
		MerkleTreeArity: b.MerkleTreeArity,
	}
}

// Coinbase returns the block's first transaction, which by convention is
// always the coinbase.
func (b *Block) Coinbase() *tx.Transaction {
	if len(b.Transactions) == 0 {
		return nil
	}
	return b.Transactions[0]
}

func formatHex(v uint64) string {
	const hexdigits = "0123456789abcdef"
	if v == 0 {
		return "0"
	}
	var buf [16]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = hexdigits[v&0xf]
		v >>= 4
	}
	return string(buf[i:])
}

func padOddHex(s string) string {
	if len(s)%2 != 0 {
		return "0" + s
	}
	return s
}
