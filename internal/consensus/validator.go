package consensus

import (
	"errors"

	"github.com/Klingon-tech/klingnet-pow/pkg/block"
	"github.com/Klingon-tech/klingnet-pow/pkg/crypto"
	"github.com/Klingon-tech/klingnet-pow/pkg/tx"
	"github.com/Klingon-tech/klingnet-pow/pkg/types"
)

// ErrMissingInput, ErrBadSignature, and ErrValueInflation are the reasons
// ValidateTransaction can fail; callers that only need a boolean may
// ignore the wrapped detail.
var (
	ErrMissingInput   = errors.New("consensus: referenced output does not exist or is already spent")
	ErrBadSignature   = errors.New("consensus: unlocking script failed P2PKH verification")
	ErrValueInflation = errors.New("consensus: outputs exceed inputs")
)

// UTXOView is the subset of the UTXO index the validator needs. Kept as
// an interface so tests can supply a fake without constructing a full
// utxo.Set.
type UTXOView interface {
	HasOutput(txid types.Hash, vout int) bool
	GetOutput(txid types.Hash, vout int) (tx.Output, bool)
}

// ValidateTransaction runs the rules shared by pool admission and
// per-block validation: every input must reference a currently-unspent
// output whose locking script the unlocking script satisfies, and the
// outputs may not exceed the inputs. Returns the accumulated fee
// (input_total - output_total) on success.
func ValidateTransaction(txn *tx.Transaction, utxo UTXOView) (fee uint64, err error) {
	var inputTotal uint64
	for _, in := range txn.Inputs {
		if !utxo.HasOutput(in.PrevTxID, int(in.PrevVout)) {
			return 0, ErrMissingInput
		}
		prev, ok := utxo.GetOutput(in.PrevTxID, int(in.PrevVout))
		if !ok {
			return 0, ErrMissingInput
		}
		if !crypto.ExecuteP2PKH(in.UnlockingScript, prev.LockingScript, string(in.PrevTxID)) {
			return 0, ErrBadSignature
		}
		inputTotal += prev.Amount
	}

	outputTotal := txn.TotalOutputValue()
	if outputTotal > inputTotal {
		return 0, ErrValueInflation
	}
	return inputTotal - outputTotal, nil
}

// ValidateBlock checks header integrity, Merkle root consistency, every
// ordinary transaction, coinbase shape, and coinbase reward correctness.
func ValidateBlock(b *block.Block, utxo UTXOView, miningReward uint64) error {
	if b.Hash() != b.BlockHash {
		return errors.New("consensus: block hash does not match header bytes")
	}
	if b.ComputeMerkleRoot() != b.MerkleRoot {
		return errors.New("consensus: merkle root does not match transactions")
	}
	if len(b.Transactions) == 0 {
		return errors.New("consensus: block has no coinbase transaction")
	}

	coinbase := b.Transactions[0]
	if !isCoinbaseShape(coinbase) {
		return errors.New("consensus: first transaction is not a well-formed coinbase")
	}

	var fees uint64
	for _, ordinary := range b.Transactions[1:] {
		if ordinary.IsCoinbase() {
			return errors.New("consensus: only the first transaction may be a coinbase")
		}
		fee, err := ValidateTransaction(ordinary, utxo)
		if err != nil {
			return err
		}
		fees += fee
	}

	if coinbase.TotalOutputValue() > fees+miningReward {
		return errors.New("consensus: coinbase output exceeds fees plus mining reward")
	}
	return nil
}

func isCoinbaseShape(t *tx.Transaction) bool {
	if len(t.Inputs) != 1 || len(t.Outputs) != 1 {
		return false
	}
	in := t.Inputs[0]
	return in.PrevTxID == types.NullHash && in.PrevVout == types.CoinbaseVout
}
