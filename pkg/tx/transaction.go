package tx

import (
	"strconv"
	"strings"

	"github.com/Klingon-tech/klingnet-pow/pkg/crypto"
	"github.com/Klingon-tech/klingnet-pow/pkg/types"
)

// Transaction is an ordered list of inputs and outputs plus a derived id.
// A transaction is a coinbase iff it has exactly one input with
// PrevTxID == types.NullHash and PrevVout == types.CoinbaseVout and
// exactly one output.
type Transaction struct {
	Inputs  []Input  `json:"inputs"`
	Outputs []Output `json:"outputs"`
}

// New constructs a transaction and is the only way transactions are built
// outside of this package — callers never set the id directly, since it is
// always derived from Serialize().
func New(inputs []Input, outputs []Output) *Transaction {
	return &Transaction{Inputs: inputs, Outputs: outputs}
}

// ID computes the transaction id: double_sha256 of the canonical
// serialization. It is recomputed on demand rather than
// cached, since Transaction values are small and mutation after
// construction is not expected of callers in this package.
func (t *Transaction) ID() types.Hash {
	return crypto.DoubleSHA256(t.Serialize())
}

// IsCoinbase reports whether t is a coinbase transaction: a single
// input spending the null hash and exactly one output.
func (t *Transaction) IsCoinbase() bool {
	return len(t.Inputs) == 1 && t.Inputs[0].IsCoinbase() && len(t.Outputs) == 1
}

// Serialize renders the transaction : a 2-hex-char input
// count, each input's serialization, a 2-hex-char output count, then each
// output's serialization, all concatenated.
func (t *Transaction) Serialize() string {
	var b strings.Builder
	b.WriteString(padLeft(strconv.FormatInt(int64(len(t.Inputs)), 16), 2))
	for _, in := range t.Inputs {
		b.WriteString(in.Serialize())
	}
	b.WriteString(padLeft(strconv.FormatInt(int64(len(t.Outputs)), 16), 2))
	for _, out := range t.Outputs {
		b.WriteString(out.Serialize())
	}
	return b.String()
}

// TotalOutputValue sums the transaction's output amounts. Overflow is not
// expected at the scale this simulation operates and is not guarded
// against beyond uint64's own range, mirroring the protocol's arithmetic
// (output_total = Σ out.amount).
func (t *Transaction) TotalOutputValue() uint64 {
	var total uint64
	for _, o := range t.Outputs {
		total += o.Amount
	}
	return total
}

// Clone returns a deep copy of the transaction. Deep-copying at
// message-queue enqueue boundaries keeps sender and receiver from sharing
// mutable structure.
func (t *Transaction) Clone() *Transaction {
	inputs := make([]Input, len(t.Inputs))
	for i, in := range t.Inputs {
		inputs[i] = in.Clone()
	}
	outputs := make([]Output, len(t.Outputs))
	for i, out := range t.Outputs {
		outputs[i] = out.Clone()
	}
	return &Transaction{Inputs: inputs, Outputs: outputs}
}

// CreateCoinbaseTransaction builds the single-input, single-output reward
// transaction that must head every mined block. The coinbase input's
// unlocking script is never verified, but is still built in
// the standard signature‖pubkey shape, signed over the null hash, for
// structural symmetry with ordinary inputs.
func CreateCoinbaseTransaction(priv *crypto.PrivateKey, payTo types.PubKeyHash, reward uint64) (*Transaction, error) {
	sig, err := crypto.CreateDigitalSignature(string(types.NullHash), priv)
	if err != nil {
		return nil, err
	}
	unlocking := crypto.BuildUnlockingScript(sig, priv.PublicKeyHex())

	input := Input{
		Outpoint:        types.Outpoint{PrevTxID: types.NullHash, PrevVout: types.CoinbaseVout},
		UnlockingScript: unlocking,
	}
	output := Output{Amount: reward, LockingScript: payTo}
	return New([]Input{input}, []Output{output}), nil
}
