package tx

import (
	"strconv"

	"github.com/Klingon-tech/klingnet-pow/pkg/crypto"
	"github.com/Klingon-tech/klingnet-pow/pkg/types"
)

// Output is a transaction output: an amount locked to a public-key hash.
// Immutable once constructed.
type Output struct {
	Amount        uint64           `json:"amount"`
	LockingScript types.PubKeyHash `json:"locking_script"`
}

// Clone returns a deep copy of the output.
func (o Output) Clone() Output {
	return o
}

// Serialize renders the output : a 16-hex-char amount
// (left-padded, then byte-inverted), followed by script_len_hex and the
// locking script itself.
func (o Output) Serialize() string {
	amountHex := padLeft(strconv.FormatUint(o.Amount, 16), 16)
	scriptLenHex := strconv.FormatInt(int64(len(o.LockingScript)/2), 16)
	return crypto.InvertBytes(amountHex) + scriptLenHex + string(o.LockingScript)
}
