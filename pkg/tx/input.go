// Package tx implements transactions: inputs, outputs, canonical textual
// serialization, and id derivation.
package tx

import (
	"strconv"

	"github.com/Klingon-tech/klingnet-pow/pkg/crypto"
	"github.com/Klingon-tech/klingnet-pow/pkg/types"
)

// Input is a transaction input: a reference to a previous output plus the
// unlocking script that spends it. A coinbase input uses
// PrevTxID = types.NullHash and PrevVout = types.CoinbaseVout; its
// unlocking script is never verified.
type Input struct {
	types.Outpoint
	UnlockingScript string `json:"unlocking_script"` // hex: signature (64 bytes) ‖ public key
}

// IsCoinbase reports whether this input is the coinbase sentinel.
func (i Input) IsCoinbase() bool {
	return i.Outpoint.IsCoinbase()
}

// Clone returns a deep copy of the input (inputs hold no nested pointers,
// so a value copy suffices, but Clone exists to make enqueue-time copying
// explicit at message-queue boundaries).
func (i Input) Clone() Input {
	return i
}

// Serialize renders the input :
//
//	invert_bytes(prev_txid) ‖ invert_bytes(vout_hex) ‖ script_len_hex ‖ unlocking_script ‖ "ffffffff"
//
// vout_hex is 8 hex chars: all-f for the coinbase sentinel (-1), otherwise
// the unsigned value left-padded to 8 digits. script_len_hex is
// hex(len(unlocking_script)/2) with no padding.
func (i Input) Serialize() string {
	var voutHex string
	if i.PrevVout == types.CoinbaseVout {
		voutHex = "ffffffff"
	} else {
		voutHex = strconv.FormatUint(uint64(i.PrevVout), 16)
		voutHex = padLeft(voutHex, 8)
	}

	scriptLenHex := strconv.FormatInt(int64(len(i.UnlockingScript)/2), 16)

	return crypto.InvertBytes(string(i.PrevTxID)) +
		crypto.InvertBytes(voutHex) +
		scriptLenHex +
		i.UnlockingScript +
		"ffffffff"
}

func padLeft(s string, width int) string {
	for len(s) < width {
		s = "0" + s
	}
	return s
}
