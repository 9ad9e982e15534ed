package types

import "fmt"

// CoinbaseVout is the sentinel previous-output index for a coinbase input.
const CoinbaseVout = -1

// Outpoint identifies a single transaction output by the id of the
// transaction that created it and its index within that transaction's
// output list. A coinbase input's outpoint has PrevTxID == NullHash and
// PrevVout == CoinbaseVout.
type Outpoint struct {
	PrevTxID Hash  `json:"prev_txid"`
	PrevVout int64 `json:"prev_vout"`
}

// IsCoinbase reports whether this outpoint is the coinbase sentinel.
func (o Outpoint) IsCoinbase() bool {
	return o.PrevTxID == NullHash && o.PrevVout == CoinbaseVout
}

// String renders the outpoint as "txid:vout".
func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.PrevTxID, o.PrevVout)
}
