package wallet

import (
	"github.com/Klingon-tech/klingnet-pow/internal/mempool"
	"github.com/Klingon-tech/klingnet-pow/internal/utxo"
	"github.com/Klingon-tech/klingnet-pow/pkg/types"
)

// Balance tracks UTXO balances for an address: confirmed spendable value
// already reflected in the UTXO index, plus a preview of value a pending
// mempool transaction would pay the same address once mined.
type Balance struct {
	Confirmed   uint64
	Unconfirmed uint64
}

// BalanceOf sums every UTXO entry locked to addr as Confirmed, and scans
// pool (without draining it) for pending transactions paying addr as
// Unconfirmed. There is no double-counting guard beyond the UTXO index
// itself: a transaction that later gets mined moves its value from
// Unconfirmed to Confirmed on the next call, it does not appear in both
// simultaneously, since mined transactions are pruned from the pool.
func BalanceOf(addr types.PubKeyHash, set *utxo.Set, pool *mempool.Pool) Balance {
	var bal Balance
	for _, u := range set.UnspentOutputsFor(addr) {
		bal.Confirmed += u.Output.Amount
	}
	for _, txn := range pool.Txns() {
		for _, out := range txn.Outputs {
			if out.LockingScript == addr {
				bal.Unconfirmed += out.Amount
			}
		}
	}
	return bal
}
