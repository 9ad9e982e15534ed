// Package chain implements the ledger: the chain manager that
// orchestrates validation, UTXO mutation, reorg application, and mempool
// pruning on top of the consensus block tree.
package chain

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-pow/internal/consensus"
	"github.com/Klingon-tech/klingnet-pow/internal/log"
	"github.com/Klingon-tech/klingnet-pow/internal/mempool"
	"github.com/Klingon-tech/klingnet-pow/internal/network"
	"github.com/Klingon-tech/klingnet-pow/internal/utxo"
	"github.com/Klingon-tech/klingnet-pow/pkg/block"
	"github.com/Klingon-tech/klingnet-pow/pkg/tx"
	"github.com/Klingon-tech/klingnet-pow/pkg/types"
)

// Ledger is the per-node chain manager: the consensus tree, the UTXO
// index, and the mempool they keep synchronized.
type Ledger struct {
	Consensus     *consensus.State
	UTXO          *utxo.Set
	Mempool       *mempool.Pool
	LastBlockHash types.Hash
	MiningReward  uint64

	// OnAppend, if set, is called after the genesis install and after
	// every block AppendBlock accepts (pure extension, reorg adoption, or
	// side-chain attachment) so a caller can persist it — the ledger
	// itself stays storage-agnostic, per its in-memory arena note.
	OnAppend func(*block.Block)
}

// New constructs a ledger around an already-installed genesis consensus
// state.
func New(cs *consensus.State, reward uint64) *Ledger {
	return &Ledger{
		Consensus:    cs,
		UTXO:         utxo.New(),
		Mempool:      mempool.New(),
		MiningReward: reward,
	}
}

// AppendGenesis installs the genesis block identically on every node: no
// validation, no spendable inputs to remove, coinbase registered as
// unspent.
func (l *Ledger) AppendGenesis(genesis *block.Block) {
	l.LastBlockHash = genesis.BlockHash
	for _, txn := range genesis.Transactions {
		l.UTXO.AddTransaction(txn)
	}
	l.notifyAppend(genesis)
}

// AppendBlock validates a non-genesis block and, on success, integrates
// it. It returns false (with no state mutated) when the block's parent is
// not in the local tree or validation fails.
func (l *Ledger) AppendBlock(b *block.Block) bool {
	if _, known := l.Consensus.NodeByHash(b.PreviousHash); !known {
		log.Ledger.Debug().Str("block_hash", string(b.BlockHash)).Msg("rejected block with unknown parent")
		return false
	}
	if err := consensus.ValidateBlock(b, l.UTXO, l.MiningReward); err != nil {
		log.Ledger.Debug().Err(err).Str("block_hash", string(b.BlockHash)).Msg("rejected block")
		return false
	}
	l.IntegrateBlock(b)
	l.notifyAppend(b)
	return true
}

func (l *Ledger) notifyAppend(b *block.Block) {
	if l.OnAppend != nil {
		l.OnAppend(b)
	}
}

// IntegrateBlock mutates the UTXO index for a validated block: a pure
// extension of the current tip applies directly; anything else is routed
// through the consensus engine, which returns a reorg plan to apply (or
// an empty plan for a side chain, which mutates nothing).
func (l *Ledger) IntegrateBlock(b *block.Block) {
	plan, attached := l.Consensus.AddBlock(b)
	if !attached {
		// Parent not locally known; such blocks are dropped rather than
		// buffered.
		return
	}

	if b.PreviousHash == l.LastBlockHash {
		l.LastBlockHash = b.BlockHash
		l.applyForward(b)
		l.Mempool.PruneConfirmed(b.Transactions)
		return
	}

	if plan.IsEmpty() {
		// Attached, but still on a side chain: no UTXO mutation.
		return
	}
	l.applyReorg(plan)
}

// applyForward removes the inputs a block's non-coinbase transactions
// consume and registers every transaction's outputs as unspent.
func (l *Ledger) applyForward(b *block.Block) {
	for _, txn := range b.Transactions {
		if txn.IsCoinbase() {
			continue
		}
		for _, in := range txn.Inputs {
			l.UTXO.RemoveOutput(in.PrevTxID, int(in.PrevVout))
		}
	}
	for _, txn := range b.Transactions {
		l.UTXO.AddTransaction(txn)
	}
}

// applyReorg undoes the old best chain down to the common ancestor, then
// redoes the new one.
func (l *Ledger) applyReorg(plan *consensus.ReorgPlan) {
	var undone []*tx.Transaction
	for _, n := range plan.ToUndo {
		undone = append(undone, n.Block.Transactions...)
		for _, txn := range n.Block.Transactions {
			l.UTXO.RemoveTransaction(txn.ID())
		}
		for _, txn := range n.Block.Transactions {
			if txn.IsCoinbase() {
				continue
			}
			for _, in := range txn.Inputs {
				l.UTXO.AddOutput(in.PrevTxID, int(in.PrevVout))
			}
		}
	}

	redone := make(map[types.Hash]struct{})
	for _, n := range plan.ToRedo {
		for _, txn := range n.Block.Transactions {
			redone[txn.ID()] = struct{}{}
			if txn.IsCoinbase() {
				continue
			}
			for _, in := range txn.Inputs {
				l.UTXO.RemoveOutput(in.PrevTxID, int(in.PrevVout))
			}
		}
		for _, txn := range n.Block.Transactions {
			l.UTXO.AddTransaction(txn)
		}
	}

	if len(plan.ToRedo) > 0 {
		l.LastBlockHash = plan.ToRedo[0].Block.BlockHash
	}

	l.readmitReversedTransactions(undone, redone)
}

// readmitReversedTransactions returns transactions that were confirmed on
// the now-discarded branch to the mempool, provided they are not also
// confirmed on the new best chain and every input they reference still
// exists in the post-reorg UTXO. Coinbases are never
// readmitted: they are not ordinary pool transactions.
func (l *Ledger) readmitReversedTransactions(undone []*tx.Transaction, redone map[types.Hash]struct{}) {
	var readmit []*tx.Transaction
	for _, txn := range undone {
		if txn.IsCoinbase() {
			continue
		}
		if _, onNewChain := redone[txn.ID()]; onNewChain {
			continue
		}
		if l.inputsStillExist(txn) {
			readmit = append(readmit, txn)
		}
	}
	l.Mempool.Readmit(readmit)
}

// RedistributeOrphanTransactions prunes the consensus tree via
// IdentifyOrphans and rebroadcasts every transaction from the pruned
// blocks whose inputs still exist in the current UTXO, so they get a
// chance to be re-mined. Stale-input transactions are dropped silently.
// Called opportunistically, not on every block.
func (l *Ledger) RedistributeOrphanTransactions(net network.Network, self network.NodeID) {
	orphans := l.Consensus.IdentifyOrphans()
	for _, b := range orphans {
		for _, txn := range b.Transactions {
			if txn.IsCoinbase() {
				continue
			}
			if !l.inputsStillExist(txn) {
				continue
			}
			net.BroadcastTransaction(txn, self)
		}
	}
}

func (l *Ledger) inputsStillExist(txn *tx.Transaction) bool {
	for _, in := range txn.Inputs {
		if !l.UTXO.HasOutput(in.PrevTxID, int(in.PrevVout)) {
			return false
		}
	}
	return true
}

// AvailableInput is a candidate spendable output discovered while funding
// an outgoing transfer.
type AvailableInput struct {
	TxID   types.Hash
	Vout   int
	Amount uint64
}

// GetAvailableInputs iterates receivedOutputs (the miner's own list of
// outpoints it believes it owns) and accumulates amounts from whichever
// ones are still in the UTXO, stopping once the accumulated amount meets
// or exceeds amountNeeded. There is no coin-selection optimisation:
// first-available wins.
func (l *Ledger) GetAvailableInputs(receivedOutputs []types.Outpoint, amountNeeded uint64) ([]AvailableInput, uint64) {
	var chosen []AvailableInput
	var total uint64

	for _, op := range receivedOutputs {
		out, ok := l.UTXO.GetOutput(op.PrevTxID, int(op.PrevVout))
		if !ok {
			continue
		}
		chosen = append(chosen, AvailableInput{TxID: op.PrevTxID, Vout: int(op.PrevVout), Amount: out.Amount})
		total += out.Amount
		if total >= amountNeeded {
			break
		}
	}
	return chosen, total
}

// ErrInsufficientFunds is returned by callers building a transaction
// when GetAvailableInputs cannot meet the requested amount.
var ErrInsufficientFunds = fmt.Errorf("chain: insufficient funds to cover requested amount")
