package chain

import (
	"testing"

	"github.com/Klingon-tech/klingnet-pow/internal/consensus"
	"github.com/Klingon-tech/klingnet-pow/internal/msg"
	"github.com/Klingon-tech/klingnet-pow/internal/network"
	"github.com/Klingon-tech/klingnet-pow/pkg/block"
	"github.com/Klingon-tech/klingnet-pow/pkg/crypto"
	"github.com/Klingon-tech/klingnet-pow/pkg/tx"
	"github.com/Klingon-tech/klingnet-pow/pkg/types"
)

func mustKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func mineCoinbaseBlock(t *testing.T, priv *crypto.PrivateKey, previous types.Hash, extra []*tx.Transaction, reward uint64) *block.Block {
	t.Helper()
	cb, err := tx.CreateCoinbaseTransaction(priv, crypto.PubKeyHash(priv.PublicKeyHex()), reward)
	if err != nil {
		t.Fatalf("create coinbase: %v", err)
	}
	txns := append([]*tx.Transaction{cb}, extra...)
	b := block.New(txns, previous, 0, 2)
	b.BlockHash = b.Hash()
	return b
}

func newGenesisLedger(t *testing.T) (*Ledger, *crypto.PrivateKey, *block.Block) {
	t.Helper()
	priv := mustKey(t)
	genesis := mineCoinbaseBlock(t, priv, types.NullHash, nil, 50)
	cs := consensus.NewState(genesis, 100)
	l := New(cs, 50)
	l.AppendGenesis(genesis)
	return l, priv, genesis
}

func TestAppendGenesisRegistersCoinbaseOutput(t *testing.T) {
	l, priv, genesis := newGenesisLedger(t)
	cb := genesis.Transactions[0]
	if !l.UTXO.HasOutput(cb.ID(), 0) {
		t.Error("expected genesis coinbase output to be spendable")
	}
	if l.LastBlockHash != genesis.BlockHash {
		t.Error("expected last_block_hash to equal genesis hash")
	}
	_ = priv
}

func TestAppendBlockPureExtension(t *testing.T) {
	l, priv, genesis := newGenesisLedger(t)
	b1 := mineCoinbaseBlock(t, priv, genesis.BlockHash, nil, 50)

	if ok := l.AppendBlock(b1); !ok {
		t.Fatal("expected pure extension block to be accepted")
	}
	if l.LastBlockHash != b1.BlockHash {
		t.Error("expected last_block_hash to advance")
	}
	if !l.UTXO.HasOutput(b1.Transactions[0].ID(), 0) {
		t.Error("expected new coinbase output to be spendable")
	}
}

func TestAppendBlockRejectsInvalidBlock(t *testing.T) {
	l, priv, genesis := newGenesisLedger(t)
	b1 := mineCoinbaseBlock(t, priv, genesis.BlockHash, nil, 999) // over-rewarded
	if ok := l.AppendBlock(b1); ok {
		t.Fatal("expected over-rewarded coinbase block to be rejected")
	}
	if l.LastBlockHash != genesis.BlockHash {
		t.Error("expected last_block_hash unchanged after rejection")
	}
}

func TestIntegrateBlockSpendAndChange(t *testing.T) {
	l, priv, genesis := newGenesisLedger(t)
	cb := genesis.Transactions[0]
	recipient := mustKey(t)
	recipientHash := crypto.PubKeyHash(recipient.PublicKeyHex())

	spend, err := tx.BuildSpendingTransaction(priv,
		[]tx.Input{{Outpoint: types.Outpoint{PrevTxID: cb.ID(), PrevVout: 0}}},
		[]tx.Output{
			{Amount: 10, LockingScript: recipientHash},
			{Amount: 40, LockingScript: crypto.PubKeyHash(priv.PublicKeyHex())},
		})
	if err != nil {
		t.Fatalf("build spending txn: %v", err)
	}

	b1 := mineCoinbaseBlock(t, priv, genesis.BlockHash, []*tx.Transaction{spend}, 50)
	if ok := l.AppendBlock(b1); !ok {
		t.Fatal("expected block to validate")
	}

	if l.UTXO.HasOutput(cb.ID(), 0) {
		t.Error("expected spent genesis output to be removed")
	}
	if !l.UTXO.HasOutput(spend.ID(), 0) || !l.UTXO.HasOutput(spend.ID(), 1) {
		t.Error("expected both spend outputs to be spendable")
	}
}

func TestReorgAppliesUndoAndRedo(t *testing.T) {
	l, priv, genesis := newGenesisLedger(t)

	a1 := mineCoinbaseBlock(t, priv, genesis.BlockHash, nil, 50)
	l.AppendBlock(a1)

	b1 := mineCoinbaseBlock(t, priv, genesis.BlockHash, nil, 50)
	l.IntegrateBlock(b1) // side chain, skip validation for simplicity

	b2 := mineCoinbaseBlock(t, priv, b1.BlockHash, nil, 50)
	l.IntegrateBlock(b2) // triggers reorg: b1,b2 overtake a1

	if l.LastBlockHash != b2.BlockHash {
		t.Errorf("last_block_hash = %s, want %s", l.LastBlockHash, b2.BlockHash)
	}
	if l.UTXO.HasOutput(a1.Transactions[0].ID(), 0) {
		t.Error("expected a1's coinbase to be removed after reorg undo")
	}
	if !l.UTXO.HasOutput(b1.Transactions[0].ID(), 0) || !l.UTXO.HasOutput(b2.Transactions[0].ID(), 0) {
		t.Error("expected b1 and b2 coinbase outputs to be spendable after reorg redo")
	}
}

func TestReorgReadmitsReversedTransactionsWithValidInputs(t *testing.T) {
	l, priv, genesis := newGenesisLedger(t)
	cb := genesis.Transactions[0]
	recipient := mustKey(t)

	spend, err := tx.BuildSpendingTransaction(priv,
		[]tx.Input{{Outpoint: types.Outpoint{PrevTxID: cb.ID(), PrevVout: 0}}},
		[]tx.Output{{Amount: 10, LockingScript: crypto.PubKeyHash(recipient.PublicKeyHex())}})
	if err != nil {
		t.Fatalf("build spending txn: %v", err)
	}

	a1 := mineCoinbaseBlock(t, priv, genesis.BlockHash, []*tx.Transaction{spend}, 50)
	l.AppendBlock(a1)

	b1 := mineCoinbaseBlock(t, priv, genesis.BlockHash, nil, 50)
	l.IntegrateBlock(b1) // side chain
	b2 := mineCoinbaseBlock(t, priv, b1.BlockHash, nil, 50)
	l.IntegrateBlock(b2) // reorg: b-chain overtakes a1, which carried spend

	if l.Mempool.Len() != 1 {
		t.Fatalf("expected reversed spend to be readmitted to mempool, got %d entries", l.Mempool.Len())
	}
	if l.Mempool.Snapshot()[0].ID() != spend.ID() {
		t.Error("expected the readmitted transaction to be the reversed spend")
	}
	if !l.UTXO.HasOutput(cb.ID(), 0) {
		t.Error("expected genesis coinbase output to be spendable again after undo")
	}
}

func TestGetAvailableInputsStopsOnceSatisfied(t *testing.T) {
	l, priv, genesis := newGenesisLedger(t)
	cb := genesis.Transactions[0]

	a1 := mineCoinbaseBlock(t, priv, genesis.BlockHash, nil, 50)
	l.AppendBlock(a1)

	received := []types.Outpoint{
		{PrevTxID: cb.ID(), PrevVout: 0},
		{PrevTxID: a1.Transactions[0].ID(), PrevVout: 0},
	}
	chosen, total := l.GetAvailableInputs(received, 50)
	if total != 50 {
		t.Errorf("total = %d, want 50", total)
	}
	if len(chosen) != 1 {
		t.Errorf("expected first-available-wins to stop after one input, got %d", len(chosen))
	}
}

func TestGetAvailableInputsInsufficientFunds(t *testing.T) {
	l, priv, genesis := newGenesisLedger(t)
	cb := genesis.Transactions[0]
	_ = priv

	received := []types.Outpoint{{PrevTxID: cb.ID(), PrevVout: 0}}
	_, total := l.GetAvailableInputs(received, 999)
	if total >= 999 {
		t.Errorf("expected insufficient total, got %d", total)
	}
}

func TestRedistributeOrphanTransactions(t *testing.T) {
	l, priv, genesis := newGenesisLedger(t)

	a1 := mineCoinbaseBlock(t, priv, genesis.BlockHash, nil, 50)
	l.AppendBlock(a1)
	side := mineCoinbaseBlock(t, priv, genesis.BlockHash, nil, 50)
	l.IntegrateBlock(side)

	// Drop orphan_threshold low enough to force pruning on the next extension.
	l.Consensus.OrphanThreshold = 1
	a2 := mineCoinbaseBlock(t, priv, a1.BlockHash, nil, 50)
	l.AppendBlock(a2)

	net := network.NewSimNetwork()
	net.RegisterNode(0, "0000000000000000000000000000000000000a", msg.NewQueue())
	net.RegisterNode(1, "0000000000000000000000000000000000000b", msg.NewQueue())

	l.RedistributeOrphanTransactions(net, 1) // side's coinbase has no spendable inputs to rebroadcast (it's coinbase), expect no panic
}
