package miner

import (
	"testing"

	"github.com/Klingon-tech/klingnet-pow/internal/chain"
	"github.com/Klingon-tech/klingnet-pow/internal/consensus"
	"github.com/Klingon-tech/klingnet-pow/internal/msg"
	"github.com/Klingon-tech/klingnet-pow/internal/network"
	"github.com/Klingon-tech/klingnet-pow/pkg/block"
	"github.com/Klingon-tech/klingnet-pow/pkg/crypto"
	"github.com/Klingon-tech/klingnet-pow/pkg/tx"
	"github.com/Klingon-tech/klingnet-pow/pkg/types"
)

func TestTargetShape(t *testing.T) {
	target := Target(3)
	want := "0001" + repeatZero(61)
	if target != want {
		t.Errorf("Target(3) = %q, want %q", target, want)
	}
}

func repeatZero(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '0'
	}
	return string(b)
}

func mustKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	k, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return k
}

func newTestMiner(t *testing.T, bits int) (*Miner, *block.Block) {
	t.Helper()
	priv := mustKey(t)
	cb, err := tx.CreateCoinbaseTransaction(priv, crypto.PubKeyHash(priv.PublicKeyHex()), 50)
	if err != nil {
		t.Fatalf("create coinbase: %v", err)
	}
	genesis := block.New([]*tx.Transaction{cb}, types.NullHash, bits, 2)
	genesis.BlockHash = genesis.Hash()

	cs := consensus.NewState(genesis, 100)
	ledger := chain.New(cs, 50)
	ledger.AppendGenesis(genesis)

	net := network.NewSimNetwork()
	q := msg.NewQueue()
	net.RegisterNode(0, crypto.PubKeyHash(priv.PublicKeyHex()), q)

	m := New(0, priv, ledger, q, net, bits, 50, 2)
	return m, genesis
}

func TestRunPoWMinesAndAppendsBlock(t *testing.T) {
	m, genesis := newTestMiner(t, 0)
	cb, err := tx.CreateCoinbaseTransaction(m.PrivateKey, m.PubKeyHash, 50)
	if err != nil {
		t.Fatalf("create coinbase: %v", err)
	}
	template := block.New([]*tx.Transaction{cb}, genesis.BlockHash, 0, 2)

	m.runPoW(template)

	if m.Ledger.LastBlockHash != template.BlockHash {
		t.Fatalf("expected mined block to become the new tip, last_block_hash=%s", m.Ledger.LastBlockHash)
	}
	if template.BlockHash != template.Hash() {
		t.Error("expected stored block hash to match recomputed hash")
	}
}

func TestRunPoWAbandonsWhenStopMiningSet(t *testing.T) {
	m, genesis := newTestMiner(t, 63) // effectively unreachable target within this test
	template := block.New(genesis.Transactions, genesis.BlockHash, 63, 2)
	m.stopMining = true

	m.runPoW(template)

	if m.Ledger.LastBlockHash != genesis.BlockHash {
		t.Error("expected no block to be appended once stop_mining was already set")
	}
}

func TestHandleIncomingTransactionPoolsValid(t *testing.T) {
	m, genesis := newTestMiner(t, 0)
	cb := genesis.Transactions[0]

	spend, err := tx.BuildSpendingTransaction(m.PrivateKey,
		[]tx.Input{{Outpoint: types.Outpoint{PrevTxID: cb.ID(), PrevVout: 0}}},
		[]tx.Output{{Amount: 10, LockingScript: m.PubKeyHash}})
	if err != nil {
		t.Fatalf("build spending txn: %v", err)
	}

	m.handleIncomingTransaction(spend)
	if m.Ledger.Mempool.Len() != 1 {
		t.Errorf("expected valid transaction to be pooled, pool len = %d", m.Ledger.Mempool.Len())
	}
}

func TestHandleIncomingTransactionDropsInvalid(t *testing.T) {
	m, _ := newTestMiner(t, 0)
	bogus := tx.New(
		[]tx.Input{{Outpoint: types.Outpoint{PrevTxID: types.Hash("nonexistent")[:8], PrevVout: 0}}},
		[]tx.Output{{Amount: 1}},
	)

	m.handleIncomingTransaction(bogus)
	if m.Ledger.Mempool.Len() != 0 {
		t.Error("expected invalid transaction to be dropped silently")
	}
}

func TestCreateTransactionInsufficientFunds(t *testing.T) {
	m, _ := newTestMiner(t, 0)
	_, _, ok := m.createTransaction(types.PubKeyHash("0000000000000000000000000000000000000a"), 999999)
	if ok {
		t.Error("expected createTransaction to fail with no received outputs")
	}
}

func TestCreateTransactionWithChange(t *testing.T) {
	m, genesis := newTestMiner(t, 0)
	cb := genesis.Transactions[0]
	m.ReceivedOutputs = []types.Outpoint{{PrevTxID: cb.ID(), PrevVout: 0}}

	receiver := types.PubKeyHash("0000000000000000000000000000000000000a")
	txn, hasChange, ok := m.createTransaction(receiver, 10)
	if !ok {
		t.Fatal("expected createTransaction to succeed")
	}
	if !hasChange {
		t.Error("expected hasChange to be true when change remains")
	}
	if len(txn.Outputs) != 2 {
		t.Fatalf("expected a payment output and a change output, got %d", len(txn.Outputs))
	}
	if txn.Outputs[0].Amount != 10 || txn.Outputs[0].LockingScript != receiver {
		t.Error("expected first output to pay the receiver the requested amount")
	}
	if txn.Outputs[1].Amount != 40 || txn.Outputs[1].LockingScript != m.PubKeyHash {
		t.Error("expected change output to pay the miner the remainder")
	}
}

func TestCreateTransactionExactAmountNoChange(t *testing.T) {
	m, genesis := newTestMiner(t, 0)
	cb := genesis.Transactions[0]
	m.ReceivedOutputs = []types.Outpoint{{PrevTxID: cb.ID(), PrevVout: 0}}

	receiver := types.PubKeyHash("0000000000000000000000000000000000000a")
	txn, hasChange, ok := m.createTransaction(receiver, 50)
	if !ok {
		t.Fatal("expected createTransaction to succeed")
	}
	if hasChange {
		t.Error("expected hasChange to be false when amount matches exactly")
	}
	if len(txn.Outputs) != 1 {
		t.Errorf("expected no change output when amount matches exactly, got %d outputs", len(txn.Outputs))
	}
}

func TestHandleNewTxnRequestRecordsOwnChangeOutput(t *testing.T) {
	m, genesis := newTestMiner(t, 0)
	cb := genesis.Transactions[0]
	m.ReceivedOutputs = []types.Outpoint{{PrevTxID: cb.ID(), PrevVout: 0}}

	receiver := types.PubKeyHash("0000000000000000000000000000000000000a")
	m.handleNewTxnRequest(receiver, 10)

	pooled := m.Ledger.Mempool.Txns()
	if len(pooled) != 1 {
		t.Fatal("expected the spending transaction to be pooled")
	}
	txn := pooled[0]

	found := false
	for _, op := range m.ReceivedOutputs {
		if op.PrevTxID == txn.ID() && op.PrevVout == int64(len(txn.Outputs)-1) {
			found = true
		}
	}
	if !found {
		t.Error("expected the sender's own change output to be recorded in ReceivedOutputs")
	}
}

func TestReceiverOutputIndexScansByLockingScript(t *testing.T) {
	receiver := types.PubKeyHash("0000000000000000000000000000000000000a")
	txn := tx.New(nil, []tx.Output{
		{Amount: 40, LockingScript: "0000000000000000000000000000000000000b"}, // change at index 0
		{Amount: 10, LockingScript: receiver},                                  // payment at index 1
	})
	if idx := receiverOutputIndex(txn, receiver); idx != 1 {
		t.Errorf("receiverOutputIndex = %d, want 1", idx)
	}
}
