// Package miner implements the cooperative mining loop: nonce search,
// block-template assembly, and inbound message-queue servicing. Each
// node runs exactly one Miner on its own goroutine; the message queue is
// the only state touched from another goroutine.
package miner

import (
	"time"

	"github.com/Klingon-tech/klingnet-pow/internal/chain"
	"github.com/Klingon-tech/klingnet-pow/internal/consensus"
	"github.com/Klingon-tech/klingnet-pow/internal/log"
	"github.com/Klingon-tech/klingnet-pow/internal/msg"
	"github.com/Klingon-tech/klingnet-pow/internal/network"
	"github.com/Klingon-tech/klingnet-pow/pkg/block"
	"github.com/Klingon-tech/klingnet-pow/pkg/crypto"
	"github.com/Klingon-tech/klingnet-pow/pkg/tx"
	"github.com/Klingon-tech/klingnet-pow/pkg/types"
)

// emptyMempoolSleep is how long the loop rests when there is nothing to
// mine, before draining the queue and checking again.
const emptyMempoolSleep = 10 * time.Millisecond

// Miner is a single node: its identity key, its chain manager, its
// inbound message queue, and the list of outpoints it believes it owns.
type Miner struct {
	ID         network.NodeID
	PrivateKey *crypto.PrivateKey
	PubKeyHash types.PubKeyHash

	Ledger *chain.Ledger
	Queue  *msg.Queue
	Net    network.Network

	Bits            int
	MiningReward    uint64
	MerkleTreeArity int

	ReceivedOutputs []types.Outpoint

	running    bool
	stopMining bool
}

// New constructs a miner for a node already registered with net under
// id/pubKeyHash.
func New(id network.NodeID, priv *crypto.PrivateKey, ledger *chain.Ledger, queue *msg.Queue, net network.Network, bits int, miningReward uint64, merkleArity int) *Miner {
	return &Miner{
		ID:              id,
		PrivateKey:      priv,
		PubKeyHash:      crypto.PubKeyHash(priv.PublicKeyHex()),
		Ledger:          ledger,
		Queue:           queue,
		Net:             net,
		Bits:            bits,
		MiningReward:    miningReward,
		MerkleTreeArity: merkleArity,
	}
}

// Run executes the miner loop until Stop is called. Intended to be
// launched as `go m.Run()`.
func (m *Miner) Run() {
	m.running = true
	for m.running {
		m.tick()
	}
}

// Stop requests the loop exit at its next iteration boundary.
func (m *Miner) Stop() {
	m.running = false
}

// tick is one iteration of the outer mining loop.
func (m *Miner) tick() {
	if m.Ledger.Mempool.Len() == 0 {
		time.Sleep(emptyMempoolSleep)
		m.drainQueue()
		return
	}

	snapshot := m.Ledger.Mempool.Snapshot()
	coinbase, err := tx.CreateCoinbaseTransaction(m.PrivateKey, m.PubKeyHash, m.MiningReward)
	if err != nil {
		log.Miner.Error().Err(err).Msg("failed to build coinbase transaction")
		return
	}

	template := block.New(append([]*tx.Transaction{coinbase}, snapshot...), m.Ledger.LastBlockHash, m.Bits, m.MerkleTreeArity)
	m.stopMining = false
	m.runPoW(template)
}

// runPoW performs the cooperative nonce search:
// checkpointing every 1000 iterations to drain the queue, and abandoning
// the template the instant stopMining has been raised by a successfully
// handled incoming block.
func (m *Miner) runPoW(template *block.Block) {
	target := Target(template.DifficultyBits)

	var nonce uint64
	for {
		if m.stopMining {
			return
		}

		hash := template.HashAt(nonce)
		if meetsTarget(string(hash), target) {
			template.Nonce = nonce
			template.BlockHash = hash
			if m.Ledger.AppendBlock(template) {
				m.Net.BroadcastBlock(template, m.ID)
			}
			return
		}

		nonce++
		if nonce%checkpointInterval == 0 {
			m.drainQueue()
			if m.stopMining {
				return
			}
		}
	}
}

// drainQueue handles every message currently queued.
func (m *Miner) drainQueue() {
	for _, message := range m.Queue.Drain() {
		switch message.Kind {
		case msg.KindTxn:
			m.handleIncomingTransaction(message.Txn)
		case msg.KindBlock:
			m.handleIncomingBlock(message.Block)
		case msg.KindNewTxn:
			m.handleNewTxnRequest(message.NewTxnReceiver, message.NewTxnAmount)
		case msg.KindReceivedOutput:
			m.ReceivedOutputs = append(m.ReceivedOutputs, types.Outpoint{PrevTxID: message.ReceivedTxID, PrevVout: int64(message.ReceivedVout)})
		}
	}
}

// handleIncomingTransaction validates a peer's transaction and, if
// valid, pools it. Invalid transactions are dropped silently.
func (m *Miner) handleIncomingTransaction(txn *tx.Transaction) {
	if txn == nil {
		return
	}
	if _, err := consensus.ValidateTransaction(txn, m.Ledger.UTXO); err != nil {
		log.Miner.Debug().Err(err).Str("txn_id", string(txn.ID())).Msg("rejected incoming transaction")
		return
	}
	m.Ledger.Mempool.Add(txn)
}

// handleIncomingBlock integrates a peer's block and, on success, raises
// stopMining so the current PoW search abandons its template.
func (m *Miner) handleIncomingBlock(b *block.Block) {
	if b == nil {
		return
	}
	if m.Ledger.AppendBlock(b) {
		m.stopMining = true
	}
}

// handleNewTxnRequest builds and broadcasts an outgoing transfer, per
// its ("new_txn", ...) handling. Insufficient funds is a silent
// no-op (nothing is broadcast).
func (m *Miner) handleNewTxnRequest(receiver types.PubKeyHash, amount uint64) {
	txn, hasChange, ok := m.createTransaction(receiver, amount)
	if !ok {
		return
	}
	m.Ledger.Mempool.Add(txn)
	m.Net.BroadcastTransaction(txn, m.ID)
	m.Net.NotifyReceiver(receiver, txn.ID(), receiverOutputIndex(txn, receiver))
	if hasChange {
		// The sender owns its own change output directly, the same way the
		// original prototype's create_transaction records
		// (new_txn.transaction_id, len(outputs)-1) in received_transaction_ids
		// without waiting on a NotifyReceiver round trip.
		m.ReceivedOutputs = append(m.ReceivedOutputs, types.Outpoint{
			PrevTxID: txn.ID(),
			PrevVout: int64(len(txn.Outputs) - 1),
		})
	}
}

// createTransaction funds an outgoing transfer via GetAvailableInputs,
// appending a change output paying the miner's own address if any change
// remains. Returns ok=false if funds are insufficient. hasChange reports
// whether a change output was appended, so the caller can credit it to
// ReceivedOutputs.
func (m *Miner) createTransaction(receiver types.PubKeyHash, amount uint64) (txn *tx.Transaction, hasChange, ok bool) {
	chosen, total := m.Ledger.GetAvailableInputs(m.ReceivedOutputs, amount)
	if total < amount {
		return nil, false, false
	}

	inputs := make([]tx.Input, len(chosen))
	for i, c := range chosen {
		inputs[i] = tx.Input{Outpoint: types.Outpoint{PrevTxID: c.TxID, PrevVout: int64(c.Vout)}}
	}

	outputs := []tx.Output{{Amount: amount, LockingScript: receiver}}
	hasChange = total-amount > 0
	if hasChange {
		outputs = append(outputs, tx.Output{Amount: total - amount, LockingScript: m.PubKeyHash})
	}

	built, err := tx.BuildSpendingTransaction(m.PrivateKey, inputs, outputs)
	if err != nil {
		log.Miner.Error().Err(err).Msg("failed to build spending transaction")
		return nil, false, false
	}
	return built, hasChange, true
}

// receiverOutputIndex finds the output index actually paying receiver,
// rather than assuming index 0 (the original prototype's hardcoded-index
// simplification, corrected here per the design notes).
func receiverOutputIndex(txn *tx.Transaction, receiver types.PubKeyHash) int {
	for i, out := range txn.Outputs {
		if out.LockingScript == receiver {
			return i
		}
	}
	return 0
}
