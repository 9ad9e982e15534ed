// Package network implements the abstract peer transport: fan-out
// broadcast of transactions and blocks to every node except the sender,
// plus private receiver notification keyed by public-key hash.
package network

import (
	"github.com/Klingon-tech/klingnet-pow/internal/msg"
	"github.com/Klingon-tech/klingnet-pow/pkg/block"
	"github.com/Klingon-tech/klingnet-pow/pkg/tx"
	"github.com/Klingon-tech/klingnet-pow/pkg/types"
)

// NodeID identifies a node within a single network's address space.
type NodeID int

// Network is the abstract transport every miner depends on. SimNetwork is
// the required in-process implementation; P2PNetwork is an enrichment
// wired over real libp2p pubsub.
type Network interface {
	BroadcastTransaction(txn *tx.Transaction, sender NodeID)
	BroadcastBlock(b *block.Block, sender NodeID)
	NotifyReceiver(receiver types.PubKeyHash, txid types.Hash, vout int)
}

// SimNetwork is an abstract in-process broadcast channel: every node except
// the sender receives a deep copy of each payload, delivered through its
// own FIFO queue. A global public-key-hash -> node index map lets a
// sender privately notify a receiver of a new spendable output.
type SimNetwork struct {
	queues    map[NodeID]*msg.Queue
	addresses map[types.PubKeyHash]NodeID
}

// NewSimNetwork returns an empty simulated network.
func NewSimNetwork() *SimNetwork {
	return &SimNetwork{
		queues:    make(map[NodeID]*msg.Queue),
		addresses: make(map[types.PubKeyHash]NodeID),
	}
}

// RegisterNode adds a node to the network's address book. queue is the
// node's own inbound message queue; pubKeyHash is its address.
func (n *SimNetwork) RegisterNode(id NodeID, pubKeyHash types.PubKeyHash, queue *msg.Queue) {
	n.queues[id] = queue
	n.addresses[pubKeyHash] = id
}

// BroadcastTransaction enqueues a deep copy of txn to every registered
// node except sender.
func (n *SimNetwork) BroadcastTransaction(txn *tx.Transaction, sender NodeID) {
	for id, q := range n.queues {
		if id == sender {
			continue
		}
		q.Enqueue(msg.Message{Kind: msg.KindTxn, Txn: txn.Clone()})
	}
}

// BroadcastBlock enqueues a deep copy of b to every registered node
// except sender.
func (n *SimNetwork) BroadcastBlock(b *block.Block, sender NodeID) {
	for id, q := range n.queues {
		if id == sender {
			continue
		}
		q.Enqueue(msg.Message{Kind: msg.KindBlock, Block: b.Clone()})
	}
}

// NotifyReceiver privately informs the node owning receiver's address
// that (txid, vout) is now theirs to spend. A receiver with no
// registered address is a silent no-op (simulation driver error, not a
// protocol one).
func (n *SimNetwork) NotifyReceiver(receiver types.PubKeyHash, txid types.Hash, vout int) {
	id, ok := n.addresses[receiver]
	if !ok {
		return
	}
	q, ok := n.queues[id]
	if !ok {
		return
	}
	q.Enqueue(msg.Message{Kind: msg.KindReceivedOutput, ReceivedTxID: txid, ReceivedVout: vout})
}
