// Package msg defines the tagged messages miners exchange and the
// mutex-guarded FIFO queue each node drains them from. The queue is the
// only piece of a node's state touched by more than one goroutine; every
// other field is owned exclusively by the node's own miner loop.
package msg

import (
	"sync"

	"github.com/Klingon-tech/klingnet-pow/pkg/block"
	"github.com/Klingon-tech/klingnet-pow/pkg/tx"
	"github.com/Klingon-tech/klingnet-pow/pkg/types"
)

// Kind tags the payload carried by a Message.
type Kind int

const (
	// KindTxn carries a transaction broadcast by a peer.
	KindTxn Kind = iota
	// KindBlock carries a block broadcast by a peer.
	KindBlock
	// KindNewTxn is a locally-injected driver request asking the
	// receiving node to build and broadcast an outgoing transfer.
	KindNewTxn
	// KindReceivedOutput privately informs a node that it now owns a
	// spendable output, so it can credit itself without scanning.
	KindReceivedOutput
)

// Message is one entry in a node's inbound queue.
type Message struct {
	Kind Kind

	Txn   *tx.Transaction
	Block *block.Block

	NewTxnReceiver types.PubKeyHash
	NewTxnAmount   uint64

	ReceivedTxID types.Hash
	ReceivedVout int
}

// Queue is a per-node FIFO. Enqueue is called by peers and by the
// top-level driver; Drain is called only by the owning miner loop.
type Queue struct {
	mu    sync.Mutex
	items []Message
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends m to the back of the queue.
func (q *Queue) Enqueue(m Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, m)
}

// Drain removes and returns every message currently queued, in FIFO
// order. A fresh, empty backing slice replaces the drained one so the
// caller's slice cannot alias future enqueues.
func (q *Queue) Drain() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	drained := q.items
	q.items = nil
	return drained
}

// Len reports how many messages are currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
