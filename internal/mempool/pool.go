// Package mempool holds the transactions a node has admitted but not yet
// seen included in a mined block.
package mempool

import (
	"sync"

	"github.com/Klingon-tech/klingnet-pow/pkg/tx"
	"github.com/Klingon-tech/klingnet-pow/pkg/types"
)

// Pool is owned by a single miner goroutine in steady state, but the
// mutex lets tests and diagnostics inspect it from outside without racing
// the owner.
type Pool struct {
	mu  sync.Mutex
	txs []*tx.Transaction
}

// New returns an empty pool.
func New() *Pool {
	return &Pool{}
}

// Add appends txn to the pool.
func (p *Pool) Add(txn *tx.Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.txs = append(p.txs, txn)
}

// Snapshot returns the current contents and clears the pool, for the
// miner to build a block template from.
func (p *Pool) Snapshot() []*tx.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	snap := p.txs
	p.txs = nil
	return snap
}

// Txns returns a copy of the pool's current contents without clearing
// it, for read-only inspection (e.g. a balance preview) that must not
// race the miner's own Snapshot/Add calls.
func (p *Pool) Txns() []*tx.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*tx.Transaction, len(p.txs))
	copy(out, p.txs)
	return out
}

// Len reports how many transactions are currently pooled.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.txs)
}

// PruneConfirmed removes any pooled transaction whose id matches one in
// confirmed, called after a block integrates.
func (p *Pool) PruneConfirmed(confirmed []*tx.Transaction) {
	if len(confirmed) == 0 {
		return
	}
	ids := make(map[types.Hash]struct{}, len(confirmed))
	for _, c := range confirmed {
		ids[c.ID()] = struct{}{}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.txs[:0]
	for _, t := range p.txs {
		if _, ok := ids[t.ID()]; !ok {
			kept = append(kept, t)
		}
	}
	p.txs = kept
}

// Readmit pushes transactions back onto the pool (used when a reorg
// reverses blocks whose transactions still have valid inputs).
func (p *Pool) Readmit(txns []*tx.Transaction) {
	if len(txns) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.txs = append(p.txs, txns...)
}
