// Package utxo tracks spendable transaction outputs. The index is a flat
// map keyed by transaction id; the Python prototype's prefix-trie variant
// is a non-observable performance detail, so a plain map is sufficient
// here.
package utxo

import (
	"sync"

	"github.com/Klingon-tech/klingnet-pow/pkg/tx"
	"github.com/Klingon-tech/klingnet-pow/pkg/types"
)

// entry pairs a transaction with the set of its output indices that are
// still unspent.
type entry struct {
	txn          *tx.Transaction
	unspentVouts map[int]struct{}
}

// Set is the UTXO index owned by a single node. It is read and mutated
// only by the node's own goroutine (ledger integration, reorg undo/redo),
// so it does not need internal locking for that path; the mutex here
// guards the rare case of an RPC-style read from another goroutine and
// costs nothing on the hot single-writer path.
type Set struct {
	mu      sync.RWMutex
	entries map[types.Hash]*entry
}

// New returns an empty UTXO set.
func New() *Set {
	return &Set{entries: make(map[types.Hash]*entry)}
}

// AddTransaction registers all of txn's outputs as unspent, overwriting
// any prior entry for the same transaction id.
func (s *Set) AddTransaction(txn *tx.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vouts := make(map[int]struct{}, len(txn.Outputs))
	for i := range txn.Outputs {
		vouts[i] = struct{}{}
	}
	s.entries[txn.ID()] = &entry{txn: txn, unspentVouts: vouts}
}

// AddOutput marks a single output index as unspent again (reorg undo). A
// missing transaction entry is a silent no-op: the transaction may have
// been pruned or never integrated on this branch.
func (s *Set) AddOutput(txid types.Hash, vout int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[txid]
	if !ok {
		return
	}
	e.unspentVouts[vout] = struct{}{}
}

// RemoveOutput marks a single output index as spent. A missing entry or
// vout is a silent no-op.
func (s *Set) RemoveOutput(txid types.Hash, vout int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[txid]
	if !ok {
		return
	}
	delete(e.unspentVouts, vout)
}

// RemoveTransaction deletes a transaction's entire entry (reorg undo of
// every transaction in a discarded block).
func (s *Set) RemoveTransaction(txid types.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, txid)
}

// HasOutput reports whether (txid, vout) is currently unspent.
func (s *Set) HasOutput(txid types.Hash, vout int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[txid]
	if !ok {
		return false
	}
	_, unspent := e.unspentVouts[vout]
	return unspent
}

// GetTransaction returns the transaction registered under txid, if any.
func (s *Set) GetTransaction(txid types.Hash) (*tx.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[txid]
	if !ok {
		return nil, false
	}
	return e.txn, true
}

// GetOutput returns the Output at (txid, vout), and whether it exists and
// is currently unspent.
func (s *Set) GetOutput(txid types.Hash, vout int) (tx.Output, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[txid]
	if !ok {
		return tx.Output{}, false
	}
	if _, unspent := e.unspentVouts[vout]; !unspent {
		return tx.Output{}, false
	}
	if vout < 0 || vout >= len(e.txn.Outputs) {
		return tx.Output{}, false
	}
	return e.txn.Outputs[vout], true
}

// UnspentOutputsFor returns every currently-unspent (txid, vout, output)
// belonging to lockingScript, in no particular order. Used by
// wallet.BalanceOf to compute a balance.
func (s *Set) UnspentOutputsFor(lockingScript types.PubKeyHash) []UnspentOutput {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []UnspentOutput
	for txid, e := range s.entries {
		for vout := range e.unspentVouts {
			if vout < 0 || vout >= len(e.txn.Outputs) {
				continue
			}
			o := e.txn.Outputs[vout]
			if o.LockingScript == lockingScript {
				out = append(out, UnspentOutput{TxID: txid, Vout: vout, Output: o})
			}
		}
	}
	return out
}

// UnspentOutput is a single spendable (outpoint, output) pair.
type UnspentOutput struct {
	TxID   types.Hash
	Vout   int
	Output tx.Output
}
