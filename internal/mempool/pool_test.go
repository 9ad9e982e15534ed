package mempool

import (
	"testing"

	"github.com/Klingon-tech/klingnet-pow/pkg/tx"
)

func TestAddAndSnapshotClears(t *testing.T) {
	p := New()
	t1 := tx.New(nil, []tx.Output{{Amount: 1}})
	p.Add(t1)

	if p.Len() != 1 {
		t.Fatalf("len = %d, want 1", p.Len())
	}
	snap := p.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("snapshot len = %d, want 1", len(snap))
	}
	if p.Len() != 0 {
		t.Error("expected pool to be empty after snapshot")
	}
}

func TestPruneConfirmedRemovesMatchingIDs(t *testing.T) {
	p := New()
	t1 := tx.New(nil, []tx.Output{{Amount: 1}})
	t2 := tx.New(nil, []tx.Output{{Amount: 2}})
	p.Add(t1)
	p.Add(t2)

	p.PruneConfirmed([]*tx.Transaction{t1})
	snap := p.Snapshot()
	if len(snap) != 1 || snap[0].ID() != t2.ID() {
		t.Errorf("expected only t2 to remain, got %v", snap)
	}
}

func TestReadmit(t *testing.T) {
	p := New()
	t1 := tx.New(nil, []tx.Output{{Amount: 1}})
	p.Readmit([]*tx.Transaction{t1})
	if p.Len() != 1 {
		t.Errorf("len = %d, want 1", p.Len())
	}
}
