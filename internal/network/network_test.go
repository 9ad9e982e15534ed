package network

import (
	"testing"

	"github.com/Klingon-tech/klingnet-pow/internal/msg"
	"github.com/Klingon-tech/klingnet-pow/pkg/tx"
	"github.com/Klingon-tech/klingnet-pow/pkg/types"
)

func TestBroadcastTransactionSkipsSender(t *testing.T) {
	n := NewSimNetwork()
	qA, qB, qC := msg.NewQueue(), msg.NewQueue(), msg.NewQueue()
	n.RegisterNode(0, "0000000000000000000000000000000000000a", qA)
	n.RegisterNode(1, "0000000000000000000000000000000000000b", qB)
	n.RegisterNode(2, "0000000000000000000000000000000000000c", qC)

	txn := tx.New(nil, []tx.Output{{Amount: 1}})
	n.BroadcastTransaction(txn, 0)

	if qA.Len() != 0 {
		t.Error("sender should not receive its own broadcast")
	}
	if qB.Len() != 1 || qC.Len() != 1 {
		t.Error("expected all other nodes to receive the broadcast")
	}
}

func TestBroadcastTransactionDeepCopies(t *testing.T) {
	n := NewSimNetwork()
	qA, qB := msg.NewQueue(), msg.NewQueue()
	n.RegisterNode(0, "0000000000000000000000000000000000000a", qA)
	n.RegisterNode(1, "0000000000000000000000000000000000000b", qB)

	txn := tx.New(nil, []tx.Output{{Amount: 1}})
	n.BroadcastTransaction(txn, 0)

	received := qB.Drain()[0].Txn
	received.Outputs[0].Amount = 999
	if txn.Outputs[0].Amount == 999 {
		t.Error("broadcast must deep-copy the transaction, not share structure")
	}
}

func TestNotifyReceiverUnknownAddressIsNoop(t *testing.T) {
	n := NewSimNetwork()
	n.NotifyReceiver(types.PubKeyHash("unknown"), types.Hash("abc"), 0) // must not panic
}

func TestNotifyReceiverEnqueuesReceivedOutput(t *testing.T) {
	n := NewSimNetwork()
	q := msg.NewQueue()
	n.RegisterNode(0, "0000000000000000000000000000000000000a", q)

	n.NotifyReceiver("0000000000000000000000000000000000000a", types.Hash("abc"), 1)

	drained := q.Drain()
	if len(drained) != 1 || drained[0].Kind != msg.KindReceivedOutput {
		t.Fatalf("expected one KindReceivedOutput message, got %v", drained)
	}
	if drained[0].ReceivedVout != 1 {
		t.Errorf("vout = %d, want 1", drained[0].ReceivedVout)
	}
}
