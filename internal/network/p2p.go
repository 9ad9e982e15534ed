package network

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/Klingon-tech/klingnet-pow/internal/log"
	"github.com/Klingon-tech/klingnet-pow/internal/msg"
	"github.com/Klingon-tech/klingnet-pow/pkg/block"
	"github.com/Klingon-tech/klingnet-pow/pkg/tx"
	"github.com/Klingon-tech/klingnet-pow/pkg/types"
	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	pubsubpb "github.com/libp2p/go-libp2p-pubsub/pb"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"
	"github.com/zeebo/blake3"
)

// GossipSub topic names. A single flat topic per kind is enough for a
// static, fully-meshed peer set (no per-chain sub-topics, no discovery).
const (
	topicTransactions = "/klingnet-pow/tx/1.0.0"
	topicBlocks       = "/klingnet-pow/block/1.0.0"
	topicReceived     = "/klingnet-pow/received/1.0.0"
)

// receivedOutputWire is the wire payload for a private receiver
// notification, published on topicReceived and filtered locally by
// Receiver: gossipsub has no concept of a private channel, so every peer
// sees every notification and discards the ones not addressed to it.
type receivedOutputWire struct {
	Receiver types.PubKeyHash `json:"receiver"`
	TxID     types.Hash       `json:"txid"`
	Vout     int              `json:"vout"`
}

// P2PNetwork is the real-transport enrichment over SimNetwork: the same
// Network interface, backed by a libp2p host and gossipsub topics instead
// of in-process queues. Peers are a static, pre-configured list (no
// discovery); there is no DHT, no mDNS, and no
// handshake protocol, since a single static network of trusted simulation
// peers needs none of that.
type P2PNetwork struct {
	self  types.PubKeyHash
	queue *msg.Queue

	host   host.Host
	pubsub *pubsub.PubSub

	topicTx       *pubsub.Topic
	topicBlock    *pubsub.Topic
	topicReceived *pubsub.Topic

	subTx       *pubsub.Subscription
	subBlock    *pubsub.Subscription
	subReceived *pubsub.Subscription

	ctx    context.Context
	cancel context.CancelFunc
}

// messageIDFn derives a gossipsub message ID from the blake3 digest of
// the wire payload, trading the library's default SHA256 id for the
// faster hash the rest of the pack's P2P stacks settle on for gossip
// dedup. This is purely a transport-level identifier: it never touches
// block or transaction hashing.
func messageIDFn(m *pubsubpb.Message) string {
	sum := blake3.Sum256(m.Data)
	return hex.EncodeToString(sum[:])
}

// NewP2PNetwork starts a libp2p host listening on listenAddr:port, joins
// the three gossip topics, and dials every address in peers. self is the
// node's own address, used to filter the private-notification messages
// addressed to other peers; queue is the local miner's inbound queue,
// the same sink SimNetwork would deliver into.
func NewP2PNetwork(ctx context.Context, listenAddr string, port int, peers []string, self types.PubKeyHash, queue *msg.Queue) (*P2PNetwork, error) {
	cctx, cancel := context.WithCancel(ctx)

	addr := fmt.Sprintf("/ip4/%s/tcp/%d", listenAddr, port)
	h, err := libp2p.New(libp2p.ListenAddrStrings(addr))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create libp2p host: %w", err)
	}

	ps, err := pubsub.NewGossipSub(cctx, h, pubsub.WithMessageIdFn(messageIDFn))
	if err != nil {
		h.Close()
		cancel()
		return nil, fmt.Errorf("create pubsub: %w", err)
	}

	n := &P2PNetwork{self: self, queue: queue, host: h, pubsub: ps, ctx: cctx, cancel: cancel}
	if err := n.joinTopics(); err != nil {
		h.Close()
		cancel()
		return nil, err
	}

	for _, addr := range peers {
		if err := n.dial(addr); err != nil {
			log.Network.Warn().Err(err).Str("peer", addr).Msg("failed to dial static peer")
		}
	}

	go n.readLoop(n.subTx, n.handleTxMessage)
	go n.readLoop(n.subBlock, n.handleBlockMessage)
	go n.readLoop(n.subReceived, n.handleReceivedMessage)

	return n, nil
}

func (n *P2PNetwork) joinTopics() error {
	var err error
	if n.topicTx, err = n.pubsub.Join(topicTransactions); err != nil {
		return fmt.Errorf("join tx topic: %w", err)
	}
	if n.topicBlock, err = n.pubsub.Join(topicBlocks); err != nil {
		return fmt.Errorf("join block topic: %w", err)
	}
	if n.topicReceived, err = n.pubsub.Join(topicReceived); err != nil {
		return fmt.Errorf("join received topic: %w", err)
	}
	if n.subTx, err = n.topicTx.Subscribe(); err != nil {
		return fmt.Errorf("subscribe tx: %w", err)
	}
	if n.subBlock, err = n.topicBlock.Subscribe(); err != nil {
		return fmt.Errorf("subscribe block: %w", err)
	}
	if n.subReceived, err = n.topicReceived.Subscribe(); err != nil {
		return fmt.Errorf("subscribe received: %w", err)
	}
	return nil
}

func (n *P2PNetwork) dial(addr string) error {
	info, err := peer.AddrInfoFromP2pAddr(multiaddr.StringCast(addr))
	if err != nil {
		return fmt.Errorf("parse peer addr: %w", err)
	}
	return n.host.Connect(n.ctx, *info)
}

func (n *P2PNetwork) readLoop(sub *pubsub.Subscription, handler func(*pubsub.Message)) {
	for {
		m, err := sub.Next(n.ctx)
		if err != nil {
			return // context cancelled
		}
		if m.ReceivedFrom == n.host.ID() {
			continue
		}
		handler(m)
	}
}

func (n *P2PNetwork) handleTxMessage(m *pubsub.Message) {
	var t tx.Transaction
	if err := json.Unmarshal(m.Data, &t); err != nil {
		log.Network.Debug().Err(err).Msg("dropped malformed tx gossip")
		return
	}
	n.queue.Enqueue(msg.Message{Kind: msg.KindTxn, Txn: &t})
}

func (n *P2PNetwork) handleBlockMessage(m *pubsub.Message) {
	var b block.Block
	if err := json.Unmarshal(m.Data, &b); err != nil {
		log.Network.Debug().Err(err).Msg("dropped malformed block gossip")
		return
	}
	n.queue.Enqueue(msg.Message{Kind: msg.KindBlock, Block: &b})
}

func (n *P2PNetwork) handleReceivedMessage(m *pubsub.Message) {
	var w receivedOutputWire
	if err := json.Unmarshal(m.Data, &w); err != nil {
		log.Network.Debug().Err(err).Msg("dropped malformed received-output gossip")
		return
	}
	if w.Receiver != n.self {
		return
	}
	n.queue.Enqueue(msg.Message{Kind: msg.KindReceivedOutput, ReceivedTxID: w.TxID, ReceivedVout: w.Vout})
}

// BroadcastTransaction publishes txn to every connected peer. sender is
// unused here: readLoop skips every message whose ReceivedFrom is this
// host's own peer ID, so a publisher never re-delivers its own message to
// itself.
func (n *P2PNetwork) BroadcastTransaction(txn *tx.Transaction, _ NodeID) {
	data, err := json.Marshal(txn)
	if err != nil {
		log.Network.Error().Err(err).Msg("marshal transaction for broadcast")
		return
	}
	if err := n.topicTx.Publish(n.ctx, data); err != nil {
		log.Network.Warn().Err(err).Msg("publish transaction")
	}
}

// BroadcastBlock publishes b to every connected peer.
func (n *P2PNetwork) BroadcastBlock(b *block.Block, _ NodeID) {
	data, err := json.Marshal(b)
	if err != nil {
		log.Network.Error().Err(err).Msg("marshal block for broadcast")
		return
	}
	if err := n.topicBlock.Publish(n.ctx, data); err != nil {
		log.Network.Warn().Err(err).Msg("publish block")
	}
}

// NotifyReceiver publishes a received-output notification to every peer;
// only the one whose address matches receiver acts on it.
func (n *P2PNetwork) NotifyReceiver(receiver types.PubKeyHash, txid types.Hash, vout int) {
	data, err := json.Marshal(receivedOutputWire{Receiver: receiver, TxID: txid, Vout: vout})
	if err != nil {
		log.Network.Error().Err(err).Msg("marshal received-output notification")
		return
	}
	if err := n.topicReceived.Publish(n.ctx, data); err != nil {
		log.Network.Warn().Err(err).Msg("publish received-output notification")
	}
}

// Close tears down the host and cancels every read loop.
func (n *P2PNetwork) Close() error {
	n.cancel()
	return n.host.Close()
}
