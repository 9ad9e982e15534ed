// Simnet drives an in-process, multi-node simulation of the klingnet
// protocol: every node lives in one process, talks over SimNetwork
// instead of real sockets, and mines on its own goroutine exactly as a
// real klingnetd would, without standing up real processes or a real
// network. The driver injects one funded transfer from the genesis owner
// and, with three or more nodes, a second transfer forwarded by its
// receiver, then logs every node's best tip and whether they converged.
// It injects no insufficient-funds, double-spend or orphan-pruning
// scenario; forks arise only from nodes mining concurrently.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Klingon-tech/klingnet-pow/config"
	"github.com/Klingon-tech/klingnet-pow/internal/chain"
	"github.com/Klingon-tech/klingnet-pow/internal/consensus"
	klog "github.com/Klingon-tech/klingnet-pow/internal/log"
	"github.com/Klingon-tech/klingnet-pow/internal/miner"
	"github.com/Klingon-tech/klingnet-pow/internal/msg"
	"github.com/Klingon-tech/klingnet-pow/internal/network"
	"github.com/Klingon-tech/klingnet-pow/pkg/block"
	"github.com/Klingon-tech/klingnet-pow/pkg/crypto"
	"github.com/Klingon-tech/klingnet-pow/pkg/types"
	"github.com/rs/zerolog"
)

// simNode bundles everything buildNode wires up for one simulated
// participant: its miner (identity + ledger + queue), kept together so
// the driver can address each node by index.
type simNode struct {
	name   string
	miner  *miner.Miner
	ledger *chain.Ledger
}

func main() {
	numNodes := flag.Int("nodes", 3, "number of simulated nodes")
	duration := flag.Duration("duration", 5*time.Second, "how long to let nodes mine before checking convergence")
	flag.Parse()

	if err := klog.Init("info", false, ""); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	logger := klog.WithComponent("simnet")

	protocol := config.DefaultProtocol()
	genesis, err := config.Build(protocol)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build genesis block")
	}
	logger.Info().
		Str("genesis_hash", string(genesis.BlockHash)).
		Int("bits", protocol.Bits).
		Int("nodes", *numNodes).
		Msg("simulation starting")

	net := network.NewSimNetwork()
	nodes := make([]*simNode, *numNodes)

	// Node 0 is the genesis owner: config.Build always mints the
	// coinbase to the well-known GenesisPrivateKeyHex, so it alone can
	// fund the transfers the scenarios below inject. Every other node
	// gets a freshly generated identity, mirroring independent miners
	// joining after genesis.
	genesisKey, err := genesisPrivateKey()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load genesis private key")
	}

	for i := 0; i < *numNodes; i++ {
		var priv *crypto.PrivateKey
		if i == 0 {
			priv = genesisKey
		} else {
			priv, err = crypto.GenerateKey()
			if err != nil {
				logger.Fatal().Err(err).Msg("failed to generate node identity")
			}
		}

		name := fmt.Sprintf("node-%d", i)
		n, err := buildNode(name, network.NodeID(i), priv, genesis, protocol, net)
		if err != nil {
			logger.Fatal().Err(err).Str("node", name).Msg("failed to build node")
		}
		nodes[i] = n
		logger.Info().Str("node", name).Str("address", string(n.miner.PubKeyHash)).Msg("node registered")
	}

	// The genesis owner knows about its own coinbase output without
	// needing a NotifyReceiver round trip (a node is its own first
	// depositor in this one case).
	coinbaseTxID := genesis.Coinbase().ID()
	nodes[0].miner.ReceivedOutputs = append(nodes[0].miner.ReceivedOutputs, types.Outpoint{PrevTxID: coinbaseTxID, PrevVout: 0})

	for _, n := range nodes {
		go n.miner.Run()
	}
	defer func() {
		for _, n := range nodes {
			n.miner.Stop()
		}
	}()

	runScenarios(nodes, net, logger)

	logger.Info().Dur("duration", *duration).Msg("letting nodes mine")
	time.Sleep(*duration)

	reportConvergence(nodes, logger)
}

// buildNode wires one simulated node's ledger, miner, and SimNetwork
// registration, installing the shared genesis block.
func buildNode(name string, id network.NodeID, priv *crypto.PrivateKey, genesis *block.Block, protocol config.Protocol, net *network.SimNetwork) (*simNode, error) {
	cs := consensus.NewState(genesis, protocol.OrphanThreshold)
	ledger := chain.New(cs, protocol.MiningReward)
	ledger.AppendGenesis(genesis)

	queue := msg.NewQueue()
	pubKeyHash := crypto.PubKeyHash(priv.PublicKeyHex())
	net.RegisterNode(id, pubKeyHash, queue)

	m := miner.New(id, priv, ledger, queue, net, protocol.Bits, protocol.MiningReward, protocol.MerkleTreeArity)
	return &simNode{name: name, miner: m, ledger: ledger}, nil
}

// runScenarios injects the driver-level ("new_txn", ...) requests this
// driver exercises: a funded transfer from the genesis owner and, if
// enough nodes are present, a second transfer demonstrating a receiver
// who then spends what it just received.
func runScenarios(nodes []*simNode, net *network.SimNetwork, logger zerolog.Logger) {
	if len(nodes) < 2 {
		return
	}

	logger.Info().Msg("scenario: genesis owner pays node-1")
	nodes[0].miner.Queue.Enqueue(msg.Message{
		Kind:           msg.KindNewTxn,
		NewTxnReceiver: nodes[1].miner.PubKeyHash,
		NewTxnAmount:   10,
	})

	if len(nodes) < 3 {
		return
	}
	// Give node-1's miner loop a chance to notice the received output
	// and mine its own funding block before asking it to forward funds.
	time.Sleep(500 * time.Millisecond)
	logger.Info().Msg("scenario: node-1 forwards funds to node-2")
	nodes[1].miner.Queue.Enqueue(msg.Message{
		Kind:           msg.KindNewTxn,
		NewTxnReceiver: nodes[2].miner.PubKeyHash,
		NewTxnAmount:   5,
	})
}

// reportConvergence logs each node's best tip and height so an operator
// can see whether the simulated network settled on one chain.
func reportConvergence(nodes []*simNode, logger zerolog.Logger) {
	tips := make(map[types.Hash]int)
	for _, n := range nodes {
		tip := n.ledger.Consensus.BestTip
		tips[tip.Block.BlockHash]++
		logger.Info().
			Str("node", n.name).
			Int("height", tip.Height).
			Str("tip", string(tip.Block.BlockHash)).
			Msg("final chain state")
	}

	if len(tips) == 1 {
		logger.Info().Msg("converged: all nodes share one best tip")
	} else {
		logger.Warn().Int("distinct_tips", len(tips)).Msg("nodes did not converge within the run duration")
	}
}

// genesisPrivateKey decodes the well-known key config.Build always pays
// the genesis coinbase to, so node-0 of the simulation can actually
// spend it.
func genesisPrivateKey() (*crypto.PrivateKey, error) {
	keyBytes, err := hex.DecodeString(config.GenesisPrivateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("decode genesis key: %w", err)
	}
	return crypto.PrivateKeyFromBytes(keyBytes)
}
