// Klingnet proof-of-work node daemon.
//
// Usage:
//
//	klingnetd [--mine] [--p2p] [--peers=...]   Run node
//	klingnetd --help                           Show help
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Klingon-tech/klingnet-pow/config"
	"github.com/Klingon-tech/klingnet-pow/internal/chain"
	"github.com/Klingon-tech/klingnet-pow/internal/consensus"
	klog "github.com/Klingon-tech/klingnet-pow/internal/log"
	"github.com/Klingon-tech/klingnet-pow/internal/miner"
	"github.com/Klingon-tech/klingnet-pow/internal/msg"
	"github.com/Klingon-tech/klingnet-pow/internal/network"
	"github.com/Klingon-tech/klingnet-pow/internal/storage"
	"github.com/Klingon-tech/klingnet-pow/internal/wallet"
	"github.com/Klingon-tech/klingnet-pow/pkg/block"
	"github.com/Klingon-tech/klingnet-pow/pkg/crypto"
	"github.com/Klingon-tech/klingnet-pow/pkg/types"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// walletName is the single identity wallet every klingnetd instance
// keeps in its keystore directory. Multi-account support exists in
// internal/wallet (AddAccount/ListAccounts); this daemon only ever uses
// account 0, external chain, index 0 — the node's own mining address.
const walletName = "node"

func main() {
	cfg, _, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logFile := cfg.Log.File
	if logFile == "" {
		logFile = cfg.LogsDir() + "/klingnet.log"
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	logger := klog.WithComponent("node")

	genesis, err := config.Build(cfg.Protocol)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build genesis block")
	}
	logger.Info().
		Str("genesis_hash", string(genesis.BlockHash)).
		Int("bits", cfg.Protocol.Bits).
		Uint64("mining_reward", cfg.Protocol.MiningReward).
		Int("merkle_arity", cfg.Protocol.MerkleTreeArity).
		Msg("genesis block built")

	priv, pubKeyHash, err := loadOrCreateIdentity(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load node identity")
	}
	defer priv.Zero()
	logger.Info().Str("address", string(pubKeyHash)).Msg("node identity ready")

	db, err := storage.NewBadger(cfg.ChainDataDir())
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.ChainDataDir()).Msg("failed to open database")
	}
	defer db.Close()
	chainStore := storage.NewChainStore(db)

	cs := consensus.NewState(genesis, cfg.Protocol.OrphanThreshold)
	ledger := chain.New(cs, cfg.Protocol.MiningReward)
	ledger.OnAppend = persistBlock(chainStore, cs)
	ledger.AppendGenesis(genesis)

	if err := replayStoredChain(chainStore, ledger, logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to replay persisted chain")
	}

	queue := msg.NewQueue()
	net, closeNet := buildNetwork(cfg, pubKeyHash, queue, logger)
	if closeNet != nil {
		defer closeNet()
	}

	m := miner.New(0, priv, ledger, queue, net, cfg.Protocol.Bits, cfg.Protocol.MiningReward, cfg.Protocol.MerkleTreeArity)

	if cfg.Mining.Enabled {
		go m.Run()
		logger.Info().Msg("mining loop started")
		defer m.Stop()
	} else {
		logger.Info().Msg("mining disabled; node will validate and relay only")
	}

	go orphanPruningLoop(ledger, net, network.NodeID(0), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	logger.Info().Msg("shutting down")
}

// loadOrCreateIdentity opens (or creates) the node's single keystore
// wallet and derives its mining key from the wallet's HD master seed —
// the BIP-39/BIP-32 bootstrap layered around the "assumed external"
// signer a real deployment would treat as a black box.
func loadOrCreateIdentity(cfg *config.Config) (*crypto.PrivateKey, types.PubKeyHash, error) {
	ks, err := wallet.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		return nil, "", fmt.Errorf("open keystore: %w", err)
	}

	names, err := ks.List()
	if err != nil {
		return nil, "", fmt.Errorf("list wallets: %w", err)
	}

	var seed []byte
	exists := false
	for _, n := range names {
		if n == walletName {
			exists = true
			break
		}
	}

	if exists {
		password, err := readPassword("Unlock node identity: ")
		if err != nil {
			return nil, "", fmt.Errorf("read password: %w", err)
		}
		seed, err = ks.Load(walletName, password)
		if err != nil {
			return nil, "", fmt.Errorf("unlock wallet: %w", err)
		}
	} else {
		mnemonic, err := wallet.GenerateMnemonic()
		if err != nil {
			return nil, "", fmt.Errorf("generate mnemonic: %w", err)
		}
		fmt.Fprintf(os.Stderr, "New node identity mnemonic (write this down): %s\n", mnemonic)

		seed, err = wallet.SeedFromMnemonic(mnemonic, "")
		if err != nil {
			return nil, "", fmt.Errorf("derive seed: %w", err)
		}

		password, err := readPassword("Set a password for the node keystore: ")
		if err != nil {
			return nil, "", fmt.Errorf("read password: %w", err)
		}
		if err := ks.Create(walletName, seed, password, wallet.DefaultParams()); err != nil {
			return nil, "", fmt.Errorf("create wallet: %w", err)
		}
	}

	master, err := wallet.NewMasterKey(seed)
	if err != nil {
		return nil, "", fmt.Errorf("derive master key: %w", err)
	}
	child, err := master.DeriveAddress(0, wallet.ChangeExternal, 0)
	if err != nil {
		return nil, "", fmt.Errorf("derive mining key: %w", err)
	}

	if err := ks.AddAccount(walletName, wallet.AccountEntry{
		Index:   0,
		Change:  wallet.ChangeExternal,
		Name:    "mining",
		Address: string(child.PubKeyHash()),
	}); err != nil {
		return nil, "", fmt.Errorf("record mining account: %w", err)
	}

	signer, err := child.Signer()
	if err != nil {
		return nil, "", fmt.Errorf("build signer: %w", err)
	}
	return signer, child.PubKeyHash(), nil
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	return password, nil
}

// buildNetwork wires either the real libp2p transport or a single-node
// SimNetwork (no peers — validation and mining still work locally, but
// nothing is ever gossiped). Peer discovery is out of scope; P2P peers
// are a static list from config.
func buildNetwork(cfg *config.Config, self types.PubKeyHash, queue *msg.Queue, logger zerolog.Logger) (network.Network, func()) {
	if !cfg.P2P.Enabled {
		sim := network.NewSimNetwork()
		sim.RegisterNode(0, self, queue)
		return sim, nil
	}

	ctx := context.Background()
	p2pNet, err := network.NewP2PNetwork(ctx, cfg.P2P.ListenAddr, cfg.P2P.Port, cfg.P2P.Peers, self, queue)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start p2p network")
	}
	return p2pNet, func() { _ = p2pNet.Close() }
}

// orphanPruningLoop periodically invokes the ledger's advisory pruning
// and rebroadcast step (its "called opportunistically").
func orphanPruningLoop(ledger *chain.Ledger, net network.Network, self network.NodeID, logger zerolog.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		logger.Debug().Msg("running orphan pruning pass")
		ledger.RedistributeOrphanTransactions(net, self)
	}
}

// persistBlock returns a Ledger.OnAppend hook that durably records every
// accepted block (side-chain or best-chain alike — the consensus tree
// decides adoption, the store just remembers what was seen) plus the
// current best-tip hash.
func persistBlock(store *storage.ChainStore, cs *consensus.State) func(*block.Block) {
	return func(b *block.Block) {
		data, err := json.Marshal(b)
		if err != nil {
			klog.Storage.Error().Err(err).Msg("failed to encode block for persistence")
			return
		}
		node, ok := cs.NodeByHash(b.BlockHash)
		height := 0
		if ok {
			height = node.Height
		}
		if err := store.SaveBlock(height, string(b.BlockHash), data); err != nil {
			klog.Storage.Error().Err(err).Msg("failed to persist block")
			return
		}
		if err := store.SaveTip(string(cs.BestTip.Block.BlockHash)); err != nil {
			klog.Storage.Error().Err(err).Msg("failed to persist tip pointer")
		}
	}
}

// replayStoredChain reinstalls every previously-persisted non-genesis
// block into a freshly-built ledger, in height order, so a restarted
// node resumes mid-chain instead of mining a fork from genesis. Genesis
// itself is never replayed: it is rebuilt deterministically from
// protocol constants at every startup (config.Build), and the first
// stored record (height 0) is that same genesis, already installed by
// AppendGenesis above.
func replayStoredChain(store *storage.ChainStore, ledger *chain.Ledger, logger zerolog.Logger) error {
	raws, err := store.LoadAll()
	if err != nil {
		return fmt.Errorf("load persisted blocks: %w", err)
	}
	replayed := 0
	for _, raw := range raws {
		var b block.Block
		if err := json.Unmarshal(raw, &b); err != nil {
			return fmt.Errorf("decode persisted block: %w", err)
		}
		if b.PreviousHash == types.NullHash {
			continue // the genesis record; already installed.
		}
		if !ledger.AppendBlock(&b) {
			logger.Warn().Str("block_hash", string(b.BlockHash)).Msg("persisted block failed replay validation, skipping")
			continue
		}
		replayed++
	}
	if replayed > 0 {
		logger.Info().Int("blocks", replayed).Str("tip", string(ledger.LastBlockHash)).Msg("resumed chain from disk")
	}
	return nil
}
