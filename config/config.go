// Package config handles node configuration.
//
// Configuration is split into two categories:
//   - Protocol rules: part of genesis, must match across every node.
//   - Node settings: runtime configuration, can vary per node.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// =============================================================================
// Protocol rules (consensus constants)
// =============================================================================

// Protocol bundles the process-wide constants every node must agree on.
type Protocol struct {
	// Bits is the difficulty: leading hex zeros the block hash must show,
	// plus the '1' marker defining the textual target.
	Bits int `conf:"protocol.bits"`
	// MiningReward is the subsidy added to fees when validating a
	// coinbase output.
	MiningReward uint64 `conf:"protocol.mining_reward"`
	// MerkleTreeArity is the branching factor of the Merkle tree; must be
	// >= 2.
	MerkleTreeArity int `conf:"protocol.merkle_arity"`
	// OrphanThreshold is how far the best chain must outrun the last
	// reorg point before IdentifyOrphans prunes side chains.
	OrphanThreshold int `conf:"protocol.orphan_threshold"`
}

// DefaultProtocol returns the default consensus constants.
func DefaultProtocol() Protocol {
	return Protocol{
		Bits:            3,
		MiningReward:    50,
		MerkleTreeArity: 2,
		OrphanThreshold: 3,
	}
}

// =============================================================================
// Node Configuration (runtime, per-node settings)
// =============================================================================

// Config holds node-specific runtime configuration. These settings can
// vary between nodes without breaking consensus.
type Config struct {
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	Protocol Protocol

	P2P    P2PConfig
	Mining MiningConfig
	Log    LogConfig
}

// P2PConfig holds the static peer list used by the optional libp2p
// transport. Peer discovery is out of scope; peers
// are configured explicitly, not discovered.
type P2PConfig struct {
	Enabled    bool     `conf:"p2p.enabled"`
	ListenAddr string   `conf:"p2p.listen"`
	Port       int      `conf:"p2p.port"`
	Peers      []string `conf:"p2p.peers"` // static multiaddrs to dial
}

// MiningConfig holds block-production settings. Whether to mine is a
// node choice; the rules a mined block must satisfy are Protocol.
type MiningConfig struct {
	Enabled  bool   `conf:"mining.enabled"`
	Identity string `conf:"mining.identity"` // path to the node's identity keystore
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.klingnet-pow
//	macOS:   ~/Library/Application Support/klingnet-pow
//	Windows: %APPDATA%\klingnet-pow
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".klingnet-pow"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "klingnet-pow")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "klingnet-pow")
		}
		return filepath.Join(home, "AppData", "Roaming", "klingnet-pow")
	default:
		return filepath.Join(home, ".klingnet-pow")
	}
}

// ChainDataDir returns the chain-specific data directory.
func (c *Config) ChainDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// UTXODir returns the UTXO snapshot directory.
func (c *Config) UTXODir() string {
	return filepath.Join(c.ChainDataDir(), "utxo")
}

// BlocksDir returns the block-store directory.
func (c *Config) BlocksDir() string {
	return filepath.Join(c.ChainDataDir(), "blocks")
}

// KeystoreDir returns the node identity keystore directory.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.ChainDataDir(), "keystore")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "klingnet-pow.conf")
}
