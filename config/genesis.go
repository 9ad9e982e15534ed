package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Klingon-tech/klingnet-pow/pkg/block"
	"github.com/Klingon-tech/klingnet-pow/pkg/crypto"
	"github.com/Klingon-tech/klingnet-pow/pkg/tx"
	"github.com/Klingon-tech/klingnet-pow/pkg/types"
)

// =============================================================================
// Genesis block
//
// Every node installs the identical genesis block before mining starts.
// It carries one coinbase transaction paying a well-known identity and
// has previous_hash == types.NullHash.
// =============================================================================

// GenesisMnemonic is the well-known seed phrase documenting the genesis
// identity in human-readable form. It is not the source Build derives
// GenesisPrivateKeyHex from — that constant is hardcoded separately — but
// it gives an operator a recognizable phrase to reference instead of the
// raw key scalar.
const GenesisMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon art"

// GenesisPrivateKeyHex is the private key (hex) that signs the genesis
// coinbase. It is a separate hardcoded constant alongside GenesisMnemonic,
// not a value derived from it via BIP-32/BIP-39 — this simulation has no
// real key-management concerns, and every node just needs to agree on the
// same 32-byte scalar byte-for-byte.
const GenesisPrivateKeyHex = "0000000000000000000000000000000000000000000000000000000000000001"

// Build constructs the genesis block for the given protocol constants. Every node calls this
// independently; because the coinbase key, reward, and merkle arity are
// all protocol constants, the result is identical on every node without
// requiring any genesis file to be distributed.
func Build(protocol Protocol) (*block.Block, error) {
	keyBytes, err := hex.DecodeString(GenesisPrivateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("decoding genesis key: %w", err)
	}
	priv, err := crypto.PrivateKeyFromBytes(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("deriving genesis key: %w", err)
	}
	payTo := crypto.PubKeyHash(priv.PublicKeyHex())

	coinbase, err := tx.CreateCoinbaseTransaction(priv, payTo, protocol.MiningReward)
	if err != nil {
		return nil, fmt.Errorf("building genesis coinbase: %w", err)
	}

	genesis := block.New([]*tx.Transaction{coinbase}, types.NullHash, protocol.Bits, protocol.MerkleTreeArity)
	genesis.Nonce = 0
	genesis.BlockHash = genesis.Hash()
	return genesis, nil
}

// =============================================================================
// Genesis file I/O
//
// Nodes do not need to exchange the genesis block (Build is deterministic),
// but operators may still want to inspect or pin it; these helpers dump
// and reload the block a node actually installed, as a sanity record.
// =============================================================================

// Save writes block b to path as indented JSON.
func Save(b *block.Block, path string) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding genesis block: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing genesis file: %w", err)
	}
	return nil
}

// Load reads a genesis block previously written by Save and checks it
// against the block freshly built from protocol, guarding against an
// operator loading a genesis snapshot that no longer matches the node's
// configured protocol constants.
func Load(path string, protocol Protocol) (*block.Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading genesis file: %w", err)
	}
	var loaded block.Block
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parsing genesis file: %w", err)
	}

	want, err := Build(protocol)
	if err != nil {
		return nil, err
	}
	if loaded.BlockHash != want.BlockHash {
		return nil, fmt.Errorf("genesis mismatch: file has %s, protocol constants produce %s", loaded.BlockHash, want.BlockHash)
	}
	return &loaded, nil
}
