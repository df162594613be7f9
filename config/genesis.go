package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

// Denomination constants. 1 coin = 10^12 base units; all on-chain
// values (amounts, commitments, fees) are in base units.
const (
	Decimals  = 12
	Coin      = 1_000_000_000_000
	MilliCoin = 1_000_000_000
	MicroCoin = 1_000_000
)

// Block and transaction size limits (consensus-critical).
const (
	MaxBlockSize = 2_000_000 // 2 MB max block size (header + all tx bytes)
	MaxTxInputs  = 2500
	MaxTxOutputs = 2500
)

// Genesis holds the genesis block and protocol rules. Immutable after
// chain launch — changing any field requires a coordinated hard fork
// (a new entry in Protocol.Forks).
type Genesis struct {
	ChainID   string `json:"chain_id"`
	ChainName string `json:"chain_name"`
	Symbol    string `json:"symbol,omitempty"`

	Timestamp uint64 `json:"timestamp"`
	ExtraData string `json:"extra_data,omitempty"`

	Protocol ProtocolConfig `json:"protocol"`
}

// ProtocolConfig holds every consensus-critical rule internal/chain.Core
// needs. All nodes on the same chain must agree on every field here.
type ProtocolConfig struct {
	Forks       ForkRules         `json:"forks"`
	Checkpoints []CheckpointEntry `json:"checkpoints,omitempty"`
	// CheckpointSigner is the hex-encoded Ed25519 public key checkpoint
	// manifests must be signed with before internal/checkpoints.Verify
	// accepts them.
	CheckpointSigner string `json:"checkpoint_signer,omitempty"`

	Mixin            MixinRules `json:"mixin"`
	MedianWindow     int        `json:"median_window"`
	DifficultyWindow int        `json:"difficulty_window"`

	TargetBlockSeconds       uint64 `json:"target_block_seconds"`
	CoinbaseUnlockWindow     uint64 `json:"coinbase_unlock_window"`
	ReservedCoinbaseBlobSize uint64 `json:"reserved_coinbase_blob_size"`
	PowRounds                int    `json:"pow_rounds"`

	Emission EmissionRules `json:"emission"`

	// CLSAGForkVersion/BulletproofForkVersion/BulletproofPlusForkVersion
	// are major block versions (looked up in Forks) at and after which
	// the named scheme becomes mandatory.
	CLSAGForkVersion           uint32 `json:"clsag_fork_version"`
	BulletproofForkVersion     uint32 `json:"bulletproof_fork_version"`
	BulletproofPlusForkVersion uint32 `json:"bulletproof_plus_fork_version"`
}

// ForkRules is the (major_version, activation_height) table consumed
// by internal/fork.New — parallel slices, strictly increasing in both
// version and height.
type ForkRules struct {
	Versions []uint32 `json:"versions"`
	Heights  []uint64 `json:"heights"`
}

// CheckpointEntry pins one block hash at one height.
type CheckpointEntry struct {
	Height uint64 `json:"height"`
	Hash   string `json:"hash"` // hex-encoded 32-byte hash
}

// MixinRules bounds ring size (including the real output).
type MixinRules struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// EmissionRules parameterizes the quadratic-penalty emission curve
// internal/chain.blockReward implements.
type EmissionRules struct {
	MoneySupply uint64 `json:"money_supply"`
	SpeedFactor uint   `json:"speed_factor"`
}

// MainnetGenesis returns the mainnet genesis configuration.
func MainnetGenesis() *Genesis {
	return &Genesis{
		ChainID:   "klingnet-mainnet-1",
		ChainName: "Klingnet Mainnet",
		Symbol:    "KGX",
		Timestamp: 1770734103,
		ExtraData: "Klingnet Genesis",
		Protocol: ProtocolConfig{
			Forks: ForkRules{
				Versions: []uint32{1, 2, 3},
				Heights:  []uint64{0, 100_000, 200_000},
			},
			Mixin:                      MixinRules{Min: 3, Max: 16},
			MedianWindow:               100,
			DifficultyWindow:           720,
			TargetBlockSeconds:         120,
			CoinbaseUnlockWindow:       60,
			ReservedCoinbaseBlobSize:   600,
			PowRounds:                  1 << 16,
			Emission:                   EmissionRules{MoneySupply: 2_000_000 * Coin, SpeedFactor: 20},
			CLSAGForkVersion:           2,
			BulletproofForkVersion:     2,
			BulletproofPlusForkVersion: 3,
		},
	}
}

// TestnetGenesis returns the testnet genesis configuration: faster
// blocks, a lower fork-activation schedule, and a looser mixin range
// so test wallets can build rings without waiting for real chain depth.
func TestnetGenesis() *Genesis {
	g := MainnetGenesis()
	g.ChainID = "klingnet-testnet-1"
	g.ChainName = "Klingnet Testnet"
	g.ExtraData = "Klingnet Testnet Genesis"
	g.Protocol.Forks = ForkRules{Versions: []uint32{1, 2, 3}, Heights: []uint64{0, 500, 1000}}
	g.Protocol.TargetBlockSeconds = 15
	g.Protocol.Mixin = MixinRules{Min: 1, Max: 16}
	g.Protocol.Emission.MoneySupply = 200_000 * Coin
	return g
}

// GenesisFor returns the genesis config for the given network.
func GenesisFor(network NetworkType) *Genesis {
	if network == Testnet {
		return TestnetGenesis()
	}
	return MainnetGenesis()
}

// LoadGenesis loads genesis configuration from a file.
func LoadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading genesis file: %w", err)
	}
	var g Genesis
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parsing genesis file: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis: %w", err)
	}
	return &g, nil
}

// Save writes the genesis configuration to a file.
func (g *Genesis) Save(path string) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding genesis: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks internal consistency of the genesis configuration.
func (g *Genesis) Validate() error {
	if g.ChainID == "" {
		return fmt.Errorf("chain_id is required")
	}

	f := g.Protocol.Forks
	if len(f.Versions) == 0 || len(f.Versions) != len(f.Heights) {
		return fmt.Errorf("forks.versions and forks.heights must be equal-length and non-empty")
	}
	if !sort.SliceIsSorted(f.Versions, func(i, j int) bool { return f.Versions[i] <= f.Versions[j] }) {
		return fmt.Errorf("forks.versions must be strictly increasing")
	}
	if !sort.SliceIsSorted(f.Heights, func(i, j int) bool { return f.Heights[i] <= f.Heights[j] }) {
		return fmt.Errorf("forks.heights must be strictly increasing")
	}

	if g.Protocol.Mixin.Min < 0 || g.Protocol.Mixin.Max < g.Protocol.Mixin.Min {
		return fmt.Errorf("mixin.min/max must satisfy 0 <= min <= max")
	}
	if g.Protocol.MedianWindow <= 0 {
		return fmt.Errorf("median_window must be positive")
	}
	if g.Protocol.DifficultyWindow <= 0 {
		return fmt.Errorf("difficulty_window must be positive")
	}
	if g.Protocol.TargetBlockSeconds == 0 {
		return fmt.Errorf("target_block_seconds must be positive")
	}
	if g.Protocol.Emission.MoneySupply == 0 {
		return fmt.Errorf("emission.money_supply must be positive")
	}

	for i, c := range g.Protocol.Checkpoints {
		if b, err := hex.DecodeString(c.Hash); err != nil || len(b) != types.HashSize {
			return fmt.Errorf("checkpoints[%d] has invalid hash %q", i, c.Hash)
		}
	}
	if g.Protocol.CheckpointSigner != "" {
		if _, err := hex.DecodeString(g.Protocol.CheckpointSigner); err != nil {
			return fmt.Errorf("checkpoint_signer is not valid hex: %w", err)
		}
	}

	return nil
}

// Hash returns the SHA3-256 hash of the genesis configuration's JSON
// encoding, used to detect genesis mismatches between peers.
func (g *Genesis) Hash() (types.Hash, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return types.Hash{}, err
	}
	return types.Hash(crypto.Hash256(data)), nil
}
