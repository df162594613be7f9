// Package config handles application configuration.
//
// Configuration is split into two categories:
//   - Protocol rules: defined in genesis.go, immutable, must match across all nodes
//   - Node settings: runtime configuration, can vary per node
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
// Node Configuration (runtime, per-node settings)
// =============================================================================

// Config holds node-specific runtime configuration. These settings can
// vary between nodes without breaking consensus.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// Pool governs mempool admission and eviction policy.
	Pool PoolConfig

	// Checkpoints governs manifest location and, on trusted signer
	// nodes, the key used to sign new manifests.
	Checkpoints CheckpointConfig

	// Mining controls block-template production.
	Mining MiningConfig

	// Logging
	Log LogConfig

	// Maintenance (not persisted in config file)
	RebuildIndexes bool
}

// PoolConfig mirrors internal/mempool.Params in conf-file form.
type PoolConfig struct {
	MaxFusionCount     int `conf:"pool.max_fusion"`
	MaxLiveTimeMinutes int `conf:"pool.max_live_minutes"`
	MaxPoolBytes       int `conf:"pool.max_bytes"`
}

// CheckpointConfig locates the checkpoint manifest internal/checkpoints
// loads at startup, and optionally the signing key used to produce new
// manifests (set only on the node designated to publish checkpoints).
type CheckpointConfig struct {
	ManifestFile  string `conf:"checkpoints.manifest"`
	SignerKeyFile string `conf:"checkpoints.signer_key"`
}

// MiningConfig controls whether this node assembles and submits block
// templates, and who the coinbase output pays.
type MiningConfig struct {
	Enabled  bool   `conf:"mining.enabled"`
	Coinbase string `conf:"mining.coinbase"` // hex-encoded one-time destination key
	Threads  int    `conf:"mining.threads"`
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
//	Linux:   ~/.klingnet
//	macOS:   ~/Library/Application Support/Klingnet
//	Windows: %APPDATA%\Klingnet
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".klingnet"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Klingnet")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Klingnet")
		}
		return filepath.Join(home, "AppData", "Roaming", "Klingnet")
	default:
		return filepath.Join(home, ".klingnet")
	}
}

// ChainDataDir returns the chain-specific data directory.
func (c *Config) ChainDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// BlocksDir returns the block/segment storage directory.
func (c *Config) BlocksDir() string {
	return filepath.Join(c.ChainDataDir(), "blocks")
}

// KeystoreDir returns the directory holding the checkpoint signing key.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.ChainDataDir(), "keystore")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "klingnet.conf")
}
