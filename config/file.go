package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadFile loads node configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a node config value by key. Only node-operational
// settings, NOT protocol rules.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "network":
		cfg.Network = NetworkType(value)
	case "datadir":
		cfg.DataDir = value

	// Pool
	case "pool.max_fusion":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Pool.MaxFusionCount = n
	case "pool.max_live_minutes":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Pool.MaxLiveTimeMinutes = n
	case "pool.max_bytes":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Pool.MaxPoolBytes = n

	// Checkpoints
	case "checkpoints.manifest":
		cfg.Checkpoints.ManifestFile = value
	case "checkpoints.signer_key":
		cfg.Checkpoints.SignerKeyFile = value

	// Mining
	case "mining.enabled", "mine":
		cfg.Mining.Enabled = parseBool(value)
	case "mining.coinbase", "coinbase":
		cfg.Mining.Coinbase = value
	case "mining.threads":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Mining.Threads = n

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored.
	}
	return nil
}

func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// WriteDefaultConfig writes a default node configuration file.
func WriteDefaultConfig(path string, network NetworkType) error {
	content := `# Klingnet Chain Node Configuration
#
# This file contains NODE settings only.
# Protocol rules (fork schedule, mixin bounds, emission curve) are
# hardcoded in the genesis configuration and cannot be changed without
# a hard fork.

# Network: mainnet or testnet
network = ` + string(network) + `

# Data directory (default: ~/.klingnet)
# datadir = ~/.klingnet

# ============================================================================
# Transaction Pool
# ============================================================================

pool.max_fusion = 64
pool.max_live_minutes = 1440
pool.max_bytes = 134217728

# ============================================================================
# Checkpoints
# ============================================================================

# Path to the signed checkpoint manifest this node trusts.
# checkpoints.manifest = checkpoints.json

# Path to the Ed25519 private key used to sign new manifests.
# Only set on the node designated to publish checkpoints.
# checkpoints.signer_key = checkpoint-signer.key

# ============================================================================
# Mining / Block Template Production
# ============================================================================

mining.enabled = false

# Hex-encoded one-time destination key to receive block rewards
# mining.coinbase = <hex-public-key>

# mining.threads = 1

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}
