package config

import "fmt"

// Validate checks runtime node config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}
	if cfg.Pool.MaxFusionCount < 0 {
		return fmt.Errorf("pool.max_fusion must be >= 0")
	}
	if cfg.Pool.MaxLiveTimeMinutes < 0 {
		return fmt.Errorf("pool.max_live_minutes must be >= 0")
	}
	if cfg.Pool.MaxPoolBytes < 0 {
		return fmt.Errorf("pool.max_bytes must be >= 0")
	}
	if cfg.Mining.Threads < 0 {
		return fmt.Errorf("mining.threads must be >= 0")
	}
	if cfg.Mining.Enabled && cfg.Mining.Coinbase == "" {
		return fmt.Errorf("mining.coinbase is required when mining.enabled is set")
	}
	return nil
}
