package config

import "fmt"

// Validate checks a fully-assembled config for invalid values.
func Validate(cfg *Config) error {
	switch cfg.Network {
	case Mainnet, Testnet:
	default:
		return fmt.Errorf("unknown network %q (want mainnet or testnet)", cfg.Network)
	}

	if cfg.DataDir == "" {
		return fmt.Errorf("datadir must not be empty")
	}

	switch cfg.Index.Layout {
	case "", "auto", "a", "A", "b", "B":
	default:
		return fmt.Errorf("unknown index.layout %q (want auto, a, or b)", cfg.Index.Layout)
	}

	if cfg.RPC.Enabled {
		if cfg.RPC.Port < 1 || cfg.RPC.Port > 65535 {
			return fmt.Errorf("rpc.port %d out of range", cfg.RPC.Port)
		}
	}

	switch cfg.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log.level %q", cfg.Log.Level)
	}

	return nil
}
