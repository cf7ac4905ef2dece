// Package config handles application configuration.
//
// Settings are node-operational only: which network's index to serve,
// where data lives, how the RPC server is exposed. Protocol rules
// (script layout tables, field sizes) are compiled in.
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

// Config holds node-specific runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// Index behavior
	Index IndexConfig

	// RPC server
	RPC RPCConfig

	// Logging
	Log LogConfig
}

// IndexConfig holds admission and index settings.
type IndexConfig struct {
	// Layout selects the script layout to decode: auto, a, or b.
	Layout string `conf:"index.layout"`

	// StrictKeys requires owner keys to be valid secp256k1 points.
	StrictKeys bool `conf:"index.strictkeys"`

	// InMemory uses a volatile store instead of the on-disk database.
	InMemory bool `conf:"index.inmemory"`
}

// RPCConfig holds RPC server settings.
type RPCConfig struct {
	Enabled     bool     `conf:"rpc.enabled"`
	Addr        string   `conf:"rpc.addr"`
	Port        int      `conf:"rpc.port"`
	AllowedIPs  []string `conf:"rpc.allowed"`
	CORSOrigins []string `conf:"rpc.cors"` // Allowed CORS origins ("*" = all).
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.tokenindex
//	macOS:   ~/Library/Application Support/Tokenindex
//	Windows: %APPDATA%\Tokenindex
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tokenindex"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Tokenindex")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Tokenindex")
		}
		return filepath.Join(home, "AppData", "Roaming", "Tokenindex")
	default:
		return filepath.Join(home, ".tokenindex")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// IndexDir returns the index database directory.
func (c *Config) IndexDir() string {
	return filepath.Join(c.NetworkDataDir(), "index")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "tokenindex.conf")
}
