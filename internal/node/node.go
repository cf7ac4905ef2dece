// Package node provides a reusable token index node that can be
// embedded in any binary.
package node

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/tokenetic/tokenindex/config"
	"github.com/tokenetic/tokenindex/internal/admission"
	"github.com/tokenetic/tokenindex/internal/index"
	klog "github.com/tokenetic/tokenindex/internal/log"
	"github.com/tokenetic/tokenindex/internal/query"
	"github.com/tokenetic/tokenindex/internal/rpc"
	"github.com/tokenetic/tokenindex/internal/storage"
)

// Node is a fully-initialized token index node.
type Node struct {
	cfg    *config.Config
	logger zerolog.Logger

	// Core
	db       storage.DB
	store    *index.Store
	ingest   *index.Ingest
	admitter *admission.Engine
	queries  *query.Engine

	// RPC
	rpcServer *rpc.Server
}

// New creates and initializes a Node. It opens storage and wires the
// engines but does not start serving. Call Start for that.
func New(cfg *config.Config) (*Node, error) {
	// ── 1. Init logger ──────────────────────────────────────────────
	logFile := cfg.Log.File
	if logFile == "" {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = filepath.Join(logsDir, "tokenindex.log")
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := klog.Node

	layout, err := admission.ParseLayout(cfg.Index.Layout)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("network", string(cfg.Network)).
		Str("layout", layout.String()).
		Bool("strict_keys", cfg.Index.StrictKeys).
		Msg("Starting token index node")

	// ── 2. Open storage ─────────────────────────────────────────────
	var db storage.DB
	if cfg.Index.InMemory {
		db = storage.NewMemory()
		logger.Warn().Msg("Using in-memory store, index is lost on shutdown")
	} else {
		db, err = storage.NewBadger(cfg.IndexDir())
		if err != nil {
			return nil, fmt.Errorf("open database at %s: %w", cfg.IndexDir(), err)
		}
		logger.Info().Str("path", cfg.IndexDir()).Msg("Database opened")
	}

	// Index data lives under its own namespace so the database can
	// host additional keyspaces later without migration.
	store := index.NewStore(storage.NewPrefixDB(db, []byte("idx/")))

	// ── 3. Wire engines ─────────────────────────────────────────────
	validator := &admission.Validator{StrictKeys: cfg.Index.StrictKeys}
	n := &Node{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		store:    store,
		ingest:   index.NewIngest(store),
		admitter: admission.NewEngine(validator, layout),
		queries:  query.NewEngine(store),
	}

	// ── 4. RPC server ───────────────────────────────────────────────
	if cfg.RPC.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.RPC.Addr, cfg.RPC.Port)
		n.rpcServer = rpc.New(addr, string(cfg.Network),
			n.admitter, n.ingest, n.store, n.queries, layout, cfg.RPC)
	}

	return n, nil
}

// Start begins serving RPC requests.
func (n *Node) Start() error {
	if n.rpcServer != nil {
		if err := n.rpcServer.Start(); err != nil {
			return err
		}
		n.logger.Info().Str("addr", n.rpcServer.Addr()).Msg("RPC server listening")
	}
	return nil
}

// Stop shuts the node down and closes storage.
func (n *Node) Stop() {
	if n.rpcServer != nil {
		if err := n.rpcServer.Stop(); err != nil {
			n.logger.Error().Err(err).Msg("RPC shutdown error")
		}
	}
	if err := n.db.Close(); err != nil {
		n.logger.Error().Err(err).Msg("database close error")
	}
	n.logger.Info().Msg("Node stopped")
}

// RPCAddr returns the bound RPC address, or "" when RPC is disabled.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}

// Ingest exposes the lifecycle command entry point for embedders.
func (n *Node) Ingest() *index.Ingest {
	return n.ingest
}

// Queries exposes the read engine for embedders.
func (n *Node) Queries() *query.Engine {
	return n.queries
}
