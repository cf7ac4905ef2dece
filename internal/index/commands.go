package index

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tokenetic/tokenindex/internal/log"
	"github.com/tokenetic/tokenindex/pkg/types"
)

// Command is one lifecycle transition delivered to the index. Upstream
// sources redeliver, so every command must be idempotent: duplicate
// admits and repeat spends converge without error.
type Command interface {
	// Apply executes the transition against the store.
	Apply(s *Store) error
}

// AdmitCommand records a newly admitted output.
type AdmitCommand struct {
	Record *TokenRecord
}

func (c AdmitCommand) Apply(s *Store) error {
	return s.Admit(c.Record)
}

// SpendCommand flips an output to spent.
type SpendCommand struct {
	Outpoint types.Outpoint
}

func (c SpendCommand) Apply(s *Store) error {
	return s.MarkSpent(c.Outpoint)
}

// EvictCommand permanently removes an output.
type EvictCommand struct {
	Outpoint types.Outpoint
}

func (c EvictCommand) Apply(s *Store) error {
	return s.Evict(c.Outpoint)
}

// Ingest is the single entry point for lifecycle commands. Benign
// outcomes of redelivery (DuplicateOutput on admit, NotFound on spend
// or evict) are logged and absorbed; storage failures propagate.
type Ingest struct {
	store  *Store
	logger zerolog.Logger
}

// NewIngest creates the command ingestion front of a store.
func NewIngest(store *Store) *Ingest {
	return &Ingest{store: store, logger: log.Index}
}

// Deliver applies one command. The returned error is nil for benign
// redelivery outcomes; anything else is a storage failure the caller
// must handle.
func (in *Ingest) Deliver(cmd Command) error {
	err := cmd.Apply(in.store)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrDuplicateOutput):
		in.logger.Debug().Err(err).Msg("redelivered admit ignored")
		return nil
	case errors.Is(err, ErrNotFound):
		in.logger.Debug().Err(err).Msg("transition target missing, ignored")
		return nil
	default:
		return fmt.Errorf("deliver: %w", err)
	}
}
