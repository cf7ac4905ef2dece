// Package query answers read-only questions about the token index.
package query

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tokenetic/tokenindex/internal/index"
	"github.com/tokenetic/tokenindex/internal/log"
	"github.com/tokenetic/tokenindex/pkg/types"
)

// Kind names one of the supported question shapes.
type Kind string

const (
	KindBalance  Kind = "balance"  // one token's unspent sum + display info
	KindBalances Kind = "balances" // one summary per token with unspent records
	KindHistory  Kind = "history"  // a token's records, newest first
	KindUTXOs    Kind = "utxos"    // a token's spendable records
)

// ErrUnsupportedQuery is returned for a question shape the engine does
// not recognize. It is the caller's error and surfaces directly.
var ErrUnsupportedQuery = errors.New("unsupported query")

// Question is one read request. TokenID applies to balance, history,
// and utxos; Limit applies to history only (0 means unlimited).
type Question struct {
	Kind    Kind
	TokenID types.TokenID
	Limit   int
}

// Result is the projection answering a Question. Exactly one of the
// two slices is populated, matching the question shape.
type Result struct {
	Balances []index.Balance      `json:"balances,omitempty"`
	Records  []*index.TokenRecord `json:"records,omitempty"`
}

// Engine dispatches questions over the index store. Read-path storage
// failures are logged and answered with an empty result; they never
// propagate to the caller.
type Engine struct {
	store  *index.Store
	logger zerolog.Logger
}

// NewEngine creates a query engine over the given store.
func NewEngine(store *index.Store) *Engine {
	return &Engine{store: store, logger: log.Query}
}

// Answer resolves one question. The only error it returns is
// ErrUnsupportedQuery.
func (e *Engine) Answer(q Question) (*Result, error) {
	switch q.Kind {
	case KindBalance:
		bal, err := e.store.BalanceOf(q.TokenID)
		if err != nil {
			return e.degrade(q, err), nil
		}
		return &Result{Balances: []index.Balance{*bal}}, nil

	case KindBalances:
		bals, err := e.store.AllBalances()
		if err != nil {
			return e.degrade(q, err), nil
		}
		return &Result{Balances: bals}, nil

	case KindHistory:
		recs, err := e.store.History(q.TokenID, q.Limit)
		if err != nil {
			return e.degrade(q, err), nil
		}
		return &Result{Records: recs}, nil

	case KindUTXOs:
		recs, err := e.store.UnspentUTXOs(q.TokenID)
		if err != nil {
			return e.degrade(q, err), nil
		}
		return &Result{Records: recs}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedQuery, q.Kind)
	}
}

// degrade logs a read failure and substitutes an empty result.
func (e *Engine) degrade(q Question, err error) *Result {
	e.logger.Error().
		Str("kind", string(q.Kind)).
		Str("token_id", q.TokenID.String()).
		Err(err).
		Msg("query degraded to empty result")
	return &Result{Balances: []index.Balance{}, Records: []*index.TokenRecord{}}
}
