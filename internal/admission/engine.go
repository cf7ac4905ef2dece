package admission

import (
	"github.com/rs/zerolog"

	"github.com/tokenetic/tokenindex/internal/log"
	"github.com/tokenetic/tokenindex/pkg/script"
	"github.com/tokenetic/tokenindex/pkg/types"
)

// Output is one transaction output as seen by the scanner.
type Output struct {
	LockingScript []byte
	Value         uint64
}

// Admission is one output that passed validation, paired with enough
// context for the index to record it.
type Admission struct {
	Vout          uint32
	Candidate     *Candidate
	LockingScript types.HexBytes
	Value         uint64
}

// Diagnostic records why one output was skipped. Skipped outputs are
// normal: most outputs in a transaction carry no token fields at all.
type Diagnostic struct {
	Vout   uint32
	Reason string
}

// Engine scans transaction outputs and identifies the admissible ones.
// A failure on one output never aborts the scan; the remaining outputs
// are still considered.
type Engine struct {
	validator *Validator
	layout    Layout
	logger    zerolog.Logger
}

// NewEngine creates an admission engine. layout selects which script
// layout to decode; LayoutAuto tries B then A per output.
func NewEngine(v *Validator, layout Layout) *Engine {
	if v == nil {
		v = &Validator{}
	}
	return &Engine{
		validator: v,
		layout:    layout,
		logger:    log.Admission,
	}
}

// IdentifyAdmissible scans every output of a transaction and returns
// the validated candidates plus a diagnostic per skipped output. The
// result preserves output order and never contains the same vout twice.
func (e *Engine) IdentifyAdmissible(txID types.Hash, outputs []Output) ([]Admission, []Diagnostic) {
	var admitted []Admission
	var skipped []Diagnostic

	for i, out := range outputs {
		vout := uint32(i)
		cand, err := e.scanOutput(out.LockingScript)
		if err != nil {
			skipped = append(skipped, Diagnostic{Vout: vout, Reason: err.Error()})
			e.logger.Debug().
				Str("txid", txID.String()).
				Uint32("vout", vout).
				Err(err).
				Msg("output skipped")
			continue
		}

		ls := make(types.HexBytes, len(out.LockingScript))
		copy(ls, out.LockingScript)
		admitted = append(admitted, Admission{
			Vout:          vout,
			Candidate:     cand,
			LockingScript: ls,
			Value:         out.Value,
		})
		e.logger.Debug().
			Str("txid", txID.String()).
			Uint32("vout", vout).
			Str("token_id", cand.TokenID.String()).
			Uint64("amount", cand.Amount).
			Str("layout", cand.Layout.String()).
			Msg("output admissible")
	}

	return admitted, skipped
}

// scanOutput decodes and validates a single locking script.
func (e *Engine) scanOutput(lockingScript []byte) (*Candidate, error) {
	switch e.layout {
	case LayoutA, LayoutB:
		return e.tryLayout(lockingScript, e.layout)
	default:
		// Auto: prefer the layout with the leading key push, fall back
		// to the flat field list.
		cand, errB := e.tryLayout(lockingScript, LayoutB)
		if errB == nil {
			return cand, nil
		}
		cand, errA := e.tryLayout(lockingScript, LayoutA)
		if errA == nil {
			return cand, nil
		}
		return nil, errB
	}
}

func (e *Engine) tryLayout(lockingScript []byte, layout Layout) (*Candidate, error) {
	var fields [][]byte
	var err error
	switch layout {
	case LayoutB:
		_, fields, err = script.Decode(lockingScript)
	default:
		fields, err = script.DecodeFields(lockingScript)
	}
	if err != nil {
		return nil, err
	}
	return e.validator.Validate(fields, layout)
}
