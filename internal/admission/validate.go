// Package admission decides which transaction outputs conform to the
// token protocol.
//
// Validation is a deterministic pipeline over positional fields decoded
// by pkg/script. Each stage short-circuits with a typed rejection
// reason; rejections are returned, never raised, and the caller decides
// whether to log them.
package admission

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/tokenetic/tokenindex/pkg/script"
	"github.com/tokenetic/tokenindex/pkg/types"
)

// Layout identifies one of the coexisting script layouts. The protocol
// drifted between revisions: layout A folds the owner key into the
// field list with no leading key push, layout B carries a separate
// locking key as the script's leading push.
type Layout uint8

const (
	// LayoutAuto tries LayoutB first, then LayoutA, and accepts the
	// first candidate that validates.
	LayoutAuto Layout = iota
	LayoutA
	LayoutB
)

// String returns a human-readable name for the layout.
func (l Layout) String() string {
	switch l {
	case LayoutAuto:
		return "auto"
	case LayoutA:
		return "A"
	case LayoutB:
		return "B"
	default:
		return "Unknown"
	}
}

// ParseLayout converts a config string ("auto", "a", "b") to a Layout.
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "", "auto":
		return LayoutAuto, nil
	case "a", "A":
		return LayoutA, nil
	case "b", "B":
		return LayoutB, nil
	default:
		return LayoutAuto, fmt.Errorf("unknown layout %q (want auto, a, or b)", s)
	}
}

// layoutSpec fixes the positional meaning of fields for one layout.
// Both layouts currently share the same field table; what differs is
// how the script bytes are decoded into the field list.
type layoutSpec struct {
	minFields int
	marker    int
	tokenID   int
	amount    int
	owner     int
	metadata  int // optional; present when len(fields) > metadata
}

var layouts = map[Layout]layoutSpec{
	LayoutA: {minFields: 4, marker: 0, tokenID: 1, amount: 2, owner: 3, metadata: 4},
	LayoutB: {minFields: 4, marker: 0, tokenID: 1, amount: 2, owner: 3, metadata: 4},
}

// Rejection reasons. Every validation failure wraps one of these.
var (
	ErrTooFewFields = errors.New("too few fields")
	ErrBadMarker    = errors.New("protocol marker mismatch")
	ErrBadTokenID   = errors.New("token id must be 32 bytes")
	ErrBadAmount    = errors.New("malformed amount field")
	ErrZeroAmount   = errors.New("zero token amount")
	ErrBadOwnerKey  = errors.New("malformed owner key")
	ErrBadMetadata  = errors.New("metadata is not a JSON object")
)

// Candidate is a validated token output, ready for admission into the
// index.
type Candidate struct {
	TokenID  types.TokenID
	Amount   uint64
	OwnerKey types.HexBytes
	Metadata json.RawMessage // nil when the output carries no metadata
	Layout   Layout
}

// Validator applies the protocol rules to decoded field lists.
type Validator struct {
	// StrictKeys additionally requires owner keys to parse as
	// compressed secp256k1 points. Off by default: historical outputs
	// exist whose owner field is 33 bytes but not a valid point.
	StrictKeys bool
}

// Validate checks a positional field list against the given layout and
// returns a Candidate or a typed rejection reason. It is pure: no
// logging, no state.
func (v *Validator) Validate(fields [][]byte, layout Layout) (*Candidate, error) {
	spec, ok := layouts[layout]
	if !ok {
		return nil, fmt.Errorf("validate: no field table for layout %s", layout)
	}

	if len(fields) < spec.minFields {
		return nil, fmt.Errorf("%w: got %d, need %d", ErrTooFewFields, len(fields), spec.minFields)
	}

	if string(fields[spec.marker]) != script.Marker {
		return nil, fmt.Errorf("%w: %q", ErrBadMarker, fields[spec.marker])
	}

	idBytes := fields[spec.tokenID]
	if len(idBytes) != types.HashSize {
		return nil, fmt.Errorf("%w: got %d", ErrBadTokenID, len(idBytes))
	}
	var tokenID types.TokenID
	copy(tokenID[:], idBytes)

	amount, err := script.ParseAmount(fields[spec.amount])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadAmount, err)
	}
	if amount == 0 {
		return nil, ErrZeroAmount
	}

	ownerKey := fields[spec.owner]
	if len(ownerKey) != types.PubKeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrBadOwnerKey, len(ownerKey), types.PubKeySize)
	}
	if v.StrictKeys {
		if _, err := secp256k1.ParsePubKey(ownerKey); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadOwnerKey, err)
		}
	}

	var metadata json.RawMessage
	if len(fields) > spec.metadata {
		raw := fields[spec.metadata]
		// Metadata is all-or-nothing: a present field must be a
		// well-formed JSON object or the whole candidate rejects.
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadMetadata, err)
		}
		// Unmarshal accepts the literal null and leaves the map nil.
		if obj == nil {
			return nil, fmt.Errorf("%w: null", ErrBadMetadata)
		}
		metadata = make(json.RawMessage, len(raw))
		copy(metadata, raw)
	}

	owner := make(types.HexBytes, len(ownerKey))
	copy(owner, ownerKey)

	return &Candidate{
		TokenID:  tokenID,
		Amount:   amount,
		OwnerKey: owner,
		Metadata: metadata,
		Layout:   layout,
	}, nil
}
