// Package index maintains the persistent view of admitted token
// outputs: one record per physical output, flipped to spent exactly
// once, removed only by eviction.
package index

import (
	"encoding/json"

	"github.com/tokenetic/tokenindex/pkg/types"
)

// TokenRecord is one admitted token output and its lifecycle state.
type TokenRecord struct {
	TxID    types.Hash    `json:"txid"`
	Vout    uint32        `json:"vout"`
	TokenID types.TokenID `json:"token_id"`
	Amount  uint64        `json:"amount"`
	Owner   types.HexBytes `json:"owner"`

	// Metadata is carried only by some outputs, typically the mint.
	Metadata json.RawMessage `json:"metadata,omitempty"`

	// LockingScript and Value let a caller construct a spend of this
	// output without going back to the chain.
	LockingScript types.HexBytes `json:"locking_script"`
	Value         uint64         `json:"value"`

	Spent bool `json:"spent"`

	// AdmittedAt is a store-assigned sequence number. It orders history
	// queries and is strictly increasing per store.
	AdmittedAt uint64 `json:"admitted_at"`
}

// Outpoint returns the record's physical output key.
func (r *TokenRecord) Outpoint() types.Outpoint {
	return types.Outpoint{TxID: r.TxID, Index: r.Vout}
}

// TokenInfo is the display metadata subset extracted from a record's
// metadata object. Fields the metadata does not carry stay zero.
type TokenInfo struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// Balance is the aggregate view of one token's unspent records.
type Balance struct {
	TokenID   types.TokenID `json:"token_id"`
	Total     uint64        `json:"total"`
	UTXOCount int           `json:"utxo_count"`
	TokenInfo
}

// infoFromMetadata extracts display fields from a metadata object.
// Unknown keys and parse failures are ignored; metadata is expected,
// not guaranteed, to be well-formed here.
func infoFromMetadata(meta json.RawMessage) (TokenInfo, bool) {
	if len(meta) == 0 {
		return TokenInfo{}, false
	}
	var info TokenInfo
	if err := json.Unmarshal(meta, &info); err != nil {
		return TokenInfo{}, false
	}
	return info, true
}
