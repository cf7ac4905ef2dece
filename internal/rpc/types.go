package rpc

import (
	"github.com/tokenetic/tokenindex/internal/admission"
	"github.com/tokenetic/tokenindex/internal/index"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32000
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// TokenIDParam is used by endpoints that take a single token id.
type TokenIDParam struct {
	TokenID string `json:"token_id"`
}

// HistoryParam is used by token_getHistory.
type HistoryParam struct {
	TokenID string `json:"token_id"`
	Limit   int    `json:"limit,omitempty"`
}

// OutputParam is one transaction output submitted for admission.
type OutputParam struct {
	LockingScript string `json:"locking_script"` // hex
	Value         uint64 `json:"value"`
}

// AdmitOutputsParam is used by index_admitOutputs.
type AdmitOutputsParam struct {
	TxID    string        `json:"txid"`
	Outputs []OutputParam `json:"outputs"`
}

// OutpointParam is used by index_markSpent and index_evict.
type OutpointParam struct {
	TxID  string `json:"txid"`
	Index uint32 `json:"index"`
}

// ── Result types ────────────────────────────────────────────────────────

// BalanceResult is returned by token_getBalance and listed by
// token_getAllBalances.
type BalanceResult struct {
	TokenID   string `json:"token_id"`
	Total     uint64 `json:"total"`
	UTXOCount int    `json:"utxo_count"`
	Name      string `json:"name,omitempty"`
	Symbol    string `json:"symbol,omitempty"`
	Decimals  uint8  `json:"decimals,omitempty"`
}

// NewBalanceResult converts an index balance to its RPC shape.
func NewBalanceResult(b index.Balance) BalanceResult {
	return BalanceResult{
		TokenID:   b.TokenID.String(),
		Total:     b.Total,
		UTXOCount: b.UTXOCount,
		Name:      b.Name,
		Symbol:    b.Symbol,
		Decimals:  b.Decimals,
	}
}

// AllBalancesResult is returned by token_getAllBalances.
type AllBalancesResult struct {
	Count    int             `json:"count"`
	Balances []BalanceResult `json:"balances"`
}

// RecordsResult is returned by token_getHistory and token_getUtxos.
type RecordsResult struct {
	Count   int                  `json:"count"`
	Records []*index.TokenRecord `json:"records"`
}

// SkippedOutput describes one output that failed admission.
type SkippedOutput struct {
	Vout   uint32 `json:"vout"`
	Reason string `json:"reason"`
}

// AdmittedOutput describes one output that was admitted.
type AdmittedOutput struct {
	Vout    uint32 `json:"vout"`
	TokenID string `json:"token_id"`
	Amount  uint64 `json:"amount"`
	Layout  string `json:"layout"`
}

// AdmitOutputsResult is returned by index_admitOutputs.
type AdmitOutputsResult struct {
	Admitted []AdmittedOutput `json:"admitted"`
	Skipped  []SkippedOutput  `json:"skipped"`
}

// NewSkippedOutputs converts admission diagnostics to their RPC shape.
func NewSkippedOutputs(diags []admission.Diagnostic) []SkippedOutput {
	out := make([]SkippedOutput, len(diags))
	for i, d := range diags {
		out[i] = SkippedOutput{Vout: d.Vout, Reason: d.Reason}
	}
	return out
}

// AckResult is returned by index_markSpent and index_evict.
type AckResult struct {
	Applied bool `json:"applied"`
}

// StatusResult is returned by index_getStatus.
type StatusResult struct {
	Network string `json:"network"`
	Layout  string `json:"layout"`
	Outputs int    `json:"outputs"`
	Unspent int    `json:"unspent"`
	Tokens  int    `json:"tokens"`
}
