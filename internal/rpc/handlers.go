package rpc

import (
	"encoding/hex"
	"fmt"

	"github.com/tokenetic/tokenindex/internal/admission"
	"github.com/tokenetic/tokenindex/internal/index"
	"github.com/tokenetic/tokenindex/internal/query"
	"github.com/tokenetic/tokenindex/pkg/types"
)

// parseTokenID decodes a hex token id from params.
func parseTokenID(s string) (types.TokenID, *Error) {
	id, err := types.HexToTokenID(s)
	if err != nil {
		return types.TokenID{}, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid token_id: %v", err)}
	}
	return id, nil
}

func (s *Server) handleGetBalance(req *Request) (interface{}, *Error) {
	var params TokenIDParam
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := parseTokenID(params.TokenID)
	if rpcErr != nil {
		return nil, rpcErr
	}

	res, err := s.queries.Answer(query.Question{Kind: query.KindBalance, TokenID: id})
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	if len(res.Balances) == 0 {
		return NewBalanceResult(index.Balance{TokenID: id}), nil
	}
	return NewBalanceResult(res.Balances[0]), nil
}

func (s *Server) handleGetAllBalances(req *Request) (interface{}, *Error) {
	res, err := s.queries.Answer(query.Question{Kind: query.KindBalances})
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}

	balances := make([]BalanceResult, len(res.Balances))
	for i, b := range res.Balances {
		balances[i] = NewBalanceResult(b)
	}
	return AllBalancesResult{Count: len(balances), Balances: balances}, nil
}

func (s *Server) handleGetHistory(req *Request) (interface{}, *Error) {
	var params HistoryParam
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := parseTokenID(params.TokenID)
	if rpcErr != nil {
		return nil, rpcErr
	}

	res, err := s.queries.Answer(query.Question{Kind: query.KindHistory, TokenID: id, Limit: params.Limit})
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	return RecordsResult{Count: len(res.Records), Records: res.Records}, nil
}

func (s *Server) handleGetUtxos(req *Request) (interface{}, *Error) {
	var params TokenIDParam
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := parseTokenID(params.TokenID)
	if rpcErr != nil {
		return nil, rpcErr
	}

	res, err := s.queries.Answer(query.Question{Kind: query.KindUTXOs, TokenID: id})
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	return RecordsResult{Count: len(res.Records), Records: res.Records}, nil
}

func (s *Server) handleAdmitOutputs(req *Request) (interface{}, *Error) {
	var params AdmitOutputsParam
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	txID, err := types.HexToHash(params.TxID)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid txid: %v", err)}
	}

	outputs := make([]admission.Output, len(params.Outputs))
	for i, o := range params.Outputs {
		scriptBytes, err := hex.DecodeString(o.LockingScript)
		if err != nil {
			return nil, &Error{
				Code:    CodeInvalidParams,
				Message: fmt.Sprintf("output %d: invalid locking_script hex: %v", i, err),
			}
		}
		outputs[i] = admission.Output{LockingScript: scriptBytes, Value: o.Value}
	}

	admitted, skipped := s.admitter.IdentifyAdmissible(txID, outputs)

	result := AdmitOutputsResult{
		Admitted: []AdmittedOutput{},
		Skipped:  NewSkippedOutputs(skipped),
	}
	for _, adm := range admitted {
		rec := &index.TokenRecord{
			TxID:          txID,
			Vout:          adm.Vout,
			TokenID:       adm.Candidate.TokenID,
			Amount:        adm.Candidate.Amount,
			Owner:         adm.Candidate.OwnerKey,
			Metadata:      adm.Candidate.Metadata,
			LockingScript: adm.LockingScript,
			Value:         adm.Value,
		}
		if err := s.ingest.Deliver(index.AdmitCommand{Record: rec}); err != nil {
			return nil, &Error{Code: CodeInternalError, Message: err.Error()}
		}
		result.Admitted = append(result.Admitted, AdmittedOutput{
			Vout:    adm.Vout,
			TokenID: adm.Candidate.TokenID.String(),
			Amount:  adm.Candidate.Amount,
			Layout:  adm.Candidate.Layout.String(),
		})
	}
	return result, nil
}

func (s *Server) parseOutpoint(req *Request) (types.Outpoint, *Error) {
	var params OutpointParam
	if rpcErr := parseParams(req, &params); rpcErr != nil {
		return types.Outpoint{}, rpcErr
	}
	txID, err := types.HexToHash(params.TxID)
	if err != nil {
		return types.Outpoint{}, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid txid: %v", err)}
	}
	return types.Outpoint{TxID: txID, Index: params.Index}, nil
}

func (s *Server) handleMarkSpent(req *Request) (interface{}, *Error) {
	op, rpcErr := s.parseOutpoint(req)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.ingest.Deliver(index.SpendCommand{Outpoint: op}); err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	return AckResult{Applied: true}, nil
}

func (s *Server) handleEvict(req *Request) (interface{}, *Error) {
	op, rpcErr := s.parseOutpoint(req)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.ingest.Deliver(index.EvictCommand{Outpoint: op}); err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	return AckResult{Applied: true}, nil
}

func (s *Server) handleGetStatus(req *Request) (interface{}, *Error) {
	stats, err := s.store.Stats()
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	return StatusResult{
		Network: s.network,
		Layout:  s.layout.String(),
		Outputs: stats.Outputs,
		Unspent: stats.Unspent,
		Tokens:  stats.Tokens,
	}, nil
}
