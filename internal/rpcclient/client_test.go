package rpcclient

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/tokenetic/tokenindex/config"
	"github.com/tokenetic/tokenindex/internal/admission"
	"github.com/tokenetic/tokenindex/internal/index"
	"github.com/tokenetic/tokenindex/internal/query"
	"github.com/tokenetic/tokenindex/internal/rpc"
	"github.com/tokenetic/tokenindex/internal/storage"
	"github.com/tokenetic/tokenindex/pkg/crypto"
	"github.com/tokenetic/tokenindex/pkg/script"
	"github.com/tokenetic/tokenindex/pkg/types"
)

func startServer(t *testing.T) *Client {
	t.Helper()
	store := index.NewStore(storage.NewMemory())
	srv := rpc.New("127.0.0.1:0", "testnet",
		admission.NewEngine(&admission.Validator{}, admission.LayoutAuto),
		index.NewIngest(store),
		store,
		query.NewEngine(store),
		admission.LayoutAuto,
		config.RPCConfig{},
	)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })
	return New("http://" + srv.Addr())
}

func TestClient_RoundTrip(t *testing.T) {
	c := startServer(t)

	id := types.TokenID(crypto.Hash([]byte("token")))
	owner := make([]byte, types.PubKeySize)
	owner[0] = 0x02
	lockingScript := script.Encode(owner, script.BuildFields(id, 1_000_000, owner, nil))
	txID := crypto.Hash([]byte("tx")).String()

	res, err := c.AdmitOutputs(txID, []rpc.OutputParam{
		{LockingScript: hex.EncodeToString(lockingScript), Value: 546},
	})
	if err != nil {
		t.Fatalf("AdmitOutputs() error: %v", err)
	}
	if len(res.Admitted) != 1 || res.Admitted[0].Amount != 1_000_000 {
		t.Fatalf("admitted = %+v, want one output of 1000000", res.Admitted)
	}

	bal, err := c.GetBalance(id.String())
	if err != nil {
		t.Fatalf("GetBalance() error: %v", err)
	}
	if bal.Total != 1_000_000 {
		t.Errorf("balance = %d, want 1000000", bal.Total)
	}

	utxos, err := c.GetUtxos(id.String())
	if err != nil {
		t.Fatalf("GetUtxos() error: %v", err)
	}
	if utxos.Count != 1 {
		t.Errorf("utxos count = %d, want 1", utxos.Count)
	}

	if err := c.MarkSpent(txID, 0); err != nil {
		t.Fatalf("MarkSpent() error: %v", err)
	}
	bal, _ = c.GetBalance(id.String())
	if bal.Total != 0 {
		t.Errorf("balance after spend = %d, want 0", bal.Total)
	}

	hist, err := c.GetHistory(id.String(), 0)
	if err != nil {
		t.Fatalf("GetHistory() error: %v", err)
	}
	if hist.Count != 1 || !hist.Records[0].Spent {
		t.Errorf("history = %+v, want one spent record", hist.Records)
	}

	if err := c.Evict(txID, 0); err != nil {
		t.Fatalf("Evict() error: %v", err)
	}
	status, err := c.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus() error: %v", err)
	}
	if status.Outputs != 0 {
		t.Errorf("status outputs = %d, want 0", status.Outputs)
	}
}

func TestClient_ServerError(t *testing.T) {
	c := startServer(t)

	_, err := c.GetBalance("not-hex")
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("error = %v, want *RPCError", err)
	}
	if rpcErr.Code != rpc.CodeInvalidParams {
		t.Errorf("code = %d, want CodeInvalidParams", rpcErr.Code)
	}
}
