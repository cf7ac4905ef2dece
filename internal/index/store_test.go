package index

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/tokenetic/tokenindex/internal/storage"
	"github.com/tokenetic/tokenindex/pkg/crypto"
	"github.com/tokenetic/tokenindex/pkg/types"
)

func testRecord(txSeed string, vout uint32, id types.TokenID, amount uint64) *TokenRecord {
	owner := make(types.HexBytes, types.PubKeySize)
	owner[0] = 0x02
	return &TokenRecord{
		TxID:          crypto.Hash([]byte(txSeed)),
		Vout:          vout,
		TokenID:       id,
		Amount:        amount,
		Owner:         owner,
		LockingScript: types.HexBytes{0x01, 0x02},
		Value:         546,
	}
}

func tokenA() types.TokenID { return types.TokenID(crypto.Hash([]byte("token-a"))) }
func tokenB() types.TokenID { return types.TokenID(crypto.Hash([]byte("token-b"))) }

func TestStore_AdmitAndGet(t *testing.T) {
	s := NewStore(storage.NewMemory())

	rec := testRecord("tx1", 0, tokenA(), 1000)
	if err := s.Admit(rec); err != nil {
		t.Fatalf("Admit() error: %v", err)
	}

	got, err := s.Get(rec.Outpoint())
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Amount != 1000 {
		t.Errorf("Amount = %d, want 1000", got.Amount)
	}
	if got.Spent {
		t.Error("fresh record should be unspent")
	}
	if got.AdmittedAt == 0 {
		t.Error("AdmittedAt should be assigned")
	}
}

func TestStore_DuplicateAdmit(t *testing.T) {
	s := NewStore(storage.NewMemory())

	rec := testRecord("tx1", 0, tokenA(), 700)
	if err := s.Admit(rec); err != nil {
		t.Fatalf("first Admit() error: %v", err)
	}

	// Second admit of the same outpoint, even with different contents,
	// must not disturb the stored record.
	dup := testRecord("tx1", 0, tokenA(), 9999)
	err := s.Admit(dup)
	if !errors.Is(err, ErrDuplicateOutput) {
		t.Fatalf("second Admit() error = %v, want ErrDuplicateOutput", err)
	}

	got, err := s.Get(rec.Outpoint())
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Amount != 700 {
		t.Errorf("stored amount = %d, want 700 (winner must survive)", got.Amount)
	}
}

func TestStore_AdmitZeroAmount(t *testing.T) {
	s := NewStore(storage.NewMemory())
	rec := testRecord("tx1", 0, tokenA(), 0)
	if err := s.Admit(rec); err == nil {
		t.Fatal("Admit() with zero amount should fail")
	}
}

func TestStore_BalanceInvariant(t *testing.T) {
	s := NewStore(storage.NewMemory())
	id := tokenA()

	big := testRecord("tx1", 0, id, 700)
	small := testRecord("tx1", 1, id, 300)
	if err := s.Admit(big); err != nil {
		t.Fatalf("Admit() error: %v", err)
	}
	if err := s.Admit(small); err != nil {
		t.Fatalf("Admit() error: %v", err)
	}

	checkInvariant := func(wantTotal uint64) {
		t.Helper()
		bal, err := s.BalanceOf(id)
		if err != nil {
			t.Fatalf("BalanceOf() error: %v", err)
		}
		if bal.Total != wantTotal {
			t.Errorf("BalanceOf() = %d, want %d", bal.Total, wantTotal)
		}

		utxos, err := s.UnspentUTXOs(id)
		if err != nil {
			t.Fatalf("UnspentUTXOs() error: %v", err)
		}
		var sum uint64
		for _, u := range utxos {
			sum += u.Amount
		}
		if sum != bal.Total {
			t.Errorf("sum(utxos) = %d, balance = %d; must match", sum, bal.Total)
		}
	}

	checkInvariant(1000)

	if err := s.MarkSpent(small.Outpoint()); err != nil {
		t.Fatalf("MarkSpent() error: %v", err)
	}
	checkInvariant(700)
}

func TestStore_MonotonicSpend(t *testing.T) {
	s := NewStore(storage.NewMemory())
	rec := testRecord("tx1", 0, tokenA(), 100)
	if err := s.Admit(rec); err != nil {
		t.Fatalf("Admit() error: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := s.MarkSpent(rec.Outpoint()); err != nil {
			t.Fatalf("MarkSpent() call %d error: %v", i+1, err)
		}
	}

	got, _ := s.Get(rec.Outpoint())
	if !got.Spent {
		t.Error("record should stay spent")
	}
}

func TestStore_MarkSpentMissing(t *testing.T) {
	s := NewStore(storage.NewMemory())
	op := types.Outpoint{TxID: crypto.Hash([]byte("never")), Index: 0}
	if err := s.MarkSpent(op); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkSpent() missing = %v, want ErrNotFound", err)
	}
}

func TestStore_EvictionFinality(t *testing.T) {
	s := NewStore(storage.NewMemory())
	id := tokenA()

	keep := testRecord("tx1", 0, id, 700)
	gone := testRecord("tx1", 1, id, 300)
	s.Admit(keep)
	s.Admit(gone)

	if err := s.Evict(gone.Outpoint()); err != nil {
		t.Fatalf("Evict() error: %v", err)
	}

	if _, err := s.Get(gone.Outpoint()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after evict = %v, want ErrNotFound", err)
	}

	hist, err := s.History(id, 0)
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	for _, r := range hist {
		if r.Outpoint() == gone.Outpoint() {
			t.Error("evicted record present in history")
		}
	}

	utxos, _ := s.UnspentUTXOs(id)
	if len(utxos) != 1 {
		t.Errorf("UnspentUTXOs() count = %d, want 1", len(utxos))
	}

	bal, _ := s.BalanceOf(id)
	if bal.Total != 700 {
		t.Errorf("BalanceOf() after evict = %d, want 700", bal.Total)
	}

	// A spent record is evictable too.
	s.MarkSpent(keep.Outpoint())
	if err := s.Evict(keep.Outpoint()); err != nil {
		t.Fatalf("Evict() spent record error: %v", err)
	}
	bals, _ := s.AllBalances()
	if len(bals) != 0 {
		t.Errorf("AllBalances() after full evict = %d entries, want 0", len(bals))
	}
}

func TestStore_EvictMissing(t *testing.T) {
	s := NewStore(storage.NewMemory())
	op := types.Outpoint{TxID: crypto.Hash([]byte("never")), Index: 7}
	if err := s.Evict(op); !errors.Is(err, ErrNotFound) {
		t.Errorf("Evict() missing = %v, want ErrNotFound", err)
	}
}

func TestStore_History(t *testing.T) {
	s := NewStore(storage.NewMemory())
	id := tokenA()

	first := testRecord("tx1", 0, id, 10)
	second := testRecord("tx2", 0, id, 20)
	third := testRecord("tx3", 0, id, 30)
	s.Admit(first)
	s.Admit(second)
	s.Admit(third)
	s.MarkSpent(second.Outpoint())

	// Newest first, spent included.
	hist, err := s.History(id, 0)
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(hist) != 3 {
		t.Fatalf("History() count = %d, want 3", len(hist))
	}
	wantAmounts := []uint64{30, 20, 10}
	for i, r := range hist {
		if r.Amount != wantAmounts[i] {
			t.Errorf("hist[%d].Amount = %d, want %d", i, r.Amount, wantAmounts[i])
		}
	}
	if !hist[1].Spent {
		t.Error("spent record should appear in history as spent")
	}

	limited, _ := s.History(id, 2)
	if len(limited) != 2 || limited[0].Amount != 30 {
		t.Errorf("History(limit=2) = %d records starting at %d, want 2 starting at 30",
			len(limited), limited[0].Amount)
	}
}

func TestStore_AllBalances(t *testing.T) {
	s := NewStore(storage.NewMemory())

	meta := json.RawMessage(`{"name":"Alpha","symbol":"ALP","decimals":2}`)
	mint := testRecord("tx1", 0, tokenA(), 500)
	mint.Metadata = meta
	s.Admit(mint)
	s.Admit(testRecord("tx2", 0, tokenA(), 250))
	s.Admit(testRecord("tx3", 0, tokenB(), 900))

	bals, err := s.AllBalances()
	if err != nil {
		t.Fatalf("AllBalances() error: %v", err)
	}
	if len(bals) != 2 {
		t.Fatalf("AllBalances() count = %d, want 2", len(bals))
	}

	byID := make(map[types.TokenID]Balance)
	for _, b := range bals {
		byID[b.TokenID] = b
	}
	a := byID[tokenA()]
	if a.Total != 750 || a.UTXOCount != 2 {
		t.Errorf("token A balance = %d/%d utxos, want 750/2", a.Total, a.UTXOCount)
	}
	if a.Name != "Alpha" || a.Symbol != "ALP" || a.Decimals != 2 {
		t.Errorf("token A info = %+v, want Alpha/ALP/2", a.TokenInfo)
	}
	if byID[tokenB()].Total != 900 {
		t.Errorf("token B total = %d, want 900", byID[tokenB()].Total)
	}

	// A fully spent token drops out of the summary.
	s.MarkSpent(types.Outpoint{TxID: crypto.Hash([]byte("tx3")), Index: 0})
	bals, _ = s.AllBalances()
	if len(bals) != 1 || bals[0].TokenID != tokenA() {
		t.Errorf("AllBalances() after spend should only list token A")
	}
}

func TestStore_BalanceOfUnknownToken(t *testing.T) {
	s := NewStore(storage.NewMemory())
	bal, err := s.BalanceOf(tokenA())
	if err != nil {
		t.Fatalf("BalanceOf() error: %v", err)
	}
	if bal.Total != 0 || bal.UTXOCount != 0 {
		t.Errorf("unknown token balance = %d/%d, want 0/0", bal.Total, bal.UTXOCount)
	}
}

func TestStore_SequencePersists(t *testing.T) {
	db := storage.NewMemory()

	s1 := NewStore(db)
	s1.Admit(testRecord("tx1", 0, tokenA(), 10))
	s1.Admit(testRecord("tx2", 0, tokenA(), 20))

	// A new store over the same database continues the sequence.
	s2 := NewStore(db)
	rec := testRecord("tx3", 0, tokenA(), 30)
	if err := s2.Admit(rec); err != nil {
		t.Fatalf("Admit() error: %v", err)
	}

	hist, _ := s2.History(tokenA(), 1)
	if len(hist) != 1 || hist[0].Amount != 30 {
		t.Error("latest admission should lead history after reopen")
	}
}

func TestStore_ConcurrentAdmit(t *testing.T) {
	s := NewStore(storage.NewMemory())

	// Racing admits for one outpoint: exactly one wins, the rest get
	// ErrDuplicateOutput, and the stored record is the winner's.
	const writers = 16
	errs := make([]error, writers)

	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Admit(testRecord("tx1", 0, tokenA(), uint64(100+i)))
		}(i)
	}
	wg.Wait()

	winner := -1
	for i, err := range errs {
		switch {
		case err == nil:
			if winner >= 0 {
				t.Fatalf("admits %d and %d both succeeded", winner, i)
			}
			winner = i
		case !errors.Is(err, ErrDuplicateOutput):
			t.Fatalf("admit %d error = %v, want ErrDuplicateOutput", i, err)
		}
	}
	if winner < 0 {
		t.Fatal("no admit succeeded")
	}

	got, err := s.Get(testRecord("tx1", 0, tokenA(), 0).Outpoint())
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Amount != uint64(100+winner) {
		t.Errorf("stored amount = %d, want the winner's %d", got.Amount, 100+winner)
	}
}

func TestStore_ConcurrentMarkSpent(t *testing.T) {
	s := NewStore(storage.NewMemory())
	rec := testRecord("tx1", 0, tokenA(), 500)
	if err := s.Admit(rec); err != nil {
		t.Fatalf("Admit() error: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(8)
	for i := 0; i < 8; i++ {
		go func() {
			defer wg.Done()
			if err := s.MarkSpent(rec.Outpoint()); err != nil {
				t.Errorf("MarkSpent() error: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := s.Get(rec.Outpoint())
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !got.Spent {
		t.Error("record should be spent after concurrent marks")
	}
}
