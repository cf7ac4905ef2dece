package admission

import (
	"testing"

	"github.com/tokenetic/tokenindex/pkg/crypto"
	"github.com/tokenetic/tokenindex/pkg/script"
)

func TestIdentifyAdmissible_MixedBatch(t *testing.T) {
	lockKey := testOwnerKey()
	txID := crypto.Hash([]byte("tx"))

	outputs := []Output{
		// vout 0: valid, layout B.
		{LockingScript: script.Encode(lockKey, validFields()), Value: 546},
		// vout 1: ordinary non-token script.
		{LockingScript: []byte{0x76, 0xa9, 0x14}, Value: 5000},
		// vout 2: valid, layout A.
		{LockingScript: script.EncodeFields(script.BuildFields(testTokenID(), 42, testOwnerKey(), nil)), Value: 546},
		// vout 3: token-shaped but zero amount.
		{LockingScript: script.Encode(lockKey, script.BuildFields(testTokenID(), 0, testOwnerKey(), nil)), Value: 546},
		// vout 4: truncated push.
		{LockingScript: []byte{0x4c}, Value: 0},
	}

	e := NewEngine(&Validator{}, LayoutAuto)
	admitted, skipped := e.IdentifyAdmissible(txID, outputs)

	if len(admitted) != 2 {
		t.Fatalf("admitted %d outputs, want 2", len(admitted))
	}
	if admitted[0].Vout != 0 || admitted[1].Vout != 2 {
		t.Errorf("admitted vouts = %d,%d, want 0,2", admitted[0].Vout, admitted[1].Vout)
	}
	if admitted[0].Candidate.Layout != LayoutB {
		t.Errorf("vout 0 layout = %s, want B", admitted[0].Candidate.Layout)
	}
	if admitted[1].Candidate.Layout != LayoutA {
		t.Errorf("vout 2 layout = %s, want A", admitted[1].Candidate.Layout)
	}
	if admitted[1].Candidate.Amount != 42 {
		t.Errorf("vout 2 amount = %d, want 42", admitted[1].Candidate.Amount)
	}
	if admitted[0].Value != 546 {
		t.Errorf("vout 0 value = %d, want 546", admitted[0].Value)
	}

	if len(skipped) != 3 {
		t.Fatalf("skipped %d outputs, want 3", len(skipped))
	}
	wantSkipped := []uint32{1, 3, 4}
	for i, d := range skipped {
		if d.Vout != wantSkipped[i] {
			t.Errorf("skipped[%d].Vout = %d, want %d", i, d.Vout, wantSkipped[i])
		}
		if d.Reason == "" {
			t.Errorf("skipped[%d] has empty reason", i)
		}
	}
}

func TestIdentifyAdmissible_ForcedLayout(t *testing.T) {
	txID := crypto.Hash([]byte("tx"))
	scriptA := script.EncodeFields(validFields())
	scriptB := script.Encode(testOwnerKey(), validFields())

	// An engine pinned to layout A rejects a B script and vice versa.
	engA := NewEngine(&Validator{}, LayoutA)
	admitted, _ := engA.IdentifyAdmissible(txID, []Output{{LockingScript: scriptB, Value: 1}})
	if len(admitted) != 0 {
		t.Errorf("layout A engine admitted a B script")
	}
	admitted, _ = engA.IdentifyAdmissible(txID, []Output{{LockingScript: scriptA, Value: 1}})
	if len(admitted) != 1 {
		t.Errorf("layout A engine rejected an A script")
	}

	engB := NewEngine(&Validator{}, LayoutB)
	admitted, _ = engB.IdentifyAdmissible(txID, []Output{{LockingScript: scriptA, Value: 1}})
	if len(admitted) != 0 {
		t.Errorf("layout B engine admitted an A script")
	}
	admitted, _ = engB.IdentifyAdmissible(txID, []Output{{LockingScript: scriptB, Value: 1}})
	if len(admitted) != 1 {
		t.Errorf("layout B engine rejected a B script")
	}
}

func TestIdentifyAdmissible_Empty(t *testing.T) {
	e := NewEngine(nil, LayoutAuto)
	admitted, skipped := e.IdentifyAdmissible(crypto.Hash([]byte("tx")), nil)
	if len(admitted) != 0 || len(skipped) != 0 {
		t.Errorf("empty input produced %d admissions, %d diagnostics", len(admitted), len(skipped))
	}
}
