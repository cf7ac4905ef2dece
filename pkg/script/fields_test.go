package script

import (
	"bytes"
	"testing"

	"github.com/tokenetic/tokenindex/pkg/types"
)

func TestDeriveTokenID_Deterministic(t *testing.T) {
	txid := types.Hash{0x01, 0x02}

	a := DeriveTokenID(txid, 0)
	b := DeriveTokenID(txid, 0)
	if a != b {
		t.Error("same outpoint produced different token IDs")
	}

	c := DeriveTokenID(txid, 1)
	if a == c {
		t.Error("different indexes produced the same token ID")
	}

	d := DeriveTokenID(types.Hash{0x01, 0x03}, 0)
	if a == d {
		t.Error("different txids produced the same token ID")
	}
}

func TestAmount_RoundTrip(t *testing.T) {
	for _, amount := range []uint64{0, 1, 1_000_000, 1<<64 - 1} {
		b := AmountBytes(amount)
		if len(b) != AmountSize {
			t.Fatalf("AmountBytes length = %d, want %d", len(b), AmountSize)
		}
		got, err := ParseAmount(b)
		if err != nil {
			t.Fatalf("ParseAmount: %v", err)
		}
		if got != amount {
			t.Errorf("round trip = %d, want %d", got, amount)
		}
	}
}

func TestParseAmount_BadLength(t *testing.T) {
	for _, n := range []int{0, 4, 7, 9} {
		if _, err := ParseAmount(make([]byte, n)); err == nil {
			t.Errorf("ParseAmount with %d bytes succeeded, want error", n)
		}
	}
}

func TestBuildFields(t *testing.T) {
	id := types.TokenID{0xEE}
	owner := bytes.Repeat([]byte{0x02}, 33)

	fields := BuildFields(id, 500, owner, nil)
	if len(fields) != 4 {
		t.Fatalf("field count = %d, want 4", len(fields))
	}
	if string(fields[0]) != Marker {
		t.Errorf("marker = %q, want %q", fields[0], Marker)
	}
	if !bytes.Equal(fields[1], id.Bytes()) {
		t.Errorf("token id field mismatch")
	}
	if amt, _ := ParseAmount(fields[2]); amt != 500 {
		t.Errorf("amount = %d, want 500", amt)
	}
	if !bytes.Equal(fields[3], owner) {
		t.Errorf("owner field mismatch")
	}

	withMeta := BuildFields(id, 500, owner, []byte(`{"name":"Test"}`))
	if len(withMeta) != 5 {
		t.Fatalf("field count with metadata = %d, want 5", len(withMeta))
	}
}

func TestBuildMint(t *testing.T) {
	txid := types.Hash{0xAB}
	owner := bytes.Repeat([]byte{0x03}, 33)

	tokenID, lockingScript := BuildMint(txid, 2, 1_000, owner, nil)
	if tokenID != DeriveTokenID(txid, 2) {
		t.Error("token id does not match the funding outpoint derivation")
	}

	gotOwner, fields, err := Decode(lockingScript)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(gotOwner, owner) {
		t.Errorf("owner = %x, want %x", gotOwner, owner)
	}
	if len(fields) != 4 || !bytes.Equal(fields[1], tokenID.Bytes()) {
		t.Fatalf("fields = %d entries, want 4 with the derived token id", len(fields))
	}
	if amt, _ := ParseAmount(fields[2]); amt != 1_000 {
		t.Errorf("amount = %d, want 1000", amt)
	}
}
