package types

import (
	"strings"
	"testing"
)

func TestOutpoint_String(t *testing.T) {
	op := Outpoint{TxID: Hash{0xAB}, Index: 7}
	s := op.String()
	if !strings.HasPrefix(s, "ab00") {
		t.Errorf("String() = %q, want ab00... prefix", s)
	}
	if !strings.HasSuffix(s, ":7") {
		t.Errorf("String() = %q, want :7 suffix", s)
	}
}

func TestOutpoint_IsZero(t *testing.T) {
	if !(Outpoint{}).IsZero() {
		t.Error("zero outpoint IsZero() = false")
	}
	if (Outpoint{Index: 1}).IsZero() {
		t.Error("outpoint with index IsZero() = true")
	}
	if (Outpoint{TxID: Hash{0x01}}).IsZero() {
		t.Error("outpoint with txid IsZero() = true")
	}
}
