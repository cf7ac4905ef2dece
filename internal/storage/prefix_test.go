package storage

import (
	"bytes"
	"testing"
)

func TestPrefixDB(t *testing.T) {
	inner := NewMemory()
	defer inner.Close()
	db := NewPrefixDB(inner, []byte("net1/"))
	testDB(t, db)
}

func TestPrefixDB_Isolation(t *testing.T) {
	inner := NewMemory()
	defer inner.Close()

	a := NewPrefixDB(inner, []byte("a/"))
	b := NewPrefixDB(inner, []byte("b/"))

	a.Put([]byte("key"), []byte("from-a"))
	b.Put([]byte("key"), []byte("from-b"))

	got, err := a.Get([]byte("key"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, []byte("from-a")) {
		t.Errorf("a.Get = %q, want from-a", got)
	}

	got, err = b.Get([]byte("key"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, []byte("from-b")) {
		t.Errorf("b.Get = %q, want from-b", got)
	}
}

func TestPrefixDB_ForEachStripsPrefix(t *testing.T) {
	inner := NewMemory()
	defer inner.Close()
	db := NewPrefixDB(inner, []byte("ns/"))

	db.Put([]byte("x/1"), []byte("v1"))
	db.Put([]byte("x/2"), []byte("v2"))

	var keys []string
	err := db.ForEach([]byte("x/"), func(key, _ []byte) error {
		keys = append(keys, string(key))
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("key count = %d, want 2", len(keys))
	}
	for _, k := range keys {
		if k != "x/1" && k != "x/2" {
			t.Errorf("key %q should have prefix stripped", k)
		}
	}
}

func TestPrefixDB_DeleteAll(t *testing.T) {
	inner := NewMemory()
	defer inner.Close()

	a := NewPrefixDB(inner, []byte("a/"))
	b := NewPrefixDB(inner, []byte("b/"))

	a.Put([]byte("1"), []byte("x"))
	a.Put([]byte("2"), []byte("y"))
	b.Put([]byte("1"), []byte("z"))

	if err := a.DeleteAll(); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}

	if ok, _ := a.Has([]byte("1")); ok {
		t.Error("a/1 should be deleted")
	}
	if ok, _ := b.Has([]byte("1")); !ok {
		t.Error("b/1 should survive a.DeleteAll()")
	}
}
