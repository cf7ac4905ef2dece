package script

import (
	"bytes"
	"testing"
)

// FuzzDecode checks that Decode never panics and that anything it
// accepts re-encodes to a script that decodes to the same values.
func FuzzDecode(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{0x01, 0xAA, OpDrop, 0x02, 'h', 'i', OpDrop})
	f.Add(Encode(bytes.Repeat([]byte{0x02}, 33), [][]byte{[]byte("TOKEN"), AmountBytes(1)}))
	f.Add([]byte{OpPushData2, 0xFF, 0xFF})

	f.Fuzz(func(t *testing.T, data []byte) {
		owner, fields, err := Decode(data)
		if err != nil {
			return
		}

		reencoded := Encode(owner, fields)
		owner2, fields2, err := Decode(reencoded)
		if err != nil {
			t.Fatalf("re-decode failed: %v", err)
		}
		if !bytes.Equal(owner, owner2) {
			t.Fatalf("owner changed: %x != %x", owner, owner2)
		}
		if len(fields) != len(fields2) {
			t.Fatalf("field count changed: %d != %d", len(fields), len(fields2))
		}
		for i := range fields {
			if !bytes.Equal(fields[i], fields2[i]) {
				t.Fatalf("field %d changed", i)
			}
		}
	})
}
