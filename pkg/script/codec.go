// Package script implements the push-data codec for token locking scripts.
//
// A token output embeds an ordered list of opaque byte fields in its
// locking script, delimited by OP_DROP markers:
//
//	push(ownerKey) OP_DROP push(field0) push(field1) ... push(fieldN) OP_DROP
//
// Field meaning is positional and interpreted by the admission validator;
// the codec only moves bytes. Decode is pure: it never mutates state and
// returns ErrMalformed (wrapped with detail) for anything it cannot parse.
package script

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Script opcodes recognized by the codec. Push-data encoding follows the
// standard convention: a direct length byte for up to 75 bytes, then
// wider length prefixes.
const (
	OpPushData1 = 0x4c // next 1 byte is the push length
	OpPushData2 = 0x4d // next 2 bytes (LE) are the push length
	OpPushData4 = 0x4e // next 4 bytes (LE) are the push length
	OpDrop      = 0x75 // positional delimiter, not data

	// MaxDirectPush is the largest payload encodable with a bare length byte.
	MaxDirectPush = 75
)

// ErrMalformed is returned when a script cannot be decoded.
var ErrMalformed = errors.New("malformed script")

// Encode builds a token locking script from an owner public key and an
// ordered field list. Zero-length fields are valid and encode as a
// zero-length push.
func Encode(ownerKey []byte, fields [][]byte) []byte {
	size := pushSize(len(ownerKey)) + 1 // owner push + DROP
	for _, f := range fields {
		size += pushSize(len(f))
	}
	size++ // terminal DROP

	out := make([]byte, 0, size)
	out = appendPush(out, ownerKey)
	out = append(out, OpDrop)
	for _, f := range fields {
		out = appendPush(out, f)
	}
	out = append(out, OpDrop)
	return out
}

// EncodeFields builds a bare field-list script with no leading owner-key
// push (the historical layout that folds the owner into the field list):
//
//	push(field0) ... push(fieldN) OP_DROP
func EncodeFields(fields [][]byte) []byte {
	size := 1
	for _, f := range fields {
		size += pushSize(len(f))
	}
	out := make([]byte, 0, size)
	for _, f := range fields {
		out = appendPush(out, f)
	}
	out = append(out, OpDrop)
	return out
}

// Decode parses a locking script produced by Encode. The first chunk must
// be a push (the owner key), the second the DROP delimiter; every push
// after that becomes a field until the terminal DROP or end of script.
//
// Historical scripts drifted in layout, so Decode is deliberately lenient
// at the tail: once at least one field has been read, an unexpected
// opcode or bytes after the terminal DROP are ignored rather than
// rejected. A script that fails before yielding the owner key and one
// field is malformed.
func Decode(scriptBytes []byte) (ownerKey []byte, fields [][]byte, err error) {
	owner, pos, err := readPush(scriptBytes, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("owner key: %w", err)
	}
	if pos >= len(scriptBytes) || scriptBytes[pos] != OpDrop {
		return nil, nil, fmt.Errorf("%w: missing delimiter after owner key", ErrMalformed)
	}
	pos++

	fields, err = readFields(scriptBytes, pos)
	if err != nil {
		return nil, nil, err
	}
	return owner, fields, nil
}

// DecodeFields parses a bare field-list script (no leading owner-key
// push): pushes up to the first DROP delimiter or end of script.
func DecodeFields(scriptBytes []byte) ([][]byte, error) {
	return readFields(scriptBytes, 0)
}

// readFields scans push chunks from pos until the DROP delimiter, end of
// script, or an unrecognized opcode. An empty field list is valid (the
// validator applies the protocol's minimum field count, not the codec).
func readFields(scriptBytes []byte, pos int) ([][]byte, error) {
	fields := [][]byte{}
	for pos < len(scriptBytes) {
		op := scriptBytes[pos]
		if op == OpDrop {
			// Terminal delimiter. Anything after it is layout drift; ignore.
			return fields, nil
		}
		if !isPushOpcode(op) {
			if len(fields) > 0 {
				// Trailing non-push bytes after a complete field set.
				return fields, nil
			}
			return nil, fmt.Errorf("%w: unexpected opcode 0x%02x at %d", ErrMalformed, op, pos)
		}
		data, next, err := readPush(scriptBytes, pos)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", len(fields), err)
		}
		fields = append(fields, data)
		pos = next
	}
	// End of script without a terminal DROP is tolerated.
	return fields, nil
}

// isPushOpcode reports whether op starts a push chunk.
func isPushOpcode(op byte) bool {
	return op <= MaxDirectPush || op == OpPushData1 || op == OpPushData2 || op == OpPushData4
}

// readPush decodes one push chunk starting at pos and returns the pushed
// data and the position of the next opcode.
func readPush(scriptBytes []byte, pos int) ([]byte, int, error) {
	if pos >= len(scriptBytes) {
		return nil, 0, fmt.Errorf("%w: truncated at %d", ErrMalformed, pos)
	}

	op := scriptBytes[pos]
	pos++

	var length int
	switch {
	case op <= MaxDirectPush:
		length = int(op)
	case op == OpPushData1:
		if pos+1 > len(scriptBytes) {
			return nil, 0, fmt.Errorf("%w: truncated PUSHDATA1 length", ErrMalformed)
		}
		length = int(scriptBytes[pos])
		pos++
	case op == OpPushData2:
		if pos+2 > len(scriptBytes) {
			return nil, 0, fmt.Errorf("%w: truncated PUSHDATA2 length", ErrMalformed)
		}
		length = int(binary.LittleEndian.Uint16(scriptBytes[pos:]))
		pos += 2
	case op == OpPushData4:
		if pos+4 > len(scriptBytes) {
			return nil, 0, fmt.Errorf("%w: truncated PUSHDATA4 length", ErrMalformed)
		}
		length = int(binary.LittleEndian.Uint32(scriptBytes[pos:]))
		pos += 4
	default:
		return nil, 0, fmt.Errorf("%w: opcode 0x%02x is not a push", ErrMalformed, op)
	}

	if pos+length > len(scriptBytes) {
		return nil, 0, fmt.Errorf("%w: push length %d exceeds remaining %d bytes",
			ErrMalformed, length, len(scriptBytes)-pos)
	}

	data := make([]byte, length)
	copy(data, scriptBytes[pos:pos+length])
	return data, pos + length, nil
}

// appendPush appends one push chunk encoding data to dst.
func appendPush(dst, data []byte) []byte {
	n := len(data)
	switch {
	case n <= MaxDirectPush:
		dst = append(dst, byte(n))
	case n <= 0xff:
		dst = append(dst, OpPushData1, byte(n))
	case n <= 0xffff:
		dst = append(dst, OpPushData2)
		dst = binary.LittleEndian.AppendUint16(dst, uint16(n))
	default:
		dst = append(dst, OpPushData4)
		dst = binary.LittleEndian.AppendUint32(dst, uint32(n))
	}
	return append(dst, data...)
}

// pushSize returns the encoded size of a push chunk for n data bytes.
func pushSize(n int) int {
	switch {
	case n <= MaxDirectPush:
		return 1 + n
	case n <= 0xff:
		return 2 + n
	case n <= 0xffff:
		return 3 + n
	default:
		return 5 + n
	}
}
