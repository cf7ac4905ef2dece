package script

import (
	"encoding/binary"
	"fmt"

	"github.com/tokenetic/tokenindex/pkg/crypto"
	"github.com/tokenetic/tokenindex/pkg/types"
)

// Marker is the fixed protocol identifier carried as field 0 of every
// token output.
const Marker = "TOKEN"

// AmountSize is the encoded length of a token amount (unsigned 64-bit LE).
const AmountSize = 8

// DeriveTokenID computes a deterministic TokenID from the outpoint that
// funds the minting transaction. This avoids a circular dependency (the
// tx hash depends on outputs which contain the TokenID).
// TokenID = BLAKE3(funding_txid || funding_index).
func DeriveTokenID(fundingTxID types.Hash, fundingIndex uint32) types.TokenID {
	var buf [types.HashSize + 4]byte
	copy(buf[:types.HashSize], fundingTxID[:])
	binary.LittleEndian.PutUint32(buf[types.HashSize:], fundingIndex)
	hash := crypto.Hash(buf[:])
	return types.TokenID(hash)
}

// AmountBytes encodes a token amount as 8 little-endian bytes.
func AmountBytes(amount uint64) []byte {
	var buf [AmountSize]byte
	binary.LittleEndian.PutUint64(buf[:], amount)
	return buf[:]
}

// ParseAmount decodes an 8-byte little-endian token amount.
func ParseAmount(b []byte) (uint64, error) {
	if len(b) != AmountSize {
		return 0, fmt.Errorf("amount must be %d bytes, got %d", AmountSize, len(b))
	}
	return binary.LittleEndian.Uint64(b), nil
}

// BuildMint derives the token id from the funding outpoint and builds a
// complete mint locking script in one step. metadata may be nil.
func BuildMint(fundingTxID types.Hash, fundingIndex uint32, amount uint64, ownerKey, metadata []byte) (types.TokenID, []byte) {
	tokenID := DeriveTokenID(fundingTxID, fundingIndex)
	return tokenID, Encode(ownerKey, BuildFields(tokenID, amount, ownerKey, metadata))
}

// BuildFields assembles the positional field list for a token output:
// marker, token id, amount, owner key, and optional metadata. The result
// feeds Encode (or EncodeFields for the legacy layout).
func BuildFields(tokenID types.TokenID, amount uint64, ownerKey []byte, metadata []byte) [][]byte {
	fields := [][]byte{
		[]byte(Marker),
		tokenID.Bytes(),
		AmountBytes(amount),
		ownerKey,
	}
	if metadata != nil {
		fields = append(fields, metadata)
	}
	return fields
}
