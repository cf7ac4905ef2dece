package index

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/tokenetic/tokenindex/internal/storage"
	"github.com/tokenetic/tokenindex/pkg/types"
)

// Key prefixes for the index store.
var (
	prefixOutput = []byte("o/") // o/<txid(32)><vout(4)> -> TokenRecord JSON
	prefixToken  = []byte("t/") // t/<tokenID(32)><txid(32)><vout(4)> -> empty (token index)
	keySequence  = []byte("s/next")
)

var (
	// ErrDuplicateOutput is returned when admitting an outpoint that is
	// already recorded. Callers treat it as a successful no-op.
	ErrDuplicateOutput = errors.New("duplicate output")

	// ErrNotFound is returned when a spend or evict target is absent.
	ErrNotFound = errors.New("record not found")
)

// Store persists TokenRecords over a storage.DB. Writes serialize
// through a mutex so concurrent admits for the same outpoint resolve to
// exactly one surviving record; reads go straight to the backing store.
type Store struct {
	db storage.DB

	mu        sync.Mutex
	seq       uint64 // next AdmittedAt value; lazily loaded from keySequence
	seqLoaded bool
}

// NewStore creates a record store backed by the given database.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

// outputKey builds a storage key for an outpoint: "o/" + txid(32) + vout(4).
func outputKey(op types.Outpoint) []byte {
	key := make([]byte, len(prefixOutput)+types.HashSize+4)
	copy(key, prefixOutput)
	copy(key[len(prefixOutput):], op.TxID[:])
	binary.BigEndian.PutUint32(key[len(prefixOutput)+types.HashSize:], op.Index)
	return key
}

// tokenKey builds a token index key: "t/" + tokenID(32) + txid(32) + vout(4).
func tokenKey(id types.TokenID, op types.Outpoint) []byte {
	key := make([]byte, len(prefixToken)+types.HashSize+types.HashSize+4)
	copy(key, prefixToken)
	copy(key[len(prefixToken):], id[:])
	off := len(prefixToken) + types.HashSize
	copy(key[off:], op.TxID[:])
	binary.BigEndian.PutUint32(key[off+types.HashSize:], op.Index)
	return key
}

// nextSeq returns the next admission sequence number and persists the
// counter. Caller must hold s.mu.
func (s *Store) nextSeq() (uint64, error) {
	if !s.seqLoaded {
		data, err := s.db.Get(keySequence)
		switch {
		case err == nil:
			s.seq = binary.BigEndian.Uint64(data)
		case errors.Is(err, storage.ErrNotFound):
			s.seq = 1
		default:
			return 0, fmt.Errorf("load sequence: %w", err)
		}
		s.seqLoaded = true
	}

	n := s.seq
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n+1)
	if err := s.db.Put(keySequence, buf[:]); err != nil {
		return 0, fmt.Errorf("store sequence: %w", err)
	}
	s.seq = n + 1
	return n, nil
}

// Admit inserts a new unspent record. The (txid, vout) pair is the
// uniqueness constraint: a second admit for the same outpoint returns
// ErrDuplicateOutput and leaves the first record untouched.
func (s *Store) Admit(rec *TokenRecord) error {
	if rec.Amount == 0 {
		return fmt.Errorf("admit %s: zero amount", rec.Outpoint())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	op := rec.Outpoint()
	ok, err := s.db.Has(outputKey(op))
	if err != nil {
		return fmt.Errorf("admit %s: %w", op, err)
	}
	if ok {
		return fmt.Errorf("admit %s: %w", op, ErrDuplicateOutput)
	}

	seq, err := s.nextSeq()
	if err != nil {
		return fmt.Errorf("admit %s: %w", op, err)
	}

	stored := *rec
	stored.Spent = false
	stored.AdmittedAt = seq

	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("admit %s: marshal: %w", op, err)
	}
	if err := s.db.Put(outputKey(op), data); err != nil {
		return fmt.Errorf("admit %s: %w", op, err)
	}
	if err := s.db.Put(tokenKey(stored.TokenID, op), []byte{}); err != nil {
		return fmt.Errorf("admit %s: token index: %w", op, err)
	}

	rec.Spent = false
	rec.AdmittedAt = seq
	return nil
}

// MarkSpent flips a record's spent flag. The flag is monotonic: a
// second call for the same outpoint is a no-op. A missing record
// returns ErrNotFound, which callers tolerate.
func (s *Store) MarkSpent(op types.Outpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.get(op)
	if err != nil {
		return err
	}
	if rec.Spent {
		return nil
	}
	rec.Spent = true

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("mark spent %s: marshal: %w", op, err)
	}
	if err := s.db.Put(outputKey(op), data); err != nil {
		return fmt.Errorf("mark spent %s: %w", op, err)
	}
	return nil
}

// Evict permanently removes a record and its token index entry. A
// missing record returns ErrNotFound.
func (s *Store) Evict(op types.Outpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.get(op)
	if err != nil {
		return err
	}
	if err := s.db.Delete(outputKey(op)); err != nil {
		return fmt.Errorf("evict %s: %w", op, err)
	}
	if err := s.db.Delete(tokenKey(rec.TokenID, op)); err != nil {
		return fmt.Errorf("evict %s: token index: %w", op, err)
	}
	return nil
}

// Get retrieves a record by its outpoint.
func (s *Store) Get(op types.Outpoint) (*TokenRecord, error) {
	return s.get(op)
}

func (s *Store) get(op types.Outpoint) (*TokenRecord, error) {
	data, err := s.db.Get(outputKey(op))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", op, err)
	}
	var rec TokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("get %s: unmarshal: %w", op, err)
	}
	return &rec, nil
}

// forToken loads every record for a token by scanning the token index.
// Index entries whose record is gone (concurrent evict) are skipped.
func (s *Store) forToken(id types.TokenID) ([]*TokenRecord, error) {
	prefix := make([]byte, len(prefixToken)+types.HashSize)
	copy(prefix, prefixToken)
	copy(prefix[len(prefixToken):], id[:])

	var recs []*TokenRecord
	err := s.db.ForEach(prefix, func(key, _ []byte) error {
		// Key layout: "t/" + tokenID(32) + txid(32) + vout(4).
		off := len(prefixToken) + types.HashSize
		if len(key) < off+types.HashSize+4 {
			return nil // Malformed key, skip.
		}
		var op types.Outpoint
		copy(op.TxID[:], key[off:off+types.HashSize])
		op.Index = binary.BigEndian.Uint32(key[off+types.HashSize:])

		rec, err := s.get(op)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		recs = append(recs, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan token index: %w", err)
	}
	return recs, nil
}

// BalanceOf sums the unspent amounts for a token. Display metadata is
// taken from the first record carrying any, spent or not. A token with
// no records yields a zero balance, not an error.
func (s *Store) BalanceOf(id types.TokenID) (*Balance, error) {
	recs, err := s.forToken(id)
	if err != nil {
		return nil, err
	}

	bal := &Balance{TokenID: id}
	sort.Slice(recs, func(i, j int) bool { return recs[i].AdmittedAt < recs[j].AdmittedAt })
	for _, rec := range recs {
		if bal.TokenInfo == (TokenInfo{}) {
			if info, ok := infoFromMetadata(rec.Metadata); ok {
				bal.TokenInfo = info
			}
		}
		if !rec.Spent {
			bal.Total += rec.Amount
			bal.UTXOCount++
		}
	}
	return bal, nil
}

// AllBalances groups every unspent record by token and returns one
// balance summary per token, ordered by token id.
func (s *Store) AllBalances() ([]Balance, error) {
	sums := make(map[types.TokenID]*Balance)
	err := s.db.ForEach(prefixOutput, func(_, value []byte) error {
		var rec TokenRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			return nil // Skip corrupt entries.
		}

		bal, ok := sums[rec.TokenID]
		if !ok {
			bal = &Balance{TokenID: rec.TokenID}
			sums[rec.TokenID] = bal
		}
		if bal.TokenInfo == (TokenInfo{}) {
			if info, metaOK := infoFromMetadata(rec.Metadata); metaOK {
				bal.TokenInfo = info
			}
		}
		if !rec.Spent {
			bal.Total += rec.Amount
			bal.UTXOCount++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan outputs: %w", err)
	}

	balances := make([]Balance, 0, len(sums))
	for _, bal := range sums {
		if bal.UTXOCount > 0 {
			balances = append(balances, *bal)
		}
	}
	sort.Slice(balances, func(i, j int) bool {
		return balances[i].TokenID.String() < balances[j].TokenID.String()
	})
	return balances, nil
}

// UnspentUTXOs returns every unspent record for a token, oldest first,
// with locking scripts and chain values intact for spend construction.
func (s *Store) UnspentUTXOs(id types.TokenID) ([]*TokenRecord, error) {
	recs, err := s.forToken(id)
	if err != nil {
		return nil, err
	}
	unspent := recs[:0]
	for _, rec := range recs {
		if !rec.Spent {
			unspent = append(unspent, rec)
		}
	}
	sort.Slice(unspent, func(i, j int) bool { return unspent[i].AdmittedAt < unspent[j].AdmittedAt })
	if unspent == nil {
		unspent = []*TokenRecord{}
	}
	return unspent, nil
}

// Stats summarizes the store contents.
type Stats struct {
	Outputs int
	Unspent int
	Tokens  int
}

// Stats scans the output space and counts records, unspent records, and
// distinct tokens.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	tokens := make(map[types.TokenID]struct{})
	err := s.db.ForEach(prefixOutput, func(_, value []byte) error {
		var rec TokenRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			return nil
		}
		st.Outputs++
		if !rec.Spent {
			st.Unspent++
		}
		tokens[rec.TokenID] = struct{}{}
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("scan outputs: %w", err)
	}
	st.Tokens = len(tokens)
	return st, nil
}

// History returns a token's records, spent and unspent, newest
// admission first. limit <= 0 means no limit.
func (s *Store) History(id types.TokenID, limit int) ([]*TokenRecord, error) {
	recs, err := s.forToken(id)
	if err != nil {
		return nil, err
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].AdmittedAt > recs[j].AdmittedAt })
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	if recs == nil {
		recs = []*TokenRecord{}
	}
	return recs, nil
}
