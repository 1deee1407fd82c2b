package source

import (
	"bytes"
	"crypto"
	"fmt"
	"slices"
	"sort"

	"github.com/holiman/uint256"

	abhash "github.com/alphabill-org/alphabill-bridge-base/hash"
	"github.com/alphabill-org/alphabill-bridge-base/types"
)

// State is the versioned Source Ledger state. Tickets are indexed by nonce,
// batches are ordered by start nonce and partition the prefix [0, Frontier)
// of the nonce space.
type State struct {
	Version    uint64
	Timestamp  uint64
	TokenPairs map[types.Address]*types.TokenPair
	Tickets    []*types.TicketRecord
	Batches    []*types.BatchAuthorization

	digest recordsDigest
}

/*
recordsDigest holds, per record kind, the sum (mod 2^256) of the SHA256
hashes of the CBOR encoded records. Replacing a record subtracts the hash of
the old version and adds the hash of the new one so the state hash is
updated in proportion to the size of the changeset.
*/
type recordsDigest struct {
	pairs   uint256.Int
	tickets uint256.Int
	batches uint256.Int
}

func recordHash(v any) (*uint256.Int, error) {
	h, err := abhash.Sum(crypto.SHA256, v)
	if err != nil {
		return nil, fmt.Errorf("hashing record: %w", err)
	}
	return new(uint256.Int).SetBytes32(h), nil
}

// updateSum updates the sum "acc" with the record "v" which replaces the
// record "old" (nil when the record is new).
func updateSum[T any](acc *uint256.Int, old *T, v *T) error {
	if old != nil {
		h, err := recordHash(old)
		if err != nil {
			return err
		}
		acc.Sub(acc, h)
	}
	h, err := recordHash(v)
	if err != nil {
		return err
	}
	acc.Add(acc, h)
	return nil
}

func NewState() *State {
	return &State{TokenPairs: make(map[types.Address]*types.TokenPair)}
}

// stateFromChangeset restores state from the full changeset returned by
// the store, the records must form a valid state.
func stateFromChangeset(cs *types.Changeset) (*State, error) {
	s := NewState()
	s.Version = cs.Version
	s.Timestamp = cs.Timestamp
	for _, p := range cs.TokenPairs {
		if _, ok := s.TokenPairs[p.SourceToken]; ok {
			return nil, fmt.Errorf("duplicate token pair for %s", p.SourceToken)
		}
		s.TokenPairs[p.SourceToken] = p
	}
	for i, t := range cs.Tickets {
		if t.Nonce != uint64(i) {
			return nil, fmt.Errorf("ticket %d has nonce %d", i, t.Nonce)
		}
		s.Tickets = append(s.Tickets, t)
	}
	for _, b := range cs.Batches {
		if b.StartNonce != s.Frontier() || b.EndNonce < b.StartNonce || b.EndNonce >= s.NextNonce() {
			return nil, fmt.Errorf("batch %s does not continue the batch sequence at %d", b.Range(), s.Frontier())
		}
		s.Batches = append(s.Batches, b)
	}

	for _, p := range s.TokenPairs {
		if err := updateSum(&s.digest.pairs, nil, p); err != nil {
			return nil, err
		}
	}
	for _, t := range s.Tickets {
		if err := updateSum(&s.digest.tickets, nil, t); err != nil {
			return nil, err
		}
	}
	for _, b := range s.Batches {
		if err := updateSum(&s.digest.batches, nil, b); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// NextNonce returns the nonce the next deposit is assigned.
func (s *State) NextNonce() uint64 {
	return uint64(len(s.Tickets))
}

// Frontier returns the nonce the next batch must start at.
func (s *State) Frontier() uint64 {
	if len(s.Batches) == 0 {
		return 0
	}
	return s.Batches[len(s.Batches)-1].EndNonce + 1
}

func (s *State) Ticket(nonce uint64) (*types.TicketRecord, bool) {
	if nonce >= s.NextNonce() {
		return nil, false
	}
	return s.Tickets[nonce], true
}

// TicketRange returns records of the tickets in the inclusive range.
func (s *State) TicketRange(r types.NonceRange) ([]*types.TicketRecord, error) {
	if r.End < r.Start || r.End >= s.NextNonce() {
		return nil, fmt.Errorf("%w: %s, next nonce is %d", types.ErrInvalidRange, r, s.NextNonce())
	}
	return s.Tickets[r.Start : r.End+1], nil
}

// BatchAt returns the batch starting at the nonce.
func (s *State) BatchAt(start uint64) (*types.BatchAuthorization, bool) {
	idx, ok := s.batchIndex(start)
	if !ok {
		return nil, false
	}
	return s.Batches[idx], true
}

func (s *State) batchIndex(start uint64) (int, bool) {
	return slices.BinarySearchFunc(s.Batches, start, func(b *types.BatchAuthorization, n uint64) int {
		switch {
		case b.StartNonce < n:
			return -1
		case b.StartNonce > n:
			return 1
		}
		return 0
	})
}

// BatchOf returns the batch covering the nonce.
func (s *State) BatchOf(nonce uint64) (*types.BatchAuthorization, bool) {
	if nonce >= s.Frontier() {
		return nil, false
	}
	idx := sort.Search(len(s.Batches), func(i int) bool { return s.Batches[i].EndNonce >= nonce })
	return s.Batches[idx], true
}

// apply replaces (or appends) the records in the changeset and increments
// the state version. Changeset must have been validated against the state.
// State is not modified when an error is returned.
func (s *State) apply(cs *types.Changeset) error {
	d := s.digest
	for _, p := range cs.TokenPairs {
		if err := updateSum(&d.pairs, s.TokenPairs[p.SourceToken], p); err != nil {
			return err
		}
	}
	for _, t := range cs.Tickets {
		var old *types.TicketRecord
		if t.Nonce < s.NextNonce() {
			old = s.Tickets[t.Nonce]
		}
		if err := updateSum(&d.tickets, old, t); err != nil {
			return err
		}
	}
	for _, b := range cs.Batches {
		old, _ := s.BatchAt(b.StartNonce)
		if err := updateSum(&d.batches, old, b); err != nil {
			return err
		}
	}

	for _, p := range cs.TokenPairs {
		s.TokenPairs[p.SourceToken] = p
	}
	for _, t := range cs.Tickets {
		if t.Nonce == s.NextNonce() {
			s.Tickets = append(s.Tickets, t)
		} else {
			s.Tickets[t.Nonce] = t
		}
	}
	for _, b := range cs.Batches {
		if idx, ok := s.batchIndex(b.StartNonce); ok {
			s.Batches[idx] = b
		} else {
			s.Batches = append(s.Batches, b)
		}
	}
	s.digest = d
	s.Version++
	if cs.Timestamp > s.Timestamp {
		s.Timestamp = cs.Timestamp
	}
	return nil
}

// Hash returns SHA256 hash of the state version, timestamp and the record
// digests.
func (s *State) Hash() ([]byte, error) {
	h, err := abhash.Sum(crypto.SHA256, s.Version, s.Timestamp, s.digest.pairs.Bytes32(), s.digest.tickets.Bytes32(), s.digest.batches.Bytes32())
	if err != nil {
		return nil, fmt.Errorf("hashing state: %w", err)
	}
	return h, nil
}

func (s *State) sortedTokenPairs() []*types.TokenPair {
	pairs := make([]*types.TokenPair, 0, len(s.TokenPairs))
	for _, p := range s.TokenPairs {
		pairs = append(pairs, p)
	}
	slices.SortFunc(pairs, func(a, b *types.TokenPair) int {
		return bytes.Compare(a.SourceToken[:], b.SourceToken[:])
	})
	return pairs
}

// Changeset returns the complete state as a changeset.
func (s *State) Changeset() (*types.Changeset, error) {
	h, err := s.Hash()
	if err != nil {
		return nil, err
	}
	return &types.Changeset{
		Version:    s.Version,
		StateHash:  h,
		Timestamp:  s.Timestamp,
		TokenPairs: s.sortedTokenPairs(),
		Tickets:    slices.Clone(s.Tickets),
		Batches:    slices.Clone(s.Batches),
	}, nil
}
