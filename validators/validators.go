// Package validators holds the fixed validator set a height's consensus
// round runs over: who the validators are, which one leads a given round,
// and how many votes make a quorum.
//
// This adapts the shape of luxfi-consensus/validators.Set (Has/Len/List)
// and luxfi-consensus/validator.Validator, rekeyed from ids.NodeID/bls
// weighted sampling to this system's crypto.PubKey with equal voting power
// per validator, since spec.md's validator set is static and
// one-validator-one-vote (dynamic reconfiguration and weighted sampling are
// out of scope per spec.md §1's Non-goals).
package validators

import "github.com/luxfi/digital-rights-bft/crypto"

// Validator is a single member of the set.
type Validator struct {
	PubKey crypto.PubKey
}

// Set is the ordered, fixed list of validators for a height. Order matters:
// Leader selects from it by index, so every honest replica must construct
// it in the same order (ascending public key, per NewSet).
type Set struct {
	ordered []crypto.PubKey
	index   map[crypto.PubKey]int
}

// NewSet builds a validator Set from pubKeys, sorted ascending so that every
// replica constructing a Set from the same membership produces an identical
// order regardless of input order.
func NewSet(pubKeys ...crypto.PubKey) *Set {
	ordered := append([]crypto.PubKey(nil), pubKeys...)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && less(ordered[j], ordered[j-1]); j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}
	index := make(map[crypto.PubKey]int, len(ordered))
	for i, pk := range ordered {
		index[pk] = i
	}
	return &Set{ordered: ordered, index: index}
}

func less(a, b crypto.PubKey) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Has reports whether pk is a member of the set.
func (s *Set) Has(pk crypto.PubKey) bool {
	_, ok := s.index[pk]
	return ok
}

// Len returns the number of validators in the set.
func (s *Set) Len() int { return len(s.ordered) }

// List returns the validators in canonical order. The returned slice must
// not be mutated by the caller.
func (s *Set) List() []crypto.PubKey { return s.ordered }

// Index returns pk's position in the canonical order.
func (s *Set) Index(pk crypto.PubKey) (int, bool) {
	i, ok := s.index[pk]
	return i, ok
}

// Leader returns the validator responsible for proposing at (height, round),
// per spec.md §4.6: leader(round) = validators[(height+round) mod N].
func (s *Set) Leader(height, round uint64) crypto.PubKey {
	n := uint64(len(s.ordered))
	return s.ordered[(height+round)%n]
}

// Quorum is the number of matching votes needed for BFT safety: floor(2N/3)+1.
func (s *Set) Quorum() int {
	n := len(s.ordered)
	return (2*n)/3 + 1
}
