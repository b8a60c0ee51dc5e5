package validators

import (
	"sync"

	"github.com/luxfi/digital-rights-bft/crypto"
)

// Tally counts the distinct validators that have voted for one (round,
// block hash) pair. Adding the same validator twice does not change the
// count (I8's idempotence requirement); the mutex-guarded response-map shape
// is adapted from luxfi-consensus/quorum.Static, simplified from weighted
// thresholds down to a plain one-validator-one-vote count since spec.md's
// vote tallies are unweighted.
type Tally struct {
	mu      sync.Mutex
	voters  map[crypto.PubKey]struct{}
	ordered []crypto.PubKey
}

// NewTally returns an empty vote tally.
func NewTally() *Tally {
	return &Tally{voters: make(map[crypto.PubKey]struct{})}
}

// Add records a vote from pk. Reports true if this was the first vote
// recorded from pk, false if pk had already voted (a no-op repeat).
func (t *Tally) Add(pk crypto.PubKey) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.voters[pk]; ok {
		return false
	}
	t.voters[pk] = struct{}{}
	t.ordered = append(t.ordered, pk)
	return true
}

// Count returns the number of distinct validators that have voted.
func (t *Tally) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ordered)
}

// HasQuorum reports whether the tally has reached the given quorum size.
func (t *Tally) HasQuorum(quorum int) bool {
	return t.Count() >= quorum
}

// Voters returns the validators that have voted, in the order they were
// first recorded.
func (t *Tally) Voters() []crypto.PubKey {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]crypto.PubKey(nil), t.ordered...)
}
