package engine

import (
	"github.com/luxfi/digital-rights-bft/config"
	"github.com/luxfi/digital-rights-bft/crypto"
	"github.com/luxfi/digital-rights-bft/store"
	"github.com/luxfi/digital-rights-bft/txmodel"
	"github.com/luxfi/digital-rights-bft/validators"
)

// prevoteKey and precommitKey index vote tallies exactly as spec.md §3
// describes: prevotes by (round, block_hash), precommits additionally by
// state_hash.
type prevoteKey struct {
	Round     uint64
	BlockHash crypto.Hash
}

type precommitKey struct {
	Round     uint64
	BlockHash crypto.Hash
	StateHash crypto.Hash
}

// executedBlock caches the result of speculatively executing a proposal,
// so a second precommit (or a repeated call within Lock's work list) for
// the same block hash never re-executes it.
type executedBlock struct {
	fork      *store.Fork
	stateHash crypto.Hash
}

// queuedMessage defers admission of a message whose height or round is
// ahead of the local state, per spec.md §4.7's admission rules.
type queuedMessage struct {
	height uint64
	round  uint64
	kind   messageKind
	body   []byte
}

type messageKind uint8

const (
	kindPropose messageKind = iota + 1
	kindPrevote
	kindPrecommit
)

// State is C6: everything the handler needs to remember between messages
// for one height's round, per spec.md §4.6.
type State struct {
	Validators *validators.Set
	SelfIndex  int
	Params     config.Parameters

	Height   uint64
	Round    uint64
	PrevHash crypto.Hash

	LockedRound     uint64
	LockedBlockHash crypto.Hash

	proposals  map[crypto.Hash]*Proposal
	prevotes   map[prevoteKey]*validators.Tally
	precommits map[precommitKey]*validators.Tally
	executed   map[crypto.Hash]executedBlock

	queue []queuedMessage

	pending      map[crypto.Hash]txmodel.Tx
	pendingOrder []crypto.Hash
}

// NewState starts a fresh consensus state at height 1 (genesis's
// prev_hash is the zero hash), for the given validator set and this
// replica's own index within it. params bounds the pending-tx pool and the
// future-message queue (config.Parameters.MaxPendingTxs/MaxQueuedMessages);
// a zero config.Parameters leaves both unbounded.
func NewState(vs *validators.Set, selfIndex int, params config.Parameters) *State {
	return &State{
		Validators: vs,
		SelfIndex:  selfIndex,
		Params:     params,
		Height:     1,
		Round:      1,
		PrevHash:   crypto.ZeroHash,
		proposals:  make(map[crypto.Hash]*Proposal),
		prevotes:   make(map[prevoteKey]*validators.Tally),
		precommits: make(map[precommitKey]*validators.Tally),
		executed:   make(map[crypto.Hash]executedBlock),
		pending:    make(map[crypto.Hash]txmodel.Tx),
	}
}

// Leader returns the validator responsible for proposing at the state's
// current height and the given round.
func (s *State) Leader(round uint64) crypto.PubKey { return s.Validators.Leader(s.Height, round) }

// IsLeader reports whether this replica leads the current round.
func (s *State) IsLeader() bool {
	self, ok := s.Validators.Index(s.Leader(s.Round))
	return ok && self == s.SelfIndex
}

// AddProposal records propose under its hash, reporting whether it was new.
func (s *State) AddProposal(p *Proposal) (crypto.Hash, bool) {
	h := p.Hash()
	if _, exists := s.proposals[h]; exists {
		return h, false
	}
	s.proposals[h] = p
	return h, true
}

// Proposal looks up a previously recorded proposal by hash.
func (s *State) Proposal(h crypto.Hash) (*Proposal, bool) {
	p, ok := s.proposals[h]
	return p, ok
}

func (s *State) prevoteTally(round uint64, blockHash crypto.Hash) *validators.Tally {
	key := prevoteKey{Round: round, BlockHash: blockHash}
	t, ok := s.prevotes[key]
	if !ok {
		t = validators.NewTally()
		s.prevotes[key] = t
	}
	return t
}

// AddPrevote records a prevote, returning whether the tally for
// (round, block_hash) is at quorum after it; once quorum is reached every
// later call for the same key returns true as well.
func (s *State) AddPrevote(v *Prevote) bool {
	t := s.prevoteTally(v.Round, v.BlockHash)
	t.Add(v.Validator)
	return t.HasQuorum(s.Validators.Quorum())
}

// HasMajorityPrevotes reports whether (round, block_hash) currently has
// quorum, without recording a new vote.
func (s *State) HasMajorityPrevotes(round uint64, blockHash crypto.Hash) bool {
	key := prevoteKey{Round: round, BlockHash: blockHash}
	t, ok := s.prevotes[key]
	return ok && t.HasQuorum(s.Validators.Quorum())
}

// HavePrevote reports whether this replica has already sent a prevote in
// round, for any block hash (its own votes are recorded the same way any
// other validator's vote is, since AddPrevote is called for our own votes
// too). The block hash argument is not consulted.
func (s *State) HavePrevote(round uint64, _ crypto.Hash) bool {
	self := s.Validators.List()[s.SelfIndex]
	for key, t := range s.prevotes {
		if key.Round != round {
			continue
		}
		for _, v := range t.Voters() {
			if v == self {
				return true
			}
		}
	}
	return false
}

func (s *State) precommitTally(round uint64, blockHash, stateHash crypto.Hash) *validators.Tally {
	key := precommitKey{Round: round, BlockHash: blockHash, StateHash: stateHash}
	t, ok := s.precommits[key]
	if !ok {
		t = validators.NewTally()
		s.precommits[key] = t
	}
	return t
}

// AddPrecommit records a precommit, returning whether the tally for
// (round, block_hash, state_hash) is at quorum after it; once quorum is
// reached every later call for the same key returns true as well.
func (s *State) AddPrecommit(c *Precommit) bool {
	t := s.precommitTally(c.Round, c.BlockHash, c.StateHash)
	t.Add(c.Validator)
	return t.HasQuorum(s.Validators.Quorum())
}

// HasMajorityPrecommits reports whether (round, block_hash, state_hash)
// currently has quorum.
func (s *State) HasMajorityPrecommits(round uint64, blockHash, stateHash crypto.Hash) bool {
	key := precommitKey{Round: round, BlockHash: blockHash, StateHash: stateHash}
	t, ok := s.precommits[key]
	return ok && t.HasQuorum(s.Validators.Quorum())
}

// CachedStateHash returns a previously computed state hash for blockHash,
// if Execute has already run for it.
func (s *State) CachedStateHash(blockHash crypto.Hash) (crypto.Hash, bool) {
	e, ok := s.executed[blockHash]
	return e.stateHash, ok
}

func (s *State) cacheExecuted(blockHash crypto.Hash, fork *store.Fork, stateHash crypto.Hash) {
	s.executed[blockHash] = executedBlock{fork: fork, stateHash: stateHash}
}

// Lock advances the replica's lock to (round, blockHash).
func (s *State) Lock(round uint64, blockHash crypto.Hash) {
	s.LockedRound = round
	s.LockedBlockHash = blockHash
}

// AddTx adds a transaction to the pending pool, keyed by hash. Once the
// pool reaches Params.MaxPendingTxs, further additions are silently
// dropped — a full pool is back-pressure on submitters, not a protocol
// error.
func (s *State) AddTx(tx txmodel.Tx) {
	h := tx.Hash()
	if _, exists := s.pending[h]; exists {
		return
	}
	if s.Params.MaxPendingTxs > 0 && len(s.pending) >= s.Params.MaxPendingTxs {
		return
	}
	s.pending[h] = tx
	s.pendingOrder = append(s.pendingOrder, h)
}

// HasTx reports whether h is in the pending pool.
func (s *State) HasTx(h crypto.Hash) bool {
	_, ok := s.pending[h]
	return ok
}

// Tx looks up a pending transaction by hash.
func (s *State) Tx(h crypto.Hash) (txmodel.Tx, bool) {
	tx, ok := s.pending[h]
	return tx, ok
}

// PendingHashes returns up to limit pending transaction hashes, in the
// order they were added, for a new Proposal's tx list.
func (s *State) PendingHashes(limit int) []crypto.Hash {
	if limit > len(s.pendingOrder) {
		limit = len(s.pendingOrder)
	}
	return append([]crypto.Hash(nil), s.pendingOrder[:limit]...)
}

// removeTxs drops committed transactions from the pending pool.
func (s *State) removeTxs(hashes []crypto.Hash) {
	for _, h := range hashes {
		delete(s.pending, h)
	}
	kept := s.pendingOrder[:0]
	for _, h := range s.pendingOrder {
		if _, ok := s.pending[h]; ok {
			kept = append(kept, h)
		}
	}
	s.pendingOrder = kept
}

// addQueued defers a message until the state catches up to its height and
// round, per spec.md §4.7's admission rule for future messages. Once the
// queue reaches Params.MaxQueuedMessages, the oldest entry is evicted to
// make room — a replica that has fallen this far behind needs to catch up
// via the commit path, not accumulate an unbounded backlog.
func (s *State) addQueued(kind messageKind, height, round uint64, body []byte) {
	if s.Params.MaxQueuedMessages > 0 && len(s.queue) >= s.Params.MaxQueuedMessages {
		s.queue = s.queue[1:]
	}
	s.queue = append(s.queue, queuedMessage{height: height, round: round, kind: kind, body: body})
}

// drainQueue removes and returns every queued message whose height/round no
// longer exceeds the current state, in the order they were queued — the
// handler re-admits each one exactly as if freshly delivered.
func (s *State) drainQueue() []queuedMessage {
	var ready, stillFuture []queuedMessage
	for _, m := range s.queue {
		if m.height <= s.Height && (m.height < s.Height || m.round <= s.Round) {
			ready = append(ready, m)
		} else {
			stillFuture = append(stillFuture, m)
		}
	}
	s.queue = stillFuture
	return ready
}

// newHeight resets per-height state after a commit: advances Height,
// resets Round to 1, clears locks/proposals/votes, and records the new
// prev_hash, per spec.md §4.7's Commit effects.
func (s *State) newHeight(blockHash crypto.Hash, committedTxs []crypto.Hash) {
	s.Height++
	s.Round = 1
	s.PrevHash = blockHash
	s.LockedRound = 0
	s.LockedBlockHash = crypto.Hash{}
	s.proposals = make(map[crypto.Hash]*Proposal)
	s.prevotes = make(map[prevoteKey]*validators.Tally)
	s.precommits = make(map[precommitKey]*validators.Tally)
	s.executed = make(map[crypto.Hash]executedBlock)
	s.removeTxs(committedTxs)
}

// newRound advances the round within the same height, per Timeout's effect.
func (s *State) newRound() { s.Round++ }
