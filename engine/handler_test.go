package engine

import (
	"testing"
	"time"

	"github.com/luxfi/digital-rights-bft/config"
	"github.com/luxfi/digital-rights-bft/crypto"
	"github.com/luxfi/digital-rights-bft/node"
	"github.com/luxfi/digital-rights-bft/store"
	"github.com/luxfi/digital-rights-bft/txmodel"
	"github.com/luxfi/digital-rights-bft/validators"
	"github.com/stretchr/testify/require"
)

// replica bundles one validator's local view of the network for tests: its
// own State, a LoopbackContext standing in for transport/storage/clock, and
// a Handler to drive messages through.
type replica struct {
	pk  crypto.PubKey
	sk  crypto.SecretKey
	st  *State
	ctx *node.LoopbackContext
	h   *Handler
}

// newNetwork builds n replicas sharing one validator set, each with its own
// storage and consensus state, per spec.md §8's "N=4 validators" scenarios.
func newNetwork(t *testing.T, n int) (*validators.Set, []*replica) {
	t.Helper()
	pks := make([]crypto.PubKey, n)
	sks := make([]crypto.SecretKey, n)
	for i := range pks {
		pk, sk, err := crypto.GenerateKeyPair()
		require.NoError(t, err)
		pks[i] = pk
		sks[i] = sk
	}
	vs := validators.NewSet(pks...)

	reps := make([]*replica, n)
	for i, pk := range vs.List() {
		var sk crypto.SecretKey
		for j, p := range pks {
			if p == pk {
				sk = sks[j]
			}
		}
		reps[i] = &replica{
			pk:  pk,
			sk:  sk,
			st:  NewState(vs, i, config.TestParameters),
			ctx: node.NewLoopbackContext(store.NewMemDB(), sk, vs),
			h:   NewHandler(config.TestParameters),
		}
	}
	return vs, reps
}

func leaderOf(vs *validators.Set, reps []*replica, height, round uint64) *replica {
	want := vs.Leader(height, round)
	for _, r := range reps {
		if r.pk == want {
			return r
		}
	}
	return nil
}

// deliverPropose feeds p to every replica and returns the Prevote each one
// broadcasts in response (haveBlock sends exactly one prevote per replica
// the first time it hears of a block, since LockedRound starts at 0).
func deliverPropose(t *testing.T, reps []*replica, p *Proposal) []*Prevote {
	t.Helper()
	votes := make([]*Prevote, 0, len(reps))
	for _, r := range reps {
		before := len(r.ctx.Broadcasts)
		require.NoError(t, r.h.HandlePropose(r.ctx, r.st, p))
		after := r.ctx.Broadcasts
		require.Greater(t, len(after), before)
		v, err := DecodePrevote(after[len(after)-1])
		require.NoError(t, err)
		votes = append(votes, v)
	}
	return votes
}

// deliverPrevotes feeds every vote in votes to every replica (a full
// exchange), mirroring a broadcast transport with no delivery-order
// guarantee — spec.md §6 explicitly forbids relying on one.
func deliverPrevotes(t *testing.T, reps []*replica, votes []*Prevote) {
	t.Helper()
	for _, r := range reps {
		for _, v := range votes {
			require.NoError(t, r.h.HandlePrevote(r.ctx, r.st, v))
		}
	}
}

func deliverPrecommits(t *testing.T, reps []*replica, commits []*Precommit) []error {
	t.Helper()
	errs := make([]error, len(reps))
	for i, r := range reps {
		for _, c := range commits {
			if err := r.h.HandlePrecommit(r.ctx, r.st, c); err != nil {
				errs[i] = err
			}
		}
	}
	return errs
}

// collectPrecommits returns the Precommit each replica just broadcast, one
// per replica, assuming each broadcast exactly one since the last call.
func collectPrecommits(t *testing.T, reps []*replica, sinceLen []int) []*Precommit {
	t.Helper()
	out := make([]*Precommit, 0, len(reps))
	for i, r := range reps {
		require.Greater(t, len(r.ctx.Broadcasts), sinceLen[i])
		c, err := DecodePrecommit(r.ctx.Broadcasts[len(r.ctx.Broadcasts)-1])
		require.NoError(t, err)
		out = append(out, c)
	}
	return out
}

func broadcastLens(reps []*replica) []int {
	lens := make([]int, len(reps))
	for i, r := range reps {
		lens[i] = len(r.ctx.Broadcasts)
	}
	return lens
}

// TestProposeThreePrevotesLocksWithLocalStateHash is spec.md §8's first
// scenario: N=4, a Propose plus 3 matching Prevotes reaches quorum and each
// replica locks, computing state_hash itself rather than trusting a peer's
// claim.
func TestProposeThreePrevotesLocksWithLocalStateHash(t *testing.T) {
	vs, reps := newNetwork(t, 4)

	leader := leaderOf(vs, reps, 1, 1)
	require.NotNil(t, leader)
	p := &Proposal{Validator: leader.pk, Height: 1, Round: 1, PrevHash: crypto.ZeroHash}
	p.Sign(leader.sk)

	votes := deliverPropose(t, reps, p)
	require.Len(t, votes, 4)

	before := broadcastLens(reps)
	deliverPrevotes(t, reps, votes)

	for _, r := range reps {
		require.Equal(t, uint64(1), r.st.LockedRound)
		require.Equal(t, p.Hash(), r.st.LockedBlockHash)
		stateHash, ok := r.st.CachedStateHash(p.Hash())
		require.True(t, ok)
		require.NotEqual(t, crypto.Hash{}, stateHash)
	}

	// Every replica computed the same state_hash locally from the (empty)
	// block, even though none of them were told it by a peer.
	want, _ := reps[0].st.CachedStateHash(p.Hash())
	for _, r := range reps[1:] {
		got, _ := r.st.CachedStateHash(p.Hash())
		require.Equal(t, want, got)
	}

	precommits := collectPrecommits(t, reps, before)
	require.Len(t, precommits, 4)
	for _, c := range precommits {
		require.Equal(t, want, c.StateHash)
	}
}

// TestMatchingPrecommitQuorumCommits is spec.md §8's second scenario:
// +2/3 precommits agreeing on (round, block_hash, state_hash) commits —
// height advances, prev_hash becomes the committed block's hash, and the
// round/lock state resets for the next height.
func TestMatchingPrecommitQuorumCommits(t *testing.T) {
	vs, reps := newNetwork(t, 4)

	leader := leaderOf(vs, reps, 1, 1)
	p := &Proposal{Validator: leader.pk, Height: 1, Round: 1, PrevHash: crypto.ZeroHash}
	p.Sign(leader.sk)

	votes := deliverPropose(t, reps, p)
	before := broadcastLens(reps)
	deliverPrevotes(t, reps, votes)
	precommits := collectPrecommits(t, reps, before)

	errs := deliverPrecommits(t, reps, precommits)
	for _, err := range errs {
		require.NoError(t, err)
	}

	for _, r := range reps {
		require.Equal(t, uint64(2), r.st.Height)
		require.Equal(t, uint64(1), r.st.Round)
		require.Equal(t, p.Hash(), r.st.PrevHash)
		require.Equal(t, uint64(0), r.st.LockedRound)
	}
}

// TestMismatchedPrecommitStateHashHalts is spec.md §8's third scenario:
// +2/3 precommits agreeing on (round, block_hash) but claiming a state_hash
// that does not match local execution is an equivocation — the replica
// reports ErrSafetyViolation and never merges the fork.
func TestMismatchedPrecommitStateHashHalts(t *testing.T) {
	vs, reps := newNetwork(t, 4)
	victim := reps[0]

	leader := leaderOf(vs, reps, 1, 1)
	p := &Proposal{Validator: leader.pk, Height: 1, Round: 1, PrevHash: crypto.ZeroHash}
	p.Sign(leader.sk)

	require.NoError(t, victim.h.HandlePropose(victim.ctx, victim.st, p))

	bogus := crypto.HashBytes([]byte("equivocated-state"))
	var err error
	for i := 1; i < 4; i++ {
		c := &Precommit{Validator: reps[i].pk, Height: 1, Round: 1, BlockHash: p.Hash(), StateHash: bogus}
		c.Sign(reps[i].sk)
		e := victim.h.HandlePrecommit(victim.ctx, victim.st, c)
		if e != nil {
			err = e
		}
	}
	require.ErrorIs(t, err, ErrSafetyViolation)
	require.Equal(t, uint64(1), victim.st.Height, "a safety violation must never advance the height")
}

// TestAdmissionDropsStaleAndQueuesFuture exercises spec.md §4.7's admission
// rules directly: a message below the current height is dropped silently,
// one above the current height or round is queued, and draining the queue
// while the state is still behind leaves it queued.
func TestAdmissionDropsStaleAndQueuesFuture(t *testing.T) {
	vs, reps := newNetwork(t, 4)
	r := reps[0]

	stale := &Prevote{Validator: reps[1].pk, Height: 0, Round: 1, BlockHash: crypto.ZeroHash}
	stale.Sign(reps[1].sk)
	require.NoError(t, r.h.HandlePrevote(r.ctx, r.st, stale))
	require.Empty(t, r.st.queue)

	future := &Prevote{Validator: reps[1].pk, Height: 5, Round: 1, BlockHash: crypto.ZeroHash}
	future.Sign(reps[1].sk)
	require.NoError(t, r.h.HandlePrevote(r.ctx, r.st, future))
	require.Len(t, r.st.queue, 1)

	ready := r.st.drainQueue()
	require.Empty(t, ready, "a queued message for a far-future height must stay queued")
	require.Len(t, r.st.queue, 1)
}

// TestDuplicateVoteIsIdempotent is I8: redelivering the same Prevote twice
// must not double-count it toward quorum.
func TestDuplicateVoteIsIdempotent(t *testing.T) {
	_, reps := newNetwork(t, 4)
	r := reps[0]

	v := &Prevote{Validator: reps[1].pk, Height: 1, Round: 1, BlockHash: crypto.ZeroHash}
	v.Sign(reps[1].sk)

	require.NoError(t, r.h.HandlePrevote(r.ctx, r.st, v))
	require.NoError(t, r.h.HandlePrevote(r.ctx, r.st, v))
	require.False(t, r.st.HasMajorityPrevotes(1, crypto.ZeroHash))

	// Two more distinct voters are still needed for quorum=3: two identical
	// deliveries of the same vote only ever count as one.
	require.False(t, r.st.prevotes[prevoteKey{Round: 1, BlockHash: crypto.ZeroHash}].HasQuorum(3))
}

// TestTimeoutAdvancesRoundAndRebroadcastsLock covers Timeout's two branches:
// a locked replica re-sends its Prevote for the locked block in the new
// round, and a stale timeout (one that no longer matches the current
// height/round) is ignored.
func TestTimeoutAdvancesRoundAndRebroadcastsLock(t *testing.T) {
	vs, reps := newNetwork(t, 4)

	leader := leaderOf(vs, reps, 1, 1)
	p := &Proposal{Validator: leader.pk, Height: 1, Round: 1, PrevHash: crypto.ZeroHash}
	p.Sign(leader.sk)

	votes := deliverPropose(t, reps, p)
	deliverPrevotes(t, reps, votes[:3])

	r := reps[0]
	require.Equal(t, uint64(1), r.st.LockedRound)

	before := len(r.ctx.Broadcasts)
	require.NoError(t, r.h.HandleTimeout(r.ctx, r.st, 1, 1))
	require.Equal(t, uint64(2), r.st.Round)
	require.Greater(t, len(r.ctx.Broadcasts), before)

	rebroadcast, err := DecodePrevote(r.ctx.Broadcasts[len(r.ctx.Broadcasts)-1])
	require.NoError(t, err)
	require.Equal(t, uint64(2), rebroadcast.Round)
	require.Equal(t, p.Hash(), rebroadcast.BlockHash)

	// A stale timeout for the round we already left is ignored.
	stillBroadcasts := len(r.ctx.Broadcasts)
	require.NoError(t, r.h.HandleTimeout(r.ctx, r.st, 1, 1))
	require.Equal(t, uint64(2), r.st.Round)
	require.Equal(t, stillBroadcasts, len(r.ctx.Broadcasts))
}

// TestTimeoutProposesWhenNewLeaderAndUnlocked covers the other Timeout
// branch: an unlocked replica that becomes leader of the new round sends a
// fresh Propose.
func TestTimeoutProposesWhenNewLeaderAndUnlocked(t *testing.T) {
	vs, reps := newNetwork(t, 4)

	// Every fresh replica starts at (height 1, round 1); whichever one
	// leads round 2 is the one Timeout should make propose.
	r := leaderOf(vs, reps, 1, 2)
	require.NotNil(t, r)

	require.NoError(t, r.h.HandleTimeout(r.ctx, r.st, 1, 1))
	require.Equal(t, uint64(2), r.st.Round)

	last := r.ctx.Broadcasts[len(r.ctx.Broadcasts)-1]
	proposal, err := DecodeProposal(last)
	require.NoError(t, err)
	require.Equal(t, r.pk, proposal.Validator)
	require.Equal(t, uint64(2), proposal.Round)
}

// TestPendingPoolBoundedByMaxPendingTxs: once the pool reaches
// Params.MaxPendingTxs, further transactions are silently dropped rather
// than growing the pool without bound.
func TestPendingPoolBoundedByMaxPendingTxs(t *testing.T) {
	vs := validators.NewSet()
	s := NewState(vs, 0, config.Parameters{MaxPendingTxs: 2})

	for i := 0; i < 3; i++ {
		pk, sk, err := crypto.GenerateKeyPair()
		require.NoError(t, err)
		tx := &txmodel.CreateOwner{PubKey: pk, Name: "owner"}
		txmodel.Sign(tx, sk)
		s.AddTx(tx)
	}

	require.Len(t, s.pendingOrder, 2)
}

// TestQueueBoundedByMaxQueuedMessages: once the future-message queue
// reaches Params.MaxQueuedMessages, the oldest entry is evicted to make
// room for the newest.
func TestQueueBoundedByMaxQueuedMessages(t *testing.T) {
	vs := validators.NewSet()
	s := NewState(vs, 0, config.Parameters{MaxQueuedMessages: 2})

	s.addQueued(kindPrevote, 10, 1, []byte("a"))
	s.addQueued(kindPrevote, 11, 1, []byte("b"))
	s.addQueued(kindPrevote, 12, 1, []byte("c"))

	require.Len(t, s.queue, 2)
	require.Equal(t, uint64(11), s.queue[0].height, "the oldest queued message must be the one evicted")
	require.Equal(t, uint64(12), s.queue[1].height)
}

// tickingContext wraps a LoopbackContext whose clock advances by step on
// every Now() call, standing in for wall-clock time actually elapsing
// during a long Execute, for TestExecuteExceedingBudgetReportsStall.
type tickingContext struct {
	*node.LoopbackContext
	step time.Duration
}

func (c *tickingContext) Now() time.Time {
	now := c.LoopbackContext.Now()
	c.LoopbackContext.Advance(c.step)
	return now
}

// TestExecuteExceedingBudgetReportsStall: Params.MaxItemProcessingTime
// bounds one Execute call; a replica whose clock shows more time elapsed
// than the budget allows reports a stall rather than blocking forever.
func TestExecuteExceedingBudgetReportsStall(t *testing.T) {
	_, reps := newNetwork(t, 1)
	leader := reps[0]
	ctx := &tickingContext{LoopbackContext: leader.ctx, step: 2 * time.Millisecond}
	leader.h.Params.MaxItemProcessingTime = time.Millisecond

	pk, sk, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	tx := &txmodel.CreateOwner{PubKey: pk, Name: "slow"}
	txmodel.Sign(tx, sk)
	leader.st.AddTx(tx)

	p := &Proposal{Validator: leader.pk, Height: 1, Round: 1, PrevHash: crypto.ZeroHash, TxHashes: []crypto.Hash{tx.Hash()}}
	p.Sign(leader.sk)
	hash, added := leader.st.AddProposal(p)
	require.True(t, added)

	_, err = leader.h.execute(ctx, leader.st, hash)
	require.Error(t, err)
	require.Contains(t, err.Error(), "processing budget")
}
