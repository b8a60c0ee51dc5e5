package engine

import (
	"fmt"
	"time"

	"github.com/luxfi/digital-rights-bft/app"
	"github.com/luxfi/digital-rights-bft/config"
	"github.com/luxfi/digital-rights-bft/crypto"
	dlog "github.com/luxfi/digital-rights-bft/log"
	"github.com/luxfi/digital-rights-bft/metrics"
	"github.com/luxfi/digital-rights-bft/node"
	"github.com/luxfi/digital-rights-bft/state"
	"github.com/luxfi/digital-rights-bft/store"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultMaxTxsPerProposal bounds how many pending transactions a leader
// bundles into one Proposal.
const DefaultMaxTxsPerProposal = 500

// Handler is C7: the single-threaded, event-driven consensus state
// machine. It holds no per-height state itself — every method takes the
// State to mutate explicitly, alongside the node.Context collaborator —
// so that nothing is implicitly captured the way the Rust source's trait
// captured ctx through &mut self (spec.md §9's design note).
type Handler struct {
	MaxTxsPerProposal int

	// Params.RoundTimeout is the duration the host runtime should use when
	// arming a timer in response to ArmTimeout; the Handler never starts a
	// timer itself (spec.md §6: the clock is an external collaborator). It
	// is exposed as Timeout() so a runtime loop has one place to read it.
	// Params.MaxItemProcessingTime bounds how long executing one proposed
	// block may take before it is treated as a stalled replica.
	Params config.Parameters

	// ArmTimeout, if set, is called whenever the handler wants the host
	// runtime to (re)schedule a round timeout. The timer itself lives
	// outside the core (spec.md §6: clock/timeout driver is an external
	// collaborator); this is just the signal to arm it.
	ArmTimeout func(height, round uint64)

	// Log and Metrics are both optional observability collaborators; nil
	// checks guard every use site, so a bare &Handler{} (bypassing
	// NewHandler) still runs with neither wired.
	Log     log.Logger
	Metrics *metrics.Metrics
}

// NewHandler returns a Handler tuned by params, logging to a no-op logger
// until replaced (matching the teacher's own default before a real backend
// is wired in).
func NewHandler(params config.Parameters) *Handler {
	return &Handler{
		MaxTxsPerProposal: DefaultMaxTxsPerProposal,
		Params:            params,
		Log:               dlog.NewNoOpLogger(),
	}
}

// NewProductionHandler returns a Handler backed by a real zap logger and a
// prometheus registry, for a replica running outside of tests. Metrics are
// registered against reg; a nil reg falls back to the default registerer.
func NewProductionHandler(params config.Parameters, reg prometheus.Registerer) (*Handler, error) {
	logger, err := dlog.NewProductionLogger()
	if err != nil {
		return nil, fmt.Errorf("engine: building production logger: %w", err)
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	h := NewHandler(params)
	h.Log = logger
	h.Metrics = metrics.NewMetrics(reg)
	return h, nil
}

// Timeout returns how long the host runtime should wait before firing a
// round timeout, per Params.RoundTimeout.
func (h *Handler) Timeout() time.Duration { return h.Params.RoundTimeout }

func (h *Handler) rejectProposal(reason string, height, round uint64) {
	if h.Metrics != nil {
		h.Metrics.RejectedProposals.Inc()
	}
	if h.Log != nil {
		h.Log.Debug("proposal rejected", "reason", reason, "height", height, "round", round)
	}
}

type admission int

const (
	admitDrop admission = iota
	admitQueue
	admitProceed
)

// admit implements spec.md §4.7's message admission rules, shared by every
// network-originated message kind.
func admit(s *State, height, round uint64, validator crypto.PubKey, verified bool) admission {
	if height < s.Height {
		return admitDrop
	}
	if height > s.Height || round > s.Round {
		return admitQueue
	}
	if !s.Validators.Has(validator) {
		return admitDrop
	}
	if !verified {
		return admitDrop
	}
	return admitProceed
}

// HandlePropose admits and processes a Propose message.
func (h *Handler) HandlePropose(ctx node.Context, s *State, p *Proposal) error {
	switch admit(s, p.Height, p.Round, p.Validator, p.Verify()) {
	case admitDrop:
		return nil
	case admitQueue:
		s.addQueued(kindPropose, p.Height, p.Round, p.Encode())
		return nil
	}

	if p.PrevHash != s.PrevHash {
		h.rejectProposal("prev_hash mismatch", p.Height, p.Round)
		return nil
	}
	if p.Validator != s.Leader(p.Round) {
		h.rejectProposal("validator is not leader of round", p.Height, p.Round)
		return nil
	}
	for _, txHash := range p.TxHashes {
		if !s.HasTx(txHash) {
			// Precondition "all txs locally available" failed: this is a
			// liveness concern for the pending-pool layer, not a safety
			// violation, so the proposal is simply not accepted yet.
			h.rejectProposal("tx not locally available", p.Height, p.Round)
			return nil
		}
	}

	return h.handlePropose(ctx, s, p)
}

func (h *Handler) handlePropose(ctx node.Context, s *State, p *Proposal) error {
	hash, added := s.AddProposal(p)
	if !added {
		return nil
	}
	return h.haveBlock(ctx, s, hash)
}

func (h *Handler) haveBlock(ctx node.Context, s *State, hash crypto.Hash) error {
	p, ok := s.Proposal(hash)
	if !ok {
		return fmt.Errorf("engine: haveBlock called for unknown proposal %x", hash)
	}

	if s.LockedRound == 0 {
		if err := h.sendPrevote(ctx, s, p.Round, hash); err != nil {
			return err
		}
	}

	start := s.LockedRound + 1
	if p.Round > start {
		start = p.Round
	}
	for round := start; round <= s.Round; round++ {
		if s.HasMajorityPrevotes(round, hash) {
			if err := h.lock(ctx, s, round, hash); err != nil {
				return err
			}
		}
	}
	return nil
}

// HandlePrevote admits and processes a Prevote message.
func (h *Handler) HandlePrevote(ctx node.Context, s *State, v *Prevote) error {
	switch admit(s, v.Height, v.Round, v.Validator, v.Verify()) {
	case admitDrop:
		return nil
	case admitQueue:
		s.addQueued(kindPrevote, v.Height, v.Round, v.Encode())
		return nil
	}
	if h.Metrics != nil {
		h.Metrics.PrevotesRecv.Inc()
	}
	return h.handlePrevote(ctx, s, v)
}

func (h *Handler) handlePrevote(ctx node.Context, s *State, v *Prevote) error {
	hasQuorum := s.AddPrevote(v)
	if hasQuorum && s.LockedRound < v.Round {
		if _, ok := s.Proposal(v.BlockHash); ok {
			return h.lock(ctx, s, v.Round, v.BlockHash)
		}
	}
	return nil
}

// lock implements spec.md §4.7's Lock, reworked from the Rust source's
// recursive lock() into an explicit work list per spec.md §9's guidance.
func (h *Handler) lock(ctx node.Context, s *State, round uint64, blockHash crypto.Hash) error {
	type work struct {
		round     uint64
		blockHash crypto.Hash
	}
	stack := []work{{round, blockHash}}

	for len(stack) > 0 {
		w := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		s.Lock(w.round, w.blockHash)

		stateHash, ok := s.CachedStateHash(w.blockHash)
		if !ok {
			var err error
			stateHash, err = h.execute(ctx, s, w.blockHash)
			if err != nil {
				return err
			}
		}

		if err := h.sendPrecommit(ctx, s, w.round, w.blockHash, stateHash); err != nil {
			return err
		}

		if s.HasMajorityPrecommits(w.round, w.blockHash, stateHash) {
			if err := h.commit(ctx, s, w.round, w.blockHash); err != nil {
				return err
			}
			// The commit advanced to a new height; any remaining work
			// entries referred to the height that just closed.
			stack = nil
			break
		}

		for r := s.LockedRound + 1; r <= s.Round; r++ {
			if s.HavePrevote(r, w.blockHash) {
				continue
			}
			if err := h.sendPrevote(ctx, s, r, w.blockHash); err != nil {
				return err
			}
			if s.HasMajorityPrevotes(r, w.blockHash) {
				stack = append(stack, work{round: r, blockHash: w.blockHash})
			}
		}
	}
	return nil
}

// HandlePrecommit admits and processes a Precommit message.
func (h *Handler) HandlePrecommit(ctx node.Context, s *State, c *Precommit) error {
	switch admit(s, c.Height, c.Round, c.Validator, c.Verify()) {
	case admitDrop:
		return nil
	case admitQueue:
		s.addQueued(kindPrecommit, c.Height, c.Round, c.Encode())
		return nil
	}
	if h.Metrics != nil {
		h.Metrics.PrecommitsRecv.Inc()
	}
	return h.handlePrecommit(ctx, s, c)
}

func (h *Handler) handlePrecommit(ctx node.Context, s *State, c *Precommit) error {
	hasQuorum := s.AddPrecommit(c)
	if !hasQuorum {
		return nil
	}
	if _, ok := s.Proposal(c.BlockHash); !ok {
		return nil
	}

	stateHash, ok := s.CachedStateHash(c.BlockHash)
	if !ok {
		var err error
		stateHash, err = h.execute(ctx, s, c.BlockHash)
		if err != nil {
			return err
		}
	}
	if stateHash != c.StateHash {
		if h.Metrics != nil {
			h.Metrics.SafetyViolations.Inc()
		}
		if h.Log != nil {
			h.Log.Error("state hash mismatch on quorum precommit",
				"height", c.Height, "round", c.Round, "block_hash", c.BlockHash,
				"claimed_state_hash", c.StateHash, "local_state_hash", stateHash)
		}
		return ErrSafetyViolation
	}
	return h.commit(ctx, s, c.Round, c.BlockHash)
}

// commit implements spec.md §4.7's Commit: merge the cached fork, advance
// height, reset round-local state, drain queued messages, and propose if
// this replica now leads round 1 of the new height.
func (h *Handler) commit(ctx node.Context, s *State, round uint64, blockHash crypto.Hash) error {
	e, ok := s.executed[blockHash]
	if !ok {
		return fmt.Errorf("engine: commit called for unexecuted block %x", blockHash)
	}
	if err := e.fork.Merge(); err != nil {
		return err
	}

	p, ok := s.Proposal(blockHash)
	if !ok {
		return fmt.Errorf("engine: commit called for unknown proposal %x", blockHash)
	}

	committedHeight := s.Height
	s.newHeight(blockHash, p.TxHashes)

	if h.Metrics != nil {
		h.Metrics.Commits.Inc()
		h.Metrics.Height.Set(float64(s.Height))
		h.Metrics.Round.Set(float64(s.Round))
	}
	if h.Log != nil {
		h.Log.Info("committed block", "height", committedHeight, "round", round, "block_hash", blockHash)
	}

	if err := h.sendCommit(ctx, s, committedHeight, round, blockHash); err != nil {
		return err
	}

	if h.ArmTimeout != nil {
		h.ArmTimeout(s.Height, s.Round)
	}

	if err := h.dispatchQueued(ctx, s, s.drainQueue()); err != nil {
		return err
	}

	if s.IsLeader() {
		return h.sendPropose(ctx, s)
	}
	return nil
}

// HandleTimeout implements spec.md §4.7's Timeout. It is purely local: no
// validator set/signature is involved, since it originates from this
// replica's own clock, not the network. The height/round equality check
// is what gives "at most once per (height, round)" (spec.md §5): once the
// round advances, a stale duplicate timeout for the old round no longer
// matches and is ignored.
func (h *Handler) HandleTimeout(ctx node.Context, s *State, height, round uint64) error {
	if height != s.Height || round != s.Round {
		return nil
	}

	if h.Metrics != nil {
		h.Metrics.Timeouts.Inc()
	}
	if h.Log != nil {
		h.Log.Warn("round timed out", "height", height, "round", round)
	}

	s.newRound()
	if h.Metrics != nil {
		h.Metrics.Round.Set(float64(s.Round))
	}
	if h.ArmTimeout != nil {
		h.ArmTimeout(s.Height, s.Round)
	}

	if s.LockedRound != 0 {
		if err := h.sendPrevote(ctx, s, s.Round, s.LockedBlockHash); err != nil {
			return err
		}
	} else if s.IsLeader() {
		if err := h.sendPropose(ctx, s); err != nil {
			return err
		}
	}

	return h.dispatchQueued(ctx, s, s.drainQueue())
}

// execute implements spec.md §4.7's Execute: open a fork over storage,
// apply every transaction named by the proposal through app.Execute, and
// compute the resulting state hash via state.StateHash, caching both.
// Before applying each transaction it compares the time elapsed since the
// call started with Params.MaxItemProcessingTime and returns an error once
// the budget is exceeded; a single transaction that runs long is not
// interrupted, and time spent after the last transaction is not checked.
func (h *Handler) execute(ctx node.Context, s *State, blockHash crypto.Hash) (crypto.Hash, error) {
	p, ok := s.Proposal(blockHash)
	if !ok {
		return crypto.Hash{}, fmt.Errorf("engine: execute called for unknown proposal %x", blockHash)
	}

	start := ctx.Now()
	fork := store.NewFork(ctx.Database())
	view := state.NewView(fork)
	for _, txHash := range p.TxHashes {
		if h.Params.MaxItemProcessingTime > 0 && ctx.Now().Sub(start) > h.Params.MaxItemProcessingTime {
			return crypto.Hash{}, fmt.Errorf("engine: execute: exceeded processing budget of %s for block %x", h.Params.MaxItemProcessingTime, blockHash)
		}
		tx, ok := s.Tx(txHash)
		if !ok {
			return crypto.Hash{}, fmt.Errorf("engine: execute: missing tx %x named by proposal", txHash)
		}
		if err := app.Execute(view, tx); err != nil {
			return crypto.Hash{}, err
		}
	}

	stateHash, err := state.StateHash(view)
	if err != nil {
		return crypto.Hash{}, err
	}
	s.cacheExecuted(blockHash, fork, stateHash)
	return stateHash, nil
}

func (h *Handler) self(s *State) crypto.PubKey { return s.Validators.List()[s.SelfIndex] }

func (h *Handler) sendPropose(ctx node.Context, s *State) error {
	p := &Proposal{
		Validator: h.self(s),
		Height:    s.Height,
		Round:     s.Round,
		PrevHash:  s.PrevHash,
		TxHashes:  s.PendingHashes(h.maxTxs()),
		Time:      uint64(ctx.Now().Unix()),
	}
	p.Sign(ctx.SelfKey())

	if err := ctx.Broadcast(p.Encode()); err != nil {
		return err
	}
	hash, _ := s.AddProposal(p)
	return h.sendPrevote(ctx, s, s.Round, hash)
}

func (h *Handler) maxTxs() int {
	if h.MaxTxsPerProposal > 0 {
		return h.MaxTxsPerProposal
	}
	return DefaultMaxTxsPerProposal
}

func (h *Handler) sendPrevote(ctx node.Context, s *State, round uint64, blockHash crypto.Hash) error {
	v := &Prevote{Validator: h.self(s), Height: s.Height, Round: round, BlockHash: blockHash}
	v.Sign(ctx.SelfKey())
	s.AddPrevote(v)
	return ctx.Broadcast(v.Encode())
}

func (h *Handler) sendPrecommit(ctx node.Context, s *State, round uint64, blockHash, stateHash crypto.Hash) error {
	c := &Precommit{Validator: h.self(s), Height: s.Height, Round: round, BlockHash: blockHash, StateHash: stateHash}
	c.Sign(ctx.SelfKey())
	s.AddPrecommit(c)
	return ctx.Broadcast(c.Encode())
}

func (h *Handler) sendCommit(ctx node.Context, s *State, height, round uint64, blockHash crypto.Hash) error {
	c := &Commit{Validator: h.self(s), Height: height, Round: round, BlockHash: blockHash}
	c.Sign(ctx.SelfKey())
	return ctx.Broadcast(c.Encode())
}

// dispatchQueued re-admits every message spec.md §4.7 had deferred, in the
// order it was queued, exactly as if freshly delivered.
func (h *Handler) dispatchQueued(ctx node.Context, s *State, msgs []queuedMessage) error {
	for _, m := range msgs {
		switch m.kind {
		case kindPropose:
			p, err := DecodeProposal(m.body)
			if err != nil {
				continue
			}
			if err := h.HandlePropose(ctx, s, p); err != nil {
				return err
			}
		case kindPrevote:
			v, err := DecodePrevote(m.body)
			if err != nil {
				continue
			}
			if err := h.HandlePrevote(ctx, s, v); err != nil {
				return err
			}
		case kindPrecommit:
			c, err := DecodePrecommit(m.body)
			if err != nil {
				continue
			}
			if err := h.HandlePrecommit(ctx, s, c); err != nil {
				return err
			}
		}
	}
	return nil
}
