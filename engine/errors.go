package engine

import "errors"

// ErrSafetyViolation is returned when a +2/3 precommit quorum's claimed
// state_hash does not match what local execution of the same block
// produces: an equivocation per spec.md §7's safety-violation error class.
// The handler never tries to recover from this — the caller halts the
// replica.
var ErrSafetyViolation = errors.New("engine: safety violation: state hash mismatch on quorum precommit")
