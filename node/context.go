// Package node implements C8: the explicit collaborator set the consensus
// handler needs (transport, storage, clock, signing key) behind one
// interface, and an in-memory test double.
//
// spec.md §9's design notes call for "NodeContext as explicit parameter,
// not captured in self-pointer" — the Rust source's ConsensusHandler trait
// takes &mut NodeContext on every method for the same reason. Context here
// plays that role: engine.Handler never stores one, every method takes it.
package node

import (
	"time"

	"github.com/luxfi/digital-rights-bft/crypto"
	"github.com/luxfi/digital-rights-bft/store"
	"github.com/luxfi/digital-rights-bft/validators"
)

// Context is everything the consensus handler needs from the outside
// world, per spec.md §6's external interfaces (transport, storage, clock)
// plus the validator's own identity and signing key.
type Context interface {
	// Broadcast sends payload to every validator, including the sender
	// (spec.md §6: "no delivery-order assumption" — the handler is
	// expected to process its own broadcasts like any other message).
	Broadcast(payload []byte) error
	// Send delivers payload to a single validator.
	Send(to crypto.PubKey, payload []byte) error

	// Database is the root authenticated store new forks are opened
	// against for speculative block execution.
	Database() store.Forker

	// Now reads the monotonic clock (spec.md §6: "no wall-clock source" —
	// Now is the one hook through which time enters the core at all).
	Now() time.Time

	// SelfKey is this validator's signing key.
	SelfKey() crypto.SecretKey

	// Validators is the fixed validator set for this height.
	Validators() *validators.Set
}
