// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import "time"

// Parameters contains consensus configuration for the round-based BFT
// engine. This replaces the sampling parameters of an Avalanche-style
// engine (K, AlphaPreference, AlphaConfidence, Beta, FPC) with the
// fixed-validator-set, quorum-voting parameters a round-based engine needs;
// the timing/pool-capacity fields keep their original purpose since both
// families of engine need a round timeout and a bound on outstanding work.
type Parameters struct {
	// NumValidators is the size of the fixed validator set.
	NumValidators int

	// QuorumNumerator / QuorumDenominator are the vote fraction from which
	// Parameters.Quorum computes a vote count. The engine's vote tallies do
	// not read these fields: they use validators.Set.Quorum, which is fixed
	// at floor(2N/3)+1.
	QuorumNumerator   int
	QuorumDenominator int

	// RoundTimeout bounds how long a Handler waits in one round (Propose,
	// Prevote, or Precommit) before firing a Timeout event and advancing
	// the round.
	RoundTimeout time.Duration

	// MaxItemProcessingTime bounds how long the handler may spend applying
	// the transactions of one proposed block: elapsed time is checked before
	// each transaction, and execution stops with an error once it is over.
	MaxItemProcessingTime time.Duration

	// MaxPendingTxs caps the consensus state's pending-transaction pool.
	MaxPendingTxs int

	// MaxQueuedMessages caps the future height/round message queue.
	MaxQueuedMessages int
}

// Quorum returns the number of matching votes Parameters requires out of n
// validators: floor(n*QuorumNumerator/QuorumDenominator) + 1.
func (p Parameters) Quorum(n int) int {
	return (n*p.QuorumNumerator)/p.QuorumDenominator + 1
}

// Mainnet returns production parameters: a full validator set and
// conservative timeouts.
func Mainnet() Parameters {
	return Parameters{
		NumValidators:         21,
		QuorumNumerator:       2,
		QuorumDenominator:     3,
		RoundTimeout:          3 * time.Second,
		MaxItemProcessingTime: 10 * time.Second,
		MaxPendingTxs:         4096,
		MaxQueuedMessages:     1024,
	}
}

// Testnet returns a smaller validator set with the same timeouts as Mainnet.
func Testnet() Parameters {
	return Parameters{
		NumValidators:         7,
		QuorumNumerator:       2,
		QuorumDenominator:     3,
		RoundTimeout:          3 * time.Second,
		MaxItemProcessingTime: 10 * time.Second,
		MaxPendingTxs:         4096,
		MaxQueuedMessages:     1024,
	}
}

// Local returns fast-round parameters for single-machine development
// clusters.
func Local() Parameters {
	return Parameters{
		NumValidators:         4,
		QuorumNumerator:       2,
		QuorumDenominator:     3,
		RoundTimeout:          250 * time.Millisecond,
		MaxItemProcessingTime: 5 * time.Second,
		MaxPendingTxs:         256,
		MaxQueuedMessages:     256,
	}
}
