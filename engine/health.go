package engine

import (
	"context"

	"github.com/luxfi/digital-rights-bft/api/health"
)

// Health implements health.Checkable for a replica's consensus State: a
// validator set with no members can never reach quorum, so that alone marks
// the replica unhealthy regardless of how far its height has advanced.
func (s *State) Health(_ context.Context) (interface{}, error) {
	validatorsOK := s.Validators.Len() > 0
	return health.Report{
		Healthy: validatorsOK,
		Details: map[string]interface{}{
			"height":     s.Height,
			"round":      s.Round,
			"validators": s.Validators.Len(),
		},
		Checks: []health.Check{
			{Name: "validator-set", Healthy: validatorsOK},
		},
	}, nil
}
