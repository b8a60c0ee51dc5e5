// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"fmt"
	"time"
)

// TestParameters is a lightweight configuration used in unit tests: a
// four-validator cluster with near-zero timeouts.
var TestParameters = Parameters{
	NumValidators:         4,
	QuorumNumerator:       2,
	QuorumDenominator:     3,
	RoundTimeout:          10 * time.Millisecond,
	MaxItemProcessingTime: time.Second,
	MaxPendingTxs:         64,
	MaxQueuedMessages:     64,
}

// GetParametersByName returns a preset by name.
func GetParametersByName(name string) (Parameters, error) {
	switch name {
	case "mainnet":
		return Mainnet(), nil
	case "testnet":
		return Testnet(), nil
	case "local":
		return Local(), nil
	case "test":
		return TestParameters, nil
	default:
		return Parameters{}, fmt.Errorf("config: unknown preset %q", name)
	}
}

// GetPresetParameters is an alias for GetParametersByName kept for callers
// migrating from the older name.
func GetPresetParameters(preset string) (Parameters, error) {
	return GetParametersByName(preset)
}

// PresetNames returns all available preset names.
func PresetNames() []string {
	return []string{"mainnet", "testnet", "local", "test"}
}
