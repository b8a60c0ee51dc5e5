// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides the consensus engine's Prometheus collectors: one gauge
// per quantity that moves monotonically up-or-down with height/round, and
// one counter per discrete event the handler emits.
type Metrics struct {
	Registry prometheus.Registerer

	Height       prometheus.Gauge
	Round        prometheus.Gauge
	PrevotesRecv prometheus.Counter
	PrecommitsRecv prometheus.Counter
	Commits      prometheus.Counter
	Timeouts     prometheus.Counter
	RejectedProposals prometheus.Counter
	SafetyViolations  prometheus.Counter
}

// NewMetrics creates a new Metrics instance and registers every collector
// against reg. Registration errors (such as a collector with a colliding
// name already registered) are ignored: the collectors still work, but a
// collector that failed to register is not exposed through reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Registry: reg,
		Height: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bft", Name: "height", Help: "current consensus height",
		}),
		Round: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bft", Name: "round", Help: "current round within the height",
		}),
		PrevotesRecv: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bft", Name: "prevotes_received_total", Help: "prevotes admitted by the handler, own votes included",
		}),
		PrecommitsRecv: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bft", Name: "precommits_received_total", Help: "precommits admitted by the handler, own votes included",
		}),
		Commits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bft", Name: "commits_total", Help: "blocks committed",
		}),
		Timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bft", Name: "timeouts_total", Help: "round timeouts fired",
		}),
		RejectedProposals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bft", Name: "rejected_proposals_total", Help: "proposals rejected at admission",
		}),
		SafetyViolations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bft", Name: "safety_violations_total", Help: "fatal safety violations detected",
		}),
	}
	for _, c := range []prometheus.Collector{
		m.Height, m.Round, m.PrevotesRecv, m.PrecommitsRecv,
		m.Commits, m.Timeouts, m.RejectedProposals, m.SafetyViolations,
	} {
		_ = m.Register(c)
	}
	return m
}

// Register registers a prometheus collector.
func (m *Metrics) Register(collector prometheus.Collector) error {
	return m.Registry.Register(collector)
}
