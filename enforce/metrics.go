package enforce

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the enforcement path.
type Metrics struct {
	Decisions  *prometheus.CounterVec
	LockWait   prometheus.Histogram
	Duration   prometheus.Histogram
	ActiveKeys prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "treasury_limit_decisions_total",
				Help: "Limit decisions by outcome",
			},
			[]string{"outcome"},
		),
		LockWait: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "treasury_limit_lock_wait_seconds",
				Help:    "Time spent waiting for a counterparty scope",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),
		Duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "treasury_limit_evaluate_seconds",
				Help:    "End to end duration of a limit evaluation",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
			},
		),
		ActiveKeys: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "treasury_limit_active_keys",
				Help: "Counterparty scopes currently held or awaited",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Decisions, m.LockWait, m.Duration, m.ActiveKeys)
	}
	return m
}
