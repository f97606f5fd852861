package driver

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/kgc/internal/ir"
)

// Metrics are the driver's Prometheus collectors.
type Metrics struct {
	commits      *prometheus.CounterVec
	rollbacks    *prometheus.CounterVec
	conflicts    prometheus.Counter
	verbDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		commits: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kgc",
				Name:      "commits_total",
				Help:      "Committed transactions by verb.",
			},
			[]string{"verb"},
		),
		rollbacks: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kgc",
				Name:      "rollbacks_total",
				Help:      "Rejected transactions by error code.",
			},
			[]string{"code"},
		),
		conflicts: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: "kgc",
				Name:      "commit_conflicts_total",
				Help:      "Commits retried because the chain tip moved.",
			},
		),
		verbDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "kgc",
				Name:      "verb_duration_seconds",
				Help:      "Kernel verb evaluation time.",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 1},
			},
			[]string{"verb"},
		),
	}
}

func (m *Metrics) committed(verb ir.Verb) {
	m.commits.WithLabelValues(string(verb)).Inc()
}

func (m *Metrics) rolledBack(code ir.ErrorCode) {
	m.rollbacks.WithLabelValues(string(code)).Inc()
}

func (m *Metrics) conflict() {
	m.conflicts.Inc()
}

func (m *Metrics) observe(verb ir.Verb, d time.Duration) {
	m.verbDuration.WithLabelValues(string(verb)).Observe(d.Seconds())
}
