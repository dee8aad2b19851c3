package cron

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run outcomes used as metric labels and span attributes.
const (
	outcomeCompleted = "completed"
	outcomeFailed    = "failed"
	outcomeSkipped   = "skipped"
	outcomeError     = "error"
)

// Metrics holds the scheduler's Prometheus collectors.
type Metrics struct {
	executions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	inFlight   *prometheus.GaugeVec
}

// NewMetrics registers the scheduler collectors on reg. A nil reg keeps the
// collectors on a private registry so callers need not nil-check.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		executions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "riddhi_job_executions_total",
			Help: "Job runs by trigger and outcome",
		}, []string{"job", "trigger", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "riddhi_job_duration_seconds",
			Help:    "Handler wall time for runs that acquired the lock",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300, 900, 1800},
		}, []string{"job"}),
		inFlight: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "riddhi_job_in_flight",
			Help: "Handlers currently executing",
		}, []string{"job"}),
	}
}

func (m *Metrics) observe(job string, trigger Trigger, outcome string) {
	m.executions.WithLabelValues(job, string(trigger), outcome).Inc()
}

func (m *Metrics) begin(job string) func() time.Duration {
	start := time.Now()
	g := m.inFlight.WithLabelValues(job)
	g.Inc()
	return func() time.Duration {
		g.Dec()
		d := time.Since(start)
		m.duration.WithLabelValues(job).Observe(d.Seconds())
		return d
	}
}
