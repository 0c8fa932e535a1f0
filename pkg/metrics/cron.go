package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cron run outcomes.
const (
	CronOutcomeSuccess = "success"
	CronOutcomeFailure = "failure"
	CronOutcomeLocked  = "locked"
)

// CronJobMetrics tracks scheduled maintenance such as pending order expiry.
// The last-success gauge is what alerting watches: a stale value means unpaid
// orders are piling up.
type CronJobMetrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
}

// NewCronJobMetrics registers the cron collectors on reg.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	m := &CronJobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cron_job_runs_total",
			Help: "Scheduled job runs by job and outcome.",
		}, []string{"job", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cron_job_duration_seconds",
			Help:    "Wall time of scheduled job runs.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cron_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run per job.",
		}, []string{"job"}),
	}
	reg.MustRegister(m.runs, m.duration, m.lastSuccess)
	return m
}

// ObserveRun records a finished run. Locked runs did no work, so only the
// counter moves.
func (m *CronJobMetrics) ObserveRun(job, outcome string, took time.Duration, at time.Time) {
	if m == nil || m.runs == nil {
		return
	}
	job = normalizeLabel(job)
	m.runs.WithLabelValues(job, normalizeLabel(outcome)).Inc()
	if outcome == CronOutcomeLocked {
		return
	}
	m.duration.WithLabelValues(job).Observe(took.Seconds())
	if outcome == CronOutcomeSuccess {
		m.lastSuccess.WithLabelValues(job).Set(float64(at.Unix()))
	}
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
