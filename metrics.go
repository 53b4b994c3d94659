package pistonpress

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metric names.
const (
	MetricJobsTotal          = "pistonpress_jobs_total"
	MetricJobDurationSeconds = "pistonpress_job_duration_seconds"
	MetricJobsWaiting        = "pistonpress_jobs_waiting"
	MetricJobsActive         = "pistonpress_jobs_active"
	MetricConcurrencyLimit   = "pistonpress_concurrency_limit"
)

// Metrics holds the queue's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	jobsTotal   *prometheus.CounterVec
	jobDuration prometheus.Histogram
	waiting     prometheus.Gauge
	active      prometheus.Gauge
	limit       prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
// Returns an error if any collector is already registered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricJobsTotal,
			Help: "Print jobs settled, by outcome kind.",
		}, []string{"outcome"}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricJobDurationSeconds,
			Help:    "Time spent printing a job once dispatched.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		waiting: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricJobsWaiting,
			Help: "Jobs accepted but not yet dispatched.",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricJobsActive,
			Help: "Jobs currently printing.",
		}),
		limit: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricConcurrencyLimit,
			Help: "Maximum number of jobs printing at once.",
		}),
	}

	for _, c := range []prometheus.Collector{m.jobsTotal, m.jobDuration, m.waiting, m.active, m.limit} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) setLimit(n int) {
	if m == nil {
		return
	}
	m.limit.Set(float64(n))
}

func (m *Metrics) setDepth(waiting, active int) {
	if m == nil {
		return
	}
	m.waiting.Set(float64(waiting))
	m.active.Set(float64(active))
}

// observeOutcome counts a settled job. elapsed is zero for jobs that never ran.
func (m *Metrics) observeOutcome(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(outcomeLabel(err)).Inc()
	if elapsed > 0 {
		m.jobDuration.Observe(elapsed.Seconds())
	}
}

// outcomeLabel is "success", a Kind name, or "canceled"/"unknown".
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case KindOf(err) != KindUnknown:
		return KindOf(err).String()
	case isContextError(err):
		return "canceled"
	default:
		return "unknown"
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
