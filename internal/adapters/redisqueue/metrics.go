package redisqueue

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/example/claimdesk/internal/ports/secondary"
)

// Job outcomes reported by the worker.
const (
	OutcomeCompleted = "completed"
	OutcomeRetried   = "retried"
	OutcomeFailed    = "failed"
)

// Metrics holds the Prometheus collectors for queues and workers.
// A nil *Metrics records nothing.
type Metrics struct {
	JobsEnqueued  *prometheus.CounterVec
	JobsProcessed *prometheus.CounterVec
	JobDuration   *prometheus.HistogramVec
	QueueDepth    *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		JobsEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "claimdesk",
			Subsystem: "queue",
			Name:      "jobs_enqueued_total",
			Help:      "Total number of jobs added to a queue",
		}, []string{"queue", "type"}),

		JobsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "claimdesk",
			Subsystem: "queue",
			Name:      "jobs_processed_total",
			Help:      "Total number of job deliveries by outcome",
		}, []string{"queue", "type", "outcome"}),

		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "claimdesk",
			Subsystem: "queue",
			Name:      "job_duration_seconds",
			Help:      "Duration of job handlers in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"queue", "type"}),

		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "claimdesk",
			Subsystem: "queue",
			Name:      "jobs",
			Help:      "Number of jobs per queue and state",
		}, []string{"queue", "state"}),
	}

	reg.MustRegister(m.JobsEnqueued, m.JobsProcessed, m.JobDuration, m.QueueDepth)
	return m
}

func (m *Metrics) enqueued(queue, jobType string) {
	if m == nil {
		return
	}
	m.JobsEnqueued.WithLabelValues(queue, jobType).Inc()
}

func (m *Metrics) processed(queue, jobType, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.JobsProcessed.WithLabelValues(queue, jobType, outcome).Inc()
	m.JobDuration.WithLabelValues(queue, jobType).Observe(d.Seconds())
}

func (m *Metrics) observeStats(queue string, s secondary.QueueStats) {
	if m == nil {
		return
	}
	m.QueueDepth.WithLabelValues(queue, secondary.JobStateWaiting).Set(float64(s.Waiting))
	m.QueueDepth.WithLabelValues(queue, secondary.JobStateActive).Set(float64(s.Active))
	m.QueueDepth.WithLabelValues(queue, secondary.JobStateCompleted).Set(float64(s.Completed))
	m.QueueDepth.WithLabelValues(queue, secondary.JobStateFailed).Set(float64(s.Failed))
	m.QueueDepth.WithLabelValues(queue, secondary.JobStateDelayed).Set(float64(s.Delayed))
}
