package worker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"callguard/internal/pkg/config"
)

// WorkerMetrics provides Prometheus metrics for the call worker. It embeds
// the standard ConfigMetrics for configuration fallback monitoring and adds
// batch-job metrics.
//
// Embedded metrics (from ConfigMetrics):
//   - worker_config_load_timestamp
//   - worker_config_validation_errors_total
//   - worker_config_fallbacks_total
//   - worker_config_fallback_active
//
// Worker-specific metrics:
//   - worker_cron_job_runs_total: job runs by status (started/success/failure)
//   - worker_cron_job_duration_seconds: batch job duration histogram
//   - worker_cron_job_contacts_called_total: contacts processed across runs
//   - worker_cron_job_last_success_timestamp: Unix time of the last good run
type WorkerMetrics struct {
	*config.ConfigMetrics

	// CronJobRunsTotal counts batch job runs by status.
	CronJobRunsTotal *prometheus.CounterVec

	// CronJobDurationSeconds measures how long each batch job took.
	// Buckets span one second to thirty minutes; a batch is dominated by
	// provider latency times the retry budget.
	CronJobDurationSeconds prometheus.Histogram

	// CronJobContactsCalledTotal counts contacts processed across all runs.
	CronJobContactsCalledTotal prometheus.Counter

	// CronJobLastSuccessTimestamp records when a batch last succeeded.
	// Alert when now minus this exceeds the schedule interval.
	CronJobLastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics creates the worker metrics. Registration happens via
// promauto on creation, so construct this once per process.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		CronJobRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_cron_job_runs_total",
			Help: "Total number of batch job runs by status (started/success/failure)",
		}, []string{"status"}),

		CronJobDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_cron_job_duration_seconds",
			Help:    "Duration of batch job execution in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800},
		}),

		CronJobContactsCalledTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_cron_job_contacts_called_total",
			Help: "Total number of contacts processed across all batch runs",
		}),

		CronJobLastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_cron_job_last_success_timestamp",
			Help: "Unix timestamp of the last successful batch run",
		}),
	}
}

// MustRegister is a no-op kept for the conventional metrics initialization
// sequence; promauto already registered everything in NewWorkerMetrics.
func (m *WorkerMetrics) MustRegister() {
}

// RecordJobRun increments the job run counter for the given status
// ("started", "success", or "failure").
func (m *WorkerMetrics) RecordJobRun(status string) {
	m.CronJobRunsTotal.WithLabelValues(status).Inc()
}

// RecordJobDuration observes one batch job's duration in seconds.
func (m *WorkerMetrics) RecordJobDuration(seconds float64) {
	m.CronJobDurationSeconds.Observe(seconds)
}

// RecordContactsCalled adds the number of contacts processed in one run.
func (m *WorkerMetrics) RecordContactsCalled(count int) {
	m.CronJobContactsCalledTotal.Add(float64(count))
}

// RecordLastSuccess stamps the last-success gauge with the current time.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.CronJobLastSuccessTimestamp.Set(float64(time.Now().Unix()))
}
