package slo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SLO targets define the service level objectives for the call pipeline.
// These targets are used to measure and monitor batch reliability.
const (
	// ReachRatioSLO defines the target share of contacts reached per batch
	// (completed and degraded outcomes both count as reached)
	ReachRatioSLO = 0.95

	// DegradedRatioSLO defines the maximum acceptable share of degraded calls
	// (script delivered without audio synthesis)
	DegradedRatioSLO = 0.10

	// FailureRatioSLO defines the maximum acceptable share of failed or
	// rejected calls per batch (5% = 0.05)
	FailureRatioSLO = 0.05

	// BatchDurationSLO defines the target for total batch duration in seconds.
	// A batch that exceeds this risks overlapping the next scheduled run.
	BatchDurationSLO = 1800.0
)

// SLO tracking metrics
// These gauges are updated after every completed batch based on its outcome
// counts to track whether the pipeline is meeting its SLO targets.
var (
	// SLOReachRatio tracks the share of contacts reached in the latest batch (0-1)
	// calculated as: (completed + degraded) / contacts
	SLOReachRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_batch_reach_ratio",
			Help: "Share of contacts reached in the latest batch (0-1), target: 0.95",
		},
	)

	// SLODegradedRatio tracks the share of degraded calls in the latest batch (0-1)
	// calculated as: degraded / contacts
	SLODegradedRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_batch_degraded_ratio",
			Help: "Share of degraded calls in the latest batch (0-1), target: <= 0.10",
		},
	)

	// SLOFailureRatio tracks the share of failed or rejected calls in the latest batch (0-1)
	// calculated as: (failed + rejected) / contacts
	SLOFailureRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_batch_failure_ratio",
			Help: "Share of failed or rejected calls in the latest batch (0-1), target: <= 0.05",
		},
	)

	// SLOBatchDuration tracks the duration of the latest batch in seconds
	// mirroring the worker_cron_job_duration_seconds histogram as a point value
	SLOBatchDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_batch_duration_seconds",
			Help: "Duration of the latest batch in seconds, target: <= 1800",
		},
	)
)

// UpdateReachRatio updates the reach ratio SLO metric.
// Call this after each batch with the calculated reach ratio.
//
// Example calculation:
//
//	reached := float64(stats.Completed+stats.Degraded) / float64(stats.Contacts)
//	slo.UpdateReachRatio(reached)
func UpdateReachRatio(ratio float64) {
	SLOReachRatio.Set(ratio)
}

// UpdateDegradedRatio updates the degraded ratio SLO metric.
// Call this after each batch with the calculated degraded ratio.
func UpdateDegradedRatio(ratio float64) {
	SLODegradedRatio.Set(ratio)
}

// UpdateFailureRatio updates the failure ratio SLO metric.
// Call this after each batch with the calculated failure ratio.
//
// Example calculation:
//
//	failed := float64(stats.Failed+stats.Rejected) / float64(stats.Contacts)
//	slo.UpdateFailureRatio(failed)
func UpdateFailureRatio(ratio float64) {
	SLOFailureRatio.Set(ratio)
}

// UpdateBatchDuration updates the batch duration SLO metric.
// Call this after each batch with the elapsed wall-clock seconds.
//
// Example using Prometheus query for the histogram view:
//
//	histogram_quantile(0.95, rate(worker_cron_job_duration_seconds_bucket[1d]))
func UpdateBatchDuration(seconds float64) {
	SLOBatchDuration.Set(seconds)
}
