package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Job names used as label values.
const (
	JobSnapshots = "hpp_snapshots"
	JobArchival  = "snapshot_archival"
)

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)

const (
	labelJob     = "job"
	labelOutcome = "outcome"
)

var (
	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hpp_job_runs_total",
			Help: "Total number of job runs by outcome",
		},
		[]string{labelJob, labelOutcome},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hpp_job_duration_seconds",
			Help:    "Wall-clock duration of job runs",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{labelJob},
	)

	SnapshotsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hpp_snapshots_created_total",
			Help: "Total number of HPP snapshots written",
		},
	)

	SnapshotsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hpp_snapshots_failed_total",
			Help: "Total number of recipes whose snapshot could not be written",
		},
	)

	SnapshotsArchived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hpp_snapshots_archived_total",
			Help: "Total number of snapshots moved to the archive",
		},
	)

	ArchivalBatchErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hpp_archival_batch_errors_total",
			Help: "Total number of archival batches that failed",
		},
	)

	RemainingOldSnapshots = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hpp_remaining_old_snapshots",
			Help: "Aged snapshots left in the live store after the last archival run",
		},
	)
)
