// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	IntakeTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_transitions_total",
			Help: "Intake step transitions by direction and outcome",
		},
		[]string{"from", "to", "outcome"},
	)

	ProspectSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_prospect_saves_total",
			Help: "Prospect checkpoint writes by checkpoint and outcome",
		},
		[]string{"checkpoint", "outcome"},
	)

	InventoryMatches = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inventory_matches_count",
			Help:    "Number of inventory items matched per request",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
		[]string{"tenant_id"},
	)

	InventoryReadFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_read_failures_total",
			Help: "Inventory reads that failed and degraded to an empty match list",
		},
		[]string{"tenant_id"},
	)

	CustodyUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "custody_uploads_total",
			Help: "Document custody uploads by slot and outcome",
		},
		[]string{"slot", "outcome"},
	)

	TenantConfigCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenant_config_cache_total",
			Help: "Tenant configuration cache lookups by result",
		},
		[]string{"result"},
	)
)
