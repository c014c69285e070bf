package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for monitoring
var (
	ImportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "importer_imports_total",
		Help: "The total number of import pipeline runs by method and status",
	}, []string{"method", "status"})

	ImportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "importer_import_duration_seconds",
		Help:    "Time taken to run the import pipeline",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // Start at 500ms with 10 buckets doubling in size
	}, []string{"status"})

	AIFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "importer_ai_fallbacks_total",
		Help: "Number of imports that fell back to AI extraction",
	})

	AckFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "importer_ack_failures_total",
		Help: "Number of import requests whose acknowledgement was rejected by the front-end channel",
	})

	TagReconcileFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "importer_tag_reconcile_failures_total",
		Help: "Number of tag lookup, creation or assignment failures",
	})

	// Retry related metrics
	RetryQueueSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "importer_retry_queue_size",
		Help: "Number of non-terminal tasks in the retry queue",
	})

	RetryTasksAdded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "importer_retry_tasks_added_total",
		Help: "Number of tasks added to the retry queue",
	})

	RetryTasksFlagged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "importer_retry_tasks_flagged_total",
		Help: "Number of tasks flagged for redrive by the scheduler",
	})

	RetryTasksExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "importer_retry_tasks_exhausted_total",
		Help: "Number of tasks that reached maximum retry attempts",
	})
)
