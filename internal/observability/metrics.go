// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	SpeedSamplesStored    prometheus.Counter
	FluorSamplesStored    prometheus.Counter
	EventsIngested        *prometheus.CounterVec
	IngestionErrors       *prometheus.CounterVec
	OptoSessionsResolved  prometheus.Counter

	// Conditioning metrics
	SessionsConditioned   prometheus.Counter
	ConditioningFailures  *prometheus.CounterVec
	BaselineFallbacks     prometheus.Counter
	ArtifactSamplesMarked prometheus.Counter

	// Bout detection metrics
	BoutsDetected      prometheus.Counter
	BoutsMerged        prometheus.Counter
	EdgeBoutsDiscarded prometheus.Counter

	// Alignment metrics
	WindowsAligned      *prometheus.CounterVec
	EventsEdgeTruncated prometheus.Counter
	GroupsAggregated    prometheus.Counter
	LowNGroups          prometheus.Counter

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec
	ReportsGenerated  prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulPipeline prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "photometry_lab"
	}

	return &Metrics{
		// Ingestion metrics
		SpeedSamplesStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "speed_samples_stored_total",
			Help:      "Total number of speed samples stored",
		}),
		FluorSamplesStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "fluor_samples_stored_total",
			Help:      "Total number of fluorescence samples stored",
		}),
		EventsIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_ingested_total",
			Help:      "Total number of events ingested by type",
		}, []string{"event_type"}),
		IngestionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "errors_total",
			Help:      "Total number of ingestion errors by source and type",
		}, []string{"source", "error_type"}),
		OptoSessionsResolved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "opto_sessions_resolved_total",
			Help:      "Total number of stimulation sessions resolved from TTL edges",
		}),

		// Conditioning metrics
		SessionsConditioned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conditioning",
			Name:      "sessions_conditioned_total",
			Help:      "Total number of sessions conditioned",
		}),
		ConditioningFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conditioning",
			Name:      "failures_total",
			Help:      "Total number of conditioning failures by stage",
		}, []string{"stage"}),
		BaselineFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conditioning",
			Name:      "baseline_fallbacks_total",
			Help:      "Total number of exponential fits that fell back to polynomial baseline",
		}),
		ArtifactSamplesMarked: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conditioning",
			Name:      "artifact_samples_marked_total",
			Help:      "Total number of samples flagged invalid by baseline collapse",
		}),

		// Bout detection metrics
		BoutsDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "boutdetect",
			Name:      "bouts_detected_total",
			Help:      "Total number of locomotion bouts detected",
		}),
		BoutsMerged: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "boutdetect",
			Name:      "bouts_merged_total",
			Help:      "Total number of bout pairs merged across short gaps",
		}),
		EdgeBoutsDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "boutdetect",
			Name:      "edge_bouts_discarded_total",
			Help:      "Total number of bouts discarded for touching the recording edge",
		}),

		// Alignment metrics
		WindowsAligned: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alignment",
			Name:      "windows_aligned_total",
			Help:      "Total number of event windows aligned by event type",
		}, []string{"event_type"}),
		EventsEdgeTruncated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alignment",
			Name:      "events_edge_truncated_total",
			Help:      "Total number of events skipped for edge truncation",
		}),
		GroupsAggregated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alignment",
			Name:      "groups_aggregated_total",
			Help:      "Total number of condition groups aggregated",
		}),
		LowNGroups: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alignment",
			Name:      "low_n_groups_total",
			Help:      "Total number of groups flagged for low animal count",
		}),

		// Pipeline metrics
		PipelineRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by phase and status",
		}, []string{"phase", "status"}),
		PipelineDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline phase duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"phase"}),
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulPipeline: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pipeline_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordEventsIngested adds to the events ingested counter for a type.
func RecordEventsIngested(eventType string, n int) {
	DefaultMetrics.EventsIngested.WithLabelValues(eventType).Add(float64(n))
}

// RecordIngestionError records an ingestion error.
func RecordIngestionError(source, errorType string) {
	DefaultMetrics.IngestionErrors.WithLabelValues(source, errorType).Inc()
}

// RecordConditioningFailure records a conditioning failure for a stage.
func RecordConditioningFailure(stage string) {
	DefaultMetrics.ConditioningFailures.WithLabelValues(stage).Inc()
}

// RecordWindowsAligned adds to the aligned window counter for an event type.
func RecordWindowsAligned(eventType string, n int) {
	DefaultMetrics.WindowsAligned.WithLabelValues(eventType).Add(float64(n))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordPipelineRun records one pipeline phase run.
func RecordPipelineRun(phase, status string, durationSeconds float64) {
	DefaultMetrics.PipelineRunsTotal.WithLabelValues(phase, status).Inc()
	DefaultMetrics.PipelineDuration.WithLabelValues(phase).Observe(durationSeconds)
}
