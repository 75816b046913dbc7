// Package observability collects the engine's Prometheus metrics behind a
// single registry.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all engine metric collectors. Create one per process and
// share it across components.
type Metrics struct {
	registry *prometheus.Registry

	// Ingest
	ObservationsIngested *prometheus.CounterVec
	IngestFailures       *prometheus.CounterVec

	// Scoring
	ScoresComputed *prometheus.CounterVec

	// Dispatch
	AlertsCreated      prometheus.Counter
	AlertsEscalated    prometheus.Counter
	AlertsAutoResolved prometheus.Counter

	// Pipeline
	PipelineRuns        prometheus.Counter
	PipelineRunDuration prometheus.Histogram

	// MQTT
	MQTTMessagesPublished prometheus.Counter
	MQTTErrors            prometheus.Counter
}

// NewMetrics creates and registers all collectors on a fresh registry.
func NewMetrics() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ObservationsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "site360_observations_ingested_total",
			Help: "Observations extracted from domain records, by source table",
		}, []string{"source_table"}),
		IngestFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "site360_ingest_failures_total",
			Help: "Domain records rejected during ingestion, by source table",
		}, []string{"source_table"}),
		ScoresComputed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "site360_scores_computed_total",
			Help: "Control scores computed, by dimension",
		}, []string{"dimension"}),
		AlertsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "site360_alerts_created_total",
			Help: "Alerts opened by the dispatcher",
		}),
		AlertsEscalated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "site360_alerts_escalated_total",
			Help: "Open alerts escalated to a higher severity",
		}),
		AlertsAutoResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "site360_alerts_auto_resolved_total",
			Help: "Open alerts auto-resolved after their condition cleared",
		}),
		PipelineRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "site360_pipeline_runs_total",
			Help: "Completed evaluation pipeline runs",
		}),
		PipelineRunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "site360_pipeline_run_duration_seconds",
			Help:    "Wall time of one full pipeline run",
			Buckets: prometheus.DefBuckets,
		}),
		MQTTMessagesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "site360_mqtt_messages_published_total",
			Help: "Alert messages published to the MQTT broker",
		}),
		MQTTErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "site360_mqtt_errors_total",
			Help: "MQTT connection and publish errors",
		}),
	}

	collectors := []prometheus.Collector{
		m.ObservationsIngested,
		m.IngestFailures,
		m.ScoresComputed,
		m.AlertsCreated,
		m.AlertsEscalated,
		m.AlertsAutoResolved,
		m.PipelineRuns,
		m.PipelineRunDuration,
		m.MQTTMessagesPublished,
		m.MQTTErrors,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}
	return m, nil
}

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
