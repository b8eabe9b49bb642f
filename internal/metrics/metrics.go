// Package metrics exposes Prometheus instrumentation for the ingestion
// pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the pipeline counters. One instance per process,
// registered on its own registry so tests can create instances freely.
type Metrics struct {
	registry *prometheus.Registry

	WebhookRequests *prometheus.CounterVec
	Rejections      *prometheus.CounterVec
	Classified      *prometheus.CounterVec
	PipelineSeconds prometheus.Histogram
}

// New creates and registers the pipeline metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		WebhookRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "savenote_webhook_requests_total",
			Help: "Inbound webhook requests by outcome.",
		}, []string{"outcome"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "savenote_pipeline_rejections_total",
			Help: "Pipeline rejections by stage.",
		}, []string{"stage"}),
		Classified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "savenote_classified_total",
			Help: "Persisted classified items by category.",
		}, []string{"category"}),
		PipelineSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "savenote_pipeline_duration_seconds",
			Help:    "End-to-end pipeline duration per message.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(m.WebhookRequests, m.Rejections, m.Classified, m.PipelineSeconds)
	return m
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
