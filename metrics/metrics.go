// Package metrics exposes aggregation metrics to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"livewave/api/aggregator"
)

// Aggregation implements aggregator.Observer.
type Aggregation struct {
	registry *prometheus.Registry

	pageRequests *prometheus.CounterVec
	runs         *prometheus.CounterVec
	events       prometheus.Histogram
	duration     prometheus.Histogram
}

func NewAggregation() *Aggregation {
	reg := prometheus.NewRegistry()
	m := &Aggregation{
		registry: reg,
		pageRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livewave_search_page_requests_total",
			Help: "Event search page requests by outcome.",
		}, []string{"outcome"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livewave_aggregations_total",
			Help: "Artist aggregations by stop reason (complete when empty).",
		}, []string{"reason"}),
		events: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "livewave_aggregation_events",
			Help:    "Distinct events returned per aggregation.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 150},
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "livewave_aggregation_duration_seconds",
			Help:    "Wall time of an artist aggregation.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		m.pageRequests, m.runs, m.events, m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Aggregation) PageFetched(outcome string) {
	m.pageRequests.WithLabelValues(outcome).Inc()
}

func (m *Aggregation) Finished(res aggregator.Result, elapsed time.Duration) {
	reason := res.Reason
	if reason == "" {
		reason = "complete"
	}
	m.runs.WithLabelValues(reason).Inc()
	m.events.Observe(float64(len(res.Events)))
	m.duration.Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Aggregation) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

var _ aggregator.Observer = (*Aggregation)(nil)
