// Package metrics holds the prometheus collectors of the search and
// extraction pipeline. A nil *Collector is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "market_research"

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
)

// Collector groups every collector the service exports
type Collector struct {
	providerRequests   *prometheus.CounterVec
	providerResults    *prometheus.CounterVec
	providerTrips      *prometheus.CounterVec
	selectorMisses     *prometheus.CounterVec
	extractionAttempts *prometheus.CounterVec
	searchDuration     prometheus.Histogram
	providerDuration   *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "provider_requests_total",
			Help:      "Provider calls by outcome.",
		}, []string{"provider", "outcome"}),
		providerResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "provider_results_total",
			Help:      "Results returned by each provider before dedup.",
		}, []string{"provider"}),
		providerTrips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "provider_trips_total",
			Help:      "Times a provider was disabled after reaching its error threshold.",
		}, []string{"provider"}),
		selectorMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "selector_misses_total",
			Help:      "Scraped result pages where no result block matched.",
		}, []string{"provider"}),
		extractionAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extractor",
			Name:      "attempts_total",
			Help:      "Extraction method attempts by outcome.",
		}, []string{"extractor", "outcome"}),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "unified_duration_seconds",
			Help:      "Wall-clock time of a unified search.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 45},
		}),
		providerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "provider_duration_seconds",
			Help:      "Latency of single provider calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
	}

	if reg != nil {
		reg.MustRegister(
			c.providerRequests,
			c.providerResults,
			c.providerTrips,
			c.selectorMisses,
			c.extractionAttempts,
			c.searchDuration,
			c.providerDuration,
		)
	}
	return c
}

// ObserveProviderCall records one provider call
func (c *Collector) ObserveProviderCall(provider, outcome string, results int, took time.Duration) {
	if c == nil {
		return
	}
	c.providerRequests.WithLabelValues(provider, outcome).Inc()
	c.providerDuration.WithLabelValues(provider).Observe(took.Seconds())
	if results > 0 {
		c.providerResults.WithLabelValues(provider).Add(float64(results))
	}
}

// ProviderTripped records a provider being disabled
func (c *Collector) ProviderTripped(provider string) {
	if c == nil {
		return
	}
	c.providerTrips.WithLabelValues(provider).Inc()
}

// SelectorMiss records a scraped page without any matching result block
func (c *Collector) SelectorMiss(provider string) {
	if c == nil {
		return
	}
	c.selectorMisses.WithLabelValues(provider).Inc()
}

// ExtractionAttempt records one extraction method attempt
func (c *Collector) ExtractionAttempt(extractor, outcome string) {
	if c == nil {
		return
	}
	c.extractionAttempts.WithLabelValues(extractor, outcome).Inc()
}

// ObserveSearch records the duration of a unified search
func (c *Collector) ObserveSearch(took time.Duration) {
	if c == nil {
		return
	}
	c.searchDuration.Observe(took.Seconds())
}
