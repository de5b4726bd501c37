package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveProviderCall("google", OutcomeSuccess, 5, 120*time.Millisecond)
	c.ObserveProviderCall("google", OutcomeError, 0, time.Second)
	c.ProviderTripped("bing")
	c.SelectorMiss("bing")
	c.SelectorMiss("bing")
	c.ExtractionAttempt("trafilatura", OutcomeSuccess)
	c.ObserveSearch(2 * time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.providerRequests.WithLabelValues("google", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.providerRequests.WithLabelValues("google", OutcomeError)))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.providerResults.WithLabelValues("google")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.providerTrips.WithLabelValues("bing")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.selectorMisses.WithLabelValues("bing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.extractionAttempts.WithLabelValues("trafilatura", OutcomeSuccess)))

	families, err := reg.Gather()
	assert.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveProviderCall("google", OutcomeSuccess, 1, time.Millisecond)
		c.ProviderTripped("google")
		c.SelectorMiss("bing")
		c.ExtractionAttempt("markup", OutcomeEmpty)
		c.ObserveSearch(time.Second)
	})
}
