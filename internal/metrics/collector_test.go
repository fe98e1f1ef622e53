package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordHTTPRequest("GET", "/api/health", "200", time.Millisecond)
		c.RecordStream("responses", "ok")
		c.RecordChunk("responses")
		c.RecordParseError()
		c.RecordUpstream("/responses", "200", time.Second)
		c.RecordCache("story", true)
	})
	assert.Nil(t, c.Registry())
}

func TestCollectorCounts(t *testing.T) {
	c := NewCollector("dpp_test")

	c.RecordCache("story", true)
	c.RecordCache("story", false)
	c.RecordCache("story", false)
	c.RecordChunk("responses")
	c.RecordParseError()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheHits.WithLabelValues("story")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.cacheMisses.WithLabelValues("story")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.bridgeChunksTotal.WithLabelValues("responses")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.bridgeParseErrors))
}
