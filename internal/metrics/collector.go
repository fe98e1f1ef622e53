// Package metrics 提供 Prometheus 指标收集。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector 指标收集器。所有方法对 nil 接收者安全，便于测试中省略。
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	bridgeStreamsTotal *prometheus.CounterVec
	bridgeChunksTotal  *prometheus.CounterVec
	bridgeParseErrors  prometheus.Counter

	upstreamDuration *prometheus.HistogramVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
}

// NewCollector 在独立 registry 上注册指标。
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		bridgeStreamsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_streams_total",
			Help:      "Chat streams opened by dialect and outcome",
		}, []string{"dialect", "outcome"}),
		bridgeChunksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_chunks_total",
			Help:      "Uniform text chunks emitted by the structured-event translator",
		}, []string{"dialect"}),
		bridgeParseErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_parse_errors_total",
			Help:      "Malformed upstream events skipped by the translator",
		}),
		upstreamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Time until upstream response headers arrive",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"endpoint", "status"}),
		cacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Cache hits",
		}, []string{"cache"}),
		cacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Cache misses",
		}, []string{"cache"}),
	}
}

// Handler 暴露 /metrics。
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry 返回底层 registry（测试用）。
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func (c *Collector) RecordHTTPRequest(method, path, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (c *Collector) RecordStream(dialect, outcome string) {
	if c == nil {
		return
	}
	c.bridgeStreamsTotal.WithLabelValues(dialect, outcome).Inc()
}

func (c *Collector) RecordChunk(dialect string) {
	if c == nil {
		return
	}
	c.bridgeChunksTotal.WithLabelValues(dialect).Inc()
}

func (c *Collector) RecordParseError() {
	if c == nil {
		return
	}
	c.bridgeParseErrors.Inc()
}

func (c *Collector) RecordUpstream(endpoint, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.upstreamDuration.WithLabelValues(endpoint, status).Observe(d.Seconds())
}

func (c *Collector) RecordCache(cache string, hit bool) {
	if c == nil {
		return
	}
	if hit {
		c.cacheHits.WithLabelValues(cache).Inc()
		return
	}
	c.cacheMisses.WithLabelValues(cache).Inc()
}
