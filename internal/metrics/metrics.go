// Package metrics exposes extraction counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gpmfx"

// Result labels.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultCancel  = "canceled"
)

// Collector records extraction metrics. A nil Collector records nothing.
type Collector struct {
	registry    *prometheus.Registry
	extractions *prometheus.CounterVec
	fallbacks   prometheus.Counter
	bytesRead   prometheus.Counter
	duration    prometheus.Histogram
}

// New creates a collector on its own registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Finished extractions by result.",
		}, []string{"result"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_fallbacks_total",
			Help:      "Background reads restarted in the calling goroutine.",
		}),
		bytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_bytes_total",
			Help:      "Bytes appended to the demuxer.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "Wall time of an extraction.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}
	c.registry.MustRegister(c.extractions, c.fallbacks, c.bytesRead, c.duration)
	return c
}

// ObserveExtraction records a finished extraction.
func (c *Collector) ObserveExtraction(result string, d time.Duration) {
	if c == nil {
		return
	}
	c.extractions.WithLabelValues(result).Inc()
	c.duration.Observe(d.Seconds())
}

// Fallback records a restart in the calling goroutine.
func (c *Collector) Fallback() {
	if c == nil {
		return
	}
	c.fallbacks.Inc()
}

// AddBytes records n bytes read.
func (c *Collector) AddBytes(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.bytesRead.Add(float64(n))
}

// Handler serves the collector's registry.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
