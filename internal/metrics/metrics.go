// Package metrics exposes Prometheus counters for posting activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector tracks posting outcomes per platform.
type Collector struct {
	registry      *prometheus.Registry
	postsTotal    *prometheus.CounterVec
	contentLength *prometheus.HistogramVec
}

// NewCollector constructs a collector with its own registry.
func NewCollector() (*Collector, error) {
	registry := prometheus.NewRegistry()

	postsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "syndibot",
		Name:      "posts_total",
		Help:      "Total posting attempts by platform and outcome.",
	}, []string{"platform", "status"})

	contentLength := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "syndibot",
		Name:      "post_content_length_chars",
		Help:      "Distribution of posted content lengths in characters.",
		Buckets:   []float64{50, 100, 200, 280, 500, 1000, 3000},
	}, []string{"platform"})

	if err := registry.Register(postsTotal); err != nil {
		return nil, err
	}
	if err := registry.Register(contentLength); err != nil {
		return nil, err
	}

	return &Collector{
		registry:      registry,
		postsTotal:    postsTotal,
		contentLength: contentLength,
	}, nil
}

// RecordPost records one posting attempt.
func (c *Collector) RecordPost(platform string, success bool, contentLength int) {
	status := "failed"
	if success {
		status = "success"
	}
	c.postsTotal.WithLabelValues(platform, status).Inc()
	c.contentLength.WithLabelValues(platform).Observe(float64(contentLength))
}

// Handler returns an HTTP handler for exposing the registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
