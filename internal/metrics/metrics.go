// Package metrics defines the Prometheus collectors of the service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "api",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "api",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	VariantOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalog",
			Name:      "variant_operations_total",
			Help:      "Variant rows created, updated or deleted by reconciliation",
		},
		[]string{"op"},
	)

	Reconciliations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalog",
			Name:      "reconciliations_total",
			Help:      "Variant reconciliations by result",
		},
		[]string{"mode", "result"},
	)
)

var once sync.Once

// Register adds the collectors to the default registry. Safe to call twice.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(HTTPDuration, HTTPRequests, VariantOperations, Reconciliations)
	})
}
