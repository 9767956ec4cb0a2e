// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics contains the authcore Prometheus metrics.
type Metrics struct {
	AuthOperations  *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	HashingFailures prometheus.Counter
}

// NewRegistry creates a registry with the standard Go and process collectors.
// A private registry keeps tests from colliding on the global one.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return registry
}

// NewMetrics creates and registers the authcore metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authcore_auth_operations_total",
				Help: "Total number of authentication operations by operation and result code",
			},
			[]string{"operation", "result"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authcore_http_requests_total",
				Help: "Total number of HTTP requests by route and status",
			},
			[]string{"route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "authcore_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		HashingFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "authcore_hashing_failures_total",
				Help: "Total number of password hashing or verification failures",
			},
		),
	}

	reg.MustRegister(m.AuthOperations, m.HTTPRequests, m.HTTPDuration, m.HashingFailures)
	return m
}

// ObserveAuthOperation counts one outcome of an authentication operation.
func (m *Metrics) ObserveAuthOperation(operation, result string) {
	m.AuthOperations.WithLabelValues(operation, result).Inc()
	if result == "HASHING_FAILURE" {
		m.HashingFailures.Inc()
	}
}

// ObserveHTTPRequest counts one served request and its latency.
func (m *Metrics) ObserveHTTPRequest(route string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
