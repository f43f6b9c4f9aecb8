// SPDX-License-Identifier: MIT

package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lookupd_dispatch_duration_seconds",
		Help:    "Duration of endpoint handler dispatches in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2.0, 12), // 1ms .. ~4s
	}, []string{"endpoint"})

	dispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lookupd_dispatch_total",
		Help: "Number of dispatched endpoint requests by status class",
	}, []string{"endpoint", "status"})

	authFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lookupd_auth_failures_total",
		Help: "Number of rejected requests by auth failure reason",
	}, []string{"route", "reason"})

	capabilityDeniedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lookupd_capability_denied_total",
		Help: "Number of requests denied for a missing capability",
	}, []string{"capability"})

	rateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lookupd_rate_limited_total",
		Help: "Number of requests rejected by the rate limiter",
	}, []string{"path"})

	registryEndpoints = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lookupd_registry_endpoints",
		Help: "Number of endpoints in the active registry",
	})

	registryReloadTime = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lookupd_registry_reload_timestamp",
		Help: "Unix timestamp of the last successful registry reload",
	})
)

func recordDispatch(endpoint, status string, duration time.Duration) {
	dispatchDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
	dispatchTotal.WithLabelValues(endpoint, status).Inc()
}

func recordAuthFailure(route, reason string) {
	authFailuresTotal.WithLabelValues(route, reason).Inc()
}

func recordCapabilityDenied(capability string) {
	capabilityDeniedTotal.WithLabelValues(capability).Inc()
}

func recordRateLimited(path string) {
	rateLimitedTotal.WithLabelValues(path).Inc()
}

func recordRegistrySize(n int) {
	registryEndpoints.Set(float64(n))
	registryReloadTime.Set(float64(time.Now().Unix()))
}
