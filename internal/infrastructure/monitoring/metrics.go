// Package monitoring exposes Prometheus metrics for the quota core and the
// recommendation pipeline.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	quotaDecisions *prometheus.CounterVec
	chainsCounted  prometheus.Counter
	recsRequests   prometheus.Counter
	recsFailures   prometheus.Counter
	httpRequests   *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors on a private registry so
// tests can instantiate metrics without double-registration panics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		quotaDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rekomendr_quota_decisions_total",
			Help: "Soft-wall decisions by outcome",
		}, []string{"outcome"}),
		chainsCounted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rekomendr_chains_counted_total",
			Help: "Chains counted against daily quota",
		}),
		recsRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rekomendr_recommendations_total",
			Help: "Recommendation fetches attempted",
		}),
		recsFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rekomendr_recommendation_failures_total",
			Help: "Recommendation fetches that failed",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rekomendr_http_requests_total",
			Help: "HTTP requests by path and status",
		}, []string{"path", "status"}),
	}

	registry.MustRegister(
		m.quotaDecisions,
		m.chainsCounted,
		m.recsRequests,
		m.recsFailures,
		m.httpRequests,
	)
	return m
}

// QuotaDecision records one soft-wall verdict.
func (m *Metrics) QuotaDecision(allowed bool) {
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	m.quotaDecisions.WithLabelValues(outcome).Inc()
}

// ChainCounted records one chain counted against quota.
func (m *Metrics) ChainCounted() {
	m.chainsCounted.Inc()
}

// RecommendationAttempt records one recommendation fetch, failed or not.
func (m *Metrics) RecommendationAttempt(failed bool) {
	m.recsRequests.Inc()
	if failed {
		m.recsFailures.Inc()
	}
}

// HTTPRequest records one served request.
func (m *Metrics) HTTPRequest(path, status string) {
	m.httpRequests.WithLabelValues(path, status).Inc()
}

// Handler serves the /metrics scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
