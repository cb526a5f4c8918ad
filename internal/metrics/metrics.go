// Package metrics exposes Prometheus instrumentation for the HTTP
// surface and the settlement engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "askie_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "askie_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"method"})

	SpendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "askie_spends_total",
		Help: "Spend attempts by tier and outcome",
	}, []string{"tier", "outcome"})

	TopUpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "askie_topups_total",
		Help: "Top-up initiations by provider and outcome",
	}, []string{"provider", "outcome"})

	SettledAmountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "askie_settled_amount_cents_total",
		Help: "Total minor units settled into wallets by provider",
	}, []string{"provider"})

	StalePaymentsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "askie_stale_payments_swept_total",
		Help: "Pending payments failed by the staleness sweep",
	})
)
