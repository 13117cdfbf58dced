package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the gateway API.
// Pass to components that need to record metrics.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	SubmissionsTotal *prometheus.CounterVec
	RejectionsTotal  *prometheus.CounterVec
	RateLimitedTotal prometheus.Counter
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ogx_gateway",
				Name:      "requests_total",
				Help:      "Total number of API requests processed",
			},
			[]string{"method", "route", "status"}, // status=ok/error
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "ogx_gateway",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		SubmissionsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ogx_gateway",
				Name:      "submissions_total",
				Help:      "Total message submissions by outcome",
			},
			[]string{"result"}, // result=accepted/duplicate/rejected
		),
		RejectionsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ogx_gateway",
				Name:      "rejections_total",
				Help:      "Total rejected submissions by pipeline stage",
			},
			[]string{"stage"}, // stage=format/network/transport/size/message
		),
		RateLimitedTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "ogx_gateway",
				Name:      "rate_limited_total",
				Help:      "Total requests rejected by rate limiting",
			},
		),
	}
}
