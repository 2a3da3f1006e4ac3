package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ReadingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "veripass", Name: "readings_total", Help: "Number of recorded document reads by outcome and access protocol."},
		[]string{"outcome", "protocol"},
	)
	ReadingFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "veripass", Name: "reading_failures_total", Help: "Number of failed document reads by failure category."},
		[]string{"category"},
	)
	ReadingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "veripass", Name: "reading_duration_seconds",
			Help:    "Duration of document read attempts as reported by devices.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 15, 30, 60},
		},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "veripass", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "veripass", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(ReadingsTotal)
	reg.MustRegister(ReadingFailures)
	reg.MustRegister(ReadingDuration)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
