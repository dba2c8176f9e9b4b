// Package metrics Prometheus 指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GeocoderRequests 按结果统计地理编码请求：ok/http_error/transport_error/rejected/cached。
	GeocoderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moodmap",
		Subsystem: "geocoder",
		Name:      "requests_total",
		Help:      "Geocoding requests by outcome.",
	}, []string{"outcome"})

	GeocoderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "moodmap",
		Subsystem: "geocoder",
		Name:      "request_duration_seconds",
		Help:      "Geocoding round-trip latency.",
		Buckets:   prometheus.DefBuckets,
	})

	// MalformedRecords 被丢弃的单条结果。
	MalformedRecords = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "moodmap",
		Subsystem: "geocoder",
		Name:      "malformed_records_total",
		Help:      "Geocoder records dropped for missing or non-numeric coordinates.",
	})

	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "moodmap",
		Subsystem: "geocoder",
		Name:      "breaker_state",
		Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open).",
	}, []string{"name"})

	// Cycles 推荐周期结果：published/fallback/abandoned。
	Cycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moodmap",
		Subsystem: "recommend",
		Name:      "cycles_total",
		Help:      "Recommendation cycles by outcome.",
	}, []string{"outcome"})

	CyclePlaces = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "moodmap",
		Subsystem: "recommend",
		Name:      "result_places",
		Help:      "Places per published result set.",
		Buckets:   []float64{0, 1, 3, 6, 10, 15, 20, 50},
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "moodmap",
		Subsystem: "session",
		Name:      "active",
		Help:      "Live sessions held in memory.",
	})
)
