// FILE: src/internal/auth/metrics.go
package auth

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	handshakes        *prometheus.CounterVec
	handshakeDuration prometheus.Histogram
	inFlight          prometheus.Gauge
	registrations     *prometheus.CounterVec
	rateLimited       prometheus.Counter
	expired           prometheus.Counter
	sessionsExpired   prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		handshakes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scramwisp_handshakes_total",
				Help: "Number of finished handshakes by result",
			},
			[]string{"result"},
		),
		handshakeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scramwisp_handshake_duration_seconds",
				Help:    "Time from client-first to server-final",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "scramwisp_handshakes_in_flight",
				Help: "Handshakes awaiting a client-final-message",
			},
		),
		registrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scramwisp_registrations_total",
				Help: "Number of credential registrations by result",
			},
			[]string{"result"},
		),
		rateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "scramwisp_rate_limited_total",
				Help: "Handshake attempts refused by the per-peer limiter",
			},
		),
		expired: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "scramwisp_handshakes_expired_total",
				Help: "Handshakes reaped after the timeout",
			},
		),
		sessionsExpired: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "scramwisp_sessions_expired_total",
				Help: "Authenticated sessions removed after the idle timeout",
			},
		),
	}

	reg.MustRegister(
		m.handshakes,
		m.handshakeDuration,
		m.inFlight,
		m.registrations,
		m.rateLimited,
		m.expired,
		m.sessionsExpired,
	)
	return m
}
