// Package metrics holds the Prometheus collectors of the auth service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "evote_auth"

// Metrics groups every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	HTTPRequestsTotal          *prometheus.CounterVec
	HTTPRequestDurationSeconds *prometheus.HistogramVec
	LoginsTotal                *prometheus.CounterVec
	OTPIssuedTotal             *prometheus.CounterVec
	OTPVerificationsTotal      *prometheus.CounterVec
	TokensTotal                *prometheus.CounterVec
	RateLimitedTotal           *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "logins_total",
				Help:      "Total number of credential checks by account kind and outcome.",
			},
			[]string{"kind", "result"},
		),
		OTPIssuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "otp_issued_total",
				Help:      "Total number of OTP challenges issued.",
			},
			[]string{"method", "delivery"},
		),
		OTPVerificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "otp_verifications_total",
				Help:      "Total number of OTP verification attempts.",
			},
			[]string{"method", "result"},
		),
		TokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_total",
				Help:      "Total number of session token operations.",
			},
			[]string{"flow", "result"},
		),
		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Total number of requests rejected by rate limits.",
			},
			[]string{"scope"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDurationSeconds,
		m.LoginsTotal,
		m.OTPIssuedTotal,
		m.OTPVerificationsTotal,
		m.TokensTotal,
		m.RateLimitedTotal,
	)
	return m
}

func (m *Metrics) Login(kind, result string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) OTPIssued(method string, delivered bool) {
	if m == nil {
		return
	}
	delivery := "ok"
	if !delivered {
		delivery = "failed"
	}
	m.OTPIssuedTotal.WithLabelValues(method, delivery).Inc()
}

func (m *Metrics) OTPVerification(method, result string) {
	if m == nil {
		return
	}
	m.OTPVerificationsTotal.WithLabelValues(method, result).Inc()
}

func (m *Metrics) Token(flow, result string) {
	if m == nil {
		return
	}
	m.TokensTotal.WithLabelValues(flow, result).Inc()
}

// RateLimited returns a hook suitable for httpx rate-limit observers.
func (m *Metrics) RateLimited(scope string) func(*http.Request) {
	return func(*http.Request) {
		if m == nil {
			return
		}
		m.RateLimitedTotal.WithLabelValues(scope).Inc()
	}
}

// HTTPMiddleware records request counts and latency. path should be the
// route pattern, not the raw URL, to keep label cardinality bounded.
func (m *Metrics) HTTPMiddleware(path string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(sw.status)).Inc()
			m.HTTPRequestDurationSeconds.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
