package observability

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yungbote/minutebridge-backend/internal/domain"
)

const namespace = "minutebridge"

// Metrics holds the service collectors. A nil *Metrics is valid and records
// nothing, so callers never branch on METRICS_ENABLED.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	extractions       *prometheus.CounterVec
	extractionLatency *prometheus.HistogramVec
	extractedChars    *prometheus.HistogramVec

	rateLimit *prometheus.CounterVec

	upstreamLatency *prometheus.HistogramVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		apiRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		apiLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"method", "route"}),
		apiInflight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_inflight_requests",
			Help:      "Requests currently being served.",
		}),
		extractions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Extraction attempts by source kind, strategy and outcome (ok or error kind).",
		}, []string{"source_kind", "strategy", "outcome"}),
		extractionLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "Time spent inside an extraction strategy.",
			Buckets:   []float64{0.01, 0.05, 0.25, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"strategy"}),
		extractedChars: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extracted_chars",
			Help:      "Characters of normalized text returned per extraction.",
			Buckets:   prometheus.ExponentialBuckets(100, 4, 8),
		}, []string{"source_kind"}),
		rateLimit: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratelimit_decisions_total",
			Help:      "Rate limiter decisions by policy and result.",
		}, []string{"policy", "result"}),
		upstreamLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_call_duration_seconds",
			Help:      "Latency of guarded calls to external capabilities.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"capability", "outcome"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// ObserveExtraction records one strategy run. A nil err counts as "ok";
// otherwise the outcome is the error kind.
func (m *Metrics) ObserveExtraction(sourceKind, strategy string, chars int, dur time.Duration, err error) {
	if m == nil {
		return
	}
	if strategy == "" {
		strategy = "none"
	}
	outcome := "ok"
	if err != nil {
		outcome = outcomeOf(err)
	}
	m.extractions.WithLabelValues(sourceKind, strategy, outcome).Inc()
	m.extractionLatency.WithLabelValues(strategy).Observe(dur.Seconds())
	if err == nil {
		m.extractedChars.WithLabelValues(sourceKind).Observe(float64(chars))
	}
}

// ObserveRateLimit takes result as "allowed", "window", "hourly" or "error".
func (m *Metrics) ObserveRateLimit(policy, result string) {
	if m == nil {
		return
	}
	m.rateLimit.WithLabelValues(policy, result).Inc()
}

// ObserveUpstream has the upstream.Observer signature.
func (m *Metrics) ObserveUpstream(capability string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrUpstreamTimeout), errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	case errors.Is(err, context.Canceled):
		outcome = "canceled"
	default:
		outcome = "error"
	}
	m.upstreamLatency.WithLabelValues(capability, outcome).Observe(elapsed.Seconds())
}

func outcomeOf(err error) string {
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return string(domain.KindOf(err))
}
