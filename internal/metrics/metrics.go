package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "agentbots"

// Metrics is safe to use through a nil pointer; every recorder becomes a no-op.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	LifecycleOpsTotal *prometheus.CounterVec
	RunningBots       prometheus.Gauge
	LoadedHandles     prometheus.Gauge

	UpdatesTotal       *prometheus.CounterVec
	RateLimitHitsTotal prometheus.Counter

	LLMRequestsTotal   *prometheus.CounterVec
	LLMRequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers all collectors with reg. Tests pass prometheus.NewRegistry().
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests handled",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"method", "route"},
		),

		LifecycleOpsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bot_lifecycle_operations_total",
				Help:      "Bot lifecycle operations by kind and outcome",
			},
			[]string{"op", "status"},
		),
		RunningBots: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "running_bots",
				Help:      "Bots marked running in the registry as of the last reconcile or transition",
			},
		),
		LoadedHandles: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "loaded_bot_handles",
				Help:      "Bot handles held in memory by this process",
			},
		),

		UpdatesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_updates_total",
				Help:      "Inbound Telegram updates by outcome",
			},
			[]string{"status"},
		),
		RateLimitHitsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Chat messages rejected by the per-user rate limit",
			},
		),

		LLMRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_requests_total",
				Help:      "Total number of LLM API requests",
			},
			[]string{"provider", "status"},
		),
		LLMRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "llm_request_duration_seconds",
				Help:      "LLM request duration in seconds",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider"},
		),

		gatherer: reg,
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *Metrics) RecordLifecycle(op, status string) {
	if m == nil {
		return
	}
	m.LifecycleOpsTotal.WithLabelValues(op, status).Inc()
}

func (m *Metrics) SetRunningBots(count int) {
	if m == nil {
		return
	}
	m.RunningBots.Set(float64(count))
}

func (m *Metrics) SetLoadedHandles(count int) {
	if m == nil {
		return
	}
	m.LoadedHandles.Set(float64(count))
}

func (m *Metrics) RecordUpdate(status string) {
	if m == nil {
		return
	}
	m.UpdatesTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordRateLimitHit() {
	if m == nil {
		return
	}
	m.RateLimitHitsTotal.Inc()
}

func (m *Metrics) RecordLLMRequest(provider, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.WithLabelValues(provider, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}
