package app

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	stressRuns      *prometheus.CounterVec
	capitalImpact   *prometheus.HistogramVec
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prudentia",
			Name:      "http_requests_total",
			Help:      "Number of HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "prudentia",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		stressRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prudentia",
			Name:      "stress_tests_total",
			Help:      "Stress tests executed by resolved scenario and fallback flag.",
		}, []string{"scenario", "fallback"}),
		capitalImpact: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "prudentia",
			Name:      "capital_impact",
			Help:      "Absolute capital impact of stress tests in monetary units, split by direction.",
			Buckets:   prometheus.ExponentialBucketsRange(1e3, 1e9, 10),
		}, []string{"scenario", "direction"}),
	}
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *metrics) observeStress(resolved string, fallback bool, impact float64) {
	m.stressRuns.WithLabelValues(resolved, strconv.FormatBool(fallback)).Inc()
	m.capitalImpact.WithLabelValues(resolved, impactDirection(impact)).Observe(math.Abs(impact))
}

// 压力资本可能低于基线（PD 越过 K 曲线峰值），方向单独作为标签。
func impactDirection(impact float64) string {
	switch {
	case impact > 0:
		return "increase"
	case impact < 0:
		return "decrease"
	default:
		return "none"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (m *metrics) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, req)
		m.requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
