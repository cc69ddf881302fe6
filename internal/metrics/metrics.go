// metrics — счётчики ингеста и HTTP-запросов для /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sentiment"

// Исходы цикла ингеста.
const (
	ResultOK         = "ok"
	ResultEmpty      = "empty"
	ResultError      = "error"
	ResultInProgress = "in_progress"
)

// Metrics — набор метрик ингеста. Методы безопасны на nil-приёмнике.
type Metrics struct {
	cycles    *prometheus.CounterVec
	fetched   *prometheus.CounterVec
	stored    prometheus.Counter
	skipped   *prometheus.CounterVec
	duration  prometheus.Histogram
	lastCycle prometheus.Gauge
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

// New создаёт метрики и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_cycles_total",
			Help:      "Ingest cycles by result.",
		}, []string{"result"}),
		fetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_fetched_total",
			Help:      "Raw articles returned by sources.",
		}, []string{"source"}),
		stored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_stored_total",
			Help:      "Scored articles persisted.",
		}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_skipped_total",
			Help:      "Raw articles not persisted, by reason.",
		}, []string{"reason"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Duration of ingest cycles.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		lastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ingest_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful ingest cycle.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(m.cycles, m.fetched, m.stored, m.skipped, m.duration, m.lastCycle, m.requests, m.latency)

	return m
}

// ObserveCycle фиксирует завершение цикла.
func (m *Metrics) ObserveCycle(result string, started time.Time) {
	if m == nil {
		return
	}

	m.cycles.WithLabelValues(result).Inc()
	m.duration.Observe(time.Since(started).Seconds())

	if result == ResultOK || result == ResultEmpty {
		m.lastCycle.SetToCurrentTime()
	}
}

// CycleRejected фиксирует цикл, не начатый из-за занятой блокировки.
func (m *Metrics) CycleRejected() {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(ResultInProgress).Inc()
}

func (m *Metrics) Fetched(source string, n int) {
	if m == nil {
		return
	}
	m.fetched.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) Stored(n int) {
	if m == nil {
		return
	}
	m.stored.Add(float64(n))
}

// Skipped — reason: "duplicate" или "malformed".
func (m *Metrics) Skipped(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.skipped.WithLabelValues(reason).Add(float64(n))
}

// ObserveRequest фиксирует обработанный HTTP-запрос. route — шаблон
// маршрута chi ("/api/articles/{id}"), а не сырой путь.
func (m *Metrics) ObserveRequest(method, route string, code int, dur time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.latency.WithLabelValues(method, route).Observe(dur.Seconds())
}
