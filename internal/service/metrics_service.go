package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/student-card-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cardsRendered   *prometheus.CounterVec
	renderDuration  prometheus.Histogram
	batchDuration   *prometheus.HistogramVec
	batchCards      prometheus.Histogram
	logoHitRatio    prometheus.Gauge
	logoHits        prometheus.Counter
	logoMisses      prometheus.Counter

	requestCount         uint64
	requestDurationTotal uint64
	cardCount            uint64
	renderCount          uint64
	renderDurationTotal  uint64
	batchesFinished      uint64
	batchesFailed        uint64
	logoHitCount         uint64
	logoMissCount        uint64
}

// NewMetricsService registers core Prometheus collectors. studentCount, when
// set, is exported as a gauge of the session size.
func NewMetricsService(studentCount func() int) *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cardsRendered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cards_rendered_total",
		Help: "Cards rasterized, by student status",
	}, []string{"status"})

	renderDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "card_render_duration_seconds",
		Help:    "Time to rasterize and encode one card",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})

	batchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "card_batch_duration_seconds",
		Help:    "Duration of asynchronous card batches",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	}, []string{"outcome"})

	batchCards := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "card_batch_size",
		Help:    "Number of cards per batch",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	logoHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "logo_cache_hit_ratio",
		Help: "Ratio of logo cache hits to total lookups",
	})

	logoHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "logo_cache_hits_total",
		Help: "Total logo cache hits",
	})

	logoMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "logo_cache_misses_total",
		Help: "Total logo cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cardsRendered, renderDuration, batchDuration, batchCards, logoHitRatio, logoHits, logoMisses, goroutines)

	if studentCount != nil {
		registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "session_students",
			Help: "Students held in the current session",
		}, func() float64 {
			return float64(studentCount())
		}))
	}

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cardsRendered:   cardsRendered,
		renderDuration:  renderDuration,
		batchDuration:   batchDuration,
		batchCards:      batchCards,
		logoHitRatio:    logoHitRatio,
		logoHits:        logoHits,
		logoMisses:      logoMisses,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveCardRendered counts one rasterized card.
func (m *MetricsService) ObserveCardRendered(status models.StudentStatus, duration time.Duration) {
	if m == nil {
		return
	}
	m.cardsRendered.WithLabelValues(string(status)).Inc()
	m.renderDuration.Observe(duration.Seconds())
	atomic.AddUint64(&m.cardCount, 1)
	atomic.AddUint64(&m.renderCount, 1)
	atomic.AddUint64(&m.renderDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveBatch records the outcome of an asynchronous batch.
func (m *MetricsService) ObserveBatch(outcome string, cards int, duration time.Duration) {
	if m == nil {
		return
	}
	m.batchDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	m.batchCards.Observe(float64(cards))
	if outcome == "finished" {
		atomic.AddUint64(&m.batchesFinished, 1)
		m.cardsRendered.WithLabelValues("batch").Add(float64(cards))
		atomic.AddUint64(&m.cardCount, uint64(cards))
	} else {
		atomic.AddUint64(&m.batchesFailed, 1)
	}
}

// RecordLogoLookup records a logo cache hit or miss and updates the ratio.
func (m *MetricsService) RecordLogoLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.logoHits.Inc()
		atomic.AddUint64(&m.logoHitCount, 1)
	} else {
		m.logoMisses.Inc()
		atomic.AddUint64(&m.logoMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.logoHitCount)
	misses := atomic.LoadUint64(&m.logoMissCount)
	if total := hits + misses; total > 0 {
		m.logoHitRatio.Set(float64(hits) / float64(total))
	}
}

// Snapshot returns aggregated metrics suitable for the JSON endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	renders := atomic.LoadUint64(&m.renderCount)
	renderDuration := atomic.LoadUint64(&m.renderDurationTotal)
	hits := atomic.LoadUint64(&m.logoHitCount)
	misses := atomic.LoadUint64(&m.logoMissCount)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}
	var avgRenderMs float64
	if renders > 0 {
		avgRenderMs = float64(renderDuration) / float64(renders) / float64(time.Millisecond)
	}
	var ratio float64
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}

	return models.SystemMetrics{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		CardsRendered:            atomic.LoadUint64(&m.cardCount),
		AverageRenderDurationMs:  avgRenderMs,
		BatchesFinished:          atomic.LoadUint64(&m.batchesFinished),
		BatchesFailed:            atomic.LoadUint64(&m.batchesFailed),
		LogoCacheHits:            hits,
		LogoCacheMisses:          misses,
		LogoCacheHitRatio:        ratio,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
