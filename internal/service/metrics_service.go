package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/site-requisition-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface, the cache and the requisition/stock domain.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	transitions     *prometheus.CounterVec
	movements       *prometheus.CounterVec
	issuedQty       prometheus.Counter
	lowStockAlerts  prometheus.Counter

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	issuanceCount        uint64
	movementCount        uint64
	alertCount           uint64
}

// NewMetricsService registers the Prometheus collectors.
func NewMetricsService() *MetricsService {
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "requisition_transitions_total",
		Help: "Requisition status transitions by resulting status",
	}, []string{"status"})

	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_movements_total",
		Help: "Stock ledger movements by type and source",
	}, []string{"type", "source"})

	issuedQty := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "issuance_batches_total",
		Help: "Total committed issuance batches",
	})

	lowStockAlerts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "low_stock_alerts_total",
		Help: "Total low stock alerts raised",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheHitRatio,
		cacheHits, cacheMisses, transitions, movements, issuedQty, lowStockAlerts, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		transitions:     transitions,
		movements:       movements,
		issuedQty:       issuedQty,
		lowStockAlerts:  lowStockAlerts,
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

// ObserveHTTPRequest records request metrics.
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

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// RecordTransition counts a requisition entering the given status.
func (m *MetricsService) RecordTransition(status models.RequestStatus) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(status)).Inc()
}

// RecordMovement counts one stock ledger entry.
func (m *MetricsService) RecordMovement(movementType models.MovementType, source models.SourceType) {
	if m == nil {
		return
	}
	m.movements.WithLabelValues(string(movementType), string(source)).Inc()
	atomic.AddUint64(&m.movementCount, 1)
}

// RecordIssuance counts a committed issuance batch.
func (m *MetricsService) RecordIssuance() {
	if m == nil {
		return
	}
	m.issuedQty.Inc()
	atomic.AddUint64(&m.issuanceCount, 1)
}

// RecordLowStockAlerts counts newly raised low stock alerts.
func (m *MetricsService) RecordLowStockAlerts(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.lowStockAlerts.Add(float64(n))
	atomic.AddUint64(&m.alertCount, uint64(n))
}

// Snapshot returns aggregated counters for the admin metrics endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if lookups := hits + misses; lookups > 0 {
		cacheRatio = float64(hits) / float64(lookups)
	}
	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		IssuancesTotal:           atomic.LoadUint64(&m.issuanceCount),
		MovementsTotal:           atomic.LoadUint64(&m.movementCount),
		LowStockAlertsTotal:      atomic.LoadUint64(&m.alertCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
