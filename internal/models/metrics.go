package models

import "time"

// SystemMetrics is a lightweight snapshot of runtime counters exposed on the
// admin surface next to the Prometheus scrape endpoint.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	IssuancesTotal           uint64    `json:"issuances_total"`
	MovementsTotal           uint64    `json:"movements_total"`
	LowStockAlertsTotal      uint64    `json:"low_stock_alerts_total"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
