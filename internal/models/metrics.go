package models

import "time"

// SystemMetrics is a JSON snapshot of the process instrumentation.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	CardsRendered            uint64    `json:"cardsRendered"`
	AverageRenderDurationMs  float64   `json:"averageRenderDurationMs"`
	BatchesFinished          uint64    `json:"batchesFinished"`
	BatchesFailed            uint64    `json:"batchesFailed"`
	LogoCacheHits            uint64    `json:"logoCacheHits"`
	LogoCacheMisses          uint64    `json:"logoCacheMisses"`
	LogoCacheHitRatio        float64   `json:"logoCacheHitRatio"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}
