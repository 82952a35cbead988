package models

import "time"

// SystemMetrics is a JSON friendly summary of the process counters.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cacheHitRatio"`
	CacheHits                uint64    `json:"cacheHits"`
	CacheMisses              uint64    `json:"cacheMisses"`
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	DBQueryCount             uint64    `json:"dbQueryCount"`
	AverageDBQueryDurationMs float64   `json:"averageDbQueryDurationMs"`
	DocumentsCreated         uint64    `json:"documentsCreated"`
	Downloads                uint64    `json:"downloads"`
	ModerationActions        uint64    `json:"moderationActions"`
	FavoriteToggles          uint64    `json:"favoriteToggles"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}
