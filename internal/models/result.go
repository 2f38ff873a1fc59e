package models

import "time"

// SourceError records a source failure captured during aggregation. It is
// diagnostic metadata, not a caller-facing error.
type SourceError struct {
	Source  Source `json:"source"`
	Message string `json:"message"`
}

// AggregatedResult is the merged, sorted, pre-pagination result of one
// fan-out. It is constructed once per coalesced aggregation, cached whole,
// and sliced per page on every hit.
type AggregatedResult struct {
	Listings     []Listing     `json:"listings"`
	TotalCount   int           `json:"total_count"`
	LocalCount   int           `json:"local_count"`
	PartnerCount int           `json:"partner_count"`
	SearchID     string        `json:"search_id"`
	ComputedAt   time.Time     `json:"computed_at"`
	Errors       []SourceError `json:"errors,omitempty"`
}

// SearchResponse is one page of an aggregation, as returned to callers.
type SearchResponse struct {
	Listings     []Listing     `json:"listings"`
	TotalCount   int           `json:"total_count"`
	Page         int           `json:"page"`
	PageSize     int           `json:"page_size"`
	TotalPages   int           `json:"total_pages"`
	HasNext      bool          `json:"has_next"`
	LocalCount   int           `json:"local_count"`
	PartnerCount int           `json:"partner_count"`
	SearchID     string        `json:"search_id"`
	SearchTimeMs int64         `json:"search_time_ms"`
	CacheHit     bool          `json:"cache_hit"`
	Degraded     []SourceError `json:"degraded,omitempty"`
}
