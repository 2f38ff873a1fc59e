package models

import "errors"

// Error taxonomy for the aggregation layer. Only ErrAggregationFailed,
// ErrInvalidQuery and ErrNotFound are ever surfaced to callers; the rest are
// recorded as diagnostics and produce degraded-but-successful responses.
var (
	// ErrSourceUnavailable marks an irrecoverable failure of a single
	// inventory source. One source down degrades the aggregation, it does
	// not fail it.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrAggregationFailed means every enabled source failed.
	ErrAggregationFailed = errors.New("aggregation failed: all sources unavailable")

	// ErrNotFound is returned for detail or availability lookups on an
	// unknown listing id.
	ErrNotFound = errors.New("listing not found")

	// ErrInvalidQuery covers malformed search input: bad date range,
	// non-positive guest counts, page size over the cap.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrRateLimited means the partner provider kept throttling after the
	// retry budget was spent.
	ErrRateLimited = errors.New("partner rate limited")
)
