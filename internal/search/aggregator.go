package search

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/lodging-aggregator/internal/cache"
	"github.com/example/lodging-aggregator/internal/models"
	"github.com/example/lodging-aggregator/internal/obs"
	"github.com/example/lodging-aggregator/internal/pricing"
	"github.com/example/lodging-aggregator/internal/providers"
)

// Engine fans a search out to every enabled inventory source, merges and
// sorts the results, and serves pages as views over the cached merged set.
type Engine struct {
	providers      []providers.Provider
	cache          *cache.ResultCache
	coalescer      *Coalescer
	pricer         *pricing.Adjuster
	metrics        *obs.Metrics
	logger         *slog.Logger
	adapterTimeout time.Duration
	maxPageSize    int

	now func() time.Time
}

func NewEngine(
	provs []providers.Provider,
	resultCache *cache.ResultCache,
	coalescer *Coalescer,
	pricer *pricing.Adjuster,
	m *obs.Metrics,
	logger *slog.Logger,
	adapterTimeout time.Duration,
	maxPageSize int,
) *Engine {
	return &Engine{
		providers:      provs,
		cache:          resultCache,
		coalescer:      coalescer,
		pricer:         pricer,
		metrics:        m,
		logger:         logger,
		adapterTimeout: adapterTimeout,
		maxPageSize:    maxPageSize,
		now:            time.Now,
	}
}

// Search runs the full pipeline: normalize, cache lookup, coalesced fan-out
// on miss, then pagination and response-time pricing over the merged set.
func (e *Engine) Search(ctx context.Context, q *models.SearchQuery) (models.SearchResponse, error) {
	start := e.now()

	q.Normalize()
	if err := q.Validate(e.maxPageSize); err != nil {
		return models.SearchResponse{}, err
	}
	sig := q.Signature()

	var (
		res      models.AggregatedResult
		cacheHit bool
	)
	if e.cache.Get(ctx, cache.ClassSearch, sig, &res) {
		cacheHit = true
	} else {
		var err error
		res, err = e.coalescer.Do(ctx, sig, func(ctx context.Context) (models.AggregatedResult, error) {
			return e.fanOutAndMerge(ctx, q, sig)
		})
		if err != nil {
			return models.SearchResponse{}, err
		}
	}

	return e.page(q, res, cacheHit, e.now().Sub(start)), nil
}

// fanOutAndMerge queries the enabled sources concurrently, waits for both to
// settle, merges whatever succeeded, sorts, and caches the pre-pagination
// set. It fails only when every enabled source failed; then nothing is
// cached.
func (e *Engine) fanOutAndMerge(ctx context.Context, q *models.SearchQuery, sig string) (models.AggregatedResult, error) {
	enabled := e.enabledProviders(q)

	type sourceResult struct {
		source   models.Source
		listings []models.Listing
		err      error
	}

	results := make([]sourceResult, len(enabled))
	var wg sync.WaitGroup
	for i, p := range enabled {
		wg.Add(1)
		go func(i int, pr providers.Provider) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					e.logger.Error("provider panic recovered", "provider", pr.Name(), "panic", r)
					e.metrics.IncSourceFailure(string(pr.Source()))
					results[i] = sourceResult{source: pr.Source(), err: models.ErrSourceUnavailable}
				}
			}()

			callCtx, cancel := context.WithTimeout(ctx, e.adapterTimeout)
			defer cancel()

			start := time.Now()
			listings, err := pr.Search(callCtx, q)
			e.metrics.ObserveSourceLatency(string(pr.Source()), time.Since(start).Seconds())

			if err != nil {
				e.logger.Warn("source search failed, degrading",
					"provider", pr.Name(), "source", string(pr.Source()), "error", err)
				e.metrics.IncSourceFailure(string(pr.Source()))
				results[i] = sourceResult{source: pr.Source(), err: err}
				return
			}
			results[i] = sourceResult{source: pr.Source(), listings: listings}
		}(i, p)
	}
	wg.Wait()

	res := models.AggregatedResult{
		SearchID:   uuid.New().String(),
		ComputedAt: e.now(),
	}
	failed := 0
	for _, sr := range results {
		if sr.err != nil {
			failed++
			res.Errors = append(res.Errors, models.SourceError{Source: sr.source, Message: sr.err.Error()})
			continue
		}
		switch sr.source {
		case models.SourceLocal:
			res.LocalCount = len(sr.listings)
		case models.SourcePartner:
			res.PartnerCount = len(sr.listings)
		}
		res.Listings = append(res.Listings, sr.listings...)
	}

	if len(enabled) > 0 && failed == len(enabled) {
		return models.AggregatedResult{}, models.ErrAggregationFailed
	}

	res.TotalCount = len(res.Listings)
	e.sortMerged(res.Listings, q, res)

	e.cache.Put(cache.ClassSearch, sig, res)
	return res, nil
}

func (e *Engine) enabledProviders(q *models.SearchQuery) []providers.Provider {
	var out []providers.Provider
	for _, p := range e.providers {
		switch p.Source() {
		case models.SourceLocal:
			if q.IncludeLocal {
				out = append(out, p)
			}
		case models.SourcePartner:
			if q.IncludePartner {
				out = append(out, p)
			}
		}
	}
	return out
}

// sortMerged applies the requested global sort. Ties break on listing id
// ascending so pagination stays stable across identical calls; an absent or
// unsupported sort key leaves the merge order untouched.
func (e *Engine) sortMerged(listings []models.Listing, q *models.SearchQuery, res models.AggregatedResult) {
	var less func(a, b models.Listing) bool
	switch q.SortBy {
	case models.SortByPrice:
		less = func(a, b models.Listing) bool {
			return e.effectivePrice(a, q, res) < e.effectivePrice(b, q, res)
		}
	case models.SortByRating:
		less = func(a, b models.Listing) bool { return a.Rating < b.Rating }
	case models.SortByPopularity:
		less = func(a, b models.Listing) bool { return a.ReviewCount < b.ReviewCount }
	default:
		return
	}

	desc := q.SortDir == models.SortDesc
	sort.SliceStable(listings, func(i, j int) bool {
		a, b := listings[i], listings[j]
		if less(a, b) {
			return !desc
		}
		if less(b, a) {
			return desc
		}
		return a.ID < b.ID
	})
}

// effectivePrice is the price a caller will actually see: partner listings
// carry the markup, local ones do not. Signals derive from the aggregation
// snapshot so the ordering is reproducible on every page served from it.
func (e *Engine) effectivePrice(l models.Listing, q *models.SearchQuery, res models.AggregatedResult) float64 {
	if l.Source != models.SourcePartner {
		return l.BasePricePerNight
	}
	s := pricing.DeriveSignals(q, res.TotalCount, res.ComputedAt)
	return e.pricer.AdjustedPrice(l.BasePricePerNight, l.Currency, s, l.Rating)
}

// page slices one page out of the merged set and applies the pricing
// adjustment to the partner listings in that page only. The cached set keeps
// canonical base prices; markup is presentation-time.
func (e *Engine) page(q *models.SearchQuery, res models.AggregatedResult, cacheHit bool, took time.Duration) models.SearchResponse {
	startIdx := (q.Page - 1) * q.PageSize
	endIdx := startIdx + q.PageSize
	if startIdx > len(res.Listings) {
		startIdx = len(res.Listings)
	}
	if endIdx > len(res.Listings) {
		endIdx = len(res.Listings)
	}

	signals := pricing.DeriveSignals(q, res.TotalCount, res.ComputedAt)
	pageListings := make([]models.Listing, 0, endIdx-startIdx)
	for _, l := range res.Listings[startIdx:endIdx] {
		if l.Source == models.SourcePartner {
			l.DisplayPrice = e.pricer.AdjustedPrice(l.BasePricePerNight, l.Currency, signals, l.Rating)
		} else {
			l.DisplayPrice = l.BasePricePerNight
		}
		pageListings = append(pageListings, l)
	}

	totalPages := (res.TotalCount + q.PageSize - 1) / q.PageSize
	return models.SearchResponse{
		Listings:     pageListings,
		TotalCount:   res.TotalCount,
		Page:         q.Page,
		PageSize:     q.PageSize,
		TotalPages:   totalPages,
		HasNext:      endIdx < res.TotalCount,
		LocalCount:   res.LocalCount,
		PartnerCount: res.PartnerCount,
		SearchID:     res.SearchID,
		SearchTimeMs: took.Milliseconds(),
		CacheHit:     cacheHit,
		Degraded:     res.Errors,
	}
}
