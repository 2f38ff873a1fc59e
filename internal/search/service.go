package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/lodging-aggregator/internal/cache"
	"github.com/example/lodging-aggregator/internal/models"
	"github.com/example/lodging-aggregator/internal/pricing"
	"github.com/example/lodging-aggregator/internal/providers"
)

// Service is the caller-facing surface of the aggregation subsystem. It owns
// the detail and availability flows and delegates search to the Engine.
type Service struct {
	engine   *Engine
	cache    *cache.ResultCache
	pricer   *pricing.Adjuster
	bySource map[models.Source]providers.Provider
	logger   *slog.Logger

	now func() time.Time
}

func NewService(engine *Engine, resultCache *cache.ResultCache, pricer *pricing.Adjuster, provs []providers.Provider, logger *slog.Logger) *Service {
	bySource := make(map[models.Source]providers.Provider, len(provs))
	for _, p := range provs {
		bySource[p.Source()] = p
	}
	return &Service{
		engine:   engine,
		cache:    resultCache,
		pricer:   pricer,
		bySource: bySource,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) Search(ctx context.Context, q *models.SearchQuery) (models.SearchResponse, error) {
	return s.engine.Search(ctx, q)
}

// GetDetail resolves a canonical listing id to its owning source, serving
// from the detail cache when possible. Partner listings get the markup
// applied per response; the cached value stays canonical.
func (s *Service) GetDetail(ctx context.Context, id string) (models.Listing, error) {
	source, localID, ok := models.SplitListingID(id)
	if !ok {
		return models.Listing{}, models.ErrNotFound
	}
	provider, ok := s.bySource[source]
	if !ok {
		return models.Listing{}, models.ErrNotFound
	}

	var listing models.Listing
	if !s.cache.Get(ctx, cache.ClassDetail, id, &listing) {
		var err error
		listing, err = provider.GetDetail(ctx, localID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return models.Listing{}, models.ErrNotFound
			}
			return models.Listing{}, fmt.Errorf("detail lookup: %w", err)
		}
		s.cache.Put(cache.ClassDetail, id, listing)
	}

	if listing.Source == models.SourcePartner {
		signals := pricing.Signals{Demand: pricing.DemandMedium}
		listing.DisplayPrice = s.pricer.AdjustedPrice(listing.BasePricePerNight, listing.Currency, signals, listing.Rating)
	} else {
		listing.DisplayPrice = listing.BasePricePerNight
	}
	return listing, nil
}

// GetAvailability returns per-night rate quotes for a listing. Quote caching
// keys on id plus date range plus guests since all three change the answer.
func (s *Service) GetAvailability(ctx context.Context, id string, checkIn, checkOut time.Time, guests int) ([]models.RateQuote, error) {
	if !checkOut.After(checkIn) {
		return nil, fmt.Errorf("%w: checkout must be after checkin", models.ErrInvalidQuery)
	}
	if guests < 1 {
		return nil, fmt.Errorf("%w: guests must be at least 1", models.ErrInvalidQuery)
	}

	source, localID, ok := models.SplitListingID(id)
	if !ok {
		return nil, models.ErrNotFound
	}
	provider, ok := s.bySource[source]
	if !ok {
		return nil, models.ErrNotFound
	}

	key := fmt.Sprintf("%s|%s|%s|%d", id, checkIn.Format("2006-01-02"), checkOut.Format("2006-01-02"), guests)

	var quotes []models.RateQuote
	if !s.cache.Get(ctx, cache.ClassAvailability, key, &quotes) {
		var err error
		quotes, err = provider.GetAvailability(ctx, localID, checkIn, checkOut, guests)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, models.ErrNotFound
			}
			return nil, fmt.Errorf("availability lookup: %w", err)
		}
		s.cache.Put(cache.ClassAvailability, key, quotes)
	}

	if source == models.SourcePartner {
		signals := pricing.Signals{Demand: pricing.DemandMedium}
		adjusted := make([]models.RateQuote, len(quotes))
		for i, qt := range quotes {
			qt.PricePerNight = s.pricer.AdjustedPrice(qt.PricePerNight, qt.Currency, signals, 0)
			adjusted[i] = qt
		}
		return adjusted, nil
	}
	return quotes, nil
}
