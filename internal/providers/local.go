package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/lodging-aggregator/internal/inventory"
	"github.com/example/lodging-aggregator/internal/models"
)

// LocalProvider adapts the first-party inventory store. Filters are pushed
// down into the repository; sorting there is advisory only since the engine
// re-sorts after merge.
type LocalProvider struct {
	repo     inventory.Repository
	maxItems int
}

func NewLocalProvider(repo inventory.Repository, maxItems int) *LocalProvider {
	return &LocalProvider{repo: repo, maxItems: maxItems}
}

func (p *LocalProvider) Name() string          { return "local-inventory" }
func (p *LocalProvider) Source() models.Source { return models.SourceLocal }

func (p *LocalProvider) Search(ctx context.Context, q *models.SearchQuery) ([]models.Listing, error) {
	f := inventory.Filters{
		City:          q.Destination,
		Guests:        q.Guests(),
		MinPrice:      q.MinPrice,
		MaxPrice:      q.MaxPrice,
		MinBedrooms:   q.MinBedrooms,
		MinBathrooms:  q.MinBathrooms,
		Amenities:     q.Amenities,
		PropertyTypes: q.PropertyTypes,
		CheckIn:       q.CheckIn,
		CheckOut:      q.CheckOut,
		Limit:         p.maxItems,
	}
	listings, err := p.repo.Search(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%w: local inventory: %v", models.ErrSourceUnavailable, err)
	}
	out := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		out = append(out, p.canonical(l))
	}
	return out, nil
}

func (p *LocalProvider) GetDetail(ctx context.Context, id string) (models.Listing, error) {
	l, err := p.repo.GetByID(ctx, id)
	if errors.Is(err, inventory.ErrNotFound) {
		return models.Listing{}, models.ErrNotFound
	}
	if err != nil {
		return models.Listing{}, fmt.Errorf("%w: local inventory: %v", models.ErrSourceUnavailable, err)
	}
	return p.canonical(l), nil
}

func (p *LocalProvider) GetAvailability(ctx context.Context, id string, checkIn, checkOut time.Time, guests int) ([]models.RateQuote, error) {
	quotes, err := p.repo.Availability(ctx, id, checkIn, checkOut, guests)
	if errors.Is(err, inventory.ErrNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: local inventory: %v", models.ErrSourceUnavailable, err)
	}
	for i := range quotes {
		quotes[i].ListingID = models.ListingID(models.SourceLocal, quotes[i].ListingID)
	}
	return quotes, nil
}

// canonical tags a repository listing with the source and the globally unique
// id. The repository never sees canonical ids.
func (p *LocalProvider) canonical(l models.Listing) models.Listing {
	l.Source = models.SourceLocal
	l.ID = models.ListingID(models.SourceLocal, l.ID)
	l.DisplayPrice = l.BasePricePerNight
	return l
}
