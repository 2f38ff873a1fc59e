package providers

import (
	"context"
	"time"

	"github.com/example/lodging-aggregator/internal/models"
)

// Provider normalizes one inventory source into the canonical listing shape.
// Implementations return models.ErrNotFound for unknown ids and wrap
// irrecoverable search failures in models.ErrSourceUnavailable.
type Provider interface {
	Name() string
	Source() models.Source
	Search(ctx context.Context, q *models.SearchQuery) ([]models.Listing, error)
	GetDetail(ctx context.Context, id string) (models.Listing, error)
	GetAvailability(ctx context.Context, id string, checkIn, checkOut time.Time, guests int) ([]models.RateQuote, error)
}
