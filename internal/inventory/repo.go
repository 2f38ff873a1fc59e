package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/example/lodging-aggregator/internal/models"
)

// ErrNotFound is returned for lookups of ids this store does not hold.
var ErrNotFound = errors.New("inventory: property not found")

// Filters is the pushed-down search criteria for the first-party store.
// Zero values mean "no constraint". CheckIn/CheckOut, when set, exclude
// properties with a confirmed booking overlapping the range.
type Filters struct {
	City          string
	Guests        int
	MinPrice      float64
	MaxPrice      float64
	MinBedrooms   int
	MinBathrooms  float64
	Amenities     []string // all must be present
	PropertyTypes []string // any may match
	CheckIn       *time.Time
	CheckOut      *time.Time
	Limit         int
}

// Booking is a confirmed reservation held against a property. Only the date
// range matters to search: a property is excluded when [CheckIn, CheckOut)
// overlaps a confirmed booking.
type Booking struct {
	PropertyID string
	CheckIn    time.Time
	CheckOut   time.Time
	Confirmed  bool
}

// Repository is the port to first-party inventory. Listings come back with
// source-local ids; the adapter layer owns the canonical prefixing.
//
// Search result ordering is by nightly price ascending, but callers must not
// rely on it: the aggregation engine re-sorts after merging.
type Repository interface {
	Search(ctx context.Context, f Filters) ([]models.Listing, error)
	GetByID(ctx context.Context, id string) (models.Listing, error)
	Availability(ctx context.Context, id string, checkIn, checkOut time.Time, guests int) ([]models.RateQuote, error)
}
