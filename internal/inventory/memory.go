package inventory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/lodging-aggregator/internal/models"
)

// MemoryRepo is an in-memory Repository. It backs dev mode and tests and is
// safe for concurrent use.
type MemoryRepo struct {
	mu       sync.RWMutex
	byID     map[string]models.Listing
	order    []string // insertion order, keeps Search deterministic
	bookings map[string][]Booking
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:     make(map[string]models.Listing),
		bookings: make(map[string][]Booking),
	}
}

// Add inserts or replaces a property. The listing id is the source-local id.
func (r *MemoryRepo) Add(l models.Listing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[l.ID]; !exists {
		r.order = append(r.order, l.ID)
	}
	r.byID[l.ID] = l
}

// AddBooking records a reservation against a property.
func (r *MemoryRepo) AddBooking(b Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings[b.PropertyID] = append(r.bookings[b.PropertyID], b)
}

func (r *MemoryRepo) Search(ctx context.Context, f Filters) ([]models.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Listing
	for _, id := range r.order {
		l := r.byID[id]
		if !r.matches(l, f) {
			continue
		}
		out = append(out, l)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].BasePricePerNight < out[j].BasePricePerNight
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *MemoryRepo) matches(l models.Listing, f Filters) bool {
	if f.City != "" && !strings.EqualFold(l.Location.City, f.City) {
		return false
	}
	if f.Guests > 0 && l.Capacity.Accommodates < f.Guests {
		return false
	}
	if f.MinPrice > 0 && l.BasePricePerNight < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && l.BasePricePerNight > f.MaxPrice {
		return false
	}
	if f.MinBedrooms > 0 && l.Capacity.Bedrooms < f.MinBedrooms {
		return false
	}
	if f.MinBathrooms > 0 && l.Capacity.Bathrooms < f.MinBathrooms {
		return false
	}
	if len(f.PropertyTypes) > 0 && !containsFold(f.PropertyTypes, l.PropertyType) {
		return false
	}
	for _, want := range f.Amenities {
		if !containsFold(l.Amenities, want) {
			return false
		}
	}
	if f.CheckIn != nil && f.CheckOut != nil && r.hasOverlap(l.ID, *f.CheckIn, *f.CheckOut) {
		return false
	}
	return true
}

func (r *MemoryRepo) hasOverlap(propertyID string, checkIn, checkOut time.Time) bool {
	for _, b := range r.bookings[propertyID] {
		if !b.Confirmed {
			continue
		}
		// half-open ranges overlap iff each starts before the other ends
		if checkIn.Before(b.CheckOut) && b.CheckIn.Before(checkOut) {
			return true
		}
	}
	return false
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (models.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.byID[id]
	if !ok {
		return models.Listing{}, ErrNotFound
	}
	return l, nil
}

func (r *MemoryRepo) Availability(ctx context.Context, id string, checkIn, checkOut time.Time, guests int) ([]models.RateQuote, error) {
	r.mu.RLock()
	l, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	var quotes []models.RateQuote
	for d := checkIn; d.Before(checkOut); d = d.AddDate(0, 0, 1) {
		available := l.Capacity.Accommodates >= guests && !r.hasNightBooked(id, d)
		quotes = append(quotes, models.RateQuote{
			ListingID:     l.ID,
			Date:          d.Format("2006-01-02"),
			PricePerNight: l.BasePricePerNight,
			Currency:      l.Currency,
			Available:     available,
		})
	}
	return quotes, nil
}

func (r *MemoryRepo) hasNightBooked(propertyID string, night time.Time) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.bookings[propertyID] {
		if !b.Confirmed {
			continue
		}
		if !night.Before(b.CheckIn) && night.Before(b.CheckOut) {
			return true
		}
	}
	return false
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}
