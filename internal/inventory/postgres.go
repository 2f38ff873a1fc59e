package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/lodging-aggregator/internal/models"
)

// PostgresRepo is the production Repository over the first-party inventory
// schema. Filters are pushed down into SQL, including the booking
// date-overlap exclusion.
type PostgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRepo(pool *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{pool: pool}
}

const listingColumns = `
	p.id, p.name, p.property_type,
	p.address, p.city, p.state, p.lat, p.lng,
	p.accommodates, p.bedrooms, p.bathrooms, p.beds,
	p.base_price_per_night, p.currency,
	p.rating, p.review_count,
	p.amenities, p.instant_bookable, p.images,
	p.cancellation_tier`

func (r *PostgresRepo) Search(ctx context.Context, f Filters) ([]models.Listing, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conds = append(conds, "p.active")
	if f.City != "" {
		conds = append(conds, "lower(p.city) = lower("+arg(f.City)+")")
	}
	if f.Guests > 0 {
		conds = append(conds, "p.accommodates >= "+arg(f.Guests))
	}
	if f.MinPrice > 0 {
		conds = append(conds, "p.base_price_per_night >= "+arg(f.MinPrice))
	}
	if f.MaxPrice > 0 {
		conds = append(conds, "p.base_price_per_night <= "+arg(f.MaxPrice))
	}
	if f.MinBedrooms > 0 {
		conds = append(conds, "p.bedrooms >= "+arg(f.MinBedrooms))
	}
	if f.MinBathrooms > 0 {
		conds = append(conds, "p.bathrooms >= "+arg(f.MinBathrooms))
	}
	if len(f.Amenities) > 0 {
		conds = append(conds, "p.amenities @> "+arg(f.Amenities))
	}
	if len(f.PropertyTypes) > 0 {
		conds = append(conds, "p.property_type = any("+arg(f.PropertyTypes)+")")
	}
	if f.CheckIn != nil && f.CheckOut != nil {
		conds = append(conds, `not exists (
			select 1 from bookings b
			where b.property_id = p.id
			  and b.status = 'confirmed'
			  and b.check_in < `+arg(*f.CheckOut)+`
			  and `+arg(*f.CheckIn)+` < b.check_out
		)`)
	}

	query := "select " + listingColumns + " from properties p where " + strings.Join(conds, " and ") +
		" order by p.base_price_per_night asc"
	if f.Limit > 0 {
		query += " limit " + arg(f.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("inventory search: %w", err)
	}
	defer rows.Close()

	var out []models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("inventory search scan: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (models.Listing, error) {
	row := r.pool.QueryRow(ctx,
		"select "+listingColumns+" from properties p where p.id = $1 and p.active", id)
	l, err := scanListing(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Listing{}, ErrNotFound
	}
	if err != nil {
		return models.Listing{}, fmt.Errorf("inventory get: %w", err)
	}
	return l, nil
}

func (r *PostgresRepo) Availability(ctx context.Context, id string, checkIn, checkOut time.Time, guests int) ([]models.RateQuote, error) {
	l, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Capacity.Accommodates < guests {
		quotes := nightlyQuotes(l, checkIn, checkOut, func(time.Time) bool { return false })
		return quotes, nil
	}

	rows, err := r.pool.Query(ctx, `
		select b.check_in, b.check_out from bookings b
		where b.property_id = $1 and b.status = 'confirmed'
		  and b.check_in < $3 and $2 < b.check_out`,
		id, checkIn, checkOut)
	if err != nil {
		return nil, fmt.Errorf("inventory availability: %w", err)
	}
	defer rows.Close()

	var booked []Booking
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.CheckIn, &b.CheckOut); err != nil {
			return nil, fmt.Errorf("inventory availability scan: %w", err)
		}
		booked = append(booked, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return nightlyQuotes(l, checkIn, checkOut, func(night time.Time) bool {
		for _, b := range booked {
			if !night.Before(b.CheckIn) && night.Before(b.CheckOut) {
				return false
			}
		}
		return true
	}), nil
}

func nightlyQuotes(l models.Listing, checkIn, checkOut time.Time, free func(time.Time) bool) []models.RateQuote {
	var quotes []models.RateQuote
	for d := checkIn; d.Before(checkOut); d = d.AddDate(0, 0, 1) {
		quotes = append(quotes, models.RateQuote{
			ListingID:     l.ID,
			Date:          d.Format("2006-01-02"),
			PricePerNight: l.BasePricePerNight,
			Currency:      l.Currency,
			Available:     free(d),
		})
	}
	return quotes
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (models.Listing, error) {
	var (
		l    models.Listing
		tier string
	)
	err := row.Scan(
		&l.ID, &l.Name, &l.PropertyType,
		&l.Location.Address, &l.Location.City, &l.Location.State, &l.Location.Lat, &l.Location.Lng,
		&l.Capacity.Accommodates, &l.Capacity.Bedrooms, &l.Capacity.Bathrooms, &l.Capacity.Beds,
		&l.BasePricePerNight, &l.Currency,
		&l.Rating, &l.ReviewCount,
		&l.Amenities, &l.InstantBookable, &l.Images,
		&tier,
	)
	if err != nil {
		return models.Listing{}, err
	}
	l.CancellationPolicy = models.PolicyForTier(models.CancellationTier(tier))
	return l, nil
}
