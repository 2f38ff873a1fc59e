package models

import "strings"

// Source identifies which inventory system a listing came from.
type Source string

const (
	SourceLocal   Source = "local"
	SourcePartner Source = "partner"
)

// Location is the geographic placement of a listing.
type Location struct {
	Address string  `json:"address"`
	City    string  `json:"city"`
	State   string  `json:"state"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// Capacity describes how many guests a listing can host.
type Capacity struct {
	Accommodates int     `json:"accommodates"`
	Bedrooms     int     `json:"bedrooms"`
	Bathrooms    float64 `json:"bathrooms"`
	Beds         int     `json:"beds"`
}

type CancellationTier string

const (
	CancellationFlexible CancellationTier = "flexible"
	CancellationModerate CancellationTier = "moderate"
	CancellationStrict   CancellationTier = "strict"
)

// CancellationPolicy carries the refund thresholds for a listing. Hours are
// counted backwards from check-in.
type CancellationPolicy struct {
	Tier                 CancellationTier `json:"tier"`
	FullRefundHours      int              `json:"full_refund_hours"`
	PartialRefundHours   int              `json:"partial_refund_hours"`
	PartialRefundPercent float64          `json:"partial_refund_percent"`
}

// PolicyForTier returns the standard refund rules for a cancellation tier.
func PolicyForTier(t CancellationTier) CancellationPolicy {
	switch t {
	case CancellationStrict:
		return CancellationPolicy{Tier: t, FullRefundHours: 14 * 24, PartialRefundHours: 7 * 24, PartialRefundPercent: 50}
	case CancellationModerate:
		return CancellationPolicy{Tier: t, FullRefundHours: 5 * 24, PartialRefundHours: 24, PartialRefundPercent: 50}
	default:
		return CancellationPolicy{Tier: CancellationFlexible, FullRefundHours: 24, PartialRefundHours: 0, PartialRefundPercent: 100}
	}
}

// Listing is the canonical lodging unit used everywhere above the adapters.
// A Listing is never mutated after construction; updates produce a new value.
type Listing struct {
	ID                 string             `json:"id"`
	Source             Source             `json:"source"`
	Name               string             `json:"name"`
	PropertyType       string             `json:"property_type,omitempty"`
	Location           Location           `json:"location"`
	Capacity           Capacity           `json:"capacity"`
	BasePricePerNight  float64            `json:"base_price_per_night"`
	DisplayPrice       float64            `json:"display_price"`
	Currency           string             `json:"currency"`
	Rating             float64            `json:"rating"`
	ReviewCount        int                `json:"review_count"`
	Amenities          []string           `json:"amenities"`
	InstantBookable    bool               `json:"instant_bookable"`
	Images             []string           `json:"images"`
	CancellationPolicy CancellationPolicy `json:"cancellation_policy"`
}

// ListingID builds the globally unique id from a source tag and the source's
// own id, e.g. "local_42". The id alone determines the source.
func ListingID(source Source, localID string) string {
	return string(source) + "_" + localID
}

// SplitListingID resolves a canonical id back into its source and the
// source-local id. Unknown prefixes report ok=false.
func SplitListingID(id string) (source Source, localID string, ok bool) {
	tag, rest, found := strings.Cut(id, "_")
	if !found || rest == "" {
		return "", "", false
	}
	switch Source(tag) {
	case SourceLocal:
		return SourceLocal, rest, true
	case SourcePartner:
		return SourcePartner, rest, true
	}
	return "", "", false
}

// RateQuote is a per-night availability quote for a listing.
type RateQuote struct {
	ListingID     string  `json:"listing_id"`
	Date          string  `json:"date"` // YYYY-MM-DD
	PricePerNight float64 `json:"price_per_night"`
	Currency      string  `json:"currency"`
	Available     bool    `json:"available"`
}
