package providers

import (
	"errors"
	"strings"

	"github.com/example/lodging-aggregator/internal/models"
)

// Documented defaults substituted when the partner omits a field. A partial
// record still produces a listing; only a record with no id at all is
// rejected.
const (
	defaultOccupancy = 2
	defaultBasePrice = 100.0
	defaultCurrency  = "USD"
)

// rawPartnerRecord mirrors the partner detail payload. The partner API is
// inconsistent about naming, so most concepts have two or three aliases, all
// optional. Pointer fields distinguish absent from zero.
type rawPartnerRecord struct {
	ID         string `json:"id"`
	PropertyID string `json:"property_id"`

	Name  string `json:"name"`
	Title string `json:"title"`

	PropertyType string `json:"property_type"`

	Address   *string  `json:"address"`
	City      *string  `json:"city"`
	State     *string  `json:"state"`
	Lat       *float64 `json:"lat"`
	Latitude  *float64 `json:"latitude"`
	Lng       *float64 `json:"lng"`
	Longitude *float64 `json:"longitude"`

	MaxGuests *int     `json:"max_guests"`
	Occupancy *int     `json:"occupancy"`
	Sleeps    *int     `json:"sleeps"`
	Bedrooms  *int     `json:"bedrooms"`
	Bathrooms *float64 `json:"bathrooms"`
	Beds      *int     `json:"beds"`

	NightlyRate   *float64 `json:"nightly_rate"`
	PricePerNight *float64 `json:"price_per_night"`
	BasePrice     *float64 `json:"base_price"`
	Currency      *string  `json:"currency"`

	Rating       *float64 `json:"rating"`
	ReviewsCount *int     `json:"reviews_count"`
	NumReviews   *int     `json:"num_reviews"`

	Amenities []string `json:"amenities"`
	Features  []string `json:"features"`

	InstantBook *bool    `json:"instant_book"`
	Images      []string `json:"images"`
	Photos      []string `json:"photos"`

	Cancellation *string `json:"cancellation"`
}

var errNoPartnerID = errors.New("partner record has no id")

// normalizePartnerRecord maps a raw partner record onto the canonical Listing
// shape. Default rules, per field:
//   - id: "id" else "property_id"; absent -> record rejected
//   - name: "name" else "title" else "Partner Property <id>"
//   - coordinates: first of lat/latitude (lng/longitude); absent -> 0
//   - occupancy: first of max_guests/occupancy/sleeps; absent -> 2
//   - bedrooms/beds: absent -> 1; bathrooms: absent -> 1.0
//   - nightly price: first of nightly_rate/price_per_night/base_price;
//     absent or non-positive -> fixed fallback constant
//   - currency: absent -> USD; rating clamped to [0,5]; review count -> 0
//   - amenities: union of "amenities" and "features", lowercased
//   - images: "images" else "photos"
//   - cancellation: unrecognized or absent -> flexible
func normalizePartnerRecord(raw rawPartnerRecord) (models.Listing, error) {
	localID := raw.ID
	if localID == "" {
		localID = raw.PropertyID
	}
	if localID == "" {
		return models.Listing{}, errNoPartnerID
	}

	name := raw.Name
	if name == "" {
		name = raw.Title
	}
	if name == "" {
		name = "Partner Property " + localID
	}

	price := firstPositiveFloat(raw.NightlyRate, raw.PricePerNight, raw.BasePrice)
	if price == 0 {
		price = defaultBasePrice
	}

	occupancy := firstPositiveInt(raw.MaxGuests, raw.Occupancy, raw.Sleeps)
	if occupancy == 0 {
		occupancy = defaultOccupancy
	}

	rating := 0.0
	if raw.Rating != nil {
		rating = min(5, max(0, *raw.Rating))
	}

	tier := models.CancellationFlexible
	if raw.Cancellation != nil {
		switch models.CancellationTier(strings.ToLower(*raw.Cancellation)) {
		case models.CancellationModerate:
			tier = models.CancellationModerate
		case models.CancellationStrict:
			tier = models.CancellationStrict
		}
	}

	images := raw.Images
	if len(images) == 0 {
		images = raw.Photos
	}

	l := models.Listing{
		ID:           models.ListingID(models.SourcePartner, localID),
		Source:       models.SourcePartner,
		Name:         name,
		PropertyType: raw.PropertyType,
		Location: models.Location{
			Address: strOrEmpty(raw.Address),
			City:    strOrEmpty(raw.City),
			State:   strOrEmpty(raw.State),
			Lat:     firstFloat(raw.Lat, raw.Latitude),
			Lng:     firstFloat(raw.Lng, raw.Longitude),
		},
		Capacity: models.Capacity{
			Accommodates: occupancy,
			Bedrooms:     intOrDefault(raw.Bedrooms, 1),
			Bathrooms:    floatOrDefault(raw.Bathrooms, 1),
			Beds:         intOrDefault(raw.Beds, 1),
		},
		BasePricePerNight:  price,
		DisplayPrice:       price,
		Currency:           strOrDefault(raw.Currency, defaultCurrency),
		Rating:             rating,
		ReviewCount:        firstPositiveInt(raw.ReviewsCount, raw.NumReviews),
		Amenities:          mergeLower(raw.Amenities, raw.Features),
		InstantBookable:    raw.InstantBook != nil && *raw.InstantBook,
		Images:             images,
		CancellationPolicy: models.PolicyForTier(tier),
	}
	return l, nil
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func strOrDefault(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}

func intOrDefault(v *int, def int) int {
	if v == nil || *v <= 0 {
		return def
	}
	return *v
}

func floatOrDefault(v *float64, def float64) float64 {
	if v == nil || *v <= 0 {
		return def
	}
	return *v
}

func firstFloat(vs ...*float64) float64 {
	for _, v := range vs {
		if v != nil {
			return *v
		}
	}
	return 0
}

func firstPositiveFloat(vs ...*float64) float64 {
	for _, v := range vs {
		if v != nil && *v > 0 {
			return *v
		}
	}
	return 0
}

func firstPositiveInt(vs ...*int) int {
	for _, v := range vs {
		if v != nil && *v > 0 {
			return *v
		}
	}
	return 0
}

func mergeLower(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, v := range list {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "" {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
