package models

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/example/lodging-aggregator/internal/validator"
)

type SortKey string

const (
	SortByPrice      SortKey = "price"
	SortByRating     SortKey = "rating"
	SortByPopularity SortKey = "popularity"
	// SortNone leaves the merged order untouched: local results first, then
	// partner, each in source order.
	SortNone SortKey = ""
)

type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// SearchQuery is a normalized lodging search. Build one with ParseSearchQuery
// or fill it directly in tests and call Normalize before use.
type SearchQuery struct {
	Destination string

	CheckIn  *time.Time
	CheckOut *time.Time

	Adults   int
	Children int

	MinPrice      float64 // 0 = unset
	MaxPrice      float64 // 0 = unset
	MinBedrooms   int
	MinBathrooms  float64
	Amenities     []string
	PropertyTypes []string

	IncludeLocal   bool
	IncludePartner bool

	SortBy  SortKey
	SortDir SortDir

	Page     int
	PageSize int
}

// ParseSearchQuery builds a SearchQuery from HTTP query parameters. Missing
// numeric fields fall back to defaults; malformed ones error out so the
// caller can answer 400 instead of silently searching for something else.
func ParseSearchQuery(q url.Values, defaultPageSize int) (*SearchQuery, error) {
	sq := &SearchQuery{
		Destination:    q.Get("destination"),
		Adults:         1,
		IncludeLocal:   true,
		IncludePartner: true,
		SortDir:        SortAsc,
		Page:           1,
		PageSize:       defaultPageSize,
	}

	var err error
	if sq.CheckIn, err = optionalDate(q.Get("checkin")); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	if sq.CheckOut, err = optionalDate(q.Get("checkout")); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	intFields := []struct {
		name string
		dst  *int
	}{
		{"adults", &sq.Adults},
		{"children", &sq.Children},
		{"min_bedrooms", &sq.MinBedrooms},
		{"page", &sq.Page},
		{"page_size", &sq.PageSize},
	}
	for _, f := range intFields {
		if v := q.Get(f.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid %s", ErrInvalidQuery, f.name)
			}
			*f.dst = n
		}
	}

	floatFields := []struct {
		name string
		dst  *float64
	}{
		{"min_price", &sq.MinPrice},
		{"max_price", &sq.MaxPrice},
		{"min_bathrooms", &sq.MinBathrooms},
	}
	for _, f := range floatFields {
		if v := q.Get(f.name); v != "" {
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid %s", ErrInvalidQuery, f.name)
			}
			*f.dst = n
		}
	}

	if v := q.Get("amenities"); v != "" {
		sq.Amenities = splitCSV(v)
	}
	if v := q.Get("property_types"); v != "" {
		sq.PropertyTypes = splitCSV(v)
	}
	if v := q.Get("include_local"); v != "" {
		sq.IncludeLocal = v == "true" || v == "1"
	}
	if v := q.Get("include_partner"); v != "" {
		sq.IncludePartner = v == "true" || v == "1"
	}
	sq.SortBy = SortKey(q.Get("sort"))
	if v := q.Get("order"); v == string(SortDesc) {
		sq.SortDir = SortDesc
	}

	return sq, nil
}

// Normalize canonicalizes free-text fields so equal queries produce equal
// signatures: destination trimmed/lowercased, amenity and property-type sets
// sorted and deduplicated, unknown sort keys collapsed to SortNone.
func (q *SearchQuery) Normalize() {
	q.Destination = strings.ToLower(strings.TrimSpace(q.Destination))
	q.Amenities = normalizeSet(q.Amenities)
	q.PropertyTypes = normalizeSet(q.PropertyTypes)
	switch q.SortBy {
	case SortByPrice, SortByRating, SortByPopularity:
	default:
		q.SortBy = SortNone
	}
	if q.SortDir != SortDesc {
		q.SortDir = SortAsc
	}
	if q.Page < 1 {
		q.Page = 1
	}
}

// Validate reports the first set of problems with the query. maxPageSize is
// the configured hard cap.
func (q *SearchQuery) Validate(maxPageSize int) error {
	var errs []string

	if q.Destination != "" {
		if _, err := validator.ValidateDestination(q.Destination); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if q.CheckIn != nil && q.CheckOut != nil && !q.CheckOut.After(*q.CheckIn) {
		errs = append(errs, "checkout must be after checkin")
	}
	if (q.CheckIn == nil) != (q.CheckOut == nil) {
		errs = append(errs, "checkin and checkout must be provided together")
	}
	if q.Adults < 1 {
		errs = append(errs, "adults must be at least 1")
	}
	if q.Children < 0 {
		errs = append(errs, "children must not be negative")
	}
	if q.MinPrice < 0 || q.MaxPrice < 0 || (q.MaxPrice > 0 && q.MinPrice > q.MaxPrice) {
		errs = append(errs, "invalid price range")
	}
	if q.Page < 1 {
		errs = append(errs, "page must be at least 1")
	}
	if q.PageSize < 1 || q.PageSize > maxPageSize {
		errs = append(errs, fmt.Sprintf("page_size must be between 1 and %d", maxPageSize))
	}
	if !q.IncludeLocal && !q.IncludePartner {
		errs = append(errs, "at least one source must be included")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidQuery, strings.Join(errs, ", "))
	}
	return nil
}

// Guests is the total occupancy the query asks for.
func (q *SearchQuery) Guests() int {
	return q.Adults + q.Children
}

// Signature derives the stable identifier used as both cache key and
// coalescing key. It covers every field that affects result membership or
// order and nothing else: page and page size are views over the merged set,
// so they are deliberately left out.
func (q *SearchQuery) Signature() string {
	parts := []string{
		"dest=" + q.Destination,
		"in=" + fmtDate(q.CheckIn),
		"out=" + fmtDate(q.CheckOut),
		"ad=" + strconv.Itoa(q.Adults),
		"ch=" + strconv.Itoa(q.Children),
		"pmin=" + strconv.FormatFloat(q.MinPrice, 'f', 2, 64),
		"pmax=" + strconv.FormatFloat(q.MaxPrice, 'f', 2, 64),
		"br=" + strconv.Itoa(q.MinBedrooms),
		"ba=" + strconv.FormatFloat(q.MinBathrooms, 'f', 1, 64),
		"am=" + strings.Join(q.Amenities, ","),
		"pt=" + strings.Join(q.PropertyTypes, ","),
		"src=" + boolTag(q.IncludeLocal) + boolTag(q.IncludePartner),
		"sort=" + string(q.SortBy) + ":" + string(q.SortDir),
	}
	return strings.Join(parts, "|")
}

func optionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := validator.ValidateDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func fmtDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func boolTag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeSet(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
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
	sort.Strings(out)
	return out
}
