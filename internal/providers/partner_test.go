package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/lodging-aggregator/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPartner(baseURL string) *PartnerProvider {
	p := NewPartnerProvider(PartnerConfig{
		BaseURL:       baseURL,
		APIKey:        "test-key",
		Timeout:       200 * time.Millisecond,
		MaxRetries:    2,
		MaxCandidates: 10,
	}, testLogger())
	p.backoffBase = time.Millisecond
	return p
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestPartnerSearchNormalizesCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/v1/rates/search"):
			writeJSON(w, map[string]any{"results": []map[string]any{
				{"id": "p1", "nightly_rate": 120.0},
				{"property_id": "p2"},
			}})
		case r.URL.Path == "/v1/properties/p1":
			writeJSON(w, map[string]any{
				"id": "p1", "name": "Pousada Mar Azul", "city": "Salvador",
				"max_guests": 4, "nightly_rate": 110.0, "currency": "BRL",
				"rating": 4.8, "reviews_count": 52,
				"amenities": []string{"WiFi", "Pool"},
			})
		case r.URL.Path == "/v1/properties/p2":
			// aliased and missing fields everywhere
			writeJSON(w, map[string]any{
				"property_id": "p2", "title": "Beach Flat",
				"latitude": -12.97, "longitude": -38.5,
				"sleeps": 3, "price_per_night": 90.0,
				"features": []string{"kitchen"},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := newTestPartner(srv.URL)
	listings, err := p.Search(context.Background(), &models.SearchQuery{Destination: "salvador", Adults: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(listings) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(listings))
	}

	byID := map[string]models.Listing{}
	for _, l := range listings {
		byID[l.ID] = l
	}

	l1, ok := byID["partner_p1"]
	if !ok {
		t.Fatal("p1 missing")
	}
	if l1.Source != models.SourcePartner {
		t.Errorf("source = %v", l1.Source)
	}
	if l1.BasePricePerNight != 120 {
		t.Errorf("rate-search quote should win over detail price, got %v", l1.BasePricePerNight)
	}
	if len(l1.Amenities) != 2 || l1.Amenities[0] != "wifi" {
		t.Errorf("amenities not lowercased: %v", l1.Amenities)
	}

	l2, ok := byID["partner_p2"]
	if !ok {
		t.Fatal("p2 missing")
	}
	if l2.Name != "Beach Flat" {
		t.Errorf("title alias not used: %q", l2.Name)
	}
	if l2.Capacity.Accommodates != 3 {
		t.Errorf("sleeps alias not used: %d", l2.Capacity.Accommodates)
	}
	if l2.Location.Lat != -12.97 {
		t.Errorf("latitude alias not used: %v", l2.Location.Lat)
	}
}

func TestPartnerSearchAppliesDefaultsToPartialRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/rates/search") {
			writeJSON(w, map[string]any{"results": []map[string]any{{"id": "bare"}}})
			return
		}
		// record with nothing but an id
		writeJSON(w, map[string]any{"id": "bare"})
	}))
	defer srv.Close()

	p := newTestPartner(srv.URL)
	listings, err := p.Search(context.Background(), &models.SearchQuery{Adults: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(listings) != 1 {
		t.Fatalf("partial record must still produce a listing, got %d", len(listings))
	}
	l := listings[0]
	if l.Capacity.Accommodates != defaultOccupancy {
		t.Errorf("occupancy default = %d, want %d", l.Capacity.Accommodates, defaultOccupancy)
	}
	if l.BasePricePerNight != defaultBasePrice {
		t.Errorf("price default = %v, want %v", l.BasePricePerNight, defaultBasePrice)
	}
	if l.Currency != defaultCurrency {
		t.Errorf("currency default = %q", l.Currency)
	}
	if l.CancellationPolicy.Tier != models.CancellationFlexible {
		t.Errorf("cancellation default = %v", l.CancellationPolicy.Tier)
	}
	if l.Name == "" {
		t.Error("name must be synthesized")
	}
}

func TestPartnerSearchDropsTimedOutCandidates(t *testing.T) {
	slow := map[string]bool{"p2": true, "p4": true}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/rates/search") {
			writeJSON(w, map[string]any{"results": []map[string]any{
				{"id": "p1"}, {"id": "p2"}, {"id": "p3"}, {"id": "p4"}, {"id": "p5"},
			}})
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/v1/properties/")
		if slow[id] {
			time.Sleep(500 * time.Millisecond) // beyond the per-call timeout
		}
		writeJSON(w, map[string]any{"id": id, "nightly_rate": 100.0, "max_guests": 4})
	}))
	defer srv.Close()

	p := newTestPartner(srv.URL)
	listings, err := p.Search(context.Background(), &models.SearchQuery{Adults: 2})
	if err != nil {
		t.Fatalf("timed out candidates must not fail the search: %v", err)
	}
	if len(listings) != 3 {
		t.Fatalf("expected the 3 fast candidates, got %d", len(listings))
	}
	for _, l := range listings {
		if slow[strings.TrimPrefix(l.ID, "partner_")] {
			t.Fatalf("timed out candidate %s must be dropped", l.ID)
		}
	}
}

func TestPartnerSearchFiltersAmenitiesAndPropertyTypes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/rates/search") {
			writeJSON(w, map[string]any{"results": []map[string]any{
				{"id": "p1"}, {"id": "p2"}, {"id": "p3"},
			}})
			return
		}
		switch strings.TrimPrefix(r.URL.Path, "/v1/properties/") {
		case "p1":
			writeJSON(w, map[string]any{
				"id": "p1", "property_type": "apartment", "max_guests": 4,
				"amenities": []string{"WiFi", "Pool"},
			})
		case "p2":
			// right type, missing the requested amenity
			writeJSON(w, map[string]any{
				"id": "p2", "property_type": "apartment", "max_guests": 4,
				"amenities": []string{"wifi"},
			})
		case "p3":
			// has the amenity, wrong property type
			writeJSON(w, map[string]any{
				"id": "p3", "property_type": "house", "max_guests": 4,
				"amenities": []string{"pool"},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := newTestPartner(srv.URL)
	q := &models.SearchQuery{
		Adults:        2,
		Amenities:     []string{"pool"},
		PropertyTypes: []string{"apartment"},
	}
	q.Normalize()
	listings, err := p.Search(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}
	if len(listings) != 1 || listings[0].ID != "partner_p1" {
		t.Fatalf("amenity and property-type filters must apply to partner listings, got %+v", listings)
	}
}

func TestPartnerRetriesOnRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/rates/search") {
			if atomic.AddInt32(&calls, 1) <= 2 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			writeJSON(w, map[string]any{"results": []map[string]any{}})
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	p := newTestPartner(srv.URL)
	if _, err := p.Search(context.Background(), &models.SearchQuery{Adults: 2}); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Fatalf("expected 3 attempts, got %d", n)
	}
}

func TestPartnerRateLimitExhaustion(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := newTestPartner(srv.URL)
	_, err := p.Search(context.Background(), &models.SearchQuery{Adults: 2})
	if !errors.Is(err, models.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited after exhaustion, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 3 { // 1 initial + 2 retries
		t.Fatalf("expected 3 attempts, got %d", n)
	}
}

func TestPartnerServerErrorFailsImmediately(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := newTestPartner(srv.URL)
	_, err := p.Search(context.Background(), &models.SearchQuery{Adults: 2})
	if !errors.Is(err, models.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("5xx must not be retried, got %d attempts", n)
	}
}

func TestPartnerGetDetailNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	p := newTestPartner(srv.URL)
	_, err := p.GetDetail(context.Background(), "missing")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPartnerGetAvailability(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("checkin") == "" {
			t.Error("checkin not forwarded")
		}
		writeJSON(w, map[string]any{"rates": []map[string]any{
			{"date": "2026-02-10", "nightly_rate": 130.0, "available": true, "currency": "BRL"},
			{"date": "2026-02-11", "available": false},
		}})
	}))
	defer srv.Close()

	p := newTestPartner(srv.URL)
	in := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	out := time.Date(2026, 2, 12, 0, 0, 0, 0, time.UTC)
	quotes, err := p.GetAvailability(context.Background(), "p1", in, out, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(quotes) != 2 {
		t.Fatalf("got %d quotes", len(quotes))
	}
	if quotes[0].ListingID != "partner_p1" || quotes[0].PricePerNight != 130 {
		t.Fatalf("quote 0 = %+v", quotes[0])
	}
	if quotes[1].PricePerNight != defaultBasePrice {
		t.Fatalf("missing rate must fall back to the default, got %v", quotes[1].PricePerNight)
	}
	if quotes[1].Available {
		t.Fatal("explicit available=false must be honored")
	}
}

func TestNormalizePartnerRecordRejectsMissingID(t *testing.T) {
	if _, err := normalizePartnerRecord(rawPartnerRecord{Name: "No ID"}); err == nil {
		t.Fatal("record without any id must be rejected")
	}
}

func TestNormalizePartnerRecordClampsRating(t *testing.T) {
	high := 9.5
	l, err := normalizePartnerRecord(rawPartnerRecord{ID: "x", Rating: &high})
	if err != nil {
		t.Fatal(err)
	}
	if l.Rating != 5 {
		t.Fatalf("rating must clamp to 5, got %v", l.Rating)
	}
}
