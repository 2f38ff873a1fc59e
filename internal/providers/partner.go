package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/example/lodging-aggregator/internal/models"
)

// PartnerConfig carries the knobs for the partner HTTP adapter.
type PartnerConfig struct {
	BaseURL string
	APIKey  string
	// Timeout bounds every single HTTP call.
	Timeout time.Duration
	// MaxRetries applies only to rate-limit responses; other failures are
	// never retried.
	MaxRetries int
	// MaxCandidates caps how many per-candidate detail calls one search may
	// trigger.
	MaxCandidates int
}

// PartnerProvider adapts the third-party rate-shopping API. A search is a
// rate-search call followed by one detail call per candidate; candidates
// whose detail call fails or times out are dropped rather than failing the
// search.
type PartnerProvider struct {
	cfg    PartnerConfig
	client *http.Client
	logger *slog.Logger

	// backoffBase is the first 429 backoff delay, doubled per attempt.
	// Overridden in tests.
	backoffBase time.Duration
}

func NewPartnerProvider(cfg PartnerConfig, logger *slog.Logger) *PartnerProvider {
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 50
	}
	return &PartnerProvider{
		cfg:         cfg,
		client:      &http.Client{},
		logger:      logger,
		backoffBase: 200 * time.Millisecond,
	}
}

func (p *PartnerProvider) Name() string          { return "partner-api" }
func (p *PartnerProvider) Source() models.Source { return models.SourcePartner }

type rateCandidate struct {
	ID          string   `json:"id"`
	PropertyID  string   `json:"property_id"`
	NightlyRate *float64 `json:"nightly_rate"`
}

type rateSearchResponse struct {
	Results []rateCandidate `json:"results"`
}

func (p *PartnerProvider) Search(ctx context.Context, q *models.SearchQuery) ([]models.Listing, error) {
	params := url.Values{}
	if q.Destination != "" {
		params.Set("city", q.Destination)
	}
	if q.CheckIn != nil && q.CheckOut != nil {
		params.Set("checkin", q.CheckIn.Format("2006-01-02"))
		params.Set("checkout", q.CheckOut.Format("2006-01-02"))
	}
	params.Set("guests", strconv.Itoa(q.Guests()))
	params.Set("limit", strconv.Itoa(p.cfg.MaxCandidates))

	var resp rateSearchResponse
	if err := p.getJSON(ctx, "/v1/rates/search?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	candidates := resp.Results
	if len(candidates) > p.cfg.MaxCandidates {
		candidates = candidates[:p.cfg.MaxCandidates]
	}

	// Per-candidate detail calls run concurrently; each has its own timeout
	// and a failed one drops only that candidate.
	type slot struct {
		listing models.Listing
		ok      bool
	}
	slots := make([]slot, len(candidates))
	var wg sync.WaitGroup
	for i, c := range candidates {
		wg.Add(1)
		go func(i int, c rateCandidate) {
			defer wg.Done()
			l, err := p.fetchDetail(ctx, candidateID(c))
			if err != nil {
				p.logger.Warn("partner candidate dropped",
					"candidate", candidateID(c), "error", err)
				return
			}
			if c.NightlyRate != nil && *c.NightlyRate > 0 {
				// the rate-search quote wins over the stale detail price
				l.BasePricePerNight = *c.NightlyRate
				l.DisplayPrice = *c.NightlyRate
			}
			slots[i] = slot{listing: l, ok: true}
		}(i, c)
	}
	wg.Wait()

	out := make([]models.Listing, 0, len(candidates))
	for _, s := range slots {
		if s.ok {
			out = append(out, s.listing)
		}
	}
	out = p.applyClientFilters(out, q)
	return out, nil
}

// applyClientFilters enforces the filters the partner API does not support
// server-side: the numeric constraints plus the amenity and property-type
// sets, which determine result membership just as they do for the local
// source.
func (p *PartnerProvider) applyClientFilters(in []models.Listing, q *models.SearchQuery) []models.Listing {
	out := in[:0]
	for _, l := range in {
		if q.MinPrice > 0 && l.BasePricePerNight < q.MinPrice {
			continue
		}
		if q.MaxPrice > 0 && l.BasePricePerNight > q.MaxPrice {
			continue
		}
		if q.MinBedrooms > 0 && l.Capacity.Bedrooms < q.MinBedrooms {
			continue
		}
		if q.MinBathrooms > 0 && l.Capacity.Bathrooms < q.MinBathrooms {
			continue
		}
		if l.Capacity.Accommodates < q.Guests() {
			continue
		}
		if len(q.PropertyTypes) > 0 && !containsFold(q.PropertyTypes, l.PropertyType) {
			continue
		}
		if !hasAllAmenities(l.Amenities, q.Amenities) {
			continue
		}
		out = append(out, l)
	}
	return out
}

func hasAllAmenities(have, want []string) bool {
	for _, w := range want {
		if !containsFold(have, w) {
			return false
		}
	}
	return true
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}

func (p *PartnerProvider) GetDetail(ctx context.Context, id string) (models.Listing, error) {
	return p.fetchDetail(ctx, id)
}

func (p *PartnerProvider) fetchDetail(ctx context.Context, localID string) (models.Listing, error) {
	var raw rawPartnerRecord
	if err := p.getJSON(ctx, "/v1/properties/"+url.PathEscape(localID), &raw); err != nil {
		return models.Listing{}, err
	}
	return normalizePartnerRecord(raw)
}

type partnerRate struct {
	Date        string   `json:"date"`
	NightlyRate *float64 `json:"nightly_rate"`
	Available   *bool    `json:"available"`
	Currency    *string  `json:"currency"`
}

type partnerRatesResponse struct {
	Rates []partnerRate `json:"rates"`
}

func (p *PartnerProvider) GetAvailability(ctx context.Context, id string, checkIn, checkOut time.Time, guests int) ([]models.RateQuote, error) {
	params := url.Values{}
	params.Set("checkin", checkIn.Format("2006-01-02"))
	params.Set("checkout", checkOut.Format("2006-01-02"))
	params.Set("guests", strconv.Itoa(guests))

	var resp partnerRatesResponse
	err := p.getJSON(ctx, "/v1/rates/"+url.PathEscape(id)+"?"+params.Encode(), &resp)
	if err != nil {
		return nil, err
	}

	quotes := make([]models.RateQuote, 0, len(resp.Rates))
	for _, r := range resp.Rates {
		price := defaultBasePrice
		if r.NightlyRate != nil && *r.NightlyRate > 0 {
			price = *r.NightlyRate
		}
		quotes = append(quotes, models.RateQuote{
			ListingID:     models.ListingID(models.SourcePartner, id),
			Date:          r.Date,
			PricePerNight: price,
			Currency:      strOrDefault(r.Currency, defaultCurrency),
			Available:     r.Available == nil || *r.Available,
		})
	}
	return quotes, nil
}

// getJSON performs one logical GET with a hard per-call timeout and a bounded
// retry loop. Only rate-limit responses are retried, with exponential
// backoff; any other non-2xx status fails immediately.
func (p *PartnerProvider) getJSON(ctx context.Context, path string, out any) error {
	backoff := p.backoffBase
	var lastStatus int

	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return fmt.Errorf("%w: partner api: %v", models.ErrSourceUnavailable, ctx.Err())
			}
		}

		status, err := p.doOnce(ctx, path, out)
		if err != nil {
			return fmt.Errorf("%w: partner api: %v", models.ErrSourceUnavailable, err)
		}
		if status == http.StatusTooManyRequests {
			lastStatus = status
			continue
		}
		if status == http.StatusNotFound {
			return models.ErrNotFound
		}
		if status < 200 || status > 299 {
			return fmt.Errorf("%w: partner api status %d", models.ErrSourceUnavailable, status)
		}
		return nil
	}

	return fmt.Errorf("%w: gave up after %d attempts (last status %d)",
		models.ErrRateLimited, p.cfg.MaxRetries+1, lastStatus)
}

func (p *PartnerProvider) doOnce(ctx context.Context, path string, out any) (int, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, p.cfg.BaseURL+path, nil)
	if err != nil {
		return 0, err
	}
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
	}
	return resp.StatusCode, nil
}

func candidateID(c rateCandidate) string {
	if c.ID != "" {
		return c.ID
	}
	return c.PropertyID
}
