package http

import (
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/example/lodging-aggregator/internal/models"
	"github.com/example/lodging-aggregator/internal/obs"
	"github.com/example/lodging-aggregator/internal/search"
	"github.com/example/lodging-aggregator/internal/validator"
)

type Handler struct {
	svc             *search.Service
	ratelimiter     search.RateLimiter
	metrics         *obs.Metrics
	defaultPageSize int
}

func NewHandler(svc *search.Service, rl search.RateLimiter, m *obs.Metrics, defaultPageSize int) *Handler {
	return &Handler{
		svc:             svc,
		ratelimiter:     rl,
		metrics:         m,
		defaultPageSize: defaultPageSize,
	}
}

func (h *Handler) ipFromRequest(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func requestID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return uuid.New().String()
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.metrics.IncSearchRequests()
	reqID := requestID(r)
	meta := map[string]string{"request_id": reqID}

	ip := h.ipFromRequest(r)
	if !h.ratelimiter.Allow(ip) {
		h.metrics.IncRateLimitDrops()
		TooManyRequests(w, "rate limit exceeded", meta)
		return
	}

	q, err := models.ParseSearchQuery(r.URL.Query(), h.defaultPageSize)
	if err != nil {
		BadRequest(w, err.Error(), meta)
		return
	}

	res, err := h.svc.Search(ctx, q)
	switch {
	case err == nil:
	case errors.Is(err, models.ErrInvalidQuery):
		BadRequest(w, err.Error(), meta)
		return
	case errors.Is(err, models.ErrAggregationFailed):
		ServiceUnavailable(w, err.Error(), meta)
		return
	default:
		InternalError(w, err.Error(), meta)
		return
	}

	WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)
	meta := map[string]string{"request_id": reqID}
	id := chi.URLParam(r, "id")

	listing, err := h.svc.GetDetail(r.Context(), id)
	switch {
	case err == nil:
	case errors.Is(err, models.ErrNotFound):
		NotFound(w, "listing not found", meta)
		return
	default:
		InternalError(w, err.Error(), meta)
		return
	}

	WriteJSON(w, http.StatusOK, listing)
}

func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)
	meta := map[string]string{"request_id": reqID}
	id := chi.URLParam(r, "id")
	q := r.URL.Query()

	checkIn, err := validator.ValidateDate(q.Get("checkin"))
	if err != nil {
		BadRequest(w, "checkin: "+err.Error(), meta)
		return
	}
	checkOut, err := validator.ValidateDate(q.Get("checkout"))
	if err != nil {
		BadRequest(w, "checkout: "+err.Error(), meta)
		return
	}
	guests := 1
	if v := q.Get("guests"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			BadRequest(w, "invalid guests", meta)
			return
		}
		guests = n
	}

	quotes, err := h.svc.GetAvailability(r.Context(), id, checkIn, checkOut, guests)
	switch {
	case err == nil:
	case errors.Is(err, models.ErrNotFound):
		NotFound(w, "listing not found", meta)
		return
	case errors.Is(err, models.ErrInvalidQuery):
		BadRequest(w, err.Error(), meta)
		return
	default:
		InternalError(w, err.Error(), meta)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"listing_id": id,
		"quotes":     quotes,
	})
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
