package routes

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	handlers "github.com/example/lodging-aggregator/internal/http"
	mid "github.com/example/lodging-aggregator/internal/middleware"
	"github.com/example/lodging-aggregator/internal/obs"
)

func GetRoutes(h *handlers.Handler, metrics *obs.Metrics, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()
	// Useful built-in middlewares
	r.Use(middleware.RealIP)    // proper client IP extraction
	r.Use(middleware.RequestID) // sets request ID header
	r.Use(middleware.Recoverer) // built-in recoverer to avoid panics taking server down

	// our custom middlewares: metrics, logging & timeout
	r.Use(mid.MetricsMiddleware(metrics))
	r.Use(mid.LoggingMiddleware(logger))
	r.Use(mid.TimeoutMiddleware(15 * time.Second))

	// endpoints
	r.Get("/search", h.Search)
	r.Get("/listings/{id}", h.GetListing)
	r.Get("/listings/{id}/availability", h.GetAvailability)
	r.Get("/healthz", h.Healthz)
	r.Get("/metrics", metrics.Handler().ServeHTTP)

	return r
}
