package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/surya9490/wishlist/pkg/health"
	"github.com/surya9490/wishlist/pkg/middleware"
)

// NewRouter creates a chi router with all wishlist API routes registered.
func NewRouter(
	svc WishlistService,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware. CORS comes first because the widget calls this API
	// from storefront origins.
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing("wishlist-api"))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("wishlist-api"))

	// Operational endpoints.
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Wishlist API endpoints.
	wishlistHandler := NewWishlistHandler(svc, logger)

	r.Route("/api/wishlist", func(r chi.Router) {
		r.Get("/", wishlistHandler.Fetch)
		r.Post("/", wishlistHandler.Action)
	})

	return r
}
