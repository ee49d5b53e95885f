package middleware

import (
	"log/slog"
	"net/http"

	"github.com/surya9490/wishlist/pkg/logger"
)

// RequestLogger returns middleware that builds a request-scoped logger enriched
// with correlation_id, customer_id, shop, trace_id, and span_id, then stores it
// in context via logger.NewContext. Downstream handlers retrieve it with
// logger.FromContext(ctx).
//
// This middleware should be mounted AFTER RequestLogging (which sets
// correlation_id) and Tracing (which sets the OpenTelemetry span context).
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// The storefront widget identifies its shopper via query or form
			// parameters rather than auth headers.
			if customerID := r.URL.Query().Get("customer"); customerID != "" {
				ctx = logger.WithCustomerID(ctx, customerID)
			}
			if shop := r.URL.Query().Get("shop"); shop != "" {
				ctx = logger.WithShop(ctx, shop)
			}

			enriched := logger.WithContext(ctx, base)
			ctx = logger.NewContext(ctx, enriched)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
