package ratelimit

import (
	"log/slog"
	"net/http"

	"mintgate/pkg/platform/middleware/request"
)

// Middleware enforces the limiter per key. Limiter errors fail open: an
// unreachable Redis must not take minting down with it.
func Middleware(limiter Limiter, keyFn func(*http.Request) string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := keyFn(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			allowed, err := limiter.Allow(ctx, key)
			if err != nil {
				logger.WarnContext(ctx, "rate limiter unavailable, failing open",
					"error", err,
					"request_id", request.GetRequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate_limited","error_description":"too many mint requests"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
