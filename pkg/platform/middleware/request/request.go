// Package request carries request IDs through context for log correlation.
package request

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type requestIDKey struct{}

var ctxRequestID = requestIDKey{}

// ID assigns a request ID to every request, honoring an inbound
// X-Request-Id header so IDs survive proxy hops.
func ID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), ctxRequestID, requestID)
		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from context, or "" when the request
// bypassed the middleware (background jobs, tests).
func GetRequestID(ctx context.Context) string {
	id, ok := ctx.Value(ctxRequestID).(string)
	if !ok {
		return ""
	}
	return id
}
