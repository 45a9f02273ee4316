package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// JWTValidator defines the interface for validating wallet session tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator.
type JWTClaims struct {
	WalletAddress string
	SessionID     string
}

type contextKeyWallet struct{}
type contextKeySession struct{}

var (
	ctxKeyWallet  = contextKeyWallet{}
	ctxKeySession = contextKeySession{}
)

// GetWalletAddress retrieves the authenticated caller address from the context.
func GetWalletAddress(ctx context.Context) string {
	addr, ok := ctx.Value(ctxKeyWallet).(string)
	if !ok {
		return ""
	}
	return addr
}

// GetSessionID retrieves the session ID from the context.
func GetSessionID(ctx context.Context) string {
	id, ok := ctx.Value(ctxKeySession).(string)
	if !ok {
		return ""
	}
	return id
}

// RequireWallet validates the Bearer token and stores the caller's wallet
// address in context. Handlers behind it can rely on GetWalletAddress being
// non-empty.
func RequireWallet(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				unauthorized(w)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				unauthorized(w)
				return
			}

			ctx = context.WithValue(ctx, ctxKeyWallet, claims.WalletAddress)
			ctx = context.WithValue(ctx, ctxKeySession, claims.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"Invalid or expired token"}`))
}
