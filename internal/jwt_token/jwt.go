package jwttoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionTokenClaims binds a wallet address to a short-lived API session.
// The wallet address is the caller identity every issuance decision keys on.
type SessionTokenClaims struct {
	WalletAddress string `json:"wallet"`
	SessionID     string `json:"sid"`
	jwt.RegisteredClaims
}

// JWTService signs and validates wallet session tokens with a shared secret.
type JWTService struct {
	signingKey []byte
	ttl        time.Duration
}

func NewJWTService(signingKey string, ttl time.Duration) *JWTService {
	if ttl == 0 {
		ttl = time.Hour
	}
	return &JWTService{signingKey: []byte(signingKey), ttl: ttl}
}

// IssueToken mints a session token for a wallet address.
func (s *JWTService) IssueToken(walletAddress string) (string, error) {
	if walletAddress == "" {
		return "", errors.New("wallet address is required")
	}
	now := time.Now()
	claims := SessionTokenClaims{
		WalletAddress: walletAddress,
		SessionID:     uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "mintgate",
			Subject:   walletAddress,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.signingKey)
}

// ValidateToken parses and verifies a session token.
func (s *JWTService) ValidateToken(tokenString string) (*SessionTokenClaims, error) {
	claims := &SessionTokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("validate token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.WalletAddress == "" {
		return nil, errors.New("token missing wallet claim")
	}
	return claims, nil
}
