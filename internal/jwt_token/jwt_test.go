package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_IssueAndValidate(t *testing.T) {
	svc := NewJWTService("test-signing-key", time.Hour)

	token, err := svc.IssueToken("addr-0xc0ffee")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "addr-0xc0ffee", claims.WalletAddress)
	assert.NotEmpty(t, claims.SessionID)
}

func TestJWTService_RejectsEmptyWallet(t *testing.T) {
	svc := NewJWTService("test-signing-key", time.Hour)

	_, err := svc.IssueToken("")
	require.Error(t, err)
}

func TestJWTService_RejectsWrongKey(t *testing.T) {
	issuer := NewJWTService("key-one", time.Hour)
	verifier := NewJWTService("key-two", time.Hour)

	token, err := issuer.IssueToken("addr-0xc0ffee")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
}

func TestJWTService_RejectsExpired(t *testing.T) {
	svc := NewJWTService("test-signing-key", -time.Minute)

	token, err := svc.IssueToken("addr-0xc0ffee")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
}
