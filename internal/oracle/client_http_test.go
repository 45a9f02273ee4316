package oracle

//go:generate mockgen -source=oracle.go -destination=mocks/mocks.go -package=mocks Verifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_IsVerified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/verify/addr-verified":
			w.Write([]byte(`{"verified":true}`))
		case "/verify/addr-unverified":
			w.Write([]byte(`{"verified":false}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, 2*time.Second)

	t.Run("verified address", func(t *testing.T) {
		ok, err := client.IsVerified(context.Background(), "addr-verified")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("unverified address", func(t *testing.T) {
		ok, err := client.IsVerified(context.Background(), "addr-unverified")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("oracle failure propagates", func(t *testing.T) {
		_, err := client.IsVerified(context.Background(), "addr-broken")
		require.Error(t, err)
	})
}
