// Package oracle models the external identity-verification service as a
// small injected capability so the mint path stays testable with
// deterministic fakes.
package oracle

import (
	"context"
	"time"

	"mintgate/internal/collection/models"
)

// Verifier answers whether an address passed identity verification. It is
// queried fresh on every mint; results are never cached here.
type Verifier interface {
	IsVerified(ctx context.Context, addr models.Address) (bool, error)
}

// MockVerifier is a deterministic verifier for development and tests. With a
// nil Verified map every lookup returns Default.
type MockVerifier struct {
	Latency  time.Duration
	Default  bool
	Verified map[models.Address]bool
}

func (m MockVerifier) IsVerified(_ context.Context, addr models.Address) (bool, error) {
	time.Sleep(m.Latency)
	if m.Verified != nil {
		if v, ok := m.Verified[addr]; ok {
			return v, nil
		}
	}
	return m.Default, nil
}
