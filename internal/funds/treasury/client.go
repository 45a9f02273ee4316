// Package treasury models outbound value transfers. The fund destination is
// opaque: it either accepts a payment of the transferred amount or rejects
// it, and a rejection must abort the calling operation.
package treasury

import (
	"context"
	"errors"
	"time"

	"mintgate/internal/collection/models"
)

// Client executes an outbound transfer to an external address.
type Client interface {
	Transfer(ctx context.Context, to models.Address, amount uint64) error
}

// MockClient is a deterministic transfer sink for development and tests. It
// records transfers and can be told to reject them.
type MockClient struct {
	Latency time.Duration
	Reject  bool

	Transfers []RecordedTransfer
}

// RecordedTransfer is one accepted transfer, in call order.
type RecordedTransfer struct {
	To     models.Address
	Amount uint64
}

func (m *MockClient) Transfer(_ context.Context, to models.Address, amount uint64) error {
	time.Sleep(m.Latency)
	if m.Reject {
		return errors.New("transfer rejected by destination")
	}
	m.Transfers = append(m.Transfers, RecordedTransfer{To: to, Amount: amount})
	return nil
}
