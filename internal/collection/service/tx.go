package service

import (
	"context"
	"sync"
	"time"

	"mintgate/internal/collection/store"
	pkgerrors "mintgate/pkg/domain-errors"
)

// defaultTxTimeout bounds one operation, including its external calls.
const defaultTxTimeout = 10 * time.Second

// SerialRunner wraps a store TxRunner with a single mutex so every operation
// on the collection aggregate executes as an indivisible unit. One lock, not
// sharded: the aggregate is a singleton and every operation touches the same
// balances and supply counter, so there is nothing to shard by.
//
// The collection and funds services must share one SerialRunner instance.
type SerialRunner struct {
	mu      sync.Mutex
	inner   store.TxRunner
	timeout time.Duration
}

func NewSerialRunner(inner store.TxRunner, timeout time.Duration) *SerialRunner {
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	return &SerialRunner{inner: inner, timeout: timeout}
}

func (r *SerialRunner) RunInTx(ctx context.Context, fn func(ctx context.Context, s store.Store) error) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeTimeout, "operation aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Check again after acquiring the lock.
	if err := ctx.Err(); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeTimeout, "operation aborted: context cancelled")
	}

	return r.inner.RunInTx(ctx, fn)
}
