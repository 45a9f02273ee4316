package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"mintgate/internal/collection/models"
	collectionsvc "mintgate/internal/collection/service"
	"mintgate/internal/collection/store"
	"mintgate/internal/funds/treasury"
	"mintgate/internal/funds/treasury/mocks"
	"mintgate/internal/platform/metrics"
	pkgerrors "mintgate/pkg/domain-errors"
)

const (
	beneficiaryAddr = models.Address("addr-beneficiary")
	payoutAddr      = models.Address("addr-payout")
)

var testMetrics = metrics.New()

func newTestService(t *testing.T, initial models.CollectionState, client treasury.Client) (*Service, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore(initial)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(collectionsvc.NewSerialRunner(mem, 0), client, testMetrics, logger, beneficiaryAddr, payoutAddr)
	return svc, mem
}

func TestService_Settle(t *testing.T) {
	ctx := context.Background()

	t.Run("forwards the full earmark to the beneficiary", func(t *testing.T) {
		client := &treasury.MockClient{}
		svc, mem := newTestService(t, models.CollectionState{
			ContractBalance:  300,
			EarmarkedBalance: 200,
		}, client)

		amount, err := svc.Settle(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(200), amount)

		require.Len(t, client.Transfers, 1)
		assert.Equal(t, beneficiaryAddr, client.Transfers[0].To)
		assert.Equal(t, uint64(200), client.Transfers[0].Amount)

		state, err := mem.GetState(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), state.EarmarkedBalance)
		assert.Equal(t, uint64(100), state.ContractBalance)
		assert.Equal(t, uint64(100), state.WithdrawableBalance())
	})

	t.Run("nothing to settle twice", func(t *testing.T) {
		client := &treasury.MockClient{}
		svc, _ := newTestService(t, models.CollectionState{
			ContractBalance:  50,
			EarmarkedBalance: 50,
		}, client)

		_, err := svc.Settle(ctx)
		require.NoError(t, err)

		_, err = svc.Settle(ctx)
		require.Error(t, err)
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNothingToSettle))
		assert.Len(t, client.Transfers, 1)
	})

	t.Run("nothing to settle when earmark is empty", func(t *testing.T) {
		svc, _ := newTestService(t, models.CollectionState{ContractBalance: 100}, &treasury.MockClient{})

		_, err := svc.Settle(ctx)
		require.Error(t, err)
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNothingToSettle))
	})

	t.Run("rejected transfer restores the earmark", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mocks.NewMockClient(ctrl)
		client.EXPECT().
			Transfer(gomock.Any(), beneficiaryAddr, uint64(200)).
			Return(errors.New("gateway rejected"))

		svc, mem := newTestService(t, models.CollectionState{
			ContractBalance:  300,
			EarmarkedBalance: 200,
		}, client)

		_, err := svc.Settle(ctx)
		require.Error(t, err)
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeTransferFailed))

		state, err := mem.GetState(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(200), state.EarmarkedBalance, "failed transfer must not consume the earmark")
		assert.Equal(t, uint64(300), state.ContractBalance)
	})
}

func TestService_Withdraw(t *testing.T) {
	ctx := context.Background()

	t.Run("transfers everything beyond the earmark", func(t *testing.T) {
		client := &treasury.MockClient{}
		svc, mem := newTestService(t, models.CollectionState{
			ContractBalance:  300,
			EarmarkedBalance: 200,
		}, client)

		amount, err := svc.Withdraw(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(100), amount)

		require.Len(t, client.Transfers, 1)
		assert.Equal(t, payoutAddr, client.Transfers[0].To)
		assert.Equal(t, uint64(100), client.Transfers[0].Amount)

		state, err := mem.GetState(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(200), state.ContractBalance, "the earmark must survive a withdrawal")
		assert.Equal(t, uint64(200), state.EarmarkedBalance)
	})

	t.Run("nothing to withdraw when everything is earmarked", func(t *testing.T) {
		svc, _ := newTestService(t, models.CollectionState{
			ContractBalance:  200,
			EarmarkedBalance: 200,
		}, &treasury.MockClient{})

		_, err := svc.Withdraw(ctx)
		require.Error(t, err)
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNothingToWithdraw))
	})

	t.Run("nothing to withdraw twice", func(t *testing.T) {
		svc, _ := newTestService(t, models.CollectionState{ContractBalance: 100}, &treasury.MockClient{})

		_, err := svc.Withdraw(ctx)
		require.NoError(t, err)

		_, err = svc.Withdraw(ctx)
		require.Error(t, err)
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNothingToWithdraw))
	})

	t.Run("rejected transfer leaves balances unchanged", func(t *testing.T) {
		client := &treasury.MockClient{Reject: true}
		svc, mem := newTestService(t, models.CollectionState{ContractBalance: 100}, client)

		_, err := svc.Withdraw(ctx)
		require.Error(t, err)
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeTransferFailed))

		state, err := mem.GetState(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(100), state.ContractBalance)
	})
}

// Exercises the settle/withdraw split over a lifecycle of mixed balances:
// the two paths partition the held funds exactly, with no overlap and no
// residue.
func TestService_LedgerPartition(t *testing.T) {
	ctx := context.Background()
	client := &treasury.MockClient{}
	svc, mem := newTestService(t, models.CollectionState{
		ContractBalance:  1000,
		EarmarkedBalance: 640,
	}, client)

	settled, err := svc.Settle(ctx)
	require.NoError(t, err)
	withdrawn, err := svc.Withdraw(ctx)
	require.NoError(t, err)

	assert.Equal(t, uint64(640), settled)
	assert.Equal(t, uint64(360), withdrawn)
	assert.Equal(t, uint64(1000), settled+withdrawn)

	state, err := mem.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), state.ContractBalance)
	assert.Equal(t, uint64(0), state.EarmarkedBalance)
}
