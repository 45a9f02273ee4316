//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"

	"mintgate/internal/collection/models"
	"mintgate/internal/collection/store"
	"mintgate/pkg/platform/sentinel"
	"mintgate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	ctx := context.Background()
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.store.Migrate(ctx))
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "minted_units", "collection_state"))
	s.Require().NoError(s.store.InitState(ctx, models.CollectionState{UnitPrice: 100, SaleActive: true}))
}

// TestStateRoundTrip verifies the singleton state row persists what was put.
func (s *PostgresStoreSuite) TestStateRoundTrip() {
	ctx := context.Background()

	state, err := s.store.GetState(ctx)
	s.Require().NoError(err)
	s.Equal(uint64(100), state.UnitPrice)

	state.TotalIssued = 7
	state.ContractBalance = 700
	state.EarmarkedBalance = 200
	state.BaseURI = "ipfs://meta/"
	s.Require().NoError(s.store.PutState(ctx, state))

	got, err := s.store.GetState(ctx)
	s.Require().NoError(err)
	s.Equal(state, got)
}

// TestInitStateIsIdempotent verifies a second init never overwrites an
// existing collection.
func (s *PostgresStoreSuite) TestInitStateIsIdempotent() {
	ctx := context.Background()

	err := s.store.InitState(ctx, models.CollectionState{UnitPrice: 999})
	s.Require().NoError(err)

	state, err := s.store.GetState(ctx)
	s.Require().NoError(err)
	s.Equal(uint64(100), state.UnitPrice)
}

// TestOwnership verifies unit assignment, lookup and per-owner counts.
func (s *PostgresStoreSuite) TestOwnership() {
	ctx := context.Background()

	s.Require().NoError(s.store.AssignUnits(ctx, "addr-a", []models.UnitID{0, 1, 2}))

	owner, err := s.store.OwnerOf(ctx, 1)
	s.Require().NoError(err)
	s.Equal(models.Address("addr-a"), owner)

	count, err := s.store.CountOf(ctx, "addr-a")
	s.Require().NoError(err)
	s.Equal(uint64(3), count)

	_, err = s.store.OwnerOf(ctx, 99)
	s.ErrorIs(err, sentinel.ErrNotFound)

	err = s.store.AssignUnits(ctx, "addr-b", []models.UnitID{2})
	s.ErrorIs(err, sentinel.ErrConflict)
}

// TestRunInTxRollback verifies a failed callback leaves no trace in either
// table.
func (s *PostgresStoreSuite) TestRunInTxRollback() {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.store.RunInTx(ctx, func(txCtx context.Context, st store.Store) error {
		state, err := st.GetState(txCtx)
		if err != nil {
			return err
		}
		state.TotalIssued = 999
		if err := st.PutState(txCtx, state); err != nil {
			return err
		}
		if err := st.AssignUnits(txCtx, "addr-x", []models.UnitID{500}); err != nil {
			return err
		}
		return boom
	})
	s.Require().ErrorIs(err, boom)

	state, err := s.store.GetState(ctx)
	s.Require().NoError(err)
	s.Equal(uint64(0), state.TotalIssued)

	_, err = s.store.OwnerOf(ctx, 500)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestConcurrentIssuance verifies the row lock serializes transactions: every
// concurrent issuance reads fresh state and no unit id is assigned twice.
func (s *PostgresStoreSuite) TestConcurrentIssuance() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var failures atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := s.store.RunInTx(ctx, func(txCtx context.Context, st store.Store) error {
				state, err := st.GetState(txCtx)
				if err != nil {
					return err
				}
				id := models.UnitID(state.TotalIssued)
				if err := st.AssignUnits(txCtx, "addr-racer", []models.UnitID{id}); err != nil {
					return err
				}
				state.TotalIssued++
				return st.PutState(txCtx, state)
			})
			if err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(0), failures.Load(), "serialized transactions must never collide on unit ids")

	state, err := s.store.GetState(ctx)
	s.Require().NoError(err)
	s.Equal(uint64(goroutines), state.TotalIssued)

	count, err := s.store.CountOf(ctx, "addr-racer")
	s.Require().NoError(err)
	s.Equal(uint64(goroutines), count)
}
