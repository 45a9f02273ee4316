package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"mintgate/internal/collection/models"
	"mintgate/pkg/platform/sentinel"
)

type BoltStoreSuite struct {
	suite.Suite
	store *BoltStore
	ctx   context.Context
}

func (s *BoltStoreSuite) SetupTest() {
	path := filepath.Join(s.T().TempDir(), "mintgate.db")
	store, err := OpenBolt(path, models.CollectionState{UnitPrice: 100})
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = store.Close() })
	s.store = store
	s.ctx = context.Background()
}

func TestBoltStoreSuite(t *testing.T) {
	suite.Run(t, new(BoltStoreSuite))
}

// TestSeedAndReopen verifies the initial state is seeded once and survives a
// reopen, and that an existing file is never re-seeded.
func (s *BoltStoreSuite) TestSeedAndReopen() {
	path := filepath.Join(s.T().TempDir(), "reopen.db")

	store, err := OpenBolt(path, models.CollectionState{UnitPrice: 100})
	s.Require().NoError(err)

	state, err := store.GetState(s.ctx)
	s.Require().NoError(err)
	state.TotalIssued = 12
	state.SaleActive = true
	s.Require().NoError(store.PutState(s.ctx, state))
	s.Require().NoError(store.Close())

	reopened, err := OpenBolt(path, models.CollectionState{UnitPrice: 999})
	s.Require().NoError(err)
	defer reopened.Close()

	got, err := reopened.GetState(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(12), got.TotalIssued)
	s.True(got.SaleActive)
	s.Equal(uint64(100), got.UnitPrice, "reopen must not overwrite an existing collection")
}

// TestOwnership verifies unit assignment, lookup and per-owner counts.
func (s *BoltStoreSuite) TestOwnership() {
	s.Run("assigns and looks up units", func() {
		err := s.store.AssignUnits(s.ctx, "addr-a", []models.UnitID{0, 1, 2})
		s.Require().NoError(err)

		owner, err := s.store.OwnerOf(s.ctx, 2)
		s.Require().NoError(err)
		s.Equal(models.Address("addr-a"), owner)

		count, err := s.store.CountOf(s.ctx, "addr-a")
		s.Require().NoError(err)
		s.Equal(uint64(3), count)
	})

	s.Run("returns ErrNotFound for unassigned unit", func() {
		_, err := s.store.OwnerOf(s.ctx, 404)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects double assignment", func() {
		s.Require().NoError(s.store.AssignUnits(s.ctx, "addr-b", []models.UnitID{10}))

		err := s.store.AssignUnits(s.ctx, "addr-c", []models.UnitID{10, 11})
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})
}

// TestRunInTx verifies that a failed callback discards every write of the
// bolt update.
func (s *BoltStoreSuite) TestRunInTx() {
	s.Run("commits on success", func() {
		err := s.store.RunInTx(s.ctx, func(ctx context.Context, st Store) error {
			state, err := st.GetState(ctx)
			if err != nil {
				return err
			}
			state.TotalIssued = 2
			if err := st.PutState(ctx, state); err != nil {
				return err
			}
			return st.AssignUnits(ctx, "addr-a", []models.UnitID{0, 1})
		})
		s.Require().NoError(err)

		state, err := s.store.GetState(s.ctx)
		s.Require().NoError(err)
		s.Equal(uint64(2), state.TotalIssued)
	})

	s.Run("discards every write on error", func() {
		boom := errors.New("boom")
		err := s.store.RunInTx(s.ctx, func(ctx context.Context, st Store) error {
			state, err := st.GetState(ctx)
			if err != nil {
				return err
			}
			state.TotalIssued = 999
			if err := st.PutState(ctx, state); err != nil {
				return err
			}
			if err := st.AssignUnits(ctx, "addr-x", []models.UnitID{500}); err != nil {
				return err
			}
			return boom
		})
		s.Require().ErrorIs(err, boom)

		state, err := s.store.GetState(s.ctx)
		s.Require().NoError(err)
		s.NotEqual(uint64(999), state.TotalIssued)

		_, err = s.store.OwnerOf(s.ctx, 500)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}
