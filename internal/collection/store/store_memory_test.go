package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"mintgate/internal/collection/models"
	"mintgate/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *MemoryStore
	ctx   context.Context
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemoryStore(models.CollectionState{UnitPrice: 100})
	s.ctx = context.Background()
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

// TestStateRoundTrip verifies the singleton state row persists what was put.
func (s *MemoryStoreSuite) TestStateRoundTrip() {
	state, err := s.store.GetState(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(100), state.UnitPrice)

	state.TotalIssued = 7
	state.SaleActive = true
	s.Require().NoError(s.store.PutState(s.ctx, state))

	got, err := s.store.GetState(s.ctx)
	s.Require().NoError(err)
	s.Equal(state, got)
}

// TestOwnership verifies unit assignment, lookup and per-owner counts.
func (s *MemoryStoreSuite) TestOwnership() {
	s.Run("assigns and looks up units", func() {
		err := s.store.AssignUnits(s.ctx, "addr-a", []models.UnitID{0, 1, 2})
		s.Require().NoError(err)

		owner, err := s.store.OwnerOf(s.ctx, 1)
		s.Require().NoError(err)
		s.Equal(models.Address("addr-a"), owner)

		count, err := s.store.CountOf(s.ctx, "addr-a")
		s.Require().NoError(err)
		s.Equal(uint64(3), count)
	})

	s.Run("returns ErrNotFound for unassigned unit", func() {
		_, err := s.store.OwnerOf(s.ctx, 99)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects double assignment", func() {
		s.Require().NoError(s.store.AssignUnits(s.ctx, "addr-b", []models.UnitID{10}))

		err := s.store.AssignUnits(s.ctx, "addr-c", []models.UnitID{10, 11})
		s.Require().ErrorIs(err, sentinel.ErrConflict)

		// The failed batch must not leave partial assignments.
		_, err = s.store.OwnerOf(s.ctx, 11)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("counts are zero for unknown owners", func() {
		count, err := s.store.CountOf(s.ctx, "addr-nobody")
		s.Require().NoError(err)
		s.Equal(uint64(0), count)
	})
}

// TestRunInTx verifies commit and rollback semantics of the tx-bound view.
func (s *MemoryStoreSuite) TestRunInTx() {
	s.Run("commits on success", func() {
		err := s.store.RunInTx(s.ctx, func(ctx context.Context, st Store) error {
			state, err := st.GetState(ctx)
			if err != nil {
				return err
			}
			state.TotalIssued = 3
			if err := st.PutState(ctx, state); err != nil {
				return err
			}
			return st.AssignUnits(ctx, "addr-a", []models.UnitID{0, 1, 2})
		})
		s.Require().NoError(err)

		state, err := s.store.GetState(s.ctx)
		s.Require().NoError(err)
		s.Equal(uint64(3), state.TotalIssued)

		count, err := s.store.CountOf(s.ctx, "addr-a")
		s.Require().NoError(err)
		s.Equal(uint64(3), count)
	})

	s.Run("discards every write on error", func() {
		boom := errors.New("boom")
		err := s.store.RunInTx(s.ctx, func(ctx context.Context, st Store) error {
			state, err := st.GetState(ctx)
			if err != nil {
				return err
			}
			state.TotalIssued = 500
			if err := st.PutState(ctx, state); err != nil {
				return err
			}
			if err := st.AssignUnits(ctx, "addr-x", []models.UnitID{100}); err != nil {
				return err
			}
			return boom
		})
		s.Require().ErrorIs(err, boom)

		state, err := s.store.GetState(s.ctx)
		s.Require().NoError(err)
		s.NotEqual(uint64(500), state.TotalIssued)

		_, err = s.store.OwnerOf(s.ctx, 100)
		s.ErrorIs(err, sentinel.ErrNotFound)

		count, err := s.store.CountOf(s.ctx, "addr-x")
		s.Require().NoError(err)
		s.Equal(uint64(0), count)
	})

	s.Run("rejects a cancelled context", func() {
		ctx, cancel := context.WithCancel(s.ctx)
		cancel()

		err := s.store.RunInTx(ctx, func(context.Context, Store) error { return nil })
		s.ErrorIs(err, context.Canceled)
	})
}
