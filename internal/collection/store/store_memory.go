package store

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"mintgate/internal/collection/models"
	"mintgate/pkg/platform/sentinel"
)

// MemoryStore keeps the whole aggregate in process memory. Default backend
// for development and unit tests.
//
// RunInTx holds one mutex for the duration of the callback, which also makes
// it the serialization point for every operation on the aggregate. Rollback
// is snapshot/restore: the aggregate is small (bounded by MaxSupply) so
// copying is cheap.
type MemoryStore struct {
	mu     sync.Mutex
	state  models.CollectionState
	owners map[models.UnitID]models.Address
	counts map[models.Address]uint64
}

// NewMemoryStore creates a store holding a fresh, unissued collection.
func NewMemoryStore(initial models.CollectionState) *MemoryStore {
	return &MemoryStore{
		state:  initial,
		owners: make(map[models.UnitID]models.Address),
		counts: make(map[models.Address]uint64),
	}
}

func (m *MemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	backupState := m.state
	backupOwners := maps.Clone(m.owners)
	backupCounts := maps.Clone(m.counts)

	if err := fn(ctx, &memoryTx{store: m}); err != nil {
		m.state = backupState
		m.owners = backupOwners
		m.counts = backupCounts
		return err
	}
	return nil
}

func (m *MemoryStore) GetState(ctx context.Context) (models.CollectionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

func (m *MemoryStore) PutState(ctx context.Context, state models.CollectionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	return nil
}

func (m *MemoryStore) AssignUnits(ctx context.Context, owner models.Address, ids []models.UnitID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assignLocked(owner, ids)
}

func (m *MemoryStore) OwnerOf(ctx context.Context, id models.UnitID) (models.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ownerOfLocked(id)
}

func (m *MemoryStore) CountOf(ctx context.Context, owner models.Address) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[owner], nil
}

func (m *MemoryStore) assignLocked(owner models.Address, ids []models.UnitID) error {
	for _, id := range ids {
		if _, exists := m.owners[id]; exists {
			return fmt.Errorf("unit %d already assigned: %w", id, sentinel.ErrConflict)
		}
	}
	for _, id := range ids {
		m.owners[id] = owner
	}
	m.counts[owner] += uint64(len(ids))
	return nil
}

func (m *MemoryStore) ownerOfLocked(id models.UnitID) (models.Address, error) {
	owner, ok := m.owners[id]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return owner, nil
}

// memoryTx is the tx-bound view handed to RunInTx callbacks. The outer mutex
// is already held, so it touches the maps directly.
type memoryTx struct {
	store *MemoryStore
}

func (t *memoryTx) GetState(ctx context.Context) (models.CollectionState, error) {
	return t.store.state, nil
}

func (t *memoryTx) PutState(ctx context.Context, state models.CollectionState) error {
	t.store.state = state
	return nil
}

func (t *memoryTx) AssignUnits(ctx context.Context, owner models.Address, ids []models.UnitID) error {
	return t.store.assignLocked(owner, ids)
}

func (t *memoryTx) OwnerOf(ctx context.Context, id models.UnitID) (models.Address, error) {
	return t.store.ownerOfLocked(id)
}

func (t *memoryTx) CountOf(ctx context.Context, owner models.Address) (uint64, error) {
	return t.store.counts[owner], nil
}
