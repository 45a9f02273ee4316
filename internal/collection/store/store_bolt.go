package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"mintgate/internal/collection/models"
	"mintgate/pkg/platform/sentinel"
)

var (
	bucketState  = []byte("state")
	bucketOwners = []byte("owners")
	bucketCounts = []byte("counts")

	keyState = []byte("collection")
)

// BoltStore persists the aggregate in an embedded bbolt file. Useful for
// single-binary deployments that need durability without a database server.
// bbolt serializes writers internally, so RunInTx inherits the single-writer
// guarantee the aggregate requires.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (creating if needed) the bolt file and seeds the state
// bucket with initial when the collection does not exist yet.
func OpenBolt(path string, initial models.CollectionState) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt store: %w", err)
	}
	err = db.Update(func(btx *bolt.Tx) error {
		sb, err := btx.CreateBucketIfNotExists(bucketState)
		if err != nil {
			return err
		}
		if _, err := btx.CreateBucketIfNotExists(bucketOwners); err != nil {
			return err
		}
		if _, err := btx.CreateBucketIfNotExists(bucketCounts); err != nil {
			return err
		}
		if sb.Get(keyState) != nil {
			return nil
		}
		raw, err := json.Marshal(initial)
		if err != nil {
			return err
		}
		return sb.Put(keyState, raw)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("seed bolt store: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Close releases the underlying file.
func (s *BoltStore) Close() error { return s.db.Close() }

func (s *BoltStore) RunInTx(ctx context.Context, fn func(ctx context.Context, st Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(btx *bolt.Tx) error {
		return fn(ctx, &boltTx{tx: btx})
	})
}

func (s *BoltStore) GetState(ctx context.Context) (models.CollectionState, error) {
	var state models.CollectionState
	err := s.db.View(func(btx *bolt.Tx) error {
		var err error
		state, err = readBoltState(btx)
		return err
	})
	return state, err
}

func (s *BoltStore) PutState(ctx context.Context, state models.CollectionState) error {
	return s.db.Update(func(btx *bolt.Tx) error {
		return writeBoltState(btx, state)
	})
}

func (s *BoltStore) AssignUnits(ctx context.Context, owner models.Address, ids []models.UnitID) error {
	return s.db.Update(func(btx *bolt.Tx) error {
		return assignBoltUnits(btx, owner, ids)
	})
}

func (s *BoltStore) OwnerOf(ctx context.Context, id models.UnitID) (models.Address, error) {
	var owner models.Address
	err := s.db.View(func(btx *bolt.Tx) error {
		var err error
		owner, err = boltOwnerOf(btx, id)
		return err
	})
	return owner, err
}

func (s *BoltStore) CountOf(ctx context.Context, owner models.Address) (uint64, error) {
	var count uint64
	err := s.db.View(func(btx *bolt.Tx) error {
		count = boltCountOf(btx, owner)
		return nil
	})
	return count, err
}

// boltTx is the tx-bound view handed to RunInTx callbacks.
type boltTx struct {
	tx *bolt.Tx
}

func (t *boltTx) GetState(ctx context.Context) (models.CollectionState, error) {
	return readBoltState(t.tx)
}

func (t *boltTx) PutState(ctx context.Context, state models.CollectionState) error {
	return writeBoltState(t.tx, state)
}

func (t *boltTx) AssignUnits(ctx context.Context, owner models.Address, ids []models.UnitID) error {
	return assignBoltUnits(t.tx, owner, ids)
}

func (t *boltTx) OwnerOf(ctx context.Context, id models.UnitID) (models.Address, error) {
	return boltOwnerOf(t.tx, id)
}

func (t *boltTx) CountOf(ctx context.Context, owner models.Address) (uint64, error) {
	return boltCountOf(t.tx, owner), nil
}

func readBoltState(btx *bolt.Tx) (models.CollectionState, error) {
	raw := btx.Bucket(bucketState).Get(keyState)
	if raw == nil {
		return models.CollectionState{}, fmt.Errorf("collection state missing: %w", sentinel.ErrNotFound)
	}
	var state models.CollectionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return models.CollectionState{}, fmt.Errorf("decode collection state: %w", err)
	}
	return state, nil
}

func writeBoltState(btx *bolt.Tx, state models.CollectionState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode collection state: %w", err)
	}
	return btx.Bucket(bucketState).Put(keyState, raw)
}

func assignBoltUnits(btx *bolt.Tx, owner models.Address, ids []models.UnitID) error {
	owners := btx.Bucket(bucketOwners)
	for _, id := range ids {
		if owners.Get(unitKey(id)) != nil {
			return fmt.Errorf("unit %d already assigned: %w", id, sentinel.ErrConflict)
		}
	}
	for _, id := range ids {
		if err := owners.Put(unitKey(id), []byte(owner)); err != nil {
			return fmt.Errorf("assign unit %d: %w", id, err)
		}
	}
	counts := btx.Bucket(bucketCounts)
	current := uint64(0)
	if raw := counts.Get([]byte(owner)); raw != nil {
		current = binary.BigEndian.Uint64(raw)
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, current+uint64(len(ids)))
	return counts.Put([]byte(owner), buf)
}

func boltOwnerOf(btx *bolt.Tx, id models.UnitID) (models.Address, error) {
	raw := btx.Bucket(bucketOwners).Get(unitKey(id))
	if raw == nil {
		return "", sentinel.ErrNotFound
	}
	return models.Address(raw), nil
}

func boltCountOf(btx *bolt.Tx, owner models.Address) uint64 {
	raw := btx.Bucket(bucketCounts).Get([]byte(owner))
	if raw == nil {
		return 0
	}
	return binary.BigEndian.Uint64(raw)
}

func unitKey(id models.UnitID) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}
