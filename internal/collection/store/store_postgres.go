package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"mintgate/internal/collection/models"
	"mintgate/pkg/platform/sentinel"
	pkgtx "mintgate/pkg/platform/tx"
)

// PostgresStore persists the aggregate in PostgreSQL: a single-row state
// table plus a minted_units ownership ledger. This store is pure I/O; all
// issuance and fund rules belong in the services.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed contract store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Health reports database connectivity.
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the schema. Safe to call repeatedly.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS collection_state (
			id SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
			total_issued BIGINT NOT NULL,
			sale_active BOOLEAN NOT NULL,
			unit_price BIGINT NOT NULL,
			base_uri TEXT NOT NULL,
			provenance_hash TEXT NOT NULL,
			contract_balance BIGINT NOT NULL,
			earmarked_balance BIGINT NOT NULL,
			CHECK (earmarked_balance <= contract_balance)
		)`,
		`CREATE TABLE IF NOT EXISTS minted_units (
			unit_id BIGINT PRIMARY KEY,
			owner_address TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS minted_units_owner_idx ON minted_units (owner_address)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate contract store: %w", err)
		}
	}
	return nil
}

// InitState seeds the singleton row when the collection does not exist yet.
// An existing row is left untouched so restarts never reset the ledger.
func (s *PostgresStore) InitState(ctx context.Context, initial models.CollectionState) error {
	query := `
		INSERT INTO collection_state (id, total_issued, sale_active, unit_price, base_uri, provenance_hash, contract_balance, earmarked_balance)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		initial.TotalIssued,
		initial.SaleActive,
		initial.UnitPrice,
		initial.BaseURI,
		initial.ProvenanceHash,
		initial.ContractBalance,
		initial.EarmarkedBalance,
	)
	if err != nil {
		return fmt.Errorf("init collection state: %w", err)
	}
	return nil
}

// RunInTx executes fn inside one SQL transaction. The state row is locked
// FOR UPDATE first, which serializes every operation on the aggregate even
// when replicas share the database. The transaction rides the context, so
// every store call made with the callback's ctx lands inside it.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context, st Store) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	if _, err := sqlTx.ExecContext(ctx, `SELECT id FROM collection_state WHERE id = 1 FOR UPDATE`); err != nil {
		return fmt.Errorf("lock collection state: %w", err)
	}

	if err := fn(pkgtx.WithTx(ctx, sqlTx), s); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetState(ctx context.Context) (models.CollectionState, error) {
	return getState(ctx, s.q(ctx))
}

func (s *PostgresStore) PutState(ctx context.Context, state models.CollectionState) error {
	return putState(ctx, s.q(ctx), state)
}

func (s *PostgresStore) AssignUnits(ctx context.Context, owner models.Address, ids []models.UnitID) error {
	return assignUnits(ctx, s.q(ctx), owner, ids)
}

func (s *PostgresStore) OwnerOf(ctx context.Context, id models.UnitID) (models.Address, error) {
	return ownerOf(ctx, s.q(ctx), id)
}

func (s *PostgresStore) CountOf(ctx context.Context, owner models.Address) (uint64, error) {
	return countOf(ctx, s.q(ctx), owner)
}

// q resolves the active querier: an ambient transaction from context when
// present, the pool otherwise.
func (s *PostgresStore) q(ctx context.Context) querier {
	if sqlTx, ok := pkgtx.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getState(ctx context.Context, q querier) (models.CollectionState, error) {
	query := `
		SELECT total_issued, sale_active, unit_price, base_uri, provenance_hash, contract_balance, earmarked_balance
		FROM collection_state
		WHERE id = 1
	`
	var state models.CollectionState
	err := q.QueryRowContext(ctx, query).Scan(
		&state.TotalIssued,
		&state.SaleActive,
		&state.UnitPrice,
		&state.BaseURI,
		&state.ProvenanceHash,
		&state.ContractBalance,
		&state.EarmarkedBalance,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.CollectionState{}, fmt.Errorf("collection state missing: %w", sentinel.ErrNotFound)
		}
		return models.CollectionState{}, fmt.Errorf("get collection state: %w", err)
	}
	return state, nil
}

func putState(ctx context.Context, q querier, state models.CollectionState) error {
	query := `
		UPDATE collection_state
		SET total_issued = $1,
			sale_active = $2,
			unit_price = $3,
			base_uri = $4,
			provenance_hash = $5,
			contract_balance = $6,
			earmarked_balance = $7
		WHERE id = 1
	`
	_, err := q.ExecContext(ctx, query,
		state.TotalIssued,
		state.SaleActive,
		state.UnitPrice,
		state.BaseURI,
		state.ProvenanceHash,
		state.ContractBalance,
		state.EarmarkedBalance,
	)
	if err != nil {
		return fmt.Errorf("put collection state: %w", err)
	}
	return nil
}

func assignUnits(ctx context.Context, q querier, owner models.Address, ids []models.UnitID) error {
	query := `INSERT INTO minted_units (unit_id, owner_address) VALUES ($1, $2)`
	for _, id := range ids {
		if _, err := q.ExecContext(ctx, query, id, string(owner)); err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
				return fmt.Errorf("unit %d already assigned: %w", id, sentinel.ErrConflict)
			}
			return fmt.Errorf("assign unit %d: %w", id, err)
		}
	}
	return nil
}

func ownerOf(ctx context.Context, q querier, id models.UnitID) (models.Address, error) {
	var owner string
	err := q.QueryRowContext(ctx, `SELECT owner_address FROM minted_units WHERE unit_id = $1`, id).Scan(&owner)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("owner of unit %d: %w", id, err)
	}
	return models.Address(owner), nil
}

func countOf(ctx context.Context, q querier, owner models.Address) (uint64, error) {
	var count uint64
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM minted_units WHERE owner_address = $1`, string(owner)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count of owner %s: %w", owner, err)
	}
	return count, nil
}
