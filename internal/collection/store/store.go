package store

import (
	"context"

	"mintgate/internal/collection/models"
)

// ContractStore is pure I/O over the collection aggregate: the singleton
// state row plus the unit ownership ledger. All domain rules live in the
// services; stores only load and persist.
//
// Mutations run inside RunInTx. The runner hands the callback a context and
// a Store bound to one transaction; if the callback returns an error every
// write made through that Store is discarded. Backends differ in mechanism
// (ambient SQL tx in context, bolt update, snapshot/restore for memory) but
// not in contract.
type Store interface {
	GetState(ctx context.Context) (models.CollectionState, error)
	PutState(ctx context.Context, state models.CollectionState) error

	// AssignUnits appends ownership records for freshly issued ids. Fails
	// with sentinel.ErrConflict if any id is already assigned.
	AssignUnits(ctx context.Context, owner models.Address, ids []models.UnitID) error

	// OwnerOf returns sentinel.ErrNotFound for unassigned ids.
	OwnerOf(ctx context.Context, id models.UnitID) (models.Address, error)
	CountOf(ctx context.Context, owner models.Address) (uint64, error)
}

// TxRunner is the transactional boundary over a ContractStore. Callbacks
// must use the context they are handed: backends may bind the transaction to
// it.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}
