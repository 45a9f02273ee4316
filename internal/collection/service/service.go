package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mintgate/internal/collection/models"
	"mintgate/internal/collection/store"
	"mintgate/internal/events"
	"mintgate/internal/oracle"
	"mintgate/internal/platform/metrics"
	pkgerrors "mintgate/pkg/domain-errors"
	request "mintgate/pkg/platform/middleware/request"
	"mintgate/pkg/platform/sentinel"
)

// Service owns issuance: public mints, the one-time team bootstrap, the
// administrator setters, and the read surface. Fund settlement lives in the
// funds service; both run behind the same SerialRunner.
type Service struct {
	runner store.TxRunner
	reader store.Store

	oracle  oracle.Verifier
	events  events.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer

	// adminAddress receives team-minted units.
	adminAddress models.Address
}

func New(
	runner store.TxRunner,
	reader store.Store,
	verifier oracle.Verifier,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	adminAddress models.Address,
) *Service {
	return &Service{
		runner:       runner,
		reader:       reader,
		oracle:       verifier,
		events:       publisher,
		metrics:      m,
		logger:       logger,
		tracer:       otel.Tracer("mintgate/collection"),
		adminAddress: adminAddress,
	}
}

// Mint issues quantity sequential units to caller against payment.
//
// Preconditions are checked in a fixed order (sale active, supply, quantity,
// payment) and the first failure aborts with no state change. The oracle is
// consulted after the checks and before any mutation, so the one external
// failure point sits ahead of the writes. A verified caller's full payment,
// overpayment included, is earmarked for the designated fund destination and
// a mint event is emitted; an unverified caller's payment stays
// administrator-withdrawable.
func (s *Service) Mint(ctx context.Context, caller models.Address, quantity, payment uint64) (models.MintReceipt, error) {
	start := time.Now()
	var (
		receipt   models.MintReceipt
		committed models.CollectionState
	)

	err := s.runner.RunInTx(ctx, func(ctx context.Context, st store.Store) error {
		state, err := st.GetState(ctx)
		if err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "load collection state")
		}

		if !state.SaleActive {
			return pkgerrors.New(pkgerrors.CodeSaleInactive, "sale is not active")
		}
		if quantity > models.MaxSupply-state.TotalIssued {
			return pkgerrors.New(pkgerrors.CodeSupplyExceeded, "mint would exceed max supply")
		}
		if quantity == 0 || quantity > models.MaxMintPerTx {
			return pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity must be between 1 and 10")
		}
		// payment/quantity avoids overflowing UnitPrice*quantity; the integer
		// division is exact for this comparison.
		if payment/quantity < state.UnitPrice {
			return pkgerrors.New(pkgerrors.CodeInsufficientPayment, "attached payment below unit price times quantity")
		}
		if payment > math.MaxUint64-state.ContractBalance {
			return pkgerrors.New(pkgerrors.CodeBadRequest, "payment would wrap the held balance")
		}

		verified, err := s.verify(ctx, caller)
		if err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "identity oracle unavailable")
		}

		ids := nextIDs(state.TotalIssued, quantity)
		if err := st.AssignUnits(ctx, caller, ids); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "assign units")
		}

		state.TotalIssued += quantity
		state.ContractBalance += payment
		if verified {
			state.EarmarkedBalance += payment
		}
		if err := st.PutState(ctx, state); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "persist collection state")
		}

		receipt = models.MintReceipt{
			ReceiptID: uuid.NewString(),
			Caller:    caller,
			UnitIDs:   ids,
			Payment:   payment,
			Verified:  verified,
			MintedAt:  time.Now().UTC(),
		}
		committed = state
		return nil
	})
	if err != nil {
		return models.MintReceipt{}, err
	}

	s.metrics.ObserveBalances(committed.ContractBalance, committed.EarmarkedBalance)
	s.metrics.MintsTotal.WithLabelValues("public", boolLabel(receipt.Verified)).Inc()
	s.metrics.UnitsIssuedTotal.Add(float64(quantity))
	s.metrics.MintDuration.Observe(time.Since(start).Seconds())

	if receipt.Verified {
		s.events.PublishMinted(ctx, models.MintedEvent{
			ReceiptID: receipt.ReceiptID,
			Caller:    receipt.Caller,
			UnitIDs:   receipt.UnitIDs,
			Payment:   receipt.Payment,
			MintedAt:  receipt.MintedAt,
			RequestID: request.GetRequestID(ctx),
		})
	}

	s.logger.InfoContext(ctx, "mint committed",
		"caller", receipt.Caller,
		"quantity", quantity,
		"first_id", receipt.UnitIDs[0],
		"verified", receipt.Verified,
		"request_id", request.GetRequestID(ctx),
	)
	return receipt, nil
}

// TeamMint issues free units to the administrator. Available exactly until
// the first issuance of any kind; after that it is closed for good.
func (s *Service) TeamMint(ctx context.Context, quantity uint64) (models.MintReceipt, error) {
	var receipt models.MintReceipt

	err := s.runner.RunInTx(ctx, func(ctx context.Context, st store.Store) error {
		state, err := st.GetState(ctx)
		if err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "load collection state")
		}

		if !state.BootstrapOpen() {
			return pkgerrors.New(pkgerrors.CodeBootstrapClosed, "bootstrap mint is closed after first issuance")
		}
		if quantity == 0 || quantity > models.MaxMintPerTx {
			return pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity must be between 1 and 10")
		}

		ids := nextIDs(state.TotalIssued, quantity)
		if err := st.AssignUnits(ctx, s.adminAddress, ids); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "assign units")
		}

		state.TotalIssued += quantity
		if err := st.PutState(ctx, state); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "persist collection state")
		}

		receipt = models.MintReceipt{
			ReceiptID: uuid.NewString(),
			Caller:    s.adminAddress,
			UnitIDs:   ids,
			MintedAt:  time.Now().UTC(),
		}
		return nil
	})
	if err != nil {
		return models.MintReceipt{}, err
	}

	s.metrics.MintsTotal.WithLabelValues("team", "false").Inc()
	s.metrics.UnitsIssuedTotal.Add(float64(quantity))

	s.logger.InfoContext(ctx, "team mint committed",
		"quantity", quantity,
		"first_id", receipt.UnitIDs[0],
	)
	return receipt, nil
}

// SetSaleActive flips the public sale gate.
func (s *Service) SetSaleActive(ctx context.Context, active bool) error {
	return s.updateState(ctx, func(state *models.CollectionState) {
		state.SaleActive = active
	})
}

// SetUnitPrice overwrites the per-unit price.
func (s *Service) SetUnitPrice(ctx context.Context, price uint64) error {
	return s.updateState(ctx, func(state *models.CollectionState) {
		state.UnitPrice = price
	})
}

// SetBaseURI overwrites the metadata prefix.
func (s *Service) SetBaseURI(ctx context.Context, baseURI string) error {
	return s.updateState(ctx, func(state *models.CollectionState) {
		state.BaseURI = baseURI
	})
}

// SetProvenanceHash overwrites the provenance fingerprint. Intentionally not
// write-once: the field records intent, it does not enforce it.
func (s *Service) SetProvenanceHash(ctx context.Context, hash string) error {
	return s.updateState(ctx, func(state *models.CollectionState) {
		state.ProvenanceHash = hash
	})
}

func (s *Service) updateState(ctx context.Context, mutate func(*models.CollectionState)) error {
	return s.runner.RunInTx(ctx, func(ctx context.Context, st store.Store) error {
		state, err := st.GetState(ctx)
		if err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "load collection state")
		}
		mutate(&state)
		if err := st.PutState(ctx, state); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "persist collection state")
		}
		return nil
	})
}

// State returns the current collection snapshot.
func (s *Service) State(ctx context.Context) (models.CollectionState, error) {
	state, err := s.reader.GetState(ctx)
	if err != nil {
		return models.CollectionState{}, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "load collection state")
	}
	return state, nil
}

// OwnerOf resolves the current owner of an issued unit.
func (s *Service) OwnerOf(ctx context.Context, id models.UnitID) (models.Address, error) {
	owner, err := s.reader.OwnerOf(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", pkgerrors.New(pkgerrors.CodeUnknownUnit, "unit has not been issued")
		}
		return "", pkgerrors.Wrap(err, pkgerrors.CodeInternal, "look up unit owner")
	}
	return owner, nil
}

// CountOf returns how many units an address owns.
func (s *Service) CountOf(ctx context.Context, owner models.Address) (uint64, error) {
	count, err := s.reader.CountOf(ctx, owner)
	if err != nil {
		return 0, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "count units")
	}
	return count, nil
}

// TokenURI resolves the metadata location of an issued unit.
func (s *Service) TokenURI(ctx context.Context, id models.UnitID) (string, error) {
	state, err := s.reader.GetState(ctx)
	if err != nil {
		return "", pkgerrors.Wrap(err, pkgerrors.CodeInternal, "load collection state")
	}
	if uint64(id) >= state.TotalIssued {
		return "", pkgerrors.New(pkgerrors.CodeUnknownUnit, "unit has not been issued")
	}
	return models.TokenURI(state.BaseURI, id), nil
}

// verify queries the identity oracle, fresh every call, under a span so the
// external hop shows up in traces.
func (s *Service) verify(ctx context.Context, caller models.Address) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "oracle.IsVerified",
		trace.WithAttributes(attribute.String("caller", string(caller))),
	)
	defer span.End()
	return s.oracle.IsVerified(ctx, caller)
}

func nextIDs(totalIssued, quantity uint64) []models.UnitID {
	ids := make([]models.UnitID, 0, quantity)
	for i := uint64(0); i < quantity; i++ {
		ids = append(ids, models.UnitID(totalIssued+i))
	}
	return ids
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
