// Package service implements the fund ledger: the split of held funds
// between the designated beneficiary (earmarked) and the administrator
// (remainder), and the two settlement paths over it.
package service

import (
	"context"
	"log/slog"

	"mintgate/internal/collection/models"
	"mintgate/internal/collection/store"
	"mintgate/internal/funds/treasury"
	"mintgate/internal/platform/metrics"
	pkgerrors "mintgate/pkg/domain-errors"
	request "mintgate/pkg/platform/middleware/request"
)

// Service settles the two halves of the fund ledger. It shares the
// SerialRunner with the collection service so settlements serialize against
// mints.
type Service struct {
	runner   store.TxRunner
	treasury treasury.Client
	metrics  *metrics.Metrics
	logger   *slog.Logger

	beneficiary models.Address
	adminPayout models.Address
}

func New(
	runner store.TxRunner,
	client treasury.Client,
	m *metrics.Metrics,
	logger *slog.Logger,
	beneficiary, adminPayout models.Address,
) *Service {
	return &Service{
		runner:      runner,
		treasury:    client,
		metrics:     m,
		logger:      logger,
		beneficiary: beneficiary,
		adminPayout: adminPayout,
	}
}

// Settle forwards the entire earmarked balance to the designated
// beneficiary. Deliberately permissionless: it moves funds only to the fixed
// destination, so any caller triggering it changes nothing discretionary.
//
// The earmark is zeroed in durable state before the outbound transfer is
// attempted, so nothing observing state mid-transfer can re-settle the same
// funds. A rejected transfer fails the operation and rolls the zeroing back.
func (s *Service) Settle(ctx context.Context) (uint64, error) {
	var (
		amount    uint64
		committed models.CollectionState
	)

	err := s.runner.RunInTx(ctx, func(ctx context.Context, st store.Store) error {
		state, err := st.GetState(ctx)
		if err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "load collection state")
		}

		if state.EarmarkedBalance == 0 {
			return pkgerrors.New(pkgerrors.CodeNothingToSettle, "no earmarked funds to settle")
		}

		amount = state.EarmarkedBalance
		state.EarmarkedBalance = 0
		state.ContractBalance -= amount
		// State update precedes the external transfer; the runner unwinds it
		// if the transfer fails.
		if err := st.PutState(ctx, state); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "persist collection state")
		}

		if err := s.treasury.Transfer(ctx, s.beneficiary, amount); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeTransferFailed, "transfer to beneficiary rejected")
		}

		committed = state
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.metrics.SettlementsTotal.Inc()
	s.metrics.ObserveBalances(committed.ContractBalance, committed.EarmarkedBalance)
	s.logger.InfoContext(ctx, "earmarked funds settled",
		"amount", amount,
		"beneficiary", s.beneficiary,
		"request_id", request.GetRequestID(ctx),
	)
	return amount, nil
}

// Withdraw transfers the administrator's share, everything held beyond the
// earmarked balance, to the administrator payout address.
func (s *Service) Withdraw(ctx context.Context) (uint64, error) {
	var (
		amount    uint64
		committed models.CollectionState
	)

	err := s.runner.RunInTx(ctx, func(ctx context.Context, st store.Store) error {
		state, err := st.GetState(ctx)
		if err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "load collection state")
		}

		amount = state.WithdrawableBalance()
		if amount == 0 {
			return pkgerrors.New(pkgerrors.CodeNothingToWithdraw, "no withdrawable funds")
		}

		state.ContractBalance -= amount
		if err := st.PutState(ctx, state); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "persist collection state")
		}

		if err := s.treasury.Transfer(ctx, s.adminPayout, amount); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeTransferFailed, "transfer to administrator rejected")
		}

		committed = state
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.metrics.WithdrawalsTotal.Inc()
	s.metrics.ObserveBalances(committed.ContractBalance, committed.EarmarkedBalance)
	s.logger.InfoContext(ctx, "administrator withdrawal",
		"amount", amount,
		"request_id", request.GetRequestID(ctx),
	)
	return amount, nil
}
