package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"huay/events"
	"huay/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type settlementService struct {
	uowFactory UnitOfWorkFactory
	ledger     LedgerService
	commission CommissionService
	publisher  EventPublisher
}

// NewSettlementService creates a new settlement service
func NewSettlementService(uowFactory UnitOfWorkFactory, ledger LedgerService, commission CommissionService, publisher EventPublisher) SettlementService {
	return &settlementService{
		uowFactory: uowFactory,
		ledger:     ledger,
		commission: commission,
		publisher:  publisher,
	}
}

func (s *settlementService) SettleBet(ctx context.Context, betID int64) (*SettlementSummary, error) {
	summary, err := s.settleOnce(ctx, betID)
	if errors.Is(err, ErrAlreadySettled) {
		// Retried settlement requests are safe: report the stored outcome
		// without touching anything.
		log.WithField("betID", betID).Debug("bet already settled, treating as no-op")
		return summary, nil
	}
	return summary, err
}

// settleOnce performs the one-time pending -> won/lost transition. The
// status check-and-set, line outcomes and winner payout commit in a
// single unit of work, so concurrent attempts produce exactly one
// transition and one payout.
func (s *settlementService) settleOnce(ctx context.Context, betID int64) (*SettlementSummary, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bet, err := uow.BetRepository().GetByID(ctx, betID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet %d: %w", betID, err)
	}
	if bet == nil {
		return nil, fmt.Errorf("bet %d: %w", betID, ErrBetNotFound)
	}

	if bet.IsSettled() {
		return &SettlementSummary{
			BetID:          bet.ID,
			Status:         bet.Status,
			TotalWinAmount: bet.TotalWinAmount,
			AlreadySettled: true,
		}, ErrAlreadySettled
	}

	if err := models.ValidateBet(bet); err != nil {
		return nil, fmt.Errorf("bet %d failed validation: %w", betID, err)
	}

	result, err := uow.DrawResultRepository().GetByPeriod(ctx, bet.PeriodID)
	if err != nil {
		return nil, fmt.Errorf("failed to get draw result for period %s: %w", bet.PeriodID, err)
	}
	if result == nil {
		return nil, fmt.Errorf("period %s: %w", bet.PeriodID, ErrResultNotFound)
	}

	outcome := bet.Evaluate(result)

	claimed, err := uow.BetRepository().TrySetStatus(ctx, bet.ID, models.BetStatusPending, outcome.Status, outcome.TotalWinAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to transition bet %d: %w", bet.ID, err)
	}
	if !claimed {
		// A concurrent settlement won the transition; Evaluate is pure, so
		// the winner stored this same outcome.
		return &SettlementSummary{
			BetID:          bet.ID,
			Status:         outcome.Status,
			TotalWinAmount: outcome.TotalWinAmount,
			AlreadySettled: true,
		}, ErrAlreadySettled
	}

	if err := uow.BetRepository().UpdateLineOutcomes(ctx, outcome); err != nil {
		return nil, fmt.Errorf("failed to update line outcomes for bet %d: %w", bet.ID, err)
	}

	if outcome.Status == models.BetStatusWon {
		// Payout rides the settlement transaction: rolling back the credit
		// also rolls back the status claim, so a retry starts clean.
		if _, err := s.ledger.ApplyTx(ctx, uow, bet.AccountID, models.CreditActionAdd, outcome.TotalWinAmount, map[string]any{
			"bet_id":    bet.ID,
			"period_id": bet.PeriodID,
			"reason":    "bet_win",
		}); err != nil {
			return nil, fmt.Errorf("failed to credit winnings for bet %d: %w", bet.ID, err)
		}
	}

	uow.EventBus().Publish(events.BetSettledEvent{
		BetID:          bet.ID,
		AccountID:      bet.AccountID,
		PeriodID:       bet.PeriodID,
		Status:         outcome.Status,
		TotalWinAmount: outcome.TotalWinAmount,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit settlement of bet %d: %w", bet.ID, err)
	}

	log.WithFields(log.Fields{
		"betID":          bet.ID,
		"periodID":       bet.PeriodID,
		"status":         outcome.Status,
		"totalWinAmount": outcome.TotalWinAmount,
	}).Info("bet settled")

	summary := &SettlementSummary{
		BetID:          bet.ID,
		Status:         outcome.Status,
		TotalWinAmount: outcome.TotalWinAmount,
	}

	// Only the attempt that claimed the transition cascades, so commission
	// is distributed exactly once per bet.
	commissions, err := s.commission.Distribute(ctx, bet)
	summary.Commissions = commissions
	if err != nil {
		var partial *PartialCascadeError
		if errors.As(err, &partial) {
			return summary, err
		}
		return summary, fmt.Errorf("commission cascade for bet %d failed: %w", bet.ID, err)
	}

	return summary, nil
}

func (s *settlementService) SettleDraw(ctx context.Context, periodID string) (*DrawSettlementSummary, error) {
	betIDs, err := s.pendingBetIDs(ctx, periodID)
	if err != nil {
		return nil, err
	}

	summary := &DrawSettlementSummary{
		PeriodID: periodID,
		BatchID:  uuid.NewString(),
		Failures: make(map[int64]error),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup

	// Bets settle independently: one bet's failure neither blocks nor
	// rolls back the others.
	for _, betID := range betIDs {
		wg.Add(1)
		go func(betID int64) {
			defer wg.Done()

			betSummary, err := s.SettleBet(ctx, betID)

			mu.Lock()
			defer mu.Unlock()
			if betSummary != nil {
				summary.Settled++
				if betSummary.Status == models.BetStatusWon {
					summary.Won++
				}
			}
			if err != nil {
				summary.Failed++
				summary.Failures[betID] = err
			}
		}(betID)
	}
	wg.Wait()

	log.WithFields(log.Fields{
		"periodID": periodID,
		"batchID":  summary.BatchID,
		"settled":  summary.Settled,
		"won":      summary.Won,
		"failed":   summary.Failed,
	}).Info("draw settlement complete")

	if s.publisher != nil {
		s.publisher.Publish(events.DrawSettledEvent{
			PeriodID: periodID,
			BatchID:  summary.BatchID,
			Settled:  summary.Settled,
			Won:      summary.Won,
			Failed:   summary.Failed,
		})
	}

	return summary, nil
}

// pendingBetIDs confirms the period has a published result and snapshots
// the pending bets to settle.
func (s *settlementService) pendingBetIDs(ctx context.Context, periodID string) ([]int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	result, err := uow.DrawResultRepository().GetByPeriod(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to get draw result for period %s: %w", periodID, err)
	}
	if result == nil {
		return nil, fmt.Errorf("period %s: %w", periodID, ErrResultNotFound)
	}

	bets, err := uow.BetRepository().GetPendingByPeriod(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending bets for period %s: %w", periodID, err)
	}

	ids := make([]int64, 0, len(bets))
	for _, bet := range bets {
		ids = append(ids, bet.ID)
	}
	return ids, nil
}
