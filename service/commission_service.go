package service

import (
	"context"
	"fmt"

	"huay/events"
	"huay/models"

	log "github.com/sirupsen/logrus"
)

// maxChainDepth guards the parent walk against corrupted hierarchies;
// real chains are member -> agent -> master.
const maxChainDepth = 16

type commissionService struct {
	uowFactory UnitOfWorkFactory
	ledger     LedgerService
	publisher  EventPublisher
}

// NewCommissionService creates a new commission service
func NewCommissionService(uowFactory UnitOfWorkFactory, ledger LedgerService, publisher EventPublisher) CommissionService {
	return &commissionService{
		uowFactory: uowFactory,
		ledger:     ledger,
		publisher:  publisher,
	}
}

func (s *commissionService) Distribute(ctx context.Context, bet *models.Bet) ([]*models.CreditTransaction, error) {
	tiers, err := s.resolveUpline(ctx, bet.AccountID)
	if err != nil {
		return nil, err
	}

	var recorded []*models.CreditTransaction
	var succeeded []int64
	failed := make(map[int64]error)

	// Nearest parent first, up to the root. Each tier's ledger entry is
	// its own unit of work; earlier tiers stay committed if a later one
	// fails.
	for _, tier := range tiers {
		amount := tierCommission(tier, bet)
		if amount == 0 {
			continue
		}

		txn, err := s.ledger.Apply(ctx, tier.ID, models.CreditActionAdd, amount, map[string]any{
			"bet_id":     bet.ID,
			"period_id":  bet.PeriodID,
			"category":   bet.Category,
			"member_id":  bet.AccountID,
			"tier_type":  string(tier.AccountType),
			"commission": true,
		})
		if err != nil {
			failed[tier.ID] = err
			log.WithError(err).WithFields(log.Fields{
				"betID":     bet.ID,
				"accountID": tier.ID,
				"amount":    amount,
			}).Error("failed to record tier commission")
			continue
		}

		recorded = append(recorded, txn)
		succeeded = append(succeeded, tier.ID)
	}

	if s.publisher != nil {
		s.publisher.Publish(events.CommissionDistributedEvent{
			BetID:      bet.ID,
			StakeTotal: bet.StakeTotal(),
			TierCount:  len(recorded),
			Partial:    len(failed) > 0,
		})
	}

	if len(failed) > 0 {
		return recorded, &PartialCascadeError{
			BetID:     bet.ID,
			Succeeded: succeeded,
			Failed:    failed,
		}
	}
	return recorded, nil
}

// resolveUpline walks the parent chain from the placing account's
// immediate parent up to the root, in deterministic cascade order.
func (s *commissionService) resolveUpline(ctx context.Context, accountID int64) ([]*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	placing, err := uow.AccountRepository().GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", accountID, err)
	}
	if placing == nil {
		return nil, fmt.Errorf("account %d: %w", accountID, ErrAccountNotFound)
	}

	var tiers []*models.Account
	seen := map[int64]bool{placing.ID: true}
	current := placing

	for current.ParentID != nil {
		if len(tiers) >= maxChainDepth {
			return nil, fmt.Errorf("ownership chain for account %d exceeds depth %d", accountID, maxChainDepth)
		}

		parent, err := uow.AccountRepository().GetByID(ctx, *current.ParentID)
		if err != nil {
			return nil, fmt.Errorf("failed to get parent account %d: %w", *current.ParentID, err)
		}
		if parent == nil {
			return nil, fmt.Errorf("parent account %d: %w", *current.ParentID, ErrAccountNotFound)
		}
		if seen[parent.ID] {
			return nil, fmt.Errorf("ownership chain cycle at account %d", parent.ID)
		}

		seen[parent.ID] = true
		tiers = append(tiers, parent)
		current = parent
	}

	return tiers, nil
}

// tierCommission sums stake x rate / 100 across the bet's lines for one
// tier. Commission is a share of stake, so it accrues whether the bet
// won or lost.
func tierCommission(tier *models.Account, bet *models.Bet) int64 {
	var total int64
	for _, l := range bet.Lines {
		rate := tier.CommissionRate(bet.Category, l.BetType)
		total += l.Stake * rate / 100
	}
	return total
}
