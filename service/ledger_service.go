package service

import (
	"context"
	"errors"
	"fmt"

	"huay/events"
	"huay/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// defaultLedgerAttempts bounds the optimistic retry loop on credit swaps
const defaultLedgerAttempts = 5

type ledgerService struct {
	uowFactory  UnitOfWorkFactory
	maxAttempts int
}

// NewLedgerService creates a new ledger service
func NewLedgerService(uowFactory UnitOfWorkFactory, maxAttempts int) LedgerService {
	if maxAttempts <= 0 {
		maxAttempts = defaultLedgerAttempts
	}
	return &ledgerService{
		uowFactory:  uowFactory,
		maxAttempts: maxAttempts,
	}
}

func (s *ledgerService) Apply(ctx context.Context, accountID int64, action models.CreditAction, amount int64, metadata map[string]any) (*models.CreditTransaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %d", amount)
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		txn, err := s.tryApply(ctx, accountID, action, amount, metadata)
		if errors.Is(err, ErrConcurrencyConflict) {
			log.WithFields(log.Fields{
				"accountID": accountID,
				"attempt":   attempt,
			}).Debug("credit swap lost a race, retrying")
			continue
		}
		return txn, err
	}

	return nil, fmt.Errorf("account %d: gave up after %d attempts: %w", accountID, s.maxAttempts, ErrConcurrencyConflict)
}

// tryApply runs one optimistic attempt in its own unit of work
func (s *ledgerService) tryApply(ctx context.Context, accountID int64, action models.CreditAction, amount int64, metadata map[string]any) (*models.CreditTransaction, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	txn, err := applyCredit(ctx, uow, accountID, action, amount, metadata)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return txn, nil
}

func (s *ledgerService) ApplyTx(ctx context.Context, uow UnitOfWork, accountID int64, action models.CreditAction, amount int64, metadata map[string]any) (*models.CreditTransaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %d", amount)
	}
	return applyCredit(ctx, uow, accountID, action, amount, metadata)
}

// applyCredit performs one ledger adjustment inside the caller's unit of
// work: the credit read, the conditional swap and the transaction append
// commit or roll back together.
func applyCredit(ctx context.Context, uow UnitOfWork, accountID int64, action models.CreditAction, amount int64, metadata map[string]any) (*models.CreditTransaction, error) {
	account, err := uow.AccountRepository().GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", accountID, err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %d: %w", accountID, ErrAccountNotFound)
	}

	var creditAfter int64
	switch action {
	case models.CreditActionAdd:
		creditAfter = account.Credit + amount
	case models.CreditActionDeduct:
		if account.Credit < amount {
			return nil, fmt.Errorf("account %d: have %d, need %d: %w", accountID, account.Credit, amount, ErrInsufficientCredit)
		}
		creditAfter = account.Credit - amount
	default:
		return nil, fmt.Errorf("unknown credit action %q", action)
	}

	swapped, err := uow.AccountRepository().UpdateCreditIf(ctx, accountID, account.Credit, creditAfter)
	if err != nil {
		return nil, fmt.Errorf("failed to update credit for account %d: %w", accountID, err)
	}
	if !swapped {
		return nil, fmt.Errorf("account %d: %w", accountID, ErrConcurrencyConflict)
	}

	txn := &models.CreditTransaction{
		Reference:    uuid.NewString(),
		AccountID:    accountID,
		Action:       action,
		Amount:       amount,
		CreditBefore: account.Credit,
		CreditAfter:  creditAfter,
		Metadata:     metadata,
	}
	if err := txn.Validate(); err != nil {
		return nil, fmt.Errorf("refusing inconsistent transaction: %w", err)
	}

	if err := uow.CreditTransactionRepository().Record(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to record credit transaction: %w", err)
	}

	uow.EventBus().Publish(events.CreditAppliedEvent{
		AccountID:    accountID,
		Reference:    txn.Reference,
		Action:       action,
		Amount:       amount,
		CreditBefore: txn.CreditBefore,
		CreditAfter:  txn.CreditAfter,
	})

	return txn, nil
}

func (s *ledgerService) VerifyChain(ctx context.Context, accountID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to get account %d: %w", accountID, err)
	}
	if account == nil {
		return fmt.Errorf("account %d: %w", accountID, ErrAccountNotFound)
	}

	txns, err := uow.CreditTransactionRepository().GetByAccount(ctx, accountID, 0)
	if err != nil {
		return fmt.Errorf("failed to load ledger for account %d: %w", accountID, err)
	}
	if len(txns) == 0 {
		return nil
	}

	running := txns[0].CreditBefore
	for _, txn := range txns {
		if err := txn.Validate(); err != nil {
			return fmt.Errorf("transaction %d (%s): %w", txn.ID, txn.Reference, err)
		}
		if txn.CreditBefore != running {
			return fmt.Errorf("chain gap at transaction %d: credit before is %d, previous credit after was %d",
				txn.ID, txn.CreditBefore, running)
		}
		running = txn.CreditAfter
	}

	if running != account.Credit {
		return fmt.Errorf("ledger fold %d does not match cached credit %d for account %d",
			running, account.Credit, accountID)
	}
	return nil
}

func (s *ledgerService) GetHistory(ctx context.Context, accountID int64, limit int) ([]*models.CreditTransaction, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	txns, err := uow.CreditTransactionRepository().GetByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger for account %d: %w", accountID, err)
	}
	return txns, nil
}
