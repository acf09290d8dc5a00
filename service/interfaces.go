package service

import (
	"context"

	"huay/events"
	"huay/models"
)

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	// GetByID retrieves an account by its ID, or nil when absent
	GetByID(ctx context.Context, id int64) (*models.Account, error)

	// Create creates a new account
	Create(ctx context.Context, account *models.Account) error

	// GetAll returns all accounts
	GetAll(ctx context.Context) ([]*models.Account, error)

	// UpdateCreditIf swaps the account's credit from expected to newCredit.
	// Returns false without error when the current credit no longer equals
	// expected, so callers can retry against fresh state.
	UpdateCreditIf(ctx context.Context, id, expected, newCredit int64) (bool, error)
}

// BetRepository defines the interface for bet data access
type BetRepository interface {
	// Create creates a new bet with its lines
	Create(ctx context.Context, bet *models.Bet) error

	// GetByID retrieves a bet with its lines, or nil when absent
	GetByID(ctx context.Context, id int64) (*models.Bet, error)

	// GetPendingByPeriod returns all pending bets for a draw period
	GetPendingByPeriod(ctx context.Context, periodID string) ([]*models.Bet, error)

	// GetSettleablePeriods returns periods that have a published result
	// and at least one pending bet
	GetSettleablePeriods(ctx context.Context) ([]string, error)

	// TrySetStatus transitions a bet's status only if it currently holds
	// the from status. Returns false when the guard fails, which means a
	// concurrent settlement already claimed the bet.
	TrySetStatus(ctx context.Context, betID int64, from, to models.BetStatus, totalWinAmount int64) (bool, error)

	// UpdateLineOutcomes persists per-line win flags and amounts
	UpdateLineOutcomes(ctx context.Context, outcome *models.BetOutcome) error
}

// DrawResultRepository defines the interface for draw result data access
type DrawResultRepository interface {
	// Create stores a newly published draw result
	Create(ctx context.Context, result *models.DrawResult) error

	// GetByPeriod retrieves the result for a draw period, or nil when the
	// result has not been published yet
	GetByPeriod(ctx context.Context, periodID string) (*models.DrawResult, error)
}

// CreditTransactionRepository defines the interface for the append-only ledger
type CreditTransactionRepository interface {
	// Record appends a new credit transaction
	Record(ctx context.Context, txn *models.CreditTransaction) error

	// GetByAccount returns an account's transactions in chain order,
	// oldest first. A limit <= 0 returns the full history.
	GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.CreditTransaction, error)

	// SumByAccount folds the signed amounts of an account's transactions
	SumByAccount(ctx context.Context, accountID int64) (int64, error)
}

// LedgerService defines the interface for ledger operations
type LedgerService interface {
	// Apply adjusts an account's credit and appends the matching
	// transaction record as one atomic unit, retrying on lost races
	Apply(ctx context.Context, accountID int64, action models.CreditAction, amount int64, metadata map[string]any) (*models.CreditTransaction, error)

	// ApplyTx is Apply participating in the caller's unit of work; a lost
	// race surfaces ErrConcurrencyConflict so the caller can retry the
	// enclosing operation
	ApplyTx(ctx context.Context, uow UnitOfWork, accountID int64, action models.CreditAction, amount int64, metadata map[string]any) (*models.CreditTransaction, error)

	// VerifyChain recomputes the fold over an account's transaction log
	// and checks it against the cached credit value
	VerifyChain(ctx context.Context, accountID int64) error

	// GetHistory returns an account's most recent transactions
	GetHistory(ctx context.Context, accountID int64, limit int) ([]*models.CreditTransaction, error)
}

// CommissionService defines the interface for commission distribution
type CommissionService interface {
	// Distribute pays each upline tier its commission on the bet's stake.
	// Runs on both win and loss; a partially failed cascade returns the
	// committed transactions along with a *PartialCascadeError.
	Distribute(ctx context.Context, bet *models.Bet) ([]*models.CreditTransaction, error)
}

// SettlementSummary is the per-bet settlement result surfaced to callers
type SettlementSummary struct {
	BetID          int64
	Status         models.BetStatus
	TotalWinAmount int64
	AlreadySettled bool
	Commissions    []*models.CreditTransaction
}

// DrawSettlementSummary is the batch settlement result for one period
type DrawSettlementSummary struct {
	PeriodID string
	BatchID  string
	Settled  int
	Won      int
	Failed   int
	Failures map[int64]error
}

// SettlementService defines the interface for settlement operations
type SettlementService interface {
	// SettleBet settles a single bet against its period's published
	// result. Settling an already-settled bet is a no-op success.
	SettleBet(ctx context.Context, betID int64) (*SettlementSummary, error)

	// SettleDraw settles every pending bet for a period, bets in
	// parallel and independently of each other's failures
	SettleDraw(ctx context.Context, periodID string) (*DrawSettlementSummary, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	AccountRepository() AccountRepository
	BetRepository() BetRepository
	DrawResultRepository() DrawResultRepository
	CreditTransactionRepository() CreditTransactionRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// Create creates a new UnitOfWork instance
	Create() UnitOfWork
}
