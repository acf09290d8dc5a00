package repository

import (
	"context"
	"fmt"

	"huay/database"
	"huay/models"
)

// CreditTransactionRepository implements the CreditTransactionRepository interface
type CreditTransactionRepository struct {
	q queryable
}

// NewCreditTransactionRepository creates a new credit transaction repository
func NewCreditTransactionRepository(db *database.DB) *CreditTransactionRepository {
	return &CreditTransactionRepository{q: db.Pool}
}

// newCreditTransactionRepositoryWithTx creates a new credit transaction repository with a transaction
func newCreditTransactionRepositoryWithTx(tx queryable) *CreditTransactionRepository {
	return &CreditTransactionRepository{q: tx}
}

// Record appends a new credit transaction. Rows are never updated or
// deleted afterwards.
func (r *CreditTransactionRepository) Record(ctx context.Context, txn *models.CreditTransaction) error {
	query := `
		INSERT INTO credit_transactions (reference, account_id, action, amount, credit_before, credit_after, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		txn.Reference,
		txn.AccountID,
		txn.Action,
		txn.Amount,
		txn.CreditBefore,
		txn.CreditAfter,
		txn.Metadata,
	).Scan(&txn.ID, &txn.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record credit transaction for account %d: %w", txn.AccountID, err)
	}

	return nil
}

// GetByAccount returns an account's transactions in chain order, oldest
// first. A limit <= 0 returns the full history; a positive limit returns
// the most recent transactions, still oldest first.
func (r *CreditTransactionRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.CreditTransaction, error) {
	query := `
		SELECT id, reference, account_id, action, amount, credit_before, credit_after, metadata, created_at
		FROM credit_transactions
		WHERE account_id = $1
		ORDER BY id
	`
	args := []any{accountID}

	if limit > 0 {
		query = `
			SELECT id, reference, account_id, action, amount, credit_before, credit_after, metadata, created_at
			FROM (
				SELECT id, reference, account_id, action, amount, credit_before, credit_after, metadata, created_at
				FROM credit_transactions
				WHERE account_id = $1
				ORDER BY id DESC
				LIMIT $2
			) recent
			ORDER BY id
		`
		args = append(args, limit)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions for account %d: %w", accountID, err)
	}
	defer rows.Close()

	var txns []*models.CreditTransaction
	for rows.Next() {
		var txn models.CreditTransaction
		err := rows.Scan(
			&txn.ID,
			&txn.Reference,
			&txn.AccountID,
			&txn.Action,
			&txn.Amount,
			&txn.CreditBefore,
			&txn.CreditAfter,
			&txn.Metadata,
			&txn.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credit transaction: %w", err)
		}
		txns = append(txns, &txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate credit transactions: %w", err)
	}

	return txns, nil
}

// SumByAccount folds the signed amounts of an account's transactions
func (r *CreditTransactionRepository) SumByAccount(ctx context.Context, accountID int64) (int64, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN action = 'add' THEN amount ELSE -amount END), 0)
		FROM credit_transactions
		WHERE account_id = $1
	`

	var sum int64
	if err := r.q.QueryRow(ctx, query, accountID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum transactions for account %d: %w", accountID, err)
	}

	return sum, nil
}
