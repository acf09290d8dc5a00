package repository

import (
	"context"
	"fmt"

	"huay/database"
	"huay/models"

	"github.com/jackc/pgx/v5"
)

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	q queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

// newAccountRepositoryWithTx creates a new account repository with a transaction
func newAccountRepositoryWithTx(tx queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

// GetByID retrieves an account by its ID, or nil when absent
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	query := `
		SELECT id, username, account_type, parent_id, credit, commission_rates, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`

	var account models.Account
	err := r.q.QueryRow(ctx, query, id).Scan(
		&account.ID,
		&account.Username,
		&account.AccountType,
		&account.ParentID,
		&account.Credit,
		&account.CommissionRates,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", id, err)
	}

	return &account, nil
}

// Create creates a new account
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (username, account_type, parent_id, credit, commission_rates)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		account.Username,
		account.AccountType,
		account.ParentID,
		account.Credit,
		account.CommissionRates,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create account %s: %w", account.Username, err)
	}

	return nil
}

// GetAll returns all accounts
func (r *AccountRepository) GetAll(ctx context.Context) ([]*models.Account, error) {
	query := `
		SELECT id, username, account_type, parent_id, credit, commission_rates, created_at, updated_at
		FROM accounts
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get all accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		var account models.Account
		err := rows.Scan(
			&account.ID,
			&account.Username,
			&account.AccountType,
			&account.ParentID,
			&account.Credit,
			&account.CommissionRates,
			&account.CreatedAt,
			&account.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, &account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}

	return accounts, nil
}

// UpdateCreditIf swaps the account's credit from expected to newCredit.
// The WHERE guard makes the swap atomic: a concurrent writer that moved
// the credit first leaves zero rows affected.
func (r *AccountRepository) UpdateCreditIf(ctx context.Context, id, expected, newCredit int64) (bool, error) {
	query := `
		UPDATE accounts
		SET credit = $1, updated_at = NOW()
		WHERE id = $2 AND credit = $3
	`

	result, err := r.q.Exec(ctx, query, newCredit, id, expected)
	if err != nil {
		return false, fmt.Errorf("failed to update credit for account %d: %w", id, err)
	}

	return result.RowsAffected() == 1, nil
}
