package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"huay/database"
	"huay/models"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

// AccountOption customizes a test account before insertion
type AccountOption func(*models.Account)

// WithParent sets the account's parent in the ownership hierarchy
func WithParent(parentID int64) AccountOption {
	return func(a *models.Account) {
		a.ParentID = &parentID
	}
}

// WithCredit sets the account's starting credit
func WithCredit(credit int64) AccountOption {
	return func(a *models.Account) {
		a.Credit = credit
	}
}

// WithCommissionRates sets the account's commission rate table
func WithCommissionRates(rates models.CommissionRates) AccountOption {
	return func(a *models.Account) {
		a.CommissionRates = rates
	}
}

// CreateTestAccount inserts an account with a unique username
func CreateTestAccount(t *testing.T, db *database.DB, accountType models.AccountType, opts ...AccountOption) *models.Account {
	t.Helper()

	account := &models.Account{
		Username:        fmt.Sprintf("%s-%s-%d", accountType, t.Name(), nextSeq()),
		AccountType:     accountType,
		CommissionRates: models.CommissionRates{},
	}
	for _, opt := range opts {
		opt(account)
	}

	query := `
		INSERT INTO accounts (username, account_type, parent_id, credit, commission_rates)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := db.QueryRow(context.Background(), query,
		account.Username,
		account.AccountType,
		account.ParentID,
		account.Credit,
		account.CommissionRates,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	require.NoError(t, err)

	return account
}

// CreateTestBet inserts a pending bet with the given lines
func CreateTestBet(t *testing.T, db *database.DB, accountID int64, periodID string, lines ...*models.BetLine) *models.Bet {
	t.Helper()

	bet := &models.Bet{
		AccountID: accountID,
		Category:  "government",
		PeriodID:  periodID,
		Status:    models.BetStatusPending,
		Lines:     lines,
	}

	err := db.WithTransaction(context.Background(), func(tx pgx.Tx) error {
		betQuery := `
			INSERT INTO bets (account_id, category, period_id, status)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at
		`
		err := tx.QueryRow(context.Background(), betQuery,
			bet.AccountID, bet.Category, bet.PeriodID, bet.Status,
		).Scan(&bet.ID, &bet.CreatedAt)
		if err != nil {
			return err
		}

		lineQuery := `
			INSERT INTO bet_lines (bet_id, bet_type, number, stake, payout_rate, potential_win)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`
		for _, line := range bet.Lines {
			line.BetID = bet.ID
			err := tx.QueryRow(context.Background(), lineQuery,
				line.BetID, line.BetType, line.Number, line.Stake, line.PayoutRate, line.PotentialWin,
			).Scan(&line.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	return bet
}

// Line builds a bet line with the potential win derived from the rate
func Line(betType models.BetType, number string, stake int64, payoutRate float64) *models.BetLine {
	return &models.BetLine{
		BetType:      betType,
		Number:       number,
		Stake:        stake,
		PayoutRate:   payoutRate,
		PotentialWin: int64(float64(stake) * payoutRate),
	}
}

// CreateTestDrawResult inserts a published result for the period
func CreateTestDrawResult(t *testing.T, db *database.DB, periodID string, threeTop, twoTop, twoBottom string) *models.DrawResult {
	t.Helper()

	result := &models.DrawResult{PeriodID: periodID}
	if threeTop != "" {
		result.ThreeTop = &threeTop
	}
	if twoTop != "" {
		result.TwoTop = &twoTop
	}
	if twoBottom != "" {
		result.TwoBottom = &twoBottom
	}
	if result.RunTop == nil {
		result.RunTop = []string{}
	}
	if result.RunBottom == nil {
		result.RunBottom = []string{}
	}

	query := `
		INSERT INTO draw_results (period_id, three_top, two_top, two_bottom, run_top, run_bottom)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, published_at
	`
	err := db.QueryRow(context.Background(), query,
		result.PeriodID, result.ThreeTop, result.TwoTop, result.TwoBottom, result.RunTop, result.RunBottom,
	).Scan(&result.ID, &result.PublishedAt)
	require.NoError(t, err)

	return result
}

var seq atomic.Int64

func nextSeq() int64 {
	return seq.Add(1)
}
