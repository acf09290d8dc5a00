package repository

import (
	"context"
	"fmt"

	"huay/database"
	"huay/models"

	"github.com/jackc/pgx/v5"
)

// BetRepository implements the BetRepository interface
type BetRepository struct {
	q queryable
}

// NewBetRepository creates a new bet repository
func NewBetRepository(db *database.DB) *BetRepository {
	return &BetRepository{q: db.Pool}
}

// newBetRepositoryWithTx creates a new bet repository with a transaction
func newBetRepositoryWithTx(tx queryable) *BetRepository {
	return &BetRepository{q: tx}
}

// Create creates a new bet with its lines
func (r *BetRepository) Create(ctx context.Context, bet *models.Bet) error {
	if bet.Status == "" {
		bet.Status = models.BetStatusPending
	}

	betQuery := `
		INSERT INTO bets (account_id, category, period_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, betQuery,
		bet.AccountID,
		bet.Category,
		bet.PeriodID,
		bet.Status,
	).Scan(&bet.ID, &bet.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bet for account %d: %w", bet.AccountID, err)
	}

	lineQuery := `
		INSERT INTO bet_lines (bet_id, bet_type, number, stake, payout_rate, potential_win)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	for _, line := range bet.Lines {
		line.BetID = bet.ID
		err := r.q.QueryRow(ctx, lineQuery,
			line.BetID,
			line.BetType,
			line.Number,
			line.Stake,
			line.PayoutRate,
			line.PotentialWin,
		).Scan(&line.ID)
		if err != nil {
			return fmt.Errorf("failed to create line for bet %d: %w", bet.ID, err)
		}
	}

	return nil
}

// GetByID retrieves a bet with its lines, or nil when absent
func (r *BetRepository) GetByID(ctx context.Context, id int64) (*models.Bet, error) {
	query := `
		SELECT id, account_id, category, period_id, status, total_win_amount, created_at, settled_at
		FROM bets
		WHERE id = $1
	`

	var bet models.Bet
	err := r.q.QueryRow(ctx, query, id).Scan(
		&bet.ID,
		&bet.AccountID,
		&bet.Category,
		&bet.PeriodID,
		&bet.Status,
		&bet.TotalWinAmount,
		&bet.CreatedAt,
		&bet.SettledAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bet %d: %w", id, err)
	}

	if err := r.loadLines(ctx, &bet); err != nil {
		return nil, err
	}

	return &bet, nil
}

// GetPendingByPeriod returns all pending bets for a draw period
func (r *BetRepository) GetPendingByPeriod(ctx context.Context, periodID string) ([]*models.Bet, error) {
	query := `
		SELECT id, account_id, category, period_id, status, total_win_amount, created_at, settled_at
		FROM bets
		WHERE period_id = $1 AND status = $2
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query, periodID, models.BetStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending bets for period %s: %w", periodID, err)
	}
	defer rows.Close()

	var bets []*models.Bet
	for rows.Next() {
		var bet models.Bet
		err := rows.Scan(
			&bet.ID,
			&bet.AccountID,
			&bet.Category,
			&bet.PeriodID,
			&bet.Status,
			&bet.TotalWinAmount,
			&bet.CreatedAt,
			&bet.SettledAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, &bet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bets: %w", err)
	}

	for _, bet := range bets {
		if err := r.loadLines(ctx, bet); err != nil {
			return nil, err
		}
	}

	return bets, nil
}

// GetSettleablePeriods returns periods that have a published result and
// at least one pending bet
func (r *BetRepository) GetSettleablePeriods(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT b.period_id
		FROM bets b
		JOIN draw_results dr ON dr.period_id = b.period_id
		WHERE b.status = $1
		ORDER BY b.period_id
	`

	rows, err := r.q.Query(ctx, query, models.BetStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to get settleable periods: %w", err)
	}
	defer rows.Close()

	var periods []string
	for rows.Next() {
		var periodID string
		if err := rows.Scan(&periodID); err != nil {
			return nil, fmt.Errorf("failed to scan period: %w", err)
		}
		periods = append(periods, periodID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate periods: %w", err)
	}

	return periods, nil
}

// TrySetStatus transitions a bet's status only if it currently holds the
// from status. The WHERE guard makes concurrent settlements race for a
// single row update; losers see zero rows affected.
func (r *BetRepository) TrySetStatus(ctx context.Context, betID int64, from, to models.BetStatus, totalWinAmount int64) (bool, error) {
	query := `
		UPDATE bets
		SET status = $1, total_win_amount = $2, settled_at = NOW()
		WHERE id = $3 AND status = $4
	`

	result, err := r.q.Exec(ctx, query, to, totalWinAmount, betID, from)
	if err != nil {
		return false, fmt.Errorf("failed to transition bet %d to %s: %w", betID, to, err)
	}

	return result.RowsAffected() == 1, nil
}

// UpdateLineOutcomes persists per-line win flags and amounts
func (r *BetRepository) UpdateLineOutcomes(ctx context.Context, outcome *models.BetOutcome) error {
	query := `
		UPDATE bet_lines
		SET is_win = $1, win_amount = $2
		WHERE id = $3 AND bet_id = $4
	`

	for _, line := range outcome.Lines {
		result, err := r.q.Exec(ctx, query, line.IsWin, line.WinAmount, line.LineID, outcome.BetID)
		if err != nil {
			return fmt.Errorf("failed to update outcome for line %d: %w", line.LineID, err)
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("line %d not found on bet %d", line.LineID, outcome.BetID)
		}
	}

	return nil
}

// loadLines attaches a bet's lines in placement order
func (r *BetRepository) loadLines(ctx context.Context, bet *models.Bet) error {
	query := `
		SELECT id, bet_id, bet_type, number, stake, payout_rate, potential_win, is_win, win_amount
		FROM bet_lines
		WHERE bet_id = $1
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query, bet.ID)
	if err != nil {
		return fmt.Errorf("failed to get lines for bet %d: %w", bet.ID, err)
	}
	defer rows.Close()

	var lines []*models.BetLine
	for rows.Next() {
		var line models.BetLine
		err := rows.Scan(
			&line.ID,
			&line.BetID,
			&line.BetType,
			&line.Number,
			&line.Stake,
			&line.PayoutRate,
			&line.PotentialWin,
			&line.IsWin,
			&line.WinAmount,
		)
		if err != nil {
			return fmt.Errorf("failed to scan bet line: %w", err)
		}
		lines = append(lines, &line)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate bet lines: %w", err)
	}

	bet.Lines = lines
	return nil
}
