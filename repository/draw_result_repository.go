package repository

import (
	"context"
	"fmt"

	"huay/database"
	"huay/models"

	"github.com/jackc/pgx/v5"
)

// DrawResultRepository implements the DrawResultRepository interface
type DrawResultRepository struct {
	q queryable
}

// NewDrawResultRepository creates a new draw result repository
func NewDrawResultRepository(db *database.DB) *DrawResultRepository {
	return &DrawResultRepository{q: db.Pool}
}

// newDrawResultRepositoryWithTx creates a new draw result repository with a transaction
func newDrawResultRepositoryWithTx(tx queryable) *DrawResultRepository {
	return &DrawResultRepository{q: tx}
}

// Create stores a newly published draw result
func (r *DrawResultRepository) Create(ctx context.Context, result *models.DrawResult) error {
	query := `
		INSERT INTO draw_results (period_id, three_top, two_top, two_bottom, run_top, run_bottom)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, published_at
	`

	err := r.q.QueryRow(ctx, query,
		result.PeriodID,
		result.ThreeTop,
		result.TwoTop,
		result.TwoBottom,
		result.RunTop,
		result.RunBottom,
	).Scan(&result.ID, &result.PublishedAt)

	if err != nil {
		return fmt.Errorf("failed to create draw result for period %s: %w", result.PeriodID, err)
	}

	return nil
}

// GetByPeriod retrieves the result for a draw period, or nil when the
// result has not been published yet
func (r *DrawResultRepository) GetByPeriod(ctx context.Context, periodID string) (*models.DrawResult, error) {
	query := `
		SELECT id, period_id, three_top, two_top, two_bottom, run_top, run_bottom, published_at
		FROM draw_results
		WHERE period_id = $1
	`

	var result models.DrawResult
	err := r.q.QueryRow(ctx, query, periodID).Scan(
		&result.ID,
		&result.PeriodID,
		&result.ThreeTop,
		&result.TwoTop,
		&result.TwoBottom,
		&result.RunTop,
		&result.RunBottom,
		&result.PublishedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draw result for period %s: %w", periodID, err)
	}

	return &result, nil
}
