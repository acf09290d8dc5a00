package models

import "time"

// DrawResult represents the published outcome of one lottery draw period.
// Prize categories are published independently, so every field may be
// absent; an absent category never matches any bet line.
type DrawResult struct {
	ID          int64     `db:"id"`
	PeriodID    string    `db:"period_id"`
	ThreeTop    *string   `db:"three_top"`
	TwoTop      *string   `db:"two_top"`
	TwoBottom   *string   `db:"two_bottom"`
	RunTop      []string  `db:"run_top"`
	RunBottom   []string  `db:"run_bottom"`
	PublishedAt time.Time `db:"published_at"`
}
