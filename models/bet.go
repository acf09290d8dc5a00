package models

import (
	"fmt"
	"time"
)

// BetType identifies the matching rule applied to a wagered number.
type BetType string

const (
	BetTypeThreeTop  BetType = "three_top"
	BetTypeThreeTod  BetType = "three_tod"
	BetTypeTwoTop    BetType = "two_top"
	BetTypeTwoBottom BetType = "two_bottom"
	BetTypeRunTop    BetType = "run_top"
	BetTypeRunBottom BetType = "run_bottom"
)

// NumberLength returns the wagered number length this type expects,
// or 0 for an unknown type.
func (t BetType) NumberLength() int {
	switch t {
	case BetTypeThreeTop, BetTypeThreeTod:
		return 3
	case BetTypeTwoTop, BetTypeTwoBottom:
		return 2
	case BetTypeRunTop, BetTypeRunBottom:
		return 1
	default:
		return 0
	}
}

// IsValid reports whether t is one of the six known bet types.
func (t BetType) IsValid() bool {
	return t.NumberLength() != 0
}

// BetStatus represents the settlement state of a bet.
type BetStatus string

const (
	BetStatusPending BetStatus = "pending"
	BetStatusWon     BetStatus = "won"
	BetStatusLost    BetStatus = "lost"
)

// BetLine is one wagered entry within a bet. IsWin and WinAmount are
// settlement-only fields and stay unset while the bet is pending.
type BetLine struct {
	ID           int64   `db:"id"`
	BetID        int64   `db:"bet_id"`
	BetType      BetType `db:"bet_type"`
	Number       string  `db:"number"`
	Stake        int64   `db:"stake"`
	PayoutRate   float64 `db:"payout_rate"`
	PotentialWin int64   `db:"potential_win"`
	IsWin        *bool   `db:"is_win"`
	WinAmount    int64   `db:"win_amount"`
}

// Bet is a placed wager composed of one or more lines, owned by exactly
// one placing account.
type Bet struct {
	ID             int64      `db:"id"`
	AccountID      int64      `db:"account_id"`
	Category       string     `db:"category"`
	PeriodID       string     `db:"period_id"`
	Status         BetStatus  `db:"status"`
	TotalWinAmount int64      `db:"total_win_amount"`
	Lines          []*BetLine `db:"-"`
	CreatedAt      time.Time  `db:"created_at"`
	SettledAt      *time.Time `db:"settled_at"`
}

// IsSettled reports whether the bet has left the pending state.
func (b *Bet) IsSettled() bool {
	return b.Status != BetStatusPending
}

// StakeTotal returns the sum of all line stakes.
func (b *Bet) StakeTotal() int64 {
	var total int64
	for _, l := range b.Lines {
		total += l.Stake
	}
	return total
}

// LineOutcome is the settlement result for a single bet line.
type LineOutcome struct {
	LineID    int64
	IsWin     bool
	WinAmount int64
}

// BetOutcome is the settlement result for a whole bet.
type BetOutcome struct {
	BetID          int64
	Status         BetStatus
	Lines          []LineOutcome
	TotalWinAmount int64
}

// Evaluate runs every line against the draw result and returns the
// derived outcome. The receiver is not mutated; persisting the outcome
// and the status transition is the caller's responsibility.
func (b *Bet) Evaluate(r *DrawResult) *BetOutcome {
	out := &BetOutcome{
		BetID: b.ID,
		Lines: make([]LineOutcome, 0, len(b.Lines)),
	}

	for _, l := range b.Lines {
		lo := LineOutcome{LineID: l.ID}
		if l.BetType.Matches(l.Number, r) {
			lo.IsWin = true
			lo.WinAmount = l.PotentialWin
			out.TotalWinAmount += l.PotentialWin
		}
		out.Lines = append(out.Lines, lo)
	}

	if out.TotalWinAmount > 0 {
		out.Status = BetStatusWon
	} else {
		out.Status = BetStatusLost
	}

	return out
}

// ValidationError reports a malformed bet line rejected before settlement.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ValidateBet checks a bet and all its lines before settlement.
func ValidateBet(b *Bet) error {
	if len(b.Lines) == 0 {
		return &ValidationError{Field: "lines", Reason: "bet has no lines"}
	}
	for i, l := range b.Lines {
		if err := validateLine(i, l); err != nil {
			return err
		}
	}
	return nil
}

func validateLine(index int, l *BetLine) error {
	field := func(name string) string {
		return fmt.Sprintf("lines[%d].%s", index, name)
	}

	if !l.BetType.IsValid() {
		return &ValidationError{Field: field("bet_type"), Reason: fmt.Sprintf("unknown bet type %q", l.BetType)}
	}
	if !isDigits(l.Number) {
		return &ValidationError{Field: field("number"), Reason: "number must contain only digits"}
	}
	if len(l.Number) != l.BetType.NumberLength() {
		return &ValidationError{
			Field:  field("number"),
			Reason: fmt.Sprintf("type %s expects %d digits, got %d", l.BetType, l.BetType.NumberLength(), len(l.Number)),
		}
	}
	if l.Stake <= 0 {
		return &ValidationError{Field: field("stake"), Reason: "stake must be positive"}
	}
	if l.PayoutRate <= 0 {
		return &ValidationError{Field: field("payout_rate"), Reason: "payout rate must be positive"}
	}
	if l.PotentialWin <= 0 {
		return &ValidationError{Field: field("potential_win"), Reason: "potential win must be positive"}
	}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
