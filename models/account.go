package models

import "time"

// AccountType represents a tier in the ownership hierarchy.
type AccountType string

const (
	AccountTypeMember AccountType = "member"
	AccountTypeAgent  AccountType = "agent"
	AccountTypeMaster AccountType = "master"
)

// CommissionRates maps lottery category to per-bet-type commission
// percentages (0-100). Missing entries mean no commission for that
// combination.
type CommissionRates map[string]map[BetType]int64

// Account is a node in the ownership hierarchy. The ParentID chain is a
// finite, acyclic path terminating at a root account with a nil parent.
type Account struct {
	ID              int64           `db:"id"`
	Username        string          `db:"username"`
	AccountType     AccountType     `db:"account_type"`
	ParentID        *int64          `db:"parent_id"`
	Credit          int64           `db:"credit"`
	CommissionRates CommissionRates `db:"commission_rates"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// IsRoot reports whether the account terminates the ownership chain.
func (a *Account) IsRoot() bool {
	return a.ParentID == nil
}

// CommissionRate returns this account's commission percentage for the
// given category and bet type, or 0 when no rate is configured.
func (a *Account) CommissionRate(category string, t BetType) int64 {
	byType, ok := a.CommissionRates[category]
	if !ok {
		return 0
	}
	return byType[t]
}
