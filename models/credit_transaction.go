package models

import (
	"errors"
	"fmt"
	"time"
)

// CreditAction represents the direction of a ledger adjustment.
type CreditAction string

const (
	CreditActionAdd    CreditAction = "add"
	CreditActionDeduct CreditAction = "deduct"
)

// CreditTransaction is an immutable audit record of one credit adjustment
// to one account. AccountID identifies whose ledger line this is, not who
// triggered the adjustment. Records are append-only; CreditBefore of entry
// n must equal CreditAfter of entry n-1 for the same account.
type CreditTransaction struct {
	ID           int64          `db:"id"`
	Reference    string         `db:"reference"`
	AccountID    int64          `db:"account_id"`
	Action       CreditAction   `db:"action"`
	Amount       int64          `db:"amount"`
	CreditBefore int64          `db:"credit_before"`
	CreditAfter  int64          `db:"credit_after"`
	Metadata     map[string]any `db:"metadata"`
	CreatedAt    time.Time      `db:"created_at"`
}

// Validate checks the before/after arithmetic against the action.
func (t *CreditTransaction) Validate() error {
	if t.Amount <= 0 {
		return errors.New("amount must be positive")
	}
	switch t.Action {
	case CreditActionAdd:
		if t.CreditAfter != t.CreditBefore+t.Amount {
			return fmt.Errorf("inconsistent add: %d + %d != %d", t.CreditBefore, t.Amount, t.CreditAfter)
		}
	case CreditActionDeduct:
		if t.CreditAfter != t.CreditBefore-t.Amount {
			return fmt.Errorf("inconsistent deduct: %d - %d != %d", t.CreditBefore, t.Amount, t.CreditAfter)
		}
	default:
		return fmt.Errorf("unknown action %q", t.Action)
	}
	return nil
}

// SignedAmount returns the amount with the sign implied by the action.
func (t *CreditTransaction) SignedAmount() int64 {
	if t.Action == CreditActionDeduct {
		return -t.Amount
	}
	return t.Amount
}
