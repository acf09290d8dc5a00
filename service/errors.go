package service

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrInsufficientCredit means a deduct would take an account below
	// zero; the amount is never clamped to what is available.
	ErrInsufficientCredit = errors.New("insufficient credit")

	// ErrAlreadySettled means settlement ran on a bet that already left
	// the pending state. Callers treat it as an idempotent success.
	ErrAlreadySettled = errors.New("bet already settled")

	// ErrConcurrencyConflict means a credit swap lost a race against a
	// concurrent adjustment to the same account. Retryable.
	ErrConcurrencyConflict = errors.New("concurrent credit update conflict")

	// ErrAccountNotFound means the referenced account does not exist
	ErrAccountNotFound = errors.New("account not found")

	// ErrBetNotFound means the referenced bet does not exist
	ErrBetNotFound = errors.New("bet not found")

	// ErrResultNotFound means no draw result has been published for the
	// bet's period, so settlement cannot run yet
	ErrResultNotFound = errors.New("draw result not published")
)

// PartialCascadeError reports a commission cascade where some tiers
// recorded their ledger entry and others failed. Committed tiers are not
// rolled back; the error names them so the missing ones can be
// reconciled instead of silently re-run.
type PartialCascadeError struct {
	BetID     int64
	Succeeded []int64
	Failed    map[int64]error
}

func (e *PartialCascadeError) Error() string {
	failed := make([]int64, 0, len(e.Failed))
	for id := range e.Failed {
		failed = append(failed, id)
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i] < failed[j] })
	return fmt.Sprintf("commission cascade for bet %d partially failed: %d tier(s) committed, failed tiers %v",
		e.BetID, len(e.Succeeded), failed)
}
