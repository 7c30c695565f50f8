// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for payment schedule
// dueness checking. Each alert level (due, overdue, settled) has its
// own strategy that encapsulates the logic for classifying an
// installment against the current date.

package services

import (
	"time"

	"prodbudget/internal/core"
)

// DuenessChecker is the strategy interface for classifying a payment
// schedule installment. Each implementation encapsulates one alert
// condition.
type DuenessChecker interface {
	// Matches returns true if the installment satisfies the condition
	// at the given time.
	Matches(ps core.PaymentSchedule, now time.Time) bool
}

// SettledChecker matches installments whose expected amount has been
// fully received.
type SettledChecker struct{}

func (SettledChecker) Matches(ps core.PaymentSchedule, _ time.Time) bool {
	return ps.Balance.Won <= 0 && ps.ExpectedAmount.Won > 0
}

// DueSoonChecker matches unsettled installments whose expected date
// falls within the lookahead window.
type DueSoonChecker struct {
	Lookahead time.Duration
}

func (c DueSoonChecker) Matches(ps core.PaymentSchedule, now time.Time) bool {
	if ps.Balance.Won <= 0 || ps.ExpectedDate.IsEmpty() {
		return false
	}
	due := ps.ExpectedDate.Time
	return !due.Before(truncateToDay(now)) && due.Sub(now) <= c.Lookahead
}

// OverdueChecker matches unsettled installments whose expected date has
// passed.
type OverdueChecker struct{}

func (OverdueChecker) Matches(ps core.PaymentSchedule, now time.Time) bool {
	if ps.Balance.Won <= 0 || ps.ExpectedDate.IsEmpty() {
		return false
	}
	return ps.ExpectedDate.Before(truncateToDay(now))
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
