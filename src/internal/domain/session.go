package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Session struct {
	ID        string
	PinHash   string
	Balance   decimal.Decimal
	LoggedIn  bool
	IsAdmin   bool
	PinChange PinChange
	CreatedAt time.Time
	ExpiresAt time.Time
}

// CanTransact reports whether the session belongs to a logged-in customer.
// Admin sessions are read-only over the ledger.
func (s Session) CanTransact() bool {
	return s.LoggedIn && !s.IsAdmin
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Withdraw debits a parsed amount (see ParseWithdrawal) after the funds check.
// On success it returns the debited session and the record to append; the
// receiver is never modified.
func (s Session) Withdraw(amount decimal.Decimal, at time.Time) (Session, TransactionRecord, error) {
	if !s.CanTransact() {
		return s, TransactionRecord{}, ErrNotAuthorized
	}

	whole, err := CheckFunds(amount, s.Balance)
	if err != nil {
		return s, TransactionRecord{}, err
	}

	next := s
	next.Balance = s.Balance.Sub(decimal.NewFromInt(whole)).Round(2)
	return next, NewWithdrawalRecord(at, whole, next.Balance), nil
}

// ChangePin feeds one input into the PIN change flow. A completed flow replaces
// the session PIN hash.
func (s Session) ChangePin(input string, hasher PinHasher) (Session, PinChangeOutcome, error) {
	if !s.CanTransact() {
		return s, PinChangeOutcome{}, ErrNotAuthorized
	}

	progress, outcome, err := s.PinChange.Advance(input, s.PinHash, hasher)
	if err != nil {
		return s, PinChangeOutcome{}, err
	}

	next := s
	next.PinChange = progress
	if outcome.Complete {
		next.PinHash = outcome.committedHash
	}
	return next, outcome, nil
}
