package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrTransactionNotFound indicates the ledger entry does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrActivityNotFound indicates no catalog entry for the given code.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrRedemptionNotFound indicates the redemption does not exist.
	ErrRedemptionNotFound = errors.New("redemption not found")
	// ErrBalanceNotFound indicates no balance row for the user.
	ErrBalanceNotFound = errors.New("balance not found")

	// ErrActivityInactive indicates the activity is disabled or the completion
	// falls outside its validity window.
	ErrActivityInactive = errors.New("activity not active")
	// ErrDuplicateActivity indicates the activity code is already taken.
	ErrDuplicateActivity = errors.New("activity code already exists")

	// ErrInsufficientBalance indicates a debit or reservation would exceed the
	// user's available points.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidAmount indicates a non-positive point amount.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrDailyLimitExceeded indicates the activity's daily cap is used up.
	ErrDailyLimitExceeded = errors.New("daily limit exceeded")
	// ErrTotalLimitExceeded indicates the activity's lifetime cap is used up.
	ErrTotalLimitExceeded = errors.New("total limit exceeded")

	// ErrRedemptionProcessed indicates the redemption already left pending.
	ErrRedemptionProcessed = errors.New("redemption already processed")
	// ErrReservationFinalized indicates the reservation already left pending;
	// finalizing twice is never a double-apply.
	ErrReservationFinalized = errors.New("reservation already finalized")

	// ErrAccessDenied indicates the caller does not own the resource.
	ErrAccessDenied = errors.New("access denied")
)

// InsufficientBalanceError carries the figures a client needs to render an
// actionable message without a follow-up query.
type InsufficientBalanceError struct {
	Available int64
	Requested int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %d, requested %d", e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// LimitScope distinguishes which activity cap was hit.
type LimitScope string

const (
	LimitScopeDaily LimitScope = "daily"
	LimitScopeTotal LimitScope = "total"
)

// LimitExceededError reports an activity cap hit, with the cap and usage.
type LimitExceededError struct {
	ActivityCode string
	Scope        LimitScope
	Limit        int
	Used         int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("%s limit exceeded for activity %s: limit %d, used %d", e.Scope, e.ActivityCode, e.Limit, e.Used)
}

func (e *LimitExceededError) Unwrap() error {
	if e.Scope == LimitScopeTotal {
		return ErrTotalLimitExceeded
	}
	return ErrDailyLimitExceeded
}

// InvalidAmountError reports a rejected non-positive amount.
type InvalidAmountError struct {
	Amount int64
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount: %d, must be positive", e.Amount)
}

func (e *InvalidAmountError) Unwrap() error { return ErrInvalidAmount }
