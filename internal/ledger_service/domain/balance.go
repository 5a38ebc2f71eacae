package domain

import "time"

// AccountBalance is the cached point total for one user. It is derived state:
// the transaction log is authoritative, and the auditor repairs any drift.
// Mutated only through the ledger's atomic apply path, never directly.
type AccountBalance struct {
	UserID        string    `json:"user_id"`
	CurrentPoints int64     `json:"current_points"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BalanceDetail is the user-facing view: the cached total plus how much of it
// is held by pending redemption reservations.
type BalanceDetail struct {
	UserID          string `json:"user_id"`
	CurrentPoints   int64  `json:"current_points"`
	PendingReserved int64  `json:"pending_reserved"`
	Available       int64  `json:"available"`
}
