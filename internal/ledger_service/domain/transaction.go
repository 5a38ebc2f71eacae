package domain

import "time"

// TransactionType defines the direction of a ledger entry.
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "credit"
	TransactionTypeDebit  TransactionType = "debit"
)

// TransactionStatus tracks a ledger entry's lifecycle. Entries are immutable
// once the status leaves pending.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

// Provenance tags for transactions not tied to a catalog activity; catalog
// awards use the activity code itself.
const (
	ActivityTypeManualAward = "manual_award"
	ActivityTypeRedemption  = "redemption"
	ActivityTypeCorrection  = "correction"
)

// FinalizeOutcome resolves a pending reservation.
type FinalizeOutcome string

const (
	FinalizeComplete FinalizeOutcome = "complete"
	FinalizeCancel   FinalizeOutcome = "cancel"
)

// PointTransaction is one balance-affecting event in the ledger. Only
// completed entries count toward a user's balance; a pending debit is a
// reservation that holds funds out of availability without touching the
// cached balance.
type PointTransaction struct {
	ID            string            `json:"id"`
	UserID        string            `json:"user_id"`
	Type          TransactionType   `json:"type"`
	Amount        int64             `json:"amount"` // always positive; Type carries the sign
	BalanceBefore int64             `json:"balance_before"`
	BalanceAfter  int64             `json:"balance_after"`
	ActivityType  string            `json:"activity_type"`
	Description   string            `json:"description,omitempty"`
	ReferenceID   *string           `json:"reference_id,omitempty"`
	ReferenceType *string           `json:"reference_type,omitempty"`
	Status        TransactionStatus `json:"status"`
	Metadata      map[string]any    `json:"metadata,omitempty"`
	ExpiresAt     *time.Time        `json:"expires_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Provenance describes where a ledger entry came from.
type Provenance struct {
	ActivityType  string
	Description   string
	ReferenceID   *string
	ReferenceType *string
	Metadata      map[string]any
}

// TransactionFilter narrows history queries. Zero values mean "no filter".
type TransactionFilter struct {
	ActivityType string
	Type         TransactionType
	From         *time.Time
	To           *time.Time
}

// UserComputedBalance is a per-user balance recomputed from completed ledger
// entries, used by the consistency auditor.
type UserComputedBalance struct {
	UserID   string
	Computed int64
}
