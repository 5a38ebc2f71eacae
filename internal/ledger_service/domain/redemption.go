package domain

import "time"

// RedemptionStatus tracks the approval workflow.
// pending is the only non-terminal state.
type RedemptionStatus string

const (
	RedemptionStatusPending   RedemptionStatus = "pending"
	RedemptionStatusApproved  RedemptionStatus = "approved"
	RedemptionStatusRejected  RedemptionStatus = "rejected"
	RedemptionStatusCancelled RedemptionStatus = "cancelled"
)

// ProcessAction is an admin decision on a pending redemption.
type ProcessAction string

const (
	ProcessActionApprove ProcessAction = "approve"
	ProcessActionReject  ProcessAction = "reject"
)

// PointRedemption is a user request to convert points into an external reward.
// It is created pending alongside a reserved debit transaction; approving the
// request completes the reservation, rejecting or cancelling releases it.
type PointRedemption struct {
	ID                string           `json:"id"`
	UserID            string           `json:"user_id"`
	PointsRedeemed    int64            `json:"points_redeemed"`
	RedemptionType    string           `json:"redemption_type"`
	RedemptionValue   float64          `json:"redemption_value,omitempty"`
	RedemptionDetails map[string]any   `json:"redemption_details,omitempty"` // opaque payout instructions
	Status            RedemptionStatus `json:"status"`
	RequestedAt       time.Time        `json:"requested_at"`
	ProcessedAt       *time.Time       `json:"processed_at,omitempty"`
	ProcessedBy       *string          `json:"processed_by,omitempty"` // admin id, back-reference only
	AdminNotes        *string          `json:"admin_notes,omitempty"`
	TransactionID     string           `json:"transaction_id"`
}
