package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// NATS subjects for ledger domain events. Delivery is a collaborator concern;
// publish failures are logged and never fail the ledger operation.
const (
	SubjectBalanceChanged     = "points.balance.changed"
	SubjectRedemptionApproved = "points.redemption.approved"
	SubjectRedemptionRejected = "points.redemption.rejected"
)

// EventPublisher is the outbound event contract, satisfied by
// messagebroker.NatsClient. A nil publisher disables event emission.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

type balanceChangedEvent struct {
	UserID        string `json:"user_id"`
	TransactionID string `json:"transaction_id"`
	Type          string `json:"type"`
	Amount        int64  `json:"amount"`
	BalanceAfter  int64  `json:"balance_after"`
	ActivityType  string `json:"activity_type"`
}

type redemptionProcessedEvent struct {
	RedemptionID   string     `json:"redemption_id"`
	UserID         string     `json:"user_id"`
	PointsRedeemed int64      `json:"points_redeemed"`
	RedemptionType string     `json:"redemption_type"`
	Status         string     `json:"status"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
}

func publishJSON(ctx context.Context, logger *slog.Logger, publisher EventPublisher, subject string, payload any) {
	if publisher == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to marshal event payload", "subject", subject, "error", err)
		return
	}
	if err := publisher.Publish(ctx, subject, data); err != nil {
		logger.ErrorContext(ctx, "Failed to publish event", "subject", subject, "error", err)
		return
	}
	eventsPublishedCounter.WithLabelValues(subject).Inc()
}
