package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/loyaltyworks/points-platform/internal/ledger_service/domain"
	"github.com/loyaltyworks/points-platform/internal/ledger_service/repository"
)

// RedemptionService drives the redemption approval workflow. A request
// reserves the points without spending them; an admin decision (or a user
// cancellation, or the expiry sweep) resolves the reservation.
type RedemptionService struct {
	db             DB
	ledger         *LedgerService
	redemptionRepo repository.RedemptionRepository
	publisher      EventPublisher
	logger         *slog.Logger

	// reservationTTL bounds how long a pending hold stays valid. Zero means
	// holds never expire.
	reservationTTL time.Duration
	sweepBatchSize int
}

func NewRedemptionService(
	db DB,
	ledger *LedgerService,
	redemptionRepo repository.RedemptionRepository,
	publisher EventPublisher,
	logger *slog.Logger,
	reservationTTL time.Duration,
	sweepBatchSize int,
) *RedemptionService {
	if sweepBatchSize <= 0 {
		sweepBatchSize = 100
	}
	return &RedemptionService{
		db:             db,
		ledger:         ledger,
		redemptionRepo: redemptionRepo,
		publisher:      publisher,
		logger:         logger.With("service", "redemption"),
		reservationTTL: reservationTTL,
		sweepBatchSize: sweepBatchSize,
	}
}

// RequestRedemption reserves the points and creates the pending redemption in
// one database transaction, so no redemption row can exist without its hold.
func (s *RedemptionService) RequestRedemption(ctx context.Context, userID string, points int64, redemptionType string, redemptionValue float64, details map[string]any) (*domain.PointRedemption, error) {
	if points <= 0 {
		return nil, &domain.InvalidAmountError{Amount: points}
	}

	redemptionID := uuid.NewString()
	refType := domain.ActivityTypeRedemption

	var created *domain.PointRedemption
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var expiresAt *time.Time
		if s.reservationTTL > 0 {
			t := time.Now().UTC().Add(s.reservationTTL)
			expiresAt = &t
		}

		txn, err := s.ledger.reserveTx(ctx, tx, userID, points, domain.Provenance{
			ActivityType:  domain.ActivityTypeRedemption,
			Description:   fmt.Sprintf("redemption request (%s)", redemptionType),
			ReferenceID:   &redemptionID,
			ReferenceType: &refType,
		}, expiresAt)
		if err != nil {
			return err
		}

		created, err = s.redemptionRepo.Create(ctx, tx, &domain.PointRedemption{
			ID:                redemptionID,
			UserID:            userID,
			PointsRedeemed:    points,
			RedemptionType:    redemptionType,
			RedemptionValue:   redemptionValue,
			RedemptionDetails: details,
			Status:            domain.RedemptionStatusPending,
			TransactionID:     txn.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	reservationsCounter.WithLabelValues("reserved").Inc()
	s.logger.InfoContext(ctx, "Redemption requested",
		"redemption_id", created.ID, "user_id", userID,
		"points", points, "redemption_type", redemptionType,
	)
	return created, nil
}

// ProcessRedemption applies an admin decision to a pending redemption.
// Approve completes the reserved debit; reject cancels it, which returns the
// points to availability because the hold never touched the cached balance.
func (s *RedemptionService) ProcessRedemption(ctx context.Context, redemptionID, adminID string, action domain.ProcessAction, notes string) (*domain.PointRedemption, error) {
	var processed *domain.PointRedemption
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		red, err := s.redemptionRepo.GetByIDForUpdate(ctx, tx, redemptionID)
		if err != nil {
			return err
		}
		if red.Status != domain.RedemptionStatusPending {
			return domain.ErrRedemptionProcessed
		}

		var outcome domain.FinalizeOutcome
		switch action {
		case domain.ProcessActionApprove:
			outcome = domain.FinalizeComplete
			red.Status = domain.RedemptionStatusApproved
		case domain.ProcessActionReject:
			outcome = domain.FinalizeCancel
			red.Status = domain.RedemptionStatusRejected
		default:
			return fmt.Errorf("unknown process action %q", action)
		}

		if _, err := s.ledger.finalizeTx(ctx, tx, red.TransactionID, outcome); err != nil {
			return err
		}

		now := time.Now().UTC()
		red.ProcessedAt = &now
		red.ProcessedBy = &adminID
		if notes != "" {
			red.AdminNotes = &notes
		}
		if err := s.redemptionRepo.Update(ctx, tx, red); err != nil {
			return err
		}
		processed = red
		return nil
	})
	if err != nil {
		return nil, err
	}

	redemptionsProcessedCounter.WithLabelValues(string(processed.Status)).Inc()
	subject := SubjectRedemptionRejected
	if processed.Status == domain.RedemptionStatusApproved {
		subject = SubjectRedemptionApproved
	}
	publishJSON(ctx, s.logger, s.publisher, subject, redemptionProcessedEvent{
		RedemptionID:   processed.ID,
		UserID:         processed.UserID,
		PointsRedeemed: processed.PointsRedeemed,
		RedemptionType: processed.RedemptionType,
		Status:         string(processed.Status),
		ProcessedAt:    processed.ProcessedAt,
	})

	s.logger.InfoContext(ctx, "Redemption processed",
		"redemption_id", processed.ID, "admin_id", adminID, "status", processed.Status,
	)
	return processed, nil
}

// CancelRedemption is the user-initiated withdrawal of a still-pending
// request. Only the owner may cancel.
func (s *RedemptionService) CancelRedemption(ctx context.Context, redemptionID, userID string) (*domain.PointRedemption, error) {
	var cancelled *domain.PointRedemption
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		red, err := s.redemptionRepo.GetByIDForUpdate(ctx, tx, redemptionID)
		if err != nil {
			return err
		}
		if red.UserID != userID {
			return domain.ErrAccessDenied
		}
		if red.Status != domain.RedemptionStatusPending {
			return domain.ErrRedemptionProcessed
		}

		if _, err := s.ledger.finalizeTx(ctx, tx, red.TransactionID, domain.FinalizeCancel); err != nil {
			return err
		}

		now := time.Now().UTC()
		red.Status = domain.RedemptionStatusCancelled
		red.ProcessedAt = &now
		if err := s.redemptionRepo.Update(ctx, tx, red); err != nil {
			return err
		}
		cancelled = red
		return nil
	})
	if err != nil {
		return nil, err
	}

	redemptionsProcessedCounter.WithLabelValues("cancelled").Inc()
	s.logger.InfoContext(ctx, "Redemption cancelled by user",
		"redemption_id", cancelled.ID, "user_id", userID,
	)
	return cancelled, nil
}

// ExpireReservations releases pending redemptions whose hold has passed its
// expiry. Each release goes through the same finalize contract as an admin
// decision, so a late approval racing the sweep can never double-apply.
func (s *RedemptionService) ExpireReservations(ctx context.Context) (int, error) {
	expired, err := s.redemptionRepo.ListExpiredPending(ctx, s.db, time.Now().UTC(), s.sweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired reservations: %w", err)
	}

	released := 0
	for i := range expired {
		red := expired[i]
		err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
			current, err := s.redemptionRepo.GetByIDForUpdate(ctx, tx, red.ID)
			if err != nil {
				return err
			}
			if current.Status != domain.RedemptionStatusPending {
				// An admin or the user got there first.
				return domain.ErrRedemptionProcessed
			}

			if _, err := s.ledger.finalizeTx(ctx, tx, current.TransactionID, domain.FinalizeCancel); err != nil {
				return err
			}

			now := time.Now().UTC()
			notes := "reservation expired"
			current.Status = domain.RedemptionStatusCancelled
			current.ProcessedAt = &now
			current.AdminNotes = &notes
			return s.redemptionRepo.Update(ctx, tx, current)
		})
		if err != nil {
			if errors.Is(err, domain.ErrRedemptionProcessed) || errors.Is(err, domain.ErrReservationFinalized) {
				continue
			}
			return released, fmt.Errorf("failed to expire redemption %s: %w", red.ID, err)
		}
		released++
		redemptionsProcessedCounter.WithLabelValues("expired").Inc()
	}

	if released > 0 {
		s.logger.InfoContext(ctx, "Expired reservations released", "count", released)
	}
	return released, nil
}

// GetRedemption returns one redemption, restricted to its owner.
func (s *RedemptionService) GetRedemption(ctx context.Context, redemptionID, userID string) (*domain.PointRedemption, error) {
	red, err := s.redemptionRepo.GetByID(ctx, s.db, redemptionID)
	if err != nil {
		return nil, err
	}
	if red.UserID != userID {
		return nil, domain.ErrAccessDenied
	}
	return red, nil
}

// ListRedemptions returns the user's redemption history, newest first.
func (s *RedemptionService) ListRedemptions(ctx context.Context, userID string, page, pageSize int) ([]domain.PointRedemption, int, error) {
	limit, offset := normalizePage(page, pageSize)
	return s.redemptionRepo.ListByUser(ctx, s.db, userID, limit, offset)
}

// ListAllRedemptions is the admin view, optionally filtered by status.
func (s *RedemptionService) ListAllRedemptions(ctx context.Context, status domain.RedemptionStatus, page, pageSize int) ([]domain.PointRedemption, int, error) {
	limit, offset := normalizePage(page, pageSize)
	return s.redemptionRepo.ListAll(ctx, s.db, status, limit, offset)
}
