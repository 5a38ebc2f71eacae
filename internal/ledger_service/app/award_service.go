package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/loyaltyworks/points-platform/internal/ledger_service/domain"
	"github.com/loyaltyworks/points-platform/internal/ledger_service/repository"
)

// AwardService is the Award Engine: it turns activity completions and manual
// admin grants into credit transactions. These two paths are the only
// producers of credits.
type AwardService struct {
	db           DB
	ledger       *LedgerService
	activityRepo repository.ActivityRepository
	txRepo       repository.TransactionRepository
	logger       *slog.Logger
}

func NewAwardService(
	db DB,
	ledger *LedgerService,
	activityRepo repository.ActivityRepository,
	txRepo repository.TransactionRepository,
	logger *slog.Logger,
) *AwardService {
	return &AwardService{
		db:           db,
		ledger:       ledger,
		activityRepo: activityRepo,
		txRepo:       txRepo,
		logger:       logger.With("service", "award"),
	}
}

// AwardForActivity credits the catalog reward for one activity completion.
// The limit counts run under the user's balance row lock, inside the same
// database transaction as the credit, so concurrent completions cannot slip
// past a cap.
func (s *AwardService) AwardForActivity(ctx context.Context, userID, activityCode string, occurredAt time.Time) (*domain.PointTransaction, error) {
	activity, err := s.activityRepo.GetByCode(ctx, s.db, activityCode)
	if err != nil {
		return nil, err
	}
	if !activity.AvailableAt(occurredAt) {
		return nil, fmt.Errorf("%w: %s", domain.ErrActivityInactive, activityCode)
	}

	var created *domain.PointTransaction
	err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := s.ledger.balanceRepo.GetForUpdate(ctx, tx, userID); err != nil {
			return fmt.Errorf("failed to lock balance for user %s: %w", userID, err)
		}

		if activity.DailyLimit != nil {
			dayStart := occurredAt.UTC().Truncate(24 * time.Hour)
			used, err := s.txRepo.CountCompletedCredits(ctx, tx, userID, activityCode, &dayStart)
			if err != nil {
				return fmt.Errorf("failed to count daily awards: %w", err)
			}
			if used >= *activity.DailyLimit {
				return &domain.LimitExceededError{
					ActivityCode: activityCode,
					Scope:        domain.LimitScopeDaily,
					Limit:        *activity.DailyLimit,
					Used:         used,
				}
			}
		}

		if activity.TotalLimit != nil {
			used, err := s.txRepo.CountCompletedCredits(ctx, tx, userID, activityCode, nil)
			if err != nil {
				return fmt.Errorf("failed to count total awards: %w", err)
			}
			if used >= *activity.TotalLimit {
				return &domain.LimitExceededError{
					ActivityCode: activityCode,
					Scope:        domain.LimitScopeTotal,
					Limit:        *activity.TotalLimit,
					Used:         used,
				}
			}
		}

		var applyErr error
		created, applyErr = s.ledger.applyTx(ctx, tx, userID, domain.TransactionTypeCredit, activity.PointsReward, domain.Provenance{
			ActivityType: activityCode,
			Description:  activity.Name,
			Metadata:     map[string]any{"occurred_at": occurredAt.UTC().Format(time.RFC3339)},
		})
		return applyErr
	})
	if err != nil {
		return nil, err
	}

	transactionsAppliedCounter.WithLabelValues(string(domain.TransactionTypeCredit), activityCode).Inc()
	s.ledger.publishBalanceChanged(ctx, created)
	return created, nil
}

// AwardManual is the admin bypass of catalog limits. The granting admin is
// recorded in the transaction metadata.
func (s *AwardService) AwardManual(ctx context.Context, userID string, amount int64, adminID, description string, referenceID *string) (*domain.PointTransaction, error) {
	if amount <= 0 {
		return nil, &domain.InvalidAmountError{Amount: amount}
	}

	refType := domain.ActivityTypeManualAward
	prov := domain.Provenance{
		ActivityType: domain.ActivityTypeManualAward,
		Description:  description,
		ReferenceID:  referenceID,
		Metadata:     map[string]any{"admin_id": adminID},
	}
	if referenceID != nil {
		prov.ReferenceType = &refType
	}

	created, err := s.ledger.ApplyTransaction(ctx, userID, domain.TransactionTypeCredit, amount, prov)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Manual award granted",
		"user_id", userID, "admin_id", adminID, "amount", amount, "transaction_id", created.ID,
	)
	return created, nil
}

// CreateActivity registers a new catalog entry.
func (s *AwardService) CreateActivity(ctx context.Context, a *domain.PointActivity) (*domain.PointActivity, error) {
	if err := validateActivity(a); err != nil {
		return nil, err
	}
	return s.activityRepo.Create(ctx, s.db, a)
}

// UpdateActivity replaces the mutable fields of a catalog entry, keyed by code.
func (s *AwardService) UpdateActivity(ctx context.Context, a *domain.PointActivity) (*domain.PointActivity, error) {
	if err := validateActivity(a); err != nil {
		return nil, err
	}
	if err := s.activityRepo.Update(ctx, s.db, a); err != nil {
		return nil, err
	}
	return s.activityRepo.GetByCode(ctx, s.db, a.Code)
}

// ListActivities returns catalog entries. Non-admin callers see only
// activities that are currently earnable.
func (s *AwardService) ListActivities(ctx context.Context, includeInactive bool) ([]domain.PointActivity, error) {
	activities, err := s.activityRepo.List(ctx, s.db, includeInactive)
	if err != nil {
		return nil, err
	}
	if includeInactive {
		return activities, nil
	}

	now := time.Now().UTC()
	earnable := activities[:0]
	for _, a := range activities {
		if a.AvailableAt(now) {
			earnable = append(earnable, a)
		}
	}
	return earnable, nil
}

func validateActivity(a *domain.PointActivity) error {
	if strings.TrimSpace(a.Code) == "" {
		return errors.New("activity code is required")
	}
	if a.PointsReward <= 0 {
		return &domain.InvalidAmountError{Amount: a.PointsReward}
	}
	if a.DailyLimit != nil && *a.DailyLimit < 1 {
		return fmt.Errorf("daily limit must be positive, got %d", *a.DailyLimit)
	}
	if a.TotalLimit != nil && *a.TotalLimit < 1 {
		return fmt.Errorf("total limit must be positive, got %d", *a.TotalLimit)
	}
	if a.ValidFrom != nil && a.ValidUntil != nil && a.ValidUntil.Before(*a.ValidFrom) {
		return errors.New("validity window ends before it starts")
	}
	return nil
}
