package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/loyaltyworks/points-platform/internal/ledger_service/domain"
	"github.com/loyaltyworks/points-platform/internal/ledger_service/repository"
)

const uniqueViolationCode = "23505"

const activityColumns = `id, code, name, description, points_reward, daily_limit, total_limit,
	is_active, valid_from, valid_until, created_at, updated_at`

type pgActivityRepository struct {
	logger *slog.Logger
}

// NewPgActivityRepository creates an ActivityRepository backed by PostgreSQL.
func NewPgActivityRepository(logger *slog.Logger) repository.ActivityRepository {
	return &pgActivityRepository{logger: logger.With("component", "activity_repository")}
}

func (r *pgActivityRepository) Create(ctx context.Context, q repository.Querier, a *domain.PointActivity) (*domain.PointActivity, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := q.Exec(ctx, `
		INSERT INTO point_activities (id, code, name, description, points_reward, daily_limit,
		                              total_limit, is_active, valid_from, valid_until, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		a.ID, a.Code, a.Name, a.Description, a.PointsReward, a.DailyLimit,
		a.TotalLimit, a.IsActive, a.ValidFrom, a.ValidUntil, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return nil, domain.ErrDuplicateActivity
		}
		return nil, err
	}
	return a, nil
}

func (r *pgActivityRepository) Update(ctx context.Context, q repository.Querier, a *domain.PointActivity) error {
	a.UpdatedAt = time.Now().UTC()
	tag, err := q.Exec(ctx, `
		UPDATE point_activities
		SET name = $1, description = $2, points_reward = $3, daily_limit = $4, total_limit = $5,
		    is_active = $6, valid_from = $7, valid_until = $8, updated_at = $9
		WHERE code = $10
	`,
		a.Name, a.Description, a.PointsReward, a.DailyLimit, a.TotalLimit,
		a.IsActive, a.ValidFrom, a.ValidUntil, a.UpdatedAt, a.Code,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrActivityNotFound
	}
	return nil
}

func (r *pgActivityRepository) GetByCode(ctx context.Context, q repository.Querier, code string) (*domain.PointActivity, error) {
	a := &domain.PointActivity{}
	err := q.QueryRow(ctx, `SELECT `+activityColumns+` FROM point_activities WHERE code = $1`, code).Scan(
		&a.ID, &a.Code, &a.Name, &a.Description, &a.PointsReward, &a.DailyLimit, &a.TotalLimit,
		&a.IsActive, &a.ValidFrom, &a.ValidUntil, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrActivityNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *pgActivityRepository) List(ctx context.Context, q repository.Querier, includeInactive bool) ([]domain.PointActivity, error) {
	query := `SELECT ` + activityColumns + ` FROM point_activities`
	if !includeInactive {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY code`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []domain.PointActivity
	for rows.Next() {
		var a domain.PointActivity
		err := rows.Scan(
			&a.ID, &a.Code, &a.Name, &a.Description, &a.PointsReward, &a.DailyLimit, &a.TotalLimit,
			&a.IsActive, &a.ValidFrom, &a.ValidUntil, &a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}
