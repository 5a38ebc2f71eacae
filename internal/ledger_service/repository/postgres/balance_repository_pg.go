package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/loyaltyworks/points-platform/internal/ledger_service/domain"
	"github.com/loyaltyworks/points-platform/internal/ledger_service/repository"
)

type pgBalanceRepository struct {
	logger *slog.Logger
}

// NewPgBalanceRepository creates a BalanceRepository backed by PostgreSQL.
func NewPgBalanceRepository(logger *slog.Logger) repository.BalanceRepository {
	return &pgBalanceRepository{logger: logger.With("component", "balance_repository")}
}

// GetForUpdate inserts a zero row on first touch, then takes a row lock. The
// lock is held until the surrounding transaction commits, serializing all
// ledger mutations for this user without blocking other users.
func (r *pgBalanceRepository) GetForUpdate(ctx context.Context, q repository.Querier, userID string) (*domain.AccountBalance, error) {
	_, err := q.Exec(ctx, `
		INSERT INTO point_balances (user_id, current_points, updated_at)
		VALUES ($1, 0, now())
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return nil, err
	}

	bal := &domain.AccountBalance{}
	err = q.QueryRow(ctx, `
		SELECT user_id, current_points, updated_at
		FROM point_balances
		WHERE user_id = $1
		FOR UPDATE
	`, userID).Scan(&bal.UserID, &bal.CurrentPoints, &bal.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBalanceNotFound
		}
		return nil, err
	}
	return bal, nil
}

func (r *pgBalanceRepository) Get(ctx context.Context, q repository.Querier, userID string) (*domain.AccountBalance, error) {
	bal := &domain.AccountBalance{}
	err := q.QueryRow(ctx, `
		SELECT user_id, current_points, updated_at
		FROM point_balances
		WHERE user_id = $1
	`, userID).Scan(&bal.UserID, &bal.CurrentPoints, &bal.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBalanceNotFound
		}
		return nil, err
	}
	return bal, nil
}

func (r *pgBalanceRepository) SetCurrentPoints(ctx context.Context, q repository.Querier, userID string, points int64) error {
	tag, err := q.Exec(ctx, `
		UPDATE point_balances
		SET current_points = $1, updated_at = $2
		WHERE user_id = $3
	`, points, time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBalanceNotFound
	}
	return nil
}

func (r *pgBalanceRepository) ListAll(ctx context.Context, q repository.Querier) ([]domain.AccountBalance, error) {
	rows, err := q.Query(ctx, `
		SELECT user_id, current_points, updated_at
		FROM point_balances
		ORDER BY user_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []domain.AccountBalance
	for rows.Next() {
		var bal domain.AccountBalance
		if err := rows.Scan(&bal.UserID, &bal.CurrentPoints, &bal.UpdatedAt); err != nil {
			return nil, err
		}
		balances = append(balances, bal)
	}
	return balances, rows.Err()
}
