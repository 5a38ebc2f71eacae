package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/loyaltyworks/points-platform/internal/ledger_service/domain"
	"github.com/loyaltyworks/points-platform/internal/ledger_service/repository"
)

const redemptionColumns = `id, user_id, points_redeemed, redemption_type, redemption_value,
	redemption_details, status, requested_at, processed_at, processed_by, admin_notes, transaction_id`

type pgRedemptionRepository struct {
	logger *slog.Logger
}

// NewPgRedemptionRepository creates a RedemptionRepository backed by PostgreSQL.
func NewPgRedemptionRepository(logger *slog.Logger) repository.RedemptionRepository {
	return &pgRedemptionRepository{logger: logger.With("component", "redemption_repository")}
}

func (r *pgRedemptionRepository) Create(ctx context.Context, q repository.Querier, red *domain.PointRedemption) (*domain.PointRedemption, error) {
	if red.ID == "" {
		red.ID = uuid.NewString()
	}
	if red.RequestedAt.IsZero() {
		red.RequestedAt = time.Now().UTC()
	}

	var details []byte
	if red.RedemptionDetails != nil {
		var err error
		details, err = json.Marshal(red.RedemptionDetails)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal redemption details: %w", err)
		}
	}

	_, err := q.Exec(ctx, `
		INSERT INTO point_redemptions (id, user_id, points_redeemed, redemption_type, redemption_value,
		                               redemption_details, status, requested_at, processed_at,
		                               processed_by, admin_notes, transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		red.ID, red.UserID, red.PointsRedeemed, red.RedemptionType, red.RedemptionValue,
		details, red.Status, red.RequestedAt, red.ProcessedAt,
		red.ProcessedBy, red.AdminNotes, red.TransactionID,
	)
	if err != nil {
		return nil, err
	}
	return red, nil
}

func scanRedemption(row pgx.Row) (*domain.PointRedemption, error) {
	red := &domain.PointRedemption{}
	var details []byte
	err := row.Scan(
		&red.ID, &red.UserID, &red.PointsRedeemed, &red.RedemptionType, &red.RedemptionValue,
		&details, &red.Status, &red.RequestedAt, &red.ProcessedAt,
		&red.ProcessedBy, &red.AdminNotes, &red.TransactionID,
	)
	if err != nil {
		return nil, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &red.RedemptionDetails); err != nil {
			return nil, fmt.Errorf("failed to unmarshal redemption details: %w", err)
		}
	}
	return red, nil
}

func (r *pgRedemptionRepository) GetByID(ctx context.Context, q repository.Querier, id string) (*domain.PointRedemption, error) {
	row := q.QueryRow(ctx, `SELECT `+redemptionColumns+` FROM point_redemptions WHERE id = $1`, id)
	red, err := scanRedemption(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRedemptionNotFound
		}
		return nil, err
	}
	return red, nil
}

func (r *pgRedemptionRepository) GetByIDForUpdate(ctx context.Context, q repository.Querier, id string) (*domain.PointRedemption, error) {
	row := q.QueryRow(ctx, `SELECT `+redemptionColumns+` FROM point_redemptions WHERE id = $1 FOR UPDATE`, id)
	red, err := scanRedemption(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRedemptionNotFound
		}
		return nil, err
	}
	return red, nil
}

func (r *pgRedemptionRepository) Update(ctx context.Context, q repository.Querier, red *domain.PointRedemption) error {
	tag, err := q.Exec(ctx, `
		UPDATE point_redemptions
		SET status = $1, processed_at = $2, processed_by = $3, admin_notes = $4
		WHERE id = $5
	`, red.Status, red.ProcessedAt, red.ProcessedBy, red.AdminNotes, red.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRedemptionNotFound
	}
	return nil
}

func (r *pgRedemptionRepository) ListByUser(ctx context.Context, q repository.Querier, userID string, limit, offset int) ([]domain.PointRedemption, int, error) {
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM point_redemptions WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, `
		SELECT `+redemptionColumns+`
		FROM point_redemptions
		WHERE user_id = $1
		ORDER BY requested_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	return collectRedemptions(rows, total)
}

func (r *pgRedemptionRepository) ListAll(ctx context.Context, q repository.Querier, status domain.RedemptionStatus, limit, offset int) ([]domain.PointRedemption, int, error) {
	where := ``
	args := []any{}
	if status != "" {
		where = ` WHERE status = $1`
		args = append(args, status)
	}

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM point_redemptions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + redemptionColumns + ` FROM point_redemptions` + where + ` ORDER BY requested_at DESC`
	if status != "" {
		query += ` LIMIT $2 OFFSET $3`
	} else {
		query += ` LIMIT $1 OFFSET $2`
	}
	args = append(args, limit, offset)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	return collectRedemptions(rows, total)
}

func (r *pgRedemptionRepository) ListExpiredPending(ctx context.Context, q repository.Querier, asOf time.Time, limit int) ([]domain.PointRedemption, error) {
	rows, err := q.Query(ctx, `
		SELECT r.id, r.user_id, r.points_redeemed, r.redemption_type, r.redemption_value,
		       r.redemption_details, r.status, r.requested_at, r.processed_at,
		       r.processed_by, r.admin_notes, r.transaction_id
		FROM point_redemptions r
		JOIN point_transactions t ON t.id = r.transaction_id
		WHERE r.status = $1
		  AND t.status = $2
		  AND t.expires_at IS NOT NULL
		  AND t.expires_at <= $3
		ORDER BY t.expires_at
		LIMIT $4
	`, domain.RedemptionStatusPending, domain.TransactionStatusPending, asOf, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	redemptions, _, err := collectRedemptions(rows, 0)
	return redemptions, err
}

func (r *pgRedemptionRepository) CountByStatus(ctx context.Context, q repository.Querier, status domain.RedemptionStatus) (int, error) {
	var count int
	err := q.QueryRow(ctx, `SELECT COUNT(*) FROM point_redemptions WHERE status = $1`, status).Scan(&count)
	return count, err
}

func collectRedemptions(rows pgx.Rows, total int) ([]domain.PointRedemption, int, error) {
	var redemptions []domain.PointRedemption
	for rows.Next() {
		red, err := scanRedemption(rows)
		if err != nil {
			return nil, 0, err
		}
		redemptions = append(redemptions, *red)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return redemptions, total, nil
}
