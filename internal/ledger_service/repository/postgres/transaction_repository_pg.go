package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/loyaltyworks/points-platform/internal/ledger_service/domain"
	"github.com/loyaltyworks/points-platform/internal/ledger_service/repository"
)

const transactionColumns = `id, user_id, type, amount, balance_before, balance_after,
	activity_type, description, reference_id, reference_type, status, metadata, expires_at, created_at`

type pgTransactionRepository struct {
	logger *slog.Logger
}

// NewPgTransactionRepository creates a TransactionRepository backed by PostgreSQL.
func NewPgTransactionRepository(logger *slog.Logger) repository.TransactionRepository {
	return &pgTransactionRepository{logger: logger.With("component", "transaction_repository")}
}

func (r *pgTransactionRepository) Create(ctx context.Context, q repository.Querier, txn *domain.PointTransaction) (*domain.PointTransaction, error) {
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	txn.CreatedAt = time.Now().UTC()

	var metadata []byte
	if txn.Metadata != nil {
		var err error
		metadata, err = json.Marshal(txn.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal transaction metadata: %w", err)
		}
	}

	_, err := q.Exec(ctx, `
		INSERT INTO point_transactions (id, user_id, type, amount, balance_before, balance_after,
		                                activity_type, description, reference_id, reference_type,
		                                status, metadata, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		txn.ID, txn.UserID, txn.Type, txn.Amount, txn.BalanceBefore, txn.BalanceAfter,
		txn.ActivityType, txn.Description, txn.ReferenceID, txn.ReferenceType,
		txn.Status, metadata, txn.ExpiresAt, txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func scanTransaction(row pgx.Row) (*domain.PointTransaction, error) {
	txn := &domain.PointTransaction{}
	var metadata []byte
	err := row.Scan(
		&txn.ID, &txn.UserID, &txn.Type, &txn.Amount, &txn.BalanceBefore, &txn.BalanceAfter,
		&txn.ActivityType, &txn.Description, &txn.ReferenceID, &txn.ReferenceType,
		&txn.Status, &metadata, &txn.ExpiresAt, &txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &txn.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
		}
	}
	return txn, nil
}

func (r *pgTransactionRepository) GetByID(ctx context.Context, q repository.Querier, id string) (*domain.PointTransaction, error) {
	row := q.QueryRow(ctx, `SELECT `+transactionColumns+` FROM point_transactions WHERE id = $1`, id)
	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return txn, nil
}

func (r *pgTransactionRepository) GetByIDForUpdate(ctx context.Context, q repository.Querier, id string) (*domain.PointTransaction, error) {
	row := q.QueryRow(ctx, `SELECT `+transactionColumns+` FROM point_transactions WHERE id = $1 FOR UPDATE`, id)
	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return txn, nil
}

func (r *pgTransactionRepository) SetStatus(ctx context.Context, q repository.Querier, id string, status domain.TransactionStatus, balanceBefore, balanceAfter int64) error {
	tag, err := q.Exec(ctx, `
		UPDATE point_transactions
		SET status = $1, balance_before = $2, balance_after = $3
		WHERE id = $4
	`, status, balanceBefore, balanceAfter, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

func (r *pgTransactionRepository) SumPendingDebits(ctx context.Context, q repository.Querier, userID string) (int64, error) {
	var sum int64
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM point_transactions
		WHERE user_id = $1 AND type = $2 AND status = $3
	`, userID, domain.TransactionTypeDebit, domain.TransactionStatusPending).Scan(&sum)
	return sum, err
}

func (r *pgTransactionRepository) CountCompletedCredits(ctx context.Context, q repository.Querier, userID, activityType string, since *time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM point_transactions
		WHERE user_id = $1 AND activity_type = $2 AND type = $3 AND status = $4`
	args := []any{userID, activityType, domain.TransactionTypeCredit, domain.TransactionStatusCompleted}
	if since != nil {
		query += ` AND created_at >= $5`
		args = append(args, *since)
	}

	var count int
	err := q.QueryRow(ctx, query, args...).Scan(&count)
	return count, err
}

// buildFilter appends WHERE fragments for the optional history filters,
// continuing the positional parameter numbering from argPos.
func buildFilter(f domain.TransactionFilter, args []any, argPos int) (string, []any, int) {
	var clause string
	if f.ActivityType != "" {
		clause += ` AND activity_type = $` + strconv.Itoa(argPos)
		args = append(args, f.ActivityType)
		argPos++
	}
	if f.Type != "" {
		clause += ` AND type = $` + strconv.Itoa(argPos)
		args = append(args, f.Type)
		argPos++
	}
	if f.From != nil {
		clause += ` AND created_at >= $` + strconv.Itoa(argPos)
		args = append(args, *f.From)
		argPos++
	}
	if f.To != nil {
		clause += ` AND created_at <= $` + strconv.Itoa(argPos)
		args = append(args, *f.To)
		argPos++
	}
	return clause, args, argPos
}

func (r *pgTransactionRepository) ListByUser(ctx context.Context, q repository.Querier, userID string, f domain.TransactionFilter, limit, offset int) ([]domain.PointTransaction, int, error) {
	where := ` WHERE user_id = $1`
	args := []any{userID}
	clause, args, argPos := buildFilter(f, args, 2)
	where += clause

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM point_transactions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + transactionColumns + ` FROM point_transactions` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(argPos) + ` OFFSET $` + strconv.Itoa(argPos+1)
	args = append(args, limit, offset)

	return r.queryTransactions(ctx, q, query, args, total)
}

func (r *pgTransactionRepository) ListAll(ctx context.Context, q repository.Querier, f domain.TransactionFilter, limit, offset int) ([]domain.PointTransaction, int, error) {
	where := ` WHERE 1=1`
	var args []any
	clause, args, argPos := buildFilter(f, args, 1)
	where += clause

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM point_transactions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + transactionColumns + ` FROM point_transactions` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(argPos) + ` OFFSET $` + strconv.Itoa(argPos+1)
	args = append(args, limit, offset)

	return r.queryTransactions(ctx, q, query, args, total)
}

func (r *pgTransactionRepository) queryTransactions(ctx context.Context, q repository.Querier, query string, args []any, total int) ([]domain.PointTransaction, int, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var transactions []domain.PointTransaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return transactions, total, nil
}

func (r *pgTransactionRepository) ComputeUserBalance(ctx context.Context, q repository.Querier, userID string) (int64, error) {
	var computed int64
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE WHEN type = $1 THEN amount ELSE -amount END), 0)
		FROM point_transactions
		WHERE user_id = $2 AND status = $3
	`, domain.TransactionTypeCredit, userID, domain.TransactionStatusCompleted).Scan(&computed)
	return computed, err
}

func (r *pgTransactionRepository) ComputedBalances(ctx context.Context, q repository.Querier) ([]domain.UserComputedBalance, error) {
	rows, err := q.Query(ctx, `
		SELECT user_id, COALESCE(SUM(CASE WHEN type = $1 THEN amount ELSE -amount END), 0)
		FROM point_transactions
		WHERE status = $2
		GROUP BY user_id
	`, domain.TransactionTypeCredit, domain.TransactionStatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var computed []domain.UserComputedBalance
	for rows.Next() {
		var c domain.UserComputedBalance
		if err := rows.Scan(&c.UserID, &c.Computed); err != nil {
			return nil, err
		}
		computed = append(computed, c)
	}
	return computed, rows.Err()
}

func (r *pgTransactionRepository) TopNetTotals(ctx context.Context, q repository.Querier, from, to time.Time, limit int) ([]domain.LeaderboardEntry, error) {
	rows, err := q.Query(ctx, `
		SELECT user_id, COALESCE(SUM(CASE WHEN type = $1 THEN amount ELSE -amount END), 0) AS net
		FROM point_transactions
		WHERE status = $2 AND created_at >= $3 AND created_at < $4
		GROUP BY user_id
		ORDER BY net DESC, user_id
		LIMIT $5
	`, domain.TransactionTypeCredit, domain.TransactionStatusCompleted, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.NetPoints); err != nil {
			return nil, err
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *pgTransactionRepository) Stats(ctx context.Context, q repository.Querier) (*domain.TransactionStats, error) {
	stats := &domain.TransactionStats{}
	err := q.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN type = $1 THEN amount END), 0),
			COALESCE(SUM(CASE WHEN type = $2 THEN amount END), 0),
			COUNT(*)
		FROM point_transactions
		WHERE status = $3
	`, domain.TransactionTypeCredit, domain.TransactionTypeDebit, domain.TransactionStatusCompleted).
		Scan(&stats.TotalPointsAwarded, &stats.TotalPointsRedeemed, &stats.TransactionCount)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
