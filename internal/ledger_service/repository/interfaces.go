package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/loyaltyworks/points-platform/internal/ledger_service/domain"
)

// Querier is the common surface of pgxpool.Pool and pgx.Tx, so repository
// methods can run inside or outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// BalanceRepository persists the per-user cached balance.
type BalanceRepository interface {
	// GetForUpdate locks the user's balance row for the duration of the
	// surrounding transaction, inserting a zero row on first touch. This row
	// lock is the per-user critical section for every mutating ledger op.
	GetForUpdate(ctx context.Context, q Querier, userID string) (*domain.AccountBalance, error)
	Get(ctx context.Context, q Querier, userID string) (*domain.AccountBalance, error)
	SetCurrentPoints(ctx context.Context, q Querier, userID string, points int64) error
	ListAll(ctx context.Context, q Querier) ([]domain.AccountBalance, error)
}

// TransactionRepository persists the append-mostly ledger.
type TransactionRepository interface {
	Create(ctx context.Context, q Querier, txn *domain.PointTransaction) (*domain.PointTransaction, error)
	GetByID(ctx context.Context, q Querier, id string) (*domain.PointTransaction, error)
	// GetByIDForUpdate locks the row; used when finalizing reservations.
	GetByIDForUpdate(ctx context.Context, q Querier, id string) (*domain.PointTransaction, error)
	// SetStatus moves a pending entry to a terminal status, recording the
	// balance figures observed at finalization.
	SetStatus(ctx context.Context, q Querier, id string, status domain.TransactionStatus, balanceBefore, balanceAfter int64) error
	// SumPendingDebits returns the total of the user's open reservations.
	SumPendingDebits(ctx context.Context, q Querier, userID string) (int64, error)
	// CountCompletedCredits counts completed credits with the given provenance,
	// optionally restricted to entries created at or after since.
	CountCompletedCredits(ctx context.Context, q Querier, userID, activityType string, since *time.Time) (int, error)
	ListByUser(ctx context.Context, q Querier, userID string, f domain.TransactionFilter, limit, offset int) ([]domain.PointTransaction, int, error)
	ListAll(ctx context.Context, q Querier, f domain.TransactionFilter, limit, offset int) ([]domain.PointTransaction, int, error)
	// ComputeUserBalance recomputes one user's balance from completed entries.
	ComputeUserBalance(ctx context.Context, q Querier, userID string) (int64, error)
	// ComputedBalances recomputes every user's balance from completed entries.
	ComputedBalances(ctx context.Context, q Querier) ([]domain.UserComputedBalance, error)
	// TopNetTotals ranks users by net completed points inside a time window.
	TopNetTotals(ctx context.Context, q Querier, from, to time.Time, limit int) ([]domain.LeaderboardEntry, error)
	Stats(ctx context.Context, q Querier) (*domain.TransactionStats, error)
}

// ActivityRepository persists the activity catalog.
type ActivityRepository interface {
	Create(ctx context.Context, q Querier, a *domain.PointActivity) (*domain.PointActivity, error)
	Update(ctx context.Context, q Querier, a *domain.PointActivity) error
	GetByCode(ctx context.Context, q Querier, code string) (*domain.PointActivity, error)
	List(ctx context.Context, q Querier, includeInactive bool) ([]domain.PointActivity, error)
}

// RedemptionRepository persists redemption requests.
type RedemptionRepository interface {
	Create(ctx context.Context, q Querier, r *domain.PointRedemption) (*domain.PointRedemption, error)
	GetByID(ctx context.Context, q Querier, id string) (*domain.PointRedemption, error)
	GetByIDForUpdate(ctx context.Context, q Querier, id string) (*domain.PointRedemption, error)
	Update(ctx context.Context, q Querier, r *domain.PointRedemption) error
	ListByUser(ctx context.Context, q Querier, userID string, limit, offset int) ([]domain.PointRedemption, int, error)
	ListAll(ctx context.Context, q Querier, status domain.RedemptionStatus, limit, offset int) ([]domain.PointRedemption, int, error)
	// ListExpiredPending returns pending redemptions whose reservation has
	// passed its expiry, for the sweep to release.
	ListExpiredPending(ctx context.Context, q Querier, asOf time.Time, limit int) ([]domain.PointRedemption, error)
	CountByStatus(ctx context.Context, q Querier, status domain.RedemptionStatus) (int, error)
}
