package app

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"

	"github.com/loyaltyworks/points-platform/internal/ledger_service/domain"
	"github.com/loyaltyworks/points-platform/internal/ledger_service/repository"
)

// --- Database stubs ---

// stubTx satisfies pgx.Tx for pgx.BeginFunc. Repository calls receive it as a
// Querier but are mocked at the interface level, so its query methods are
// never reached.
type stubTx struct{}

func (stubTx) Begin(ctx context.Context) (pgx.Tx, error) { return stubTx{}, nil }
func (stubTx) Commit(ctx context.Context) error          { return nil }
func (stubTx) Rollback(ctx context.Context) error        { return nil }
func (stubTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (stubTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (stubTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (stubTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (stubTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (stubTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (stubTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (stubTx) Conn() *pgx.Conn                                               { return nil }

// stubDB satisfies the app DB interface.
type stubDB struct{}

func (stubDB) Begin(ctx context.Context) (pgx.Tx, error) { return stubTx{}, nil }
func (stubDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (stubDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (stubDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }

// --- Repository mocks ---

type MockBalanceRepository struct {
	mock.Mock
}

func (m *MockBalanceRepository) GetForUpdate(ctx context.Context, q repository.Querier, userID string) (*domain.AccountBalance, error) {
	args := m.Called(ctx, q, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccountBalance), args.Error(1)
}

func (m *MockBalanceRepository) Get(ctx context.Context, q repository.Querier, userID string) (*domain.AccountBalance, error) {
	args := m.Called(ctx, q, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccountBalance), args.Error(1)
}

func (m *MockBalanceRepository) SetCurrentPoints(ctx context.Context, q repository.Querier, userID string, points int64) error {
	args := m.Called(ctx, q, userID, points)
	return args.Error(0)
}

func (m *MockBalanceRepository) ListAll(ctx context.Context, q repository.Querier) ([]domain.AccountBalance, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AccountBalance), args.Error(1)
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, q repository.Querier, txn *domain.PointTransaction) (*domain.PointTransaction, error) {
	args := m.Called(ctx, q, txn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PointTransaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, q repository.Querier, id string) (*domain.PointTransaction, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PointTransaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByIDForUpdate(ctx context.Context, q repository.Querier, id string) (*domain.PointTransaction, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PointTransaction), args.Error(1)
}

func (m *MockTransactionRepository) SetStatus(ctx context.Context, q repository.Querier, id string, status domain.TransactionStatus, balanceBefore, balanceAfter int64) error {
	args := m.Called(ctx, q, id, status, balanceBefore, balanceAfter)
	return args.Error(0)
}

func (m *MockTransactionRepository) SumPendingDebits(ctx context.Context, q repository.Querier, userID string) (int64, error) {
	args := m.Called(ctx, q, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) CountCompletedCredits(ctx context.Context, q repository.Querier, userID, activityType string, since *time.Time) (int, error) {
	args := m.Called(ctx, q, userID, activityType, since)
	return args.Int(0), args.Error(1)
}

func (m *MockTransactionRepository) ListByUser(ctx context.Context, q repository.Querier, userID string, f domain.TransactionFilter, limit, offset int) ([]domain.PointTransaction, int, error) {
	args := m.Called(ctx, q, userID, f, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.PointTransaction), args.Int(1), args.Error(2)
}

func (m *MockTransactionRepository) ListAll(ctx context.Context, q repository.Querier, f domain.TransactionFilter, limit, offset int) ([]domain.PointTransaction, int, error) {
	args := m.Called(ctx, q, f, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.PointTransaction), args.Int(1), args.Error(2)
}

func (m *MockTransactionRepository) ComputeUserBalance(ctx context.Context, q repository.Querier, userID string) (int64, error) {
	args := m.Called(ctx, q, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) ComputedBalances(ctx context.Context, q repository.Querier) ([]domain.UserComputedBalance, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.UserComputedBalance), args.Error(1)
}

func (m *MockTransactionRepository) TopNetTotals(ctx context.Context, q repository.Querier, from, to time.Time, limit int) ([]domain.LeaderboardEntry, error) {
	args := m.Called(ctx, q, from, to, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LeaderboardEntry), args.Error(1)
}

func (m *MockTransactionRepository) Stats(ctx context.Context, q repository.Querier) (*domain.TransactionStats, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransactionStats), args.Error(1)
}

type MockActivityRepository struct {
	mock.Mock
}

func (m *MockActivityRepository) Create(ctx context.Context, q repository.Querier, a *domain.PointActivity) (*domain.PointActivity, error) {
	args := m.Called(ctx, q, a)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PointActivity), args.Error(1)
}

func (m *MockActivityRepository) Update(ctx context.Context, q repository.Querier, a *domain.PointActivity) error {
	args := m.Called(ctx, q, a)
	return args.Error(0)
}

func (m *MockActivityRepository) GetByCode(ctx context.Context, q repository.Querier, code string) (*domain.PointActivity, error) {
	args := m.Called(ctx, q, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PointActivity), args.Error(1)
}

func (m *MockActivityRepository) List(ctx context.Context, q repository.Querier, includeInactive bool) ([]domain.PointActivity, error) {
	args := m.Called(ctx, q, includeInactive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PointActivity), args.Error(1)
}

type MockRedemptionRepository struct {
	mock.Mock
}

func (m *MockRedemptionRepository) Create(ctx context.Context, q repository.Querier, r *domain.PointRedemption) (*domain.PointRedemption, error) {
	args := m.Called(ctx, q, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PointRedemption), args.Error(1)
}

func (m *MockRedemptionRepository) GetByID(ctx context.Context, q repository.Querier, id string) (*domain.PointRedemption, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PointRedemption), args.Error(1)
}

func (m *MockRedemptionRepository) GetByIDForUpdate(ctx context.Context, q repository.Querier, id string) (*domain.PointRedemption, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PointRedemption), args.Error(1)
}

func (m *MockRedemptionRepository) Update(ctx context.Context, q repository.Querier, r *domain.PointRedemption) error {
	args := m.Called(ctx, q, r)
	return args.Error(0)
}

func (m *MockRedemptionRepository) ListByUser(ctx context.Context, q repository.Querier, userID string, limit, offset int) ([]domain.PointRedemption, int, error) {
	args := m.Called(ctx, q, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.PointRedemption), args.Int(1), args.Error(2)
}

func (m *MockRedemptionRepository) ListAll(ctx context.Context, q repository.Querier, status domain.RedemptionStatus, limit, offset int) ([]domain.PointRedemption, int, error) {
	args := m.Called(ctx, q, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.PointRedemption), args.Int(1), args.Error(2)
}

func (m *MockRedemptionRepository) ListExpiredPending(ctx context.Context, q repository.Querier, asOf time.Time, limit int) ([]domain.PointRedemption, error) {
	args := m.Called(ctx, q, asOf, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PointRedemption), args.Error(1)
}

func (m *MockRedemptionRepository) CountByStatus(ctx context.Context, q repository.Querier, status domain.RedemptionStatus) (int, error) {
	args := m.Called(ctx, q, status)
	return args.Int(0), args.Error(1)
}

// --- Event publisher mock ---

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}
