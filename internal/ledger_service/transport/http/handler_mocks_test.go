package http

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/loyaltyworks/points-platform/internal/ledger_service/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type MockLedgerReader struct {
	mock.Mock
}

func (m *MockLedgerReader) GetBalance(ctx context.Context, userID string) (*domain.AccountBalance, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccountBalance), args.Error(1)
}

func (m *MockLedgerReader) GetBalanceDetail(ctx context.Context, userID string) (*domain.BalanceDetail, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BalanceDetail), args.Error(1)
}

func (m *MockLedgerReader) GetTransactionHistory(ctx context.Context, userID string, f domain.TransactionFilter, page, pageSize int) ([]domain.PointTransaction, int, error) {
	args := m.Called(ctx, userID, f, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.PointTransaction), args.Int(1), args.Error(2)
}

type MockActivityLister struct {
	mock.Mock
}

func (m *MockActivityLister) ListActivities(ctx context.Context, includeInactive bool) ([]domain.PointActivity, error) {
	args := m.Called(ctx, includeInactive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PointActivity), args.Error(1)
}

type MockLeaderboardReader struct {
	mock.Mock
}

func (m *MockLeaderboardReader) TopUsers(ctx context.Context, window time.Duration, limit int) ([]domain.LeaderboardEntry, error) {
	args := m.Called(ctx, window, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LeaderboardEntry), args.Error(1)
}

type MockRedemptionWorkflow struct {
	mock.Mock
}

func (m *MockRedemptionWorkflow) RequestRedemption(ctx context.Context, userID string, points int64, redemptionType string, redemptionValue float64, details map[string]any) (*domain.PointRedemption, error) {
	args := m.Called(ctx, userID, points, redemptionType, redemptionValue, details)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PointRedemption), args.Error(1)
}

func (m *MockRedemptionWorkflow) GetRedemption(ctx context.Context, redemptionID, userID string) (*domain.PointRedemption, error) {
	args := m.Called(ctx, redemptionID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PointRedemption), args.Error(1)
}

func (m *MockRedemptionWorkflow) ListRedemptions(ctx context.Context, userID string, page, pageSize int) ([]domain.PointRedemption, int, error) {
	args := m.Called(ctx, userID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.PointRedemption), args.Int(1), args.Error(2)
}

func (m *MockRedemptionWorkflow) CancelRedemption(ctx context.Context, redemptionID, userID string) (*domain.PointRedemption, error) {
	args := m.Called(ctx, redemptionID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PointRedemption), args.Error(1)
}

type MockAwarder struct {
	mock.Mock
}

func (m *MockAwarder) AwardForActivity(ctx context.Context, userID, activityCode string, occurredAt time.Time) (*domain.PointTransaction, error) {
	args := m.Called(ctx, userID, activityCode, occurredAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PointTransaction), args.Error(1)
}

func (m *MockAwarder) AwardManual(ctx context.Context, userID string, amount int64, adminID, description string, referenceID *string) (*domain.PointTransaction, error) {
	args := m.Called(ctx, userID, amount, adminID, description, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PointTransaction), args.Error(1)
}

func (m *MockAwarder) CreateActivity(ctx context.Context, a *domain.PointActivity) (*domain.PointActivity, error) {
	args := m.Called(ctx, a)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PointActivity), args.Error(1)
}

func (m *MockAwarder) UpdateActivity(ctx context.Context, a *domain.PointActivity) (*domain.PointActivity, error) {
	args := m.Called(ctx, a)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PointActivity), args.Error(1)
}

func (m *MockAwarder) ListActivities(ctx context.Context, includeInactive bool) ([]domain.PointActivity, error) {
	args := m.Called(ctx, includeInactive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PointActivity), args.Error(1)
}

type MockRedemptionAdmin struct {
	mock.Mock
}

func (m *MockRedemptionAdmin) ProcessRedemption(ctx context.Context, redemptionID, adminID string, action domain.ProcessAction, notes string) (*domain.PointRedemption, error) {
	args := m.Called(ctx, redemptionID, adminID, action, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PointRedemption), args.Error(1)
}

func (m *MockRedemptionAdmin) ListAllRedemptions(ctx context.Context, status domain.RedemptionStatus, page, pageSize int) ([]domain.PointRedemption, int, error) {
	args := m.Called(ctx, status, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.PointRedemption), args.Int(1), args.Error(2)
}

type MockLedgerAdmin struct {
	mock.Mock
}

func (m *MockLedgerAdmin) ListAllTransactions(ctx context.Context, f domain.TransactionFilter, page, pageSize int) ([]domain.PointTransaction, int, error) {
	args := m.Called(ctx, f, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.PointTransaction), args.Int(1), args.Error(2)
}

type MockAuditor struct {
	mock.Mock
}

func (m *MockAuditor) CheckConsistency(ctx context.Context) (*domain.ConsistencyReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConsistencyReport), args.Error(1)
}

func (m *MockAuditor) FixInconsistentBalances(ctx context.Context) (*domain.ReconciliationReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReconciliationReport), args.Error(1)
}

func (m *MockAuditor) GetSystemStats(ctx context.Context) (*domain.SystemStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SystemStats), args.Error(1)
}
