package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/loyaltyworks/points-platform/internal/ledger_service/domain"
)

func newTestRedemptionService(balanceRepo *MockBalanceRepository, txRepo *MockTransactionRepository, redemptionRepo *MockRedemptionRepository, publisher *MockEventPublisher) *RedemptionService {
	ledger := newTestLedgerService(balanceRepo, txRepo, publisher)
	var pub EventPublisher
	if publisher != nil {
		pub = publisher
	}
	return NewRedemptionService(stubDB{}, ledger, redemptionRepo, pub, testLogger(), 30*time.Minute, 100)
}

func pendingRedemption() *domain.PointRedemption {
	return &domain.PointRedemption{
		ID:             "red-1",
		UserID:         "user-1",
		PointsRedeemed: 100,
		RedemptionType: "gift_card",
		Status:         domain.RedemptionStatusPending,
		TransactionID:  "txn-hold",
		RequestedAt:    time.Now().UTC().Add(-time.Hour),
	}
}

func pendingHold() *domain.PointTransaction {
	return &domain.PointTransaction{
		ID: "txn-hold", UserID: "user-1", Type: domain.TransactionTypeDebit,
		Amount: 100, BalanceBefore: 150, BalanceAfter: 150,
		Status: domain.TransactionStatusPending,
	}
}

func TestRedemptionService_RequestRedemption_CreatesLinkedHold(t *testing.T) {
	balanceRepo := new(MockBalanceRepository)
	txRepo := new(MockTransactionRepository)
	redemptionRepo := new(MockRedemptionRepository)
	svc := newTestRedemptionService(balanceRepo, txRepo, redemptionRepo, nil)

	balanceRepo.On("GetForUpdate", mock.Anything, mock.Anything, "user-1").
		Return(&domain.AccountBalance{UserID: "user-1", CurrentPoints: 150}, nil).Once()
	txRepo.On("SumPendingDebits", mock.Anything, mock.Anything, "user-1").Return(int64(0), nil).Once()
	txRepo.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(txn *domain.PointTransaction) bool {
		return txn.Status == domain.TransactionStatusPending &&
			txn.Amount == 100 &&
			txn.ActivityType == domain.ActivityTypeRedemption &&
			txn.ReferenceID != nil &&
			txn.ExpiresAt != nil
	})).Return(pendingHold(), nil).Once()
	redemptionRepo.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(r *domain.PointRedemption) bool {
		return r.UserID == "user-1" &&
			r.PointsRedeemed == 100 &&
			r.Status == domain.RedemptionStatusPending &&
			r.TransactionID == "txn-hold"
	})).Return(pendingRedemption(), nil).Once()

	created, err := svc.RequestRedemption(context.Background(), "user-1", 100, "gift_card", 10.0, map[string]any{"sku": "GC-10"})

	require.NoError(t, err)
	assert.Equal(t, domain.RedemptionStatusPending, created.Status)
	assert.Equal(t, "txn-hold", created.TransactionID)
	redemptionRepo.AssertExpectations(t)
	txRepo.AssertExpectations(t)
}

func TestRedemptionService_RequestRedemption_InsufficientAvailable(t *testing.T) {
	balanceRepo := new(MockBalanceRepository)
	txRepo := new(MockTransactionRepository)
	redemptionRepo := new(MockRedemptionRepository)
	svc := newTestRedemptionService(balanceRepo, txRepo, redemptionRepo, nil)

	// Full balance already held by an earlier request.
	balanceRepo.On("GetForUpdate", mock.Anything, mock.Anything, "user-1").
		Return(&domain.AccountBalance{UserID: "user-1", CurrentPoints: 150}, nil).Once()
	txRepo.On("SumPendingDebits", mock.Anything, mock.Anything, "user-1").Return(int64(150), nil).Once()

	created, err := svc.RequestRedemption(context.Background(), "user-1", 50, "gift_card", 5.0, nil)

	require.Error(t, err)
	assert.Nil(t, created)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	redemptionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestRedemptionService_RequestRedemption_InvalidAmount(t *testing.T) {
	svc := newTestRedemptionService(new(MockBalanceRepository), new(MockTransactionRepository), new(MockRedemptionRepository), nil)

	created, err := svc.RequestRedemption(context.Background(), "user-1", 0, "gift_card", 0, nil)

	require.Error(t, err)
	assert.Nil(t, created)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestRedemptionService_ProcessRedemption_Approve(t *testing.T) {
	balanceRepo := new(MockBalanceRepository)
	txRepo := new(MockTransactionRepository)
	redemptionRepo := new(MockRedemptionRepository)
	publisher := new(MockEventPublisher)
	svc := newTestRedemptionService(balanceRepo, txRepo, redemptionRepo, publisher)

	redemptionRepo.On("GetByIDForUpdate", mock.Anything, mock.Anything, "red-1").Return(pendingRedemption(), nil).Once()
	txRepo.On("GetByID", mock.Anything, mock.Anything, "txn-hold").Return(pendingHold(), nil).Once()
	balanceRepo.On("GetForUpdate", mock.Anything, mock.Anything, "user-1").
		Return(&domain.AccountBalance{UserID: "user-1", CurrentPoints: 150}, nil).Once()
	txRepo.On("GetByIDForUpdate", mock.Anything, mock.Anything, "txn-hold").Return(pendingHold(), nil).Once()
	txRepo.On("SetStatus", mock.Anything, mock.Anything, "txn-hold", domain.TransactionStatusCompleted, int64(150), int64(50)).Return(nil).Once()
	balanceRepo.On("SetCurrentPoints", mock.Anything, mock.Anything, "user-1", int64(50)).Return(nil).Once()
	redemptionRepo.On("Update", mock.Anything, mock.Anything, mock.MatchedBy(func(r *domain.PointRedemption) bool {
		return r.Status == domain.RedemptionStatusApproved &&
			r.ProcessedAt != nil &&
			r.ProcessedBy != nil && *r.ProcessedBy == "admin-7" &&
			r.AdminNotes != nil && *r.AdminNotes == "shipped"
	})).Return(nil).Once()
	publisher.On("Publish", mock.Anything, SubjectRedemptionApproved, mock.Anything).Return(nil).Once()

	processed, err := svc.ProcessRedemption(context.Background(), "red-1", "admin-7", domain.ProcessActionApprove, "shipped")

	require.NoError(t, err)
	assert.Equal(t, domain.RedemptionStatusApproved, processed.Status)
	redemptionRepo.AssertExpectations(t)
	txRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestRedemptionService_ProcessRedemption_RejectRestoresAvailability(t *testing.T) {
	balanceRepo := new(MockBalanceRepository)
	txRepo := new(MockTransactionRepository)
	redemptionRepo := new(MockRedemptionRepository)
	publisher := new(MockEventPublisher)
	svc := newTestRedemptionService(balanceRepo, txRepo, redemptionRepo, publisher)

	redemptionRepo.On("GetByIDForUpdate", mock.Anything, mock.Anything, "red-1").Return(pendingRedemption(), nil).Once()
	txRepo.On("GetByID", mock.Anything, mock.Anything, "txn-hold").Return(pendingHold(), nil).Once()
	balanceRepo.On("GetForUpdate", mock.Anything, mock.Anything, "user-1").
		Return(&domain.AccountBalance{UserID: "user-1", CurrentPoints: 150}, nil).Once()
	txRepo.On("GetByIDForUpdate", mock.Anything, mock.Anything, "txn-hold").Return(pendingHold(), nil).Once()
	txRepo.On("SetStatus", mock.Anything, mock.Anything, "txn-hold", domain.TransactionStatusCancelled, int64(150), int64(150)).Return(nil).Once()
	redemptionRepo.On("Update", mock.Anything, mock.Anything, mock.MatchedBy(func(r *domain.PointRedemption) bool {
		return r.Status == domain.RedemptionStatusRejected
	})).Return(nil).Once()
	publisher.On("Publish", mock.Anything, SubjectRedemptionRejected, mock.Anything).Return(nil).Once()

	processed, err := svc.ProcessRedemption(context.Background(), "red-1", "admin-7", domain.ProcessActionReject, "out of stock")

	require.NoError(t, err)
	assert.Equal(t, domain.RedemptionStatusRejected, processed.Status)
	// Rejection releases the hold without ever touching the cached balance.
	balanceRepo.AssertNotCalled(t, "SetCurrentPoints", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	publisher.AssertExpectations(t)
}

func TestRedemptionService_ProcessRedemption_AlreadyProcessed(t *testing.T) {
	balanceRepo := new(MockBalanceRepository)
	txRepo := new(MockTransactionRepository)
	redemptionRepo := new(MockRedemptionRepository)
	svc := newTestRedemptionService(balanceRepo, txRepo, redemptionRepo, nil)

	approved := pendingRedemption()
	approved.Status = domain.RedemptionStatusApproved
	redemptionRepo.On("GetByIDForUpdate", mock.Anything, mock.Anything, "red-1").Return(approved, nil).Once()

	processed, err := svc.ProcessRedemption(context.Background(), "red-1", "admin-7", domain.ProcessActionApprove, "")

	require.Error(t, err)
	assert.Nil(t, processed)
	assert.ErrorIs(t, err, domain.ErrRedemptionProcessed)
	txRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything, mock.Anything)
	redemptionRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestRedemptionService_CancelRedemption_OwnerOnly(t *testing.T) {
	balanceRepo := new(MockBalanceRepository)
	txRepo := new(MockTransactionRepository)
	redemptionRepo := new(MockRedemptionRepository)
	svc := newTestRedemptionService(balanceRepo, txRepo, redemptionRepo, nil)

	redemptionRepo.On("GetByIDForUpdate", mock.Anything, mock.Anything, "red-1").Return(pendingRedemption(), nil).Once()

	cancelled, err := svc.CancelRedemption(context.Background(), "red-1", "someone-else")

	require.Error(t, err)
	assert.Nil(t, cancelled)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
	redemptionRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestRedemptionService_CancelRedemption(t *testing.T) {
	balanceRepo := new(MockBalanceRepository)
	txRepo := new(MockTransactionRepository)
	redemptionRepo := new(MockRedemptionRepository)
	svc := newTestRedemptionService(balanceRepo, txRepo, redemptionRepo, nil)

	redemptionRepo.On("GetByIDForUpdate", mock.Anything, mock.Anything, "red-1").Return(pendingRedemption(), nil).Once()
	txRepo.On("GetByID", mock.Anything, mock.Anything, "txn-hold").Return(pendingHold(), nil).Once()
	balanceRepo.On("GetForUpdate", mock.Anything, mock.Anything, "user-1").
		Return(&domain.AccountBalance{UserID: "user-1", CurrentPoints: 150}, nil).Once()
	txRepo.On("GetByIDForUpdate", mock.Anything, mock.Anything, "txn-hold").Return(pendingHold(), nil).Once()
	txRepo.On("SetStatus", mock.Anything, mock.Anything, "txn-hold", domain.TransactionStatusCancelled, int64(150), int64(150)).Return(nil).Once()
	redemptionRepo.On("Update", mock.Anything, mock.Anything, mock.MatchedBy(func(r *domain.PointRedemption) bool {
		return r.Status == domain.RedemptionStatusCancelled && r.ProcessedAt != nil
	})).Return(nil).Once()

	cancelled, err := svc.CancelRedemption(context.Background(), "red-1", "user-1")

	require.NoError(t, err)
	assert.Equal(t, domain.RedemptionStatusCancelled, cancelled.Status)
	redemptionRepo.AssertExpectations(t)
}

func TestRedemptionService_ExpireReservations(t *testing.T) {
	balanceRepo := new(MockBalanceRepository)
	txRepo := new(MockTransactionRepository)
	redemptionRepo := new(MockRedemptionRepository)
	svc := newTestRedemptionService(balanceRepo, txRepo, redemptionRepo, nil)

	redemptionRepo.On("ListExpiredPending", mock.Anything, mock.Anything, mock.Anything, 100).
		Return([]domain.PointRedemption{*pendingRedemption()}, nil).Once()
	redemptionRepo.On("GetByIDForUpdate", mock.Anything, mock.Anything, "red-1").Return(pendingRedemption(), nil).Once()
	txRepo.On("GetByID", mock.Anything, mock.Anything, "txn-hold").Return(pendingHold(), nil).Once()
	balanceRepo.On("GetForUpdate", mock.Anything, mock.Anything, "user-1").
		Return(&domain.AccountBalance{UserID: "user-1", CurrentPoints: 150}, nil).Once()
	txRepo.On("GetByIDForUpdate", mock.Anything, mock.Anything, "txn-hold").Return(pendingHold(), nil).Once()
	txRepo.On("SetStatus", mock.Anything, mock.Anything, "txn-hold", domain.TransactionStatusCancelled, int64(150), int64(150)).Return(nil).Once()
	redemptionRepo.On("Update", mock.Anything, mock.Anything, mock.MatchedBy(func(r *domain.PointRedemption) bool {
		return r.Status == domain.RedemptionStatusCancelled &&
			r.AdminNotes != nil && *r.AdminNotes == "reservation expired"
	})).Return(nil).Once()

	released, err := svc.ExpireReservations(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, released)
	redemptionRepo.AssertExpectations(t)
}

func TestRedemptionService_ExpireReservations_SkipsRacedDecision(t *testing.T) {
	balanceRepo := new(MockBalanceRepository)
	txRepo := new(MockTransactionRepository)
	redemptionRepo := new(MockRedemptionRepository)
	svc := newTestRedemptionService(balanceRepo, txRepo, redemptionRepo, nil)

	// Listed as expired, but an admin approved it before the sweep locked it.
	approved := pendingRedemption()
	approved.Status = domain.RedemptionStatusApproved
	redemptionRepo.On("ListExpiredPending", mock.Anything, mock.Anything, mock.Anything, 100).
		Return([]domain.PointRedemption{*pendingRedemption()}, nil).Once()
	redemptionRepo.On("GetByIDForUpdate", mock.Anything, mock.Anything, "red-1").Return(approved, nil).Once()

	released, err := svc.ExpireReservations(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, released)
	redemptionRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestRedemptionService_GetRedemption_OwnerOnly(t *testing.T) {
	balanceRepo := new(MockBalanceRepository)
	txRepo := new(MockTransactionRepository)
	redemptionRepo := new(MockRedemptionRepository)
	svc := newTestRedemptionService(balanceRepo, txRepo, redemptionRepo, nil)

	redemptionRepo.On("GetByID", mock.Anything, mock.Anything, "red-1").Return(pendingRedemption(), nil)

	red, err := svc.GetRedemption(context.Background(), "red-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "red-1", red.ID)

	red, err = svc.GetRedemption(context.Background(), "red-1", "intruder")
	require.Error(t, err)
	assert.Nil(t, red)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
}
