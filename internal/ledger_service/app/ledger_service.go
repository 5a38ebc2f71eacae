package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/loyaltyworks/points-platform/internal/ledger_service/domain"
	"github.com/loyaltyworks/points-platform/internal/ledger_service/repository"
)

// DB is the slice of pgxpool.Pool the services need: direct queries for reads
// and transaction control for the atomic write paths.
type DB interface {
	repository.Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func normalizePage(page, pageSize int) (limit, offset int) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page < 1 {
		page = 1
	}
	return pageSize, (page - 1) * pageSize
}

// LedgerService owns the Balance Store and Transaction Log. It is the only
// code that mutates either; every write runs inside one database transaction
// holding the user's balance row lock, so operations on one user never
// interleave while different users proceed in parallel.
type LedgerService struct {
	db          DB
	balanceRepo repository.BalanceRepository
	txRepo      repository.TransactionRepository
	publisher   EventPublisher
	logger      *slog.Logger
}

func NewLedgerService(
	db DB,
	balanceRepo repository.BalanceRepository,
	txRepo repository.TransactionRepository,
	publisher EventPublisher,
	logger *slog.Logger,
) *LedgerService {
	return &LedgerService{
		db:          db,
		balanceRepo: balanceRepo,
		txRepo:      txRepo,
		publisher:   publisher,
		logger:      logger.With("service", "ledger"),
	}
}

// ApplyTransaction atomically inserts a completed ledger entry and moves the
// cached balance. Debits that would drive the balance negative fail with
// InsufficientBalanceError and nothing is written.
func (s *LedgerService) ApplyTransaction(ctx context.Context, userID string, txType domain.TransactionType, amount int64, prov domain.Provenance) (*domain.PointTransaction, error) {
	if amount <= 0 {
		return nil, &domain.InvalidAmountError{Amount: amount}
	}

	var created *domain.PointTransaction
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		created, err = s.applyTx(ctx, tx, userID, txType, amount, prov)
		return err
	})
	if err != nil {
		return nil, err
	}

	transactionsAppliedCounter.WithLabelValues(string(txType), created.ActivityType).Inc()
	s.publishBalanceChanged(ctx, created)
	return created, nil
}

// applyTx is the shared critical section: lock the balance row, compute the
// new balance, insert the completed entry, move the cache. Callers that need
// extra checks under the same lock (award limits, reconciliation) run inside
// the same database transaction.
func (s *LedgerService) applyTx(ctx context.Context, tx pgx.Tx, userID string, txType domain.TransactionType, amount int64, prov domain.Provenance) (*domain.PointTransaction, error) {
	bal, err := s.balanceRepo.GetForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock balance for user %s: %w", userID, err)
	}

	before := bal.CurrentPoints
	var after int64
	switch txType {
	case domain.TransactionTypeCredit:
		after = before + amount
	case domain.TransactionTypeDebit:
		if amount > before {
			insufficientBalanceCounter.Inc()
			return nil, &domain.InsufficientBalanceError{Available: before, Requested: amount}
		}
		after = before - amount
	default:
		return nil, fmt.Errorf("unknown transaction type %q", txType)
	}

	created, err := s.txRepo.Create(ctx, tx, &domain.PointTransaction{
		UserID:        userID,
		Type:          txType,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		ActivityType:  prov.ActivityType,
		Description:   prov.Description,
		ReferenceID:   prov.ReferenceID,
		ReferenceType: prov.ReferenceType,
		Metadata:      prov.Metadata,
		Status:        domain.TransactionStatusCompleted,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	if err := s.balanceRepo.SetCurrentPoints(ctx, tx, userID, after); err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction applied",
		"user_id", userID, "transaction_id", created.ID,
		"type", txType, "amount", amount, "balance_after", after,
	)
	return created, nil
}

// ReserveDebit inserts a pending debit that holds funds out of availability
// without touching the cached balance. The availability check and the insert
// share the balance row lock, so concurrent reservations cannot jointly
// overcommit.
func (s *LedgerService) ReserveDebit(ctx context.Context, userID string, amount int64, prov domain.Provenance, expiresAt *time.Time) (*domain.PointTransaction, error) {
	if amount <= 0 {
		return nil, &domain.InvalidAmountError{Amount: amount}
	}

	var created *domain.PointTransaction
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		created, err = s.reserveTx(ctx, tx, userID, amount, prov, expiresAt)
		return err
	})
	if err != nil {
		return nil, err
	}

	reservationsCounter.WithLabelValues("reserved").Inc()
	return created, nil
}

func (s *LedgerService) reserveTx(ctx context.Context, tx pgx.Tx, userID string, amount int64, prov domain.Provenance, expiresAt *time.Time) (*domain.PointTransaction, error) {
	bal, err := s.balanceRepo.GetForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock balance for user %s: %w", userID, err)
	}

	pending, err := s.txRepo.SumPendingDebits(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum pending debits: %w", err)
	}

	available := bal.CurrentPoints - pending
	if amount > available {
		insufficientBalanceCounter.Inc()
		return nil, &domain.InsufficientBalanceError{Available: available, Requested: amount}
	}

	// BalanceBefore/After are provisional while the hold is open; they are
	// rewritten with the observed figures when the reservation finalizes.
	created, err := s.txRepo.Create(ctx, tx, &domain.PointTransaction{
		UserID:        userID,
		Type:          domain.TransactionTypeDebit,
		Amount:        amount,
		BalanceBefore: bal.CurrentPoints,
		BalanceAfter:  bal.CurrentPoints,
		ActivityType:  prov.ActivityType,
		Description:   prov.Description,
		ReferenceID:   prov.ReferenceID,
		ReferenceType: prov.ReferenceType,
		Metadata:      prov.Metadata,
		Status:        domain.TransactionStatusPending,
		ExpiresAt:     expiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert reservation: %w", err)
	}

	s.logger.InfoContext(ctx, "Debit reserved",
		"user_id", userID, "transaction_id", created.ID,
		"amount", amount, "available_after", available-amount,
	)
	return created, nil
}

// FinalizeReservation resolves a pending reservation: complete decrements the
// cached balance and marks the entry completed, cancel releases the hold with
// no balance effect. A second call fails with ErrReservationFinalized and
// never double-applies.
func (s *LedgerService) FinalizeReservation(ctx context.Context, transactionID string, outcome domain.FinalizeOutcome) (*domain.PointTransaction, error) {
	var finalized *domain.PointTransaction
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		finalized, err = s.finalizeTx(ctx, tx, transactionID, outcome)
		return err
	})
	if err != nil {
		return nil, err
	}

	reservationsCounter.WithLabelValues(string(outcome)).Inc()
	if finalized.Status == domain.TransactionStatusCompleted {
		s.publishBalanceChanged(ctx, finalized)
	}
	return finalized, nil
}

func (s *LedgerService) finalizeTx(ctx context.Context, tx pgx.Tx, transactionID string, outcome domain.FinalizeOutcome) (*domain.PointTransaction, error) {
	// Peek without locking to learn the owner, then lock balance before
	// transaction row. Every mutating path takes locks in that order.
	txn, err := s.txRepo.GetByID(ctx, tx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.Status != domain.TransactionStatusPending {
		return nil, domain.ErrReservationFinalized
	}

	bal, err := s.balanceRepo.GetForUpdate(ctx, tx, txn.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock balance for user %s: %w", txn.UserID, err)
	}

	txn, err = s.txRepo.GetByIDForUpdate(ctx, tx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.Status != domain.TransactionStatusPending {
		// Lost the race to another finalizer.
		return nil, domain.ErrReservationFinalized
	}

	switch outcome {
	case domain.FinalizeComplete:
		before := bal.CurrentPoints
		after := before - txn.Amount
		if after < 0 {
			// The reservation was admitted against availability, so this only
			// happens if the cached balance drifted underneath the hold.
			return nil, &domain.InsufficientBalanceError{Available: before, Requested: txn.Amount}
		}
		if err := s.txRepo.SetStatus(ctx, tx, transactionID, domain.TransactionStatusCompleted, before, after); err != nil {
			return nil, err
		}
		if err := s.balanceRepo.SetCurrentPoints(ctx, tx, txn.UserID, after); err != nil {
			return nil, err
		}
		txn.Status = domain.TransactionStatusCompleted
		txn.BalanceBefore = before
		txn.BalanceAfter = after
	case domain.FinalizeCancel:
		if err := s.txRepo.SetStatus(ctx, tx, transactionID, domain.TransactionStatusCancelled, txn.BalanceBefore, txn.BalanceBefore); err != nil {
			return nil, err
		}
		txn.Status = domain.TransactionStatusCancelled
		txn.BalanceAfter = txn.BalanceBefore
	default:
		return nil, fmt.Errorf("unknown finalize outcome %q", outcome)
	}

	s.logger.InfoContext(ctx, "Reservation finalized",
		"transaction_id", transactionID, "user_id", txn.UserID,
		"outcome", outcome, "amount", txn.Amount,
	)
	return txn, nil
}

// ReconcileBalance re-derives one user's balance from the log under the
// balance row lock and, when the cache disagrees, writes a correction entry
// through the normal apply path. Returns a nil transaction when no drift
// remains by the time the lock is held.
func (s *LedgerService) ReconcileBalance(ctx context.Context, userID string) (*domain.PointTransaction, int64, error) {
	var correction *domain.PointTransaction
	var delta int64
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		bal, err := s.balanceRepo.GetForUpdate(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("failed to lock balance for user %s: %w", userID, err)
		}

		computed, err := s.txRepo.ComputeUserBalance(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("failed to recompute balance: %w", err)
		}

		delta = computed - bal.CurrentPoints
		if delta == 0 {
			return nil
		}

		// The log is authoritative; size the correction so the cache lands on
		// the recomputed value.
		txType := domain.TransactionTypeCredit
		amount := delta
		if delta < 0 {
			txType = domain.TransactionTypeDebit
			amount = -delta
		}
		correction, err = s.applyTx(ctx, tx, userID, txType, amount, domain.Provenance{
			ActivityType: domain.ActivityTypeCorrection,
			Description:  "balance reconciliation",
			Metadata:     map[string]any{"cached_balance": bal.CurrentPoints, "computed_balance": computed},
		})
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	if correction != nil {
		correctionsAppliedCounter.Inc()
		s.logger.WarnContext(ctx, "Balance drift corrected",
			"user_id", userID, "delta", delta, "transaction_id", correction.ID,
		)
	}
	return correction, delta, nil
}

// GetBalance returns the cached balance; users with no ledger history read as
// zero.
func (s *LedgerService) GetBalance(ctx context.Context, userID string) (*domain.AccountBalance, error) {
	bal, err := s.balanceRepo.Get(ctx, s.db, userID)
	if err != nil {
		if errors.Is(err, domain.ErrBalanceNotFound) {
			return &domain.AccountBalance{UserID: userID}, nil
		}
		return nil, err
	}
	return bal, nil
}

// GetBalanceDetail returns the cached balance together with the amount held
// by open reservations and the spendable remainder.
func (s *LedgerService) GetBalanceDetail(ctx context.Context, userID string) (*domain.BalanceDetail, error) {
	bal, err := s.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	pending, err := s.txRepo.SumPendingDebits(ctx, s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum pending debits: %w", err)
	}

	return &domain.BalanceDetail{
		UserID:          userID,
		CurrentPoints:   bal.CurrentPoints,
		PendingReserved: pending,
		Available:       bal.CurrentPoints - pending,
	}, nil
}

// GetTransactionHistory returns the user's ledger entries, newest first.
func (s *LedgerService) GetTransactionHistory(ctx context.Context, userID string, f domain.TransactionFilter, page, pageSize int) ([]domain.PointTransaction, int, error) {
	limit, offset := normalizePage(page, pageSize)
	return s.txRepo.ListByUser(ctx, s.db, userID, f, limit, offset)
}

// ListAllTransactions is the admin view across users.
func (s *LedgerService) ListAllTransactions(ctx context.Context, f domain.TransactionFilter, page, pageSize int) ([]domain.PointTransaction, int, error) {
	limit, offset := normalizePage(page, pageSize)
	return s.txRepo.ListAll(ctx, s.db, f, limit, offset)
}

func (s *LedgerService) publishBalanceChanged(ctx context.Context, txn *domain.PointTransaction) {
	publishJSON(ctx, s.logger, s.publisher, SubjectBalanceChanged, balanceChangedEvent{
		UserID:        txn.UserID,
		TransactionID: txn.ID,
		Type:          string(txn.Type),
		Amount:        txn.Amount,
		BalanceAfter:  txn.BalanceAfter,
		ActivityType:  txn.ActivityType,
	})
}
