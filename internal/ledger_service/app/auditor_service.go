package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/loyaltyworks/points-platform/internal/ledger_service/domain"
	"github.com/loyaltyworks/points-platform/internal/ledger_service/repository"
)

// AuditorService detects and repairs drift between the cached balances and
// the transaction log. The log is authoritative; the cache is derived.
type AuditorService struct {
	db             DB
	ledger         *LedgerService
	balanceRepo    repository.BalanceRepository
	txRepo         repository.TransactionRepository
	redemptionRepo repository.RedemptionRepository
	logger         *slog.Logger

	mu        sync.Mutex
	lastCheck *domain.ConsistencyReport
}

func NewAuditorService(
	db DB,
	ledger *LedgerService,
	balanceRepo repository.BalanceRepository,
	txRepo repository.TransactionRepository,
	redemptionRepo repository.RedemptionRepository,
	logger *slog.Logger,
) *AuditorService {
	return &AuditorService{
		db:             db,
		ledger:         ledger,
		balanceRepo:    balanceRepo,
		txRepo:         txRepo,
		redemptionRepo: redemptionRepo,
		logger:         logger.With("service", "auditor"),
	}
}

// CheckConsistency recomputes every user's balance from completed ledger
// entries and diffs it against the cache. It takes no locks, so a mismatch
// may be a transient race with an in-flight write; callers should treat a
// non-empty report as "needs re-check" unless it persists.
func (s *AuditorService) CheckConsistency(ctx context.Context) (*domain.ConsistencyReport, error) {
	computed, err := s.txRepo.ComputedBalances(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("failed to recompute balances: %w", err)
	}
	cached, err := s.balanceRepo.ListAll(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("failed to list cached balances: %w", err)
	}

	computedByUser := make(map[string]int64, len(computed))
	for _, c := range computed {
		computedByUser[c.UserID] = c.Computed
	}
	cachedByUser := make(map[string]int64, len(cached))
	for _, b := range cached {
		cachedByUser[b.UserID] = b.CurrentPoints
	}

	// Users may exist on one side only: a balance row with no completed
	// entries reads as computed 0, and completed entries with no balance row
	// read as cached 0.
	users := make(map[string]struct{}, len(computedByUser)+len(cachedByUser))
	for id := range computedByUser {
		users[id] = struct{}{}
	}
	for id := range cachedByUser {
		users[id] = struct{}{}
	}

	report := &domain.ConsistencyReport{
		CheckedAt:    time.Now().UTC(),
		UsersChecked: len(users),
	}
	for id := range users {
		cachedBal := cachedByUser[id]
		computedBal := computedByUser[id]
		if cachedBal != computedBal {
			report.Mismatches = append(report.Mismatches, domain.ConsistencyEntry{
				UserID:          id,
				CachedBalance:   cachedBal,
				ComputedBalance: computedBal,
				Delta:           computedBal - cachedBal,
			})
		}
	}
	sort.Slice(report.Mismatches, func(i, j int) bool {
		return report.Mismatches[i].UserID < report.Mismatches[j].UserID
	})

	consistencyMismatchGauge.Set(float64(len(report.Mismatches)))
	s.mu.Lock()
	s.lastCheck = report
	s.mu.Unlock()

	if len(report.Mismatches) > 0 {
		s.logger.WarnContext(ctx, "Consistency check found drift",
			"users_checked", report.UsersChecked, "mismatches", len(report.Mismatches),
		)
	} else {
		s.logger.InfoContext(ctx, "Consistency check clean", "users_checked", report.UsersChecked)
	}
	return report, nil
}

// FixInconsistentBalances runs a check and writes a correction for every
// mismatched user through the normal locked apply path. A user whose drift
// resolved between the snapshot and the lock is skipped, not corrected —
// corrections must never mask a racing live write.
func (s *AuditorService) FixInconsistentBalances(ctx context.Context) (*domain.ReconciliationReport, error) {
	check, err := s.CheckConsistency(ctx)
	if err != nil {
		return nil, err
	}

	report := &domain.ReconciliationReport{CheckedAt: check.CheckedAt}
	for _, mismatch := range check.Mismatches {
		correction, delta, err := s.ledger.ReconcileBalance(ctx, mismatch.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to reconcile user %s: %w", mismatch.UserID, err)
		}
		if correction == nil {
			report.Skipped++
			continue
		}
		report.Corrections = append(report.Corrections, domain.Correction{
			UserID:        mismatch.UserID,
			Delta:         delta,
			TransactionID: correction.ID,
		})
	}

	s.logger.InfoContext(ctx, "Reconciliation finished",
		"corrections", len(report.Corrections), "skipped", report.Skipped,
	)
	return report, nil
}

// GetSystemStats returns the admin overview: ledger totals, queue depth, and
// the outcome of the most recent consistency check.
func (s *AuditorService) GetSystemStats(ctx context.Context) (*domain.SystemStats, error) {
	txStats, err := s.txRepo.Stats(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction stats: %w", err)
	}
	pending, err := s.redemptionRepo.CountByStatus(ctx, s.db, domain.RedemptionStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending redemptions: %w", err)
	}

	stats := &domain.SystemStats{
		TotalPointsAwarded:  txStats.TotalPointsAwarded,
		TotalPointsRedeemed: txStats.TotalPointsRedeemed,
		TransactionCount:    txStats.TransactionCount,
		PendingRedemptions:  pending,
	}

	s.mu.Lock()
	if s.lastCheck != nil {
		checkedAt := s.lastCheck.CheckedAt
		stats.LastCheckAt = &checkedAt
		stats.LastCheckMismatches = len(s.lastCheck.Mismatches)
	}
	s.mu.Unlock()

	return stats, nil
}
