package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/loyaltyworks/points-platform/internal/ledger_service/domain"
	"github.com/loyaltyworks/points-platform/internal/ledger_service/repository"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// LeaderboardService is the read-model over the ledger: it ranks users by net
// completed points inside a time window and never writes.
type LeaderboardService struct {
	db     DB
	txRepo repository.TransactionRepository
	logger *slog.Logger
}

func NewLeaderboardService(db DB, txRepo repository.TransactionRepository, logger *slog.Logger) *LeaderboardService {
	return &LeaderboardService{
		db:     db,
		txRepo: txRepo,
		logger: logger.With("service", "leaderboard"),
	}
}

// TopUsers ranks users by net completed points over the trailing window.
// A non-positive window means all time.
func (s *LeaderboardService) TopUsers(ctx context.Context, window time.Duration, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	to := time.Now().UTC()
	from := time.Time{}
	if window > 0 {
		from = to.Add(-window)
	}

	return s.txRepo.TopNetTotals(ctx, s.db, from, to, limit)
}
