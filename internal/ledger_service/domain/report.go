package domain

import "time"

// ConsistencyEntry is one user whose cached balance disagrees with the value
// recomputed from the transaction log. Delta is computed minus cached: a
// positive delta means the cache undercounts.
type ConsistencyEntry struct {
	UserID          string `json:"user_id"`
	CachedBalance   int64  `json:"cached_balance"`
	ComputedBalance int64  `json:"computed_balance"`
	Delta           int64  `json:"delta"`
}

// ConsistencyReport is a point-in-time snapshot. A non-empty report that does
// not persist across repeated checks is likely a race with an in-flight write,
// not corruption.
type ConsistencyReport struct {
	CheckedAt    time.Time          `json:"checked_at"`
	UsersChecked int                `json:"users_checked"`
	Mismatches   []ConsistencyEntry `json:"mismatches"`
}

// Correction records one corrective transaction written by the auditor.
type Correction struct {
	UserID        string `json:"user_id"`
	Delta         int64  `json:"delta"`
	TransactionID string `json:"transaction_id"`
}

// ReconciliationReport is the outcome of a fix run. Skipped counts users whose
// drift had already resolved by the time their row was re-locked.
type ReconciliationReport struct {
	CheckedAt   time.Time    `json:"checked_at"`
	Corrections []Correction `json:"corrections"`
	Skipped     int          `json:"skipped"`
}

// TransactionStats are aggregate figures over completed ledger entries.
type TransactionStats struct {
	TotalPointsAwarded  int64 `json:"total_points_awarded"`
	TotalPointsRedeemed int64 `json:"total_points_redeemed"`
	TransactionCount    int64 `json:"transaction_count"`
}

// SystemStats is the admin overview of the ledger.
type SystemStats struct {
	TotalPointsAwarded  int64      `json:"total_points_awarded"`
	TotalPointsRedeemed int64      `json:"total_points_redeemed"`
	TransactionCount    int64      `json:"transaction_count"`
	PendingRedemptions  int        `json:"pending_redemptions"`
	LastCheckAt         *time.Time `json:"last_check_at,omitempty"`
	LastCheckMismatches int        `json:"last_check_mismatches"`
}

// LeaderboardEntry is one ranked row of the leaderboard read-model, computed
// from completed transactions only.
type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	UserID    string `json:"user_id"`
	NetPoints int64  `json:"net_points"`
}
