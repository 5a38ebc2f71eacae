package domain

import "time"

// PointActivity is a catalog entry for an earnable action. Admin-managed,
// consulted read-only at award time.
type PointActivity struct {
	ID           string     `json:"id"`
	Code         string     `json:"code"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	PointsReward int64      `json:"points_reward"`
	DailyLimit   *int       `json:"daily_limit,omitempty"` // nil = unlimited
	TotalLimit   *int       `json:"total_limit,omitempty"` // nil = unlimited
	IsActive     bool       `json:"is_active"`
	ValidFrom    *time.Time `json:"valid_from,omitempty"`
	ValidUntil   *time.Time `json:"valid_until,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// AvailableAt reports whether a completion at the given instant is earnable:
// the activity must be active and the instant inside its validity window.
func (a *PointActivity) AvailableAt(t time.Time) bool {
	if !a.IsActive {
		return false
	}
	if a.ValidFrom != nil && t.Before(*a.ValidFrom) {
		return false
	}
	if a.ValidUntil != nil && t.After(*a.ValidUntil) {
		return false
	}
	return true
}
