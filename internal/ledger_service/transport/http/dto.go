package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/loyaltyworks/points-platform/internal/ledger_service/domain"
)

// RequestRedemptionRequest is the body for POST /redemptions.
type RequestRedemptionRequest struct {
	Points          int64          `json:"points" validate:"required,gt=0"`
	RedemptionType  string         `json:"redemption_type" validate:"required,min=1,max=100"`
	RedemptionValue float64        `json:"redemption_value" validate:"gte=0"`
	Details         map[string]any `json:"details,omitempty"`
}

// ProcessRedemptionRequest is the body for POST /admin/redemptions/{id}/process.
type ProcessRedemptionRequest struct {
	Action string `json:"action" validate:"required,oneof=approve reject"`
	Notes  string `json:"notes,omitempty" validate:"max=1000"`
}

// ManualAwardRequest is the body for POST /admin/awards.
type ManualAwardRequest struct {
	UserID      string  `json:"user_id" validate:"required"`
	Amount      int64   `json:"amount" validate:"required,gt=0"`
	Description string  `json:"description" validate:"required,min=1,max=500"`
	ReferenceID *string `json:"reference_id,omitempty"`
}

// ActivityAwardRequest is the body for POST /admin/awards/activity: credits a
// catalog activity completion on behalf of a user.
type ActivityAwardRequest struct {
	UserID       string     `json:"user_id" validate:"required"`
	ActivityCode string     `json:"activity_code" validate:"required"`
	OccurredAt   *time.Time `json:"occurred_at,omitempty"`
}

// ActivityRequest is the body for creating or updating a catalog entry.
type ActivityRequest struct {
	Code         string     `json:"code" validate:"required,min=1,max=100"`
	Name         string     `json:"name" validate:"required,min=1,max=200"`
	Description  string     `json:"description,omitempty"`
	PointsReward int64      `json:"points_reward" validate:"required,gt=0"`
	DailyLimit   *int       `json:"daily_limit,omitempty" validate:"omitempty,gt=0"`
	TotalLimit   *int       `json:"total_limit,omitempty" validate:"omitempty,gt=0"`
	IsActive     bool       `json:"is_active"`
	ValidFrom    *time.Time `json:"valid_from,omitempty"`
	ValidUntil   *time.Time `json:"valid_until,omitempty"`
}

// PaginatedResponse wraps list endpoints with total figures.
type PaginatedResponse struct {
	Data     any `json:"data"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// GenericErrorResponse for API errors. Code is machine-readable; Details
// carries the figures a client needs to act without a follow-up query.
type GenericErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, logger *slog.Logger, statusCode int, resp GenericErrorResponse) {
	logger.Warn("API error response", "status_code", statusCode, "code", resp.Code, "message", resp.Error)
	respondJSON(w, statusCode, resp)
}

// respondDomainError maps service errors onto HTTP statuses and machine
// readable codes. Conflict responses carry the conflicting figures.
func respondDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var insufficient *domain.InsufficientBalanceError
	if errors.As(err, &insufficient) {
		respondError(w, logger, http.StatusConflict, GenericErrorResponse{
			Error: insufficient.Error(),
			Code:  "insufficient_balance",
			Details: map[string]any{
				"available": insufficient.Available,
				"requested": insufficient.Requested,
			},
		})
		return
	}

	var limit *domain.LimitExceededError
	if errors.As(err, &limit) {
		code := "daily_limit_exceeded"
		if limit.Scope == domain.LimitScopeTotal {
			code = "total_limit_exceeded"
		}
		respondError(w, logger, http.StatusConflict, GenericErrorResponse{
			Error: limit.Error(),
			Code:  code,
			Details: map[string]any{
				"activity_code": limit.ActivityCode,
				"limit":         limit.Limit,
				"used":          limit.Used,
			},
		})
		return
	}

	var invalidAmount *domain.InvalidAmountError
	if errors.As(err, &invalidAmount) {
		respondError(w, logger, http.StatusBadRequest, GenericErrorResponse{
			Error:   invalidAmount.Error(),
			Code:    "invalid_amount",
			Details: map[string]any{"amount": invalidAmount.Amount},
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrActivityNotFound),
		errors.Is(err, domain.ErrRedemptionNotFound),
		errors.Is(err, domain.ErrBalanceNotFound):
		respondError(w, logger, http.StatusNotFound, GenericErrorResponse{Error: err.Error(), Code: "not_found"})
	case errors.Is(err, domain.ErrActivityInactive):
		respondError(w, logger, http.StatusConflict, GenericErrorResponse{Error: err.Error(), Code: "activity_inactive"})
	case errors.Is(err, domain.ErrDuplicateActivity):
		respondError(w, logger, http.StatusConflict, GenericErrorResponse{Error: err.Error(), Code: "duplicate_activity"})
	case errors.Is(err, domain.ErrRedemptionProcessed):
		respondError(w, logger, http.StatusConflict, GenericErrorResponse{Error: err.Error(), Code: "redemption_processed"})
	case errors.Is(err, domain.ErrReservationFinalized):
		respondError(w, logger, http.StatusConflict, GenericErrorResponse{Error: err.Error(), Code: "reservation_finalized"})
	case errors.Is(err, domain.ErrAccessDenied):
		respondError(w, logger, http.StatusForbidden, GenericErrorResponse{Error: err.Error(), Code: "access_denied"})
	default:
		respondError(w, logger, http.StatusInternalServerError, GenericErrorResponse{Error: "Internal server error"})
	}
}

func parsePagination(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	return page, pageSize
}

func parseTransactionFilter(r *http.Request) domain.TransactionFilter {
	q := r.URL.Query()
	f := domain.TransactionFilter{
		ActivityType: q.Get("activity_type"),
		Type:         domain.TransactionType(q.Get("type")),
	}
	if v := q.Get("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.From = &t
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.To = &t
		}
	}
	return f
}
