package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/loyaltyworks/points-platform/internal/ledger_service/domain"
	"github.com/loyaltyworks/points-platform/internal/ledger_service/middleware"
)

// Awarder is the slice of the award engine admins reach.
type Awarder interface {
	AwardForActivity(ctx context.Context, userID, activityCode string, occurredAt time.Time) (*domain.PointTransaction, error)
	AwardManual(ctx context.Context, userID string, amount int64, adminID, description string, referenceID *string) (*domain.PointTransaction, error)
	CreateActivity(ctx context.Context, a *domain.PointActivity) (*domain.PointActivity, error)
	UpdateActivity(ctx context.Context, a *domain.PointActivity) (*domain.PointActivity, error)
	ListActivities(ctx context.Context, includeInactive bool) ([]domain.PointActivity, error)
}

// RedemptionAdmin is the admin slice of the redemption workflow.
type RedemptionAdmin interface {
	ProcessRedemption(ctx context.Context, redemptionID, adminID string, action domain.ProcessAction, notes string) (*domain.PointRedemption, error)
	ListAllRedemptions(ctx context.Context, status domain.RedemptionStatus, page, pageSize int) ([]domain.PointRedemption, int, error)
}

// LedgerAdmin exposes the cross-user transaction view.
type LedgerAdmin interface {
	ListAllTransactions(ctx context.Context, f domain.TransactionFilter, page, pageSize int) ([]domain.PointTransaction, int, error)
}

// Auditor runs consistency checks and repairs.
type Auditor interface {
	CheckConsistency(ctx context.Context) (*domain.ConsistencyReport, error)
	FixInconsistentBalances(ctx context.Context) (*domain.ReconciliationReport, error)
	GetSystemStats(ctx context.Context) (*domain.SystemStats, error)
}

// AdminHandler serves the admin surface. Its routes are mounted behind
// RequireAdmin.
type AdminHandler struct {
	awards      Awarder
	redemptions RedemptionAdmin
	ledger      LedgerAdmin
	auditor     Auditor
	validate    *validator.Validate
	logger      *slog.Logger
}

func NewAdminHandler(awards Awarder, redemptions RedemptionAdmin, ledger LedgerAdmin, auditor Auditor, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		awards:      awards,
		redemptions: redemptions,
		ledger:      ledger,
		auditor:     auditor,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger.With("handler", "admin"),
	}
}

func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Post("/awards", h.handleManualAward)
	r.Post("/awards/activity", h.handleActivityAward)

	r.Post("/activities", h.handleCreateActivity)
	r.Put("/activities/{activityCode}", h.handleUpdateActivity)
	r.Get("/activities", h.handleListActivities)

	r.Get("/transactions", h.handleListTransactions)

	r.Get("/redemptions", h.handleListRedemptions)
	r.Post("/redemptions/{redemptionID}/process", h.handleProcessRedemption)

	r.Get("/stats", h.handleStats)
	r.Post("/consistency/check", h.handleConsistencyCheck)
	r.Post("/consistency/fix", h.handleConsistencyFix)
}

func (h *AdminHandler) requestLogger(r *http.Request) *slog.Logger {
	return h.logger.With("request_id", chi_middleware.GetReqID(r.Context()))
}

func (h *AdminHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, logger *slog.Logger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, logger, http.StatusBadRequest, GenericErrorResponse{Error: "Invalid request payload: " + err.Error()})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		respondError(w, logger, http.StatusBadRequest, GenericErrorResponse{Error: "Validation failed: " + err.Error(), Code: "validation_failed"})
		return false
	}
	return true
}

func (h *AdminHandler) handleManualAward(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)
	authUser, _ := middleware.UserFromContext(ctx)

	var req ManualAwardRequest
	if !h.decodeAndValidate(w, r, logger, &req) {
		return
	}

	created, err := h.awards.AwardManual(ctx, req.UserID, req.Amount, authUser.ID, req.Description, req.ReferenceID)
	if err != nil {
		logger.WarnContext(ctx, "Manual award failed", "target_user_id", req.UserID, "amount", req.Amount, "error", err)
		respondDomainError(w, logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *AdminHandler) handleActivityAward(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	var req ActivityAwardRequest
	if !h.decodeAndValidate(w, r, logger, &req) {
		return
	}

	occurredAt := time.Now().UTC()
	if req.OccurredAt != nil {
		occurredAt = req.OccurredAt.UTC()
	}

	created, err := h.awards.AwardForActivity(ctx, req.UserID, req.ActivityCode, occurredAt)
	if err != nil {
		logger.WarnContext(ctx, "Activity award failed", "target_user_id", req.UserID, "activity_code", req.ActivityCode, "error", err)
		respondDomainError(w, logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func activityFromRequest(req ActivityRequest) *domain.PointActivity {
	return &domain.PointActivity{
		Code:         req.Code,
		Name:         req.Name,
		Description:  req.Description,
		PointsReward: req.PointsReward,
		DailyLimit:   req.DailyLimit,
		TotalLimit:   req.TotalLimit,
		IsActive:     req.IsActive,
		ValidFrom:    req.ValidFrom,
		ValidUntil:   req.ValidUntil,
	}
}

func (h *AdminHandler) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	var req ActivityRequest
	if !h.decodeAndValidate(w, r, logger, &req) {
		return
	}

	created, err := h.awards.CreateActivity(ctx, activityFromRequest(req))
	if err != nil {
		respondDomainError(w, logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *AdminHandler) handleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	var req ActivityRequest
	if !h.decodeAndValidate(w, r, logger, &req) {
		return
	}
	// The path identifies the entry; the body cannot rename it.
	req.Code = chi.URLParam(r, "activityCode")

	updated, err := h.awards.UpdateActivity(ctx, activityFromRequest(req))
	if err != nil {
		respondDomainError(w, logger, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (h *AdminHandler) handleListActivities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	activities, err := h.awards.ListActivities(ctx, true)
	if err != nil {
		respondDomainError(w, logger, err)
		return
	}
	respondJSON(w, http.StatusOK, activities)
}

func (h *AdminHandler) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	page, pageSize := parsePagination(r)
	transactions, total, err := h.ledger.ListAllTransactions(ctx, parseTransactionFilter(r), page, pageSize)
	if err != nil {
		respondDomainError(w, logger, err)
		return
	}
	if page < 1 {
		page = 1
	}
	respondJSON(w, http.StatusOK, PaginatedResponse{Data: transactions, Total: total, Page: page, PageSize: len(transactions)})
}

func (h *AdminHandler) handleListRedemptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	page, pageSize := parsePagination(r)
	status := domain.RedemptionStatus(r.URL.Query().Get("status"))
	redemptions, total, err := h.redemptions.ListAllRedemptions(ctx, status, page, pageSize)
	if err != nil {
		respondDomainError(w, logger, err)
		return
	}
	if page < 1 {
		page = 1
	}
	respondJSON(w, http.StatusOK, PaginatedResponse{Data: redemptions, Total: total, Page: page, PageSize: len(redemptions)})
}

func (h *AdminHandler) handleProcessRedemption(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)
	authUser, _ := middleware.UserFromContext(ctx)

	var req ProcessRedemptionRequest
	if !h.decodeAndValidate(w, r, logger, &req) {
		return
	}

	redemptionID := chi.URLParam(r, "redemptionID")
	processed, err := h.redemptions.ProcessRedemption(ctx, redemptionID, authUser.ID, domain.ProcessAction(req.Action), req.Notes)
	if err != nil {
		logger.WarnContext(ctx, "Redemption processing failed", "redemption_id", redemptionID, "action", req.Action, "error", err)
		respondDomainError(w, logger, err)
		return
	}
	respondJSON(w, http.StatusOK, processed)
}

func (h *AdminHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	stats, err := h.auditor.GetSystemStats(ctx)
	if err != nil {
		respondDomainError(w, logger, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) handleConsistencyCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	report, err := h.auditor.CheckConsistency(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Consistency check failed", "error", err)
		respondDomainError(w, logger, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (h *AdminHandler) handleConsistencyFix(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	report, err := h.auditor.FixInconsistentBalances(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Reconciliation failed", "error", err)
		respondDomainError(w, logger, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}
