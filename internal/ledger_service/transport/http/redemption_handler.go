package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/loyaltyworks/points-platform/internal/ledger_service/domain"
	"github.com/loyaltyworks/points-platform/internal/ledger_service/middleware"
)

// RedemptionWorkflow is the slice of the redemption service users reach.
type RedemptionWorkflow interface {
	RequestRedemption(ctx context.Context, userID string, points int64, redemptionType string, redemptionValue float64, details map[string]any) (*domain.PointRedemption, error)
	GetRedemption(ctx context.Context, redemptionID, userID string) (*domain.PointRedemption, error)
	ListRedemptions(ctx context.Context, userID string, page, pageSize int) ([]domain.PointRedemption, int, error)
	CancelRedemption(ctx context.Context, redemptionID, userID string) (*domain.PointRedemption, error)
}

// RedemptionHandler serves the user-facing redemption workflow.
type RedemptionHandler struct {
	redemptions RedemptionWorkflow
	validate    *validator.Validate
	logger      *slog.Logger
}

func NewRedemptionHandler(redemptions RedemptionWorkflow, logger *slog.Logger) *RedemptionHandler {
	return &RedemptionHandler{
		redemptions: redemptions,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger.With("handler", "redemption"),
	}
}

func (h *RedemptionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/redemptions", h.handleRequestRedemption)
	r.Get("/redemptions", h.handleListRedemptions)
	r.Get("/redemptions/{redemptionID}", h.handleGetRedemption)
	r.Delete("/redemptions/{redemptionID}", h.handleCancelRedemption)
}

func (h *RedemptionHandler) requestLogger(r *http.Request) *slog.Logger {
	return h.logger.With("request_id", chi_middleware.GetReqID(r.Context()))
}

func (h *RedemptionHandler) handleRequestRedemption(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	authUser, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(w, logger, http.StatusUnauthorized, GenericErrorResponse{Error: "User not authenticated"})
		return
	}

	var req RequestRedemptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, logger, http.StatusBadRequest, GenericErrorResponse{Error: "Invalid request payload: " + err.Error()})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, logger, http.StatusBadRequest, GenericErrorResponse{Error: "Validation failed: " + err.Error(), Code: "validation_failed"})
		return
	}

	created, err := h.redemptions.RequestRedemption(ctx, authUser.ID, req.Points, req.RedemptionType, req.RedemptionValue, req.Details)
	if err != nil {
		logger.WarnContext(ctx, "Redemption request failed", "user_id", authUser.ID, "points", req.Points, "error", err)
		respondDomainError(w, logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *RedemptionHandler) handleListRedemptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	authUser, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(w, logger, http.StatusUnauthorized, GenericErrorResponse{Error: "User not authenticated"})
		return
	}

	page, pageSize := parsePagination(r)
	redemptions, total, err := h.redemptions.ListRedemptions(ctx, authUser.ID, page, pageSize)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to list redemptions", "user_id", authUser.ID, "error", err)
		respondDomainError(w, logger, err)
		return
	}
	if page < 1 {
		page = 1
	}
	respondJSON(w, http.StatusOK, PaginatedResponse{Data: redemptions, Total: total, Page: page, PageSize: len(redemptions)})
}

func (h *RedemptionHandler) handleGetRedemption(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	authUser, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(w, logger, http.StatusUnauthorized, GenericErrorResponse{Error: "User not authenticated"})
		return
	}

	red, err := h.redemptions.GetRedemption(ctx, chi.URLParam(r, "redemptionID"), authUser.ID)
	if err != nil {
		respondDomainError(w, logger, err)
		return
	}
	respondJSON(w, http.StatusOK, red)
}

func (h *RedemptionHandler) handleCancelRedemption(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	authUser, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(w, logger, http.StatusUnauthorized, GenericErrorResponse{Error: "User not authenticated"})
		return
	}

	redemptionID := chi.URLParam(r, "redemptionID")
	cancelled, err := h.redemptions.CancelRedemption(ctx, redemptionID, authUser.ID)
	if err != nil {
		logger.WarnContext(ctx, "Redemption cancel failed", "redemption_id", redemptionID, "user_id", authUser.ID, "error", err)
		respondDomainError(w, logger, err)
		return
	}
	respondJSON(w, http.StatusOK, cancelled)
}
