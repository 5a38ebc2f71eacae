package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"

	"github.com/loyaltyworks/points-platform/internal/ledger_service/domain"
	"github.com/loyaltyworks/points-platform/internal/ledger_service/middleware"
)

// LedgerReader is the slice of the ledger service the user surface needs.
type LedgerReader interface {
	GetBalance(ctx context.Context, userID string) (*domain.AccountBalance, error)
	GetBalanceDetail(ctx context.Context, userID string) (*domain.BalanceDetail, error)
	GetTransactionHistory(ctx context.Context, userID string, f domain.TransactionFilter, page, pageSize int) ([]domain.PointTransaction, int, error)
}

// ActivityLister exposes the earnable catalog.
type ActivityLister interface {
	ListActivities(ctx context.Context, includeInactive bool) ([]domain.PointActivity, error)
}

// LeaderboardReader ranks users over a window.
type LeaderboardReader interface {
	TopUsers(ctx context.Context, window time.Duration, limit int) ([]domain.LeaderboardEntry, error)
}

// LedgerHandler serves the authenticated user surface: balances, history, the
// activity catalog, and the leaderboard.
type LedgerHandler struct {
	ledger      LedgerReader
	activities  ActivityLister
	leaderboard LeaderboardReader
	logger      *slog.Logger
}

func NewLedgerHandler(ledger LedgerReader, activities ActivityLister, leaderboard LeaderboardReader, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{
		ledger:      ledger,
		activities:  activities,
		leaderboard: leaderboard,
		logger:      logger.With("handler", "ledger"),
	}
}

func (h *LedgerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/balance", h.handleGetBalance)
	r.Get("/balance/detail", h.handleGetBalanceDetail)
	r.Get("/transactions", h.handleGetTransactions)
	r.Get("/activities", h.handleListActivities)
	r.Get("/leaderboard", h.handleLeaderboard)
}

func (h *LedgerHandler) requestLogger(r *http.Request) *slog.Logger {
	return h.logger.With("request_id", chi_middleware.GetReqID(r.Context()))
}

func (h *LedgerHandler) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	authUser, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(w, logger, http.StatusUnauthorized, GenericErrorResponse{Error: "User not authenticated"})
		return
	}

	bal, err := h.ledger.GetBalance(ctx, authUser.ID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to get balance", "user_id", authUser.ID, "error", err)
		respondDomainError(w, logger, err)
		return
	}
	respondJSON(w, http.StatusOK, bal)
}

func (h *LedgerHandler) handleGetBalanceDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	authUser, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(w, logger, http.StatusUnauthorized, GenericErrorResponse{Error: "User not authenticated"})
		return
	}

	detail, err := h.ledger.GetBalanceDetail(ctx, authUser.ID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to get balance detail", "user_id", authUser.ID, "error", err)
		respondDomainError(w, logger, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

func (h *LedgerHandler) handleGetTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	authUser, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(w, logger, http.StatusUnauthorized, GenericErrorResponse{Error: "User not authenticated"})
		return
	}

	page, pageSize := parsePagination(r)
	transactions, total, err := h.ledger.GetTransactionHistory(ctx, authUser.ID, parseTransactionFilter(r), page, pageSize)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to list transactions", "user_id", authUser.ID, "error", err)
		respondDomainError(w, logger, err)
		return
	}
	if page < 1 {
		page = 1
	}
	respondJSON(w, http.StatusOK, PaginatedResponse{Data: transactions, Total: total, Page: page, PageSize: len(transactions)})
}

func (h *LedgerHandler) handleListActivities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	activities, err := h.activities.ListActivities(ctx, false)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to list activities", "error", err)
		respondDomainError(w, logger, err)
		return
	}
	respondJSON(w, http.StatusOK, activities)
}

func (h *LedgerHandler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	var window time.Duration
	if days, err := strconv.Atoi(r.URL.Query().Get("window_days")); err == nil && days > 0 {
		window = time.Duration(days) * 24 * time.Hour
	}

	entries, err := h.leaderboard.TopUsers(ctx, window, limit)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to build leaderboard", "error", err)
		respondDomainError(w, logger, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}
