package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/yusufkecer/health-data-client/internal/domain"
	"github.com/yusufkecer/health-data-client/internal/healthdata"
	"github.com/yusufkecer/health-data-client/internal/middleware"
)

const maxRealtimeLimit = 1000

// Reader is the read side of the health database for one user.
type Reader interface {
	RealtimeMetric(ctx context.Context, metricType string, limit int) ([]domain.MetricRecord, error)
	DailySummary(ctx context.Context, date string) (domain.DailySummary, error)
	AggregatedHistory(ctx context.Context) (domain.AggregatedHistory, error)
}

// ReaderFactory returns a Reader scoped to userID.
type ReaderFactory func(userID string) Reader

type HealthHandler struct {
	readers ReaderFactory
}

func NewHealthHandler(readers ReaderFactory) *HealthHandler {
	return &HealthHandler{readers: readers}
}

func (h *HealthHandler) GetRealtime(w http.ResponseWriter, r *http.Request) {
	userID, ok := authorizedUser(w, r)
	if !ok {
		return
	}

	limit := 1
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRealtimeLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(maxRealtimeLimit))
			return
		}
		limit = n
	}

	metric := mux.Vars(r)["metric"]
	records, err := h.readers(userID).RealtimeMetric(r.Context(), metric, limit)
	if err != nil {
		writeUpstreamError(w, r, "realtime "+metric, err)
		return
	}
	if records == nil {
		records = []domain.MetricRecord{}
	}

	writeJSON(w, http.StatusOK, records)
}

func (h *HealthHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := authorizedUser(w, r)
	if !ok {
		return
	}

	date := r.URL.Query().Get("date")
	if date != "" {
		if _, err := time.Parse(domain.DateLayout, date); err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
	}

	summary, err := h.readers(userID).DailySummary(r.Context(), date)
	if err != nil {
		writeUpstreamError(w, r, "summary", err)
		return
	}
	if summary == nil {
		summary = domain.DailySummary{}
	}

	writeJSON(w, http.StatusOK, summary)
}

func (h *HealthHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := authorizedUser(w, r)
	if !ok {
		return
	}

	history, err := h.readers(userID).AggregatedHistory(r.Context())
	if err != nil {
		writeUpstreamError(w, r, "history", err)
		return
	}
	if history == nil {
		history = domain.AggregatedHistory{}
	}

	writeJSON(w, http.StatusOK, history)
}

// authorizedUser returns the path user when it matches the token's user.
func authorizedUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := mux.Vars(r)["id"]
	tokenUser, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return "", false
	}
	if userID != tokenUser {
		writeError(w, http.StatusForbidden, "cannot read another user's data")
		return "", false
	}
	return userID, true
}

func writeUpstreamError(w http.ResponseWriter, r *http.Request, what string, err error) {
	log.Printf("[gateway] %s %s: %v", middleware.RequestIDFromContext(r.Context()), what, err)

	if errors.Is(err, context.Canceled) {
		return
	}
	if healthdata.IsStatus(err, http.StatusUnauthorized) || healthdata.IsStatus(err, http.StatusForbidden) {
		writeError(w, http.StatusBadGateway, "upstream rejected credentials")
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		writeError(w, http.StatusGatewayTimeout, "upstream timed out")
		return
	}
	writeError(w, http.StatusBadGateway, "upstream request failed")
}
