package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/boddenberg/keiri-audit-go/internal/domain"
	"github.com/boddenberg/keiri-audit-go/internal/infra/observability"
	"github.com/boddenberg/keiri-audit-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Audit risk ranking
// ============================================================

func riskRankingHandler(svc *service.AuditService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{userId}/audit/{year}/risks")
		defer span.End()

		userID := chi.URLParam(r, "userId")
		year, err := strconv.Atoi(chi.URLParam(r, "year"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "year must be an integer")
			return
		}
		refresh := r.URL.Query().Get("refresh") == "true"

		result, err := svc.GetRiskRanking(ctx, userID, year, refresh)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// ============================================================
// Stateless scoring
// ============================================================

type scoreRequest struct {
	Year         int                      `json:"year"`
	Transactions []domain.Transaction     `json:"transactions"`
	History      []domain.HistoricalPoint `json:"history"`
}

type scoreResponse struct {
	Year     int                         `json:"year"`
	Profiles []domain.CategoryRiskProfile `json:"profiles"`
}

func scorePayloadHandler(svc *service.AuditService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/audit/score")
		defer span.End()

		var req scoreRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		profiles, err := svc.ScorePayload(ctx, req.Transactions, req.History, req.Year)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, scoreResponse{Year: req.Year, Profiles: profiles})
	}
}

// ============================================================
// Counter snapshot
// ============================================================

func auditMetricsHandler(metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/metrics/audit")
		defer span.End()

		writeJSON(w, http.StatusOK, metrics.GetAuditSnapshot())
	}
}
