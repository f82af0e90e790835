package handler

import (
	"net/http"

	"github.com/boddenberg/keiri-audit-go/internal/infra/observability"
	"github.com/boddenberg/keiri-audit-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// AuthConfig controls the bearer-token check on /v1 routes.
type AuthConfig struct {
	Secret   string
	Disabled bool
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(auditSvc *service.AuditService, auth AuthConfig, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(JWTAuthMiddleware(auth, logger))

		// =============================================
		// Audit risk ranking
		// GET /v1/users/{userId}/audit/{year}/risks
		// =============================================
		r.Get("/users/{userId}/audit/{year}/risks", riskRankingHandler(auditSvc, logger))

		// =============================================
		// Stateless scoring (preview flow)
		// POST /v1/audit/score
		// =============================================
		r.Post("/audit/score", scorePayloadHandler(auditSvc, logger))

		// =============================================
		// Counter snapshot
		// GET /v1/metrics/audit
		// =============================================
		r.Get("/metrics/audit", auditMetricsHandler(metrics, logger))
	})

	return r
}

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
