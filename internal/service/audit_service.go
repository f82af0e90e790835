// Package service orchestrates the scoring engine against its
// external collaborators: the ledger gateway, the result store, and
// the in-memory result cache.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/keiri-audit-go/internal/audit"
	"github.com/boddenberg/keiri-audit-go/internal/domain"
	"github.com/boddenberg/keiri-audit-go/internal/infra/cache"
	"github.com/boddenberg/keiri-audit-go/internal/infra/observability"
	"github.com/boddenberg/keiri-audit-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service")

// AuditService runs the daily risk scoring flow: serve today's cached
// ranking when one exists, otherwise fetch inputs, score, persist.
type AuditService struct {
	engine      *audit.Engine
	txSource    port.TransactionSource
	history     port.HistorySource
	store       port.ResultStore
	resultCache *cache.InMemory[*domain.AuditResult]
	metrics     *observability.Metrics
	logger      *zap.Logger
	location    *time.Location

	// now is swappable for tests; the day gate depends on it.
	now func() time.Time
}

// NewAuditService wires the scoring flow together.
func NewAuditService(
	engine *audit.Engine,
	txSource port.TransactionSource,
	history port.HistorySource,
	store port.ResultStore,
	resultCache *cache.InMemory[*domain.AuditResult],
	metrics *observability.Metrics,
	logger *zap.Logger,
	location *time.Location,
) *AuditService {
	return &AuditService{
		engine:      engine,
		txSource:    txSource,
		history:     history,
		store:       store,
		resultCache: resultCache,
		metrics:     metrics,
		logger:      logger,
		location:    location,
		now:         time.Now,
	}
}

// SetNow overrides the service clock. Tests only.
func (s *AuditService) SetNow(now func() time.Time) {
	s.now = now
}

// today returns the calendar date string in the service timezone. The
// same string keys the cache and gates stored reads, so the
// once-per-day invariant holds regardless of server locale.
func (s *AuditService) today() string {
	return s.now().In(s.location).Format("2006-01-02")
}

// GetRiskRanking returns the ranked category risk profiles for one
// user and fiscal year, computing them at most once per calendar day
// unless refresh forces a recompute.
func (s *AuditService) GetRiskRanking(ctx context.Context, userID string, year int, refresh bool) (*domain.AuditResult, error) {
	ctx, span := tracer.Start(ctx, "AuditService.GetRiskRanking")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.Int("year", year),
		attribute.Bool("refresh", refresh),
	)

	if userID == "" {
		return nil, &domain.ErrValidation{Field: "userId", Message: "required"}
	}
	if year < 2000 || year > 2100 {
		return nil, &domain.ErrValidation{Field: "year", Message: "out of range"}
	}

	date := s.today()
	cacheKey := fmt.Sprintf("%s|%d|%s", userID, year, date)

	if !refresh {
		if cached, ok := s.resultCache.Get(cacheKey); ok {
			s.metrics.IncrCacheHit("result")
			return cached, nil
		}
		stored, err := s.store.Get(ctx, userID, year, date)
		if err != nil {
			// A broken store only costs a recompute.
			s.logger.Warn("result store read failed, recomputing",
				zap.String("user_id", userID),
				zap.Error(err),
			)
			s.metrics.IncrExternalError("store")
		}
		if stored != nil {
			s.metrics.IncrCacheHit("result")
			s.resultCache.Set(cacheKey, stored)
			return stored, nil
		}
		s.metrics.IncrCacheMiss("result")
	}

	result, err := s.compute(ctx, userID, year, date)
	if err != nil {
		s.metrics.IncrRun("error")
		return nil, err
	}
	s.metrics.IncrRun("success")

	// Check-then-compute is deliberately not transactional: two
	// concurrent requests may both land here and both write. The runs
	// are pure functions of the same input, so last write wins.
	if err := s.store.Put(ctx, result); err != nil {
		s.logger.Warn("result store write failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		s.metrics.IncrExternalError("store")
	}
	s.resultCache.Set(cacheKey, result)

	return result, nil
}

// ScorePayload scores caller-supplied transactions and history without
// touching the cache, the store, or the ledger gateway. Used by the
// assistant's preview flow.
func (s *AuditService) ScorePayload(ctx context.Context, txs []domain.Transaction, history []domain.HistoricalPoint, year int) ([]domain.CategoryRiskProfile, error) {
	ctx, span := tracer.Start(ctx, "AuditService.ScorePayload")
	defer span.End()

	if year == 0 {
		year = s.now().In(s.location).Year()
	}

	start := time.Now()
	profiles, err := s.engine.Score(ctx, txs, history, year)
	s.metrics.RecordScoringDuration("score_payload", time.Since(start))
	if err != nil {
		return nil, err
	}
	s.countAnomalies(profiles)
	return profiles, nil
}

func (s *AuditService) compute(ctx context.Context, userID string, year int, date string) (*domain.AuditResult, error) {
	ctx, span := tracer.Start(ctx, "AuditService.compute")
	defer span.End()

	txs, err := s.txSource.GetTransactions(ctx, userID, year)
	if err != nil {
		s.metrics.IncrExternalError("ledger")
		return nil, err
	}

	history := s.fetchHistory(ctx, userID, year)

	start := time.Now()
	profiles, err := s.engine.Score(ctx, txs, history, year)
	s.metrics.RecordScoringDuration("score", time.Since(start))
	if err != nil {
		return nil, err
	}
	s.countAnomalies(profiles)

	s.logger.Info("scoring run complete",
		zap.String("user_id", userID),
		zap.Int("year", year),
		zap.Int("transactions", len(txs)),
		zap.Int("history_points", len(history)),
		zap.Int("profiles", len(profiles)),
	)

	return &domain.AuditResult{
		ID:       uuid.NewString(),
		UserID:   userID,
		Year:     year,
		Date:     date,
		Profiles: profiles,
	}, nil
}

// fetchHistory returns the usable historical points, or nil when the
// summary source fails or declares itself unusable. Both cases degrade
// the same way: comparator fields come out nil, the pass continues.
func (s *AuditService) fetchHistory(ctx context.Context, userID string, year int) []domain.HistoricalPoint {
	summary, err := s.history.GetYearlySummary(ctx, userID, year)
	if err != nil {
		s.logger.Warn("history unavailable, comparators will be null",
			zap.String("user_id", userID),
			zap.Int("year", year),
			zap.Error(err),
		)
		s.metrics.IncrExternalError("history")
		return nil
	}
	if summary == nil || !summary.Usable {
		reason := "no summary"
		if summary != nil {
			reason = summary.Reason
		}
		s.logger.Info("history marked unusable, comparators will be null",
			zap.String("user_id", userID),
			zap.String("reason", reason),
		)
		return nil
	}
	return summary.Data
}

func (s *AuditService) countAnomalies(profiles []domain.CategoryRiskProfile) {
	perDimension := make(map[string]int)
	for _, p := range profiles {
		for _, a := range p.Anomalies {
			perDimension[a.Dimension]++
		}
	}
	for dim, n := range perDimension {
		s.metrics.IncrAnomalies(dim, n)
	}
}
