package observability

import (
	"time"

	"github.com/boddenberg/keiri-audit-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the audit service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	scoringDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	anomaliesTotal  *prometheus.CounterVec
	runsTotal       *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		scoringDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "audit_scoring_duration_seconds",
				Help:    "Duration of scoring operations by stage.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_cache_hits_total",
				Help: "Total result cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_cache_misses_total",
				Help: "Total result cache misses.",
			},
			[]string{"cache"},
		),
		anomaliesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_anomalies_total",
				Help: "Total anomaly records emitted by dimension.",
			},
			[]string{"dimension"},
		),
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_runs_total",
				Help: "Total scoring runs by outcome.",
			},
			[]string{"status"},
		),
	}
}

// RecordScoringDuration records the duration of a scoring stage.
func (m *Metrics) RecordScoringDuration(operation string, d time.Duration) {
	m.scoringDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrAnomalies adds emitted anomaly records for a dimension.
func (m *Metrics) IncrAnomalies(dimension string, n int) {
	m.anomaliesTotal.WithLabelValues(dimension).Add(float64(n))
}

// IncrRun increments the scoring run counter with a status label.
func (m *Metrics) IncrRun(status string) {
	m.runsTotal.WithLabelValues(status).Inc()
}

// GetAuditSnapshot returns a snapshot of scoring metrics suitable for
// the GET /v1/metrics/audit endpoint.
func (m *Metrics) GetAuditSnapshot() *domain.AuditMetrics {
	// Gather current values from Prometheus counters.
	// Note: Prometheus counters expose cumulative values.
	successRuns := getCounterValue(m.runsTotal, "success")
	errorRuns := getCounterValue(m.runsTotal, "error")
	totalRuns := successRuns + errorRuns
	cacheHits := getCounterValue(m.cacheHits, "result")
	cacheMisses := getCounterValue(m.cacheMisses, "result")

	var anomalies float64
	for _, dim := range []string{
		domain.DimCompositionRatio,
		domain.DimSuddenChange,
		domain.DimStatisticalDeviation,
		domain.DimRatioDrift,
		domain.DimCrossCategoryMatch,
	} {
		anomalies += getCounterValue(m.anomaliesTotal, dim)
	}

	errorRate := float64(0)
	cacheHitRate := float64(0)
	if totalRuns > 0 {
		errorRate = errorRuns / totalRuns
	}
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	return &domain.AuditMetrics{
		TotalRuns:        int64(totalRuns),
		ErrorRate:        errorRate,
		CacheHitRate:     cacheHitRate,
		AnomaliesEmitted: int64(anomalies),
		Period:           "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
