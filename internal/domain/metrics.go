package domain

// AuditMetrics is the counter snapshot returned by
// GET /v1/metrics/audit. Values are cumulative since process start.
type AuditMetrics struct {
	TotalRuns        int64   `json:"total_runs"`
	ErrorRate        float64 `json:"error_rate"`
	CacheHitRate     float64 `json:"cache_hit_rate"`
	AnomaliesEmitted int64   `json:"anomalies_emitted"`
	Period           string  `json:"period"`
}
