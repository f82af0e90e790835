// Package audit implements the audit-risk anomaly detection and
// scoring engine: per-category aggregation, historical comparison,
// rule-based anomaly detection, cross-category transaction matching,
// and risk ranking. The whole pass is a pure function of its inputs.
package audit

// Thresholds holds every policy constant the engine applies. These are
// tuning knobs, not derived values; deployments override them from the
// rules file (see internal/config).
type Thresholds struct {
	// Composition-ratio detector: a single category's share of total
	// expense, in percent.
	CompositionMediumPct float64 `yaml:"composition_medium_pct"`
	CompositionHighPct   float64 `yaml:"composition_high_pct"`

	// Sudden-change detector: absolute year-over-year growth, percent.
	GrowthMediumPct float64 `yaml:"growth_medium_pct"`
	GrowthHighPct   float64 `yaml:"growth_high_pct"`

	// Statistical-deviation detector: absolute z-score against the
	// trailing average.
	ZScoreMedium float64 `yaml:"zscore_medium"`
	ZScoreHigh   float64 `yaml:"zscore_high"`

	// Ratio-drift detector: absolute change of composition ratio
	// versus the prior year, in percentage points.
	DriftMediumPt float64 `yaml:"drift_medium_pt"`
	DriftHighPt   float64 `yaml:"drift_high_pt"`

	// Cross-category matcher.
	CrossMatchMinAmount     float64 `yaml:"cross_match_min_amount"`
	CrossMatchPrefixLen     int     `yaml:"cross_match_prefix_len"`
	CrossMatchHighSeverityN int     `yaml:"cross_match_high_severity_n"`

	// Risk level ladder.
	LargeAmountFloor float64 `yaml:"large_amount_floor"`

	// Secondary composition ratios for categories under standing
	// scrutiny. A category whose ratio exceeds its entry here is
	// raised from low to medium even when the global ladder says low.
	ScrutinyCategories map[string]float64 `yaml:"scrutiny_categories"`

	// Trailing window for the z-score mean/stddev, in years.
	TrailingYears int `yaml:"trailing_years"`
}

// DefaultThresholds returns the policy constants observed in the
// reference deployment.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CompositionMediumPct: 40,
		CompositionHighPct:   60,

		GrowthMediumPct: 50,
		GrowthHighPct:   100,

		ZScoreMedium: 2.0,
		ZScoreHigh:   3.0,

		DriftMediumPt: 20,
		DriftHighPt:   40,

		CrossMatchMinAmount:     100000,
		CrossMatchPrefixLen:     10,
		CrossMatchHighSeverityN: 3,

		LargeAmountFloor: 1000000,

		ScrutinyCategories: map[string]float64{
			"outsourcing":   25,
			"meeting":       10,
			"supplies":      15,
			"entertainment": 10,
		},

		TrailingYears: 3,
	}
}
