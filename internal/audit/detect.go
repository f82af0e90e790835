package audit

import (
	"fmt"
	"math"

	"github.com/boddenberg/keiri-audit-go/internal/domain"
)

// detectionRule is one row of the detector table. Metric returns nil
// when the underlying comparator output is unavailable, which simply
// means the rule cannot fire for that category.
type detectionRule struct {
	dimension string
	metric    func(*domain.CategoryRiskProfile) *float64
	absolute  bool
	medium    float64
	high      float64
	message   func(category string, v float64) string
	rule      string
}

// detectorTable builds the four rule-based detectors from the
// configured thresholds. The table shape keeps tuning and testing in
// one place instead of four if/else trees.
func detectorTable(th Thresholds) []detectionRule {
	return []detectionRule{
		{
			dimension: domain.DimCompositionRatio,
			metric: func(p *domain.CategoryRiskProfile) *float64 {
				return &p.RatioOfTotal
			},
			medium: th.CompositionMediumPct,
			high:   th.CompositionHighPct,
			message: func(category string, v float64) string {
				return fmt.Sprintf("%s accounts for %.1f%% of total expense", category, v)
			},
			rule: fmt.Sprintf("single category exceeds %.0f%% of total expense", th.CompositionMediumPct),
		},
		{
			dimension: domain.DimSuddenChange,
			metric: func(p *domain.CategoryRiskProfile) *float64 {
				return p.GrowthRate
			},
			absolute: true,
			medium:   th.GrowthMediumPct,
			high:     th.GrowthHighPct,
			message: func(category string, v float64) string {
				return fmt.Sprintf("%s changed %+.1f%% versus the prior year", category, v)
			},
			rule: fmt.Sprintf("year-over-year change exceeds %.0f%%", th.GrowthMediumPct),
		},
		{
			dimension: domain.DimStatisticalDeviation,
			metric: func(p *domain.CategoryRiskProfile) *float64 {
				return p.ZScore
			},
			absolute: true,
			medium:   th.ZScoreMedium,
			high:     th.ZScoreHigh,
			message: func(category string, v float64) string {
				return fmt.Sprintf("%s deviates %.2f standard deviations from its trailing average", category, v)
			},
			rule: fmt.Sprintf("deviation from trailing average exceeds %.1f standard deviations", th.ZScoreMedium),
		},
		{
			dimension: domain.DimRatioDrift,
			metric: func(p *domain.CategoryRiskProfile) *float64 {
				return p.DiffRatio
			},
			absolute: true,
			medium:   th.DriftMediumPt,
			high:     th.DriftHighPt,
			message: func(category string, v float64) string {
				return fmt.Sprintf("%s share of expense moved %+.1f points versus the prior year", category, v)
			},
			rule: fmt.Sprintf("composition ratio drifted more than %.0f points versus the prior year", th.DriftMediumPt),
		},
	}
}

// Detect runs the four rule-based detectors over every profile and
// returns the anomalies per category. No rule suppresses another; a
// category can collect one record per dimension.
func Detect(profiles []*domain.CategoryRiskProfile, th Thresholds) map[string][]domain.AnomalyRecord {
	rules := detectorTable(th)
	out := make(map[string][]domain.AnomalyRecord)

	for _, p := range profiles {
		for _, r := range rules {
			v := r.metric(p)
			if v == nil {
				continue
			}
			magnitude := *v
			if r.absolute {
				magnitude = math.Abs(magnitude)
			}
			if magnitude <= r.medium {
				continue
			}
			severity := domain.SeverityMedium
			if magnitude > r.high {
				severity = domain.SeverityHigh
			}
			out[p.Category] = append(out[p.Category], domain.AnomalyRecord{
				Dimension:       r.dimension,
				Category:        p.Category,
				Value:           *v,
				Severity:        severity,
				Message:         r.message(p.Category, *v),
				RuleDescription: r.rule,
			})
		}
	}
	return out
}
