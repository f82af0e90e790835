package audit

import (
	"fmt"
	"math"
	"sort"

	"github.com/boddenberg/keiri-audit-go/internal/domain"
)

// riskLevelFor applies the base risk ladder to one profile. The ladder
// only ever upgrades: detectors and heuristics raise a level, nothing
// lowers one.
func riskLevelFor(p *domain.CategoryRiskProfile, th Thresholds) string {
	level := domain.RiskLow
	switch {
	case p.RatioOfTotal > th.CompositionHighPct:
		level = domain.RiskHigh
	case p.RatioOfTotal > th.CompositionMediumPct:
		level = domain.RiskMedium
	}

	if level == domain.RiskMedium && p.TotalAmount >= th.LargeAmountFloor {
		level = domain.RiskHigh
	}

	if level == domain.RiskLow {
		if secondary, ok := th.ScrutinyCategories[p.Category]; ok && p.RatioOfTotal > secondary {
			level = domain.RiskMedium
		}
	}
	return level
}

// issuesFor generates the ordered human-readable issue list for one
// profile: composition first, then growth, then statistical deviation,
// then the scrutiny heuristics. When nothing fired a default review
// reminder keeps the list non-empty.
func issuesFor(p *domain.CategoryRiskProfile, th Thresholds) []string {
	issues := make([]string, 0, 4)

	if p.RatioOfTotal > th.CompositionMediumPct {
		issues = append(issues, fmt.Sprintf(
			"%s is %.1f%% of total expense; confirm the concentration is intentional and documented",
			p.Category, p.RatioOfTotal))
	}
	if p.GrowthRate != nil && math.Abs(*p.GrowthRate) > th.GrowthMediumPct {
		issues = append(issues, fmt.Sprintf(
			"%s moved %+.1f%% year over year; collect invoices explaining the swing",
			p.Category, *p.GrowthRate))
	}
	if p.ZScore != nil && math.Abs(*p.ZScore) > th.ZScoreMedium {
		issues = append(issues, fmt.Sprintf(
			"%s is %.2f standard deviations off its trailing average; verify the outlier entries",
			p.Category, *p.ZScore))
	}
	if secondary, ok := th.ScrutinyCategories[p.Category]; ok && p.RatioOfTotal > secondary {
		issues = append(issues, fmt.Sprintf(
			"%s is a high-scrutiny category above its %.0f%% watch ratio; keep contracts and receipts on file",
			p.Category, secondary))
	}

	if len(issues) == 0 {
		issues = append(issues, fmt.Sprintf("review supporting documentation for %s", p.Category))
	}
	return issues
}

// Synthesize merges aggregates, comparator outputs, and detector
// findings into ranked risk profiles. Cross-category records are
// injected last and the anomaly count is recomputed afterwards so it
// always equals the final list length.
func Synthesize(profiles []*domain.CategoryRiskProfile, detected map[string][]domain.AnomalyRecord, crossMatched map[string]domain.AnomalyRecord, th Thresholds) []domain.CategoryRiskProfile {
	out := make([]domain.CategoryRiskProfile, 0, len(profiles))

	for _, p := range profiles {
		p.RiskLevel = riskLevelFor(p, th)
		p.Issues = issuesFor(p, th)

		anomalies := append([]domain.AnomalyRecord{}, detected[p.Category]...)
		if rec, ok := crossMatched[p.Category]; ok {
			anomalies = append(anomalies, rec)
		}
		p.Anomalies = anomalies
		p.AnomalyCount = len(anomalies)

		out = append(out, *p)
	}

	// More independent signals outrank a single strong one, so anomaly
	// count sorts before risk level. Remaining keys only exist to keep
	// repeated runs byte-identical.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AnomalyCount != out[j].AnomalyCount {
			return out[i].AnomalyCount > out[j].AnomalyCount
		}
		ri, rj := domain.RiskLevelRank(out[i].RiskLevel), domain.RiskLevelRank(out[j].RiskLevel)
		if ri != rj {
			return ri > rj
		}
		if out[i].TotalAmount != out[j].TotalAmount {
			return out[i].TotalAmount > out[j].TotalAmount
		}
		return out[i].Category < out[j].Category
	})

	return out
}
