package audit

import (
	"math"
	"sort"

	"github.com/boddenberg/keiri-audit-go/internal/domain"
)

// Comparison holds the historical comparator outputs for one category.
// Each field is independently nil when its preconditions do not hold;
// nil means "insufficient data", never "no change".
type Comparison struct {
	GrowthRate *float64
	DiffRatio  *float64
	ZScore     *float64
}

// Compare computes year-over-year growth, composition-ratio drift, and
// a z-score against the trailing average for one category.
//
// currentYear is the year being scored; history may contain points for
// any years and any categories, in any order.
func Compare(category string, currentAmount, currentRatio float64, currentYear int, history []domain.HistoricalPoint, th Thresholds) Comparison {
	points := make([]domain.HistoricalPoint, 0, len(history))
	for _, p := range history {
		if p.Category == category && p.Year < currentYear {
			points = append(points, p)
		}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Year > points[j].Year })

	var cmp Comparison

	// Growth rate needs a positive, finite prior-year amount. A
	// missing or zero prior year is "no data", not 0% growth.
	if prior, ok := pointForYear(points, currentYear-1); ok {
		if finite(prior.Amount) && prior.Amount > 0 && finite(currentAmount) {
			g := (currentAmount - prior.Amount) / prior.Amount * 100
			cmp.GrowthRate = &g
		}
		// Drift is in percentage points, current share minus prior
		// share, and needs both sides to be finite.
		if finite(prior.Ratio) && finite(currentRatio) {
			d := currentRatio - prior.Ratio
			cmp.DiffRatio = &d
		}
	}

	// Z-score over the most recent trailing years, excluding the
	// current one. Fewer than 2 usable points or a flat history is
	// insufficient evidence.
	trailing := make([]float64, 0, th.TrailingYears)
	for _, p := range points {
		if len(trailing) == th.TrailingYears {
			break
		}
		if finite(p.Amount) {
			trailing = append(trailing, p.Amount)
		}
	}
	if len(trailing) >= 2 && finite(currentAmount) {
		mean := meanOf(trailing)
		sd := stdDevOf(trailing, mean)
		if sd > 0 {
			z := (currentAmount - mean) / sd
			cmp.ZScore = &z
		}
	}

	return cmp
}

func pointForYear(points []domain.HistoricalPoint, year int) (domain.HistoricalPoint, bool) {
	for _, p := range points {
		if p.Year == year {
			return p, true
		}
	}
	return domain.HistoricalPoint{}, false
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func meanOf(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdDevOf(values []float64, mean float64) float64 {
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}
