package audit

import (
	"sort"

	"github.com/boddenberg/keiri-audit-go/internal/domain"
)

// Aggregation is the result of one aggregation pass: per-category
// totals plus the grand total across all expense transactions.
type Aggregation struct {
	Total      float64
	Categories []domain.CategoryAggregate
}

// Aggregate groups expense transactions by exact category label and
// computes per-category total, count, and max single amount, plus the
// grand expense total. Income transactions are excluded entirely;
// unusable amounts count as 0 but never fail the pass.
func Aggregate(txs []domain.Transaction) Aggregation {
	byCategory := make(map[string]*domain.CategoryAggregate)
	var total float64

	for _, tx := range txs {
		if !tx.IsExpense() {
			continue
		}
		amount := tx.Amount.Float()
		label := tx.CategoryLabel()

		agg, ok := byCategory[label]
		if !ok {
			agg = &domain.CategoryAggregate{Category: label}
			byCategory[label] = agg
		}
		agg.TotalAmount += amount
		agg.TransactionCount++
		if amount > agg.MaxSingleAmount {
			agg.MaxSingleAmount = amount
		}
		total += amount
	}

	categories := make([]domain.CategoryAggregate, 0, len(byCategory))
	for _, agg := range byCategory {
		categories = append(categories, *agg)
	}
	// Map iteration order is random; fix it so the pass stays
	// deterministic end to end.
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Category < categories[j].Category
	})

	return Aggregation{Total: total, Categories: categories}
}

// RatioOf returns amount as a percentage of total, with a zero total
// yielding 0 instead of NaN.
func RatioOf(amount, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return amount / total * 100
}
