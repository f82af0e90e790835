package audit

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/boddenberg/keiri-audit-go/internal/domain"
)

// CrossMatch finds high-value transactions booked under different
// categories for what looks like the same counterparty and the same
// amount, the strongest single signal of a split or duplicated
// booking. Returns one synthetic anomaly record per affected category.
//
// The grouping key is intentionally crude: the first few runes of the
// memo plus the exact amount. Memo wording and OCR noise for the same
// counterparty still collide; different amounts never do.
func CrossMatch(txs []domain.Transaction, th Thresholds) map[string]domain.AnomalyRecord {
	type keyed struct {
		tx       domain.Transaction
		category string
	}
	groups := make(map[string][]keyed)
	var keys []string

	for _, tx := range txs {
		if !tx.IsExpense() {
			continue
		}
		memo := strings.TrimSpace(tx.Memo)
		amount := tx.Amount.Float()
		if memo == "" || amount < th.CrossMatchMinAmount {
			continue
		}
		key := fmt.Sprintf("%s|%.2f", runePrefix(memo, th.CrossMatchPrefixLen), amount)
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], keyed{tx: tx, category: tx.CategoryLabel()})
	}
	sort.Strings(keys)

	matchesByCategory := make(map[string][]domain.CrossCategoryMatch)
	for _, key := range keys {
		group := groups[key]
		spans := false
		for _, g := range group[1:] {
			if g.category != group[0].category {
				spans = true
				break
			}
		}
		if !spans {
			continue
		}
		for _, a := range group {
			for _, b := range group {
				if a.category == b.category {
					continue
				}
				matchesByCategory[a.category] = append(matchesByCategory[a.category], domain.CrossCategoryMatch{
					RelatedCategory: b.category,
					Amount:          b.tx.Amount.Float(),
					DateGapDays:     dateGapDays(a.tx.Date, b.tx.Date),
					Counterparty:    b.tx.Memo,
				})
			}
		}
	}

	out := make(map[string]domain.AnomalyRecord, len(matchesByCategory))
	for category, matches := range matchesByCategory {
		severity := domain.SeverityMedium
		if len(matches) >= th.CrossMatchHighSeverityN {
			severity = domain.SeverityHigh
		}
		out[category] = domain.AnomalyRecord{
			Dimension: domain.DimCrossCategoryMatch,
			Category:  category,
			Value:     float64(len(matches)),
			Severity:  severity,
			Message: fmt.Sprintf("%s has %d same-amount, same-counterparty bookings in other categories",
				category, len(matches)),
			RuleDescription: fmt.Sprintf("same counterparty and amount (>= %.0f) booked across multiple categories",
				th.CrossMatchMinAmount),
			CrossCategoryMatches: matches,
		}
	}
	return out
}

// runePrefix truncates on rune boundaries so multibyte memo text keeps
// whole characters.
func runePrefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// dateGapDays returns the absolute calendar-day gap between two
// YYYY-MM-DD dates. Unparseable dates count as a zero gap rather than
// failing the pass.
func dateGapDays(a, b string) int {
	ta, errA := time.Parse("2006-01-02", a)
	tb, errB := time.Parse("2006-01-02", b)
	if errA != nil || errB != nil {
		return 0
	}
	return int(math.Abs(ta.Sub(tb).Hours()) / 24)
}
