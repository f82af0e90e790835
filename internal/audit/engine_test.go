package audit_test

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/boddenberg/keiri-audit-go/internal/audit"
	"github.com/boddenberg/keiri-audit-go/internal/domain"
)

func newEngine() *audit.Engine {
	return audit.NewEngine(audit.DefaultThresholds(), 4)
}

func score(t *testing.T, txs []domain.Transaction, history []domain.HistoricalPoint) []domain.CategoryRiskProfile {
	t.Helper()
	profiles, err := newEngine().Score(context.Background(), txs, history, 2025)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	return profiles
}

func TestScore_RatioClosure(t *testing.T) {
	txs := []domain.Transaction{
		expense("rent", 123456),
		expense("supplies", 77777),
		expense("meeting", 333),
		expense("outsourcing", 901234),
	}

	profiles := score(t, txs, nil)

	var sum float64
	for _, p := range profiles {
		sum += p.RatioOfTotal
	}
	if math.Abs(sum-100) > 0.1 {
		t.Errorf("ratios must close to 100, got %f", sum)
	}
}

func TestScore_NullVsZero(t *testing.T) {
	txs := []domain.Transaction{expense("supplies", 1000)}
	// Only the current year exists in history.
	history := []domain.HistoricalPoint{{Year: 2025, Category: "supplies", Amount: 1000, Ratio: 100}}

	profiles := score(t, txs, history)

	p := profiles[0]
	if p.GrowthRate != nil || p.DiffRatio != nil || p.ZScore != nil {
		t.Errorf("current-year-only history must yield nil comparators, got %+v", p)
	}
}

func TestScore_Idempotence(t *testing.T) {
	txs := []domain.Transaction{
		expense("rent", 800000),
		expense("supplies", 120000),
		memoTx("outsourcing", "ABC Corporation", "2025-02-01", 500000),
		memoTx("meeting", "ABC Corporation", "2025-02-03", 500000),
	}
	history := []domain.HistoricalPoint{
		{Year: 2024, Category: "rent", Amount: 700000, Ratio: 50},
		{Year: 2023, Category: "rent", Amount: 600000, Ratio: 48},
		{Year: 2022, Category: "rent", Amount: 650000, Ratio: 49},
	}

	first := score(t, txs, history)
	second := score(t, txs, history)

	a, err := json.Marshal(first)
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(second)
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Error("two runs over identical input must serialize identically")
	}
}

func TestScore_AnomalyCountConsistency(t *testing.T) {
	txs := []domain.Transaction{
		expense("rent", 800000),
		memoTx("outsourcing", "ABC Corporation", "2025-02-01", 500000),
		memoTx("meeting", "ABC Corporation", "2025-02-03", 500000),
	}

	profiles := score(t, txs, nil)

	for _, p := range profiles {
		if p.AnomalyCount != len(p.Anomalies) {
			t.Errorf("%s: anomaly count %d != list length %d", p.Category, p.AnomalyCount, len(p.Anomalies))
		}
	}
}

func TestScore_SingleCategoryScenario(t *testing.T) {
	txs := []domain.Transaction{expense("A", 700000)}

	profiles := score(t, txs, nil)

	if len(profiles) != 1 {
		t.Fatalf("expected one profile, got %d", len(profiles))
	}
	p := profiles[0]
	if p.RatioOfTotal != 100 {
		t.Errorf("expected ratio 100, got %f", p.RatioOfTotal)
	}
	if p.RiskLevel != domain.RiskHigh {
		t.Errorf("100%% ratio is high risk, got %s", p.RiskLevel)
	}
	if len(p.Anomalies) != 1 || p.Anomalies[0].Dimension != domain.DimCompositionRatio {
		t.Fatalf("expected one composition anomaly, got %+v", p.Anomalies)
	}
	if p.Anomalies[0].Severity != domain.SeverityHigh {
		t.Errorf("100%% > 60%% is high severity, got %s", p.Anomalies[0].Severity)
	}
}

func TestScore_CrossMatchScenario(t *testing.T) {
	txs := []domain.Transaction{
		memoTx("outsourcing", "ABC Corp KK", "2025-04-10", 500000),
		memoTx("meeting", "ABC Corp KK", "2025-04-11", 500000),
	}

	profiles := score(t, txs, nil)

	byCategory := map[string]domain.CategoryRiskProfile{}
	for _, p := range profiles {
		byCategory[p.Category] = p
	}

	for _, pair := range []struct{ category, related string }{
		{"outsourcing", "meeting"},
		{"meeting", "outsourcing"},
	} {
		p := byCategory[pair.category]
		var rec *domain.AnomalyRecord
		for i := range p.Anomalies {
			if p.Anomalies[i].Dimension == domain.DimCrossCategoryMatch {
				rec = &p.Anomalies[i]
			}
		}
		if rec == nil {
			t.Fatalf("%s: expected cross-match anomaly", pair.category)
		}
		if rec.CrossCategoryMatches[0].RelatedCategory != pair.related {
			t.Errorf("%s: expected related %s, got %s",
				pair.category, pair.related, rec.CrossCategoryMatches[0].RelatedCategory)
		}
		if rec.CrossCategoryMatches[0].DateGapDays != 1 {
			t.Errorf("%s: expected 1 day gap, got %d", pair.category, rec.CrossCategoryMatches[0].DateGapDays)
		}
	}
}

func TestScore_NoHistoryStillDetectsComposition(t *testing.T) {
	// A category absent from all history still gets current-period
	// detection.
	txs := []domain.Transaction{
		expense("newcategory", 900000),
		expense("rent", 100000),
	}
	history := []domain.HistoricalPoint{{Year: 2024, Category: "rent", Amount: 90000, Ratio: 10}}

	profiles := score(t, txs, history)

	var target *domain.CategoryRiskProfile
	for i := range profiles {
		if profiles[i].Category == "newcategory" {
			target = &profiles[i]
		}
	}
	if target == nil {
		t.Fatal("missing profile")
	}
	if target.GrowthRate != nil || target.ZScore != nil || target.DiffRatio != nil {
		t.Error("no history means nil comparators")
	}
	found := false
	for _, a := range target.Anomalies {
		if a.Dimension == domain.DimCompositionRatio {
			found = true
		}
	}
	if !found {
		t.Error("composition anomaly must still fire from current-period data")
	}
}

func TestScore_BelowFloorDuplicatesDoNotCrossMatch(t *testing.T) {
	txs := []domain.Transaction{
		memoTx("outsourcing", "ABC Corporation", "2025-04-10", 50000),
		memoTx("meeting", "ABC Corporation", "2025-04-11", 50000),
	}

	profiles := score(t, txs, nil)

	for _, p := range profiles {
		for _, a := range p.Anomalies {
			if a.Dimension == domain.DimCrossCategoryMatch {
				t.Errorf("%s: below-floor duplicates must not cross-match", p.Category)
			}
		}
	}
}

func TestScore_EmptyInput(t *testing.T) {
	profiles := score(t, nil, nil)

	if profiles == nil {
		t.Fatal("expected empty slice, not nil")
	}
	if len(profiles) != 0 {
		t.Errorf("expected no profiles, got %d", len(profiles))
	}
}

func TestScore_EveryProfileHasIssues(t *testing.T) {
	txs := []domain.Transaction{
		expense("rent", 10),
		expense("supplies", 10),
		expense("misc", 10),
	}

	profiles := score(t, txs, nil)

	for _, p := range profiles {
		if len(p.Issues) == 0 {
			t.Errorf("%s: issues list must never be empty", p.Category)
		}
	}
}
