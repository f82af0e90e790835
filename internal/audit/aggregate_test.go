package audit_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/boddenberg/keiri-audit-go/internal/audit"
	"github.com/boddenberg/keiri-audit-go/internal/domain"
)

func expense(category string, amount float64) domain.Transaction {
	return domain.Transaction{
		Type:     domain.TxTypeExpense,
		Category: category,
		Amount:   domain.FlexAmount(amount),
		Date:     "2025-06-15",
	}
}

func TestAggregate_GroupsByExactCategory(t *testing.T) {
	txs := []domain.Transaction{
		expense("supplies", 100),
		expense("supplies", 300),
		expense("rent", 50000),
	}

	agg := audit.Aggregate(txs)

	if agg.Total != 50400 {
		t.Errorf("expected total 50400, got %f", agg.Total)
	}
	if len(agg.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(agg.Categories))
	}
	// Categories come back sorted by name.
	if agg.Categories[0].Category != "rent" {
		t.Errorf("expected 'rent' first, got '%s'", agg.Categories[0].Category)
	}
	supplies := agg.Categories[1]
	if supplies.TotalAmount != 400 || supplies.TransactionCount != 2 || supplies.MaxSingleAmount != 300 {
		t.Errorf("supplies aggregate wrong: %+v", supplies)
	}
}

func TestAggregate_ExcludesIncome(t *testing.T) {
	txs := []domain.Transaction{
		expense("supplies", 100),
		{Type: domain.TxTypeIncome, Category: "sales", Amount: 99999},
	}

	agg := audit.Aggregate(txs)

	if agg.Total != 100 {
		t.Errorf("income must not count toward the total, got %f", agg.Total)
	}
	if len(agg.Categories) != 1 {
		t.Errorf("income categories must not appear, got %d", len(agg.Categories))
	}
}

func TestAggregate_MissingCategoryFallsBack(t *testing.T) {
	agg := audit.Aggregate([]domain.Transaction{expense("  ", 50)})

	if len(agg.Categories) != 1 || agg.Categories[0].Category != domain.FallbackCategory {
		t.Fatalf("expected fallback category, got %+v", agg.Categories)
	}
}

func TestAggregate_UnusableAmountsCountAsZero(t *testing.T) {
	txs := []domain.Transaction{
		expense("supplies", 100),
		expense("supplies", math.NaN()),
		expense("supplies", math.Inf(1)),
		expense("supplies", -500),
	}

	agg := audit.Aggregate(txs)

	if agg.Total != 100 {
		t.Errorf("expected total 100, got %f", agg.Total)
	}
	if agg.Categories[0].TransactionCount != 4 {
		t.Errorf("all rows still count, got %d", agg.Categories[0].TransactionCount)
	}
}

func TestAggregate_EmptyInput(t *testing.T) {
	agg := audit.Aggregate(nil)

	if agg.Total != 0 || len(agg.Categories) != 0 {
		t.Errorf("expected empty aggregation, got %+v", agg)
	}
	if audit.RatioOf(0, agg.Total) != 0 {
		t.Error("ratio on zero total must be 0, not NaN")
	}
}

func TestFlexAmount_DecodesLeniently(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{`{"amount": 1200.5}`, 1200.5},
		{`{"amount": "300"}`, 300},
		{`{"amount": null}`, 0},
		{`{"amount": "not-a-number"}`, 0},
		{`{}`, 0},
	}
	for _, tc := range cases {
		var tx domain.Transaction
		if err := json.Unmarshal([]byte(tc.raw), &tx); err != nil {
			t.Fatalf("decode %s: %v", tc.raw, err)
		}
		if tx.Amount.Float() != tc.want {
			t.Errorf("%s: expected %f, got %f", tc.raw, tc.want, tx.Amount.Float())
		}
	}
}
