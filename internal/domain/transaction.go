package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Transaction types as they arrive from the ledger gateway.
const (
	TxTypeExpense = "expense"
	TxTypeIncome  = "income"
)

// FallbackCategory is assigned when a transaction arrives without a
// category label. The engine treats categories as free text, so this
// is just another label, not a special case downstream.
const FallbackCategory = "uncategorized"

// Transaction is a single ledger entry. Immutable input to the
// scoring engine.
type Transaction struct {
	ID       string     `json:"id"`
	Date     string     `json:"date"` // YYYY-MM-DD
	Amount   FlexAmount `json:"amount"`
	Category string     `json:"category"`
	Memo     string     `json:"memo"`
	Type     string     `json:"type"` // expense | income
}

// IsExpense reports whether the transaction counts toward expense
// denominators.
func (t Transaction) IsExpense() bool {
	return t.Type == TxTypeExpense
}

// CategoryLabel returns the category, falling back to the sentinel
// label when the field is empty.
func (t Transaction) CategoryLabel() string {
	if strings.TrimSpace(t.Category) == "" {
		return FallbackCategory
	}
	return t.Category
}

// FlexAmount decodes a numeric amount from JSON that may arrive as a
// number, a numeric string, null, or garbage. Anything unusable
// decodes to 0 rather than failing the whole payload.
type FlexAmount float64

func (a *FlexAmount) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		*a = 0
		return nil
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			*a = 0
			return nil
		}
		s = strings.TrimSpace(str)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		*a = 0
		return nil
	}
	*a = FlexAmount(f)
	return nil
}

// Float returns the amount sanitized for aggregation: non-finite and
// negative values count as 0.
func (a FlexAmount) Float() float64 {
	f := float64(a)
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// HistoricalPoint is one year of aggregated history for a category,
// as reported by the yearly summary source.
type HistoricalPoint struct {
	Year     int     `json:"year"`
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Ratio    float64 `json:"ratio"`
}

// HistoricalSummary is the yearly summary source response. When the
// source cannot produce usable data it says so explicitly instead of
// returning an empty list.
type HistoricalSummary struct {
	Usable bool              `json:"usable"`
	Reason string            `json:"reason,omitempty"`
	Data   []HistoricalPoint `json:"data,omitempty"`
}
