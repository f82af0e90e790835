package domain

// ============================================================
// Audit risk scoring output model
// ============================================================

// Anomaly dimensions. Each detector emits records of exactly one
// dimension; a category can collect records from several dimensions in
// the same pass.
const (
	DimCompositionRatio     = "composition-ratio"
	DimSuddenChange         = "sudden-change"
	DimStatisticalDeviation = "statistical-deviation"
	DimRatioDrift           = "ratio-drift"
	DimCrossCategoryMatch   = "cross-category-match"
)

// Anomaly severities.
const (
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Risk levels for a category profile.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// RiskLevelRank maps a risk level to a sortable rank (higher = worse).
func RiskLevelRank(level string) int {
	switch level {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

// CategoryAggregate holds per-category totals for one scoring pass.
type CategoryAggregate struct {
	Category         string  `json:"category"`
	TotalAmount      float64 `json:"total_amount"`
	TransactionCount int     `json:"transaction_count"`
	MaxSingleAmount  float64 `json:"max_single_amount"`
}

// CrossCategoryMatch is one counterparty/amount collision with a
// transaction booked under a different category.
type CrossCategoryMatch struct {
	RelatedCategory string  `json:"related_category"`
	Amount          float64 `json:"amount"`
	DateGapDays     int     `json:"date_gap_days"`
	Counterparty    string  `json:"counterparty"`
}

// AnomalyRecord is one detector finding. Message states the observed
// fact; RuleDescription states the threshold rule that fired. They are
// kept separate so the explanation layer can compose text without
// re-deriving numbers.
type AnomalyRecord struct {
	Dimension            string               `json:"dimension"`
	Category             string               `json:"category"`
	Value                float64              `json:"value"`
	Severity             string               `json:"severity"`
	Message              string               `json:"message"`
	RuleDescription      string               `json:"rule_description"`
	CrossCategoryMatches []CrossCategoryMatch `json:"cross_category_matches,omitempty"`
}

// CategoryRiskProfile is the engine's output unit, one per category
// present in the scored transaction set. Comparator fields are nil
// (not 0) whenever the history is insufficient to compute them.
type CategoryRiskProfile struct {
	Category        string          `json:"category"`
	TotalAmount     float64         `json:"total_amount"`
	RatioOfTotal    float64         `json:"ratio_of_total"`
	MaxSingleAmount float64         `json:"max_single_amount"`
	MaxSingleRatio  float64         `json:"max_single_ratio"`
	RiskLevel       string          `json:"risk_level"`
	Issues          []string        `json:"issues"`
	GrowthRate      *float64        `json:"growth_rate"`
	ZScore          *float64        `json:"z_score"`
	DiffRatio       *float64        `json:"diff_ratio"`
	Anomalies       []AnomalyRecord `json:"anomalies"`
	AnomalyCount    int             `json:"anomaly_count"`
}

// AuditResult is the persisted envelope for one ranked scoring run.
// Date is the calendar date (YYYY-MM-DD, deployment timezone) the run
// was computed on; reads on any other date are treated as misses.
type AuditResult struct {
	ID       string                `json:"id"`
	UserID   string                `json:"user_id"`
	Year     int                   `json:"year"`
	Date     string                `json:"date"`
	Profiles []CategoryRiskProfile `json:"profiles"`
}
