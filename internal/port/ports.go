package port

import (
	"context"

	"github.com/boddenberg/keiri-audit-go/internal/domain"
)

// TransactionSource provides the categorized transactions for one
// user and fiscal year. Implemented by the ledger gateway client.
type TransactionSource interface {
	GetTransactions(ctx context.Context, userID string, year int) ([]domain.Transaction, error)
}

// HistorySource provides multi-year category aggregates. The summary
// carries its own usable/reason sentinel; callers must treat a fetch
// error and usable=false identically.
type HistorySource interface {
	GetYearlySummary(ctx context.Context, userID string, year int) (*domain.HistoricalSummary, error)
}

// ResultStore persists ranked scoring results keyed by (user, year).
// Get returns nil when no result exists for the given calendar date;
// a stored result from another date is a miss, not stale data.
type ResultStore interface {
	Get(ctx context.Context, userID string, year int, date string) (*domain.AuditResult, error)
	Put(ctx context.Context, result *domain.AuditResult) error
}
