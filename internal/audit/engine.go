package audit

import (
	"context"

	"github.com/boddenberg/keiri-audit-go/internal/domain"

	"golang.org/x/sync/errgroup"
)

// Engine runs the full scoring pass. It holds no mutable state beyond
// its thresholds; Score is a pure function of its inputs and safe for
// concurrent use.
type Engine struct {
	thresholds Thresholds
	// parallelism bounds the per-category comparator fan-out.
	parallelism int
}

// NewEngine creates an engine with the given thresholds.
func NewEngine(th Thresholds, parallelism int) *Engine {
	if parallelism <= 0 {
		parallelism = 8
	}
	return &Engine{thresholds: th, parallelism: parallelism}
}

// Thresholds returns the engine's active policy constants.
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// Score runs aggregate → compare → detect → cross-match → synthesize
// over one year of transactions. A nil or empty history yields nil
// comparator fields on every profile; an empty transaction set yields
// an empty (non-nil) profile list.
func (e *Engine) Score(ctx context.Context, txs []domain.Transaction, history []domain.HistoricalPoint, year int) ([]domain.CategoryRiskProfile, error) {
	agg := Aggregate(txs)

	profiles := make([]*domain.CategoryRiskProfile, len(agg.Categories))

	// Per-category comparison touches only that category's slice of
	// the history, so it fans out safely. Results land at fixed
	// indexes, keeping the pass deterministic.
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i, ca := range agg.Categories {
		i, ca := i, ca
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ratio := RatioOf(ca.TotalAmount, agg.Total)
			cmp := Compare(ca.Category, ca.TotalAmount, ratio, year, history, e.thresholds)
			profiles[i] = &domain.CategoryRiskProfile{
				Category:        ca.Category,
				TotalAmount:     ca.TotalAmount,
				RatioOfTotal:    ratio,
				MaxSingleAmount: ca.MaxSingleAmount,
				MaxSingleRatio:  RatioOf(ca.MaxSingleAmount, agg.Total),
				GrowthRate:      cmp.GrowthRate,
				ZScore:          cmp.ZScore,
				DiffRatio:       cmp.DiffRatio,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	detected := Detect(profiles, e.thresholds)

	// The matcher needs the unpartitioned transaction list, so it runs
	// after the per-category join.
	crossMatched := CrossMatch(txs, e.thresholds)

	return Synthesize(profiles, detected, crossMatched, e.thresholds), nil
}
