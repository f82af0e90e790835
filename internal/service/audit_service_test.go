package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/keiri-audit-go/internal/audit"
	"github.com/boddenberg/keiri-audit-go/internal/domain"
	"github.com/boddenberg/keiri-audit-go/internal/infra/cache"
	"github.com/boddenberg/keiri-audit-go/internal/infra/observability"
	"github.com/boddenberg/keiri-audit-go/internal/service"

	"go.uber.org/zap"
)

// --- Mocks ---

type mockTxSource struct {
	transactions []domain.Transaction
	err          error
	calls        int
}

func (m *mockTxSource) GetTransactions(_ context.Context, _ string, _ int) ([]domain.Transaction, error) {
	m.calls++
	return m.transactions, m.err
}

type mockHistorySource struct {
	summary *domain.HistoricalSummary
	err     error
}

func (m *mockHistorySource) GetYearlySummary(_ context.Context, _ string, _ int) (*domain.HistoricalSummary, error) {
	return m.summary, m.err
}

type mockResultStore struct {
	results map[string]*domain.AuditResult
	getErr  error
	putErr  error
	puts    int
}

func newMockStore() *mockResultStore {
	return &mockResultStore{results: map[string]*domain.AuditResult{}}
}

func (m *mockResultStore) Get(_ context.Context, userID string, year int, date string) (*domain.AuditResult, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	r, ok := m.results[userID]
	if !ok || r.Year != year || r.Date != date {
		return nil, nil
	}
	return r, nil
}

func (m *mockResultStore) Put(_ context.Context, result *domain.AuditResult) error {
	m.puts++
	if m.putErr != nil {
		return m.putErr
	}
	m.results[result.UserID] = result
	return nil
}

// --- Helpers ---

func expense(category, memo string, amount float64) domain.Transaction {
	return domain.Transaction{
		Type:     domain.TxTypeExpense,
		Category: category,
		Memo:     memo,
		Amount:   domain.FlexAmount(amount),
		Date:     "2025-05-10",
	}
}

func newService(tx *mockTxSource, hist *mockHistorySource, store *mockResultStore) *service.AuditService {
	svc := service.NewAuditService(
		audit.NewEngine(audit.DefaultThresholds(), 4),
		tx,
		hist,
		store,
		cache.New[*domain.AuditResult](5*time.Minute),
		observability.NewMetrics(),
		zap.NewNop(),
		time.UTC,
	)
	svc.SetNow(func() time.Time {
		return time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	})
	return svc
}

// --- Tests ---

func TestGetRiskRanking_ComputesAndPersists(t *testing.T) {
	tx := &mockTxSource{transactions: []domain.Transaction{expense("rent", "", 700000)}}
	hist := &mockHistorySource{summary: &domain.HistoricalSummary{Usable: true}}
	store := newMockStore()

	result, err := newService(tx, hist, store).GetRiskRanking(context.Background(), "u-1", 2025, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if result.Date != "2025-09-01" {
		t.Errorf("expected today's date key, got %s", result.Date)
	}
	if result.ID == "" {
		t.Error("expected a run id")
	}
	if len(result.Profiles) != 1 || result.Profiles[0].Category != "rent" {
		t.Errorf("unexpected profiles %+v", result.Profiles)
	}
	if store.puts != 1 {
		t.Errorf("expected one persisted run, got %d", store.puts)
	}
}

func TestGetRiskRanking_SameDayReusesStoredResult(t *testing.T) {
	tx := &mockTxSource{transactions: []domain.Transaction{expense("rent", "", 700000)}}
	hist := &mockHistorySource{summary: &domain.HistoricalSummary{Usable: true}}
	store := newMockStore()
	svc := newService(tx, hist, store)

	first, err := svc.GetRiskRanking(context.Background(), "u-1", 2025, false)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.GetRiskRanking(context.Background(), "u-1", 2025, false)
	if err != nil {
		t.Fatal(err)
	}

	if tx.calls != 1 {
		t.Errorf("second view on the same day must not refetch, got %d calls", tx.calls)
	}
	if first.ID != second.ID {
		t.Error("expected the same run both times")
	}
}

func TestGetRiskRanking_NewDayRecomputes(t *testing.T) {
	tx := &mockTxSource{transactions: []domain.Transaction{expense("rent", "", 700000)}}
	hist := &mockHistorySource{summary: &domain.HistoricalSummary{Usable: true}}
	store := newMockStore()
	svc := newService(tx, hist, store)

	if _, err := svc.GetRiskRanking(context.Background(), "u-1", 2025, false); err != nil {
		t.Fatal(err)
	}

	// Next calendar day: the stored result is a miss, not stale data.
	svc.SetNow(func() time.Time {
		return time.Date(2025, 9, 2, 8, 0, 0, 0, time.UTC)
	})
	if _, err := svc.GetRiskRanking(context.Background(), "u-1", 2025, false); err != nil {
		t.Fatal(err)
	}

	if tx.calls != 2 {
		t.Errorf("a new day must recompute, got %d fetches", tx.calls)
	}
	if store.puts != 2 {
		t.Errorf("a new day must persist again, got %d puts", store.puts)
	}
}

func TestGetRiskRanking_RefreshBypassesDayGate(t *testing.T) {
	tx := &mockTxSource{transactions: []domain.Transaction{expense("rent", "", 700000)}}
	hist := &mockHistorySource{summary: &domain.HistoricalSummary{Usable: true}}
	store := newMockStore()
	svc := newService(tx, hist, store)

	if _, err := svc.GetRiskRanking(context.Background(), "u-1", 2025, false); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetRiskRanking(context.Background(), "u-1", 2025, true); err != nil {
		t.Fatal(err)
	}

	if tx.calls != 2 {
		t.Errorf("refresh must recompute, got %d fetches", tx.calls)
	}
}

func TestGetRiskRanking_HistoryFetchFailureDegradesToNull(t *testing.T) {
	tx := &mockTxSource{transactions: []domain.Transaction{expense("rent", "", 700000)}}
	hist := &mockHistorySource{err: errors.New("summary sheet unreachable")}
	store := newMockStore()

	result, err := newService(tx, hist, store).GetRiskRanking(context.Background(), "u-1", 2025, false)
	if err != nil {
		t.Fatalf("history failure must not abort the run, got %v", err)
	}

	p := result.Profiles[0]
	if p.GrowthRate != nil || p.ZScore != nil || p.DiffRatio != nil {
		t.Error("expected null comparators when history is unavailable")
	}
}

func TestGetRiskRanking_UnusableSummaryTreatedLikeFailure(t *testing.T) {
	tx := &mockTxSource{transactions: []domain.Transaction{expense("rent", "", 700000)}}
	hist := &mockHistorySource{summary: &domain.HistoricalSummary{Usable: false, Reason: "not initialized"}}
	store := newMockStore()

	result, err := newService(tx, hist, store).GetRiskRanking(context.Background(), "u-1", 2025, false)
	if err != nil {
		t.Fatal(err)
	}
	p := result.Profiles[0]
	if p.GrowthRate != nil || p.ZScore != nil || p.DiffRatio != nil {
		t.Error("usable=false must behave exactly like a fetch failure")
	}
}

func TestGetRiskRanking_TransactionFetchFailureAborts(t *testing.T) {
	tx := &mockTxSource{err: &domain.ErrExternalService{Service: "ledger", Err: errors.New("down")}}
	hist := &mockHistorySource{summary: &domain.HistoricalSummary{Usable: true}}

	_, err := newService(tx, hist, newMockStore()).GetRiskRanking(context.Background(), "u-1", 2025, false)
	if err == nil {
		t.Fatal("no transactions means no scoring run")
	}
}

func TestGetRiskRanking_StoreFailuresAreNonFatal(t *testing.T) {
	tx := &mockTxSource{transactions: []domain.Transaction{expense("rent", "", 700000)}}
	hist := &mockHistorySource{summary: &domain.HistoricalSummary{Usable: true}}
	store := newMockStore()
	store.getErr = errors.New("disk full")
	store.putErr = errors.New("disk full")

	result, err := newService(tx, hist, store).GetRiskRanking(context.Background(), "u-1", 2025, false)
	if err != nil {
		t.Fatalf("store failures must degrade to always-recompute, got %v", err)
	}
	if len(result.Profiles) != 1 {
		t.Errorf("expected a computed result, got %+v", result)
	}
}

func TestGetRiskRanking_ValidatesInput(t *testing.T) {
	svc := newService(&mockTxSource{}, &mockHistorySource{}, newMockStore())

	if _, err := svc.GetRiskRanking(context.Background(), "", 2025, false); err == nil {
		t.Error("expected validation error for empty user")
	}
	if _, err := svc.GetRiskRanking(context.Background(), "u-1", 1900, false); err == nil {
		t.Error("expected validation error for out-of-range year")
	}
}

func TestScorePayload_DoesNotTouchCollaborators(t *testing.T) {
	tx := &mockTxSource{}
	store := newMockStore()
	svc := newService(tx, &mockHistorySource{}, store)

	profiles, err := svc.ScorePayload(context.Background(), []domain.Transaction{
		expense("outsourcing", "ABC Corporation", 500000),
		expense("meeting", "ABC Corporation", 500000),
	}, nil, 2025)
	if err != nil {
		t.Fatal(err)
	}

	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(profiles))
	}
	if tx.calls != 0 || store.puts != 0 {
		t.Error("payload scoring must not call the gateway or the store")
	}
}
