// Package ledgerapi provides a client for the ledger gateway, the
// spreadsheet-backed service that owns raw transactions and yearly
// category summaries. The engine only reads from it.
package ledgerapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/boddenberg/keiri-audit-go/internal/domain"
	"github.com/boddenberg/keiri-audit-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("ledgerapi")

// Client wraps HTTP calls to the ledger gateway.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	bulkhead   *resilience.Bulkhead
	logger     *zap.Logger
}

// NewClient creates a ledger gateway client.
func NewClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	maxConcurrency := cfg.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 50
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
		bulkhead:   resilience.NewBulkhead(maxConcurrency),
		logger:     logger,
	}
}

// GetTransactions fetches one user's transactions for a fiscal year
// with retry, circuit breaker, and tracing.
// Implements port.TransactionSource.
func (c *Client) GetTransactions(ctx context.Context, userID string, year int) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "LedgerClient.GetTransactions")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.Int("year", year),
	)

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, &domain.ErrTimeout{Operation: "ledger transactions"}
	}
	defer c.bulkhead.Release()

	var transactions []domain.Transaction

	result, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			url := fmt.Sprintf("%s/v1/users/%s/years/%d/transactions", c.baseURL, userID, year)
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return err
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotFound {
				return &domain.ErrNotFound{Resource: "transactions", ID: userID}
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("ledger gateway returned status %d", resp.StatusCode)
			}

			return json.NewDecoder(resp.Body).Decode(&transactions)
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return transactions, nil
	})

	if err != nil {
		return nil, wrapGatewayError(err)
	}

	return result.([]domain.Transaction), nil
}

// GetYearlySummary fetches the multi-year category summary for a user.
// A gateway that cannot produce usable data answers with an explicit
// usable=false sentinel, which is passed through untouched.
// Implements port.HistorySource.
func (c *Client) GetYearlySummary(ctx context.Context, userID string, year int) (*domain.HistoricalSummary, error) {
	ctx, span := tracer.Start(ctx, "LedgerClient.GetYearlySummary")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.Int("year", year),
	)

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, &domain.ErrTimeout{Operation: "ledger yearly summary"}
	}
	defer c.bulkhead.Release()

	var summary domain.HistoricalSummary

	result, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			url := fmt.Sprintf("%s/v1/users/%s/years/%d/summary", c.baseURL, userID, year)
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return err
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotFound {
				return &domain.ErrNotFound{Resource: "yearly summary", ID: userID}
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("ledger gateway returned status %d", resp.StatusCode)
			}

			var payload summaryPayload
			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				return err
			}
			summary = payload.toDomain()
			return nil
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return &summary, nil
	})

	if err != nil {
		c.logger.Warn("ledger: yearly summary fetch failed",
			zap.String("user_id", userID),
			zap.Int("year", year),
			zap.Error(err),
		)
		return nil, wrapGatewayError(err)
	}

	return result.(*domain.HistoricalSummary), nil
}

// wrapGatewayError keeps breaker rejections distinguishable from plain
// upstream failures: an open breaker is a shed call, not a gateway
// error, and callers map the two to different HTTP statuses.
func wrapGatewayError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: "ledger"}
	}
	return &domain.ErrExternalService{Service: "ledger", Err: err}
}

// summaryPayload maps the gateway's summary wire format. Account names
// map onto the engine's category labels; the amount tolerates the
// gateway's occasional string-typed numbers.
type summaryPayload struct {
	Usable bool   `json:"usable"`
	Reason string `json:"reason"`
	Data   []struct {
		Year        int               `json:"year"`
		AccountName string            `json:"accountName"`
		Amount      domain.FlexAmount `json:"amount"`
		Ratio       float64           `json:"ratio"`
	} `json:"data"`
}

func (p summaryPayload) toDomain() domain.HistoricalSummary {
	out := domain.HistoricalSummary{Usable: p.Usable, Reason: p.Reason}
	for _, d := range p.Data {
		out.Data = append(out.Data, domain.HistoricalPoint{
			Year:     d.Year,
			Category: d.AccountName,
			Amount:   float64(d.Amount),
			Ratio:    d.Ratio,
		})
	}
	return out
}
