// auditctl scores a local ledger export without a running server:
//
//	auditctl -txns export-2025.json -year 2025 [-history history.json] [-rules rules.yaml]
//
// The export file holds a JSON array of transactions; the optional
// history file holds a JSON array of yearly category totals. The ranked
// report goes to stdout.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/boddenberg/keiri-audit-go/internal/audit"
	"github.com/boddenberg/keiri-audit-go/internal/config"
	"github.com/boddenberg/keiri-audit-go/internal/domain"

	"github.com/fatih/color"
)

var errc = color.New(color.BgRed, color.FgWhite).PrintfFunc()

func main() {
	var (
		txnsPath    = flag.String("txns", "", "path to the transactions JSON export (required)")
		historyPath = flag.String("history", "", "path to a yearly history JSON file (optional)")
		rulesPath   = flag.String("rules", "", "path to a YAML threshold overrides file (optional)")
		year        = flag.Int("year", time.Now().Year(), "fiscal year being scored")
		asJSON      = flag.Bool("json", false, "emit raw JSON instead of the formatted report")
	)
	flag.Parse()

	if *txnsPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	txs, err := readTransactions(*txnsPath)
	if err != nil {
		errc("cannot read transactions: %v", err)
		fmt.Println()
		os.Exit(1)
	}

	var history []domain.HistoricalPoint
	if *historyPath != "" {
		history, err = readHistory(*historyPath)
		if err != nil {
			errc("cannot read history: %v", err)
			fmt.Println()
			os.Exit(1)
		}
	}

	thresholds, err := config.LoadThresholds(*rulesPath)
	if err != nil {
		errc("cannot load rules: %v", err)
		fmt.Println()
		os.Exit(1)
	}

	engine := audit.NewEngine(thresholds, 0)
	profiles, err := engine.Score(context.Background(), txs, history, *year)
	if err != nil {
		errc("scoring failed: %v", err)
		fmt.Println()
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(profiles); err != nil {
			errc("encode: %v", err)
			fmt.Println()
			os.Exit(1)
		}
		return
	}

	printReport(profiles, *year)
}

func readTransactions(path string) ([]domain.Transaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var txs []domain.Transaction
	if err := json.Unmarshal(data, &txs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return txs, nil
}

func readHistory(path string) ([]domain.HistoricalPoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var points []domain.HistoricalPoint
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return points, nil
}

func printReport(profiles []domain.CategoryRiskProfile, year int) {
	color.New(color.BgBlue, color.FgWhite).Printf(" audit risk ranking %d ", year)
	fmt.Printf("  %d categories\n\n", len(profiles))

	for i, p := range profiles {
		riskBadge(p.RiskLevel)
		fmt.Printf(" %2d. %-24s %12.0f  (%.1f%% of total, %d anomalies)\n",
			i+1, p.Category, p.TotalAmount, p.RatioOfTotal, p.AnomalyCount)

		for _, a := range p.Anomalies {
			if a.Severity == domain.SeverityHigh {
				color.New(color.FgRed).Printf("      ! %s", a.Message)
			} else {
				color.New(color.FgYellow).Printf("      - %s", a.Message)
			}
			fmt.Println()
			for _, m := range a.CrossCategoryMatches {
				fmt.Printf("        matches %q in %s (%.0f, %dd apart)\n",
					m.Counterparty, m.RelatedCategory, m.Amount, m.DateGapDays)
			}
		}
		for _, issue := range p.Issues {
			color.New(color.FgCyan).Printf("      > %s", issue)
			fmt.Println()
		}
		fmt.Println()
	}
}

func riskBadge(level string) {
	switch level {
	case domain.RiskHigh:
		color.New(color.BgRed, color.FgWhite).Printf(" HIGH ")
	case domain.RiskMedium:
		color.New(color.BgYellow, color.FgBlack).Printf(" MED  ")
	default:
		color.New(color.BgGreen, color.FgBlack).Printf(" LOW  ")
	}
}
