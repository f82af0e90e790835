package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/boddenberg/keiri-audit-go/internal/config"
)

func TestLoadThresholds_Defaults(t *testing.T) {
	th, err := config.LoadThresholds("")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if th.CompositionMediumPct != 40 || th.CompositionHighPct != 60 {
		t.Errorf("unexpected composition defaults: %+v", th)
	}
	if th.CrossMatchMinAmount != 100000 {
		t.Errorf("expected cross-match floor 100000, got %f", th.CrossMatchMinAmount)
	}
}

func TestLoadThresholds_PartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := "composition_medium_pct: 35\ncross_match_min_amount: 200000\nscrutiny_categories:\n  travel: 12\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	th, err := config.LoadThresholds(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if th.CompositionMediumPct != 35 {
		t.Errorf("expected override 35, got %f", th.CompositionMediumPct)
	}
	if th.CompositionHighPct != 60 {
		t.Errorf("omitted keys keep defaults, got %f", th.CompositionHighPct)
	}
	if th.CrossMatchMinAmount != 200000 {
		t.Errorf("expected floor 200000, got %f", th.CrossMatchMinAmount)
	}
	if th.ScrutinyCategories["travel"] != 12 {
		t.Errorf("expected replaced scrutiny table, got %+v", th.ScrutinyCategories)
	}
}

func TestLoadThresholds_MissingFile(t *testing.T) {
	if _, err := config.LoadThresholds("/nonexistent/rules.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadThresholds_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("{not yaml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := config.LoadThresholds(path); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}
