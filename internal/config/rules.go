package config

import (
	"os"

	"github.com/boddenberg/keiri-audit-go/internal/audit"

	"gopkg.in/yaml.v2"
)

// LoadThresholds returns the engine policy constants, optionally
// overridden from a YAML rules file. An empty path means defaults.
// Only fields present in the file override; omitted fields keep their
// defaults so a rules file can tune a single knob.
func LoadThresholds(path string) (audit.Thresholds, error) {
	th := audit.DefaultThresholds()
	if path == "" {
		return th, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return th, err
	}

	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return th, err
	}
	file.apply(&th)
	return th, nil
}

// rulesFile mirrors audit.Thresholds with pointer fields so absent
// keys are distinguishable from explicit zeroes.
type rulesFile struct {
	CompositionMediumPct *float64 `yaml:"composition_medium_pct"`
	CompositionHighPct   *float64 `yaml:"composition_high_pct"`

	GrowthMediumPct *float64 `yaml:"growth_medium_pct"`
	GrowthHighPct   *float64 `yaml:"growth_high_pct"`

	ZScoreMedium *float64 `yaml:"zscore_medium"`
	ZScoreHigh   *float64 `yaml:"zscore_high"`

	DriftMediumPt *float64 `yaml:"drift_medium_pt"`
	DriftHighPt   *float64 `yaml:"drift_high_pt"`

	CrossMatchMinAmount     *float64 `yaml:"cross_match_min_amount"`
	CrossMatchPrefixLen     *int     `yaml:"cross_match_prefix_len"`
	CrossMatchHighSeverityN *int     `yaml:"cross_match_high_severity_n"`

	LargeAmountFloor *float64 `yaml:"large_amount_floor"`

	ScrutinyCategories map[string]float64 `yaml:"scrutiny_categories"`

	TrailingYears *int `yaml:"trailing_years"`
}

func (f *rulesFile) apply(th *audit.Thresholds) {
	setF := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setI := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}

	setF(&th.CompositionMediumPct, f.CompositionMediumPct)
	setF(&th.CompositionHighPct, f.CompositionHighPct)
	setF(&th.GrowthMediumPct, f.GrowthMediumPct)
	setF(&th.GrowthHighPct, f.GrowthHighPct)
	setF(&th.ZScoreMedium, f.ZScoreMedium)
	setF(&th.ZScoreHigh, f.ZScoreHigh)
	setF(&th.DriftMediumPt, f.DriftMediumPt)
	setF(&th.DriftHighPt, f.DriftHighPt)
	setF(&th.CrossMatchMinAmount, f.CrossMatchMinAmount)
	setI(&th.CrossMatchPrefixLen, f.CrossMatchPrefixLen)
	setI(&th.CrossMatchHighSeverityN, f.CrossMatchHighSeverityN)
	setF(&th.LargeAmountFloor, f.LargeAmountFloor)
	setI(&th.TrailingYears, f.TrailingYears)

	if f.ScrutinyCategories != nil {
		th.ScrutinyCategories = f.ScrutinyCategories
	}
}
