// Package analysis implements the spending-pattern pipeline: aggregation,
// trend analysis and pattern detection over an immutable transaction
// snapshot. Every function is pure; each call returns a freshly built
// result and retains nothing.
package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidConfig is returned when tunable parameters are malformed.
// Configuration problems are rejected before any computation begins.
var ErrInvalidConfig = errors.New("invalid analysis configuration")

// Config holds every tunable the pipeline uses. Thresholds are never
// buried in computation; callers pass a validated Config into each
// entry point.
type Config struct {
	// PeriodMonths is the default analysis window length.
	PeriodMonths int

	// TopCategories is the number of categories reported in TrendSummary.
	TopCategories int

	// TrendThresholdPct is the minimum net first-to-last change (in
	// percent) required to call a trend increasing or decreasing.
	TrendThresholdPct decimal.Decimal

	// OutlierMultiplier flags an expense when its amount exceeds this
	// multiple of the category mean excluding the transaction itself.
	OutlierMultiplier decimal.Decimal

	// MinCategorySamples is the number of other transactions a category
	// needs before any of its members can be scored as unusual.
	MinCategorySamples int

	// MinOccurrences is the smallest group size considered for recurring
	// detection.
	MinOccurrences int

	// WeeklyGapDays and WeeklyToleranceDays define the weekly gap band
	// [WeeklyGapDays-WeeklyToleranceDays, WeeklyGapDays+WeeklyToleranceDays].
	WeeklyGapDays       int
	WeeklyToleranceDays int

	// MonthlyGapMinDays..MonthlyGapMaxDays, widened by
	// MonthlyToleranceDays on both sides, is the monthly gap band.
	MonthlyGapMinDays    int
	MonthlyGapMaxDays    int
	MonthlyToleranceDays int

	// MinMatchFraction is the share of consecutive gaps that must fall
	// inside a band to classify a group as weekly or monthly.
	MinMatchFraction float64

	// MaxGapCV is the largest coefficient of variation of gaps still
	// accepted as "other" periodic; noisier groups are discarded.
	MaxGapCV float64

	// 50/30/20 targets, overridable. Must sum to exactly 100.
	NeedsTargetPct   decimal.Decimal
	WantsTargetPct   decimal.Decimal
	SavingsTargetPct decimal.Decimal
}

// DefaultConfig returns the standard tunables: 2x outlier multiplier,
// 75% gap match fraction, 5% trend threshold and 50/30/20 targets.
func DefaultConfig() Config {
	return Config{
		PeriodMonths:         6,
		TopCategories:        5,
		TrendThresholdPct:    decimal.NewFromInt(5),
		OutlierMultiplier:    decimal.NewFromInt(2),
		MinCategorySamples:   3,
		MinOccurrences:       3,
		WeeklyGapDays:        7,
		WeeklyToleranceDays:  2,
		MonthlyGapMinDays:    28,
		MonthlyGapMaxDays:    31,
		MonthlyToleranceDays: 2,
		MinMatchFraction:     0.75,
		MaxGapCV:             0.4,
		NeedsTargetPct:       decimal.NewFromInt(50),
		WantsTargetPct:       decimal.NewFromInt(30),
		SavingsTargetPct:     decimal.NewFromInt(20),
	}
}

// Validate checks every tunable and reports all problems at once.
func (c Config) Validate() error {
	var problems []string

	if c.PeriodMonths < 1 {
		problems = append(problems, fmt.Sprintf("period months %d: must be at least 1", c.PeriodMonths))
	}
	if c.TopCategories < 1 {
		problems = append(problems, fmt.Sprintf("top categories %d: must be at least 1", c.TopCategories))
	}
	if c.TrendThresholdPct.Sign() < 0 {
		problems = append(problems, fmt.Sprintf("trend threshold %s%%: must not be negative", c.TrendThresholdPct))
	}
	if c.OutlierMultiplier.Sign() <= 0 {
		problems = append(problems, fmt.Sprintf("outlier multiplier %s: must be positive", c.OutlierMultiplier))
	}
	if c.MinCategorySamples < 1 {
		problems = append(problems, fmt.Sprintf("min category samples %d: must be at least 1", c.MinCategorySamples))
	}
	if c.MinOccurrences < 2 {
		problems = append(problems, fmt.Sprintf("min occurrences %d: must be at least 2", c.MinOccurrences))
	}
	if c.WeeklyGapDays < 1 || c.WeeklyToleranceDays < 0 {
		problems = append(problems, "weekly gap band is malformed")
	}
	if c.MonthlyGapMinDays < 1 || c.MonthlyGapMaxDays < c.MonthlyGapMinDays || c.MonthlyToleranceDays < 0 {
		problems = append(problems, "monthly gap band is malformed")
	}
	if c.MinMatchFraction <= 0 || c.MinMatchFraction > 1 {
		problems = append(problems, fmt.Sprintf("min match fraction %g: must be in (0, 1]", c.MinMatchFraction))
	}
	if c.MaxGapCV <= 0 {
		problems = append(problems, fmt.Sprintf("max gap CV %g: must be positive", c.MaxGapCV))
	}
	switch {
	case c.NeedsTargetPct.Sign() < 0 || c.WantsTargetPct.Sign() < 0 || c.SavingsTargetPct.Sign() < 0:
		problems = append(problems, "budget targets must not be negative")
	case !c.NeedsTargetPct.Add(c.WantsTargetPct).Add(c.SavingsTargetPct).Equal(decimal.NewFromInt(100)):
		problems = append(problems, fmt.Sprintf("budget targets %s/%s/%s: must sum to 100",
			c.NeedsTargetPct, c.WantsTargetPct, c.SavingsTargetPct))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w:\n- %s", ErrInvalidConfig, strings.Join(problems, "\n- "))
	}
	return nil
}
