package analysis

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative multiplier", func(c *Config) { c.OutlierMultiplier = decimal.NewFromInt(-2) }},
		{"zero multiplier", func(c *Config) { c.OutlierMultiplier = decimal.Zero }},
		{"zero period", func(c *Config) { c.PeriodMonths = 0 }},
		{"zero samples", func(c *Config) { c.MinCategorySamples = 0 }},
		{"occurrences too small", func(c *Config) { c.MinOccurrences = 1 }},
		{"fraction above one", func(c *Config) { c.MinMatchFraction = 1.5 }},
		{"fraction zero", func(c *Config) { c.MinMatchFraction = 0 }},
		{"zero gap CV", func(c *Config) { c.MaxGapCV = 0 }},
		{"monthly band reversed", func(c *Config) { c.MonthlyGapMinDays = 31; c.MonthlyGapMaxDays = 28 }},
		{"targets not summing to 100", func(c *Config) { c.SavingsTargetPct = decimal.NewFromInt(25) }},
		{"negative target", func(c *Config) { c.WantsTargetPct = decimal.NewFromInt(-30) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestConfigValidateReportsEveryProblem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutlierMultiplier = decimal.Zero
	cfg.PeriodMonths = -1

	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "outlier multiplier")
	assert.Contains(t, err.Error(), "period months")
}

func TestCustomTargetsSummingTo100(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NeedsTargetPct = decimal.NewFromInt(60)
	cfg.WantsTargetPct = decimal.NewFromInt(20)
	cfg.SavingsTargetPct = decimal.NewFromInt(20)
	assert.NoError(t, cfg.Validate())
}
