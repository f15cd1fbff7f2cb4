package analysis

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlens/internal/core"
)

func TestDetectAnomaliesFlagsOutlier(t *testing.T) {
	// Five transactions of 10 and one of 25: with k=2 the mean excluding
	// the 25 entry is 10, so only the 25 entry is flagged.
	w := core.Window{Start: core.NewDate(2025, 1, 1), End: core.NewDate(2025, 6, 30)}
	var txs []core.Transaction
	for i := 0; i < 5; i++ {
		txs = append(txs, expense(t, fmt.Sprintf("n%d", i), "Dining", "lunch", "10", core.NewDate(2025, 1, i+1)))
	}
	txs = append(txs, expense(t, "big", "Dining", "dinner", "25", core.NewDate(2025, 1, 20)))

	anomalies := DetectAnomalies(txs, w, DefaultConfig())
	require.Len(t, anomalies, 1)
	a := anomalies[0]
	assert.Equal(t, "big", a.Transaction.ID)
	assert.Equal(t, "10", a.CategoryMean.String())
	assert.Equal(t, "2.5", a.Ratio.String())
	assert.Equal(t, "15", a.Difference.String())
}

func TestDetectAnomaliesSkipsSmallCategories(t *testing.T) {
	// Two 10s and one 100: only 2 other transactions for the 100 entry,
	// below the default minimum of 3, so nothing is scored.
	w := core.Window{Start: core.NewDate(2025, 1, 1), End: core.NewDate(2025, 6, 30)}
	txs := []core.Transaction{
		expense(t, "a", "Dining", "x", "10", core.NewDate(2025, 1, 1)),
		expense(t, "b", "Dining", "y", "10", core.NewDate(2025, 1, 2)),
		expense(t, "c", "Dining", "z", "100", core.NewDate(2025, 1, 3)),
	}
	assert.Empty(t, DetectAnomalies(txs, w, DefaultConfig()))
}

func TestDetectAnomaliesIgnoresOutsideWindow(t *testing.T) {
	w := core.Window{Start: core.NewDate(2025, 2, 1), End: core.NewDate(2025, 2, 28)}
	var txs []core.Transaction
	// History lives in January, outside the window: the February outlier
	// has no in-window peers and must not be flagged.
	for i := 0; i < 5; i++ {
		txs = append(txs, expense(t, fmt.Sprintf("n%d", i), "Dining", "lunch", "10", core.NewDate(2025, 1, i+1)))
	}
	txs = append(txs, expense(t, "big", "Dining", "dinner", "25", core.NewDate(2025, 2, 10)))

	assert.Empty(t, DetectAnomalies(txs, w, DefaultConfig()))
}

func TestDetectAnomaliesConfigurableMultiplier(t *testing.T) {
	w := core.Window{Start: core.NewDate(2025, 1, 1), End: core.NewDate(2025, 6, 30)}
	var txs []core.Transaction
	for i := 0; i < 4; i++ {
		txs = append(txs, expense(t, fmt.Sprintf("n%d", i), "Dining", "lunch", "10", core.NewDate(2025, 1, i+1)))
	}
	txs = append(txs, expense(t, "mid", "Dining", "dinner", "18", core.NewDate(2025, 1, 20)))

	// 18 is 1.8x the mean: invisible at k=2, flagged at k=1.5.
	assert.Empty(t, DetectAnomalies(txs, w, DefaultConfig()))

	cfg := DefaultConfig()
	cfg.OutlierMultiplier = amount(t, "1.5")
	flagged := DetectAnomalies(txs, w, cfg)
	require.Len(t, flagged, 1)
	assert.Equal(t, "mid", flagged[0].Transaction.ID)
}

func recurringSeries(t *testing.T, desc string, start core.Date, gaps ...int) []core.Transaction {
	t.Helper()
	txs := []core.Transaction{expense(t, desc+"-0", "Bills", desc, "50", start)}
	d := start
	for i, g := range gaps {
		d = core.Date{Time: d.AddDate(0, 0, g)}
		txs = append(txs, expense(t, fmt.Sprintf("%s-%d", desc, i+1), "Bills", desc, "50", d))
	}
	return txs
}

func TestDetectRecurringMonthly(t *testing.T) {
	w := core.Window{Start: core.NewDate(2025, 1, 1), End: core.NewDate(2025, 6, 30)}
	txs := recurringSeries(t, "rent", core.NewDate(2025, 1, 1), 30, 30, 31)

	patterns := DetectRecurring(txs, w, DefaultConfig())
	require.Len(t, patterns, 1)
	p := patterns[0]
	assert.Equal(t, PeriodMonthly, p.Period)
	assert.Equal(t, 4, p.Occurrences)
	assert.Equal(t, 1.0, p.MatchFraction)
	assert.Equal(t, "50", p.AvgAmount.String())
	assert.Len(t, p.TransactionIDs, 4)
}

func TestDetectRecurringWeekly(t *testing.T) {
	w := core.Window{Start: core.NewDate(2025, 1, 1), End: core.NewDate(2025, 6, 30)}
	txs := recurringSeries(t, "groceries", core.NewDate(2025, 1, 3), 7, 7, 7)

	patterns := DetectRecurring(txs, w, DefaultConfig())
	require.Len(t, patterns, 1)
	assert.Equal(t, PeriodWeekly, patterns[0].Period)
}

func TestDetectRecurringRejectsIrregularGaps(t *testing.T) {
	w := core.Window{Start: core.NewDate(2025, 1, 1), End: core.NewDate(2025, 6, 30)}
	txs := recurringSeries(t, "random", core.NewDate(2025, 1, 1), 3, 19, 2)

	assert.Empty(t, DetectRecurring(txs, w, DefaultConfig()))
}

func TestDetectRecurringRequiresMinimumGroupSize(t *testing.T) {
	w := core.Window{Start: core.NewDate(2025, 1, 1), End: core.NewDate(2025, 6, 30)}
	txs := recurringSeries(t, "rent", core.NewDate(2025, 1, 1), 30)

	assert.Empty(t, DetectRecurring(txs, w, DefaultConfig()))
}

func TestDetectRecurringNormalizesDescriptions(t *testing.T) {
	w := core.Window{Start: core.NewDate(2025, 1, 1), End: core.NewDate(2025, 6, 30)}
	txs := []core.Transaction{
		expense(t, "a", "Bills", "Netflix  Sub", "12", core.NewDate(2025, 1, 5)),
		expense(t, "b", "Bills", "netflix sub", "12", core.NewDate(2025, 2, 5)),
		expense(t, "c", "Bills", " NETFLIX SUB ", "12", core.NewDate(2025, 3, 5)),
	}

	patterns := DetectRecurring(txs, w, DefaultConfig())
	require.Len(t, patterns, 1)
	assert.Equal(t, "netflix sub", patterns[0].Description)
	assert.Equal(t, PeriodMonthly, patterns[0].Period)
}

func TestNormalizeDescription(t *testing.T) {
	cases := map[string]string{
		"Netflix  Sub": "netflix sub",
		" RENT ":       "rent",
		"a\tb":         "a b",
		"":             "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeDescription(in))
	}
}

func TestClassifyGaps(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name       string
		gaps       []int
		wantOK     bool
		wantPeriod Periodicity
	}{
		{"exact weekly", []int{7, 7, 7}, true, PeriodWeekly},
		{"weekly with drift", []int{6, 8, 7, 9}, true, PeriodWeekly},
		{"monthly band", []int{30, 30, 31}, true, PeriodMonthly},
		{"monthly with billing shift", []int{28, 33, 29}, true, PeriodMonthly},
		{"three of four weekly", []int{7, 7, 7, 20}, true, PeriodWeekly},
		{"half weekly is not enough", []int{7, 7, 20, 20}, false, ""},
		{"quarterly is other", []int{90, 91, 92}, true, PeriodOther},
		{"noise is discarded", []int{3, 19, 2}, false, ""},
		{"same-day duplicates", []int{0, 0, 0}, false, ""},
		{"no gaps", nil, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats, ok := classifyGaps(tt.gaps, len(tt.gaps)+1, cfg)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantPeriod, stats.period)
				assert.Greater(t, stats.confidence, 0.0)
				assert.LessOrEqual(t, stats.confidence, 1.0)
			}
		})
	}
}

func TestClassifyGapsTunableFraction(t *testing.T) {
	// Two of four gaps weekly: rejected at 75%, accepted at 50%.
	gaps := []int{7, 7, 20, 20}

	cfg := DefaultConfig()
	_, ok := classifyGaps(gaps, 5, cfg)
	assert.False(t, ok)

	cfg.MinMatchFraction = 0.5
	stats, ok := classifyGaps(gaps, 5, cfg)
	require.True(t, ok)
	assert.Equal(t, PeriodWeekly, stats.period)
	assert.Equal(t, 0.5, stats.matchFraction)
}
