package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlens/internal/core"
)

func TestAnalyzeTrendsInsufficientData(t *testing.T) {
	w := core.Window{Start: core.NewDate(2025, 1, 1), End: core.NewDate(2025, 6, 30)}
	agg, err := Aggregate(nil, w)
	require.NoError(t, err)

	summary := AnalyzeTrends(agg, DefaultConfig())
	assert.True(t, summary.InsufficientData)
	assert.True(t, summary.TotalExpense.IsZero())
	assert.Nil(t, summary.MonthOverMonthPct)
	assert.Nil(t, summary.PeakWeekday)
	assert.Nil(t, summary.PeakMonth)
}

func TestAnalyzeTrendsAverageCountsQuietMonths(t *testing.T) {
	// 300 spent over a 3-month window with activity in one month only:
	// quiet months count toward the denominator, so the average is 100.
	w := core.Window{Start: core.NewDate(2025, 1, 1), End: core.NewDate(2025, 3, 31)}
	agg, err := Aggregate([]core.Transaction{
		expense(t, "t1", "Dining", "pizza", "300", core.NewDate(2025, 2, 10)),
	}, w)
	require.NoError(t, err)

	summary := AnalyzeTrends(agg, DefaultConfig())
	assert.Equal(t, 3, summary.MonthsInWindow)
	assert.Equal(t, "100", summary.AvgMonthlyExpense.String())
}

func TestAnalyzeTrendsMonthOverMonth(t *testing.T) {
	w := core.Window{Start: core.NewDate(2025, 1, 1), End: core.NewDate(2025, 2, 28)}
	agg, err := Aggregate([]core.Transaction{
		expense(t, "t1", "Dining", "a", "200", core.NewDate(2025, 1, 10)),
		expense(t, "t2", "Dining", "b", "250", core.NewDate(2025, 2, 10)),
	}, w)
	require.NoError(t, err)

	summary := AnalyzeTrends(agg, DefaultConfig())
	require.NotNil(t, summary.MonthOverMonthPct)
	assert.Equal(t, "25", summary.MonthOverMonthPct.String())
}

func TestAnalyzeTrendsMonthOverMonthUndefined(t *testing.T) {
	// Previous month has no spending: the change is undefined, not a number.
	w := core.Window{Start: core.NewDate(2025, 1, 1), End: core.NewDate(2025, 2, 28)}
	agg, err := Aggregate([]core.Transaction{
		expense(t, "t1", "Dining", "a", "200", core.NewDate(2025, 2, 10)),
	}, w)
	require.NoError(t, err)

	summary := AnalyzeTrends(agg, DefaultConfig())
	assert.False(t, summary.InsufficientData)
	assert.Nil(t, summary.MonthOverMonthPct)
}

func TestClassifyTrend(t *testing.T) {
	w := core.Window{Start: core.NewDate(2025, 1, 1), End: core.NewDate(2025, 4, 30)}

	tests := []struct {
		name    string
		amounts []string // one expense per month, January onward
		want    TrendLabel
	}{
		{
			name:    "steadily rising",
			amounts: []string{"100", "120", "140", "160"},
			want:    TrendIncreasing,
		},
		{
			name:    "steadily falling",
			amounts: []string{"160", "140", "120", "100"},
			want:    TrendDecreasing,
		},
		{
			name:    "no majority",
			amounts: []string{"100", "100", "120", "90"},
			want:    TrendFluctuating,
		},
		{
			name: "rising deltas but net change under threshold",
			// Majority of deltas positive, yet first-to-last is +3%, below 5%.
			amounts: []string{"100", "99", "101", "103"},
			want:    TrendFluctuating,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var txs []core.Transaction
			for i, amt := range tt.amounts {
				txs = append(txs, expense(t, "t"+amt, "Misc", "m", amt, core.NewDate(2025, i+1, 15)))
			}
			agg, err := Aggregate(txs, w)
			require.NoError(t, err)

			summary := AnalyzeTrends(agg, DefaultConfig())
			assert.Equal(t, tt.want, summary.Trend)
		})
	}
}

func TestTopCategoriesDeterministicOrder(t *testing.T) {
	w := core.Window{Start: core.NewDate(2025, 1, 1), End: core.NewDate(2025, 1, 31)}
	agg, err := Aggregate([]core.Transaction{
		expense(t, "t1", "Beta", "b", "50", core.NewDate(2025, 1, 2)),
		expense(t, "t2", "Alpha", "a", "50", core.NewDate(2025, 1, 3)),
		expense(t, "t3", "Gamma", "g", "80", core.NewDate(2025, 1, 4)),
	}, w)
	require.NoError(t, err)

	summary := AnalyzeTrends(agg, DefaultConfig())
	require.Len(t, summary.TopCategories, 3)
	assert.Equal(t, "Gamma", summary.TopCategories[0].Name)
	// Equal totals: name ascending breaks the tie.
	assert.Equal(t, "Alpha", summary.TopCategories[1].Name)
	assert.Equal(t, "Beta", summary.TopCategories[2].Name)
}

func TestTopCategoriesLimit(t *testing.T) {
	w := core.Window{Start: core.NewDate(2025, 1, 1), End: core.NewDate(2025, 1, 31)}
	var txs []core.Transaction
	names := []string{"A", "B", "C", "D", "E", "F", "G"}
	for i, n := range names {
		txs = append(txs, expense(t, n, n, "x", "10", core.NewDate(2025, 1, i+1)))
	}
	agg, err := Aggregate(txs, w)
	require.NoError(t, err)

	summary := AnalyzeTrends(agg, DefaultConfig())
	assert.Len(t, summary.TopCategories, DefaultConfig().TopCategories)
}

func TestPeakWeekdayAndMonth(t *testing.T) {
	w := core.Window{Start: core.NewDate(2025, 1, 1), End: core.NewDate(2025, 2, 28)}
	agg, err := Aggregate([]core.Transaction{
		// 2025-01-06 is a Monday, 2025-01-11 a Saturday.
		expense(t, "t1", "Dining", "a", "30", core.NewDate(2025, 1, 6)),
		expense(t, "t2", "Dining", "b", "90", core.NewDate(2025, 1, 11)),
		expense(t, "t3", "Dining", "c", "10", core.NewDate(2025, 2, 3)),
	}, w)
	require.NoError(t, err)

	summary := AnalyzeTrends(agg, DefaultConfig())
	require.NotNil(t, summary.PeakWeekday)
	assert.Equal(t, time.Saturday, *summary.PeakWeekday)
	require.NotNil(t, summary.PeakMonth)
	assert.Equal(t, time.January, *summary.PeakMonth)
}

func TestAnalyzeTrendsDeterminism(t *testing.T) {
	w := core.Window{Start: core.NewDate(2025, 1, 1), End: core.NewDate(2025, 3, 31)}
	txs := []core.Transaction{
		expense(t, "t1", "Rent", "rent", "1200", core.NewDate(2025, 1, 1)),
		expense(t, "t2", "Dining", "pizza", "42.50", core.NewDate(2025, 2, 14)),
		income(t, "i1", "Salary", "3000", core.NewDate(2025, 1, 25)),
	}

	first, err := Aggregate(txs, w)
	require.NoError(t, err)
	second, err := Aggregate(txs, w)
	require.NoError(t, err)

	assert.Equal(t, AnalyzeTrends(first, DefaultConfig()), AnalyzeTrends(second, DefaultConfig()))
}
