package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlens/internal/analysis"
	"spendlens/internal/core"
)

type stubSource struct {
	txs    []core.Transaction
	cats   []core.Category
	budget *core.Budget
	err    error

	listCalls int
}

func (s *stubSource) ListTransactions(_ context.Context, start, end core.Date) ([]core.Transaction, error) {
	s.listCalls++
	if s.err != nil {
		return nil, s.err
	}
	w := core.Window{Start: start, End: end}
	var out []core.Transaction
	for _, tx := range s.txs {
		if w.Contains(tx.Date) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *stubSource) ListCategories(context.Context) ([]core.Category, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.cats, nil
}

func (s *stubSource) ActiveBudget(context.Context, core.Date) (*core.Budget, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.budget, nil
}

func amount(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

// halfYear builds six months of household activity, Jan through Jun
// 2025: salary 3000, rent 1200, dining 400 across two meals, a 300
// savings transfer, plus one 900 dining blowout in April.
func halfYear(t *testing.T) *stubSource {
	t.Helper()
	var txs []core.Transaction
	add := func(id, category, description string, month, day int, amt string, typ core.TransactionType) {
		txs = append(txs, core.Transaction{
			ID:          id,
			Amount:      amount(t, amt),
			Category:    category,
			Description: description,
			Date:        core.NewDate(2025, month, day),
			Type:        typ,
		})
	}
	for m := 1; m <= 6; m++ {
		add(fmt.Sprintf("sal%d", m), "Salary", "salary", m, 25, "3000", core.Income)
		add(fmt.Sprintf("rent%d", m), "Rent", "rent payment", m, 1, "1200", core.Expense)
		add(fmt.Sprintf("din%da", m), "Dining", fmt.Sprintf("dinner out %d", m), m, 8, "200", core.Expense)
		add(fmt.Sprintf("din%db", m), "Dining", fmt.Sprintf("takeaway %d", m), m, 22, "200", core.Expense)
		add(fmt.Sprintf("sav%d", m), "Savings", "monthly transfer", m, 15, "300", core.Expense)
	}
	add("blowout", "Dining", "celebration dinner", 4, 12, "900", core.Expense)

	return &stubSource{
		txs: txs,
		cats: []core.Category{
			{Name: "Salary", Type: core.Income},
			{Name: "Rent", Type: core.Expense, Classification: core.Need},
			{Name: "Dining", Type: core.Expense, Classification: core.Want},
			{Name: "Savings", Type: core.Expense, Classification: core.Saving},
		},
	}
}

func TestBuildReportEndToEnd(t *testing.T) {
	src := halfYear(t)
	svc, err := NewReportService(src, analysis.DefaultConfig())
	require.NoError(t, err)

	w := core.Window{Start: core.NewDate(2025, 1, 1), End: core.NewDate(2025, 6, 30)}
	report, err := svc.BuildReport(context.Background(), w)
	require.NoError(t, err)

	// Trends: 5 quiet months at 1900 plus April at 2800.
	assert.False(t, report.Trends.InsufficientData)
	assert.Equal(t, 6, report.Trends.MonthsInWindow)
	assert.True(t, report.Trends.TotalIncome.Equal(amount(t, "18000")))
	assert.True(t, report.Trends.TotalExpense.Equal(amount(t, "12300")))
	assert.True(t, report.Trends.AvgMonthlyExpense.Equal(amount(t, "2050")),
		"avg %s", report.Trends.AvgMonthlyExpense)
	assert.Equal(t, analysis.TrendFluctuating, report.Trends.Trend)

	// Patterns: exactly the April blowout is anomalous.
	require.Len(t, report.Anomalies, 1)
	assert.Equal(t, "blowout", report.Anomalies[0].Transaction.ID)
	assert.True(t, report.Anomalies[0].CategoryMean.Equal(amount(t, "200")))

	// Rent and the savings transfer recur monthly; dining meals have
	// distinct descriptions and must not group.
	require.Len(t, report.Recurring, 2)
	assert.Equal(t, "Rent", report.Recurring[0].Category)
	assert.Equal(t, analysis.PeriodMonthly, report.Recurring[0].Period)
	assert.Equal(t, 6, report.Recurring[0].Occurrences)
	assert.Equal(t, "Savings", report.Recurring[1].Category)
	assert.Equal(t, analysis.PeriodMonthly, report.Recurring[1].Period)

	// Advisor: needs 40%, wants 18.33%, savings 10% -> -20 -> 80.
	health := report.Assessment.Health
	assert.Equal(t, 80, health.Score)
	assert.Equal(t, "very good", health.Status)
	assert.True(t, health.NeedsPct.Equal(amount(t, "40")))
	assert.True(t, health.SavingsPct.Equal(amount(t, "10")))

	require.NotEmpty(t, report.Assessment.Recommendations)
	top := report.Assessment.Recommendations[0]
	assert.Equal(t, "Increase your savings rate", top.Title)
	require.NotNil(t, top.EstimatedImpact)
	assert.True(t, top.EstimatedImpact.Equal(amount(t, "1800")), "impact %s", top.EstimatedImpact)

	sum := decimal.Zero
	for _, row := range report.Assessment.Allocation {
		if row.Classification != "" {
			sum = sum.Add(row.Percent)
		}
	}
	assert.True(t, sum.Equal(amount(t, "100")), "allocation sums to %s", sum)
}

func TestBuildReportCachesPerWindow(t *testing.T) {
	src := halfYear(t)
	svc, err := NewReportService(src, analysis.DefaultConfig())
	require.NoError(t, err)

	w := core.Window{Start: core.NewDate(2025, 1, 1), End: core.NewDate(2025, 6, 30)}
	first, err := svc.BuildReport(context.Background(), w)
	require.NoError(t, err)
	second, err := svc.BuildReport(context.Background(), w)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, src.listCalls)

	svc.InvalidateCache()
	_, err = svc.BuildReport(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, 2, src.listCalls)
}

func TestBuildReportRejectsReversedWindow(t *testing.T) {
	svc, err := NewReportService(&stubSource{}, analysis.DefaultConfig())
	require.NoError(t, err)

	w := core.Window{Start: core.NewDate(2025, 6, 30), End: core.NewDate(2025, 1, 1)}
	_, err = svc.BuildReport(context.Background(), w)
	assert.ErrorIs(t, err, core.ErrInvalidRange)
}

func TestBuildReportPropagatesSourceError(t *testing.T) {
	src := &stubSource{err: errors.New("database is locked")}
	svc, err := NewReportService(src, analysis.DefaultConfig())
	require.NoError(t, err)

	w := core.Window{Start: core.NewDate(2025, 1, 1), End: core.NewDate(2025, 6, 30)}
	_, err = svc.BuildReport(context.Background(), w)
	require.Error(t, err)
	assert.ErrorContains(t, err, "database is locked")
}

func TestNewReportServiceValidatesConfig(t *testing.T) {
	cfg := analysis.DefaultConfig()
	cfg.PeriodMonths = 0

	_, err := NewReportService(&stubSource{}, cfg)
	assert.ErrorIs(t, err, analysis.ErrInvalidConfig)
}

func TestWindowEndingAt(t *testing.T) {
	w, err := WindowEndingAt(core.NewDate(2025, 6, 30), 6)
	require.NoError(t, err)
	assert.Equal(t, core.NewDate(2025, 1, 1), w.Start)
	assert.Equal(t, core.NewDate(2025, 6, 30), w.End)

	w, err = WindowEndingAt(core.NewDate(2025, 6, 30), 1)
	require.NoError(t, err)
	assert.Equal(t, core.NewDate(2025, 6, 1), w.Start)

	_, err = WindowEndingAt(core.NewDate(2025, 6, 30), 0)
	assert.ErrorIs(t, err, core.ErrInvalidRange)
}

func TestWindowEndingAtMonthEnd(t *testing.T) {
	// Stepping over shorter months must not shrink the window: naive
	// AddDate from Mar 31 lands in Mar again (Feb 31 normalizes to Mar 3).
	tests := []struct {
		name      string
		end       core.Date
		months    int
		wantStart core.Date
	}{
		{"march 31 over february", core.NewDate(2025, 3, 31), 2, core.NewDate(2025, 2, 1)},
		{"may 31 over short months", core.NewDate(2025, 5, 31), 4, core.NewDate(2025, 2, 1)},
		{"january 31 across year boundary", core.NewDate(2025, 1, 31), 3, core.NewDate(2024, 11, 1)},
		{"leap february 29", core.NewDate(2024, 2, 29), 2, core.NewDate(2024, 1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := WindowEndingAt(tt.end, tt.months)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, w.Start)
			assert.Equal(t, tt.end, w.End)
			assert.Equal(t, tt.months, w.Months())
		})
	}
}
