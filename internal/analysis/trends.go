package analysis

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TrendIncreasing  TrendLabel = "increasing"
	TrendDecreasing  TrendLabel = "decreasing"
	TrendFluctuating TrendLabel = "fluctuating"
)

type (
	TrendLabel string

	// TrendSummary is the trend stage output. Pointer fields are nil when
	// the underlying value is undefined; "undefined" is reported
	// explicitly instead of zero so callers never reinterpret numbers.
	TrendSummary struct {
		TotalExpense      decimal.Decimal
		TotalIncome       decimal.Decimal
		AvgMonthlyExpense decimal.Decimal

		// MonthsInWindow is the averaging denominator. Months inside the
		// window with no activity count toward it; this policy is fixed
		// here and applied everywhere.
		MonthsInWindow int

		// MonthOverMonthPct is nil when the previous month total is zero.
		MonthOverMonthPct *decimal.Decimal

		Trend         TrendLabel
		TopCategories []CategoryTotal
		PeakWeekday   *time.Weekday
		PeakMonth     *time.Month

		InsufficientData bool
	}
)

// AnalyzeTrends computes period totals, the month-over-month change, the
// trend label, top categories by spend and the peak weekday/month from
// aggregated data. A window with no expense activity yields a summary
// flagged InsufficientData, never an error.
//
// Trend rule, applied once: a strict majority of computable
// month-over-month deltas must be positive AND the net first-to-last
// change must exceed cfg.TrendThresholdPct for "increasing"; the
// symmetric condition gives "decreasing"; everything else is
// "fluctuating". A delta is computable only when the previous month
// total is positive.
func AnalyzeTrends(agg *Aggregates, cfg Config) TrendSummary {
	summary := TrendSummary{
		TotalExpense:   agg.TotalExpense,
		TotalIncome:    agg.TotalIncome,
		MonthsInWindow: len(agg.Months),
	}

	if agg.ExpenseCount == 0 {
		summary.InsufficientData = true
		return summary
	}

	summary.AvgMonthlyExpense = agg.TotalExpense.Div(decimal.NewFromInt(int64(len(agg.Months))))
	summary.MonthOverMonthPct = monthOverMonth(agg.Months)
	summary.Trend = classifyTrend(agg.Months, cfg.TrendThresholdPct)
	summary.TopCategories = topCategories(agg.Categories, cfg.TopCategories)

	if wd := peakIndex(agg.Weekdays[:], 0); wd >= 0 {
		weekday := time.Weekday(wd)
		summary.PeakWeekday = &weekday
	}
	if m := peakIndex(agg.CalendarMonths[:], 1); m >= 1 {
		month := time.Month(m)
		summary.PeakMonth = &month
	}

	return summary
}

// monthOverMonth returns the percent change between the two latest
// months, or nil when the previous month total is zero.
func monthOverMonth(months []MonthTotals) *decimal.Decimal {
	if len(months) < 2 {
		return nil
	}
	latest := months[len(months)-1].Expense
	previous := months[len(months)-2].Expense
	if previous.Sign() <= 0 {
		return nil
	}
	pct := latest.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100))
	return &pct
}

func classifyTrend(months []MonthTotals, threshold decimal.Decimal) TrendLabel {
	var positive, negative, computable int
	for i := 1; i < len(months); i++ {
		prev := months[i-1].Expense
		if prev.Sign() <= 0 {
			continue
		}
		computable++
		switch months[i].Expense.Cmp(prev) {
		case 1:
			positive++
		case -1:
			negative++
		}
	}
	if computable == 0 {
		return TrendFluctuating
	}

	first := months[0].Expense
	last := months[len(months)-1].Expense
	if first.Sign() <= 0 {
		// Net change from a zero first month is undefined; without it the
		// threshold condition cannot hold.
		return TrendFluctuating
	}
	netPct := last.Sub(first).Div(first).Mul(decimal.NewFromInt(100))

	switch {
	case positive*2 > computable && netPct.GreaterThan(threshold):
		return TrendIncreasing
	case negative*2 > computable && netPct.LessThan(threshold.Neg()):
		return TrendDecreasing
	default:
		return TrendFluctuating
	}
}

// topCategories sorts by total descending, ties broken by name ascending,
// and keeps the first n.
func topCategories(categories []CategoryTotal, n int) []CategoryTotal {
	sorted := make([]CategoryTotal, len(categories))
	copy(sorted, categories)
	sort.Slice(sorted, func(i, j int) bool {
		if cmp := sorted[i].Total.Cmp(sorted[j].Total); cmp != 0 {
			return cmp > 0
		}
		return sorted[i].Name < sorted[j].Name
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// peakIndex returns the index with the highest total, ties broken by the
// earliest index, or -1 when every slot is zero.
func peakIndex(totals []decimal.Decimal, from int) int {
	best := -1
	for i := from; i < len(totals); i++ {
		if totals[i].Sign() <= 0 {
			continue
		}
		if best < 0 || totals[i].GreaterThan(totals[best]) {
			best = i
		}
	}
	return best
}
