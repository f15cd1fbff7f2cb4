package analysis

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"spendlens/internal/core"
)

type (
	// MonthTotals carries income and expense sums for one calendar month.
	MonthTotals struct {
		Year    int
		Month   time.Month
		Income  decimal.Decimal
		Expense decimal.Decimal
	}

	// CategoryTotal carries the expense sum and transaction count for one
	// category.
	CategoryTotal struct {
		Name  string
		Total decimal.Decimal
		Count int
	}

	// Aggregates is the intermediate result every downstream stage
	// consumes. Months is chronological and covers every month the
	// window touches, including months with no activity.
	Aggregates struct {
		Window         core.Window
		Months         []MonthTotals
		Categories     []CategoryTotal // expenses only, name ascending
		Weekdays       [7]decimal.Decimal
		CalendarMonths [13]decimal.Decimal // indexed 1-12
		TotalIncome    decimal.Decimal
		TotalExpense   decimal.Decimal
		ExpenseCount   int
	}
)

// Aggregate groups transactions by month, category and weekday over the
// window. Transactions outside the window are excluded. An empty input
// yields all-zero aggregates, not an error.
func Aggregate(txs []core.Transaction, w core.Window) (*Aggregates, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	agg := &Aggregates{
		Window: w,
		Months: make([]MonthTotals, w.Months()),
	}
	for i := range agg.Months {
		t := time.Date(w.Start.Year(), time.Month(w.Start.Month()+i), 1, 0, 0, 0, 0, time.UTC)
		agg.Months[i].Year = t.Year()
		agg.Months[i].Month = t.Month()
	}

	byCategory := make(map[string]*CategoryTotal)
	for _, tx := range txs {
		if !w.Contains(tx.Date) {
			continue
		}
		idx := (tx.Date.Year()-w.Start.Year())*12 + tx.Date.Month() - w.Start.Month()

		switch tx.Type {
		case core.Income:
			agg.Months[idx].Income = agg.Months[idx].Income.Add(tx.Amount)
			agg.TotalIncome = agg.TotalIncome.Add(tx.Amount)
		case core.Expense:
			agg.Months[idx].Expense = agg.Months[idx].Expense.Add(tx.Amount)
			agg.TotalExpense = agg.TotalExpense.Add(tx.Amount)
			agg.ExpenseCount++

			ct, ok := byCategory[tx.Category]
			if !ok {
				ct = &CategoryTotal{Name: tx.Category}
				byCategory[tx.Category] = ct
			}
			ct.Total = ct.Total.Add(tx.Amount)
			ct.Count++

			agg.Weekdays[tx.Date.Weekday()] = agg.Weekdays[tx.Date.Weekday()].Add(tx.Amount)
			agg.CalendarMonths[tx.Date.Month()] = agg.CalendarMonths[tx.Date.Month()].Add(tx.Amount)
		}
	}

	agg.Categories = make([]CategoryTotal, 0, len(byCategory))
	for _, ct := range byCategory {
		agg.Categories = append(agg.Categories, *ct)
	}
	sort.Slice(agg.Categories, func(i, j int) bool {
		return agg.Categories[i].Name < agg.Categories[j].Name
	})

	return agg, nil
}

// CategoryTotalFor returns the aggregated expense total for one category,
// zero when the category saw no activity in the window.
func (a *Aggregates) CategoryTotalFor(name string) CategoryTotal {
	i := sort.Search(len(a.Categories), func(i int) bool {
		return a.Categories[i].Name >= name
	})
	if i < len(a.Categories) && a.Categories[i].Name == name {
		return a.Categories[i]
	}
	return CategoryTotal{Name: name}
}
