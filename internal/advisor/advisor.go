// Package advisor turns trend and pattern analysis into a financial-health
// assessment, prioritized budget recommendations and a suggested category
// allocation against the 50/30/20 targets.
package advisor

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"spendlens/internal/analysis"
	"spendlens/internal/core"
)

const (
	StatusGood RatioStatus = "good"
	StatusHigh RatioStatus = "high"
	StatusLow  RatioStatus = "low"
)

type (
	RatioStatus string

	// Input is the advisor's snapshot: upstream pipeline results plus the
	// caller-supplied reference data. Everything is read-only.
	Input struct {
		Trends      analysis.TrendSummary
		Anomalies   []analysis.Anomaly
		Recurring   []analysis.RecurringPattern
		Aggregates  *analysis.Aggregates
		Categories  []core.Category
		TotalIncome decimal.Decimal
		Budget      *core.Budget
	}

	// HealthSummary compares need/want/saving spending ratios against
	// their targets and condenses them into a 0-100 score.
	HealthSummary struct {
		Score  int
		Status string

		NeedsPct   decimal.Decimal
		WantsPct   decimal.Decimal
		SavingsPct decimal.Decimal

		NeedsTarget   decimal.Decimal
		WantsTarget   decimal.Decimal
		SavingsTarget decimal.Decimal

		NeedsStatus   RatioStatus
		WantsStatus   RatioStatus
		SavingsStatus RatioStatus
	}

	// Recommendation is a single prioritized action. Priority 1 is the
	// highest. EstimatedImpact and SuggestedLimit are nil when no
	// meaningful number exists.
	Recommendation struct {
		Title           string
		Description     string
		Priority        int
		Category        string
		EstimatedImpact *decimal.Decimal
		SuggestedLimit  *decimal.Decimal
	}

	// CategoryAllocation is one row of the suggested allocation. Percent
	// is a share of total income. Rows with a classification sum to
	// exactly 100; unclassified rows carry their historical share and sit
	// outside that sum.
	CategoryAllocation struct {
		Category       string
		Classification core.Classification
		Percent        decimal.Decimal
	}

	// Assessment is the advisor's complete result.
	Assessment struct {
		InsufficientData bool
		Health           HealthSummary
		Recommendations  []Recommendation
		Allocation       []CategoryAllocation
	}

	// scored pairs a recommendation with its ordering weight before
	// priorities are assigned.
	scored struct {
		rec      Recommendation
		severity float64
	}
)

var hundred = decimal.NewFromInt(100)

// Advise computes the financial-health assessment. Zero or negative
// income makes every ratio undefined, so the assessment comes back
// flagged InsufficientData with no allocation, never a division error.
func Advise(in Input, cfg analysis.Config) Assessment {
	if in.TotalIncome.Sign() <= 0 {
		return Assessment{InsufficientData: true}
	}

	classOf := make(map[string]core.Classification)
	for _, c := range in.Categories {
		if c.Type == core.Expense && c.Classification != "" {
			classOf[c.Name] = c.Classification
		}
	}

	classTotals := map[core.Classification]decimal.Decimal{}
	for _, ct := range in.Aggregates.Categories {
		if cls, ok := classOf[ct.Name]; ok {
			classTotals[cls] = classTotals[cls].Add(ct.Total)
		}
	}

	health := scoreHealth(
		core.Percent(classTotals[core.Need], in.TotalIncome),
		core.Percent(classTotals[core.Want], in.TotalIncome),
		core.Percent(classTotals[core.Saving], in.TotalIncome),
		cfg,
	)

	return Assessment{
		Health:          health,
		Recommendations: recommend(in, cfg, health, classOf, classTotals),
		Allocation:      allocate(in, cfg, classOf, classTotals),
	}
}

func scoreHealth(needsPct, wantsPct, savingsPct decimal.Decimal, cfg analysis.Config) HealthSummary {
	h := HealthSummary{
		NeedsPct:      needsPct,
		WantsPct:      wantsPct,
		SavingsPct:    savingsPct,
		NeedsTarget:   cfg.NeedsTargetPct,
		WantsTarget:   cfg.WantsTargetPct,
		SavingsTarget: cfg.SavingsTargetPct,
		NeedsStatus:   StatusGood,
		WantsStatus:   StatusGood,
		SavingsStatus: StatusGood,
	}

	// Scores are presentation-grade, not money: float math is fine here.
	score := 100.0
	if over := needsPct.Sub(cfg.NeedsTargetPct); over.Sign() > 0 {
		h.NeedsStatus = StatusHigh
		score -= math.Min(30, over.InexactFloat64()*1.5)
	}
	if over := wantsPct.Sub(cfg.WantsTargetPct); over.Sign() > 0 {
		h.WantsStatus = StatusHigh
		score -= math.Min(30, over.InexactFloat64()*2)
	}
	if under := cfg.SavingsTargetPct.Sub(savingsPct); under.Sign() > 0 {
		h.SavingsStatus = StatusLow
		score -= math.Min(40, under.InexactFloat64()*2)
	}

	h.Score = int(math.Max(0, math.Min(100, score)))
	h.Status = healthStatus(h.Score)
	return h
}

func healthStatus(score int) string {
	switch {
	case score >= 90:
		return "excellent"
	case score >= 80:
		return "very good"
	case score >= 70:
		return "good"
	case score >= 60:
		return "fair"
	case score >= 50:
		return "needs improvement"
	case score >= 40:
		return "concerning"
	case score >= 30:
		return "poor"
	default:
		return "critical"
	}
}

func recommend(
	in Input,
	cfg analysis.Config,
	health HealthSummary,
	classOf map[string]core.Classification,
	classTotals map[core.Classification]decimal.Decimal,
) []Recommendation {
	var items []scored

	// Protecting savings is policy, not arithmetic: a saving ratio below
	// target always outranks everything else.
	if health.SavingsStatus == StatusLow {
		impact := in.TotalIncome.Mul(cfg.SavingsTargetPct.Sub(health.SavingsPct)).Div(hundred).Round(2)
		items = append(items, scored{
			severity: math.Inf(1),
			rec: Recommendation{
				Title: "Increase your savings rate",
				Description: fmt.Sprintf("Savings are %s%% of income against a %s%% target.",
					health.SavingsPct.Round(1), cfg.SavingsTargetPct),
				EstimatedImpact: &impact,
			},
		})
	}

	if in.Aggregates.TotalExpense.GreaterThan(in.TotalIncome) {
		deficit := in.Aggregates.TotalExpense.Sub(in.TotalIncome).Round(2)
		items = append(items, scored{
			severity: core.Percent(deficit, in.TotalIncome).InexactFloat64() + 50,
			rec: Recommendation{
				Title:           "Balance your budget",
				Description:     "Spending exceeds income for this period.",
				EstimatedImpact: &deficit,
			},
		})
	}

	if health.NeedsStatus == StatusHigh {
		over := health.NeedsPct.Sub(cfg.NeedsTargetPct)
		items = append(items, scored{
			severity: over.InexactFloat64() * 1.5,
			rec: Recommendation{
				Title: "Review essential spending",
				Description: fmt.Sprintf("Needs take %s%% of income against a %s%% target.",
					health.NeedsPct.Round(1), cfg.NeedsTargetPct),
			},
		})
	}

	if health.WantsStatus == StatusHigh {
		over := health.WantsPct.Sub(cfg.WantsTargetPct)
		items = append(items, scored{
			severity: over.InexactFloat64() * 2,
			rec: Recommendation{
				Title: "Reduce discretionary spending",
				Description: fmt.Sprintf("Wants take %s%% of income against a %s%% target.",
					health.WantsPct.Round(1), cfg.WantsTargetPct),
			},
		})
	}

	if in.Trends.Trend == analysis.TrendIncreasing {
		items = append(items, scored{
			severity: 5,
			rec: Recommendation{
				Title:       "Monitor increasing expenses",
				Description: "Spending has trended upward across the analysis window.",
			},
		})
	}

	items = append(items, savingsOpportunities(in, cfg, classOf, classTotals)...)

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].severity != items[j].severity {
			return items[i].severity > items[j].severity
		}
		return items[i].rec.Title < items[j].rec.Title
	})

	recs := make([]Recommendation, len(items))
	for i, it := range items {
		it.rec.Priority = i + 1
		recs[i] = it.rec
	}
	return recs
}

// savingsOpportunities proposes per-category reductions for categories
// with unusual expenses or spend above an existing budget limit. The
// estimated impact is the overshoot against the category's
// target-equivalent share of income, floored at zero.
func savingsOpportunities(
	in Input,
	cfg analysis.Config,
	classOf map[string]core.Classification,
	classTotals map[core.Classification]decimal.Decimal,
) []scored {
	flagged := make(map[string]string) // category -> reason
	for _, a := range in.Anomalies {
		if _, seen := flagged[a.Transaction.Category]; !seen {
			flagged[a.Transaction.Category] = "has unusually large transactions"
		}
	}
	if in.Budget != nil {
		for name, limit := range in.Budget.CategoryLimits {
			if in.Aggregates.CategoryTotalFor(name).Total.GreaterThan(limit) {
				flagged[name] = "is over its budget limit"
			}
		}
	}

	names := make([]string, 0, len(flagged))
	for name := range flagged {
		names = append(names, name)
	}
	sort.Strings(names)

	var items []scored
	for _, name := range names {
		actual := in.Aggregates.CategoryTotalFor(name).Total
		rec := Recommendation{
			Title:       "Review " + name + " spending",
			Description: fmt.Sprintf("%s %s.", name, flagged[name]),
			Category:    name,
		}

		severity := 1.0
		if cls, ok := classOf[name]; ok && classTotals[cls].Sign() > 0 {
			// Target-equivalent share: the category keeps its historical
			// share of the classification, scaled to the target ratio.
			targetEq := in.TotalIncome.
				Mul(targetFor(cls, cfg)).Div(hundred).
				Mul(actual).Div(classTotals[cls]).
				Round(2)
			impact := actual.Sub(targetEq)
			if impact.Sign() < 0 {
				impact = decimal.Zero
			}
			impact = impact.Round(2)
			rec.EstimatedImpact = &impact
			rec.SuggestedLimit = &targetEq
			severity = core.Percent(impact, in.TotalIncome).InexactFloat64()
		}

		items = append(items, scored{severity: severity, rec: rec})
	}
	return items
}

func targetFor(cls core.Classification, cfg analysis.Config) decimal.Decimal {
	switch cls {
	case core.Need:
		return cfg.NeedsTargetPct
	case core.Want:
		return cfg.WantsTargetPct
	case core.Saving:
		return cfg.SavingsTargetPct
	default:
		return decimal.Zero
	}
}

// allocate redistributes income per the targets, then splits each
// classification's share across its categories proportionally to their
// historical spend. A category with no history gets 0% while any peer
// in its classification has history; only a classification with no
// history at all is split equally. Classified rows sum to exactly 100:
// rounding residue lands on the largest row. Unclassified categories
// keep their historical share of income and stay outside the 100% sum.
func allocate(
	in Input,
	cfg analysis.Config,
	classOf map[string]core.Classification,
	classTotals map[core.Classification]decimal.Decimal,
) []CategoryAllocation {
	byClass := map[core.Classification][]string{}
	for _, c := range in.Categories {
		if c.Type == core.Expense && c.Classification != "" {
			byClass[c.Classification] = append(byClass[c.Classification], c.Name)
		}
	}

	order := []core.Classification{core.Need, core.Want, core.Saving}

	// Classifications with no categories at all cannot receive a share;
	// their target is redistributed so the total still reaches 100.
	activeTargets := decimal.Zero
	for _, cls := range order {
		if len(byClass[cls]) > 0 {
			activeTargets = activeTargets.Add(targetFor(cls, cfg))
		}
	}
	if activeTargets.Sign() <= 0 {
		return unclassifiedAllocations(in, classOf, nil)
	}
	scale := hundred.Div(activeTargets)

	var classified []CategoryAllocation
	for _, cls := range order {
		names := byClass[cls]
		if len(names) == 0 {
			continue
		}
		sort.Strings(names)

		target := targetFor(cls, cfg).Mul(scale)
		total := classTotals[cls]
		for _, name := range names {
			var pct decimal.Decimal
			if total.Sign() > 0 {
				pct = target.Mul(in.Aggregates.CategoryTotalFor(name).Total).Div(total)
			} else {
				// No history anywhere in this classification: equal split.
				pct = target.Div(decimal.NewFromInt(int64(len(names))))
			}
			classified = append(classified, CategoryAllocation{
				Category:       name,
				Classification: cls,
				Percent:        pct,
			})
		}
	}

	// Round to two decimals and push the residual onto the largest row so
	// the classified rows sum to exactly 100.
	largest := 0
	sum := decimal.Zero
	for i := range classified {
		if classified[i].Percent.GreaterThan(classified[largest].Percent) {
			largest = i
		}
		classified[i].Percent = classified[i].Percent.Round(2)
		sum = sum.Add(classified[i].Percent)
	}
	if residual := hundred.Sub(sum); !residual.IsZero() {
		classified[largest].Percent = classified[largest].Percent.Add(residual)
	}

	return unclassifiedAllocations(in, classOf, classified)
}

// unclassifiedAllocations appends rows for expense categories without a
// classification, preserving their historical share of income.
func unclassifiedAllocations(in Input, classOf map[string]core.Classification, classified []CategoryAllocation) []CategoryAllocation {
	var rows []CategoryAllocation
	for _, ct := range in.Aggregates.Categories {
		if _, ok := classOf[ct.Name]; ok {
			continue
		}
		rows = append(rows, CategoryAllocation{
			Category: ct.Name,
			Percent:  core.Percent(ct.Total, in.TotalIncome).Round(2),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if cmp := rows[i].Percent.Cmp(rows[j].Percent); cmp != 0 {
			return cmp > 0
		}
		return rows[i].Category < rows[j].Category
	})
	return append(classified, rows...)
}
