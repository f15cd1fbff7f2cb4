package analysis

import (
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"spendlens/internal/core"
)

const (
	PeriodWeekly  Periodicity = "weekly"
	PeriodMonthly Periodicity = "monthly"
	PeriodOther   Periodicity = "other"
)

type (
	Periodicity string

	// Anomaly flags a transaction whose amount exceeds a multiple of its
	// category mean computed over the other transactions in the window.
	Anomaly struct {
		Transaction  core.Transaction
		CategoryMean decimal.Decimal
		Ratio        decimal.Decimal
		Difference   decimal.Decimal
		Reason       string
	}

	// RecurringPattern describes a group of expenses repeating at a
	// roughly regular interval.
	RecurringPattern struct {
		Category       string
		Description    string // normalized
		Period         Periodicity
		Occurrences    int
		MeanGapDays    float64
		GapStdDevDays  float64
		MatchFraction  float64
		Confidence     float64
		AvgAmount      decimal.Decimal
		FirstDate      core.Date
		LastDate       core.Date
		TransactionIDs []string
	}

	// gapStats is the outcome of classifying a sorted gap sequence.
	gapStats struct {
		period        Periodicity
		meanGap       float64
		stdDev        float64
		cv            float64
		matchFraction float64
		confidence    float64
	}
)

// DetectAnomalies scores every expense in the window against the mean of
// the other transactions in its category. Categories with fewer than
// cfg.MinCategorySamples other transactions are skipped entirely: there
// is not enough history to call anything unusual. Results are ordered by
// ratio descending, ties broken by transaction ID.
func DetectAnomalies(txs []core.Transaction, w core.Window, cfg Config) []Anomaly {
	type catSum struct {
		total decimal.Decimal
		count int
	}
	sums := make(map[string]*catSum)
	var expenses []core.Transaction
	for _, tx := range txs {
		if tx.Type != core.Expense || !w.Contains(tx.Date) {
			continue
		}
		expenses = append(expenses, tx)
		cs, ok := sums[tx.Category]
		if !ok {
			cs = &catSum{}
			sums[tx.Category] = cs
		}
		cs.total = cs.total.Add(tx.Amount)
		cs.count++
	}

	var anomalies []Anomaly
	for _, tx := range expenses {
		cs := sums[tx.Category]
		others := cs.count - 1
		if others < cfg.MinCategorySamples {
			continue
		}
		mean := cs.total.Sub(tx.Amount).Div(decimal.NewFromInt(int64(others)))
		if mean.Sign() <= 0 {
			continue
		}
		if tx.Amount.LessThanOrEqual(mean.Mul(cfg.OutlierMultiplier)) {
			continue
		}
		anomalies = append(anomalies, Anomaly{
			Transaction:  tx,
			CategoryMean: mean,
			Ratio:        tx.Amount.Div(mean),
			Difference:   tx.Amount.Sub(mean),
			Reason:       "amount exceeds " + cfg.OutlierMultiplier.String() + "x the category average",
		})
	}

	sort.Slice(anomalies, func(i, j int) bool {
		if cmp := anomalies[i].Ratio.Cmp(anomalies[j].Ratio); cmp != 0 {
			return cmp > 0
		}
		return anomalies[i].Transaction.ID < anomalies[j].Transaction.ID
	})
	return anomalies
}

// DetectRecurring groups expenses by (category, normalized description)
// and classifies each group's consecutive day-gaps. Groups that are too
// small or whose gaps show no consistent clustering are silently
// excluded; that is a non-error. Results are ordered by category then
// description.
func DetectRecurring(txs []core.Transaction, w core.Window, cfg Config) []RecurringPattern {
	type groupKey struct {
		category    string
		description string
	}
	groups := make(map[groupKey][]core.Transaction)
	for _, tx := range txs {
		if tx.Type != core.Expense || !w.Contains(tx.Date) {
			continue
		}
		key := groupKey{category: tx.Category, description: NormalizeDescription(tx.Description)}
		groups[key] = append(groups[key], tx)
	}

	var patterns []RecurringPattern
	for key, members := range groups {
		if len(members) < cfg.MinOccurrences {
			continue
		}
		sort.Slice(members, func(i, j int) bool {
			if !members[i].Date.Equal(members[j].Date.Time) {
				return members[i].Date.Before(members[j].Date)
			}
			return members[i].ID < members[j].ID
		})

		gaps := make([]int, 0, len(members)-1)
		for i := 1; i < len(members); i++ {
			gaps = append(gaps, int(members[i].Date.Sub(members[i-1].Date.Time).Hours()/24))
		}

		stats, ok := classifyGaps(gaps, len(members), cfg)
		if !ok {
			continue
		}

		total := decimal.Zero
		ids := make([]string, len(members))
		for i, m := range members {
			total = total.Add(m.Amount)
			ids[i] = m.ID
		}

		patterns = append(patterns, RecurringPattern{
			Category:       key.category,
			Description:    key.description,
			Period:         stats.period,
			Occurrences:    len(members),
			MeanGapDays:    stats.meanGap,
			GapStdDevDays:  stats.stdDev,
			MatchFraction:  stats.matchFraction,
			Confidence:     stats.confidence,
			AvgAmount:      total.Div(decimal.NewFromInt(int64(len(members)))),
			FirstDate:      members[0].Date,
			LastDate:       members[len(members)-1].Date,
			TransactionIDs: ids,
		})
	}

	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Category != patterns[j].Category {
			return patterns[i].Category < patterns[j].Category
		}
		return patterns[i].Description < patterns[j].Description
	})
	return patterns
}

// NormalizeDescription lowercases, trims and collapses whitespace so
// "Netflix  Sub" and "netflix sub" land in the same recurring group.
func NormalizeDescription(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// classifyGaps decides the periodicity of a consecutive day-gap
// sequence. It is deliberately a pure function of the gaps and the
// tolerance parameters so the heuristic can be tuned and tested apart
// from the grouping logic.
//
// Weekly and monthly are band matches: at least cfg.MinMatchFraction of
// the gaps must fall inside the band. Anything else is "other" periodic
// when the gaps are still consistent (coefficient of variation at most
// cfg.MaxGapCV), and rejected otherwise. Real-world dates drift, so the
// bands are tolerance windows rather than exact periods.
func classifyGaps(gaps []int, occurrences int, cfg Config) (gapStats, bool) {
	if len(gaps) == 0 {
		return gapStats{}, false
	}

	var sum int
	for _, g := range gaps {
		sum += g
	}
	mean := float64(sum) / float64(len(gaps))
	if mean <= 0 {
		// Same-day duplicates, not a recurring series.
		return gapStats{}, false
	}
	var variance float64
	for _, g := range gaps {
		d := float64(g) - mean
		variance += d * d
	}
	variance /= float64(len(gaps))
	stdDev := math.Sqrt(variance)
	cv := stdDev / mean

	// More occurrences mean higher confidence, capped at ten.
	occurrenceFactor := math.Min(1, float64(occurrences)/10)

	stats := gapStats{meanGap: mean, stdDev: stdDev, cv: cv}

	weeklyLo := cfg.WeeklyGapDays - cfg.WeeklyToleranceDays
	weeklyHi := cfg.WeeklyGapDays + cfg.WeeklyToleranceDays
	if frac := bandFraction(gaps, weeklyLo, weeklyHi); frac >= cfg.MinMatchFraction {
		stats.period = PeriodWeekly
		stats.matchFraction = frac
		stats.confidence = 0.4*occurrenceFactor + 0.6*frac
		return stats, true
	}

	monthlyLo := cfg.MonthlyGapMinDays - cfg.MonthlyToleranceDays
	monthlyHi := cfg.MonthlyGapMaxDays + cfg.MonthlyToleranceDays
	if frac := bandFraction(gaps, monthlyLo, monthlyHi); frac >= cfg.MinMatchFraction {
		stats.period = PeriodMonthly
		stats.matchFraction = frac
		stats.confidence = 0.4*occurrenceFactor + 0.6*frac
		return stats, true
	}

	if cv > cfg.MaxGapCV {
		return gapStats{}, false
	}
	stats.period = PeriodOther
	stats.confidence = 0.4*occurrenceFactor + 0.6*(1-cv/cfg.MaxGapCV)
	return stats, true
}

// bandFraction returns the share of gaps inside [lo, hi].
func bandFraction(gaps []int, lo, hi int) float64 {
	matched := 0
	for _, g := range gaps {
		if g >= lo && g <= hi {
			matched++
		}
	}
	return float64(matched) / float64(len(gaps))
}
