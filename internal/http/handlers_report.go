package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"spendlens/internal/advisor"
	"spendlens/internal/analysis"
	"spendlens/internal/core"
	"spendlens/internal/services"
)

type windowResponse struct {
	Start core.Date `json:"start"`
	End   core.Date `json:"end"`
}

type trendsResponse struct {
	Window            windowResponse      `json:"window"`
	TotalExpense      decimal.Decimal     `json:"total_expense"`
	TotalIncome       decimal.Decimal     `json:"total_income"`
	AvgMonthlyExpense decimal.Decimal     `json:"avg_monthly_expense"`
	MonthsInWindow    int                 `json:"months_in_window"`
	MonthOverMonthPct *decimal.Decimal    `json:"month_over_month_pct,omitempty"`
	Trend             string              `json:"trend,omitempty"`
	TopCategories     []categoryTotalResp `json:"top_categories,omitempty"`
	PeakWeekday       *string             `json:"peak_weekday,omitempty"`
	PeakMonth         *string             `json:"peak_month,omitempty"`
	InsufficientData  bool                `json:"insufficient_data"`
}

type categoryTotalResp struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

type anomalyResponse struct {
	TransactionID string          `json:"transaction_id"`
	Category      string          `json:"category"`
	Description   string          `json:"description"`
	Date          core.Date       `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	CategoryMean  decimal.Decimal `json:"category_mean"`
	Ratio         decimal.Decimal `json:"ratio"`
	Difference    decimal.Decimal `json:"difference"`
	Reason        string          `json:"reason"`
}

type recurringResponse struct {
	Category      string          `json:"category"`
	Description   string          `json:"description"`
	Period        string          `json:"period"`
	Occurrences   int             `json:"occurrences"`
	MeanGapDays   float64         `json:"mean_gap_days"`
	MatchFraction float64         `json:"match_fraction"`
	Confidence    float64         `json:"confidence"`
	AvgAmount     decimal.Decimal `json:"avg_amount"`
	FirstDate     core.Date       `json:"first_date"`
	LastDate      core.Date       `json:"last_date"`
}

type healthResponse struct {
	Score         int             `json:"score"`
	Status        string          `json:"status"`
	NeedsPct      decimal.Decimal `json:"needs_pct"`
	WantsPct      decimal.Decimal `json:"wants_pct"`
	SavingsPct    decimal.Decimal `json:"savings_pct"`
	NeedsTarget   decimal.Decimal `json:"needs_target"`
	WantsTarget   decimal.Decimal `json:"wants_target"`
	SavingsTarget decimal.Decimal `json:"savings_target"`
	NeedsStatus   string          `json:"needs_status"`
	WantsStatus   string          `json:"wants_status"`
	SavingsStatus string          `json:"savings_status"`
}

type recommendationResp struct {
	Priority        int              `json:"priority"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Category        string           `json:"category,omitempty"`
	EstimatedImpact *decimal.Decimal `json:"estimated_impact,omitempty"`
	SuggestedLimit  *decimal.Decimal `json:"suggested_limit,omitempty"`
}

type allocationResp struct {
	Category       string          `json:"category"`
	Classification string          `json:"classification,omitempty"`
	Percent        decimal.Decimal `json:"percent"`
}

type reportResponse struct {
	Window           windowResponse       `json:"window"`
	GeneratedAt      time.Time            `json:"generated_at"`
	Trends           trendsResponse       `json:"trends"`
	Anomalies        []anomalyResponse    `json:"anomalies"`
	Recurring        []recurringResponse  `json:"recurring"`
	InsufficientData bool                 `json:"insufficient_data"`
	Health           *healthResponse      `json:"health,omitempty"`
	Recommendations  []recommendationResp `json:"recommendations,omitempty"`
	Allocation       []allocationResp     `json:"allocation,omitempty"`
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report := s.buildReport(w, r)
	if report == nil {
		return
	}
	writeJSON(w, http.StatusOK, toReportResponse(report))
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	report := s.buildReport(w, r)
	if report == nil {
		return
	}
	writeJSON(w, http.StatusOK, toTrendsResponse(report.Window, report.Trends))
}

func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	report := s.buildReport(w, r)
	if report == nil {
		return
	}
	writeJSON(w, http.StatusOK, toAnomalyResponses(report.Anomalies))
}

func (s *Server) handleRecurring(w http.ResponseWriter, r *http.Request) {
	report := s.buildReport(w, r)
	if report == nil {
		return
	}
	writeJSON(w, http.StatusOK, toRecurringResponses(report.Recurring))
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	report := s.buildReport(w, r)
	if report == nil {
		return
	}
	writeJSON(w, http.StatusOK, toRecommendationResponses(report.Assessment.Recommendations))
}

func (s *Server) handleAllocation(w http.ResponseWriter, r *http.Request) {
	report := s.buildReport(w, r)
	if report == nil {
		return
	}
	writeJSON(w, http.StatusOK, toAllocationResponses(report.Assessment.Allocation))
}

func toReportResponse(report *services.Report) reportResponse {
	resp := reportResponse{
		Window:           windowResponse{Start: report.Window.Start, End: report.Window.End},
		GeneratedAt:      report.GeneratedAt,
		Trends:           toTrendsResponse(report.Window, report.Trends),
		Anomalies:        toAnomalyResponses(report.Anomalies),
		Recurring:        toRecurringResponses(report.Recurring),
		InsufficientData: report.Assessment.InsufficientData,
	}
	if !report.Assessment.InsufficientData {
		h := report.Assessment.Health
		resp.Health = &healthResponse{
			Score:         h.Score,
			Status:        h.Status,
			NeedsPct:      h.NeedsPct,
			WantsPct:      h.WantsPct,
			SavingsPct:    h.SavingsPct,
			NeedsTarget:   h.NeedsTarget,
			WantsTarget:   h.WantsTarget,
			SavingsTarget: h.SavingsTarget,
			NeedsStatus:   string(h.NeedsStatus),
			WantsStatus:   string(h.WantsStatus),
			SavingsStatus: string(h.SavingsStatus),
		}
		resp.Recommendations = toRecommendationResponses(report.Assessment.Recommendations)
		resp.Allocation = toAllocationResponses(report.Assessment.Allocation)
	}
	return resp
}

func toTrendsResponse(w core.Window, t analysis.TrendSummary) trendsResponse {
	resp := trendsResponse{
		Window:            windowResponse{Start: w.Start, End: w.End},
		TotalExpense:      t.TotalExpense,
		TotalIncome:       t.TotalIncome,
		AvgMonthlyExpense: t.AvgMonthlyExpense,
		MonthsInWindow:    t.MonthsInWindow,
		MonthOverMonthPct: t.MonthOverMonthPct,
		Trend:             string(t.Trend),
		InsufficientData:  t.InsufficientData,
	}
	for _, c := range t.TopCategories {
		resp.TopCategories = append(resp.TopCategories, categoryTotalResp{
			Category: c.Name,
			Total:    c.Total,
			Count:    c.Count,
		})
	}
	if t.PeakWeekday != nil {
		v := t.PeakWeekday.String()
		resp.PeakWeekday = &v
	}
	if t.PeakMonth != nil {
		v := t.PeakMonth.String()
		resp.PeakMonth = &v
	}
	return resp
}

func toAnomalyResponses(anomalies []analysis.Anomaly) []anomalyResponse {
	out := make([]anomalyResponse, 0, len(anomalies))
	for _, a := range anomalies {
		out = append(out, anomalyResponse{
			TransactionID: a.Transaction.ID,
			Category:      a.Transaction.Category,
			Description:   a.Transaction.Description,
			Date:          a.Transaction.Date,
			Amount:        a.Transaction.Amount,
			CategoryMean:  a.CategoryMean,
			Ratio:         a.Ratio,
			Difference:    a.Difference,
			Reason:        a.Reason,
		})
	}
	return out
}

func toRecurringResponses(patterns []analysis.RecurringPattern) []recurringResponse {
	out := make([]recurringResponse, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, recurringResponse{
			Category:      p.Category,
			Description:   p.Description,
			Period:        string(p.Period),
			Occurrences:   p.Occurrences,
			MeanGapDays:   p.MeanGapDays,
			MatchFraction: p.MatchFraction,
			Confidence:    p.Confidence,
			AvgAmount:     p.AvgAmount,
			FirstDate:     p.FirstDate,
			LastDate:      p.LastDate,
		})
	}
	return out
}

func toRecommendationResponses(recs []advisor.Recommendation) []recommendationResp {
	out := make([]recommendationResp, 0, len(recs))
	for _, rec := range recs {
		out = append(out, recommendationResp{
			Priority:        rec.Priority,
			Title:           rec.Title,
			Description:     rec.Description,
			Category:        rec.Category,
			EstimatedImpact: rec.EstimatedImpact,
			SuggestedLimit:  rec.SuggestedLimit,
		})
	}
	return out
}

func toAllocationResponses(rows []advisor.CategoryAllocation) []allocationResp {
	out := make([]allocationResp, 0, len(rows))
	for _, row := range rows {
		out = append(out, allocationResp{
			Category:       row.Category,
			Classification: string(row.Classification),
			Percent:        row.Percent,
		})
	}
	return out
}
