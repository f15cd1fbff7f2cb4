package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"spendlens/internal/core"
)

type budgetRequest struct {
	StartDate      string            `json:"start_date"`
	EndDate        string            `json:"end_date"`
	TotalLimit     string            `json:"total_limit,omitempty"`
	CategoryLimits map[string]string `json:"category_limits,omitempty"`
}

type budgetResponse struct {
	ID             string                     `json:"id,omitempty"`
	StartDate      core.Date                  `json:"start_date"`
	EndDate        core.Date                  `json:"end_date"`
	TotalLimit     decimal.Decimal            `json:"total_limit"`
	CategoryLimits map[string]decimal.Decimal `json:"category_limits,omitempty"`
}

func (s *Server) handleSaveBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start, err := core.ParseDate(strings.TrimSpace(req.StartDate))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_date, expected YYYY-MM-DD")
		return
	}
	end, err := core.ParseDate(strings.TrimSpace(req.EndDate))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_date, expected YYYY-MM-DD")
		return
	}
	if !end.After(start) {
		writeError(w, http.StatusBadRequest, "end_date must be after start_date")
		return
	}

	budget := core.Budget{Start: start, End: end}
	if req.TotalLimit != "" {
		limit, err := decimal.NewFromString(strings.TrimSpace(req.TotalLimit))
		if err != nil || limit.Sign() < 0 {
			writeError(w, http.StatusBadRequest, "invalid total_limit")
			return
		}
		budget.TotalLimit = limit
	}
	if len(req.CategoryLimits) > 0 {
		budget.CategoryLimits = make(map[string]decimal.Decimal, len(req.CategoryLimits))
		for name, raw := range req.CategoryLimits {
			limit, err := decimal.NewFromString(strings.TrimSpace(raw))
			if err != nil || limit.Sign() < 0 {
				writeError(w, http.StatusBadRequest, "invalid limit for category "+name)
				return
			}
			budget.CategoryLimits[name] = limit
		}
	}

	id, err := s.store.SaveBudget(r.Context(), budget)
	if err != nil {
		storeError(w, r, err, "save budget")
		return
	}
	s.reports.InvalidateCache()

	slog.InfoContext(r.Context(), "Budget saved", "budget_id", id, "start", start.String(), "end", end.String())
	writeJSON(w, http.StatusCreated, budgetResponse{
		ID:             id,
		StartDate:      budget.Start,
		EndDate:        budget.End,
		TotalLimit:     budget.TotalLimit,
		CategoryLimits: budget.CategoryLimits,
	})
}

func (s *Server) handleActiveBudget(w http.ResponseWriter, r *http.Request) {
	at := core.Date{Time: time.Now().UTC().Truncate(24 * time.Hour)}
	if v := strings.TrimSpace(r.URL.Query().Get("at")); v != "" {
		parsed, err := core.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid at date, expected YYYY-MM-DD")
			return
		}
		at = parsed
	}

	budget, err := s.store.ActiveBudget(r.Context(), at)
	if err != nil {
		storeError(w, r, err, "active budget")
		return
	}
	if budget == nil {
		writeError(w, http.StatusNotFound, "no active budget")
		return
	}

	writeJSON(w, http.StatusOK, budgetResponse{
		StartDate:      budget.Start,
		EndDate:        budget.End,
		TotalLimit:     budget.TotalLimit,
		CategoryLimits: budget.CategoryLimits,
	})
}
