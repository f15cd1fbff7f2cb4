package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"spendlens/internal/core"
	"spendlens/internal/export"
	applog "spendlens/internal/log"
)

// handleExport streams the transactions of the requested window as CSV
// or JSON. The JSON format additionally includes categories and the
// active budget.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "json" {
		writeError(w, http.StatusBadRequest, "unsupported format: "+format)
		return
	}

	window, err := s.reportWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	txs, err := s.store.ListTransactions(r.Context(), window.Start, window.End)
	if err != nil {
		storeError(w, r, err, "list transactions")
		return
	}

	filename := fmt.Sprintf("spendlens_%s_%s.%s",
		window.Start.Format(core.DateLayout), window.End.Format(core.DateLayout), format)

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		if err := export.WriteTransactionsCSV(w, txs); err != nil {
			storeError(w, r, err, "export csv")
		}
	case "json":
		cats, err := s.store.ListCategories(r.Context())
		if err != nil {
			storeError(w, r, err, "list categories")
			return
		}

		var budgets []core.Budget
		today := core.Date{Time: time.Now().UTC().Truncate(24 * time.Hour)}
		active, err := s.store.ActiveBudget(r.Context(), today)
		if err != nil {
			// The export still has value without a budget section.
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Active budget lookup failed, exporting without budgets", "error", err)
		} else if active != nil {
			budgets = append(budgets, *active)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		if err := export.WriteJSON(w, txs, cats, budgets); err != nil {
			storeError(w, r, err, "export json")
		}
	}
}
