package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"spendlens/internal/core"
	applog "spendlens/internal/log"
	"spendlens/internal/services"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// reportWindow resolves the analysis window from ?end=YYYY-MM-DD and
// ?months=N, defaulting to a window ending today.
func (s *Server) reportWindow(r *http.Request) (core.Window, error) {
	end := core.Date{Time: time.Now().UTC().Truncate(24 * time.Hour)}
	if v := strings.TrimSpace(r.URL.Query().Get("end")); v != "" {
		parsed, err := core.ParseDate(v)
		if err != nil {
			return core.Window{}, err
		}
		end = parsed
	}

	months := s.defaultMonths
	if v := strings.TrimSpace(r.URL.Query().Get("months")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return core.Window{}, fmt.Errorf("%w: months must be an integer", core.ErrInvalidRange)
		}
		months = n
	}

	return services.WindowEndingAt(end, months)
}

// buildReport resolves the window, builds (or serves a cached) report
// and writes any failure; callers get nil on the error path.
func (s *Server) buildReport(w http.ResponseWriter, r *http.Request) *services.Report {
	window, err := s.reportWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil
	}

	report, err := s.reports.BuildReport(r.Context(), window)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Report build failed",
			"error", err, "window", window.Start.String()+".."+window.End.String())
		writeError(w, http.StatusInternalServerError, "report generation failed")
		return nil
	}
	return report
}

// storeError maps persistence failures onto HTTP statuses.
func storeError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrInvalidClassification),
		errors.Is(err, core.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Store operation failed", "operation", op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
