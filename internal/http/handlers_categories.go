package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"spendlens/internal/core"
)

type categoryPayload struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	Classification string `json:"classification,omitempty"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.store.ListCategories(r.Context())
	if err != nil {
		storeError(w, r, err, "list categories")
		return
	}

	out := make([]categoryPayload, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryPayload{
			Name:           c.Name,
			Type:           string(c.Type),
			Classification: string(c.Classification),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpsertCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cat := core.Category{
		Name:           strings.TrimSpace(req.Name),
		Type:           core.TransactionType(strings.ToLower(strings.TrimSpace(req.Type))),
		Classification: core.Classification(strings.ToLower(strings.TrimSpace(req.Classification))),
	}

	if err := s.store.UpsertCategory(r.Context(), cat); err != nil {
		storeError(w, r, err, "upsert category")
		return
	}
	s.reports.InvalidateCache()

	slog.InfoContext(r.Context(), "Category upserted", "category", cat.Name, "classification", string(cat.Classification))
	writeJSON(w, http.StatusOK, categoryPayload{
		Name:           cat.Name,
		Type:           string(cat.Type),
		Classification: string(cat.Classification),
	})
}
