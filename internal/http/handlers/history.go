package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// ListHistory returns stored generations of a session, newest first.
// History outlives the in-memory session, so the id is not checked against
// the live session table.
func (a *App) ListHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid limit")
			return
		}
		limit = n
	}
	items, err := a.History.List(r.Context(), sessionID, limit)
	if err != nil {
		a.writeDomainError(w, r, err, nil)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

// HistoryArchive streams every stored image of a session as a zip file.
func (a *App) HistoryArchive(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	var buf bytes.Buffer
	n, err := a.History.Archive(r.Context(), sessionID, &buf)
	if err != nil {
		a.writeDomainError(w, r, err, nil)
		return
	}
	if n == 0 {
		a.error(w, http.StatusNotFound, "not_found", "no history for session")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "glowstudio-history-"+sessionID+".zip"))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
