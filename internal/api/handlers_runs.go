package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// handleListRuns lists recent runs from the ledger, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	st := s.orchestrator.Runner().Store()
	if st == nil {
		jsonError(w, "run ledger unavailable", http.StatusServiceUnavailable)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			jsonError(w, "limit must be between 1 and 1000", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := st.RecentRuns(r.Context(), limit)
	if err != nil {
		jsonError(w, "failed to list runs: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	st := s.orchestrator.Runner().Store()
	if st == nil {
		jsonError(w, "run ledger unavailable", http.StatusServiceUnavailable)
		return
	}

	run, err := st.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if errors.Is(err, sql.ErrNoRows) {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to read run: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, run)
}
