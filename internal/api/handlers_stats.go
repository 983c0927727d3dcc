package api

import (
	"net/http"
)

func (s *Server) handleProviderStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"providers":   s.orchestrator.Runner().Stats().Snapshot(),
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}
