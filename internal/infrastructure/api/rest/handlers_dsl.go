package rest

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/flowrunio/flowrun/internal/parser"
)

type dslContent struct {
	Content string `json:"content"`
}

func (s *Server) handleGetDSL(w http.ResponseWriter, _ *http.Request) {
	content, err := os.ReadFile(s.cfg.DSLPath)
	if err != nil {
		s.logger.Error().Str("path", s.cfg.DSLPath).Err(err).Msg("failed to read workflow document")
		s.writeError(w, http.StatusInternalServerError, "failed to read workflow document")
		return
	}
	s.writeJSON(w, http.StatusOK, dslContent{Content: string(content)})
}

// handleUpdateDSL validates, persists and hot-swaps the workflow
// document. The previous graph stays live when compilation fails.
func (s *Server) handleUpdateDSL(w http.ResponseWriter, r *http.Request) {
	var req dslContent
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	graph, err := parser.Parse([]byte(req.Content))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := os.WriteFile(s.cfg.DSLPath, []byte(req.Content), 0o644); err != nil {
		s.logger.Error().Str("path", s.cfg.DSLPath).Err(err).Msg("failed to write workflow document")
		s.writeError(w, http.StatusInternalServerError, "failed to write workflow document")
		return
	}

	s.swapGraph(graph)
	s.logger.Info().Str("workflow", graph.WorkflowID).Msg("workflow document updated")
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "updated", "workflow_id": graph.WorkflowID})
}
