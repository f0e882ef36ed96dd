package rest

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/flowrunio/flowrun/internal/conversation"
	"github.com/flowrunio/flowrun/internal/domain"
)

type chatRequest struct {
	Query          string `json:"query"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type chatResponse struct {
	ConversationID string `json:"conversation_id"`
	Response       string `json:"response"`
}

// terminalNodeKey is the well-known memory entry the chat surface reads
// its user-facing reply from.
const terminalNodeKey = "end_node"

func (s *Server) handleChatSend(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	conversationID := uuid.New()
	if req.ConversationID != "" {
		parsed, err := uuid.Parse(req.ConversationID)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid conversation_id")
			return
		}
		conversationID = parsed
	}

	ctx := r.Context()
	history := ""
	var mgr *conversation.Manager
	if s.store != nil {
		var err error
		mgr, err = conversation.NewManager(ctx, s.store, conversationID)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to open conversation")
			s.writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if err := mgr.Append(ctx, domain.RoleUser, req.Query); err != nil {
			s.logger.Error().Err(err).Msg("failed to store user message")
			s.writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if history, err = mgr.HistoryString(ctx); err != nil {
			s.logger.Error().Err(err).Msg("failed to load history")
			s.writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
	}

	inputs := map[string]any{
		"query":           req.Query,
		"conversation_id": conversationID.String(),
		"memory":          history,
	}

	result, err := s.runner.Execute(ctx, s.currentGraph(), s.cfg.WorkflowID, inputs)
	if err != nil {
		s.logger.Error().Err(err).Msg("workflow execution failed")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response := extractResponse(result.Memory)
	if mgr != nil {
		if err := mgr.Append(ctx, domain.RoleAssistant, response); err != nil {
			s.logger.Error().Err(err).Msg("failed to store assistant message")
		}
	}

	s.writeJSON(w, http.StatusOK, chatResponse{
		ConversationID: conversationID.String(),
		Response:       response,
	})
}

// extractResponse reads the terminal node's printed field from the final
// memory snapshot.
func extractResponse(snapshot map[string]any) string {
	output, ok := snapshot[terminalNodeKey].(map[string]any)
	if !ok {
		return "..."
	}
	printed, ok := output["printed"].(string)
	if !ok {
		return "..."
	}
	return printed
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusNotFound, "persistence disabled")
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}
	messages, err := s.store.ListMessages(r.Context(), id)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list messages")
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	type historyEntry struct {
		Role      string `json:"role"`
		Content   string `json:"content"`
		CreatedAt string `json:"created_at"`
	}
	out := make([]historyEntry, len(messages))
	for i, m := range messages {
		out[i] = historyEntry{
			Role:      string(m.Role),
			Content:   m.Content,
			CreatedAt: m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	s.writeJSON(w, http.StatusOK, out)
}
