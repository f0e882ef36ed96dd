package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowrunio/flowrun/internal/application/runner"
	"github.com/flowrunio/flowrun/internal/executor"
	"github.com/flowrunio/flowrun/internal/infrastructure/storage"
	"github.com/flowrunio/flowrun/internal/node"
	"github.com/flowrunio/flowrun/internal/node/builtin"
	"github.com/flowrunio/flowrun/internal/parser"
)

const echoDoc = `id: echo
version: "1.0"
nodes:
  end_node:
    type: print
    inputs:
      message: "Echo: {{ inputs.query }}"
`

func newTestServer(t *testing.T) (*Server, *storage.MemoryStore, string) {
	t.Helper()

	dslPath := filepath.Join(t.TempDir(), "workflow.yaml")
	require.NoError(t, os.WriteFile(dslPath, []byte(echoDoc), 0o644))

	graph, err := parser.Parse([]byte(echoDoc))
	require.NoError(t, err)

	registry := node.NewRegistry()
	require.NoError(t, builtin.Register(registry))

	store := storage.NewMemoryStore()
	run := runner.New(store, registry, nil, executor.DefaultConfig(), zerolog.Nop())

	srv := NewServer(
		ServerConfig{DSLPath: dslPath, WorkflowID: uuid.New()},
		graph, store, run, nil, zerolog.Nop(),
	)
	return srv, store, dslPath
}

func postJSON(t *testing.T, srv http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestChatSendRunsWorkflow(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := postJSON(t, srv, "/chat/send", chatRequest{Query: "hello"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Echo: hello", resp.Response)
	assert.NotEmpty(t, resp.ConversationID)
}

func TestChatSendKeepsConversation(t *testing.T) {
	srv, _, _ := newTestServer(t)

	first := postJSON(t, srv, "/chat/send", chatRequest{Query: "first"})
	require.Equal(t, http.StatusOK, first.Code)
	var resp chatResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &resp))

	second := postJSON(t, srv, "/chat/send", chatRequest{Query: "second", ConversationID: resp.ConversationID})
	require.Equal(t, http.StatusOK, second.Code)

	req := httptest.NewRequest(http.MethodGet, "/chat/history/"+resp.ConversationID, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var history []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	// Two user turns and two assistant replies.
	require.Len(t, history, 4)
	assert.Equal(t, "user", history[0]["role"])
	assert.Equal(t, "assistant", history[1]["role"])
}

func TestChatSendValidation(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := postJSON(t, srv, "/chat/send", chatRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, srv, "/chat/send", chatRequest{Query: "x", ConversationID: "not-a-uuid"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatHistoryInvalidID(t *testing.T) {
	srv, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/chat/history/garbage", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDSLContent(t *testing.T) {
	srv, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/dsl/content", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dslContent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, echoDoc, resp.Content)
}

func TestUpdateDSLContentSwapsGraph(t *testing.T) {
	srv, _, dslPath := newTestServer(t)

	updated := `id: echo2
nodes:
  end_node:
    type: print
    inputs:
      message: "Updated: {{ inputs.query }}"
`
	rec := postJSON(t, srv, "/dsl/content", dslContent{Content: updated})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// File rewritten.
	onDisk, err := os.ReadFile(dslPath)
	require.NoError(t, err)
	assert.Equal(t, updated, string(onDisk))

	// Live graph swapped.
	chat := postJSON(t, srv, "/chat/send", chatRequest{Query: "hi"})
	require.Equal(t, http.StatusOK, chat.Code)
	var resp chatResponse
	require.NoError(t, json.Unmarshal(chat.Body.Bytes(), &resp))
	assert.Equal(t, "Updated: hi", resp.Response)
}

func TestUpdateDSLContentRejectsInvalidDocument(t *testing.T) {
	srv, _, dslPath := newTestServer(t)

	cyclic := `id: broken
nodes:
  a:
    type: print
    depends_on: [b]
  b:
    type: print
    depends_on: [a]
`
	rec := postJSON(t, srv, "/dsl/content", dslContent{Content: cyclic})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Previous document untouched.
	onDisk, err := os.ReadFile(dslPath)
	require.NoError(t, err)
	assert.Equal(t, echoDoc, string(onDisk))
}
