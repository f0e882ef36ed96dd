package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowrunio/flowrun/internal/domain"
)

func TestMemoryStoreWorkflows(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id := uuid.New()
	record := &domain.WorkflowRecord{ID: id, Name: "demo", Definition: "nodes: {}", CreatedAt: time.Now()}
	require.NoError(t, s.SaveWorkflow(ctx, record))

	got, err := s.GetWorkflow(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "demo", got.Name)

	_, err = s.GetWorkflow(ctx, uuid.New())
	assert.Error(t, err)
}

func TestMemoryStoreRunLifecycle(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	runID := uuid.New()
	run := &domain.WorkflowRun{
		ID:         runID,
		WorkflowID: uuid.New(),
		Status:     domain.RunStatusRunning,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, s.CreateRun(ctx, run))

	snapshot := map[string]any{"a": map[string]any{"printed": "hi"}}
	require.NoError(t, s.FinishRun(ctx, runID, domain.RunStatusCompleted, snapshot))

	got, err := s.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, got.Status)
	assert.Equal(t, snapshot, got.GlobalMemory)
	assert.False(t, got.FinishedAt.IsZero())

	assert.Error(t, s.FinishRun(ctx, uuid.New(), domain.RunStatusFailed, nil))
}

func TestMemoryStoreConversations(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id := uuid.New()
	first, err := s.EnsureConversation(ctx, id, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", first.UserID)

	// Ensure is idempotent and keeps the original record.
	second, err := s.EnsureConversation(ctx, id, "someone-else")
	require.NoError(t, err)
	assert.Equal(t, "user-1", second.UserID)
}

func TestMemoryStoreMessagesOrdered(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	conversationID := uuid.New()

	base := time.Now()
	for i, content := range []string{"first", "second", "third"} {
		require.NoError(t, s.AppendMessage(ctx, &domain.Message{
			ID:             uuid.New(),
			ConversationID: conversationID,
			Role:           domain.RoleUser,
			Content:        content,
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		}))
	}

	messages, err := s.ListMessages(ctx, conversationID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "first", messages[0].Content)
	assert.Equal(t, "third", messages[2].Content)

	other, err := s.ListMessages(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, other)
}
