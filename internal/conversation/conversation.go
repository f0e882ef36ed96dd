// Package conversation manages chat history for multi-turn workflow
// sessions.
package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flowrunio/flowrun/internal/domain"
)

// Manager reads and appends messages for one conversation.
type Manager struct {
	store domain.Store
	id    uuid.UUID
}

// NewManager ensures the conversation exists and returns a manager bound
// to it.
func NewManager(ctx context.Context, store domain.Store, id uuid.UUID) (*Manager, error) {
	if _, err := store.EnsureConversation(ctx, id, ""); err != nil {
		return nil, err
	}
	return &Manager{store: store, id: id}, nil
}

// ID returns the conversation identifier.
func (m *Manager) ID() uuid.UUID { return m.id }

// Append stores a message.
func (m *Manager) Append(ctx context.Context, role domain.Role, content string) error {
	return m.store.AppendMessage(ctx, &domain.Message{
		ID:             uuid.New(),
		ConversationID: m.id,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now(),
	})
}

// History returns all messages in chronological order.
func (m *Manager) History(ctx context.Context) ([]*domain.Message, error) {
	return m.store.ListMessages(ctx, m.id)
}

// HistoryString renders the history as "role: content" lines, used to
// seed the workflow's memory input.
func (m *Manager) HistoryString(ctx context.Context) (string, error) {
	messages, err := m.History(ctx)
	if err != nil {
		return "", err
	}
	lines := make([]string, len(messages))
	for i, msg := range messages {
		lines[i] = string(msg.Role) + ": " + msg.Content
	}
	return strings.Join(lines, "\n"), nil
}
