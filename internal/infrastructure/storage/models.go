// Package storage persists workflow definitions, run records and
// conversation history. BunStore targets Postgres; MemoryStore backs the
// no-db mode.
package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/flowrunio/flowrun/internal/domain"
)

type workflowModel struct {
	bun.BaseModel `bun:"table:workflows,alias:w"`

	ID         uuid.UUID `bun:"id,pk"`
	Name       string    `bun:"name"`
	Definition string    `bun:"definition"`
	CreatedAt  time.Time `bun:"created_at"`
}

func (m *workflowModel) toDomain() *domain.WorkflowRecord {
	return &domain.WorkflowRecord{
		ID:         m.ID,
		Name:       m.Name,
		Definition: m.Definition,
		CreatedAt:  m.CreatedAt,
	}
}

func newWorkflowModel(w *domain.WorkflowRecord) *workflowModel {
	return &workflowModel{
		ID:         w.ID,
		Name:       w.Name,
		Definition: w.Definition,
		CreatedAt:  w.CreatedAt,
	}
}

type workflowRunModel struct {
	bun.BaseModel `bun:"table:workflow_runs,alias:r"`

	ID           uuid.UUID        `bun:"id,pk"`
	WorkflowID   uuid.UUID        `bun:"workflow_id"`
	Status       domain.RunStatus `bun:"status"`
	GlobalMemory map[string]any   `bun:"global_memory,type:jsonb"`
	CreatedAt    time.Time        `bun:"created_at"`
	FinishedAt   time.Time        `bun:"finished_at,nullzero"`
}

func (m *workflowRunModel) toDomain() *domain.WorkflowRun {
	return &domain.WorkflowRun{
		ID:           m.ID,
		WorkflowID:   m.WorkflowID,
		Status:       m.Status,
		GlobalMemory: m.GlobalMemory,
		CreatedAt:    m.CreatedAt,
		FinishedAt:   m.FinishedAt,
	}
}

func newWorkflowRunModel(r *domain.WorkflowRun) *workflowRunModel {
	return &workflowRunModel{
		ID:           r.ID,
		WorkflowID:   r.WorkflowID,
		Status:       r.Status,
		GlobalMemory: r.GlobalMemory,
		CreatedAt:    r.CreatedAt,
		FinishedAt:   r.FinishedAt,
	}
}

type conversationModel struct {
	bun.BaseModel `bun:"table:conversations,alias:c"`

	ID        uuid.UUID `bun:"id,pk"`
	UserID    string    `bun:"user_id,nullzero"`
	CreatedAt time.Time `bun:"created_at"`
}

func (m *conversationModel) toDomain() *domain.Conversation {
	return &domain.Conversation{ID: m.ID, UserID: m.UserID, CreatedAt: m.CreatedAt}
}

type messageModel struct {
	bun.BaseModel `bun:"table:messages,alias:m"`

	ID             uuid.UUID   `bun:"id,pk"`
	ConversationID uuid.UUID   `bun:"conversation_id"`
	Role           domain.Role `bun:"role"`
	Content        string      `bun:"content"`
	CreatedAt      time.Time   `bun:"created_at"`
}

func (m *messageModel) toDomain() *domain.Message {
	return &domain.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Role:           m.Role,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
}

func newMessageModel(msg *domain.Message) *messageModel {
	return &messageModel{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		Role:           msg.Role,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
	}
}
