package domain

import (
	"context"

	"github.com/google/uuid"
)

// Store is the persistence boundary for workflow definitions, run records
// and conversation history. The engine itself never touches it; drivers
// write a RUNNING row before a run and finalize it afterwards.
type Store interface {
	SaveWorkflow(ctx context.Context, w *WorkflowRecord) error
	GetWorkflow(ctx context.Context, id uuid.UUID) (*WorkflowRecord, error)

	CreateRun(ctx context.Context, run *WorkflowRun) error
	FinishRun(ctx context.Context, id uuid.UUID, status RunStatus, memory map[string]any) error
	GetRun(ctx context.Context, id uuid.UUID) (*WorkflowRun, error)

	EnsureConversation(ctx context.Context, id uuid.UUID, userID string) (*Conversation, error)
	AppendMessage(ctx context.Context, msg *Message) error
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]*Message, error)
}
