package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a workflow run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// WorkflowRecord is a persisted workflow definition.
type WorkflowRecord struct {
	ID         uuid.UUID
	Name       string
	Definition string
	CreatedAt  time.Time
}

// WorkflowRun is a persisted execution of a workflow.
// GlobalMemory holds the final memory snapshot once the run is terminal.
type WorkflowRun struct {
	ID           uuid.UUID
	WorkflowID   uuid.UUID
	Status       RunStatus
	GlobalMemory map[string]any
	CreatedAt    time.Time
	FinishedAt   time.Time
}

// Conversation groups chat messages under one session.
type Conversation struct {
	ID        uuid.UUID
	UserID    string
	CreatedAt time.Time
}

// Message is a single conversation turn.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Role           Role
	Content        string
	CreatedAt      time.Time
}
