package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowrunio/flowrun/internal/domain"
)

// MemoryStore implements domain.Store in process memory. It backs the
// no-db mode and tests.
type MemoryStore struct {
	mu            sync.RWMutex
	workflows     map[uuid.UUID]*domain.WorkflowRecord
	runs          map[uuid.UUID]*domain.WorkflowRun
	conversations map[uuid.UUID]*domain.Conversation
	messages      map[uuid.UUID][]*domain.Message
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		workflows:     make(map[uuid.UUID]*domain.WorkflowRecord),
		runs:          make(map[uuid.UUID]*domain.WorkflowRun),
		conversations: make(map[uuid.UUID]*domain.Conversation),
		messages:      make(map[uuid.UUID][]*domain.Message),
	}
}

func (s *MemoryStore) SaveWorkflow(_ context.Context, w *domain.WorkflowRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *w
	s.workflows[w.ID] = &copied
	return nil
}

func (s *MemoryStore) GetWorkflow(_ context.Context, id uuid.UUID) (*domain.WorkflowRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.workflows[id]
	if !ok {
		return nil, fmt.Errorf("workflow %s not found", id)
	}
	copied := *w
	return &copied, nil
}

func (s *MemoryStore) CreateRun(_ context.Context, run *domain.WorkflowRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *run
	s.runs[run.ID] = &copied
	return nil
}

func (s *MemoryStore) FinishRun(_ context.Context, id uuid.UUID, status domain.RunStatus, memory map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return fmt.Errorf("run %s not found", id)
	}
	run.Status = status
	run.GlobalMemory = memory
	run.FinishedAt = time.Now()
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id uuid.UUID) (*domain.WorkflowRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s not found", id)
	}
	copied := *run
	return &copied, nil
}

func (s *MemoryStore) EnsureConversation(_ context.Context, id uuid.UUID, userID string) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.conversations[id]; ok {
		copied := *c
		return &copied, nil
	}
	c := &domain.Conversation{ID: id, UserID: userID, CreatedAt: time.Now()}
	s.conversations[id] = c
	copied := *c
	return &copied, nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *msg
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], &copied)
	return nil
}

func (s *MemoryStore) ListMessages(_ context.Context, conversationID uuid.UUID) ([]*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[conversationID]
	out := make([]*domain.Message, len(msgs))
	for i, m := range msgs {
		copied := *m
		out[i] = &copied
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
