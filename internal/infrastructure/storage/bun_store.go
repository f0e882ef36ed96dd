package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/flowrunio/flowrun/internal/domain"
)

// BunStore implements domain.Store on Postgres.
type BunStore struct {
	db *bun.DB
}

// NewBunStore opens a Postgres-backed store for the given DSN.
func NewBunStore(dsn string) *BunStore {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return &BunStore{db: bun.NewDB(sqldb, pgdialect.New())}
}

// Ping verifies connectivity.
func (s *BunStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InitSchema creates the four tables if they do not exist.
func (s *BunStore) InitSchema(ctx context.Context) error {
	models := []any{
		(*workflowModel)(nil),
		(*workflowRunModel)(nil),
		(*conversationModel)(nil),
		(*messageModel)(nil),
	}
	for _, model := range models {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *BunStore) SaveWorkflow(ctx context.Context, w *domain.WorkflowRecord) error {
	model := newWorkflowModel(w)
	_, err := s.db.NewInsert().Model(model).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("definition = EXCLUDED.definition").
		Exec(ctx)
	return err
}

func (s *BunStore) GetWorkflow(ctx context.Context, id uuid.UUID) (*domain.WorkflowRecord, error) {
	model := new(workflowModel)
	if err := s.db.NewSelect().Model(model).Where("w.id = ?", id).Scan(ctx); err != nil {
		return nil, err
	}
	return model.toDomain(), nil
}

func (s *BunStore) CreateRun(ctx context.Context, run *domain.WorkflowRun) error {
	_, err := s.db.NewInsert().Model(newWorkflowRunModel(run)).Exec(ctx)
	return err
}

func (s *BunStore) FinishRun(ctx context.Context, id uuid.UUID, status domain.RunStatus, memory map[string]any) error {
	model := &workflowRunModel{ID: id, Status: status, GlobalMemory: memory, FinishedAt: time.Now()}
	_, err := s.db.NewUpdate().Model(model).
		Column("status", "global_memory", "finished_at").
		WherePK().
		Exec(ctx)
	return err
}

func (s *BunStore) GetRun(ctx context.Context, id uuid.UUID) (*domain.WorkflowRun, error) {
	model := new(workflowRunModel)
	if err := s.db.NewSelect().Model(model).Where("r.id = ?", id).Scan(ctx); err != nil {
		return nil, err
	}
	return model.toDomain(), nil
}

func (s *BunStore) EnsureConversation(ctx context.Context, id uuid.UUID, userID string) (*domain.Conversation, error) {
	model := &conversationModel{ID: id, UserID: userID, CreatedAt: time.Now()}
	_, err := s.db.NewInsert().Model(model).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	existing := new(conversationModel)
	if err := s.db.NewSelect().Model(existing).Where("c.id = ?", id).Scan(ctx); err != nil {
		return nil, err
	}
	return existing.toDomain(), nil
}

func (s *BunStore) AppendMessage(ctx context.Context, msg *domain.Message) error {
	_, err := s.db.NewInsert().Model(newMessageModel(msg)).Exec(ctx)
	return err
}

func (s *BunStore) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]*domain.Message, error) {
	var models []messageModel
	err := s.db.NewSelect().Model(&models).
		Where("m.conversation_id = ?", conversationID).
		Order("m.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Message, len(models))
	for i := range models {
		out[i] = models[i].toDomain()
	}
	return out, nil
}
