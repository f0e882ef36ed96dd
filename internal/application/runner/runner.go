// Package runner drives single workflow runs: it writes the RUNNING row,
// executes the engine against a fresh memory and finalizes the run record
// with the terminal status and memory snapshot.
package runner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/flowrunio/flowrun/internal/domain"
	"github.com/flowrunio/flowrun/internal/executor"
	"github.com/flowrunio/flowrun/internal/infrastructure/monitoring"
	"github.com/flowrunio/flowrun/internal/memory"
	"github.com/flowrunio/flowrun/internal/node"
	"github.com/flowrunio/flowrun/internal/parser"
)

// Runner executes workflow graphs. Store may be nil (no-db mode).
type Runner struct {
	store     domain.Store
	registry  *node.Registry
	observers *monitoring.ObserverManager
	cfg       executor.Config
	logger    zerolog.Logger
}

// New creates a Runner.
func New(store domain.Store, registry *node.Registry, observers *monitoring.ObserverManager, cfg executor.Config, logger zerolog.Logger) *Runner {
	if observers == nil {
		observers = monitoring.NewObserverManager()
	}
	return &Runner{
		store:     store,
		registry:  registry,
		observers: observers,
		cfg:       cfg,
		logger:    logger,
	}
}

// Result is the outcome of one run.
type Result struct {
	RunID  uuid.UUID
	Status domain.RunStatus
	Memory map[string]any
}

// Execute runs the graph with a fresh memory seeded from inputs. The
// returned Result carries the final memory snapshot even on failure.
func (r *Runner) Execute(ctx context.Context, graph *parser.WorkflowGraph, workflowID uuid.UUID, inputs map[string]any) (Result, error) {
	runID := uuid.New()
	mem := memory.New(map[string]any{memory.InputsKey: inputs})

	if r.store != nil {
		run := &domain.WorkflowRun{
			ID:         runID,
			WorkflowID: workflowID,
			Status:     domain.RunStatusRunning,
			CreatedAt:  time.Now(),
		}
		if err := r.store.CreateRun(ctx, run); err != nil {
			return Result{}, err
		}
	}

	r.observers.NotifyRunStarted(graph.WorkflowID, runID.String())

	eng := executor.New(graph, mem, r.registry,
		executor.WithConfig(r.cfg),
		executor.WithLogger(r.logger.With().Str("run_id", runID.String()).Logger()),
		executor.WithObservers(r.observers),
		executor.WithRunID(runID.String()),
	)

	start := time.Now()
	runErr := eng.Run(ctx)
	status := domain.RunStatusCompleted
	if runErr != nil {
		status = domain.RunStatusFailed
	}
	snapshot := mem.Snapshot()

	r.logger.Info().
		Str("workflow", graph.WorkflowID).
		Str("run_id", runID.String()).
		Str("status", string(status)).
		Dur("duration", time.Since(start)).
		Msg("run finished")

	if r.store != nil {
		if err := r.store.FinishRun(ctx, runID, status, snapshot); err != nil {
			r.logger.Error().Str("run_id", runID.String()).Err(err).Msg("failed to finalize run record")
		}
	}
	r.observers.NotifyRunFinished(graph.WorkflowID, runID.String(), status)

	return Result{RunID: runID, Status: status, Memory: snapshot}, runErr
}
