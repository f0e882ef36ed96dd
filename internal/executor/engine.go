// Package executor runs compiled workflow graphs: a frontier-driven
// coordinator dispatches ready nodes onto a bounded worker pool, evaluates
// guards at dispatch time, propagates skips along fully-skipped branches
// and aggregates node outputs into the shared run memory.
package executor

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/flowrunio/flowrun/internal/domain"
	"github.com/flowrunio/flowrun/internal/infrastructure/monitoring"
	"github.com/flowrunio/flowrun/internal/memory"
	"github.com/flowrunio/flowrun/internal/node"
	"github.com/flowrunio/flowrun/internal/parser"
)

// Config holds engine tuning knobs.
type Config struct {
	// MaxWorkers bounds how many node bodies execute concurrently.
	MaxWorkers int
	// PollInterval is the backoff used after an iteration in which every
	// ready node was skipped by its guard and nothing is in flight. When no
	// node is ready and nothing is in flight, Run returns a DeadlockError
	// instead of waiting.
	PollInterval time.Duration
}

// DefaultConfig returns the reference engine configuration.
func DefaultConfig() Config {
	return Config{
		MaxWorkers:   10,
		PollInterval: 100 * time.Millisecond,
	}
}

// Engine executes one workflow graph against one run memory. It is
// single-use: construct a fresh engine per run.
type Engine struct {
	graph      *parser.WorkflowGraph
	memory     *memory.Memory
	registry   *node.Registry
	templates  *TemplateProcessor
	conditions *ConditionEvaluator
	observers  *monitoring.ObserverManager
	cfg        Config
	logger     zerolog.Logger
	runID      string
}

// Option customises an Engine.
type Option func(*Engine)

// WithConfig overrides the default engine configuration.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		if cfg.MaxWorkers > 0 {
			e.cfg.MaxWorkers = cfg.MaxWorkers
		}
		if cfg.PollInterval > 0 {
			e.cfg.PollInterval = cfg.PollInterval
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithObservers attaches an observer manager.
func WithObservers(observers *monitoring.ObserverManager) Option {
	return func(e *Engine) { e.observers = observers }
}

// WithRunID tags lifecycle notifications with a run identifier.
func WithRunID(runID string) Option {
	return func(e *Engine) { e.runID = runID }
}

// New creates an engine for one run of the given graph.
func New(graph *parser.WorkflowGraph, mem *memory.Memory, registry *node.Registry, opts ...Option) *Engine {
	evaluator := NewConditionEvaluator()
	e := &Engine{
		graph:      graph,
		memory:     mem,
		registry:   registry,
		conditions: evaluator,
		observers:  monitoring.NewObserverManager(),
		cfg:        DefaultConfig(),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.templates = NewTemplateProcessor(evaluator, e.logger)
	return e
}

type nodeResult struct {
	id       string
	nodeType string
	output   map[string]any
	duration time.Duration
	err      error
}

// Run executes the graph to completion. It returns nil when every node is
// terminal (completed or skipped), a NodeError when a node body fails, and
// a DeadlockError when pending nodes cannot make progress.
func (e *Engine) Run(ctx context.Context) error {
	// Unknown node types fail the workflow before scheduling begins.
	for id, spec := range e.graph.Nodes {
		if !e.registry.Has(spec.Type) {
			return domain.NewCompileError("node "+id+" has unknown type "+spec.Type, nil)
		}
	}

	total := len(e.graph.Nodes)
	completed := make(map[string]struct{}, total)
	skipped := make(map[string]struct{}, total)
	inflight := make(map[string]struct{}, e.cfg.MaxWorkers)

	// Buffered so draining workers never block after an aborted run.
	results := make(chan nodeResult, total)
	workers := make(chan struct{}, e.cfg.MaxWorkers)

	for len(completed)+len(skipped) < total {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ready, toSkip := e.partition(completed, skipped, inflight)

		// Propagate skips immediately and re-partition: a freshly skipped
		// node may in turn satisfy its downstream nodes' dependencies.
		if len(toSkip) > 0 {
			for _, id := range toSkip {
				skipped[id] = struct{}{}
				e.logger.Info().Str("node", id).Msg("node skipped: all upstream nodes skipped")
				e.observers.NotifyNodeSkipped(e.runID, id, e.graph.Nodes[id].Type, "upstream skipped")
			}
			continue
		}

		if len(ready) == 0 && len(inflight) == 0 {
			return &domain.DeadlockError{Pending: e.pending(completed, skipped)}
		}

		dispatched := 0
		for _, id := range ready {
			spec := e.graph.Nodes[id]
			snapshot := e.memory.Snapshot()

			if !e.evaluateGuard(spec.Condition, snapshot) {
				skipped[id] = struct{}{}
				e.logger.Info().Str("node", id).Str("condition", spec.Condition).Msg("node skipped: condition false")
				e.observers.NotifyNodeSkipped(e.runID, id, spec.Type, "condition false")
				continue
			}

			inputs := e.templates.ExpandMap(spec.Inputs, snapshot)
			impl, err := e.registry.New(id, spec)
			if err != nil {
				return domain.NewCompileError("failed to construct node "+id, err)
			}

			inflight[id] = struct{}{}
			dispatched++
			e.logger.Debug().Str("node", id).Str("type", spec.Type).Msg("dispatching node")
			e.observers.NotifyNodeStarted(e.runID, id, spec.Type)

			go func(impl node.Node, inputs map[string]any) {
				workers <- struct{}{}
				defer func() { <-workers }()
				start := time.Now()
				output, err := impl.Run(ctx, inputs)
				results <- nodeResult{
					id:       impl.ID(),
					nodeType: impl.Type(),
					output:   output,
					duration: time.Since(start),
					err:      err,
				}
			}(impl, inputs)
		}

		if len(inflight) == 0 {
			if dispatched == 0 {
				// Guard-skips made progress; give the loop a beat before
				// recomputing the frontier.
				time.Sleep(e.cfg.PollInterval)
			}
			continue
		}

		// Block until at least one in-flight node finishes, then drain
		// whatever else is already done.
		select {
		case res := <-results:
			if err := e.settle(res, completed, inflight); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
		for drained := true; drained; {
			select {
			case res := <-results:
				if err := e.settle(res, completed, inflight); err != nil {
					return err
				}
			default:
				drained = false
			}
		}
	}

	e.logger.Info().Int("completed", len(completed)).Int("skipped", len(skipped)).Msg("workflow execution completed")
	return nil
}

// partition splits pending nodes into those whose every dependency is
// terminal (ready, or skip-propagated when all upstreams were skipped) and
// the rest. Returned slices are sorted for deterministic logging only.
func (e *Engine) partition(completed, skipped, inflight map[string]struct{}) (ready, toSkip []string) {
	for id := range e.graph.Nodes {
		if _, ok := completed[id]; ok {
			continue
		}
		if _, ok := skipped[id]; ok {
			continue
		}
		if _, ok := inflight[id]; ok {
			continue
		}

		deps := e.graph.Deps[id]
		allTerminal := true
		allSkipped := len(deps) > 0
		for dep := range deps {
			_, depCompleted := completed[dep]
			_, depSkipped := skipped[dep]
			if !depCompleted && !depSkipped {
				allTerminal = false
				break
			}
			if !depSkipped {
				allSkipped = false
			}
		}
		if !allTerminal {
			continue
		}
		if allSkipped {
			toSkip = append(toSkip, id)
		} else {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)
	sort.Strings(toSkip)
	return ready, toSkip
}

// pending lists the non-terminal node ids, sorted.
func (e *Engine) pending(completed, skipped map[string]struct{}) []string {
	var out []string
	for id := range e.graph.Nodes {
		if _, ok := completed[id]; ok {
			continue
		}
		if _, ok := skipped[id]; ok {
			continue
		}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// settle applies one finished node result to the run state.
func (e *Engine) settle(res nodeResult, completed, inflight map[string]struct{}) error {
	delete(inflight, res.id)
	if res.err != nil {
		e.logger.Error().Str("node", res.id).Err(res.err).Msg("node failed")
		e.observers.NotifyNodeFailed(e.runID, res.id, res.nodeType, res.err)
		return domain.NewNodeError(res.id, res.nodeType, res.err)
	}
	e.memory.Set(res.id, res.output)
	completed[res.id] = struct{}{}
	e.logger.Info().Str("node", res.id).Dur("duration", res.duration).Msg("node completed")
	e.observers.NotifyNodeCompleted(e.runID, res.id, res.nodeType, res.duration)
	return nil
}

// evaluateGuard renders a guard template against the snapshot and
// interprets the result as a boolean. Empty guards allow the node; any
// failure suppresses it.
func (e *Engine) evaluateGuard(condition string, vars map[string]any) bool {
	if strings.TrimSpace(condition) == "" {
		return true
	}
	rendered := e.templates.ExpandString(condition, vars)
	allowed, err := e.conditions.EvaluateBool(rendered, vars)
	if err != nil {
		e.logger.Warn().Str("condition", condition).Err(err).Msg("condition evaluation failed, treating as false")
		return false
	}
	return allowed
}
