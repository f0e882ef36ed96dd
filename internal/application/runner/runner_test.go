package runner

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowrunio/flowrun/internal/domain"
	"github.com/flowrunio/flowrun/internal/executor"
	"github.com/flowrunio/flowrun/internal/infrastructure/storage"
	"github.com/flowrunio/flowrun/internal/node"
	"github.com/flowrunio/flowrun/internal/node/builtin"
	"github.com/flowrunio/flowrun/internal/parser"
)

func newTestRunner(t *testing.T, store domain.Store) *Runner {
	t.Helper()
	registry := node.NewRegistry()
	require.NoError(t, builtin.Register(registry))
	return New(store, registry, nil, executor.DefaultConfig(), zerolog.Nop())
}

func TestExecuteRecordsCompletedRun(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	run := newTestRunner(t, store)

	graph, err := parser.Parse([]byte(`
id: ok
nodes:
  a:
    type: print
    inputs: {message: "{{ inputs.query }}"}
`))
	require.NoError(t, err)

	result, err := run.Execute(ctx, graph, uuid.New(), map[string]any{"query": "hi"})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, result.Status)

	record, err := store.GetRun(ctx, result.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, record.Status)
	require.Contains(t, record.GlobalMemory, "a")
	assert.Contains(t, record.GlobalMemory, "inputs")
}

func TestExecuteRecordsFailedRun(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	run := newTestRunner(t, store)

	graph, err := parser.Parse([]byte(`
id: broken
nodes:
  a:
    type: no_such_type
`))
	require.NoError(t, err)

	result, err := run.Execute(ctx, graph, uuid.New(), map[string]any{})
	require.Error(t, err)
	assert.Equal(t, domain.RunStatusFailed, result.Status)

	record, err := store.GetRun(ctx, result.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, record.Status)
}

func TestExecuteWithoutStore(t *testing.T) {
	run := newTestRunner(t, nil)

	graph, err := parser.Parse([]byte(`
id: nostore
nodes:
  a:
    type: print
    inputs: {message: hi}
`))
	require.NoError(t, err)

	result, err := run.Execute(context.Background(), graph, uuid.Nil, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, result.Status)
	assert.Contains(t, result.Memory, "a")
}
