// Package memory provides the shared run memory: a process-local mapping
// from node id to the output that node last produced.
package memory

import (
	"strings"
	"sync"
)

// InputsKey is the reserved top-level key holding the initial input bundle.
const InputsKey = "inputs"

// Memory maps node ids to their outputs. All operations are serialised
// under a single mutex. Inner structures returned by Get and Snapshot are
// shared; callers may read them but must not mutate.
type Memory struct {
	mu   sync.Mutex
	data map[string]any
}

// New creates a Memory seeded with the given top-level entries.
func New(initial map[string]any) *Memory {
	data := make(map[string]any, len(initial))
	for k, v := range initial {
		data[k] = v
	}
	return &Memory{data: data}
}

// Get walks a dotted path through nested maps. The second return value is
// false when any segment is missing or traverses a non-map value.
func (m *Memory) Get(path string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var value any = m.data
	for _, key := range strings.Split(path, ".") {
		obj, ok := value.(map[string]any)
		if !ok {
			return nil, false
		}
		value, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return value, true
}

// Set stores a top-level entry atomically.
func (m *Memory) Set(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

// Snapshot returns a shallow copy of the top-level mapping, used to seed
// template contexts so evaluation sees a consistent view.
func (m *Memory) Snapshot() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := make(map[string]any, len(m.data))
	for k, v := range m.data {
		snap[k] = v
	}
	return snap
}
