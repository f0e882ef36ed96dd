package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/flowrunio/flowrun/internal/domain"
)

type recordingObserver struct {
	events []string
}

func (r *recordingObserver) RunStarted(string, string) { r.events = append(r.events, "run_started") }
func (r *recordingObserver) RunFinished(_, _ string, status domain.RunStatus) {
	r.events = append(r.events, "run_finished:"+string(status))
}
func (r *recordingObserver) NodeStarted(_, nodeID, _ string) {
	r.events = append(r.events, "started:"+nodeID)
}
func (r *recordingObserver) NodeCompleted(_, nodeID, _ string, _ time.Duration) {
	r.events = append(r.events, "completed:"+nodeID)
}
func (r *recordingObserver) NodeSkipped(_, nodeID, _, reason string) {
	r.events = append(r.events, "skipped:"+nodeID+":"+reason)
}
func (r *recordingObserver) NodeFailed(_, nodeID, _ string, _ error) {
	r.events = append(r.events, "failed:"+nodeID)
}

func TestObserverManagerFanOut(t *testing.T) {
	m := NewObserverManager()
	first := &recordingObserver{}
	second := &recordingObserver{}
	m.Attach(first)
	m.Attach(second)

	m.NotifyRunStarted("wf", "run")
	m.NotifyNodeStarted("run", "a", "print")
	m.NotifyNodeCompleted("run", "a", "print", time.Millisecond)
	m.NotifyNodeSkipped("run", "b", "print", "condition false")
	m.NotifyNodeFailed("run", "c", "boom", errors.New("kaboom"))
	m.NotifyRunFinished("wf", "run", domain.RunStatusCompleted)

	want := []string{
		"run_started",
		"started:a",
		"completed:a",
		"skipped:b:condition false",
		"failed:c",
		"run_finished:COMPLETED",
	}
	assert.Equal(t, want, first.events)
	assert.Equal(t, want, second.events)
}

func TestObserverManagerNilSafe(t *testing.T) {
	var m *ObserverManager
	assert.NotPanics(t, func() {
		m.NotifyRunStarted("wf", "run")
	})

	manager := NewObserverManager()
	manager.Attach(nil)
	assert.NotPanics(t, func() {
		manager.NotifyRunFinished("wf", "run", domain.RunStatusFailed)
	})
}
