// Package monitoring provides run observability: an observer fan-out for
// run and node lifecycle events plus Prometheus collectors.
package monitoring

import (
	"sync"
	"time"

	"github.com/flowrunio/flowrun/internal/domain"
)

// Observer receives run and node lifecycle notifications from the engine
// coordinator. Implementations must not block.
type Observer interface {
	RunStarted(workflowID, runID string)
	RunFinished(workflowID, runID string, status domain.RunStatus)
	NodeStarted(runID, nodeID, nodeType string)
	NodeCompleted(runID, nodeID, nodeType string, duration time.Duration)
	NodeSkipped(runID, nodeID, nodeType, reason string)
	NodeFailed(runID, nodeID, nodeType string, err error)
}

// ObserverManager fans notifications out to every attached observer.
type ObserverManager struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewObserverManager creates an empty manager.
func NewObserverManager() *ObserverManager {
	return &ObserverManager{}
}

// Attach registers an observer.
func (m *ObserverManager) Attach(o Observer) {
	if o == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

func (m *ObserverManager) each(fn func(Observer)) {
	if m == nil {
		return
	}
	m.mu.RLock()
	observers := make([]Observer, len(m.observers))
	copy(observers, m.observers)
	m.mu.RUnlock()
	for _, o := range observers {
		fn(o)
	}
}

func (m *ObserverManager) NotifyRunStarted(workflowID, runID string) {
	m.each(func(o Observer) { o.RunStarted(workflowID, runID) })
}

func (m *ObserverManager) NotifyRunFinished(workflowID, runID string, status domain.RunStatus) {
	m.each(func(o Observer) { o.RunFinished(workflowID, runID, status) })
}

func (m *ObserverManager) NotifyNodeStarted(runID, nodeID, nodeType string) {
	m.each(func(o Observer) { o.NodeStarted(runID, nodeID, nodeType) })
}

func (m *ObserverManager) NotifyNodeCompleted(runID, nodeID, nodeType string, duration time.Duration) {
	m.each(func(o Observer) { o.NodeCompleted(runID, nodeID, nodeType, duration) })
}

func (m *ObserverManager) NotifyNodeSkipped(runID, nodeID, nodeType, reason string) {
	m.each(func(o Observer) { o.NodeSkipped(runID, nodeID, nodeType, reason) })
}

func (m *ObserverManager) NotifyNodeFailed(runID, nodeID, nodeType string, err error) {
	m.each(func(o Observer) { o.NodeFailed(runID, nodeID, nodeType, err) })
}
