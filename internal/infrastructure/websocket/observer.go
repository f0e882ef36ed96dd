package websocket

import (
	"time"

	"github.com/flowrunio/flowrun/internal/domain"
)

// RunObserver adapts the hub to the monitoring.Observer interface,
// broadcasting one frame per lifecycle event.
type RunObserver struct {
	hub *Hub
}

// NewRunObserver creates an observer feeding the hub.
func NewRunObserver(hub *Hub) *RunObserver {
	return &RunObserver{hub: hub}
}

type eventFrame struct {
	Event      string `json:"event"`
	WorkflowID string `json:"workflow_id,omitempty"`
	RunID      string `json:"run_id"`
	NodeID     string `json:"node_id,omitempty"`
	NodeType   string `json:"node_type,omitempty"`
	Status     string `json:"status,omitempty"`
	Reason     string `json:"reason,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (o *RunObserver) RunStarted(workflowID, runID string) {
	o.hub.Broadcast(eventFrame{Event: "run_started", WorkflowID: workflowID, RunID: runID})
}

func (o *RunObserver) RunFinished(workflowID, runID string, status domain.RunStatus) {
	o.hub.Broadcast(eventFrame{Event: "run_finished", WorkflowID: workflowID, RunID: runID, Status: string(status)})
}

func (o *RunObserver) NodeStarted(runID, nodeID, nodeType string) {
	o.hub.Broadcast(eventFrame{Event: "node_started", RunID: runID, NodeID: nodeID, NodeType: nodeType})
}

func (o *RunObserver) NodeCompleted(runID, nodeID, nodeType string, duration time.Duration) {
	o.hub.Broadcast(eventFrame{Event: "node_completed", RunID: runID, NodeID: nodeID, NodeType: nodeType, DurationMS: duration.Milliseconds()})
}

func (o *RunObserver) NodeSkipped(runID, nodeID, nodeType, reason string) {
	o.hub.Broadcast(eventFrame{Event: "node_skipped", RunID: runID, NodeID: nodeID, NodeType: nodeType, Reason: reason})
}

func (o *RunObserver) NodeFailed(runID, nodeID, nodeType string, err error) {
	o.hub.Broadcast(eventFrame{Event: "node_failed", RunID: runID, NodeID: nodeID, NodeType: nodeType, Error: err.Error()})
}
