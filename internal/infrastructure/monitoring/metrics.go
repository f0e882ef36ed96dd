package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/flowrunio/flowrun/internal/domain"
)

// Metrics exports engine counters and histograms. It implements Observer
// so the engine stays unaware of Prometheus.
type Metrics struct {
	runsTotal    *prometheus.CounterVec
	nodesTotal   *prometheus.CounterVec
	nodeDuration *prometheus.HistogramVec
}

// NewMetrics registers the collectors with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowrun",
			Name:      "runs_total",
			Help:      "Workflow runs by terminal status.",
		}, []string{"status"}),
		nodesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowrun",
			Name:      "nodes_total",
			Help:      "Node outcomes by type and status.",
		}, []string{"type", "status"}),
		nodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flowrun",
			Name:      "node_duration_seconds",
			Help:      "Node execution duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
	}
}

func (m *Metrics) RunStarted(string, string) {}

func (m *Metrics) RunFinished(_, _ string, status domain.RunStatus) {
	m.runsTotal.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) NodeStarted(string, string, string) {}

func (m *Metrics) NodeCompleted(_, _, nodeType string, duration time.Duration) {
	m.nodesTotal.WithLabelValues(nodeType, "completed").Inc()
	m.nodeDuration.WithLabelValues(nodeType).Observe(duration.Seconds())
}

func (m *Metrics) NodeSkipped(_, _, nodeType, _ string) {
	m.nodesTotal.WithLabelValues(nodeType, "skipped").Inc()
}

func (m *Metrics) NodeFailed(_, _, nodeType string, _ error) {
	m.nodesTotal.WithLabelValues(nodeType, "failed").Inc()
}
