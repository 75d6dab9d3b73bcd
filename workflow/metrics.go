package workflow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus metrics for workflow execution.
//
// Exposed metrics (namespace "workflow"):
//   - runs_total{status}: finished runs by final status
//   - nodes_total{status}: attempted nodes by terminal status
//   - node_latency_ms{node_type,status}: node execution duration
//   - run_duration_ms{status}: run duration
//   - inflight_runs: runs currently executing
//
// Labels are bounded: node types come from the registry and statuses from a
// fixed set, so run and node IDs never become label values. Unregistered
// node types are reported as "unknown".
type Metrics struct {
	runs         *prometheus.CounterVec
	nodes        *prometheus.CounterVec
	nodeLatency  *prometheus.HistogramVec
	runDuration  *prometheus.HistogramVec
	inflightRuns prometheus.Gauge
}

// NewMetrics creates and registers the workflow metrics with registry.
// A nil registry means prometheus.DefaultRegisterer.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workflow",
			Name:      "runs_total",
			Help:      "Finished workflow runs by final status",
		}, []string{"status"}),
		nodes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workflow",
			Name:      "nodes_total",
			Help:      "Attempted nodes by terminal status",
		}, []string{"status"}),
		nodeLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "workflow",
			Name:      "node_latency_ms",
			Help:      "Node execution duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 60000},
		}, []string{"node_type", "status"}),
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "workflow",
			Name:      "run_duration_ms",
			Help:      "Workflow run duration in milliseconds",
			Buckets:   []float64{10, 100, 1000, 5000, 10000, 60000, 300000},
		}, []string{"status"}),
		inflightRuns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "workflow",
			Name:      "inflight_runs",
			Help:      "Workflow runs currently executing",
		}),
	}
}

func (m *Metrics) runStarted() {
	if m == nil {
		return
	}
	m.inflightRuns.Inc()
}

func (m *Metrics) runFinished(status RunStatus, d time.Duration) {
	if m == nil {
		return
	}
	m.inflightRuns.Dec()
	m.runs.WithLabelValues(string(status)).Inc()
	m.runDuration.WithLabelValues(string(status)).Observe(float64(d.Milliseconds()))
}

// unknownNodeType labels nodes loaded without a registered constructor.
const unknownNodeType = "unknown"

func (m *Metrics) nodeFinished(n Node, status NodeStatus, d time.Duration) {
	if m == nil {
		return
	}
	nodeType := n.Type()
	if _, ok := n.(*UnknownNode); ok {
		nodeType = unknownNodeType
	}
	m.nodes.WithLabelValues(string(status)).Inc()
	m.nodeLatency.WithLabelValues(nodeType, string(status)).Observe(float64(d.Milliseconds()))
}
