// Package metrics registers the prometheus collectors shared by forkdag
// and hooks: reorg counts, dispatch retry exhaustion, and queue shedding.
// Grounded on orbas1-Synnergy's core.HealthLogger (its own prometheus
// registry + gauge/counter set).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry holds every collector chainhook-core registers. Callers
// typically construct one Registry per process and pass it (or the
// sub-counters) into forkdag/hooks settings.
type Registry struct {
	registry *prometheus.Registry

	ReorgsTotal          *prometheus.CounterVec
	DispatchRetriesTotal *prometheus.CounterVec
	DispatchExhaustedTotal *prometheus.CounterVec
	QueueShedTotal       *prometheus.CounterVec
	QueueDepth           *prometheus.GaugeVec
	NodesPruned          *prometheus.CounterVec
}

// New constructs and registers every collector against a fresh registry.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		ReorgsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chainhook",
			Name:      "reorgs_total",
			Help:      "Number of ChainUpdatedWithReorg events emitted, by chain.",
		}, []string{"chain"}),
		DispatchRetriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chainhook",
			Name:      "dispatch_retries_total",
			Help:      "Number of HTTP delivery retry attempts, by hook uuid.",
		}, []string{"hook"}),
		DispatchExhaustedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chainhook",
			Name:      "dispatch_exhausted_total",
			Help:      "Number of occurrences dropped after exhausting retries, by hook uuid.",
		}, []string{"hook"}),
		QueueShedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chainhook",
			Name:      "queue_shed_total",
			Help:      "Number of occurrences dropped due to a full dispatcher queue.",
		}, []string{"hook"}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "chainhook",
			Name:      "dispatch_queue_depth",
			Help:      "Current depth of the dispatcher's delivery queue.",
		}, []string{"worker"}),
		NodesPruned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chainhook",
			Name:      "forkdag_nodes_pruned_total",
			Help:      "Number of fork-graph nodes pruned by the retention window, by chain.",
		}, []string{"chain"}),
	}

	reg.MustRegister(
		r.ReorgsTotal,
		r.DispatchRetriesTotal,
		r.DispatchExhaustedTotal,
		r.QueueShedTotal,
		r.QueueDepth,
		r.NodesPruned,
	)
	return r
}

// Gatherer exposes the underlying registry for wiring into an HTTP
// /metrics handler (promhttp.HandlerFor).
func (r *Registry) Gatherer() prometheus.Gatherer { return r.registry }
