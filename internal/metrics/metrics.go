// Package metrics collects the gateway's Prometheus instrumentation
// under one registry, rather than registering collectors against
// prometheus's process-global default registry - so cmd/anttp can
// mount exactly the metrics this process emits on /metrics, nothing
// pulled in transitively by an unrelated import.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry holds every collector the gateway exposes: cache hit/miss
// counters per record kind and tier (internal/cache/hybrid) and
// write-command lifecycle counters plus a live queue-depth gauge
// (internal/command).
type Registry struct {
	registry *prometheus.Registry

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	CommandsSubmitted prometheus.Counter
	CommandsCompleted prometheus.Counter
	CommandsAborted   prometheus.Counter
	QueueDepth        prometheus.Gauge
}

// New builds and registers every collector into a fresh registry.
func New() *Registry {
	reg := prometheus.NewRegistry()

	m := &Registry{
		registry: reg,
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anttp_cache_hits_total",
			Help: "Hybrid cache hits, labelled by record kind and tier (memory or disk).",
		}, []string{"kind", "tier"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anttp_cache_misses_total",
			Help: "Hybrid cache misses that fell through to the upstream fetcher, labelled by record kind.",
		}, []string{"kind"}),
		CommandsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "anttp_commands_submitted_total",
			Help: "Write commands accepted by the executor.",
		}),
		CommandsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "anttp_commands_completed_total",
			Help: "Write commands that reached the completed state.",
		}),
		CommandsAborted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "anttp_commands_aborted_total",
			Help: "Write commands that reached the aborted state.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "anttp_command_queue_depth",
			Help: "Commands currently waiting in the executor's ingest queue.",
		}),
	}

	reg.MustRegister(m.CacheHits, m.CacheMisses, m.CommandsSubmitted, m.CommandsCompleted, m.CommandsAborted, m.QueueDepth)
	return m
}

// Gatherer exposes the underlying registry to an HTTP handler
// (promhttp.HandlerFor) without letting callers register further
// collectors against it directly.
func (m *Registry) Gatherer() prometheus.Gatherer {
	return m.registry
}
