package observability

import (
	"context"
	"net/http"

	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "agent"

// Metrics records execution, node and progress metrics.
type Metrics struct {
	registry *prometheus.Registry

	Executions        *prometheus.CounterVec
	ExecutionDuration *prometheus.HistogramVec
	Running           prometheus.Gauge
	NodeVisits        *prometheus.CounterVec
	ProgressEvents    *prometheus.CounterVec
	BusyRejections    prometheus.Counter
	Evictions         prometheus.Counter
}

// NewMetrics creates the collectors and registers them, together with the
// Go runtime and process collectors, on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "executions_total",
				Help:      "Total number of finished graph executions",
			},
			[]string{"outcome"},
		),
		ExecutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "execution_duration_seconds",
				Help:      "Duration of graph executions",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"outcome"},
		),
		Running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "executions_running",
			Help:      "Number of graph executions in flight",
		}),
		NodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_visits_total",
				Help:      "Total number of node visits",
			},
			[]string{"node_id"},
		),
		ProgressEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "progress_events_total",
				Help:      "Total number of progress events by step and level",
			},
			[]string{"step", "level"},
		),
		BusyRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "busy_rejections_total",
			Help:      "Requests rejected because their session was already running",
		}),
		Evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_evicted_total",
			Help:      "Sessions evicted by the idle sweeper",
		}),
	}

	m.registry.MustRegister(
		m.Executions, m.ExecutionDuration, m.Running, m.NodeVisits,
		m.ProgressEvents, m.BusyRejections, m.Evictions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnExecutionStart: func(ctx context.Context, e *domain.ExecutionEvent) {
			m.Running.Inc()
		},
		OnExecutionEnd: func(ctx context.Context, e *domain.ExecutionEvent) {
			m.Running.Dec()
			outcome := string(e.Outcome)
			m.Executions.WithLabelValues(outcome).Inc()
			m.ExecutionDuration.WithLabelValues(outcome).Observe(e.Duration.Seconds())
		},
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(e.NodeID).Inc()
		},
		OnProgress: func(ctx context.Context, e *domain.ProgressEvent) {
			m.ProgressEvents.WithLabelValues(e.Step, string(e.Level)).Inc()
		},
		OnBusy: func(ctx context.Context, sessionID string) {
			m.BusyRejections.Inc()
		},
		OnEvict: func(ctx context.Context, sessionID string) {
			m.Evictions.Inc()
		},
	}
}
