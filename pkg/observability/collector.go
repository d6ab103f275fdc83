package observability

import (
	"github.com/aretw0/bindery/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bindery"

// Collector aggregates lifecycle events into Prometheus metrics.
type Collector struct {
	notifications *prometheus.CounterVec
	listeners     *prometheus.CounterVec
	traps         *prometheus.CounterVec
	arrayOps      *prometheus.CounterVec
	dropped       *prometheus.CounterVec
	disposals     prometheus.Counter
	removed       prometheus.Counter
}

// NewCollector creates a Collector with unregistered metrics.
func NewCollector() *Collector {
	return &Collector{
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Identifiers whose listeners were notified, by context root.",
		}, []string{"root"}),
		listeners: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listener_calls_total",
			Help:      "Listener invocations, by context root.",
		}, []string{"root"}),
		traps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trap_changes_total",
			Help:      "Accessor traps installed or removed, by action and kind.",
		}, []string{"action", "kind"}),
		arrayOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "array_mutations_total",
			Help:      "Mutations of observed arrays, by operation.",
		}, []string{"op"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "depth_exceeded_total",
			Help:      "Notifications dropped by the recursion bound, by context root.",
		}, []string{"root"}),
		disposals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disposals_total",
			Help:      "Owners disposed.",
		}),
		removed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disposed_registrations_total",
			Help:      "Registrations removed by owner disposal.",
		}),
	}
}

// Hooks returns lifecycle hooks feeding the collector.
func (c *Collector) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNotify: func(e *domain.NotifyEvent) {
			c.notifications.WithLabelValues(e.RootID).Inc()
			c.listeners.WithLabelValues(e.RootID).Add(float64(e.Listeners))
		},
		OnTrapInstall: func(e *domain.TrapEvent) {
			c.traps.WithLabelValues("install", e.Kind).Inc()
		},
		OnTrapRemove: func(e *domain.TrapEvent) {
			c.traps.WithLabelValues("remove", e.Kind).Inc()
		},
		OnArrayChange: func(e *domain.ArrayEvent) {
			c.arrayOps.WithLabelValues(e.Op).Inc()
		},
		OnDepthExceeded: func(e *domain.NotifyEvent) {
			c.dropped.WithLabelValues(e.RootID).Inc()
		},
		OnDispose: func(e *domain.DisposeEvent) {
			c.disposals.Inc()
			c.removed.Add(float64(e.Removed))
		},
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.notifications.Describe(ch)
	c.listeners.Describe(ch)
	c.traps.Describe(ch)
	c.arrayOps.Describe(ch)
	c.dropped.Describe(ch)
	c.disposals.Describe(ch)
	c.removed.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.notifications.Collect(ch)
	c.listeners.Collect(ch)
	c.traps.Collect(ch)
	c.arrayOps.Collect(ch)
	c.dropped.Collect(ch)
	c.disposals.Collect(ch)
	c.removed.Collect(ch)
}
