/*
Package observability turns engine lifecycle hooks into Prometheus metrics.

A Collector exposes counters for notifications, trap churn, array mutations,
dropped notifications and disposals. Wire it into an engine through its hooks
and register it on any prometheus.Registerer:

	metrics := observability.NewCollector()
	prometheus.MustRegister(metrics)
	eng := bindery.New(bindery.WithLifecycleHooks(metrics.Hooks()))
*/
package observability
