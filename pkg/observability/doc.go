/*
Package observability turns engine lifecycle events into structured logs and
Prometheus metrics.

	m := observability.NewMetrics(prometheus.DefaultRegisterer)
	engine, _ := runtime.NewEngine(sessions, model,
		runtime.WithLifecycleHooks(observability.Hooks(m, logger)))
*/
package observability
