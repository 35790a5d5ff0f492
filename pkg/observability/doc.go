/*
Package observability turns the lifecycle hooks of the agent service into
Prometheus metrics and structured log lines.

Metrics owns a private registry, so several instances can coexist in tests.
Hooks from different sources are combined with Chain.
*/
package observability
