/*
Package observability provides prometheus instrumentation for engine runs.

Metrics are delivered through domain.LifecycleHooks, so they compose with any
other hooks via domain.JoinHooks and attach to an engine with WithHooks. The
collectors cover run outcomes, per-step durations, and degradations by
reason.
*/
package observability
