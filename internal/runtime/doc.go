// Package runtime contains the run driver: the execution loop that walks a
// committed workflow's steps in order, records each output into the run's
// context store, and assembles the RunResult.
//
// The driver enforces the fail-soft contract's boundary. Steps are expected
// to convert anticipated conditions (missing input, unconfigured or failing
// generator) into degraded outputs themselves; the driver only hard-fails a
// run for structural problems: an uncommitted workflow, a cancelled context,
// or a step that panics or returns an error.
package runtime
