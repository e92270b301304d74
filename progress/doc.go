// Package progress keeps aggregated task counters for a single workflow run.
// The tracker travels in the run context so the engine and host callbacks can
// observe counts without a global registry.
package progress
