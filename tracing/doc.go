// Package tracing integrates observability back-ends with the workflow
// engine. All instrumentation lives in a separate package so applications
// that do not need tracing can keep it out of their hot path; without Init
// every span is a no-op.
package tracing
