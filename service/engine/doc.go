// Package engine drives a workflow to completion: it dispatches runnable
// tasks sequentially or in parallel under a weighted semaphore, applies the
// fixed-delay retry loop, enforces the optional workflow deadline and keeps a
// registry of in-flight runs for cancel/pause/resume.
package engine
