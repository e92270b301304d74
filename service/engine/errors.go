package engine

import "errors"

var (
	// ErrRunNotFound is returned for registry operations on unknown run ids.
	ErrRunNotFound = errors.New("engine: run not found")

	// ErrRunFinished is returned when cancelling or pausing a terminal run.
	ErrRunFinished = errors.New("engine: run already finished")

	// ErrAlreadyExecuted is returned when a workflow is handed to Execute a
	// second time; a workflow is owned by exactly one run for its lifetime.
	ErrAlreadyExecuted = errors.New("engine: workflow already executed")
)
