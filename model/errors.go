package model

import (
	"errors"
	"fmt"
)

// Workflow build/execute time errors.
var (
	ErrEmptyWorkflow      = errors.New("workflow has no tasks")
	ErrCircularDependency = errors.New("circular dependency")
	ErrTaskNotFound       = errors.New("task not found")
	ErrExecutionFailed    = errors.New("workflow execution failed")
	ErrWorkflowTimeout    = errors.New("workflow timed out")
)

// TaskErrorCode classifies a task level failure.
type TaskErrorCode string

const (
	ErrorCodeExecutionFailed  TaskErrorCode = "executionFailed"
	ErrorCodeTimeout          TaskErrorCode = "timeout"
	ErrorCodeCancelled        TaskErrorCode = "cancelled"
	ErrorCodeInvalidInput     TaskErrorCode = "invalidInput"
	ErrorCodeDependencyFailed TaskErrorCode = "dependencyFailed"
	ErrorCodeConditionNotMet  TaskErrorCode = "conditionNotMet"
)

// TaskError is the error type handlers return (or the engine synthesizes) for
// a failed task attempt.
type TaskError struct {
	Code    TaskErrorCode
	Message string
	Cause   error
}

func (e *TaskError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *TaskError) Unwrap() error {
	return e.Cause
}

// NewExecutionFailedError creates a task error for a handler failure.
func NewExecutionFailedError(message string, cause error) *TaskError {
	return &TaskError{Code: ErrorCodeExecutionFailed, Message: message, Cause: cause}
}

// NewTimeoutError creates a task error for an attempt that exceeded its timeout.
func NewTimeoutError(taskName string) *TaskError {
	return &TaskError{Code: ErrorCodeTimeout, Message: fmt.Sprintf("task %v timed out", taskName)}
}

// NewCancelledError creates a task error for an attempt interrupted by run cancellation.
func NewCancelledError(taskName string) *TaskError {
	return &TaskError{Code: ErrorCodeCancelled, Message: fmt.Sprintf("task %v cancelled", taskName)}
}

// NewInvalidInputError creates a task error for unusable handler input.
func NewInvalidInputError(message string) *TaskError {
	return &TaskError{Code: ErrorCodeInvalidInput, Message: message}
}

// NewDependencyFailedError creates a task error for a dependency that did not complete.
func NewDependencyFailedError(taskName, dependency string) *TaskError {
	return &TaskError{Code: ErrorCodeDependencyFailed, Message: fmt.Sprintf("task %v dependency %v failed", taskName, dependency)}
}

// NewConditionNotMetError creates a task error for an unsatisfied task condition.
func NewConditionNotMetError(taskName, condition string) *TaskError {
	return &TaskError{Code: ErrorCodeConditionNotMet, Message: fmt.Sprintf("task %v condition %q not met", taskName, condition)}
}
