package model

// TaskStatus represents the current status of a task
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusQueued  TaskStatus = "queued"
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusRetrying is an intermediate status entered only by the engine's
	// retry loop; the task returns to running on its next attempt.
	TaskStatusRetrying  TaskStatus = "retrying"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusTimedOut  TaskStatus = "timedOut"
	TaskStatusSkipped   TaskStatus = "skipped"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// IsTerminal returns true when the task can no longer change status.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusTimedOut, TaskStatusSkipped, TaskStatusCancelled:
		return true
	}
	return false
}

// IsFailure returns true for statuses the retry loop treats as a failed
// attempt. A timed out attempt counts the same as a failed one.
func (s TaskStatus) IsFailure() bool {
	return s == TaskStatusFailed || s == TaskStatusTimedOut
}

// WorkflowStatus represents the current status of a workflow
type WorkflowStatus string

const (
	WorkflowStatusCreated   WorkflowStatus = "created"
	WorkflowStatusQueued    WorkflowStatus = "queued"
	WorkflowStatusRunning   WorkflowStatus = "running"
	WorkflowStatusPaused    WorkflowStatus = "paused"
	WorkflowStatusCompleted WorkflowStatus = "completed"
	WorkflowStatusFailed    WorkflowStatus = "failed"
	WorkflowStatusCancelled WorkflowStatus = "cancelled"
)

// IsTerminal returns true when the workflow run has finished.
func (s WorkflowStatus) IsTerminal() bool {
	switch s {
	case WorkflowStatusCompleted, WorkflowStatusFailed, WorkflowStatusCancelled:
		return true
	}
	return false
}
