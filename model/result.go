package model

import (
	"time"
)

// TaskResult is the immutable outcome of a finished task. The engine stores
// one result per task name on the owning workflow; a stored result is never
// mutated afterwards.
type TaskResult struct {
	TaskID      string        `json:"taskId" yaml:"taskId"`
	TaskName    string        `json:"taskName" yaml:"taskName"`
	Status      TaskStatus    `json:"status" yaml:"status"`
	Output      interface{}   `json:"output,omitempty" yaml:"output,omitempty"`
	Error       string        `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt   time.Time     `json:"startedAt" yaml:"startedAt"`
	CompletedAt *time.Time    `json:"completedAt,omitempty" yaml:"completedAt,omitempty"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
	RetryCount  int           `json:"retryCount,omitempty" yaml:"retryCount,omitempty"`
}

// Succeeded returns true when the task completed.
func (r *TaskResult) Succeeded() bool {
	return r != nil && r.Status == TaskStatusCompleted
}

// SkippedResult synthesizes a result for a task the caller marked skipped.
func SkippedResult(task *Task) *TaskResult {
	now := time.Now()
	return &TaskResult{
		TaskID:      task.ID,
		TaskName:    task.Config.Name,
		Status:      TaskStatusSkipped,
		StartedAt:   now,
		CompletedAt: &now,
	}
}
