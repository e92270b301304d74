package engine

import (
	"context"
	"sync"
	"time"

	"github.com/viant/stepflow/model"
)

// Run is the registry record of one Execute call. Cancel and pause act on
// this record: cancellation propagates through the run context to every task
// context, pausing only gates dispatch of further tasks.
type Run struct {
	ID           string    `json:"id"`
	WorkflowID   string    `json:"workflowId"`
	WorkflowName string    `json:"workflowName"`
	StartedAt    time.Time `json:"startedAt"`

	CompletedAt *time.Time `json:"completedAt,omitempty"`

	mu     sync.RWMutex
	status model.WorkflowStatus
	cancel context.CancelFunc
}

// Status returns the current run status.
func (r *Run) Status() model.WorkflowStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

func (r *Run) setStatus(status model.WorkflowStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
}

// IsPaused reports whether dispatch is currently suspended.
func (r *Run) IsPaused() bool {
	return r.Status() == model.WorkflowStatusPaused
}

// IsCancelled reports whether the run was cancelled explicitly.
func (r *Run) IsCancelled() bool {
	return r.Status() == model.WorkflowStatusCancelled
}

func (r *Run) finish(status model.WorkflowStatus, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == model.WorkflowStatusCancelled && status != model.WorkflowStatusCancelled {
		// an explicit cancel wins over the loop's own verdict
		status = model.WorkflowStatusCancelled
	}
	r.status = status
	r.CompletedAt = &at
}

// ExecutionResult is the post-run snapshot returned by Execute.
type ExecutionResult struct {
	RunID        string                       `json:"runId"`
	WorkflowID   string                       `json:"workflowId"`
	WorkflowName string                       `json:"workflowName"`
	Status       model.WorkflowStatus         `json:"status"`
	TaskResults  map[string]*model.TaskResult `json:"taskResults"`
	StartedAt    time.Time                    `json:"startedAt"`
	CompletedAt  time.Time                    `json:"completedAt"`
	Duration     time.Duration                `json:"duration"`
	Error        string                       `json:"error,omitempty"`
}
