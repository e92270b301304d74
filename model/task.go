package model

import (
	"context"
	"time"

	"github.com/viant/stepflow/internal/clock"
	"github.com/viant/stepflow/internal/idgen"
	"github.com/viant/stepflow/runtime/execution"
)

// Handler is the sole integration point with host logic. It receives the task
// context holding dependency outputs and returns the task output (any JSON
// marshalable value) or an error, ideally a *TaskError.
type Handler func(ctx context.Context, taskCtx *execution.TaskContext) (interface{}, error)

// TaskConfig describes a named unit of work.
type TaskConfig struct {
	Name         string                 `json:"name" yaml:"name"`
	Description  string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Timeout      time.Duration          `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	RetryEnabled bool                   `json:"retryEnabled,omitempty" yaml:"retryEnabled,omitempty"`
	MaxRetries   int                    `json:"maxRetries,omitempty" yaml:"maxRetries,omitempty"`
	RetryDelay   time.Duration          `json:"retryDelay,omitempty" yaml:"retryDelay,omitempty"`
	DependsOn    []string               `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
	// Condition is stored for the host's benefit; the engine never evaluates it.
	Condition string                 `json:"condition,omitempty" yaml:"condition,omitempty"`
	Tags      []string               `json:"tags,omitempty" yaml:"tags,omitempty"`
	Priority  int                    `json:"priority,omitempty" yaml:"priority,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Task is a configurable unit of async work. Built once via the fluent
// builder, then mutated in place only by the engine during a run.
type Task struct {
	ID         string     `json:"id" yaml:"id"`
	Config     TaskConfig `json:"config" yaml:"config"`
	Handler    Handler    `json:"-" yaml:"-"`
	Status     TaskStatus `json:"status" yaml:"status"`
	RetryCount int        `json:"retryCount,omitempty" yaml:"retryCount,omitempty"`
}

// NewTask creates a pending task with the given name.
func NewTask(name string) *Task {
	return &Task{
		ID:     idgen.New(),
		Config: TaskConfig{Name: name},
		Status: TaskStatusPending,
	}
}

// WithDescription sets the task description
func (t *Task) WithDescription(description string) *Task {
	t.Config.Description = description
	return t
}

// WithTimeout sets the per attempt timeout
func (t *Task) WithTimeout(timeout time.Duration) *Task {
	t.Config.Timeout = timeout
	return t
}

// WithRetry enables retrying with the given attempt cap and fixed delay
func (t *Task) WithRetry(maxRetries int, delay time.Duration) *Task {
	t.Config.RetryEnabled = true
	t.Config.MaxRetries = maxRetries
	t.Config.RetryDelay = delay
	return t
}

// WithNoRetry disables retrying; a failed attempt is final
func (t *Task) WithNoRetry() *Task {
	t.Config.RetryEnabled = false
	t.Config.MaxRetries = 0
	return t
}

// WithDependsOn appends dependencies referenced by task name
func (t *Task) WithDependsOn(names ...string) *Task {
	t.Config.DependsOn = append(t.Config.DependsOn, names...)
	return t
}

// WithCondition stores a condition string for the host; the engine ignores it
func (t *Task) WithCondition(condition string) *Task {
	t.Config.Condition = condition
	return t
}

// WithTag appends a tag
func (t *Task) WithTag(tag string) *Task {
	t.Config.Tags = append(t.Config.Tags, tag)
	return t
}

// WithPriority sets the task priority
func (t *Task) WithPriority(priority int) *Task {
	t.Config.Priority = priority
	return t
}

// WithMetadata adds a metadata entry
func (t *Task) WithMetadata(key string, value interface{}) *Task {
	if t.Config.Metadata == nil {
		t.Config.Metadata = make(map[string]interface{})
	}
	t.Config.Metadata[key] = value
	return t
}

// WithHandler sets the handler invoked on execute
func (t *Task) WithHandler(handler Handler) *Task {
	t.Handler = handler
	return t
}

// Name returns the task name.
func (t *Task) Name() string {
	return t.Config.Name
}

// CanRetry reports whether the engine may re-execute this task after a failed
// attempt.
func (t *Task) CanRetry() bool {
	return t.Config.RetryEnabled && t.RetryCount < t.Config.MaxRetries
}

type attemptOutcome struct {
	output interface{}
	err    error
}

// Execute runs the handler once, racing it against the configured timeout.
// Handler success yields a completed result, a handler error a failed one and
// a timer win a timed out one. The losing handler goroutine is abandoned, not
// interrupted. A single call never retries; the retry loop belongs to the
// engine.
func (t *Task) Execute(ctx context.Context, taskCtx *execution.TaskContext) *TaskResult {
	started := clock.Now()
	result := &TaskResult{
		TaskID:     t.ID,
		TaskName:   t.Config.Name,
		StartedAt:  started,
		RetryCount: t.RetryCount,
	}
	t.Status = TaskStatusRunning

	if t.Handler == nil {
		taskErr := NewInvalidInputError("task " + t.Config.Name + " has no handler")
		result.Status = TaskStatusFailed
		result.Error = taskErr.Error()
		return t.finish(result)
	}

	done := make(chan attemptOutcome, 1)
	go func() {
		output, err := t.Handler(ctx, taskCtx)
		done <- attemptOutcome{output: output, err: err}
	}()

	var timeoutCh <-chan time.Time
	if t.Config.Timeout > 0 {
		timer := time.NewTimer(t.Config.Timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case outcome := <-done:
		if outcome.err != nil {
			result.Status = TaskStatusFailed
			result.Error = outcome.err.Error()
		} else {
			result.Status = TaskStatusCompleted
			result.Output = outcome.output
		}
	case <-timeoutCh:
		result.Status = TaskStatusTimedOut
		result.Error = NewTimeoutError(t.Config.Name).Error()
	case <-ctx.Done():
		result.Status = TaskStatusCancelled
		result.Error = NewCancelledError(t.Config.Name).Error()
	}
	return t.finish(result)
}

func (t *Task) finish(result *TaskResult) *TaskResult {
	completed := clock.Now()
	result.CompletedAt = &completed
	result.Duration = completed.Sub(result.StartedAt)
	t.Status = result.Status
	return result
}
