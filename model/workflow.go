package model

import (
	"fmt"
	"sync"
	"time"

	"github.com/viant/stepflow/internal/clock"
	"github.com/viant/stepflow/internal/idgen"
)

// WorkflowConfig describes how a workflow run behaves.
type WorkflowConfig struct {
	Name               string        `json:"name" yaml:"name"`
	Timeout            time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	ParallelExecution  bool          `json:"parallelExecution,omitempty" yaml:"parallelExecution,omitempty"`
	MaxConcurrentTasks int           `json:"maxConcurrentTasks,omitempty" yaml:"maxConcurrentTasks,omitempty"`
	// EnableCheckpoints is declared for hosts that snapshot progress themselves;
	// nothing in this module persists anything.
	EnableCheckpoints bool     `json:"enableCheckpoints,omitempty" yaml:"enableCheckpoints,omitempty"`
	ContinueOnFailure bool     `json:"continueOnFailure,omitempty" yaml:"continueOnFailure,omitempty"`
	Tags              []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Workflow owns a set of tasks and their dependency edges. Task names are
// unique within a workflow and are the only handle used for dependency
// references. A workflow is handed to exactly one engine Execute call for its
// lifetime and retained read-only by the caller afterwards.
type Workflow struct {
	ID        string         `json:"id" yaml:"id"`
	Config    WorkflowConfig `json:"config" yaml:"config"`
	Tasks     []*Task        `json:"tasks" yaml:"tasks"`
	TaskOrder []string       `json:"taskOrder" yaml:"taskOrder"`
	Status    WorkflowStatus `json:"status" yaml:"status"`

	CreatedAt   time.Time  `json:"createdAt" yaml:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty" yaml:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty" yaml:"completedAt,omitempty"`

	mu      sync.RWMutex
	byName  map[string]*Task
	results map[string]*TaskResult
}

// NewWorkflow creates an empty workflow with the given name.
func NewWorkflow(name string) *Workflow {
	return &Workflow{
		ID:        idgen.New(),
		Config:    WorkflowConfig{Name: name},
		Status:    WorkflowStatusCreated,
		CreatedAt: clock.Now(),
		byName:    make(map[string]*Task),
		results:   make(map[string]*TaskResult),
	}
}

// WithTimeout sets the overall run deadline
func (w *Workflow) WithTimeout(timeout time.Duration) *Workflow {
	w.Config.Timeout = timeout
	return w
}

// WithParallelExecution enables concurrent dispatch capped at maxConcurrent
func (w *Workflow) WithParallelExecution(maxConcurrent int) *Workflow {
	w.Config.ParallelExecution = true
	w.Config.MaxConcurrentTasks = maxConcurrent
	return w
}

// WithContinueOnFailure keeps the run going past failed tasks
func (w *Workflow) WithContinueOnFailure(continueOnFailure bool) *Workflow {
	w.Config.ContinueOnFailure = continueOnFailure
	return w
}

// WithCheckpoints flags the workflow for host side checkpointing
func (w *Workflow) WithCheckpoints(enabled bool) *Workflow {
	w.Config.EnableCheckpoints = enabled
	return w
}

// WithTag appends a tag
func (w *Workflow) WithTag(tag string) *Workflow {
	w.Config.Tags = append(w.Config.Tags, tag)
	return w
}

// AddTask appends a task and recomputes the topological task order. A task
// whose dependencies would close a cycle is rejected and the workflow is left
// unchanged. Dependencies on names not (yet) present are allowed; at run time
// they simply never become satisfied.
func (w *Workflow) AddTask(task *Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	name := task.Config.Name
	if name == "" {
		return fmt.Errorf("task name cannot be empty")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.byName == nil {
		w.byName = make(map[string]*Task)
	}
	if w.results == nil {
		w.results = make(map[string]*TaskResult)
	}
	if _, exists := w.byName[name]; exists {
		return fmt.Errorf("task %q already defined in workflow %q", name, w.Config.Name)
	}
	w.Tasks = append(w.Tasks, task)
	w.byName[name] = task

	order, err := w.computeOrder()
	if err != nil {
		w.Tasks = w.Tasks[:len(w.Tasks)-1]
		delete(w.byName, name)
		return err
	}
	w.TaskOrder = order
	return nil
}

// computeOrder derives a topological ordering via depth-first post-order
// traversal. Callers must hold the lock.
func (w *Workflow) computeOrder() ([]string, error) {
	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)
	marks := make(map[string]int, len(w.Tasks))
	order := make([]string, 0, len(w.Tasks))

	var visit func(task *Task) error
	visit = func(task *Task) error {
		name := task.Config.Name
		switch marks[name] {
		case visited:
			return nil
		case visiting:
			return fmt.Errorf("%w: task %q in workflow %q", ErrCircularDependency, name, w.Config.Name)
		}
		marks[name] = visiting
		for _, dependency := range task.Config.DependsOn {
			dep, ok := w.byName[dependency]
			if !ok {
				// unknown names are tolerated at build time; see AddTask
				continue
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		marks[name] = visited
		order = append(order, name)
		return nil
	}

	for _, task := range w.Tasks {
		if err := visit(task); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Task returns the task with the given name.
func (w *Workflow) Task(name string) (*Task, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	task, ok := w.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q in workflow %q", ErrTaskNotFound, name, w.Config.Name)
	}
	return task, nil
}

// TasksInOrder returns a copy of the derived topological task order.
func (w *Workflow) TasksInOrder() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]string(nil), w.TaskOrder...)
}

// RunnableTaskNames returns the names of pending tasks whose every dependency
// has a stored completed result. A failed dependency permanently blocks its
// dependents unless the caller marks them skipped via SkipTask.
func (w *Workflow) RunnableTaskNames() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var runnable []string
	for _, name := range w.TaskOrder {
		task := w.byName[name]
		if task.Status != TaskStatusPending {
			continue
		}
		satisfied := true
		for _, dependency := range task.Config.DependsOn {
			result, ok := w.results[dependency]
			if !ok || result.Status != TaskStatusCompleted {
				satisfied = false
				break
			}
		}
		if satisfied {
			runnable = append(runnable, name)
		}
	}
	return runnable
}

// StoreResult records a task result and syncs the task status. Stored results
// are treated as immutable.
func (w *Workflow) StoreResult(result *TaskResult) {
	if result == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.results[result.TaskName] = result
	if task, ok := w.byName[result.TaskName]; ok {
		task.Status = result.Status
		task.RetryCount = result.RetryCount
	}
}

// Result returns the stored result for a task name.
func (w *Workflow) Result(name string) (*TaskResult, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	result, ok := w.results[name]
	return result, ok
}

// Results returns a snapshot of all stored results keyed by task name.
func (w *Workflow) Results() map[string]*TaskResult {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ret := make(map[string]*TaskResult, len(w.results))
	for k, v := range w.results {
		ret[k] = v
	}
	return ret
}

// SkipTask marks a pending task skipped, storing a synthesized result. Used by
// callers that want to unblock dependents of a failed dependency explicitly.
func (w *Workflow) SkipTask(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	task, ok := w.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q in workflow %q", ErrTaskNotFound, name, w.Config.Name)
	}
	if task.Status.IsTerminal() {
		return fmt.Errorf("task %q already finished with status %v", name, task.Status)
	}
	result := SkippedResult(task)
	w.results[name] = result
	task.Status = TaskStatusSkipped
	return nil
}

// IsComplete returns true once every task is in a terminal status.
func (w *Workflow) IsComplete() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, task := range w.Tasks {
		if !task.Status.IsTerminal() {
			return false
		}
	}
	return len(w.Tasks) > 0
}

// HasFailed returns true when a task failed and the workflow is not configured
// to continue past failures.
func (w *Workflow) HasFailed() bool {
	if w.Config.ContinueOnFailure {
		return false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, task := range w.Tasks {
		if task.Status.IsFailure() {
			return true
		}
	}
	return false
}

// FailedTaskNames returns the names of tasks whose final status is a failure.
func (w *Workflow) FailedTaskNames() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var failed []string
	for _, name := range w.TaskOrder {
		if w.byName[name].Status.IsFailure() {
			failed = append(failed, name)
		}
	}
	return failed
}

// Progress returns the fraction of tasks that completed or were skipped.
func (w *Workflow) Progress() float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.Tasks) == 0 {
		return 0
	}
	done := 0
	for _, task := range w.Tasks {
		if task.Status == TaskStatusCompleted || task.Status == TaskStatusSkipped {
			done++
		}
	}
	return float64(done) / float64(len(w.Tasks))
}

// Validate reports build time issues.
func (w *Workflow) Validate() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.Tasks) == 0 {
		return fmt.Errorf("%w: %q", ErrEmptyWorkflow, w.Config.Name)
	}
	return nil
}

// MarkStarted transitions the workflow into the running status.
func (w *Workflow) MarkStarted() {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := clock.Now()
	w.StartedAt = &now
	w.Status = WorkflowStatusRunning
}

// MarkFinished records the final status and completion time.
func (w *Workflow) MarkFinished(status WorkflowStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := clock.Now()
	w.CompletedAt = &now
	w.Status = status
}
