package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/viant/stepflow/internal/clock"
	"github.com/viant/stepflow/internal/idgen"
	"github.com/viant/stepflow/model"
	"github.com/viant/stepflow/progress"
	"github.com/viant/stepflow/runtime/execution"
	"github.com/viant/stepflow/service/dao"
	"github.com/viant/stepflow/service/dao/store"
	"github.com/viant/stepflow/tracing"
)

// Config represents engine wide execution defaults.
type Config struct {
	// PollInterval is the fixed sleep between readiness re-polls when no task
	// is runnable yet.
	PollInterval time.Duration `json:"pollInterval" yaml:"pollInterval"`

	// DefaultTimeout applies to tasks without an explicit per attempt timeout.
	DefaultTimeout time.Duration `json:"defaultTimeout" yaml:"defaultTimeout"`

	// DefaultMaxRetries applies to retry enabled tasks without an explicit cap.
	DefaultMaxRetries int `json:"defaultMaxRetries" yaml:"defaultMaxRetries"`

	// DefaultRetryDelay is the fixed delay between attempts when a retry
	// enabled task does not set its own.
	DefaultRetryDelay time.Duration `json:"defaultRetryDelay" yaml:"defaultRetryDelay"`

	// MaxConcurrentTasks caps parallel dispatch when the workflow does not set
	// its own limit.
	MaxConcurrentTasks int `json:"maxConcurrentTasks" yaml:"maxConcurrentTasks"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		PollInterval:       20 * time.Millisecond,
		DefaultTimeout:     5 * time.Minute,
		DefaultMaxRetries:  1,
		DefaultRetryDelay:  3 * time.Second,
		MaxConcurrentTasks: 5,
	}
}

// Service executes workflows. One Service may drive many workflows
// concurrently; the semaphore bounds in-flight tasks per run, not globally.
type Service struct {
	config Config
	runs   dao.Service[string, Run]
}

// Option customises the engine service.
type Option func(*Service)

// WithConfig overrides the default engine configuration.
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithRunDAO replaces the built-in in-memory run registry.
func WithRunDAO(runs dao.Service[string, Run]) Option {
	return func(s *Service) {
		s.runs = runs
	}
}

// New creates an engine service.
func New(options ...Option) *Service {
	s := &Service{config: DefaultConfig()}
	for _, option := range options {
		option(s)
	}
	if s.runs == nil {
		s.runs = store.NewMemoryStore[string, Run](
			func(r *Run) string { return r.ID },
			store.WithStatusSelector[string, Run](func(r *Run) string { return string(r.Status()) }),
		)
	}
	return s
}

// Config returns the engine configuration.
func (s *Service) Config() Config {
	return s.config
}

// Execute drives the workflow to completion and returns a post-run snapshot.
// Build-time problems (nil or empty workflow, reuse of an already executed
// workflow) are returned synchronously; task failures are recorded on the
// result, never returned as an error.
func (s *Service) Execute(ctx context.Context, workflow *model.Workflow) (result *ExecutionResult, err error) {
	if workflow == nil {
		return nil, fmt.Errorf("workflow cannot be nil")
	}
	if err = workflow.Validate(); err != nil {
		return nil, err
	}
	if workflow.Status != model.WorkflowStatusCreated {
		return nil, fmt.Errorf("%w: %q", ErrAlreadyExecuted, workflow.Config.Name)
	}

	runID := workflow.Config.Name + "/" + idgen.New()
	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("engine.execute %s", workflow.Config.Name), "INTERNAL")
	span.WithAttributes(map[string]string{"run.id": runID, "workflow.name": workflow.Config.Name})
	defer func() { tracing.EndSpan(span, err) }()

	var runCtx context.Context
	var cancel context.CancelFunc
	if workflow.Config.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, workflow.Config.Timeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	run := &Run{
		ID:           runID,
		WorkflowID:   workflow.ID,
		WorkflowName: workflow.Config.Name,
		StartedAt:    clock.Now(),
		status:       model.WorkflowStatusRunning,
		cancel:       cancel,
	}
	if err = s.runs.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to register run %v: %w", runID, err)
	}
	workflow.MarkStarted()

	session := execution.NewSession(runID, workflow.ID, workflow.Config.Name)
	runCtx, tracker := progress.WithNewTracker(runCtx, runID, workflow.Config.Name, nil)
	tracker.Update(progress.Delta{Total: len(workflow.Tasks), Pending: len(workflow.Tasks)})

	s.runLoop(runCtx, run, workflow, session, tracker)

	status := s.conclude(runCtx, run, workflow)
	completed := clock.Now()
	run.finish(status, completed)
	workflow.MarkFinished(run.Status())
	_ = s.runs.Save(ctx, run)

	result = &ExecutionResult{
		RunID:        runID,
		WorkflowID:   workflow.ID,
		WorkflowName: workflow.Config.Name,
		Status:       run.Status(),
		TaskResults:  workflow.Results(),
		StartedAt:    run.StartedAt,
		CompletedAt:  completed,
		Duration:     completed.Sub(run.StartedAt),
	}
	if result.Status != model.WorkflowStatusCompleted {
		result.Error = s.summarize(runCtx, workflow, result.Status)
	}
	return result, nil
}

// runLoop polls for runnable tasks and dispatches them wave by wave until the
// workflow finishes, fails or the run context ends.
func (s *Service) runLoop(runCtx context.Context, run *Run, workflow *model.Workflow, session *execution.Session, tracker *progress.Progress) {
	for {
		if runCtx.Err() != nil || workflow.IsComplete() || workflow.HasFailed() {
			return
		}
		if run.IsPaused() {
			s.sleep(runCtx, s.config.PollInterval)
			continue
		}
		runnable := workflow.RunnableTaskNames()
		if len(runnable) == 0 {
			// re-poll once before declaring the remaining tasks blocked; a
			// resume or skip may have raced this check
			s.sleep(runCtx, s.config.PollInterval)
			if runCtx.Err() != nil || workflow.IsComplete() || run.IsPaused() {
				continue
			}
			if runnable = workflow.RunnableTaskNames(); len(runnable) == 0 {
				s.failBlockedTasks(workflow, tracker)
				return
			}
		}
		if workflow.Config.ParallelExecution && s.maxConcurrent(workflow) > 1 {
			s.dispatchParallel(runCtx, workflow, session, tracker, runnable)
		} else {
			s.dispatchSequential(runCtx, workflow, session, tracker, runnable)
		}
	}
}

func (s *Service) maxConcurrent(workflow *model.Workflow) int {
	if workflow.Config.MaxConcurrentTasks > 0 {
		return workflow.Config.MaxConcurrentTasks
	}
	return s.config.MaxConcurrentTasks
}

// dispatchSequential runs the wave one task at a time in topological order.
func (s *Service) dispatchSequential(runCtx context.Context, workflow *model.Workflow, session *execution.Session, tracker *progress.Progress, runnable []string) {
	for _, name := range runnable {
		if runCtx.Err() != nil {
			return
		}
		task, err := workflow.Task(name)
		if err != nil {
			continue
		}
		s.store(workflow, session, tracker, s.executeWithRetry(runCtx, task, session))
		if workflow.HasFailed() {
			return
		}
	}
}

// dispatchParallel runs every task of the wave as its own goroutine gated by
// a weighted semaphore; results are stored as they complete with no ordering
// guarantee among siblings. A semaphore acquire failure is recorded as a
// regular failed result, matching the sequential path.
func (s *Service) dispatchParallel(runCtx context.Context, workflow *model.Workflow, session *execution.Session, tracker *progress.Progress, runnable []string) {
	sem := semaphore.NewWeighted(int64(s.maxConcurrent(workflow)))
	results := make(chan *model.TaskResult, len(runnable))
	var wg sync.WaitGroup
	for _, name := range runnable {
		task, err := workflow.Task(name)
		if err != nil {
			continue
		}
		task.Status = model.TaskStatusQueued
		wg.Add(1)
		go func(task *model.Task) {
			defer wg.Done()
			if acquireErr := sem.Acquire(runCtx, 1); acquireErr != nil {
				results <- s.abortedResult(runCtx, task)
				return
			}
			defer sem.Release(1)
			results <- s.executeWithRetry(runCtx, task, session)
		}(task)
	}
	go func() {
		wg.Wait()
		close(results)
	}()
	for result := range results {
		s.store(workflow, session, tracker, result)
	}
}

// abortedResult normalizes a dispatch-level abort (semaphore acquire failed,
// usually because the run context ended) into an ordinary task result.
func (s *Service) abortedResult(runCtx context.Context, task *model.Task) *model.TaskResult {
	now := clock.Now()
	result := &model.TaskResult{
		TaskID:      task.ID,
		TaskName:    task.Config.Name,
		StartedAt:   now,
		CompletedAt: &now,
		RetryCount:  task.RetryCount,
	}
	if runCtx.Err() != nil {
		result.Status = model.TaskStatusCancelled
		result.Error = model.NewCancelledError(task.Config.Name).Error()
	} else {
		result.Status = model.TaskStatusFailed
		result.Error = model.NewExecutionFailedError("task "+task.Config.Name+" dispatch aborted", runCtx.Err()).Error()
	}
	return result
}

// store records a task result, publishes its output for dependents and
// updates the run progress counters.
func (s *Service) store(workflow *model.Workflow, session *execution.Session, tracker *progress.Progress, result *model.TaskResult) {
	workflow.StoreResult(result)
	delta := progress.Delta{Pending: -1}
	switch result.Status {
	case model.TaskStatusCompleted:
		session.StoreTaskOutput(result.TaskName, result.Output)
		delta.Completed = 1
	case model.TaskStatusSkipped:
		delta.Skipped = 1
	default:
		delta.Failed = 1
	}
	tracker.Update(delta)
}

// failBlockedTasks resolves tasks that can never become runnable, typically
// dependents of a failed dependency under continueOnFailure, so the run
// terminates instead of polling forever.
func (s *Service) failBlockedTasks(workflow *model.Workflow, tracker *progress.Progress) {
	for _, name := range workflow.TasksInOrder() {
		task, err := workflow.Task(name)
		if err != nil || task.Status.IsTerminal() {
			continue
		}
		now := clock.Now()
		result := &model.TaskResult{
			TaskID:      task.ID,
			TaskName:    name,
			Status:      model.TaskStatusFailed,
			StartedAt:   now,
			CompletedAt: &now,
		}
		for _, dependency := range task.Config.DependsOn {
			if stored, ok := workflow.Result(dependency); !ok || !stored.Succeeded() {
				result.Error = model.NewDependencyFailedError(name, dependency).Error()
				break
			}
		}
		workflow.StoreResult(result)
		tracker.Update(progress.Delta{Pending: -1, Failed: 1})
	}
}

// conclude cancels leftover tasks and decides the final run status.
func (s *Service) conclude(runCtx context.Context, run *Run, workflow *model.Workflow) model.WorkflowStatus {
	if runCtx.Err() != nil {
		for _, name := range workflow.TasksInOrder() {
			task, err := workflow.Task(name)
			if err != nil || task.Status.IsTerminal() {
				continue
			}
			now := clock.Now()
			workflow.StoreResult(&model.TaskResult{
				TaskID:      task.ID,
				TaskName:    name,
				Status:      model.TaskStatusCancelled,
				Error:       model.NewCancelledError(name).Error(),
				StartedAt:   now,
				CompletedAt: &now,
			})
		}
		if run.IsCancelled() {
			return model.WorkflowStatusCancelled
		}
		return model.WorkflowStatusFailed
	}
	if workflow.Config.ContinueOnFailure || len(workflow.FailedTaskNames()) == 0 {
		return model.WorkflowStatusCompleted
	}
	return model.WorkflowStatusFailed
}

// summarize builds the human readable error carried by a failed result.
func (s *Service) summarize(runCtx context.Context, workflow *model.Workflow, status model.WorkflowStatus) string {
	if runCtx.Err() == context.DeadlineExceeded {
		return fmt.Sprintf("%v: workflow %q exceeded %v", model.ErrWorkflowTimeout, workflow.Config.Name, workflow.Config.Timeout)
	}
	if status == model.WorkflowStatusCancelled {
		return fmt.Sprintf("workflow %q cancelled", workflow.Config.Name)
	}
	failed := workflow.FailedTaskNames()
	if len(failed) == 0 {
		return fmt.Sprintf("%v: %q", model.ErrExecutionFailed, workflow.Config.Name)
	}
	return fmt.Sprintf("%v: %q: %d task(s) failed: %v", model.ErrExecutionFailed, workflow.Config.Name, len(failed), strings.Join(failed, ", "))
}

// sleep waits for the given duration or until the run context ends.
func (s *Service) sleep(runCtx context.Context, duration time.Duration) {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-runCtx.Done():
	}
}

// ---------------------------------------------------------------------------
// Run registry
// ---------------------------------------------------------------------------

// Run returns a registry record by run id.
func (s *Service) Run(ctx context.Context, runID string) (*Run, error) {
	run, err := s.runs.Load(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("%w: %v", ErrRunNotFound, runID)
	}
	return run, nil
}

// Runs lists registry records, optionally filtered by status.
func (s *Service) Runs(ctx context.Context, parameters ...*dao.Parameter) ([]*Run, error) {
	return s.runs.List(ctx, parameters...)
}

// Cancel stops a run cooperatively: the run status flips to cancelled and the
// run context is cancelled so in-flight handlers observing ctx.Done can stop.
// Handlers that ignore the context finish their current attempt and are then
// recorded as cancelled.
func (s *Service) Cancel(ctx context.Context, runID string) error {
	run, err := s.Run(ctx, runID)
	if err != nil {
		return err
	}
	if run.Status().IsTerminal() {
		return fmt.Errorf("%w: %v", ErrRunFinished, runID)
	}
	run.setStatus(model.WorkflowStatusCancelled)
	if run.cancel != nil {
		run.cancel()
	}
	return nil
}

// Pause suspends dispatch of further tasks; in-flight tasks keep running.
func (s *Service) Pause(ctx context.Context, runID string) error {
	run, err := s.Run(ctx, runID)
	if err != nil {
		return err
	}
	if run.Status() != model.WorkflowStatusRunning {
		return fmt.Errorf("run %v is not running", runID)
	}
	run.setStatus(model.WorkflowStatusPaused)
	return nil
}

// Resume lifts a pause.
func (s *Service) Resume(ctx context.Context, runID string) error {
	run, err := s.Run(ctx, runID)
	if err != nil {
		return err
	}
	if run.Status() != model.WorkflowStatusPaused {
		return fmt.Errorf("run %v is not paused", runID)
	}
	run.setStatus(model.WorkflowStatusRunning)
	return nil
}
