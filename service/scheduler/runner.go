package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/viant/stepflow/internal/clock"
	"github.com/viant/stepflow/model"
	"github.com/viant/stepflow/service/engine"
	"github.com/viant/stepflow/service/messaging"
	"github.com/viant/stepflow/tracing"
)

// Dispatch is the payload published for each due job.
type Dispatch struct {
	JobID      string
	WorkflowID string
	DueAt      time.Time
}

// Executor runs a workflow to completion.
type Executor interface {
	Execute(ctx context.Context, workflow *model.Workflow) (*engine.ExecutionResult, error)
}

// WorkflowResolver maps a job's workflow id to a fresh workflow instance.
// Each dispatch needs a fresh instance since a workflow runs only once.
type WorkflowResolver func(ctx context.Context, workflowID string) (*model.Workflow, error)

// RunnerConfig configures the scheduler runner.
type RunnerConfig struct {
	// PollInterval is how often due jobs are collected
	PollInterval time.Duration

	// WorkerCount is the number of workers consuming dispatches
	WorkerCount int
}

// DefaultRunnerConfig returns the default runner configuration.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		PollInterval: time.Second,
		WorkerCount:  2,
	}
}

// Runner polls the scheduler for due jobs, publishes a dispatch per job and
// consumes dispatches with a worker pool that executes the resolved workflow.
type Runner struct {
	config    RunnerConfig
	scheduler *Service
	executor  Executor
	resolver  WorkflowResolver
	queue     messaging.Queue[Dispatch]

	wg      sync.WaitGroup
	cancels []context.CancelFunc
	mu      sync.Mutex
	started bool
}

// NewRunner creates a runner; all collaborators are required.
func NewRunner(config RunnerConfig, scheduler *Service, executor Executor, resolver WorkflowResolver, queue messaging.Queue[Dispatch]) (*Runner, error) {
	if scheduler == nil {
		return nil, fmt.Errorf("scheduler is required")
	}
	if executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("workflow resolver is required")
	}
	if queue == nil {
		return nil, fmt.Errorf("dispatch queue is required")
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultRunnerConfig().PollInterval
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultRunnerConfig().WorkerCount
	}
	return &Runner{
		config:    config,
		scheduler: scheduler,
		executor:  executor,
		resolver:  resolver,
		queue:     queue,
	}, nil
}

// Start launches the poll loop and the dispatch workers.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return fmt.Errorf("runner already started")
	}
	r.started = true
	r.scheduler.Start()

	pollCtx, cancel := context.WithCancel(ctx)
	r.cancels = append(r.cancels, cancel)
	r.wg.Add(1)
	go r.poll(pollCtx)

	for i := 0; i < r.config.WorkerCount; i++ {
		workerCtx, cancelWorker := context.WithCancel(ctx)
		r.cancels = append(r.cancels, cancelWorker)
		r.wg.Add(1)
		go r.work(workerCtx, i)
	}
	return nil
}

// Shutdown stops the poll loop and workers and waits for them to drain.
func (r *Runner) Shutdown() {
	r.mu.Lock()
	cancels := r.cancels
	r.cancels = nil
	r.started = false
	r.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	r.wg.Wait()
	r.scheduler.Stop()
}

func (r *Runner) poll(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.config.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.dispatchDue(ctx)
		}
	}
}

// dispatchDue publishes one dispatch per due job. The execution is recorded
// before publishing so the next tick does not see the same job as due again.
func (r *Runner) dispatchDue(ctx context.Context) {
	now := clock.Now()
	for _, job := range r.scheduler.DueJobs(now) {
		ctx, span := tracing.StartSpan(ctx, "scheduler.dispatch", "INTERNAL")
		span.WithAttributes(map[string]string{
			"job.id":      job.ID,
			"workflow.id": job.WorkflowID,
		})
		if err := r.scheduler.RecordExecution(job.ID, now); err != nil {
			log.Printf("scheduler: failed to record execution of job %v: %v", job.ID, err)
			tracing.EndSpan(span, err)
			continue
		}
		dispatch := &Dispatch{JobID: job.ID, WorkflowID: job.WorkflowID, DueAt: now}
		if err := r.queue.Publish(ctx, dispatch); err != nil {
			log.Printf("scheduler: failed to publish dispatch for job %v: %v", job.ID, err)
			tracing.EndSpan(span, err)
			continue
		}
		tracing.EndSpan(span, nil)
	}
}

func (r *Runner) work(ctx context.Context, id int) {
	defer r.wg.Done()
	for {
		msg, err := r.queue.Consume(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if msg == nil {
			continue
		}
		if pErr := r.process(ctx, msg); pErr != nil {
			log.Printf("scheduler worker %d: failed to process dispatch: %v", id, pErr)
		}
	}
}

func (r *Runner) process(ctx context.Context, msg messaging.Message[Dispatch]) error {
	dispatch := msg.T()
	workflow, err := r.resolver(ctx, dispatch.WorkflowID)
	if err != nil {
		_ = msg.Nack(err)
		return fmt.Errorf("failed to resolve workflow %v: %w", dispatch.WorkflowID, err)
	}
	if _, err = r.executor.Execute(ctx, workflow); err != nil {
		_ = msg.Nack(err)
		return fmt.Errorf("failed to execute workflow %v: %w", dispatch.WorkflowID, err)
	}
	return msg.Ack()
}
