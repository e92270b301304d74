package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/stepflow/model"
	"github.com/viant/stepflow/runtime/execution"
	"github.com/viant/stepflow/tracing"
)

// applyDefaults fills engine level defaults into a task configuration before
// its first attempt.
func (s *Service) applyDefaults(task *model.Task) {
	if task.Config.Timeout == 0 {
		task.Config.Timeout = s.config.DefaultTimeout
	}
	if task.Config.RetryEnabled {
		if task.Config.MaxRetries == 0 {
			task.Config.MaxRetries = s.config.DefaultMaxRetries
		}
		if task.Config.RetryDelay == 0 {
			task.Config.RetryDelay = s.config.DefaultRetryDelay
		}
	}
}

// executeWithRetry runs one task to its final result: a single attempt, then
// while the attempt failed or timed out and the task may still retry, a fixed
// retry delay followed by another attempt. The final retry count is carried on
// the returned result.
func (s *Service) executeWithRetry(ctx context.Context, task *model.Task, session *execution.Session) *model.TaskResult {
	s.applyDefaults(task)
	taskCtx := session.NewTaskContext(task.Config.Name, task.Config.DependsOn)

	result := s.attempt(ctx, task, taskCtx)
	for result.Status.IsFailure() && task.CanRetry() && ctx.Err() == nil {
		task.RetryCount++
		task.Status = model.TaskStatusRetrying
		s.sleep(ctx, task.Config.RetryDelay)
		if ctx.Err() != nil {
			break
		}
		result = s.attempt(ctx, task, taskCtx)
	}
	return result
}

func (s *Service) attempt(ctx context.Context, task *model.Task, taskCtx *execution.TaskContext) *model.TaskResult {
	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("task.run %s", task.Config.Name), "INTERNAL")
	span.WithAttributes(map[string]string{
		"task.name":    task.Config.Name,
		"task.attempt": fmt.Sprintf("%d", task.RetryCount+1),
	})
	started := time.Now()
	result := task.Execute(ctx, taskCtx)
	span.WithAttributes(map[string]string{"task.duration": time.Since(started).Round(time.Millisecond).String()})
	if result.Status == model.TaskStatusCompleted {
		tracing.EndSpan(span, nil)
	} else {
		tracing.EndSpan(span, fmt.Errorf("%s", result.Error))
	}
	return result
}
