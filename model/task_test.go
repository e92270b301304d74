package model

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/stepflow/runtime/execution"
)

func TestNewTask(t *testing.T) {
	task := NewTask("extract").
		WithDescription("pull source records").
		WithTimeout(30 * time.Second).
		WithRetry(3, time.Second).
		WithDependsOn("init").
		WithTag("etl").
		WithPriority(5).
		WithMetadata("owner", "data-team")

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "extract", task.Name())
	assert.Equal(t, TaskStatusPending, task.Status)
	assert.Equal(t, 30*time.Second, task.Config.Timeout)
	assert.True(t, task.Config.RetryEnabled)
	assert.Equal(t, 3, task.Config.MaxRetries)
	assert.Equal(t, time.Second, task.Config.RetryDelay)
	assert.Equal(t, []string{"init"}, task.Config.DependsOn)
	assert.Equal(t, []string{"etl"}, task.Config.Tags)
	assert.Equal(t, 5, task.Config.Priority)
	assert.Equal(t, "data-team", task.Config.Metadata["owner"])
}

func TestTask_CanRetry(t *testing.T) {
	task := NewTask("flaky").WithRetry(2, time.Millisecond)
	assert.True(t, task.CanRetry())

	task.RetryCount = 1
	assert.True(t, task.CanRetry())

	task.RetryCount = 2
	assert.False(t, task.CanRetry())

	noRetry := NewTask("once").WithNoRetry()
	assert.False(t, noRetry.CanRetry())
}

func TestTask_Execute(t *testing.T) {
	ctx := context.Background()
	session := execution.NewSession("run-1", "wf-1", "test")

	t.Run("success", func(t *testing.T) {
		task := NewTask("ok").WithHandler(func(ctx context.Context, taskCtx *execution.TaskContext) (interface{}, error) {
			return map[string]interface{}{"count": 42}, nil
		})
		result := task.Execute(ctx, session.NewTaskContext("ok", nil))
		assert.Equal(t, TaskStatusCompleted, result.Status)
		assert.True(t, result.Succeeded())
		assert.Equal(t, TaskStatusCompleted, task.Status)
		assert.NotNil(t, result.CompletedAt)
		output, ok := result.Output.(map[string]interface{})
		assert.True(t, ok)
		assert.Equal(t, 42, output["count"])
	})

	t.Run("handler error", func(t *testing.T) {
		task := NewTask("broken").WithHandler(func(ctx context.Context, taskCtx *execution.TaskContext) (interface{}, error) {
			return nil, fmt.Errorf("upstream unavailable")
		})
		result := task.Execute(ctx, session.NewTaskContext("broken", nil))
		assert.Equal(t, TaskStatusFailed, result.Status)
		assert.Contains(t, result.Error, "upstream unavailable")
	})

	t.Run("timeout", func(t *testing.T) {
		task := NewTask("slow").
			WithTimeout(20 * time.Millisecond).
			WithHandler(func(ctx context.Context, taskCtx *execution.TaskContext) (interface{}, error) {
				time.Sleep(500 * time.Millisecond)
				return "late", nil
			})
		result := task.Execute(ctx, session.NewTaskContext("slow", nil))
		assert.Equal(t, TaskStatusTimedOut, result.Status)
		assert.True(t, result.Status.IsFailure())
	})

	t.Run("context cancelled", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		task := NewTask("stopped").WithHandler(func(ctx context.Context, taskCtx *execution.TaskContext) (interface{}, error) {
			time.Sleep(500 * time.Millisecond)
			return nil, nil
		})
		result := task.Execute(cancelled, session.NewTaskContext("stopped", nil))
		assert.Equal(t, TaskStatusCancelled, result.Status)
	})

	t.Run("no handler", func(t *testing.T) {
		task := NewTask("empty")
		result := task.Execute(ctx, session.NewTaskContext("empty", nil))
		assert.Equal(t, TaskStatusFailed, result.Status)
		assert.Contains(t, result.Error, "no handler")
	})
}

func TestTask_ExecuteRecordsDuration(t *testing.T) {
	session := execution.NewSession("run-1", "wf-1", "test")
	task := NewTask("timed").WithHandler(func(ctx context.Context, taskCtx *execution.TaskContext) (interface{}, error) {
		time.Sleep(10 * time.Millisecond)
		return nil, nil
	})
	result := task.Execute(context.Background(), session.NewTaskContext("timed", nil))
	assert.GreaterOrEqual(t, result.Duration, 10*time.Millisecond)
}
