package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/stepflow/model"
	"github.com/viant/stepflow/runtime/execution"
	"github.com/viant/stepflow/service/dao"
)

func quickConfig() Config {
	config := DefaultConfig()
	config.PollInterval = 5 * time.Millisecond
	config.DefaultRetryDelay = 5 * time.Millisecond
	return config
}

func TestService_ExecuteSequentialChain(t *testing.T) {
	service := New(WithConfig(quickConfig()))

	workflow := model.NewWorkflow("chain")
	assert.NoError(t, workflow.AddTask(model.NewTask("extract").WithHandler(
		func(ctx context.Context, taskCtx *execution.TaskContext) (interface{}, error) {
			return 10, nil
		})))
	assert.NoError(t, workflow.AddTask(model.NewTask("transform").WithDependsOn("extract").WithHandler(
		func(ctx context.Context, taskCtx *execution.TaskContext) (interface{}, error) {
			value, ok := taskCtx.Input("extract")
			if !ok {
				return nil, fmt.Errorf("missing extract output")
			}
			return value.(int) * 2, nil
		})))
	assert.NoError(t, workflow.AddTask(model.NewTask("load").WithDependsOn("transform").WithHandler(
		func(ctx context.Context, taskCtx *execution.TaskContext) (interface{}, error) {
			value, _ := taskCtx.Input("transform")
			return fmt.Sprintf("loaded %v", value), nil
		})))

	result, err := service.Execute(context.Background(), workflow)
	assert.NoError(t, err)
	assert.Equal(t, model.WorkflowStatusCompleted, result.Status)
	assert.Empty(t, result.Error)
	assert.Len(t, result.TaskResults, 3)
	assert.Equal(t, "loaded 20", result.TaskResults["load"].Output)
	assert.True(t, workflow.IsComplete())
}

func TestService_ExecuteParallelBoundsConcurrency(t *testing.T) {
	service := New(WithConfig(quickConfig()))

	var inFlight, peak int32
	handler := func(ctx context.Context, taskCtx *execution.TaskContext) (interface{}, error) {
		current := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			observed := atomic.LoadInt32(&peak)
			if current <= observed || atomic.CompareAndSwapInt32(&peak, observed, current) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		return nil, nil
	}

	workflow := model.NewWorkflow("fanout").WithParallelExecution(2)
	for i := 0; i < 6; i++ {
		assert.NoError(t, workflow.AddTask(model.NewTask(fmt.Sprintf("task-%d", i)).WithHandler(handler)))
	}

	result, err := service.Execute(context.Background(), workflow)
	assert.NoError(t, err)
	assert.Equal(t, model.WorkflowStatusCompleted, result.Status)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	assert.Len(t, result.TaskResults, 6)
}

func TestService_ExecuteTaskTimeout(t *testing.T) {
	service := New(WithConfig(quickConfig()))

	workflow := model.NewWorkflow("slow")
	assert.NoError(t, workflow.AddTask(model.NewTask("stuck").
		WithTimeout(20*time.Millisecond).
		WithHandler(func(ctx context.Context, taskCtx *execution.TaskContext) (interface{}, error) {
			time.Sleep(time.Second)
			return nil, nil
		})))

	result, err := service.Execute(context.Background(), workflow)
	assert.NoError(t, err)
	assert.Equal(t, model.WorkflowStatusFailed, result.Status)
	assert.Equal(t, model.TaskStatusTimedOut, result.TaskResults["stuck"].Status)
	assert.Contains(t, result.Error, "stuck")
}

func TestService_ExecuteWorkflowTimeout(t *testing.T) {
	service := New(WithConfig(quickConfig()))

	workflow := model.NewWorkflow("deadline").WithTimeout(50 * time.Millisecond)
	assert.NoError(t, workflow.AddTask(model.NewTask("long").WithHandler(
		func(ctx context.Context, taskCtx *execution.TaskContext) (interface{}, error) {
			select {
			case <-time.After(time.Second):
				return nil, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		})))

	result, err := service.Execute(context.Background(), workflow)
	assert.NoError(t, err)
	assert.Equal(t, model.WorkflowStatusFailed, result.Status)
	assert.Contains(t, result.Error, "timed out")
}

func TestService_ExecuteStopsOnFailure(t *testing.T) {
	service := New(WithConfig(quickConfig()))

	var loadRan int32
	workflow := model.NewWorkflow("brittle")
	assert.NoError(t, workflow.AddTask(model.NewTask("extract").WithHandler(
		func(ctx context.Context, taskCtx *execution.TaskContext) (interface{}, error) {
			return nil, fmt.Errorf("source offline")
		})))
	assert.NoError(t, workflow.AddTask(model.NewTask("load").WithDependsOn("extract").WithHandler(
		func(ctx context.Context, taskCtx *execution.TaskContext) (interface{}, error) {
			atomic.AddInt32(&loadRan, 1)
			return nil, nil
		})))

	result, err := service.Execute(context.Background(), workflow)
	assert.NoError(t, err)
	assert.Equal(t, model.WorkflowStatusFailed, result.Status)
	assert.Equal(t, int32(0), atomic.LoadInt32(&loadRan))
	assert.Contains(t, result.Error, "extract")
}

func TestService_ExecuteContinueOnFailure(t *testing.T) {
	service := New(WithConfig(quickConfig()))

	workflow := model.NewWorkflow("tolerant").WithContinueOnFailure(true)
	assert.NoError(t, workflow.AddTask(model.NewTask("broken").WithHandler(
		func(ctx context.Context, taskCtx *execution.TaskContext) (interface{}, error) {
			return nil, fmt.Errorf("boom")
		})))
	assert.NoError(t, workflow.AddTask(model.NewTask("dependent").WithDependsOn("broken").WithHandler(
		func(ctx context.Context, taskCtx *execution.TaskContext) (interface{}, error) {
			return nil, nil
		})))
	assert.NoError(t, workflow.AddTask(model.NewTask("independent").WithHandler(
		func(ctx context.Context, taskCtx *execution.TaskContext) (interface{}, error) {
			return "fine", nil
		})))

	result, err := service.Execute(context.Background(), workflow)
	assert.NoError(t, err)
	// failures are tolerated, so the run itself completes
	assert.Equal(t, model.WorkflowStatusCompleted, result.Status)
	assert.Equal(t, model.TaskStatusCompleted, result.TaskResults["independent"].Status)
	assert.Equal(t, model.TaskStatusFailed, result.TaskResults["broken"].Status)
	// the dependent can never run; it resolves as failed with the blocking dependency named
	assert.Equal(t, model.TaskStatusFailed, result.TaskResults["dependent"].Status)
	assert.Contains(t, result.TaskResults["dependent"].Error, "broken")
}

func TestService_ExecuteRejectsReuse(t *testing.T) {
	service := New(WithConfig(quickConfig()))

	workflow := model.NewWorkflow("once")
	assert.NoError(t, workflow.AddTask(model.NewTask("a").WithHandler(
		func(ctx context.Context, taskCtx *execution.TaskContext) (interface{}, error) {
			return nil, nil
		})))

	_, err := service.Execute(context.Background(), workflow)
	assert.NoError(t, err)

	_, err = service.Execute(context.Background(), workflow)
	assert.ErrorIs(t, err, ErrAlreadyExecuted)
}

func TestService_ExecuteValidation(t *testing.T) {
	service := New(WithConfig(quickConfig()))

	_, err := service.Execute(context.Background(), nil)
	assert.Error(t, err)

	_, err = service.Execute(context.Background(), model.NewWorkflow("empty"))
	assert.ErrorIs(t, err, model.ErrEmptyWorkflow)
}

func TestService_Cancel(t *testing.T) {
	service := New(WithConfig(quickConfig()))
	ctx := context.Background()

	started := make(chan string, 1)
	workflow := model.NewWorkflow("cancellable")
	assert.NoError(t, workflow.AddTask(model.NewTask("wait").WithHandler(
		func(ctx context.Context, taskCtx *execution.TaskContext) (interface{}, error) {
			started <- taskCtx.RunID
			<-ctx.Done()
			return nil, ctx.Err()
		})))

	var wg sync.WaitGroup
	var result *ExecutionResult
	wg.Add(1)
	go func() {
		defer wg.Done()
		result, _ = service.Execute(ctx, workflow)
	}()

	runID := <-started
	assert.NoError(t, service.Cancel(ctx, runID))
	wg.Wait()

	assert.Equal(t, model.WorkflowStatusCancelled, result.Status)
	assert.Contains(t, result.Error, "cancelled")

	// a finished run can no longer be cancelled
	assert.ErrorIs(t, service.Cancel(ctx, runID), ErrRunFinished)
}

func TestService_PauseResume(t *testing.T) {
	service := New(WithConfig(quickConfig()))
	ctx := context.Background()

	workflow := model.NewWorkflow("pausable")
	assert.NoError(t, workflow.AddTask(model.NewTask("first").WithHandler(
		func(ctx context.Context, taskCtx *execution.TaskContext) (interface{}, error) {
			if err := service.Pause(ctx, taskCtx.RunID); err != nil {
				return nil, err
			}
			go func(runID string) {
				time.Sleep(50 * time.Millisecond)
				_ = service.Resume(context.Background(), runID)
			}(taskCtx.RunID)
			return "paused and resumed", nil
		})))
	assert.NoError(t, workflow.AddTask(model.NewTask("second").WithDependsOn("first").WithHandler(
		func(ctx context.Context, taskCtx *execution.TaskContext) (interface{}, error) {
			return nil, nil
		})))

	result, err := service.Execute(ctx, workflow)
	assert.NoError(t, err)
	assert.Equal(t, model.WorkflowStatusCompleted, result.Status)
	assert.Equal(t, model.TaskStatusCompleted, result.TaskResults["second"].Status)
}

func TestService_RunRegistry(t *testing.T) {
	service := New(WithConfig(quickConfig()))
	ctx := context.Background()

	workflow := model.NewWorkflow("tracked")
	assert.NoError(t, workflow.AddTask(model.NewTask("a").WithHandler(
		func(ctx context.Context, taskCtx *execution.TaskContext) (interface{}, error) {
			return nil, nil
		})))

	result, err := service.Execute(ctx, workflow)
	assert.NoError(t, err)

	run, err := service.Run(ctx, result.RunID)
	assert.NoError(t, err)
	assert.Equal(t, model.WorkflowStatusCompleted, run.Status())
	assert.NotNil(t, run.CompletedAt)

	_, err = service.Run(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	completed, err := service.Runs(ctx, dao.NewParameter("Status", string(model.WorkflowStatusCompleted)))
	assert.NoError(t, err)
	assert.Len(t, completed, 1)
}
