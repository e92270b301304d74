package progress

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress_Update(t *testing.T) {
	ctx, tracker := WithNewTracker(context.Background(), "run-1", "etl", nil)
	tracker.Update(Delta{Total: 3, Pending: 3})
	tracker.Update(Delta{Pending: -1, Completed: 1})
	tracker.Update(Delta{Pending: -1, Failed: 1})

	snapshot, ok := GetSnapshot(ctx)
	assert.True(t, ok)
	assert.Equal(t, "run-1", snapshot.RunID)
	assert.Equal(t, "etl", snapshot.Workflow)
	assert.Equal(t, 3, snapshot.TotalTasks)
	assert.Equal(t, 1, snapshot.CompletedTasks)
	assert.Equal(t, 1, snapshot.FailedTasks)
	assert.Equal(t, 1, snapshot.PendingTasks)
}

func TestProgress_OnChange(t *testing.T) {
	_, tracker := WithNewTracker(context.Background(), "run-1", "etl", nil)

	var observed []int
	tracker.OnChange(func(p Progress) {
		observed = append(observed, p.CompletedTasks)
	})
	tracker.Update(Delta{Completed: 1})
	tracker.Update(Delta{Completed: 1})
	assert.Equal(t, []int{1, 2}, observed)

	tracker.OnChange(nil)
	tracker.Update(Delta{Completed: 1})
	assert.Len(t, observed, 2)
}

func TestFromContext_Absent(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	_, ok = GetSnapshot(context.Background())
	assert.False(t, ok)

	// a nil tracker is inert
	var tracker *Progress
	tracker.Update(Delta{Completed: 1})
	assert.Equal(t, Progress{}, tracker.Snapshot())
}

func TestUpdateCtx(t *testing.T) {
	ctx, tracker := WithNewTracker(context.Background(), "run-1", "etl", nil)
	UpdateCtx(ctx, Delta{Total: 2})
	assert.Equal(t, 2, tracker.Snapshot().TotalTasks)

	// no tracker, no effect
	UpdateCtx(context.Background(), Delta{Total: 2})
}
