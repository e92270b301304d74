package progress

import (
	"context"
	"sync"
	"time"
)

// Delta is an incremental counter change applied by the engine after every
// stored result. Fields are signed so callers can decrement as well.
type Delta struct {
	Total     int
	Completed int
	Skipped   int
	Failed    int
	Running   int
	Pending   int
}

// Progress keeps aggregated task counters for one workflow run. It is safe
// for concurrent use.
type Progress struct {
	// Identification, filled when the run starts.
	RunID     string
	Workflow  string
	StartedAt time.Time

	// Counters, modified via Update.
	TotalTasks     int
	CompletedTasks int
	SkippedTasks   int
	FailedTasks    int
	RunningTasks   int
	PendingTasks   int

	sync.Mutex
	onChange func(Progress)
}

// Update applies the delta. A registered onChange callback is invoked with a
// copy of the updated tracker outside the critical section so slow observers
// never block the engine.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.Lock()
	p.TotalTasks += d.Total
	p.CompletedTasks += d.Completed
	p.SkippedTasks += d.Skipped
	p.FailedTasks += d.Failed
	p.RunningTasks += d.Running
	p.PendingTasks += d.Pending
	snapshot := *p
	cb := p.onChange
	p.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy suitable for read-only inspection.
func (p *Progress) Snapshot() Progress {
	if p == nil {
		return Progress{}
	}
	p.Lock()
	defer p.Unlock()
	return *p
}

// OnChange registers a callback invoked after every Update; nil disables it.
// Only one callback can be active.
func (p *Progress) OnChange(cb func(Progress)) {
	if p == nil {
		return
	}
	p.Lock()
	p.onChange = cb
	p.Unlock()
}

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithNewTracker creates a tracker for a run, embeds it in a derived context
// and returns both.
func WithNewTracker(ctx context.Context, runID, workflow string, onChange func(Progress)) (context.Context, *Progress) {
	if ctx == nil {
		ctx = context.Background()
	}
	tr := &Progress{
		RunID:     runID,
		Workflow:  workflow,
		StartedAt: time.Now(),
		onChange:  onChange,
	}
	return context.WithValue(ctx, trackerKey, tr), tr
}

// FromContext extracts the tracker from ctx; ok is false when absent.
func FromContext(ctx context.Context) (*Progress, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Progress)
	return tr, ok
}

// GetSnapshot combines FromContext and Snapshot.
func GetSnapshot(ctx context.Context) (Progress, bool) {
	if tr, ok := FromContext(ctx); ok {
		return tr.Snapshot(), true
	}
	return Progress{}, false
}

// UpdateCtx applies the delta to the tracker carried by ctx, if any.
func UpdateCtx(ctx context.Context, d Delta) {
	if tr, ok := FromContext(ctx); ok {
		tr.Update(d)
	}
}
