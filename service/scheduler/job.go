package scheduler

import (
	"time"

	"github.com/viant/stepflow/internal/idgen"
)

// nextRunWindow bounds the forward minute-by-minute scan when computing a
// job's next eligible run. A schedule that fires less than once per window
// ends up with no next run and stalls; hosts needing rarer schedules should
// re-enable the job or widen their cron expression.
const nextRunWindow = 24 * time.Hour

// ScheduleConfig describes when and how often a job may fire.
type ScheduleConfig struct {
	Expression string     `json:"expression" yaml:"expression"`
	Enabled    bool       `json:"enabled" yaml:"enabled"`
	StartAt    *time.Time `json:"startAt,omitempty" yaml:"startAt,omitempty"`
	EndAt      *time.Time `json:"endAt,omitempty" yaml:"endAt,omitempty"`
	// MaxRuns caps total executions; zero means unlimited.
	MaxRuns int `json:"maxRuns,omitempty" yaml:"maxRuns,omitempty"`
}

// ScheduledJob binds a workflow identifier to a parsed cron expression and
// tracks its execution bookkeeping. Jobs live in the scheduler's map from
// Schedule until Unschedule and are mutated in place by RecordRun.
type ScheduledJob struct {
	ID         string          `json:"id" yaml:"id"`
	WorkflowID string          `json:"workflowId" yaml:"workflowId"`
	Config     ScheduleConfig  `json:"config" yaml:"config"`
	Cron       *CronExpression `json:"cron" yaml:"cron"`
	RunCount   int             `json:"runCount" yaml:"runCount"`
	LastRun    *time.Time      `json:"lastRun,omitempty" yaml:"lastRun,omitempty"`
	NextRun    *time.Time      `json:"nextRun,omitempty" yaml:"nextRun,omitempty"`
}

// NewScheduledJob creates an enabled job for the workflow with a parsed cron
// expression; the next run is left for the scheduler to compute.
func NewScheduledJob(workflowID, expression string) (*ScheduledJob, error) {
	cron, err := ParseCron(expression)
	if err != nil {
		return nil, err
	}
	return &ScheduledJob{
		ID:         idgen.New(),
		WorkflowID: workflowID,
		Config:     ScheduleConfig{Expression: expression, Enabled: true},
		Cron:       cron,
	}, nil
}

// WithStartAt defers the first eligible run
func (j *ScheduledJob) WithStartAt(at time.Time) *ScheduledJob {
	j.Config.StartAt = &at
	return j
}

// WithEndAt retires the schedule after the given time
func (j *ScheduledJob) WithEndAt(at time.Time) *ScheduledJob {
	j.Config.EndAt = &at
	return j
}

// WithMaxRuns caps total executions
func (j *ScheduledJob) WithMaxRuns(maxRuns int) *ScheduledJob {
	j.Config.MaxRuns = maxRuns
	return j
}

// ComputeNextRun scans forward minute by minute from the supplied time for
// the first cron match within the scan window, honouring the start/end dates
// and the run cap. When nothing matches NextRun becomes nil. A computed next
// run is always strictly after the scan origin, hence strictly after the last
// run when callers pass it.
func (j *ScheduledJob) ComputeNextRun(from time.Time) {
	j.NextRun = nil
	if j.Cron == nil {
		return
	}
	if j.Config.MaxRuns > 0 && j.RunCount >= j.Config.MaxRuns {
		return
	}
	if j.Config.StartAt != nil && from.Before(*j.Config.StartAt) {
		// step back one minute so the start minute itself is eligible
		from = j.Config.StartAt.Add(-time.Minute)
	}
	next, ok := j.Cron.Next(from, nextRunWindow)
	if !ok {
		return
	}
	if j.Config.EndAt != nil && next.After(*j.Config.EndAt) {
		return
	}
	j.NextRun = &next
}

// ShouldRun reports whether the job is due at the supplied time.
func (j *ScheduledJob) ShouldRun(now time.Time) bool {
	return j.Config.Enabled && j.NextRun != nil && !now.Before(*j.NextRun)
}

// RecordRun registers one dispatch: it bumps the run counter, stores the last
// run time and recomputes the next one from it.
func (j *ScheduledJob) RecordRun(now time.Time) {
	j.RunCount++
	at := now
	j.LastRun = &at
	j.ComputeNextRun(at)
}
