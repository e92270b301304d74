package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/viant/stepflow/internal/clock"
)

// Service keeps the job map behind a reader-writer lock: many readers
// (list/due queries) and occasional writers (schedule/record/pause).
type Service struct {
	mu      sync.RWMutex
	jobs    map[string]*ScheduledJob
	running bool
}

// New creates an empty scheduler.
func New() *Service {
	return &Service{jobs: make(map[string]*ScheduledJob)}
}

// Schedule registers a job and computes its first eligible run. A job id
// already present is a conflict; a job without a parsed cron gets one from
// its configured expression.
func (s *Service) Schedule(job *ScheduledJob) error {
	if job == nil {
		return fmt.Errorf("job cannot be nil")
	}
	if job.ID == "" {
		return fmt.Errorf("job id cannot be empty")
	}
	if job.Cron == nil {
		cron, err := ParseCron(job.Config.Expression)
		if err != nil {
			return err
		}
		job.Cron = cron
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("%w: %v", ErrConflict, job.ID)
	}
	job.ComputeNextRun(clock.Now())
	s.jobs[job.ID] = job
	return nil
}

// ScheduleCron creates and registers a job for the workflow with the given
// 5-field cron expression, returning the job with the supplied id.
func (s *Service) ScheduleCron(id, workflowID, expression string) (*ScheduledJob, error) {
	job, err := NewScheduledJob(workflowID, expression)
	if err != nil {
		return nil, err
	}
	if id != "" {
		job.ID = id
	}
	if err = s.Schedule(job); err != nil {
		return nil, err
	}
	return job, nil
}

// Unschedule removes a job.
func (s *Service) Unschedule(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return fmt.Errorf("%w: %v", ErrJobNotFound, id)
	}
	delete(s.jobs, id)
	return nil
}

// Job returns a job by id.
func (s *Service) Job(id string) (*ScheduledJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrJobNotFound, id)
	}
	return job, nil
}

// Jobs lists all scheduled jobs.
func (s *Service) Jobs() []*ScheduledJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret := make([]*ScheduledJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		ret = append(ret, job)
	}
	return ret
}

// DueJobs returns the jobs due at the supplied time.
func (s *Service) DueJobs(now time.Time) []*ScheduledJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var due []*ScheduledJob
	for _, job := range s.jobs {
		if job.ShouldRun(now) {
			due = append(due, job)
		}
	}
	return due
}

// PauseJob disables a job; it stays scheduled but is never due.
func (s *Service) PauseJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %v", ErrJobNotFound, id)
	}
	job.Config.Enabled = false
	return nil
}

// ResumeJob re-enables a job and recomputes its next run relative to now, so
// runs missed while paused are not replayed.
func (s *Service) ResumeJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %v", ErrJobNotFound, id)
	}
	job.Config.Enabled = true
	job.ComputeNextRun(clock.Now())
	return nil
}

// RecordExecution registers one dispatch of the job at the supplied time.
func (s *Service) RecordExecution(id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %v", ErrJobNotFound, id)
	}
	job.RecordRun(now)
	return nil
}

// Start flips the liveness flag; the scheduler itself owns no timer, polling
// is the Runner's or the host's loop.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
}

// Stop clears the liveness flag.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

// IsRunning reports the liveness flag.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
