package scheduler

import "errors"

var (
	// ErrInvalidCron is returned when a cron expression does not parse.
	ErrInvalidCron = errors.New("scheduler: invalid cron expression")

	// ErrJobNotFound is returned for operations on unknown job ids.
	ErrJobNotFound = errors.New("scheduler: job not found")

	// ErrConflict is returned when scheduling a job id that already exists.
	ErrConflict = errors.New("scheduler: job already scheduled")
)
