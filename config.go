package stepflow

import (
	"fmt"

	"github.com/viant/stepflow/service/engine"
	"github.com/viant/stepflow/service/scheduler"
)

// Config is a serialisable representation of the service configuration. It
// can be populated from JSON, YAML, environment variables, etc. The
// zero-value is useful, all nested fields inherit their package defaults.

type Config struct {
	Engine engine.Config          `json:"engine" yaml:"engine"`
	Runner scheduler.RunnerConfig `json:"runner" yaml:"runner"`
}

// DefaultConfig returns a Config populated with the same defaults the
// sub-package constructors use. Callers may modify the returned struct
// before passing it to NewFromConfig.
func DefaultConfig() *Config {
	return &Config{
		Engine: engine.DefaultConfig(),
		Runner: scheduler.DefaultRunnerConfig(),
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Engine.PollInterval <= 0 {
		return fmt.Errorf("engine.pollInterval must be > 0")
	}
	if c.Engine.MaxConcurrentTasks <= 0 {
		return fmt.Errorf("engine.maxConcurrentTasks must be > 0")
	}
	if c.Runner.PollInterval <= 0 {
		return fmt.Errorf("runner.pollInterval must be > 0")
	}
	if c.Runner.WorkerCount <= 0 {
		return fmt.Errorf("runner.workerCount must be > 0")
	}
	return nil
}
