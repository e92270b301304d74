package stepflow

import (
	"github.com/viant/stepflow/model"
	"github.com/viant/stepflow/service/dao"
	"github.com/viant/stepflow/service/engine"
	"github.com/viant/stepflow/service/messaging"
	"github.com/viant/stepflow/service/scheduler"
	"github.com/viant/stepflow/tracing"
)

// Option customises the stepflow service
type Option func(s *Service)

// WithConfig sets the service configuration
func WithConfig(config *Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithRunDAO sets the run persistence service
func WithRunDAO(runs dao.Service[string, engine.Run]) Option {
	return func(s *Service) {
		s.runDAO = runs
	}
}

// WithQueue sets the dispatch queue
func WithQueue(queue messaging.Queue[scheduler.Dispatch]) Option {
	return func(s *Service) {
		s.queue = queue
	}
}

// WithHandler registers a named task handler
func WithHandler(name string, handler model.Handler) Option {
	return func(s *Service) {
		s.handlers[name] = handler
	}
}

// WithHandlers registers a set of named task handlers
func WithHandlers(handlers map[string]model.Handler) Option {
	return func(s *Service) {
		for name, handler := range handlers {
			s.handlers[name] = handler
		}
	}
}

// WithWorkflowResolver overrides how the scheduler runner resolves a
// workflow id to a fresh workflow instance
func WithWorkflowResolver(resolver scheduler.WorkflowResolver) Option {
	return func(s *Service) {
		s.resolver = resolver
	}
}

// WithTracing configures OpenTelemetry tracing for the service. If outputFile
// is empty the stdout exporter is used; otherwise traces are written to the
// supplied file path. Safe to call multiple times, the first successful
// initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}
