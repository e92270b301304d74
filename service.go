package stepflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/viant/stepflow/model"
	"github.com/viant/stepflow/service/dao"
	"github.com/viant/stepflow/service/dao/workflow"
	"github.com/viant/stepflow/service/engine"
	"github.com/viant/stepflow/service/messaging"
	mmemory "github.com/viant/stepflow/service/messaging/memory"
	"github.com/viant/stepflow/service/scheduler"
)

// Service is the high-level façade over the workflow engine, the cron
// scheduler and the definition loader.
type Service struct {
	config      *Config
	engine      *engine.Service
	scheduler   *scheduler.Service
	runner      *scheduler.Runner
	workflowDAO *workflow.Service
	queue       messaging.Queue[scheduler.Dispatch]
	runDAO      dao.Service[string, engine.Run]
	resolver    scheduler.WorkflowResolver

	handlers    map[string]model.Handler
	mu          sync.RWMutex
	definitions map[string]*workflow.Definition
}

// New creates a stepflow service with in-memory defaults.
func New(options ...Option) *Service {
	s := &Service{
		handlers:    make(map[string]model.Handler),
		definitions: make(map[string]*workflow.Definition),
	}
	s.init(options)
	return s
}

func (s *Service) init(options []Option) {
	for _, option := range options {
		option(s)
	}
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if s.queue == nil {
		s.queue = mmemory.NewQueue[scheduler.Dispatch](mmemory.DefaultConfig())
	}
	if s.workflowDAO == nil {
		s.workflowDAO = workflow.New()
	}

	engineOptions := []engine.Option{engine.WithConfig(s.config.Engine)}
	if s.runDAO != nil {
		engineOptions = append(engineOptions, engine.WithRunDAO(s.runDAO))
	}
	s.engine = engine.New(engineOptions...)
	s.scheduler = scheduler.New()

	if s.resolver == nil {
		s.resolver = s.resolveWorkflow
	}
	// collaborators are all non-nil here, the constructor cannot fail
	s.runner, _ = scheduler.NewRunner(s.config.Runner, s.scheduler, s.engine, s.resolver, s.queue)
}

// RegisterHandler registers a named task handler used when building
// declarative workflow definitions.
func (s *Service) RegisterHandler(name string, handler model.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[name] = handler
}

// RegisterDefinition stores a workflow definition under its name so the
// scheduler runner can rebuild a fresh workflow per dispatch.
func (s *Service) RegisterDefinition(definition *workflow.Definition) error {
	if definition == nil || definition.Name == "" {
		return fmt.Errorf("definition with a name is required")
	}
	s.mu.Lock()
	s.definitions[definition.Name] = definition
	s.mu.Unlock()

	if definition.Schedule != "" {
		if _, err := s.scheduler.ScheduleCron(definition.Name, definition.Name, definition.Schedule); err != nil {
			return fmt.Errorf("failed to schedule workflow %v: %w", definition.Name, err)
		}
	}
	return nil
}

// LoadWorkflow loads a declarative definition from the URL, registers it
// and returns an executable workflow bound to the registered handlers. A
// definition carrying a schedule expression is also registered with the
// scheduler under the workflow name.
func (s *Service) LoadWorkflow(ctx context.Context, URL string) (*model.Workflow, error) {
	definition, err := s.workflowDAO.Load(ctx, URL)
	if err != nil {
		return nil, err
	}
	if err = s.RegisterDefinition(definition); err != nil {
		return nil, err
	}
	return s.buildWorkflow(definition)
}

// Execute runs the workflow to completion.
func (s *Service) Execute(ctx context.Context, aWorkflow *model.Workflow) (*engine.ExecutionResult, error) {
	return s.engine.Execute(ctx, aWorkflow)
}

// Start launches the scheduler runner.
func (s *Service) Start(ctx context.Context) error {
	return s.runner.Start(ctx)
}

// Shutdown stops the scheduler runner and waits for in-flight dispatches.
func (s *Service) Shutdown() {
	s.runner.Shutdown()
}

// Engine returns the workflow engine.
func (s *Service) Engine() *engine.Service {
	return s.engine
}

// Scheduler returns the cron scheduler.
func (s *Service) Scheduler() *scheduler.Service {
	return s.scheduler
}

// Runner returns the scheduler dispatch runner.
func (s *Service) Runner() *scheduler.Runner {
	return s.runner
}

func (s *Service) buildWorkflow(definition *workflow.Definition) (*model.Workflow, error) {
	s.mu.RLock()
	handlers := make(map[string]model.Handler, len(s.handlers))
	for name, handler := range s.handlers {
		handlers[name] = handler
	}
	s.mu.RUnlock()
	return definition.Build(handlers)
}

// resolveWorkflow is the default runner resolver; it rebuilds a fresh
// workflow instance from the registered definition.
func (s *Service) resolveWorkflow(_ context.Context, workflowID string) (*model.Workflow, error) {
	s.mu.RLock()
	definition, ok := s.definitions[workflowID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown workflow definition: %v", workflowID)
	}
	return s.buildWorkflow(definition)
}
