// Package workflow loads declarative workflow definitions from YAML and
// turns them into executable workflows by binding named handlers.
package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/viant/afs"
	"github.com/viant/stepflow/model"
	"gopkg.in/yaml.v3"
)

// Duration decodes "30s" style values; plain integers are nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw interface{}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	switch value := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		*d = Duration(parsed)
	case int:
		*d = Duration(value)
	case int64:
		*d = Duration(value)
	case float64:
		*d = Duration(value)
	default:
		return fmt.Errorf("invalid duration: %v", raw)
	}
	return nil
}

// Definition is the declarative form of a workflow. It carries no handlers;
// tasks reference them by name and Build binds them.
type Definition struct {
	Name     string           `yaml:"name"`
	Config   ConfigDefinition `yaml:"config,omitempty"`
	Tasks    []TaskDefinition `yaml:"tasks"`
	Schedule string           `yaml:"schedule,omitempty"`
}

// ConfigDefinition mirrors the workflow level settings.
type ConfigDefinition struct {
	Timeout            Duration `yaml:"timeout,omitempty"`
	ParallelExecution  bool     `yaml:"parallelExecution,omitempty"`
	MaxConcurrentTasks int      `yaml:"maxConcurrentTasks,omitempty"`
	ContinueOnFailure  bool     `yaml:"continueOnFailure,omitempty"`
	EnableCheckpoints  bool     `yaml:"enableCheckpoints,omitempty"`
	Tags               []string `yaml:"tags,omitempty"`
}

// TaskDefinition is the declarative form of a single task.
type TaskDefinition struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description,omitempty"`
	Handler     string            `yaml:"handler"`
	Timeout     Duration          `yaml:"timeout,omitempty"`
	Retry       *RetryDefinition  `yaml:"retry,omitempty"`
	DependsOn   []string          `yaml:"dependsOn,omitempty"`
	Condition   string            `yaml:"condition,omitempty"`
	Tags        []string          `yaml:"tags,omitempty"`
	Priority    int               `yaml:"priority,omitempty"`
	Metadata    map[string]string `yaml:"metadata,omitempty"`
}

// RetryDefinition mirrors a task retry policy.
type RetryDefinition struct {
	MaxRetries int      `yaml:"maxRetries"`
	Delay      Duration `yaml:"delay,omitempty"`
}

// Service loads workflow definitions from a storage location.
type Service struct {
	fs afs.Service
}

// New creates a workflow definition service backed by the abstract file
// system, so definitions can be loaded from local paths, embedded assets or
// cloud storage URLs alike.
func New() *Service {
	return &Service{fs: afs.New()}
}

// DecodeYAML decodes a workflow definition from YAML.
func (s *Service) DecodeYAML(encoded []byte) (*Definition, error) {
	definition := &Definition{}
	if err := yaml.Unmarshal(encoded, definition); err != nil {
		return nil, fmt.Errorf("failed to decode workflow definition: %w", err)
	}
	if err := definition.validate(); err != nil {
		return nil, err
	}
	return definition, nil
}

// Load loads a workflow definition from YAML at the supplied URL.
func (s *Service) Load(ctx context.Context, URL string) (*Definition, error) {
	if filepath.Ext(URL) == "" {
		URL += ".yaml"
	}
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow definition from %s: %w", URL, err)
	}
	definition, err := s.DecodeYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse workflow definition from %s: %w", URL, err)
	}
	if definition.Name == "" {
		definition.Name = nameFromURL(URL)
	}
	return definition, nil
}

func (d *Definition) validate() error {
	if len(d.Tasks) == 0 {
		return fmt.Errorf("workflow definition has no tasks")
	}
	for i, task := range d.Tasks {
		if task.Name == "" {
			return fmt.Errorf("task[%d] has no name", i)
		}
		if task.Handler == "" {
			return fmt.Errorf("task %q has no handler", task.Name)
		}
	}
	return nil
}

// Build turns the definition into an executable workflow, binding each task
// to a handler from the supplied registry. An unbound handler name is an
// error.
func (d *Definition) Build(handlers map[string]model.Handler) (*model.Workflow, error) {
	workflow := model.NewWorkflow(d.Name)
	workflow.Config.Timeout = time.Duration(d.Config.Timeout)
	workflow.Config.ParallelExecution = d.Config.ParallelExecution
	workflow.Config.MaxConcurrentTasks = d.Config.MaxConcurrentTasks
	workflow.Config.ContinueOnFailure = d.Config.ContinueOnFailure
	workflow.Config.EnableCheckpoints = d.Config.EnableCheckpoints
	workflow.Config.Tags = append([]string(nil), d.Config.Tags...)

	for _, definition := range d.Tasks {
		handler, ok := handlers[definition.Handler]
		if !ok {
			return nil, fmt.Errorf("no handler registered for %q (task %q)", definition.Handler, definition.Name)
		}
		task := model.NewTask(definition.Name).WithHandler(handler)
		task.Config.Description = definition.Description
		task.Config.Timeout = time.Duration(definition.Timeout)
		task.Config.DependsOn = append([]string(nil), definition.DependsOn...)
		task.Config.Condition = definition.Condition
		task.Config.Tags = append([]string(nil), definition.Tags...)
		task.Config.Priority = definition.Priority
		for k, v := range definition.Metadata {
			task.WithMetadata(k, v)
		}
		if definition.Retry != nil {
			task.WithRetry(definition.Retry.MaxRetries, time.Duration(definition.Retry.Delay))
		}
		if err := workflow.AddTask(task); err != nil {
			return nil, fmt.Errorf("failed to add task %q: %w", definition.Name, err)
		}
	}
	return workflow, nil
}

func nameFromURL(URL string) string {
	base := filepath.Base(URL)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
