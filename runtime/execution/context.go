package execution

import (
	"sync"
)

// OutputStore keeps task outputs published during a single workflow run. It is
// shared by every task context of the run and is safe for concurrent writers,
// one per in-flight parallel task.
type OutputStore struct {
	mu      sync.RWMutex
	outputs map[string]interface{}
}

// NewOutputStore creates an empty output store.
func NewOutputStore() *OutputStore {
	return &OutputStore{outputs: make(map[string]interface{})}
}

// Store publishes a task output under the task name, overwriting any previous
// value.
func (s *OutputStore) Store(taskName string, output interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputs[taskName] = output
}

// Lookup returns a previously published output.
func (s *OutputStore) Lookup(taskName string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	output, ok := s.outputs[taskName]
	return output, ok
}

// Snapshot returns a copy of all published outputs.
func (s *OutputStore) Snapshot() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret := make(map[string]interface{}, len(s.outputs))
	for k, v := range s.outputs {
		ret[k] = v
	}
	return ret
}

// Session scopes task contexts and the shared output store to one workflow
// run. The engine creates one session per Execute call; outputs flow between
// tasks only through it.
type Session struct {
	RunID        string
	WorkflowID   string
	WorkflowName string
	store        *OutputStore
}

// NewSession creates a session for a single workflow run.
func NewSession(runID, workflowID, workflowName string) *Session {
	return &Session{
		RunID:        runID,
		WorkflowID:   workflowID,
		WorkflowName: workflowName,
		store:        NewOutputStore(),
	}
}

// NewTaskContext builds a fresh context scoped to one run+task. Each
// dependency's stored output is copied into the context keyed by the
// dependency name; dependencies without a published output are left out.
func (s *Session) NewTaskContext(taskName string, dependencies []string) *TaskContext {
	ctx := &TaskContext{
		RunID:        s.RunID,
		WorkflowID:   s.WorkflowID,
		WorkflowName: s.WorkflowName,
		TaskName:     taskName,
		inputs:       make(map[string]interface{}),
		store:        s.store,
	}
	for _, dependency := range dependencies {
		if output, ok := s.store.Lookup(dependency); ok {
			ctx.inputs[dependency] = output
		}
	}
	return ctx
}

// StoreTaskOutput publishes a task output on the session store.
func (s *Session) StoreTaskOutput(taskName string, output interface{}) {
	s.store.Store(taskName, output)
}

// TaskOutput returns a task output published during this run.
func (s *Session) TaskOutput(taskName string) (interface{}, bool) {
	return s.store.Lookup(taskName)
}

// TaskContext carries the inputs of a single task attempt and the shared
// output store used to publish its result for future consumers. It is the
// only value the engine hands to a task handler besides context.Context.
type TaskContext struct {
	RunID        string
	WorkflowID   string
	WorkflowName string
	TaskName     string

	mu     sync.RWMutex
	inputs map[string]interface{}
	store  *OutputStore
}

// SetInput copies a named value into the context.
func (c *TaskContext) SetInput(name string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inputs[name] = value
}

// Input returns a named input, typically a dependency output keyed by the
// dependency task name.
func (c *TaskContext) Input(name string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.inputs[name]
	return value, ok
}

// Inputs returns a copy of all inputs.
func (c *TaskContext) Inputs() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ret := make(map[string]interface{}, len(c.inputs))
	for k, v := range c.inputs {
		ret[k] = v
	}
	return ret
}

// StoreTaskOutput publishes an output for future consumers of this run.
func (c *TaskContext) StoreTaskOutput(taskName string, output interface{}) {
	c.store.Store(taskName, output)
}

// TaskOutput returns an output published earlier in this run.
func (c *TaskContext) TaskOutput(taskName string) (interface{}, bool) {
	return c.store.Lookup(taskName)
}
