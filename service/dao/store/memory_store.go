package store

import (
	"context"
	"sync"

	"github.com/viant/stepflow/service/dao"
)

// MemoryStore is a generic in-memory implementation of dao.Service keeping
// entities of type *T mapped by a comparable key K behind a reader-writer
// lock. The key is obtained from the supplied key selector; the optional
// status selector enables List filtering by a "Status" parameter.
type MemoryStore[K comparable, T any] struct {
	mu             sync.RWMutex
	records        map[K]*T
	keySelector    func(*T) K
	statusSelector func(*T) string
}

// Option customises a MemoryStore.
type Option[K comparable, T any] func(*MemoryStore[K, T])

// WithStatusSelector lets List filter records by the status the selector
// extracts.
func WithStatusSelector[K comparable, T any](selector func(*T) string) Option[K, T] {
	return func(s *MemoryStore[K, T]) {
		s.statusSelector = selector
	}
}

// NewMemoryStore creates a MemoryStore; keySelector extracts the entity key
// (usually the ID field).
func NewMemoryStore[K comparable, T any](keySelector func(*T) K, options ...Option[K, T]) *MemoryStore[K, T] {
	ret := &MemoryStore[K, T]{
		records:     make(map[K]*T),
		keySelector: keySelector,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Save stores or overwrites a record.
func (s *MemoryStore[K, T]) Save(_ context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	key := s.keySelector(v)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = v
	return nil
}

// Load returns a record by key, or nil when absent.
func (s *MemoryStore[K, T]) Load(_ context.Context, key K) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	return v, nil
}

// Delete removes a record.
func (s *MemoryStore[K, T]) Delete(_ context.Context, key K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// List returns stored records matching the optional filter parameters.
func (s *MemoryStore[K, T]) List(_ context.Context, parameters ...*dao.Parameter) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*T, 0, len(s.records))
	for _, v := range s.records {
		if s.statusSelector != nil && !dao.FilterByStatus(s.statusSelector(v), parameters) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}
