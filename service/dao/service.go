package dao

import (
	"context"
)

// Service is the generic persistence contract used for run records and job
// snapshots. Implementations are in-memory only; the interface exists so
// hosts can swap richer stores in without touching the engine.
type Service[K comparable, T any] interface {
	Save(ctx context.Context, t *T) error

	Load(ctx context.Context, id K) (*T, error)

	Delete(ctx context.Context, id K) error

	List(ctx context.Context, parameters ...*Parameter) ([]*T, error)
}
