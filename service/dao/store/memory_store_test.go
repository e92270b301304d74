package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/stepflow/service/dao"
)

type record struct {
	ID     string
	Status string
	Value  int
}

func newRecordStore() *MemoryStore[string, record] {
	return NewMemoryStore[string, record](
		func(r *record) string { return r.ID },
		WithStatusSelector[string, record](func(r *record) string { return r.Status }),
	)
}

func TestMemoryStore_SaveLoadDelete(t *testing.T) {
	store := newRecordStore()
	ctx := context.Background()

	assert.ErrorIs(t, store.Save(ctx, nil), dao.ErrNilEntity)
	assert.NoError(t, store.Save(ctx, &record{ID: "r1", Status: "active", Value: 1}))

	loaded, err := store.Load(ctx, "r1")
	assert.NoError(t, err)
	assert.Equal(t, 1, loaded.Value)

	// overwrite under the same key
	assert.NoError(t, store.Save(ctx, &record{ID: "r1", Status: "active", Value: 2}))
	loaded, _ = store.Load(ctx, "r1")
	assert.Equal(t, 2, loaded.Value)

	// absent keys load as nil, nil
	missing, err := store.Load(ctx, "absent")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	assert.NoError(t, store.Delete(ctx, "r1"))
	loaded, _ = store.Load(ctx, "r1")
	assert.Nil(t, loaded)
}

func TestMemoryStore_ListFilterByStatus(t *testing.T) {
	store := newRecordStore()
	ctx := context.Background()

	assert.NoError(t, store.Save(ctx, &record{ID: "r1", Status: "active"}))
	assert.NoError(t, store.Save(ctx, &record{ID: "r2", Status: "done"}))
	assert.NoError(t, store.Save(ctx, &record{ID: "r3", Status: "done"}))

	all, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Len(t, all, 3)

	done, err := store.List(ctx, dao.NewParameter("Status", "done"))
	assert.NoError(t, err)
	assert.Len(t, done, 2)

	either, err := store.List(ctx, dao.NewParameter("Status", "active", "done"))
	assert.NoError(t, err)
	assert.Len(t, either, 3)

	none, err := store.List(ctx, dao.NewParameter("Status", "archived"))
	assert.NoError(t, err)
	assert.Empty(t, none)
}
