package objectstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibedata/platform/pkg/errors"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()

	t.Run("put then get returns a copy", func(t *testing.T) {
		store := NewMemory()
		data := []byte("hello")
		require.NoError(t, store.Put(ctx, "raw", "a.csv", data))

		got, err := store.Get(ctx, "raw", "a.csv")
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), got)

		// Mutating the returned slice must not touch the stored object
		got[0] = 'X'
		again, err := store.Get(ctx, "raw", "a.csv")
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), again)
	})

	t.Run("put replaces existing key", func(t *testing.T) {
		store := NewMemory()
		require.NoError(t, store.Put(ctx, "raw", "a.csv", []byte("v1")))
		require.NoError(t, store.Put(ctx, "raw", "a.csv", []byte("version two")))

		obj, err := store.Stat(ctx, "raw", "a.csv")
		require.NoError(t, err)
		assert.Equal(t, int64(len("version two")), obj.Size)
	})

	t.Run("list is sorted by key", func(t *testing.T) {
		store := NewMemory()
		require.NoError(t, store.Put(ctx, "raw", "b.json", []byte("b")))
		require.NoError(t, store.Put(ctx, "raw", "a.csv", []byte("a")))
		require.NoError(t, store.Put(ctx, "other", "c.csv", []byte("c")))

		objects, err := store.List(ctx, "raw")
		require.NoError(t, err)
		require.Len(t, objects, 2)
		assert.Equal(t, "a.csv", objects[0].Key)
		assert.Equal(t, "b.json", objects[1].Key)
	})

	t.Run("empty container lists empty", func(t *testing.T) {
		store := NewMemory()
		objects, err := store.List(ctx, "nothing")
		require.NoError(t, err)
		assert.Empty(t, objects)
	})

	t.Run("missing key is not_found", func(t *testing.T) {
		store := NewMemory()
		_, err := store.Get(ctx, "raw", "missing.csv")
		assert.True(t, errors.IsNotFound(err))

		_, err = store.Stat(ctx, "raw", "missing.csv")
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestDisabled(t *testing.T) {
	ctx := context.Background()
	store := Disabled{}

	_, err := store.List(ctx, "raw")
	assert.True(t, errors.IsType(err, errors.ErrorTypeRemote))
	_, err = store.Stat(ctx, "raw", "a.csv")
	assert.True(t, errors.IsType(err, errors.ErrorTypeRemote))
	_, err = store.Get(ctx, "raw", "a.csv")
	assert.True(t, errors.IsType(err, errors.ErrorTypeRemote))
	err = store.Put(ctx, "raw", "a.csv", nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeRemote))
}

func TestContentType(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"orders.csv", "text/csv"},
		{"ORDERS.CSV", "text/csv"},
		{"forecast.json", "application/json"},
		{"pipeline_runs.log", "text/plain"},
		{"vibe.duckdb", "application/octet-stream"},
		{"noextension", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContentType(tt.name))
		})
	}
}
