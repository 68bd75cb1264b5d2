package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/guttosm/shell-cache/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIdentity(t *testing.T, raw string) model.RequestIdentity {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return model.NewRequestIdentity(http.MethodGet, u)
}

func testSnapshot(body string) *model.Snapshot {
	return &model.Snapshot{
		Status:   http.StatusOK,
		Header:   http.Header{"Content-Type": []string{"text/css"}},
		Body:     []byte(body),
		Type:     model.ResponseTypeBasic,
		URL:      "https://trip.example.com/style.css?v=2",
		StoredAt: time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC),
	}
}

// runStorageContract exercises the behaviour every backend must share.
func runStorageContract(t *testing.T, newStorage func(t *testing.T) CacheStorage) {
	ctx := context.Background()

	t.Run("open creates a store once", func(t *testing.T) {
		storage := newStorage(t)

		ok, err := storage.Has(ctx, "app-v1")
		require.NoError(t, err)
		assert.False(t, ok)

		first, err := storage.Open(ctx, "app-v1")
		require.NoError(t, err)
		assert.Equal(t, "app-v1", first.Name())

		id := testIdentity(t, "https://trip.example.com/app.js")
		require.NoError(t, first.Put(ctx, id, testSnapshot("console.log(1)")))

		second, err := storage.Open(ctx, "app-v1")
		require.NoError(t, err)
		got, err := second.Match(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "console.log(1)", string(got.Body))

		ok, err = storage.Has(ctx, "app-v1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("match returns nil for absent identity", func(t *testing.T) {
		storage := newStorage(t)
		store, err := storage.Open(ctx, "app-v1")
		require.NoError(t, err)

		got, err := store.Match(ctx, testIdentity(t, "https://trip.example.com/missing.js"))
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("put then match round-trips the snapshot", func(t *testing.T) {
		storage := newStorage(t)
		store, err := storage.Open(ctx, "app-v1")
		require.NoError(t, err)

		id := testIdentity(t, "https://trip.example.com/style.css?v=2")
		want := testSnapshot("body{margin:0}")
		require.NoError(t, store.Put(ctx, id, want))

		got, err := store.Match(ctx, id)
		require.NoError(t, err)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("put overwrites the previous snapshot", func(t *testing.T) {
		storage := newStorage(t)
		store, err := storage.Open(ctx, "app-v1")
		require.NoError(t, err)

		id := testIdentity(t, "https://trip.example.com/index.html")
		require.NoError(t, store.Put(ctx, id, testSnapshot("old")))
		require.NoError(t, store.Put(ctx, id, testSnapshot("new")))

		got, err := store.Match(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "new", string(got.Body))

		keys, err := store.Keys(ctx)
		require.NoError(t, err)
		assert.Len(t, keys, 1)
	})

	t.Run("stores are isolated by name", func(t *testing.T) {
		storage := newStorage(t)
		v1, err := storage.Open(ctx, "app-v1")
		require.NoError(t, err)
		v2, err := storage.Open(ctx, "app-v2")
		require.NoError(t, err)

		id := testIdentity(t, "https://trip.example.com/app.js")
		require.NoError(t, v1.Put(ctx, id, testSnapshot("v1")))

		got, err := v2.Match(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("keys are sorted", func(t *testing.T) {
		storage := newStorage(t)
		for _, name := range []string{"app-v2", "app-v1", "other"} {
			_, err := storage.Open(ctx, name)
			require.NoError(t, err)
		}
		names, err := storage.Keys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"app-v1", "app-v2", "other"}, names)

		store, err := storage.Open(ctx, "app-v1")
		require.NoError(t, err)
		for _, p := range []string{"/style.css", "/app.js", "/"} {
			require.NoError(t, store.Put(ctx, testIdentity(t, "https://trip.example.com"+p), testSnapshot(p)))
		}
		ids, err := store.Keys(ctx)
		require.NoError(t, err)
		require.Len(t, ids, 3)
		assert.Equal(t, "https://trip.example.com/", ids[0].URL)
		assert.Equal(t, "https://trip.example.com/app.js", ids[1].URL)
		assert.Equal(t, "https://trip.example.com/style.css", ids[2].URL)
		assert.Equal(t, http.MethodGet, ids[0].Method)
	})

	t.Run("delete entry", func(t *testing.T) {
		storage := newStorage(t)
		store, err := storage.Open(ctx, "app-v1")
		require.NoError(t, err)

		id := testIdentity(t, "https://trip.example.com/app.js")
		require.NoError(t, store.Put(ctx, id, testSnapshot("x")))

		ok, err := store.Delete(ctx, id)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Delete(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := store.Match(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("delete store drops its entries", func(t *testing.T) {
		storage := newStorage(t)
		store, err := storage.Open(ctx, "app-v1")
		require.NoError(t, err)
		id := testIdentity(t, "https://trip.example.com/app.js")
		require.NoError(t, store.Put(ctx, id, testSnapshot("x")))

		ok, err := storage.Delete(ctx, "app-v1")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = storage.Delete(ctx, "app-v1")
		require.NoError(t, err)
		assert.False(t, ok)

		names, err := storage.Keys(ctx)
		require.NoError(t, err)
		assert.NotContains(t, names, "app-v1")

		assert.ErrorIs(t, store.Put(ctx, id, testSnapshot("late")), ErrStoreNotFound)

		reopened, err := storage.Open(ctx, "app-v1")
		require.NoError(t, err)
		got, err := reopened.Match(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("rejects invalid store names", func(t *testing.T) {
		storage := newStorage(t)
		for _, name := range []string{"", "  ", "../escape", "a/b"} {
			_, err := storage.Open(ctx, name)
			assert.ErrorIs(t, err, ErrInvalidStoreName, name)
		}
	})

	t.Run("concurrent puts keep one complete snapshot", func(t *testing.T) {
		storage := newStorage(t)
		store, err := storage.Open(ctx, "app-v1")
		require.NoError(t, err)
		id := testIdentity(t, "https://trip.example.com/app.js")

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, store.Put(ctx, id, testSnapshot(fmt.Sprintf("writer-%d", i))))
			}(i)
		}
		wg.Wait()

		got, err := store.Match(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Regexp(t, `^writer-\d$`, string(got.Body))
	})

	t.Run("ping", func(t *testing.T) {
		storage := newStorage(t)
		assert.NoError(t, storage.Ping(ctx))
	})
}
