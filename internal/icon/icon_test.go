package icon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lotas/recentswitch/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKV(t *testing.T) *storage.KV {
	t.Helper()
	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return storage.NewKV(db)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "icon_example.com", CacheKey("https://example.com/favicon.ico"))
	assert.Equal(t, "icon_localhost:8080", CacheKey("http://localhost:8080/f.png"))
	assert.Equal(t, "icon_unknown", CacheKey("not a url"))
	assert.Equal(t, "icon_unknown", CacheKey(""))
}

func TestGet_FetchesThenServesFromCache(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/png; charset=binary")
		w.Write([]byte("PNG"))
	}))
	defer ts.Close()

	c := NewCache(testKV(t), ts.Client(), 7*24*time.Hour, 30*24*time.Hour)
	ctx := context.Background()

	e, err := c.Get(ctx, ts.URL+"/favicon.ico")
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,UE5H", e.Data)

	again, err := c.Get(ctx, ts.URL+"/other.ico")
	require.NoError(t, err)
	assert.Equal(t, e, again)
	assert.Equal(t, int32(1), hits.Load())
}

func TestGet_StaleEntryRefetched(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/x-icon")
		w.Write([]byte{0, 0, 1, 0})
	}))
	defer ts.Close()

	c := NewCache(testKV(t), ts.Client(), time.Hour, 30*24*time.Hour)
	now := time.Now()
	c.now = func() time.Time { return now }

	_, err := c.Get(context.Background(), ts.URL)
	require.NoError(t, err)
	now = now.Add(2 * time.Hour)
	e, err := c.Get(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, now.UnixMilli(), e.Timestamp)
}

func TestGet_FetchFailureCachesEmptyData(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	c := NewCache(testKV(t), ts.Client(), time.Hour, time.Hour)
	e, err := c.Get(context.Background(), ts.URL+"/missing.ico")
	require.NoError(t, err)
	assert.Empty(t, e.Data)
	assert.NotZero(t, e.Timestamp)
}

func TestGet_EmptyURL(t *testing.T) {
	c := NewCache(testKV(t), nil, time.Hour, time.Hour)
	_, err := c.Get(context.Background(), "")
	assert.Error(t, err)
}

func TestCleanup_RemovesOnlyOldIcons(t *testing.T) {
	ctx := context.Background()
	kv := testKV(t)
	now := time.Now()
	day := 24 * time.Hour

	require.NoError(t, kv.Set(ctx, "icon_old.example", Entry{Data: "x", Timestamp: now.Add(-31 * day).UnixMilli()}))
	require.NoError(t, kv.Set(ctx, "icon_new.example", Entry{Data: "y", Timestamp: now.Add(-day).UnixMilli()}))
	require.NoError(t, kv.Set(ctx, "recentTabs", []int{}))

	c := NewCache(kv, nil, 7*day, 30*day)
	c.now = func() time.Time { return now }
	n, err := c.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all, err := kv.GetAll(ctx)
	require.NoError(t, err)
	assert.Contains(t, all, "icon_new.example")
	assert.Contains(t, all, "recentTabs")
	assert.NotContains(t, all, "icon_old.example")
}
