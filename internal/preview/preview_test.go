package preview

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lotas/recentswitch/internal/browser/mocks"
	"github.com/lotas/recentswitch/internal/storage"
	"github.com/lotas/recentswitch/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const article = `<!DOCTYPE html>
<html><head><title>Test Article</title></head>
<body>
<article>
<h1>Test Article</h1>
<p>This is the main content of the article. It has enough text to be considered readable content by the readability algorithm. The quick brown fox jumps over the lazy dog. This paragraph needs to be long enough for readability to pick it up as meaningful content.</p>
<p>Second paragraph with more meaningful content that helps the readability parser understand this is a real article and not just navigation or boilerplate. We need several sentences here to make this work properly.</p>
</article>
</body></html>`

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func articleServer(t *testing.T) *httptest.Server {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(article))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestCapture_StoresScreenshot(t *testing.T) {
	b := &mocks.Browser{}
	b.On("CaptureVisibleTab", mock.Anything, 2).Return("data:image/jpeg;base64,AAAA", nil)

	s := NewService(testDB(t), b, nil)
	ctx := context.Background()
	require.NoError(t, s.Capture(ctx, types.Tab{ID: 7, WindowID: 2, URL: "https://x.com/"}))

	got, err := s.ByIDs(ctx, []int{7, 8})
	require.NoError(t, err)
	require.NotNil(t, got[7])
	assert.Equal(t, storage.PreviewImage, got[7].Kind)
	assert.Equal(t, "data:image/jpeg;base64,AAAA", got[7].Data)
	assert.Contains(t, got, 8)
	assert.Nil(t, got[8])
}

func TestCapture_FallsBackToReadableText(t *testing.T) {
	ts := articleServer(t)
	b := &mocks.Browser{}
	b.On("CaptureVisibleTab", mock.Anything, 1).Return("", errors.New("missing host permission"))

	s := NewService(testDB(t), b, ts.Client())
	ctx := context.Background()
	require.NoError(t, s.Capture(ctx, types.Tab{ID: 3, WindowID: 1, URL: ts.URL}))

	got, err := s.ByIDs(ctx, []int{3})
	require.NoError(t, err)
	require.NotNil(t, got[3])
	assert.Equal(t, storage.PreviewText, got[3].Kind)
	assert.Contains(t, got[3].Data, "main content of the article")
}

func TestCapture_RestrictedPageWithoutFallback(t *testing.T) {
	b := &mocks.Browser{}
	b.On("CaptureVisibleTab", mock.Anything, 1).Return("", errors.New("cannot capture"))

	s := NewService(testDB(t), b, nil)
	err := s.Capture(context.Background(), types.Tab{ID: 3, WindowID: 1, URL: "about:preferences"})
	assert.Error(t, err)
}

func TestCaptureAsyncAndRemove(t *testing.T) {
	b := &mocks.Browser{}
	b.On("CaptureVisibleTab", mock.Anything, 1).Return("data:image/png;base64,BBBB", nil)

	s := NewService(testDB(t), b, nil)
	s.CaptureAsync(types.Tab{ID: 4, WindowID: 1, URL: "https://x.com/"})
	s.Wait()

	ctx := context.Background()
	got, err := s.ByIDs(ctx, []int{4})
	require.NoError(t, err)
	require.NotNil(t, got[4])

	require.NoError(t, s.Remove(ctx, 4))
	got, err = s.ByIDs(ctx, []int{4})
	require.NoError(t, err)
	assert.Nil(t, got[4])
}

func TestFetchReadable_SkipsNonHTTP(t *testing.T) {
	for _, u := range []string{"about:newtab", "moz-extension://abc/page", "file:///tmp/x.html", "chrome://settings"} {
		_, _, err := FetchReadable(context.Background(), http.DefaultClient, u)
		assert.Error(t, err, u)
	}
}

func TestFetchReadable_HTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer ts.Close()

	_, _, err := FetchReadable(context.Background(), ts.Client(), ts.URL)
	assert.Error(t, err)
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "a b c", Excerpt("  a\n\tb   c ", 10))
	got := Excerpt(strings.Repeat("word ", 50), 12)
	assert.Equal(t, "word word wo…", got)
}
