package service

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/lotas/recentswitch/internal/bookmarks"
	"github.com/lotas/recentswitch/internal/browser"
	"github.com/lotas/recentswitch/internal/browser/mocks"
	"github.com/lotas/recentswitch/internal/history"
	"github.com/lotas/recentswitch/internal/settings"
	"github.com/lotas/recentswitch/internal/status"
	"github.com/lotas/recentswitch/internal/storage"
	"github.com/lotas/recentswitch/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakePreviews struct {
	captured []types.Tab
	stored   map[int]*storage.Preview
}

func (f *fakePreviews) CaptureAsync(tab types.Tab) { f.captured = append(f.captured, tab) }

func (f *fakePreviews) ByIDs(ctx context.Context, ids []int) (map[int]*storage.Preview, error) {
	out := make(map[int]*storage.Preview)
	for _, id := range ids {
		out[id] = f.stored[id]
	}
	return out, nil
}

type fixture struct {
	svc      *Service
	b        *mocks.Browser
	kv       *storage.KV
	store    *history.Store
	counter  *history.Counter
	previews *fakePreviews
	state    *status.State
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		b:        &mocks.Browser{},
		kv:       storage.NewKV(db),
		previews: &fakePreviews{stored: map[int]*storage.Preview{}},
		state:    status.New(),
	}
	f.store = history.NewStore(f.kv, 8)
	f.counter = history.NewCounter(f.kv)
	f.svc = New(Deps{
		Browser:   f.b,
		History:   f.store,
		Counter:   f.counter,
		Settings:  settings.NewService(f.kv),
		Bookmarks: bookmarks.NewCache(f.b),
		Previews:  f.previews,
		State:     f.state,
	})
	return f
}

func TestSearchAllTabs_RanksAndCounts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.store.Upsert(ctx, types.TabRecord{ID: 3, URL: "https://c.com/", LastAccessed: 200}))
	_, err := f.counter.Increment(ctx, "https://b.com/x")
	require.NoError(t, err)

	f.b.On("QueryTabs", mock.Anything).Return([]types.Tab{
		{ID: 1, URL: "https://a.com/", LastAccessed: 100},
		{ID: 2, URL: "https://b.com/x", LastAccessed: 300},
		{ID: 3, URL: "https://c.com/"},
		{ID: 4, URL: "https://d.com/"},
	}, nil)

	res := f.svc.SearchAllTabs(ctx)
	require.True(t, res.Success)
	assert.Equal(t, []int{2, 3, 1, 4}, res.RecentTabs)
	assert.Equal(t, 1, res.Tabs[0].AccessCount)
	assert.Equal(t, int64(200), res.Tabs[1].LastAccessed)
}

func TestSearchAllTabs_PlatformFailure(t *testing.T) {
	f := newFixture(t)
	f.b.On("QueryTabs", mock.Anything).Return(nil, errors.New("extension not connected"))

	res := f.svc.SearchAllTabs(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, "extension not connected", res.Error)
	assert.NotNil(t, res.Tabs)
	assert.NotNil(t, res.RecentTabs)
}

func TestSwitchToTab(t *testing.T) {
	f := newFixture(t)
	tab := types.Tab{ID: 5, WindowID: 2, URL: "https://x.com/"}
	f.b.On("ActivateTab", mock.Anything, 5).Return(nil)
	f.b.On("GetTab", mock.Anything, 5).Return(tab, nil)
	f.b.On("FocusWindow", mock.Anything, 2).Return(nil)

	res := f.svc.SwitchToTab(context.Background(), 5)
	assert.True(t, res.Success)
	assert.Equal(t, []types.Tab{tab}, f.previews.captured)
	f.b.AssertExpectations(t)
}

func TestSwitchToTab_TabGone(t *testing.T) {
	f := newFixture(t)
	f.b.On("ActivateTab", mock.Anything, 5).Return(browser.ErrNotFound)

	res := f.svc.SwitchToTab(context.Background(), 5)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "no longer exists")
	assert.Empty(t, f.previews.captured)
}

func TestSettingsRoundTripViaHandle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res := f.svc.Handle(ctx, ReqGetSettings, nil).(SettingsResult)
	require.True(t, res.Success)
	assert.Equal(t, settings.Defaults(), *res.Settings)

	res = f.svc.Handle(ctx, ReqSetSettings, json.RawMessage(`{"displayLimit": 12}`)).(SettingsResult)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "between 1 and 8")

	res = f.svc.Handle(ctx, ReqSetSettings, json.RawMessage(`{"layoutMode": "horizontal"}`)).(SettingsResult)
	require.True(t, res.Success)
	assert.Equal(t, types.Settings{DisplayLimit: 6, LayoutMode: types.LayoutHorizontal}, *res.Settings)
}

func TestHandle_MalformedBodies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res := f.svc.Handle(ctx, ReqSwitchToTab, json.RawMessage(`{"tabId": "five"}`)).(Result)
	assert.False(t, res.Success)
	assert.Equal(t, "invalid tab id", res.Error)

	res = f.svc.Handle(ctx, ReqSwitchToTab, nil).(Result)
	assert.False(t, res.Success)

	res = f.svc.Handle(ctx, "deleteEverything", nil).(Result)
	assert.False(t, res.Success)

	sres := f.svc.Handle(ctx, ReqSetSettings, json.RawMessage(`{"displayLimit": "lots"}`)).(SettingsResult)
	assert.False(t, sres.Success)
	assert.Contains(t, sres.Error, "must be a number")
}

func TestHandle_UpdatePopupOpen(t *testing.T) {
	f := newFixture(t)
	res := f.svc.Handle(context.Background(), ReqUpdatePopupOpen, json.RawMessage(`{"isOpen": true}`)).(Result)
	assert.True(t, res.Success)
	assert.True(t, f.state.PopupOpen())
}

func TestSearchBookmarks_FailureYieldsEmpty(t *testing.T) {
	f := newFixture(t)
	f.b.On("BookmarkTree", mock.Anything).Return(nil, errors.New("boom"))

	res := f.svc.SearchBookmarks(context.Background(), "go")
	assert.True(t, res.Success)
	assert.NotNil(t, res.Bookmarks)
	assert.Empty(t, res.Bookmarks)
}

func TestOpenBookmark(t *testing.T) {
	f := newFixture(t)
	f.b.On("CreateTab", mock.Anything, "https://go.dev/").Return(nil)

	res := f.svc.Handle(context.Background(), ReqOpenBookmark, json.RawMessage(`{"url":"https://go.dev/"}`)).(Result)
	assert.True(t, res.Success)
	assert.False(t, f.svc.OpenBookmark(context.Background(), "").Success)
}

func TestGetTabPreviews_MissingAreNull(t *testing.T) {
	f := newFixture(t)
	f.previews.stored[1] = &storage.Preview{TabID: 1, Kind: storage.PreviewText, Data: "hello"}

	res := f.svc.GetTabPreviews(context.Background(), []int{1, 2})
	require.True(t, res.Success)

	data, err := json.Marshal(res)
	require.NoError(t, err)
	var decoded struct {
		Previews map[string]json.RawMessage `json:"previews"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "null", string(decoded.Previews["2"]))
	assert.Contains(t, string(decoded.Previews["1"]), "hello")
}

func TestGetTabIcon_Disabled(t *testing.T) {
	f := newFixture(t)
	res := f.svc.GetTabIcon(context.Background(), "https://x.com/f.ico")
	assert.False(t, res.Success)
	assert.Nil(t, res.Icon)
}
