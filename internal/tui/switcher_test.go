package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lotas/recentswitch/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	snap      Snapshot
	loadErr   error
	bookmarks []types.Bookmark
	switchErr error

	switched []int
	opened   []string
	searched []string
}

func (f *fakeBackend) Load(context.Context) (Snapshot, error) { return f.snap, f.loadErr }

func (f *fakeBackend) Switch(_ context.Context, id int) error {
	f.switched = append(f.switched, id)
	return f.switchErr
}

func (f *fakeBackend) SearchBookmarks(_ context.Context, term string) ([]types.Bookmark, error) {
	f.searched = append(f.searched, term)
	return f.bookmarks, nil
}

func (f *fakeBackend) OpenBookmark(_ context.Context, url string) error {
	f.opened = append(f.opened, url)
	return nil
}

func ranked(ids ...int) []types.RankedTab {
	titles := map[int]string{1: "Current", 2: "Go docs", 3: "Mail", 4: "Golang blog", 5: "News"}
	var out []types.RankedTab
	for _, id := range ids {
		out = append(out, types.RankedTab{TabRecord: types.TabRecord{ID: id, Title: titles[id], URL: "https://site" + string(rune('0'+id)) + ".example/"}})
	}
	return out
}

// step feeds msg to the model and runs the returned command once.
func step(t *testing.T, m Model, msg tea.Msg) (Model, tea.Msg) {
	t.Helper()
	next, cmd := m.Update(msg)
	var out tea.Msg
	if cmd != nil {
		out = cmd()
	}
	return next.(Model), out
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func loaded(t *testing.T, fb *fakeBackend, opts Options) Model {
	t.Helper()
	m := New(context.Background(), fb, opts)
	m, _ = step(t, m, m.Init()())
	return m
}

func TestBuildEntries(t *testing.T) {
	tabs := ranked(1, 2, 3, 4, 5)

	got := BuildEntries(tabs, 2, true, "", nil)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].TabID, "first visible entry is the previous tab")
	assert.Equal(t, 3, got[1].TabID)

	got = BuildEntries(tabs, 6, false, "go", []types.Bookmark{{Title: "Go tour", URL: "https://go.dev/tour"}})
	require.Len(t, got, 3)
	assert.Equal(t, []int{2, 4, 0}, []int{got[0].TabID, got[1].TabID, got[2].TabID})
	assert.True(t, got[2].Bookmark)

	got = BuildEntries(tabs, 6, false, "", []types.Bookmark{{Title: "Go tour"}})
	assert.Len(t, got, 5, "bookmarks only appear with a filter term")
}

func TestSwitcher_ArrowAndEnterSwitches(t *testing.T) {
	fb := &fakeBackend{snap: Snapshot{Tabs: ranked(1, 2, 3), Settings: types.Settings{DisplayLimit: 6, LayoutMode: types.LayoutVertical}}}
	m := loaded(t, fb, Options{SkipCurrent: true})
	require.Len(t, m.Entries(), 2)
	assert.Contains(t, m.View(), "Go docs")
	assert.NotContains(t, m.View(), "Current")

	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.Selected())
	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 0, m.Selected(), "wraps")

	m, done := step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, []int{2}, fb.switched)

	_, quit := step(t, m, done)
	assert.IsType(t, tea.QuitMsg{}, quit)
}

func TestSwitcher_DigitJumpConfirms(t *testing.T) {
	fb := &fakeBackend{snap: Snapshot{Tabs: ranked(1, 2, 3), Settings: types.Settings{DisplayLimit: 6}}}
	m := loaded(t, fb, Options{SkipCurrent: true})

	_, _ = step(t, m, runes("2"))
	assert.Equal(t, []int{3}, fb.switched)
}

func TestSwitcher_FilterAndBookmarks(t *testing.T) {
	fb := &fakeBackend{
		snap:      Snapshot{Tabs: ranked(1, 2, 3, 4), Settings: types.Settings{DisplayLimit: 6}},
		bookmarks: []types.Bookmark{{ID: "b1", Title: "Go tour", URL: "https://go.dev/tour/"}},
	}
	m := loaded(t, fb, Options{SkipCurrent: true, IncludeBookmarks: true})

	m, _ = step(t, m, runes("g"))
	m, res := step(t, m, runes("o"))
	assert.Equal(t, []string{"g", "go"}, fb.searched)
	m, _ = step(t, m, res)

	entries := m.Entries()
	require.Len(t, entries, 3)
	assert.True(t, entries[2].Bookmark)

	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyUp})
	_, _ = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, []string{"https://go.dev/tour/"}, fb.opened)
}

func TestSwitcher_EscapeClearsThenCloses(t *testing.T) {
	fb := &fakeBackend{snap: Snapshot{Tabs: ranked(1, 2, 3), Settings: types.Settings{DisplayLimit: 6}}}
	m := loaded(t, fb, Options{})

	m, _ = step(t, m, runes("zzz"))
	assert.Empty(t, m.Entries())
	assert.Contains(t, m.View(), `No tabs match "zzz"`)

	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, fb.switched, "enter on empty list is a no-op")

	m, msg := step(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, msg)
	assert.Len(t, m.Entries(), 3)

	_, msg = step(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.IsType(t, tea.QuitMsg{}, msg)
}

func TestSwitcher_EmptyState(t *testing.T) {
	fb := &fakeBackend{snap: Snapshot{Tabs: ranked(1), Settings: types.Settings{DisplayLimit: 6}}}
	m := loaded(t, fb, Options{SkipCurrent: true})
	assert.Contains(t, m.View(), "No recent tabs")
}

func TestSwitcher_HorizontalLayout(t *testing.T) {
	fb := &fakeBackend{snap: Snapshot{Tabs: ranked(1, 2, 3), Settings: types.Settings{DisplayLimit: 1, LayoutMode: types.LayoutHorizontal}}}
	m := loaded(t, fb, Options{SkipCurrent: true})
	require.Len(t, m.Entries(), 1)
	assert.Contains(t, m.View(), "Go docs")
}

func TestSwitcher_SwitchErrorKeepsOpen(t *testing.T) {
	fb := &fakeBackend{
		snap:      Snapshot{Tabs: ranked(1, 2), Settings: types.Settings{DisplayLimit: 6}},
		switchErr: errors.New("tab 2 not found"),
	}
	m := loaded(t, fb, Options{SkipCurrent: true})

	m, done := step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, msg := step(t, m, done)
	assert.Nil(t, msg)
	require.Error(t, m.Err())
	assert.Contains(t, m.View(), "tab 2 not found")
}

func TestSwitcher_LoadError(t *testing.T) {
	fb := &fakeBackend{loadErr: errors.New("connection refused")}
	m := loaded(t, fb, Options{})
	assert.Contains(t, m.View(), "connection refused")
}

func TestOfflineBackendIsReadOnly(t *testing.T) {
	var b OfflineBackend
	assert.ErrorIs(t, b.Switch(context.Background(), 1), ErrReadOnly)
	assert.ErrorIs(t, b.OpenBookmark(context.Background(), "https://go.dev/"), ErrReadOnly)
}

func TestProfilePicker(t *testing.T) {
	p := NewProfilePicker([]types.Profile{{Name: "a"}, {Name: "b", IsDefault: true}, {Name: "c"}})
	assert.Equal(t, 1, p.Cursor)

	next, _ := p.Update(tea.KeyMsg{Type: tea.KeyDown})
	p = next.(ProfilePicker)
	_, ok := p.Selected()
	assert.False(t, ok)

	next, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	p = next.(ProfilePicker)
	require.NotNil(t, cmd)
	got, ok := p.Selected()
	require.True(t, ok)
	assert.Equal(t, "c", got.Name)
	assert.Contains(t, p.View(), "b (default)")
}
