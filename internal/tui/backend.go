package tui

import (
	"context"
	"errors"

	"github.com/lotas/recentswitch/internal/api"
	"github.com/lotas/recentswitch/internal/firefox"
	"github.com/lotas/recentswitch/internal/ranking"
	"github.com/lotas/recentswitch/internal/settings"
	"github.com/lotas/recentswitch/internal/types"
)

// ErrReadOnly is returned by backends that cannot act on the browser.
var ErrReadOnly = errors.New("offline session is read-only")

// Snapshot is everything the switcher needs to render.
type Snapshot struct {
	Tabs     []types.RankedTab // ranked, current tab first
	Settings types.Settings
}

// Backend supplies tabs and performs the selected action.
type Backend interface {
	Load(ctx context.Context) (Snapshot, error)
	Switch(ctx context.Context, tabID int) error
	SearchBookmarks(ctx context.Context, term string) ([]types.Bookmark, error)
	OpenBookmark(ctx context.Context, url string) error
}

// LiveBackend talks to a running daemon.
type LiveBackend struct {
	Client *api.Client
}

func (b LiveBackend) Load(ctx context.Context) (Snapshot, error) {
	res, err := b.Client.SearchAllTabs(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	s, err := b.Client.Settings(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Tabs: res.Tabs, Settings: s}, nil
}

func (b LiveBackend) Switch(ctx context.Context, tabID int) error {
	return b.Client.SwitchToTab(ctx, tabID)
}

func (b LiveBackend) SearchBookmarks(ctx context.Context, term string) ([]types.Bookmark, error) {
	return b.Client.SearchBookmarks(ctx, term)
}

func (b LiveBackend) OpenBookmark(ctx context.Context, url string) error {
	return b.Client.OpenBookmark(ctx, url)
}

// OfflineBackend ranks the tabs of a Firefox session file by their
// lastAccessed time. It cannot switch tabs.
type OfflineBackend struct {
	Profile  types.Profile
	Settings types.Settings
}

func (b OfflineBackend) Load(ctx context.Context) (Snapshot, error) {
	tabs, err := firefox.ReadSessionFile(b.Profile.Path)
	if err != nil {
		return Snapshot{}, err
	}
	s := b.Settings
	if s == (types.Settings{}) {
		s = settings.Defaults()
	}
	return Snapshot{Tabs: ranking.Merge(tabs, nil, nil).Tabs, Settings: s}, nil
}

func (OfflineBackend) Switch(context.Context, int) error { return ErrReadOnly }

func (OfflineBackend) SearchBookmarks(context.Context, string) ([]types.Bookmark, error) {
	return nil, nil
}

func (OfflineBackend) OpenBookmark(context.Context, string) error { return ErrReadOnly }
