// Package service implements the operations the extension and the terminal
// switcher call. Every operation returns a result with a success flag;
// errors are reported in the result and never escape to the transport.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lotas/recentswitch/internal/applog"
	"github.com/lotas/recentswitch/internal/browser"
	"github.com/lotas/recentswitch/internal/history"
	"github.com/lotas/recentswitch/internal/icon"
	"github.com/lotas/recentswitch/internal/ranking"
	"github.com/lotas/recentswitch/internal/settings"
	"github.com/lotas/recentswitch/internal/status"
	"github.com/lotas/recentswitch/internal/storage"
	"github.com/lotas/recentswitch/internal/types"
)

// Request names accepted by Handle.
const (
	ReqSearchAllTabs   = "searchAllTabs"
	ReqGetAllTabs      = "getAllTabs"
	ReqGetRecentTabs   = "getRecentTabs"
	ReqGetSettings     = "getSettings"
	ReqSetSettings     = "setSettings"
	ReqSwitchToTab     = "switchToTab"
	ReqOpenBookmark    = "openBookmark"
	ReqGetBookmarks    = "getBookmarks"
	ReqGetTabIcon      = "getTabIcon"
	ReqGetTabPreviews  = "getTabPreviews"
	ReqUpdatePopupOpen = "updatePopupOpen"
)

// Result is the common envelope of every response.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func ok() Result { return Result{Success: true} }

func fail(err error) Result { return Result{Error: err.Error()} }

type TabsResult struct {
	Result
	Tabs       []types.RankedTab `json:"tabs"`
	RecentTabs []int             `json:"recentTabs"`
}

type TabListResult struct {
	Result
	Tabs []types.TabRecord `json:"tabs"`
}

type SettingsResult struct {
	Result
	Settings *types.Settings `json:"settings,omitempty"`
}

type BookmarksResult struct {
	Result
	Bookmarks []types.Bookmark `json:"bookmarks"`
}

type IconResult struct {
	Result
	Icon *icon.Entry `json:"icon"`
}

type PreviewsResult struct {
	Result
	Previews map[int]*storage.Preview `json:"previews"`
}

// BookmarkSearcher finds bookmarks by title.
type BookmarkSearcher interface {
	Search(ctx context.Context, term string, limit int) ([]types.Bookmark, error)
}

// IconSource resolves favicons.
type IconSource interface {
	Get(ctx context.Context, url string) (icon.Entry, error)
}

// Previews captures and looks up tab previews.
type Previews interface {
	CaptureAsync(tab types.Tab)
	ByIDs(ctx context.Context, ids []int) (map[int]*storage.Preview, error)
}

// Deps wires a Service. Icons and Previews may be nil.
type Deps struct {
	Browser       browser.Browser
	History       *history.Store
	Counter       *history.Counter
	Settings      *settings.Service
	Bookmarks     BookmarkSearcher
	Icons         IconSource
	Previews      Previews
	State         *status.State
	BookmarkLimit int
}

type Service struct {
	d Deps
}

func New(d Deps) *Service {
	if d.BookmarkLimit <= 0 {
		d.BookmarkLimit = ranking.DefaultBookmarkLimit
	}
	return &Service{d: d}
}

// SearchAllTabs ranks every open tab by recency. Failing to read history or
// counts degrades to unranked data rather than failing the query.
func (s *Service) SearchAllTabs(ctx context.Context) TabsResult {
	live, err := s.d.Browser.QueryTabs(ctx)
	if err != nil {
		applog.Error("service.search_all_tabs", err)
		return TabsResult{Result: fail(err), Tabs: []types.RankedTab{}, RecentTabs: []int{}}
	}
	hist, err := s.d.History.GetAll(ctx)
	if err != nil {
		applog.Error("service.history", err)
		hist = nil
	}
	counts, err := s.d.Counter.All(ctx)
	if err != nil {
		applog.Error("service.counts", err)
		counts = nil
	}
	res := ranking.Merge(live, hist, counts)
	return TabsResult{Result: ok(), Tabs: res.Tabs, RecentTabs: res.Recent}
}

// GetAllTabs lists open tabs in browser order.
func (s *Service) GetAllTabs(ctx context.Context) TabListResult {
	live, err := s.d.Browser.QueryTabs(ctx)
	if err != nil {
		applog.Error("service.get_all_tabs", err)
		return TabListResult{Result: fail(err), Tabs: []types.TabRecord{}}
	}
	tabs := make([]types.TabRecord, len(live))
	for i, t := range live {
		tabs[i] = t.Record()
	}
	return TabListResult{Result: ok(), Tabs: tabs}
}

// GetRecentTabs returns the raw history list, most recent first.
func (s *Service) GetRecentTabs(ctx context.Context) TabListResult {
	list, err := s.d.History.GetAll(ctx)
	if err != nil {
		applog.Error("service.get_recent_tabs", err)
		return TabListResult{Result: fail(err), Tabs: []types.TabRecord{}}
	}
	return TabListResult{Result: ok(), Tabs: list}
}

func (s *Service) GetSettings(ctx context.Context) SettingsResult {
	st, err := s.d.Settings.Get(ctx)
	if err != nil {
		applog.Error("service.get_settings", err)
		return SettingsResult{Result: fail(err)}
	}
	return SettingsResult{Result: ok(), Settings: &st}
}

// SetSettings applies a partial update given as a JSON object.
func (s *Service) SetSettings(ctx context.Context, body json.RawMessage) SettingsResult {
	p, err := settings.DecodePatch(body)
	if err != nil {
		return SettingsResult{Result: fail(err)}
	}
	st, err := s.d.Settings.Set(ctx, p)
	if err != nil {
		if !errors.Is(err, settings.ErrInvalidSettings) {
			applog.Error("service.set_settings", err)
		}
		return SettingsResult{Result: fail(err)}
	}
	return SettingsResult{Result: ok(), Settings: &st}
}

// SwitchToTab activates the tab, focuses its window and then captures a
// preview in the background.
func (s *Service) SwitchToTab(ctx context.Context, tabID int) Result {
	if err := s.d.Browser.ActivateTab(ctx, tabID); err != nil {
		applog.Error("service.switch", err, "tabId", tabID)
		return fail(switchErr(tabID, err))
	}
	tab, err := s.d.Browser.GetTab(ctx, tabID)
	if err != nil {
		applog.Error("service.switch", err, "tabId", tabID)
		return fail(switchErr(tabID, err))
	}
	if tab.WindowID != 0 {
		if err := s.d.Browser.FocusWindow(ctx, tab.WindowID); err != nil {
			applog.Error("service.focus_window", err, "windowId", tab.WindowID)
			return fail(err)
		}
	}
	if s.d.Previews != nil {
		s.d.Previews.CaptureAsync(tab)
	}
	return ok()
}

func switchErr(tabID int, err error) error {
	if errors.Is(err, browser.ErrNotFound) {
		return fmt.Errorf("tab %d no longer exists", tabID)
	}
	return err
}

func (s *Service) OpenBookmark(ctx context.Context, url string) Result {
	if url == "" {
		return Result{Error: "no url given"}
	}
	if err := s.d.Browser.CreateTab(ctx, url); err != nil {
		applog.Error("service.open_bookmark", err, "url", url)
		return fail(err)
	}
	return ok()
}

// SearchBookmarks always succeeds; lookup failures yield an empty list.
func (s *Service) SearchBookmarks(ctx context.Context, text string) BookmarksResult {
	found, err := s.d.Bookmarks.Search(ctx, text, s.d.BookmarkLimit)
	if err != nil {
		applog.Error("service.bookmarks", err)
		found = []types.Bookmark{}
	}
	return BookmarksResult{Result: ok(), Bookmarks: found}
}

func (s *Service) GetTabIcon(ctx context.Context, url string) IconResult {
	if s.d.Icons == nil {
		return IconResult{Result: Result{Error: "icons disabled"}}
	}
	if url == "" {
		return IconResult{Result: Result{Error: "no url given"}}
	}
	e, err := s.d.Icons.Get(ctx, url)
	if err != nil {
		applog.Error("service.icon", err, "url", url)
		return IconResult{Result: fail(err)}
	}
	return IconResult{Result: ok(), Icon: &e}
}

func (s *Service) GetTabPreviews(ctx context.Context, ids []int) PreviewsResult {
	if s.d.Previews == nil {
		return PreviewsResult{Result: ok(), Previews: map[int]*storage.Preview{}}
	}
	found, err := s.d.Previews.ByIDs(ctx, ids)
	if err != nil {
		applog.Error("service.previews", err)
		return PreviewsResult{Result: fail(err), Previews: map[int]*storage.Preview{}}
	}
	return PreviewsResult{Result: ok(), Previews: found}
}

func (s *Service) UpdatePopupOpen(isOpen bool) Result {
	s.d.State.SetPopupOpen(isOpen)
	return ok()
}
