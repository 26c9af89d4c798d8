// Package browser describes the browser capabilities the daemon consumes and
// implements them over the extension bridge.
package browser

import (
	"context"
	"errors"

	"github.com/lotas/recentswitch/internal/types"
)

// ErrNotFound is returned when a tab (or the active tab) does not exist.
var ErrNotFound = errors.New("tab not found")

// Tabs is tab lookup and control.
type Tabs interface {
	GetTab(ctx context.Context, id int) (types.Tab, error)
	QueryTabs(ctx context.Context) ([]types.Tab, error)
	// ActiveTab returns the active tab of the current window.
	ActiveTab(ctx context.Context) (types.Tab, error)
	ActivateTab(ctx context.Context, id int) error
	CreateTab(ctx context.Context, url string) error
}

type Windows interface {
	FocusWindow(ctx context.Context, id int) error
}

type Bookmarks interface {
	BookmarkTree(ctx context.Context) ([]types.BookmarkNode, error)
}

// Capturer takes screenshots. Capture fails on restricted pages.
type Capturer interface {
	CaptureVisibleTab(ctx context.Context, windowID int) (string, error)
}

// Messenger reaches the extension's own surfaces: content scripts in a
// tab, the popup and other extension pages.
type Messenger interface {
	SendToTab(ctx context.Context, tabID int, msg any) error
	InjectScripts(ctx context.Context, tabID int, files []string) error
	OpenPopup(ctx context.Context) error
	SendRuntime(ctx context.Context, msg any) error
}

// Browser is everything the daemon needs from the browser.
type Browser interface {
	Tabs
	Windows
	Bookmarks
	Capturer
	Messenger
}
