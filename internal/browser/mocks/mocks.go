package mocks

import (
	"context"

	"github.com/lotas/recentswitch/internal/types"
	"github.com/stretchr/testify/mock"
)

// Browser is a mock for browser.Browser.
type Browser struct {
	mock.Mock
}

func (m *Browser) GetTab(ctx context.Context, id int) (types.Tab, error) {
	args := m.Called(ctx, id)
	if tab, ok := args.Get(0).(types.Tab); ok {
		return tab, args.Error(1)
	}
	return types.Tab{}, args.Error(1)
}

func (m *Browser) QueryTabs(ctx context.Context) ([]types.Tab, error) {
	args := m.Called(ctx)
	if tabs, ok := args.Get(0).([]types.Tab); ok {
		return tabs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Browser) ActiveTab(ctx context.Context) (types.Tab, error) {
	args := m.Called(ctx)
	if tab, ok := args.Get(0).(types.Tab); ok {
		return tab, args.Error(1)
	}
	return types.Tab{}, args.Error(1)
}

func (m *Browser) ActivateTab(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *Browser) CreateTab(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

func (m *Browser) FocusWindow(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *Browser) BookmarkTree(ctx context.Context) ([]types.BookmarkNode, error) {
	args := m.Called(ctx)
	if tree, ok := args.Get(0).([]types.BookmarkNode); ok {
		return tree, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Browser) CaptureVisibleTab(ctx context.Context, windowID int) (string, error) {
	args := m.Called(ctx, windowID)
	return args.String(0), args.Error(1)
}

func (m *Browser) SendToTab(ctx context.Context, tabID int, msg any) error {
	args := m.Called(ctx, tabID, msg)
	return args.Error(0)
}

func (m *Browser) InjectScripts(ctx context.Context, tabID int, files []string) error {
	args := m.Called(ctx, tabID, files)
	return args.Error(0)
}

func (m *Browser) OpenPopup(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *Browser) SendRuntime(ctx context.Context, msg any) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
