package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lotas/recentswitch/internal/server"
	"github.com/lotas/recentswitch/internal/types"
)

// Bridge actions understood by the extension.
const (
	ActionGetTab        = "tabs.get"
	ActionQueryTabs     = "tabs.query"
	ActionActiveTab     = "tabs.active"
	ActionActivateTab   = "tabs.activate"
	ActionCreateTab     = "tabs.create"
	ActionFocusWindow   = "windows.focus"
	ActionBookmarkTree  = "bookmarks.tree"
	ActionCaptureTab    = "tabs.capture"
	ActionSendToTab     = "tabs.send"
	ActionInjectScripts = "scripting.inject"
	ActionOpenPopup     = "action.openPopup"
	ActionSendRuntime   = "runtime.send"
)

// CodeNotFound is the error code the extension reports for missing tabs.
const CodeNotFound = "not_found"

// DefaultCallTimeout bounds a single bridge command when no timeout is
// configured.
const DefaultCallTimeout = 2 * time.Second

// Caller issues a bridge command and waits for its result.
type Caller interface {
	Call(ctx context.Context, msg server.OutgoingMsg) (json.RawMessage, error)
}

// Remote implements Browser by issuing commands to the connected extension.
// Every command is bounded by the call timeout, so a reply the extension
// never sends fails the call instead of blocking the caller.
type Remote struct {
	c       Caller
	timeout time.Duration
}

var _ Browser = (*Remote)(nil)

// NewRemote wraps c. A timeout <= 0 selects DefaultCallTimeout.
func NewRemote(c Caller, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Remote{c: c, timeout: timeout}
}

func (r *Remote) call(ctx context.Context, msg server.OutgoingMsg) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.c.Call(ctx, msg)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s: no reply within %s: %w", msg.Action, r.timeout, err)
		}
		var callErr *server.CallError
		if errors.As(err, &callErr) && callErr.Code == CodeNotFound {
			return nil, fmt.Errorf("%s: %w", msg.Action, ErrNotFound)
		}
		return nil, err
	}
	return res, nil
}

func (r *Remote) GetTab(ctx context.Context, id int) (types.Tab, error) {
	res, err := r.call(ctx, server.OutgoingMsg{Action: ActionGetTab, TabID: id})
	if err != nil {
		return types.Tab{}, err
	}
	return server.ParseTab(res)
}

func (r *Remote) QueryTabs(ctx context.Context) ([]types.Tab, error) {
	res, err := r.call(ctx, server.OutgoingMsg{Action: ActionQueryTabs})
	if err != nil {
		return nil, err
	}
	return server.ParseTabs(res)
}

// ActiveTab returns ErrNotFound when the current window has no active tab
// (the extension answers with null).
func (r *Remote) ActiveTab(ctx context.Context) (types.Tab, error) {
	res, err := r.call(ctx, server.OutgoingMsg{Action: ActionActiveTab})
	if err != nil {
		return types.Tab{}, err
	}
	if len(res) == 0 || string(res) == "null" {
		return types.Tab{}, ErrNotFound
	}
	return server.ParseTab(res)
}

func (r *Remote) ActivateTab(ctx context.Context, id int) error {
	_, err := r.call(ctx, server.OutgoingMsg{Action: ActionActivateTab, TabID: id})
	return err
}

func (r *Remote) CreateTab(ctx context.Context, url string) error {
	_, err := r.call(ctx, server.OutgoingMsg{Action: ActionCreateTab, URL: url})
	return err
}

func (r *Remote) FocusWindow(ctx context.Context, id int) error {
	_, err := r.call(ctx, server.OutgoingMsg{Action: ActionFocusWindow, WindowID: id})
	return err
}

func (r *Remote) BookmarkTree(ctx context.Context) ([]types.BookmarkNode, error) {
	res, err := r.call(ctx, server.OutgoingMsg{Action: ActionBookmarkTree})
	if err != nil {
		return nil, err
	}
	var tree []types.BookmarkNode
	if err := json.Unmarshal(res, &tree); err != nil {
		return nil, fmt.Errorf("parse bookmark tree: %w", err)
	}
	return tree, nil
}

// CaptureVisibleTab returns the capture as a data URL.
func (r *Remote) CaptureVisibleTab(ctx context.Context, windowID int) (string, error) {
	res, err := r.call(ctx, server.OutgoingMsg{Action: ActionCaptureTab, WindowID: windowID})
	if err != nil {
		return "", err
	}
	var dataURL string
	if err := json.Unmarshal(res, &dataURL); err != nil {
		return "", fmt.Errorf("parse capture: %w", err)
	}
	return dataURL, nil
}

func (r *Remote) SendToTab(ctx context.Context, tabID int, msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = r.call(ctx, server.OutgoingMsg{Action: ActionSendToTab, TabID: tabID, Message: payload})
	return err
}

func (r *Remote) InjectScripts(ctx context.Context, tabID int, files []string) error {
	_, err := r.call(ctx, server.OutgoingMsg{Action: ActionInjectScripts, TabID: tabID, Files: files})
	return err
}

func (r *Remote) OpenPopup(ctx context.Context) error {
	_, err := r.call(ctx, server.OutgoingMsg{Action: ActionOpenPopup})
	return err
}

func (r *Remote) SendRuntime(ctx context.Context, msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = r.call(ctx, server.OutgoingMsg{Action: ActionSendRuntime, Message: payload})
	return err
}
