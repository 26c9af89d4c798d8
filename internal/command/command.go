// Package command handles the keyboard shortcut that opens the switcher.
package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lotas/recentswitch/internal/applog"
	"github.com/lotas/recentswitch/internal/browser"
	"github.com/lotas/recentswitch/internal/delivery"
	"github.com/lotas/recentswitch/internal/status"
)

// ToggleRecentTabs is the shortcut command name.
const ToggleRecentTabs = "toggle-recent-tabs"

// Messages understood by the overlay script and the popup.
const (
	ActionShowRecentTabs      = "showRecentTabs"
	ActionChangeSelectedIndex = "changeSelectedIndex"
)

// Message is sent to extension surfaces.
type Message struct {
	Action string `json:"action"`
}

// restrictedPrefixes are pages that cannot host a content script.
var restrictedPrefixes = []string{"chrome://", "edge://", "about:", "chrome-extension://", "moz-extension://"}

// Restricted reports whether the overlay cannot be shown on url.
func Restricted(url string) bool {
	for _, p := range restrictedPrefixes {
		if strings.HasPrefix(url, p) {
			return true
		}
	}
	return false
}

// Surface is what the trigger needs from the browser.
type Surface interface {
	browser.Tabs
	browser.Messenger
}

// Trigger shows the switcher on the best available surface: the open popup,
// the in-page overlay, or the popup as fallback.
type Trigger struct {
	b           Surface
	state       *status.State
	policy      delivery.Policy
	injectFiles []string
}

func NewTrigger(b Surface, state *status.State, policy delivery.Policy, injectFiles []string) *Trigger {
	return &Trigger{b: b, state: state, policy: policy, injectFiles: injectFiles}
}

// Handle runs a shortcut command. Invocations arriving while one is in
// flight are dropped.
func (t *Trigger) Handle(ctx context.Context, name string) error {
	if name != ToggleRecentTabs {
		return fmt.Errorf("unknown command %q", name)
	}
	if !t.state.TryAcquire() {
		applog.Debug("command.busy", "command", name)
		return nil
	}
	defer t.state.Release()

	if t.state.PopupOpen() {
		err := t.b.SendRuntime(ctx, Message{Action: ActionChangeSelectedIndex})
		if err == nil {
			return nil
		}
		// The popup closed without telling us.
		applog.Error("command.popup_advance", err)
		t.state.SetPopupOpen(false)
	}

	tab, err := t.b.ActiveTab(ctx)
	if errors.Is(err, browser.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("active tab: %w", err)
	}

	if Restricted(tab.URL) {
		applog.Info("command.popup", "reason", "restricted", "url", tab.URL)
		return t.openPopup(ctx)
	}

	err = delivery.Deliver(ctx, t.policy,
		func(ctx context.Context) error {
			return t.b.SendToTab(ctx, tab.ID, Message{Action: ActionShowRecentTabs})
		},
		func(ctx context.Context) error {
			if len(t.injectFiles) == 0 {
				return nil
			}
			err := t.b.InjectScripts(ctx, tab.ID, t.injectFiles)
			if err != nil {
				applog.Error("command.inject", err, "tabId", tab.ID)
			}
			return err
		},
	)
	if err != nil {
		applog.Error("command.deliver", err, "tabId", tab.ID)
		return t.openPopup(ctx)
	}
	return nil
}

func (t *Trigger) openPopup(ctx context.Context) error {
	if err := t.b.OpenPopup(ctx); err != nil {
		return fmt.Errorf("open popup: %w", err)
	}
	return nil
}
