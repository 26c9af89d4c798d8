package server

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/lotas/recentswitch/internal/types"
)

// wireTab mirrors the extension's tab payload. Firefox reports
// lastAccessed as a fractional millisecond count.
type wireTab struct {
	ID           int      `json:"id"`
	URL          string   `json:"url"`
	Title        string   `json:"title"`
	LastAccessed *float64 `json:"lastAccessed"`
	WindowID     int      `json:"windowId"`
	FavIconURL   string   `json:"favIconUrl"`
	Active       bool     `json:"active"`
}

func (wt wireTab) tab() types.Tab {
	t := types.Tab{
		ID:         wt.ID,
		WindowID:   wt.WindowID,
		Title:      wt.Title,
		URL:        wt.URL,
		FavIconURL: wt.FavIconURL,
		Active:     wt.Active,
	}
	if wt.LastAccessed != nil && !math.IsNaN(*wt.LastAccessed) && !math.IsInf(*wt.LastAccessed, 0) {
		t.LastAccessed = int64(*wt.LastAccessed)
	}
	return t
}

// TabChange is the set of properties reported by a tab.updated event.
type TabChange struct {
	Title      *string `json:"title,omitempty"`
	FavIconURL *string `json:"favIconUrl,omitempty"`
	Status     string  `json:"status,omitempty"`
	URL        *string `json:"url,omitempty"`
}

// AffectsDisplay reports whether the change touches what the switcher shows.
func (c TabChange) AffectsDisplay() bool {
	return c.Title != nil || c.FavIconURL != nil
}

// ParseTab converts a raw JSON tab into a Tab.
func ParseTab(raw json.RawMessage) (types.Tab, error) {
	var wt wireTab
	if len(raw) == 0 {
		return types.Tab{}, fmt.Errorf("empty tab payload")
	}
	if err := json.Unmarshal(raw, &wt); err != nil {
		return types.Tab{}, err
	}
	return wt.tab(), nil
}

// ParseTabs converts a raw JSON tab array.
func ParseTabs(raw json.RawMessage) ([]types.Tab, error) {
	var wts []wireTab
	if err := json.Unmarshal(raw, &wts); err != nil {
		return nil, fmt.Errorf("parse tabs: %w", err)
	}
	tabs := make([]types.Tab, len(wts))
	for i, wt := range wts {
		tabs[i] = wt.tab()
	}
	return tabs, nil
}

// ParseChange decodes the change set of a tab.updated event.
func ParseChange(msg IncomingMsg) (TabChange, error) {
	var c TabChange
	if len(msg.Change) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(msg.Change, &c); err != nil {
		return c, fmt.Errorf("parse change: %w", err)
	}
	return c, nil
}
