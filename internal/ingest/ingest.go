// Package ingest turns browser tab events into history updates. Handlers
// never return errors: a failed event is logged and dropped, leaving the
// history in its prior valid state.
package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/lotas/recentswitch/internal/applog"
	"github.com/lotas/recentswitch/internal/browser"
	"github.com/lotas/recentswitch/internal/history"
	"github.com/lotas/recentswitch/internal/server"
	"github.com/lotas/recentswitch/internal/types"
)

// Exclusions lists pages that are never recorded.
type Exclusions struct {
	Prefixes []string
	URLs     []string
}

// Excluded reports whether url is an internal or blank page. The empty URL
// is always excluded.
func (e Exclusions) Excluded(url string) bool {
	if url == "" {
		return true
	}
	for _, p := range e.Prefixes {
		if strings.HasPrefix(url, p) {
			return true
		}
	}
	for _, u := range e.URLs {
		if url == u {
			return true
		}
	}
	return false
}

// PreviewRemover drops stored previews for closed tabs.
type PreviewRemover interface {
	Remove(ctx context.Context, tabID int) error
}

type Ingestor struct {
	tabs     browser.Tabs
	store    *history.Store
	counter  *history.Counter
	previews PreviewRemover
	excl     Exclusions
	now      func() time.Time
}

// New creates an Ingestor. previews may be nil.
func New(tabs browser.Tabs, store *history.Store, counter *history.Counter, previews PreviewRemover, excl Exclusions) *Ingestor {
	return &Ingestor{
		tabs:     tabs,
		store:    store,
		counter:  counter,
		previews: previews,
		excl:     excl,
		now:      time.Now,
	}
}

// OnActivated records the newly active tab. The platform's lastAccessed is
// used when reported, the current time otherwise.
func (in *Ingestor) OnActivated(ctx context.Context, tabID int) {
	tab, err := in.tabs.GetTab(ctx, tabID)
	if err != nil {
		applog.Error("ingest.activated", err, "tabId", tabID)
		return
	}
	if in.excl.Excluded(tab.URL) {
		applog.Debug("ingest.excluded", "tabId", tabID, "url", tab.URL)
		return
	}
	rec := tab.Record()
	if rec.LastAccessed == 0 {
		rec.LastAccessed = in.now().UnixMilli()
	}
	in.record(ctx, "ingest.activated", rec)
}

// OnUpdated refreshes the record for the active tab when its title or
// favicon changes. Updates to background tabs are ignored so they cannot
// reorder recency.
func (in *Ingestor) OnUpdated(ctx context.Context, tabID int, change server.TabChange, tab types.Tab) {
	if !change.AffectsDisplay() || !tab.Active {
		return
	}
	tab.ID = tabID
	if in.excl.Excluded(tab.URL) {
		return
	}
	rec := tab.Record()
	rec.LastAccessed = in.now().UnixMilli()
	in.record(ctx, "ingest.updated", rec)
}

// OnRemoved forgets a closed tab and its preview.
func (in *Ingestor) OnRemoved(ctx context.Context, tabID int) {
	if err := in.store.Remove(ctx, tabID); err != nil {
		applog.Error("ingest.removed", err, "tabId", tabID)
	}
	if in.previews != nil {
		if err := in.previews.Remove(ctx, tabID); err != nil {
			applog.Error("ingest.preview_remove", err, "tabId", tabID)
		}
	}
}

func (in *Ingestor) record(ctx context.Context, event string, rec types.TabRecord) {
	if err := in.store.Upsert(ctx, rec); err != nil {
		applog.Error(event, err, "tabId", rec.ID)
		return
	}
	if _, err := in.counter.Increment(ctx, rec.URL); err != nil {
		applog.Error("ingest.count", err, "tabId", rec.ID)
	}
}
