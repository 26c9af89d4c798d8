// Package background runs the daemon's main loop: it routes bridge messages
// to their handlers and runs periodic maintenance.
package background

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/lotas/recentswitch/internal/applog"
	"github.com/lotas/recentswitch/internal/server"
	"github.com/lotas/recentswitch/internal/types"
)

// Source delivers extension frames and accepts request responses.
type Source interface {
	Messages() <-chan server.IncomingMsg
	Respond(id string, result any, err error) error
}

// Events consumes tab lifecycle events.
type Events interface {
	OnActivated(ctx context.Context, tabID int)
	OnUpdated(ctx context.Context, tabID int, change server.TabChange, tab types.Tab)
	OnRemoved(ctx context.Context, tabID int)
}

type Commands interface {
	Handle(ctx context.Context, name string) error
}

type Requests interface {
	Handle(ctx context.Context, name string, body json.RawMessage) any
}

// Cleaner is periodic cache maintenance.
type Cleaner interface {
	Cleanup(ctx context.Context) (int, error)
}

// Worker owns the loop. Tab events are applied one at a time in arrival
// order; commands and requests run concurrently so a slow delivery cannot
// stall event ingestion.
type Worker struct {
	src             Source
	events          Events
	commands        Commands
	requests        Requests
	cleaner         Cleaner
	cleanupInterval time.Duration
	wg              sync.WaitGroup
}

// New creates a Worker. cleaner may be nil.
func New(src Source, events Events, commands Commands, requests Requests, cleaner Cleaner, cleanupInterval time.Duration) *Worker {
	return &Worker{
		src:             src,
		events:          events,
		commands:        commands,
		requests:        requests,
		cleaner:         cleaner,
		cleanupInterval: cleanupInterval,
	}
}

// Run processes messages until ctx is cancelled, then waits for in-flight
// commands and requests.
func (w *Worker) Run(ctx context.Context) error {
	defer w.wg.Wait()

	var tick <-chan time.Time
	if w.cleaner != nil && w.cleanupInterval > 0 {
		w.cleanup(ctx)
		t := time.NewTicker(w.cleanupInterval)
		defer t.Stop()
		tick = t.C
	}

	msgs := w.src.Messages()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			w.cleanup(ctx)
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			w.dispatch(ctx, msg)
		}
	}
}

func (w *Worker) dispatch(ctx context.Context, msg server.IncomingMsg) {
	switch msg.Type {
	case server.TypeTabActivated:
		w.events.OnActivated(ctx, msg.TabID)
	case server.TypeTabUpdated:
		change, err := server.ParseChange(msg)
		if err != nil {
			applog.Error("worker.tab_updated", err, "tabId", msg.TabID)
			return
		}
		if !change.AffectsDisplay() {
			return
		}
		tab, err := server.ParseTab(msg.Tab)
		if err != nil {
			applog.Error("worker.tab_updated", err, "tabId", msg.TabID)
			return
		}
		w.events.OnUpdated(ctx, msg.TabID, change, tab)
	case server.TypeTabRemoved:
		w.events.OnRemoved(ctx, msg.TabID)
	case server.TypeCommand:
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			if err := w.commands.Handle(ctx, msg.Name); err != nil {
				applog.Error("worker.command", err, "command", msg.Name)
			}
		}()
	case server.TypeRequest:
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			result := w.requests.Handle(ctx, msg.Name, msg.Body)
			if err := w.src.Respond(msg.ID, result, nil); err != nil {
				applog.Error("worker.respond", err, "request", msg.Name)
			}
		}()
	default:
		applog.Info("worker.unknown", "type", msg.Type)
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	if _, err := w.cleaner.Cleanup(ctx); err != nil {
		applog.Error("worker.cleanup", err)
	}
}
