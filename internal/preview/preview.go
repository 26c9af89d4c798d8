// Package preview keeps a snapshot of what each tab last looked like. A
// screenshot of the visible tab is preferred; pages that cannot be captured
// get a readable text excerpt instead.
package preview

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/lotas/recentswitch/internal/applog"
	"github.com/lotas/recentswitch/internal/browser"
	"github.com/lotas/recentswitch/internal/storage"
	"github.com/lotas/recentswitch/internal/types"
)

const (
	excerptLen     = 600
	captureTimeout = 20 * time.Second
)

type Service struct {
	db     *sql.DB
	cap    browser.Capturer
	client *http.Client
	now    func() time.Time
	wg     sync.WaitGroup
}

func NewService(db *sql.DB, cap browser.Capturer, client *http.Client) *Service {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Service{db: db, cap: cap, client: client, now: time.Now}
}

// Capture stores a preview for tab, which must be the visible tab of its
// window.
func (s *Service) Capture(ctx context.Context, tab types.Tab) error {
	p := storage.Preview{TabID: tab.ID, CapturedAt: s.now()}

	dataURL, err := s.cap.CaptureVisibleTab(ctx, tab.WindowID)
	if err == nil && dataURL != "" {
		p.Kind = storage.PreviewImage
		p.Data = dataURL
	} else {
		if err != nil {
			applog.Debug("preview.capture_failed", "tabId", tab.ID, "error", err.Error())
		}
		_, text, ferr := FetchReadable(ctx, s.client, tab.URL)
		if ferr != nil {
			return fmt.Errorf("preview tab %d: %w", tab.ID, ferr)
		}
		p.Kind = storage.PreviewText
		p.Data = Excerpt(text, excerptLen)
	}
	return storage.SavePreview(ctx, s.db, p)
}

// CaptureAsync runs Capture in the background. Failures are logged.
func (s *Service) CaptureAsync(tab types.Tab) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), captureTimeout)
		defer cancel()
		if err := s.Capture(ctx, tab); err != nil {
			applog.Error("preview.capture", err, "tabId", tab.ID)
		}
	}()
}

// Wait blocks until background captures finish.
func (s *Service) Wait() { s.wg.Wait() }

// Remove drops the preview for a closed tab.
func (s *Service) Remove(ctx context.Context, tabID int) error {
	return storage.RemovePreview(ctx, s.db, tabID)
}

// ByIDs returns one entry per requested id, nil when no preview exists.
func (s *Service) ByIDs(ctx context.Context, ids []int) (map[int]*storage.Preview, error) {
	found, err := storage.PreviewsByIDs(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[int]*storage.Preview, len(ids))
	for _, id := range ids {
		if p, ok := found[id]; ok {
			out[id] = &p
		} else {
			out[id] = nil
		}
	}
	return out, nil
}
