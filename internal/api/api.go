// Package api serves the service operations over a localhost HTTP JSON API
// for the options page and the terminal switcher.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lotas/recentswitch/internal/applog"
	"github.com/lotas/recentswitch/internal/service"
)

const maxBodySize = 1 << 20

// Backend is the set of operations the API exposes.
type Backend interface {
	SearchAllTabs(ctx context.Context) service.TabsResult
	GetAllTabs(ctx context.Context) service.TabListResult
	GetRecentTabs(ctx context.Context) service.TabListResult
	GetSettings(ctx context.Context) service.SettingsResult
	SetSettings(ctx context.Context, body json.RawMessage) service.SettingsResult
	SwitchToTab(ctx context.Context, tabID int) service.Result
	OpenBookmark(ctx context.Context, url string) service.Result
	SearchBookmarks(ctx context.Context, text string) service.BookmarksResult
	GetTabIcon(ctx context.Context, url string) service.IconResult
	GetTabPreviews(ctx context.Context, ids []int) service.PreviewsResult
	UpdatePopupOpen(isOpen bool) service.Result
}

var _ Backend = (*service.Service)(nil)

type handlers struct {
	b Backend
}

// NewRouter builds the HTTP router.
func NewRouter(b Backend) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLog)

	h := &handlers{b: b}

	r.Get("/health", h.health)
	r.Route("/tabs", func(r chi.Router) {
		r.Get("/", h.searchAllTabs)
		r.Get("/all", h.allTabs)
		r.Get("/recent", h.recentTabs)
		r.Post("/{id}/switch", h.switchTab)
	})
	r.Get("/settings", h.getSettings)
	r.Put("/settings", h.putSettings)
	r.Get("/bookmarks", h.searchBookmarks)
	r.Post("/bookmarks/open", h.openBookmark)
	r.Get("/icon", h.icon)
	r.Get("/previews", h.previews)
	r.Post("/popup", h.popup)

	return r
}

func requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		applog.Debug("api.request", "method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "ms", time.Since(start).Milliseconds())
	})
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *handlers) searchAllTabs(w http.ResponseWriter, r *http.Request) {
	res := h.b.SearchAllTabs(r.Context())
	writeResult(w, res.Success, res)
}

func (h *handlers) allTabs(w http.ResponseWriter, r *http.Request) {
	res := h.b.GetAllTabs(r.Context())
	writeResult(w, res.Success, res)
}

func (h *handlers) recentTabs(w http.ResponseWriter, r *http.Request) {
	res := h.b.GetRecentTabs(r.Context())
	writeResult(w, res.Success, res)
}

func (h *handlers) switchTab(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, service.Result{Error: "invalid tab id"})
		return
	}
	res := h.b.SwitchToTab(r.Context(), id)
	writeResult(w, res.Success, res)
}

func (h *handlers) getSettings(w http.ResponseWriter, r *http.Request) {
	res := h.b.GetSettings(r.Context())
	writeResult(w, res.Success, res)
}

func (h *handlers) putSettings(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, service.Result{Error: "read body"})
		return
	}
	res := h.b.SetSettings(r.Context(), body)
	writeResult(w, res.Success, res)
}

func (h *handlers) searchBookmarks(w http.ResponseWriter, r *http.Request) {
	res := h.b.SearchBookmarks(r.Context(), r.URL.Query().Get("q"))
	writeResult(w, res.Success, res)
}

func (h *handlers) openBookmark(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, service.Result{Error: err.Error()})
		return
	}
	res := h.b.OpenBookmark(r.Context(), body.URL)
	writeResult(w, res.Success, res)
}

func (h *handlers) icon(w http.ResponseWriter, r *http.Request) {
	res := h.b.GetTabIcon(r.Context(), r.URL.Query().Get("url"))
	writeResult(w, res.Success, res)
}

func (h *handlers) previews(w http.ResponseWriter, r *http.Request) {
	ids, err := parseIDs(r.URL.Query().Get("ids"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, service.Result{Error: err.Error()})
		return
	}
	res := h.b.GetTabPreviews(r.Context(), ids)
	writeResult(w, res.Success, res)
}

func (h *handlers) popup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IsOpen bool `json:"isOpen"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, service.Result{Error: err.Error()})
		return
	}
	res := h.b.UpdatePopupOpen(body.IsOpen)
	writeResult(w, res.Success, res)
}

// parseIDs parses a comma-separated id list. Empty input is an empty list.
func parseIDs(s string) ([]int, error) {
	ids := []int{}
	if s == "" {
		return ids, nil
	}
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("malformed request body: %w", err)
	}
	return nil
}

// writeResult maps a failed operation to 422; the body carries the error.
func writeResult(w http.ResponseWriter, success bool, v any) {
	status := http.StatusOK
	if !success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
