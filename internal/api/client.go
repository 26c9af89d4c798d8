package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lotas/recentswitch/internal/service"
	"github.com/lotas/recentswitch/internal/types"
)

// Client talks to a running daemon's API.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a client for the API at base, e.g. http://127.0.0.1:19193.
func NewClient(base string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{base: strings.TrimSuffix(base, "/"), http: hc}
}

func (c *Client) do(ctx context.Context, method, path string, body any, dst any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%s %s: HTTP %d: %w", method, path, resp.StatusCode, err)
	}
	return nil
}

func check(r service.Result) error {
	if r.Success {
		return nil
	}
	if r.Error == "" {
		return errors.New("request failed")
	}
	return errors.New(r.Error)
}

// Health reports whether the daemon answers.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health: HTTP %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) SearchAllTabs(ctx context.Context) (service.TabsResult, error) {
	var res service.TabsResult
	if err := c.do(ctx, http.MethodGet, "/tabs", nil, &res); err != nil {
		return res, err
	}
	return res, check(res.Result)
}

func (c *Client) RecentTabs(ctx context.Context) ([]types.TabRecord, error) {
	var res service.TabListResult
	if err := c.do(ctx, http.MethodGet, "/tabs/recent", nil, &res); err != nil {
		return nil, err
	}
	return res.Tabs, check(res.Result)
}

func (c *Client) SwitchToTab(ctx context.Context, id int) error {
	var res service.Result
	if err := c.do(ctx, http.MethodPost, "/tabs/"+strconv.Itoa(id)+"/switch", nil, &res); err != nil {
		return err
	}
	return check(res)
}

func (c *Client) Settings(ctx context.Context) (types.Settings, error) {
	var res service.SettingsResult
	if err := c.do(ctx, http.MethodGet, "/settings", nil, &res); err != nil {
		return types.Settings{}, err
	}
	if err := check(res.Result); err != nil {
		return types.Settings{}, err
	}
	return *res.Settings, nil
}

// SetSettings sends a partial update, e.g. {"displayLimit": 4}.
func (c *Client) SetSettings(ctx context.Context, patch map[string]any) (types.Settings, error) {
	var res service.SettingsResult
	if err := c.do(ctx, http.MethodPut, "/settings", patch, &res); err != nil {
		return types.Settings{}, err
	}
	if err := check(res.Result); err != nil {
		return types.Settings{}, err
	}
	return *res.Settings, nil
}

func (c *Client) SearchBookmarks(ctx context.Context, q string) ([]types.Bookmark, error) {
	var res service.BookmarksResult
	if err := c.do(ctx, http.MethodGet, "/bookmarks?q="+url.QueryEscape(q), nil, &res); err != nil {
		return nil, err
	}
	return res.Bookmarks, check(res.Result)
}

func (c *Client) OpenBookmark(ctx context.Context, u string) error {
	var res service.Result
	if err := c.do(ctx, http.MethodPost, "/bookmarks/open", map[string]string{"url": u}, &res); err != nil {
		return err
	}
	return check(res)
}
