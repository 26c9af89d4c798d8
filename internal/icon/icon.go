// Package icon caches favicons as data URLs in the KV store, keyed by host.
package icon

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lotas/recentswitch/internal/applog"
)

// KeyPrefix marks icon entries in the KV store.
const KeyPrefix = "icon_"

const maxIconSize = 1 << 20

// Entry is a cached icon. Data is empty when the fetch failed; the empty
// result is cached too so a broken host is not refetched on every query.
type Entry struct {
	Data      string `json:"data"`
	Timestamp int64  `json:"timestamp"` // epoch ms
}

// Store is the subset of the KV store the cache needs.
type Store interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Remove(ctx context.Context, key string) error
	GetAll(ctx context.Context) (map[string]json.RawMessage, error)
}

type Cache struct {
	kv     Store
	client *http.Client
	ttl    time.Duration
	maxAge time.Duration
	now    func() time.Time
}

// NewCache creates a cache serving entries younger than ttl. Cleanup
// removes entries older than maxAge.
func NewCache(kv Store, client *http.Client, ttl, maxAge time.Duration) *Cache {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Cache{kv: kv, client: client, ttl: ttl, maxAge: maxAge, now: time.Now}
}

// CacheKey returns the KV key for url: hostname, plus port when explicit.
// Unparseable URLs share the "unknown" entry.
func CacheKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return KeyPrefix + "unknown"
	}
	if port := u.Port(); port != "" {
		return KeyPrefix + u.Hostname() + ":" + port
	}
	return KeyPrefix + u.Hostname()
}

// Get returns the cached icon for iconURL, fetching it when the cache entry
// is missing or stale.
func (c *Cache) Get(ctx context.Context, iconURL string) (Entry, error) {
	if iconURL == "" {
		return Entry{}, fmt.Errorf("no icon url")
	}
	key := CacheKey(iconURL)
	now := c.now()

	var cached Entry
	found, err := c.kv.Get(ctx, key, &cached)
	if err != nil {
		applog.Error("icon.cache_read", err, "key", key)
	} else if found && now.Sub(time.UnixMilli(cached.Timestamp)) < c.ttl {
		return cached, nil
	}

	entry := Entry{Timestamp: now.UnixMilli()}
	data, err := c.fetch(ctx, iconURL)
	if err != nil {
		applog.Error("icon.fetch", err, "url", iconURL)
	} else {
		entry.Data = data
	}
	if err := c.kv.Set(ctx, key, entry); err != nil {
		return Entry{}, fmt.Errorf("cache icon: %w", err)
	}
	return entry, nil
}

func (c *Cache) fetch(ctx context.Context, iconURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, iconURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxIconSize))
	if err != nil {
		return "", err
	}
	ct := resp.Header.Get("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	if ct == "" {
		ct = http.DetectContentType(body)
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(body), nil
}

// Cleanup removes icon entries older than the max age and returns how many
// were removed.
func (c *Cache) Cleanup(ctx context.Context) (int, error) {
	all, err := c.kv.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list icons: %w", err)
	}
	cutoff := c.now().Add(-c.maxAge).UnixMilli()
	removed := 0
	for key, raw := range all {
		if !strings.HasPrefix(key, KeyPrefix) {
			continue
		}
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil || e.Timestamp == 0 || e.Timestamp >= cutoff {
			continue
		}
		if err := c.kv.Remove(ctx, key); err != nil {
			return removed, err
		}
		removed++
	}
	if removed > 0 {
		applog.Info("icon.cleanup", "removed", removed)
	}
	return removed, nil
}
