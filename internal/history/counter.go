package history

import (
	"context"
	"fmt"
	"net/url"
	"sync"
)

// AccessCountsKey is the KV key holding the site-key -> count map.
const AccessCountsKey = "tabAccessCounts"

// SiteKey normalizes a URL to host+path, dropping scheme, query and
// fragment. URLs that do not parse, or have no host (about:blank, data:),
// fall back to the raw string.
func SiteKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host + u.Path
}

// Counter counts visits per site key. Counts only grow.
type Counter struct {
	kv KV
	mu sync.Mutex
}

func NewCounter(kv KV) *Counter {
	return &Counter{kv: kv}
}

// Increment bumps the count for the URL's site key and returns the new value.
func (c *Counter) Increment(ctx context.Context, rawURL string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	counts, err := c.load(ctx)
	if err != nil {
		return 0, err
	}
	key := SiteKey(rawURL)
	counts[key]++
	if err := c.kv.Set(ctx, AccessCountsKey, counts); err != nil {
		return 0, fmt.Errorf("persist access counts: %w", err)
	}
	return counts[key], nil
}

// Get returns the count for the URL's site key, 0 if never seen.
func (c *Counter) Get(ctx context.Context, rawURL string) (int, error) {
	counts, err := c.All(ctx)
	if err != nil {
		return 0, err
	}
	return counts[SiteKey(rawURL)], nil
}

// All returns a copy of every count keyed by site key. Never nil.
func (c *Counter) All(ctx context.Context) (map[string]int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx)
}

func (c *Counter) load(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	if _, err := c.kv.Get(ctx, AccessCountsKey, &counts); err != nil {
		return nil, fmt.Errorf("load access counts: %w", err)
	}
	if counts == nil {
		counts = make(map[string]int)
	}
	return counts, nil
}
