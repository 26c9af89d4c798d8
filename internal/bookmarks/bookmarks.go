// Package bookmarks caches the browser's bookmark tree for the life of the
// process.
package bookmarks

import (
	"context"
	"fmt"
	"sync"

	"github.com/lotas/recentswitch/internal/applog"
	"github.com/lotas/recentswitch/internal/browser"
	"github.com/lotas/recentswitch/internal/ranking"
	"github.com/lotas/recentswitch/internal/types"
)

// Cache fetches the tree on first use and serves the flattened bookmarks
// afterwards. A failed fetch is not cached.
type Cache struct {
	src    browser.Bookmarks
	mu     sync.Mutex
	loaded bool
	all    []types.Bookmark
}

func NewCache(src browser.Bookmarks) *Cache {
	return &Cache{src: src}
}

// All returns every bookmark with a URL.
func (c *Cache) All(ctx context.Context) ([]types.Bookmark, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return c.all, nil
	}
	tree, err := c.src.BookmarkTree(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bookmarks: %w", err)
	}
	c.all = ranking.FlattenBookmarks(tree)
	c.loaded = true
	applog.Info("bookmarks.loaded", "count", len(c.all))
	return c.all, nil
}

// Search returns bookmarks whose title contains term, oldest first.
func (c *Cache) Search(ctx context.Context, term string, limit int) ([]types.Bookmark, error) {
	all, err := c.All(ctx)
	if err != nil {
		return nil, err
	}
	return ranking.SearchBookmarks(all, term, limit), nil
}

// Invalidate drops the cached tree so the next call refetches it.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.loaded = false
	c.all = nil
	c.mu.Unlock()
}
