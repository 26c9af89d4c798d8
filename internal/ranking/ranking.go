// Package ranking merges live tabs with recency history into the order the
// switcher displays, and searches bookmarks as a supplementary source.
package ranking

import (
	"cmp"
	"net/url"
	"slices"
	"strings"

	"github.com/lotas/recentswitch/internal/history"
	"github.com/lotas/recentswitch/internal/types"
)

// DefaultBookmarkLimit caps bookmark search results.
const DefaultBookmarkLimit = 10

// Result is a ranked tab list plus the full recency-ordered id sequence.
type Result struct {
	Tabs   []types.RankedTab `json:"tabs"`
	Recent []int             `json:"recentTabs"`
}

// Merge ranks live tabs by last access. The platform's lastAccessed wins;
// otherwise the history record with the same id supplies it; otherwise 0.
// Access counts come from counts keyed by history.SiteKey. Ties keep the
// platform query order. Recent is never truncated.
func Merge(live []types.Tab, hist []types.TabRecord, counts map[string]int) Result {
	byID := make(map[int]types.TabRecord, len(hist))
	for _, r := range hist {
		if _, seen := byID[r.ID]; !seen {
			byID[r.ID] = r
		}
	}

	ranked := make([]types.RankedTab, 0, len(live))
	for _, tab := range live {
		rec := tab.Record()
		if rec.LastAccessed == 0 {
			if h, ok := byID[tab.ID]; ok {
				rec.LastAccessed = h.LastAccessed
			}
		}
		ranked = append(ranked, types.RankedTab{
			TabRecord:   rec,
			AccessCount: counts[history.SiteKey(tab.URL)],
		})
	}

	slices.SortStableFunc(ranked, func(a, b types.RankedTab) int {
		return cmp.Compare(b.LastAccessed, a.LastAccessed)
	})

	recent := make([]int, len(ranked))
	for i, t := range ranked {
		recent[i] = t.ID
	}
	return Result{Tabs: ranked, Recent: recent}
}

// Visible returns the slice of ranked tabs the switcher shows. With
// skipCurrent the first (currently active) tab is omitted, so the first
// visible entry is the previous tab.
func Visible(tabs []types.RankedTab, limit int, skipCurrent bool) []types.RankedTab {
	if skipCurrent && len(tabs) > 0 {
		tabs = tabs[1:]
	}
	if limit >= 0 && len(tabs) > limit {
		tabs = tabs[:limit]
	}
	return tabs
}

// FilterTabs keeps tabs whose title or URL contains term, case-insensitively.
// An empty term matches everything.
func FilterTabs(tabs []types.RankedTab, term string) []types.RankedTab {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return tabs
	}
	out := make([]types.RankedTab, 0, len(tabs))
	for _, t := range tabs {
		if strings.Contains(strings.ToLower(t.Title), term) || strings.Contains(strings.ToLower(t.URL), term) {
			out = append(out, t)
		}
	}
	return out
}

// FlattenBookmarks walks the tree depth-first and returns every node with a
// URL. Untitled bookmarks take the URL's hostname as title.
func FlattenBookmarks(tree []types.BookmarkNode) []types.Bookmark {
	var out []types.Bookmark
	var walk func(nodes []types.BookmarkNode)
	walk = func(nodes []types.BookmarkNode) {
		for _, n := range nodes {
			if n.URL != "" {
				title := n.Title
				if title == "" {
					title = hostname(n.URL)
				}
				out = append(out, types.Bookmark{
					ID:        n.ID,
					Title:     title,
					URL:       n.URL,
					DateAdded: n.DateAdded,
					Type:      "bookmark",
				})
			}
			walk(n.Children)
		}
	}
	walk(tree)
	return out
}

func hostname(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}

// SearchBookmarks filters by case-insensitive title substring, orders by
// ascending dateAdded and caps the result. A limit <= 0 uses the default.
func SearchBookmarks(all []types.Bookmark, term string, limit int) []types.Bookmark {
	if limit <= 0 {
		limit = DefaultBookmarkLimit
	}
	term = strings.ToLower(term)
	out := make([]types.Bookmark, 0)
	for _, b := range all {
		if strings.Contains(strings.ToLower(b.Title), term) {
			out = append(out, b)
		}
	}
	slices.SortStableFunc(out, func(a, b types.Bookmark) int {
		return cmp.Compare(a.DateAdded, b.DateAdded)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
