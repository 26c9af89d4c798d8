// Package export renders the recency history as a shareable document.
package export

import (
	"net/url"
	"sort"
	"time"
)

// Entry is one history record with its visit count.
type Entry struct {
	ID           int
	Title        string
	URL          string
	WindowID     int
	LastAccessed time.Time
	Visits       int
}

// Report is a titled list of entries, most recent first.
type Report struct {
	Title   string
	Now     time.Time
	Entries []Entry
}

type window struct {
	id      int
	entries []Entry
}

// windows groups entries by window, keeping recency order inside each group
// and ordering groups by their most recent entry.
func (r Report) windows() []window {
	index := map[int]int{}
	var out []window
	for _, e := range r.Entries {
		i, ok := index[e.WindowID]
		if !ok {
			i = len(out)
			index[e.WindowID] = i
			out = append(out, window{id: e.WindowID})
		}
		out[i].entries = append(out[i].entries, e)
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].entries[0].LastAccessed.After(out[b].entries[0].LastAccessed)
	})
	return out
}

func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Hostname()
}
