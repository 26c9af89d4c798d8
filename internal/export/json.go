package export

import (
	"encoding/json"
	"time"
)

type jsonExport struct {
	Title      string       `json:"title"`
	ExportedAt time.Time    `json:"exported_at"`
	Windows    []jsonWindow `json:"windows"`
}

type jsonWindow struct {
	ID   int       `json:"id"`
	Tabs []jsonTab `json:"tabs"`
}

type jsonTab struct {
	ID                 int       `json:"id"`
	Title              string    `json:"title"`
	URL                string    `json:"url"`
	Domain             string    `json:"domain"`
	LastAccessed       time.Time `json:"last_accessed"`
	LastAccessedPretty string    `json:"last_accessed_pretty"`
	Visits             int       `json:"visits"`
}

// JSON formats the report as an indented JSON document.
func JSON(r Report) (string, error) {
	out := jsonExport{
		Title:      r.Title,
		ExportedAt: r.Now,
		Windows:    []jsonWindow{},
	}
	for _, w := range r.windows() {
		jw := jsonWindow{ID: w.id, Tabs: make([]jsonTab, 0, len(w.entries))}
		for _, e := range w.entries {
			jw.Tabs = append(jw.Tabs, jsonTab{
				ID:                 e.ID,
				Title:              e.Title,
				URL:                e.URL,
				Domain:             extractDomain(e.URL),
				LastAccessed:       e.LastAccessed,
				LastAccessedPretty: relativeTime(r.Now, e.LastAccessed),
				Visits:             e.Visits,
			})
		}
		out.Windows = append(out.Windows, jw)
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}
