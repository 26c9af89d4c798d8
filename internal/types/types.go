package types

// UntitledTab is the display title used when a tab reports an empty title.
const UntitledTab = "Untitled"

// TabRecord is the stored representation of a tab's identity and
// last-seen metadata. IDs are reused by the browser once a tab closes.
type TabRecord struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	FavIconURL   string `json:"favIconUrl,omitempty"`
	LastAccessed int64  `json:"lastAccessed"` // epoch milliseconds
	WindowID     int    `json:"windowId"`
}

// RankedTab is a live tab enriched with recency and frequency data.
type RankedTab struct {
	TabRecord
	AccessCount int `json:"accessCount"`
}

// Bookmark is a flattened bookmark tree leaf.
type Bookmark struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	DateAdded int64  `json:"dateAdded,omitempty"`
	Type      string `json:"type"`
}

// LayoutMode controls how the switcher lays out entries.
type LayoutMode string

const (
	LayoutVertical   LayoutMode = "vertical"
	LayoutHorizontal LayoutMode = "horizontal"
)

// Settings holds user-facing switcher settings.
type Settings struct {
	DisplayLimit int        `json:"displayLimit"`
	LayoutMode   LayoutMode `json:"layoutMode"`
}

// Profile represents a Firefox profile.
type Profile struct {
	Name       string
	Path       string // absolute path to profile directory
	IsDefault  bool
	IsRelative bool
}

// Tab is a live tab as reported by the browser.
type Tab struct {
	ID           int    `json:"id"`
	WindowID     int    `json:"windowId"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	FavIconURL   string `json:"favIconUrl,omitempty"`
	LastAccessed int64  `json:"lastAccessed,omitempty"` // epoch ms, 0 if unknown
	Active       bool   `json:"active"`
}

// Record converts the tab to its stored form, substituting the placeholder
// title when the browser reports none.
func (t Tab) Record() TabRecord {
	title := t.Title
	if title == "" {
		title = UntitledTab
	}
	return TabRecord{
		ID:           t.ID,
		Title:        title,
		URL:          t.URL,
		FavIconURL:   t.FavIconURL,
		LastAccessed: t.LastAccessed,
		WindowID:     t.WindowID,
	}
}

// BookmarkNode is a node of the browser's bookmark tree. Folders have no URL.
type BookmarkNode struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	URL       string         `json:"url,omitempty"`
	DateAdded int64          `json:"dateAdded,omitempty"`
	Children  []BookmarkNode `json:"children,omitempty"`
}
