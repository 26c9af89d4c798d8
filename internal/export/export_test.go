package export

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func testReport() Report {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return Report{
		Title: "Recent tabs",
		Now:   now,
		Entries: []Entry{
			{ID: 7, Title: "Go docs", URL: "https://go.dev/doc", WindowID: 2, LastAccessed: now.Add(-5 * time.Minute), Visits: 3},
			{ID: 3, Title: "", URL: "https://example.com/a", WindowID: 1, LastAccessed: now.Add(-2 * time.Hour), Visits: 1},
			{ID: 9, Title: "Bubble Tea", URL: "https://github.com/charmbracelet/bubbletea", WindowID: 2, LastAccessed: now.Add(-3 * 24 * time.Hour)},
		},
	}
}

func TestMarkdown_GroupsByWindow(t *testing.T) {
	result := Markdown(testReport())

	if !strings.Contains(result, "# Recent tabs") {
		t.Errorf("missing header, got:\n%s", result)
	}
	if !strings.Contains(result, "## Window 2 (2 tabs)") {
		t.Errorf("missing window 2 heading, got:\n%s", result)
	}
	if !strings.Contains(result, "## Window 1 (1 tab)") {
		t.Errorf("expected singular 'tab', got:\n%s", result)
	}
	if strings.Index(result, "Window 2") > strings.Index(result, "Window 1") {
		t.Errorf("most recent window should come first:\n%s", result)
	}
	if !strings.Contains(result, "- [Go docs](https://go.dev/doc) · 5m ago · 3 visits") {
		t.Errorf("missing entry line, got:\n%s", result)
	}
	// Empty title falls back to the URL.
	if !strings.Contains(result, "- [https://example.com/a](https://example.com/a) · 2h ago · 1 visit") {
		t.Errorf("missing untitled entry, got:\n%s", result)
	}
	if !strings.Contains(result, "3d ago · 0 visits") {
		t.Errorf("missing day-old entry, got:\n%s", result)
	}
}

func TestMarkdown_Empty(t *testing.T) {
	result := Markdown(Report{Title: "Recent tabs", Now: time.Now()})
	if !strings.Contains(result, "No recent tabs.") {
		t.Errorf("missing empty state, got:\n%s", result)
	}
}

func TestJSON(t *testing.T) {
	out, err := JSON(testReport())
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var doc jsonExport
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(doc.Windows) != 2 || doc.Windows[0].ID != 2 {
		t.Fatalf("windows = %+v", doc.Windows)
	}
	tab := doc.Windows[0].Tabs[1]
	if tab.Domain != "github.com" || tab.LastAccessedPretty != "3d ago" {
		t.Errorf("tab = %+v", tab)
	}
}
