package export

import (
	"fmt"
	"strings"
	"time"
)

// Markdown formats the report as a markdown document with one section per
// browser window.
func Markdown(r Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n", r.Title)
	fmt.Fprintf(&b, "> Exported %s\n", r.Now.Format("2006-01-02 15:04"))

	if len(r.Entries) == 0 {
		b.WriteString("\nNo recent tabs.\n")
		return b.String()
	}

	for _, w := range r.windows() {
		n := len(w.entries)
		noun := "tabs"
		if n == 1 {
			noun = "tab"
		}
		fmt.Fprintf(&b, "\n## Window %d (%d %s)\n\n", w.id, n, noun)

		for _, e := range w.entries {
			title := e.Title
			if title == "" {
				title = e.URL
			}
			fmt.Fprintf(&b, "- [%s](%s) · %s · %s\n", title, e.URL, relativeTime(r.Now, e.LastAccessed), visits(e.Visits))
		}
	}

	return b.String()
}

func visits(n int) string {
	if n == 1 {
		return "1 visit"
	}
	return fmt.Sprintf("%d visits", n)
}

func relativeTime(now, t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
