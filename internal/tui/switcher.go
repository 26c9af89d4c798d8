package tui

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/recentswitch/internal/ranking"
	"github.com/lotas/recentswitch/internal/types"
)

// Options tune what the switcher lists.
type Options struct {
	SkipCurrent      bool
	IncludeBookmarks bool
}

// Entry is one selectable row: a tab or a bookmark.
type Entry struct {
	TabID       int
	Title       string
	URL         string
	AccessCount int
	Bookmark    bool
}

// BuildEntries skips the current tab, applies the filter term, truncates to
// limit and then appends matching bookmarks.
func BuildEntries(tabs []types.RankedTab, limit int, skipCurrent bool, term string, bookmarks []types.Bookmark) []Entry {
	visible := ranking.FilterTabs(ranking.Visible(tabs, -1, skipCurrent), term)
	if limit >= 0 && len(visible) > limit {
		visible = visible[:limit]
	}
	entries := make([]Entry, 0, len(visible)+len(bookmarks))
	for _, t := range visible {
		entries = append(entries, Entry{TabID: t.ID, Title: t.Title, URL: t.URL, AccessCount: t.AccessCount})
	}
	if strings.TrimSpace(term) != "" {
		for _, b := range bookmarks {
			entries = append(entries, Entry{Title: b.Title, URL: b.URL, Bookmark: true})
		}
	}
	return entries
}

// --- Messages ---

type snapshotMsg struct {
	snap Snapshot
	err  error
}

type bookmarksMsg struct {
	term  string
	items []types.Bookmark
	err   error
}

type actionDoneMsg struct{ err error }

// --- Model ---

// Model is the bubbletea model of the switcher overlay.
type Model struct {
	ctx     context.Context
	backend Backend
	opts    Options

	snap      Snapshot
	bookmarks []types.Bookmark
	entries   []Entry
	sel       Selection

	loading bool
	err     error
	width   int
}

func New(ctx context.Context, backend Backend, opts Options) Model {
	return Model{ctx: ctx, backend: backend, opts: opts, loading: true}
}

func (m Model) Init() tea.Cmd {
	return m.load()
}

func (m Model) load() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.backend.Load(m.ctx)
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m Model) searchBookmarks(term string) tea.Cmd {
	return func() tea.Msg {
		items, err := m.backend.SearchBookmarks(m.ctx, term)
		return bookmarksMsg{term: term, items: items, err: err}
	}
}

func (m Model) activate(e Entry) tea.Cmd {
	return func() tea.Msg {
		if e.Bookmark {
			return actionDoneMsg{err: m.backend.OpenBookmark(m.ctx, e.URL)}
		}
		return actionDoneMsg{err: m.backend.Switch(m.ctx, e.TabID)}
	}
}

func (m *Model) rebuild() {
	m.entries = BuildEntries(m.snap.Tabs, m.snap.Settings.DisplayLimit, m.opts.SkipCurrent, m.sel.Filter, m.bookmarks)
	m.sel.Clamp(len(m.entries))
}

// Entries returns the rows currently displayed.
func (m Model) Entries() []Entry { return m.entries }

// Selected returns the highlighted index.
func (m Model) Selected() int { return m.sel.Index }

func (m Model) Err() error { return m.err }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case snapshotMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.snap = msg.snap
		m.rebuild()
		return m, nil

	case bookmarksMsg:
		if msg.term != m.sel.Filter {
			return m, nil // stale
		}
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.bookmarks = msg.items
		m.rebuild()
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyMsg:
		key := msg.String()
		if m.loading && key != "esc" && key != "ctrl+c" {
			return m, nil
		}
		prev := m.sel.Filter
		act := ActionNone
		if msg.Type == tea.KeyRunes && !msg.Alt && len(msg.Runes) > 1 {
			// pasted text always goes to the filter
			for _, r := range msg.Runes {
				m.sel.Type(r)
			}
		} else {
			act = m.sel.HandleKey(key, len(m.entries))
		}

		var cmd tea.Cmd
		if m.sel.Filter != prev {
			m.err = nil
			m.bookmarks = nil
			m.rebuild()
			if m.sel.Filter != "" && m.opts.IncludeBookmarks {
				cmd = m.searchBookmarks(m.sel.Filter)
			}
		}

		switch act {
		case ActionConfirm:
			return m, m.activate(m.entries[m.sel.Index])
		case ActionClose:
			return m, tea.Quit
		}
		return m, cmd
	}
	return m, nil
}

// --- View ---

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Width(24).
			Padding(0, 1)
	selectedCardStyle = cardStyle.BorderForeground(lipgloss.Color("62")).Bold(true)
	selectedStyle     = lipgloss.NewStyle().Bold(true).Reverse(true)
	dimStyle          = lipgloss.NewStyle().Faint(true)
	errStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	filterStyle       = lipgloss.NewStyle().Bold(true)
)

func (m Model) View() string {
	var b strings.Builder

	if m.sel.Filter != "" {
		b.WriteString(filterStyle.Render("› "+m.sel.Filter) + "\n\n")
	}

	switch {
	case m.loading:
		b.WriteString(dimStyle.Render("Loading tabs…"))
	case len(m.entries) == 0 && m.sel.Filter != "":
		b.WriteString(dimStyle.Render(fmt.Sprintf("No tabs match %q", m.sel.Filter)))
	case len(m.entries) == 0:
		b.WriteString(dimStyle.Render("No recent tabs"))
	case m.snap.Settings.LayoutMode == types.LayoutHorizontal:
		b.WriteString(m.horizontal())
	default:
		b.WriteString(m.vertical())
	}

	if m.err != nil {
		b.WriteString("\n\n" + errStyle.Render("Error: "+m.err.Error()))
	}
	b.WriteString("\n\n" + dimStyle.Render("↑↓ navigate · 1-9 jump · enter switch · type to filter · esc close"))

	return boxStyle.Render(b.String())
}

func (m Model) vertical() string {
	lines := make([]string, len(m.entries))
	for i, e := range m.entries {
		line := fmt.Sprintf("%s  %s  %s", m.label(i), truncate(e.Title, 48), dimStyle.Render(host(e.URL)))
		if i == m.sel.Index {
			line = selectedStyle.Render(fmt.Sprintf("%s  %s  %s", m.label(i), truncate(e.Title, 48), host(e.URL)))
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func (m Model) horizontal() string {
	cards := make([]string, len(m.entries))
	for i, e := range m.entries {
		body := m.label(i) + "\n" + truncate(e.Title, 22) + "\n" + dimStyle.Render(truncate(host(e.URL), 22))
		style := cardStyle
		if i == m.sel.Index {
			style = selectedCardStyle
		}
		cards[i] = style.Render(body)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

// label is the digit shortcut for the first nine rows, and a marker for
// bookmarks.
func (m Model) label(i int) string {
	mark := " "
	if m.entries[i].Bookmark {
		mark = "★"
	}
	if i < 9 {
		return fmt.Sprintf("%d%s", i+1, mark)
	}
	return " " + mark
}

func host(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// Run shows the switcher until a tab is chosen or the user closes it.
func Run(ctx context.Context, backend Backend, opts Options) error {
	p := tea.NewProgram(New(ctx, backend, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(Model); ok && m.err != nil {
		return m.err
	}
	return nil
}
