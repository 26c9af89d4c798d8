package tui

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/recentswitch/internal/types"
)

// ErrCancelled is returned when the user leaves a picker without choosing.
var ErrCancelled = errors.New("cancelled")

// ProfilePicker lets the user choose which Firefox profile the offline
// switcher reads.
type ProfilePicker struct {
	Profiles []types.Profile
	Cursor   int
	chosen   bool
}

func NewProfilePicker(profiles []types.Profile) ProfilePicker {
	cursor := 0
	for i, p := range profiles {
		if p.IsDefault {
			cursor = i
			break
		}
	}
	return ProfilePicker{Profiles: profiles, Cursor: cursor}
}

func (m ProfilePicker) Init() tea.Cmd { return nil }

func (m ProfilePicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j":
		if m.Cursor < len(m.Profiles)-1 {
			m.Cursor++
		}
	case "enter":
		if len(m.Profiles) > 0 {
			m.chosen = true
			return m, tea.Quit
		}
	case "esc", "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

// Selected returns the profile under the cursor and whether it was confirmed.
func (m ProfilePicker) Selected() (types.Profile, bool) {
	if !m.chosen || len(m.Profiles) == 0 {
		return types.Profile{}, false
	}
	return m.Profiles[m.Cursor], true
}

func (m ProfilePicker) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	var b strings.Builder
	b.WriteString(titleStyle.Render("Read tabs from which Firefox profile?") + "\n\n")
	for i, p := range m.Profiles {
		label := p.Name
		if p.IsDefault {
			label += " (default)"
		}
		if i == m.Cursor {
			b.WriteString(selectedStyle.Render("> "+label) + "\n")
		} else {
			b.WriteString("  " + label + "\n")
		}
	}
	b.WriteString("\n" + dimStyle.Render("↑↓ navigate · enter select · esc cancel"))
	return boxStyle.Padding(1, 2).Render(b.String())
}

// PickProfile runs the picker. With a single profile it returns it
// without asking.
func PickProfile(profiles []types.Profile) (types.Profile, error) {
	if len(profiles) == 1 {
		return profiles[0], nil
	}
	final, err := tea.NewProgram(NewProfilePicker(profiles)).Run()
	if err != nil {
		return types.Profile{}, err
	}
	p, ok := final.(ProfilePicker).Selected()
	if !ok {
		return types.Profile{}, ErrCancelled
	}
	return p, nil
}
