package tui

import (
	"unicode"
	"unicode/utf8"
)

// Action is what a key press asks the switcher to do.
type Action int

const (
	ActionNone Action = iota
	ActionConfirm
	ActionClose
)

// Selection is the switcher's keyboard state: a zero-based index into the
// displayed entries and the filter term being typed.
type Selection struct {
	Index  int
	Filter string
}

// Down moves to the next entry, wrapping to the top.
func (s *Selection) Down(n int) {
	if n == 0 {
		s.Index = 0
		return
	}
	s.Index = (s.Index + 1) % n
}

// Up moves to the previous entry, wrapping to the bottom.
func (s *Selection) Up(n int) {
	if n == 0 {
		s.Index = 0
		return
	}
	s.Index = (s.Index - 1 + n) % n
}

// Jump selects entry digit-1 and confirms it. Out-of-range digits do nothing.
func (s *Selection) Jump(digit, n int) Action {
	i := digit - 1
	if i < 0 || i >= n {
		return ActionNone
	}
	s.Index = i
	return ActionConfirm
}

// Confirm is a no-op on an empty list.
func (s *Selection) Confirm(n int) Action {
	if n == 0 {
		return ActionNone
	}
	return ActionConfirm
}

// Escape clears an active filter, or closes when there is none.
func (s *Selection) Escape() Action {
	if s.Filter != "" {
		s.Filter = ""
		s.Index = 0
		return ActionNone
	}
	return ActionClose
}

func (s *Selection) Type(r rune) {
	s.Filter += string(r)
	s.Index = 0
}

func (s *Selection) Backspace() {
	if s.Filter == "" {
		return
	}
	_, size := utf8.DecodeLastRuneInString(s.Filter)
	s.Filter = s.Filter[:len(s.Filter)-size]
	s.Index = 0
}

// Clamp keeps Index inside a list of n entries after the list changed.
func (s *Selection) Clamp(n int) {
	if s.Index >= n || s.Index < 0 {
		s.Index = 0
	}
}

// HandleKey applies a key (as named by bubbletea's KeyMsg.String) to a list
// of n entries. Digits 1-9 always select; any other printable rune goes to
// the filter.
func (s *Selection) HandleKey(key string, n int) Action {
	switch key {
	case "up", "shift+tab", "ctrl+p":
		s.Up(n)
	case "down", "tab", "ctrl+n":
		s.Down(n)
	case "enter":
		return s.Confirm(n)
	case "esc":
		return s.Escape()
	case "ctrl+c":
		return ActionClose
	case "backspace":
		s.Backspace()
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		return s.Jump(int(key[0]-'0'), n)
	case " ":
		s.Type(' ')
	default:
		r, size := utf8.DecodeRuneInString(key)
		if size == len(key) && r != utf8.RuneError && unicode.IsPrint(r) {
			s.Type(r)
		}
	}
	return ActionNone
}
