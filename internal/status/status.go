// Package status holds the daemon's small pieces of process state.
package status

import "sync/atomic"

// State is created once at startup and shared by the command trigger and
// the service.
type State struct {
	popupOpen atomic.Bool
	busy      atomic.Bool
}

func New() *State {
	return &State{}
}

// PopupOpen reports whether the extension popup is currently showing.
func (s *State) PopupOpen() bool { return s.popupOpen.Load() }

func (s *State) SetPopupOpen(open bool) { s.popupOpen.Store(open) }

// TryAcquire claims the command guard. It returns false while another
// invocation holds it. Callers must Release, typically via defer.
func (s *State) TryAcquire() bool {
	return s.busy.CompareAndSwap(false, true)
}

func (s *State) Release() { s.busy.Store(false) }
