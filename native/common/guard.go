package common

import "errors"

var ErrSwitchPaused = errors.New("switch paused")

// PauseView exposes read-only access to the pause switches guarding mutating
// vault operations.
type PauseView interface {
	IsPaused(name string) bool
}

// Guard returns ErrSwitchPaused when the named switch is engaged. A nil view
// or empty name never blocks.
func Guard(p PauseView, name string) error {
	if p == nil || name == "" {
		return nil
	}
	if p.IsPaused(name) {
		return ErrSwitchPaused
	}
	return nil
}
