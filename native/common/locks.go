package common

import "errors"

var ErrReentrantCall = errors.New("reentrant call")

// CallLock is an explicit two-state reentrancy guard. Execution is serialized
// per top-level operation, so this is not a mutex: a second acquisition while
// locked signals that untrusted code re-entered a guarded entry point, and it
// fails immediately instead of blocking.
type CallLock struct {
	locked bool
}

// Acquire transitions the lock to its locked state. It fails with
// ErrReentrantCall if the lock is already held.
func (l *CallLock) Acquire() error {
	if l == nil {
		return nil
	}
	if l.locked {
		return ErrReentrantCall
	}
	l.locked = true
	return nil
}

// Release returns the lock to the unlocked state.
func (l *CallLock) Release() {
	if l == nil {
		return
	}
	l.locked = false
}

// Locked reports whether the lock is currently held.
func (l *CallLock) Locked() bool {
	return l != nil && l.locked
}
