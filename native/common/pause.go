package common

import (
	"bytes"
	"errors"
	"sort"

	"vaultcore/core/events"
	"vaultcore/crypto"
)

var (
	ErrNotAuthorized = errors.New("pause registry: actor not authorized")
	ErrUnknownSwitch = errors.New("pause registry: unknown switch")
)

// Registry tracks the state of a fixed set of pause switches. Only the owner
// configured at construction may toggle them.
type Registry struct {
	owner    crypto.Address
	switches map[string]bool
	emitter  events.Emitter
}

// NewRegistry creates a registry owned by the supplied address. The named
// switches start unpaused; toggling anything outside the set fails.
func NewRegistry(owner crypto.Address, names ...string) *Registry {
	switches := make(map[string]bool, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		switches[name] = false
	}
	return &Registry{owner: owner, switches: switches, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter notified on every toggle. Passing
// nil resets the emitter to a no-op implementation.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if r == nil {
		return
	}
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// SetPaused toggles the named switch. The actor must match the registry owner.
func (r *Registry) SetPaused(actor crypto.Address, name string, paused bool) error {
	if r == nil {
		return ErrUnknownSwitch
	}
	if !bytes.Equal(actor.Bytes(), r.owner.Bytes()) {
		return ErrNotAuthorized
	}
	if _, ok := r.switches[name]; !ok {
		return ErrUnknownSwitch
	}
	r.switches[name] = paused
	if r.emitter != nil {
		r.emitter.Emit(events.BufferPauseChanged{Switch: name, Paused: paused, Actor: actor})
	}
	return nil
}

// IsPaused implements PauseView.
func (r *Registry) IsPaused(name string) bool {
	if r == nil {
		return false
	}
	return r.switches[name]
}

// Switches returns the known switch names in deterministic order.
func (r *Registry) Switches() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.switches))
	for name := range r.switches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
