package common

import (
	"errors"
	"reflect"
	"testing"

	"vaultcore/core/events"
	"vaultcore/crypto"
)

func testAddr(suffix byte) crypto.Address {
	raw := make([]byte, 20)
	raw[len(raw)-1] = suffix
	return crypto.NewAddress(crypto.VaultPrefix, raw)
}

func TestRegistryOwnerTogglesSwitches(t *testing.T) {
	owner := testAddr(0x01)
	registry := NewRegistry(owner, "buffer.deposit", "buffer.convert")

	if registry.IsPaused("buffer.deposit") {
		t.Fatalf("expected switches to start unpaused")
	}
	if err := registry.SetPaused(owner, "buffer.deposit", true); err != nil {
		t.Fatalf("SetPaused: %v", err)
	}
	if !registry.IsPaused("buffer.deposit") {
		t.Fatalf("expected deposit switch paused")
	}
	if registry.IsPaused("buffer.convert") {
		t.Fatalf("expected convert switch untouched")
	}
	if err := registry.SetPaused(owner, "buffer.deposit", false); err != nil {
		t.Fatalf("SetPaused unpause: %v", err)
	}
	if registry.IsPaused("buffer.deposit") {
		t.Fatalf("expected deposit switch unpaused")
	}
}

func TestRegistryRejectsUnauthorizedActor(t *testing.T) {
	owner := testAddr(0x01)
	intruder := testAddr(0x02)
	registry := NewRegistry(owner, "buffer.deposit")

	if err := registry.SetPaused(intruder, "buffer.deposit", true); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if registry.IsPaused("buffer.deposit") {
		t.Fatalf("expected switch unchanged after rejected toggle")
	}
}

func TestRegistryRejectsUnknownSwitch(t *testing.T) {
	owner := testAddr(0x01)
	registry := NewRegistry(owner, "buffer.deposit")

	if err := registry.SetPaused(owner, "buffer.unknown", true); !errors.Is(err, ErrUnknownSwitch) {
		t.Fatalf("expected ErrUnknownSwitch, got %v", err)
	}
	if registry.IsPaused("buffer.unknown") {
		t.Fatalf("expected unknown switch to read as unpaused")
	}
}

type recordingEmitter struct {
	emitted []events.Event
}

func (r *recordingEmitter) Emit(evt events.Event) {
	r.emitted = append(r.emitted, evt)
}

func TestRegistryEmitsPauseChanged(t *testing.T) {
	owner := testAddr(0x01)
	registry := NewRegistry(owner, "buffer.deposit")
	emitter := &recordingEmitter{}
	registry.SetEmitter(emitter)

	if err := registry.SetPaused(owner, "buffer.deposit", true); err != nil {
		t.Fatalf("SetPaused: %v", err)
	}
	if len(emitter.emitted) != 1 {
		t.Fatalf("expected one event, got %d", len(emitter.emitted))
	}
	changed, ok := emitter.emitted[0].(events.BufferPauseChanged)
	if !ok {
		t.Fatalf("unexpected event payload %T", emitter.emitted[0])
	}
	if changed.Switch != "buffer.deposit" || !changed.Paused {
		t.Fatalf("unexpected event %+v", changed)
	}
}

func TestRegistrySwitchesSorted(t *testing.T) {
	registry := NewRegistry(testAddr(0x01), "c", "a", "b", "")
	if got := registry.Switches(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("expected sorted switch names, got %v", got)
	}
}

func TestGuard(t *testing.T) {
	if err := Guard(nil, "anything"); err != nil {
		t.Fatalf("expected nil view to pass, got %v", err)
	}
	owner := testAddr(0x01)
	registry := NewRegistry(owner, "buffer.deposit")
	if err := Guard(registry, "buffer.deposit"); err != nil {
		t.Fatalf("expected unpaused switch to pass, got %v", err)
	}
	if err := registry.SetPaused(owner, "buffer.deposit", true); err != nil {
		t.Fatalf("SetPaused: %v", err)
	}
	if err := Guard(registry, "buffer.deposit"); !errors.Is(err, ErrSwitchPaused) {
		t.Fatalf("expected ErrSwitchPaused, got %v", err)
	}
	if err := Guard(registry, ""); err != nil {
		t.Fatalf("expected empty name to pass, got %v", err)
	}
}

func TestCallLock(t *testing.T) {
	var lock CallLock
	if lock.Locked() {
		t.Fatalf("expected new lock unlocked")
	}
	if err := lock.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !lock.Locked() {
		t.Fatalf("expected lock held after acquire")
	}
	if err := lock.Acquire(); !errors.Is(err, ErrReentrantCall) {
		t.Fatalf("expected ErrReentrantCall, got %v", err)
	}
	lock.Release()
	if lock.Locked() {
		t.Fatalf("expected lock released")
	}
	if err := lock.Acquire(); err != nil {
		t.Fatalf("expected reacquire after release, got %v", err)
	}
}
