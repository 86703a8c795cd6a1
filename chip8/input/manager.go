package input

import (
	"log/slog"
	"time"

	"github.com/valerio/go-chip8/chip8/input/action"
	"github.com/valerio/go-chip8/chip8/input/event"
)

const (
	// debounceDuration is the minimum time between debounced events
	debounceDuration = 300 * time.Millisecond
)

// Keypad receives the state of the sixteen CHIP-8 keys.
type Keypad interface {
	SetKey(key int, pressed bool) error
}

// Manager handles input actions and their associated callbacks
type Manager struct {
	handlers      map[action.Action]map[event.Type][]func()
	lastTriggered map[action.Action]map[event.Type]time.Time
	keypad        Keypad
	now           func() time.Time
}

func NewManager(k Keypad) *Manager {
	return &Manager{
		handlers:      make(map[action.Action]map[event.Type][]func()),
		lastTriggered: make(map[action.Action]map[event.Type]time.Time),
		keypad:        k,
		now:           time.Now,
	}
}

// On registers a callback for a specific action and event type
func (m *Manager) On(act action.Action, evt event.Type, callback func()) {
	if m.handlers[act] == nil {
		m.handlers[act] = make(map[event.Type][]func())
	}
	m.handlers[act][evt] = append(m.handlers[act][evt], callback)
}

// Trigger handles the given action and event type.
func (m *Manager) Trigger(act action.Action, evt event.Type) {
	// Keypad keys are written straight through, games poll them every frame
	if key, ok := act.Keypad(); ok && m.keypad != nil {
		var err error
		switch evt {
		case event.Press:
			err = m.keypad.SetKey(key, true)
		case event.Release:
			err = m.keypad.SetKey(key, false)
		}
		if err != nil {
			slog.Warn("Failed to update keypad", "action", act, "error", err)
		}
		return
	}

	if m.debounced(act, evt) {
		return
	}

	for _, callback := range m.handlers[act][evt] {
		callback()
	}
}

// debounced reports whether a Press or Release arrived too soon after the previous one.
func (m *Manager) debounced(act action.Action, evt event.Type) bool {
	if evt != event.Press && evt != event.Release {
		return false
	}

	now := m.now()
	if m.lastTriggered[act] == nil {
		m.lastTriggered[act] = make(map[event.Type]time.Time)
	}
	if last, ok := m.lastTriggered[act][evt]; ok && now.Sub(last) < debounceDuration {
		return true
	}
	m.lastTriggered[act][evt] = now
	return false
}
