package backend

import (
	"github.com/valerio/go-chip8/chip8/input/action"
	"github.com/valerio/go-chip8/chip8/input/event"
	"github.com/valerio/go-chip8/chip8/video"
)

// Backend represents a complete emulator platform (rendering + input).
// Backends are responsible for:
// - Rendering frames to their specific output (terminal, SDL window, files)
// - Translating platform-specific input events to Actions
type Backend interface {
	// Init configures the backend with the provided configuration.
	// This is a required step before calling Update.
	Init(config BackendConfig) error

	// Update renders the frame and returns the input events collected since
	// the previous call. Keypad events are reported as Press, Hold and
	// Release, emulator controls as a single Press.
	Update(frame video.Frame) ([]InputEvent, error)

	// Cleanup resources when shutting down
	Cleanup() error
}

// BackendConfig holds configuration for backends
type BackendConfig struct {
	Title string
	Scale int // Window pixels per CHIP-8 pixel, backends may ignore it
}

// InputEvent is a platform input translated to an emulator action.
type InputEvent struct {
	Action action.Action
	Type   event.Type
}

// QuitEvent asks the frame loop to stop.
var QuitEvent = InputEvent{Action: action.EmulatorQuit, Type: event.Press}
