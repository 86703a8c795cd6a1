package chip8

import (
	"github.com/valerio/go-chip8/chip8/input/action"
	"github.com/valerio/go-chip8/chip8/video"
)

// Emulator is the interface driven by the frame loop and the backends.
type Emulator interface {
	RunUntilFrame() error
	GetCurrentFrame() video.Frame
	HandleAction(act action.Action, pressed bool)
}

var _ Emulator = (*System)(nil)
