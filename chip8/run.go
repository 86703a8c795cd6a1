package chip8

import (
	"fmt"
	"log/slog"

	"github.com/valerio/go-chip8/chip8/backend"
	"github.com/valerio/go-chip8/chip8/input"
	"github.com/valerio/go-chip8/chip8/input/action"
	"github.com/valerio/go-chip8/chip8/input/event"
	"github.com/valerio/go-chip8/chip8/timing"
)

// actionKeypad forwards keypad writes from the input manager as actions.
type actionKeypad struct {
	emu Emulator
}

func (k actionKeypad) SetKey(key int, pressed bool) error {
	act := action.Key0 + action.Action(key)
	if _, ok := act.Keypad(); !ok {
		return fmt.Errorf("no keypad action for key %d", key)
	}
	k.emu.HandleAction(act, pressed)
	return nil
}

// Run drives emu frame by frame, presenting every frame on b and feeding the
// backend's input back into emu, until the backend asks to quit or the
// emulator fails.
func Run(emu Emulator, b backend.Backend, config backend.BackendConfig, limiter timing.Limiter) error {
	if err := b.Init(config); err != nil {
		return fmt.Errorf("initializing backend: %w", err)
	}
	defer func() {
		if err := b.Cleanup(); err != nil {
			slog.Warn("Backend cleanup failed", "error", err)
		}
	}()

	running := true
	manager := input.NewManager(actionKeypad{emu: emu})
	manager.On(action.EmulatorQuit, event.Press, func() { running = false })
	for _, act := range []action.Action{action.EmulatorPauseToggle, action.EmulatorReset, action.EmulatorStepInstruction} {
		manager.On(act, event.Press, func() { emu.HandleAction(act, true) })
	}

	limiter.Reset()
	for running {
		if err := emu.RunUntilFrame(); err != nil {
			return err
		}

		events, err := b.Update(emu.GetCurrentFrame())
		if err != nil {
			return fmt.Errorf("updating backend: %w", err)
		}
		for _, evt := range events {
			manager.Trigger(evt.Action, evt.Type)
		}

		limiter.WaitForNextFrame()
	}

	slog.Info("Emulation stopped")
	return nil
}
