package action

import "fmt"

// Action represents input actions that can be performed in the emulator
type Action int

const (
	// CHIP-8 hexadecimal keypad
	Key0 Action = iota
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF

	// Emulator features
	EmulatorPauseToggle
	EmulatorReset
	EmulatorStepInstruction
	EmulatorQuit
)

// Keypad returns the keypad index for a keypad action.
func (a Action) Keypad() (int, bool) {
	if a >= Key0 && a <= KeyF {
		return int(a - Key0), true
	}
	return 0, false
}

func (a Action) String() string {
	if key, ok := a.Keypad(); ok {
		return fmt.Sprintf("Key%X", key)
	}
	switch a {
	case EmulatorPauseToggle:
		return "EmulatorPauseToggle"
	case EmulatorReset:
		return "EmulatorReset"
	case EmulatorStepInstruction:
		return "EmulatorStepInstruction"
	case EmulatorQuit:
		return "EmulatorQuit"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}
