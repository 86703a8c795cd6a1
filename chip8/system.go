package chip8

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/valerio/go-chip8/chip8/cpu"
	"github.com/valerio/go-chip8/chip8/input/action"
	"github.com/valerio/go-chip8/chip8/timing"
	"github.com/valerio/go-chip8/chip8/video"
)

// ErrHalted is returned by RunUntilFrame after a fatal execution error, until
// the system is reset.
var ErrHalted = errors.New("system halted")

// Config holds the emulation settings.
type Config struct {
	// CyclesPerFrame is the number of instructions executed per 60 Hz frame.
	CyclesPerFrame int
}

// DefaultConfig runs 600 instructions per second.
func DefaultConfig() Config {
	return Config{CyclesPerFrame: 10}
}

// System is a CHIP-8 machine with a loaded program, driven one frame at a time.
type System struct {
	cpu     *cpu.CPU
	config  Config
	program []byte

	paused        bool
	stepRequested bool
	halted        error
	frameChanged  bool
	beeping       bool
	frames        uint64
}

// New creates a system with no program loaded.
func New(config Config, opts ...cpu.Option) *System {
	if config.CyclesPerFrame <= 0 {
		config.CyclesPerFrame = DefaultConfig().CyclesPerFrame
	}
	return &System{
		cpu:    cpu.New(opts...),
		config: config,
	}
}

// NewWithFile creates a system and loads the ROM at path into it.
func NewWithFile(path string, config Config, opts ...cpu.Option) (*System, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ROM: %w", err)
	}

	s := New(config, opts...)
	if err := s.Load(data); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return s, nil
}

// Load resets the machine and loads program, which is kept for later resets.
// A program that does not fit leaves the running machine untouched.
func (s *System) Load(program []byte) error {
	if len(program) > cpu.MaxProgramSize {
		return fmt.Errorf("%w: %d bytes, at most %d allowed",
			cpu.ErrProgramTooLarge, len(program), cpu.MaxProgramSize)
	}

	s.cpu.Reset()
	if err := s.cpu.LoadProgram(program); err != nil {
		return err
	}

	s.program = append([]byte(nil), program...)
	s.halted = nil
	s.frameChanged = true

	slog.Info("Loaded program", "bytes", len(program),
		"instructions_per_second", timing.InstructionsPerSecond(s.config.CyclesPerFrame))
	return nil
}

// Reset restarts the loaded program from a clean machine state.
func (s *System) Reset() {
	s.cpu.Reset()
	// the program fit when it was first loaded
	_ = s.cpu.LoadProgram(s.program)

	s.halted = nil
	s.stepRequested = false
	s.frameChanged = true
	s.beeping = false
	slog.Info("System reset")
}

// RunUntilFrame executes one frame worth of instructions. While paused it
// executes at most the single instruction requested through
// EmulatorStepInstruction. A fatal error stops the frame early, is returned,
// and halts the system until Reset.
func (s *System) RunUntilFrame() error {
	if s.halted != nil {
		return fmt.Errorf("%w: %w", ErrHalted, s.halted)
	}

	cycles := s.config.CyclesPerFrame
	if s.paused {
		if !s.stepRequested {
			return nil
		}
		s.stepRequested = false
		cycles = 1
	}

	for i := 0; i < cycles; i++ {
		if err := s.step(); err != nil {
			return err
		}
	}

	s.frames++
	s.updateSound()
	return nil
}

func (s *System) step() error {
	pc := s.cpu.PC()
	effect, err := s.cpu.Step()
	if err != nil {
		s.halted = err
		slog.Error("Execution halted", "error", err, "cycles", s.cpu.Cycles())
		return err
	}

	if effect.Has(cpu.ScreenChanged) {
		s.frameChanged = true
	}
	if s.paused {
		slog.Debug("Step", "pc", fmt.Sprintf("0x%03X", pc), "cycles", s.cpu.Cycles())
	}
	return nil
}

// updateSound tracks the sound timer. There is no audio output, the tone is
// only reported in the log.
func (s *System) updateSound() {
	beeping := s.cpu.SoundTimer() > 0
	if beeping != s.beeping {
		slog.Debug("Sound", "on", beeping)
		s.beeping = beeping
	}
}

// GetCurrentFrame returns a read-only view of the display.
func (s *System) GetCurrentFrame() video.Frame {
	return s.cpu.Framebuffer()
}

// FrameChanged reports whether the display changed since the last call.
func (s *System) FrameChanged() bool {
	changed := s.frameChanged
	s.frameChanged = false
	return changed
}

// HandleAction applies a keypad or emulator control action.
func (s *System) HandleAction(act action.Action, pressed bool) {
	if key, ok := act.Keypad(); ok {
		if err := s.cpu.SetKey(key, pressed); err != nil {
			slog.Warn("Failed to update keypad", "action", act, "error", err)
		}
		return
	}

	if !pressed {
		return
	}

	switch act {
	case action.EmulatorPauseToggle:
		s.paused = !s.paused
		s.stepRequested = false
		slog.Info("Pause toggled", "paused", s.paused)
	case action.EmulatorStepInstruction:
		if s.paused {
			s.stepRequested = true
		}
	case action.EmulatorReset:
		s.Reset()
	}
}

// SetKey implements input.Keypad.
func (s *System) SetKey(key int, pressed bool) error {
	return s.cpu.SetKey(key, pressed)
}

// Paused reports whether execution is paused.
func (s *System) Paused() bool { return s.paused }

// Frames returns the number of frames executed.
func (s *System) Frames() uint64 { return s.frames }

// CPU exposes the machine state for inspection.
func (s *System) CPU() *cpu.CPU { return s.cpu }
