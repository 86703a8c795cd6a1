package chip8

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/go-chip8/chip8/cpu"
	"github.com/valerio/go-chip8/chip8/input/action"
)

func program(words ...uint16) []byte {
	out := make([]byte, 0, len(words)*2)
	for _, w := range words {
		out = append(out, byte(w>>8), byte(w))
	}
	return out
}

func newSystem(t *testing.T, cyclesPerFrame int, words ...uint16) *System {
	t.Helper()
	s := New(Config{CyclesPerFrame: cyclesPerFrame})
	require.NoError(t, s.Load(program(words...)))
	return s
}

// counter increments V0 forever.
var counter = []uint16{0x7001, 0x1200}

func TestSystem_RunUntilFrame(t *testing.T) {
	s := newSystem(t, 10, counter...)

	require.NoError(t, s.RunUntilFrame())
	assert.Equal(t, uint64(10), s.CPU().Cycles())
	assert.Equal(t, uint8(5), s.CPU().V(0))
	assert.Equal(t, uint64(1), s.Frames())
}

func TestSystem_DefaultConfig(t *testing.T) {
	assert.Equal(t, 10, DefaultConfig().CyclesPerFrame)

	s := New(Config{})
	assert.Equal(t, DefaultConfig(), s.config, "zero cycles falls back to the default")
}

func TestSystem_FrameChanged(t *testing.T) {
	// draw glyph 0 at (0, 0), then spin
	s := newSystem(t, 3, 0xA050, 0xD005, 0x1204)
	assert.True(t, s.FrameChanged(), "a fresh load needs a redraw")
	assert.False(t, s.FrameChanged(), "cleared on read")

	require.NoError(t, s.RunUntilFrame())
	assert.True(t, s.FrameChanged())
	assert.True(t, s.GetCurrentFrame().Pixel(0, 0))

	require.NoError(t, s.RunUntilFrame())
	assert.False(t, s.FrameChanged())
}

func TestSystem_HaltsOnFatalError(t *testing.T) {
	s := newSystem(t, 10, 0x00EE)

	err := s.RunUntilFrame()
	assert.ErrorIs(t, err, cpu.ErrStackUnderflow)
	assert.Equal(t, uint64(0), s.Frames())

	err = s.RunUntilFrame()
	assert.ErrorIs(t, err, ErrHalted)
	assert.ErrorIs(t, err, cpu.ErrStackUnderflow)

	s.HandleAction(action.EmulatorReset, true)
	assert.Equal(t, uint16(cpu.ProgramStart), s.CPU().PC())
	assert.ErrorIs(t, s.RunUntilFrame(), cpu.ErrStackUnderflow, "reset clears the halt")
}

func TestSystem_PauseAndStep(t *testing.T) {
	s := newSystem(t, 10, counter...)

	s.HandleAction(action.EmulatorPauseToggle, true)
	assert.True(t, s.Paused())

	require.NoError(t, s.RunUntilFrame())
	assert.Equal(t, uint64(0), s.CPU().Cycles(), "paused frames do nothing")

	s.HandleAction(action.EmulatorStepInstruction, true)
	require.NoError(t, s.RunUntilFrame())
	assert.Equal(t, uint64(1), s.CPU().Cycles())

	require.NoError(t, s.RunUntilFrame())
	assert.Equal(t, uint64(1), s.CPU().Cycles(), "one step per request")

	s.HandleAction(action.EmulatorPauseToggle, false)
	assert.True(t, s.Paused(), "releases are ignored")

	s.HandleAction(action.EmulatorPauseToggle, true)
	require.NoError(t, s.RunUntilFrame())
	assert.Equal(t, uint64(11), s.CPU().Cycles())
}

func TestSystem_StepIgnoredWhileRunning(t *testing.T) {
	s := newSystem(t, 10, counter...)
	s.HandleAction(action.EmulatorStepInstruction, true)
	s.HandleAction(action.EmulatorPauseToggle, true)

	require.NoError(t, s.RunUntilFrame())
	assert.Equal(t, uint64(0), s.CPU().Cycles())
}

func TestSystem_ResetReloadsProgram(t *testing.T) {
	s := newSystem(t, 10, counter...)
	require.NoError(t, s.RunUntilFrame())
	require.NoError(t, s.CPU().SetKey(1, true))

	s.HandleAction(action.EmulatorReset, true)

	assert.Equal(t, uint64(0), s.CPU().Cycles())
	assert.Equal(t, uint8(0), s.CPU().V(0))
	first, err := s.CPU().ReadMemory(cpu.ProgramStart)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x70), first)
}

func TestSystem_KeypadActions(t *testing.T) {
	// wait for a key into V2, then spin
	s := newSystem(t, 5, 0xF20A, 0x1202)

	require.NoError(t, s.RunUntilFrame())
	assert.Equal(t, uint16(cpu.ProgramStart), s.CPU().PC())

	s.HandleAction(action.KeyE, true)
	require.NoError(t, s.RunUntilFrame())
	assert.Equal(t, uint8(0xE), s.CPU().V(2))

	s.HandleAction(action.KeyE, false)
	require.NoError(t, s.SetKey(3, true))
	assert.Error(t, s.SetKey(16, true))
}

func TestSystem_LoadTooLarge(t *testing.T) {
	s := New(DefaultConfig())
	err := s.Load(make([]byte, cpu.MaxProgramSize+1))
	assert.ErrorIs(t, err, cpu.ErrProgramTooLarge)
}

func TestSystem_LoadTooLargeKeepsRunningProgram(t *testing.T) {
	s := newSystem(t, 1, 0x602A, 0x1202)
	require.NoError(t, s.RunUntilFrame())
	require.Equal(t, uint8(42), s.CPU().V(0))

	err := s.Load(make([]byte, cpu.MaxProgramSize+1))
	require.ErrorIs(t, err, cpu.ErrProgramTooLarge)

	assert.Equal(t, uint8(42), s.CPU().V(0))
	b, err := s.CPU().ReadMemory(cpu.ProgramStart)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x60), b)

	s.Reset()
	require.NoError(t, s.RunUntilFrame())
	assert.Equal(t, uint8(42), s.CPU().V(0))
}

func TestNewWithFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "counter.ch8")
	require.NoError(t, os.WriteFile(path, program(counter...), 0o644))

	s, err := NewWithFile(path, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, s.RunUntilFrame())
	assert.Equal(t, uint8(5), s.CPU().V(0))

	_, err = NewWithFile(filepath.Join(dir, "missing.ch8"), DefaultConfig())
	assert.ErrorIs(t, err, os.ErrNotExist)

	big := filepath.Join(dir, "big.ch8")
	require.NoError(t, os.WriteFile(big, make([]byte, cpu.MaxProgramSize+1), 0o644))
	_, err = NewWithFile(big, DefaultConfig())
	assert.ErrorIs(t, err, cpu.ErrProgramTooLarge)
}
