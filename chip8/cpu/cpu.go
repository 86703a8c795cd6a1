package cpu

import (
	"fmt"
	"math/rand/v2"

	"github.com/valerio/go-chip8/chip8/bit"
	"github.com/valerio/go-chip8/chip8/memory"
	"github.com/valerio/go-chip8/chip8/video"
)

const (
	RAMSize      = 4096
	RegisterSize = 16
	StackSize    = 16
	KeypadSize   = 16

	// ProgramStart is where programs are loaded and execution begins.
	ProgramStart = 0x200
	// MaxProgramSize is the largest program that fits between ProgramStart and the end of RAM.
	MaxProgramSize = RAMSize - ProgramStart

	flagRegister = 0xF
	opcodeSize   = 2
)

// Effect reports the observable side effects of a single step.
type Effect uint8

const (
	// ScreenChanged is set when the instruction cleared or drew to the framebuffer.
	ScreenChanged Effect = 1 << iota
	// UnknownOpcode is set when the fetched word did not decode to an instruction.
	UnknownOpcode
)

// Has reports whether all bits of f are set in e.
func (e Effect) Has(f Effect) bool {
	return e&f == f
}

// CPU holds the complete CHIP-8 machine state.
type CPU struct {
	ram    *memory.Bank[uint8]
	v      *memory.Bank[uint8]
	stack  *memory.Bank[uint16]
	keypad *memory.Bank[bool]
	video  *video.FrameBuffer

	pc uint16
	i  uint16
	sp uint8
	dt uint8
	st uint8

	// metadata
	cycles  uint64
	unknown uint64

	random func() uint8
}

// Option configures a CPU at construction.
type Option func(*CPU)

// WithRandom replaces the byte source used by RND.
func WithRandom(random func() uint8) Option {
	return func(c *CPU) {
		c.random = random
	}
}

// New returns a CPU that has been reset and is ready to have a program loaded.
func New(opts ...Option) *CPU {
	c := &CPU{
		ram:    memory.NewBank[uint8]("ram", RAMSize),
		v:      memory.NewBank[uint8]("registers", RegisterSize),
		stack:  memory.NewBank[uint16]("stack", StackSize),
		keypad: memory.NewBank[bool]("keypad", KeypadSize),
		video:  video.NewFrameBuffer(),
		random: func() uint8 { return uint8(rand.UintN(256)) },
	}

	for _, opt := range opts {
		opt(c)
	}

	c.Reset()
	return c
}

// Reset clears all state, reloads the font glyphs and points PC at ProgramStart.
// Any loaded program is discarded.
func (c *CPU) Reset() {
	c.ram.Clear()
	// the font always fits, it lives below ProgramStart
	_ = c.ram.Load(FontAddress, fontSet[:])

	c.v.Clear()
	c.stack.Clear()
	c.keypad.Clear()
	c.video.Clear()

	c.pc = ProgramStart
	c.i = 0
	c.sp = 0
	c.dt = 0
	c.st = 0
	c.cycles = 0
	c.unknown = 0
}

// LoadProgram copies the program into RAM at ProgramStart. Programs larger
// than MaxProgramSize are rejected and RAM is left untouched.
func (c *CPU) LoadProgram(program []byte) error {
	if len(program) > MaxProgramSize {
		return fmt.Errorf("%w: %d bytes, at most %d allowed", ErrProgramTooLarge, len(program), MaxProgramSize)
	}
	return c.ram.Load(ProgramStart, program)
}

// Step fetches, decodes and executes a single instruction, then ticks both
// timers. A returned error leaves the machine halted at the faulting
// instruction's side effects; the caller decides whether to reset.
func (c *CPU) Step() (Effect, error) {
	pc := c.pc

	word, err := c.fetch()
	if err != nil {
		return 0, &ExecError{PC: pc, Err: fmt.Errorf("%w: %w", ErrFetch, err)}
	}

	instruction := Decode(word)
	effect, err := c.execute(instruction)
	if err != nil {
		return effect, &ExecError{PC: pc, Instruction: instruction, Err: err}
	}

	c.tickTimers()
	c.cycles++

	return effect, nil
}

// fetch reads the big endian word at PC and advances PC past it.
func (c *CPU) fetch() (uint16, error) {
	high, err := c.ram.Get(int(c.pc))
	if err != nil {
		return 0, err
	}
	low, err := c.ram.Get(int(c.pc) + 1)
	if err != nil {
		return 0, err
	}

	c.pc += opcodeSize
	return bit.Combine(high, low), nil
}

func (c *CPU) tickTimers() {
	if c.dt > 0 {
		c.dt--
	}
	if c.st > 0 {
		c.st--
	}
}

// SetKey updates the pressed state of a keypad key in [0, 16).
func (c *CPU) SetKey(key int, pressed bool) error {
	if err := c.keypad.Set(key, pressed); err != nil {
		return fmt.Errorf("%w %d: %w", ErrInvalidKey, key, err)
	}
	return nil
}

// ReadMemory returns the RAM byte at address.
func (c *CPU) ReadMemory(address int) (uint8, error) {
	return c.ram.Get(address)
}

// Framebuffer returns a read-only view of the display.
func (c *CPU) Framebuffer() video.Frame {
	return c.video
}

func (c *CPU) PC() uint16           { return c.pc }
func (c *CPU) I() uint16            { return c.i }
func (c *CPU) DelayTimer() uint8    { return c.dt }
func (c *CPU) SoundTimer() uint8    { return c.st }
func (c *CPU) Cycles() uint64       { return c.cycles }
func (c *CPU) UnknownCount() uint64 { return c.unknown }

// SP returns the number of entries on the call stack: 0 when empty and
// StackSize after StackSize nested calls. It indexes the next free slot.
func (c *CPU) SP() uint8 {
	return c.sp
}

// V returns general purpose register x (only the low nibble of x is used).
func (c *CPU) V(x uint8) uint8 {
	return c.reg(x)
}

// Registers returns a copy of V0..VF.
func (c *CPU) Registers() []uint8 {
	return c.v.Snapshot()
}

// reg and setReg take a register nibble, which is always within the bank.
func (c *CPU) reg(x uint8) uint8 {
	value, _ := c.v.Get(int(x & 0xF))
	return value
}

func (c *CPU) setReg(x uint8, value uint8) {
	_ = c.v.Set(int(x&0xF), value)
}

func (c *CPU) setFlag(value uint8) {
	c.setReg(flagRegister, value)
}
