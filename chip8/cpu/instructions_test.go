package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/go-chip8/chip8/bit"
	"github.com/valerio/go-chip8/chip8/memory"
	"github.com/valerio/go-chip8/chip8/video"
)

// newTestCPU returns a CPU with the given instruction words loaded at ProgramStart.
func newTestCPU(t *testing.T, words ...uint16) *CPU {
	t.Helper()

	program := make([]byte, 0, len(words)*2)
	for _, w := range words {
		program = append(program, bit.High(w), bit.Low(w))
	}

	c := New(WithRandom(func() uint8 { return 0xFF }))
	require.NoError(t, c.LoadProgram(program))
	return c
}

func step(t *testing.T, c *CPU) Effect {
	t.Helper()
	effect, err := c.Step()
	require.NoError(t, err)
	return effect
}

func TestCPU_add(t *testing.T) {
	testCases := []struct {
		desc  string
		a, b  uint8
		want  uint8
		carry uint8
	}{
		{desc: "adds", a: 1, b: 2, want: 3, carry: 0},
		{desc: "sets carry on overflow", a: 200, b: 100, want: 44, carry: 1},
		{desc: "exactly 255 has no carry", a: 200, b: 55, want: 255, carry: 0},
		{desc: "exactly 256 carries", a: 128, b: 128, want: 0, carry: 1},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c := newTestCPU(t, 0x8014)
			c.setReg(0, tC.a)
			c.setReg(1, tC.b)
			c.setFlag(0xAA)

			step(t, c)
			assert.Equal(t, tC.want, c.V(0))
			assert.Equal(t, tC.carry, c.V(0xF))
		})
	}
}

func TestCPU_sub(t *testing.T) {
	testCases := []struct {
		desc string
		a, b uint8
		want uint8
		flag uint8
	}{
		{desc: "subtracts without borrow", a: 10, b: 5, want: 5, flag: 1},
		{desc: "equal operands do not borrow", a: 7, b: 7, want: 0, flag: 1},
		{desc: "wraps on borrow", a: 5, b: 10, want: 251, flag: 0},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c := newTestCPU(t, 0x8015)
			c.setReg(0, tC.a)
			c.setReg(1, tC.b)

			step(t, c)
			assert.Equal(t, tC.want, c.V(0))
			assert.Equal(t, tC.flag, c.V(0xF))
		})
	}
}

func TestCPU_subn(t *testing.T) {
	testCases := []struct {
		desc string
		a, b uint8
		want uint8
		flag uint8
	}{
		{desc: "second minus first", a: 5, b: 10, want: 5, flag: 1},
		{desc: "equal operands do not borrow", a: 7, b: 7, want: 0, flag: 1},
		{desc: "wraps on borrow", a: 10, b: 5, want: 251, flag: 0},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c := newTestCPU(t, 0x8017)
			c.setReg(0, tC.a)
			c.setReg(1, tC.b)

			step(t, c)
			assert.Equal(t, tC.want, c.V(0))
			assert.Equal(t, tC.flag, c.V(0xF))
		})
	}
}

func TestCPU_shifts(t *testing.T) {
	testCases := []struct {
		desc string
		word uint16
		arg  uint8
		want uint8
		flag uint8
	}{
		{desc: "shr moves lsb to flag", word: 0x8126, arg: 0x03, want: 0x01, flag: 1},
		{desc: "shr without lsb", word: 0x8126, arg: 0x80, want: 0x40, flag: 0},
		{desc: "shl moves msb to flag", word: 0x812E, arg: 0x81, want: 0x02, flag: 1},
		{desc: "shl without msb", word: 0x812E, arg: 0x41, want: 0x82, flag: 0},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c := newTestCPU(t, tC.word)
			c.setReg(1, tC.arg)
			c.setReg(2, 0x55)

			step(t, c)
			assert.Equal(t, tC.want, c.V(1))
			assert.Equal(t, uint8(0x55), c.V(2), "second register is not a source")
			assert.Equal(t, tC.flag, c.V(0xF))
		})
	}
}

func TestCPU_logic(t *testing.T) {
	testCases := []struct {
		desc string
		word uint16
		want uint8
	}{
		{desc: "ld", word: 0x8010, want: 0x0F},
		{desc: "or", word: 0x8011, want: 0x3F},
		{desc: "and", word: 0x8012, want: 0x0C},
		{desc: "xor", word: 0x8013, want: 0x33},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c := newTestCPU(t, tC.word)
			c.setReg(0, 0x3C)
			c.setReg(1, 0x0F)

			step(t, c)
			assert.Equal(t, tC.want, c.V(0))
		})
	}
}

func TestCPU_immediates(t *testing.T) {
	c := newTestCPU(t, 0x6AFE, 0x7A03, 0xCA0F)
	c.setFlag(0x42)

	step(t, c)
	assert.Equal(t, uint8(0xFE), c.V(0xA))

	step(t, c)
	assert.Equal(t, uint8(0x01), c.V(0xA), "ADDI wraps")
	assert.Equal(t, uint8(0x42), c.V(0xF), "ADDI leaves the flag alone")

	step(t, c)
	assert.Equal(t, uint8(0x0F), c.V(0xA), "RND masks the random byte")
}

func TestCPU_skips(t *testing.T) {
	testCases := []struct {
		desc    string
		word    uint16
		v0, v1  uint8
		skipped bool
	}{
		{desc: "sei equal", word: 0x3005, v0: 5, skipped: true},
		{desc: "sei not equal", word: 0x3005, v0: 6, skipped: false},
		{desc: "snei equal", word: 0x4005, v0: 5, skipped: false},
		{desc: "snei not equal", word: 0x4005, v0: 6, skipped: true},
		{desc: "se equal", word: 0x5010, v0: 9, v1: 9, skipped: true},
		{desc: "se not equal", word: 0x5010, v0: 9, v1: 8, skipped: false},
		{desc: "sne equal", word: 0x9010, v0: 9, v1: 9, skipped: false},
		{desc: "sne not equal", word: 0x9010, v0: 9, v1: 8, skipped: true},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c := newTestCPU(t, tC.word)
			c.setReg(0, tC.v0)
			c.setReg(1, tC.v1)

			step(t, c)
			want := uint16(ProgramStart + 2)
			if tC.skipped {
				want += 2
			}
			assert.Equal(t, want, c.PC())
		})
	}
}

func TestCPU_keySkips(t *testing.T) {
	c := newTestCPU(t, 0xE09E, 0xE09E, 0xE0A1)
	c.setReg(0, 0xB)

	step(t, c)
	assert.Equal(t, uint16(0x202), c.PC(), "key B not pressed, no skip")

	require.NoError(t, c.SetKey(0xB, true))
	step(t, c)
	assert.Equal(t, uint16(0x206), c.PC(), "key B pressed, skip")

	c.pc = 0x204
	step(t, c)
	assert.Equal(t, uint16(0x206), c.PC(), "SKNP with key pressed does not skip")
}

func TestCPU_keySkipOutOfRange(t *testing.T) {
	c := newTestCPU(t, 0xE09E)
	c.setReg(0, 0x10)

	_, err := c.Step()
	assert.ErrorIs(t, err, memory.ErrOutOfRange)
}

func TestCPU_jumps(t *testing.T) {
	c := newTestCPU(t, 0x1300)
	step(t, c)
	assert.Equal(t, uint16(0x300), c.PC())

	c = newTestCPU(t, 0xB300)
	c.setReg(0, 0x12)
	c.setReg(1, 0x40)
	step(t, c)
	assert.Equal(t, uint16(0x312), c.PC(), "offset comes from V0 only")
}

func TestCPU_callAndReturn(t *testing.T) {
	// 0x200: CALL 0x206
	// 0x202: (return lands here)
	// 0x206: RET
	c := newTestCPU(t, 0x2206, 0x0000, 0x0000, 0x00EE)

	step(t, c)
	assert.Equal(t, uint16(0x206), c.PC())
	assert.Equal(t, uint8(1), c.SP())

	top, err := c.stack.Get(0)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x202), top, "the advanced PC is pushed")

	step(t, c)
	assert.Equal(t, uint16(0x202), c.PC())
	assert.Equal(t, uint8(0), c.SP())
}

func TestCPU_stackOverflow(t *testing.T) {
	// CALL 0x200 forever
	c := newTestCPU(t, 0x2200)

	for i := 0; i < StackSize; i++ {
		step(t, c)
	}
	assert.Equal(t, uint8(StackSize), c.SP())

	_, err := c.Step()
	assert.ErrorIs(t, err, ErrStackOverflow)

	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, uint16(ProgramStart), execErr.PC)
	assert.Equal(t, OpCALL, execErr.Instruction.Op)
	assert.Equal(t, uint8(StackSize), c.SP(), "SP is not wrapped")
}

func TestCPU_stackUnderflow(t *testing.T) {
	c := newTestCPU(t, 0x00EE)

	_, err := c.Step()
	assert.ErrorIs(t, err, ErrStackUnderflow)
	assert.Equal(t, uint8(0), c.SP())
}

func TestCPU_index(t *testing.T) {
	c := newTestCPU(t, 0xA123, 0xF01E, 0xF129)
	c.setReg(0, 0x10)
	c.setReg(1, 0xA)

	step(t, c)
	assert.Equal(t, uint16(0x123), c.I())

	step(t, c)
	assert.Equal(t, uint16(0x133), c.I())

	step(t, c)
	assert.Equal(t, uint16(FontAddress+5*0xA), c.I())

	glyph := make([]uint8, GlyphSize)
	for n := range glyph {
		glyph[n], _ = c.ReadMemory(int(c.I()) + n)
	}
	assert.Equal(t, []uint8{0xF0, 0x90, 0xF0, 0x90, 0x90}, glyph, "glyph A")
}

func TestCPU_bcd(t *testing.T) {
	testCases := []struct {
		value uint8
		want  []uint8
	}{
		{value: 0, want: []uint8{0, 0, 0}},
		{value: 7, want: []uint8{0, 0, 7}},
		{value: 42, want: []uint8{0, 4, 2}},
		{value: 255, want: []uint8{2, 5, 5}},
	}
	for _, tC := range testCases {
		c := newTestCPU(t, 0xF533)
		c.setReg(5, tC.value)
		c.i = 0x300

		step(t, c)
		got := make([]uint8, 3)
		for n := range got {
			got[n], _ = c.ReadMemory(0x300 + n)
		}
		assert.Equal(t, tC.want, got, "BCD of %d", tC.value)
	}
}

func TestCPU_bcdOutOfRange(t *testing.T) {
	c := newTestCPU(t, 0xF033)
	c.i = RAMSize - 2

	_, err := c.Step()
	assert.ErrorIs(t, err, memory.ErrOutOfRange)

	last, _ := c.ReadMemory(RAMSize - 2)
	assert.Equal(t, uint8(0), last, "nothing is written on failure")
}

func TestCPU_registerDumpAndLoad(t *testing.T) {
	// dump V0..V5, clear registers, load them back
	c := newTestCPU(t, 0xF555, 0x00E0, 0xF565)
	values := []uint8{11, 22, 33, 44, 55, 66}
	for n, v := range values {
		c.setReg(uint8(n), v)
	}
	c.setReg(6, 77)
	c.i = 0x400

	step(t, c)
	for n, v := range values {
		got, err := c.ReadMemory(0x400 + n)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
	next, _ := c.ReadMemory(0x400 + 6)
	assert.Equal(t, uint8(0), next, "V6 is not dumped")

	c.v.Clear()
	step(t, c)
	step(t, c)

	assert.Equal(t, values, c.Registers()[:6])
	assert.Equal(t, uint8(0), c.V(6))
	assert.Equal(t, uint16(0x400), c.I(), "I is left unchanged")
}

func TestCPU_registerLoadOutOfRange(t *testing.T) {
	c := newTestCPU(t, 0xFF65)
	c.i = RAMSize - 4

	_, err := c.Step()
	assert.ErrorIs(t, err, memory.ErrOutOfRange)
	assert.Equal(t, make([]uint8, RegisterSize), c.Registers())
}

func TestCPU_timers(t *testing.T) {
	c := newTestCPU(t, 0x6003, 0xF015, 0xF018, 0xF107, 0x1208)

	step(t, c)
	step(t, c)
	assert.Equal(t, uint8(2), c.DelayTimer(), "set to 3 then ticked once")

	step(t, c)
	assert.Equal(t, uint8(1), c.DelayTimer())
	assert.Equal(t, uint8(2), c.SoundTimer())

	step(t, c)
	assert.Equal(t, uint8(1), c.V(1), "LDRD reads before the tick")
	assert.Equal(t, uint8(0), c.DelayTimer())

	for i := 0; i < 5; i++ {
		step(t, c)
	}
	assert.Equal(t, uint8(0), c.DelayTimer(), "never below zero")
	assert.Equal(t, uint8(0), c.SoundTimer())
}

func TestCPU_waitForKey(t *testing.T) {
	c := newTestCPU(t, 0xF30A)

	for i := 0; i < 5; i++ {
		step(t, c)
		assert.Equal(t, uint16(ProgramStart), c.PC(), "spins while no key is pressed")
	}

	require.NoError(t, c.SetKey(0x9, true))
	require.NoError(t, c.SetKey(0x4, true))
	step(t, c)
	assert.Equal(t, uint16(ProgramStart+2), c.PC())
	assert.Equal(t, uint8(0x4), c.V(3), "lowest pressed key wins")
}

func TestCPU_clearScreen(t *testing.T) {
	c := newTestCPU(t, 0x00E0)
	_, err := c.video.Flip(100)
	require.NoError(t, err)

	effect := step(t, c)
	assert.True(t, effect.Has(ScreenChanged))
	for _, on := range c.video.ToSlice() {
		assert.False(t, on)
	}
}

func TestCPU_drawXorAndCollision(t *testing.T) {
	// draw a full 8x1 row twice at (V0, V1)
	c := newTestCPU(t, 0xD011, 0xD011)
	c.setReg(0, 10)
	c.setReg(1, 5)
	c.i = 0x300
	require.NoError(t, c.ram.Set(0x300, 0xFF))

	effect := step(t, c)
	assert.True(t, effect.Has(ScreenChanged))
	assert.Equal(t, uint8(0), c.V(0xF))
	for x := 10; x < 18; x++ {
		assert.True(t, c.video.Pixel(x, 5))
	}
	assert.False(t, c.video.Pixel(18, 5))

	step(t, c)
	assert.Equal(t, uint8(1), c.V(0xF), "collision")
	for _, on := range c.video.ToSlice() {
		assert.False(t, on)
	}
}

func TestCPU_drawWrapsOrigin(t *testing.T) {
	c := newTestCPU(t, 0xD011)
	c.setReg(0, video.FramebufferWidth+3)
	c.setReg(1, video.FramebufferHeight+2)
	c.i = 0x300
	require.NoError(t, c.ram.Set(0x300, 0x80))

	step(t, c)
	assert.True(t, c.video.Pixel(3, 2))
}

func TestCPU_drawPastRightEdgeSpillsToNextRow(t *testing.T) {
	c := newTestCPU(t, 0xD011)
	c.setReg(0, 62)
	c.setReg(1, 0)
	c.i = 0x300
	require.NoError(t, c.ram.Set(0x300, 0xF0))

	step(t, c)
	assert.True(t, c.video.Pixel(62, 0))
	assert.True(t, c.video.Pixel(63, 0))
	assert.True(t, c.video.Pixel(0, 1))
	assert.True(t, c.video.Pixel(1, 1))
}

func TestCPU_drawPastFramebufferEnd(t *testing.T) {
	c := newTestCPU(t, 0xD012)
	c.setReg(0, 0)
	c.setReg(1, 31)
	c.i = 0x300
	require.NoError(t, c.ram.Set(0x300, 0x80))
	require.NoError(t, c.ram.Set(0x301, 0x80))

	_, err := c.Step()
	assert.ErrorIs(t, err, memory.ErrOutOfRange)
	assert.True(t, c.video.Pixel(0, 31), "rows before the fault are drawn")
}

func TestCPU_unknownOpcode(t *testing.T) {
	c := newTestCPU(t, 0x5121, 0x6001)

	effect := step(t, c)
	assert.True(t, effect.Has(UnknownOpcode))
	assert.Equal(t, uint16(ProgramStart+2), c.PC())
	assert.Equal(t, uint64(1), c.UnknownCount())

	step(t, c)
	assert.Equal(t, uint8(1), c.V(0), "execution continues")
}
