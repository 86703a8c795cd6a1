package cpu

import (
	"fmt"
	"log/slog"

	"github.com/valerio/go-chip8/chip8/bit"
	"github.com/valerio/go-chip8/chip8/video"
)

// spriteWidth is the number of pixels encoded in a sprite row byte.
const spriteWidth = 8

// execute applies a decoded instruction. PC already points past it.
func (c *CPU) execute(ins Instruction) (Effect, error) {
	x, y := ins.X, ins.Y

	switch ins.Op {
	case OpCLS:
		c.video.Clear()
		return ScreenChanged, nil

	case OpRET:
		return 0, c.popStack()

	case OpJP:
		c.pc = ins.NNN

	case OpCALL:
		if err := c.pushStack(c.pc); err != nil {
			return 0, err
		}
		c.pc = ins.NNN

	case OpSEI:
		c.skipIf(c.reg(x) == ins.KK)

	case OpSNEI:
		c.skipIf(c.reg(x) != ins.KK)

	case OpSE:
		c.skipIf(c.reg(x) == c.reg(y))

	case OpSNE:
		c.skipIf(c.reg(x) != c.reg(y))

	case OpLDI:
		c.setReg(x, ins.KK)

	case OpADDI:
		c.setReg(x, c.reg(x)+ins.KK)

	case OpLD:
		c.setReg(x, c.reg(y))

	case OpOR:
		c.setReg(x, c.reg(x)|c.reg(y))

	case OpAND:
		c.setReg(x, c.reg(x)&c.reg(y))

	case OpXOR:
		c.setReg(x, c.reg(x)^c.reg(y))

	case OpADD:
		sum, carry := bit.CheckedAdd(c.reg(x), c.reg(y))
		c.setReg(x, sum)
		c.setFlag(bit.FromBool(carry))

	case OpSUB:
		diff, borrow := bit.CheckedSub(c.reg(x), c.reg(y))
		c.setReg(x, diff)
		c.setFlag(bit.FromBool(!borrow))

	case OpSUBN:
		diff, borrow := bit.CheckedSub(c.reg(y), c.reg(x))
		c.setReg(x, diff)
		c.setFlag(bit.FromBool(!borrow))

	case OpSHR:
		value := c.reg(x)
		c.setReg(x, value>>1)
		c.setFlag(bit.GetBitValue(0, value))

	case OpSHL:
		value := c.reg(x)
		c.setReg(x, value<<1)
		c.setFlag(bit.GetBitValue(7, value))

	case OpLDIX:
		c.i = ins.NNN

	case OpJPA:
		c.pc = ins.NNN + uint16(c.reg(0))

	case OpRND:
		c.setReg(x, c.random()&ins.KK)

	case OpDRW:
		return ScreenChanged, c.draw(c.reg(x), c.reg(y), ins.N)

	case OpSKP:
		pressed, err := c.keypad.Get(int(c.reg(x)))
		if err != nil {
			return 0, err
		}
		c.skipIf(pressed)

	case OpSKNP:
		pressed, err := c.keypad.Get(int(c.reg(x)))
		if err != nil {
			return 0, err
		}
		c.skipIf(!pressed)

	case OpLDRD:
		c.setReg(x, c.dt)

	case OpLDK:
		key, ok := c.lowestPressedKey()
		if !ok {
			// run this instruction again on the next step
			c.pc -= opcodeSize
			break
		}
		c.setReg(x, key)

	case OpLDDR:
		c.dt = c.reg(x)

	case OpLDST:
		c.st = c.reg(x)

	case OpADIX:
		c.i += uint16(c.reg(x))

	case OpLDF:
		c.i = FontAddress + GlyphSize*uint16(c.reg(x))

	case OpLDB:
		value := c.reg(x)
		digits := []uint8{value / 100, value / 10 % 10, value % 10}
		return 0, c.ram.Load(int(c.i), digits)

	case OpLDXR:
		registers := c.v.Snapshot()[:int(x)+1]
		return 0, c.ram.Load(int(c.i), registers)

	case OpLDRX:
		values := make([]uint8, int(x)+1)
		for n := range values {
			value, err := c.ram.Get(int(c.i) + n)
			if err != nil {
				return 0, err
			}
			values[n] = value
		}
		return 0, c.v.Load(0, values)

	case OpData:
		c.unknown++
		slog.Warn("Unknown opcode", "pc", fmt.Sprintf("0x%03X", c.pc-opcodeSize), "opcode", fmt.Sprintf("0x%04X", ins.Raw))
		return UnknownOpcode, nil

	default:
		return 0, fmt.Errorf("unhandled operation %v", ins.Op)
	}

	return 0, nil
}

func (c *CPU) skipIf(condition bool) {
	if condition {
		c.pc += opcodeSize
	}
}

// pushStack stores the return address in the slot at SP, then increments SP.
func (c *CPU) pushStack(address uint16) error {
	if int(c.sp) >= c.stack.Len() {
		return ErrStackOverflow
	}
	if err := c.stack.Set(int(c.sp), address); err != nil {
		return err
	}
	c.sp++
	return nil
}

// popStack decrements SP, then loads PC from the slot at SP.
func (c *CPU) popStack() error {
	if c.sp == 0 {
		return ErrStackUnderflow
	}
	address, err := c.stack.Get(int(c.sp) - 1)
	if err != nil {
		return err
	}
	c.sp--
	c.pc = address
	return nil
}

// draw XORs an n-row sprite read from I onto the framebuffer. The origin wraps
// around the screen, the sprite body does not: pixels past the right edge land
// on the next row, and pixels past the last cell are an error.
func (c *CPU) draw(vx, vy, rows uint8) error {
	originX := int(vx) % video.FramebufferWidth
	originY := int(vy) % video.FramebufferHeight

	c.setFlag(0)
	for row := 0; row < int(rows); row++ {
		sprite, err := c.ram.Get(int(c.i) + row)
		if err != nil {
			return err
		}

		for col := 0; col < spriteWidth; col++ {
			if !bit.IsSet(uint8(spriteWidth-1-col), sprite) {
				continue
			}

			index := (originY+row)*video.FramebufferWidth + originX + col
			collision, err := c.video.Flip(index)
			if err != nil {
				return fmt.Errorf("draw at (%d, %d): %w", originX+col, originY+row, err)
			}
			if collision {
				c.setFlag(1)
			}
		}
	}

	return nil
}

// lowestPressedKey returns the lowest-numbered key currently held down.
func (c *CPU) lowestPressedKey() (uint8, bool) {
	for key, pressed := range c.keypad.Snapshot() {
		if pressed {
			return uint8(key), true
		}
	}
	return 0, false
}
