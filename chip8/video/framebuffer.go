package video

import (
	"strings"

	"github.com/valerio/go-chip8/chip8/memory"
)

const (
	FramebufferWidth  = 64
	FramebufferHeight = 32
	FramebufferSize   = FramebufferWidth * FramebufferHeight
)

// Frame is a read-only view of the display, consumed by renderers.
type Frame interface {
	Width() int
	Height() int
	// Pixel reports whether the pixel at (x, y) is lit. Coordinates outside the
	// screen report false.
	Pixel(x, y int) bool
}

// FrameBuffer is the 64x32 monochrome display, addressed by y*64+x.
type FrameBuffer struct {
	cells *memory.Bank[bool]
}

var _ Frame = (*FrameBuffer)(nil)

// NewFrameBuffer creates a blank frame buffer.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{
		cells: memory.NewBank[bool]("framebuffer", FramebufferSize),
	}
}

func (fb *FrameBuffer) Width() int  { return FramebufferWidth }
func (fb *FrameBuffer) Height() int { return FramebufferHeight }

func (fb *FrameBuffer) Pixel(x, y int) bool {
	if x < 0 || x >= FramebufferWidth || y < 0 || y >= FramebufferHeight {
		return false
	}
	on, _ := fb.cells.Get(y*FramebufferWidth + x)
	return on
}

// Flip XORs a lit sprite pixel onto the cell at the linear index and reports
// whether a lit pixel was turned off.
func (fb *FrameBuffer) Flip(index int) (collision bool, err error) {
	on, err := fb.cells.Get(index)
	if err != nil {
		return false, err
	}
	return on, fb.cells.Set(index, !on)
}

// Clear turns every pixel off.
func (fb *FrameBuffer) Clear() {
	fb.cells.Clear()
}

// ToSlice returns a copy of the cells in row-major order.
func (fb *FrameBuffer) ToSlice() []bool {
	return fb.cells.Snapshot()
}

// Render draws any frame as text, one line per row.
func Render(f Frame, on, off rune) string {
	var sb strings.Builder
	sb.Grow((f.Width() + 1) * f.Height())
	for y := 0; y < f.Height(); y++ {
		for x := 0; x < f.Width(); x++ {
			if f.Pixel(x, y) {
				sb.WriteRune(on)
			} else {
				sb.WriteRune(off)
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
