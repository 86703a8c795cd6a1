package timing

import "time"

// Limiter paces the frame loop.
type Limiter interface {
	// WaitForNextFrame blocks until it's time for the next frame.
	// Returns immediately if timing is behind schedule.
	WaitForNextFrame()

	// Reset resets the timing state, useful after pauses.
	Reset()
}

// NewNoOpLimiter returns a limiter that doesn't limit (for headless mode).
func NewNoOpLimiter() Limiter {
	return &noOpLimiter{}
}

type noOpLimiter struct{}

func (n *noOpLimiter) WaitForNextFrame() {}
func (n *noOpLimiter) Reset()            {}

// TargetFPS is the rate at which the delay and sound timers count down, and
// the rate at which frames are presented.
const TargetFPS = 60

// FrameDuration returns the target duration of a single frame.
func FrameDuration() time.Duration {
	return time.Second / TargetFPS
}

// InstructionsPerSecond returns the effective CPU speed when cyclesPerFrame
// instructions are executed each frame.
func InstructionsPerSecond(cyclesPerFrame int) int {
	return cyclesPerFrame * TargetFPS
}
