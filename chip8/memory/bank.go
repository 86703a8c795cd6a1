// Package memory provides the fixed-size, bounds-checked storage used for every
// piece of CHIP-8 machine state: RAM, the register file, the call stack,
// framebuffer cells and the keypad.
package memory

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is matched by every AccessError.
var ErrOutOfRange = errors.New("memory access out of range")

// AccessError reports an access outside a bank's capacity.
type AccessError struct {
	Region string
	Index  int
	Size   int
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("%s: index 0x%X outside [0, 0x%X)", e.Region, e.Index, e.Size)
}

func (e *AccessError) Unwrap() error {
	return ErrOutOfRange
}

// Bank is a fixed-capacity array of T addressed from zero.
type Bank[T any] struct {
	name string
	data []T
}

// NewBank creates a zeroed bank of the given size. The name is used in error messages.
func NewBank[T any](name string, size int) *Bank[T] {
	return &Bank[T]{
		name: name,
		data: make([]T, size),
	}
}

// Len returns the bank capacity.
func (b *Bank[T]) Len() int {
	return len(b.data)
}

// Name returns the region name.
func (b *Bank[T]) Name() string {
	return b.name
}

// Get returns the value at index i.
func (b *Bank[T]) Get(i int) (T, error) {
	if err := b.check(i, 1); err != nil {
		var zero T
		return zero, err
	}
	return b.data[i], nil
}

// Set stores v at index i.
func (b *Bank[T]) Set(i int, v T) error {
	if err := b.check(i, 1); err != nil {
		return err
	}
	b.data[i] = v
	return nil
}

// Load writes values starting at offset. Either all values are written or,
// when they do not fit, none are and an AccessError is returned.
func (b *Bank[T]) Load(offset int, values []T) error {
	if err := b.check(offset, len(values)); err != nil {
		return err
	}
	copy(b.data[offset:], values)
	return nil
}

// Clear resets every cell to the zero value of T.
func (b *Bank[T]) Clear() {
	clear(b.data)
}

// Snapshot returns a copy of the bank contents.
func (b *Bank[T]) Snapshot() []T {
	out := make([]T, len(b.data))
	copy(out, b.data)
	return out
}

// check validates the range [i, i+n).
func (b *Bank[T]) check(i, n int) error {
	if i < 0 || n < 0 || i+n > len(b.data) {
		idx := i
		if i >= 0 && i < len(b.data) {
			// the start fits, report the first cell that does not
			idx = len(b.data)
		}
		return &AccessError{Region: b.name, Index: idx, Size: len(b.data)}
	}
	return nil
}
