package cpu

import (
	"errors"
	"fmt"
)

var (
	ErrStackOverflow   = errors.New("stack overflow")
	ErrStackUnderflow  = errors.New("stack underflow")
	ErrProgramTooLarge = errors.New("program does not fit into memory")
	ErrInvalidKey      = errors.New("invalid key")
	ErrFetch           = errors.New("fetch failed")
)

// ExecError is returned by Step when an instruction could not complete. PC is
// the address the instruction was fetched from. Instruction is unset when Err
// wraps ErrFetch.
type ExecError struct {
	PC          uint16
	Instruction Instruction
	Err         error
}

func (e *ExecError) Error() string {
	if errors.Is(e.Err, ErrFetch) {
		return fmt.Sprintf("pc 0x%03X: %v", e.PC, e.Err)
	}
	return fmt.Sprintf("pc 0x%03X (%v): %v", e.PC, e.Instruction, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}
