// Package codegen defines the code generator interface the AST walks to
// emit machine code, and its ARM64 implementation (built on arm64 only).
package codegen

// CodeGenerator receives one call per AST node, in program order, and
// emits native instructions for it. LoopStart/LoopEnd bracket a loop
// body: LoopStart returns an opaque label identifying the loop so
// LoopEnd can emit the backward branch to the loop-entry test and
// back-patch that test's forward (loop-exit) branch once the body's
// length is known.
type CodeGenerator interface {
	// FunctionProlog emits the entry sequence: save callee-saved
	// registers, load the tape base pointer and the output/input thunk
	// pointers into fixed registers.
	FunctionProlog() error
	// FunctionEpilog emits the exit sequence and returns.
	FunctionEpilog() error

	Input() error
	Output() error

	// UpdateMemoryPtr moves the data pointer by delta cells (negative
	// moves left). Unchecked: callers are expected to have already
	// validated the program, as the interpreter does, before JIT-ing it.
	UpdateMemoryPtr(delta int) error
	// UpdateValue adds delta to the current cell, wrapping as a byte.
	UpdateValue(delta int) error
	// Set stores value into the current cell directly.
	Set(value byte) error
	// AddTo adds the current cell's value into the cell at offset
	// relative to the data pointer, then zeroes the current cell.
	AddTo(offset int) error

	// LoopStart emits the loop-entry test and returns a label identifying
	// this loop for the matching LoopEnd call.
	LoopStart() (label int, err error)
	// LoopEnd emits an unconditional branch back to the loop-entry test
	// and back-patches that test's forward branch to land just past it,
	// now that the body's extent is known.
	LoopEnd(label int) error

	// Finalize completes code generation and returns an executable
	// function of the form func(tape []byte).
	Finalize() (JITFunction, error)
}

// JITFunction is a finished, callable compilation of a Brainfuck
// program. Calling it executes the program against tape in place.
type JITFunction func(tape []byte)
