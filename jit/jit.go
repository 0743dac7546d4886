//go:build arm64

// Package jit compiles a Brainfuck program straight to ARM64 machine
// code through ast and codegen, and runs the result in place against a
// memory tape, bypassing the interpreter's per-opcode dispatch entirely.
package jit

import (
	"fmt"
	"io"

	"github.com/csork/brainfuck/ast"
	"github.com/csork/brainfuck/codegen"
	"github.com/csork/brainfuck/opcode"
)

// JIT owns one compiled function over one program. Construct with New,
// call Run as many times as needed, then Close to release the code page.
type JIT struct {
	program *opcode.Program
	nodes   []*ast.Node
	gen     *codegen.ARM64CodeGenerator
	fn      codegen.JITFunction
	thunks  *thunks
}

// New builds the AST for program (applying peephole optimisations) and
// wires a fresh pair of I/O thunks, but does not generate code yet.
func New(program *opcode.Program, stdout io.Writer, stdin io.Reader) *JIT {
	t := newThunks(stdout, stdin)
	return &JIT{
		program: program,
		nodes:   ast.New(program),
		gen:     codegen.NewARM64CodeGenerator(t.outputPtr, t.inputPtr),
		thunks:  t,
	}
}

// AST returns the optimised tree, for the `jit ast` CLI subcommand.
func (j *JIT) AST() []*ast.Node { return j.nodes }

// Code returns the raw machine code bytes generated so far, for the
// `jit dump` CLI subcommand. GenerateCode must have been called first.
func (j *JIT) Code() []byte { return j.gen.Code() }

// GenerateCode walks the AST through the code generator, producing a
// finished, callable function. Run calls it on first use if it has not
// been called yet; it must be called before Code returns anything.
func (j *JIT) GenerateCode() error {
	if err := j.gen.FunctionProlog(); err != nil {
		return fmt.Errorf("jit: prolog: %w", err)
	}
	if err := ast.Generate(j.gen, j.nodes); err != nil {
		return fmt.Errorf("jit: generate: %w", err)
	}
	if err := j.gen.FunctionEpilog(); err != nil {
		return fmt.Errorf("jit: epilog: %w", err)
	}
	fn, err := j.gen.Finalize()
	if err != nil {
		return fmt.Errorf("jit: finalize: %w", err)
	}
	j.fn = fn
	return nil
}

// Run executes the compiled function against a fresh tape of memSize
// bytes and returns the final tape contents.
func (j *JIT) Run(memSize int) ([]byte, error) {
	if j.fn == nil {
		if err := j.GenerateCode(); err != nil {
			return nil, err
		}
	}
	tape := make([]byte, memSize)
	j.fn(tape)
	return tape, nil
}

// Close releases the JIT'd code page. The JIT must not be used again
// afterward.
func (j *JIT) Close() error {
	return j.gen.Close()
}
