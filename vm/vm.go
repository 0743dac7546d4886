// Package vm executes a parsed Brainfuck program against a byte-wrapping
// tape, with an optional execution profiler layered on top of the same
// step loop the interpreter and debugger share.
package vm

import (
	"errors"

	"github.com/csork/brainfuck/opcode"
)

// profilerState accumulates a per-instruction execution count, expanded
// back out to the original (unfolded) source length so a run with
// RLE folding and one without produce identically shaped profiles. It is
// created lazily by EnableProfiler so the common case (no profiling)
// pays nothing beyond one extra nil check per step.
type profilerState struct {
	counts []int
	// ipMap[i] is the offset into counts where compressed opcode i's
	// un-folded run begins; it spans op.Count() consecutive entries.
	ipMap []int
}

// VM interprets a Program against a fixed-size memory tape. The zero
// value is not usable; construct with New.
type VM struct {
	program *opcode.Program
	memory  []byte
	dataPtr int
	ip      int
	stdin   Stdin
	stdout  Stdout

	profiler *profilerState
}

// New builds a VM over program with a memory tape of memSize bytes, all
// initialised to zero, reading `,` from stdin and writing `.` to stdout.
func New(program *opcode.Program, memSize int, stdin Stdin, stdout Stdout) *VM {
	return &VM{
		program: program,
		memory:  make([]byte, memSize),
		stdin:   stdin,
		stdout:  stdout,
	}
}

// Program returns the program being executed.
func (v *VM) Program() *opcode.Program { return v.program }

// Memory returns the live tape. Callers must not retain it across calls
// that continue execution.
func (v *VM) Memory() []byte { return v.memory }

// IP returns the current instruction pointer.
func (v *VM) IP() int { return v.ip }

// DataPtr returns the current data pointer.
func (v *VM) DataPtr() int { return v.dataPtr }

// EnableProfiler turns on per-instruction execution counting. Counts
// accumulate from this point on; calling it a second time resets them.
func (v *VM) EnableProfiler() {
	code := v.program.Code
	ipMap := make([]int, len(code))
	total := 0
	for i, op := range code {
		ipMap[i] = total
		total += op.Count()
	}
	v.profiler = &profilerState{counts: make([]int, total), ipMap: ipMap}
}

// ProfileData returns the accumulated per-original-source-character
// execution counts (RLE folds expanded back out), or nil if profiling was
// never enabled.
func (v *VM) ProfileData() []int {
	if v.profiler == nil {
		return nil
	}
	return v.profiler.counts
}


// ExecuteStep runs exactly one (possibly folded) opcode and advances the
// instruction pointer. It returns ErrProgramFinished, wrapped in a
// ProgramError at the terminal IP, once the program has no more steps.
func (v *VM) ExecuteStep() error {
	step, ok := v.program.GetStep(v.ip)
	if !ok {
		return &ProgramError{Index: v.ip, Err: ErrProgramFinished}
	}

	op := step.OpCode
	if v.profiler != nil {
		start := v.profiler.ipMap[v.ip]
		for i := 0; i < op.Count(); i++ {
			v.profiler.counts[start+i]++
		}
	}

	switch op.Kind {
	case opcode.IncDataPtr:
		if v.dataPtr+op.N >= len(v.memory) {
			return &ProgramError{Index: v.ip, Err: ErrDataPtrOutOfBounds}
		}
		v.dataPtr += op.N
	case opcode.DecDataPtr:
		if v.dataPtr < op.N {
			return &ProgramError{Index: v.ip, Err: ErrDataPtrOutOfBounds}
		}
		v.dataPtr -= op.N
	case opcode.IncValue:
		v.memory[v.dataPtr] += byte(op.N)
	case opcode.DecValue:
		v.memory[v.dataPtr] -= byte(op.N)
	case opcode.Input:
		b, err := v.stdin.ReadByte()
		if err != nil {
			return &ProgramError{Index: v.ip, Err: ErrStdinClosed}
		}
		v.memory[v.dataPtr] = b
	case opcode.Output:
		if err := v.stdout.WriteByte(v.memory[v.dataPtr]); err != nil {
			return &ProgramError{Index: v.ip, Err: err}
		}
	case opcode.LoopStart:
		if v.memory[v.dataPtr] == 0 {
			if !step.HasElse {
				return &ProgramError{Index: v.ip, Err: ErrProgramFinished}
			}
			v.ip = step.ElseIP
			return nil
		}
		v.ip = step.ThenIP
		return nil
	case opcode.LoopEnd:
		if v.memory[v.dataPtr] != 0 {
			v.ip = step.ThenIP
			return nil
		}
		if !step.HasElse {
			return &ProgramError{Index: v.ip, Err: ErrProgramFinished}
		}
		v.ip = step.ElseIP
		return nil
	}

	if !step.HasThen {
		v.ip = len(v.program.Code)
		return nil
	}
	v.ip = step.ThenIP
	return nil
}

// Run steps the VM until the program finishes or a step returns an error
// other than ErrProgramFinished, which Run treats as a normal, successful
// stop and swallows.
func (v *VM) Run() error {
	for {
		err := v.ExecuteStep()
		if err == nil {
			continue
		}
		var perr *ProgramError
		if errors.As(err, &perr) && errors.Is(perr.Err, ErrProgramFinished) {
			return nil
		}
		return err
	}
}
