package vm

import (
	"fmt"
	"sort"
	"strings"
)

// Registers is a snapshot of the VM's execution state, returned by
// Debugger.Registers for display in the REPL.
type Registers struct {
	IP      int
	DataPtr int
	Value   byte
}

// Debugger wraps a VM with breakpoints and single-step/run-to-breakpoint
// control, over the same step loop the interpreter exercises directly.
type Debugger struct {
	vm          *VM
	breakpoints map[int]struct{}
	finished    bool
}

// NewDebugger wraps vm for interactive stepping.
func NewDebugger(vm *VM) *Debugger {
	return &Debugger{vm: vm, breakpoints: make(map[int]struct{})}
}

// Registers returns the current IP, data pointer, and the byte under the
// data pointer.
func (d *Debugger) Registers() Registers {
	return Registers{IP: d.vm.IP(), DataPtr: d.vm.DataPtr(), Value: d.vm.memory[d.vm.dataPtr]}
}

// AddBreakpoint arms a breakpoint at the given instruction pointer.
func (d *Debugger) AddBreakpoint(ip int) {
	d.breakpoints[ip] = struct{}{}
}

// DeleteBreakpoint disarms a breakpoint, reporting whether one was set.
func (d *Debugger) DeleteBreakpoint(ip int) bool {
	if _, ok := d.breakpoints[ip]; !ok {
		return false
	}
	delete(d.breakpoints, ip)
	return true
}

// ListBreakpoints returns armed breakpoints in ascending order.
func (d *Debugger) ListBreakpoints() []int {
	ips := make([]int, 0, len(d.breakpoints))
	for ip := range d.breakpoints {
		ips = append(ips, ip)
	}
	sort.Ints(ips)
	return ips
}

// ProgramList renders a window of 3 opcodes before through 3 after focus.
// focus defaults to the current instruction pointer when nil.
func (d *Debugger) ProgramList(focus *int) string {
	f := d.vm.IP()
	if focus != nil {
		f = *focus
	}
	start, end := f-3, f+3
	return d.vm.program.Listing(&start, &end)
}

// Memory returns the live tape.
func (d *Debugger) Memory() []byte {
	return d.vm.Memory()
}

// MemoryCell returns the byte at index i, or ok=false if i is out of range.
func (d *Debugger) MemoryCell(i int) (byte, bool) {
	mem := d.vm.Memory()
	if i < 0 || i >= len(mem) {
		return 0, false
	}
	return mem[i], true
}

// MemoryDump renders 16-byte rows covering [start, start+length), aligned
// down to the nearest 16-byte boundary at or before start. Each row shows
// its starting offset as a 4-digit hex address, the hex bytes in the
// requested window (blank outside it), and a trailing ASCII column where
// printable bytes appear verbatim and everything else as '.'.
func (d *Debugger) MemoryDump(start, length int) string {
	mem := d.vm.Memory()
	end := start + length

	alignedStart := start - (start % 16)
	if alignedStart < 0 {
		alignedStart = 0
	}

	var sb strings.Builder
	for offset := alignedStart; offset < end; offset += 16 {
		fmt.Fprintf(&sb, "%04x | ", offset)
		var ascii strings.Builder
		for i := 0; i < 16; i++ {
			idx := offset + i
			if idx < start || idx >= end || idx >= len(mem) {
				sb.WriteString("   ")
				ascii.WriteByte(' ')
				continue
			}
			b := mem[idx]
			fmt.Fprintf(&sb, "%02x ", b)
			if b >= 0x20 && b <= 0x7e {
				ascii.WriteByte(b)
			} else {
				ascii.WriteByte('.')
			}
		}
		sb.WriteString("| ")
		sb.WriteString(ascii.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Finished reports whether the wrapped program has run to completion.
func (d *Debugger) Finished() bool {
	return d.finished
}

// Step executes exactly one opcode, regardless of breakpoints, returning
// true if the program is still running afterward.
func (d *Debugger) Step() (bool, error) {
	if d.finished {
		return false, nil
	}
	if err := d.vm.ExecuteStep(); err != nil {
		if isFinished(err) {
			d.finished = true
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Run steps repeatedly until either the program ends or the instruction
// pointer lands on an armed breakpoint after a step; the breakpoint check
// always follows a step, so calling Run again while already sitting on a
// breakpoint executes at least one more instruction before re-checking.
func (d *Debugger) Run() (breakpoint int, hit bool, err error) {
	for {
		if d.finished {
			return 0, false, nil
		}
		running, stepErr := d.Step()
		if stepErr != nil {
			return 0, false, stepErr
		}
		if !running {
			return 0, false, nil
		}
		if _, ok := d.breakpoints[d.vm.IP()]; ok {
			return d.vm.IP(), true, nil
		}
	}
}

// Output returns everything the program has written so far when the
// wrapped VM's stdout is a StdoutString, or a TeeStdout holding one (the
// debug command sets one up alongside a console writer for live echo).
// For any other stdout it returns an empty string.
func (d *Debugger) Output() string {
	switch sink := d.vm.stdout.(type) {
	case *StdoutString:
		return sink.String()
	case TeeStdout:
		for _, s := range sink {
			if ss, ok := s.(*StdoutString); ok {
				return ss.String()
			}
		}
	}
	return ""
}

func isFinished(err error) bool {
	var perr *ProgramError
	if pe, ok := err.(*ProgramError); ok {
		perr = pe
	} else {
		return false
	}
	return perr.Err == ErrProgramFinished
}
