package vm_test

import (
	"strings"
	"testing"

	"github.com/csork/brainfuck/vm"
)

func TestDebuggerStepsOneOpcodeAtATime(t *testing.T) {
	program := mustProgram(t, "++", false)
	machine := vm.New(program, 16, vm.NewStdinString(""), vm.NewStdoutString())
	dbg := vm.NewDebugger(machine)

	running, err := dbg.Step()
	if err != nil {
		t.Fatalf("Step() error: %v", err)
	}
	if !running {
		t.Fatal("expected program to still be running after one step")
	}
	if got := dbg.Registers().Value; got != 1 {
		t.Fatalf("value after one step = %d, want 1", got)
	}

	if _, err := dbg.Step(); err != nil {
		t.Fatalf("Step() error: %v", err)
	}
	if got := dbg.Registers().Value; got != 2 {
		t.Fatalf("value after two steps = %d, want 2", got)
	}
}

func TestDebuggerRunStopsAtBreakpoint(t *testing.T) {
	program := mustProgram(t, "+++++", false)
	machine := vm.New(program, 16, vm.NewStdinString(""), vm.NewStdoutString())
	dbg := vm.NewDebugger(machine)
	dbg.AddBreakpoint(3)

	bp, hit, err := dbg.Run()
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !hit || bp != 3 {
		t.Fatalf("Run() = (%d, %v), want (3, true)", bp, hit)
	}
	if got := dbg.Registers().Value; got != 3 {
		t.Fatalf("value at breakpoint = %d, want 3", got)
	}
}

func TestDebuggerRunStepsPastABreakpointItAlreadyHit(t *testing.T) {
	program := mustProgram(t, "+++++", false)
	machine := vm.New(program, 16, vm.NewStdinString(""), vm.NewStdoutString())
	dbg := vm.NewDebugger(machine)
	dbg.AddBreakpoint(3)

	bp, hit, err := dbg.Run()
	if err != nil || !hit || bp != 3 {
		t.Fatalf("first Run() = (%d, %v, %v), want (3, true, nil)", bp, hit, err)
	}

	// Calling Run again while sitting on the breakpoint must execute at
	// least one more instruction, not immediately re-report it.
	_, hit, err = dbg.Run()
	if err != nil {
		t.Fatalf("second Run() error: %v", err)
	}
	if hit {
		t.Fatal("second Run() re-reported the same breakpoint without stepping past it")
	}
	if !dbg.Finished() {
		t.Fatal("expected the program to run to completion on the second Run()")
	}
	if got := dbg.Registers().Value; got != 5 {
		t.Fatalf("final value = %d, want 5", got)
	}
}

func TestDebuggerRunToCompletionWithoutBreakpoints(t *testing.T) {
	program := mustProgram(t, "+++", false)
	machine := vm.New(program, 16, vm.NewStdinString(""), vm.NewStdoutString())
	dbg := vm.NewDebugger(machine)

	_, hit, err := dbg.Run()
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if hit {
		t.Fatal("did not expect a breakpoint hit")
	}
	if !dbg.Finished() {
		t.Fatal("expected the program to be finished")
	}
}

func TestDebuggerBreakpointAddDeleteList(t *testing.T) {
	program := mustProgram(t, "+", false)
	machine := vm.New(program, 16, vm.NewStdinString(""), vm.NewStdoutString())
	dbg := vm.NewDebugger(machine)

	dbg.AddBreakpoint(5)
	dbg.AddBreakpoint(1)
	if got := dbg.ListBreakpoints(); len(got) != 2 || got[0] != 1 || got[1] != 5 {
		t.Fatalf("ListBreakpoints() = %v, want [1 5]", got)
	}

	if !dbg.DeleteBreakpoint(1) {
		t.Fatal("expected DeleteBreakpoint(1) to report true")
	}
	if dbg.DeleteBreakpoint(1) {
		t.Fatal("expected second DeleteBreakpoint(1) to report false")
	}
}

func TestDebuggerProgramListWindowsAroundFocus(t *testing.T) {
	program := mustProgram(t, "++++++++++", false) // 10 opcodes, indices 0-9
	machine := vm.New(program, 16, vm.NewStdinString(""), vm.NewStdoutString())
	dbg := vm.NewDebugger(machine)

	focus := 5
	listing := dbg.ProgramList(&focus)
	for _, want := range []string{"0002 ", "0003 ", "0004 ", "0005 ", "0006 ", "0007 ", "0008 "} {
		if !strings.Contains(listing, want) {
			t.Errorf("ProgramList(&5) missing line %q in:\n%s", want, listing)
		}
	}
	for _, unwanted := range []string{"0000 ", "0001 ", "0009 "} {
		if strings.Contains(listing, unwanted) {
			t.Errorf("ProgramList(&5) unexpectedly includes line %q in:\n%s", unwanted, listing)
		}
	}
}

func TestDebuggerMemoryDumpFormatsSixteenByteRows(t *testing.T) {
	program := mustProgram(t, "+", false)
	machine := vm.New(program, 16, vm.NewStdinString(""), vm.NewStdoutString())
	dbg := vm.NewDebugger(machine)

	dump := dbg.MemoryDump(0, 16)
	if want := "0000 | "; dump[:len(want)] != want {
		t.Fatalf("MemoryDump() = %q, want prefix %q", dump, want)
	}
}

func TestDebuggerOutputAccumulatesFromTeeStdout(t *testing.T) {
	program := mustProgram(t, "+.+.", false)
	recorder := vm.NewStdoutString()
	machine := vm.New(program, 16, vm.NewStdinString(""), vm.TeeStdout{recorder})
	dbg := vm.NewDebugger(machine)

	if _, _, err := dbg.Run(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got := dbg.Output(); got != "\x01\x02" {
		t.Fatalf("Output() = %q, want %q", got, "\x01\x02")
	}
}
