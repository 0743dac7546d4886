package vm_test

import (
	"io"
	"strings"
	"testing"

	"github.com/csork/brainfuck/opcode"
	"github.com/csork/brainfuck/vm"
)

const helloWorld = "++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]>>.>---.+++++++..+++.>>.<-.<.+++.------.--------.>>+.>++."

func mustProgram(t *testing.T, source string, rle bool) *opcode.Program {
	t.Helper()
	program, err := opcode.New(source, rle)
	if err != nil {
		t.Fatalf("opcode.New(%q) error: %v", source, err)
	}
	return program
}

func TestRunHelloWorld(t *testing.T) {
	program := mustProgram(t, helloWorld, false)
	stdout := vm.NewStdoutString()
	machine := vm.New(program, 1<<10, vm.NewStdinString(""), stdout)

	if err := machine.Run(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got, want := stdout.String(), "Hello World!\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestConsoleInputTranslatesNewlineToZero(t *testing.T) {
	program := mustProgram(t, ",.", false)
	stdout := vm.NewStdoutString()
	machine := vm.New(program, 16, vm.NewStdinConsole(strings.NewReader("\n"), io.Discard, ""), stdout)

	if err := machine.Run(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got := stdout.String(); got != "\x00" {
		t.Fatalf("output = %q, want 0x00", got)
	}
}

func TestStringInputPassesNewlineThrough(t *testing.T) {
	program := mustProgram(t, ",.", false)
	stdout := vm.NewStdoutString()
	machine := vm.New(program, 16, vm.NewStdinString("\n"), stdout)

	if err := machine.Run(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got := stdout.String(); got != "\n" {
		t.Fatalf("output = %q, want unchanged newline", got)
	}
}

func TestDataPtrUnderflowIsAnError(t *testing.T) {
	program := mustProgram(t, "<", false)
	machine := vm.New(program, 16, vm.NewStdinString(""), vm.NewStdoutString())

	err := machine.Run()
	if err == nil {
		t.Fatal("expected a data pointer underflow error")
	}
}

func TestDataPtrOverflowIsAnError(t *testing.T) {
	program := mustProgram(t, ">", false)
	machine := vm.New(program, 1, vm.NewStdinString(""), vm.NewStdoutString())

	err := machine.Run()
	if err == nil {
		t.Fatal("expected a data pointer overflow error")
	}
}

func TestValueWrapsModulo256(t *testing.T) {
	program := mustProgram(t, "-.", false)
	stdout := vm.NewStdoutString()
	machine := vm.New(program, 16, vm.NewStdinString(""), stdout)

	if err := machine.Run(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got := stdout.String()[0]; got != 255 {
		t.Fatalf("cell after underflow = %d, want 255", got)
	}
}

func TestProfilerCountsMatchSourceCharacters(t *testing.T) {
	// Folded to 4 opcodes: IncValue(10), LoopStart, DecValue(10), LoopEnd.
	// Un-folded, that is 10 '+' + 1 '[' + 10 '-' + 1 ']' = 22 characters.
	program := mustProgram(t, "++++++++++[----------]", true)
	machine := vm.New(program, 16, vm.NewStdinString(""), vm.NewStdoutString())
	machine.EnableProfiler()

	if err := machine.Run(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	counts := machine.ProfileData()
	const wantLen = 22
	if len(counts) != wantLen {
		t.Fatalf("len(counts) = %d, want %d", len(counts), wantLen)
	}

	sum := 0
	for _, c := range counts {
		sum += c
	}
	if sum != 22 {
		t.Errorf("sum(counts) = %d, want 22 (one execution per primitive opcode)", sum)
	}

	// Every one of the 10 folded '+' entries executed exactly once.
	for i := 0; i < 10; i++ {
		if counts[i] != 1 {
			t.Errorf("counts[%d] (a folded '+') = %d, want 1", i, counts[i])
		}
	}
	// LoopStart's single slot, at offset 10.
	if counts[10] != 1 {
		t.Errorf("counts[10] (LoopStart) = %d, want 1", counts[10])
	}
	// Every one of the 10 folded '-' entries, at offsets 11..20.
	for i := 11; i < 21; i++ {
		if counts[i] != 1 {
			t.Errorf("counts[%d] (a folded '-') = %d, want 1", i, counts[i])
		}
	}
	// LoopEnd's single slot, at offset 21.
	if counts[21] != 1 {
		t.Errorf("counts[21] (LoopEnd) = %d, want 1", counts[21])
	}
}
