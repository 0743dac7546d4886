//go:build arm64

package codegen

import (
	"encoding/binary"
	"testing"
)

func TestFunctionPrologEpilogEmitInstructions(t *testing.T) {
	g := NewARM64CodeGenerator(0, 0)
	if err := g.FunctionProlog(); err != nil {
		t.Fatalf("FunctionProlog() error: %v", err)
	}
	if len(g.code) == 0 {
		t.Fatal("FunctionProlog() emitted no instructions")
	}
	before := len(g.code)
	if err := g.FunctionEpilog(); err != nil {
		t.Fatalf("FunctionEpilog() error: %v", err)
	}
	if len(g.code) <= before {
		t.Fatal("FunctionEpilog() emitted no instructions")
	}
}

func TestLoopStartEndPatchesForwardBranch(t *testing.T) {
	g := NewARM64CodeGenerator(0, 0)
	label, err := g.LoopStart()
	if err != nil {
		t.Fatalf("LoopStart() error: %v", err)
	}
	cbzPos := g.pendingCBZ[label]

	// body: one UpdateValue
	if err := g.UpdateValue(1); err != nil {
		t.Fatalf("UpdateValue() error: %v", err)
	}

	if err := g.LoopEnd(label); err != nil {
		t.Fatalf("LoopEnd() error: %v", err)
	}

	if _, stillPending := g.pendingCBZ[label]; stillPending {
		t.Fatal("LoopEnd() did not clear the pending forward branch")
	}

	patched := g.code[cbzPos : cbzPos+4]
	if patched[0] == 0 && patched[1] == 0 && patched[2] == 0 && patched[3] == 0 {
		t.Fatal("forward branch placeholder was never patched")
	}
}

func TestLoopEndBranchesBackToTheConditionTestNotTheBodyStart(t *testing.T) {
	g := NewARM64CodeGenerator(0, 0)
	label, err := g.LoopStart()
	if err != nil {
		t.Fatalf("LoopStart() error: %v", err)
	}
	retestPoint := g.labels[label]
	bodyStart := len(g.code) // past the ldrb+cbz condition test

	if err := g.UpdateValue(1); err != nil {
		t.Fatalf("UpdateValue() error: %v", err)
	}
	backBranchPos := len(g.code)
	if err := g.LoopEnd(label); err != nil {
		t.Fatalf("LoopEnd() error: %v", err)
	}

	if retestPoint == bodyStart {
		t.Fatal("label recorded after the condition test instead of before it")
	}

	instr := binary.LittleEndian.Uint32(g.code[backBranchPos : backBranchPos+4])
	imm26 := int32(instr & 0x3FFFFFF)
	if imm26 > (1 << 25) {
		imm26 -= 1 << 26
	}
	target := backBranchPos + int(imm26)*4
	if target != retestPoint {
		t.Fatalf("backward branch targets offset %d, want the re-test point at %d", target, retestPoint)
	}
}

func TestInstructionsAreFourByteAligned(t *testing.T) {
	g := NewARM64CodeGenerator(0, 0)
	g.FunctionProlog()
	g.UpdateMemoryPtr(3)
	g.UpdateValue(-1)
	g.Set(0)
	g.FunctionEpilog()

	if len(g.code)%4 != 0 {
		t.Fatalf("code length %d is not a multiple of 4", len(g.code))
	}
}
