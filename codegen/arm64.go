//go:build arm64

package codegen

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/ebitengine/purego"
	"golang.org/x/sys/unix"
)

// Fixed register assignment, preserved across calls into the output and
// input thunks because AAPCS64 treats x19-x28 as callee-saved:
//
//	x19 data pointer (byte index into the tape, not bounds-checked)
//	x20 tape base address
//	x21 tape length
//	x22 output thunk function pointer
//	x23 input thunk function pointer
//	x9-x15 scratch, caller-saved, never live across a BLR
const (
	regDataPtr   = 19
	regTapeBase  = 20
	regTapeLen   = 21
	regOutThunk  = 22
	regInThunk   = 23
	regUnused    = 24
	regScratch0  = 9
	regScratch1  = 10
	regScratch2  = 11
	regScratch3  = 12
)

const frameSize = 80 // x29/x30 + x19..x24, 16-byte aligned

// ARM64CodeGenerator hand-assembles AArch64 machine code for a Brainfuck
// AST, one CodeGenerator call at a time, into a growable byte buffer that
// Finalize() copies into an executable mmap'd page.
type ARM64CodeGenerator struct {
	code []byte

	outputThunk uintptr
	inputThunk  uintptr

	labels      map[int]int // label id -> byte offset of the loop's condition test
	nextLabel   int
	pendingCBZ  map[int]int // label id -> byte offset of its forward CBZ

	buffer *ExecutableBuffer
}

// NewARM64CodeGenerator returns a code generator that will wire calls to
// `,`/`.` through the given C-callable thunk pointers.
func NewARM64CodeGenerator(outputThunk, inputThunk uintptr) *ARM64CodeGenerator {
	return &ARM64CodeGenerator{
		outputThunk: outputThunk,
		inputThunk:  inputThunk,
		labels:      make(map[int]int),
		pendingCBZ:  make(map[int]int),
	}
}

func (g *ARM64CodeGenerator) emit32(instr uint32) int {
	pos := len(g.code)
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], instr)
	g.code = append(g.code, b[:]...)
	return pos
}

func (g *ARM64CodeGenerator) patch32(pos int, instr uint32) {
	binary.LittleEndian.PutUint32(g.code[pos:pos+4], instr)
}

// --- instruction encoders ---

func encSTPPre(rt, rt2, rn uint32, imm7 int32) uint32 {
	return 0xA9800000 | (uint32(imm7/8)&0x7F)<<15 | rt2<<10 | rn<<5 | rt
}

func encLDPPost(rt, rt2, rn uint32, imm7 int32) uint32 {
	return 0xA8C00000 | (uint32(imm7/8)&0x7F)<<15 | rt2<<10 | rn<<5 | rt
}

func encSTPOff(rt, rt2, rn uint32, imm7 int32) uint32 {
	return 0xA9000000 | (uint32(imm7/8)&0x7F)<<15 | rt2<<10 | rn<<5 | rt
}

func encLDPOff(rt, rt2, rn uint32, imm7 int32) uint32 {
	return 0xA9400000 | (uint32(imm7/8)&0x7F)<<15 | rt2<<10 | rn<<5 | rt
}

func encADDImm(rd, rn uint32, imm12 uint32) uint32 {
	return 0x91000000 | (imm12&0xFFF)<<10 | rn<<5 | rd
}

func encSUBImm(rd, rn uint32, imm12 uint32) uint32 {
	return 0xD1000000 | (imm12&0xFFF)<<10 | rn<<5 | rd
}

func encADDReg(rd, rn, rm uint32) uint32 {
	return 0x8B000000 | rm<<16 | rn<<5 | rd
}

func encADDRegW(rd, rn, rm uint32) uint32 {
	return 0x0B000000 | rm<<16 | rn<<5 | rd
}

func encSUBRegW(rd, rn, rm uint32) uint32 {
	return 0x4B000000 | rm<<16 | rn<<5 | rd
}

func encMOVReg(rd, rm uint32) uint32 { // alias for ORR Xd, XZR, Xm
	return 0xAA0003E0 | rm<<16 | rd
}

func encMOVZ(rd uint32, imm16 uint32, shift uint32) uint32 {
	return 0xD2800000 | (shift&0x3)<<21 | (imm16&0xFFFF)<<5 | rd
}

func encMOVZW(rd uint32, imm16 uint32) uint32 {
	return 0x52800000 | (imm16&0xFFFF)<<5 | rd
}

func encLDRB(rt, rn uint32) uint32 {
	return 0x39400000 | rn<<5 | rt
}

func encSTRB(rt, rn uint32) uint32 {
	return 0x39000000 | rn<<5 | rt
}

func encCMPReg(rn, rm uint32) uint32 { // SUBS XZR, Xn, Xm
	return 0xEB00001F | rm<<16 | rn<<5
}

func encCMPImm(rn uint32, imm12 uint32) uint32 { // SUBS XZR, Xn, #imm
	return 0xF100001F | (imm12&0xFFF)<<10 | rn<<5
}

const (
	condGE = 0xA
	condLT = 0xB
)

func encBCond(cond uint32, imm19 int32) uint32 {
	return 0x54000000 | (uint32(imm19)&0x7FFFF)<<5 | cond
}

func encCBZW(rt uint32, imm19 int32) uint32 {
	return 0x34000000 | (uint32(imm19)&0x7FFFF)<<5 | rt
}

func encB(imm26 int32) uint32 {
	return 0x14000000 | uint32(imm26)&0x3FFFFFF
}

func encBLR(rn uint32) uint32 {
	return 0xD63F0000 | rn<<5
}

func encRET() uint32 {
	return 0xD65F03C0
}

// loadImm moves a (possibly 64-bit) immediate into rd using MOVZ plus as
// many MOVK as needed; fold counts and cell offsets are realistically
// small, so in practice this emits a single MOVZ.
func (g *ARM64CodeGenerator) loadImm(rd uint32, value int64) {
	u := uint64(value)
	g.emit32(encMOVZ(rd, uint32(u&0xFFFF), 0))
	for shift := uint32(1); shift < 4; shift++ {
		chunk := uint32((u >> (shift * 16)) & 0xFFFF)
		if chunk == 0 {
			continue
		}
		g.emit32(0xF2800000 | shift<<21 | chunk<<5 | rd) // MOVK Xd, #chunk, LSL shift*16
	}
}

// computeAddr emits scratch = tapeBase + dataPtr into regScratch0.
func (g *ARM64CodeGenerator) computeAddr() {
	g.emit32(encADDReg(regScratch0, regTapeBase, regDataPtr))
}

// wrapReg emits the standard "if reg >= len, sub len; if reg < 0, add len"
// sequence against the register holding a tentative data pointer value,
// assuming the delta applied is smaller in magnitude than the tape length.
// Unused while the JIT runs unguarded (no pointer bounds checks); kept as
// the hook a future guarded mode would call from UpdateMemoryPtr/AddTo.
func (g *ARM64CodeGenerator) wrapReg(reg uint32) {
	g.emit32(encCMPReg(reg, regTapeLen))
	ltSkip := g.emit32(0) // placeholder: B.LT over the SUB
	g.emit32(encSUBReg(reg, reg, regTapeLen))
	g.patch32(ltSkip, encBCond(condLT, int32((len(g.code)-ltSkip)/4)))

	g.emit32(encCMPImm(reg, 0))
	geSkip := g.emit32(0)
	g.emit32(encADDReg(reg, reg, regTapeLen))
	g.patch32(geSkip, encBCond(condGE, int32((len(g.code)-geSkip)/4)))
}

func encSUBReg(rd, rn, rm uint32) uint32 {
	return 0xCB000000 | rm<<16 | rn<<5 | rd
}

// --- CodeGenerator ---

func (g *ARM64CodeGenerator) FunctionProlog() error {
	g.emit32(encSTPPre(29, 30, 31, -frameSize))
	g.emit32(encADDImm(29, 31, 0)) // MOV X29, SP (ORR-based MOV can't read SP)
	g.emit32(encSTPOff(19, 20, 31, 16))
	g.emit32(encSTPOff(21, 22, 31, 32))
	g.emit32(encSTPOff(23, regUnused, 31, 48))

	g.emit32(encMOVZ(regDataPtr, 0, 0))
	g.emit32(encMOVReg(regTapeBase, 0))
	g.emit32(encMOVReg(regTapeLen, 1))
	g.emit32(encMOVReg(regOutThunk, 2))
	g.emit32(encMOVReg(regInThunk, 3))
	return nil
}

func (g *ARM64CodeGenerator) FunctionEpilog() error {
	g.emit32(encLDPOff(19, 20, 31, 16))
	g.emit32(encLDPOff(21, 22, 31, 32))
	g.emit32(encLDPOff(23, regUnused, 31, 48))
	g.emit32(encLDPPost(29, 30, 31, frameSize))
	g.emit32(encRET())
	return nil
}

func (g *ARM64CodeGenerator) Output() error {
	g.computeAddr()
	g.emit32(encLDRB(0, regScratch0))
	g.emit32(encBLR(regOutThunk))
	return nil
}

func (g *ARM64CodeGenerator) Input() error {
	g.emit32(encBLR(regInThunk))
	g.computeAddr()
	g.emit32(encSTRB(0, regScratch0))
	return nil
}

func (g *ARM64CodeGenerator) UpdateMemoryPtr(delta int) error {
	if delta >= 0 && delta <= 0xFFF {
		g.emit32(encADDImm(regDataPtr, regDataPtr, uint32(delta)))
	} else if delta < 0 && -delta <= 0xFFF {
		g.emit32(encSUBImm(regDataPtr, regDataPtr, uint32(-delta)))
	} else if delta >= 0 {
		g.loadImm(regScratch0, int64(delta))
		g.emit32(encADDReg(regDataPtr, regDataPtr, regScratch0))
	} else {
		g.loadImm(regScratch0, int64(-delta))
		g.emit32(encSUBReg(regDataPtr, regDataPtr, regScratch0))
	}
	// No bounds check: the JIT trusts the source program, matching
	// UpdateValue's unchecked byte wrap.
	return nil
}

func (g *ARM64CodeGenerator) UpdateValue(delta int) error {
	g.computeAddr()
	g.emit32(encLDRB(regScratch1, regScratch0))
	mod := ((delta % 256) + 256) % 256
	g.emit32(0x11000000 | (uint32(mod)&0xFFF)<<10 | regScratch1<<5 | regScratch1) // ADD Wd, Wn, #imm
	g.emit32(encSTRB(regScratch1, regScratch0))
	return nil
}

func (g *ARM64CodeGenerator) Set(value byte) error {
	g.computeAddr()
	g.emit32(encMOVZW(regScratch1, uint32(value)))
	g.emit32(encSTRB(regScratch1, regScratch0))
	return nil
}

func (g *ARM64CodeGenerator) AddTo(offset int) error {
	g.computeAddr() // current cell address -> scratch0
	g.emit32(encLDRB(regScratch1, regScratch0))

	g.emit32(encMOVReg(regScratch2, regDataPtr))
	if offset >= 0 && offset <= 0xFFF {
		g.emit32(encADDImm(regScratch2, regScratch2, uint32(offset)))
	} else if offset < 0 && -offset <= 0xFFF {
		g.emit32(encSUBImm(regScratch2, regScratch2, uint32(-offset)))
	} else if offset >= 0 {
		g.loadImm(regScratch3, int64(offset))
		g.emit32(encADDReg(regScratch2, regScratch2, regScratch3))
	} else {
		g.loadImm(regScratch3, int64(-offset))
		g.emit32(encSUBReg(regScratch2, regScratch2, regScratch3))
	}

	g.emit32(encADDReg(regScratch2, regTapeBase, regScratch2))
	g.emit32(encLDRB(regScratch3, regScratch2))
	g.emit32(encADDRegW(regScratch3, regScratch3, regScratch1))
	g.emit32(encSTRB(regScratch3, regScratch2))

	g.emit32(encMOVZW(regScratch1, 0))
	g.emit32(encSTRB(regScratch1, regScratch0))
	return nil
}

func (g *ARM64CodeGenerator) LoopStart() (int, error) {
	label := g.nextLabel
	g.nextLabel++

	// labels[label] is the re-test point: LoopEnd branches back here, not
	// to the body start, so the condition is re-evaluated every iteration.
	g.labels[label] = len(g.code)

	g.computeAddr()
	g.emit32(encLDRB(regScratch1, regScratch0))

	cbzPos := g.emit32(0) // placeholder, patched in LoopEnd
	g.pendingCBZ[label] = cbzPos
	return label, nil
}

func (g *ARM64CodeGenerator) LoopEnd(label int) error {
	backTarget, ok := g.labels[label]
	if !ok {
		return fmt.Errorf("codegen: unknown loop label %d", label)
	}
	bPos := len(g.code)
	g.emit32(encB(int32((backTarget - bPos) / 4)))

	cbzPos, ok := g.pendingCBZ[label]
	if !ok {
		return fmt.Errorf("codegen: no pending branch for loop label %d", label)
	}
	g.patch32(cbzPos, encCBZW(regScratch1, int32((len(g.code)-cbzPos)/4)))
	delete(g.pendingCBZ, label)
	return nil
}

func (g *ARM64CodeGenerator) Finalize() (JITFunction, error) {
	buf, err := newExecutableBuffer(g.code)
	if err != nil {
		return nil, err
	}
	g.buffer = buf
	entry := buf.entryPointer()

	fn := func(tape []byte) {
		var tapePtr uintptr
		if len(tape) > 0 {
			tapePtr = uintptr(unsafe.Pointer(&tape[0]))
		}
		purego.SyscallN(entry, tapePtr, uintptr(len(tape)), g.outputThunk, g.inputThunk)
	}
	return fn, nil
}

// Code returns the raw instruction bytes assembled so far.
func (g *ARM64CodeGenerator) Code() []byte { return g.code }

// Close releases the JIT'd code page. Callers should call this once the
// JITFunction returned by Finalize will no longer be invoked.
func (g *ARM64CodeGenerator) Close() error {
	if g.buffer == nil {
		return nil
	}
	return g.buffer.Close()
}

// ExecutableBuffer is a page of memory holding finished machine code,
// mapped read+execute after the code is copied in.
type ExecutableBuffer struct {
	mem []byte
}

func newExecutableBuffer(code []byte) (*ExecutableBuffer, error) {
	if len(code) == 0 {
		return nil, fmt.Errorf("codegen: empty code buffer")
	}
	mem, err := unix.Mmap(-1, 0, len(code), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("codegen: mmap: %w", err)
	}
	copy(mem, code)
	if err := unix.Mprotect(mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		unix.Munmap(mem)
		return nil, fmt.Errorf("codegen: mprotect: %w", err)
	}
	return &ExecutableBuffer{mem: mem}, nil
}

func (b *ExecutableBuffer) entryPointer() uintptr {
	return uintptr(unsafe.Pointer(&b.mem[0]))
}

// Close unmaps the code page.
func (b *ExecutableBuffer) Close() error {
	return unix.Munmap(b.mem)
}
