package recomp

import (
	"strings"
	"testing"

	"github.com/batpu2/recomp/pkg/inst"
)

func word(op inst.OpCode, a, b, c uint8) uint16 {
	return uint16(op)<<12 | uint16(a&0xF)<<8 | uint16(b&0xF)<<4 | uint16(c&0xF)
}

func wordImm(op inst.OpCode, a, imm uint8) uint16 {
	return uint16(op)<<12 | uint16(a&0xF)<<8 | uint16(imm)
}

func wordAddr(op inst.OpCode, cond uint8, addr uint16) uint16 {
	return uint16(op)<<12 | uint16(cond&0x3)<<10 | (addr & 0x03FF)
}

func decodeAll(words ...uint16) []inst.Instruction {
	code := make([]inst.Instruction, len(words))
	for i, w := range words {
		code[i] = inst.Decode(i, w)
	}
	return code
}

// TestAddLowering is S1: ADD r1 r2 r3 alone should produce an add,
// icmp-eq-zero, and an unsigned-less-than carry check, ending in HLT's
// branch to the module's single exit block.
func TestAddLowering(t *testing.T) {
	code := decodeAll(
		word(inst.ADD, 1, 2, 3),
		word(inst.HLT, 0, 0, 0),
	)
	out, err := Recomp(code, Options{Name: "s1"})
	if err != nil {
		t.Fatalf("Recomp: %v", err)
	}
	for _, want := range []string{"add i8", "icmp eq i8", "icmp ult i8", "call void @deinit()"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

// TestSubCarryConvention is S2: verifies the emitted IR uses "icmp ule"
// for SUB's carry flag, not "icmp ult" — the resolved Open Question.
func TestSubCarryConvention(t *testing.T) {
	code := decodeAll(
		word(inst.SUB, 1, 2, 3),
		word(inst.HLT, 0, 0, 0),
	)
	out, err := Recomp(code, Options{Name: "s2"})
	if err != nil {
		t.Fatalf("Recomp: %v", err)
	}
	if !strings.Contains(out, "icmp ule i8") {
		t.Errorf("SUB lowering must use icmp ule for carry, got:\n%s", out)
	}
	if strings.Contains(out, "icmp ult i8") {
		t.Errorf("SUB lowering must not use icmp ult (that's the rejected convention):\n%s", out)
	}
}

// TestCalRetRoundTrip is S3: a CAL into a callee that RETs must produce
// a switch in the RET lowering naming the call site's return address.
func TestCalRetRoundTrip(t *testing.T) {
	code := decodeAll(
		wordAddr(inst.CAL, 0, 2), // pc0: call block at pc2
		word(inst.HLT, 0, 0, 0),  // pc1: return lands here
		word(inst.RET, 0, 0, 0),  // pc2: callee
	)
	out, err := Recomp(code, Options{Name: "s3"})
	if err != nil {
		t.Fatalf("Recomp: %v", err)
	}
	if !strings.Contains(out, "switch i16") {
		t.Errorf("RET must lower to a switch, got:\n%s", out)
	}
	if !strings.Contains(out, "i16 1, label %block_0001") {
		t.Errorf("RET's switch must carry a case for the known return target pc=1, got:\n%s", out)
	}
}

// TestDeadCodeAfterHalt is S4: CAL 3; HLT; HLT; LDI r1,9; RET must
// translate without emitting two terminators into one block — the
// second HLT (pc=2) is unreachable filler sharing block_0001 with the
// first HLT.
func TestDeadCodeAfterHalt(t *testing.T) {
	code := decodeAll(
		wordAddr(inst.CAL, 0, 3),
		word(inst.HLT, 0, 0, 0),
		word(inst.HLT, 0, 0, 0),
		wordImm(inst.LDI, 1, 9),
		word(inst.RET, 0, 0, 0),
	)
	out, err := Recomp(code, Options{Name: "s4"})
	if err != nil {
		t.Fatalf("Recomp: %v", err)
	}
	if strings.Count(out, "block_0001:") != 1 {
		t.Fatalf("expected exactly one block_0001 label, got:\n%s", out)
	}
}

// TestUnmappedStrIsFatal is S5: STR to an I/O port that is not one of
// the thirteen listed ports (240-255, here 244 which is LOD-only) must
// route to the error block by the switch's default edge.
func TestUnmappedStrIsFatal(t *testing.T) {
	code := decodeAll(
		wordImm(inst.LDI, 1, 244), // r1 = 244
		word(inst.STR, 1, 2, 0),   // *[r1+0] = r2, addr 244 is unmapped for STR
		word(inst.HLT, 0, 0, 0),
	)
	out, err := Recomp(code, Options{Name: "s5"})
	if err != nil {
		t.Fatalf("Recomp: %v", err)
	}
	if !strings.Contains(out, "label %error") {
		t.Errorf("STR's mmio switch must default to the error block, got:\n%s", out)
	}
	if strings.Contains(out, "i8 244, label") {
		t.Errorf("244 must not be a case in STR's switch (it is LOD-only), got:\n%s", out)
	}
}

// TestHeadlessReplacesGraphicsExterns is S6: in headless mode, init and
// deinit are renamed, get_pixel/get_controller reads become the
// constant 0, and draw/update/clear calls never appear.
func TestHeadlessReplacesGraphicsExterns(t *testing.T) {
	code := decodeAll(
		wordImm(inst.LDI, 1, 244), // pc0: r1 = 244
		word(inst.LOD, 1, 2, 0),   // pc1: r2 = get_pixel via port 244
		wordImm(inst.LDI, 3, 242), // pc2: r3 = 242
		word(inst.STR, 3, 4, 0),   // pc3: draw_pixel via port 242
		word(inst.HLT, 0, 0, 0),   // pc4
	)

	out, err := Recomp(code, Options{Name: "s6", Headless: true})
	if err != nil {
		t.Fatalf("Recomp: %v", err)
	}
	if !strings.Contains(out, "@init_headless()") || !strings.Contains(out, "@deinit_headless()") {
		t.Errorf("headless mode must call init_headless/deinit_headless, got:\n%s", out)
	}
	if strings.Contains(out, "call void @draw_pixel") {
		t.Errorf("headless mode must omit draw_pixel calls, got:\n%s", out)
	}
	if strings.Contains(out, "call i8 @get_pixel") {
		t.Errorf("headless mode must not call get_pixel, got:\n%s", out)
	}
}

// TestEveryBlockTerminates is a structural property test (property 4 in
// the distilled spec): after a full translation, every block-map block
// and every synthesized dispatch block must end in exactly one
// terminator. The test does not count terminators in the IR text; it
// relies on each llir/llvm block holding a single Term field and only
// checks that Recomp succeeds on a NOP/HLT program.
func TestEveryBlockTerminates(t *testing.T) {
	code := decodeAll(
		word(inst.NOP, 0, 0, 0),
		word(inst.HLT, 0, 0, 0),
	)
	if _, err := Recomp(code, Options{Name: "nop-hlt"}); err != nil {
		t.Fatalf("Recomp: %v", err)
	}
}

// TestRegisterZeroNeverWritten is property 5: no store to %r0 ever
// appears in the emitted IR, regardless of which opcode names it as a
// destination.
func TestRegisterZeroNeverWritten(t *testing.T) {
	code := decodeAll(
		word(inst.ADD, 1, 2, 0), // r0 = r1+r2, suppressed
		wordImm(inst.LDI, 0, 7), // r0 = 7, suppressed
		word(inst.HLT, 0, 0, 0),
	)
	out, err := Recomp(code, Options{Name: "reg0"})
	if err != nil {
		t.Fatalf("Recomp: %v", err)
	}
	// regs[0]'s alloca is only ever stored to once, during zero-init in
	// the entry block. Counting "store" lines that target %3 (regs[0],
	// the first alloca after ram/stack/sp) is brittle to slot numbering,
	// so the check below only asserts that the zero-initializing
	// "store i8 0," lines are present: at least 16 of them (one per
	// register; sp, pixelX and pixelY add three more). It does not
	// identify regs[0]'s cell, so it does not by itself show that the
	// ADD and LDI above emitted no store into it.
	if strings.Count(out, "store i8 0,") < 16 {
		t.Errorf("expected at least 16 zero-initializing i8 stores (one per register), got:\n%s", out)
	}
}

// TestEmptyProgramRejected checks the degenerate-input guard.
func TestEmptyProgramRejected(t *testing.T) {
	if _, err := Recomp(nil, Options{Name: "empty"}); err == nil {
		t.Fatal("expected an error translating an empty program")
	}
}

// TestUnknownCallTargetRejected checks validateTargets catches a CAL
// whose target address lies past the last decoded instruction.
func TestUnknownCallTargetRejected(t *testing.T) {
	code := decodeAll(
		wordAddr(inst.CAL, 0, 2),
		word(inst.HLT, 0, 0, 0),
	)
	// Truncate so address 2 is never decoded (cfg.Analyze still gives it
	// a block-map key).
	code = code[:1]
	if _, err := Recomp(code, Options{Name: "bad-target"}); err == nil {
		t.Fatal("expected an error for a CAL target with no decoded instruction")
	}
}
