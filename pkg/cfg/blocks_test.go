package cfg

import (
	"testing"

	"github.com/batpu2/recomp/pkg/inst"
)

func prog(words ...uint16) []inst.Instruction {
	out := make([]inst.Instruction, len(words))
	for i, w := range words {
		out[i] = inst.Decode(i, w)
	}
	return out
}

// TestBlockZeroAlwaysPresent verifies the distilled spec's invariant
// that block_map[0] always exists, even for a trivial one-instruction
// program.
func TestBlockZeroAlwaysPresent(t *testing.T) {
	set := Analyze(prog(0x1000)) // single HLT
	if len(set.Starts) == 0 || set.Starts[0] != 0 {
		t.Fatalf("expected block map to start at 0, got %v", set.Starts)
	}
}

// TestBlockCoverage verifies property 3: every JMP/BRH/CAL target and
// every RET/LOD/STR/CAL successor is a key of the final block map.
func TestBlockCoverage(t *testing.T) {
	// 0: CAL 3
	// 1: HLT
	// 2: HLT
	// 3: LDI r1, 9
	// 4: RET
	code := prog(
		0xC003, // CAL 3
		0x1000, // HLT
		0x1000, // HLT
		0x8109, // LDI r1, 9
		0xD000, // RET
	)
	set := Analyze(code)

	for _, want := range []int{0, 1, 3, 5} {
		if !set.Contains(want) {
			t.Errorf("block map missing expected key %d; got %v", want, set.Starts)
		}
	}
	if !set.ReturnTargets[1] {
		t.Errorf("expected pc=1 (CAL successor) to be a known return target")
	}
}

// TestNextAfter verifies the binary-search helper used to find the
// fall-through successor of the last instruction in a block.
func TestNextAfter(t *testing.T) {
	code := prog(
		0xA003, // 0: JMP 3
		0x1000, // 1: HLT (dead, but still decoded)
		0x1000, // 2: HLT
		0x1000, // 3: HLT
	)
	set := Analyze(code)
	// Starts should be {0, 1, 3}: 0 unconditional, 1 is JMP's pc+1
	// fall-through target, 3 is JMP's branch target.
	want := []int{0, 1, 3}
	if len(set.Starts) != len(want) {
		t.Fatalf("Starts = %v, want %v", set.Starts, want)
	}
	for i, w := range want {
		if set.Starts[i] != w {
			t.Fatalf("Starts = %v, want %v", set.Starts, want)
		}
	}

	if got := set.NextAfter(0); got != 1 {
		t.Errorf("NextAfter(0) = %d, want 1", got)
	}
	if got := set.NextAfter(1); got != 3 {
		t.Errorf("NextAfter(1) = %d, want 3", got)
	}
	if got := set.NextAfter(3); got != -1 {
		t.Errorf("NextAfter(3) = %d, want -1 (last block)", got)
	}
}

// TestIndex verifies that straight-line runs between boundaries all
// resolve to the same block.
func TestIndex(t *testing.T) {
	code := prog(
		0xA003, // 0: JMP 3
		0x1000, // 1: HLT
		0x1000, // 2: HLT
		0x1000, // 3: HLT
	)
	set := Analyze(code)
	if set.Index(1) != set.Index(2) {
		t.Errorf("pc=1 and pc=2 should share a block (both between Starts[1]=1 and Starts[2]=3)")
	}
	if set.Index(0) == set.Index(1) {
		t.Errorf("pc=0 and pc=1 should be in different blocks")
	}
}

// TestBrhContributesBothTargets verifies BRH contributes its branch
// address and its fall-through successor, per the §4.B table.
func TestBrhContributesBothTargets(t *testing.T) {
	code := prog(
		0x8000, // 0: LDI r0,0 (no-op target, just filler)
		0xB004, // 1: BRH Z, 4
		0x8000, // 2: filler
		0x1000, // 3: HLT
		0x1000, // 4: HLT
	)
	set := Analyze(code)
	if !set.Contains(4) {
		t.Errorf("expected BRH target 4 to be a block start")
	}
	if !set.Contains(2) {
		t.Errorf("expected BRH fall-through (pc+1=2) to be a block start")
	}
}
