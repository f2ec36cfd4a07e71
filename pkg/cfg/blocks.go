// Package cfg recovers control-flow structure from a decoded BatPU-2
// program: the set of basic-block start addresses and the set of
// addresses reachable by a hardware return.
package cfg

import "sort"

import "github.com/batpu2/recomp/pkg/inst"

// BlockSet holds the finalized block map (as a sorted slice of its
// keys) plus the two target sets the analyzer collected along the way.
type BlockSet struct {
	// Starts is the block map's keys, sorted ascending. Starts[0] is
	// always 0.
	Starts []int

	// BranchTargets are address 0, addresses reachable via a direct
	// JMP/BRH/CAL, and the fall-through successor of a JMP/BRH/LOD/STR/RET.
	BranchTargets map[int]bool

	// ReturnTargets are addresses reachable via a hardware RET (i.e.
	// the instruction following a CAL).
	ReturnTargets map[int]bool
}

// Analyze walks code once and computes the block map per the distilled
// spec's §4.B table: every JMP/BRH contributes its target and pc+1;
// every CAL contributes pc+1 to ReturnTargets; every RET, LOD, STR
// contributes pc+1 to BranchTargets so fall-through after a
// self-terminating instruction still lands in a labeled block. A block
// is created at address 0 unconditionally.
func Analyze(code []inst.Instruction) BlockSet {
	branch := map[int]bool{0: true}
	ret := map[int]bool{}

	for _, in := range code {
		next := in.PC + 1
		switch in.Op {
		case inst.JMP:
			branch[int(in.Addr)] = true
			branch[next] = true
		case inst.BRH:
			branch[int(in.Addr)] = true
			branch[next] = true
		case inst.CAL:
			branch[int(in.Addr)] = true
			ret[next] = true
		case inst.RET, inst.LOD, inst.STR:
			branch[next] = true
		}
	}

	keys := make(map[int]bool, len(branch)+len(ret))
	for k := range branch {
		keys[k] = true
	}
	for k := range ret {
		keys[k] = true
	}

	starts := make([]int, 0, len(keys))
	for k := range keys {
		starts = append(starts, k)
	}
	sort.Ints(starts)

	return BlockSet{Starts: starts, BranchTargets: branch, ReturnTargets: ret}
}

// Index returns the position in Starts of the block whose starting
// address is the greatest element not exceeding pc — the block that
// pc's straight-line code belongs to. Implemented as a binary search
// over the sorted Starts slice, per the distilled spec's design note
// that no graph walk is needed.
func (b BlockSet) Index(pc int) int {
	i := sort.Search(len(b.Starts), func(i int) bool { return b.Starts[i] > pc })
	return i - 1
}

// NextAfter returns the block-map key strictly greater than pc, or
// -1 if pc's block is the last one (the caller should fall through to
// the module's exit block in that case).
func (b BlockSet) NextAfter(pc int) int {
	i := sort.Search(len(b.Starts), func(i int) bool { return b.Starts[i] > pc })
	if i >= len(b.Starts) {
		return -1
	}
	return b.Starts[i]
}

// Contains reports whether addr is a key of the block map.
func (b BlockSet) Contains(addr int) bool {
	i := sort.SearchInts(b.Starts, addr)
	return i < len(b.Starts) && b.Starts[i] == addr
}
