// Package report summarizes a single translation run: how many
// instructions were seen, how the opcode mix broke down, how many
// basic blocks the CFG analysis produced, and which program counters
// could fail at runtime by reaching the error block through a
// constant-address STR to an unmapped port. RET sites, which reach the
// error block on a corrupted return address, are not listed.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/batpu2/recomp/pkg/cfg"
	"github.com/batpu2/recomp/pkg/inst"
)

// ErrorSite names a program counter whose lowering can reach the
// module's error block, and why.
type ErrorSite struct {
	PC     int
	Reason string
}

// Report is a plain value built once per translation; unlike the
// teacher's concurrent result.Table, nothing here is written from more
// than one goroutine, so there is no mutex to carry.
type Report struct {
	Instructions int
	Blocks       int
	OpcodeCounts [inst.OpCodeCount]int
	ErrorSites   []ErrorSite
}

// Build walks code once and tallies the opcode histogram, the final
// block count from blocks, and every static error-block reachability
// site: an STR to an address in 240-255 that is not one of the
// thirteen mapped ports.
func Build(code []inst.Instruction, blocks cfg.BlockSet) Report {
	var r Report
	r.Instructions = len(code)
	r.Blocks = len(blocks.Starts)

	mappedStrPorts := map[int]bool{
		240: true, 241: true, 242: true, 243: true,
		245: true, 246: true, 247: true, 248: true, 249: true,
		250: true, 251: true, 252: true, 253: true,
	}

	for _, in := range code {
		r.OpcodeCounts[in.Op]++
		if in.Op == inst.STR {
			// A constant-address STR into the unmapped range is a
			// statically detectable fault; one whose address depends
			// on a register value can only be caught at runtime and is
			// not reported here.
			if in.RegA == 0 {
				addr := int(inst.WrappingOffsetAddr(0, in.Offset))
				if addr >= 240 && !mappedStrPorts[addr] {
					r.ErrorSites = append(r.ErrorSites, ErrorSite{
						PC:     in.PC,
						Reason: fmt.Sprintf("STR to unmapped port %d", addr),
					})
				}
			}
		}
	}

	return r
}

// String renders a human-readable summary, in the same
// one-metric-per-line style the teacher's CLI prints enumerate/stoke
// results in.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Instructions: %d\n", r.Instructions)
	fmt.Fprintf(&b, "Basic blocks: %d\n", r.Blocks)
	fmt.Fprintln(&b, "Opcode histogram:")

	type count struct {
		op inst.OpCode
		n  int
	}
	var counts []count
	for op := inst.OpCode(0); op < inst.OpCodeCount; op++ {
		if r.OpcodeCounts[op] > 0 {
			counts = append(counts, count{op, r.OpcodeCounts[op]})
		}
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].n > counts[j].n })
	for _, c := range counts {
		fmt.Fprintf(&b, "  %-4s %d\n", c.op, c.n)
	}

	if len(r.ErrorSites) > 0 {
		fmt.Fprintln(&b, "Statically detectable runtime errors:")
		for _, s := range r.ErrorSites {
			fmt.Fprintf(&b, "  pc=%d: %s\n", s.PC, s.Reason)
		}
	}
	return b.String()
}
