package recomp

import (
	"sort"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/batpu2/recomp/pkg/inst"
)

// lower walks the decoded program once and, for every instruction,
// positions at the block its program counter belongs to (component E's
// "greatest block-map key not exceeding pc" rule, implemented by
// machine.blockFor) and emits the IR realizing that instruction's
// semantics.
//
// A block that already carries a terminator when its turn comes is
// left untouched: this happens for instructions that follow a
// terminating opcode (HLT, JMP, BRH, CAL, RET) without themselves
// starting a new block-map entry — dead filler code the CFG analyzer
// correctly never gave a reachable label (HLT does not contribute its
// successor to any target set, unlike JMP/BRH/CAL/RET/LOD/STR). Lowering
// such an instruction would otherwise try to append a second
// terminator to an already-closed block, which is not legal IR.
func lower(m *machine, code []inst.Instruction) error {
	for _, in := range code {
		blk := m.blockFor(in.PC)
		if blk.Term != nil {
			continue
		}

		switch in.Op {
		case inst.NOP:
			// no IR emitted

		case inst.HLT:
			blk.NewBr(m.exit)

		case inst.ADD, inst.SUB, inst.NOR, inst.AND, inst.XOR, inst.RSH:
			lowerALU3(m, blk, in)

		case inst.LDI:
			if in.RegA != 0 {
				blk.NewStore(constant.NewInt(types.I8, int64(in.Imm)), m.regs[in.RegA])
			}

		case inst.ADI:
			lowerADI(m, blk, in)

		case inst.JMP:
			blk.NewBr(m.blockAt[int(in.Addr)])

		case inst.BRH:
			lowerBRH(m, blk, in)

		case inst.CAL:
			lowerCAL(m, blk, in)

		case inst.RET:
			lowerRET(m, blk, in)

		case inst.LOD:
			lowerLOD(m, blk, in)

		case inst.STR:
			lowerSTR(m, blk, in)

		default:
			return errUnknownOpcode(in)
		}
	}
	return nil
}

// branchFallthrough closes a non-terminating instruction's block with
// an unconditional branch to the next block-map entry after pc (or
// exit, if no block-map key follows pc), per the distilled spec's
// "each case path ends with a branch to the fall-through successor"
// rule.
func branchFallthrough(m *machine, blk *ir.Block, pc int) {
	blk.NewBr(m.fallthroughBlock(pc))
}

// storeReg stores val into register idx, suppressing the store
// entirely when idx is 0 — register 0 is read-zero, write-ignored.
func storeReg(blk *ir.Block, m *machine, idx uint8, val value.Value) {
	if idx == 0 {
		return
	}
	blk.NewStore(val, m.regs[idx])
}

// lowerALU3 emits the three-register ALU opcodes (ADD, SUB, NOR, AND,
// XOR, RSH), including their flag side effects.
func lowerALU3(m *machine, blk *ir.Block, in inst.Instruction) {
	a := reg(blk, m, in.RegA)

	var res value.Value
	switch in.Op {
	case inst.ADD:
		b := reg(blk, m, in.RegB)
		sum := blk.NewAdd(a, b)
		res = sum
		storeReg(blk, m, in.RegC, sum)
		blk.NewStore(blk.NewICmp(enum.IPredEQ, sum, constant.NewInt(types.I8, 0)), m.flagZ)
		blk.NewStore(blk.NewICmp(enum.IPredULT, sum, a), m.flagC)
		return

	case inst.SUB:
		b := reg(blk, m, in.RegB)
		diff := blk.NewSub(a, b)
		res = diff
		storeReg(blk, m, in.RegC, diff)
		blk.NewStore(blk.NewICmp(enum.IPredEQ, diff, constant.NewInt(types.I8, 0)), m.flagZ)
		// Resolved Open Question: "<=", not "<" (distilled spec §4.E, §9).
		blk.NewStore(blk.NewICmp(enum.IPredULE, diff, a), m.flagC)
		return

	case inst.NOR:
		b := reg(blk, m, in.RegB)
		or := blk.NewOr(a, b)
		res = blk.NewXor(or, constant.NewInt(types.I8, -1))

	case inst.AND:
		b := reg(blk, m, in.RegB)
		res = blk.NewAnd(a, b)

	case inst.XOR:
		b := reg(blk, m, in.RegB)
		res = blk.NewXor(a, b)

	case inst.RSH:
		res = blk.NewLShr(a, constant.NewInt(types.I8, 1))
	}

	storeReg(blk, m, in.RegC, res)
	blk.NewStore(blk.NewICmp(enum.IPredEQ, res, constant.NewInt(types.I8, 0)), m.flagZ)
}

// lowerADI emits ADI: regA += imm, flags updated, write suppressed for
// register 0 (but flags are still written, per the distilled spec).
func lowerADI(m *machine, blk *ir.Block, in inst.Instruction) {
	a := reg(blk, m, in.RegA)
	sum := blk.NewAdd(a, constant.NewInt(types.I8, int64(in.Imm)))
	storeReg(blk, m, in.RegA, sum)
	blk.NewStore(blk.NewICmp(enum.IPredEQ, sum, constant.NewInt(types.I8, 0)), m.flagZ)
	blk.NewStore(blk.NewICmp(enum.IPredULT, sum, a), m.flagC)
}

// lowerBRH emits a conditional branch over the flag named by in.Cond.
func lowerBRH(m *machine, blk *ir.Block, in inst.Instruction) {
	var flag *ir.InstLoad
	var want bool
	switch in.Cond {
	case inst.CondZSet:
		flag, want = blk.NewLoad(types.I1, m.flagZ), true
	case inst.CondZClear:
		flag, want = blk.NewLoad(types.I1, m.flagZ), false
	case inst.CondCSet:
		flag, want = blk.NewLoad(types.I1, m.flagC), true
	case inst.CondCClear:
		flag, want = blk.NewLoad(types.I1, m.flagC), false
	}
	cond := blk.NewICmp(enum.IPredEQ, flag, constant.NewBool(want))
	blk.NewCondBr(cond, m.blockAt[int(in.Addr)], m.fallthroughBlock(in.PC))
}

// lowerCAL pushes pc+1 onto the emulated call stack and branches to
// the callee.
func lowerCAL(m *machine, blk *ir.Block, in inst.Instruction) {
	sp := blk.NewLoad(types.I8, m.sp)
	slot := blk.NewGetElementPtr(types.I16, m.stack, sp)
	blk.NewStore(constant.NewInt(types.I16, int64(in.PC+1)), slot)
	blk.NewStore(blk.NewAdd(sp, constant.NewInt(types.I8, 1)), m.sp)
	blk.NewBr(m.blockAt[int(in.Addr)])
}

// lowerRET pops the call stack and switches to the block named by the
// popped address. Only known return targets get a case; anything else
// (a corrupted or forged return address) routes to the error block —
// the distilled spec's resolved Open Question (§9): the switch carries
// cases for known return targets only, not one per program address.
func lowerRET(m *machine, blk *ir.Block, in inst.Instruction) {
	sp := blk.NewLoad(types.I8, m.sp)
	newSP := blk.NewSub(sp, constant.NewInt(types.I8, 1))
	blk.NewStore(newSP, m.sp)
	slot := blk.NewGetElementPtr(types.I16, m.stack, newSP)
	retAddr := blk.NewLoad(types.I16, slot)

	targets := make([]int, 0, len(m.blocks.ReturnTargets))
	for t := range m.blocks.ReturnTargets {
		targets = append(targets, t)
	}
	sort.Ints(targets)

	cases := make([]*ir.Case, 0, len(targets))
	for _, t := range targets {
		cases = append(cases, ir.NewCase(constant.NewInt(types.I16, int64(t)), m.blockAt[t]))
	}
	blk.NewSwitch(retAddr, m.errBlk, cases...)
}

// lowerLOD emits LOD's two-level dispatch: a branch on whether the
// calculated address is real RAM (<240) or a memory-mapped port, then
// (for the mapped range) a switch over the three readable ports.
func lowerLOD(m *machine, blk *ir.Block, in inst.Instruction) {
	calcAddr := calcAddress(blk, m, in)
	fallthru := m.fallthroughBlock(in.PC)

	isRAM := blk.NewICmp(enum.IPredULT, calcAddr, constant.NewInt(types.I8, 240))
	ramBlk := m.fn.NewBlock("")
	mmioBlk := m.fn.NewBlock("")
	blk.NewCondBr(isRAM, ramBlk, mmioBlk)

	elemPtr := ramBlk.NewGetElementPtr(types.I8, m.ram, calcAddr)
	storeReg(ramBlk, m, in.RegB, ramBlk.NewLoad(types.I8, elemPtr))
	ramBlk.NewBr(fallthru)

	case244 := m.fn.NewBlock("")
	case254 := m.fn.NewBlock("")
	case255 := m.fn.NewBlock("")
	mmioBlk.NewSwitch(calcAddr, fallthru,
		ir.NewCase(constant.NewInt(types.I8, 244), case244),
		ir.NewCase(constant.NewInt(types.I8, 254), case254),
		ir.NewCase(constant.NewInt(types.I8, 255), case255),
	)

	if m.headless {
		storeReg(case244, m, in.RegB, constant.NewInt(types.I8, 0))
	} else {
		px := case244.NewLoad(types.I8, m.pixelX)
		py := case244.NewLoad(types.I8, m.pixelY)
		val := case244.NewCall(m.externs.getPixel, px, py)
		storeReg(case244, m, in.RegB, val)
	}
	case244.NewBr(fallthru)

	randVal := case254.NewCall(m.externs.getRandomNum)
	storeReg(case254, m, in.RegB, randVal)
	case254.NewBr(fallthru)

	if m.headless {
		storeReg(case255, m, in.RegB, constant.NewInt(types.I8, 0))
	} else {
		ctl := case255.NewCall(m.externs.getController)
		storeReg(case255, m, in.RegB, ctl)
	}
	case255.NewBr(fallthru)
}

// lowerSTR emits STR's two-level dispatch: real RAM for <240, or a
// switch over the 13 writable ports with a default of "error" for any
// unmapped high address.
func lowerSTR(m *machine, blk *ir.Block, in inst.Instruction) {
	calcAddr := calcAddress(blk, m, in)
	fallthru := m.fallthroughBlock(in.PC)
	regBVal := reg(blk, m, in.RegB)

	isRAM := blk.NewICmp(enum.IPredULT, calcAddr, constant.NewInt(types.I8, 240))
	ramBlk := m.fn.NewBlock("")
	mmioBlk := m.fn.NewBlock("")
	blk.NewCondBr(isRAM, ramBlk, mmioBlk)

	elemPtr := ramBlk.NewGetElementPtr(types.I8, m.ram, calcAddr)
	ramBlk.NewStore(reg(ramBlk, m, in.RegB), elemPtr)
	ramBlk.NewBr(fallthru)

	ports := []uint8{240, 241, 242, 243, 245, 246, 247, 248, 249, 250, 251, 252, 253}
	caseBlocks := make(map[uint8]*ir.Block, len(ports))
	cases := make([]*ir.Case, 0, len(ports))
	for _, p := range ports {
		cb := m.fn.NewBlock("")
		caseBlocks[p] = cb
		cases = append(cases, ir.NewCase(constant.NewInt(types.I8, int64(p)), cb))
	}
	mmioBlk.NewSwitch(calcAddr, m.errBlk, cases...)

	b240 := caseBlocks[240]
	b240.NewStore(regBVal, m.pixelX)
	b240.NewBr(fallthru)

	b241 := caseBlocks[241]
	b241.NewStore(regBVal, m.pixelY)
	b241.NewBr(fallthru)

	b242 := caseBlocks[242]
	if !m.headless {
		px := b242.NewLoad(types.I8, m.pixelX)
		py := b242.NewLoad(types.I8, m.pixelY)
		b242.NewCall(m.externs.drawPixel, px, py)
	}
	b242.NewBr(fallthru)

	b243 := caseBlocks[243]
	if !m.headless {
		px := b243.NewLoad(types.I8, m.pixelX)
		py := b243.NewLoad(types.I8, m.pixelY)
		b243.NewCall(m.externs.clearPixel, px, py)
	}
	b243.NewBr(fallthru)

	b245 := caseBlocks[245]
	if !m.headless {
		b245.NewCall(m.externs.updateScreen)
	}
	b245.NewBr(fallthru)

	b246 := caseBlocks[246]
	if !m.headless {
		b246.NewCall(m.externs.clearScreen)
	}
	b246.NewBr(fallthru)

	b247 := caseBlocks[247]
	b247.NewCall(m.externs.pushChar, regBVal)
	b247.NewBr(fallthru)

	b248 := caseBlocks[248]
	b248.NewCall(m.externs.flushCharBuf)
	b248.NewBr(fallthru)

	b249 := caseBlocks[249]
	b249.NewCall(m.externs.clearCharBuf)
	b249.NewBr(fallthru)

	b250 := caseBlocks[250]
	b250.NewCall(m.externs.setNum, regBVal)
	b250.NewBr(fallthru)

	b251 := caseBlocks[251]
	b251.NewCall(m.externs.setNum, constant.NewInt(types.I8, 0))
	b251.NewBr(fallthru)

	b252 := caseBlocks[252]
	b252.NewCall(m.externs.setSignedness, constant.NewBool(false))
	b252.NewBr(fallthru)

	b253 := caseBlocks[253]
	b253.NewCall(m.externs.setSignedness, constant.NewBool(true))
	b253.NewBr(fallthru)
}

// calcAddress computes regs[RegA] + sign-extended offset as an 8-bit
// wraparound addition (i8 add wraps natively, matching the spec's
// two's-complement rule for negative offsets).
func calcAddress(blk *ir.Block, m *machine, in inst.Instruction) value.Value {
	a := reg(blk, m, in.RegA)
	return blk.NewAdd(a, constant.NewInt(types.I8, int64(in.Offset)))
}
