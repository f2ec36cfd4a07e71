// Package recomp implements the translation pass: CFG-driven basic
// block materialization, per-opcode IR lowering, and terminator
// closure, producing a single LLVM IR module whose entry function is
// semantically faithful to the decoded BatPU-2 program.
package recomp

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"

	"github.com/batpu2/recomp/pkg/cfg"
	"github.com/batpu2/recomp/pkg/inst"
)

// machine bundles every piece of live state the lowering pass needs to
// thread through block emission: the module, the entry function, the
// allocated machine-state cells, the runtime externs, the block map,
// and the target sets. Passed explicitly rather than carried as
// builder-object attributes, per the distilled spec's design note
// (§9): "a small function-scoped context passed explicitly."
type machine struct {
	mod     *ir.Module
	fn      *ir.Func
	externs *externs
	blocks  cfg.BlockSet

	blockAt map[int]*ir.Block // pc -> block starting there
	exit    *ir.Block
	errBlk  *ir.Block

	regs      [16]*ir.InstAlloca
	ram       *ir.InstAlloca
	flagZ     *ir.InstAlloca
	flagC     *ir.InstAlloca
	pixelX    *ir.InstAlloca
	pixelY    *ir.InstAlloca
	stack     *ir.InstAlloca
	sp        *ir.InstAlloca

	headless bool
}

// newModule builds the module skeleton (components C and D): the
// runtime extern declarations, the entry function with its
// zero-initialized machine state, one empty block per block-map key,
// and the two terminal blocks (exit, error).
func newModule(name string, blocks cfg.BlockSet, headless bool) *machine {
	mod := ir.NewModule()
	mod.SourceFilename = name

	fn := mod.NewFunc("main", types.I32)
	entry := fn.NewBlock("entry")

	m := &machine{
		mod:      mod,
		fn:       fn,
		externs:  declareExterns(mod, headless),
		blocks:   blocks,
		blockAt:  make(map[int]*ir.Block, len(blocks.Starts)),
		headless: headless,
	}

	// RAM: 256 bytes, addresses 0-239 real memory, 240-255 I/O ports.
	m.ram = entry.NewAlloca(types.I8)
	m.ram.NElems = constant.NewInt(types.I64, 256)

	// Call stack: 16 slots of 16-bit return addresses, plus its index.
	m.stack = entry.NewAlloca(types.I16)
	m.stack.NElems = constant.NewInt(types.I64, 16)
	m.sp = entry.NewAlloca(types.I8)
	entry.NewStore(constant.NewInt(types.I8, 0), m.sp)

	// Sixteen 8-bit registers, all zero-initialized (register 0 stays
	// zero forever because no opcode ever emits a store to it).
	for i := 0; i < 16; i++ {
		a := entry.NewAlloca(types.I8)
		entry.NewStore(constant.NewInt(types.I8, 0), a)
		m.regs[i] = a
	}

	m.flagZ = entry.NewAlloca(types.I1)
	m.flagC = entry.NewAlloca(types.I1)
	entry.NewStore(constant.NewBool(false), m.flagZ)
	entry.NewStore(constant.NewBool(false), m.flagC)

	m.pixelX = entry.NewAlloca(types.I8)
	m.pixelY = entry.NewAlloca(types.I8)
	entry.NewStore(constant.NewInt(types.I8, 0), m.pixelX)
	entry.NewStore(constant.NewInt(types.I8, 0), m.pixelY)

	// One block per block-map key, named block_%04x so the emitted IR
	// reads in program-counter order.
	for _, pc := range blocks.Starts {
		m.blockAt[pc] = fn.NewBlock(fmt.Sprintf("block_%04x", pc))
	}

	m.exit = fn.NewBlock("exit")
	m.exit.NewCall(m.externs.deinit)
	m.exit.NewRet(constant.NewInt(types.I32, 0))

	m.errBlk = fn.NewBlock("error")
	m.errBlk.NewCall(m.externs.raiseError)
	m.errBlk.NewRet(constant.NewInt(types.I32, 1))

	entry.NewCall(m.externs.init)
	entry.NewBr(m.blockAt[0])

	return m
}

// blockFor returns the already-allocated block whose starting address
// is the greatest block-map key not exceeding pc — the block that pc's
// straight-line code accumulates into.
func (m *machine) blockFor(pc int) *ir.Block {
	idx := m.blocks.Index(pc)
	return m.blockAt[m.blocks.Starts[idx]]
}

// fallthroughBlock returns the block that should follow the
// instruction at pc: the next block-map key after pc, or exit if no
// block-map key follows pc.
func (m *machine) fallthroughBlock(pc int) *ir.Block {
	next := m.blocks.NextAfter(pc)
	if next < 0 {
		return m.exit
	}
	return m.blockAt[next]
}

// reg loads register idx's current value. Register 0's cell is never
// stored to, so the load always yields 0 for it.
func reg(blk *ir.Block, m *machine, idx uint8) *ir.InstLoad {
	return blk.NewLoad(types.I8, m.regs[idx])
}
