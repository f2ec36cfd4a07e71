package recomp

// terminate closes every block-map block lowering left without a
// terminator. lower only emits explicit terminators for opcodes that
// are themselves control flow (JMP, BRH, CAL, RET, HLT) and for LOD/STR,
// whose dispatch ends the block; a block whose last decoded instruction
// was one of those never needs closing here. What remains after the
// lowering pass are blocks whose straight-line run ends in an ALU, LDI,
// ADI or NOP instruction right before the next block-map key, and
// blocks with no instruction of their own — most commonly a block-map
// key sitting one past the last instruction in the program, which the
// CFG analysis still allocates a block for. Per component F, every such
// block branches to the next block-map key in ascending order, or to
// exit if none remains.
func terminate(m *machine) {
	for _, pc := range m.blocks.Starts {
		blk := m.blockAt[pc]
		if blk.Term != nil {
			continue
		}
		blk.NewBr(m.fallthroughBlock(pc))
	}
}
