package recomp

import (
	"github.com/pkg/errors"

	"github.com/batpu2/recomp/pkg/inst"
)

// ErrEmptyProgram is returned when asked to translate zero
// instructions; there is no entry block to branch to.
var ErrEmptyProgram = errors.New("recomp: program has no instructions")

// ErrBlockMapIncomplete is the sentinel cause wrapped into every error
// returned when a branch, call, or return target names an address the
// CFG analysis never turned into a block-map key — an ill-formed
// machine-code file or a pkg/cfg bug. Callers can recover it with
// errors.Is.
var ErrBlockMapIncomplete = errors.New("recomp: block map references an address with no decoded instruction")

func errUnknownOpcode(in inst.Instruction) error {
	return errors.Errorf("pc=%d: unrecognized opcode %v", in.PC, in.Op)
}

func errBadTarget(pc int, addr int) error {
	if pc < 0 {
		return errors.Wrapf(ErrBlockMapIncomplete, "return target %d has no decoded instruction", addr)
	}
	return errors.Wrapf(ErrBlockMapIncomplete, "pc=%d: target address %d has no decoded instruction", pc, addr)
}
