package recomp

import (
	"github.com/batpu2/recomp/pkg/cfg"
	"github.com/batpu2/recomp/pkg/inst"
)

// Options configures a single translation run.
type Options struct {
	// Name becomes the emitted module's source_filename, typically the
	// input .mc path.
	Name string

	// Headless selects the headless runtime surface (§6): init_headless
	// / deinit_headless in place of init/deinit, get_pixel/get_controller
	// replaced by the constant 0, and all graphics draw/update/clear
	// calls omitted.
	Headless bool
}

// Recomp translates a decoded program into a single LLVM IR module
// implementing components A through F: CFG recovery, module/machine
// state allocation, per-opcode lowering, and terminator closure. It
// returns the module rendered as IR text.
func Recomp(code []inst.Instruction, opts Options) (string, error) {
	if len(code) == 0 {
		return "", ErrEmptyProgram
	}

	blocks := cfg.Analyze(code)
	if err := validateTargets(code, blocks); err != nil {
		return "", err
	}

	m := newModule(opts.Name, blocks, opts.Headless)
	if err := lower(m, code); err != nil {
		return "", err
	}
	terminate(m)

	return m.mod.String(), nil
}

// validateTargets confirms every JMP/BRH/CAL target and RET's known
// return targets name an address the CFG analysis actually turned into
// a block-map key — guards lower's unchecked m.blockAt[addr] lookups
// against a malformed block map. A JMP/BRH/CAL target past the last
// decoded instruction is rejected as well.
func validateTargets(code []inst.Instruction, blocks cfg.BlockSet) error {
	for _, in := range code {
		switch in.Op {
		case inst.JMP, inst.BRH, inst.CAL:
			addr := int(in.Addr)
			if !blocks.Contains(addr) || addr >= len(code) {
				return errBadTarget(in.PC, addr)
			}
		}
	}
	for t := range blocks.ReturnTargets {
		if !blocks.Contains(t) {
			return errBadTarget(-1, t)
		}
	}
	return nil
}
