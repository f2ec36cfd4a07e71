package cpu

import "github.com/batpu2/recomp/pkg/inst"

// Exec executes a single flag-affecting ALU instruction on the given
// state and returns the result value. Reproduces the formulas of
// distilled spec §4.E exactly, including the resolved SUB carry
// convention (result <= left operand, not result < left operand).
//
// Exec only models the six flag-affecting opcodes (ADD, SUB, NOR, AND,
// XOR, RSH) plus ADI; register-0 suppression and non-ALU opcodes are
// out of scope for this reference model — pkg/recomp's lowering
// handles those directly against the IR.
func Exec(s *State, op inst.OpCode, a, b uint8) uint8 {
	var res uint8
	switch op {
	case inst.ADD:
		res = a + b
		s.FlagC = res < a
	case inst.SUB:
		res = a - b
		s.FlagC = res <= a
	case inst.NOR:
		res = ^(a | b)
	case inst.AND:
		res = a & b
	case inst.XOR:
		res = a ^ b
	case inst.RSH:
		res = a >> 1
	case inst.ADI:
		res = a + b // b carries the immediate for this model
		s.FlagC = res < a
	default:
		panic("cpu.Exec: not a flag-affecting opcode: " + op.String())
	}
	s.FlagZ = res == 0
	return res
}
