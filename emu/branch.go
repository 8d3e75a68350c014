package emu

import "github.com/sarchlab/mipsim/insts"

// BranchUnit resolves control-flow targets.
type BranchUnit struct {
	alu *ALU
}

// NewBranchUnit creates a branch unit evaluating conditions on alu.
func NewBranchUnit(alu *ALU) *BranchUnit {
	return &BranchUnit{alu: alu}
}

// Resolve returns the address following the control-flow instruction inst at
// pc, given its rs and rt operand values, and whether control is transferred.
// Non-control-flow instructions fall through to pc+4.
func (b *BranchUnit) Resolve(inst *insts.Instruction, pc, rs, rt uint32) (uint32, bool) {
	switch inst.Op {
	case insts.OpJ, insts.OpJAL:
		return inst.JumpTarget(pc), true
	case insts.OpJR:
		return rs, true
	case insts.OpBEQ, insts.OpBNE:
		_, taken := b.alu.Operate(inst.Op, rs, rt, 0)
		if taken {
			return inst.BranchTarget(pc), true
		}
	}
	return pc + 4, false
}
