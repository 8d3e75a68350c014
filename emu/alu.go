package emu

import "github.com/sarchlab/mipsim/insts"

// ALU implements MIPS arithmetic, logic and branch-condition evaluation.
// Arithmetic wraps on overflow; ADD, ADDI and SUB never trap.
type ALU struct{}

// NewALU creates a new ALU.
func NewALU() *ALU {
	return &ALU{}
}

// Operate applies op to operands a and b. Shifts operate on b by shamt. cond
// is the branch condition: equality for BEQ, inequality for BNE.
func (u *ALU) Operate(op insts.Op, a, b uint32, shamt uint8) (uint32, bool) {
	switch op {
	case insts.OpADD, insts.OpADDU, insts.OpADDI, insts.OpADDIU,
		insts.OpLW, insts.OpSW:
		return a + b, false
	case insts.OpSUB, insts.OpSUBU:
		return a - b, false
	case insts.OpAND, insts.OpANDI:
		return a & b, false
	case insts.OpOR, insts.OpORI:
		return a | b, false
	case insts.OpXOR, insts.OpXORI:
		return a ^ b, false
	case insts.OpNOR:
		return ^(a | b), false
	case insts.OpSLT, insts.OpSLTI:
		return boolToWord(int32(a) < int32(b)), false
	case insts.OpSLTU, insts.OpSLTIU:
		return boolToWord(a < b), false
	case insts.OpSLL:
		return b << (shamt & 0x1F), false
	case insts.OpSRL:
		return b >> (shamt & 0x1F), false
	case insts.OpSRA:
		return uint32(int32(b) >> (shamt & 0x1F)), false
	case insts.OpLUI:
		return b << 16, false
	case insts.OpBEQ:
		return a - b, a == b
	case insts.OpBNE:
		return a - b, a != b
	}
	return 0, false
}

// SecondOperand selects the ALU's second input: the zero-extended immediate
// for logical immediates, the sign-extended immediate for other I-type ALU
// operations, and rt otherwise.
func SecondOperand(inst *insts.Instruction, rt uint32) uint32 {
	if !insts.ControlSignals(inst.Op).ALUSrc {
		return rt
	}
	switch inst.Op {
	case insts.OpANDI, insts.OpORI, insts.OpXORI, insts.OpLUI:
		return inst.ZeroImm
	}
	return uint32(inst.Imm)
}

func boolToWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
