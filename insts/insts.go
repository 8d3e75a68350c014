// Package insts provides MIPS instruction definitions and decoding.
//
// This package implements decoding of 32-bit big-endian MIPS machine words
// into structured instruction representations. It supports:
//   - R-type arithmetic/logic: ADD, ADDU, SUB, SUBU, AND, OR, XOR, NOR, SLT, SLTU
//   - Shifts: SLL, SRL, SRA
//   - I-type arithmetic/logic: ADDI, ADDIU, SLTI, SLTIU, ANDI, ORI, XORI, LUI
//   - Memory: LW, SW
//   - Control flow: BEQ, BNE, J, JAL, JR
//
// An all-zero word is not an instruction: it marks the end of the program image.
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst, err := decoder.Decode(0x24020005) // ADDIU $v0, $zero, 5
//	fmt.Printf("Op: %v, Rt: %d, Imm: %d\n", inst.Op, inst.Rt, inst.Imm)
package insts
