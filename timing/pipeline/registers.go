// Package pipeline provides the 5-stage pipeline implementation for timing simulation.
package pipeline

import "github.com/sarchlab/mipsim/insts"

// IFIDRegister holds state between Fetch and Decode stages.
//
// An invalid latch is a bubble with no side effects. Terminate may still be
// set on a bubble, carrying the end of the program towards write-back.
type IFIDRegister struct {
	// Valid indicates if this pipeline register contains valid data.
	Valid bool

	// PC is the program counter of the fetched instruction.
	PC uint32

	// InstructionWord is the raw 32-bit instruction word.
	InstructionWord uint32

	// Fault is a fetch error. It is raised only if the instruction is not
	// squashed before decode completes.
	Fault error

	// Terminate marks the end of the program.
	Terminate bool
}

// Clear resets the IF/ID register to empty state.
func (r *IFIDRegister) Clear() {
	*r = IFIDRegister{}
}

// IDEXRegister holds state between Decode and Execute stages.
type IDEXRegister struct {
	// Valid indicates if this pipeline register contains valid data.
	Valid bool

	// PC is the program counter of the instruction.
	PC uint32

	// Inst is the decoded instruction.
	Inst *insts.Instruction

	// Control holds the instruction's control signals.
	Control insts.ControlSignal

	// Register values read from the register file.
	RsValue uint32
	RtValue uint32

	// Register numbers for hazard detection. Unused sources are 0.
	Rs       uint8
	Rt       uint8
	WriteReg uint8

	// PredictedTaken records the decode-time prediction for a branch.
	PredictedTaken bool

	// Terminate marks the end of the program.
	Terminate bool
}

// Clear resets the ID/EX register to empty state.
func (r *IDEXRegister) Clear() {
	*r = IDEXRegister{}
}

// EXMARegister holds state between Execute and Memory Access stages.
type EXMARegister struct {
	// Valid indicates if this pipeline register contains valid data.
	Valid bool

	// PC is the program counter of the instruction.
	PC uint32

	// Inst is the decoded instruction.
	Inst *insts.Instruction

	// Control holds the instruction's control signals.
	Control insts.ControlSignal

	// ALU result (address for load/store, result for ALU ops, link address
	// for JAL).
	ALUResult uint32

	// Value to store for store instructions.
	StoreValue uint32

	// Destination register number.
	WriteReg uint8

	// Branch outcome resolved in execute, and the decode-time guess.
	BranchTaken    bool
	BranchTarget   uint32
	PredictedTaken bool

	// Terminate marks the end of the program.
	Terminate bool
}

// Clear resets the EX/MA register to empty state.
func (r *EXMARegister) Clear() {
	*r = EXMARegister{}
}

// MAWBRegister holds state between Memory Access and Writeback stages.
type MAWBRegister struct {
	// Valid indicates if this pipeline register contains valid data.
	Valid bool

	// PC is the program counter of the instruction.
	PC uint32

	// Inst is the decoded instruction.
	Inst *insts.Instruction

	// Control holds the instruction's control signals.
	Control insts.ControlSignal

	// ALU result from execute stage.
	ALUResult uint32

	// Data loaded from memory.
	MemData uint32

	// Destination register number.
	WriteReg uint8

	// Terminate marks the end of the program.
	Terminate bool
}

// Clear resets the MA/WB register to empty state.
func (r *MAWBRegister) Clear() {
	*r = MAWBRegister{}
}

// Result returns the value written back: loaded data for loads, the ALU
// result otherwise.
func (r *MAWBRegister) Result() uint32 {
	if r.Control.MemToReg {
		return r.MemData
	}
	return r.ALUResult
}

// writes reports whether the latch will write a non-zero register.
func (r *IDEXRegister) writes() bool {
	return r.Valid && r.Control.RegWrite && r.WriteReg != 0
}

func (r *EXMARegister) writes() bool {
	return r.Valid && r.Control.RegWrite && r.WriteReg != 0
}

func (r *MAWBRegister) writes() bool {
	return r.Valid && r.Control.RegWrite && r.WriteReg != 0
}
