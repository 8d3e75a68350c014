package emu

import (
	"errors"
	"fmt"

	"github.com/sarchlab/mipsim/insts"
)

// ErrInstructionLimit is returned when the emulator executes more
// instructions than its configured limit.
var ErrInstructionLimit = errors.New("instruction limit reached")

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Exited is true once the program reached its end.
	Exited bool

	// Err is set if an error occurred during execution.
	Err error
}

// Emulator executes MIPS instructions functionally, one instruction per
// step. It serves as the architectural reference for the timing pipeline.
type Emulator struct {
	regFile    *RegFile
	memory     *Memory
	decoder    *insts.Decoder
	alu        *ALU
	lsu        *LoadStoreUnit
	branchUnit *BranchUnit

	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
	exited           bool
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// WithRegFile replaces the default register file.
func WithRegFile(regFile *RegFile) EmulatorOption {
	return func(e *Emulator) {
		e.regFile = regFile
	}
}

// NewEmulator creates a new MIPS emulator running out of memory. Registers are
// reset with the stack at the top of memory.
func NewEmulator(memory *Memory, opts ...EmulatorOption) *Emulator {
	alu := NewALU()
	e := &Emulator{
		memory:     memory,
		decoder:    insts.NewDecoder(),
		alu:        alu,
		lsu:        NewLoadStoreUnit(memory),
		branchUnit: NewBranchUnit(alu),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.regFile == nil {
		e.regFile = NewRegFile(memory.Size())
	}

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// Step executes a single instruction.
func (e *Emulator) Step() StepResult {
	if e.exited || e.regFile.PC == EndOfProgram {
		e.exited = true
		return StepResult{Exited: true}
	}

	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{
			Err: fmt.Errorf("%w: %d", ErrInstructionLimit, e.maxInstructions),
		}
	}

	pc := e.regFile.PC

	word, err := e.memory.ReadWord(pc)
	if err != nil {
		return StepResult{Err: fmt.Errorf("fetch at PC=0x%X: %w", pc, err)}
	}

	inst, err := e.decoder.Decode(word)
	if errors.Is(err, insts.ErrEndOfProgram) {
		e.exited = true
		return StepResult{Exited: true}
	}
	if err != nil {
		return StepResult{Err: fmt.Errorf("decode at PC=0x%X: %w", pc, err)}
	}

	if err := e.execute(inst, pc); err != nil {
		return StepResult{Err: fmt.Errorf("execute %s at PC=0x%X: %w", inst, pc, err)}
	}

	e.instructionCount++

	if e.regFile.PC == EndOfProgram {
		e.exited = true
		return StepResult{Exited: true}
	}
	return StepResult{}
}

// Run executes instructions until the program ends or an error occurs, and
// returns the value of $v0.
func (e *Emulator) Run() (int32, error) {
	for {
		result := e.Step()
		if result.Err != nil {
			return 0, result.Err
		}
		if result.Exited {
			return e.regFile.Result(), nil
		}
	}
}

func (e *Emulator) execute(inst *insts.Instruction, pc uint32) error {
	cs := insts.ControlSignals(inst.Op)
	rs := e.regFile.ReadReg(inst.Rs)
	rt := e.regFile.ReadReg(inst.Rt)

	if cs.IsControlFlow() {
		next, _ := e.branchUnit.Resolve(inst, pc, rs, rt)
		if cs.Link {
			e.regFile.WriteReg(inst.WriteRegister(), pc+4)
		}
		e.regFile.PC = next
		return nil
	}

	switch {
	case cs.MemRead:
		value, err := e.lsu.LW(rs, inst.Imm)
		if err != nil {
			return err
		}
		e.regFile.WriteReg(inst.WriteRegister(), value)
	case cs.MemWrite:
		if err := e.lsu.SW(rs, inst.Imm, rt); err != nil {
			return err
		}
	case cs.RegWrite:
		result, _ := e.alu.Operate(inst.Op, rs, SecondOperand(inst, rt), inst.Shamt)
		e.regFile.WriteReg(inst.WriteRegister(), result)
	}

	e.regFile.PC = pc + 4
	return nil
}
