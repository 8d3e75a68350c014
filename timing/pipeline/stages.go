package pipeline

import (
	"fmt"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
)

// FetchStage handles instruction fetch through the instruction port.
type FetchStage struct {
	port emu.WordPort
}

// NewFetchStage creates a new fetch stage.
func NewFetchStage(port emu.WordPort) *FetchStage {
	return &FetchStage{port: port}
}

// Fetch reads the instruction at the given PC. The end-of-program address
// yields a plain bubble; a zero word yields a terminating bubble. Read errors
// are recorded in the latch instead of being returned, since the fetch may be
// on a path that is later squashed.
func (s *FetchStage) Fetch(pc uint32) IFIDRegister {
	if pc == emu.EndOfProgram {
		return IFIDRegister{}
	}

	word, err := s.port.ReadWord(pc)
	if err != nil {
		return IFIDRegister{Valid: true, PC: pc, Fault: fmt.Errorf("fetch at PC=0x%X: %w", pc, err)}
	}

	if word == 0 {
		return IFIDRegister{PC: pc, Terminate: true}
	}

	return IFIDRegister{Valid: true, PC: pc, InstructionWord: word}
}

// DecodeStage handles instruction decode and register read.
type DecodeStage struct {
	regFile *emu.RegFile
	decoder *insts.Decoder
}

// NewDecodeStage creates a new decode stage.
func NewDecodeStage(regFile *emu.RegFile) *DecodeStage {
	return &DecodeStage{
		regFile: regFile,
		decoder: insts.NewDecoder(),
	}
}

// Decode decodes the instruction in ifid and reads its register operands.
func (s *DecodeStage) Decode(ifid *IFIDRegister) (IDEXRegister, error) {
	if !ifid.Valid {
		return IDEXRegister{Terminate: ifid.Terminate}, nil
	}

	if ifid.Fault != nil {
		return IDEXRegister{}, ifid.Fault
	}

	inst, err := s.decoder.Decode(ifid.InstructionWord)
	if err != nil {
		return IDEXRegister{}, fmt.Errorf("decode at PC=0x%X: %w", ifid.PC, err)
	}

	control := insts.ControlSignals(inst.Op)
	rs, rt := sourceRegisters(inst)

	result := IDEXRegister{
		Valid:   true,
		PC:      ifid.PC,
		Inst:    inst,
		Control: control,
		RsValue: s.regFile.ReadReg(inst.Rs),
		RtValue: s.regFile.ReadReg(inst.Rt),
		Rs:      rs,
		Rt:      rt,
	}

	if control.RegWrite {
		result.WriteReg = inst.WriteRegister()
	}

	return result, nil
}

// ExecuteStage handles ALU operations, address calculation and branch
// resolution.
type ExecuteStage struct {
	alu *emu.ALU
}

// NewExecuteStage creates a new execute stage.
func NewExecuteStage(alu *emu.ALU) *ExecuteStage {
	return &ExecuteStage{alu: alu}
}

// Execute computes the result of the instruction in idex using the
// (possibly forwarded) operand values rsVal and rtVal.
func (s *ExecuteStage) Execute(idex *IDEXRegister, rsVal, rtVal uint32) EXMARegister {
	if !idex.Valid {
		return EXMARegister{Terminate: idex.Terminate}
	}

	inst := idex.Inst
	result := EXMARegister{
		Valid:          true,
		PC:             idex.PC,
		Inst:           inst,
		Control:        idex.Control,
		WriteReg:       idex.WriteReg,
		StoreValue:     rtVal,
		PredictedTaken: idex.PredictedTaken,
		Terminate:      idex.Terminate,
	}

	switch {
	case idex.Control.Link:
		result.ALUResult = idex.PC + 4
	case idex.Control.Branch:
		_, result.BranchTaken = s.alu.Operate(inst.Op, rsVal, rtVal, 0)
		result.BranchTarget = inst.BranchTarget(idex.PC)
	case idex.Control.Jump || idex.Control.JumpReg:
		// Resolved in decode.
	default:
		result.ALUResult, _ = s.alu.Operate(inst.Op, rsVal, emu.SecondOperand(inst, rtVal), inst.Shamt)
	}

	return result
}

// MemoryStage handles loads and stores through the data port.
type MemoryStage struct {
	lsu *emu.LoadStoreUnit
}

// NewMemoryStage creates a new memory stage.
func NewMemoryStage(port emu.WordPort) *MemoryStage {
	return &MemoryStage{lsu: emu.NewLoadStoreUnit(port)}
}

// Access performs the memory operation of the instruction in exma.
func (s *MemoryStage) Access(exma *EXMARegister) (MAWBRegister, error) {
	if !exma.Valid {
		return MAWBRegister{Terminate: exma.Terminate}, nil
	}

	result := MAWBRegister{
		Valid:     true,
		PC:        exma.PC,
		Inst:      exma.Inst,
		Control:   exma.Control,
		ALUResult: exma.ALUResult,
		WriteReg:  exma.WriteReg,
		Terminate: exma.Terminate,
	}

	switch {
	case exma.Control.MemRead:
		data, err := s.lsu.LW(exma.ALUResult, 0)
		if err != nil {
			return MAWBRegister{}, fmt.Errorf("%s at PC=0x%X: %w", exma.Inst, exma.PC, err)
		}
		result.MemData = data
	case exma.Control.MemWrite:
		if err := s.lsu.SW(exma.ALUResult, 0, exma.StoreValue); err != nil {
			return MAWBRegister{}, fmt.Errorf("%s at PC=0x%X: %w", exma.Inst, exma.PC, err)
		}
	}

	return result, nil
}

// WritebackStage handles register writeback.
type WritebackStage struct {
	regFile *emu.RegFile
}

// NewWritebackStage creates a new writeback stage.
func NewWritebackStage(regFile *emu.RegFile) *WritebackStage {
	return &WritebackStage{regFile: regFile}
}

// Writeback commits the result of the instruction in mawb. It returns true
// if an instruction retired.
func (s *WritebackStage) Writeback(mawb *MAWBRegister) bool {
	if !mawb.Valid {
		return false
	}

	if mawb.Control.RegWrite {
		s.regFile.WriteReg(mawb.WriteReg, mawb.Result())
	}

	return true
}
