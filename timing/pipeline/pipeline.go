package pipeline

import (
	"errors"
	"fmt"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/timing/cache"
)

// ErrCycleLimitExceeded is returned when a program does not finish within
// the configured number of cycles.
var ErrCycleLimitExceeded = errors.New("cycle limit exceeded")

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions completed (retired).
	Instructions uint64
	// Stalls is the number of cycles decode was held.
	Stalls uint64
	// DataHazards is the number of RAW data hazards that caused a stall.
	DataHazards uint64
	// Forwards is the number of cycles execute used a bypassed operand.
	Forwards uint64
	// Flushes is the number of cycles that squashed fetched or decoded work.
	Flushes uint64
	// Jumps is the number of unconditional jumps resolved in decode.
	Jumps uint64
	// BranchPredictions is the number of conditional branches resolved.
	BranchPredictions uint64
	// BranchCorrect is the number of correct branch predictions.
	BranchCorrect uint64
	// BranchMispredictions is the number of branch mispredictions.
	BranchMispredictions uint64
	// MemoryCycles is the accumulated cache access latency.
	MemoryCycles uint64
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// BranchAccuracy returns the branch prediction accuracy as a percentage.
func (s Statistics) BranchAccuracy() float64 {
	if s.BranchPredictions == 0 {
		return 0
	}
	return float64(s.BranchCorrect) / float64(s.BranchPredictions) * 100
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithHazardPolicy selects stalling or forwarding for data hazards.
func WithHazardPolicy(policy HazardPolicy) PipelineOption {
	return func(p *Pipeline) {
		p.policy = policy
	}
}

// WithBranchPredictor sets the conditional branch predictor.
func WithBranchPredictor(predictor BranchPredictor) PipelineOption {
	return func(p *Pipeline) {
		p.pcUnit = NewPCUnit(predictor)
	}
}

// WithICache routes instruction fetch through c.
func WithICache(c *cache.Cache) PipelineOption {
	return func(p *Pipeline) {
		p.icache = c
	}
}

// WithDCache routes loads and stores through c.
func WithDCache(c *cache.Cache) PipelineOption {
	return func(p *Pipeline) {
		p.dcache = c
	}
}

// WithMaxCycles bounds the number of cycles. A value of 0 means no limit.
func WithMaxCycles(n uint64) PipelineOption {
	return func(p *Pipeline) {
		p.maxCycles = n
	}
}

// WithObserver registers an observer called after every cycle.
func WithObserver(o Observer) PipelineOption {
	return func(p *Pipeline) {
		p.observers = append(p.observers, o)
	}
}

// Pipeline implements a 5-stage pipelined CPU model.
// Stages: Fetch (IF) -> Decode (ID) -> Execute (EX) -> Memory Access (MA) -> Writeback (WB)
type Pipeline struct {
	// Pipeline registers
	ifid IFIDRegister
	idex IDEXRegister
	exma EXMARegister
	mawb MAWBRegister

	// Pipeline stages
	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	memoryStage    *MemoryStage
	writebackStage *WritebackStage

	// Hazard handling
	policy       HazardPolicy
	forwarding   *ForwardingUnit
	dependencies *DependencyUnit
	stallUnit    *StallUnit

	// Next-PC selection and branch prediction
	pcUnit *PCUnit

	// Optional caches
	icache *cache.Cache
	dcache *cache.Cache

	// Shared resources
	regFile *emu.RegFile
	memory  *emu.Memory

	pc        uint32
	maxCycles uint64
	observers []Observer

	stats  Statistics
	halted bool
	err    error
}

// NewPipeline creates a new 5-stage pipeline over regFile and memory. Fetch
// starts at regFile.PC.
func NewPipeline(regFile *emu.RegFile, memory *emu.Memory, opts ...PipelineOption) *Pipeline {
	predictor, _ := NewBranchPredictor(DefaultBranchPredictorConfig())

	p := &Pipeline{
		decodeStage:    NewDecodeStage(regFile),
		executeStage:   NewExecuteStage(emu.NewALU()),
		writebackStage: NewWritebackStage(regFile),
		policy:         HazardForwarding,
		forwarding:     NewForwardingUnit(),
		dependencies:   NewDependencyUnit(),
		stallUnit:      NewStallUnit(),
		pcUnit:         NewPCUnit(predictor),
		regFile:        regFile,
		memory:         memory,
		pc:             regFile.PC,
	}

	for _, opt := range opts {
		opt(p)
	}

	var instPort, dataPort emu.WordPort = memory, memory
	if p.icache != nil {
		instPort = p.icache
	}
	if p.dcache != nil {
		dataPort = p.dcache
	}
	p.fetchStage = NewFetchStage(instPort)
	p.memoryStage = NewMemoryStage(dataPort)

	return p
}

// PC returns the current program counter.
func (p *Pipeline) PC() uint32 {
	return p.pc
}

// SetPC sets the program counter.
func (p *Pipeline) SetPC(pc uint32) {
	p.pc = pc
	p.regFile.PC = pc
}

// HazardPolicy returns the active hazard policy.
func (p *Pipeline) HazardPolicy() HazardPolicy {
	return p.policy
}

// GetIFID returns the IF/ID pipeline register.
func (p *Pipeline) GetIFID() *IFIDRegister {
	return &p.ifid
}

// GetIDEX returns the ID/EX pipeline register.
func (p *Pipeline) GetIDEX() *IDEXRegister {
	return &p.idex
}

// GetEXMA returns the EX/MA pipeline register.
func (p *Pipeline) GetEXMA() *EXMARegister {
	return &p.exma
}

// GetMAWB returns the MA/WB pipeline register.
func (p *Pipeline) GetMAWB() *MAWBRegister {
	return &p.mawb
}

// Dependencies returns the dependency unit used by the stalling policy.
func (p *Pipeline) Dependencies() *DependencyUnit {
	return p.dependencies
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	s := p.stats

	bs := p.pcUnit.Stats()
	s.BranchPredictions = bs.Predictions
	s.BranchCorrect = bs.Correct
	s.BranchMispredictions = bs.Mispredictions

	s.MemoryCycles = p.ICacheStats().Cycles + p.DCacheStats().Cycles

	return s
}

// ICacheStats returns I-cache statistics, or empty if I-cache not enabled.
func (p *Pipeline) ICacheStats() cache.Statistics {
	if p.icache != nil {
		return p.icache.Stats()
	}
	return cache.Statistics{}
}

// DCacheStats returns D-cache statistics, or empty if D-cache not enabled.
func (p *Pipeline) DCacheStats() cache.Statistics {
	if p.dcache != nil {
		return p.dcache.Stats()
	}
	return cache.Statistics{}
}

// Halted returns true if the pipeline has halted.
func (p *Pipeline) Halted() bool {
	return p.halted
}

// Err returns the error that stopped the pipeline, if any.
func (p *Pipeline) Err() error {
	return p.err
}

// Result returns the program result, the signed value of $v0.
func (p *Pipeline) Result() int32 {
	return p.regFile.Result()
}

// Run executes the pipeline until it halts and returns the program result.
func (p *Pipeline) Run() (int32, error) {
	for !p.halted {
		if err := p.Tick(); err != nil {
			return 0, err
		}
	}
	return p.Result(), nil
}

// RunCycles executes the pipeline for the specified number of cycles.
// Returns true if still running, false if halted.
func (p *Pipeline) RunCycles(cycles uint64) (bool, error) {
	for i := uint64(0); i < cycles && !p.halted; i++ {
		if err := p.Tick(); err != nil {
			return false, err
		}
	}
	return !p.halted, nil
}

// Tick executes one pipeline cycle.
//
// Stages are evaluated in reverse order (WB→MA→EX→ID→IF) against the latches
// of the previous cycle. Write-back updates the register file before decode
// reads it. The program counter unit then picks the next PC, possibly
// squashing the newly fetched and decoded instructions, and all latches are
// committed together.
func (p *Pipeline) Tick() error {
	if p.err != nil {
		return p.err
	}
	if p.halted {
		return nil
	}
	if p.maxCycles > 0 && p.stats.Cycles >= p.maxCycles {
		return p.fail(fmt.Errorf("%w: %d cycles at PC=0x%X", ErrCycleLimitExceeded, p.maxCycles, p.pc))
	}

	p.stats.Cycles++
	snapshot := CycleSnapshot{Cycle: p.stats.Cycles, WriteBack: p.mawb}

	// Stage 5: Writeback
	if p.writebackStage.Writeback(&p.mawb) {
		p.stats.Instructions++
		snapshot.Retired = true
		if p.mawb.writes() {
			p.dependencies.Release(p.mawb.WriteReg)
		}
	}

	if p.mawb.Terminate {
		return p.halt(snapshot)
	}

	// Stage 4: Memory
	nextMAWB, err := p.memoryStage.Access(&p.exma)
	if err != nil {
		return p.fail(err)
	}

	// Stage 3: Execute
	rsVal, rtVal := p.idex.RsValue, p.idex.RtValue
	if p.policy == HazardForwarding {
		fwd := p.forwarding.Detect(&p.idex, &p.exma, &p.mawb)
		if fwd.Any() {
			p.stats.Forwards++
		}
		rsVal = p.forwarding.Value(fwd.ForwardRs, rsVal, &p.exma, &p.mawb)
		rtVal = p.forwarding.Value(fwd.ForwardRt, rtVal, &p.exma, &p.mawb)
	}
	nextEXMA := p.executeStage.Execute(&p.idex, rsVal, rtVal)

	// Stage 2: Decode
	nextIDEX, decodeErr := p.decodeStage.Decode(&p.ifid)
	if decodeErr == nil && nextIDEX.Valid && p.mustStall(&nextIDEX) {
		p.stallUnit.Stall(nextIDEX.PC)
		p.stats.Stalls++
		p.stats.DataHazards++
		nextIDEX = IDEXRegister{}
	} else if nextIDEX.writes() && p.policy == HazardStalling {
		p.dependencies.Book(nextIDEX.WriteReg, nextIDEX.PC)
	}

	// Stage 1: Fetch
	var nextIFID IFIDRegister
	seqPC := p.pc + 4
	if p.stallUnit.Frozen() {
		nextIFID = p.ifid
		seqPC = p.pc
	} else {
		nextIFID = p.fetchStage.Fetch(p.pc)
		if nextIFID.Terminate || p.pc == emu.EndOfProgram {
			seqPC = p.pc
		}
	}

	res := p.pcUnit.FindNext(seqPC, &nextIFID, &nextIDEX, &nextEXMA)
	p.apply(res, &nextIFID, &nextIDEX, &nextEXMA)
	if res.SquashIDEX {
		decodeErr = nil
	}
	if decodeErr != nil {
		return p.fail(decodeErr)
	}

	p.ifid = nextIFID
	p.idex = nextIDEX
	p.exma = nextEXMA
	p.mawb = nextMAWB
	p.SetPC(res.NextPC)

	snapshot.Stalled = p.stallUnit.Frozen()
	snapshot.Resolution = res
	p.stallUnit.Resume()
	p.notify(snapshot)

	return nil
}

// mustStall reports whether the instruction just decoded has to wait.
func (p *Pipeline) mustStall(idex *IDEXRegister) bool {
	if p.policy == HazardStalling {
		if p.dependencies.HasHazard(idex.Rs, idex.Rt) {
			return true
		}
		// A second writer waits until the first releases the register.
		return idex.writes() && p.dependencies.Booked(idex.WriteReg)
	}

	// JR reads its target in decode, before any bypass is available.
	if idex.Control.JumpReg && p.writerInFlight(idex.Rs) {
		return true
	}

	return p.forwarding.DetectLoadUse(&p.idex, idex.Rs, idex.Rt)
}

// writerInFlight reports whether an instruction in execute or memory access
// will write reg.
func (p *Pipeline) writerInFlight(reg uint8) bool {
	if reg == 0 {
		return false
	}
	return (p.idex.writes() && p.idex.WriteReg == reg) ||
		(p.exma.writes() && p.exma.WriteReg == reg)
}

// apply carries out the program counter unit's decision on the new latches.
func (p *Pipeline) apply(res Resolution, ifid *IFIDRegister, idex *IDEXRegister, exma *EXMARegister) {
	if res.PredictTaken {
		idex.PredictedTaken = true
	}

	if res.Terminate {
		switch res.Source {
		case ResolvedExecute:
			exma.Terminate = true
		case ResolvedJump:
			idex.Terminate = true
		}
	}

	if res.Source == ResolvedJump {
		p.stats.Jumps++
	}

	if res.SquashIDEX {
		if idex.writes() && p.policy == HazardStalling {
			p.dependencies.Release(idex.WriteReg)
		}
		idex.Clear()
	}
	if res.SquashIFID {
		ifid.Clear()
	}
	if res.SquashIFID || res.SquashIDEX {
		p.stats.Flushes++
	}
}

func (p *Pipeline) halt(snapshot CycleSnapshot) error {
	p.halted = true

	for _, c := range []*cache.Cache{p.icache, p.dcache} {
		if c == nil {
			continue
		}
		if err := c.Flush(); err != nil {
			return p.fail(fmt.Errorf("flushing cache: %w", err))
		}
	}

	p.ifid.Clear()
	p.idex.Clear()
	p.exma.Clear()
	p.mawb.Clear()

	snapshot.PC = p.pc
	snapshot.Halted = true
	p.notify(snapshot)

	return nil
}

func (p *Pipeline) fail(err error) error {
	p.err = err
	return err
}

func (p *Pipeline) notify(snapshot CycleSnapshot) {
	if len(p.observers) == 0 {
		return
	}

	snapshot.PC = p.pc
	snapshot.IFID = p.ifid
	snapshot.IDEX = p.idex
	snapshot.EXMA = p.exma
	snapshot.MAWB = p.mawb

	for _, o := range p.observers {
		o.ObserveCycle(snapshot)
	}
}

// Reset clears all pipeline state. Registers and memory are left untouched.
func (p *Pipeline) Reset() {
	p.ifid.Clear()
	p.idex.Clear()
	p.exma.Clear()
	p.mawb.Clear()
	p.pc = p.regFile.PC
	p.stats = Statistics{}
	p.halted = false
	p.err = nil
	p.dependencies.Reset()
	p.stallUnit.Resume()
	p.pcUnit.Reset()
	if p.icache != nil {
		p.icache.Reset()
	}
	if p.dcache != nil {
		p.dcache.Reset()
	}
}
