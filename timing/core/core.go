// Package core provides the program-context model of the timing simulator.
// A Core wraps one pipeline with its own registers and memory; a Scheduler
// interleaves several cores cycle by cycle.
package core

import (
	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/timing/pipeline"
)

// Core represents one program context: a register file, a memory image and
// the pipeline that executes it.
type Core struct {
	// Pipeline is the underlying 5-stage pipeline.
	Pipeline *pipeline.Pipeline

	name string

	// Shared resources
	regFile *emu.RegFile
	memory  *emu.Memory

	// Front-end state of the most recent cycle.
	stalled bool
	flushed bool
}

// NewCore creates a new Core with the given register file and memory. The
// pipeline starts fetching at regFile.PC.
func NewCore(name string, regFile *emu.RegFile, memory *emu.Memory, opts ...pipeline.PipelineOption) *Core {
	c := &Core{
		name:    name,
		regFile: regFile,
		memory:  memory,
	}

	opts = append(opts, pipeline.WithObserver(pipeline.ObserverFunc(c.observe)))
	c.Pipeline = pipeline.NewPipeline(regFile, memory, opts...)

	return c
}

func (c *Core) observe(s pipeline.CycleSnapshot) {
	c.stalled = s.Stalled
	c.flushed = s.Resolution.SquashIFID || s.Resolution.SquashIDEX
}

// Name returns the context name.
func (c *Core) Name() string {
	return c.name
}

// RegFile returns the context's register file.
func (c *Core) RegFile() *emu.RegFile {
	return c.regFile
}

// Memory returns the context's memory.
func (c *Core) Memory() *emu.Memory {
	return c.memory
}

// SetPC sets the program counter.
func (c *Core) SetPC(pc uint32) {
	c.Pipeline.SetPC(pc)
}

// Tick executes one pipeline cycle.
func (c *Core) Tick() error {
	return c.Pipeline.Tick()
}

// Halted returns true if the program has finished.
func (c *Core) Halted() bool {
	return c.Pipeline.Halted()
}

// Busy reports whether the last cycle stalled decode or flushed the front
// end.
func (c *Core) Busy() bool {
	return !c.Halted() && (c.stalled || c.flushed)
}

// Result returns the program result.
func (c *Core) Result() int32 {
	return c.Pipeline.Result()
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() pipeline.Statistics {
	return c.Pipeline.Stats()
}

// Run executes the core until it halts.
func (c *Core) Run() (int32, error) {
	return c.Pipeline.Run()
}

// RunCycles executes the core for the specified number of cycles.
// Returns true if still running, false if halted.
func (c *Core) RunCycles(cycles uint64) (bool, error) {
	return c.Pipeline.RunCycles(cycles)
}

// Reset clears all pipeline state.
func (c *Core) Reset() {
	c.Pipeline.Reset()
	c.stalled = false
	c.flushed = false
}
