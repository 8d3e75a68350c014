package pipeline

// CycleSnapshot is the pipeline state at the end of one cycle.
type CycleSnapshot struct {
	// Cycle is the 1-based number of the cycle just simulated.
	Cycle uint64

	// PC is the address fetch will use next cycle.
	PC uint32

	// Latches as committed at the end of the cycle.
	IFID IFIDRegister
	IDEX IDEXRegister
	EXMA EXMARegister
	MAWB MAWBRegister

	// WriteBack is the latch consumed by write-back this cycle. Retired is
	// true if it held an instruction.
	WriteBack MAWBRegister
	Retired   bool

	// Stalled is true if decode held its instruction this cycle.
	Stalled bool

	// Resolution is the program counter unit's decision.
	Resolution Resolution

	// Halted is true on the final cycle.
	Halted bool
}

// Observer receives a snapshot after every simulated cycle.
type Observer interface {
	ObserveCycle(snapshot CycleSnapshot)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(snapshot CycleSnapshot)

// ObserveCycle calls f(snapshot).
func (f ObserverFunc) ObserveCycle(snapshot CycleSnapshot) {
	f(snapshot)
}
