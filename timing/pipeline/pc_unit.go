package pipeline

import "github.com/sarchlab/mipsim/emu"

// ResolutionSource names the stage whose decision chose the next PC.
type ResolutionSource int

// Resolution sources in priority order, lowest first.
const (
	ResolvedSequential ResolutionSource = iota
	ResolvedPrediction
	ResolvedJump
	ResolvedExecute
)

// Resolution is the program counter unit's decision for one cycle.
type Resolution struct {
	// NextPC is the address to fetch next cycle.
	NextPC uint32

	// SquashIFID and SquashIDEX turn the newly latched instructions into
	// bubbles.
	SquashIFID bool
	SquashIDEX bool

	// PredictTaken marks the branch entering ID/EX as predicted taken.
	PredictTaken bool

	// Mispredicted is set when execute overturned the decode-time guess.
	Mispredicted bool

	// Terminate is set when control reaches the end-of-program address. The
	// instruction that got there is the one named by Source.
	Terminate bool

	Source ResolutionSource
}

// PCUnit chooses the next fetch address from the outcomes of execute and
// decode, in that priority: branch resolution in execute, jumps in decode,
// taken predictions in decode, then sequential fetch.
type PCUnit struct {
	predictor BranchPredictor
	stats     BranchPredictorStats
}

// NewPCUnit creates a program counter unit using predictor for conditional
// branches.
func NewPCUnit(predictor BranchPredictor) *PCUnit {
	return &PCUnit{predictor: predictor}
}

// Predictor returns the branch predictor.
func (u *PCUnit) Predictor() BranchPredictor {
	return u.predictor
}

// Stats returns branch resolution statistics.
func (u *PCUnit) Stats() BranchPredictorStats {
	return u.stats
}

// Reset clears predictor state and statistics.
func (u *PCUnit) Reset() {
	u.predictor.Reset()
	u.stats = BranchPredictorStats{}
}

// FindNext resolves the next PC given the latches just produced by fetch,
// decode and execute. seqPC is the address used when nothing redirects:
// pc+4 after a fetch, or the held PC during a stall.
func (u *PCUnit) FindNext(
	seqPC uint32,
	ifid *IFIDRegister,
	idex *IDEXRegister,
	exma *EXMARegister,
) Resolution {
	res := Resolution{NextPC: seqPC}

	if exma.Valid && exma.Control.Branch {
		u.stats.Predictions++
		u.predictor.Update(exma.PC, exma.BranchTaken)

		if exma.BranchTaken == exma.PredictedTaken {
			u.stats.Correct++
			if exma.BranchTaken && exma.BranchTarget == emu.EndOfProgram {
				res.Terminate = true
				res.Source = ResolvedExecute
				return res
			}
		} else {
			u.stats.Mispredictions++

			res.NextPC = exma.PC + 4
			if exma.BranchTaken {
				res.NextPC = exma.BranchTarget
			}
			res.SquashIFID = true
			res.SquashIDEX = true
			res.Mispredicted = true
			res.Terminate = res.NextPC == emu.EndOfProgram
			res.Source = ResolvedExecute
			return res
		}
	}

	if !idex.Valid {
		return res
	}

	switch {
	case idex.Control.Jump || idex.Control.JumpReg:
		target := idex.RsValue
		if idex.Control.Jump {
			target = idex.Inst.JumpTarget(idex.PC)
		}
		res.NextPC = target
		res.SquashIFID = ifid.Valid || ifid.Terminate
		res.Terminate = target == emu.EndOfProgram
		res.Source = ResolvedJump
	case idex.Control.Branch && u.predictor.Predict(idex.PC):
		u.stats.PredictedTaken++
		res.NextPC = idex.Inst.BranchTarget(idex.PC)
		res.SquashIFID = ifid.Valid || ifid.Terminate
		res.PredictTaken = true
		res.Source = ResolvedPrediction
	}

	return res
}
