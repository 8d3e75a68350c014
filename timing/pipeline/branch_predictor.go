package pipeline

import (
	"fmt"
	"strings"
)

// BranchPredictor guesses the direction of conditional branches in decode.
// Targets are always known at decode, so only the direction is predicted.
type BranchPredictor interface {
	// Predict returns true if the branch at pc is predicted taken.
	Predict(pc uint32) bool
	// Update trains the predictor with the resolved outcome of the branch
	// at pc.
	Update(pc uint32, taken bool)
	// Reset clears all learned state.
	Reset()
}

// PredictorKind names a prediction strategy.
type PredictorKind int

// Prediction strategies.
const (
	PredictNone PredictorKind = iota
	PredictAlwaysTaken
	PredictBimodal
	PredictTwoLevelLocal
)

var predictorNames = map[PredictorKind]string{
	PredictNone:          "none",
	PredictAlwaysTaken:   "always-taken",
	PredictBimodal:       "bimodal",
	PredictTwoLevelLocal: "two-level-local",
}

func (k PredictorKind) String() string {
	if name, ok := predictorNames[k]; ok {
		return name
	}
	return fmt.Sprintf("predictor(%d)", int(k))
}

// ParsePredictorKind converts a strategy name into a PredictorKind.
func ParsePredictorKind(s string) (PredictorKind, error) {
	for k, name := range predictorNames {
		if strings.EqualFold(s, name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown branch predictor %q", s)
}

// BranchPredictorConfig holds configuration for the branch predictor.
type BranchPredictorConfig struct {
	Kind PredictorKind

	// TableSize is the number of per-branch entries (counters for bimodal,
	// history registers for two-level). Must be a power of 2.
	TableSize uint32

	// HistoryBits is the local history length of the two-level predictor.
	HistoryBits uint
}

// DefaultBranchPredictorConfig returns a default configuration.
func DefaultBranchPredictorConfig() BranchPredictorConfig {
	return BranchPredictorConfig{
		Kind:        PredictTwoLevelLocal,
		TableSize:   1024,
		HistoryBits: 4,
	}
}

// NewBranchPredictor builds the predictor described by config.
func NewBranchPredictor(config BranchPredictorConfig) (BranchPredictor, error) {
	if config.TableSize == 0 {
		config.TableSize = 1024
	}
	if config.TableSize&(config.TableSize-1) != 0 {
		return nil, fmt.Errorf("branch predictor table size %d is not a power of 2", config.TableSize)
	}
	if config.HistoryBits > 16 {
		return nil, fmt.Errorf("branch predictor history of %d bits is too long", config.HistoryBits)
	}

	switch config.Kind {
	case PredictNone:
		return NoPrediction{}, nil
	case PredictAlwaysTaken:
		return AlwaysTaken{}, nil
	case PredictBimodal:
		return NewBimodalPredictor(config.TableSize), nil
	case PredictTwoLevelLocal:
		historyBits := config.HistoryBits
		if historyBits == 0 {
			historyBits = 4
		}
		return NewTwoLevelLocalPredictor(config.TableSize, historyBits), nil
	}
	return nil, fmt.Errorf("unknown branch predictor kind %d", config.Kind)
}

// BranchPredictorStats holds statistics for branch resolution.
type BranchPredictorStats struct {
	// Predictions is the number of conditional branches resolved.
	Predictions uint64
	// Correct is the number of correct predictions.
	Correct uint64
	// Mispredictions is the number of incorrect predictions.
	Mispredictions uint64
	// PredictedTaken counts decode-time redirects on a taken prediction.
	PredictedTaken uint64
}

// Accuracy returns the prediction accuracy as a percentage.
func (s BranchPredictorStats) Accuracy() float64 {
	if s.Predictions == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Predictions) * 100
}

// MispredictionRate returns the misprediction rate as a percentage.
func (s BranchPredictorStats) MispredictionRate() float64 {
	if s.Predictions == 0 {
		return 0
	}
	return float64(s.Mispredictions) / float64(s.Predictions) * 100
}

// NoPrediction never predicts taken; every taken branch redirects in execute.
type NoPrediction struct{}

// Predict implements BranchPredictor.
func (NoPrediction) Predict(uint32) bool { return false }

// Update implements BranchPredictor.
func (NoPrediction) Update(uint32, bool) {}

// Reset implements BranchPredictor.
func (NoPrediction) Reset() {}

// AlwaysTaken predicts every branch taken.
type AlwaysTaken struct{}

// Predict implements BranchPredictor.
func (AlwaysTaken) Predict(uint32) bool { return true }

// Update implements BranchPredictor.
func (AlwaysTaken) Update(uint32, bool) {}

// Reset implements BranchPredictor.
func (AlwaysTaken) Reset() {}

// counter is a 2-bit saturating counter, 0 (strongly not taken) to 3
// (strongly taken).
type counter uint8

const weaklyTaken counter = 2

func (c counter) taken() bool {
	return c >= 2
}

func (c counter) next(taken bool) counter {
	if taken {
		if c < 3 {
			return c + 1
		}
		return c
	}
	if c > 0 {
		return c - 1
	}
	return c
}

// BimodalPredictor implements a table of 2-bit saturating counters indexed
// by PC.
type BimodalPredictor struct {
	bht  []counter
	size uint32
}

// NewBimodalPredictor creates a bimodal predictor with size counters.
func NewBimodalPredictor(size uint32) *BimodalPredictor {
	bp := &BimodalPredictor{
		bht:  make([]counter, size),
		size: size,
	}
	bp.Reset()
	return bp
}

func (bp *BimodalPredictor) index(pc uint32) uint32 {
	// Use lower bits of PC (excluding alignment bits)
	return (pc >> 2) & (bp.size - 1)
}

// Predict implements BranchPredictor.
func (bp *BimodalPredictor) Predict(pc uint32) bool {
	return bp.bht[bp.index(pc)].taken()
}

// Update implements BranchPredictor.
func (bp *BimodalPredictor) Update(pc uint32, taken bool) {
	idx := bp.index(pc)
	bp.bht[idx] = bp.bht[idx].next(taken)
}

// Reset sets every counter to weakly taken.
func (bp *BimodalPredictor) Reset() {
	for i := range bp.bht {
		bp.bht[i] = weaklyTaken
	}
}

// TwoLevelLocalPredictor keeps a history of recent outcomes per branch and
// uses it to index a shared pattern table of 2-bit counters.
type TwoLevelLocalPredictor struct {
	histories   []uint16
	patterns    []counter
	size        uint32
	historyMask uint16
}

// NewTwoLevelLocalPredictor creates a predictor with size history registers
// of historyBits bits each.
func NewTwoLevelLocalPredictor(size uint32, historyBits uint) *TwoLevelLocalPredictor {
	p := &TwoLevelLocalPredictor{
		histories:   make([]uint16, size),
		patterns:    make([]counter, 1<<historyBits),
		size:        size,
		historyMask: uint16(1<<historyBits - 1),
	}
	p.Reset()
	return p
}

func (p *TwoLevelLocalPredictor) index(pc uint32) uint32 {
	return (pc >> 2) & (p.size - 1)
}

// Predict implements BranchPredictor.
func (p *TwoLevelLocalPredictor) Predict(pc uint32) bool {
	history := p.histories[p.index(pc)]
	return p.patterns[history].taken()
}

// Update implements BranchPredictor.
func (p *TwoLevelLocalPredictor) Update(pc uint32, taken bool) {
	idx := p.index(pc)
	history := p.histories[idx]
	p.patterns[history] = p.patterns[history].next(taken)

	history <<= 1
	if taken {
		history |= 1
	}
	p.histories[idx] = history & p.historyMask
}

// Reset clears histories and sets every pattern counter to weakly taken.
func (p *TwoLevelLocalPredictor) Reset() {
	clear(p.histories)
	for i := range p.patterns {
		p.patterns[i] = weaklyTaken
	}
}
