package cache

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig is returned for cache geometries that cannot be built.
var ErrInvalidConfig = errors.New("invalid cache config")

// Replacement selects the victim-selection strategy of a set.
type Replacement int

// Replacement strategies.
const (
	LRU Replacement = iota
	LRUSecondChance
	Random
)

var replacementNames = map[Replacement]string{
	LRU:             "lru",
	LRUSecondChance: "second-chance",
	Random:          "random",
}

func (r Replacement) String() string {
	if name, ok := replacementNames[r]; ok {
		return name
	}
	return fmt.Sprintf("replacement(%d)", int(r))
}

// ParseReplacement converts a strategy name into a Replacement.
func ParseReplacement(s string) (Replacement, error) {
	for r, name := range replacementNames {
		if strings.EqualFold(s, name) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown replacement %q", ErrInvalidConfig, s)
}

// WritePolicy selects when stores reach memory.
type WritePolicy int

// Write policies. Both allocate on a write miss.
const (
	WriteBack WritePolicy = iota
	WriteThrough
)

func (w WritePolicy) String() string {
	switch w {
	case WriteBack:
		return "write-back"
	case WriteThrough:
		return "write-through"
	}
	return fmt.Sprintf("write-policy(%d)", int(w))
}

// ParseWritePolicy converts a policy name into a WritePolicy.
func ParseWritePolicy(s string) (WritePolicy, error) {
	switch strings.ToLower(s) {
	case "write-back", "writeback":
		return WriteBack, nil
	case "write-through", "writethrough":
		return WriteThrough, nil
	}
	return 0, fmt.Errorf("%w: unknown write policy %q", ErrInvalidConfig, s)
}

// Config holds cache configuration parameters.
//
// An address splits into tag | index | offset. A cache holds
// Ways << IndexBits lines of 1 << OffsetBits bytes each.
type Config struct {
	OffsetBits int
	IndexBits  int
	Ways       int

	Replacement Replacement
	WritePolicy WritePolicy

	// HitLatency in cycles
	HitLatency uint64
	// MissLatency in cycles (includes memory access time)
	MissLatency uint64

	// Seed feeds the Random strategy.
	Seed int64
}

// DirectMapped returns a one-way configuration.
func DirectMapped(offsetBits, indexBits int) Config {
	return SetAssociative(offsetBits, indexBits, 1)
}

// SetAssociative returns a configuration with 1 << indexBits sets of the
// given number of ways.
func SetAssociative(offsetBits, indexBits, ways int) Config {
	return Config{
		OffsetBits:  offsetBits,
		IndexBits:   indexBits,
		Ways:        ways,
		Replacement: LRU,
		WritePolicy: WriteBack,
		HitLatency:  1,
		MissLatency: 10,
	}
}

// FullyAssociative returns a single-set configuration of 1 << lineBits ways.
func FullyAssociative(offsetBits, lineBits int) Config {
	return SetAssociative(offsetBits, 0, 1<<lineBits)
}

// BlockSize returns the line size in bytes.
func (c Config) BlockSize() int {
	return 1 << c.OffsetBits
}

// NumSets returns the number of sets.
func (c Config) NumSets() int {
	return 1 << c.IndexBits
}

// NumLines returns the total number of lines.
func (c Config) NumLines() int {
	return c.NumSets() * c.Ways
}

// Size returns the data capacity in bytes.
func (c Config) Size() int {
	return c.NumLines() * c.BlockSize()
}

// Validate checks the geometry and policy values.
func (c Config) Validate() error {
	if c.OffsetBits < 2 {
		return fmt.Errorf("%w: offset bits %d, lines must hold a word", ErrInvalidConfig, c.OffsetBits)
	}
	if c.IndexBits < 0 {
		return fmt.Errorf("%w: index bits %d", ErrInvalidConfig, c.IndexBits)
	}
	if c.OffsetBits+c.IndexBits > 24 {
		return fmt.Errorf("%w: offset+index bits %d exceed 24", ErrInvalidConfig, c.OffsetBits+c.IndexBits)
	}
	if c.Ways < 1 || c.Ways > 1<<12 {
		return fmt.Errorf("%w: ways %d", ErrInvalidConfig, c.Ways)
	}
	if _, ok := replacementNames[c.Replacement]; !ok {
		return fmt.Errorf("%w: replacement %d", ErrInvalidConfig, c.Replacement)
	}
	if c.WritePolicy != WriteBack && c.WritePolicy != WriteThrough {
		return fmt.Errorf("%w: write policy %d", ErrInvalidConfig, c.WritePolicy)
	}
	return nil
}
