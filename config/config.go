// Package config holds the simulator configuration and turns it into
// pipeline, cache and scheduler options.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/timing/cache"
	"github.com/sarchlab/mipsim/timing/core"
	"github.com/sarchlab/mipsim/timing/pipeline"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Scheduling policy names.
const (
	PolicyRoundRobin = "round-robin"
	PolicyTimeSlice  = "time-slice"
)

// CacheConfig describes one cache. A disabled cache is bypassed and the
// pipeline talks to memory directly.
type CacheConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// OffsetBits and IndexBits split an address into tag | index | offset.
	OffsetBits int `json:"offset_bits" yaml:"offset_bits"`
	IndexBits  int `json:"index_bits" yaml:"index_bits"`

	// Ways is the associativity. 1 is direct mapped; with IndexBits 0 the
	// cache is fully associative.
	Ways int `json:"ways" yaml:"ways"`

	// Replacement is "lru", "second-chance" or "random".
	Replacement string `json:"replacement" yaml:"replacement"`

	// WritePolicy is "write-back" or "write-through".
	WritePolicy string `json:"write_policy" yaml:"write_policy"`

	HitLatency  uint64 `json:"hit_latency" yaml:"hit_latency"`
	MissLatency uint64 `json:"miss_latency" yaml:"miss_latency"`

	// Seed feeds random replacement.
	Seed int64 `json:"seed" yaml:"seed"`
}

// PredictorConfig describes the branch predictor.
type PredictorConfig struct {
	// Kind is "none", "always-taken", "bimodal" or "two-level-local".
	Kind        string `json:"kind" yaml:"kind"`
	TableSize   uint32 `json:"table_size" yaml:"table_size"`
	HistoryBits uint   `json:"history_bits" yaml:"history_bits"`
}

// SchedulerConfig describes how several program contexts share the
// simulation loop.
type SchedulerConfig struct {
	// Policy is "round-robin" or "time-slice".
	Policy string `json:"policy" yaml:"policy"`

	// Quantum is the slice length in cycles for "time-slice".
	Quantum uint64 `json:"quantum" yaml:"quantum"`

	// HoldOnStall keeps a stalled or flushing context selected.
	HoldOnStall bool `json:"hold_on_stall" yaml:"hold_on_stall"`
}

// Config holds all simulator parameters.
type Config struct {
	// MemorySize is the size of each context's flat memory in bytes. The
	// stack starts at the top.
	MemorySize uint32 `json:"memory_size" yaml:"memory_size"`

	// HazardPolicy is "forwarding" or "stalling".
	HazardPolicy string `json:"hazard_policy" yaml:"hazard_policy"`

	// MaxCycles bounds each context. 0 means no limit.
	MaxCycles uint64 `json:"max_cycles" yaml:"max_cycles"`

	Predictor PredictorConfig `json:"predictor" yaml:"predictor"`
	ICache    CacheConfig     `json:"icache" yaml:"icache"`
	DCache    CacheConfig     `json:"dcache" yaml:"dcache"`
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler"`
}

// Default returns a configuration with forwarding, a two-level local
// predictor and 4-way write-back caches of 1 KiB.
func Default() *Config {
	defaultCache := CacheConfig{
		Enabled:     true,
		OffsetBits:  4,
		IndexBits:   4,
		Ways:        4,
		Replacement: cache.LRU.String(),
		WritePolicy: cache.WriteBack.String(),
		HitLatency:  1,
		MissLatency: 10,
	}

	bp := pipeline.DefaultBranchPredictorConfig()

	return &Config{
		MemorySize:   emu.DefaultMemorySize,
		HazardPolicy: pipeline.HazardForwarding.String(),
		MaxCycles:    100_000_000,
		Predictor: PredictorConfig{
			Kind:        bp.Kind.String(),
			TableSize:   bp.TableSize,
			HistoryBits: bp.HistoryBits,
		},
		ICache: defaultCache,
		DCache: defaultCache,
		Scheduler: SchedulerConfig{
			Policy:  PolicyRoundRobin,
			Quantum: 1,
		},
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads a configuration file. Files ending in .yaml or .yml are parsed
// as YAML, anything else as JSON. Fields missing from the file keep their
// default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Save writes the configuration to path, as YAML or JSON by extension.
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that every value can be turned into options.
func (c *Config) Validate() error {
	if c.MemorySize == 0 || c.MemorySize%4 != 0 {
		return fmt.Errorf("%w: memory_size %d must be a positive multiple of 4", ErrInvalidConfig, c.MemorySize)
	}
	if _, err := pipeline.ParseHazardPolicy(c.HazardPolicy); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := c.branchPredictor(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	for name, cc := range map[string]CacheConfig{"icache": c.ICache, "dcache": c.DCache} {
		if !cc.Enabled {
			continue
		}
		geometry, err := cc.Build()
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, name, err)
		}
		if c.MemorySize%uint32(geometry.BlockSize()) != 0 {
			return fmt.Errorf("%w: %s block size %d does not divide memory_size",
				ErrInvalidConfig, name, geometry.BlockSize())
		}
	}

	switch c.Scheduler.Policy {
	case PolicyRoundRobin, "":
	case PolicyTimeSlice:
		if c.Scheduler.Quantum == 0 {
			return fmt.Errorf("%w: scheduler quantum must be > 0", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown scheduler policy %q", ErrInvalidConfig, c.Scheduler.Policy)
	}

	return nil
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Build converts the cache description into a cache.Config.
func (cc CacheConfig) Build() (cache.Config, error) {
	replacement, err := cache.ParseReplacement(cc.Replacement)
	if err != nil {
		return cache.Config{}, err
	}
	writePolicy, err := cache.ParseWritePolicy(cc.WritePolicy)
	if err != nil {
		return cache.Config{}, err
	}

	config := cache.SetAssociative(cc.OffsetBits, cc.IndexBits, cc.Ways)
	config.Replacement = replacement
	config.WritePolicy = writePolicy
	config.HitLatency = cc.HitLatency
	config.MissLatency = cc.MissLatency
	config.Seed = cc.Seed

	if err := config.Validate(); err != nil {
		return cache.Config{}, err
	}

	return config, nil
}

func (c *Config) branchPredictor() (pipeline.BranchPredictor, error) {
	kind, err := pipeline.ParsePredictorKind(c.Predictor.Kind)
	if err != nil {
		return nil, err
	}

	return pipeline.NewBranchPredictor(pipeline.BranchPredictorConfig{
		Kind:        kind,
		TableSize:   c.Predictor.TableSize,
		HistoryBits: c.Predictor.HistoryBits,
	})
}

// PipelineOptions builds the options for a pipeline running over memory.
// Every call creates fresh caches and predictor state, so each program
// context gets its own.
func (c *Config) PipelineOptions(memory *emu.Memory) ([]pipeline.PipelineOption, error) {
	policy, err := pipeline.ParseHazardPolicy(c.HazardPolicy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	bp, err := c.branchPredictor()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	opts := []pipeline.PipelineOption{
		pipeline.WithHazardPolicy(policy),
		pipeline.WithBranchPredictor(bp),
		pipeline.WithMaxCycles(c.MaxCycles),
	}

	if c.ICache.Enabled {
		ic, err := newCache(c.ICache, memory)
		if err != nil {
			return nil, fmt.Errorf("icache: %w", err)
		}
		opts = append(opts, pipeline.WithICache(ic))
	}

	if c.DCache.Enabled {
		dc, err := newCache(c.DCache, memory)
		if err != nil {
			return nil, fmt.Errorf("dcache: %w", err)
		}
		opts = append(opts, pipeline.WithDCache(dc))
	}

	return opts, nil
}

func newCache(cc CacheConfig, memory *emu.Memory) (*cache.Cache, error) {
	config, err := cc.Build()
	if err != nil {
		return nil, err
	}
	return cache.New(config, memory)
}

// SchedulerOptions builds the options for a multi-context scheduler.
func (c *Config) SchedulerOptions() []core.SchedulerOption {
	var opts []core.SchedulerOption

	if c.Scheduler.Policy == PolicyTimeSlice {
		opts = append(opts, core.TimeSlice(c.Scheduler.Quantum))
	} else {
		opts = append(opts, core.RoundRobin())
	}

	if c.Scheduler.HoldOnStall {
		opts = append(opts, core.WithHoldOnStall())
	}

	return opts
}
