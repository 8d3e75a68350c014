// Package cache provides configurable cache modeling using Akita cache
// components.
package cache

import (
	"encoding/binary"
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Hit indicates whether the access was a cache hit.
	Hit bool
	// Latency is the number of cycles this access takes.
	Latency uint64
	// Data is the word read (for load operations).
	Data uint32
	// Evicted is true if a valid block was replaced.
	Evicted bool
	// EvictedAddr is the address of the evicted block (if Evicted is true).
	EvictedAddr uint32
	// WrittenBack is true if the evicted block was dirty.
	WrittenBack bool
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64

	// MemoryReads counts block fills from the backing store.
	MemoryReads uint64
	// MemoryWrites counts transfers to the backing store: dirty blocks
	// under write-back, individual stores under write-through.
	MemoryWrites uint64

	// Cycles is the accumulated access latency.
	Cycles uint64
}

// Accesses returns the number of reads and writes.
func (s Statistics) Accesses() uint64 {
	return s.Reads + s.Writes
}

// HitRate returns hits per access.
func (s Statistics) HitRate() float64 {
	if s.Accesses() == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Accesses())
}

// Cache is a word-addressed cache in front of a backing store. Tags live in an
// Akita directory; line data is held alongside, indexed by set and way.
type Cache struct {
	config Config

	directory *akitacache.DirectoryImpl
	finder    victimFinder

	// indexed by (setID * ways + wayID)
	dataStore [][]byte

	stats   Statistics
	backing BackingStore
}

// New creates a cache with the given configuration over backing.
func New(config Config, backing BackingStore) (*Cache, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if backing.Size()%uint32(config.BlockSize()) != 0 {
		return nil, fmt.Errorf("%w: memory size 0x%x is not a multiple of the %d-byte line",
			ErrInvalidConfig, backing.Size(), config.BlockSize())
	}

	dataStore := make([][]byte, config.NumLines())
	for i := range dataStore {
		dataStore[i] = make([]byte, config.BlockSize())
	}

	finder := newVictimFinder(config)

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			config.NumSets(),
			config.Ways,
			config.BlockSize(),
			finder,
		),
		finder:    finder,
		dataStore: dataStore,
		backing:   backing,
	}, nil
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears cache statistics. Resident lines are kept.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Ways + block.WayID
}

func (c *Cache) blockAddr(addr uint32) uint32 {
	return addr &^ uint32(c.config.BlockSize()-1)
}

func (c *Cache) offset(addr uint32) uint32 {
	return addr & uint32(c.config.BlockSize()-1)
}

// Read performs a cache read of the word at addr.
func (c *Cache) Read(addr uint32) (AccessResult, error) {
	if err := checkWordAddr(addr, c.backing.Size()); err != nil {
		return AccessResult{}, err
	}

	c.stats.Reads++

	block, result, err := c.access(addr)
	if err != nil {
		return result, err
	}

	result.Data = binary.BigEndian.Uint32(c.dataStore[c.blockIndex(block)][c.offset(addr):])
	return result, nil
}

// Write performs a cache write of value to the word at addr.
// Uses write-allocate policy: on miss, fetch the block first, then write.
func (c *Cache) Write(addr, value uint32) (AccessResult, error) {
	if err := checkWordAddr(addr, c.backing.Size()); err != nil {
		return AccessResult{}, err
	}

	c.stats.Writes++

	block, result, err := c.access(addr)
	if err != nil {
		return result, err
	}

	line := c.dataStore[c.blockIndex(block)]
	binary.BigEndian.PutUint32(line[c.offset(addr):], value)

	if c.config.WritePolicy == WriteThrough {
		if err := c.backing.WriteBlock(addr, line[c.offset(addr):c.offset(addr)+4]); err != nil {
			return result, fmt.Errorf("write-through 0x%08x: %w", addr, err)
		}
		c.stats.MemoryWrites++
	} else {
		block.IsDirty = true
	}

	return result, nil
}

// access returns the line holding addr, filling it on a miss.
func (c *Cache) access(addr uint32) (*akitacache.Block, AccessResult, error) {
	blockAddr := c.blockAddr(addr)

	block := c.directory.Lookup(0, uint64(blockAddr))
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.stats.Cycles += c.config.HitLatency
		c.directory.Visit(block)
		c.finder.touch(block)

		return block, AccessResult{Hit: true, Latency: c.config.HitLatency}, nil
	}

	c.stats.Misses++
	c.stats.Cycles += c.config.MissLatency
	result := AccessResult{Latency: c.config.MissLatency}

	victim := c.directory.FindVictim(uint64(blockAddr))
	victimData := c.dataStore[c.blockIndex(victim)]

	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = uint32(victim.Tag)

		if victim.IsDirty {
			if err := c.writeBack(victim); err != nil {
				return nil, result, err
			}
			result.WrittenBack = true
		}
	}

	if err := c.backing.ReadBlock(blockAddr, victimData); err != nil {
		return nil, result, fmt.Errorf("fill 0x%08x: %w", blockAddr, err)
	}
	c.stats.MemoryReads++

	victim.Tag = uint64(blockAddr)
	victim.IsValid = true
	victim.IsDirty = false

	c.directory.Visit(victim)
	c.finder.touch(victim)

	return victim, result, nil
}

func (c *Cache) writeBack(block *akitacache.Block) error {
	if err := c.backing.WriteBlock(uint32(block.Tag), c.dataStore[c.blockIndex(block)]); err != nil {
		return fmt.Errorf("write back 0x%08x: %w", block.Tag, err)
	}
	block.IsDirty = false
	c.stats.Writebacks++
	c.stats.MemoryWrites++
	return nil
}

// ReadWord reads the word at addr through the cache.
func (c *Cache) ReadWord(addr uint32) (uint32, error) {
	result, err := c.Read(addr)
	return result.Data, err
}

// WriteWord writes the word at addr through the cache.
func (c *Cache) WriteWord(addr, value uint32) error {
	_, err := c.Write(addr, value)
	return err
}

// Contains reports whether the line holding addr is resident.
func (c *Cache) Contains(addr uint32) bool {
	block := c.directory.Lookup(0, uint64(c.blockAddr(addr)))
	return block != nil && block.IsValid
}

// DirtyLines returns the number of lines not yet written to memory.
func (c *Cache) DirtyLines() int {
	n := 0
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty {
				n++
			}
		}
	}
	return n
}

// Flush writes back all dirty blocks and invalidates them.
func (c *Cache) Flush() error {
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty {
				if err := c.writeBack(block); err != nil {
					return err
				}
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
	return nil
}

// Reset invalidates all cache lines without writeback.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.finder.reset()
	c.ResetStats()
}
