package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/timing/cache"
)

var _ = Describe("Cache", func() {
	var (
		c      *cache.Cache
		memory *emu.Memory
	)

	newCache := func(config cache.Config) *cache.Cache {
		built, err := cache.New(config, memory)
		Expect(err).NotTo(HaveOccurred())
		return built
	}

	BeforeEach(func() {
		memory = emu.NewMemory(0x10000)
		// 4KB, 4-way, 64B lines: 16 sets, set stride 1KB
		c = newCache(cache.SetAssociative(6, 4, 4))
	})

	Describe("Read operations", func() {
		It("should miss on cold cache", func() {
			Expect(memory.WriteWord(0x1000, 0xDEADBEEF)).To(Succeed())

			result, err := c.Read(0x1000)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Hit).To(BeFalse())
			Expect(result.Latency).To(Equal(uint64(10)))
			Expect(result.Data).To(Equal(uint32(0xDEADBEEF)))

			stats := c.Stats()
			Expect(stats.Reads).To(Equal(uint64(1)))
			Expect(stats.Misses).To(Equal(uint64(1)))
			Expect(stats.Hits).To(Equal(uint64(0)))
			Expect(stats.MemoryReads).To(Equal(uint64(1)))
		})

		It("should hit on cached data", func() {
			Expect(memory.WriteWord(0x1000, 0xCAFEBABE)).To(Succeed())

			_, err := c.Read(0x1000)
			Expect(err).NotTo(HaveOccurred())

			result, err := c.Read(0x1000)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Hit).To(BeTrue())
			Expect(result.Latency).To(Equal(uint64(1)))
			Expect(result.Data).To(Equal(uint32(0xCAFEBABE)))

			stats := c.Stats()
			Expect(stats.Hits).To(Equal(uint64(1)))
			Expect(stats.HitRate()).To(BeNumerically("~", 0.5))
			Expect(stats.Cycles).To(Equal(uint64(11)))
		})

		It("should hit on different addresses in same cache line", func() {
			Expect(memory.WriteWord(0x1000, 0x11111111)).To(Succeed())
			Expect(memory.WriteWord(0x1004, 0x22222222)).To(Succeed())

			_, err := c.Read(0x1000)
			Expect(err).NotTo(HaveOccurred())

			result, err := c.Read(0x1004)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Hit).To(BeTrue())
			Expect(result.Data).To(Equal(uint32(0x22222222)))
		})
	})

	Describe("Errors", func() {
		It("should report out-of-range addresses without touching the cache", func() {
			_, err := c.Read(0x10000)
			Expect(err).To(MatchError(emu.ErrAddressOutOfRange))

			_, err = c.Write(0xFFFFFFFC, 1)
			Expect(err).To(MatchError(emu.ErrAddressOutOfRange))

			Expect(c.Stats()).To(BeZero())
		})

		It("should reject unaligned words", func() {
			_, err := c.Read(0x1002)
			Expect(err).To(MatchError(emu.ErrUnalignedAccess))
		})

		It("should reject invalid geometries", func() {
			_, err := cache.New(cache.SetAssociative(1, 4, 4), memory)
			Expect(err).To(MatchError(cache.ErrInvalidConfig))

			_, err = cache.New(cache.SetAssociative(6, 4, 0), memory)
			Expect(err).To(MatchError(cache.ErrInvalidConfig))
		})
	})

	Describe("Write-back", func() {
		It("should write-allocate on miss", func() {
			result, err := c.Write(0x1000, 0x12345678)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Hit).To(BeFalse())

			readResult, err := c.Read(0x1000)
			Expect(err).NotTo(HaveOccurred())
			Expect(readResult.Hit).To(BeTrue())
			Expect(readResult.Data).To(Equal(uint32(0x12345678)))
		})

		It("should keep stores in the cache until eviction", func() {
			Expect(c.WriteWord(0x1000, 0x11111111)).To(Succeed())

			Expect(memory.ReadWord(0x1000)).To(BeZero())
			Expect(c.DirtyLines()).To(Equal(1))
			Expect(c.Stats().MemoryWrites).To(BeZero())
		})

		It("should evict the least recently used line when a set is full", func() {
			for _, addr := range []uint32{0x0000, 0x0400, 0x0800, 0x0C00} {
				Expect(c.WriteWord(addr, addr+1)).To(Succeed())
			}

			// Touch all but 0x0000 to make it the LRU line.
			for _, addr := range []uint32{0x0400, 0x0800, 0x0C00} {
				Expect(c.ReadWord(addr)).To(Equal(addr + 1))
			}

			result, err := c.Write(0x1000, 0x55555555)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Evicted).To(BeTrue())
			Expect(result.EvictedAddr).To(Equal(uint32(0x0000)))
			Expect(result.WrittenBack).To(BeTrue())

			Expect(memory.ReadWord(0x0000)).To(Equal(uint32(1)))
			Expect(c.Contains(0x0000)).To(BeFalse())

			stats := c.Stats()
			Expect(stats.Evictions).To(Equal(uint64(1)))
			Expect(stats.Writebacks).To(Equal(uint64(1)))
		})

		It("should write back all dirty blocks on flush", func() {
			Expect(c.WriteWord(0x0000, 0x11111111)).To(Succeed())
			Expect(c.WriteWord(0x1000, 0x22222222)).To(Succeed())

			Expect(memory.ReadWord(0x0000)).To(BeZero())

			Expect(c.Flush()).To(Succeed())

			Expect(memory.ReadWord(0x0000)).To(Equal(uint32(0x11111111)))
			Expect(memory.ReadWord(0x1000)).To(Equal(uint32(0x22222222)))
			Expect(c.DirtyLines()).To(BeZero())
			Expect(c.Stats().Writebacks).To(Equal(uint64(2)))
		})
	})

	Describe("Write-through", func() {
		BeforeEach(func() {
			config := cache.SetAssociative(6, 4, 4)
			config.WritePolicy = cache.WriteThrough
			c = newCache(config)
		})

		It("should update memory on every store", func() {
			Expect(c.WriteWord(0x1000, 0xAAAA)).To(Succeed())
			Expect(c.WriteWord(0x1000, 0xBBBB)).To(Succeed())

			Expect(memory.ReadWord(0x1000)).To(Equal(uint32(0xBBBB)))
			Expect(c.ReadWord(0x1000)).To(Equal(uint32(0xBBBB)))
			Expect(c.DirtyLines()).To(BeZero())
			Expect(c.Stats().MemoryWrites).To(Equal(uint64(2)))
		})

		It("should never write back on eviction", func() {
			for _, addr := range []uint32{0x0000, 0x0400, 0x0800, 0x0C00, 0x1000} {
				Expect(c.WriteWord(addr, 7)).To(Succeed())
			}

			Expect(c.Stats().Evictions).To(Equal(uint64(1)))
			Expect(c.Stats().Writebacks).To(BeZero())
		})
	})

	Describe("Mappings", func() {
		It("should conflict on the same index when direct mapped", func() {
			// 16B lines, 4 sets
			c = newCache(cache.DirectMapped(4, 2))

			Expect(c.WriteWord(0x00, 1)).To(Succeed())
			Expect(c.WriteWord(0x40, 2)).To(Succeed())

			Expect(c.Contains(0x00)).To(BeFalse())
			Expect(c.Contains(0x40)).To(BeTrue())
			Expect(c.ReadWord(0x00)).To(Equal(uint32(1)))
		})

		It("should place any line anywhere when fully associative", func() {
			c = newCache(cache.FullyAssociative(4, 2))
			Expect(c.Config().NumSets()).To(Equal(1))
			Expect(c.Config().NumLines()).To(Equal(4))

			for _, addr := range []uint32{0x00, 0x40, 0x80, 0xC0} {
				_, err := c.Read(addr)
				Expect(err).NotTo(HaveOccurred())
			}
			for _, addr := range []uint32{0x00, 0x40, 0x80, 0xC0} {
				Expect(c.Contains(addr)).To(BeTrue())
			}
			Expect(c.Stats().Evictions).To(BeZero())
		})
	})

	Describe("Replacement", func() {
		// One set of two 16B ways. A and B fill the set, A is touched again,
		// then C forces an eviction.
		fillAndEvict := func(replacement cache.Replacement) *cache.Cache {
			config := cache.FullyAssociative(4, 1)
			config.Replacement = replacement
			rc := newCache(config)

			for _, addr := range []uint32{0x00, 0x10, 0x00, 0x20} {
				_, err := rc.Read(addr)
				Expect(err).NotTo(HaveOccurred())
			}
			return rc
		}

		It("should evict the least recently used line under LRU", func() {
			rc := fillAndEvict(cache.LRU)

			Expect(rc.Contains(0x00)).To(BeTrue())
			Expect(rc.Contains(0x10)).To(BeFalse())
		})

		It("should sweep the clock under second chance", func() {
			rc := fillAndEvict(cache.LRUSecondChance)

			// Both lines are referenced; the sweep clears them and comes
			// back around to way 0.
			Expect(rc.Contains(0x00)).To(BeFalse())
			Expect(rc.Contains(0x10)).To(BeTrue())
			Expect(rc.Contains(0x20)).To(BeTrue())
		})

		It("should replace deterministically for a fixed seed", func() {
			run := func() []bool {
				config := cache.SetAssociative(4, 0, 4)
				config.Replacement = cache.Random
				config.Seed = 42
				rc := newCache(config)

				for addr := uint32(0); addr < 0x200; addr += 0x10 {
					_, err := rc.Read(addr)
					Expect(err).NotTo(HaveOccurred())
				}

				var resident []bool
				for addr := uint32(0); addr < 0x200; addr += 0x10 {
					resident = append(resident, rc.Contains(addr))
				}
				return resident
			}

			Expect(run()).To(Equal(run()))
		})

		It("should keep data correct under every strategy", func() {
			for _, r := range []cache.Replacement{cache.LRU, cache.LRUSecondChance, cache.Random} {
				config := cache.SetAssociative(4, 1, 2)
				config.Replacement = r
				rc := newCache(config)

				for addr := uint32(0); addr < 0x400; addr += 4 {
					Expect(rc.WriteWord(addr, addr*3)).To(Succeed())
				}
				for addr := uint32(0); addr < 0x400; addr += 4 {
					Expect(rc.ReadWord(addr)).To(Equal(addr*3), "strategy %s", r)
				}
			}
		})
	})

	Describe("Reset", func() {
		It("should drop lines and statistics", func() {
			Expect(c.WriteWord(0x0, 1)).To(Succeed())
			c.Reset()

			Expect(c.Contains(0x0)).To(BeFalse())
			Expect(c.Stats()).To(BeZero())
			Expect(memory.ReadWord(0x0)).To(BeZero())
		})

		It("should clear statistics but keep resident lines", func() {
			Expect(c.WriteWord(0x0, 7)).To(Succeed())
			c.ResetStats()

			Expect(c.Stats()).To(BeZero())
			Expect(c.Contains(0x0)).To(BeTrue())
			Expect(c.DirtyLines()).To(Equal(1))

			result, err := c.Read(0x0)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Hit).To(BeTrue())
			Expect(result.Data).To(Equal(uint32(7)))
			Expect(c.Stats().Reads).To(Equal(uint64(1)))
			Expect(c.Stats().Misses).To(BeZero())
		})
	})
})

var _ = Describe("Config", func() {
	It("should derive the geometry", func() {
		config := cache.SetAssociative(4, 7, 2)

		Expect(config.BlockSize()).To(Equal(16))
		Expect(config.NumSets()).To(Equal(128))
		Expect(config.NumLines()).To(Equal(256))
		Expect(config.Size()).To(Equal(4096))
		Expect(config.Validate()).To(Succeed())
	})

	It("should parse policy names", func() {
		r, err := cache.ParseReplacement("second-chance")
		Expect(err).NotTo(HaveOccurred())
		Expect(r).To(Equal(cache.LRUSecondChance))

		w, err := cache.ParseWritePolicy("write-through")
		Expect(err).NotTo(HaveOccurred())
		Expect(w).To(Equal(cache.WriteThrough))

		_, err = cache.ParseReplacement("fifo")
		Expect(err).To(MatchError(cache.ErrInvalidConfig))
	})
})
