package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/config"
	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
	"github.com/sarchlab/mipsim/timing/core"
	"github.com/sarchlab/mipsim/timing/pipeline"
)

var _ = Describe("Config", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	Describe("Default", func() {
		It("should be valid", func() {
			Expect(config.Default().Validate()).To(Succeed())
		})

		It("should forward and predict with two-level local history", func() {
			c := config.Default()
			Expect(c.HazardPolicy).To(Equal("forwarding"))
			Expect(c.Predictor.Kind).To(Equal("two-level-local"))
			Expect(c.ICache.Enabled).To(BeTrue())
			Expect(c.DCache.WritePolicy).To(Equal("write-back"))
			Expect(c.Scheduler.Policy).To(Equal(config.PolicyRoundRobin))
		})
	})

	Describe("Save and Load", func() {
		It("should round-trip JSON", func() {
			path := filepath.Join(dir, "sim.json")
			c := config.Default()
			c.HazardPolicy = "stalling"
			c.DCache.Replacement = "second-chance"

			Expect(c.Save(path)).To(Succeed())
			loaded, err := config.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(c))
		})

		It("should round-trip YAML", func() {
			path := filepath.Join(dir, "sim.yaml")
			c := config.Default()
			c.Predictor.Kind = "bimodal"
			c.Scheduler = config.SchedulerConfig{Policy: config.PolicyTimeSlice, Quantum: 8, HoldOnStall: true}

			Expect(c.Save(path)).To(Succeed())
			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring("hazard_policy: forwarding"))

			loaded, err := config.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(c))
		})

		It("should keep defaults for missing fields", func() {
			path := filepath.Join(dir, "partial.yml")
			Expect(os.WriteFile(path, []byte("hazard_policy: stalling\n"), 0644)).To(Succeed())

			loaded, err := config.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.HazardPolicy).To(Equal("stalling"))
			Expect(loaded.MemorySize).To(Equal(config.Default().MemorySize))
			Expect(loaded.ICache).To(Equal(config.Default().ICache))
		})

		It("should reject malformed files", func() {
			path := filepath.Join(dir, "bad.json")
			Expect(os.WriteFile(path, []byte("{"), 0644)).To(Succeed())

			_, err := config.Load(path)
			Expect(err).To(HaveOccurred())
		})

		It("should reject invalid values", func() {
			path := filepath.Join(dir, "bad.json")
			Expect(os.WriteFile(path, []byte(`{"hazard_policy": "guess"}`), 0644)).To(Succeed())

			_, err := config.Load(path)
			Expect(err).To(MatchError(config.ErrInvalidConfig))
		})

		It("should report a missing file", func() {
			_, err := config.Load(filepath.Join(dir, "missing.json"))
			Expect(err).To(MatchError(os.ErrNotExist))
		})
	})

	Describe("Validate", func() {
		DescribeTable("should reject",
			func(mutate func(c *config.Config)) {
				c := config.Default()
				mutate(c)
				Expect(c.Validate()).To(MatchError(config.ErrInvalidConfig))
			},
			Entry("zero memory", func(c *config.Config) { c.MemorySize = 0 }),
			Entry("unaligned memory", func(c *config.Config) { c.MemorySize = 0x1002 }),
			Entry("unknown predictor", func(c *config.Config) { c.Predictor.Kind = "oracle" }),
			Entry("odd predictor table", func(c *config.Config) { c.Predictor.TableSize = 100 }),
			Entry("unknown replacement", func(c *config.Config) { c.ICache.Replacement = "fifo" }),
			Entry("unknown write policy", func(c *config.Config) { c.DCache.WritePolicy = "write-around" }),
			Entry("zero ways", func(c *config.Config) { c.DCache.Ways = 0 }),
			Entry("block larger than memory", func(c *config.Config) {
				c.MemorySize = 64
				c.ICache.OffsetBits = 8
			}),
			Entry("unknown scheduler", func(c *config.Config) { c.Scheduler.Policy = "lottery" }),
			Entry("zero quantum", func(c *config.Config) {
				c.Scheduler = config.SchedulerConfig{Policy: config.PolicyTimeSlice}
			}),
		)

		It("should ignore the geometry of a disabled cache", func() {
			c := config.Default()
			c.ICache = config.CacheConfig{Enabled: false}
			Expect(c.Validate()).To(Succeed())
		})
	})

	Describe("Clone", func() {
		It("should copy independently", func() {
			c := config.Default()
			clone := c.Clone()
			clone.ICache.Ways = 1

			Expect(c.ICache.Ways).To(Equal(4))
		})
	})

	Describe("PipelineOptions", func() {
		run := func(c *config.Config) (*pipeline.Pipeline, int32) {
			memory := emu.NewMemory(c.MemorySize)
			Expect(memory.LoadWords(0, []uint32{
				insts.ADDIU(insts.RegT0, insts.RegZero, 3),
				insts.SW(insts.RegT0, -4, insts.RegSP),
				insts.LW(insts.RegV0, -4, insts.RegSP),
				insts.JR(insts.RegRA),
			})).To(Succeed())

			opts, err := c.PipelineOptions(memory)
			Expect(err).NotTo(HaveOccurred())

			p := pipeline.NewPipeline(emu.NewRegFile(memory.Size()), memory, opts...)
			v, err := p.Run()
			Expect(err).NotTo(HaveOccurred())
			return p, v
		}

		It("should build caches and policies", func() {
			c := config.Default()
			c.MemorySize = 0x10000

			p, v := run(c)
			Expect(v).To(Equal(int32(3)))
			Expect(p.HazardPolicy()).To(Equal(pipeline.HazardForwarding))
			Expect(p.ICacheStats().Accesses()).To(BeNumerically(">", 0))
			Expect(p.DCacheStats().Writes).To(Equal(uint64(1)))
		})

		It("should bypass disabled caches", func() {
			c := config.Default()
			c.MemorySize = 0x10000
			c.ICache.Enabled = false
			c.DCache.Enabled = false
			c.HazardPolicy = "stalling"

			p, v := run(c)
			Expect(v).To(Equal(int32(3)))
			Expect(p.HazardPolicy()).To(Equal(pipeline.HazardStalling))
			Expect(p.ICacheStats().Accesses()).To(BeZero())
		})

		It("should reject an invalid predictor", func() {
			c := config.Default()
			c.Predictor.Kind = "oracle"

			_, err := c.PipelineOptions(emu.NewMemory(0x1000))
			Expect(err).To(MatchError(config.ErrInvalidConfig))
		})
	})

	Describe("SchedulerOptions", func() {
		It("should drive a scheduler", func() {
			c := config.Default()
			c.MemorySize = 0x1000
			c.Scheduler = config.SchedulerConfig{Policy: config.PolicyTimeSlice, Quantum: 4, HoldOnStall: true}

			var cores []*core.Core
			for _, name := range []string{"a", "b"} {
				memory := emu.NewMemory(c.MemorySize)
				Expect(memory.LoadWords(0, []uint32{
					insts.ADDIU(insts.RegV0, insts.RegZero, 9),
					insts.JR(insts.RegRA),
				})).To(Succeed())
				opts, err := c.PipelineOptions(memory)
				Expect(err).NotTo(HaveOccurred())
				cores = append(cores, core.NewCore(name, emu.NewRegFile(memory.Size()), memory, opts...))
			}

			results, err := core.NewScheduler(cores, c.SchedulerOptions()...).Run()
			Expect(err).NotTo(HaveOccurred())
			Expect(results[0].Value).To(Equal(int32(9)))
			Expect(results[1].Value).To(Equal(int32(9)))
		})
	})
})
