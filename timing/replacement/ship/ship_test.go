package ship_test

import (
	"math/rand/v2"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/shipsim/timing/replacement/ship"
)

var _ = Describe("Policy", func() {
	var (
		p     *ship.Policy
		cycle uint64
	)

	newPolicy := func(config ship.Config) *ship.Policy {
		policy, err := ship.New(config, ship.WithLogger(GinkgoLogr))
		Expect(err).NotTo(HaveOccurred())
		return policy
	}

	// access runs one non-write access through the update path with a fresh
	// cycle stamp.
	access := func(set, way int, addr, pc uint64, hit bool) {
		cycle++
		p.UpdateReplacementState(ship.Request{
			Set:       set,
			Way:       way,
			Address:   addr,
			Signature: pc,
			Type:      ship.AccessLoad,
			Hit:       hit,
			Cycle:     cycle,
		})
	}

	BeforeEach(func() {
		cycle = 0
	})

	Describe("Configuration", func() {
		It("should reject an empty geometry", func() {
			_, err := ship.New(ship.Config{Associativity: 4, NumCores: 1})
			Expect(err).To(MatchError(ContainSubstring("num_sets")))

			_, err = ship.New(ship.Config{NumSets: 16, NumCores: 1})
			Expect(err).To(MatchError(ContainSubstring("associativity")))

			_, err = ship.New(ship.Config{NumSets: 16, Associativity: 4})
			Expect(err).To(MatchError(ContainSubstring("num_cores")))
		})

		It("should apply defaults", func() {
			p = newPolicy(ship.Config{NumSets: 1024, Associativity: 16, NumCores: 1})
			Expect(p.Config().BlockSize).To(Equal(ship.DefaultBlockSize))
			Expect(p.Config().SamplerSetsPerCore).To(Equal(ship.DefaultSamplerSetsPerCore))
		})
	})

	Describe("Initialization", func() {
		It("should sample 256 sets per core, unique and sorted", func() {
			for _, cores := range []int{1, 2, 4} {
				p = newPolicy(ship.Config{NumSets: 2048 * cores, Associativity: 16, NumCores: cores})
				sets := p.SampledSets()

				Expect(sets).To(HaveLen(256 * cores))
				for i := 1; i < len(sets); i++ {
					Expect(sets[i]).To(BeNumerically(">", sets[i-1]))
				}
				Expect(sets[0]).To(BeNumerically(">=", 0))
				Expect(sets[len(sets)-1]).To(BeNumerically("<", 2048*cores))
			}
		})

		It("should pick the same sets for the same geometry", func() {
			config := ship.Config{NumSets: 4096, Associativity: 16, NumCores: 2}
			first := newPolicy(config).SampledSets()
			second := newPolicy(config).SampledSets()
			Expect(second).To(Equal(first))

			p = newPolicy(config)
			p.Initialize()
			Expect(p.SampledSets()).To(Equal(first))
		})

		It("should sample every set of a small cache", func() {
			p = newPolicy(ship.Config{NumSets: 8, Associativity: 4, NumCores: 1})
			Expect(p.SampledSets()).To(Equal([]int{0, 1, 2, 3, 4, 5, 6, 7}))
		})

		It("should start every line at MaxRRPV", func() {
			p = newPolicy(ship.Config{NumSets: 512, Associativity: 8, NumCores: 1})
			for set := 0; set < 512; set++ {
				for way := 0; way < 8; way++ {
					Expect(p.RRPV(set, way)).To(Equal(uint8(ship.MaxRRPV)))
				}
			}
		})

		It("should allocate SHCT tables lazily", func() {
			p = newPolicy(ship.Config{NumSets: 1, Associativity: 4, NumCores: 2})
			Expect(p.HasSHCT(0)).To(BeFalse())
			Expect(p.HasSHCT(1)).To(BeFalse())

			access(0, 0, 0x1000, 0x100, false)
			Expect(p.HasSHCT(0)).To(BeTrue())
			Expect(p.HasSHCT(1)).To(BeFalse())
		})
	})

	Describe("Victim selection", func() {
		BeforeEach(func() {
			p = newPolicy(ship.Config{NumSets: 1, Associativity: 4, NumCores: 1})
		})

		It("should fill the first way of a cold set at MaxRRPV-1", func() {
			way := p.FindVictim(ship.Request{Set: 0, Address: 0xA000, Signature: 0x100})
			Expect(way).To(Equal(0))

			access(0, way, 0xA000, 0x100, false)
			Expect(p.RRPV(0, 0)).To(Equal(uint8(2)))
			Expect(p.SHCTCounter(0, 0x100)).To(Equal(uint8(0)))
		})

		It("should age the set until a line reaches MaxRRPV", func() {
			for way := 0; way < 4; way++ {
				access(0, way, uint64(0x1000+way*64), 0x100, false)
			}
			access(0, 2, 0x1080, 0x100, true)
			// RRPVs are now 2, 2, 0, 2.

			way := p.FindVictim(ship.Request{Set: 0})
			Expect(way).To(Equal(0))
			Expect(p.RRPV(0, 0)).To(Equal(uint8(3)))
			Expect(p.RRPV(0, 1)).To(Equal(uint8(3)))
			Expect(p.RRPV(0, 2)).To(Equal(uint8(1)))
			Expect(p.RRPV(0, 3)).To(Equal(uint8(3)))
			Expect(p.Stats().AgingPasses).To(Equal(uint64(1)))
		})

		It("should always return a way at MaxRRPV and keep values in range", func() {
			rng := rand.New(rand.NewPCG(1, 2))
			p = newPolicy(ship.Config{NumSets: 4, Associativity: 4, NumCores: 2})

			for i := 0; i < 2000; i++ {
				set := rng.IntN(4)
				req := ship.Request{
					Core:      rng.IntN(2),
					Set:       set,
					Address:   uint64(rng.IntN(64)) * 64,
					Signature: uint64(rng.IntN(8)),
					Type:      ship.AccessType(rng.IntN(5)),
					Cycle:     uint64(i),
				}

				if rng.IntN(2) == 0 {
					req.Way = p.FindVictim(req)
					Expect(p.RRPV(set, req.Way)).To(Equal(uint8(ship.MaxRRPV)))
				} else {
					req.Way = rng.IntN(4)
					req.Hit = true
				}
				p.UpdateReplacementState(req)

				for s := 0; s < 4; s++ {
					for w := 0; w < 4; w++ {
						Expect(p.RRPV(s, w)).To(BeNumerically("<=", ship.MaxRRPV))
					}
				}
			}
		})
	})

	Describe("Update", func() {
		BeforeEach(func() {
			p = newPolicy(ship.Config{NumSets: 1, Associativity: 8, NumCores: 2})
		})

		It("should promote a hit to RRPV 0", func() {
			access(0, 3, 0x2000, 0x100, false)
			Expect(p.RRPV(0, 3)).To(Equal(uint8(2)))

			access(0, 3, 0x2000, 0x100, true)
			Expect(p.RRPV(0, 3)).To(Equal(uint8(0)))
		})

		It("should insert writeback fills at MaxRRPV-1 without training", func() {
			access(0, 0, 0x3000, 0x200, false)
			access(0, 0, 0x3000, 0x200, true)
			before, ok := p.SamplerEntry(0, 0)
			Expect(ok).To(BeTrue())

			p.UpdateReplacementState(ship.Request{
				Core:      1,
				Set:       0,
				Way:       5,
				Address:   0x3000,
				Signature: 0x200,
				Type:      ship.AccessWrite,
				Cycle:     100,
			})

			Expect(p.RRPV(0, 5)).To(Equal(uint8(ship.MaxRRPV - 1)))
			Expect(p.HasSHCT(1)).To(BeFalse())
			Expect(p.SHCTCounter(0, 0x200)).To(Equal(uint8(0)))
			after, _ := p.SamplerEntry(0, 0)
			Expect(after).To(Equal(before))
			Expect(p.Stats().WriteFills).To(Equal(uint64(1)))
		})

		It("should promote a writeback hit without training", func() {
			access(0, 1, 0x4000, 0x100, false)
			Expect(p.RRPV(0, 1)).To(Equal(uint8(ship.MaxRRPV - 1)))
			before := p.Stats()

			p.UpdateReplacementState(ship.Request{
				Set: 0, Way: 1, Address: 0x4000, Signature: 0x100,
				Type: ship.AccessWrite, Hit: true,
			})

			Expect(p.RRPV(0, 1)).To(Equal(uint8(0)))
			after := p.Stats()
			Expect(after.Hits).To(Equal(before.Hits + 1))
			Expect(after.SamplerHits).To(Equal(before.SamplerHits))
			Expect(after.SamplerMisses).To(Equal(before.SamplerMisses))
		})
	})

	Describe("Sampler training", func() {
		const (
			hotPC  = uint64(0x400100)
			scanPC = uint64(0x400200)
		)

		BeforeEach(func() {
			p = newPolicy(ship.Config{NumSets: 1, Associativity: 8, NumCores: 1})
		})

		// saturate installs eight lines with hotPC, reuses each once and then
		// pushes them out of the sampler with eight scanPC lines. Each
		// eviction of a reused entry bumps hotPC's counter.
		saturate := func() {
			for i := 0; i < 8; i++ {
				access(0, i, uint64(0x10000+i*64), hotPC, false)
			}
			for i := 0; i < 8; i++ {
				access(0, i, uint64(0x10000+i*64), hotPC, true)
			}
			for i := 0; i < 8; i++ {
				access(0, i, uint64(0x20000+i*64), scanPC, false)
			}
		}

		It("should install sampler entries on a miss", func() {
			access(0, 0, 0x10010, hotPC, false)

			entry, ok := p.SamplerEntry(0, 0)
			Expect(ok).To(BeTrue())
			Expect(entry.Valid).To(BeTrue())
			Expect(entry.Used).To(BeFalse())
			Expect(entry.Address).To(Equal(uint64(0x10010)))
			Expect(entry.LineAddress).To(Equal(uint64(0x10000)))
			Expect(entry.Signature).To(Equal(hotPC))
			Expect(entry.LastUsed).To(Equal(uint64(1)))
		})

		It("should mark entries used on a sampler hit", func() {
			access(0, 0, 0x10000, hotPC, false)
			access(0, 0, 0x10008, hotPC, true)

			entry, _ := p.SamplerEntry(0, 0)
			Expect(entry.Used).To(BeTrue())
			Expect(entry.LastUsed).To(Equal(uint64(2)))
			Expect(p.Stats().SamplerHits).To(Equal(uint64(1)))
		})

		It("should saturate the counter of a signature whose reused lines get evicted", func() {
			saturate()

			Expect(p.SHCTCounter(0, hotPC)).To(Equal(uint8(ship.SHCTMax)))
			Expect(p.SHCTCounter(0, scanPC)).To(Equal(uint8(0)))
			Expect(p.Stats().SamplerUsedEvictions).To(Equal(uint64(8)))
			Expect(p.Stats().SHCTIncrements).To(Equal(uint64(7)))
		})

		It("should insert fills of a saturated signature at MaxRRPV", func() {
			saturate()

			access(0, 4, 0x30000, hotPC, false)
			Expect(p.RRPV(0, 4)).To(Equal(uint8(ship.MaxRRPV)))
			Expect(p.Stats().DeadOnArrivalFills).To(Equal(uint64(1)))

			access(0, 5, 0x30040, scanPC, false)
			Expect(p.RRPV(0, 5)).To(Equal(uint8(ship.MaxRRPV - 1)))
		})

		It("should decrement by exactly one on a sampler hit", func() {
			saturate()

			access(0, 0, 0x30000, hotPC, false)
			Expect(p.SHCTCounter(0, hotPC)).To(Equal(uint8(7)))

			access(0, 0, 0x30000, hotPC, true)
			Expect(p.SHCTCounter(0, hotPC)).To(Equal(uint8(6)))
		})

		It("should leave a saturated counter alone on a writeback miss", func() {
			saturate()
			access(0, 0, 0x30000, hotPC, false)
			before := p.Stats()

			cycle++
			p.UpdateReplacementState(ship.Request{
				Set: 0, Way: 1, Address: 0x30000, Signature: hotPC,
				Type: ship.AccessWrite, Cycle: cycle,
			})

			Expect(p.RRPV(0, 1)).To(Equal(uint8(ship.MaxRRPV - 1)))
			Expect(p.SHCTCounter(0, hotPC)).To(Equal(uint8(ship.SHCTMax)))
			after := p.Stats()
			Expect(after.SamplerHits).To(Equal(before.SamplerHits))
			Expect(after.SHCTDecrements).To(Equal(before.SHCTDecrements))
		})

		It("should not decrement below zero", func() {
			access(0, 0, 0x10000, hotPC, false)
			for i := 0; i < 5; i++ {
				access(0, 0, 0x10000, hotPC, true)
			}

			Expect(p.SHCTCounter(0, hotPC)).To(Equal(uint8(0)))
			Expect(p.Stats().SHCTDecrements).To(Equal(uint64(0)))
		})

		It("should keep training separate per core", func() {
			saturate()

			p.UpdateReplacementState(ship.Request{
				Core: 1, Set: 0, Way: 2, Address: 0x50000, Signature: hotPC,
				Type: ship.AccessLoad, Cycle: 1000,
			})
			Expect(p.RRPV(0, 2)).To(Equal(uint8(ship.MaxRRPV - 1)))
			Expect(p.SHCTCounter(1, hotPC)).To(Equal(uint8(0)))
		})

		It("should keep counters within range under random traffic", func() {
			rng := rand.New(rand.NewPCG(7, 11))
			p = newPolicy(ship.Config{NumSets: 2, Associativity: 4, NumCores: 2})

			for i := 0; i < 5000; i++ {
				core := rng.IntN(2)
				p.UpdateReplacementState(ship.Request{
					Core:      core,
					Set:       rng.IntN(2),
					Way:       rng.IntN(4),
					Address:   uint64(rng.IntN(16)) * 64,
					Signature: uint64(rng.IntN(4)),
					Type:      ship.AccessLoad,
					Hit:       rng.IntN(2) == 0,
					Cycle:     uint64(i + 1),
				})

				for sig := uint64(0); sig < 4; sig++ {
					Expect(p.SHCTCounter(core, sig)).To(BeNumerically("<=", ship.SHCTMax))
				}
			}
		})

		It("should not train on sets outside the sampler", func() {
			p = newPolicy(ship.Config{NumSets: 4096, Associativity: 4, NumCores: 1})

			set := 0
			for p.IsSampled(set) {
				set++
			}

			access(set, 0, 0x1000, hotPC, false)
			access(set, 0, 0x1000, hotPC, true)
			Expect(p.Stats().SamplerHits).To(Equal(uint64(0)))
			Expect(p.Stats().SamplerMisses).To(Equal(uint64(0)))
			Expect(p.RRPV(set, 0)).To(Equal(uint8(0)))
		})
	})

	Describe("Access types", func() {
		It("should round-trip names", func() {
			for _, t := range []ship.AccessType{
				ship.AccessLoad, ship.AccessRFO, ship.AccessPrefetch,
				ship.AccessWrite, ship.AccessTranslation,
			} {
				parsed, err := ship.ParseAccessType(t.String())
				Expect(err).NotTo(HaveOccurred())
				Expect(parsed).To(Equal(t))
			}
		})

		It("should parse names case-insensitively", func() {
			parsed, err := ship.ParseAccessType("rfo")
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed).To(Equal(ship.AccessRFO))
		})

		It("should reject unknown names", func() {
			_, err := ship.ParseAccessType("FLUSH")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Finalize", func() {
		It("should not change the statistics", func() {
			p = newPolicy(ship.Config{NumSets: 1, Associativity: 4, NumCores: 1})
			access(0, 0, 0x1000, 0x100, false)
			before := p.Stats()

			p.Finalize()
			Expect(p.Stats()).To(Equal(before))
		})
	})
})
