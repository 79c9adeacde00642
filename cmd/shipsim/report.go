package main

import (
	"fmt"

	"github.com/sarchlab/shipsim/timing/cache"
	"github.com/sarchlab/shipsim/timing/replacement/ship"
)

// report is the end-of-run summary.
type report struct {
	Trace  string           `json:"trace"`
	Config cache.Config     `json:"config"`
	Cycles uint64           `json:"cycles"`
	Cache  cache.Statistics `json:"cache"`
	Policy ship.Stats       `json:"policy"`
}

func newReport(tracePath string, c *cache.Cache) report {
	return report{
		Trace:  tracePath,
		Config: c.Config(),
		Cycles: c.Cycle(),
		Cache:  c.Stats(),
		Policy: c.Policy().Stats(),
	}
}

func (r report) print() {
	s := r.Cache
	p := r.Policy

	fmt.Printf("\n")
	fmt.Printf("Trace: %s\n", r.Trace)
	fmt.Printf("Cache: %d KB, %d-way, %d B lines, %d sets, %d core(s)\n",
		r.Config.Size/1024, r.Config.Associativity, r.Config.BlockSize,
		r.Config.NumSets(), r.Config.NumCores)
	fmt.Printf("Cycles: %d\n", r.Cycles)
	fmt.Printf("\n")
	fmt.Printf("Accesses:\n")
	fmt.Printf("  Reads:      %d\n", s.Reads)
	fmt.Printf("  Writes:     %d\n", s.Writes)
	fmt.Printf("  Hits:       %d\n", s.Hits)
	fmt.Printf("  Misses:     %d\n", s.Misses)
	fmt.Printf("  Hit rate:   %.2f%%\n", s.HitRate())
	fmt.Printf("  Evictions:  %d\n", s.Evictions)
	fmt.Printf("  Writebacks: %d\n", s.Writebacks)

	if len(s.PerCore) > 1 {
		fmt.Printf("\n")
		fmt.Printf("Per core:\n")
		for core, cs := range s.PerCore {
			fmt.Printf("  Core %d: %d hits, %d misses\n", core, cs.Hits, cs.Misses)
		}
	}

	fmt.Printf("\n")
	fmt.Printf("SHiP:\n")
	fmt.Printf("  Victims chosen:        %d (%d aging passes)\n", p.Victims, p.AgingPasses)
	fmt.Printf("  Fills:                 %d\n", p.Fills)
	fmt.Printf("  Dead-on-arrival fills: %d (%.1f%%)\n", p.DeadOnArrivalFills, p.DeadFillRate())
	fmt.Printf("  Writeback fills:       %d\n", p.WriteFills)
	fmt.Printf("  Sampler hits:          %d (%.1f%%)\n", p.SamplerHits, p.SamplerHitRate())
	fmt.Printf("  Sampler misses:        %d\n", p.SamplerMisses)
	fmt.Printf("  SHCT increments:       %d\n", p.SHCTIncrements)
	fmt.Printf("  SHCT decrements:       %d\n", p.SHCTDecrements)
}
