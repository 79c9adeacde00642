package benchmarks

import (
	"github.com/sarchlab/shipsim/timing/cache"
	"github.com/sarchlab/shipsim/timing/replacement/ship"
	"github.com/sarchlab/shipsim/trace"
)

// Program counters of the synthetic instructions. Each workload phase uses
// its own PC so SHiP can tell the phases apart.
const (
	streamPC = 0x400000
	loopPC   = 0x401000
	hotPC    = 0x402000
	scanPC   = 0x402100
	mixedPC  = 0x403000
	storePC  = 0x403100
)

// GetWorkloads returns the standard synthetic workloads.
func GetWorkloads() []Workload {
	return []Workload{
		streaming(),
		looping(),
		hotAndScan(),
		multicoreMixed(),
	}
}

func capacityLines(config cache.Config) int {
	return config.Size / config.BlockSize
}

func lineAddr(config cache.Config, base uint64, line int) uint64 {
	return base + uint64(line)*uint64(config.BlockSize)
}

// streaming touches four cache capacities of distinct lines once each.
// Nothing is ever reused, so every access misses.
func streaming() Workload {
	return Workload{
		Name:        "streaming",
		Description: "Single pass over 4x the cache capacity - no reuse",
		Generate: func(config cache.Config) []trace.Record {
			n := 4 * capacityLines(config)
			records := make([]trace.Record, 0, n)
			for i := 0; i < n; i++ {
				records = append(records, trace.Record{
					PC:   streamPC,
					Addr: lineAddr(config, 0x10000000, i),
					Type: ship.AccessLoad,
				})
			}
			return records
		},
	}
}

// looping walks a working set of half the capacity eight times. The set
// spreads evenly over the sets, so after the first pass every access hits.
func looping() Workload {
	return Workload{
		Name:        "looping",
		Description: "8 passes over a working set of half the cache",
		Generate: func(config cache.Config) []trace.Record {
			ws := capacityLines(config) / 2
			records := make([]trace.Record, 0, 8*ws)
			for pass := 0; pass < 8; pass++ {
				for i := 0; i < ws; i++ {
					records = append(records, trace.Record{
						PC:   loopPC,
						Addr: lineAddr(config, 0x20000000, i),
						Type: ship.AccessLoad,
					})
				}
			}
			return records
		},
	}
}

// hotAndScan touches a hot region of half the cache twice, then scans twice
// the capacity of never-reused lines, which pushes the hot lines out of both
// the cache and the sampler. The sampled hot lines are reused and then
// evicted, so the hot PC's counter saturates and from the second round on
// the first touch of every hot line is inserted at MaxRRPV.
func hotAndScan() Workload {
	return Workload{
		Name:        "hot_and_scan",
		Description: "Half-cache hot region touched twice, then a 2x-capacity scan",
		Generate: func(config cache.Config) []trace.Record {
			lines := capacityLines(config)
			hot := lines / 2
			scan := 2 * lines

			var records []trace.Record
			for round := 0; round < 8; round++ {
				for touch := 0; touch < 2; touch++ {
					for i := 0; i < hot; i++ {
						records = append(records, trace.Record{
							PC:   hotPC,
							Addr: lineAddr(config, 0x30000000, i),
							Type: ship.AccessLoad,
						})
					}
				}

				scanBase := 0x40000000 + uint64(round*scan*config.BlockSize)
				for i := 0; i < scan; i++ {
					records = append(records, trace.Record{
						PC:   scanPC,
						Addr: lineAddr(config, scanBase, i),
						Type: ship.AccessLoad,
					})
				}
			}
			return records
		},
	}
}

// multicoreMixed interleaves a looping core with a streaming core. The
// looping core also issues stores and writebacks.
func multicoreMixed() Workload {
	return Workload{
		Name:        "multicore_mixed",
		Description: "Core 0 loops with stores, core 1 streams",
		Generate: func(config cache.Config) []trace.Record {
			lines := capacityLines(config)
			ws := lines / 4
			other := 1 % config.NumCores

			var records []trace.Record
			stream := 0
			for pass := 0; pass < 4; pass++ {
				for i := 0; i < ws; i++ {
					accessType := ship.AccessLoad
					pc := uint64(mixedPC)
					switch i % 8 {
					case 3:
						accessType = ship.AccessRFO
						pc = storePC
					case 7:
						accessType = ship.AccessWrite
						pc = 0
					}

					records = append(records,
						trace.Record{
							Core: 0,
							PC:   pc,
							Addr: lineAddr(config, 0x50000000, i),
							Type: accessType,
						},
						trace.Record{
							Core: other,
							PC:   streamPC,
							Addr: lineAddr(config, 0x60000000, stream),
							Type: ship.AccessLoad,
						},
					)
					stream++
				}
			}
			return records
		},
	}
}
