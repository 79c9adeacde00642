// Package main provides a profiling wrapper for shipsim to identify
// performance bottlenecks in the cache and replacement policy.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sarchlab/shipsim/benchmarks"
	"github.com/sarchlab/shipsim/timing/cache"
	"github.com/sarchlab/shipsim/trace"
)

var (
	workload    = flag.String("workload", "hot_and_scan", "synthetic workload to replay when no trace is given")
	cores       = flag.Int("cores", 4, "number of cores sharing the LLC")
	repeat      = flag.Int("repeat", 10, "number of times to replay the trace")
	cpuProfile  = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile  = flag.String("memprofile", "", "write memory profile to file")
	duration    = flag.Duration("duration", 30*time.Second, "max duration to run (for profiling)")
	maxAccesses = flag.Int("max-accesses", 0, "max trace records to replay per pass (0 = unlimited)")
)

func main() {
	flag.Parse()

	config := cache.DefaultLLCConfig(*cores)

	records, source, err := loadRecords(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading trace: %v\n", err)
		os.Exit(1)
	}
	if *maxAccesses > 0 && len(records) > *maxAccesses {
		records = records[:*maxAccesses]
	}

	c, err := cache.New(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating cache: %v\n", err)
		os.Exit(1)
	}

	// Start CPU profiling if requested
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	fmt.Printf("Loaded: %s (%d records)\n", source, len(records))
	fmt.Printf("Cache: %d KB, %d-way, %d sets, %d core(s)\n",
		config.Size/1024, config.Associativity, config.NumSets(), config.NumCores)

	start := time.Now()

	// Set timeout
	go func() {
		time.Sleep(*duration)
		fmt.Printf("\nTimeout reached after %v - stopping replay\n", *duration)
		os.Exit(2)
	}()

	for i := 0; i < *repeat; i++ {
		trace.Replay(c, records)
	}

	elapsed := time.Since(start)

	// Write memory profile if requested
	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating memory profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing memory profile: %v\n", err)
		}
	}

	stats := c.Stats()
	accesses := stats.Hits + stats.Misses

	fmt.Printf("\nProfiling Results:\n")
	fmt.Printf("Accesses replayed: %d\n", accesses)
	fmt.Printf("Hit rate: %.2f%%\n", stats.HitRate())
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if accesses > 0 {
		fmt.Printf("Accesses/second: %.0f\n", float64(accesses)/elapsed.Seconds())
	}
}

// loadRecords reads the trace named on the command line, or generates the
// selected synthetic workload.
func loadRecords(config cache.Config) ([]trace.Record, string, error) {
	if flag.NArg() > 0 {
		records, err := trace.Load(flag.Arg(0))
		return records, flag.Arg(0), err
	}

	for _, w := range benchmarks.GetWorkloads() {
		if w.Name == *workload {
			return w.Generate(config), "workload " + w.Name, nil
		}
	}

	return nil, "", fmt.Errorf("unknown workload %q", *workload)
}
