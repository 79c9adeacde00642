// Package benchmarks replays synthetic access patterns through the SHiP
// cache model and reports how the policy behaved.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-logr/logr"

	"github.com/sarchlab/shipsim/timing/cache"
	"github.com/sarchlab/shipsim/trace"
)

// BenchmarkResult holds the results of replaying a single workload.
type BenchmarkResult struct {
	// Name identifies the workload
	Name string `json:"name"`

	// Description explains the access pattern
	Description string `json:"description"`

	// Accesses is the number of trace records replayed
	Accesses uint64 `json:"accesses"`

	Hits       uint64  `json:"hits"`
	Misses     uint64  `json:"misses"`
	HitRate    float64 `json:"hit_rate_percent"`
	Evictions  uint64  `json:"evictions"`
	Writebacks uint64  `json:"writebacks"`

	// Cycles is the logical cycle reached at the end of the replay
	Cycles uint64 `json:"cycles"`

	// DeadOnArrivalFills is the number of fills SHiP inserted for eviction
	DeadOnArrivalFills uint64 `json:"dead_on_arrival_fills"`

	// Sampler activity
	SamplerHits   uint64 `json:"sampler_hits"`
	SamplerMisses uint64 `json:"sampler_misses"`

	// WallTime is the actual time taken to replay the workload
	WallTime time.Duration `json:"wall_time_ns"`
}

// Workload defines a single synthetic access pattern.
type Workload struct {
	// Name identifies the workload
	Name string

	// Description explains the access pattern
	Description string

	// Generate builds the trace for the given cache geometry
	Generate func(config cache.Config) []trace.Record
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Cache is the geometry every workload runs on
	Cache cache.Config

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Logger receives the cache and policy statistics of every run
	Logger logr.Logger
}

// DefaultConfig returns a default harness configuration: a single-core
// last-level cache.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Cache:  cache.DefaultLLCConfig(1),
		Output: os.Stdout,
		Logger: logr.Discard(),
	}
}

// Harness runs workloads and reports results.
type Harness struct {
	config    HarnessConfig
	workloads []Workload
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) (*Harness, error) {
	if err := config.Cache.Validate(); err != nil {
		return nil, fmt.Errorf("invalid harness cache config: %w", err)
	}
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Logger.GetSink() == nil {
		config.Logger = logr.Discard()
	}

	return &Harness{
		config:    config,
		workloads: []Workload{},
	}, nil
}

// AddWorkload adds a workload to the harness.
func (h *Harness) AddWorkload(w Workload) {
	h.workloads = append(h.workloads, w)
}

// AddWorkloads adds multiple workloads to the harness.
func (h *Harness) AddWorkloads(workloads []Workload) {
	h.workloads = append(h.workloads, workloads...)
}

// RunAll replays all workloads and returns results.
func (h *Harness) RunAll() ([]BenchmarkResult, error) {
	results := make([]BenchmarkResult, 0, len(h.workloads))

	for _, w := range h.workloads {
		result, err := h.runWorkload(w)
		if err != nil {
			return nil, fmt.Errorf("workload %s: %w", w.Name, err)
		}
		results = append(results, result)
	}

	return results, nil
}

// runWorkload replays a single workload on a fresh cache.
func (h *Harness) runWorkload(w Workload) (BenchmarkResult, error) {
	c, err := cache.New(h.config.Cache,
		cache.WithLogger(h.config.Logger.WithValues("workload", w.Name)))
	if err != nil {
		return BenchmarkResult{}, err
	}

	records := w.Generate(h.config.Cache)

	start := time.Now()
	trace.Replay(c, records)
	wallTime := time.Since(start)

	c.Finalize()

	stats := c.Stats()
	policyStats := c.Policy().Stats()

	return BenchmarkResult{
		Name:               w.Name,
		Description:        w.Description,
		Accesses:           uint64(len(records)),
		Hits:               stats.Hits,
		Misses:             stats.Misses,
		HitRate:            stats.HitRate(),
		Evictions:          stats.Evictions,
		Writebacks:         stats.Writebacks,
		Cycles:             c.Cycle(),
		DeadOnArrivalFills: policyStats.DeadOnArrivalFills,
		SamplerHits:        policyStats.SamplerHits,
		SamplerMisses:      policyStats.SamplerMisses,
		WallTime:           wallTime,
	}, nil
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== SHiP Cache Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Workload: %s\n", r.Name)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintln(h.config.Output, "  --- Cache ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Accesses:   %d\n", r.Accesses)
		_, _ = fmt.Fprintf(h.config.Output, "  Hits:       %d\n", r.Hits)
		_, _ = fmt.Fprintf(h.config.Output, "  Misses:     %d\n", r.Misses)
		_, _ = fmt.Fprintf(h.config.Output, "  Hit Rate:   %.2f%%\n", r.HitRate)
		_, _ = fmt.Fprintf(h.config.Output, "  Evictions:  %d\n", r.Evictions)
		_, _ = fmt.Fprintf(h.config.Output, "  Writebacks: %d\n", r.Writebacks)
		_, _ = fmt.Fprintf(h.config.Output, "  Cycles:     %d\n", r.Cycles)
		_, _ = fmt.Fprintln(h.config.Output, "  --- SHiP ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Dead-on-arrival fills: %d\n", r.DeadOnArrivalFills)
		_, _ = fmt.Fprintf(h.config.Output, "  Sampler hits:          %d\n", r.SamplerHits)
		_, _ = fmt.Fprintf(h.config.Output, "  Sampler misses:        %d\n", r.SamplerMisses)
		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,accesses,hits,misses,hit_rate,evictions,writebacks,cycles,dead_fills,sampler_hits,sampler_misses")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%d,%.2f,%d,%d,%d,%d,%d,%d\n",
			r.Name,
			r.Accesses,
			r.Hits,
			r.Misses,
			r.HitRate,
			r.Evictions,
			r.Writebacks,
			r.Cycles,
			r.DeadOnArrivalFills,
			r.SamplerHits,
			r.SamplerMisses,
		)
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// Cache is the geometry every workload ran on
	Cache cache.Config `json:"cache"`
}

// ReportSummary contains aggregate statistics across all workloads.
type ReportSummary struct {
	TotalWorkloads int     `json:"total_workloads"`
	TotalAccesses  uint64  `json:"total_accesses"`
	TotalHits      uint64  `json:"total_hits"`
	OverallHitRate float64 `json:"overall_hit_rate_percent"`

	// TotalWallTime is the total wall clock time for all workloads
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	var totalAccesses, totalHits uint64
	var totalWallTime time.Duration
	for _, r := range results {
		totalAccesses += r.Accesses
		totalHits += r.Hits
		totalWallTime += r.WallTime
	}

	hitRate := float64(0)
	if totalAccesses > 0 {
		hitRate = float64(totalHits) / float64(totalAccesses) * 100
	}

	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Cache:     h.config.Cache,
		},
		Results: results,
		Summary: ReportSummary{
			TotalWorkloads: len(results),
			TotalAccesses:  totalAccesses,
			TotalHits:      totalHits,
			OverallHitRate: hitRate,
			TotalWallTime:  totalWallTime,
		},
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
