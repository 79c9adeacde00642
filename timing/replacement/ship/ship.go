// Package ship implements the SHiP (Signature-based Hit Predictor) cache
// replacement policy on top of RRIP aging.
//
// Every line carries a re-reference prediction value (RRPV). Victims are the
// lines predicted to be reused furthest in the future. Fills are inserted
// with a prediction learned per instruction signature: a small, fixed set of
// sampled sets shadows the cache and trains a per-core table of saturating
// counters (the SHCT) that tells whether lines brought in by a given program
// counter tend to be reused.
//
// A Policy is not safe for concurrent use. The host simulator must
// serialize the calls made on one instance.
package ship

import (
	"fmt"

	"github.com/go-logr/logr"
)

const (
	// MaxRRPV is the largest re-reference prediction value. Lines at
	// MaxRRPV are eviction candidates.
	MaxRRPV = 3

	// SHCTSize is the number of counters per core.
	SHCTSize = 16384
	// SHCTPrime is the modulus used to hash signatures into the SHCT.
	SHCTPrime = 16381
	// SHCTMax is the saturation value of an SHCT counter.
	SHCTMax = 7

	// DefaultSamplerSetsPerCore is the number of sampled sets per core.
	DefaultSamplerSetsPerCore = 256
	// DefaultBlockSize is the cache line size assumed when none is given.
	DefaultBlockSize = 64
)

// Config describes the cache geometry the policy manages.
type Config struct {
	// NumSets is the number of sets in the cache.
	NumSets int
	// Associativity is the number of ways per set.
	Associativity int
	// NumCores is the number of cores that may access the cache.
	NumCores int
	// BlockSize is the line size in bytes. Default is 64.
	BlockSize int
	// SamplerSetsPerCore is the number of sampled sets per core.
	// Default is 256.
	SamplerSetsPerCore int
}

// withDefaults fills zero-valued optional fields.
func (c Config) withDefaults() Config {
	if c.BlockSize == 0 {
		c.BlockSize = DefaultBlockSize
	}
	if c.SamplerSetsPerCore == 0 {
		c.SamplerSetsPerCore = DefaultSamplerSetsPerCore
	}
	return c
}

// Validate checks that the geometry is usable.
func (c Config) Validate() error {
	if c.NumSets <= 0 {
		return fmt.Errorf("num_sets must be > 0")
	}
	if c.Associativity <= 0 {
		return fmt.Errorf("associativity must be > 0")
	}
	if c.NumCores <= 0 {
		return fmt.Errorf("num_cores must be > 0")
	}
	if c.BlockSize < 0 {
		return fmt.Errorf("block_size must be >= 0")
	}
	if c.SamplerSetsPerCore < 0 {
		return fmt.Errorf("sampler_sets_per_core must be >= 0")
	}
	return nil
}

// Option configures a Policy.
type Option func(*Policy)

// WithLogger sets the logger used for configuration and statistics output.
func WithLogger(logger logr.Logger) Option {
	return func(p *Policy) {
		p.logger = logger
	}
}

// Policy is the replacement state of one cache instance.
type Policy struct {
	config Config
	logger logr.Logger

	rrpv    rrpvTable
	sampler sampler
	shct    shct

	stats Stats
}

// New creates a policy for the given geometry and initializes it.
func New(config Config, opts ...Option) (*Policy, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid SHiP config: %w", err)
	}

	p := &Policy{
		config: config.withDefaults(),
		logger: logr.Discard(),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.Initialize()

	return p, nil
}

// Initialize allocates all replacement state. Every RRPV starts at MaxRRPV,
// the sampled sets are chosen and the SHCT is emptied. New calls it; calling
// it again returns the policy to its initial state.
func (p *Policy) Initialize() {
	c := p.config

	p.rrpv = newRRPVTable(c.NumSets, c.Associativity)
	p.sampler = newSampler(c.NumSets, c.Associativity,
		c.SamplerSetsPerCore*c.NumCores)
	p.shct = newSHCT(c.NumCores)
	p.stats = Stats{}

	p.logger.V(1).Info("SHiP initialized",
		"sets", c.NumSets,
		"ways", c.Associativity,
		"cores", c.NumCores,
		"sampledSets", len(p.sampler.sets))
}

// FindVictim returns the way of req.Set to evict. The returned way has an
// RRPV of MaxRRPV; the other ways of the set may have been aged to get
// there.
func (p *Policy) FindVictim(req Request) int {
	way, passes := p.rrpv.victim(req.Set)

	p.stats.Victims++
	p.stats.AgingPasses += uint64(passes)

	return way
}

// UpdateReplacementState records a hit or a fill of (req.Set, req.Way).
//
// Writeback fills are inserted at MaxRRPV-1 without touching the predictor.
// Other accesses first train the SHCT if the set is sampled; writebacks never
// train it. A hit then promotes the line to RRPV 0; a fill is inserted at
// MaxRRPV when its signature is predicted dead and at MaxRRPV-1 otherwise.
func (p *Policy) UpdateReplacementState(req Request) {
	write := req.Type.IsWrite()
	if write && !req.Hit {
		p.rrpv.put(req.Set, req.Way, MaxRRPV-1)
		p.stats.WriteFills++
		return
	}

	if idx, ok := p.sampler.index(req.Set); ok && !write {
		p.train(idx, req)
	}

	if req.Hit {
		p.rrpv.put(req.Set, req.Way, 0)
		p.stats.Hits++
		return
	}

	p.stats.Fills++
	if p.shct.counter(req.Core, req.Signature) == SHCTMax {
		p.rrpv.put(req.Set, req.Way, MaxRRPV)
		p.stats.DeadOnArrivalFills++
		return
	}

	p.rrpv.put(req.Set, req.Way, MaxRRPV-1)
}

// train runs one access through the sampler of the idx-th sampled set.
func (p *Policy) train(idx int, req Request) {
	lineAddr := p.lineAddress(req.Address)

	if entry, ok := p.sampler.lookup(idx, lineAddr); ok {
		p.stats.SamplerHits++
		if p.shct.decrement(req.Core, entry.Signature) {
			p.stats.SHCTDecrements++
		}

		p.logger.V(2).Info("sampler hit",
			"set", req.Set, "line", lineAddr, "signature", entry.Signature)

		entry.Type = req.Type
		entry.Used = true
		entry.LastUsed = req.Cycle
		return
	}

	p.stats.SamplerMisses++
	entry := p.sampler.lru(idx)

	if entry.Used {
		p.stats.SamplerUsedEvictions++
		if p.shct.increment(req.Core, entry.Signature) {
			p.stats.SHCTIncrements++
		}

		p.logger.V(2).Info("sampler evicted reused entry",
			"set", req.Set, "line", entry.LineAddress, "signature", entry.Signature)
	}

	*entry = SamplerEntry{
		Valid:       true,
		Type:        req.Type,
		Address:     req.Address,
		LineAddress: lineAddr,
		Signature:   req.Signature,
		LastUsed:    req.Cycle,
	}
}

func (p *Policy) lineAddress(addr uint64) uint64 {
	blockSize := uint64(p.config.BlockSize)
	return addr / blockSize * blockSize
}

// Finalize reports the policy statistics through the logger. It is called
// once when the simulation ends and does not change any state.
func (p *Policy) Finalize() {
	s := p.stats

	p.logger.Info("SHiP replacement statistics",
		"victims", s.Victims,
		"agingPasses", s.AgingPasses,
		"hits", s.Hits,
		"fills", s.Fills,
		"writeFills", s.WriteFills,
		"deadOnArrivalFills", s.DeadOnArrivalFills,
		"deadFillRate", fmt.Sprintf("%.1f%%", s.DeadFillRate()),
		"samplerHits", s.SamplerHits,
		"samplerMisses", s.SamplerMisses,
		"samplerHitRate", fmt.Sprintf("%.1f%%", s.SamplerHitRate()),
		"samplerUsedEvictions", s.SamplerUsedEvictions,
		"shctIncrements", s.SHCTIncrements,
		"shctDecrements", s.SHCTDecrements)
}

// Config returns the configuration with defaults applied.
func (p *Policy) Config() Config {
	return p.config
}

// Stats returns the policy statistics.
func (p *Policy) Stats() Stats {
	return p.stats
}

// RRPV returns the current prediction value of a line.
func (p *Policy) RRPV(set, way int) uint8 {
	return p.rrpv.get(set, way)
}

// SampledSets returns a copy of the sampled set indices in ascending order.
func (p *Policy) SampledSets() []int {
	sets := make([]int, len(p.sampler.sets))
	copy(sets, p.sampler.sets)
	return sets
}

// IsSampled reports whether a set trains the SHCT.
func (p *Policy) IsSampled(set int) bool {
	_, ok := p.sampler.index(set)
	return ok
}

// SamplerEntry returns a copy of one sampler slot of a sampled set.
// ok is false when set is not sampled.
func (p *Policy) SamplerEntry(set, way int) (entry SamplerEntry, ok bool) {
	idx, ok := p.sampler.index(set)
	if !ok {
		return SamplerEntry{}, false
	}

	return p.sampler.group(idx)[way], true
}

// SHCTCounter returns the counter a signature maps to for a core. It does
// not allocate the core's table.
func (p *Policy) SHCTCounter(core int, signature uint64) uint8 {
	return p.shct.peek(core, signature)
}

// HasSHCT reports whether the core's counters have been allocated.
func (p *Policy) HasSHCT(core int) bool {
	return p.shct.allocated(core)
}
