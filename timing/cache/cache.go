// Package cache provides a trace-driven, tag-only cache model built on Akita
// cache components. Replacement decisions come from the SHiP policy.
package cache

import (
	"fmt"

	"github.com/go-logr/logr"
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/shipsim/timing/replacement/ship"
)

// Access describes one request presented to the cache.
type Access struct {
	// Core is the id of the requesting core.
	Core int
	// InstrID is the id of the instruction that issued the access.
	InstrID uint64
	// PC is the program counter of the instruction. SHiP uses it as the
	// signature.
	PC uint64
	// Addr is the full memory address.
	Addr uint64
	// Type is the access type.
	Type ship.AccessType
}

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Hit indicates whether the access was a cache hit.
	Hit bool
	// Latency is the number of cycles this access takes.
	Latency uint64
	// Set and Way locate the line that hit or was filled.
	Set int
	Way int
	// Evicted is true if a valid block was evicted.
	Evicted bool
	// EvictedAddr is the address of the evicted block (if Evicted is true).
	EvictedAddr uint64
	// Writeback is true if the evicted block was dirty.
	Writeback bool
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads      uint64 `json:"reads"`
	Writes     uint64 `json:"writes"`
	Hits       uint64 `json:"hits"`
	Misses     uint64 `json:"misses"`
	Evictions  uint64 `json:"evictions"`
	Writebacks uint64 `json:"writebacks"`

	// PerCore breaks hits and misses down by requesting core.
	PerCore []CoreStatistics `json:"per_core"`
}

// CoreStatistics holds the hits and misses of one core.
type CoreStatistics struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

// HitRate returns the hit rate as a percentage.
func (s Statistics) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger of the cache and of its replacement policy.
func WithLogger(logger logr.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// Cache represents a set-associative cache whose lines are tracked by an
// Akita directory. It keeps no data, only tags and dirty bits.
type Cache struct {
	config Config
	logger logr.Logger

	// Akita cache directory for tag/state management
	directory    *akitacache.DirectoryImpl
	victimFinder *VictimFinder
	policy       *ship.Policy

	stats Statistics

	// cycle is the logical clock. Every access advances it by its latency
	// and stamps the policy's sampler with the new value.
	cycle uint64
}

// New creates a new cache with the given configuration.
func New(config Config, opts ...Option) (*Cache, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache config: %w", err)
	}

	c := &Cache{
		config: config,
		logger: logr.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}

	policy, err := ship.New(ship.Config{
		NumSets:            config.NumSets(),
		Associativity:      config.Associativity,
		NumCores:           config.NumCores,
		BlockSize:          config.BlockSize,
		SamplerSetsPerCore: config.SamplerSetsPerCore,
	}, ship.WithLogger(c.logger.WithName("ship")))
	if err != nil {
		return nil, err
	}

	c.policy = policy
	c.victimFinder = NewVictimFinder(policy)
	c.directory = akitacache.NewDirectory(
		config.NumSets(),
		config.Associativity,
		config.BlockSize,
		c.victimFinder,
	)
	c.stats.PerCore = make([]CoreStatistics, config.NumCores)

	return c, nil
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Policy returns the replacement policy of the cache.
func (c *Cache) Policy() *ship.Policy {
	return c.policy
}

// Cycle returns the current logical cycle.
func (c *Cache) Cycle() uint64 {
	return c.cycle
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	stats := c.stats
	stats.PerCore = append([]CoreStatistics(nil), c.stats.PerCore...)
	return stats
}

// ResetStats clears cache statistics.
func (c *Cache) ResetStats() {
	c.stats = Statistics{PerCore: make([]CoreStatistics, c.config.NumCores)}
}

func (c *Cache) blockAddr(addr uint64) uint64 {
	return (addr / uint64(c.config.BlockSize)) * uint64(c.config.BlockSize)
}

func (c *Cache) coreStats(core int) *CoreStatistics {
	for core >= len(c.stats.PerCore) {
		c.stats.PerCore = append(c.stats.PerCore, CoreStatistics{})
	}
	return &c.stats.PerCore[core]
}

// Read performs a demand load.
func (c *Cache) Read(core int, pc, addr uint64) AccessResult {
	return c.Access(Access{Core: core, PC: pc, Addr: addr, Type: ship.AccessLoad})
}

// Write performs a writeback into the cache. Uses write-allocate: a miss
// installs the block dirty.
func (c *Cache) Write(core int, pc, addr uint64) AccessResult {
	return c.Access(Access{Core: core, PC: pc, Addr: addr, Type: ship.AccessWrite})
}

// Access looks the address up, fills it on a miss, and reports the access
// to the replacement policy.
func (c *Cache) Access(a Access) AccessResult {
	if a.Type.IsWrite() {
		c.stats.Writes++
	} else {
		c.stats.Reads++
	}

	blockAddr := c.blockAddr(a.Addr)
	req := ship.Request{
		Core:      a.Core,
		InstrID:   a.InstrID,
		Address:   a.Addr,
		Signature: a.PC,
		Type:      a.Type,
	}

	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.coreStats(a.Core).Hits++
		c.cycle += c.config.HitLatency

		if dirties(a.Type) {
			block.IsDirty = true
		}

		req.Set = block.SetID
		req.Way = block.WayID
		req.Hit = true
		req.Cycle = c.cycle
		c.policy.UpdateReplacementState(req)

		return AccessResult{
			Hit:     true,
			Latency: c.config.HitLatency,
			Set:     block.SetID,
			Way:     block.WayID,
		}
	}

	c.stats.Misses++
	c.coreStats(a.Core).Misses++
	return c.handleMiss(a, blockAddr, req)
}

// handleMiss picks a victim, installs the new tag, and reports the fill.
func (c *Cache) handleMiss(a Access, blockAddr uint64, req ship.Request) AccessResult {
	c.cycle += c.config.MissLatency
	req.Cycle = c.cycle

	c.victimFinder.Prepare(req)
	victim := c.directory.FindVictim(blockAddr)

	result := AccessResult{
		Latency: c.config.MissLatency,
		Set:     victim.SetID,
		Way:     victim.WayID,
	}

	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = victim.Tag // Tag stores block-aligned address
		req.VictimAddress = victim.Tag

		if victim.IsDirty {
			c.stats.Writebacks++
			result.Writeback = true
		}
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = dirties(a.Type)

	req.Set = victim.SetID
	req.Way = victim.WayID
	c.policy.UpdateReplacementState(req)

	return result
}

// dirties reports whether an access of type t leaves its line dirty.
func dirties(t ship.AccessType) bool {
	return t.IsWrite() || t == ship.AccessRFO
}

// Invalidate marks a cache line as invalid.
func (c *Cache) Invalidate(addr uint64) {
	block := c.directory.Lookup(0, c.blockAddr(addr))
	if block != nil && block.IsValid {
		block.IsValid = false
		block.IsDirty = false
	}
}

// Flush counts a writeback for every dirty block and invalidates all
// blocks. Replacement state is kept.
func (c *Cache) Flush() {
	sets := c.directory.GetSets()
	for _, set := range sets {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty {
				c.stats.Writebacks++
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
}

// Reset invalidates all cache lines without writeback and returns the
// replacement policy to its initial state.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.policy.Initialize()
	c.ResetStats()
	c.cycle = 0
}

// Finalize reports cache and policy statistics through the logger.
func (c *Cache) Finalize() {
	c.logger.Info("cache statistics",
		"reads", c.stats.Reads,
		"writes", c.stats.Writes,
		"hits", c.stats.Hits,
		"misses", c.stats.Misses,
		"hitRate", fmt.Sprintf("%.2f%%", c.stats.HitRate()),
		"evictions", c.stats.Evictions,
		"writebacks", c.stats.Writebacks)

	c.policy.Finalize()
}
