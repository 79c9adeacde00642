package ship

// Stats holds counters describing what the policy did.
type Stats struct {
	// Victims is the number of victims chosen.
	Victims uint64 `json:"victims"`
	// AgingPasses is the number of times a whole set was aged while looking
	// for a victim.
	AgingPasses uint64 `json:"aging_passes"`

	// Hits is the number of hits, writebacks included.
	Hits uint64 `json:"hits"`
	// Fills is the number of non-writeback fills.
	Fills uint64 `json:"fills"`
	// WriteFills is the number of writeback fills.
	WriteFills uint64 `json:"write_fills"`
	// DeadOnArrivalFills is the number of fills inserted at MaxRRPV because
	// their signature's counter was saturated.
	DeadOnArrivalFills uint64 `json:"dead_on_arrival_fills"`

	// SamplerHits is the number of sampler lookups that matched an entry.
	SamplerHits uint64 `json:"sampler_hits"`
	// SamplerMisses is the number of sampler lookups that installed an entry.
	SamplerMisses uint64 `json:"sampler_misses"`
	// SamplerUsedEvictions is the number of sampler evictions of entries that
	// had been reused while resident.
	SamplerUsedEvictions uint64 `json:"sampler_used_evictions"`

	// SHCTIncrements and SHCTDecrements count counter changes, not attempts
	// that were absorbed by saturation.
	SHCTIncrements uint64 `json:"shct_increments"`
	SHCTDecrements uint64 `json:"shct_decrements"`
}

// SamplerHitRate returns the sampler hit rate as a percentage.
func (s Stats) SamplerHitRate() float64 {
	total := s.SamplerHits + s.SamplerMisses
	if total == 0 {
		return 0
	}
	return float64(s.SamplerHits) / float64(total) * 100
}

// DeadFillRate returns the share of fills predicted dead on arrival, as a
// percentage.
func (s Stats) DeadFillRate() float64 {
	if s.Fills == 0 {
		return 0
	}
	return float64(s.DeadOnArrivalFills) / float64(s.Fills) * 100
}
