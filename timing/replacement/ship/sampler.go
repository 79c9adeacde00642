package ship

import "slices"

// Constants of the linear-congruential generator that picks sampled sets.
const (
	lcgMultiplier = 1103515245
	lcgIncrement  = 12345
)

// SamplerEntry is one slot of the sampler's shadow tag array.
type SamplerEntry struct {
	// Valid is set once the slot has been filled.
	Valid bool
	// Type is the access type of the most recent access to this entry.
	Type AccessType
	// Used is set when the entry was hit at least once since it was
	// installed.
	Used bool
	// Address is the full address of the access that installed the entry.
	Address uint64
	// LineAddress is Address aligned down to the cache line.
	LineAddress uint64
	// Signature is the program counter of the installing access.
	Signature uint64
	// LastUsed is the cycle of the most recent access to the entry.
	LastUsed uint64
}

// sampler shadows a fixed subset of the cache's sets. It never takes part in
// victim selection; it only produces training events for the SHCT.
type sampler struct {
	// sets holds the sampled set indices in ascending order.
	sets []int
	// entries holds ways entries per sampled set, in the order of sets.
	entries []SamplerEntry
	ways    int
}

func newSampler(numSets, ways, count int) sampler {
	sets := sampledSets(numSets, count)

	return sampler{
		sets:    sets,
		entries: make([]SamplerEntry, len(sets)*ways),
		ways:    ways,
	}
}

// sampledSets picks count unique set indices with the reference LCG so that
// the same geometry always trains on the same sets. If count covers the
// whole cache, every set is sampled.
func sampledSets(numSets, count int) []int {
	if count >= numSets {
		sets := make([]int, numSets)
		for i := range sets {
			sets[i] = i
		}

		return sets
	}

	sets := make([]int, 0, count)
	seed := uint64(lcgMultiplier + lcgIncrement)
	n := uint64(numSets)

	for len(sets) < count {
		val := int((seed / 65536) % n)
		loc, found := slices.BinarySearch(sets, val)

		for found {
			seed = seed*lcgMultiplier + lcgIncrement
			val = int((seed / 65536) % n)
			loc, found = slices.BinarySearch(sets, val)
		}

		sets = slices.Insert(sets, loc, val)
	}

	return sets
}

// index returns the position of set in the sampled-set list.
func (s *sampler) index(set int) (int, bool) {
	return slices.BinarySearch(s.sets, set)
}

// group returns the entries of the idx-th sampled set.
func (s *sampler) group(idx int) []SamplerEntry {
	begin := idx * s.ways
	return s.entries[begin : begin+s.ways]
}

// lookup finds the valid entry holding lineAddr.
func (s *sampler) lookup(idx int, lineAddr uint64) (*SamplerEntry, bool) {
	group := s.group(idx)
	for i := range group {
		if group[i].Valid && group[i].LineAddress == lineAddr {
			return &group[i], true
		}
	}

	return nil, false
}

// lru returns the entry with the oldest LastUsed; ties go to the lowest way.
func (s *sampler) lru(idx int) *SamplerEntry {
	group := s.group(idx)
	victim := &group[0]

	for i := 1; i < len(group); i++ {
		if group[i].LastUsed < victim.LastUsed {
			victim = &group[i]
		}
	}

	return victim
}
