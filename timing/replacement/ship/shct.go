package ship

// shct is the signature history counter table. Each requesting core gets its
// own array of 3-bit saturating counters so that a shared cache learns every
// core's reuse behavior separately.
//
// Counter semantics: 0 means lines filled by this signature tend to be
// reused, SHCTMax means they are predicted dead on arrival.
type shct struct {
	// tables is indexed by core id; a nil entry has never been touched.
	tables [][]uint8
}

func newSHCT(numCores int) shct {
	return shct{tables: make([][]uint8, numCores)}
}

// shctIndex hashes a signature into the table.
func shctIndex(signature uint64) int {
	return int(signature % SHCTPrime)
}

// table returns the counters of a core, allocating them on first touch.
func (s *shct) table(core int) []uint8 {
	if core >= len(s.tables) {
		grown := make([][]uint8, core+1)
		copy(grown, s.tables)
		s.tables = grown
	}

	if s.tables[core] == nil {
		s.tables[core] = make([]uint8, SHCTSize)
	}

	return s.tables[core]
}

// allocated reports whether the core's counters have been touched.
func (s *shct) allocated(core int) bool {
	return core >= 0 && core < len(s.tables) && s.tables[core] != nil
}

// peek reads a counter without allocating. Untouched tables read as zero.
func (s *shct) peek(core int, signature uint64) uint8 {
	if !s.allocated(core) {
		return 0
	}

	return s.tables[core][shctIndex(signature)]
}

// counter reads a counter, allocating the core's table if needed.
func (s *shct) counter(core int, signature uint64) uint8 {
	return s.table(core)[shctIndex(signature)]
}

// increment bumps a counter towards SHCTMax. It reports whether the counter
// changed.
func (s *shct) increment(core int, signature uint64) bool {
	t := s.table(core)
	idx := shctIndex(signature)

	if t[idx] < SHCTMax {
		t[idx]++
		return true
	}

	return false
}

// decrement lowers a counter towards zero. It reports whether the counter
// changed.
func (s *shct) decrement(core int, signature uint64) bool {
	t := s.table(core)
	idx := shctIndex(signature)

	if t[idx] > 0 {
		t[idx]--
		return true
	}

	return false
}
