package ship

// rrpvTable holds one re-reference prediction value per cache line.
// Entry (set, way) lives at set*ways + way.
type rrpvTable struct {
	values []uint8
	ways   int
}

// newRRPVTable creates a table with every line predicted for distant reuse.
func newRRPVTable(numSets, ways int) rrpvTable {
	t := rrpvTable{
		values: make([]uint8, numSets*ways),
		ways:   ways,
	}

	for i := range t.values {
		t.values[i] = MaxRRPV
	}

	return t
}

// lines returns the RRPVs of one set. The slice aliases the table.
func (t *rrpvTable) lines(set int) []uint8 {
	begin := set * t.ways
	return t.values[begin : begin+t.ways]
}

func (t *rrpvTable) get(set, way int) uint8 {
	return t.values[set*t.ways+way]
}

func (t *rrpvTable) put(set, way int, value uint8) {
	t.values[set*t.ways+way] = value
}

// victim returns the lowest way whose RRPV is MaxRRPV. When no way
// qualifies, the whole set is aged by one and the scan repeats. passes is the
// number of aging rounds that were needed.
//
// Termination within MaxRRPV rounds relies on no value starting above
// MaxRRPV; the update paths only ever write 0, MaxRRPV-1 or MaxRRPV.
func (t *rrpvTable) victim(set int) (way int, passes int) {
	lines := t.lines(set)

	for {
		for w, v := range lines {
			if v == MaxRRPV {
				return w, passes
			}
		}

		for w := range lines {
			lines[w]++
		}
		passes++
	}
}
