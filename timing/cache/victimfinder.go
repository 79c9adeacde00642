package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/shipsim/timing/replacement/ship"
)

var _ akitacache.VictimFinder = (*VictimFinder)(nil)

// VictimFinder lets an akita cache directory evict lines chosen by the SHiP
// policy. akita only hands over the set, so the cache records the access
// being served with Prepare before asking the directory for a victim.
type VictimFinder struct {
	policy *ship.Policy
	next   ship.Request
}

// NewVictimFinder returns a victim finder backed by the given policy.
func NewVictimFinder(policy *ship.Policy) *VictimFinder {
	return &VictimFinder{policy: policy}
}

// Prepare records the access the next FindVictim call is made for.
func (v *VictimFinder) Prepare(req ship.Request) {
	v.next = req
}

// FindVictim returns an empty block if the set has one. Otherwise the SHiP
// policy picks the way.
func (v *VictimFinder) FindVictim(set *akitacache.Set) *akitacache.Block {
	for _, block := range set.Blocks {
		if !block.IsValid && !block.IsLocked {
			return block
		}
	}

	req := v.next
	req.Set = set.Blocks[0].SetID

	return set.Blocks[v.policy.FindVictim(req)]
}
