package ship

import (
	"fmt"
	"strings"
)

// AccessType identifies the kind of request that touched a cache line.
type AccessType uint8

const (
	// AccessLoad is a demand read.
	AccessLoad AccessType = iota
	// AccessRFO is a read-for-ownership issued by a store miss.
	AccessRFO
	// AccessPrefetch is a prefetch request.
	AccessPrefetch
	// AccessWrite is a writeback arriving from an upper-level cache.
	AccessWrite
	// AccessTranslation is a page-table walk access.
	AccessTranslation
)

var accessTypeNames = [...]string{
	AccessLoad:        "LOAD",
	AccessRFO:         "RFO",
	AccessPrefetch:    "PREFETCH",
	AccessWrite:       "WRITE",
	AccessTranslation: "TRANSLATION",
}

// String returns the upper-case name of the access type.
func (t AccessType) String() string {
	if int(t) < len(accessTypeNames) {
		return accessTypeNames[t]
	}

	return fmt.Sprintf("AccessType(%d)", uint8(t))
}

// IsWrite reports whether the access is a writeback. Writebacks bypass the
// sampler and the SHCT.
func (t AccessType) IsWrite() bool {
	return t == AccessWrite
}

// ParseAccessType converts a name produced by String back into an
// AccessType. Matching is case-insensitive.
func ParseAccessType(name string) (AccessType, error) {
	for i, n := range accessTypeNames {
		if strings.EqualFold(n, name) {
			return AccessType(i), nil
		}
	}

	return 0, fmt.Errorf("unknown access type %q", name)
}

// Request describes one access as seen by the replacement policy. It carries
// only metadata; the policy never needs the contents of a line.
type Request struct {
	// Core is the id of the requesting core.
	Core int
	// InstrID is the id of the instruction that caused the access.
	InstrID uint64
	// Set is the set index of the access.
	Set int
	// Way is the way that hit or was filled. FindVictim ignores it.
	Way int
	// Address is the full memory address.
	Address uint64
	// Signature is the program counter of the instruction.
	Signature uint64
	// VictimAddress is the address of the evicted line on a fill.
	VictimAddress uint64
	// Type is the access type.
	Type AccessType
	// Hit is set when the access hit in the cache.
	Hit bool
	// Cycle is the host's logical cycle. It must not decrease between calls.
	Cycle uint64
}
