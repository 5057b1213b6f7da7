package model

import "fmt"

// SharingKind is the bed-count category of a room. The number of bed
// slots in a room is a pure function of its sharing kind; it is never
// stored as a separate column that could drift.
type SharingKind string

const (
	SharingSingle SharingKind = "single"
	SharingDouble SharingKind = "double"
	SharingTriple SharingKind = "triple"
	SharingQuad   SharingKind = "quad"
)

var sharingBedCounts = map[SharingKind]int{
	SharingSingle: 1,
	SharingDouble: 2,
	SharingTriple: 3,
	SharingQuad:   4,
}

// BedCount returns the number of bed slots a room of this kind holds.
// Returns 0 for an unrecognized kind.
func (k SharingKind) BedCount() int {
	return sharingBedCounts[k]
}

// Valid reports whether k is one of the four recognized sharing kinds.
func (k SharingKind) Valid() bool {
	_, ok := sharingBedCounts[k]
	return ok
}

// ParseSharingKind validates a raw string from a request payload.
func ParseSharingKind(s string) (SharingKind, error) {
	k := SharingKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unrecognized sharing kind %q", s)
	}
	return k, nil
}
