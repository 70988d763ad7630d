package service

import (
	"time"

	"reservd/pkg/model"
)

// Conflicts decides whether a candidate extent can be granted against the
// current allocations. It is a pure function: it never mutates state and
// never removes expired entries, but reserved holds whose lease has already
// lapsed are treated as free even before the sweeper reclaims them.
func Conflicts(kind model.ResourceKind, capacityLimit int, allocations map[string]model.Allocation, candidate model.Extent, now time.Time) bool {
	switch kind {
	case model.KindRoom:
		for _, a := range allocations {
			if !a.Active(now) {
				continue
			}
			if candidate.Overlaps(a.Start, a.End) {
				return true
			}
		}
		return false

	case model.KindEvent:
		total := candidate.Weight
		for _, a := range allocations {
			if !a.Active(now) {
				continue
			}
			total += a.Weight
		}
		return total > capacityLimit

	default:
		// Unknown kinds never grant anything.
		return true
	}
}
