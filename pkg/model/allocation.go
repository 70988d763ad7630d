package model

import (
	"time"
)

type AllocationStatus string

const (
	StatusReserved  AllocationStatus = "reserved"
	StatusConfirmed AllocationStatus = "confirmed"
	StatusCancelled AllocationStatus = "cancelled"
)

// Allocation is one reservation or confirmation against a resource.
// Room allocations occupy the half-open interval [Start, End); event
// allocations consume Weight units of the resource's capacity.
type Allocation struct {
	ID        string           `json:"id" bson:"_id"`
	BookingID string           `json:"booking_id,omitempty" bson:"booking_id,omitempty"`
	HolderID  string           `json:"holder_id" bson:"holder_id"`
	Start     time.Time        `json:"start,omitempty" bson:"start,omitempty"`
	End       time.Time        `json:"end,omitempty" bson:"end,omitempty"`
	Weight    int              `json:"weight,omitempty" bson:"weight,omitempty"`
	Status    AllocationStatus `json:"status" bson:"status"`
	CreatedAt time.Time        `json:"created_at" bson:"created_at"`
	// ExpiresAt is set while the allocation is reserved and cleared on
	// confirm. Confirmed allocations never expire automatically.
	ExpiresAt *time.Time `json:"expires_at,omitempty" bson:"expires_at,omitempty"`
}

// Active reports whether the allocation currently occupies the resource.
// Reserved holds whose lease has lapsed are treated as free even before
// the sweeper removes them.
func (a *Allocation) Active(now time.Time) bool {
	switch a.Status {
	case StatusConfirmed:
		return true
	case StatusReserved:
		return a.ExpiresAt == nil || a.ExpiresAt.After(now)
	default:
		return false
	}
}

// Expired reports whether a reserved hold's lease has lapsed.
func (a *Allocation) Expired(now time.Time) bool {
	return a.Status == StatusReserved && a.ExpiresAt != nil && !a.ExpiresAt.After(now)
}

// Extent is a candidate occupancy used by check, reserve and status
// filtering: a [Start, End) range for rooms or a Weight for events.
type Extent struct {
	Start  time.Time `json:"start,omitempty"`
	End    time.Time `json:"end,omitempty"`
	Weight int       `json:"weight,omitempty"`
}

// Overlaps implements half-open interval overlap: back-to-back ranges
// where one's end equals the other's start do not overlap.
func (e Extent) Overlaps(start, end time.Time) bool {
	return e.Start.Before(end) && start.Before(e.End)
}
