package model

import "time"

// InitRequest seeds a coordinator for a brand-new resource key.
// Seed allocations with status cancelled are skipped on load.
type InitRequest struct {
	CapacityLimit int          `json:"capacity_limit,omitempty" validate:"omitempty,min=1"`
	Seed          []Allocation `json:"seed,omitempty" validate:"omitempty,dive"`
}

type ReserveRequest struct {
	HolderID       string     `json:"holder_id" validate:"required,min=1,max=128"`
	Start          *time.Time `json:"start,omitempty"`
	End            *time.Time `json:"end,omitempty"`
	Weight         int        `json:"weight,omitempty" validate:"omitempty,min=1"`
	HoldDurationMs int64      `json:"hold_duration_ms,omitempty" validate:"omitempty,min=1"`
}

type ReserveResponse struct {
	AllocationID string    `json:"allocation_id"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type ConfirmRequest struct {
	AllocationID string `json:"allocation_id" validate:"required"`
	BookingID    string `json:"booking_id" validate:"required,min=1,max=128"`
}

type ReleaseRequest struct {
	AllocationID string `json:"allocation_id" validate:"required"`
}

type CancelRequest struct {
	AllocationID string `json:"allocation_id" validate:"required"`
}

type CheckResponse struct {
	Available bool `json:"available"`
}
