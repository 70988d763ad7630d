package model

import (
	"fmt"
	"time"
)

type ResourceKind string

const (
	KindRoom  ResourceKind = "room"
	KindEvent ResourceKind = "event"
)

func (k ResourceKind) Valid() bool {
	return k == KindRoom || k == KindEvent
}

// ResourceKey is the compound identity addressing exactly one coordinator
// instance: owning tenant, resource kind and resource id.
type ResourceKey struct {
	TenantID   string       `json:"tenant_id" bson:"tenant_id" validate:"required,min=1,max=64"`
	Kind       ResourceKind `json:"kind" bson:"kind" validate:"required,oneof=room event"`
	ResourceID string       `json:"resource_id" bson:"resource_id" validate:"required,min=1,max=64"`
}

func (k ResourceKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.TenantID, k.Kind, k.ResourceID)
}

// Snapshot is the durable form of one resource's state, persisted
// write-through on every mutation and reloaded on cold start.
type Snapshot struct {
	ID            string       `bson:"_id"`
	TenantID      string       `bson:"tenant_id"`
	Kind          ResourceKind `bson:"kind"`
	ResourceID    string       `bson:"resource_id"`
	CapacityLimit int          `bson:"capacity_limit,omitempty"`
	Allocations   []Allocation `bson:"allocations"`
	UpdatedAt     time.Time    `bson:"updated_at"`
}

// AllocationView is the subscriber-facing projection of one allocation.
type AllocationView struct {
	ID        string           `json:"id"`
	HolderID  string           `json:"holder_id"`
	BookingID string           `json:"booking_id,omitempty"`
	Start     *time.Time       `json:"start,omitempty"`
	End       *time.Time       `json:"end,omitempty"`
	Weight    int              `json:"weight,omitempty"`
	Status    AllocationStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty"`
}

// StatusPayload is returned by status queries and pushed to every live
// subscriber after each state change.
type StatusPayload struct {
	TenantID    string           `json:"tenant_id"`
	Kind        ResourceKind     `json:"kind"`
	ResourceID  string           `json:"resource_id"`
	Allocations []AllocationView `json:"allocations"`
}
