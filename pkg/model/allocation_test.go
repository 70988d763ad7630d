package model

import (
	"testing"
	"time"
)

func day(d int) time.Time {
	return time.Date(2026, time.January, d, 0, 0, 0, 0, time.UTC)
}

func TestExtentOverlaps(t *testing.T) {
	tests := []struct {
		name   string
		extent Extent
		start  time.Time
		end    time.Time
		want   bool
	}{
		{"identical ranges", Extent{Start: day(1), End: day(3)}, day(1), day(3), true},
		{"partial overlap", Extent{Start: day(1), End: day(3)}, day(2), day(4), true},
		{"contained", Extent{Start: day(1), End: day(10)}, day(4), day(5), true},
		{"back to back", Extent{Start: day(1), End: day(3)}, day(3), day(5), false},
		{"disjoint", Extent{Start: day(1), End: day(3)}, day(5), day(7), false},
		{"touching at start", Extent{Start: day(3), End: day(5)}, day(1), day(3), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.extent.Overlaps(tt.start, tt.end); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAllocationActive(t *testing.T) {
	now := day(10)
	past := day(5)
	future := day(15)

	tests := []struct {
		name  string
		alloc Allocation
		want  bool
	}{
		{"confirmed is always active", Allocation{Status: StatusConfirmed}, true},
		{"reserved with future expiry", Allocation{Status: StatusReserved, ExpiresAt: &future}, true},
		{"reserved with past expiry", Allocation{Status: StatusReserved, ExpiresAt: &past}, false},
		{"reserved without expiry", Allocation{Status: StatusReserved}, true},
		{"cancelled is never active", Allocation{Status: StatusCancelled}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alloc := tt.alloc
			if got := alloc.Active(now); got != tt.want {
				t.Errorf("Active() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAllocationExpired(t *testing.T) {
	now := day(10)
	past := day(5)
	future := day(15)

	confirmed := Allocation{Status: StatusConfirmed, ExpiresAt: &past}
	if confirmed.Expired(now) {
		t.Error("confirmed allocations never expire")
	}
	lapsed := Allocation{Status: StatusReserved, ExpiresAt: &past}
	if !lapsed.Expired(now) {
		t.Error("reserved hold past its expiry should be expired")
	}
	live := Allocation{Status: StatusReserved, ExpiresAt: &future}
	if live.Expired(now) {
		t.Error("reserved hold before its expiry should not be expired")
	}
	open := Allocation{Status: StatusReserved}
	if open.Expired(now) {
		t.Error("reserved hold without expiry should not be expired")
	}
}

func TestResourceKeyString(t *testing.T) {
	key := ResourceKey{TenantID: "acme", Kind: KindRoom, ResourceID: "room-42"}
	if got := key.String(); got != "acme:room:room-42" {
		t.Errorf("String() = %q, want %q", got, "acme:room:room-42")
	}
}

func TestResourceKindValid(t *testing.T) {
	if !KindRoom.Valid() || !KindEvent.Valid() {
		t.Error("room and event are valid kinds")
	}
	if ResourceKind("vehicle").Valid() {
		t.Error("unknown kind should be invalid")
	}
}
