package service

import (
	"testing"
	"time"

	"reservd/pkg/model"
)

func date(day int) time.Time {
	return time.Date(2026, time.January, day, 0, 0, 0, 0, time.UTC)
}

func roomAllocation(id string, startDay, endDay int, status model.AllocationStatus, expiresAt *time.Time) model.Allocation {
	return model.Allocation{
		ID:        id,
		HolderID:  "holder-" + id,
		Start:     date(startDay),
		End:       date(endDay),
		Status:    status,
		CreatedAt: date(1),
		ExpiresAt: expiresAt,
	}
}

func eventAllocation(id string, weight int, status model.AllocationStatus, expiresAt *time.Time) model.Allocation {
	return model.Allocation{
		ID:        id,
		HolderID:  "holder-" + id,
		Weight:    weight,
		Status:    status,
		CreatedAt: date(1),
		ExpiresAt: expiresAt,
	}
}

func TestConflicts_RoomOverlap(t *testing.T) {
	now := date(1)
	future := date(30)

	tests := []struct {
		name      string
		existing  []model.Allocation
		candidate model.Extent
		want      bool
	}{
		{
			name:      "empty calendar",
			candidate: model.Extent{Start: date(2), End: date(4)},
			want:      false,
		},
		{
			name: "overlapping ranges conflict",
			existing: []model.Allocation{
				roomAllocation("a", 1, 3, model.StatusReserved, &future),
			},
			candidate: model.Extent{Start: date(2), End: date(4)},
			want:      true,
		},
		{
			name: "back to back is allowed",
			existing: []model.Allocation{
				roomAllocation("a", 1, 3, model.StatusConfirmed, nil),
			},
			candidate: model.Extent{Start: date(3), End: date(5)},
			want:      false,
		},
		{
			name: "candidate ending at existing start is allowed",
			existing: []model.Allocation{
				roomAllocation("a", 3, 5, model.StatusConfirmed, nil),
			},
			candidate: model.Extent{Start: date(1), End: date(3)},
			want:      false,
		},
		{
			name: "contained range conflicts",
			existing: []model.Allocation{
				roomAllocation("a", 1, 10, model.StatusConfirmed, nil),
			},
			candidate: model.Extent{Start: date(4), End: date(5)},
			want:      true,
		},
		{
			name: "expired hold does not block",
			existing: []model.Allocation{
				roomAllocation("a", 2, 4, model.StatusReserved, timePtr(date(1).Add(-time.Minute))),
			},
			candidate: model.Extent{Start: date(2), End: date(4)},
			want:      false,
		},
		{
			name: "confirmed never expires",
			existing: []model.Allocation{
				roomAllocation("a", 2, 4, model.StatusConfirmed, nil),
			},
			candidate: model.Extent{Start: date(2), End: date(4)},
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allocations := make(map[string]model.Allocation, len(tt.existing))
			for _, a := range tt.existing {
				allocations[a.ID] = a
			}

			got := Conflicts(model.KindRoom, 0, allocations, tt.candidate, now)
			if got != tt.want {
				t.Errorf("Conflicts() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConflicts_EventCapacity(t *testing.T) {
	now := date(1)
	future := date(30)

	tests := []struct {
		name     string
		capacity int
		existing []model.Allocation
		weight   int
		want     bool
	}{
		{
			name:     "fits within capacity",
			capacity: 100,
			existing: []model.Allocation{
				eventAllocation("a", 60, model.StatusConfirmed, nil),
			},
			weight: 40,
			want:   false,
		},
		{
			name:     "exceeds capacity",
			capacity: 100,
			existing: []model.Allocation{
				eventAllocation("a", 60, model.StatusConfirmed, nil),
			},
			weight: 50,
			want:   true,
		},
		{
			name:     "expired hold frees capacity",
			capacity: 100,
			existing: []model.Allocation{
				eventAllocation("a", 60, model.StatusConfirmed, nil),
				eventAllocation("b", 40, model.StatusReserved, timePtr(now.Add(-time.Second))),
			},
			weight: 40,
			want:   false,
		},
		{
			name:     "live hold counts against capacity",
			capacity: 100,
			existing: []model.Allocation{
				eventAllocation("a", 60, model.StatusConfirmed, nil),
				eventAllocation("b", 40, model.StatusReserved, &future),
			},
			weight: 1,
			want:   true,
		},
		{
			name:     "zero capacity rejects everything",
			capacity: 0,
			weight:   1,
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allocations := make(map[string]model.Allocation, len(tt.existing))
			for _, a := range tt.existing {
				allocations[a.ID] = a
			}

			got := Conflicts(model.KindEvent, tt.capacity, allocations, model.Extent{Weight: tt.weight}, now)
			if got != tt.want {
				t.Errorf("Conflicts() = %v, want %v", got, tt.want)
			}
		})
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
