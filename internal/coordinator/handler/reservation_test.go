package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	coorderrors "reservd/internal/coordinator/errors"
	"reservd/internal/coordinator/service"
	"reservd/internal/coordinator/validator"
	"reservd/pkg/clock"
	"reservd/pkg/config"
	"reservd/pkg/contracts"
	httputil "reservd/pkg/http"
	"reservd/pkg/logger"
	"reservd/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// In-memory snapshot store so handlers run against real coordinators.
type stubRepo struct {
	mu        sync.Mutex
	snapshots map[string]*model.Snapshot
}

func newStubRepo() *stubRepo {
	return &stubRepo{snapshots: make(map[string]*model.Snapshot)}
}

func (r *stubRepo) Save(ctx context.Context, snapshot *model.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *snapshot
	copied.Allocations = append([]model.Allocation(nil), snapshot.Allocations...)
	r.snapshots[snapshot.ID] = &copied
	return nil
}

func (r *stubRepo) Load(ctx context.Context, key model.ResourceKey) (*model.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap, ok := r.snapshots[key.String()]
	if !ok {
		return nil, coorderrors.ErrSnapshotNotFound
	}
	copied := *snap
	copied.Allocations = append([]model.Allocation(nil), snap.Allocations...)
	return &copied, nil
}

func (r *stubRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.snapshots)), nil
}

func newRouterFor(h contracts.Handler) *httprouter.Router {
	router := httprouter.New()
	h.RegisterRoutes(router)
	return router
}

func testRouter(t *testing.T) *httprouter.Router {
	t.Helper()

	log := logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Service: "test",
	})
	cfg := &config.Config{
		HoldDuration:     15 * time.Minute,
		SweepInterval:    time.Hour,
		SubscriberBuffer: 8,
		RequestTimeout:   5 * time.Second,
		Log:              log,
	}

	directory := service.NewDirectory(cfg, newStubRepo(), clock.NewFake(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)), nil)
	t.Cleanup(directory.Shutdown)

	return newRouterFor(NewReservationHandler(directory, validator.NewReservationValidator(log), log))
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeReserveResponse(t *testing.T, rec *httptest.ResponseRecorder) model.ReserveResponse {
	t.Helper()

	var wrapper struct {
		Data model.ReserveResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&wrapper); err != nil {
		t.Fatalf("failed to decode reserve response: %v", err)
	}
	return wrapper.Data
}

const roomPath = "/api/v1/resources/acme/room/room-42"

func day(d int) string {
	return fmt.Sprintf("2026-01-%02dT00:00:00Z", d)
}

func TestReserveConfirmCancelFlow(t *testing.T) {
	router := testRouter(t)

	rec := doJSON(t, router, http.MethodPost, roomPath+"/reserve", map[string]any{
		"holder_id": "alice",
		"start":     day(1),
		"end":       day(3),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	hold := decodeReserveResponse(t, rec)
	if hold.AllocationID == "" {
		t.Fatal("expected an allocation id")
	}

	// Overlapping reserve conflicts.
	rec = doJSON(t, router, http.MethodPost, roomPath+"/reserve", map[string]any{
		"holder_id": "bob",
		"start":     day(2),
		"end":       day(4),
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, roomPath+"/confirm", map[string]any{
		"allocation_id": hold.AllocationID,
		"booking_id":    "booking-1",
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	// Confirm is terminal.
	rec = doJSON(t, router, http.MethodPost, roomPath+"/confirm", map[string]any{
		"allocation_id": hold.AllocationID,
		"booking_id":    "booking-1",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, roomPath+"/cancel", map[string]any{
		"allocation_id": hold.AllocationID,
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	// Freed range can be reserved again.
	rec = doJSON(t, router, http.MethodPost, roomPath+"/reserve", map[string]any{
		"holder_id": "bob",
		"start":     day(2),
		"end":       day(4),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestEventInitAndReserve(t *testing.T) {
	router := testRouter(t)
	eventPath := "/api/v1/resources/acme/event/gala"

	rec := doJSON(t, router, http.MethodPost, eventPath+"/init", map[string]any{
		"capacity_limit": 100,
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, eventPath+"/reserve", map[string]any{
		"holder_id": "alice",
		"weight":    60,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, eventPath+"/reserve", map[string]any{
		"holder_id": "bob",
		"weight":    50,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestReserveValidation(t *testing.T) {
	router := testRouter(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{
			name: "missing holder",
			body: map[string]any{"start": day(1), "end": day(3)},
		},
		{
			name: "missing dates for room",
			body: map[string]any{"holder_id": "alice"},
		},
		{
			name: "end before start",
			body: map[string]any{"holder_id": "alice", "start": day(3), "end": day(1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, roomPath+"/reserve", tt.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
			}

			var resp httputil.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode error response: %v", err)
			}
			if len(resp.Details) == 0 {
				t.Fatal("expected field details in validation error")
			}
		})
	}
}

func TestUnknownKindRejected(t *testing.T) {
	router := testRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/resources/acme/vehicle/v-1/reserve", map[string]any{
		"holder_id": "alice",
		"start":     day(1),
		"end":       day(3),
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCheckEndpoint(t *testing.T) {
	router := testRouter(t)

	rec := doJSON(t, router, http.MethodGet, roomPath+"/check?start="+day(1)+"&end="+day(3), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var wrapper struct {
		Data model.CheckResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&wrapper); err != nil {
		t.Fatalf("failed to decode check response: %v", err)
	}
	if !wrapper.Data.Available {
		t.Fatal("expected empty calendar to be available")
	}

	doJSON(t, router, http.MethodPost, roomPath+"/reserve", map[string]any{
		"holder_id": "alice",
		"start":     day(1),
		"end":       day(3),
	})

	rec = doJSON(t, router, http.MethodGet, roomPath+"/check?start="+day(2)+"&end="+day(4), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	wrapper.Data.Available = true
	if err := json.NewDecoder(rec.Body).Decode(&wrapper); err != nil {
		t.Fatalf("failed to decode check response: %v", err)
	}
	if wrapper.Data.Available {
		t.Fatal("expected overlapping range to be unavailable")
	}

	// Missing query parameters.
	rec = doJSON(t, router, http.MethodGet, roomPath+"/check", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestStatusEndpoint(t *testing.T) {
	router := testRouter(t)

	doJSON(t, router, http.MethodPost, roomPath+"/reserve", map[string]any{
		"holder_id": "alice",
		"start":     day(1),
		"end":       day(3),
	})
	doJSON(t, router, http.MethodPost, roomPath+"/reserve", map[string]any{
		"holder_id": "bob",
		"start":     day(10),
		"end":       day(12),
	})

	rec := doJSON(t, router, http.MethodGet, roomPath+"/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var wrapper struct {
		Data model.StatusPayload `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&wrapper); err != nil {
		t.Fatalf("failed to decode status response: %v", err)
	}
	if len(wrapper.Data.Allocations) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(wrapper.Data.Allocations))
	}

	// Window filter narrows the view.
	rec = doJSON(t, router, http.MethodGet, roomPath+"/status?start="+day(9)+"&end="+day(11), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	wrapper.Data.Allocations = nil
	if err := json.NewDecoder(rec.Body).Decode(&wrapper); err != nil {
		t.Fatalf("failed to decode status response: %v", err)
	}
	if len(wrapper.Data.Allocations) != 1 {
		t.Fatalf("expected 1 allocation in window, got %d", len(wrapper.Data.Allocations))
	}
	if wrapper.Data.Allocations[0].HolderID != "bob" {
		t.Fatalf("expected bob's allocation, got %s", wrapper.Data.Allocations[0].HolderID)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	router := testRouter(t)

	rec := doJSON(t, router, http.MethodPost, roomPath+"/release", map[string]any{
		"allocation_id": "never-existed",
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for unknown allocation, got %d: %s", rec.Code, rec.Body.String())
	}
}
