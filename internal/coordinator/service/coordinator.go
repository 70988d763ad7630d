package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	coorderrors "reservd/internal/coordinator/errors"
	"reservd/internal/coordinator/repository"
	"reservd/pkg/clock"
	"reservd/pkg/config"
	apperrors "reservd/pkg/errors"
	"reservd/pkg/model"

	"github.com/google/uuid"
)

// EventSink receives the same status payload live subscribers get, for
// delivery outside the process (Kafka mirror). Failures are logged, never
// propagated to the mutation that triggered the broadcast.
type EventSink interface {
	PublishStatus(ctx context.Context, payload model.StatusPayload) error
}

// Coordinator owns the authoritative state for exactly one resource key.
// All mutations for the key are serialized through its mutex and persisted
// write-through before the new state is observable: a response implies the
// snapshot is durable.
type Coordinator struct {
	key   model.ResourceKey
	cfg   *config.Config
	repo  repository.SnapshotRepository
	clock clock.Clock
	sink  EventSink
	bc    *broadcaster

	mu            sync.Mutex
	loaded        bool
	sweeping      bool
	capacityLimit int
	allocations   map[string]model.Allocation

	stopCh   chan struct{}
	stopOnce sync.Once
}

func newCoordinator(key model.ResourceKey, cfg *config.Config, repo repository.SnapshotRepository, clk clock.Clock, sink EventSink) *Coordinator {
	return &Coordinator{
		key:         key,
		cfg:         cfg,
		repo:        repo,
		clock:       clk,
		sink:        sink,
		bc:          newBroadcaster(cfg.SubscriberBuffer, cfg.Log),
		allocations: make(map[string]model.Allocation),
		stopCh:      make(chan struct{}),
	}
}

func (c *Coordinator) Key() model.ResourceKey {
	return c.key
}

// ensureLoaded rehydrates in-memory state from the last persisted snapshot
// before the first request is served, and schedules the expiry sweeper.
// A load failure is transient: the next request retries.
func (c *Coordinator) ensureLoaded(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return nil
	}

	snap, err := c.repo.Load(ctx, c.key)
	switch {
	case errors.Is(err, coorderrors.ErrSnapshotNotFound):
		// Brand-new resource key.
	case err != nil:
		return apperrors.Internal("Failed to load resource snapshot", err)
	default:
		c.capacityLimit = snap.CapacityLimit
		for _, a := range snap.Allocations {
			if a.Status == model.StatusCancelled {
				continue
			}
			c.allocations[a.ID] = a
		}
	}

	c.loaded = true
	if !c.sweeping {
		c.sweeping = true
		go c.runSweeper()
	}

	c.cfg.Log.Debug("Coordinator loaded",
		"resource_key", c.key.String(),
		"allocations", len(c.allocations),
	)
	return nil
}

// Init is idempotent setup for a resource: it records the capacity limit
// (event variant) and merges seed allocations, skipping cancelled ones and
// any id already present.
func (c *Coordinator) Init(ctx context.Context, capacityLimit int, seed []model.Allocation) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := false
	newCapacity := c.capacityLimit
	if capacityLimit > 0 && capacityLimit != c.capacityLimit {
		newCapacity = capacityLimit
		changed = true
	}

	now := c.clock.Now()
	next := cloneAllocations(c.allocations)
	for _, a := range seed {
		if a.Status == model.StatusCancelled {
			continue
		}
		if _, exists := next[a.ID]; exists {
			continue
		}
		if a.ID == "" {
			a.ID = uuid.New().String()
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.Status == model.StatusReserved && a.ExpiresAt == nil {
			expires := now.Add(c.cfg.HoldDuration)
			a.ExpiresAt = &expires
		}
		if a.Status == model.StatusConfirmed {
			a.ExpiresAt = nil
		}
		next[a.ID] = a
		changed = true
	}

	if !changed {
		return nil
	}

	if err := c.commitLocked(ctx, newCapacity, next); err != nil {
		return err
	}
	c.broadcastLocked(ctx)

	c.cfg.Log.Info("Resource initialized",
		"resource_key", c.key.String(),
		"capacity_limit", c.capacityLimit,
		"allocations", len(c.allocations),
	)
	return nil
}

// Reserve creates a hold on the extent if the conflict checker grants it.
// The hold lapses at now + holdDuration unless confirmed first.
func (c *Coordinator) Reserve(ctx context.Context, holderID string, extent model.Extent, holdDuration time.Duration) (*model.ReserveResponse, error) {
	if err := c.validateExtent(extent); err != nil {
		return nil, err
	}
	if holdDuration <= 0 {
		holdDuration = c.cfg.HoldDuration
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if Conflicts(c.key.Kind, c.capacityLimit, c.allocations, extent, now) {
		return nil, c.unavailableError()
	}

	expiresAt := now.Add(holdDuration)
	alloc := model.Allocation{
		ID:        uuid.New().String(),
		HolderID:  holderID,
		Start:     extent.Start,
		End:       extent.End,
		Weight:    extent.Weight,
		Status:    model.StatusReserved,
		CreatedAt: now,
		ExpiresAt: &expiresAt,
	}

	next := cloneAllocations(c.allocations)
	next[alloc.ID] = alloc

	if err := c.commitLocked(ctx, c.capacityLimit, next); err != nil {
		return nil, err
	}
	c.broadcastLocked(ctx)

	c.cfg.Log.Info("Allocation reserved",
		"resource_key", c.key.String(),
		"allocation_id", alloc.ID,
		"holder_id", holderID,
		"expires_at", expiresAt,
	)
	return &model.ReserveResponse{AllocationID: alloc.ID, ExpiresAt: expiresAt}, nil
}

// Confirm finalizes a reserved hold: the booking id is attached and the
// hold stops expiring. Confirm is terminal; repeating it fails even with
// the same booking id.
func (c *Coordinator) Confirm(ctx context.Context, allocationID, bookingID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	alloc, ok := c.allocations[allocationID]
	if !ok {
		return apperrors.NotFoundWithID("Allocation", allocationID)
	}
	if alloc.Status != model.StatusReserved {
		return apperrors.InvalidState(fmt.Sprintf("Allocation is %s, not reserved", alloc.Status))
	}
	if alloc.Expired(c.clock.Now()) {
		return apperrors.InvalidState("Hold has expired; reserve again")
	}

	alloc.Status = model.StatusConfirmed
	alloc.BookingID = bookingID
	alloc.ExpiresAt = nil

	next := cloneAllocations(c.allocations)
	next[allocationID] = alloc

	if err := c.commitLocked(ctx, c.capacityLimit, next); err != nil {
		return err
	}
	c.broadcastLocked(ctx)

	c.cfg.Log.Info("Allocation confirmed",
		"resource_key", c.key.String(),
		"allocation_id", allocationID,
		"booking_id", bookingID,
	)
	return nil
}

// Release removes a reserved hold outright, typically when a user abandons
// an in-progress booking. Confirmed allocations cannot be released; an
// unknown id is treated as already released.
func (c *Coordinator) Release(ctx context.Context, allocationID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	alloc, ok := c.allocations[allocationID]
	if !ok {
		return nil
	}
	if alloc.Status == model.StatusConfirmed {
		return apperrors.Conflict("Confirmed allocations cannot be released; cancel the booking instead")
	}

	next := cloneAllocations(c.allocations)
	delete(next, allocationID)

	if err := c.commitLocked(ctx, c.capacityLimit, next); err != nil {
		return err
	}
	c.broadcastLocked(ctx)

	c.cfg.Log.Info("Allocation released",
		"resource_key", c.key.String(),
		"allocation_id", allocationID,
	)
	return nil
}

// Cancel removes an allocation regardless of status. This is how a caller
// reverses a previously confirmed allocation. An unknown id is a no-op.
func (c *Coordinator) Cancel(ctx context.Context, allocationID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.allocations[allocationID]; !ok {
		return nil
	}

	next := cloneAllocations(c.allocations)
	delete(next, allocationID)

	if err := c.commitLocked(ctx, c.capacityLimit, next); err != nil {
		return err
	}
	c.broadcastLocked(ctx)

	c.cfg.Log.Info("Allocation cancelled",
		"resource_key", c.key.String(),
		"allocation_id", allocationID,
	)
	return nil
}

// CancelBooking removes whichever allocation carries the booking id.
// External collaborators (the booking events feed) know bookings, not
// allocation ids. An unknown booking id is a no-op.
func (c *Coordinator) CancelBooking(ctx context.Context, bookingID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var allocationID string
	for id, a := range c.allocations {
		if a.BookingID == bookingID {
			allocationID = id
			break
		}
	}
	if allocationID == "" {
		return nil
	}

	next := cloneAllocations(c.allocations)
	delete(next, allocationID)

	if err := c.commitLocked(ctx, c.capacityLimit, next); err != nil {
		return err
	}
	c.broadcastLocked(ctx)

	c.cfg.Log.Info("Allocation cancelled for booking",
		"resource_key", c.key.String(),
		"allocation_id", allocationID,
		"booking_id", bookingID,
	)
	return nil
}

// Check is a pure read: whether the extent could currently be reserved.
func (c *Coordinator) Check(extent model.Extent) (bool, error) {
	if err := c.validateExtent(extent); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return !Conflicts(c.key.Kind, c.capacityLimit, c.allocations, extent, c.clock.Now()), nil
}

// Status returns the current active allocations, optionally filtered to
// those overlapping the given window (room variant only).
func (c *Coordinator) Status(filter *model.Extent) model.StatusPayload {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload := c.statusLocked()
	if filter == nil || c.key.Kind != model.KindRoom {
		return payload
	}

	filtered := payload.Allocations[:0]
	for _, view := range payload.Allocations {
		if view.Start != nil && view.End != nil && filter.Overlaps(*view.Start, *view.End) {
			filtered = append(filtered, view)
		}
	}
	payload.Allocations = filtered
	return payload
}

// Subscribe opens a live status feed. The current payload is delivered
// first, then one payload per state change, in mutation order.
func (c *Coordinator) Subscribe() (<-chan model.StatusPayload, func()) {
	c.mu.Lock()
	current := c.statusLocked()
	c.mu.Unlock()

	return c.bc.subscribe(current)
}

// Stop shuts down the sweeper and closes all live subscriptions.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		c.bc.close()
	})
}

func (c *Coordinator) runSweeper() {
	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stopCh:
			return
		}
	}
}

// sweep removes reserved holds whose lease has lapsed. Nothing is persisted
// or broadcast when the pass finds no expired holds. A persistence failure
// leaves state untouched; the next pass retries.
func (c *Coordinator) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RequestTimeout)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	var expired []string
	for id, a := range c.allocations {
		if a.Expired(now) {
			expired = append(expired, id)
		}
	}
	if len(expired) == 0 {
		return
	}

	next := cloneAllocations(c.allocations)
	for _, id := range expired {
		delete(next, id)
	}

	if err := c.commitLocked(ctx, c.capacityLimit, next); err != nil {
		c.cfg.Log.Error("Sweep failed to persist; will retry",
			"resource_key", c.key.String(),
			"expired", len(expired),
			"error", err,
		)
		return
	}
	c.broadcastLocked(ctx)

	c.cfg.Log.Info("Swept expired holds",
		"resource_key", c.key.String(),
		"removed", len(expired),
	)
}

// commitLocked persists the next capacity limit and allocation set and only
// then makes them the in-memory state. Callers must hold c.mu. On failure the observable state
// is unchanged, preserving the invariant that observable state is always
// persisted state.
func (c *Coordinator) commitLocked(ctx context.Context, capacityLimit int, next map[string]model.Allocation) error {
	snap := &model.Snapshot{
		ID:            c.key.String(),
		TenantID:      c.key.TenantID,
		Kind:          c.key.Kind,
		ResourceID:    c.key.ResourceID,
		CapacityLimit: capacityLimit,
		Allocations:   make([]model.Allocation, 0, len(next)),
		UpdatedAt:     c.clock.Now(),
	}
	for _, a := range next {
		snap.Allocations = append(snap.Allocations, a)
	}

	if err := c.repo.Save(ctx, snap); err != nil {
		return apperrors.Internal("Failed to persist resource state", err)
	}

	c.capacityLimit = capacityLimit
	c.allocations = next
	return nil
}

// broadcastLocked pushes the new status to in-process subscribers and, if
// configured, mirrors it to the event sink. Callers must hold c.mu so
// delivery order matches mutation order.
func (c *Coordinator) broadcastLocked(ctx context.Context) {
	payload := c.statusLocked()
	c.bc.publish(payload)

	if c.sink != nil {
		if err := c.sink.PublishStatus(ctx, payload); err != nil {
			c.cfg.Log.Warn("Failed to mirror status to event sink",
				"resource_key", c.key.String(),
				"error", err,
			)
		}
	}
}

func (c *Coordinator) statusLocked() model.StatusPayload {
	now := c.clock.Now()
	views := make([]model.AllocationView, 0, len(c.allocations))
	for _, a := range c.allocations {
		if !a.Active(now) {
			continue
		}
		views = append(views, allocationView(a))
	}
	// Oldest first so subscribers see a stable order; ids break ties
	// between allocations created in the same instant.
	sort.Slice(views, func(i, j int) bool {
		if !views[i].CreatedAt.Equal(views[j].CreatedAt) {
			return views[i].CreatedAt.Before(views[j].CreatedAt)
		}
		return views[i].ID < views[j].ID
	})

	return model.StatusPayload{
		TenantID:    c.key.TenantID,
		Kind:        c.key.Kind,
		ResourceID:  c.key.ResourceID,
		Allocations: views,
	}
}

func (c *Coordinator) validateExtent(extent model.Extent) error {
	switch c.key.Kind {
	case model.KindRoom:
		if extent.Start.IsZero() || extent.End.IsZero() {
			return apperrors.InvalidInput("Room reservations require start and end")
		}
		if !extent.Start.Before(extent.End) {
			return apperrors.InvalidInput("End must be after start")
		}
	case model.KindEvent:
		if extent.Weight < 1 {
			return apperrors.InvalidInput("Event reservations require a positive weight")
		}
	default:
		return apperrors.InvalidInput("Unknown resource kind")
	}
	return nil
}

func (c *Coordinator) unavailableError() *apperrors.AppError {
	if c.key.Kind == model.KindEvent {
		return apperrors.Unavailable("Not enough remaining capacity")
	}
	return apperrors.Unavailable("Not available for these dates")
}

func allocationView(a model.Allocation) model.AllocationView {
	view := model.AllocationView{
		ID:        a.ID,
		HolderID:  a.HolderID,
		BookingID: a.BookingID,
		Weight:    a.Weight,
		Status:    a.Status,
		CreatedAt: a.CreatedAt,
		ExpiresAt: a.ExpiresAt,
	}
	if !a.Start.IsZero() {
		start := a.Start
		end := a.End
		view.Start = &start
		view.End = &end
	}
	return view
}

func cloneAllocations(src map[string]model.Allocation) map[string]model.Allocation {
	next := make(map[string]model.Allocation, len(src)+1)
	for id, a := range src {
		next[id] = a
	}
	return next
}
