package service

import (
	"context"
	"sync"

	"reservd/internal/coordinator/repository"
	"reservd/pkg/clock"
	"reservd/pkg/config"
	apperrors "reservd/pkg/errors"
	"reservd/pkg/model"
)

// Directory maps resource keys to their live coordinator, creating one on
// first use. At most one coordinator exists per key for the lifetime of the
// process, so every request for a key is serialized through the same
// instance.
type Directory struct {
	cfg   *config.Config
	repo  repository.SnapshotRepository
	clock clock.Clock
	sink  EventSink

	mu           sync.RWMutex
	coordinators map[string]*Coordinator
}

func NewDirectory(cfg *config.Config, repo repository.SnapshotRepository, clk clock.Clock, sink EventSink) *Directory {
	return &Directory{
		cfg:          cfg,
		repo:         repo,
		clock:        clk,
		sink:         sink,
		coordinators: make(map[string]*Coordinator),
	}
}

// Get returns the coordinator for the key, creating and rehydrating it if
// this is the key's first request. Rehydration happens outside the
// directory lock so a slow load for one key never blocks others.
func (d *Directory) Get(ctx context.Context, key model.ResourceKey) (*Coordinator, error) {
	if !key.Kind.Valid() {
		return nil, apperrors.InvalidInput("Unknown resource kind")
	}

	id := key.String()

	d.mu.RLock()
	coord, ok := d.coordinators[id]
	d.mu.RUnlock()

	if !ok {
		d.mu.Lock()
		coord, ok = d.coordinators[id]
		if !ok {
			coord = newCoordinator(key, d.cfg, d.repo, d.clock, d.sink)
			d.coordinators[id] = coord
		}
		d.mu.Unlock()
	}

	if err := coord.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return coord, nil
}

// Count reports how many coordinators are live in this process.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.coordinators)
}

// CountByKind breaks the live coordinators down per resource kind.
func (d *Directory) CountByKind() map[model.ResourceKind]int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	counts := make(map[model.ResourceKind]int)
	for _, coord := range d.coordinators {
		counts[coord.Key().Kind]++
	}
	return counts
}

// Shutdown stops every live coordinator: sweepers exit and subscriber
// channels close.
func (d *Directory) Shutdown() {
	byKind := d.CountByKind()

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, coord := range d.coordinators {
		coord.Stop()
	}
	d.cfg.Log.Info("Coordinator directory shut down",
		"coordinators", len(d.coordinators),
		"rooms", byKind[model.KindRoom],
		"events", byKind[model.KindEvent],
	)
}
