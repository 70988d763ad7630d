package service

import (
	"context"
	"sync"
	"testing"

	"reservd/pkg/clock"
	apperrors "reservd/pkg/errors"
	"reservd/pkg/model"
)

func TestDirectory_OneCoordinatorPerKey(t *testing.T) {
	ctx := context.Background()
	d := NewDirectory(testConfig(), newMemRepo(), clock.NewFake(date(1)), nil)
	defer d.Shutdown()

	first, err := d.Get(ctx, roomKey())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	second, err := d.Get(ctx, roomKey())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if first != second {
		t.Fatal("expected the same coordinator instance for the same key")
	}

	other, err := d.Get(ctx, eventKey())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if other == first {
		t.Fatal("expected distinct coordinators for distinct keys")
	}

	if d.Count() != 2 {
		t.Fatalf("expected 2 coordinators, got %d", d.Count())
	}
}

func TestDirectory_RejectsUnknownKind(t *testing.T) {
	d := NewDirectory(testConfig(), newMemRepo(), clock.NewFake(date(1)), nil)
	defer d.Shutdown()

	_, err := d.Get(context.Background(), model.ResourceKey{
		TenantID:   "acme",
		Kind:       "vehicle",
		ResourceID: "x",
	})
	assertErrorCode(t, err, apperrors.CodeInvalidInput)
}

func TestDirectory_ConcurrentGetSameKey(t *testing.T) {
	ctx := context.Background()
	d := NewDirectory(testConfig(), newMemRepo(), clock.NewFake(date(1)), nil)
	defer d.Shutdown()

	const workers = 16
	coords := make([]*Coordinator, workers)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			coord, err := d.Get(ctx, roomKey())
			if err != nil {
				t.Errorf("Get failed: %v", err)
				return
			}
			coords[i] = coord
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if coords[i] != coords[0] {
			t.Fatal("concurrent Gets returned different coordinator instances")
		}
	}
	if d.Count() != 1 {
		t.Fatalf("expected 1 coordinator, got %d", d.Count())
	}
}

func TestDirectory_SerializesAcrossGets(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	d := NewDirectory(testConfig(), repo, clock.NewFake(date(1)), nil)
	defer d.Shutdown()

	// Two callers resolving the key independently still contend on the
	// same state: only one overlapping reserve can win.
	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			coord, err := d.Get(ctx, roomKey())
			if err != nil {
				results <- err
				return
			}
			_, err = coord.Reserve(ctx, "holder", model.Extent{Start: date(1), End: date(3)}, 0)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var won int
	for err := range results {
		if err == nil {
			won++
		}
	}
	if won != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", won)
	}
}
