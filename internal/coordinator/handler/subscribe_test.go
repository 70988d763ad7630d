package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"reservd/internal/coordinator/service"
	"reservd/internal/coordinator/validator"
	"reservd/pkg/clock"
	"reservd/pkg/config"
	"reservd/pkg/logger"
)

func TestSubscribeStreamsStatusEvents(t *testing.T) {
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

	apiRouter := testRouterWithDirectory(t, directory, log)

	subscribeHandler := NewSubscribeHandler(directory, log)
	streamRouter := newRouterFor(subscribeHandler)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, roomPath+"/subscribe", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		streamRouter.ServeHTTP(rec, req)
		close(done)
	}()

	// Let the subscriber attach and receive the initial payload, then
	// trigger a change it should observe.
	time.Sleep(50 * time.Millisecond)
	doJSON(t, apiRouter, http.MethodPost, roomPath+"/reserve", map[string]any{
		"holder_id": "alice",
		"start":     day(1),
		"end":       day(3),
	})
	time.Sleep(50 * time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("subscribe handler did not stop after context cancellation")
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected text/event-stream, got %q", ct)
	}

	body := rec.Body.String()
	events := strings.Count(body, "event: status")
	if events < 2 {
		t.Fatalf("expected at least 2 status events (initial + update), got %d in %q", events, body)
	}
	if !strings.Contains(body, "alice") {
		t.Fatalf("expected the update to carry the new allocation, body %q", body)
	}
}

func testRouterWithDirectory(t *testing.T, directory *service.Directory, log *logger.Logger) http.Handler {
	t.Helper()
	h := NewReservationHandler(directory, validator.NewReservationValidator(log), log)
	return newRouterFor(h)
}
