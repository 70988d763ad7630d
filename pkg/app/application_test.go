package app

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reservd/pkg/config"
	"reservd/pkg/contracts"
	"reservd/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type stubHandler struct {
	path string
}

func (s stubHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET(s.path, func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusOK)
	})
}

var _ contracts.Handler = stubHandler{}

func testAppConfig() *config.Config {
	return &config.Config{
		Port:              "0",
		RateLimitRequests: 2,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    time.Second,
		IdempotencyTTL:    time.Minute,
		MaxRequestSize:    1 << 20,
		Log:               logger.New(logger.Config{Level: "error", Format: logger.JSON, Service: "test", Output: io.Discard}),
	}
}

func get(t *testing.T, h http.Handler, path, holder string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if holder != "" {
		req.Header.Set("X-Holder-ID", holder)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// The API and streaming tiers must count against the same per-holder
// limiter, whichever tier the requests arrive on.
func TestSetApp_APIAndStreamShareRateLimiter(t *testing.T) {
	a := NewApplication()
	a.SetApp(testAppConfig(),
		stubHandler{path: "/health"},
		stubHandler{path: "/api/v1/ping"},
		stubHandler{path: "/stream/ping"},
	)
	defer a.idempotencyStore.Stop()
	defer a.rateLimiter.Stop()

	if rec := get(t, a.streamHandler, "/stream/ping", "alice"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from stream tier, got %d", rec.Code)
	}
	if rec := get(t, a.streamHandler, "/stream/ping", "alice"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from stream tier, got %d", rec.Code)
	}

	// The holder's budget of 2 is spent; both tiers now reject.
	if rec := get(t, a.streamHandler, "/stream/ping", "alice"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 from stream tier, got %d", rec.Code)
	}
	if rec := get(t, a.apiHandler, "/api/v1/ping", "alice"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 from api tier, got %d", rec.Code)
	}

	// Other holders are unaffected.
	if rec := get(t, a.streamHandler, "/stream/ping", "bob"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for a fresh holder, got %d", rec.Code)
	}
}
