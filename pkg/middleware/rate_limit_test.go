package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reservd/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Service: "test",
	})
}

func TestHolderRateLimiter_Allow(t *testing.T) {
	limiter := NewHolderRateLimiter(3, time.Minute, DefaultHolderExtractor, testLogger())
	defer limiter.Stop()

	for i := 0; i < 3; i++ {
		if !limiter.Allow("alice") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if limiter.Allow("alice") {
		t.Fatal("fourth request should be rejected")
	}

	// Other holders are unaffected.
	if !limiter.Allow("bob") {
		t.Fatal("different holder should be allowed")
	}

	// Anonymous requests are never limited here.
	if !limiter.Allow("") {
		t.Fatal("empty holder should be allowed")
	}
}

func TestHolderRateLimit_Middleware(t *testing.T) {
	limiter := NewHolderRateLimiter(1, time.Minute, DefaultHolderExtractor, testLogger())
	defer limiter.Stop()

	handler := HolderRateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	request := func(holder string) int {
		req := httptest.NewRequest(http.MethodPost, "/reserve", nil)
		if holder != "" {
			req.Header.Set("X-Holder-ID", holder)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := request("alice"); code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", code)
	}
	if code := request("alice"); code != http.StatusTooManyRequests {
		t.Fatalf("second request should be limited, got %d", code)
	}
	if code := request(""); code != http.StatusOK {
		t.Fatalf("request without holder header should pass, got %d", code)
	}
}
