package middleware

import (
	"net/http"
	"sync"
	"time"

	"reservd/pkg/logger"
)

// HolderExtractor resolves the principal a request should be rate limited
// by. The default reads the X-Holder-ID header the booking API forwards.
type HolderExtractor func(r *http.Request) string

type HolderRateLimiter struct {
	mu        sync.Mutex
	requests  map[string][]time.Time
	limit     int
	window    time.Duration
	extractor HolderExtractor
	log       *logger.Logger
	stopCh    chan struct{}
}

func NewHolderRateLimiter(limit int, window time.Duration, extractor HolderExtractor, log *logger.Logger) *HolderRateLimiter {
	limiter := &HolderRateLimiter{
		requests:  make(map[string][]time.Time),
		limit:     limit,
		window:    window,
		extractor: extractor,
		log:       log,
		stopCh:    make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

func (rl *HolderRateLimiter) cleanup() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			for holder, timestamps := range rl.requests {
				if len(timestamps) == 0 || time.Since(timestamps[len(timestamps)-1]) > rl.window {
					delete(rl.requests, holder)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *HolderRateLimiter) Stop() {
	close(rl.stopCh)
}

func (rl *HolderRateLimiter) Allow(holder string) bool {
	if holder == "" {
		return true
	}

	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	valid := rl.requests[holder][:0]
	for _, ts := range rl.requests[holder] {
		if now.Sub(ts) < rl.window {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[holder] = valid
		return false
	}

	rl.requests[holder] = append(valid, now)
	return true
}

func HolderRateLimit(limiter *HolderRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			holder := limiter.extractor(r)
			if holder == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow(holder) {
				limiter.log.Warn("Rate limit exceeded",
					"request_id", requestIDFromContext(r.Context()),
					"holder_id", holder,
					"path", r.URL.Path,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"Rate limit exceeded"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func DefaultHolderExtractor(r *http.Request) string {
	return r.Header.Get("X-Holder-ID")
}
