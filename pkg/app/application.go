package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"reservd/pkg/config"
	"reservd/pkg/contracts"
	"reservd/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

// Application assembles the HTTP surface: health endpoints get minimal
// middleware, the API endpoints get the full stack, and streaming
// endpoints skip the timeout and idempotency layers that would break
// long-lived connections.
type Application struct {
	cfg              *config.Config
	server           *http.Server
	idempotencyStore *middleware.InMemoryIdempotencyStore
	rateLimiter      *middleware.HolderRateLimiter
	healthHandler    http.Handler
	apiHandler       http.Handler
	streamHandler    http.Handler
	onShutdown       []func()
}

func NewApplication() *Application {
	return &Application{}
}

// OnShutdown registers a hook to run during graceful shutdown, after the
// HTTP server stops accepting requests.
func (a *Application) OnShutdown(fn func()) {
	a.onShutdown = append(a.onShutdown, fn)
}

func (a *Application) SetApp(cfg *config.Config, healthHandler, apiHandler, streamHandler contracts.Handler) {
	a.cfg = cfg
	a.idempotencyStore = middleware.NewInMemoryIdempotencyStore(cfg.IdempotencyTTL)
	a.rateLimiter = middleware.NewHolderRateLimiter(
		cfg.RateLimitRequests,
		cfg.RateLimitWindow,
		middleware.DefaultHolderExtractor,
		cfg.Log,
	)
	a.setHealthHandler(cfg, healthHandler)
	a.setAPIHandler(cfg, apiHandler, a.rateLimiter)
	a.setStreamHandler(cfg, streamHandler, a.rateLimiter)
	a.setAppServer()
}

func (a *Application) setHealthHandler(cfg *config.Config, h contracts.Handler) {
	healthRouter := httprouter.New()
	h.RegisterRoutes(healthRouter)

	var handler http.Handler = healthRouter
	handler = middleware.RequestLogging(cfg.Log)(handler)
	handler = middleware.Recovery(cfg.Log)(handler)
	a.healthHandler = handler
	cfg.Log.Info("Health endpoints configured with minimal middleware (Recovery + Logging only)")
}

func (a *Application) setAPIHandler(cfg *config.Config, h contracts.Handler, limiter *middleware.HolderRateLimiter) {
	apiRouter := httprouter.New()
	h.RegisterRoutes(apiRouter)

	var handler http.Handler = apiRouter
	handler = middleware.Idempotency(a.idempotencyStore, "Idempotency-Key")(handler)
	handler = middleware.RequestTimeout(cfg.RequestTimeout)(handler)
	handler = middleware.HolderRateLimit(limiter)(handler)
	handler = middleware.ContentTypeValidation(cfg.Log)(handler)
	handler = middleware.MaxRequestSize(int64(cfg.MaxRequestSize))(handler)
	handler = middleware.RequestLogging(cfg.Log)(handler)
	handler = middleware.Recovery(cfg.Log)(handler)
	a.apiHandler = handler
	cfg.Log.Info("API endpoints configured with full middleware stack")
}

func (a *Application) setStreamHandler(cfg *config.Config, h contracts.Handler, limiter *middleware.HolderRateLimiter) {
	streamRouter := httprouter.New()
	h.RegisterRoutes(streamRouter)

	var handler http.Handler = streamRouter
	handler = middleware.HolderRateLimit(limiter)(handler)
	handler = middleware.RequestLogging(cfg.Log)(handler)
	handler = middleware.Recovery(cfg.Log)(handler)
	a.streamHandler = handler
	cfg.Log.Info("Streaming endpoints configured without timeout middleware")
}

func (a *Application) setAppServer() {
	mux := http.NewServeMux()
	mux.Handle("/health", a.healthHandler)
	mux.Handle("/ready", a.healthHandler)
	mux.Handle("GET /api/v1/resources/{tenant}/{kind}/{id}/subscribe", a.streamHandler)
	mux.Handle("/", a.apiHandler)

	a.server = &http.Server{
		Addr:        ":" + a.cfg.Port,
		Handler:     mux,
		ReadTimeout: a.cfg.ReadTimeout,
		IdleTimeout: a.cfg.IdleTimeout,
		// WriteTimeout stays zero so streaming responses are not cut off;
		// regular requests are bounded by the timeout middleware.
	}

	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

func (a *Application) Run() {
	serverErrors := make(chan error, 1)

	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		a.cfg.Log.Fatal("HTTP server failed", "error", err)

	case sig := <-shutdown:
		a.cfg.Log.Info("Shutdown signal received", "signal", sig)
		a.gracefulShutdown()
	}
}

func (a *Application) gracefulShutdown() {
	a.cfg.Log.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Fatal("Could not stop server gracefully", "error", err)
		}
	}

	a.cfg.Log.Info("Stopping background workers...")
	a.idempotencyStore.Stop()
	a.rateLimiter.Stop()
	for _, fn := range a.onShutdown {
		fn()
	}
	a.cfg.Log.Info("Background workers stopped")

	a.cfg.Log.Info("Server stopped gracefully")
}
