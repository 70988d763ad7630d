package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"reservd/internal/coordinator/service"
	httputil "reservd/pkg/http"
	"reservd/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

// SubscribeHandler streams status payloads over server-sent events. The
// current state is sent immediately, then one event per change until the
// client disconnects or the coordinator shuts down.
type SubscribeHandler struct {
	directory *service.Directory
	log       *logger.Logger
}

func NewSubscribeHandler(directory *service.Directory, log *logger.Logger) *SubscribeHandler {
	return &SubscribeHandler{
		directory: directory,
		log:       log,
	}
}

func (h *SubscribeHandler) Subscribe(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		if err := httputil.WriteJSON(w, http.StatusNotImplemented, httputil.ErrorResponse{
			Error: "Streaming is not supported by this server",
		}); err != nil {
			h.log.Error("failed to write JSON response", "handler", "Subscribe", "operation", "WriteJSON", "error", err)
		}
		return
	}

	key := resourceKeyFromParams(ps)

	coord, err := h.directory.Get(r.Context(), key)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Subscribe", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	updates, cancel := coord.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.log.Info("Subscriber connected", "resource_key", key.String())

	for {
		select {
		case <-r.Context().Done():
			h.log.Info("Subscriber disconnected", "resource_key", key.String())
			return
		case payload, open := <-updates:
			if !open {
				// Dropped for falling behind, or the coordinator stopped.
				h.log.Info("Subscription closed", "resource_key", key.String())
				return
			}

			data, err := json.Marshal(payload)
			if err != nil {
				h.log.Error("failed to encode status payload", "resource_key", key.String(), "error", err)
				return
			}
			if _, err := fmt.Fprintf(w, "event: status\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *SubscribeHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/resources/:tenant/:kind/:id/subscribe", h.Subscribe)
}
