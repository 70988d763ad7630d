package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"reservd/internal/coordinator/service"
	"reservd/internal/coordinator/validator"
	apperrors "reservd/pkg/errors"
	httputil "reservd/pkg/http"
	"reservd/pkg/logger"
	"reservd/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type ReservationHandler struct {
	directory *service.Directory
	validator *validator.ReservationValidator
	log       *logger.Logger
}

func NewReservationHandler(directory *service.Directory, v *validator.ReservationValidator, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		directory: directory,
		validator: v,
		log:       log,
	}
}

func resourceKeyFromParams(ps httprouter.Params) model.ResourceKey {
	return model.ResourceKey{
		TenantID:   ps.ByName("tenant"),
		Kind:       model.ResourceKind(ps.ByName("kind")),
		ResourceID: ps.ByName("id"),
	}
}

func (h *ReservationHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "error", writeErr)
	}
}

func (h *ReservationHandler) validationError(w http.ResponseWriter, handler string, err error) {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		details := make(map[string]any, len(verrs))
		for _, ve := range verrs {
			details[ve.Field] = ve.Message
		}
		h.writeError(w, handler, apperrors.Validation("Request validation failed", details))
		return
	}
	h.writeError(w, handler, apperrors.InvalidInput(err.Error()))
}

func (h *ReservationHandler) Init(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	key := resourceKeyFromParams(ps)

	var req model.InitRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, "Init", apperrors.InvalidInput("Invalid request body"))
			return
		}
	}

	if err := h.validator.ValidateInit(&req); err != nil {
		h.validationError(w, "Init", err)
		return
	}

	coord, err := h.directory.Get(r.Context(), key)
	if err != nil {
		h.writeError(w, "Init", err)
		return
	}

	if err := coord.Init(r.Context(), req.CapacityLimit, req.Seed); err != nil {
		h.writeError(w, "Init", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ReservationHandler) Reserve(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	key := resourceKeyFromParams(ps)

	var req model.ReserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Reserve", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.validator.ValidateReserve(key.Kind, &req); err != nil {
		h.validationError(w, "Reserve", err)
		return
	}

	coord, err := h.directory.Get(r.Context(), key)
	if err != nil {
		h.writeError(w, "Reserve", err)
		return
	}

	extent := model.Extent{Weight: req.Weight}
	if req.Start != nil {
		extent.Start = *req.Start
	}
	if req.End != nil {
		extent.End = *req.End
	}

	resp, err := coord.Reserve(r.Context(), req.HolderID, extent, time.Duration(req.HoldDurationMs)*time.Millisecond)
	if err != nil {
		h.writeError(w, "Reserve", err)
		return
	}

	if err := httputil.WriteCreated(w, resp); err != nil {
		h.log.Error("failed to write created response", "handler", "Reserve", "error", err)
	}
}

func (h *ReservationHandler) Confirm(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	key := resourceKeyFromParams(ps)

	var req model.ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Confirm", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.validator.ValidateConfirm(&req); err != nil {
		h.validationError(w, "Confirm", err)
		return
	}

	coord, err := h.directory.Get(r.Context(), key)
	if err != nil {
		h.writeError(w, "Confirm", err)
		return
	}

	if err := coord.Confirm(r.Context(), req.AllocationID, req.BookingID); err != nil {
		h.writeError(w, "Confirm", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ReservationHandler) Release(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	key := resourceKeyFromParams(ps)

	var req model.ReleaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Release", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.validator.ValidateRelease(&req); err != nil {
		h.validationError(w, "Release", err)
		return
	}

	coord, err := h.directory.Get(r.Context(), key)
	if err != nil {
		h.writeError(w, "Release", err)
		return
	}

	if err := coord.Release(r.Context(), req.AllocationID); err != nil {
		h.writeError(w, "Release", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	key := resourceKeyFromParams(ps)

	var req model.CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Cancel", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.validator.ValidateCancel(&req); err != nil {
		h.validationError(w, "Cancel", err)
		return
	}

	coord, err := h.directory.Get(r.Context(), key)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := coord.Cancel(r.Context(), req.AllocationID); err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ReservationHandler) Check(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	key := resourceKeyFromParams(ps)

	extent, err := extentFromQuery(r, key.Kind)
	if err != nil {
		h.writeError(w, "Check", err)
		return
	}

	coord, err := h.directory.Get(r.Context(), key)
	if err != nil {
		h.writeError(w, "Check", err)
		return
	}

	available, err := coord.Check(*extent)
	if err != nil {
		h.writeError(w, "Check", err)
		return
	}

	if err := httputil.WriteSuccess(w, model.CheckResponse{Available: available}); err != nil {
		h.log.Error("failed to write success response", "handler", "Check", "error", err)
	}
}

func (h *ReservationHandler) Status(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	key := resourceKeyFromParams(ps)

	var filter *model.Extent
	if hasWindowQuery(r) {
		parsed, err := extentFromQuery(r, model.KindRoom)
		if err != nil {
			h.writeError(w, "Status", err)
			return
		}
		filter = parsed
	}

	coord, err := h.directory.Get(r.Context(), key)
	if err != nil {
		h.writeError(w, "Status", err)
		return
	}

	if err := httputil.WriteSuccess(w, coord.Status(filter)); err != nil {
		h.log.Error("failed to write success response", "handler", "Status", "error", err)
	}
}

func hasWindowQuery(r *http.Request) bool {
	query := r.URL.Query()
	return query.Get("start") != "" || query.Get("end") != ""
}

func extentFromQuery(r *http.Request, kind model.ResourceKind) (*model.Extent, error) {
	query := r.URL.Query()
	extent := &model.Extent{}

	switch kind {
	case model.KindRoom:
		startStr := query.Get("start")
		endStr := query.Get("end")
		if startStr == "" || endStr == "" {
			return nil, apperrors.InvalidInput("Both 'start' and 'end' query parameters are required")
		}

		start, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return nil, apperrors.InvalidInput("invalid start format, must be RFC3339")
		}
		end, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return nil, apperrors.InvalidInput("invalid end format, must be RFC3339")
		}
		extent.Start = start
		extent.End = end

	case model.KindEvent:
		weightStr := query.Get("weight")
		if weightStr == "" {
			return nil, apperrors.InvalidInput("The 'weight' query parameter is required")
		}
		weight, err := strconv.Atoi(weightStr)
		if err != nil || weight < 1 {
			return nil, apperrors.InvalidInput("invalid weight, must be a positive integer")
		}
		extent.Weight = weight
	}

	return extent, nil
}

func (h *ReservationHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/resources/:tenant/:kind/:id/init", h.Init)
	router.POST("/api/v1/resources/:tenant/:kind/:id/reserve", h.Reserve)
	router.POST("/api/v1/resources/:tenant/:kind/:id/confirm", h.Confirm)
	router.POST("/api/v1/resources/:tenant/:kind/:id/release", h.Release)
	router.POST("/api/v1/resources/:tenant/:kind/:id/cancel", h.Cancel)
	router.GET("/api/v1/resources/:tenant/:kind/:id/check", h.Check)
	router.GET("/api/v1/resources/:tenant/:kind/:id/status", h.Status)
}
