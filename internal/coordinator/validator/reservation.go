package validator

import (
	"errors"
	"fmt"
	"strings"

	"reservd/pkg/logger"
	"reservd/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// ReservationValidator checks incoming request payloads. Kind-specific
// rules (date ranges for rooms, weights for events) are applied on top of
// the struct tags since the same reserve payload serves both kinds.
type ReservationValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewReservationValidator(log *logger.Logger) *ReservationValidator {
	v := validator.New()

	log.Info("Reservation validator initialized successfully")

	return &ReservationValidator{
		validate: v,
		logger:   log,
	}
}

func (v *ReservationValidator) ValidateInit(req *model.InitRequest) error {
	return v.validateStruct(req)
}

func (v *ReservationValidator) ValidateReserve(kind model.ResourceKind, req *model.ReserveRequest) error {
	if err := v.validateStruct(req); err != nil {
		return err
	}

	var errs ValidationErrors
	switch kind {
	case model.KindRoom:
		if req.Start == nil || req.End == nil {
			errs = append(errs, ValidationError{
				Field:   "start",
				Message: "start and end are required for room reservations",
			})
		} else if !req.Start.Before(*req.End) {
			errs = append(errs, ValidationError{
				Field:   "end",
				Message: "end must be after start",
			})
		}
	case model.KindEvent:
		if req.Weight < 1 {
			errs = append(errs, ValidationError{
				Field:   "weight",
				Message: "weight must be at least 1 for event reservations",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *ReservationValidator) ValidateConfirm(req *model.ConfirmRequest) error {
	return v.validateStruct(req)
}

func (v *ReservationValidator) ValidateRelease(req *model.ReleaseRequest) error {
	return v.validateStruct(req)
}

func (v *ReservationValidator) ValidateCancel(req *model.CancelRequest) error {
	return v.validateStruct(req)
}

func (v *ReservationValidator) validateStruct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *ReservationValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
