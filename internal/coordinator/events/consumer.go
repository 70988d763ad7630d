package events

import (
	"context"
	"fmt"

	"reservd/internal/coordinator/service"
	"reservd/pkg/config"
	"reservd/pkg/kafka"
	kafka_config "reservd/pkg/kafka/config"
	kafka_middleware "reservd/pkg/kafka/middleware"
	"reservd/pkg/logger"
	"reservd/pkg/model"
)

const (
	EventTypeBookingCancelled = "booking.cancelled"
)

// BookingEvent is the payload the booking system emits when a booking
// changes state. Only cancellations matter here: a cancelled booking frees
// its allocation.
type BookingEvent struct {
	TenantID   string             `json:"tenant_id"`
	Kind       model.ResourceKind `json:"kind"`
	ResourceID string             `json:"resource_id"`
	BookingID  string             `json:"booking_id"`
}

// BookingEventConsumer listens to the booking events topic and cancels
// allocations for cancelled bookings, so callers do not have to call the
// cancel endpoint themselves.
type BookingEventConsumer struct {
	consumer  *kafka.Consumer
	directory *service.Directory
	logger    *logger.Logger
}

func NewBookingEventConsumer(cfg *config.Config, kafkaCfg *kafka_config.Config, directory *service.Directory) (*BookingEventConsumer, error) {
	bec := &BookingEventConsumer{
		directory: directory,
		logger:    cfg.Log,
	}

	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		cfg.BookingEventsTopic,
		cfg.BookingEventsGroup,
		cfg.BookingEventsTopic+".dlq",
		bec.handle,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create booking event consumer: %w", err)
	}
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))

	bec.consumer = consumer
	return bec, nil
}

func (c *BookingEventConsumer) handle(ctx context.Context, msg kafka.Message) error {
	if msg.GetEventType() != EventTypeBookingCancelled {
		return nil
	}

	var event BookingEvent
	if err := msg.DecodeValue(&event); err != nil {
		return fmt.Errorf("%w: %v", kafka.ErrInvalidMessage, err)
	}
	if event.BookingID == "" || !event.Kind.Valid() {
		return fmt.Errorf("%w: missing booking id or kind", kafka.ErrInvalidMessage)
	}

	key := model.ResourceKey{
		TenantID:   event.TenantID,
		Kind:       event.Kind,
		ResourceID: event.ResourceID,
	}

	coord, err := c.directory.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := coord.CancelBooking(ctx, event.BookingID); err != nil {
		return err
	}

	c.logger.Info("Processed booking cancellation",
		"resource_key", key.String(),
		"booking_id", event.BookingID,
		"event_id", msg.GetEventID(),
	)
	return nil
}

// Start blocks consuming messages until the context is cancelled.
func (c *BookingEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *BookingEventConsumer) Close() error {
	return c.consumer.Close()
}
