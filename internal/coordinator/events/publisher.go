package events

import (
	"context"

	"reservd/pkg/config"
	"reservd/pkg/kafka"
	"reservd/pkg/logger"
	"reservd/pkg/model"
)

const (
	EventTypeAllocationChanged = "allocation.changed"

	sourceName = "reservd-coordinator"
)

// AllocationPublisher mirrors every status broadcast onto the allocation
// topic. Messages are keyed by resource key so all events for one resource
// land on the same partition in mutation order.
type AllocationPublisher struct {
	producer *kafka.Producer
	logger   *logger.Logger
}

func NewAllocationPublisher(cfg *config.Config, producer *kafka.Producer) *AllocationPublisher {
	return &AllocationPublisher{
		producer: producer,
		logger:   cfg.Log,
	}
}

func (p *AllocationPublisher) PublishStatus(ctx context.Context, payload model.StatusPayload) error {
	key := model.ResourceKey{
		TenantID:   payload.TenantID,
		Kind:       payload.Kind,
		ResourceID: payload.ResourceID,
	}

	msg := kafka.NewMessage().
		WithKey(key.String()).
		WithValue(payload).
		WithEventType(EventTypeAllocationChanged).
		WithSource(sourceName).
		Build()

	if err := p.producer.Publish(ctx, msg); err != nil {
		return err
	}

	p.logger.Debug("Published allocation event",
		"resource_key", key.String(),
		"event_id", msg.GetEventID(),
	)
	return nil
}

func (p *AllocationPublisher) Close() error {
	return p.producer.Close()
}
