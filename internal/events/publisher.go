package events

import (
	"context"
	"fmt"

	"unistay/pkg/kafka"
	"unistay/pkg/logger"
	"unistay/pkg/model"
)

const (
	Source        = "unistay-api"
	SchemaVersion = "1"
	TypePrefix    = "booking."
)

type Publisher interface {
	Publish(ctx context.Context, event model.BookingEvent) error
}

// MessagePublisher is satisfied by *kafka.Producer.
type MessagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type KafkaPublisher struct {
	producer MessagePublisher
}

func NewKafkaPublisher(producer MessagePublisher) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

// Publish keys events by booking id so one booking's events stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, event model.BookingEvent) error {
	msg := NewMessage(ctx, event)
	if len(msg.Value) == 0 {
		return fmt.Errorf("failed to encode booking event %s", event.EventID)
	}
	return p.producer.Publish(ctx, msg)
}

func NewMessage(ctx context.Context, event model.BookingEvent) kafka.Message {
	return kafka.NewMessage().
		WithKey(event.BookingID).
		WithValue(event).
		WithEventID(event.EventID).
		WithEventType(TypePrefix + event.Action).
		WithCorrelationID(logger.RequestID(ctx)).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		Build()
}

type Nop struct{}

func (Nop) Publish(context.Context, model.BookingEvent) error { return nil }
