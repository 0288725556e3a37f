package consumer

import (
	"context"
	"errors"

	"unistay/internal/notifications/service"
	"unistay/pkg/kafka"
	"unistay/pkg/logger"
	"unistay/pkg/model"
)

// BookingEvents turns booking events into in-app notifications.
type BookingEvents struct {
	service service.NotificationService
	log     *logger.Logger
}

func NewBookingEvents(service service.NotificationService, log *logger.Logger) *BookingEvents {
	return &BookingEvents{service: service, log: log}
}

// Handle is a kafka.MessageHandler. Malformed payloads are permanent failures
// and go straight to the DLQ; store failures are retried.
func (b *BookingEvents) Handle(ctx context.Context, msg kafka.Message) error {
	var event model.BookingEvent
	if err := msg.Decode(&event); err != nil {
		return kafka.NewPermanentError("failed to decode booking event", err)
	}
	if event.EventID == "" {
		event.EventID = msg.EventID()
	}
	if event.EventID == "" || event.BookingID == "" || event.Action == "" {
		return kafka.NewPermanentError("booking event missing identity", errors.New("event_id, booking_id and action are required")).
			WithDetail("offset", msg.Offset)
	}

	delivered, err := b.service.Deliver(ctx, &event)
	if err != nil {
		return kafka.NewTransientError("failed to store notifications", err).
			WithDetail("event_id", event.EventID)
	}

	b.log.Debug("Booking event delivered", "event_id", event.EventID, "action", event.Action, "notifications", delivered)
	return nil
}
