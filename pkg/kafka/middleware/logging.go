package kafka_middleware

import (
	"context"
	"time"

	"unistay/pkg/kafka"
	"unistay/pkg/logger"
)

// LoggingProducerMiddleware logs each publish at debug, failures at error.
func LoggingProducerMiddleware(log *logger.Logger) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)

		l := log.WithContext(ctx).With(
			"topic", msg.Topic,
			"key", msg.Key,
			"event_id", msg.EventID(),
			"event_type", msg.EventType(),
			"duration", time.Since(start),
		)
		if err != nil {
			l.Error("Failed to publish booking event", "error", err)
			return err
		}
		l.Debug("Published booking event")
		return nil
	}
}

// LoggingConsumerMiddleware logs handler outcomes. Failures the consumer will
// retry are warnings; anything headed for the DLQ is an error.
func LoggingConsumerMiddleware(log *logger.Logger) kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)

		l := log.With(
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"event_id", msg.EventID(),
			"correlation_id", msg.CorrelationID(),
			"retry_count", msg.RetryCount(),
			"duration", time.Since(start),
		)
		switch {
		case err == nil:
			l.Debug("Handled booking event")
		case kafka.ClassifyError(err) == kafka.ErrorTypeTransient:
			l.Warn("Booking event handler failed, will retry", "error", err)
		default:
			l.Error("Booking event handler failed permanently", "error", err)
		}
		return err
	}
}
