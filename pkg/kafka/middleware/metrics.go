package kafka_middleware

import (
	"context"
	"time"

	"unistay/pkg/kafka"
	"unistay/pkg/metrics"
)

// MetricsProducerMiddleware records publish counts and latency per topic.
func MetricsProducerMiddleware() kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		return timed(ctx, msg, next, "publish")
	}
}

// MetricsConsumerMiddleware records handler counts and latency per topic.
// Each retry attempt is counted.
func MetricsConsumerMiddleware() kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		return timed(ctx, msg, next, "consume")
	}
}

func timed(ctx context.Context, msg kafka.Message, next kafka.MessageHandler, direction string) error {
	start := time.Now()
	err := next(ctx, msg)
	metrics.KafkaMessageDuration.WithLabelValues(direction, msg.Topic).Observe(time.Since(start).Seconds())
	metrics.KafkaMessagesTotal.WithLabelValues(direction, msg.Topic, metrics.Outcome(err)).Inc()
	return err
}
