package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	kafka_config "unistay/pkg/kafka/config"
	"unistay/pkg/logger"
	"unistay/pkg/metrics"

	"github.com/segmentio/kafka-go"
)

const (
	fetchErrorBackoff = time.Second
	maxRetryBackoff   = 30 * time.Second
)

// Consumer reads one topic as part of a consumer group. Each message is
// handled, retried while its error is transient, parked on the DLQ topic
// otherwise, and then committed.
type Consumer struct {
	log        *logger.Logger
	reader     *kafka.Reader
	dlqWriter  *kafka.Writer
	topic      string
	groupID    string
	maxRetries int
	backoff    time.Duration
	handler    MessageHandler
	middleware []ConsumerMiddleware
	closed     bool
	mu         sync.RWMutex
	running    sync.WaitGroup
}

type ConsumerMiddleware func(ctx context.Context, msg Message, next MessageHandler) error

func NewConsumer(cfg *kafka_config.Config, log *logger.Logger, topic, groupID, dlqTopic string, handler MessageHandler) (*Consumer, error) {
	switch {
	case cfg == nil:
		return nil, errors.New("kafka consumer: config is required")
	case len(cfg.Brokers) == 0:
		return nil, errors.New("kafka consumer: at least one broker is required")
	case topic == "":
		return nil, errors.New("kafka consumer: topic is required")
	case groupID == "":
		return nil, errors.New("kafka consumer: group id is required")
	case handler == nil:
		return nil, errors.New("kafka consumer: handler is required")
	}

	c := &Consumer{
		log:        log,
		reader:     newReader(cfg, log, topic, groupID),
		topic:      topic,
		groupID:    groupID,
		maxRetries: cfg.ConsumerMaxRetries,
		backoff:    cfg.ConsumerRetryBackoff,
		handler:    handler,
	}
	if dlqTopic != "" {
		c.dlqWriter = newDLQWriter(cfg, log, "consumer", dlqTopic)
	}
	return c, nil
}

func (c *Consumer) Use(middleware ConsumerMiddleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middleware = append(c.middleware, middleware)
}

// Start blocks until ctx is cancelled or the consumer is closed.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrConsumerClosed
	}
	handler := chain(c.handler, c.middleware)
	c.running.Add(1)
	c.mu.RUnlock()
	defer c.running.Done()

	for {
		raw, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error("Kafka fetch failed", "topic", c.topic, "error", err)
			if !sleepCtx(ctx, fetchErrorBackoff) {
				return ctx.Err()
			}
			continue
		}

		msg := fromKafkaMessage(raw)
		if err := c.deliver(ctx, handler, msg); err != nil && ctx.Err() != nil {
			// Shutting down mid-retry: leave the offset so the next owner
			// of the partition sees the message again.
			return ctx.Err()
		}

		if err := c.reader.CommitMessages(ctx, raw); err != nil {
			c.log.Error("Kafka commit failed", "topic", c.topic, "offset", raw.Offset, "error", err)
		}
		metrics.KafkaConsumerLag.WithLabelValues(c.topic, c.groupID).Set(float64(c.reader.Lag()))
	}
}

// deliver runs handler until it succeeds, runs out of retries, or fails
// permanently. The final error is returned after the message is parked.
func (c *Consumer) deliver(ctx context.Context, handler MessageHandler, msg Message) error {
	for {
		err := handler(ctx, msg)
		if err == nil {
			return nil
		}

		attempt := msg.RetryCount()
		if ShouldRetry(err, attempt, c.maxRetries) {
			msg.IncrementRetryCount()
			if !sleepCtx(ctx, c.retryDelay(attempt+1)) {
				return ctx.Err()
			}
			continue
		}

		c.park(ctx, msg, err)
		return err
	}
}

// retryDelay doubles the configured backoff per attempt, capped at 30s.
func (c *Consumer) retryDelay(attempt int) time.Duration {
	d := c.backoff
	for i := 1; i < attempt && d < maxRetryBackoff; i++ {
		d *= 2
	}
	return min(d, maxRetryBackoff)
}

func (c *Consumer) park(ctx context.Context, msg Message, cause error) {
	if c.dlqWriter == nil {
		c.log.Error("Dropping kafka message, no DLQ configured",
			"topic", c.topic, "offset", msg.Offset, "event_id", msg.EventID(), "error", cause)
		return
	}

	err := c.dlqWriter.WriteMessages(context.WithoutCancel(ctx), toKafkaMessage(msg.parked(c.topic, c.groupID, cause)))
	if err != nil {
		c.log.Error("Failed to park kafka message on DLQ",
			"topic", c.topic, "offset", msg.Offset, "event_id", msg.EventID(), "error", fmt.Errorf("%w (handler error: %v)", err, cause))
		return
	}
	c.log.Warn("Kafka message parked on DLQ",
		"topic", c.topic, "event_id", msg.EventID(), "retries", msg.RetryCount(), "error", cause)
}

// Close waits for Start to return, so cancel its context first.
func (c *Consumer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.running.Wait()

	err := c.reader.Close()
	if c.dlqWriter != nil {
		err = errors.Join(err, c.dlqWriter.Close())
	}
	return err
}
