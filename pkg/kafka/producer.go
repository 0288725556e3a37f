package kafka

import (
	"context"
	"fmt"
	"sync"

	kafka_config "unistay/pkg/kafka/config"
	"unistay/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// Producer publishes keyed messages to one topic. A failed write is parked on
// the DLQ topic when one is configured, and the error is still returned.
type Producer struct {
	log        *logger.Logger
	writer     *kafka.Writer
	dlqWriter  *kafka.Writer
	topic      string
	middleware []ProducerMiddleware
	closed     bool
	mu         sync.RWMutex
}

type ProducerMiddleware func(ctx context.Context, msg Message, next MessageHandler) error

func NewProducer(cfg *kafka_config.Config, log *logger.Logger, topic string, dlqTopic string) (*Producer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}

	producer := &Producer{
		log:    log,
		writer: newWriter(cfg, log, "producer", topic),
		topic:  topic,
	}
	if dlqTopic != "" {
		producer.dlqWriter = newDLQWriter(cfg, log, "producer", dlqTopic)
	}

	return producer, nil
}

func (p *Producer) Use(middleware ProducerMiddleware) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.middleware = append(p.middleware, middleware)
}

func (p *Producer) Publish(ctx context.Context, msg Message) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrProducerClosed
	}
	middleware := append([]ProducerMiddleware(nil), p.middleware...)
	p.mu.RUnlock()

	if msg.Key == "" {
		return ErrEmptyKey
	}
	if len(msg.Value) == 0 {
		return ErrEmptyValue
	}
	msg.Topic = p.topic

	return chain(p.write, middleware)(ctx, msg)
}

func (p *Producer) write(ctx context.Context, msg Message) error {
	err := p.writer.WriteMessages(ctx, toKafkaMessage(msg))
	if err == nil || p.dlqWriter == nil {
		return err
	}

	if dlqErr := p.dlqWriter.WriteMessages(ctx, toKafkaMessage(msg.parked(p.topic, "", err))); dlqErr != nil {
		return fmt.Errorf("failed to send to DLQ: %v (original error: %w)", dlqErr, err)
	}

	p.log.Warn("kafka publish failed, message parked in DLQ",
		"topic", p.topic,
		"key", msg.Key,
		"event_id", msg.EventID(),
		"error", err,
	)
	return err
}

func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	err := p.writer.Close()
	if p.dlqWriter != nil {
		if dlqErr := p.dlqWriter.Close(); err == nil {
			err = dlqErr
		}
	}
	return err
}
