package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"time"

	"unistay/pkg/logger"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Message is the transport-neutral form of a record. Partition and Offset
// are only set on consumed messages.
type Message struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
}

const (
	HeaderEventID       = "event-id"
	HeaderEventType     = "event-type"
	HeaderCorrelationID = "correlation-id"
	HeaderSchemaVersion = "schema-version"
	HeaderSource        = "source"
	HeaderTimestamp     = "timestamp"
	HeaderRetryCount    = "retry-count"

	HeaderOriginalTopic    = "original-topic"
	HeaderDLQError         = "dlq-error"
	HeaderDLQTimestamp     = "dlq-timestamp"
	HeaderDLQConsumerGroup = "dlq-consumer-group"
)

// MessageHandler processes one consumed message. A *KafkaError return tells
// the consumer whether to retry.
type MessageHandler func(ctx context.Context, msg Message) error

type MessageBuilder struct {
	msg Message
}

func NewMessage() *MessageBuilder {
	return &MessageBuilder{msg: Message{
		Headers:   map[string]string{},
		Timestamp: time.Now().UTC(),
	}}
}

func (b *MessageBuilder) WithKey(key string) *MessageBuilder {
	b.msg.Key = key
	return b
}

// WithValue JSON-encodes v. An unencodable value leaves the payload empty,
// which Producer.Publish rejects with ErrEmptyValue.
func (b *MessageBuilder) WithValue(v any) *MessageBuilder {
	data, err := json.Marshal(v)
	if err != nil {
		data = nil
	}
	b.msg.Value = data
	return b
}

func (b *MessageBuilder) WithRawValue(value []byte) *MessageBuilder {
	b.msg.Value = value
	return b
}

// WithEventID sets the event id, generating one when id is empty.
func (b *MessageBuilder) WithEventID(id string) *MessageBuilder {
	if id == "" {
		id = uuid.NewString()
	}
	return b.header(HeaderEventID, id)
}

func (b *MessageBuilder) WithEventType(eventType string) *MessageBuilder {
	return b.header(HeaderEventType, eventType)
}

func (b *MessageBuilder) WithCorrelationID(id string) *MessageBuilder {
	return b.header(HeaderCorrelationID, id)
}

func (b *MessageBuilder) WithSchemaVersion(version string) *MessageBuilder {
	return b.header(HeaderSchemaVersion, version)
}

func (b *MessageBuilder) WithSource(source string) *MessageBuilder {
	return b.header(HeaderSource, source)
}

func (b *MessageBuilder) header(key, value string) *MessageBuilder {
	if value != "" {
		b.msg.Headers[key] = value
	}
	return b
}

// Build fills in the event id and timestamp headers when missing.
func (b *MessageBuilder) Build() Message {
	if b.msg.Headers[HeaderEventID] == "" {
		b.msg.Headers[HeaderEventID] = uuid.NewString()
	}
	if b.msg.Headers[HeaderTimestamp] == "" {
		b.msg.Headers[HeaderTimestamp] = b.msg.Timestamp.Format(time.RFC3339)
	}
	return b.msg
}

func (m *Message) Decode(v any) error {
	return json.Unmarshal(m.Value, v)
}

func (m *Message) Header(key string) (string, bool) {
	v, ok := m.Headers[key]
	return v, ok
}

func (m *Message) EventID() string       { return m.Headers[HeaderEventID] }
func (m *Message) EventType() string     { return m.Headers[HeaderEventType] }
func (m *Message) CorrelationID() string { return m.Headers[HeaderCorrelationID] }

// RetryCount is zero when the header is missing or malformed.
func (m *Message) RetryCount() int {
	n, err := strconv.Atoi(m.Headers[HeaderRetryCount])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (m *Message) IncrementRetryCount() {
	if m.Headers == nil {
		m.Headers = map[string]string{}
	}
	m.Headers[HeaderRetryCount] = strconv.Itoa(m.RetryCount() + 1)
}

// parked returns a copy of m annotated for the dead letter topic. group is
// empty when the producer parks a message it failed to publish.
func (m Message) parked(topic, group string, cause error) Message {
	headers := maps.Clone(m.Headers)
	if headers == nil {
		headers = map[string]string{}
	}
	now := time.Now().UTC()
	headers[HeaderOriginalTopic] = topic
	headers[HeaderDLQError] = cause.Error()
	headers[HeaderDLQTimestamp] = now.Format(time.RFC3339)
	if group != "" {
		headers[HeaderDLQConsumerGroup] = group
	}
	m.Headers = headers
	m.Timestamp = now
	return m
}

func toKafkaMessage(msg Message) kafka.Message {
	out := kafka.Message{
		Key:     []byte(msg.Key),
		Value:   msg.Value,
		Time:    msg.Timestamp,
		Headers: make([]kafka.Header, 0, len(msg.Headers)),
	}
	for k, v := range msg.Headers {
		out.Headers = append(out.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return out
}

func fromKafkaMessage(in kafka.Message) Message {
	msg := Message{
		Key:       string(in.Key),
		Value:     in.Value,
		Headers:   make(map[string]string, len(in.Headers)),
		Topic:     in.Topic,
		Partition: in.Partition,
		Offset:    in.Offset,
		Timestamp: in.Time,
	}
	for _, h := range in.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

// chain wraps handler so middleware[0] runs first.
func chain[M ~func(context.Context, Message, MessageHandler) error](handler MessageHandler, middleware []M) MessageHandler {
	for i := len(middleware) - 1; i >= 0; i-- {
		mw, next := middleware[i], handler
		handler = func(ctx context.Context, m Message) error {
			return mw(ctx, m, next)
		}
	}
	return handler
}

// sleepCtx waits for d or until ctx is done. Reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func errorLogger(log *logger.Logger, role, topic string) kafka.LoggerFunc {
	return func(msg string, args ...any) {
		log.Error("kafka-go "+role+" error", "topic", topic, "detail", fmt.Sprintf(msg, args...))
	}
}
