package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestRetryCountIncrements(t *testing.T) {
	msg := NewMessage().WithKey("b1").WithRawValue([]byte("{}")).Build()
	for i := 1; i <= 12; i++ {
		msg.IncrementRetryCount()
		if got := msg.RetryCount(); got != i {
			t.Fatalf("after %d increments RetryCount() = %d", i, got)
		}
	}
}

func TestBuildSetsEventIDAndTimestamp(t *testing.T) {
	msg := NewMessage().WithKey("k").WithValue(map[string]string{"a": "b"}).Build()
	if msg.EventID() == "" {
		t.Error("expected generated event id")
	}
	if _, ok := msg.Header(HeaderTimestamp); !ok {
		t.Error("expected timestamp header")
	}

	var decoded map[string]string
	if err := msg.Decode(&decoded); err != nil || decoded["a"] != "b" {
		t.Errorf("Decode() = %v, %v", decoded, err)
	}
}

func TestParkedDoesNotMutateOriginal(t *testing.T) {
	msg := NewMessage().WithKey("k").WithEventID("e1").Build()
	parked := msg.parked("booking-events", "unistay-notifier", errors.New("bad payload"))

	if parked.Headers[HeaderOriginalTopic] != "booking-events" || parked.Headers[HeaderDLQError] != "bad payload" {
		t.Errorf("unexpected dlq headers: %v", parked.Headers)
	}
	if parked.Headers[HeaderDLQConsumerGroup] != "unistay-notifier" {
		t.Errorf("expected consumer group header, got %v", parked.Headers)
	}
	if _, ok := msg.Headers[HeaderDLQError]; ok {
		t.Error("original message headers were modified")
	}

	fromProducer := msg.parked("booking-events", "", errors.New("broker down"))
	if _, ok := fromProducer.Headers[HeaderDLQConsumerGroup]; ok {
		t.Error("producer-parked messages carry no consumer group")
	}
}

func TestRetryCountIgnoresGarbage(t *testing.T) {
	msg := Message{Headers: map[string]string{HeaderRetryCount: "-3"}}
	if got := msg.RetryCount(); got != 0 {
		t.Errorf("RetryCount() = %d, want 0", got)
	}
	msg.Headers[HeaderRetryCount] = "two"
	if got := msg.RetryCount(); got != 0 {
		t.Errorf("RetryCount() = %d, want 0", got)
	}
}

func TestKafkaMessageConversion(t *testing.T) {
	msg := NewMessage().WithKey("k").WithRawValue([]byte("v")).WithEventType("booking.accept").Build()
	back := fromKafkaMessage(toKafkaMessage(msg))
	if back.Key != "k" || string(back.Value) != "v" || back.EventType() != "booking.accept" {
		t.Errorf("conversion lost data: %+v", back)
	}
}

func TestChainConsumerOrder(t *testing.T) {
	var order []string
	mw := func(name string) ConsumerMiddleware {
		return func(ctx context.Context, msg Message, next MessageHandler) error {
			order = append(order, name)
			return next(ctx, msg)
		}
	}
	h := chain(func(ctx context.Context, msg Message) error {
		order = append(order, "handler")
		return nil
	}, []ConsumerMiddleware{mw("a"), mw("b")})

	_ = h(context.Background(), Message{})
	want := []string{"a", "b", "handler"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestSleepCtx(t *testing.T) {
	if !sleepCtx(context.Background(), time.Millisecond) {
		t.Error("expected sleep to complete")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sleepCtx(ctx, time.Hour) {
		t.Error("expected cancelled context to interrupt sleep")
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		retries int
		want    bool
	}{
		{"nil", nil, 0, false},
		{"transient", NewTransientError("db down", nil), 0, true},
		{"transient exhausted", NewTransientError("db down", nil), 3, false},
		{"permanent", NewPermanentError("bad json", nil), 0, false},
		{"timeout text", errors.New("i/o Timeout"), 1, true},
		{"deadline", context.DeadlineExceeded, 0, true},
		{"decode failure", &json.SyntaxError{Offset: 1}, 0, false},
		{"wrapped invalid message", fmt.Errorf("decode: %w", ErrInvalidMessage), 0, false},
		{"mongo outage", errors.New("server selection error: context deadline"), 0, true},
		{"unknown", errors.New("unexpected"), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldRetry(tt.err, tt.retries, 3); got != tt.want {
				t.Errorf("ShouldRetry() = %v, want %v", got, tt.want)
			}
		})
	}
}
