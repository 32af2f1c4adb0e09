package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestQueueKeyPrefix(t *testing.T) {
	q := &RedisQueue{keyPrefix: defaultKeyPrefix}
	if got := q.getQueueKey(); got != "fundpulse:queue:messages" {
		t.Fatalf("unexpected key %q", got)
	}

	WithKeyPrefix("fundpulse:logq")(q)
	if got := q.getQueueKey(); got != "fundpulse:logq:messages" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestMessageWireShape(t *testing.T) {
	msg := Message{
		ID:        "1",
		Type:      "error_logs",
		Payload:   map[string]interface{}{"count": 3},
		Timestamp: time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != "error_logs" || got.Attempts != 0 {
		t.Fatalf("unexpected round trip %+v", got)
	}
}

func TestEnqueueNotRunning(t *testing.T) {
	q := &RedisQueue{keyPrefix: defaultKeyPrefix}
	if err := q.PublishMessage(context.Background(), "error_logs", nil); err == nil {
		t.Fatalf("expected error before Start")
	}
}
