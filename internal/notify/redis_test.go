package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestNotifier(t *testing.T) (*RedisNotifier, *redis.Client) {
	t.Helper()

	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	return NewRedisNotifierWithClient(client, logger), client
}

// testWriter routes logger output through t.Log
type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func receiveEvent(t *testing.T, sub *redis.PubSub) Event {
	t.Helper()

	select {
	case msg := <-sub.Channel():
		var event Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestChildrenChangedPublishesParentID(t *testing.T) {
	notifier, client := newTestNotifier(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, ContentChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	parentID := "parent-1"
	notifier.ChildrenChanged(ctx, &parentID)

	event := receiveEvent(t, sub)
	if event.Type != EventChildrenChanged {
		t.Errorf("event type = %q, want %q", event.Type, EventChildrenChanged)
	}
	if event.ParentID == nil || *event.ParentID != parentID {
		t.Errorf("event parent = %v, want %q", event.ParentID, parentID)
	}
}

func TestChildrenChangedNilParentMeansRoot(t *testing.T) {
	notifier, client := newTestNotifier(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, ContentChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	notifier.ChildrenChanged(ctx, nil)

	event := receiveEvent(t, sub)
	if event.ParentID != nil {
		t.Errorf("event parent = %v, want nil", event.ParentID)
	}
}

func TestAccessDeniedReportsOnErrorChannel(t *testing.T) {
	notifier, client := newTestNotifier(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, ErrorChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	notifier.AccessDenied(ctx, "delete", "item-9")

	event := receiveEvent(t, sub)
	if event.Type != EventAccessDenied {
		t.Errorf("event type = %q, want %q", event.Type, EventAccessDenied)
	}
	if event.Operation != "delete" {
		t.Errorf("event operation = %q, want %q", event.Operation, "delete")
	}
	if event.ItemID != "item-9" {
		t.Errorf("event item = %q, want %q", event.ItemID, "item-9")
	}
}

func TestPublishFailureDoesNotPanic(t *testing.T) {
	notifier, client := newTestNotifier(t)
	client.Close()

	// Delivery is best-effort; a dead connection must not surface
	notifier.ChildrenChanged(context.Background(), nil)
	notifier.AccessDenied(context.Background(), "rename", "item-1")
}
