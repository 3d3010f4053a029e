// Package notify fans change and error events out to UI collaborators over
// Redis pub/sub: "children of X changed" for list refresh, and the
// access-denied side channel behind the permission toast.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// ContentChannel carries children-changed events
	ContentChannel = "campus:content"

	// ErrorChannel carries access-denied reports
	ErrorChannel = "campus:errors"
)

// Event is the wire shape of a notification
type Event struct {
	Type      string    `json:"type"`
	ParentID  *string   `json:"parent_id,omitempty"`
	ItemID    string    `json:"item_id,omitempty"`
	Operation string    `json:"operation,omitempty"`
	At        time.Time `json:"at"`
}

const (
	EventChildrenChanged = "children_changed"
	EventAccessDenied    = "access_denied"
)

// RedisNotifier publishes events over Redis pub/sub. Delivery is
// best-effort: publish failures are logged and swallowed so a mutation
// never fails on its notification.
type RedisNotifier struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisNotifier creates a notifier from a Redis URL
func NewRedisNotifier(redisURL string, logger *slog.Logger) (*RedisNotifier, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisNotifier{client: client, logger: logger}, nil
}

// NewRedisNotifierWithClient creates a notifier from an existing client
func NewRedisNotifierWithClient(client *redis.Client, logger *slog.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, logger: logger}
}

// ChildrenChanged announces that the children of a parent changed.
// parentID nil means the root listing changed.
func (n *RedisNotifier) ChildrenChanged(ctx context.Context, parentID *string) {
	n.publish(ctx, ContentChannel, Event{
		Type:     EventChildrenChanged,
		ParentID: parentID,
		At:       time.Now(),
	})
}

// AccessDenied reports a storage-layer rejection on the error side channel.
// The originating call still receives the error; this report exists so UI
// layers can surface a generic permission toast.
func (n *RedisNotifier) AccessDenied(ctx context.Context, operation string, itemID string) {
	n.publish(ctx, ErrorChannel, Event{
		Type:      EventAccessDenied,
		ItemID:    itemID,
		Operation: operation,
		At:        time.Now(),
	})
}

func (n *RedisNotifier) publish(ctx context.Context, channel string, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("failed to marshal notification", "type", event.Type, "error", err)
		return
	}

	if err := n.client.Publish(ctx, channel, payload).Err(); err != nil {
		n.logger.Warn("failed to publish notification",
			"channel", channel,
			"type", event.Type,
			"error", err,
		)
	}
}

// Subscribe returns a subscription to the given channel. Callers own the
// returned PubSub and must Close it.
func (n *RedisNotifier) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	return n.client.Subscribe(ctx, channel)
}

// Ping checks the Redis connection
func (n *RedisNotifier) Ping(ctx context.Context) error {
	return n.client.Ping(ctx).Err()
}

// Close releases the Redis client
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
