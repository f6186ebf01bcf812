// Package notifications publishes content events to Redis for any
// subscriber (search indexers, cache warmers, live feeds).
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"culturetech/internal/observability"

	"github.com/redis/go-redis/v9"
)

// BroadcastChannel carries every content event.
const BroadcastChannel = "events:broadcast"

// Event types.
const (
	EventPostCreated    = "post_created"
	EventCommentCreated = "comment_created"
)

// Event is the envelope published on BroadcastChannel.
type Event struct {
	Type       string    `json:"type"`
	Payload    any       `json:"payload"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Notifier provides helpers to publish events into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
// A nil client turns publishing into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishBroadcast sends a raw payload to BroadcastChannel.
func (n *Notifier) PublishBroadcast(ctx context.Context, payload string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	ctx, span := observability.StartRedisSpan(ctx, "publish")
	err := n.rdb.Publish(ctx, BroadcastChannel, payload).Err()
	observability.EndSpan(span, err)
	return err
}

// PublishEvent wraps payload in an Event envelope and broadcasts it.
func (n *Notifier) PublishEvent(ctx context.Context, eventType string, payload any) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	body, err := json.Marshal(Event{Type: eventType, Payload: payload, OccurredAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	err = n.PublishBroadcast(ctx, string(body))
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	observability.EventsPublished.WithLabelValues(eventType, outcome).Inc()
	return err
}
