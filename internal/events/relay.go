package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Publisher is the subset of the go-redis client used by the relay.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisRelay forwards dispatched events to a Redis pub/sub channel as JSON.
type RedisRelay struct {
	client  Publisher
	channel string
	logger  *zap.Logger
}

// NewRedisRelay builds a relay publishing on channel.
func NewRedisRelay(client Publisher, channel string, logger *zap.Logger) *RedisRelay {
	return &RedisRelay{client: client, channel: channel, logger: logger}
}

// Attach subscribes the relay to every event type.
func (r *RedisRelay) Attach(dispatcher Dispatcher) {
	for _, eventType := range AllEventTypes {
		dispatcher.Subscribe(eventType, r.Handle)
	}
}

// Handle publishes a single event.
func (r *RedisRelay) Handle(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}
	if err := r.client.Publish(ctx, r.channel, body).Err(); err != nil {
		r.logger.Warn("relay event failed",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
		return fmt.Errorf("publish event %s: %w", event.ID, err)
	}
	return nil
}
