package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type publishedMessage struct {
	channel string
	body    []byte
}

type fakePublisher struct {
	messages []publishedMessage
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	f.messages = append(f.messages, publishedMessage{channel: channel, body: message.([]byte)})
	return redis.NewIntResult(1, nil)
}

func TestRedisRelayPublishesJSON(t *testing.T) {
	publisher := &fakePublisher{}
	dispatcher := NewInMemoryDispatcher()
	NewRedisRelay(publisher, "issue-service.events", zap.NewNop()).Attach(dispatcher)

	event := Event{
		ID:        "evt-1",
		Type:      EventTicketSLABreached,
		TicketID:  12,
		Timestamp: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		Payload:   TicketSLABreachedPayload{TicketNumber: "OPS-3"},
	}
	require.NoError(t, dispatcher.Publish(context.Background(), event))

	require.Len(t, publisher.messages, 1)
	assert.Equal(t, "issue-service.events", publisher.messages[0].channel)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(publisher.messages[0].body, &decoded))
	assert.Equal(t, "ticket_sla_breached", decoded["type"])
	assert.EqualValues(t, 12, decoded["ticket_id"])
	payload := decoded["payload"].(map[string]interface{})
	assert.Equal(t, "OPS-3", payload["ticket_number"])
}

func TestRedisRelayReturnsPublishError(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("connection refused")}
	relay := NewRedisRelay(publisher, "events", zap.NewNop())

	err := relay.Handle(context.Background(), Event{ID: "evt-2", Type: EventTicketCreated})
	assert.ErrorContains(t, err, "connection refused")
}
