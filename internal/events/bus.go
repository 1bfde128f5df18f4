package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/warefront/api/internal/ws"
	"go.uber.org/zap"
)

// StreamProducer publishes events to the external event stream (Kafka).
// Satisfied by *broker.Producer.
type StreamProducer interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// Bus fans committed events out to the websocket hub and, when configured,
// the external event stream. Both paths are best-effort.
type Bus struct {
	hub      *ws.Hub
	producer StreamProducer // nil when Kafka is not configured
	log      *zap.Logger
}

func NewBus(hub *ws.Hub, producer StreamProducer, log *zap.Logger) *Bus {
	return &Bus{hub: hub, producer: producer, log: log}
}

func (b *Bus) Publish(ctx context.Context, evts ...Event) {
	for _, evt := range evts {
		channel := evt.Channel
		if channel == "" {
			channel = ChannelOrders
		}

		payload, err := json.Marshal(evt.Payload)
		if err != nil {
			b.log.Error("marshal event payload", zap.String("type", evt.Type), zap.Error(err))
			continue
		}

		b.hub.BroadcastToChannel(channel, ws.Event{Type: evt.Type, Payload: payload})

		if b.producer != nil {
			// Detach from the request context: the HTTP response must not
			// wait on the broker.
			go func(evt Event) {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := b.producer.PublishEvent(ctx, evt.Type, evt); err != nil {
					b.log.Warn("publish event to stream", zap.String("type", evt.Type), zap.Error(err))
				}
			}(evt)
		}
	}
}
