// Package hub fans chat events out to every member of a topic.
//
// Publish enqueues the event onto the in-process bus; a single consumer
// goroutine per topic stamps the broadcast timestamp, snapshots the topic
// membership, and hands the frame to each member's bounded outbound queue.
// The single consumer is the hub-side critical section: events published to
// one topic reach every subscriber's queue in publish order, and a slow or
// dead connection never stalls delivery to the others.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nfrund/parley/internal/event"
	"github.com/nfrund/parley/internal/pubsub"
	"github.com/nfrund/parley/internal/registry"
)

// Hub delivers events to topic members via their outbound queues.
type Hub struct {
	publisher  pubsub.Publisher
	subscriber pubsub.Subscriber
	registry   *registry.Registry
	logger     *slog.Logger
}

// New creates a hub over the given bus and registry.
func New(pub pubsub.Publisher, sub pubsub.Subscriber, reg *registry.Registry) *Hub {
	return &Hub{
		publisher:  pub,
		subscriber: sub,
		registry:   reg,
		logger:     slog.Default().With("component", "hub"),
	}
}

// busTopic namespaces hub traffic on the shared bus.
func busTopic(topic string) string {
	return "hub." + topic
}

// Open starts the fan-out consumer for each topic. It must be called before
// any Publish for those topics; the consumers stop when ctx is canceled or
// the bus closes.
func (h *Hub) Open(ctx context.Context, topics ...string) error {
	for _, topic := range topics {
		if err := h.subscriber.Subscribe(ctx, busTopic(topic), h.fanOut(topic)); err != nil {
			return fmt.Errorf("open topic %s: %w", topic, err)
		}
	}
	return nil
}

// Publish enqueues an event for broadcast to the topic's membership at
// fan-out time. origin is the connection ID the event came from, empty for
// server-generated events. Publish never blocks on a consumer and never
// fails because of one: enqueue refusals are handled per connection inside
// the fan-out loop.
func (h *Hub) Publish(ctx context.Context, topic, origin string, ev event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return h.publisher.Publish(ctx, pubsub.Message{
		Topic:        busTopic(topic),
		ConnectionID: origin,
		Payload:      payload,
	})
}

// SendDirect stamps an event and enqueues it for a single connection,
// bypassing topic membership. Used for private frames such as welcomes and
// decode errors. It reports false when the connection refused the frame.
func (h *Hub) SendDirect(conn *registry.Connection, ev event.Event) bool {
	payload, err := json.Marshal(ev.Stamp(time.Now()))
	if err != nil {
		h.logger.Error("Failed to encode direct event", "error", err, "type", ev.Type)
		return false
	}
	if !conn.TrySend(payload) {
		h.logger.Warn("Direct send refused, queue full or closed", "connection_id", conn.ID, "type", ev.Type)
		return false
	}
	return true
}

// fanOut builds the per-topic consumer. The timestamp is assigned here, at
// the moment of fan-out, so every recipient of one broadcast shares a single
// ordering reference.
func (h *Hub) fanOut(topic string) pubsub.Handler {
	return func(ctx context.Context, msg pubsub.Message) error {
		var ev event.Event
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			return fmt.Errorf("decode event for topic %s: %w", topic, err)
		}

		payload, err := json.Marshal(ev.Stamp(time.Now()))
		if err != nil {
			return fmt.Errorf("encode frame for topic %s: %w", topic, err)
		}

		for _, conn := range h.registry.Snapshot(topic) {
			if !conn.TrySend(payload) {
				// Sustained backpressure is treated as a dead peer: the event
				// is dropped for this connection only and its queue is closed
				// so the owning session tears itself down.
				conn.CloseSend()
				h.logger.Warn("Dropped event for slow connection",
					"connection_id", conn.ID, "origin", msg.ConnectionID,
					"topic", topic, "type", ev.Type)
			}
		}
		return nil
	}
}
