package server

import (
	"github.com/mcpenterprise/server/internal/pubsub"
	"github.com/mcpenterprise/server/internal/transport"
)

// BusAdapter satisfies transport.PubSub over a *pubsub.Bus. The two
// packages declare structurally-matching but distinct Event types
// (transport.PubSubEvent vs. pubsub.Event) to avoid internal/transport
// importing internal/pubsub directly, so Subscribe's returned channel
// needs a field-by-field translation rather than a bare type
// conversion.
type BusAdapter struct {
	bus *pubsub.Bus
}

// NewBusAdapter wraps bus for use as a transport.PubSub.
func NewBusAdapter(bus *pubsub.Bus) *BusAdapter {
	return &BusAdapter{bus: bus}
}

// Subscribe implements transport.PubSub.
func (a *BusAdapter) Subscribe(channel, subscriberID string) (<-chan transport.PubSubEvent, bool) {
	events, ok := a.bus.Subscribe(channel, subscriberID)
	if !ok {
		return nil, false
	}

	out := make(chan transport.PubSubEvent)
	go func() {
		defer close(out)
		for evt := range events {
			out <- transport.PubSubEvent{
				Channel:   evt.Channel,
				Payload:   evt.Payload,
				Timestamp: evt.Timestamp,
			}
		}
	}()
	return out, true
}

// Unsubscribe implements transport.PubSub.
func (a *BusAdapter) Unsubscribe(channel, subscriberID string) {
	a.bus.Unsubscribe(channel, subscriberID)
}

// UnsubscribeAll implements transport.PubSub.
func (a *BusAdapter) UnsubscribeAll(subscriberID string) {
	a.bus.UnsubscribeAll(subscriberID)
}
